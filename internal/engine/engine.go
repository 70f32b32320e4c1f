// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package engine renders the blocks of a normalized site document into
// HTML. Each block type has a renderer backed by an embedded html/template;
// renderers emit the interactive actions of their controls into a sink
// that travels with the rendered page.
package engine

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	"sync"

	"sitegen/internal/markdown"
	"sitegen/internal/metrics"
	"sitegen/internal/models"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Renderer turns one block into HTML.
type Renderer func(p Props) (template.HTML, error)

// Page is a rendered page body together with the actions its controls use.
type Page struct {
	Name      string
	Title     string
	Body      template.HTML
	Actions   []models.Action
	HasNavbar bool
}

// Engine holds the renderer registry and the compiled template cache.
type Engine struct {
	cache   *templateCache
	metrics *metrics.Metrics

	mu        sync.RWMutex
	renderers map[string]Renderer
}

// New compiles the embedded block templates and registers the built-in
// renderers. m may be nil.
func New(m *metrics.Metrics) (*Engine, error) {
	e := &Engine{
		cache:     newTemplateCache(),
		metrics:   m,
		renderers: make(map[string]Renderer),
	}
	if err := e.cache.load(templatesFS, "templates", funcMap); err != nil {
		return nil, err
	}

	for blockType, view := range builtinViews {
		e.renderers[blockType] = e.templated(blockType, view)
	}
	return e, nil
}

var funcMap = template.FuncMap{
	"markdown": markdown.Render,
}

// Register adds or replaces the renderer for a canonical block type.
func (e *Engine) Register(blockType string, r Renderer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.renderers[blockType] = r
}

// Types returns the block types with a registered renderer.
func (e *Engine) Types() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	types := make([]string, 0, len(e.renderers))
	for t := range e.renderers {
		types = append(types, t)
	}
	return types
}

func (e *Engine) renderer(blockType string) (Renderer, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	r, ok := e.renderers[blockType]
	return r, ok
}

// RenderPage renders the named page of doc. An empty name selects the
// first page. The second return is false when the page does not exist.
func (e *Engine) RenderPage(doc *models.SiteDocument, name string, link func(page string) string) (*Page, bool) {
	names := doc.PageNames()
	if len(names) == 0 {
		return nil, false
	}
	if name == "" {
		name = names[0]
	}
	blocks, ok := doc.PageBlocks(name)
	if !ok {
		return nil, false
	}

	title := doc.Meta.Title
	if p := doc.Pages[name]; p != nil && p.Title != "" && name != names[0] {
		title = p.Title + " | " + doc.Meta.Title
	}

	sink := NewActionSink()
	body := e.RenderBlocks(blocks, &Site{Doc: doc, Page: name, Link: link}, sink)

	hasNav := false
	for _, b := range blocks {
		if models.CanonicalBlockType(b.Type) == models.BlockNavbar {
			hasNav = true
			break
		}
	}

	return &Page{
		Name:      name,
		Title:     title,
		Body:      body,
		Actions:   sink.Actions(),
		HasNavbar: hasNav,
	}, true
}

// RenderBlocks renders blocks in order. A block that fails never prevents
// its siblings from rendering.
func (e *Engine) RenderBlocks(blocks []models.Block, site *Site, sink *ActionSink) template.HTML {
	var buf strings.Builder
	for _, b := range blocks {
		buf.WriteString(string(e.RenderBlock(b, site, sink)))
		buf.WriteByte('\n')
	}
	return template.HTML(buf.String())
}

// RenderBlock renders a single block. Unknown types, renderer errors and
// renderer panics all produce a labelled placeholder.
func (e *Engine) RenderBlock(b models.Block, site *Site, sink *ActionSink) (out template.HTML) {
	blockType := models.CanonicalBlockType(b.Type)

	r, ok := e.renderer(blockType)
	if !ok {
		slog.Warn("no renderer for block type", "type", b.Type)
		e.metrics.BlockRendered("unknown")
		return placeholder(b.Type)
	}

	defer func() {
		if rec := recover(); rec != nil {
			slog.Warn("block renderer panicked", "type", blockType, "panic", rec)
			out = placeholder(b.Type)
		}
	}()

	data := b.Data
	if data == nil {
		data = map[string]any{}
	}
	html, err := r(Props{
		Type:    blockType,
		Data:    data,
		Variant: strings.ToLower(strings.TrimSpace(b.Variant)),
		Style:   b.Style,
		Actions: sink,
		Site:    site,
	})
	if err != nil {
		slog.Warn("block render failed", "type", blockType, "error", err)
		return placeholder(b.Type)
	}

	e.metrics.BlockRendered(blockType)
	return html
}

// placeholder labels a block that could not be rendered.
func placeholder(blockType string) template.HTML {
	label := template.HTMLEscapeString(blockType)
	return template.HTML(fmt.Sprintf(
		`<section class="block block-placeholder" data-block-type="%s"><p>[Block: %s]</p></section>`,
		label, label,
	))
}

// templated builds a renderer that executes the cached template for
// blockType over the view produced from the props.
func (e *Engine) templated(blockType string, view func(Props) any) Renderer {
	return func(p Props) (template.HTML, error) {
		tmpl := e.cache.get(blockType)
		if tmpl == nil {
			return "", fmt.Errorf("no template for %s", blockType)
		}

		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, view(p)); err != nil {
			return "", fmt.Errorf("execute %s template: %w", blockType, err)
		}
		return template.HTML(buf.String()), nil
	}
}
