// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package schema

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"sitegen/internal/models"
	"sitegen/internal/slug"
)

// One converter per shape. Converters only translate what the shape
// declares; defaults and layout guarantees are applied afterwards.

func fromBlocks(raw map[string]any) *models.SiteDocument {
	return &models.SiteDocument{
		Meta:   parseMeta(raw["meta"]),
		Theme:  parseTheme(raw["theme"], false),
		Navbar: parseNavbar(raw["navbar"]),
		Footer: parseFooter(raw["footer"]),
		Blocks: parseBlocks(raw["blocks"]),
	}
}

// fromStyled converts the styled block document. Without a pages map the
// block list becomes the home page and about/services pages are built
// from skeletons.
func fromStyled(raw map[string]any) *models.SiteDocument {
	layout := object(raw["layout"])
	navbar := layout["navbar"]
	if navbar == nil {
		navbar = raw["navbar"]
	}
	footer := layout["footer"]
	if footer == nil {
		footer = raw["footer"]
	}

	doc := &models.SiteDocument{
		Meta:   parseMeta(raw["meta"]),
		Theme:  parseTheme(raw["theme"], true),
		Navbar: parseNavbar(navbar),
		Footer: parseFooter(footer),
	}

	if pages, order := parsePagesMap(object(raw["pages"]), false); len(pages) > 0 {
		doc.Pages, doc.PageOrder = pages, order
		return doc
	}

	home := parseBlocks(raw["blocks"])
	doc.Pages = map[string]*models.Page{
		models.HomePage: {Title: "Home", Blocks: home},
		"about":         {Title: "About", Blocks: aboutSkeleton(doc.Meta)},
		"services":      {Title: "Services", Blocks: servicesSkeleton(doc.Meta, home)},
	}
	doc.PageOrder = []string{models.HomePage, "about", "services"}
	return doc
}

func fromPagesMap(raw map[string]any, sections bool) *models.SiteDocument {
	doc := &models.SiteDocument{
		Meta:   parseMeta(raw["meta"]),
		Theme:  parseTheme(raw["theme"], false),
		Navbar: parseNavbar(raw["navbar"]),
		Footer: parseFooter(raw["footer"]),
	}
	doc.Pages, doc.PageOrder = parsePagesMap(object(raw["pages"]), sections)
	if len(doc.Pages) == 0 {
		doc.Pages = map[string]*models.Page{models.HomePage: {Blocks: parseBlocks(raw["blocks"])}}
		doc.PageOrder = []string{models.HomePage}
	}
	return doc
}

func fromPagesList(raw map[string]any) *models.SiteDocument {
	doc := &models.SiteDocument{
		Meta:   parseMeta(raw["meta"]),
		Theme:  parseTheme(raw["theme"], false),
		Navbar: parseNavbar(raw["navbar"]),
		Footer: parseFooter(raw["footer"]),
		Pages:  make(map[string]*models.Page),
	}

	for i, item := range list(raw["pages"]) {
		m := object(item)
		if m == nil {
			continue
		}
		fallback := fmt.Sprintf("page-%d", i+1)
		if len(doc.Pages) == 0 {
			fallback = models.HomePage
		}
		name := uniqueName(doc.Pages, slug.PageName(firstStr(m, "slug", "name", "id", "title"), fallback))
		doc.Pages[name] = &models.Page{Title: str(m["title"]), Blocks: parseBlocks(m["blocks"])}
		doc.PageOrder = append(doc.PageOrder, name)
	}

	if len(doc.Pages) == 0 {
		doc.Pages[models.HomePage] = &models.Page{Blocks: parseBlocks(raw["blocks"])}
		doc.PageOrder = []string{models.HomePage}
	}
	return doc
}

func fromEnvelope(raw map[string]any) (*models.SiteDocument, error) {
	site := object(raw["site"])
	if site == nil {
		return nil, &ValidationError{Version: VersionEnvelope, Problems: []string{
			fmt.Sprintf("site must be an object, got %s", describe(raw["site"])),
		}}
	}
	if gen := str(raw["generator"]); gen != "" {
		slog.Debug("unwrapping site envelope", "generator", gen)
	}
	if _, ok := site["pages"].([]any); ok {
		return fromPagesList(site), nil
	}
	return fromPagesMap(site, false), nil
}

// fromCurrent decodes a document that is already in the current shape.
func fromCurrent(raw map[string]any) (*models.SiteDocument, error) {
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("schema encode current document: %w", err)
	}
	var doc models.SiteDocument
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, &ValidationError{Version: VersionCurrent, Problems: []string{err.Error()}}
	}
	for name, p := range doc.Pages {
		if p == nil {
			delete(doc.Pages, name)
		}
	}
	for i := range doc.Blocks {
		if doc.Blocks[i].Data == nil {
			doc.Blocks[i].Data = map[string]any{}
		}
	}
	for _, p := range doc.Pages {
		for i := range p.Blocks {
			if p.Blocks[i].Data == nil {
				p.Blocks[i].Data = map[string]any{}
			}
		}
	}
	return &doc, nil
}

// parsePagesMap converts a name-keyed pages object. Names are slugged;
// the order puts home first, then the remaining pages alphabetically, and
// is refined from the navbar once defaults are known.
func parsePagesMap(m map[string]any, sections bool) (map[string]*models.Page, []string) {
	if len(m) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pages := make(map[string]*models.Page, len(m))
	var order []string
	for i, k := range keys {
		name := uniqueName(pages, slug.PageName(k, fmt.Sprintf("page-%d", i+1)))
		page := &models.Page{}

		switch v := m[k].(type) {
		case []any:
			page.Blocks = parseBlocks(v)
		case map[string]any:
			page.Title = str(v["title"])
			if sections {
				page.Blocks = parseSections(v["sections"])
			}
			if len(page.Blocks) == 0 {
				page.Blocks = parseBlocks(v["blocks"])
			}
		default:
			slog.Warn("page dropped", "page", k, "kind", describe(v))
			continue
		}
		if page.Title == "" {
			page.Title = pageTitle(k)
		}
		pages[name] = page
		order = append(order, name)
	}

	for i, name := range order {
		if name == models.HomePage {
			copy(order[1:i+1], order[:i])
			order[0] = models.HomePage
			break
		}
	}
	return pages, order
}

func uniqueName(pages map[string]*models.Page, name string) string {
	if _, taken := pages[name]; !taken {
		return name
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s-%d", name, i)
		if _, taken := pages[candidate]; !taken {
			return candidate
		}
	}
}

func aboutSkeleton(meta models.Meta) []models.Block {
	data := map[string]any{
		"title":        strings.TrimSpace("About " + meta.Title),
		"image_prompt": strings.TrimSpace(meta.Title + " team at work"),
	}
	if meta.Description != "" {
		data["paragraphs"] = []any{meta.Description}
	}
	return []models.Block{{Type: models.BlockNarrative, Variant: "image-left", Data: data}}
}

// servicesSkeleton reuses the items of the first feature grid or showcase
// on the home page, copying each item so the pages do not share maps.
func servicesSkeleton(meta models.Meta, home []models.Block) []models.Block {
	var items []any
	for _, b := range home {
		switch models.CanonicalBlockType(b.Type) {
		case models.BlockBentoGrid, models.BlockShowcase:
		default:
			continue
		}
		for _, item := range list(b.Data["items"]) {
			if m := object(item); m != nil {
				c := make(map[string]any, len(m))
				for k, v := range m {
					c[k] = v
				}
				items = append(items, c)
			} else if s := str(item); s != "" {
				items = append(items, map[string]any{"title": s})
			}
		}
		if len(items) > 0 {
			break
		}
	}
	if len(items) == 0 {
		item := map[string]any{"title": meta.Title}
		if meta.Description != "" {
			item["description"] = meta.Description
		}
		items = []any{item}
	}
	return []models.Block{{Type: models.BlockBentoGrid, Data: map[string]any{"title": "Services", "items": items}}}
}
