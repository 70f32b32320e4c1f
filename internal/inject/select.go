// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package inject

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"sitegen/internal/slug"
)

//go:embed templates/*
var templateFS embed.FS

// Template is a legacy static template with its selection keywords.
type Template struct {
	ID       string   `yaml:"id"`
	Name     string   `yaml:"name"`
	File     string   `yaml:"file"`
	Tags     []string `yaml:"tags"`
	Keywords []string `yaml:"keywords"`
}

// Catalog is the set of legacy templates and the fallback choice.
type Catalog struct {
	Default   string     `yaml:"default"`
	Templates []Template `yaml:"templates"`

	fsys fs.FS
}

// LoadCatalog reads the embedded template catalog.
func LoadCatalog() (*Catalog, error) {
	fsys, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("template fs: %w", err)
	}
	raw, err := fs.ReadFile(fsys, "catalog.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if len(c.Templates) == 0 {
		return nil, fmt.Errorf("catalog has no templates")
	}
	for _, t := range c.Templates {
		if _, err := fs.Stat(fsys, t.File); err != nil {
			return nil, fmt.Errorf("template %s: %w", t.ID, err)
		}
	}
	c.fsys = fsys
	return &c, nil
}

// Get returns the template with the given id.
func (c *Catalog) Get(id string) (Template, bool) {
	for _, t := range c.Templates {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}

// Open parses a fresh frame from the template's HTML.
func (c *Catalog) Open(t Template) (*HTMLFrame, error) {
	f, err := c.fsys.Open(t.File)
	if err != nil {
		return nil, fmt.Errorf("opening template %s: %w", t.ID, err)
	}
	defer f.Close()
	return ParseFrame(f)
}

// Select scores every template against the prompt and the content: each
// matching tag counts two and each matching keyword one. Ties and a zero
// score go to the default template.
func (c *Catalog) Select(prompt string, content map[string]any) Template {
	text := prompt
	if raw, err := json.Marshal(content); err == nil {
		text += " " + string(raw)
	}
	words := tokens(text)

	var best Template
	bestScore, tie := 0, false
	for _, t := range c.Templates {
		score := 2*matches(words, t.Tags) + matches(words, t.Keywords)
		switch {
		case score > bestScore:
			best, bestScore, tie = t, score, false
		case score == bestScore && score > 0:
			tie = true
		}
	}
	if bestScore == 0 || tie {
		if d, ok := c.Get(c.Default); ok {
			return d
		}
		return c.Templates[0]
	}
	return best
}

// tokens splits text into accent-folded lowercase words.
func tokens(text string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if key := slug.Generate(w); key != "" {
			words[key] = true
		}
	}
	return words
}

func matches(words map[string]bool, terms []string) int {
	n := 0
	for _, term := range terms {
		key := slug.Generate(term)
		if key != "" && words[key] {
			n++
		}
	}
	return n
}
