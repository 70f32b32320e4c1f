// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package models defines the data types shared across the generation
// pipeline: the request that starts a generation, the normalized site
// document it produces, and the per-client rate limit record.
package models

import "sort"

// CurrentSchemaVersion is the version tag of the normalized document shape.
// Documents carrying it are already normalized.
const CurrentSchemaVersion = 8

// FlatSchemaVersion is the version of the original flat content contract,
// rendered by attribute injection into static templates.
const FlatSchemaVersion = 1

// HomePage is the page name used for single-page block documents.
const HomePage = "home"

// SiteDocument is the validated, versioned root record describing a
// generated site. After normalization exactly one of Blocks or Pages is
// populated.
type SiteDocument struct {
	SchemaVersion int              `json:"schemaVersion"`
	SourceVersion int              `json:"sourceVersion"`
	Meta          Meta             `json:"meta"`
	Theme         Theme            `json:"theme"`
	Navbar        *Navbar          `json:"navbar,omitempty"`
	Footer        *Footer          `json:"footer,omitempty"`
	Blocks        []Block          `json:"blocks,omitempty"`
	Pages         map[string]*Page `json:"pages,omitempty"`
	PageOrder     []string         `json:"pageOrder,omitempty"`

	// Content holds the flat v1 field set verbatim. It is only present when
	// SourceVersion is FlatSchemaVersion.
	Content map[string]any `json:"content,omitempty"`
}

// Meta carries descriptive information about the site.
type Meta struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version,omitempty"`
}

// Theme controls the colors and fonts of the rendered site.
type Theme struct {
	Mode       string     `json:"mode"`
	Palette    Palette    `json:"palette"`
	Typography Typography `json:"typography"`
}

// Palette is the set of theme colors, as CSS color strings.
type Palette struct {
	Primary    string `json:"primary"`
	Secondary  string `json:"secondary"`
	Accent     string `json:"accent"`
	Background string `json:"background"`
	Surface    string `json:"surface"`
}

// Typography names the Google fonts used for headings and body text.
type Typography struct {
	HeadingFont string `json:"headingFont"`
	BodyFont    string `json:"bodyFont"`
}

// Navbar describes the site-wide navigation bar.
type Navbar struct {
	Logo  string    `json:"logo"`
	Links []NavLink `json:"links"`
	CTA   *NavLink  `json:"cta,omitempty"`
}

// NavLink points at a page (by name) or an external URL.
type NavLink struct {
	Label  string `json:"label"`
	Target string `json:"target"`
}

// Footer describes the site-wide footer.
type Footer struct {
	Text  string    `json:"text"`
	Style string    `json:"style"`
	Links []NavLink `json:"links,omitempty"`
}

// Page is a named page of a multi-page document.
type Page struct {
	Title  string  `json:"title,omitempty"`
	Blocks []Block `json:"blocks"`
}

// Block is a polymorphic unit of page content. Data shape depends on Type.
type Block struct {
	Type    string         `json:"type"`
	Variant string         `json:"variant,omitempty"`
	Data    map[string]any `json:"data"`
	Style   map[string]any `json:"style,omitempty"`
}

// IsFlat reports whether the document was produced from the flat content
// contract and should be rendered by attribute injection.
func (d *SiteDocument) IsFlat() bool {
	return d.SourceVersion == FlatSchemaVersion && d.Content != nil
}

// PageNames returns the names of the document's pages in display order.
// Single-page documents expose one page named HomePage.
func (d *SiteDocument) PageNames() []string {
	if d.Pages == nil {
		return []string{HomePage}
	}
	names := make([]string, 0, len(d.Pages))
	seen := make(map[string]bool, len(d.Pages))
	for _, name := range d.PageOrder {
		if _, ok := d.Pages[name]; ok && !seen[name] {
			names = append(names, name)
			seen[name] = true
		}
	}
	var rest []string
	for name := range d.Pages {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

// PageBlocks returns the blocks of the named page.
func (d *SiteDocument) PageBlocks(name string) ([]Block, bool) {
	if d.Pages == nil {
		if name == HomePage || name == "" {
			return d.Blocks, true
		}
		return nil, false
	}
	if name == "" {
		names := d.PageNames()
		if len(names) == 0 {
			return nil, false
		}
		name = names[0]
	}
	p, ok := d.Pages[name]
	if !ok || p == nil {
		return nil, false
	}
	return p.Blocks, true
}
