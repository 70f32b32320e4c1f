// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package schema

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"unicode"

	"sitegen/internal/models"
)

// Accessors over decoded JSON. Generated documents are untrusted, so every
// lookup tolerates a missing key or a value of the wrong kind.

func object(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func list(v any) []any {
	l, _ := v.([]any)
	return l
}

func str(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	}
	return ""
}

// firstStr returns the first non-empty string among the keys of m.
func firstStr(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := str(m[k]); s != "" {
			return s
		}
	}
	return ""
}

// intValue reads a JSON number or numeric string with no fractional part.
func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	case int:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err == nil && f == math.Trunc(f) && math.Abs(f) < 1<<31 {
			return int(f), true
		}
	}
	return 0, false
}

func parseMeta(v any) models.Meta {
	m := object(v)
	return models.Meta{
		Title:       firstStr(m, "title", "projectName", "siteName", "name"),
		Description: firstStr(m, "description", "tagline"),
		Version:     str(m["version"]),
	}
}

// parseTheme reads the palette/typography naming. When styled is set the
// colors/fonts naming of the styled block documents takes precedence.
func parseTheme(v any, styled bool) models.Theme {
	m := object(v)
	t := models.Theme{Mode: strings.ToLower(str(m["mode"]))}

	palette := object(m["palette"])
	typography := object(m["typography"])
	if styled {
		if c := object(m["colors"]); c != nil {
			palette = c
		}
		if f := object(m["fonts"]); f != nil {
			typography = map[string]any{
				"headingFont": firstStr(f, "heading", "headingFont"),
				"bodyFont":    firstStr(f, "body", "bodyFont"),
			}
		}
	}

	t.Palette = models.Palette{
		Primary:    str(palette["primary"]),
		Secondary:  str(palette["secondary"]),
		Accent:     str(palette["accent"]),
		Background: str(palette["background"]),
		Surface:    str(palette["surface"]),
	}
	t.Typography = models.Typography{
		HeadingFont: str(typography["headingFont"]),
		BodyFont:    str(typography["bodyFont"]),
	}
	return t
}

func parseLink(v any) (models.NavLink, bool) {
	m := object(v)
	if m == nil {
		if s := str(v); s != "" {
			return models.NavLink{Label: s, Target: s}, true
		}
		return models.NavLink{}, false
	}
	l := models.NavLink{
		Label:  firstStr(m, "label", "text", "title", "name"),
		Target: firstStr(m, "target", "page", "href", "slug", "url"),
	}
	if l.Label == "" && l.Target == "" {
		return l, false
	}
	if l.Label == "" {
		l.Label = l.Target
	}
	return l, true
}

func parseLinks(v any) []models.NavLink {
	var out []models.NavLink
	for _, item := range list(v) {
		if l, ok := parseLink(item); ok {
			out = append(out, l)
		}
	}
	return out
}

func parseNavbar(v any) *models.Navbar {
	m := object(v)
	if m == nil {
		return nil
	}
	n := &models.Navbar{
		Logo:  firstStr(m, "logo", "brand", "title"),
		Links: parseLinks(m["links"]),
	}
	if cta, ok := parseLink(m["cta"]); ok {
		n.CTA = &cta
	}
	return n
}

func parseFooter(v any) *models.Footer {
	if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
		return &models.Footer{Text: strings.TrimSpace(s)}
	}
	m := object(v)
	if m == nil {
		return nil
	}
	return &models.Footer{
		Text:  firstStr(m, "text", "copyright"),
		Style: strings.ToLower(firstStr(m, "style", "variant")),
		Links: parseLinks(m["links"]),
	}
}

// parseBlocks converts a JSON block list. Entries without a type are
// dropped. Block data lives under "data"; a block that only carries the
// legacy "content" key has it moved there, and when both are present
// "content" is discarded.
func parseBlocks(v any) []models.Block {
	items := list(v)
	blocks := make([]models.Block, 0, len(items))
	for i, item := range items {
		m := object(item)
		typ := str(m["type"])
		if typ == "" {
			slog.Warn("block without type dropped", "index", i)
			continue
		}
		blocks = append(blocks, models.Block{
			Type:    typ,
			Variant: str(m["variant"]),
			Data:    blockData(m, typ),
			Style:   object(m["style"]),
		})
	}
	return blocks
}

func blockData(m map[string]any, typ string) map[string]any {
	data := object(m["data"])
	legacy := object(m["content"])
	switch {
	case data != nil && legacy != nil:
		slog.Debug("block carries both data and content, content dropped", "type", typ)
	case data == nil && legacy != nil:
		slog.Debug("block content migrated to data", "type", typ)
		data = legacy
	}
	if data == nil {
		data = map[string]any{}
	}
	return data
}

// parseSections converts the component/props dialect into blocks.
func parseSections(v any) []models.Block {
	items := list(v)
	blocks := make([]models.Block, 0, len(items))
	for i, item := range items {
		m := object(item)
		typ := firstStr(m, "component", "type")
		if typ == "" {
			slog.Warn("section without component dropped", "index", i)
			continue
		}
		props := object(m["props"])
		if props == nil {
			props = map[string]any{}
		}
		blocks = append(blocks, models.Block{
			Type:    typ,
			Variant: str(m["variant"]),
			Data:    props,
			Style:   object(m["style"]),
		})
	}
	return blocks
}

// pageTitle derives a display title from a page name.
func pageTitle(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool { return r == '-' || r == '_' || r == ' ' })
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	}
	return fmt.Sprintf("%T", v)
}
