// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug turns page titles and generated page names into URL-safe
// identifiers. Accented letters are folded to their base letter so that
// "Menú" and "Menu" address the same page.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// nonAlphanumeric matches anything that isn't a letter, digit, space or hyphen.
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9\s-]`)
	// separators collapses runs of whitespace, underscores and hyphens.
	separators = regexp.MustCompile(`[\s_-]+`)
)

// Generate creates a URL-friendly slug from the given string.
// Example: "Nuestro Menú & Café" → "nuestro-menu-cafe"
func Generate(s string) string {
	result := strings.ToLower(strings.TrimSpace(fold(s)))
	result = strings.ReplaceAll(result, "_", " ")
	result = nonAlphanumeric.ReplaceAllString(result, "")
	result = separators.ReplaceAllString(result, "-")
	return strings.Trim(result, "-")
}

// PageName returns the slug for a page name, or fallback when the name
// has no usable characters.
func PageName(name, fallback string) string {
	if s := Generate(name); s != "" {
		return s
	}
	return fallback
}

// fold strips combining marks after canonical decomposition.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
