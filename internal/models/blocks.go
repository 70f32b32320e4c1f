// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "strings"

// Canonical block types understood by the render engine.
const (
	BlockHero          = "hero"
	BlockNavbar        = "navbar"
	BlockBentoGrid     = "bento-grid"
	BlockMarquee       = "marquee"
	BlockNarrative     = "narrative"
	BlockShowcase      = "showcase"
	BlockCTAFooter     = "cta-footer"
	BlockProductGrid   = "product-grid"
	BlockTextContent   = "text-content"
	BlockContactForm   = "contact-form"
	BlockImage         = "image-block"
	BlockEditorialHero = "editorial-hero"
	BlockEditorialGrid = "editorial-grid"
)

// blockAliases maps the synonyms the generator has been seen to emit to
// their canonical type.
var blockAliases = map[string]string{
	"featured-products": BlockProductGrid,
	"text":              BlockTextContent,
	"image":             BlockImage,
	"form":              BlockContactForm,
	"contact":           BlockContactForm,
	"editorial":         BlockEditorialHero,
	"nav":               BlockNavbar,
	"navigation":        BlockNavbar,
	"cta":               BlockCTAFooter,
	"features":          BlockBentoGrid,
}

// CanonicalBlockType resolves a block type through the alias table. Types
// that are neither canonical nor aliases are returned lower-cased and
// trimmed, unchanged otherwise.
func CanonicalBlockType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	if canonical, ok := blockAliases[t]; ok {
		return canonical
	}
	return t
}

// BlockAliases returns a copy of the alias table.
func BlockAliases() map[string]string {
	out := make(map[string]string, len(blockAliases))
	for k, v := range blockAliases {
		out[k] = v
	}
	return out
}

// IsHero reports whether t renders as a primary hero. The editorial hero
// counts, so a page opening with one is not given a second hero.
func IsHero(t string) bool {
	switch CanonicalBlockType(t) {
	case BlockHero, BlockEditorialHero:
		return true
	}
	return false
}
