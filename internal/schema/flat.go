// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package schema

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"sitegen/internal/models"
)

// flatSchemaJSON is the minimal proof that a document follows the flat
// contract: a non-empty title and a menu list. Everything else is advisory.
const flatSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["titulo", "menuItems"],
  "properties": {
    "titulo":    {"type": "string", "minLength": 1, "pattern": "\\S"},
    "menuItems": {"type": "array"}
  }
}`

var flatSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(flatSchemaJSON))
})

// nominalCounts are the list lengths the flat contract asks for.
var nominalCounts = []struct {
	key   string
	count int
}{
	{"beneficios", 3},
	{"servicios", 3},
	{"menuItems", 6},
	{"chefs", 3},
	{"desayuno", 6},
	{"almuerzo", 6},
	{"cena", 6},
}

// ValidateFlat checks raw against the flat contract. A missing title or
// menu list is a *ValidationError; lists whose length differs from the
// nominal count only produce warnings.
func ValidateFlat(raw map[string]any) ([]string, error) {
	s, err := flatSchema()
	if err != nil {
		return nil, fmt.Errorf("schema compile flat contract: %w", err)
	}
	result, err := s.Validate(gojsonschema.NewGoLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("schema validate flat document: %w", err)
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return nil, &ValidationError{Version: VersionFlat, Problems: problems}
	}

	var warnings []string
	for _, n := range nominalCounts {
		v, ok := raw[n.key]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("%s is missing, expected %d items", n.key, n.count))
			continue
		}
		if got := len(list(v)); got != n.count {
			warnings = append(warnings, fmt.Sprintf("%s has %d items, expected %d", n.key, got, n.count))
		}
	}
	return warnings, nil
}

func fromFlat(raw map[string]any) (*models.SiteDocument, error) {
	warnings, err := ValidateFlat(raw)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		slog.Warn("flat document cardinality", "detail", w)
	}

	doc := &models.SiteDocument{
		SourceVersion: int(VersionFlat),
		Meta: models.Meta{
			Title:       str(raw["titulo"]),
			Description: firstStr(raw, "descripcion", "eslogan"),
		},
		Content: raw,
		Blocks:  projectFlat(raw),
	}
	if copyright := str(object(raw["footer"])["copyright"]); copyright != "" {
		doc.Footer = &models.Footer{Text: copyright}
	}
	return doc, nil
}

// projectFlat builds the block view of a flat document. The maps it
// returns are fresh, so later passes never write into the flat content.
func projectFlat(raw map[string]any) []models.Block {
	title := str(raw["titulo"])
	cta := flatCTA(raw["cta"])

	hero := map[string]any{"headline": title, "image_prompt": title}
	if s := str(raw["eslogan"]); s != "" {
		hero["subheadline"] = s
	}
	if cta != "" {
		hero["cta_primary"] = cta
		hero["actionTarget"] = "contact"
	}
	blocks := []models.Block{{Type: models.BlockHero, Data: hero}}

	about := object(raw["about"])
	if desc := str(raw["descripcion"]); desc != "" || about != nil {
		narrative := map[string]any{"title": firstStr(about, "titulo", "subtitulo")}
		if narrative["title"] == "" {
			narrative["title"] = title
		}
		if desc != "" {
			narrative["paragraphs"] = []any{desc}
		}
		blocks = append(blocks, models.Block{Type: models.BlockNarrative, Variant: "image-right", Data: narrative})
	}

	var features []any
	for _, key := range []string{"beneficios", "servicios"} {
		for _, item := range list(raw[key]) {
			if t := flatItemTitle(item); t != "" {
				features = append(features, map[string]any{"title": t})
			}
		}
	}
	if len(features) > 0 {
		blocks = append(blocks, models.Block{Type: models.BlockBentoGrid, Data: map[string]any{"items": features}})
	}

	menu := object(raw["menu"])
	products := make([]any, 0, len(list(raw["menuItems"])))
	for _, item := range list(raw["menuItems"]) {
		m := object(item)
		if m == nil {
			continue
		}
		products = append(products, map[string]any{
			"name":        str(m["nombre"]),
			"description": str(m["descripcion"]),
			"price":       str(m["precio"]),
		})
	}
	blocks = append(blocks, models.Block{Type: models.BlockProductGrid, Data: map[string]any{
		"title":    firstStr(menu, "titulo", "subtitulo"),
		"products": products,
	}})

	closing := map[string]any{"headline": firstStr(object(raw["formulario"]), "titulo")}
	if closing["headline"] == "" {
		closing["headline"] = cta
	}
	if cta != "" {
		closing["cta"] = cta
	}
	blocks = append(blocks, models.Block{Type: models.BlockCTAFooter, Data: closing})
	return blocks
}

// flatCTA reads the call to action, which is a string in the contract but
// has been seen as {texto} or {text}.
func flatCTA(v any) string {
	if s := str(v); s != "" {
		return s
	}
	return firstStr(object(v), "texto", "text", "label")
}

func flatItemTitle(v any) string {
	if s := str(v); s != "" {
		return s
	}
	return firstStr(object(v), "titulo", "nombre", "title")
}
