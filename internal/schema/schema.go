// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package schema detects which of the historical document shapes a
// recovered generation uses and converges it on the current SiteDocument.
//
// Every shape has its own converter; fields of two shapes are never merged.
// After conversion a shared pass fills the theme, navbar and footer from
// fixed defaults and guarantees each page opens with navigation, contains
// a hero and closes with a call to action. Normalizing a document that is
// already in the current shape changes nothing.
package schema

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"sitegen/internal/models"
)

// Version identifies a document shape.
type Version int

const (
	VersionFlat      Version = 1 // flat content fields, injected into static templates
	VersionBlocks    Version = 2 // meta + theme + blocks
	VersionStyled    Version = 3 // theme.colors/fonts, layout.{navbar,footer}
	VersionPagesMap  Version = 4 // pages keyed by name
	VersionPagesList Version = 5 // pages as an ordered list
	VersionSections  Version = 6 // pages of {component, props, variant} sections
	VersionEnvelope  Version = 7 // {generator, site: {...}}
	VersionCurrent   Version = models.CurrentSchemaVersion
)

// ErrStructure is matched by every *ValidationError.
var ErrStructure = errors.New("incompatible document structure")

// ValidationError reports that a document lacks the minimal structure of
// its detected shape. It is terminal for the generation attempt.
type ValidationError struct {
	Version  Version
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema: v%d document rejected: %s", e.Version, strings.Join(e.Problems, "; "))
}

// Is makes errors.Is(err, ErrStructure) hold.
func (e *ValidationError) Is(target error) bool {
	return target == ErrStructure
}

// Detect returns the shape of raw. An explicit schemaVersion wins, then
// meta.version; without either marker the shape is inferred from the keys
// present, and a document with none of the block-era keys is flat.
func Detect(raw map[string]any) (Version, error) {
	if raw == nil {
		return 0, &ValidationError{Problems: []string{"document must be a JSON object"}}
	}

	if v, ok := raw["schemaVersion"]; ok {
		n, ok := intValue(v)
		if !ok {
			return 0, &ValidationError{Problems: []string{
				fmt.Sprintf("schemaVersion must be an integer, got %s", describe(v)),
			}}
		}
		if n < int(VersionFlat) || n > int(VersionCurrent) {
			return 0, &ValidationError{Version: Version(n), Problems: []string{
				fmt.Sprintf("unsupported schemaVersion %d", n),
			}}
		}
		return Version(n), nil
	}

	if meta := object(raw["meta"]); meta != nil {
		switch str(meta["version"]) {
		case "2", "2.0":
			return VersionBlocks, nil
		case "2.1":
			return VersionStyled, nil
		}
	}

	if object(raw["site"]) != nil {
		return VersionEnvelope, nil
	}
	switch pages := raw["pages"].(type) {
	case map[string]any:
		for _, p := range pages {
			if _, ok := object(p)["sections"]; ok {
				return VersionSections, nil
			}
		}
		return VersionPagesMap, nil
	case []any:
		return VersionPagesList, nil
	}
	if _, ok := raw["blocks"]; ok {
		return VersionBlocks, nil
	}
	return VersionFlat, nil
}

// Normalizer converts recovered documents into the current shape.
type Normalizer struct {
	images *ImagePicker
	now    func() time.Time
}

// NewNormalizer returns a Normalizer that resolves missing imagery with images.
func NewNormalizer(images *ImagePicker) *Normalizer {
	return &Normalizer{images: images, now: time.Now}
}

// Normalize validates raw against its detected shape and returns the
// current-shape document. prompt is the user's original description; it
// selects the fallback image category. Block data maps are taken over
// from raw and may be modified, so raw must not be reused afterwards.
func (n *Normalizer) Normalize(raw map[string]any, prompt string) (*models.SiteDocument, error) {
	version, err := Detect(raw)
	if err != nil {
		return nil, err
	}

	var doc *models.SiteDocument
	switch version {
	case VersionFlat:
		doc, err = fromFlat(raw)
	case VersionBlocks:
		doc = fromBlocks(raw)
	case VersionStyled:
		doc = fromStyled(raw)
	case VersionPagesMap:
		doc = fromPagesMap(raw, false)
	case VersionPagesList:
		doc = fromPagesList(raw)
	case VersionSections:
		doc = fromPagesMap(raw, true)
	case VersionEnvelope:
		doc, err = fromEnvelope(raw)
	case VersionCurrent:
		doc, err = fromCurrent(raw)
	}
	if err != nil {
		return nil, err
	}

	if doc.SourceVersion == 0 {
		doc.SourceVersion = int(version)
	}
	doc.SchemaVersion = models.CurrentSchemaVersion
	n.finish(doc, prompt)

	slog.Debug("document normalized",
		"source_version", doc.SourceVersion,
		"pages", len(doc.PageNames()),
		"flat", doc.IsFlat(),
	)
	return doc, nil
}
