// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package prompt builds the instruction sent to the generation service.
// Every request schema version has its own embedded template carrying that
// version's output contract verbatim.
package prompt

import (
	"embed"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"sitegen/internal/ai"
	"sitegen/internal/models"
	"sitegen/internal/schema"
)

//go:embed templates/*.txt
var templateFS embed.FS

// DefaultVersion is the template used when a request names no version.
const DefaultVersion = 1

// Markers that separate guidance baked into a combined prompt from the
// user's own text. The second one is what older clients send.
var userMarkers = []string{"USER:", "USUARIO:"}

const (
	defaultUserText = "Generate the complete content following the contract above."
	defaultFeedback = "Improve the copy while keeping the structure."
)

// Composer turns validated requests into instructions.
type Composer struct {
	templates map[int]string
}

// New loads the embedded templates. Version 3 is the version 2 template
// followed by the layout addendum.
func New() (*Composer, error) {
	read := func(name string) (string, error) {
		b, err := templateFS.ReadFile("templates/" + name)
		if err != nil {
			return "", fmt.Errorf("prompt load %s: %w", name, err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	c := &Composer{templates: make(map[int]string)}
	for version, name := range map[int]string{1: "v1.txt", 2: "v2.txt", 4: "v4.txt"} {
		text, err := read(name)
		if err != nil {
			return nil, err
		}
		c.templates[version] = text
	}
	addendum, err := read("v3.txt")
	if err != nil {
		return nil, err
	}
	c.templates[3] = c.templates[2] + "\n\n" + addendum
	return c, nil
}

// Supports reports whether a template exists for the request version.
func (c *Composer) Supports(version int) bool {
	_, ok := c.templates[version]
	return ok
}

// Versions returns the supported request versions in ascending order.
func (c *Composer) Versions() []int {
	return slices.Sorted(maps.Keys(c.templates))
}

// Compose builds the instruction for req. Edit requests embed the prior
// document and ask for the complete updated document back.
func (c *Composer) Compose(req models.GenerationRequest) (ai.Instruction, error) {
	if req.IsEdit && req.PriorDocument != nil {
		return c.composeEdit(req)
	}

	version := req.SchemaVersion
	if version == 0 {
		version = DefaultVersion
	}
	template, ok := c.templates[version]
	if !ok {
		return ai.Instruction{}, fmt.Errorf("prompt compose: unsupported schema version %d", version)
	}

	return ai.Instruction{
		System:     systemMessage(template, req.BrandHint, req.SuggestedSections),
		User:       UserText(req.Prompt),
		Tier:       tierOrDefault(req.ModelTier),
		StrictJSON: !req.Stream,
	}, nil
}

func (c *Composer) composeEdit(req models.GenerationRequest) (ai.Instruction, error) {
	version, document := editTarget(req.PriorDocument)

	prior, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return ai.Instruction{}, fmt.Errorf("prompt encode prior document: %w", err)
	}

	feedback := strings.TrimSpace(req.EditFeedback)
	if feedback == "" {
		feedback = defaultFeedback
	}

	var user strings.Builder
	user.WriteString("This is the current site document:\n\n")
	user.Write(prior)
	user.WriteString("\n\nApply this change request:\n")
	user.WriteString(truncate(feedback, models.MaxPromptLength))
	user.WriteString("\n\nReturn the COMPLETE updated document as one JSON object with the same structure. ")
	user.WriteString("Do not return a diff or only the changed fields.")

	return ai.Instruction{
		System:     systemMessage(c.templates[version], req.BrandHint, req.SuggestedSections),
		User:       user.String(),
		Tier:       tierOrDefault(req.ModelTier),
		StrictJSON: true,
	}, nil
}

// editTarget picks the template matching the prior document's shape and
// the part of the document the model should rewrite. A normalized flat
// document is edited through its original flat content.
func editTarget(prior map[string]any) (int, map[string]any) {
	version, err := schema.Detect(prior)
	if err != nil {
		return 2, prior
	}
	switch version {
	case schema.VersionFlat:
		return 1, prior
	case schema.VersionBlocks:
		return 2, prior
	case schema.VersionStyled:
		return 3, prior
	case schema.VersionCurrent:
		if content, ok := prior["content"].(map[string]any); ok && content != nil {
			return 1, content
		}
		if _, ok := prior["pages"]; ok {
			return 4, prior
		}
		return 2, prior
	}
	return 4, prior
}

// UserText extracts the user's part of a combined prompt, truncates it to
// the maximum prompt length and falls back to a generic instruction.
func UserText(prompt string) string {
	text := strings.TrimSpace(prompt)

	cut, at := "", -1
	for _, marker := range userMarkers {
		if i := strings.Index(text, marker); i >= 0 && (at < 0 || i < at) {
			cut, at = marker, i
		}
	}
	if at >= 0 {
		text = strings.TrimSpace(text[at+len(cut):])
	}

	text = truncate(text, models.MaxPromptLength)
	if text == "" {
		return defaultUserText
	}
	return text
}

func systemMessage(template, brand string, sections []string) string {
	parts := []string{template}
	if b := strings.TrimSpace(brand); b != "" {
		parts = append(parts, "Suggested brand: "+b)
	}
	var named []string
	for _, s := range sections {
		if s = strings.TrimSpace(s); s != "" {
			named = append(named, s)
		}
	}
	if len(named) > 0 {
		parts = append(parts, "Suggested sections: "+strings.Join(named, ", "))
	}
	return strings.Join(parts, "\n\n")
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return strings.TrimSpace(string(r[:limit]))
}

func tierOrDefault(t models.ModelTier) models.ModelTier {
	if t == "" {
		return models.TierFast
	}
	return t
}
