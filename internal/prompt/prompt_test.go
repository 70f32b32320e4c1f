// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitegen/internal/models"
)

func newComposer(t *testing.T) *Composer {
	t.Helper()
	c, err := New()
	require.NoError(t, err)
	return c
}

func TestComposer_Versions(t *testing.T) {
	c := newComposer(t)
	assert.Equal(t, []int{1, 2, 3, 4}, c.Versions())
	assert.False(t, c.Supports(5))
	assert.False(t, c.Supports(0))
}

func TestCompose_SelectsTemplatePerVersion(t *testing.T) {
	c := newComposer(t)

	flat, err := c.Compose(models.GenerationRequest{Prompt: "Una cafetería", SchemaVersion: 1})
	require.NoError(t, err)
	assert.Contains(t, flat.System, `"menuItems"`)
	assert.NotContains(t, flat.System, `"blocks"`)

	blocks, err := c.Compose(models.GenerationRequest{Prompt: "A startup", SchemaVersion: 2})
	require.NoError(t, err)
	assert.Contains(t, blocks.System, `"blocks"`)
	assert.NotContains(t, blocks.System, "Layout addendum")

	styled, err := c.Compose(models.GenerationRequest{Prompt: "A startup", SchemaVersion: 3})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(styled.System, blocks.System))
	assert.Contains(t, styled.System, "Layout addendum")

	pages, err := c.Compose(models.GenerationRequest{Prompt: "A bakery", SchemaVersion: 4})
	require.NoError(t, err)
	assert.Contains(t, pages.System, `"pages"`)

	_, err = c.Compose(models.GenerationRequest{Prompt: "x", SchemaVersion: 9})
	assert.Error(t, err)
}

func TestCompose_DefaultsToFlatTemplate(t *testing.T) {
	c := newComposer(t)
	got, err := c.Compose(models.GenerationRequest{Prompt: "Una cafetería"})
	require.NoError(t, err)
	assert.Contains(t, got.System, `"schemaVersion": 1`)
	assert.Equal(t, models.TierFast, got.Tier)
}

func TestCompose_BrandAndSections(t *testing.T) {
	c := newComposer(t)
	got, err := c.Compose(models.GenerationRequest{
		Prompt:            "Una cafetería",
		BrandHint:         "  Café Bravíssimo ",
		SuggestedSections: []string{"Menú", " ", "Reservas"},
		SchemaVersion:     2,
		ModelTier:         models.TierElite,
		Stream:            true,
	})
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(got.System,
		"\n\nSuggested brand: Café Bravíssimo\n\nSuggested sections: Menú, Reservas"))
	assert.Equal(t, models.TierElite, got.Tier)
	assert.False(t, got.StrictJSON, "streamed generations are not constrained")

	noHints, err := c.Compose(models.GenerationRequest{Prompt: "x", SchemaVersion: 2})
	require.NoError(t, err)
	assert.NotContains(t, noHints.System, "Suggested")
	assert.True(t, noHints.StrictJSON)
}

func TestUserText(t *testing.T) {
	long := strings.Repeat("é", models.MaxPromptLength+50)

	tests := []struct {
		name, in, want string
	}{
		{"plain", "  A barbershop in Lisbon ", "A barbershop in Lisbon"},
		{"user marker", "SYSTEM: be terse\nUSER: A barbershop", "A barbershop"},
		{"legacy marker", "Instrucciones...\nUSUARIO: Una barbería", "Una barbería"},
		{"earliest marker wins", "USUARIO: first USER: second", "first USER: second"},
		{"empty after marker", "guidance USER:   ", defaultUserText},
		{"empty", "", defaultUserText},
		{"truncated by runes", long, strings.Repeat("é", models.MaxPromptLength)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UserText(tt.in))
		})
	}
}

func TestCompose_Edit(t *testing.T) {
	c := newComposer(t)

	t.Run("block document", func(t *testing.T) {
		got, err := c.Compose(models.GenerationRequest{
			IsEdit:        true,
			EditFeedback:  "Make the hero warmer",
			PriorDocument: map[string]any{"meta": map[string]any{"title": "Nimbus", "version": "2.0"}, "blocks": []any{}},
		})
		require.NoError(t, err)
		blocks, _ := c.Compose(models.GenerationRequest{Prompt: "x", SchemaVersion: 2})

		assert.Equal(t, blocks.System, got.System)
		assert.Contains(t, got.User, `"title": "Nimbus"`)
		assert.Contains(t, got.User, "Make the hero warmer")
		assert.Contains(t, got.User, "COMPLETE updated document")
		assert.True(t, got.StrictJSON)
	})

	t.Run("normalized flat document edits its content", func(t *testing.T) {
		got, err := c.Compose(models.GenerationRequest{
			IsEdit:       true,
			EditFeedback: "Cambia el eslogan",
			PriorDocument: map[string]any{
				"schemaVersion": float64(8),
				"sourceVersion": float64(1),
				"blocks":        []any{},
				"content":       map[string]any{"titulo": "Café Bravíssimo", "menuItems": []any{}},
			},
		})
		require.NoError(t, err)
		assert.Contains(t, got.System, `"schemaVersion": 1`)
		assert.NotContains(t, got.System, `"blocks"`)
		assert.Contains(t, got.User, `"titulo": "Café Bravíssimo"`)
		assert.NotContains(t, got.User, `"sourceVersion"`)
	})

	t.Run("normalized multi-page document", func(t *testing.T) {
		got, err := c.Compose(models.GenerationRequest{
			IsEdit:        true,
			PriorDocument: map[string]any{"schemaVersion": float64(8), "pages": map[string]any{}},
		})
		require.NoError(t, err)
		assert.Contains(t, got.System, `"pages"`)
		assert.Contains(t, got.User, defaultFeedback)
	})
}
