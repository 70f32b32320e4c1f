// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "time"

// ModelTier selects between the cheap default model and the stronger one.
type ModelTier string

const (
	TierFast  ModelTier = "fast"
	TierElite ModelTier = "elite"
)

// Request limits enforced before any generation call.
const (
	MaxPromptLength  = 16000
	MaxBrandLength   = 200
	MaxSections      = 20
	MaxSectionLength = 800
)

// GenerationRequest is the request-scoped input of one generation.
// Prompt is required unless IsEdit is set and PriorDocument is present.
type GenerationRequest struct {
	Prompt            string
	BrandHint         string
	SuggestedSections []string
	SchemaVersion     int
	ModelTier         ModelTier
	IsEdit            bool
	PriorDocument     map[string]any
	EditFeedback      string
	Stream            bool
}

// RateLimitEntry is the fixed-window counter for a single client.
type RateLimitEntry struct {
	ClientKey   string
	Count       int
	WindowStart time.Time
}

// Expired reports whether the entry's window has elapsed at now.
func (e RateLimitEntry) Expired(now time.Time, window time.Duration) bool {
	return now.Sub(e.WindowStart) >= window
}
