// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package ai talks to the generation service. Every provider (OpenAI,
// Gemini, Claude, Mistral) implements the Provider interface, the Registry
// selects the active one by name and the Client bounds each call with the
// upstream timeouts.
//
// Streams returned by a provider are always chat-completion shaped
// server-sent events, whatever the provider speaks natively:
//
//	data: {"choices":[{"delta":{"content":"..."}}]}
//	data: [DONE]
package ai

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"sitegen/internal/models"
)

// Instruction is one composed generation call.
type Instruction struct {
	System string
	User   string
	Tier   models.ModelTier

	// StrictJSON asks the provider for a single JSON object when it
	// supports a response format switch.
	StrictJSON bool
}

// Provider defines the interface that all AI providers must implement.
type Provider interface {
	// Name returns the provider identifier (e.g., "openai", "gemini").
	Name() string

	// Complete returns the whole generated text of a single-shot call.
	Complete(ctx context.Context, in Instruction) (string, error)

	// Stream starts a streamed call and returns its event stream once the
	// upstream has answered. ctx bounds the whole stream.
	Stream(ctx context.Context, in Instruction) (io.ReadCloser, error)
}

// ProviderConfig holds the credentials and settings for a single provider.
type ProviderConfig struct {
	APIKey     string
	Model      string
	EliteModel string
	BaseURL    string
}

// model picks the model for a tier. The elite tier falls back to the
// default model when no elite model is configured.
func (c ProviderConfig) model(tier models.ModelTier) string {
	if tier == models.TierElite && c.EliteModel != "" {
		return c.EliteModel
	}
	return c.Model
}

// Registry manages available AI providers and selects the active one.
// All methods are safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	active    string
}

// NewRegistry creates a registry and initialises providers for every config
// that has a non-empty API key. Providers without keys are skipped.
func NewRegistry(active string, configs map[string]ProviderConfig) *Registry {
	r := &Registry{
		providers: make(map[string]Provider),
		active:    active,
	}

	for name, cfg := range configs {
		if cfg.APIKey == "" {
			continue
		}
		switch name {
		case "openai":
			r.providers[name] = newOpenAI(cfg)
		case "gemini":
			p, err := newGemini(cfg)
			if err != nil {
				slog.Warn("provider skipped", "provider", name, "error", err)
				continue
			}
			r.providers[name] = p
		case "claude":
			r.providers[name] = newClaude(cfg)
		case "mistral":
			r.providers[name] = newMistral(cfg)
		}
	}
	return r
}

// Active returns the currently active provider.
func (r *Registry) Active() (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[r.active]
	if !ok {
		return nil, fmt.Errorf("ai: %w for %q", ErrNoProvider, r.active)
	}
	return p, nil
}

// SetActive switches the active provider at runtime. Returns an error if
// the named provider has no API key configured.
func (r *Registry) SetActive(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.providers[name]; !ok {
		return fmt.Errorf("ai: provider %q is not available (no API key?)", name)
	}
	r.active = name
	return nil
}

// ActiveName returns the name of the currently active provider.
func (r *Registry) ActiveName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.active
}

// Available returns the names of all configured providers, sorted.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Sorted(maps.Keys(r.providers))
}

// Register adds or replaces a provider in the registry.
func (r *Registry) Register(name string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = p
}

// HasProvider checks whether a named provider is configured and available.
func (r *Registry) HasProvider(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.providers[name]
	return ok
}
