// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"context"
	"io"
)

// mistralProvider implements the Provider interface using Mistral's
// chat completions API, which is OpenAI-compatible.
type mistralProvider struct {
	chat *chatCompat
}

// newMistral creates a new Mistral provider. Mistral uses an
// OpenAI-compatible API at a different base URL.
func newMistral(cfg ProviderConfig) *mistralProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.mistral.ai/v1"
	}
	return &mistralProvider{chat: newChatCompat("mistral", cfg)}
}

func (p *mistralProvider) Name() string { return "mistral" }

func (p *mistralProvider) Complete(ctx context.Context, in Instruction) (string, error) {
	return p.chat.complete(ctx, in)
}

func (p *mistralProvider) Stream(ctx context.Context, in Instruction) (io.ReadCloser, error) {
	return p.chat.stream(ctx, in)
}
