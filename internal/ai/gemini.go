// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// geminiProvider implements the Provider interface using the Gemini API
// through the genai SDK. Its native stream is re-framed as chat-completion
// events.
type geminiProvider struct {
	config ProviderConfig
	client *genai.Client
}

// newGemini creates a new Google Gemini provider.
func newGemini(cfg ProviderConfig) (*geminiProvider, error) {
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{},
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	// genai only uses the context while resolving credentials.
	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &geminiProvider{config: cfg, client: client}, nil
}

func (p *geminiProvider) Name() string { return "gemini" }

func (p *geminiProvider) generateConfig(in Instruction) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: in.System}},
		},
	}
	if in.StrictJSON {
		config.ResponseMIMEType = "application/json"
	}
	return config
}

// Complete sends a generateContent request and returns the text of the
// first candidate.
func (p *geminiProvider) Complete(ctx context.Context, in Instruction) (string, error) {
	result, err := p.client.Models.GenerateContent(ctx, p.config.model(in.Tier), genai.Text(in.User), p.generateConfig(in))
	if err != nil {
		return "", geminiError(err)
	}
	if len(result.Candidates) == 0 {
		return "", fmt.Errorf("gemini: empty response (no candidates)")
	}
	text := chunkText(result)
	if text == "" {
		return "", fmt.Errorf("gemini: no text content in response")
	}
	return text, nil
}

// Stream starts a streamed call. The first chunk is awaited before
// returning so that upstream rejections surface as errors.
func (p *geminiProvider) Stream(ctx context.Context, in Instruction) (io.ReadCloser, error) {
	chunks := p.client.Models.GenerateContentStream(ctx, p.config.model(in.Tier), genai.Text(in.User), p.generateConfig(in))
	return reframe(chunks)
}

// reframe turns a genai chunk sequence into an event stream.
func reframe(chunks iter.Seq2[*genai.GenerateContentResponse, error]) (io.ReadCloser, error) {
	next, stop := iter.Pull2(chunks)

	chunk, err, ok := next()
	if err != nil {
		stop()
		return nil, geminiError(err)
	}

	pr, pw := io.Pipe()
	go func() {
		defer stop()
		for ok {
			if text := chunkText(chunk); text != "" {
				if _, werr := pw.Write(deltaFrame(text)); werr != nil {
					return
				}
			}
			var cerr error
			chunk, cerr, ok = next()
			if cerr != nil {
				pw.CloseWithError(fmt.Errorf("gemini stream: %w", cerr))
				return
			}
		}
		if _, werr := pw.Write(doneFrame); werr != nil {
			return
		}
		pw.Close()
	}()
	return pr, nil
}

func chunkText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && !part.Thought {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

// geminiError keeps API rejections as upstream errors, re-encoded in the
// Gemini error envelope.
func geminiError(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("gemini http: %w", err)
	}
	body, _ := json.Marshal(map[string]any{"error": map[string]any{
		"code":    apiErr.Code,
		"message": apiErr.Message,
		"status":  apiErr.Status,
	}})
	return &UpstreamError{
		Provider:    "gemini",
		StatusCode:  apiErr.Code,
		Body:        body,
		ContentType: "application/json",
	}
}
