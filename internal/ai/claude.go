// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// strictJSONSuffix is appended to the system prompt of strict calls; the
// Messages API has no response format switch.
const strictJSONSuffix = "\n\nRespond with a single JSON object and nothing else."

// claudeMaxTokens bounds one generated document.
const claudeMaxTokens = 8192

// claudeProvider implements the Provider interface using the Anthropic
// Messages API (POST /v1/messages).
type claudeProvider struct {
	config ProviderConfig
	client *http.Client
}

// newClaude creates a new Anthropic Claude provider.
func newClaude(cfg ProviderConfig) *claudeProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com"
	}
	return &claudeProvider{config: cfg, client: &http.Client{}}
}

func (p *claudeProvider) Name() string { return "claude" }

func (p *claudeProvider) request(in Instruction, stream bool) claudeRequest {
	system := in.System
	if in.StrictJSON {
		system += strictJSONSuffix
	}
	return claudeRequest{
		Model:     p.config.model(in.Tier),
		MaxTokens: claudeMaxTokens,
		System:    system,
		Stream:    stream,
		Messages:  []claudeMessage{{Role: "user", Content: in.User}},
	}
}

// post sends body and returns the response once the status is known to be
// 200. Any other status becomes an *UpstreamError.
func (p *claudeProvider) post(ctx context.Context, body claudeRequest) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("claude marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("claude request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.config.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("claude http: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, upstreamFromResponse("claude", resp)
	}
	return resp, nil
}

// Complete returns the first text content block of a non-streamed call.
func (p *claudeProvider) Complete(ctx context.Context, in Instruction) (string, error) {
	resp, err := p.post(ctx, p.request(in, false))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("claude unmarshal: %w", err)
	}
	for _, block := range result.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("claude: no text content in response")
}

// Stream starts a streamed call and rewrites Anthropic's typed events into
// chat-completion delta frames, ending with [DONE] on message_stop.
func (p *claudeProvider) Stream(ctx context.Context, in Instruction) (io.ReadCloser, error) {
	resp, err := p.post(ctx, p.request(in, true))
	if err != nil {
		return nil, err
	}

	pr, pw := io.Pipe()
	go func() {
		defer resp.Body.Close()
		pw.CloseWithError(reframeClaude(resp.Body, pw))
	}()
	return pr, nil
}

// reframeClaude copies the text deltas of an Anthropic event stream to w.
// A nil return means the stream ended, with or without message_stop.
func reframeClaude(r io.Reader, w io.Writer) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		data, ok := strings.CutPrefix(sc.Text(), "data:")
		if !ok {
			continue
		}
		event := gjson.Parse(strings.TrimSpace(data))

		switch event.Get("type").String() {
		case "content_block_delta":
			if event.Get("delta.type").String() != "text_delta" {
				continue
			}
			if _, err := w.Write(deltaFrame(event.Get("delta.text").String())); err != nil {
				return err
			}
		case "message_stop":
			_, err := w.Write(doneFrame)
			return err
		case "error":
			return fmt.Errorf("claude stream: %s", event.Get("error.message").String())
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("claude stream: %w", err)
	}
	return nil
}

// --- Anthropic Messages API types ---

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	System    string          `json:"system,omitempty"`
	Stream    bool            `json:"stream,omitempty"`
	Messages  []claudeMessage `json:"messages"`
}

type claudeContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type claudeResponse struct {
	Content []claudeContentBlock `json:"content"`
}
