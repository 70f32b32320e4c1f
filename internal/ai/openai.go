// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// openAIProvider implements the Provider interface using the OpenAI chat
// completions API. Single-shot calls go through the official SDK; streams
// are relayed byte for byte from the HTTP response.
type openAIProvider struct {
	chat *chatCompat
	sdk  *openai.Client
}

// newOpenAI creates a new OpenAI provider.
func newOpenAI(cfg ProviderConfig) *openAIProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	chat := newChatCompat("openai", cfg)
	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithHTTPClient(chat.client),
		option.WithMaxRetries(0),
	)
	return &openAIProvider{chat: chat, sdk: &client}
}

func (p *openAIProvider) Name() string { return "openai" }

// Complete sends a chat completion request and returns the assistant's
// text. Strict instructions request a JSON object response format.
func (p *openAIProvider) Complete(ctx context.Context, in Instruction) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.chat.config.model(in.Tier)),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(in.System),
			openai.UserMessage(in.User),
		},
	}
	if in.StrictJSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	completion, err := p.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", sdkUpstreamError(apiErr)
		}
		return "", fmt.Errorf("openai http: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("openai: empty response (no choices)")
	}
	return completion.Choices[0].Message.Content, nil
}

// Stream relays the upstream event stream unchanged.
func (p *openAIProvider) Stream(ctx context.Context, in Instruction) (io.ReadCloser, error) {
	return p.chat.stream(ctx, in)
}

func sdkUpstreamError(apiErr *openai.Error) *UpstreamError {
	ue := &UpstreamError{
		Provider:    "openai",
		StatusCode:  apiErr.StatusCode,
		Body:        []byte(apiErr.RawJSON()),
		ContentType: "application/json",
	}
	if apiErr.Response != nil {
		if ct := apiErr.Response.Header.Get("Content-Type"); ct != "" {
			ue.ContentType = ct
		}
	}
	if len(ue.Body) == 0 {
		ue.Body = []byte(apiErr.Error())
	}
	return ue
}

// chatCompat speaks the chat completions wire format over plain HTTP.
// Shared between OpenAI and Mistral (same API format).
type chatCompat struct {
	name   string
	config ProviderConfig
	client *http.Client
}

func newChatCompat(name string, cfg ProviderConfig) *chatCompat {
	// Deadlines come from the request context; a client timeout would cut
	// long streams.
	return &chatCompat{name: name, config: cfg, client: &http.Client{}}
}

func (c *chatCompat) request(in Instruction, stream bool) chatRequest {
	body := chatRequest{
		Model: c.config.model(in.Tier),
		Messages: []chatMessage{
			{Role: "system", Content: in.System},
			{Role: "user", Content: in.User},
		},
		Stream: stream,
	}
	if in.StrictJSON && !stream {
		body.ResponseFormat = &chatResponseFormat{Type: "json_object"}
	}
	return body
}

// post performs the HTTP call to the chat completions endpoint. A non-200
// answer is returned as *UpstreamError with the response already drained.
func (c *chatCompat) post(ctx context.Context, body chatRequest) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%s marshal: %w", c.name, err)
	}

	url := c.config.BaseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", c.name, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	if body.Stream {
		req.Header.Set("Accept", "text/event-stream")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s http: %w", c.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, upstreamFromResponse(c.name, resp)
	}
	return resp, nil
}

func (c *chatCompat) complete(ctx context.Context, in Instruction) (string, error) {
	resp, err := c.post(ctx, c.request(in, false))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%s unmarshal: %w", c.name, err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("%s: empty response (no choices)", c.name)
	}
	return result.Choices[0].Message.Content, nil
}

func (c *chatCompat) stream(ctx context.Context, in Instruction) (io.ReadCloser, error) {
	resp, err := c.post(ctx, c.request(in, true))
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// --- Chat completions wire types ---

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string              `json:"model"`
	Messages       []chatMessage       `json:"messages"`
	Stream         bool                `json:"stream,omitempty"`
	ResponseFormat *chatResponseFormat `json:"response_format,omitempty"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}
