// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/genai"
)

// ---------- Helpers ----------

// newTestServer creates an httptest.Server that responds with the given status
// code and body bytes. The caller must call Close on the returned server.
func newTestServer(t *testing.T, statusCode int, body []byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		w.Write(body)
	}))
}

// captureServer records the last request body and answers with body.
func captureServer(t *testing.T, contentType string, body []byte, captured *map[string]any, headers *http.Header) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if headers != nil {
			*headers = r.Header.Clone()
		}
		raw, _ := io.ReadAll(r.Body)
		if captured != nil {
			json.Unmarshal(raw, captured)
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	}))
}

// chatSuccessBody builds a JSON body matching the chat completions
// response format with a single choice containing the given text.
func chatSuccessBody(text string) []byte {
	b, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4o-mini",
		"choices": []any{map[string]any{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": text},
		}},
	})
	return b
}

// claudeSuccessBody builds a JSON body matching the Anthropic Messages
// response format with a single text content block.
func claudeSuccessBody(text string) []byte {
	resp := claudeResponse{
		Content: []claudeContentBlock{
			{Type: "text", Text: text},
		},
	}
	b, _ := json.Marshal(resp)
	return b
}

// geminiSuccessBody builds a JSON body matching the Gemini generateContent
// response format with a single candidate containing the given text.
func geminiSuccessBody(text string) []byte {
	b, _ := json.Marshal(map[string]any{
		"candidates": []any{map[string]any{
			"content": map[string]any{
				"role":  "model",
				"parts": []any{map[string]any{"text": text}},
			},
			"finishReason": "STOP",
		}},
	})
	return b
}

const sseBody = "data: {\"choices\":[{\"delta\":{\"content\":\"{\\\"a\\\"\"}}]}\n\n" +
	"data: {\"choices\":[{\"delta\":{\"content\":\":1}\"}}]}\n\n" +
	"data: [DONE]\n\n"

var strictInstruction = Instruction{System: "system prompt", User: "user prompt", StrictJSON: true}

// =====================================================================
// OpenAI Provider Tests
// =====================================================================

func TestOpenAIComplete_Success(t *testing.T) {
	var body map[string]any
	srv := captureServer(t, "application/json", chatSuccessBody(`{"titulo":"Hola"}`), &body, nil)
	defer srv.Close()

	p := newOpenAI(ProviderConfig{APIKey: "sk-test", Model: "gpt-4o-mini", EliteModel: "gpt-4o", BaseURL: srv.URL})

	got, err := p.Complete(context.Background(), strictInstruction)
	if err != nil {
		t.Fatalf("Complete: unexpected error: %v", err)
	}
	if got != `{"titulo":"Hola"}` {
		t.Errorf("Complete: got %q", got)
	}
	if body["model"] != "gpt-4o-mini" {
		t.Errorf("model: got %v, want gpt-4o-mini", body["model"])
	}
	format, _ := body["response_format"].(map[string]any)
	if format["type"] != "json_object" {
		t.Errorf("response_format: got %v, want json_object", body["response_format"])
	}
	messages, _ := body["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("messages: got %d, want 2", len(messages))
	}
}

func TestOpenAIComplete_EliteTierAndNoFormat(t *testing.T) {
	var body map[string]any
	srv := captureServer(t, "application/json", chatSuccessBody("ok"), &body, nil)
	defer srv.Close()

	p := newOpenAI(ProviderConfig{APIKey: "sk-test", Model: "gpt-4o-mini", EliteModel: "gpt-4o", BaseURL: srv.URL})

	if _, err := p.Complete(context.Background(), Instruction{System: "s", User: "u", Tier: "elite"}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if body["model"] != "gpt-4o" {
		t.Errorf("model: got %v, want gpt-4o", body["model"])
	}
	if _, ok := body["response_format"]; ok {
		t.Error("response_format should be absent for non-strict instructions")
	}
}

func TestOpenAIComplete_HTTPError(t *testing.T) {
	srv := newTestServer(t, http.StatusUnauthorized, []byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	defer srv.Close()

	p := newOpenAI(ProviderConfig{APIKey: "bad", Model: "gpt-4o-mini", BaseURL: srv.URL})

	_, err := p.Complete(context.Background(), strictInstruction)
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("Complete: got %v, want *UpstreamError", err)
	}
	if upstream.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode: got %d, want 401", upstream.StatusCode)
	}
	if len(upstream.Body) == 0 {
		t.Error("Body should not be empty")
	}
}

func TestOpenAIStream_RelaysEvents(t *testing.T) {
	var body map[string]any
	var headers http.Header
	srv := captureServer(t, "text/event-stream", []byte(sseBody), &body, &headers)
	defer srv.Close()

	p := newOpenAI(ProviderConfig{APIKey: "sk-test-12345", Model: "gpt-4o-mini", BaseURL: srv.URL})

	rc, err := p.Stream(context.Background(), Instruction{System: "s", User: "u", StrictJSON: true})
	if err != nil {
		t.Fatalf("Stream: unexpected error: %v", err)
	}
	defer rc.Close()

	got, _ := io.ReadAll(rc)
	if string(got) != sseBody {
		t.Errorf("stream body:\n got %q\nwant %q", got, sseBody)
	}
	if body["stream"] != true {
		t.Errorf("stream flag: got %v, want true", body["stream"])
	}
	if _, ok := body["response_format"]; ok {
		t.Error("streamed requests must not set response_format")
	}
	if auth := headers.Get("Authorization"); auth != "Bearer sk-test-12345" {
		t.Errorf("Authorization header: got %q", auth)
	}
}

func TestOpenAIStream_UpstreamErrorKeepsContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, "slow down")
	}))
	defer srv.Close()

	p := newOpenAI(ProviderConfig{APIKey: "k", Model: "m", BaseURL: srv.URL})

	_, err := p.Stream(context.Background(), Instruction{})
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("Stream: got %v, want *UpstreamError", err)
	}
	if upstream.StatusCode != http.StatusTooManyRequests {
		t.Errorf("StatusCode: got %d", upstream.StatusCode)
	}
	if string(upstream.Body) != "slow down" {
		t.Errorf("Body: got %q", upstream.Body)
	}
	if upstream.ContentType != "text/plain; charset=utf-8" {
		t.Errorf("ContentType: got %q", upstream.ContentType)
	}
}

func TestOpenAIName(t *testing.T) {
	if got := newOpenAI(ProviderConfig{APIKey: "k"}).Name(); got != "openai" {
		t.Errorf("Name: got %q", got)
	}
}

// =====================================================================
// Mistral Provider Tests
// =====================================================================

func TestMistralComplete_Success(t *testing.T) {
	var body map[string]any
	var headers http.Header
	srv := captureServer(t, "application/json", chatSuccessBody("from mistral"), &body, &headers)
	defer srv.Close()

	p := newMistral(ProviderConfig{APIKey: "ms-key", Model: "mistral-small-latest", BaseURL: srv.URL})

	got, err := p.Complete(context.Background(), strictInstruction)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "from mistral" {
		t.Errorf("Complete: got %q", got)
	}
	if headers.Get("Authorization") != "Bearer ms-key" {
		t.Errorf("Authorization header: got %q", headers.Get("Authorization"))
	}
	format, _ := body["response_format"].(map[string]any)
	if format["type"] != "json_object" {
		t.Errorf("response_format: got %v", body["response_format"])
	}
}

func TestMistralComplete_EmptyChoices(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, []byte(`{"choices":[]}`))
	defer srv.Close()

	p := newMistral(ProviderConfig{APIKey: "k", Model: "m", BaseURL: srv.URL})
	if _, err := p.Complete(context.Background(), strictInstruction); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestMistralComplete_MalformedJSON(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, []byte(`not json`))
	defer srv.Close()

	p := newMistral(ProviderConfig{APIKey: "k", Model: "m", BaseURL: srv.URL})
	_, err := p.Complete(context.Background(), strictInstruction)
	if err == nil || !strings.Contains(err.Error(), "mistral unmarshal") {
		t.Fatalf("Complete: got %v, want unmarshal error", err)
	}
}

func TestMistralStream(t *testing.T) {
	srv := captureServer(t, "text/event-stream", []byte(sseBody), nil, nil)
	defer srv.Close()

	p := newMistral(ProviderConfig{APIKey: "k", Model: "m", BaseURL: srv.URL})
	rc, err := p.Stream(context.Background(), Instruction{})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != sseBody {
		t.Errorf("stream body: got %q", got)
	}
}

func TestMistralComplete_ConnectionRefused(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, chatSuccessBody("ok"))
	srv.Close()

	p := newMistral(ProviderConfig{APIKey: "k", Model: "m", BaseURL: srv.URL})
	_, err := p.Complete(context.Background(), strictInstruction)
	if err == nil {
		t.Fatal("expected error for connection refused")
	}
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		t.Errorf("transport failure must not be an upstream answer: %v", err)
	}
}

// =====================================================================
// Claude Provider Tests
// =====================================================================

func TestClaudeComplete_VerifiesRequest(t *testing.T) {
	var body map[string]any
	var headers http.Header
	srv := captureServer(t, "application/json", claudeSuccessBody(`{"ok":true}`), &body, &headers)
	defer srv.Close()

	p := newClaude(ProviderConfig{APIKey: "claude-key", Model: "claude-sonnet-4-5", BaseURL: srv.URL})

	got, err := p.Complete(context.Background(), strictInstruction)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != `{"ok":true}` {
		t.Errorf("Complete: got %q", got)
	}
	if headers.Get("x-api-key") != "claude-key" {
		t.Errorf("x-api-key: got %q", headers.Get("x-api-key"))
	}
	if headers.Get("anthropic-version") != "2023-06-01" {
		t.Errorf("anthropic-version: got %q", headers.Get("anthropic-version"))
	}
	system, _ := body["system"].(string)
	if !strings.HasPrefix(system, "system prompt") || !strings.HasSuffix(system, strictJSONSuffix) {
		t.Errorf("system: got %q", system)
	}
}

func TestClaudeComplete_NoTextContent(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, []byte(`{"content":[{"type":"tool_use"}]}`))
	defer srv.Close()

	p := newClaude(ProviderConfig{APIKey: "k", Model: "m", BaseURL: srv.URL})
	if _, err := p.Complete(context.Background(), Instruction{}); err == nil {
		t.Fatal("expected error when no text block is present")
	}
}

func TestClaudeComplete_HTTPError(t *testing.T) {
	srv := newTestServer(t, http.StatusBadRequest, []byte(`{"type":"error","error":{"message":"bad"}}`))
	defer srv.Close()

	p := newClaude(ProviderConfig{APIKey: "k", Model: "m", BaseURL: srv.URL})
	_, err := p.Complete(context.Background(), Instruction{})
	var upstream *UpstreamError
	if !errors.As(err, &upstream) || upstream.StatusCode != http.StatusBadRequest {
		t.Fatalf("Complete: got %v, want 400 upstream error", err)
	}
	if !strings.Contains(string(upstream.Body), `"bad"`) {
		t.Errorf("Body: got %q", upstream.Body)
	}
}

// claudeEvents is an Anthropic event stream answering "{\"a\":1}" in two
// text deltas, with the surrounding bookkeeping events.
const claudeEvents = `event: message_start
data: {"type":"message_start","message":{"id":"msg_1","content":[]}}

event: content_block_start
data: {"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}

event: ping
data: {"type":"ping"}

event: content_block_delta
data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"{\"a\":"}}

event: content_block_delta
data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"1}"}}

event: content_block_stop
data: {"type":"content_block_stop","index":0}

event: message_stop
data: {"type":"message_stop"}

`

func TestClaudeStream_Reframes(t *testing.T) {
	var body map[string]any
	srv := captureServer(t, "text/event-stream", []byte(claudeEvents), &body, nil)
	defer srv.Close()

	p := newClaude(ProviderConfig{APIKey: "k", Model: "m", BaseURL: srv.URL})
	rc, err := p.Stream(context.Background(), Instruction{User: "cafe"})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	defer rc.Close()

	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := `data: {"choices":[{"delta":{"content":"{\"a\":"}}]}` + "\n\n" +
		`data: {"choices":[{"delta":{"content":"1}"}}]}` + "\n\n" +
		"data: [DONE]\n\n"
	if string(got) != want {
		t.Errorf("stream:\n got %q\nwant %q", got, want)
	}
	if body["stream"] != true {
		t.Errorf("request stream flag: got %v", body["stream"])
	}
}

func TestClaudeStream_ErrorEvent(t *testing.T) {
	events := "data: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"{\"}}\n\n" +
		"data: {\"type\":\"error\",\"error\":{\"type\":\"overloaded_error\",\"message\":\"Overloaded\"}}\n\n"
	srv := newTestServer(t, http.StatusOK, []byte(events))
	defer srv.Close()

	p := newClaude(ProviderConfig{APIKey: "k", Model: "m", BaseURL: srv.URL})
	rc, err := p.Stream(context.Background(), Instruction{})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	defer rc.Close()

	_, err = io.ReadAll(rc)
	if err == nil || !strings.Contains(err.Error(), "Overloaded") {
		t.Errorf("read: got %v, want overloaded error", err)
	}
}

func TestClaudeStream_HTTPError(t *testing.T) {
	srv := newTestServer(t, http.StatusTooManyRequests, []byte(`{"type":"error","error":{"message":"slow down"}}`))
	defer srv.Close()

	p := newClaude(ProviderConfig{APIKey: "k", Model: "m", BaseURL: srv.URL})
	_, err := p.Stream(context.Background(), Instruction{})
	var upstream *UpstreamError
	if !errors.As(err, &upstream) || upstream.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("Stream: got %v, want 429 upstream error", err)
	}
}

// =====================================================================
// Gemini Provider Tests
// =====================================================================

func TestGeminiComplete_Success(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write(geminiSuccessBody("from gemini"))
	}))
	defer srv.Close()

	p, err := newGemini(ProviderConfig{APIKey: "g-key", Model: "gemini-2.5-flash", EliteModel: "gemini-2.5-pro", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("newGemini: %v", err)
	}

	got, err := p.Complete(context.Background(), Instruction{System: "s", User: "u", Tier: "elite"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "from gemini" {
		t.Errorf("Complete: got %q", got)
	}
	if !strings.Contains(path, "gemini-2.5-pro:generateContent") {
		t.Errorf("path: got %q, want elite model generateContent", path)
	}
}

func TestGeminiComplete_HTTPError(t *testing.T) {
	srv := newTestServer(t, http.StatusBadRequest, []byte(`{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`))
	defer srv.Close()

	p, err := newGemini(ProviderConfig{APIKey: "bad", Model: "gemini-2.5-flash", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("newGemini: %v", err)
	}
	_, err = p.Complete(context.Background(), Instruction{})
	if err == nil {
		t.Fatal("expected error for HTTP 400")
	}
	var upstream *UpstreamError
	if errors.As(err, &upstream) && upstream.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode: got %d, want 400", upstream.StatusCode)
	}
}

// chunks builds a genai stream from texts, optionally failing after them.
func chunks(fail error, texts ...string) iter.Seq2[*genai.GenerateContentResponse, error] {
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		for _, text := range texts {
			resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: text}}},
			}}}
			if !yield(resp, nil) {
				return
			}
		}
		if fail != nil {
			yield(nil, fail)
		}
	}
}

func TestReframe_EmitsDeltaFrames(t *testing.T) {
	rc, err := reframe(chunks(nil, `{"a"`, ":1}"))
	if err != nil {
		t.Fatalf("reframe: %v", err)
	}
	defer rc.Close()

	got, _ := io.ReadAll(rc)
	want := string(deltaFrame(`{"a"`)) + string(deltaFrame(":1}")) + "data: [DONE]\n\n"
	if string(got) != want {
		t.Errorf("reframed stream:\n got %q\nwant %q", got, want)
	}
}

func TestReframe_FirstChunkRejection(t *testing.T) {
	_, err := reframe(chunks(genai.APIError{Code: 429, Message: "quota", Status: "RESOURCE_EXHAUSTED"}))
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("reframe: got %v, want *UpstreamError", err)
	}
	if upstream.StatusCode != 429 || !strings.Contains(string(upstream.Body), "quota") {
		t.Errorf("upstream: got %d %q", upstream.StatusCode, upstream.Body)
	}
}

func TestReframe_MidStreamFailure(t *testing.T) {
	rc, err := reframe(chunks(errors.New("connection reset"), "partial"))
	if err != nil {
		t.Fatalf("reframe: %v", err)
	}
	defer rc.Close()

	got, err := io.ReadAll(rc)
	if err == nil || !strings.Contains(err.Error(), "connection reset") {
		t.Fatalf("ReadAll: got %v, want stream error", err)
	}
	if string(got) != string(deltaFrame("partial")) {
		t.Errorf("data before failure: got %q", got)
	}
}

func TestReframe_ReaderClosedEarly(t *testing.T) {
	rc, err := reframe(chunks(nil, "a", "b", "c"))
	if err != nil {
		t.Fatalf("reframe: %v", err)
	}
	if err := rc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestDeltaFrame_EscapesContent(t *testing.T) {
	frame := string(deltaFrame("line\n\"quoted\""))
	if strings.Count(frame, "\n") != 2 {
		t.Errorf("frame must be a single data line: %q", frame)
	}
	var payload struct {
		Choices []struct {
			Delta struct {
				Content string `json:"content"`
			} `json:"delta"`
		} `json:"choices"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(frame, "data: "))), &payload); err != nil {
		t.Fatalf("frame payload: %v", err)
	}
	if payload.Choices[0].Delta.Content != "line\n\"quoted\"" {
		t.Errorf("content: got %q", payload.Choices[0].Delta.Content)
	}
}

// =====================================================================
// Registry routing over real HTTP providers
// =====================================================================

func TestClientComplete_WithRealHTTPProviders(t *testing.T) {
	openaiSrv := newTestServer(t, http.StatusOK, chatSuccessBody("openai response"))
	defer openaiSrv.Close()
	claudeSrv := newTestServer(t, http.StatusOK, claudeSuccessBody("claude response"))
	defer claudeSrv.Close()
	mistralSrv := newTestServer(t, http.StatusOK, chatSuccessBody("mistral response"))
	defer mistralSrv.Close()

	reg := NewRegistry("openai", map[string]ProviderConfig{
		"openai":  {APIKey: "ok1", Model: "gpt-4o-mini", BaseURL: openaiSrv.URL},
		"claude":  {APIKey: "ok2", Model: "claude-sonnet-4-5", BaseURL: claudeSrv.URL},
		"mistral": {APIKey: "ok4", Model: "mistral-small-latest", BaseURL: mistralSrv.URL},
	})
	client := NewClient(reg, defaultTestTimeout, defaultTestTimeout)

	for _, name := range []string{"openai", "claude", "mistral"} {
		t.Run(name, func(t *testing.T) {
			if err := reg.SetActive(name); err != nil {
				t.Fatalf("SetActive(%q): %v", name, err)
			}
			got, err := client.Complete(context.Background(), Instruction{System: "system", User: "user"})
			if err != nil {
				t.Fatalf("Complete with %s: %v", name, err)
			}
			if got != name+" response" {
				t.Errorf("Complete with %s: got %q", name, got)
			}
		})
	}
}
