// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

var (
	// ErrTimeout is returned when the upstream did not answer in time or a
	// stream outlived its deadline.
	ErrTimeout = errors.New("upstream request timed out")

	// ErrUnavailable wraps transport failures reaching the upstream.
	ErrUnavailable = errors.New("generation service unavailable")

	// ErrNoProvider is returned when the active provider is not configured.
	ErrNoProvider = errors.New("no generation provider configured")
)

// maxErrorBody caps how much of an upstream error body is kept.
const maxErrorBody = 64 << 10

// UpstreamError is a non-success answer from the generation service. The
// body and content type are kept so they can be relayed unchanged.
type UpstreamError struct {
	Provider    string
	StatusCode  int
	Body        []byte
	ContentType string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, bytes.TrimSpace(e.Body))
}

// upstreamFromResponse reads a failed response into an *UpstreamError.
func upstreamFromResponse(provider string, resp *http.Response) *UpstreamError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}
	return &UpstreamError{
		Provider:    provider,
		StatusCode:  resp.StatusCode,
		Body:        body,
		ContentType: contentType,
	}
}

// deltaFrame encodes text as one chat-completion delta event.
func deltaFrame(text string) []byte {
	type delta struct {
		Content string `json:"content"`
	}
	type choice struct {
		Delta delta `json:"delta"`
	}
	payload, _ := json.Marshal(struct {
		Choices []choice `json:"choices"`
	}{Choices: []choice{{Delta: delta{Content: text}}}})

	frame := make([]byte, 0, len(payload)+8)
	frame = append(frame, "data: "...)
	frame = append(frame, payload...)
	return append(frame, "\n\n"...)
}

var doneFrame = []byte("data: [DONE]\n\n")
