// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package decode

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrIncompleteGeneration reports that no JSON object could be recovered
// from the generated text. It usually means the generation was cut short,
// so retrying is worthwhile.
var ErrIncompleteGeneration = errors.New("incomplete generation")

// IncompleteError carries the text that failed to decode.
type IncompleteError struct {
	Raw   string
	Cause error
}

func (e *IncompleteError) Error() string {
	if e.Cause == nil {
		return "decode: " + ErrIncompleteGeneration.Error()
	}
	return "decode: " + ErrIncompleteGeneration.Error() + ": " + e.Cause.Error()
}

// Is makes errors.Is(err, ErrIncompleteGeneration) hold.
func (e *IncompleteError) Is(target error) bool {
	return target == ErrIncompleteGeneration
}

func (e *IncompleteError) Unwrap() error { return e.Cause }

// StripFences removes a Markdown code fence wrapped around the text, with
// or without a language tag.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			s = s[i+1:]
		} else {
			s = strings.TrimLeft(s[3:], "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_-")
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// Recover parses the generated text into a JSON object. Fences are stripped
// first; if the result still does not parse, the span from the first '{' to
// the last '}' is tried before giving up with an *IncompleteError.
func Recover(text string) (map[string]any, error) {
	cleaned := StripFences(text)

	doc, err := parseObject(cleaned)
	if err == nil {
		return doc, nil
	}

	start := strings.IndexByte(cleaned, '{')
	end := strings.LastIndexByte(cleaned, '}')
	if start >= 0 && end > start {
		if doc, spanErr := parseObject(cleaned[start : end+1]); spanErr == nil {
			return doc, nil
		}
	}

	return nil, &IncompleteError{Raw: text, Cause: err}
}

func parseObject(s string) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(s), &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, errors.New("not a JSON object")
	}
	return doc, nil
}
