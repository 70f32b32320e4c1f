// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package decode reconstructs the generated JSON document from what the
// generation service sends back: either a server-sent event stream of
// chat-completion deltas or a single response body.
package decode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

const (
	dataPrefix   = "data:"
	doneSentinel = "[DONE]"
	deltaPath    = "choices.0.delta.content"
	readChunk    = 4096
)

// Decoder accumulates the text fragments carried by an event stream.
// Bytes may be written in chunks of any size; a line is only interpreted
// once its terminating newline has arrived, so the result does not depend
// on where the chunk boundaries fall. A Decoder is not safe for concurrent
// use; chunks must be written in arrival order.
type Decoder struct {
	buf     []byte
	text    strings.Builder
	frames  int
	skipped int
	done    bool
}

// NewDecoder returns an empty Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Write buffers p and processes every complete line it contains. The last
// incomplete line is held back until more data (or Text) arrives.
func (d *Decoder) Write(p []byte) (int, error) {
	d.buf = append(d.buf, p...)
	consumed := 0
	for {
		i := bytes.IndexByte(d.buf[consumed:], '\n')
		if i < 0 {
			break
		}
		d.line(d.buf[consumed : consumed+i])
		consumed += i + 1
	}
	if consumed > 0 {
		d.buf = append(d.buf[:0], d.buf[consumed:]...)
	}
	return len(p), nil
}

// Text flushes any held-back final line and returns the accumulated text.
func (d *Decoder) Text() string {
	if len(d.buf) > 0 {
		d.line(d.buf)
		d.buf = d.buf[:0]
	}
	return d.text.String()
}

// Frames returns the number of data frames that contributed text.
func (d *Decoder) Frames() int { return d.frames }

// Skipped returns the number of malformed data frames that were ignored.
func (d *Decoder) Skipped() int { return d.skipped }

// Done reports whether the terminal sentinel frame was seen.
func (d *Decoder) Done() bool { return d.done }

func (d *Decoder) line(raw []byte) {
	line := bytes.TrimSpace(raw)
	if len(line) == 0 || !bytes.HasPrefix(line, []byte(dataPrefix)) {
		// Blank separators, comments, event: and id: fields carry no text.
		return
	}
	if d.done {
		return
	}
	payload := bytes.TrimSpace(line[len(dataPrefix):])
	if string(payload) == doneSentinel {
		d.done = true
		return
	}
	if !gjson.ValidBytes(payload) {
		d.skipped++
		slog.Warn("delta frame skipped", "reason", "invalid json", "frame", snippet(string(payload)))
		return
	}
	if msg := gjson.GetBytes(payload, "error.message"); msg.Exists() {
		d.skipped++
		slog.Warn("delta frame skipped", "reason", "upstream error frame", "message", msg.String())
		return
	}
	content := gjson.GetBytes(payload, deltaPath)
	if !content.Exists() {
		// Role-only and finish_reason frames have no content.
		return
	}
	d.frames++
	d.text.WriteString(content.String())
}

// FromStream decodes an event stream read from r. Read errors are returned
// wrapped, so callers can still match timeout or cancellation causes.
func FromStream(ctx context.Context, r io.Reader) (string, error) {
	d := NewDecoder()
	chunk := make([]byte, readChunk)
	for {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("decode stream: %w", err)
		}
		n, err := r.Read(chunk)
		if n > 0 {
			d.Write(chunk[:n])
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("decode stream: %w", err)
		}
	}
	if d.Skipped() > 0 {
		slog.Warn("stream decoded with skipped frames", "skipped", d.Skipped(), "frames", d.Frames())
	}
	return d.Text(), nil
}

// FromEvents decodes a complete event stream held in memory.
func FromEvents(stream string) (string, int) {
	d := NewDecoder()
	d.Write([]byte(stream))
	text := d.Text()
	return text, d.Skipped()
}

// snippet shortens s for logging without splitting a UTF-8 sequence.
func snippet(s string) string {
	const limit = 120
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
