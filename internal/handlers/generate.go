// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"sitegen/internal/ai"
	"sitegen/internal/decode"
	"sitegen/internal/metrics"
	"sitegen/internal/middleware"
	"sitegen/internal/models"
	"sitegen/internal/prompt"
	"sitegen/internal/schema"
	"sitegen/internal/store"
)

// Generation modes recorded in metrics.
const (
	modeStream = "stream"
	modeSingle = "single"
	modeIngest = "ingest"
)

// streamChunk is the read size of the upstream relay loop.
const streamChunk = 4096

// maxRawEcho caps the generated text echoed back in a 422 response.
const maxRawEcho = 2000

// Generation groups the endpoints that produce documents: the generation
// proxy and the ingestion of client-collected generations.
type Generation struct {
	composer   *prompt.Composer
	client     *ai.Client
	normalizer *schema.Normalizer
	documents  store.Documents
	metrics    *metrics.Metrics
	includeRaw bool
}

// NewGeneration creates the generation handler group. m may be nil.
// includeRaw echoes rejected generated text in 422 responses; it is meant
// for development only.
func NewGeneration(composer *prompt.Composer, client *ai.Client, normalizer *schema.Normalizer, documents store.Documents, m *metrics.Metrics, includeRaw bool) *Generation {
	return &Generation{
		composer:   composer,
		client:     client,
		normalizer: normalizer,
		documents:  documents,
		metrics:    m,
		includeRaw: includeRaw,
	}
}

// createdResponse is returned when a document was stored.
type createdResponse struct {
	ID       uuid.UUID            `json:"id"`
	Document *models.SiteDocument `json:"document"`
}

// Generate handles POST /generate. Streaming requests relay the upstream
// event stream unchanged; single-shot requests are decoded, normalized and
// stored before the document is returned.
func (g *Generation) Generate(w http.ResponseWriter, r *http.Request) {
	var body generateBody
	if !decodeBody(w, r, &body) {
		return
	}

	req, details := validateGenerate(body, g.composer.Versions())
	if len(details) > 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgInvalidPayload, Details: details})
		return
	}

	in, err := g.composer.Compose(req)
	if err != nil {
		slog.Error("compose instruction failed", "error", err)
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}

	slog.Info("generation started",
		"request_id", middleware.RequestIDFrom(r.Context()),
		"version", req.SchemaVersion,
		"tier", in.Tier,
		"edit", req.IsEdit,
		"stream", req.Stream,
	)

	if req.Stream {
		g.relay(w, r, in)
		return
	}
	g.single(w, r, req, in)
}

// relay copies the upstream event stream to the client, flushing after
// every chunk. A decoder watches the frames for the skipped-frame metric.
// A stream that breaks after the headers were sent ends with an error frame
// and an aborted connection, never with a clean end of body.
func (g *Generation) relay(w http.ResponseWriter, r *http.Request, in ai.Instruction) {
	start := time.Now()
	upstream, err := g.client.Stream(r.Context(), in)
	if err != nil {
		g.fail(w, modeStream, start, err, "")
		return
	}
	defer upstream.Close()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-store")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	dec := decode.NewDecoder()
	buf := make([]byte, streamChunk)
	outcome := "ok"
	var streamErr error
	for {
		n, readErr := upstream.Read(buf)
		if n > 0 {
			dec.Write(buf[:n])
			if _, err := w.Write(buf[:n]); err != nil {
				outcome = "client_gone"
				break
			}
			if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
				outcome = "client_gone"
				break
			}
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			outcome = outcomeOf(readErr)
			streamErr = readErr
			slog.Warn("generation stream interrupted", "error", readErr, "frames", dec.Frames())
			break
		}
	}

	dec.Text()
	g.metrics.SkippedFrames(dec.Skipped())
	g.metrics.Generation(modeStream, outcome, time.Since(start))
	slog.Info("generation stream finished", "outcome", outcome, "frames", dec.Frames(), "done", dec.Done())

	if streamErr == nil || r.Context().Err() != nil {
		return
	}
	w.Write(errorFrame(streamErr))
	rc.Flush()
	panic(http.ErrAbortHandler)
}

// errorFrame is the terminal event sent when a relayed stream breaks.
func errorFrame(err error) []byte {
	message, kind := msgUnavailable, "unavailable"
	if errors.Is(err, ai.ErrTimeout) {
		message, kind = msgTimeout, "timeout"
	}
	payload, _ := json.Marshal(map[string]any{
		"error": map[string]string{"message": message, "type": kind},
	})
	frame := make([]byte, 0, len(payload)+8)
	frame = append(frame, "data: "...)
	frame = append(frame, payload...)
	return append(frame, "\n\n"...)
}

// single runs a single-shot generation through the whole pipeline.
func (g *Generation) single(w http.ResponseWriter, r *http.Request, req models.GenerationRequest, in ai.Instruction) {
	start := time.Now()
	text, err := g.client.Complete(r.Context(), in)
	if err != nil {
		g.fail(w, modeSingle, start, err, "")
		return
	}

	description := req.Prompt
	if description == "" {
		description = req.EditFeedback
	}
	g.store(w, r, modeSingle, start, text, description)
}

// Ingest handles POST /documents: a generation the client collected itself
// (an event stream or plain text) is decoded, normalized and stored.
func (g *Generation) Ingest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var body documentBody
	if !decodeBody(w, r, &body) {
		return
	}
	if details := validateDocument(&body); len(details) > 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgInvalidPayload, Details: details})
		return
	}

	text := body.Raw
	if body.Format == "sse" {
		var skipped int
		text, skipped = decode.FromEvents(body.Raw)
		g.metrics.SkippedFrames(skipped)
	}
	g.store(w, r, modeIngest, start, text, strings.TrimSpace(body.Prompt))
}

// store recovers, normalizes and persists a generated text, answering 201
// with the stored document.
func (g *Generation) store(w http.ResponseWriter, r *http.Request, mode string, start time.Time, text, description string) {
	raw, err := decode.Recover(text)
	if err != nil {
		g.fail(w, mode, start, err, text)
		return
	}

	doc, err := g.normalizer.Normalize(raw, description)
	if err != nil {
		g.fail(w, mode, start, err, decode.StripFences(text))
		return
	}

	id, err := g.documents.Create(r.Context(), doc, description)
	if err != nil {
		g.fail(w, mode, start, err, "")
		return
	}

	g.metrics.Generation(mode, "ok", time.Since(start))
	slog.Info("document stored", "id", id, "mode", mode, "source_version", doc.SourceVersion)
	writeJSON(w, http.StatusCreated, createdResponse{ID: id, Document: doc})
}

// fail maps a pipeline error onto its response. Upstream answers are
// relayed with their own status, body and content type.
func (g *Generation) fail(w http.ResponseWriter, mode string, start time.Time, err error, raw string) {
	outcome := outcomeOf(err)
	g.metrics.Generation(mode, outcome, time.Since(start))

	var upstream *ai.UpstreamError
	switch {
	case errors.As(err, &upstream):
		slog.Warn("generation rejected upstream", "provider", upstream.Provider, "status", upstream.StatusCode)
		if len(upstream.Body) == 0 {
			writeJSON(w, upstream.StatusCode, errorResponse{Error: msgUpstream})
			return
		}
		ct := upstream.ContentType
		if ct == "" {
			ct = "application/json"
		}
		w.Header().Set("Content-Type", ct)
		w.WriteHeader(upstream.StatusCode)
		w.Write(upstream.Body)

	case errors.Is(err, ai.ErrTimeout):
		slog.Warn("generation timed out", "mode", mode)
		writeError(w, http.StatusGatewayTimeout, msgTimeout)

	case errors.Is(err, ai.ErrNoProvider):
		slog.Error("generation provider missing", "error", err)
		writeError(w, http.StatusInternalServerError, msgNoProvider)

	case errors.Is(err, ai.ErrUnavailable):
		slog.Error("generation service unreachable", "error", err)
		writeError(w, http.StatusBadGateway, msgUnavailable)

	case errors.Is(err, decode.ErrIncompleteGeneration):
		slog.Warn("generation incomplete", "mode", mode, "error", err)
		slog.Debug("incomplete generation text", "mode", mode, "raw", raw)
		writeJSON(w, http.StatusBadGateway, errorResponse{
			Error:   msgIncomplete,
			Details: "no JSON object could be recovered from the generated text",
			Raw:     g.echo(raw),
		})

	case errors.Is(err, schema.ErrStructure):
		slog.Warn("generated document rejected", "mode", mode, "error", err)
		slog.Debug("rejected generation text", "mode", mode, "raw", raw)
		details := err.Error()
		var verr *schema.ValidationError
		if errors.As(err, &verr) {
			details = strings.Join(verr.Problems, "; ")
		}
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: msgIncompatible, Details: details, Raw: g.echo(raw)})

	case errors.Is(err, context.Canceled):
		slog.Info("generation canceled by client", "mode", mode)

	default:
		slog.Error("generation failed", "mode", mode, "error", err)
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
}

// echo is the part of a rejected text returned to the client.
func (g *Generation) echo(raw string) string {
	if !g.includeRaw {
		return ""
	}
	return truncateRunes(raw, maxRawEcho)
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// outcomeOf names the metrics outcome of an error.
func outcomeOf(err error) string {
	var upstream *ai.UpstreamError
	switch {
	case errors.As(err, &upstream):
		return "upstream_error"
	case errors.Is(err, ai.ErrTimeout):
		return "timeout"
	case errors.Is(err, ai.ErrUnavailable), errors.Is(err, ai.ErrNoProvider):
		return "unavailable"
	case errors.Is(err, decode.ErrIncompleteGeneration):
		return "incomplete"
	case errors.Is(err, schema.ErrStructure):
		return "schema_error"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}
	return "error"
}
