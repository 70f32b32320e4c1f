// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers implements the HTTP endpoints: generation, document
// ingestion and the rendered sites. Every error response is a JSON object
// of the form {"error": "...", "details": ...}.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
)

// maxBodySize caps every JSON request body.
const maxBodySize = 1 << 20

// Error messages shared by several handlers.
const (
	msgInvalidJSON     = "Invalid JSON body"
	msgInvalidPayload  = "Invalid payload"
	msgBodyTooLarge    = "Request body too large"
	msgSiteNotFound    = "Site not found"
	msgPageNotFound    = "Page not found"
	msgInternal        = "Internal server error"
	msgTimeout         = "Upstream request timed out"
	msgUnavailable     = "Failed to contact generation service"
	msgNoProvider      = "Generation provider is not configured"
	msgUpstream        = "Generation service error"
	msgIncomplete      = "Incomplete generation"
	msgIncompatible    = "Incompatible document structure"
	msgStorageDisabled = "Publishing is not configured"
)

// errorResponse is the body of every non-2xx JSON response.
type errorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
	Raw     string `json:"raw,omitempty"`
}

// writeJSON sends a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// decodeBody reads a size-limited JSON body into dst. On failure it writes
// the error response and returns false.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
		return false
	}
	writeError(w, http.StatusBadRequest, msgInvalidJSON)
	return false
}
