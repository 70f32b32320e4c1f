// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"encoding/json"
	"net/http"
)

// Rejection messages written by the admission middleware.
const (
	MsgOriginNotAllowed = "Origin not allowed"
	MsgRateLimited      = "Rate limit exceeded. Try again soon."
	MsgInProgress       = "Generation already in progress"
	MsgInternal         = "Internal server error"
)

// writeError writes the {error} payload every rejection uses.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
