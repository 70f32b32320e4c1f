// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
)

// Recoverer catches panics in downstream handlers, logs the stack trace,
// and answers 500 with the JSON error payload. A response that was already
// committed, such as a relayed event stream, is aborted instead.
// http.ErrAbortHandler is re-raised as is.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			slog.Error("panic recovered",
				"error", rec,
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", RequestIDFrom(r.Context()),
				"committed", wrapped.written,
				"stack", string(debug.Stack()),
			)
			if wrapped.written {
				panic(http.ErrAbortHandler)
			}
			writeError(w, http.StatusInternalServerError, MsgInternal)
		}()

		next.ServeHTTP(wrapped, r)
	})
}
