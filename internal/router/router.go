// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up all HTTP routes and middleware chains of the
// site generator. Generation endpoints sit behind the admission gate
// (origin check, rate limit, one in-flight generation per client);
// rendered sites are public.
package router

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sitegen/internal/handlers"
	"sitegen/internal/metrics"
	"sitegen/internal/middleware"
	"sitegen/web"
)

// Gate bundles the admission middleware of the generation endpoints.
type Gate struct {
	Origins  *middleware.OriginPolicy
	Limiter  *middleware.RateLimiter
	InFlight *middleware.InFlight
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up. m may be nil, in which case /metrics is not
// mounted.
func New(gate Gate, generation *handlers.Generation, sites *handlers.Sites, m *metrics.Metrics) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)

	r.Get("/health", healthHandler)
	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	static, _ := fs.Sub(web.StaticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(static)))

	// Generation: origin gate first so preflights never count against
	// the rate limit.
	r.Group(func(r chi.Router) {
		r.Use(middleware.CORS(gate.Origins, m))

		r.Options("/generate", noContent)
		r.Options("/documents", noContent)

		r.With(gate.Limiter.Middleware, gate.InFlight.Middleware).Post("/generate", generation.Generate)
		r.With(gate.Limiter.Middleware).Post("/documents", generation.Ingest)
	})

	// Rendered sites.
	r.Route("/sites/{id}", func(r chi.Router) {
		r.Get("/", sites.Page)
		r.Get("/pages/{page}", sites.Page)
		r.Get("/document", sites.Export)
		r.Get("/qr.png", sites.QR)
		r.Get("/cart", sites.Cart)
		r.Post("/actions/{actionID}", sites.Action)
		r.Post("/publish", sites.Publish)
	})

	return r
}

// noContent is never reached for allowed preflights, which CORS answers
// itself; it only gives chi a route for the OPTIONS method.
func noContent(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
