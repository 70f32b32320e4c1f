// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"net/http"
	"sync"

	"sitegen/internal/metrics"
)

// InFlight allows one running generation per client. A second request
// while one is running is rejected immediately, never queued.
type InFlight struct {
	mu      sync.Mutex
	running map[string]struct{}
	metrics *metrics.Metrics
}

// NewInFlight creates an empty guard.
func NewInFlight(m *metrics.Metrics) *InFlight {
	return &InFlight{running: make(map[string]struct{}), metrics: m}
}

func (g *InFlight) acquire(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.running[key]; busy {
		return false
	}
	g.running[key] = struct{}{}
	return true
}

func (g *InFlight) release(key string) {
	g.mu.Lock()
	delete(g.running, key)
	g.mu.Unlock()
}

// Middleware holds the client's slot until the handler returns.
func (g *InFlight) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := ClientKey(r)
		if !g.acquire(key) {
			g.metrics.Rejected("in_flight")
			writeError(w, http.StatusConflict, MsgInProgress)
			return
		}
		defer g.release(key)
		next.ServeHTTP(w, r)
	})
}
