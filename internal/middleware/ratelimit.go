// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"sitegen/internal/metrics"
	"sitegen/internal/models"
)

// RateStore counts requests per client in fixed windows.
type RateStore interface {
	// Hit records one request at now and returns the client's entry
	// after the increment. A request past the window starts a new one.
	Hit(ctx context.Context, key string, now time.Time) (models.RateLimitEntry, error)
}

// MemoryRateStore keeps rate limit entries in process memory. Expired
// entries are reclaimed whenever a new window is opened.
type MemoryRateStore struct {
	mu      sync.Mutex
	entries map[string]models.RateLimitEntry
	window  time.Duration
}

// NewMemoryRateStore creates an in-memory store with the given window.
func NewMemoryRateStore(window time.Duration) *MemoryRateStore {
	return &MemoryRateStore{
		entries: make(map[string]models.RateLimitEntry),
		window:  window,
	}
}

func (s *MemoryRateStore) Hit(_ context.Context, key string, now time.Time) (models.RateLimitEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if ok && !entry.Expired(now, s.window) {
		entry.Count++
		s.entries[key] = entry
		return entry, nil
	}

	for k, e := range s.entries {
		if e.Expired(now, s.window) {
			delete(s.entries, k)
		}
	}
	entry = models.RateLimitEntry{ClientKey: key, Count: 1, WindowStart: now}
	s.entries[key] = entry
	return entry, nil
}

// Len returns the number of tracked clients.
func (s *MemoryRateStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// RateLimiter admits at most max requests per client and window.
type RateLimiter struct {
	store   RateStore
	max     int
	window  time.Duration
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewRateLimiter creates a limiter backed by store.
func NewRateLimiter(store RateStore, max int, window time.Duration, m *metrics.Metrics) *RateLimiter {
	return &RateLimiter{store: store, max: max, window: window, metrics: m, now: time.Now}
}

// Middleware rejects clients over the limit with 429. The counter is not
// decremented for rejected requests. Store failures let the request
// through.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := rl.now()
		entry, err := rl.store.Hit(r.Context(), ClientKey(r), now)
		if err != nil {
			slog.Warn("rate limit store unavailable", "error", err)
			next.ServeHTTP(w, r)
			return
		}
		if entry.Count > rl.max {
			remaining := rl.window - now.Sub(entry.WindowStart)
			w.Header().Set("Retry-After", strconv.Itoa(max(1, int(math.Ceil(remaining.Seconds())))))
			rl.metrics.Rejected("rate_limit")
			writeError(w, http.StatusTooManyRequests, MsgRateLimited)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientKey identifies the calling client, preferring the headers set by
// the edge proxy over the socket address.
func ClientKey(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
