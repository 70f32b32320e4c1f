// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"sitegen/internal/metrics"
)

// OriginPolicy decides which browser origins may call the API.
type OriginPolicy struct {
	allowed  map[string]struct{}
	suffixes []string
	primary  string
}

// NewOriginPolicy builds a policy from an explicit allow list, trusted
// host suffixes (".netlify.app") and the primary production origin.
func NewOriginPolicy(allowed, trustedSuffixes []string, primary string) *OriginPolicy {
	p := &OriginPolicy{
		allowed: make(map[string]struct{}, len(allowed)),
		primary: normalizeOrigin(primary),
	}
	for _, o := range allowed {
		if o = normalizeOrigin(o); o != "" {
			p.allowed[o] = struct{}{}
		}
	}
	for _, s := range trustedSuffixes {
		s = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))
		if s != "" {
			p.suffixes = append(p.suffixes, s)
		}
	}
	return p
}

func normalizeOrigin(o string) string {
	return strings.TrimSuffix(strings.TrimSpace(o), "/")
}

// Allow reports whether origin may call the API. Requests without an
// Origin header are not browser cross-origin calls and are allowed.
func (p *OriginPolicy) Allow(origin string) bool {
	if origin == "" {
		return true
	}
	if _, ok := p.allowed[origin]; ok {
		return true
	}

	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "localhost" || strings.HasSuffix(host, ".localhost") || host == "127.0.0.1" {
		return true
	}
	if u.Scheme != "https" {
		return false
	}
	for _, s := range p.suffixes {
		if host == s || strings.HasSuffix(host, "."+s) {
			return true
		}
	}
	return p.primary != "" && origin == p.primary
}

// CORS rejects disallowed origins with 403 and answers preflight requests
// without reaching the handler.
func CORS(policy *OriginPolicy, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if !policy.Allow(origin) {
				m.Rejected("origin")
				writeError(w, http.StatusForbidden, MsgOriginNotAllowed)
				return
			}

			h := w.Header()
			if origin != "" {
				h.Set("Access-Control-Allow-Origin", origin)
			}
			h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "content-type, authorization")
			h.Set("Access-Control-Max-Age", "86400")
			h.Add("Vary", "Origin")

			if r.Method == http.MethodOptions {
				if r.Header.Get("Access-Control-Request-Method") != "" &&
					r.Header.Get("Access-Control-Request-Headers") != "" {
					w.WriteHeader(http.StatusNoContent)
				} else {
					w.WriteHeader(http.StatusOK)
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
