// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecord(t *testing.T) {
	m := New()

	m.Generation("stream", OutcomeOK, 2*time.Second)
	m.Generation("stream", OutcomeOK, time.Second)
	m.Generation("single", OutcomeTimeout, 28*time.Second)
	m.Rejected("rate_limit")
	m.SkippedFrames(3)
	m.SkippedFrames(0)
	m.BlockRendered("hero")

	if got := testutil.ToFloat64(m.generations.WithLabelValues("stream", OutcomeOK)); got != 2 {
		t.Errorf("stream ok generations: got %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.rejections.WithLabelValues("rate_limit")); got != 1 {
		t.Errorf("rate_limit rejections: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.skippedFrames); got != 3 {
		t.Errorf("skipped frames: got %v, want 3", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Generation("stream", OutcomeOK, time.Second)
	m.Rejected("origin")
	m.SkippedFrames(1)
	m.BlockRendered("hero")
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.BlockRendered("navbar")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `sitegen_blocks_rendered_total{type="navbar"} 1`) {
		t.Errorf("metrics output missing rendered block counter:\n%s", body)
	}
}
