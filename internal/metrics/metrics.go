// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package metrics holds the Prometheus collectors of the gateway. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Generation outcomes.
const (
	OutcomeOK         = "ok"
	OutcomeTimeout    = "timeout"
	OutcomeUpstream   = "upstream_error"
	OutcomeFailed     = "failed"
	OutcomeIncomplete = "incomplete"
	OutcomeInvalid    = "invalid_document"
)

// Metrics groups the collectors registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	generations       *prometheus.CounterVec
	generationSeconds *prometheus.HistogramVec
	rejections        *prometheus.CounterVec
	skippedFrames     prometheus.Counter
	blocksRendered    *prometheus.CounterVec
}

// New creates the collectors on a dedicated registry, together with the
// Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		generations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitegen_generations_total",
				Help: "Total number of generation calls by mode and outcome",
			},
			[]string{"mode", "outcome"},
		),
		generationSeconds: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sitegen_generation_duration_seconds",
				Help:    "Duration of generation calls in seconds",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
			},
			[]string{"mode"},
		),
		rejections: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitegen_admission_rejections_total",
				Help: "Total number of requests rejected before generation",
			},
			[]string{"reason"},
		),
		skippedFrames: f.NewCounter(prometheus.CounterOpts{
			Name: "sitegen_decode_skipped_frames_total",
			Help: "Total number of malformed delta frames skipped while decoding",
		}),
		blocksRendered: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitegen_blocks_rendered_total",
				Help: "Total number of blocks rendered by block type",
			},
			[]string{"type"},
		),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Generation records one finished generation call.
func (m *Metrics) Generation(mode, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(mode, outcome).Inc()
	m.generationSeconds.WithLabelValues(mode).Observe(d.Seconds())
}

// Rejected records a request turned away by admission control.
func (m *Metrics) Rejected(reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(reason).Inc()
}

// SkippedFrames records malformed frames dropped by the decoder.
func (m *Metrics) SkippedFrames(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.skippedFrames.Add(float64(n))
}

// BlockRendered records one rendered block.
func (m *Metrics) BlockRendered(blockType string) {
	if m == nil {
		return
	}
	m.blocksRendered.WithLabelValues(blockType).Inc()
}
