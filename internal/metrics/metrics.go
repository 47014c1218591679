// Package metrics exposes Prometheus instrumentation for the ingestion
// pipeline. Registered on the default registry and served at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IngestAttempts counts finished ingestion attempts by source and outcome.
	IngestAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "channelguide_ingest_attempts_total",
		Help: "Finished ingestion attempts by source (playlist, provider) and outcome (ready, timeout, unreachable, http_error, invalid_content, auth_error, cancelled)",
	}, []string{"source", "outcome"})

	// IngestDuration observes end-to-end attempt duration per source.
	IngestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "channelguide_ingest_duration_seconds",
		Help:    "End-to-end ingestion attempt duration",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	}, []string{"source"})

	// ChannelsLoaded is the committed channel count.
	ChannelsLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "channelguide_channels_loaded",
		Help: "Number of channels in the committed guide",
	})

	// PersistFailures counts best-effort cache writes that failed.
	PersistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "channelguide_persist_failures_total",
		Help: "Background cache persistence failures (non-fatal)",
	})
)

// RecordAttempt records one finished attempt.
func RecordAttempt(source, outcome string, seconds float64) {
	IngestAttempts.WithLabelValues(source, outcome).Inc()
	IngestDuration.WithLabelValues(source).Observe(seconds)
}
