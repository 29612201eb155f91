package metrics

import (
	"net/http/httptest"
	"testing"
)

func TestHandlerServesPrometheusFormat(t *testing.T) {
	DocumentsProcessed.Add(0) // ensure the collector is registered before scraping

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("expected 200 from the metrics handler, got %d", w.Code)
	}
	if w.Body.Len() == 0 {
		t.Errorf("expected a non-empty metrics body")
	}
}

func TestCountersAreIncrementable(t *testing.T) {
	// Smoke test: incrementing every collector must not panic, confirming
	// they were registered with distinct, valid metric names.
	DocumentsProcessed.Inc()
	FieldResults.WithLabelValues("matched").Inc()
	ZoneResults.WithLabelValues("marked").Inc()
	OCRInvocations.Inc()
	EnhancementRetries.Inc()
	VerificationLatency.Observe(1.5)
}
