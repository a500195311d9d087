package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"updatestracker/internal/domain"
)

func TestObserveExtraction(t *testing.T) {
	m := New()
	m.ObserveExtraction(domain.MethodGenerated, "", 2*time.Second)
	m.ObserveExtraction(domain.MethodRuleBased, "timeout", 90*time.Second)
	m.ObserveExtraction(domain.MethodRuleBased, "disabled", 0)

	if got := testutil.ToFloat64(m.Extractions.WithLabelValues("rule-based")); got != 2 {
		t.Fatalf("rule-based extractions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Fallbacks.WithLabelValues("timeout")); got != 1 {
		t.Fatalf("timeout fallbacks = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.Fallbacks); got != 1 {
		t.Fatalf("disabled extractions must not count as fallbacks, got %d series", got)
	}
	if got := testutil.CollectAndCount(m.GenerationDuration); got != 1 {
		t.Fatalf("expected histogram to be collected, got %d", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveAttempt("huggingface", "ok")
	m.ObserveCommit()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`updatestracker_generation_attempts_total{outcome="ok",provider="huggingface"} 1`,
		"updatestracker_reports_committed_total 1",
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}

func TestIndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.ObserveCommit()
	if got := testutil.ToFloat64(b.ReportsCommitted); got != 0 {
		t.Fatalf("registries share state: %v", got)
	}
}
