package export

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"perfguard/internal/metrics"
	"perfguard/internal/regression"
)

func TestRecordSample(t *testing.T) {
	e := NewExporter()

	e.RecordSample(metrics.Sample{
		TestName:        "query",
		DurationSeconds: 1.5,
		MemoryPeak:      4096,
		CPUPercent:      12.5,
	})
	e.RecordSample(metrics.Sample{
		TestName:        "query",
		DurationSeconds: 2.0,
		MemoryPeak:      8192,
		CPUPercent:      15.0,
	})

	if got := testutil.ToFloat64(e.duration.WithLabelValues("query")); got != 2.0 {
		t.Errorf("duration gauge = %v, want latest value 2.0", got)
	}
	if got := testutil.ToFloat64(e.memoryPeak.WithLabelValues("query")); got != 8192 {
		t.Errorf("memory gauge = %v, want 8192", got)
	}
	if got := testutil.ToFloat64(e.samplesTotal.WithLabelValues("query")); got != 2 {
		t.Errorf("samples counter = %v, want 2", got)
	}
}

func TestRecordAlerts(t *testing.T) {
	e := NewExporter()

	e.RecordAlerts([]regression.Alert{
		{Severity: regression.SeverityHigh},
		{Severity: regression.SeverityHigh},
		{Severity: regression.SeverityLow},
	})

	if got := testutil.ToFloat64(e.alertsTotal.WithLabelValues("high")); got != 2 {
		t.Errorf("high alerts = %v, want 2", got)
	}
	if got := testutil.ToFloat64(e.alertsTotal.WithLabelValues("low")); got != 1 {
		t.Errorf("low alerts = %v, want 1", got)
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	e := NewExporter()
	e.RecordSample(metrics.Sample{TestName: "query", DurationSeconds: 1.0})

	rec := httptest.NewRecorder()
	e.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "perfguard_test_duration_seconds") {
		t.Errorf("scrape output missing duration metric:\n%s", body)
	}
	if !strings.Contains(body, `test_name="query"`) {
		t.Errorf("scrape output missing label:\n%s", body)
	}
}
