// Package export publishes performance samples and regression alerts as
// Prometheus metrics for scraping during long test campaigns.
package export

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"perfguard/internal/metrics"
	"perfguard/internal/regression"
)

// Exporter holds a private registry so test runs never collide with an
// application's default registry.
type Exporter struct {
	registry *prometheus.Registry

	duration   *prometheus.GaugeVec
	memoryPeak *prometheus.GaugeVec
	cpuPercent *prometheus.GaugeVec

	samplesTotal *prometheus.CounterVec
	alertsTotal  *prometheus.CounterVec
}

// NewExporter creates an exporter with all collectors registered.
func NewExporter() *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		duration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "perfguard_test_duration_seconds",
			Help: "Duration of the most recent run of each test.",
		}, []string{"test_name"}),
		memoryPeak: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "perfguard_test_memory_peak_bytes",
			Help: "Peak resident memory of the most recent run of each test.",
		}, []string{"test_name"}),
		cpuPercent: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "perfguard_test_cpu_percent",
			Help: "Average CPU usage of the most recent run of each test.",
		}, []string{"test_name"}),
		samplesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "perfguard_samples_total",
			Help: "Number of samples recorded per test.",
		}, []string{"test_name"}),
		alertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "perfguard_regression_alerts_total",
			Help: "Number of regression alerts raised, by severity.",
		}, []string{"severity"}),
	}

	e.registry.MustRegister(e.duration, e.memoryPeak, e.cpuPercent, e.samplesTotal, e.alertsTotal)
	return e
}

// RecordSample publishes one sample's headline metrics.
func (e *Exporter) RecordSample(s metrics.Sample) {
	e.duration.WithLabelValues(s.TestName).Set(s.DurationSeconds)
	e.memoryPeak.WithLabelValues(s.TestName).Set(float64(s.MemoryPeak))
	e.cpuPercent.WithLabelValues(s.TestName).Set(s.CPUPercent)
	e.samplesTotal.WithLabelValues(s.TestName).Inc()
}

// RecordAlerts counts regression alerts by severity.
func (e *Exporter) RecordAlerts(alerts []regression.Alert) {
	for _, a := range alerts {
		e.alertsTotal.WithLabelValues(string(a.Severity)).Inc()
	}
}

// Handler returns the scrape endpoint for this exporter's registry.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}
