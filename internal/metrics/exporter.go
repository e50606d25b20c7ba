package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Exporter publishes finished summary rows as Prometheus gauges on a private registry.
type Exporter struct {
	registry  *prometheus.Registry
	requests  *prometheus.GaugeVec
	errorRate *prometheus.GaugeVec
	rps       *prometheus.GaugeVec
	latency   *prometheus.GaugeVec
}

var exportedQuantiles = []struct {
	label string
	value func(SummaryRow) float64
}{
	{"0.5", func(r SummaryRow) float64 { return r.P50Latency.Seconds() }},
	{"0.75", func(r SummaryRow) float64 { return r.P75Latency.Seconds() }},
	{"0.95", func(r SummaryRow) float64 { return r.P95Latency.Seconds() }},
	{"0.99", func(r SummaryRow) float64 { return r.P99Latency.Seconds() }},
}

func NewExporter() *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "firebench_trial_requests",
				Help: "Requests issued during a trial, split by result",
			},
			[]string{"trial", "concurrency", "result"},
		),
		errorRate: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "firebench_trial_error_rate",
				Help: "Fraction of failed requests during a trial",
			},
			[]string{"trial", "concurrency"},
		),
		rps: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "firebench_trial_requests_per_second",
				Help: "Requests per second over the measured trial duration",
			},
			[]string{"trial", "concurrency"},
		),
		latency: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "firebench_trial_latency_seconds",
				Help: "Latency percentiles of successful requests",
			},
			[]string{"trial", "concurrency", "quantile"},
		),
	}
	e.registry.MustRegister(e.requests, e.errorRate, e.rps, e.latency)
	return e
}

// Observe records the gauges for the trial at position index (0-based).
func (e *Exporter) Observe(index int, row SummaryRow) {
	trial := strconv.Itoa(index)
	concurrency := strconv.Itoa(row.Concurrency)

	e.requests.WithLabelValues(trial, concurrency, "success").Set(float64(row.Successful))
	e.requests.WithLabelValues(trial, concurrency, "error").Set(float64(row.Errors))
	e.errorRate.WithLabelValues(trial, concurrency).Set(row.ErrorRate)
	e.rps.WithLabelValues(trial, concurrency).Set(row.RequestsPerSec)
	for _, q := range exportedQuantiles {
		e.latency.WithLabelValues(trial, concurrency, q.label).Set(q.value(row))
	}
}

// Gatherer exposes the underlying registry.
func (e *Exporter) Gatherer() prometheus.Gatherer {
	return e.registry
}

// WriteTextfile writes all gauges to path in the Prometheus text format.
func (e *Exporter) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, e.registry)
}
