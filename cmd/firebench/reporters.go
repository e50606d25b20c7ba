package main

import (
	"github.com/JKQA10/http-benchmark/internal/metrics"
	"github.com/JKQA10/http-benchmark/internal/runner"
)

// exporterReporter feeds finished trials into the Prometheus exporter.
type exporterReporter struct {
	exporter *metrics.Exporter
}

var _ runner.Reporter = exporterReporter{}

func (exporterReporter) TrialStarted(runner.Trial, *metrics.Collector) {}

func (r exporterReporter) TrialFinished(t runner.Trial, row metrics.SummaryRow) {
	r.exporter.Observe(t.Index, row)
}
