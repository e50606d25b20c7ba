package runner

import "github.com/JKQA10/http-benchmark/internal/metrics"

// Trial identifies one trial within a benchmark.
type Trial struct {
	Index  int // zero based position in the level list
	Total  int
	Config TrialConfig
}

// Reporter is notified around each trial of a benchmark. Calls happen on the
// benchmark goroutine, one trial at a time.
type Reporter interface {
	// TrialStarted is called before workers start. live keeps filling until
	// the trial ends and may be polled concurrently via Snapshot.
	TrialStarted(t Trial, live *metrics.Collector)
	// TrialFinished is called with the summarized row once all workers returned.
	TrialFinished(t Trial, row metrics.SummaryRow)
}

// NopReporter ignores all notifications.
type NopReporter struct{}

func (NopReporter) TrialStarted(Trial, *metrics.Collector)  {}
func (NopReporter) TrialFinished(Trial, metrics.SummaryRow) {}

// MultiReporter fans notifications out in order.
type MultiReporter []Reporter

func (m MultiReporter) TrialStarted(t Trial, live *metrics.Collector) {
	for _, r := range m {
		if r != nil {
			r.TrialStarted(t, live)
		}
	}
}

func (m MultiReporter) TrialFinished(t Trial, row metrics.SummaryRow) {
	for _, r := range m {
		if r != nil {
			r.TrialFinished(t, row)
		}
	}
}
