package output

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/JKQA10/http-benchmark/internal/metrics"
	"github.com/JKQA10/http-benchmark/internal/runner"
)

// ProgressReporter displays real-time progress updates for the running trial.
// It implements runner.Reporter: a ticker starts with each trial and stops
// when the trial finishes.
type ProgressReporter struct {
	interval time.Duration
	writer   io.Writer

	trial     runner.Trial
	collector *metrics.Collector
	ticker    *time.Ticker
	done      chan struct{}
	finished  chan struct{}
	active    int32
}

var _ runner.Reporter = (*ProgressReporter)(nil)

// NewProgressReporter creates a progress reporter that updates at the given interval.
func NewProgressReporter(interval time.Duration, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &ProgressReporter{
		interval: interval,
		writer:   writer,
	}
}

// TrialStarted begins polling live for progress lines.
func (p *ProgressReporter) TrialStarted(t runner.Trial, live *metrics.Collector) {
	p.Stop()
	p.trial = t
	p.collector = live
	p.Start()
}

// TrialFinished stops the ticker and prints the trial's final line.
func (p *ProgressReporter) TrialFinished(t runner.Trial, row metrics.SummaryRow) {
	p.Stop()
	fmt.Fprintf(p.writer, "\r%s Requests: %d | Errors: %d | RPS: %.1f | P99: %.1fms\n",
		trialLabel(t), row.Total(), row.Errors, row.RequestsPerSec, row.P99LatencyMs)
}

// Start begins displaying progress updates in a background goroutine.
func (p *ProgressReporter) Start() {
	if p.collector == nil {
		return
	}
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return // already running
	}
	p.ticker = time.NewTicker(p.interval)
	p.done = make(chan struct{})
	p.finished = make(chan struct{})
	go p.run(p.trial, p.collector, p.ticker, p.done, p.finished)
}

// Stop halts progress updates.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		p.ticker.Stop()
		<-p.finished
	}
}

func (p *ProgressReporter) run(t runner.Trial, collector *metrics.Collector, ticker *time.Ticker, done, finished chan struct{}) {
	defer close(finished)
	for {
		select {
		case <-ticker.C:
			fmt.Fprint(p.writer, progressLine(t, collector.Snapshot()))
		case <-done:
			return
		}
	}
}

func progressLine(t runner.Trial, s metrics.Snapshot) string {
	return fmt.Sprintf("\r%s Requests: %d | Successes: %d | Failures: %d | RPS: %.1f | P99: %.1fms",
		trialLabel(t), s.Total, s.Successes, s.Failures, s.RequestsPerSec,
		float64(s.P99Latency)/float64(time.Millisecond))
}

func trialLabel(t runner.Trial) string {
	return fmt.Sprintf("[trial %d/%d c=%d]", t.Index+1, t.Total, t.Config.Concurrency)
}
