package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/JKQA10/http-benchmark/internal/metrics"
	"github.com/JKQA10/http-benchmark/internal/runner"
)

func TestProgressReporterBasic(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewProgressReporter(100*time.Millisecond, &buf)
	if reporter == nil {
		t.Fatal("Expected non-nil reporter")
	}

	// Stop before any trial is a no-op.
	reporter.Stop()
	reporter.Start()
	reporter.Stop()
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestProgressReporterFormatting(t *testing.T) {
	collector := metrics.NewCollector()
	now := time.Now()
	for i := 0; i < 5; i++ {
		collector.Record(metrics.Success(now, 30*time.Millisecond, 200))
	}
	collector.Record(metrics.Failure(now, time.Millisecond, metrics.ErrorKindStatus, 500, nil))

	var buf bytes.Buffer
	reporter := NewProgressReporter(20*time.Millisecond, &buf)
	trial := runner.Trial{Index: 1, Total: 3, Config: runner.TrialConfig{Concurrency: 4}}
	reporter.TrialStarted(trial, collector)

	time.Sleep(100 * time.Millisecond)
	reporter.TrialFinished(trial, metrics.SummaryRow{
		Concurrency:    4,
		Successful:     5,
		Errors:         1,
		RequestsPerSec: 12.5,
		P99LatencyMs:   30,
	})

	output := buf.String()
	for _, want := range []string{
		"[trial 2/3 c=4]",
		"Requests: 6 | Successes: 5 | Failures: 1",
		"Requests: 6 | Errors: 1 | RPS: 12.5 | P99: 30.0ms\n",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in progress output:\n%q", want, output)
		}
	}
}

func TestProgressReporterRestartsPerTrial(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewProgressReporter(10*time.Millisecond, &buf)

	for i := 0; i < 3; i++ {
		trial := runner.Trial{Index: i, Total: 3, Config: runner.TrialConfig{Concurrency: i + 1}}
		reporter.TrialStarted(trial, metrics.NewCollector())
		time.Sleep(30 * time.Millisecond)
		reporter.TrialFinished(trial, metrics.SummaryRow{Concurrency: i + 1})
	}

	output := buf.String()
	if got := strings.Count(output, "\n"); got != 3 {
		t.Errorf("expected 3 finished lines, got %d:\n%q", got, output)
	}
	if !strings.Contains(output, "[trial 3/3 c=3]") {
		t.Errorf("expected last trial label in output:\n%q", output)
	}
}

func TestProgressLine(t *testing.T) {
	line := progressLine(runner.Trial{Index: 0, Total: 1, Config: runner.TrialConfig{Concurrency: 2}}, metrics.Snapshot{
		Total:          10,
		Successes:      9,
		Failures:       1,
		RequestsPerSec: 5,
		P99Latency:     1500 * time.Microsecond,
	})
	want := "\r[trial 1/1 c=2] Requests: 10 | Successes: 9 | Failures: 1 | RPS: 5.0 | P99: 1.5ms"
	if line != want {
		t.Errorf("progressLine() = %q, want %q", line, want)
	}
}
