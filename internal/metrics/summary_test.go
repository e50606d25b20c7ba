package metrics_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/JKQA10/http-benchmark/internal/metrics"
)

func approx(t *testing.T, name string, got, want time.Duration) {
	t.Helper()
	diff := got - want
	if diff < 0 {
		diff = -diff
	}
	if diff > time.Microsecond {
		t.Errorf("%s = %s, want %s", name, got, want)
	}
}

func TestPercentileLinearInterpolation(t *testing.T) {
	sorted := []time.Duration{
		10 * time.Millisecond,
		20 * time.Millisecond,
		30 * time.Millisecond,
		40 * time.Millisecond,
		50 * time.Millisecond,
	}
	tests := []struct {
		p    float64
		want time.Duration
	}{
		{0, 10 * time.Millisecond},
		{25, 20 * time.Millisecond},
		{50, 30 * time.Millisecond},
		{75, 40 * time.Millisecond},
		{95, 48 * time.Millisecond},
		{99, 49600 * time.Microsecond},
		{100, 50 * time.Millisecond},
	}
	for _, tt := range tests {
		approx(t, "percentile", metrics.Percentile(sorted, tt.p), tt.want)
	}
}

func TestPercentileEdgeCases(t *testing.T) {
	if got := metrics.Percentile(nil, 50); got != 0 {
		t.Errorf("empty percentile = %s, want 0", got)
	}
	single := []time.Duration{7 * time.Millisecond}
	for _, p := range []float64{0, 50, 99, 100} {
		if got := metrics.Percentile(single, p); got != 7*time.Millisecond {
			t.Errorf("single-sample p%.0f = %s, want 7ms", p, got)
		}
	}
}

func TestSummarizeCountsAndPercentiles(t *testing.T) {
	var outcomes []metrics.Outcome
	for i := 100; i >= 1; i-- {
		outcomes = append(outcomes, ok(time.Duration(i)*time.Millisecond))
	}
	for i := 0; i < 25; i++ {
		outcomes = append(outcomes, metrics.Failure(time.Now(), time.Hour, metrics.ErrorKindStatus, 503, nil))
	}
	outcomes = append(outcomes, failed(metrics.ErrorKindTimeout))

	row := metrics.Summarize(metrics.TrialResult{
		Concurrency: 5,
		Duration:    2 * time.Second,
		Elapsed:     2 * time.Second,
		Outcomes:    outcomes,
	})

	if row.Concurrency != 5 {
		t.Errorf("concurrency = %d, want 5", row.Concurrency)
	}
	if row.Successful != 100 || row.Errors != 26 {
		t.Fatalf("successful/errors = %d/%d, want 100/26", row.Successful, row.Errors)
	}
	if row.Successful+row.Errors != len(outcomes) {
		t.Fatalf("counts do not add up to %d", len(outcomes))
	}
	if want := 26.0 / 126.0; row.ErrorRate != want {
		t.Errorf("error rate = %v, want %v", row.ErrorRate, want)
	}
	if row.RequestsPerSec != 63 {
		t.Errorf("rps = %v, want 63", row.RequestsPerSec)
	}
	if row.ErrorKinds["status"] != 25 || row.ErrorKinds["timeout"] != 1 {
		t.Errorf("unexpected error kinds %v", row.ErrorKinds)
	}

	approx(t, "p50", row.P50Latency, 50500*time.Microsecond)
	approx(t, "p75", row.P75Latency, 75250*time.Microsecond)
	approx(t, "p95", row.P95Latency, 95050*time.Microsecond)
	approx(t, "p99", row.P99Latency, 99010*time.Microsecond)
	approx(t, "mean", row.MeanLatency, 50500*time.Microsecond)
	if row.MaxLatency != 100*time.Millisecond {
		t.Errorf("max = %s, want 100ms (failures must not count)", row.MaxLatency)
	}
	if !(row.P50Latency <= row.P75Latency && row.P75Latency <= row.P95Latency && row.P95Latency <= row.P99Latency) {
		t.Errorf("percentiles out of order: %s %s %s %s", row.P50Latency, row.P75Latency, row.P95Latency, row.P99Latency)
	}
	if row.P50LatencyMs < 50.49 || row.P50LatencyMs > 50.51 {
		t.Errorf("p50 ms field = %v", row.P50LatencyMs)
	}
}

func TestSummarizeEmptyTrial(t *testing.T) {
	row := metrics.Summarize(metrics.TrialResult{Concurrency: 3, Duration: time.Second, Elapsed: time.Second})
	if row.Successful != 0 || row.Errors != 0 {
		t.Fatalf("expected zero counts, got %+v", row)
	}
	if row.ErrorRate != 0 {
		t.Errorf("error rate = %v, want 0", row.ErrorRate)
	}
	if row.P50Latency != 0 || row.P99Latency != 0 || row.RequestsPerSec != 0 {
		t.Errorf("expected zero latencies, got %+v", row)
	}
}

func TestSummarizeAllFailures(t *testing.T) {
	outcomes := []metrics.Outcome{
		failed(metrics.ErrorKindConnection),
		failed(metrics.ErrorKindConnection),
		failed(metrics.ErrorKindTimeout),
	}
	row := metrics.Summarize(metrics.TrialResult{Concurrency: 1, Elapsed: time.Second, Outcomes: outcomes})
	if row.ErrorRate != 1.0 {
		t.Errorf("error rate = %v, want 1.0", row.ErrorRate)
	}
	if row.P50Latency != 0 || row.P75Latency != 0 || row.P95Latency != 0 || row.P99Latency != 0 {
		t.Errorf("expected zero percentiles, got %+v", row)
	}
	if row.ErrorRatePercent() != 100 {
		t.Errorf("error rate percent = %v, want 100", row.ErrorRatePercent())
	}
}

func TestSummaryRowJSONSchema(t *testing.T) {
	row := metrics.Summarize(metrics.TrialResult{
		Concurrency: 2,
		Duration:    time.Second,
		Elapsed:     time.Second,
		Outcomes:    []metrics.Outcome{ok(15 * time.Millisecond), ok(25 * time.Millisecond)},
	})
	data, err := json.Marshal(row)
	if err != nil {
		t.Fatalf("failed to marshal row: %v", err)
	}
	var parsed map[string]interface{}
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	requiredFields := []string{"concurrency", "duration_s", "successful", "errors", "error_rate", "requests_per_sec", "p50_latency_ms", "p75_latency_ms", "p95_latency_ms", "p99_latency_ms"}
	for _, field := range requiredFields {
		if _, ok := parsed[field]; !ok {
			t.Errorf("missing field %q in JSON output", field)
		}
	}
	if _, ok := parsed["error_kinds"]; ok {
		t.Error("error_kinds should be omitted when there are no failures")
	}
}
