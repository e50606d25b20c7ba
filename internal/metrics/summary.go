package metrics

import (
	"math"
	"sort"
	"time"
)

// TrialResult is the frozen output of one trial, handed from the scheduler to Summarize.
type TrialResult struct {
	Concurrency int
	Duration    time.Duration // configured trial duration
	Elapsed     time.Duration // measured wall-clock time, may exceed Duration
	Outcomes    []Outcome

	// WorkerFaults counts workers that stopped on an unexpected panic.
	WorkerFaults int
}

// SummaryRow is the reduced view of one trial.
type SummaryRow struct {
	Concurrency    int            `json:"concurrency" yaml:"concurrency"`
	Duration       time.Duration  `json:"-" yaml:"-"`
	Elapsed        time.Duration  `json:"-" yaml:"-"`
	Successful     int            `json:"successful" yaml:"successful"`
	Errors         int            `json:"errors" yaml:"errors"`
	ErrorRate      float64        `json:"error_rate" yaml:"error_rate"`
	RequestsPerSec float64        `json:"requests_per_sec" yaml:"requests_per_sec"`
	ErrorKinds     map[string]int `json:"error_kinds,omitempty" yaml:"error_kinds,omitempty"`
	WorkerFaults   int            `json:"worker_faults,omitempty" yaml:"worker_faults,omitempty"`

	MeanLatency time.Duration `json:"-" yaml:"-"`
	MaxLatency  time.Duration `json:"-" yaml:"-"`
	P50Latency  time.Duration `json:"-" yaml:"-"`
	P75Latency  time.Duration `json:"-" yaml:"-"`
	P95Latency  time.Duration `json:"-" yaml:"-"`
	P99Latency  time.Duration `json:"-" yaml:"-"`

	// JSON-friendly fields.
	DurationSec   float64 `json:"duration_s" yaml:"duration_s"`
	ElapsedMs     float64 `json:"elapsed_ms" yaml:"elapsed_ms"`
	MeanLatencyMs float64 `json:"mean_latency_ms" yaml:"mean_latency_ms"`
	MaxLatencyMs  float64 `json:"max_latency_ms" yaml:"max_latency_ms"`
	P50LatencyMs  float64 `json:"p50_latency_ms" yaml:"p50_latency_ms"`
	P75LatencyMs  float64 `json:"p75_latency_ms" yaml:"p75_latency_ms"`
	P95LatencyMs  float64 `json:"p95_latency_ms" yaml:"p95_latency_ms"`
	P99LatencyMs  float64 `json:"p99_latency_ms" yaml:"p99_latency_ms"`
}

// Total returns the number of issued requests.
func (r SummaryRow) Total() int { return r.Successful + r.Errors }

// ErrorRatePercent returns the error rate scaled to 0..100.
func (r SummaryRow) ErrorRatePercent() float64 { return r.ErrorRate * 100 }

// Matrix is the ordered set of rows produced by one benchmark run,
// one row per configured concurrency level in input order.
type Matrix struct {
	RunID     string        `json:"run_id" yaml:"run_id"`
	Target    string        `json:"target" yaml:"target"`
	Method    string        `json:"method" yaml:"method"`
	Mode      string        `json:"mode" yaml:"mode"`
	AvgJitter time.Duration `json:"-" yaml:"-"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Rows      []SummaryRow  `json:"rows" yaml:"rows"`

	AvgJitterMs float64 `json:"avg_jitter_ms" yaml:"avg_jitter_ms"`
}

// Summarize reduces a trial's outcomes into a SummaryRow. Percentiles, mean and
// max only consider successful outcomes.
func Summarize(result TrialResult) SummaryRow {
	row := SummaryRow{
		Concurrency: result.Concurrency,
		Duration:    result.Duration,
		Elapsed:     result.Elapsed,

		WorkerFaults: result.WorkerFaults,
	}

	latencies := make([]time.Duration, 0, len(result.Outcomes))
	var sum time.Duration
	for _, o := range result.Outcomes {
		if !o.Succeeded {
			row.Errors++
			if row.ErrorKinds == nil {
				row.ErrorKinds = make(map[string]int)
			}
			row.ErrorKinds[string(o.Kind)]++
			continue
		}
		row.Successful++
		latencies = append(latencies, o.Latency)
		sum += o.Latency
	}

	if total := row.Total(); total > 0 {
		row.ErrorRate = float64(row.Errors) / float64(total)
		if result.Elapsed > 0 {
			row.RequestsPerSec = float64(total) / result.Elapsed.Seconds()
		}
	}

	if n := len(latencies); n > 0 {
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		row.MeanLatency = sum / time.Duration(n)
		row.MaxLatency = latencies[n-1]
		row.P50Latency = Percentile(latencies, 50)
		row.P75Latency = Percentile(latencies, 75)
		row.P95Latency = Percentile(latencies, 95)
		row.P99Latency = Percentile(latencies, 99)
	}

	row.DurationSec = result.Duration.Seconds()
	row.ElapsedMs = toMs(row.Elapsed)
	row.MeanLatencyMs = toMs(row.MeanLatency)
	row.MaxLatencyMs = toMs(row.MaxLatency)
	row.P50LatencyMs = toMs(row.P50Latency)
	row.P75LatencyMs = toMs(row.P75Latency)
	row.P95LatencyMs = toMs(row.P95Latency)
	row.P99LatencyMs = toMs(row.P99Latency)
	return row
}

// Percentile returns the p-th percentile (0..100) of an ascending slice using
// linear interpolation between the closest order statistics:
// rank = p/100*(n-1), value = x[floor(rank)] + (x[ceil(rank)]-x[floor(rank)])*frac(rank).
// An empty slice yields zero.
func Percentile(sorted []time.Duration, p float64) time.Duration {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[n-1]
	}
	rank := p / 100 * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	frac := rank - float64(lo)
	return sorted[lo] + time.Duration(frac*float64(sorted[hi]-sorted[lo]))
}

func toMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
