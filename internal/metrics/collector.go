package metrics

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Collector accumulates the outcomes of one trial in a thread-safe manner.
// It is append-only until Freeze is called.
type Collector struct {
	mu        sync.Mutex
	outcomes  []Outcome
	hist      *hdrhistogram.Histogram
	successes int64
	failures  int64
	frozen    bool
	start     time.Time
}

// Snapshot is a point-in-time view of a running trial.
type Snapshot struct {
	Total          int64
	Successes      int64
	Failures       int64
	Elapsed        time.Duration
	RequestsPerSec float64
	P50Latency     time.Duration
	P99Latency     time.Duration
}

func NewCollector() *Collector {
	// Track latencies from 1µs up to 60s with 3 significant figures.
	h := hdrhistogram.New(1, 60_000_000, 3)
	return &Collector{
		hist:  h,
		start: time.Now(),
	}
}

// Record appends an outcome. It returns false if the collector is already frozen.
func (c *Collector) Record(o Outcome) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.frozen {
		return false
	}
	c.outcomes = append(c.outcomes, o)
	if !o.Succeeded {
		c.failures++
		return true
	}
	c.successes++
	us := o.Latency.Microseconds()
	if us < c.hist.LowestTrackableValue() {
		us = c.hist.LowestTrackableValue()
	}
	if us > c.hist.HighestTrackableValue() {
		us = c.hist.HighestTrackableValue()
	}
	_ = c.hist.RecordValue(us)
	return true
}

// Freeze stops accepting outcomes and transfers ownership of the recorded
// outcomes to the caller. Subsequent calls return the same slice.
func (c *Collector) Freeze() []Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frozen = true
	return c.outcomes
}

// Len returns the number of recorded outcomes.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.outcomes)
}

// Snapshot returns live counters and approximate quantiles of successful requests.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		Total:     c.successes + c.failures,
		Successes: c.successes,
		Failures:  c.failures,
		Elapsed:   time.Since(c.start),
	}
	if s.Elapsed > 0 && s.Total > 0 {
		s.RequestsPerSec = float64(s.Total) / s.Elapsed.Seconds()
	}
	if c.hist.TotalCount() > 0 {
		s.P50Latency = time.Duration(c.hist.ValueAtQuantile(50)) * time.Microsecond
		s.P99Latency = time.Duration(c.hist.ValueAtQuantile(99)) * time.Microsecond
	}
	return s
}
