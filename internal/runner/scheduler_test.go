package runner_test

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"

	"github.com/JKQA10/http-benchmark/internal/jitter"
	"github.com/JKQA10/http-benchmark/internal/metrics"
	"github.com/JKQA10/http-benchmark/internal/runner"
)

// fixedLatency returns an issuer that succeeds after sleeping latency.
func fixedLatency(latency time.Duration, calls *int64) runner.IssuerFunc {
	return func(ctx context.Context) metrics.Outcome {
		if calls != nil {
			atomic.AddInt64(calls, 1)
		}
		start := time.Now()
		time.Sleep(latency)
		return metrics.Success(start, time.Since(start), 200)
	}
}

func alwaysFail(kind metrics.ErrorKind) runner.IssuerFunc {
	return func(ctx context.Context) metrics.Outcome {
		start := time.Now()
		time.Sleep(time.Millisecond)
		return metrics.Failure(start, time.Since(start), kind, 0, errors.New("refused"))
	}
}

func burstTrial(concurrency int, duration time.Duration) runner.TrialConfig {
	return runner.TrialConfig{
		Concurrency: concurrency,
		Duration:    duration,
		Mode:        jitter.ModeBurst,
	}
}

func TestTrialConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     runner.TrialConfig
		wantErr bool
	}{
		{"valid burst", burstTrial(1, time.Second), false},
		{"valid exponential", runner.TrialConfig{Concurrency: 3, Duration: time.Second, Mode: jitter.ModeExponential, AvgJitter: 10 * time.Millisecond}, false},
		{"zero jitter uniform", runner.TrialConfig{Concurrency: 1, Duration: time.Second, Mode: jitter.ModeUniform}, false},
		{"zero concurrency", burstTrial(0, time.Second), true},
		{"negative concurrency", burstTrial(-1, time.Second), true},
		{"zero duration", burstTrial(1, 0), true},
		{"unknown mode", runner.TrialConfig{Concurrency: 1, Duration: time.Second, Mode: "poisson"}, true},
		{"empty mode", runner.TrialConfig{Concurrency: 1, Duration: time.Second}, true},
		{"negative jitter", runner.TrialConfig{Concurrency: 1, Duration: time.Second, Mode: jitter.ModeUniform, AvgJitter: -1}, true},
		{"negative rate", runner.TrialConfig{Concurrency: 1, Duration: time.Second, Mode: jitter.ModeBurst, RatePerSecond: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, runner.ErrInvalidTrial) {
				t.Fatalf("error %v does not wrap ErrInvalidTrial", err)
			}
		})
	}
}

func TestRunTrialFixedLatencyThroughput(t *testing.T) {
	var calls int64
	const (
		concurrency = 4
		duration    = 200 * time.Millisecond
		latency     = 10 * time.Millisecond
	)
	sched := runner.NewScheduler(runner.Options{Issuer: fixedLatency(latency, &calls)})

	res, err := sched.RunTrial(context.Background(), burstTrial(concurrency, duration))
	if err != nil {
		t.Fatalf("RunTrial() error = %v", err)
	}

	// C*D/L = 80; each worker may finish one request past the deadline.
	maxExpected := concurrency * (int(duration/latency) + 1)
	got := len(res.Outcomes)
	if got < 40 || got > maxExpected {
		t.Fatalf("outcomes = %d, want between 40 and %d", got, maxExpected)
	}
	if int64(got) != atomic.LoadInt64(&calls) {
		t.Fatalf("outcomes = %d but issuer called %d times", got, calls)
	}
	if res.Concurrency != concurrency || res.Duration != duration {
		t.Fatalf("result = {c=%d d=%s}", res.Concurrency, res.Duration)
	}
	if res.Elapsed < duration {
		t.Fatalf("Elapsed = %s, want >= %s", res.Elapsed, duration)
	}

	row := metrics.Summarize(res)
	if row.Errors != 0 || row.ErrorRate != 0 {
		t.Fatalf("row errors = %d rate = %v, want 0", row.Errors, row.ErrorRate)
	}
	if row.Successful+row.Errors != len(res.Outcomes) {
		t.Fatalf("successful+errors = %d, want %d", row.Successful+row.Errors, len(res.Outcomes))
	}
	if row.P50Latency < latency {
		t.Fatalf("p50 = %s, want >= %s", row.P50Latency, latency)
	}
	if !(row.P50Latency <= row.P75Latency && row.P75Latency <= row.P95Latency && row.P95Latency <= row.P99Latency) {
		t.Fatalf("percentiles out of order: %s %s %s %s", row.P50Latency, row.P75Latency, row.P95Latency, row.P99Latency)
	}
}

func TestRunTrialAlwaysFailing(t *testing.T) {
	sched := runner.NewScheduler(runner.Options{Issuer: alwaysFail(metrics.ErrorKindConnection)})

	res, err := sched.RunTrial(context.Background(), burstTrial(3, 50*time.Millisecond))
	if err != nil {
		t.Fatalf("RunTrial() error = %v", err)
	}
	if len(res.Outcomes) == 0 {
		t.Fatal("expected failed outcomes to be recorded")
	}

	row := metrics.Summarize(res)
	if row.ErrorRate != 1.0 {
		t.Fatalf("ErrorRate = %v, want 1.0", row.ErrorRate)
	}
	if row.Successful != 0 {
		t.Fatalf("Successful = %d, want 0", row.Successful)
	}
	if row.P50Latency != 0 || row.P75Latency != 0 || row.P95Latency != 0 || row.P99Latency != 0 {
		t.Fatalf("percentiles should be zero without successes: %+v", row)
	}
	if row.ErrorKinds[string(metrics.ErrorKindConnection)] != row.Errors {
		t.Fatalf("ErrorKinds = %v, want all connection", row.ErrorKinds)
	}
}

func TestRunTrialInFlightRequestOverrunsDeadline(t *testing.T) {
	const latency = 150 * time.Millisecond
	sched := runner.NewScheduler(runner.Options{Issuer: fixedLatency(latency, nil)})

	res, err := sched.RunTrial(context.Background(), burstTrial(2, 30*time.Millisecond))
	if err != nil {
		t.Fatalf("RunTrial() error = %v", err)
	}
	if len(res.Outcomes) != 2 {
		t.Fatalf("outcomes = %d, want one per worker", len(res.Outcomes))
	}
	for i, o := range res.Outcomes {
		if !o.Succeeded {
			t.Fatalf("outcome %d failed; in-flight requests must complete", i)
		}
	}
	if res.Elapsed < latency {
		t.Fatalf("Elapsed = %s, want >= %s", res.Elapsed, latency)
	}
}

func TestRunTrialCancelledContextYieldsEmptyTrial(t *testing.T) {
	var calls int64
	sched := runner.NewScheduler(runner.Options{Issuer: fixedLatency(0, &calls)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := sched.RunTrial(ctx, burstTrial(4, time.Second))
	if err != nil {
		t.Fatalf("RunTrial() error = %v", err)
	}
	if len(res.Outcomes) != 0 || calls != 0 {
		t.Fatalf("outcomes = %d calls = %d, want none", len(res.Outcomes), calls)
	}

	row := metrics.Summarize(res)
	if row.ErrorRate != 0 || row.P99Latency != 0 || row.RequestsPerSec != 0 {
		t.Fatalf("empty trial row = %+v", row)
	}
	if row.Concurrency != 4 {
		t.Fatalf("Concurrency = %d, want 4", row.Concurrency)
	}
}

func TestRunTrialWorkerPanicIsolated(t *testing.T) {
	var calls int64
	issuer := runner.IssuerFunc(func(ctx context.Context) metrics.Outcome {
		if atomic.AddInt64(&calls, 1) == 1 {
			panic("issuer misconfigured")
		}
		start := time.Now()
		time.Sleep(2 * time.Millisecond)
		return metrics.Success(start, time.Since(start), 200)
	})

	core, logs := observer.New(zapcore.ErrorLevel)
	sched := runner.NewScheduler(runner.Options{Issuer: issuer, Logger: zap.New(core)})

	res, err := sched.RunTrial(context.Background(), burstTrial(3, 60*time.Millisecond))
	if err != nil {
		t.Fatalf("RunTrial() error = %v", err)
	}
	if res.WorkerFaults != 1 {
		t.Fatalf("WorkerFaults = %d, want 1", res.WorkerFaults)
	}
	if len(res.Outcomes) == 0 {
		t.Fatal("sibling workers should keep recording outcomes")
	}
	if got := logs.FilterMessage("worker panicked").Len(); got != 1 {
		t.Fatalf("logged %d panics, want 1", got)
	}
	if row := metrics.Summarize(res); row.WorkerFaults != 1 {
		t.Fatalf("row.WorkerFaults = %d, want 1", row.WorkerFaults)
	}
}

func TestRunTrialWatchReceivesLiveCollector(t *testing.T) {
	var watched *metrics.Collector
	var watchCalls int
	sched := runner.NewScheduler(runner.Options{
		Issuer: fixedLatency(time.Millisecond, nil),
		Watch: func(cfg runner.TrialConfig, live *metrics.Collector) {
			watchCalls++
			watched = live
			if cfg.Concurrency != 2 {
				t.Errorf("watch cfg concurrency = %d", cfg.Concurrency)
			}
		},
	})

	res, err := sched.RunTrial(context.Background(), burstTrial(2, 30*time.Millisecond))
	if err != nil {
		t.Fatalf("RunTrial() error = %v", err)
	}
	if watchCalls != 1 || watched == nil {
		t.Fatalf("watch called %d times", watchCalls)
	}
	if watched.Len() != len(res.Outcomes) {
		t.Fatalf("collector len = %d, outcomes = %d", watched.Len(), len(res.Outcomes))
	}
	if watched.Record(metrics.Success(time.Now(), time.Millisecond, 200)) {
		t.Fatal("collector must be frozen once the trial returns")
	}
}

func TestRunTrialRateCap(t *testing.T) {
	var calls int64
	var factoryRPS int
	sched := runner.NewScheduler(runner.Options{
		Issuer: fixedLatency(0, &calls),
		LimiterFactory: func(rps int) *rate.Limiter {
			factoryRPS = rps
			return rate.NewLimiter(rate.Limit(rps), 1)
		},
	})

	cfg := burstTrial(8, 200*time.Millisecond)
	cfg.RatePerSecond = 50
	res, err := sched.RunTrial(context.Background(), cfg)
	if err != nil {
		t.Fatalf("RunTrial() error = %v", err)
	}
	if factoryRPS != 50 {
		t.Fatalf("limiter factory got rps %d, want 50", factoryRPS)
	}
	// 50 rps over 0.2s is 10 requests plus the initial token.
	if got := len(res.Outcomes); got > 13 {
		t.Fatalf("rate cap exceeded: %d requests", got)
	}
	if len(res.Outcomes) == 0 {
		t.Fatal("expected some requests under the cap")
	}
}

func TestRunTrialJitterSlowsWorkers(t *testing.T) {
	var burstCalls, jitterCalls int64
	duration := 150 * time.Millisecond

	burst := runner.NewScheduler(runner.Options{Issuer: fixedLatency(time.Millisecond, &burstCalls)})
	if _, err := burst.RunTrial(context.Background(), burstTrial(1, duration)); err != nil {
		t.Fatal(err)
	}

	jittered := runner.NewScheduler(runner.Options{Issuer: fixedLatency(time.Millisecond, &jitterCalls)})
	cfg := runner.TrialConfig{
		Concurrency: 1,
		Duration:    duration,
		Mode:        jitter.ModeUniform,
		AvgJitter:   20 * time.Millisecond,
		Seed:        42,
	}
	if _, err := jittered.RunTrial(context.Background(), cfg); err != nil {
		t.Fatal(err)
	}

	if jitterCalls >= burstCalls {
		t.Fatalf("jittered worker issued %d requests, burst worker %d; jitter should slow it down", jitterCalls, burstCalls)
	}
	// Roughly duration / (latency + avg jitter) = 7.
	if jitterCalls < 2 || jitterCalls > 30 {
		t.Fatalf("jittered worker issued %d requests", jitterCalls)
	}
}

func TestRunTrialBurstBackToBack(t *testing.T) {
	var stamps []time.Time
	issuer := runner.IssuerFunc(func(ctx context.Context) metrics.Outcome {
		now := time.Now()
		stamps = append(stamps, now)
		time.Sleep(2 * time.Millisecond)
		return metrics.Success(now, time.Since(now), 200)
	})
	sched := runner.NewScheduler(runner.Options{Issuer: issuer})
	if _, err := sched.RunTrial(context.Background(), burstTrial(1, 40*time.Millisecond)); err != nil {
		t.Fatal(err)
	}
	if len(stamps) < 3 {
		t.Fatalf("only %d requests issued", len(stamps))
	}
	for i := 1; i < len(stamps); i++ {
		if gap := stamps[i].Sub(stamps[i-1]); gap > 20*time.Millisecond {
			t.Fatalf("gap %d = %s, burst mode should issue back to back", i, gap)
		}
	}
}

func TestRunTrialRejectsInvalidConfig(t *testing.T) {
	var calls int64
	sched := runner.NewScheduler(runner.Options{Issuer: fixedLatency(0, &calls)})
	_, err := sched.RunTrial(context.Background(), burstTrial(0, time.Second))
	if !errors.Is(err, runner.ErrInvalidTrial) {
		t.Fatalf("err = %v, want ErrInvalidTrial", err)
	}
	if calls != 0 {
		t.Fatalf("issuer called %d times for invalid trial", calls)
	}
}

func TestRunTrialRequiresIssuer(t *testing.T) {
	_, err := runner.NewScheduler(runner.Options{}).RunTrial(context.Background(), burstTrial(1, time.Millisecond))
	if err == nil {
		t.Fatal("RunTrial() without issuer should fail")
	}
}

// Timing makes runs differ, but with a fixed seed and a fixed-latency issuer
// every run should land within 25% of the mean count.
func TestRunTrialSeededRunsAreRepeatable(t *testing.T) {
	cfg := runner.TrialConfig{
		Concurrency: 3,
		Duration:    200 * time.Millisecond,
		Mode:        jitter.ModeExponential,
		AvgJitter:   5 * time.Millisecond,
		Seed:        11,
	}
	const runs = 3
	const tolerance = 0.25

	counts := make([]int, runs)
	total := 0
	for i := range counts {
		sched := runner.NewScheduler(runner.Options{Issuer: fixedLatency(2*time.Millisecond, nil)})
		res, err := sched.RunTrial(context.Background(), cfg)
		if err != nil {
			t.Fatalf("run %d: RunTrial() error = %v", i, err)
		}
		counts[i] = len(res.Outcomes)
		total += counts[i]
	}

	mean := float64(total) / runs
	if mean == 0 {
		t.Fatalf("counts = %v, want requests issued", counts)
	}
	for i, n := range counts {
		if diff := math.Abs(float64(n)-mean) / mean; diff > tolerance {
			t.Errorf("run %d issued %d requests, %.0f%% from mean %.1f (counts %v)", i, n, diff*100, mean, counts)
		}
	}
}

func TestRunTrialNilContext(t *testing.T) {
	sched := runner.NewScheduler(runner.Options{Issuer: fixedLatency(time.Millisecond, nil)})
	var ctx context.Context
	res, err := sched.RunTrial(ctx, burstTrial(1, 20*time.Millisecond))
	if err != nil {
		t.Fatalf("RunTrial() error = %v", err)
	}
	if len(res.Outcomes) == 0 {
		t.Fatal("no outcomes recorded")
	}
}
