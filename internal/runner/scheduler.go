package runner

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/JKQA10/http-benchmark/internal/metrics"
)

// Scheduler runs single trials. Each call to RunTrial is fully isolated: it
// owns a fresh collector, limiter and set of workers.
type Scheduler struct {
	opt Options
}

func NewScheduler(opt Options) *Scheduler {
	opt.normalize()
	return &Scheduler{opt: opt}
}

// RunTrial starts cfg.Concurrency workers bound to a shared deadline and blocks
// until all of them return. The only error is an invalid configuration.
// A nil ctx means context.Background().
func (s *Scheduler) RunTrial(ctx context.Context, cfg TrialConfig) (metrics.TrialResult, error) {
	return s.run(ctx, cfg, s.opt.Watch)
}

func (s *Scheduler) run(ctx context.Context, cfg TrialConfig, watch func(TrialConfig, *metrics.Collector)) (metrics.TrialResult, error) {
	if err := cfg.Validate(); err != nil {
		return metrics.TrialResult{}, err
	}
	if s.opt.Issuer == nil {
		return metrics.TrialResult{}, errors.New("scheduler has no issuer")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	collector := metrics.NewCollector()
	if watch != nil {
		watch(cfg, collector)
	}

	limiter := s.opt.LimiterFactory(cfg.RatePerSecond)

	start := time.Now()
	deadline := start.Add(cfg.Duration)
	seed := cfg.Seed
	if seed == 0 {
		seed = start.UnixNano()
	}

	var faults atomic.Int64
	var wg sync.WaitGroup
	wg.Add(cfg.Concurrency)
	for i := 0; i < cfg.Concurrency; i++ {
		w := &worker{
			id:        i,
			issuer:    s.opt.Issuer,
			collector: collector,
			deadline:  deadline,
			mode:      cfg.Mode,
			avgJitter: cfg.AvgJitter,
			rng:       rand.New(rand.NewSource(seed + int64(i))),
			limiter:   limiter,
			logger:    s.opt.Logger,
		}
		go func() {
			defer wg.Done()
			if !w.run(ctx) {
				faults.Add(1)
			}
		}()
	}
	wg.Wait()

	elapsed := time.Since(start)
	outcomes := collector.Freeze()

	if n := faults.Load(); n > 0 {
		s.opt.Logger.Warn("trial finished with faulted workers",
			zap.Int("concurrency", cfg.Concurrency),
			zap.Int64("faulted", n),
		)
	}

	return metrics.TrialResult{
		Concurrency:  cfg.Concurrency,
		Duration:     cfg.Duration,
		Elapsed:      elapsed,
		Outcomes:     outcomes,
		WorkerFaults: int(faults.Load()),
	}, nil
}
