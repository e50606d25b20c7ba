package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/JKQA10/http-benchmark/internal/jitter"
	"github.com/JKQA10/http-benchmark/internal/metrics"
)

// ErrNoLevels is returned when a plan has no concurrency levels.
var ErrNoLevels = errors.New("at least one concurrency level is required")

// Plan describes a whole sweep. Target and Method are only recorded in the matrix.
type Plan struct {
	Target        string
	Method        string
	Levels        []int
	Duration      time.Duration
	Mode          jitter.Mode
	AvgJitter     time.Duration
	RatePerSecond int
	Seed          int64
}

// Trials expands the plan into one TrialConfig per level, in order. Every
// config is validated before any is returned.
func (p Plan) Trials() ([]TrialConfig, error) {
	if len(p.Levels) == 0 {
		return nil, ErrNoLevels
	}
	mode := p.Mode
	if mode == "" {
		mode = jitter.DefaultMode
	}
	trials := make([]TrialConfig, 0, len(p.Levels))
	for i, level := range p.Levels {
		cfg := TrialConfig{
			Concurrency:   level,
			Duration:      p.Duration,
			Mode:          mode,
			AvgJitter:     p.AvgJitter,
			RatePerSecond: p.RatePerSecond,
			Seed:          p.Seed,
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("level %d (%d): %w", i, level, err)
		}
		trials = append(trials, cfg)
	}
	return trials, nil
}

// Benchmark runs a Plan's trials strictly one after another.
type Benchmark struct {
	plan      Plan
	trials    []TrialConfig
	scheduler *Scheduler
	reporter  Reporter
	logger    *zap.Logger
}

// NewBenchmark validates the plan eagerly so no trial starts with a bad level.
func NewBenchmark(plan Plan, scheduler *Scheduler, reporter Reporter, logger *zap.Logger) (*Benchmark, error) {
	if scheduler == nil {
		return nil, errors.New("benchmark requires a scheduler")
	}
	trials, err := plan.Trials()
	if err != nil {
		return nil, err
	}
	if reporter == nil {
		reporter = NopReporter{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Benchmark{
		plan:      plan,
		trials:    trials,
		scheduler: scheduler,
		reporter:  reporter,
		logger:    logger,
	}, nil
}

// Run executes every trial and returns one row per level in input order. If ctx
// is cancelled the rows of completed trials are returned with ctx.Err(); a trial
// interrupted part way is not included. A nil ctx means context.Background().
func (b *Benchmark) Run(ctx context.Context) (metrics.Matrix, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	mode := b.trials[0].Mode
	matrix := metrics.Matrix{
		RunID:       ulid.Make().String(),
		Target:      b.plan.Target,
		Method:      b.plan.Method,
		Mode:        mode.String(),
		AvgJitter:   b.plan.AvgJitter,
		AvgJitterMs: float64(b.plan.AvgJitter) / float64(time.Millisecond),
		StartedAt:   time.Now(),
		Rows:        make([]metrics.SummaryRow, 0, len(b.trials)),
	}
	log := b.logger.With(zap.String("run_id", matrix.RunID))
	log.Info("benchmark started",
		zap.String("target", b.plan.Target),
		zap.Ints("levels", b.plan.Levels),
		zap.Duration("duration", b.plan.Duration),
		zap.String("mode", mode.String()),
		zap.Duration("avg_jitter", b.plan.AvgJitter),
	)

	for i, cfg := range b.trials {
		if err := ctx.Err(); err != nil {
			log.Warn("benchmark cancelled", zap.Int("completed", len(matrix.Rows)))
			return matrix, err
		}

		trial := Trial{Index: i, Total: len(b.trials), Config: cfg}
		log.Debug("trial started", zap.Int("trial", i), zap.Int("concurrency", cfg.Concurrency))

		result, err := b.scheduler.run(ctx, cfg, func(cfg TrialConfig, live *metrics.Collector) {
			if watch := b.scheduler.opt.Watch; watch != nil {
				watch(cfg, live)
			}
			b.reporter.TrialStarted(trial, live)
		})
		if err != nil {
			return matrix, fmt.Errorf("trial %d: %w", i, err)
		}
		if err := ctx.Err(); err != nil {
			log.Warn("trial interrupted, discarding partial results",
				zap.Int("trial", i),
				zap.Int("concurrency", cfg.Concurrency),
				zap.Int("outcomes", len(result.Outcomes)),
			)
			return matrix, err
		}

		row := metrics.Summarize(result)
		matrix.Rows = append(matrix.Rows, row)
		b.reporter.TrialFinished(trial, row)

		log.Info("trial finished",
			zap.Int("trial", i),
			zap.Int("concurrency", row.Concurrency),
			zap.Int("successful", row.Successful),
			zap.Int("errors", row.Errors),
			zap.Float64("rps", row.RequestsPerSec),
			zap.Duration("p95", row.P95Latency),
			zap.Duration("elapsed", row.Elapsed),
		)
	}
	return matrix, nil
}
