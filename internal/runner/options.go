package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/JKQA10/http-benchmark/internal/jitter"
	"github.com/JKQA10/http-benchmark/internal/metrics"
)

// Issuer performs a single request and reports its outcome.
// Implementations must capture request failures in the outcome.
type Issuer interface {
	Issue(ctx context.Context) metrics.Outcome
}

// IssuerFunc adapts a function to the Issuer interface.
type IssuerFunc func(ctx context.Context) metrics.Outcome

func (f IssuerFunc) Issue(ctx context.Context) metrics.Outcome { return f(ctx) }

// ErrInvalidTrial is wrapped by every TrialConfig validation error.
var ErrInvalidTrial = errors.New("invalid trial config")

// TrialConfig describes one trial. It is not modified while the trial runs.
type TrialConfig struct {
	Concurrency   int
	Duration      time.Duration
	Mode          jitter.Mode
	AvgJitter     time.Duration
	RatePerSecond int   // 0 means uncapped
	Seed          int64 // 0 means time based
}

// Validate reports every problem with the config at once.
func (c TrialConfig) Validate() error {
	var issues []string
	if c.Concurrency < 1 {
		issues = append(issues, fmt.Sprintf("concurrency must be >= 1, got %d", c.Concurrency))
	}
	if c.Duration <= 0 {
		issues = append(issues, fmt.Sprintf("duration must be > 0, got %s", c.Duration))
	}
	if !c.Mode.Valid() {
		issues = append(issues, fmt.Sprintf("unsupported mode %q", c.Mode))
	}
	if c.AvgJitter < 0 {
		issues = append(issues, fmt.Sprintf("avg jitter must be >= 0, got %s", c.AvgJitter))
	}
	if c.RatePerSecond < 0 {
		issues = append(issues, fmt.Sprintf("rate must be >= 0, got %d", c.RatePerSecond))
	}
	if len(issues) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTrial, strings.Join(issues, "; "))
	}
	return nil
}

// Options configure the Scheduler.
type Options struct {
	Issuer         Issuer                      // request executor (required)
	Logger         *zap.Logger                 // defaults to a no-op logger
	LimiterFactory func(rps int) *rate.Limiter // optional injection for tests

	// Watch is called once per trial before workers start, both from RunTrial
	// and from a Benchmark's trials.
	Watch func(cfg TrialConfig, live *metrics.Collector)
}

func (o *Options) normalize() {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(rps int) *rate.Limiter {
			if rps <= 0 {
				return nil
			}
			// Burst of 1 spaces requests evenly across workers.
			return rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}
