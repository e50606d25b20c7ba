package runner

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/JKQA10/http-benchmark/internal/jitter"
	"github.com/JKQA10/http-benchmark/internal/metrics"
)

// worker is one simulated user issuing a serial stream of requests.
type worker struct {
	id        int
	issuer    Issuer
	collector *metrics.Collector
	deadline  time.Time
	mode      jitter.Mode
	avgJitter time.Duration
	rng       *rand.Rand
	limiter   *rate.Limiter
	logger    *zap.Logger
}

// run loops until the deadline passes or ctx is cancelled. It returns false if
// the worker stopped because of a panic. Outcomes recorded before a panic are kept.
func (w *worker) run(ctx context.Context) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("worker panicked",
				zap.Int("worker", w.id),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			ok = false
		}
	}()

	deadlineCtx, cancel := context.WithDeadline(ctx, w.deadline)
	defer cancel()

	// Requests outlive both the deadline and cancellation of ctx; only the
	// decision to start another one observes them.
	requestCtx := context.WithoutCancel(ctx)

	for {
		if ctx.Err() != nil || !time.Now().Before(w.deadline) {
			return true
		}
		if w.limiter != nil {
			if err := w.limiter.Wait(deadlineCtx); err != nil {
				return true
			}
		}

		w.collector.Record(w.issuer.Issue(requestCtx))

		delay := jitter.NextDelay(w.mode, w.avgJitter, w.rng)
		if delay > 0 && !sleep(deadlineCtx, delay) {
			return true
		}
	}
}

// sleep waits for d or until ctx is done, reporting whether the full delay elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
