// Package runner is the load generation engine behind firebench.
//
// A benchmark sweeps an ordered list of concurrency levels. Each level is one
// trial: the [Scheduler] starts exactly that many workers, all bound to the same
// deadline and the same [metrics.Collector], and waits for every worker to
// return before freezing the collected outcomes. Trials never overlap.
//
// # Basic Usage
//
//	sched := runner.NewScheduler(runner.Options{
//		Issuer: issuer,
//		Logger: logger,
//	})
//	bench, err := runner.NewBenchmark(runner.Plan{
//		Levels:    []int{5, 10, 20},
//		Duration:  10 * time.Second,
//		Mode:      jitter.ModeExponential,
//		AvgJitter: 10 * time.Millisecond,
//	}, sched, reporter, logger)
//	matrix, err := bench.Run(ctx)
//
// # Issuer Interface
//
// The [Issuer] interface defines what a worker executes:
//
//	type Issuer interface {
//		Issue(ctx context.Context) metrics.Outcome
//	}
//
// Failures are values, not errors: an Issuer reports connection problems,
// timeouts and bad statuses through the returned outcome.
//
// # Deadlines
//
// A worker checks the deadline before each request. A request already in flight
// when the deadline passes is allowed to finish and is recorded, so a trial's
// elapsed time can exceed its configured duration. Cancelling the context passed
// to Run stops workers before their next request and stops the benchmark before
// its next trial.
//
// # Worker Faults
//
// A worker whose Issuer panics is recovered, logged and stopped; its siblings
// keep running. Outcomes the worker recorded before the panic stay in the trial
// instead of being dropped, and the fault is counted in
// [metrics.SummaryRow].WorkerFaults.
//
// # Pacing
//
// Between requests a worker waits for a delay drawn by [jitter.NextDelay]. An
// optional per-trial requests-per-second cap is enforced by a [rate.Limiter]
// shared by the trial's workers.
package runner
