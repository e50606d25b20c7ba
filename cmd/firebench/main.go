package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/JKQA10/http-benchmark/internal/config"
	"github.com/JKQA10/http-benchmark/internal/httpclient"
	"github.com/JKQA10/http-benchmark/internal/logging"
	"github.com/JKQA10/http-benchmark/internal/metrics"
	"github.com/JKQA10/http-benchmark/internal/output"
	"github.com/JKQA10/http-benchmark/internal/runner"
	"github.com/JKQA10/http-benchmark/internal/threshold"
	"github.com/JKQA10/http-benchmark/internal/tracing"
)

const (
	progressInterval       = time.Second
	failureLogInterval     = time.Second
	tracingShutdownTimeout = 5 * time.Second
)

var errThresholdsFailed = errors.New("one or more thresholds failed")

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, stderr)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	for _, w := range cfg.Warnings() {
		logger.Warn(w)
	}

	tp, err := tracing.Init(ctx, cfg.Tracing, tracing.WithLogger(logger))
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), tracingShutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	builder, err := httpclient.NewRequestBuilder(httpclient.RequestSpec{
		Method:   cfg.Method,
		URL:      cfg.TargetURL,
		Headers:  cfg.Headers,
		Body:     cfg.Body,
		BodyFile: cfg.BodyFile,
	})
	if err != nil {
		return err
	}

	issuerOpts := []httpclient.IssuerOption{httpclient.WithTracing(tp)}
	if cfg.LogErrors {
		issuerOpts = append(issuerOpts, httpclient.WithFailureLogging(logger, failureLogInterval))
	}
	client := httpclient.NewClient(cfg.Timeout, cfg.MaxConcurrency())
	issuer := httpclient.NewIssuer(client, builder, issuerOpts...)

	scheduler := runner.NewScheduler(runner.Options{
		Issuer: issuer,
		Logger: logger,
	})

	reporters := runner.MultiReporter{}
	var progress *output.ProgressReporter
	if cfg.Output == config.OutputTable {
		progress = output.NewProgressReporter(progressInterval, stderr)
		reporters = append(reporters, progress)
	}
	var exporter *metrics.Exporter
	if cfg.MetricsFile != "" {
		exporter = metrics.NewExporter()
		reporters = append(reporters, exporterReporter{exporter: exporter})
	}

	bench, err := runner.NewBenchmark(runner.Plan{
		Target:        builder.Target(),
		Method:        builder.Method(),
		Levels:        cfg.ConcurrencyLevels,
		Duration:      cfg.Duration,
		Mode:          cfg.Mode,
		AvgJitter:     cfg.AvgJitter,
		RatePerSecond: cfg.Rate,
		Seed:          cfg.Seed,
	}, scheduler, reporters, logger)
	if err != nil {
		return err
	}

	matrix, runErr := bench.Run(ctx)
	if progress != nil {
		// An interrupted trial never reports TrialFinished.
		progress.Stop()
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}

	if err := render(stdout, cfg.Output, matrix); err != nil {
		return err
	}
	if cfg.CSVOutput != "" {
		if err := output.AppendCSV(cfg.CSVOutput, matrix); err != nil {
			return err
		}
		logger.Debug("appended csv results", zap.String("path", cfg.CSVOutput))
	}
	if exporter != nil {
		if err := exporter.WriteTextfile(cfg.MetricsFile); err != nil {
			return err
		}
		logger.Debug("wrote metrics textfile", zap.String("path", cfg.MetricsFile))
	}

	if runErr != nil {
		return fmt.Errorf("benchmark interrupted after %d of %d trials: %w",
			len(matrix.Rows), len(cfg.ConcurrencyLevels), runErr)
	}

	return checkThresholds(cfg, matrix, stdout, stderr)
}

func render(w io.Writer, format config.OutputFormat, m metrics.Matrix) error {
	switch format {
	case config.OutputJSON:
		return output.PrintJSONReport(w, m)
	case config.OutputYAML:
		return output.WriteYAML(w, m)
	default:
		output.PrintMatrix(w, m)
		return nil
	}
}

func checkThresholds(cfg *config.Config, m metrics.Matrix, stdout, stderr io.Writer) error {
	if len(cfg.Thresholds) == 0 {
		return nil
	}
	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}
	results := threshold.NewEvaluator(thresholds).EvaluateMatrix(m)

	// Keep stdout machine readable for structured formats.
	w := stdout
	if cfg.Output != config.OutputTable {
		w = stderr
	}
	output.PrintThresholdResults(w, results)

	if !threshold.AllPassed(results) {
		return errThresholdsFailed
	}
	return nil
}
