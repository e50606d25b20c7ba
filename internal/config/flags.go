package config

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "firebench [flags] URL",
		Short:         "Sweep an HTTP endpoint across concurrency levels and summarize latency",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Request flags
	flags.String("target", "", "Target URL (may also be given as the positional argument)")
	flags.StringP("method", "X", "GET", "HTTP method: GET, PUT, POST or DELETE")
	flags.String("request-type", "", "Alias for --method")
	_ = flags.MarkHidden("request-type")
	flags.StringArrayP("header", "H", nil, "Request header in \"Key: Value\" form (repeatable)")
	flags.StringP("data", "d", "", "Inline request body (ignored for GET)")
	flags.String("data-binary", "", "Path to a file containing the request body (ignored for GET)")
	flags.Duration("timeout", defaultTimeout, "Per-request timeout")

	// Load flags
	flags.String("duration", "10", "Duration of each trial in seconds, or a Go duration such as 30s")
	flags.IntSliceP("concurrency-levels", "c", nil, "Concurrency levels to sweep, in order (repeatable or comma separated)")
	flags.String("mode", "exponential", "Delay between requests of a worker: burst, uniform or exponential")
	flags.String("avg-jitter", "10", "Average delay between requests in milliseconds, or a Go duration (uniform and exponential modes)")
	flags.IntP("rate", "r", 0, "Requests per second cap shared by all workers of a trial (0 means unlimited)")
	flags.Int64("seed", 0, "Seed for jitter sampling (0 means time based)")

	// Output flags
	flags.StringP("output", "o", string(OutputTable), "Report format: table, json or yaml")
	flags.String("csv-output", "", "Append summary rows to the given CSV file")
	flags.String("metrics-file", "", "Write per-trial gauges in Prometheus text format to the given file")
	flags.StringSlice("threshold", nil, "Performance thresholds checked for every level (repeatable, e.g., 'http_req_duration:p95 < 500')")
	flags.String("config", "", "Path to configuration file (JSON, YAML or TOML)")

	// Logging flags
	flags.String("log-level", "info", "Log level: debug, info, warn or error")
	flags.String("log-format", "console", "Log encoding: console or json")
	flags.Bool("log-errors", false, "Log failed requests to stderr (throttled)")

	// Tracing flags
	flags.String("tracing-endpoint", "", "OTLP collector endpoint; enables a span per request")
	flags.String("tracing-protocol", "grpc", "OTLP protocol: grpc or http")
	flags.Bool("tracing-insecure", false, "Disable TLS for the OTLP exporter")
	flags.String("tracing-service-name", "", "Service name reported on spans")
	flags.Float64("tracing-sample-rate", 1.0, "Fraction of requests to trace (0.0-1.0)")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\n%s\n\nFlags:\n", cmd.UseLine(), cmd.Short)
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values on top of the config
// file. A body given on the command line replaces a body file from the config
// file and vice versa.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if err := applyFlags(cfg, configBindings, fs); err != nil {
		return err
	}
	switch {
	case fs.Changed("data") && !fs.Changed("data-binary"):
		cfg.BodyFile = ""
	case fs.Changed("data-binary") && !fs.Changed("data"):
		cfg.Body = ""
	}
	return nil
}
