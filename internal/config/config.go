package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/JKQA10/http-benchmark/internal/jitter"
	"github.com/JKQA10/http-benchmark/internal/threshold"
)

type OutputFormat string

const (
	OutputTable OutputFormat = "table"
	OutputJSON  OutputFormat = "json"
	OutputYAML  OutputFormat = "yaml"
)

const (
	defaultDuration  = 10 * time.Second
	defaultAvgJitter = 10 * time.Millisecond
	defaultTimeout   = 30 * time.Second
)

type Config struct {
	TargetURL         string            `mapstructure:"target"`
	Method            string            `mapstructure:"method"`
	Headers           map[string]string `mapstructure:"headers"`
	Body              string            `mapstructure:"body"`
	BodyFile          string            `mapstructure:"body_file"`
	Duration          time.Duration     `mapstructure:"duration"`
	ConcurrencyLevels []int             `mapstructure:"concurrency_levels"`
	Mode              jitter.Mode       `mapstructure:"mode"`
	AvgJitter         time.Duration     `mapstructure:"avg_jitter"`
	Timeout           time.Duration     `mapstructure:"timeout"`
	Rate              int               `mapstructure:"rate"`
	Seed              int64             `mapstructure:"seed"`
	LogLevel          string            `mapstructure:"log_level"`
	LogFormat         string            `mapstructure:"log_format"`
	LogErrors         bool              `mapstructure:"log_errors"`
	Output            OutputFormat      `mapstructure:"output"`
	CSVOutput         string            `mapstructure:"csv_output"`
	MetricsFile       string            `mapstructure:"metrics_file"`
	Thresholds        []string          `mapstructure:"thresholds"`
	Tracing           TracingConfig     `mapstructure:"tracing"`
	ConfigFile        string            `mapstructure:"-"`
}

// TracingConfig configures OTLP span export for issued requests.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" or "http"
	Insecure    bool    `mapstructure:"insecure"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Propagate   *bool   `mapstructure:"propagate"` // nil means propagate when enabled
}

// Enabled reports whether an exporter endpoint is configured.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != ""
}

// ShouldPropagate reports whether W3C trace headers should be injected into requests.
func (t TracingConfig) ShouldPropagate() bool {
	if !t.Enabled() {
		return false
	}
	if t.Propagate != nil {
		return *t.Propagate
	}
	return true
}

// MaxConcurrency returns the highest configured level.
func (c Config) MaxConcurrency() int {
	highest := 0
	for _, level := range c.ConcurrencyLevels {
		if level > highest {
			highest = level
		}
	}
	return highest
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string

	issues = append(issues, validateTarget(c.TargetURL)...)

	switch strings.ToUpper(strings.TrimSpace(c.Method)) {
	case "GET", "PUT", "POST", "DELETE":
	default:
		issues = append(issues, fmt.Sprintf("method %q is not supported (use GET, PUT, POST or DELETE)", c.Method))
	}

	if c.Duration <= 0 {
		issues = append(issues, "duration must be > 0")
	}
	if len(c.ConcurrencyLevels) == 0 {
		issues = append(issues, "at least one concurrency level is required")
	}
	for idx, level := range c.ConcurrencyLevels {
		if level < 1 {
			issues = append(issues, fmt.Sprintf("concurrencyLevels[%d]: must be >= 1, got %d", idx, level))
		}
	}
	if _, err := jitter.ParseMode(string(c.Mode)); err != nil {
		issues = append(issues, err.Error())
	}
	if c.AvgJitter < 0 {
		issues = append(issues, "avg jitter must be >= 0")
	}
	if c.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}
	if c.Rate < 0 {
		issues = append(issues, "rate must be >= 0")
	}
	if c.Body != "" && strings.TrimSpace(c.BodyFile) != "" {
		issues = append(issues, "data and data-binary are mutually exclusive")
	}

	switch c.Output {
	case "", OutputTable, OutputJSON, OutputYAML:
	default:
		issues = append(issues, fmt.Sprintf("output format %q is not supported (use table, json or yaml)", c.Output))
	}

	if strings.TrimSpace(c.LogLevel) != "" {
		if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
			issues = append(issues, fmt.Sprintf("log level: %v", err))
		}
	}
	switch strings.ToLower(strings.TrimSpace(c.LogFormat)) {
	case "", "console", "json":
	default:
		issues = append(issues, fmt.Sprintf("log format %q is not supported (use console or json)", c.LogFormat))
	}

	if _, err := threshold.ParseMultiple(c.Thresholds); err != nil {
		issues = append(issues, err.Error())
	}

	if c.Tracing.Enabled() {
		switch strings.ToLower(c.Tracing.Protocol) {
		case "", "grpc", "http":
		default:
			issues = append(issues, fmt.Sprintf("tracing protocol %q is not supported (use grpc or http)", c.Tracing.Protocol))
		}
		if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
			issues = append(issues, "tracing sample rate must be between 0.0 and 1.0")
		}
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}

	return nil
}

// Warnings returns advisory messages about aggressive settings. They never fail validation.
func (c Config) Warnings() []string {
	var warnings []string
	if c.Rate > 1000 {
		warnings = append(warnings, fmt.Sprintf("High rate limit configured (%d RPS). Ensure you have authorization to test the target system.", c.Rate))
	}
	if highest := c.MaxConcurrency(); highest > 500 {
		warnings = append(warnings, fmt.Sprintf("High concurrency configured (%d workers). Ensure you have authorization to test the target system.", highest))
	}
	if c.Mode == jitter.ModeBurst {
		warnings = append(warnings, "Burst mode sends requests back to back with no delay between them.")
	}
	if c.Tracing.Enabled() && c.Tracing.Insecure {
		warnings = append(warnings, "Tracing exporter TLS is disabled (insecure: true).")
	}
	return warnings
}

func validateTarget(target string) []string {
	target = strings.TrimSpace(target)
	if target == "" {
		return []string{"target is required (use --help for usage information)"}
	}
	parsed, err := url.Parse(target)
	if err != nil {
		return []string{fmt.Sprintf("target URL is invalid: %v", err)}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return []string{fmt.Sprintf("target URL %q must use http or https", target)}
	}
	if parsed.Host == "" {
		return []string{fmt.Sprintf("target URL %q has no host", target)}
	}
	return nil
}
