package config

import (
	"fmt"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/pflag"

	"github.com/JKQA10/http-benchmark/internal/jitter"
)

// binding ties one setting to its config file keys and command-line flags.
// Either side may be empty.
type binding[T any] struct {
	name  string
	keys  []string
	flags []string // applied in order, later flags win
	apply func(dst *T, raw any) error
}

// set adapts a converter and a field selector into a binding's apply func.
func set[T, V any](conv func(any) (V, error), field func(*T) *V) func(*T, any) error {
	return func(dst *T, raw any) error {
		v, err := conv(raw)
		if err != nil {
			return err
		}
		*field(dst) = v
		return nil
	}
}

var configBindings = []binding[Config]{
	{
		name:  "target",
		keys:  []string{"target", "url"},
		flags: []string{"target"},
		apply: set(toTrimmedString, func(c *Config) *string { return &c.TargetURL }),
	},
	{
		name:  "method",
		keys:  []string{"method", "request_type"},
		flags: []string{"request-type", "method"},
		apply: func(c *Config, raw any) error {
			v, err := toTrimmedString(raw)
			if err != nil || v == "" {
				return err
			}
			c.Method = v
			return nil
		},
	},
	{
		name:  "headers",
		keys:  []string{"headers"},
		flags: []string{"header"},
		apply: func(c *Config, raw any) error {
			hdrs, err := toHeaders(raw)
			if err != nil {
				return err
			}
			if c.Headers == nil {
				c.Headers = map[string]string{}
			}
			for k, v := range hdrs {
				c.Headers[k] = v
			}
			return nil
		},
	},
	{
		name:  "body",
		keys:  []string{"body", "data"},
		flags: []string{"data"},
		apply: set(cast.ToStringE, func(c *Config) *string { return &c.Body }),
	},
	{
		name:  "body_file",
		keys:  []string{"body_file", "bodyfile", "data_binary"},
		flags: []string{"data-binary"},
		apply: set(toTrimmedString, func(c *Config) *string { return &c.BodyFile }),
	},
	{
		name:  "duration",
		keys:  []string{"duration"},
		flags: []string{"duration"},
		apply: set(durationIn(time.Second), func(c *Config) *time.Duration { return &c.Duration }),
	},
	{
		name:  "concurrency_levels",
		keys:  []string{"concurrency_levels", "concurrencylevels", "levels"},
		flags: []string{"concurrency-levels"},
		apply: set(toIntSlice, func(c *Config) *[]int { return &c.ConcurrencyLevels }),
	},
	{
		name:  "mode",
		keys:  []string{"mode"},
		flags: []string{"mode"},
		apply: set(toMode, func(c *Config) *jitter.Mode { return &c.Mode }),
	},
	{
		name:  "avg_jitter",
		keys:  []string{"avg_jitter", "avgjitter"},
		flags: []string{"avg-jitter"},
		apply: set(durationIn(time.Millisecond), func(c *Config) *time.Duration { return &c.AvgJitter }),
	},
	{
		name:  "timeout",
		keys:  []string{"timeout"},
		flags: []string{"timeout"},
		apply: set(durationIn(time.Second), func(c *Config) *time.Duration { return &c.Timeout }),
	},
	{
		name:  "rate",
		keys:  []string{"rate"},
		flags: []string{"rate"},
		apply: set(cast.ToIntE, func(c *Config) *int { return &c.Rate }),
	},
	{
		name:  "seed",
		keys:  []string{"seed"},
		flags: []string{"seed"},
		apply: set(cast.ToInt64E, func(c *Config) *int64 { return &c.Seed }),
	},
	{
		name:  "log_level",
		keys:  []string{"log_level", "loglevel"},
		flags: []string{"log-level"},
		apply: set(toTrimmedString, func(c *Config) *string { return &c.LogLevel }),
	},
	{
		name:  "log_format",
		keys:  []string{"log_format", "logformat"},
		flags: []string{"log-format"},
		apply: set(toTrimmedString, func(c *Config) *string { return &c.LogFormat }),
	},
	{
		name:  "log_errors",
		keys:  []string{"log_errors", "logerrors"},
		flags: []string{"log-errors"},
		apply: set(cast.ToBoolE, func(c *Config) *bool { return &c.LogErrors }),
	},
	{
		name:  "output",
		keys:  []string{"output"},
		flags: []string{"output"},
		apply: set(toOutputFormat, func(c *Config) *OutputFormat { return &c.Output }),
	},
	{
		name:  "csv_output",
		keys:  []string{"csv_output", "csvoutput"},
		flags: []string{"csv-output"},
		apply: set(toTrimmedString, func(c *Config) *string { return &c.CSVOutput }),
	},
	{
		name:  "metrics_file",
		keys:  []string{"metrics_file", "metricsfile"},
		flags: []string{"metrics-file"},
		apply: set(toTrimmedString, func(c *Config) *string { return &c.MetricsFile }),
	},
	{
		name:  "thresholds",
		keys:  []string{"thresholds"},
		flags: []string{"threshold"},
		apply: set(toStringList, func(c *Config) *[]string { return &c.Thresholds }),
	},
	{
		name: "tracing",
		keys: []string{"tracing"},
		apply: func(c *Config, raw any) error {
			if raw == nil {
				return nil
			}
			settings, err := cast.ToStringMapE(raw)
			if err != nil {
				return err
			}
			return applySettings(&c.Tracing, tracingBindings, settings)
		},
	},
	{
		name:  "tracing.endpoint",
		flags: []string{"tracing-endpoint"},
		apply: set(toTrimmedString, func(c *Config) *string { return &c.Tracing.Endpoint }),
	},
	{
		name:  "tracing.protocol",
		flags: []string{"tracing-protocol"},
		apply: set(toTrimmedString, func(c *Config) *string { return &c.Tracing.Protocol }),
	},
	{
		name:  "tracing.insecure",
		flags: []string{"tracing-insecure"},
		apply: set(cast.ToBoolE, func(c *Config) *bool { return &c.Tracing.Insecure }),
	},
	{
		name:  "tracing.service_name",
		flags: []string{"tracing-service-name"},
		apply: set(toTrimmedString, func(c *Config) *string { return &c.Tracing.ServiceName }),
	},
	{
		name:  "tracing.sample_rate",
		flags: []string{"tracing-sample-rate"},
		apply: set(cast.ToFloat64E, func(c *Config) *float64 { return &c.Tracing.SampleRate }),
	},
}

var tracingBindings = []binding[TracingConfig]{
	{name: "endpoint", keys: []string{"endpoint"}, apply: set(toTrimmedString, func(t *TracingConfig) *string { return &t.Endpoint })},
	{name: "protocol", keys: []string{"protocol"}, apply: set(toTrimmedString, func(t *TracingConfig) *string { return &t.Protocol })},
	{name: "insecure", keys: []string{"insecure"}, apply: set(cast.ToBoolE, func(t *TracingConfig) *bool { return &t.Insecure })},
	{name: "service_name", keys: []string{"service_name", "servicename"}, apply: set(toTrimmedString, func(t *TracingConfig) *string { return &t.ServiceName })},
	{name: "sample_rate", keys: []string{"sample_rate", "samplerate"}, apply: set(cast.ToFloat64E, func(t *TracingConfig) *float64 { return &t.SampleRate })},
	{
		name: "propagate",
		keys: []string{"propagate"},
		apply: func(t *TracingConfig, raw any) error {
			v, err := cast.ToBoolE(raw)
			if err != nil {
				return err
			}
			t.Propagate = &v
			return nil
		},
	},
}

// applySettings applies every binding whose key appears in settings.
func applySettings[T any](dst *T, bindings []binding[T], settings map[string]any) error {
	for _, b := range bindings {
		if len(b.keys) == 0 {
			continue
		}
		raw, ok := lookupSetting(settings, b.keys...)
		if !ok {
			continue
		}
		if err := b.apply(dst, raw); err != nil {
			return fmt.Errorf("%s: %w", b.name, err)
		}
	}
	return nil
}

// applyFlags applies every binding whose flag was set on the command line.
func applyFlags[T any](dst *T, bindings []binding[T], fs *pflag.FlagSet) error {
	for _, b := range bindings {
		for _, name := range b.flags {
			if !fs.Changed(name) {
				continue
			}
			if err := b.apply(dst, flagValue(fs.Lookup(name))); err != nil {
				return fmt.Errorf("--%s: %w", name, err)
			}
		}
	}
	return nil
}

// flagValue returns slice flags as []string and everything else in its string form.
func flagValue(f *pflag.Flag) any {
	if sv, ok := f.Value.(pflag.SliceValue); ok {
		return sv.GetSlice()
	}
	return f.Value.String()
}
