package config

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/JKQA10/http-benchmark/internal/jitter"
)

// ErrHelpRequested is returned when usage was printed instead of loading a config.
var ErrHelpRequested = errors.New("help requested")

// Loader builds a Config from an optional config file and command-line arguments.
type Loader struct{}

func NewLoader() *Loader {
	return &Loader{}
}

// Load resolves settings in increasing precedence: defaults, the --config
// file, then flags. The positional URL and --target are interchangeable.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	fs := cmd.Flags()
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	configPath, _ := fs.GetString("config")
	if len(args) == 0 && configPath == "" {
		displayHelp(cmd)
		return nil, ErrHelpRequested
	}

	cfg := defaultConfig()
	cfg.ConfigFile = configPath
	if configPath != "" {
		settings, err := readConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := applySettings(cfg, configBindings, settings); err != nil {
			return nil, fmt.Errorf("config %s: %w", configPath, err)
		}
	}

	if err := applyFlagOverrides(cfg, fs); err != nil {
		return nil, err
	}
	if err := applyPositionalTarget(cfg, fs); err != nil {
		return nil, err
	}

	cfg.normalize()
	return cfg, nil
}

// readConfigFile loads a YAML, JSON or TOML file; the format follows the extension.
func readConfigFile(path string) (map[string]any, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return v.AllSettings(), nil
}

func defaultConfig() *Config {
	return &Config{
		Method:    http.MethodGet,
		Headers:   map[string]string{},
		Duration:  defaultDuration,
		Mode:      jitter.DefaultMode,
		AvgJitter: defaultAvgJitter,
		Timeout:   defaultTimeout,
		LogLevel:  "info",
		LogFormat: "console",
		Output:    OutputTable,
		Tracing: TracingConfig{
			Protocol:   "grpc",
			SampleRate: 1.0,
		},
	}
}

func applyPositionalTarget(cfg *Config, fs *pflag.FlagSet) error {
	positional := fs.Args()
	if len(positional) == 0 {
		return nil
	}
	if len(positional) > 1 {
		return fmt.Errorf("expected a single target URL, got %d arguments: %s", len(positional), strings.Join(positional, " "))
	}
	target := strings.TrimSpace(positional[0])
	if fs.Changed("target") && cfg.TargetURL != target {
		return fmt.Errorf("target given twice: --target %q and argument %q", cfg.TargetURL, target)
	}
	cfg.TargetURL = target
	return nil
}

func (c *Config) normalize() {
	c.Method = strings.ToUpper(strings.TrimSpace(c.Method))
	c.TargetURL = strings.TrimSpace(c.TargetURL)
	if c.Mode == "" {
		c.Mode = jitter.DefaultMode
	}
	if c.Headers == nil {
		c.Headers = map[string]string{}
	}
}
