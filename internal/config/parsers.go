// Package config loads benchmark settings from command-line flags and an optional config file.
package config

import (
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/JKQA10/http-benchmark/internal/jitter"
)

// lookupSetting returns the first of keys present in settings. Viper lowercases
// file keys, so keys are matched in lowercase as well.
func lookupSetting(settings map[string]any, keys ...string) (any, bool) {
	for _, key := range keys {
		if val, ok := settings[key]; ok {
			return val, true
		}
		if val, ok := settings[strings.ToLower(key)]; ok {
			return val, true
		}
	}
	return nil, false
}

func toTrimmedString(raw any) (string, error) {
	s, err := cast.ToStringE(raw)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(s), nil
}

func toMode(raw any) (jitter.Mode, error) {
	s, err := toTrimmedString(raw)
	if err != nil {
		return "", err
	}
	return jitter.Mode(strings.ToLower(s)), nil
}

func toOutputFormat(raw any) (OutputFormat, error) {
	s, err := toTrimmedString(raw)
	if err != nil {
		return "", err
	}
	return OutputFormat(strings.ToLower(s)), nil
}

// durationIn returns a converter for duration settings. Values with a unit
// suffix ("250ms", "1m") are parsed as Go durations; bare numbers are counted
// in unit.
func durationIn(unit time.Duration) func(any) (time.Duration, error) {
	return func(raw any) (time.Duration, error) {
		switch v := raw.(type) {
		case nil:
			return 0, nil
		case time.Duration:
			return v, nil
		case string:
			v = strings.TrimSpace(v)
			if v == "" {
				return 0, nil
			}
			raw = v
		}
		if f, err := cast.ToFloat64E(raw); err == nil {
			return time.Duration(f * float64(unit)), nil
		}
		if _, ok := raw.(string); !ok {
			return 0, fmt.Errorf("unsupported duration type %T", raw)
		}
		return cast.ToDurationE(raw)
	}
}

// toIntSlice accepts lists, a single number, or a comma separated string.
func toIntSlice(raw any) ([]int, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		var parts []string
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				parts = append(parts, part)
			}
		}
		return cast.ToIntSliceE(parts)
	}
	if kind := reflect.TypeOf(raw).Kind(); kind == reflect.Slice || kind == reflect.Array {
		return cast.ToIntSliceE(raw)
	}
	n, err := cast.ToIntE(raw)
	if err != nil {
		return nil, err
	}
	return []int{n}, nil
}

// toStringList keeps a single string intact instead of splitting it on whitespace.
func toStringList(raw any) ([]string, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{v}, nil
	}
	return cast.ToStringSliceE(raw)
}

// toHeaders accepts a key/value map or a list of "Key: Value" strings.
// Keys are canonicalized.
func toHeaders(raw any) (map[string]string, error) {
	if raw == nil {
		return nil, nil
	}
	if m, err := cast.ToStringMapStringE(raw); err == nil {
		out := make(map[string]string, len(m))
		for k, v := range m {
			if strings.TrimSpace(k) == "" {
				return nil, fmt.Errorf("header key cannot be empty")
			}
			out[http.CanonicalHeaderKey(strings.TrimSpace(k))] = v
		}
		return out, nil
	}
	lines, err := toStringList(raw)
	if err != nil {
		return nil, fmt.Errorf("unsupported headers type %T", raw)
	}
	out := make(map[string]string, len(lines))
	for _, line := range lines {
		key, value, err := parseHeader(line)
		if err != nil {
			return nil, err
		}
		out[key] = value
	}
	return out, nil
}

// parseHeader splits a curl style "Key: Value" header.
func parseHeader(raw string) (string, string, error) {
	key, value, ok := strings.Cut(raw, ":")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", "", fmt.Errorf("header %q must be in \"Key: Value\" form", raw)
	}
	return http.CanonicalHeaderKey(key), strings.TrimSpace(value), nil
}
