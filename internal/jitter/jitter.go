// Package jitter computes the delay a worker waits between two requests.
package jitter

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Mode selects the inter-request delay distribution.
type Mode string

const (
	// ModeBurst issues requests back-to-back with no delay.
	ModeBurst Mode = "burst"
	// ModeUniform draws delays uniformly from [0, 2*avg).
	ModeUniform Mode = "uniform"
	// ModeExponential draws delays from an exponential distribution with mean avg,
	// which models independent (Poisson) arrivals.
	ModeExponential Mode = "exponential"
)

// DefaultMode is used when no mode is configured.
const DefaultMode = ModeExponential

// Source provides the random variates used by NextDelay.
// *rand.Rand satisfies it; it is not required to be safe for concurrent use,
// so each worker should own one.
type Source interface {
	Float64() float64
	ExpFloat64() float64
}

// ParseMode converts a user supplied mode name. An empty string yields DefaultMode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return DefaultMode, nil
	case ModeBurst, ModeUniform, ModeExponential:
		return m, nil
	default:
		return "", fmt.Errorf("unsupported mode %q (use burst, uniform or exponential)", s)
	}
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeBurst, ModeUniform, ModeExponential:
		return true
	}
	return false
}

func (m Mode) String() string { return string(m) }

// NextDelay returns the delay to wait before the next request.
// Burst mode and a non-positive avg always yield zero.
func NextDelay(mode Mode, avg time.Duration, src Source) time.Duration {
	if avg <= 0 || src == nil {
		return 0
	}
	var delay float64
	switch mode {
	case ModeUniform:
		delay = src.Float64() * 2 * float64(avg)
	case ModeExponential:
		delay = src.ExpFloat64() * float64(avg)
	default:
		return 0
	}
	// float64(math.MaxInt64) rounds up to 2^63, which does not fit.
	if delay >= math.MaxInt64 {
		return math.MaxInt64
	}
	return time.Duration(delay)
}
