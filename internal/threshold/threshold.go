// Package threshold evaluates pass/fail assertions such as
// "http_req_duration:p95 < 250" against benchmark summary rows.
package threshold

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/JKQA10/http-benchmark/internal/metrics"
)

// Threshold is one parsed assertion.
type Threshold struct {
	Metric    string
	Aggregate string
	Operator  string
	Value     float64
	Raw       string
}

// Result is a Threshold checked against the row of one concurrency level.
type Result struct {
	Threshold   Threshold
	Concurrency int
	Actual      float64
	Pass        bool
	Message     string
}

type extractor func(metrics.SummaryRow) float64

// extractors maps metric name and aggregate to the row value they select.
// Latencies are in milliseconds and rates are fractions or requests/sec.
var extractors = map[string]map[string]extractor{
	"http_req_duration": {
		"p50":  func(r metrics.SummaryRow) float64 { return r.P50LatencyMs },
		"p75":  func(r metrics.SummaryRow) float64 { return r.P75LatencyMs },
		"p95":  func(r metrics.SummaryRow) float64 { return r.P95LatencyMs },
		"p99":  func(r metrics.SummaryRow) float64 { return r.P99LatencyMs },
		"avg":  func(r metrics.SummaryRow) float64 { return r.MeanLatencyMs },
		"mean": func(r metrics.SummaryRow) float64 { return r.MeanLatencyMs },
		"max":  func(r metrics.SummaryRow) float64 { return r.MaxLatencyMs },
	},
	"http_req_failed": {
		"rate":  func(r metrics.SummaryRow) float64 { return r.ErrorRate },
		"count": func(r metrics.SummaryRow) float64 { return float64(r.Errors) },
	},
	"http_requests": {
		"rate":  func(r metrics.SummaryRow) float64 { return r.RequestsPerSec },
		"count": func(r metrics.SummaryRow) float64 { return float64(r.Total()) },
	},
}

const epsilon = 1e-9

var operators = map[string]func(actual, want float64) bool{
	"<":  func(a, w float64) bool { return a < w },
	"<=": func(a, w float64) bool { return a < w || math.Abs(a-w) < epsilon },
	">":  func(a, w float64) bool { return a > w },
	">=": func(a, w float64) bool { return a > w || math.Abs(a-w) < epsilon },
	"==": func(a, w float64) bool { return math.Abs(a-w) < epsilon },
}

var rulePattern = regexp.MustCompile(`^(\w+):(\w+)\s*([<>=!]+)\s*(\S+)$`)

// Parse reads a rule in "metric:aggregate operator value" form.
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, errors.New("empty threshold")
	}
	m := rulePattern.FindStringSubmatch(s)
	if m == nil {
		return Threshold{}, fmt.Errorf("invalid threshold %q: want \"metric:aggregate operator value\", e.g. \"http_req_duration:p95 < 500\"", s)
	}
	t := Threshold{Metric: m[1], Aggregate: m[2], Operator: m[3], Raw: s}

	aggregates, ok := extractors[t.Metric]
	if !ok {
		return Threshold{}, fmt.Errorf("unsupported metric %q (supported: %s)", t.Metric, strings.Join(names(extractors), ", "))
	}
	if _, ok := aggregates[t.Aggregate]; !ok {
		return Threshold{}, fmt.Errorf("unsupported aggregate %q for %s (supported: %s)", t.Aggregate, t.Metric, strings.Join(names(aggregates), ", "))
	}
	if _, ok := operators[t.Operator]; !ok {
		return Threshold{}, fmt.Errorf("unsupported operator %q (supported: <, <=, >, >=, ==)", t.Operator)
	}
	v, err := strconv.ParseFloat(m[4], 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return Threshold{}, fmt.Errorf("invalid threshold value %q", m[4])
	}
	t.Value = v
	return t, nil
}

// ParseMultiple parses every rule and reports all malformed ones together.
func ParseMultiple(rules []string) ([]Threshold, error) {
	if len(rules) == 0 {
		return nil, nil
	}
	out := make([]Threshold, 0, len(rules))
	var errs []error
	for i, raw := range rules {
		t, err := Parse(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("threshold[%d]: %w", i, err))
			continue
		}
		out = append(out, t)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}

func names[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Check evaluates t against row.
func (t Threshold) Check(row metrics.SummaryRow) Result {
	res := Result{Threshold: t, Concurrency: row.Concurrency}
	extract, ok := extractors[t.Metric][t.Aggregate]
	compare, okOp := operators[t.Operator]
	if !ok || !okOp {
		res.Message = fmt.Sprintf("✗ [c=%d] %s: not evaluable", row.Concurrency, t.Raw)
		return res
	}
	res.Actual = extract(row)
	res.Pass = compare(res.Actual, t.Value)
	mark := "✓"
	if !res.Pass {
		mark = "✗"
	}
	res.Message = fmt.Sprintf("%s [c=%d] %s: %.2f %s %.2f", mark, row.Concurrency, t.Raw, res.Actual, t.Operator, t.Value)
	return res
}

// Evaluator checks a fixed set of thresholds.
type Evaluator struct {
	thresholds []Threshold
}

func NewEvaluator(thresholds []Threshold) *Evaluator {
	return &Evaluator{thresholds: thresholds}
}

// Evaluate checks every threshold against one row.
func (e *Evaluator) Evaluate(row metrics.SummaryRow) []Result {
	var results []Result
	for _, t := range e.thresholds {
		results = append(results, t.Check(row))
	}
	return results
}

// EvaluateMatrix checks every threshold against every row, row by row.
func (e *Evaluator) EvaluateMatrix(m metrics.Matrix) []Result {
	var results []Result
	for _, row := range m.Rows {
		results = append(results, e.Evaluate(row)...)
	}
	return results
}

// AllPassed reports whether no result failed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Pass {
			return false
		}
	}
	return true
}
