package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"github.com/JKQA10/http-benchmark/internal/metrics"
	"github.com/JKQA10/http-benchmark/internal/threshold"
)

var (
	colorBorder = lipgloss.Color("#3C3C3C")
	colorHeader = lipgloss.Color("#7D56F4")
	colorPass   = lipgloss.Color("#04B575")
	colorFail   = lipgloss.Color("#FF5F87")

	titleStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Foreground(colorHeader).Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
	passStyle   = lipgloss.NewStyle().Foreground(colorPass).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(colorFail).Bold(true)
)

var matrixHeaders = []string{
	"Concurrency",
	"Duration (s)",
	"Successful",
	"Errors",
	"Error Rate (%)",
	"RPS",
	"P50 (ms)",
	"P75 (ms)",
	"P95 (ms)",
	"P99 (ms)",
}

// PrintMatrix outputs a human-readable table with one row per concurrency level.
func PrintMatrix(w io.Writer, m metrics.Matrix) {
	fmt.Fprintln(w, titleStyle.Render("\n--- Load Test Results ---"))
	if m.RunID != "" {
		fmt.Fprintf(w, "Run:        %s\n", m.RunID)
	}
	fmt.Fprintf(w, "Target:     %s %s\n", m.Method, m.Target)
	fmt.Fprintf(w, "Mode:       %s (avg jitter %.2fms)\n", m.Mode, m.AvgJitterMs)
	if !m.StartedAt.IsZero() {
		fmt.Fprintf(w, "Started:    %s\n", m.StartedAt.Format("2006-01-02 15:04:05"))
	}

	if len(m.Rows) == 0 {
		fmt.Fprintln(w, "\nNo trials completed.")
		return
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return numberStyle
		}).
		Headers(matrixHeaders...).
		Rows(matrixRows(m.Rows)...)
	fmt.Fprintln(w, t.Render())

	if kinds := errorKindLines(m.Rows); len(kinds) > 0 {
		fmt.Fprintln(w, "\nErrors by kind:")
		for _, line := range kinds {
			fmt.Fprintln(w, line)
		}
	}
}

func matrixRows(rows []metrics.SummaryRow) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			strconv.Itoa(r.Concurrency),
			formatFloat(r.DurationSec),
			strconv.Itoa(r.Successful),
			strconv.Itoa(r.Errors),
			formatFloat(r.ErrorRatePercent()),
			formatFloat(r.RequestsPerSec),
			formatFloat(r.P50LatencyMs),
			formatFloat(r.P75LatencyMs),
			formatFloat(r.P95LatencyMs),
			formatFloat(r.P99LatencyMs),
		})
	}
	return out
}

func errorKindLines(rows []metrics.SummaryRow) []string {
	var lines []string
	for _, r := range rows {
		if len(r.ErrorKinds) == 0 && r.WorkerFaults == 0 {
			continue
		}
		kinds := make([]string, 0, len(r.ErrorKinds))
		for kind := range r.ErrorKinds {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		parts := make([]string, 0, len(kinds)+1)
		for _, kind := range kinds {
			parts = append(parts, fmt.Sprintf("%s=%d", kind, r.ErrorKinds[kind]))
		}
		if r.WorkerFaults > 0 {
			parts = append(parts, fmt.Sprintf("worker_faults=%d", r.WorkerFaults))
		}
		lines = append(lines, fmt.Sprintf("  c=%d: %s", r.Concurrency, strings.Join(parts, ", ")))
	}
	return lines
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, m metrics.Matrix) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}

// WriteYAML outputs the matrix as a YAML document.
func WriteYAML(w io.Writer, m metrics.Matrix) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return err
	}
	return enc.Close()
}

// PrintThresholdResults lists every threshold evaluation and a final verdict.
func PrintThresholdResults(w io.Writer, results []threshold.Result) {
	if len(results) == 0 {
		return
	}
	fmt.Fprintln(w, titleStyle.Render("\n--- Thresholds ---"))
	for _, r := range results {
		style := passStyle
		if !r.Pass {
			style = failStyle
		}
		fmt.Fprintf(w, "  %s\n", style.Render(r.Message))
	}
	if threshold.AllPassed(results) {
		fmt.Fprintln(w, passStyle.Render("All thresholds passed"))
		return
	}
	failed := 0
	for _, r := range results {
		if !r.Pass {
			failed++
		}
	}
	fmt.Fprintln(w, failStyle.Render(fmt.Sprintf("%d of %d threshold checks failed", failed, len(results))))
}
