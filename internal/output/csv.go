package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/gofrs/flock"

	"github.com/JKQA10/http-benchmark/internal/metrics"
)

var csvHeader = []string{
	"run_id",
	"started_at",
	"target",
	"method",
	"mode",
	"avg_jitter_ms",
	"concurrency",
	"duration_s",
	"successful",
	"errors",
	"error_rate_pct",
	"requests_per_sec",
	"p50_ms",
	"p75_ms",
	"p95_ms",
	"p99_ms",
}

// AppendCSV appends one line per row of m to path, writing the header first
// when the file is new or empty. Concurrent writers are serialized through an
// advisory lock on path + ".lock".
func AppendCSV(path string, m metrics.Matrix) error {
	if path == "" {
		return fmt.Errorf("csv output path is empty")
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", path, err)
	}
	defer lock.Unlock()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open csv output: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat csv output: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(csvHeader); err != nil {
			return err
		}
	}
	for _, row := range m.Rows {
		if err := w.Write(csvRecord(m, row)); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write csv output: %w", err)
	}
	return f.Close()
}

func csvRecord(m metrics.Matrix, row metrics.SummaryRow) []string {
	started := ""
	if !m.StartedAt.IsZero() {
		started = m.StartedAt.UTC().Format("2006-01-02T15:04:05Z")
	}
	return []string{
		m.RunID,
		started,
		m.Target,
		m.Method,
		m.Mode,
		formatFloat(m.AvgJitterMs),
		strconv.Itoa(row.Concurrency),
		formatFloat(row.DurationSec),
		strconv.Itoa(row.Successful),
		strconv.Itoa(row.Errors),
		formatFloat(row.ErrorRatePercent()),
		formatFloat(row.RequestsPerSec),
		formatFloat(row.P50LatencyMs),
		formatFloat(row.P75LatencyMs),
		formatFloat(row.P95LatencyMs),
		formatFloat(row.P99LatencyMs),
	}
}
