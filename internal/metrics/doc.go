// Package metrics records per-request outcomes and reduces them into summary rows.
//
// A [Collector] is created for every trial. Workers append [Outcome] values to it
// concurrently; once all workers have joined, [Collector.Freeze] hands the
// outcomes off as a [TrialResult], which [Summarize] reduces into a [SummaryRow]:
//
//	collector := metrics.NewCollector()
//	collector.Record(outcome) // from any goroutine
//	result := metrics.TrialResult{Concurrency: 10, Outcomes: collector.Freeze()}
//	row := metrics.Summarize(result)
//
// # Percentiles
//
// Summary percentiles are computed exactly over the latencies of successful
// outcomes using linear interpolation between the closest order statistics
// (see [Percentile]). Failed requests never contribute. When a trial has no
// successful requests every percentile is reported as zero.
//
// The collector also keeps an HDR histogram so that progress reporters can show
// approximate live quantiles while a trial is still running.
//
// # Export
//
// [Exporter] publishes finished rows as Prometheus gauges and can write them in
// the node-exporter textfile format.
package metrics
