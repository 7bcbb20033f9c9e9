// Package metrics provides Prometheus instrumentation for ingestion and
// export of instrument data.
//
// # Overview
//
// The package-level vectors are registered with the default registry by
// promauto and labelled by file format. Components usually go through a
// Collector, which also keeps plain per-run totals for Metrics() reports:
//
//	c := metrics.NewCollector("squid")
//	c.RowIngested()
//	c.RowSkipped("short_row")
//	c.ObserveIngest(time.Since(start))
//	c.GetAll()["rows"] // 1
//
// # Metric Types
//
// Counter: rows ingested, rows skipped, filled fields, reallocations, curves written
// Histogram: ingest and export durations
// Gauge: ingest throughput
package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RowsIngested counts data rows appended to a curve.
	// Labels: format
	RowsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asciidata_rows_ingested_total",
			Help: "Total number of data rows ingested",
		},
		[]string{"format"},
	)

	// RowsSkipped counts lines that could not be turned into a row.
	// Labels: format, reason
	RowsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asciidata_rows_skipped_total",
			Help: "Total number of data lines skipped",
		},
		[]string{"format", "reason"},
	)

	// FieldsFilled counts fields replaced by the fill value.
	// Labels: format
	FieldsFilled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asciidata_fields_filled_total",
			Help: "Total number of unparsable fields replaced by the fill value",
		},
		[]string{"format"},
	)

	// ChunkReallocations counts capacity growth of ingested curves.
	// Labels: format
	ChunkReallocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asciidata_chunk_reallocations_total",
			Help: "Total number of chunk reallocations during ingestion",
		},
		[]string{"format"},
	)

	// IngestDuration tracks the time to ingest one file in seconds.
	// Labels: format
	IngestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "asciidata_ingest_duration_seconds",
			Help:    "Time to ingest one data file",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		},
		[]string{"format"},
	)

	// CurvesWritten counts exported curves.
	// Labels: format, status (success/failure)
	CurvesWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asciidata_curves_written_total",
			Help: "Total number of curves exported",
		},
		[]string{"format", "status"},
	)

	// ExportDuration tracks the time to export one curve in seconds.
	// Labels: format
	ExportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "asciidata_export_duration_seconds",
			Help:    "Time to export one curve",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		},
		[]string{"format"},
	)

	// Throughput tracks ingested rows per second.
	// Labels: format
	Throughput = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "asciidata_throughput_rows_per_second",
			Help: "Current ingestion throughput in rows per second",
		},
		[]string{"format"},
	)
)

// Handler exposes the default registry for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Collector records the metrics of one component. It forwards to the
// Prometheus vectors and keeps its own totals for reporting.
// Safe for concurrent use.
type Collector struct {
	format    string
	startTime time.Time

	rows          atomic.Int64
	filled        atomic.Int64
	reallocations atomic.Int64
	written       atomic.Int64

	mu      sync.Mutex
	skipped map[string]int64
}

// NewCollector creates a collector labelled with format.
func NewCollector(format string) *Collector {
	return &Collector{
		format:    format,
		startTime: time.Now(),
		skipped:   make(map[string]int64),
	}
}

// Format returns the label of the collector.
func (c *Collector) Format() string { return c.format }

// RowIngested records one appended row.
func (c *Collector) RowIngested() {
	c.rows.Add(1)
	RowsIngested.WithLabelValues(c.format).Inc()
}

// RowSkipped records one dropped line.
func (c *Collector) RowSkipped(reason string) {
	c.mu.Lock()
	c.skipped[reason]++
	c.mu.Unlock()
	RowsSkipped.WithLabelValues(c.format, reason).Inc()
}

// FieldsFilled records n fields replaced by the fill value.
func (c *Collector) FieldsFilled(n int) {
	if n <= 0 {
		return
	}
	c.filled.Add(int64(n))
	FieldsFilled.WithLabelValues(c.format).Add(float64(n))
}

// Reallocations records n capacity growths.
func (c *Collector) Reallocations(n int) {
	if n <= 0 {
		return
	}
	c.reallocations.Add(int64(n))
	ChunkReallocations.WithLabelValues(c.format).Add(float64(n))
}

// ObserveIngest records the duration of one ingestion.
func (c *Collector) ObserveIngest(d time.Duration) {
	IngestDuration.WithLabelValues(c.format).Observe(d.Seconds())
}

// CurveWritten records one export attempt.
func (c *Collector) CurveWritten(d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	} else {
		c.written.Add(1)
	}
	CurvesWritten.WithLabelValues(c.format, status).Inc()
	ExportDuration.WithLabelValues(c.format).Observe(d.Seconds())
}

// Skipped returns the total number of skipped lines.
func (c *Collector) Skipped() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	for _, v := range c.skipped {
		n += v
	}
	return n
}

// GetAll returns all current totals.
func (c *Collector) GetAll() map[string]interface{} {
	c.mu.Lock()
	skipped := make(map[string]int64, len(c.skipped))
	for k, v := range c.skipped {
		skipped[k] = v
	}
	c.mu.Unlock()

	return map[string]interface{}{
		"format":         c.format,
		"rows":           c.rows.Load(),
		"skipped":        skipped,
		"filled":         c.filled.Load(),
		"reallocations":  c.reallocations.Load(),
		"curves_written": c.written.Load(),
		"uptime_seconds": time.Since(c.startTime).Seconds(),
	}
}

// Timer measures the duration of an operation.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
//
// Example:
//
//	timer := metrics.NewTimer("ingest")
//	curve, err := reader.Read(ctx, r)
//	collector.ObserveIngest(timer.Stop())
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Name returns the timer name.
func (t *Timer) Name() string { return t.name }

// Stop returns the elapsed duration since creation. It can be called
// multiple times.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// ThroughputTracker tracks rows per second over time windows.
// Thread-safe for concurrent use.
type ThroughputTracker struct {
	mu        sync.Mutex
	count     int64
	lastReset time.Time
	format    string
}

// NewThroughputTracker creates a tracker reporting under format. Hot
// readers use it to publish the live acquisition rate.
func NewThroughputTracker(format string) *ThroughputTracker {
	return &ThroughputTracker{
		lastReset: time.Now(),
		format:    format,
	}
}

// Increment adds n to the row count.
func (t *ThroughputTracker) Increment(n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count += n
}

// GetAndReset computes rows per second since the last reset, publishes it
// and starts a new window.
func (t *ThroughputTracker) GetAndReset() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := time.Since(t.lastReset).Seconds()
	if elapsed == 0 {
		return 0
	}

	throughput := float64(t.count) / elapsed
	t.count = 0
	t.lastReset = time.Now()

	Throughput.WithLabelValues(t.format).Set(throughput)
	return throughput
}
