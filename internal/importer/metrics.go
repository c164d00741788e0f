package importer

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the import progress metrics. They live on their own registry
// so that the importer does not collide with the API server metrics.
type Metrics struct {
	rowsProcessed prometheus.Counter
	rowsSkipped   *prometheus.CounterVec
	rowsFailed    *prometheus.CounterVec
	createLatency prometheus.Histogram
	cursorFile    prometheus.Gauge
	cursorRow     prometheus.Gauge
}

// NewMetrics creates the import metrics and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		rowsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "venuedex_import",
			Name:      "rows_processed_total",
			Help:      "Places imported as stores",
		}),
		rowsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "venuedex_import",
			Name:      "rows_skipped_total",
			Help:      "Places that cannot become stores",
		}, []string{"reason"}),
		rowsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "venuedex_import",
			Name:      "rows_failed_total",
			Help:      "Places whose store creation failed",
		}, []string{"reason"}),
		createLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "venuedex_import",
			Name:      "create_duration_seconds",
			Help:      "Store creation latency",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		cursorFile: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "venuedex_import",
			Name:      "cursor_file_index",
			Help:      "Current cursor file index",
		}),
		cursorRow: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "venuedex_import",
			Name:      "cursor_row_offset",
			Help:      "Current cursor row offset",
		}),
	}

	reg.MustRegister(
		m.rowsProcessed, m.rowsSkipped, m.rowsFailed,
		m.createLatency, m.cursorFile, m.cursorRow,
	)
	return m
}
