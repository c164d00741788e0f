package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Query and store-write Prometheus metrics.
var (
	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "venuedex",
			Name:      "query_duration_seconds",
			Help:      "Store query duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)

	QueryErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "venuedex",
			Name:      "query_errors_total",
			Help:      "Total failed store queries",
		},
		[]string{"operation"},
	)

	QueryResults = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "venuedex",
			Name:      "query_results",
			Help:      "Number of results returned per query",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		},
		[]string{"operation"},
	)

	SlugConflictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "venuedex",
			Name:      "slug_conflicts_total",
			Help:      "Slug claims lost to a concurrent writer",
		},
		[]string{"outcome"}, // "retried" / "exhausted"
	)
)

var queryMetricsRegistered bool

// RegisterQueryMetrics registers Prometheus query metrics. Must be called once from main.
func RegisterQueryMetrics() {
	if queryMetricsRegistered {
		return
	}
	prometheus.MustRegister(QueryDuration)
	prometheus.MustRegister(QueryErrorsTotal)
	prometheus.MustRegister(QueryResults)
	prometheus.MustRegister(SlugConflictsTotal)
	queryMetricsRegistered = true
}

// ObserveQuery records duration, outcome and result size of one query.
func ObserveQuery(operation string, start time.Time, results int, err error) {
	QueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		QueryErrorsTotal.WithLabelValues(operation).Inc()
		return
	}
	QueryResults.WithLabelValues(operation).Observe(float64(results))
}
