package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the ROI tracker.
type Metrics struct {
	// ETL metrics
	ETLRuns            *prometheus.CounterVec
	ETLDuration        prometheus.Histogram
	ETLStepFailures    *prometheus.CounterVec
	TenantExtractions  *prometheus.CounterVec
	RowsExtracted      *prometheus.CounterVec
	AttributionRows    prometheus.Gauge
	MetricRows         prometheus.Gauge
	UnmatchedCalls     prometheus.Gauge
	DuplicateAdKeys    prometheus.Gauge

	// HTTP metrics
	HTTPRequests  *prometheus.CounterVec
	HTTPLatency   *prometheus.HistogramVec
	RateLimitHits prometheus.Counter
	CacheHits     *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ETLRuns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "etl_runs_total",
				Help:      "Total number of pipeline runs by result",
			},
			[]string{"result"},
		),
		ETLDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "etl_run_duration_seconds",
				Help:      "Duration of full pipeline runs",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
			},
		),
		ETLStepFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "etl_step_failures_total",
				Help:      "Pipeline step failures by step",
			},
			[]string{"step"},
		),
		TenantExtractions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tenant_extractions_total",
				Help:      "Per-tenant extraction attempts by platform and result",
			},
			[]string{"platform", "result"},
		),
		RowsExtracted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ad_rows_extracted_total",
				Help:      "Ad rows extracted by platform",
			},
			[]string{"platform"},
		),
		AttributionRows: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "attribution_rows",
				Help:      "Attribution rows produced by the last merge",
			},
		),
		MetricRows: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "roi_metric_rows",
				Help:      "ROI metric groups produced by the last aggregation",
			},
		),
		UnmatchedCalls: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "unmatched_calls",
				Help:      "Calls with no matching ad row in the last merge",
			},
		),
		DuplicateAdKeys: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "duplicate_ad_utm_keys",
				Help:      "Normalized UTM keys shared by more than one ad row in the last merge",
			},
		),
		HTTPRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by path and status",
			},
			[]string{"path", "status"},
		),
		HTTPLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by path",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"path"},
		),
		RateLimitHits: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Requests rejected by the rate limiter",
			},
		),
		CacheHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dashboard_cache_requests_total",
				Help:      "Dashboard cache lookups by result",
			},
			[]string{"result"},
		),
	}
}

// ObserveRun records the outcome and duration of a pipeline run.
func (m *Metrics) ObserveRun(ok bool, d time.Duration) {
	result := "ok"
	if !ok {
		result = "error"
	}
	m.ETLRuns.WithLabelValues(result).Inc()
	m.ETLDuration.Observe(d.Seconds())
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
