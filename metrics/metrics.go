// Package metrics holds the Prometheus collectors of timberline.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for ingestion, serving and notifications.
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	FetchesTotal  *prometheus.CounterVec // labels: outcome=ok|http_error|network_error
	FetchDuration prometheus.Histogram

	// RowsSkippedTotal counts holdings rows dropped by extraction because they
	// carry no symbol (totals rows, blank rows, rows of an unknown shape).
	RowsSkippedTotal *prometheus.CounterVec // labels: format=html|json

	IngestRunsTotal  *prometheus.CounterVec // labels: result=success|failure
	LastSuccessfulAt prometheus.Gauge
	PositionsLatest  prometheus.Gauge

	HTTPRequestsTotal *prometheus.CounterVec // labels: route, status

	NotificationsTotal *prometheus.CounterVec // labels: result=sent|failed
}

// New creates the metrics and registers them on reg.
// Use prometheus.DefaultRegisterer in binaries and a fresh prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FetchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timberline_fetches_total",
			Help: "Total HTTP fetches against the aggregator, by outcome",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "timberline_fetch_duration_seconds",
			Help:    "Aggregator fetch latency",
			Buckets: prometheus.DefBuckets,
		}),
		RowsSkippedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timberline_extract_rows_skipped_total",
			Help: "Holdings rows skipped during extraction (no symbol), by payload format",
		}, []string{"format"}),
		IngestRunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timberline_ingest_runs_total",
			Help: "Ingestion runs, by result",
		}, []string{"result"}),
		LastSuccessfulAt: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "timberline_ingest_last_success_timestamp_seconds",
			Help: "Unix time of the last successful ingestion run",
		}),
		PositionsLatest: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "timberline_positions_latest",
			Help: "Number of positions in the latest published snapshot",
		}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timberline_http_requests_total",
			Help: "Requests served by the API, by route and status",
		}, []string{"route", "status"}),
		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timberline_notifications_total",
			Help: "Push notifications handed to the gateway, by result",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.FetchesTotal,
		m.FetchDuration,
		m.RowsSkippedTotal,
		m.IngestRunsTotal,
		m.LastSuccessfulAt,
		m.PositionsLatest,
		m.HTTPRequestsTotal,
		m.NotificationsTotal,
	)
	return m
}

// Fetch records one aggregator fetch.
func (m *Metrics) Fetch(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchesTotal.WithLabelValues(outcome).Inc()
	m.FetchDuration.Observe(d.Seconds())
}

// RowsSkipped records n rows skipped while extracting a payload of the given format.
func (m *Metrics) RowsSkipped(format string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RowsSkippedTotal.WithLabelValues(format).Add(float64(n))
}

// IngestRun records the outcome of an ingestion run. positions is the size of
// the latest snapshot, ignored on failure.
func (m *Metrics) IngestRun(err error, positions int) {
	if m == nil {
		return
	}
	if err != nil {
		m.IngestRunsTotal.WithLabelValues("failure").Inc()
		return
	}
	m.IngestRunsTotal.WithLabelValues("success").Inc()
	m.LastSuccessfulAt.SetToCurrentTime()
	m.PositionsLatest.Set(float64(positions))
}

// Request records one API request.
func (m *Metrics) Request(route string, status int) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// Notification records one push message handed (or not) to the gateway.
func (m *Metrics) Notification(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.NotificationsTotal.WithLabelValues("failed").Inc()
		return
	}
	m.NotificationsTotal.WithLabelValues("sent").Inc()
}
