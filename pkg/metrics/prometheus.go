// Package metrics provides Prometheus metrics for the tradeboard pipeline.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the pipeline.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Ingestion
	rowsRead      prometheus.Counter
	rowsInvalid   prometheus.Counter
	tradeRows     prometheus.Counter
	duplicateRows prometheus.Counter
	droppedRows   prometheus.Counter

	// Metrics engine
	accountsComputed prometheus.Counter
	accountsFailed   prometheus.Counter

	// Ranking
	accountsRanked  prometheus.Gauge
	leaderboardSize prometheus.Gauge

	// Stage timings and failures
	stageDuration *prometheus.HistogramVec
	stageRuns     *prometheus.CounterVec
	errorsByKind  *prometheus.CounterVec

	// HTTP (serve mode)
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "tradeboard",
		subsystem:        "pipeline",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.rowsRead = m.counter("rows_read_total", "Account rows read from the input source")
	m.rowsInvalid = m.counter("rows_invalid_total", "Account rows removed because the trade history could not be decoded")
	m.tradeRows = m.counter("trade_rows_total", "Trade rows surviving flattening and cleaning")
	m.duplicateRows = m.counter("duplicate_rows_total", "Exact-duplicate trade rows removed")
	m.droppedRows = m.counter("dropped_rows_total", "Trade rows dropped for missing or non-finite values")

	m.accountsComputed = m.counter("accounts_computed_total", "Accounts whose metrics were computed")
	m.accountsFailed = m.counter("accounts_failed_total", "Accounts skipped because their metrics could not be computed")

	m.accountsRanked = m.gauge("accounts_ranked", "Accounts ranked in the last batch")
	m.leaderboardSize = m.gauge("leaderboard_size", "Rows selected into the last leaderboard")

	m.stageDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "stage_duration_milliseconds",
		Help:        "Duration of each pipeline stage in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"stage"})

	m.stageRuns = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "stage_runs_total",
		Help:        "Pipeline stage executions by outcome",
		ConstLabels: m.constLabels,
	}, []string{"stage", "outcome"})

	m.errorsByKind = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "errors_total",
		Help:        "Errors by component and kind",
		ConstLabels: m.constLabels,
	}, []string{"component", "kind"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        "requests_total",
		Help:        "Total number of HTTP requests by endpoint and method",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        "request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})
}

// AddRowsRead adds n account rows read from the source.
func AddRowsRead(n int) { globalManager.rowsRead.Add(float64(n)) }

// AddRowsInvalid adds n account rows removed for undecodable history.
func AddRowsInvalid(n int) { globalManager.rowsInvalid.Add(float64(n)) }

// AddTradeRows adds n clean trade rows.
func AddTradeRows(n int) { globalManager.tradeRows.Add(float64(n)) }

// AddDuplicateRows adds n removed duplicate rows.
func AddDuplicateRows(n int) { globalManager.duplicateRows.Add(float64(n)) }

// AddDroppedRows adds n rows dropped during cleaning.
func AddDroppedRows(n int) { globalManager.droppedRows.Add(float64(n)) }

// AddAccountsComputed adds n accounts with computed metrics.
func AddAccountsComputed(n int) { globalManager.accountsComputed.Add(float64(n)) }

// AddAccountsFailed adds n skipped accounts.
func AddAccountsFailed(n int) { globalManager.accountsFailed.Add(float64(n)) }

// UpdateAccountsRanked sets the number of accounts ranked in the last batch.
func UpdateAccountsRanked(n int) { globalManager.accountsRanked.Set(float64(n)) }

// UpdateLeaderboardSize sets the number of rows selected into the leaderboard.
func UpdateLeaderboardSize(n int) { globalManager.leaderboardSize.Set(float64(n)) }

// RecordStageDuration records the duration of a pipeline stage.
func RecordStageDuration(stage string, durationMs float64) {
	globalManager.stageDuration.WithLabelValues(stage).Observe(durationMs)
}

// RecordStageRun counts a stage execution with its outcome ("ok" or "error").
func RecordStageRun(stage, outcome string) {
	globalManager.stageRuns.WithLabelValues(stage, outcome).Inc()
}

// RecordErrorByComponent records an error with component and kind labels.
func RecordErrorByComponent(component, kind string) {
	globalManager.errorsByKind.WithLabelValues(component, kind).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// WriteTextfile writes the custom registry in the Prometheus text format.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, customRegistry); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWriteTextfile, path, err)
	}
	return nil
}
