// Package metrics provides Prometheus metrics collection
package metrics

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/carveframework/carve/infrastructure/runtime"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	// HTTP metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Error metrics
	ErrorsTotal *prometheus.CounterVec

	// Check / probe metrics
	ChecksTotal        *prometheus.CounterVec
	CheckDuration      *prometheus.HistogramVec
	CheckFailuresTotal *prometheus.CounterVec
	ChecksInFlight     prometheus.Gauge

	// Scoring / ledger metrics
	LedgerWritesTotal  *prometheus.CounterVec
	TeamScoreCurrent   *prometheus.GaugeVec

	// Box event channel metrics
	BoxEventsPublishedTotal *prometheus.CounterVec
	BoxEventsCooldownTotal  *prometheus.CounterVec

	// Overlay fabric metrics
	OverlayAllocationsTotal *prometheus.CounterVec
	FDBEntriesCurrent       *prometheus.GaugeVec

	// Competition lifecycle
	CompetitionStateTransitionsTotal *prometheus.CounterVec

	// Store (Redis) metrics
	StoreOperationsTotal  *prometheus.CounterVec
	StoreOperationLatency *prometheus.HistogramVec

	// Service health
	ServiceUptime prometheus.Gauge
	ServiceInfo   *prometheus.GaugeVec
}

// New creates a new Metrics instance with all collectors registered
func New(serviceName string) *Metrics {
	return NewWithRegistry(serviceName, prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a new Metrics instance with a custom registry
func NewWithRegistry(serviceName string, registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"service", "method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"service", "method", "path"},
		),
		RequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Current number of HTTP requests being processed",
			},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "errors_total",
				Help: "Total number of errors",
			},
			[]string{"service", "type", "operation"},
		),

		ChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "check_runs_total",
				Help: "Total number of check executions, by outcome",
			},
			[]string{"check", "team", "status"},
		),
		CheckDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "check_run_duration_seconds",
				Help:    "Duration of a single check execution",
				Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10, 30},
			},
			[]string{"check", "type"},
		),
		CheckFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "check_consecutive_failures_total",
				Help: "Total number of consecutive check failures recorded",
			},
			[]string{"check", "team"},
		),
		ChecksInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "checks_in_flight",
				Help: "Current number of probes being executed",
			},
		),

		LedgerWritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_writes_total",
				Help: "Total number of scoring ledger entries written",
			},
			[]string{"competition", "team", "check"},
		),
		TeamScoreCurrent: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "team_score_current",
				Help: "Current projected score for a team",
			},
			[]string{"competition", "team"},
		),

		BoxEventsPublishedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "box_events_published_total",
				Help: "Total number of box commands published",
			},
			[]string{"competition", "command"},
		),
		BoxEventsCooldownTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "box_events_cooldown_rejected_total",
				Help: "Total number of box commands rejected due to an active cooldown or the dispatch rate limit",
			},
			[]string{"competition", "command"},
		),

		OverlayAllocationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "overlay_allocations_total",
				Help: "Total number of VXLAN overlay allocations performed",
			},
			[]string{"competition", "kind"},
		),
		FDBEntriesCurrent: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "overlay_fdb_entries_current",
				Help: "Current number of forwarding database entries tracked",
			},
			[]string{"competition"},
		),

		CompetitionStateTransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "competition_state_transitions_total",
				Help: "Total number of competition lifecycle transitions",
			},
			[]string{"competition", "from", "to"},
		),

		StoreOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "store_operations_total",
				Help: "Total number of shared-state store operations",
			},
			[]string{"operation", "status"},
		),
		StoreOperationLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "store_operation_duration_seconds",
				Help:    "Latency of shared-state store operations",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5},
			},
			[]string{"operation"},
		),

		ServiceUptime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "service_uptime_seconds",
				Help: "Service uptime in seconds",
			},
		),
		ServiceInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "service_info",
				Help: "Service information",
			},
			[]string{"service", "version", "environment"},
		),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.RequestsTotal,
			m.RequestDuration,
			m.RequestsInFlight,
			m.ErrorsTotal,
			m.ChecksTotal,
			m.CheckDuration,
			m.CheckFailuresTotal,
			m.ChecksInFlight,
			m.LedgerWritesTotal,
			m.TeamScoreCurrent,
			m.BoxEventsPublishedTotal,
			m.BoxEventsCooldownTotal,
			m.OverlayAllocationsTotal,
			m.FDBEntriesCurrent,
			m.CompetitionStateTransitionsTotal,
			m.StoreOperationsTotal,
			m.StoreOperationLatency,
			m.ServiceUptime,
			m.ServiceInfo,
		)
	}

	m.ServiceInfo.WithLabelValues(serviceName, "1.0.0", getEnvironment()).Set(1)

	return m
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(service, method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(service, method, path, status).Inc()
	m.RequestDuration.WithLabelValues(service, method, path).Observe(duration.Seconds())
}

// RecordError records an error
func (m *Metrics) RecordError(service, errorType, operation string) {
	m.ErrorsTotal.WithLabelValues(service, errorType, operation).Inc()
}

// RecordCheck records the outcome of a single probe execution.
func (m *Metrics) RecordCheck(check, team, checkType, status string, duration time.Duration) {
	m.ChecksTotal.WithLabelValues(check, team, status).Inc()
	m.CheckDuration.WithLabelValues(check, checkType).Observe(duration.Seconds())
	if status == "fail" {
		m.CheckFailuresTotal.WithLabelValues(check, team).Inc()
	}
}

// RecordLedgerWrite records a scoring ledger entry and updates the team's projected score.
func (m *Metrics) RecordLedgerWrite(competition, team, check string, newScore float64) {
	m.LedgerWritesTotal.WithLabelValues(competition, team, check).Inc()
	m.TeamScoreCurrent.WithLabelValues(competition, team).Set(newScore)
}

// RecordBoxEvent records a published box command, and whether it was rejected
// (by a cooldown or by the dispatch rate limit).
func (m *Metrics) RecordBoxEvent(competition, command string, cooldownRejected bool) {
	if cooldownRejected {
		m.BoxEventsCooldownTotal.WithLabelValues(competition, command).Inc()
		return
	}
	m.BoxEventsPublishedTotal.WithLabelValues(competition, command).Inc()
}

// RecordOverlayAllocation records a VXLAN overlay allocation of the given kind (vxlan, snat).
func (m *Metrics) RecordOverlayAllocation(competition, kind string) {
	m.OverlayAllocationsTotal.WithLabelValues(competition, kind).Inc()
}

// SetFDBEntries sets the current number of tracked forwarding database entries.
func (m *Metrics) SetFDBEntries(competition string, count int) {
	m.FDBEntriesCurrent.WithLabelValues(competition).Set(float64(count))
}

// RecordStateTransition records a competition lifecycle transition.
func (m *Metrics) RecordStateTransition(competition, from, to string) {
	m.CompetitionStateTransitionsTotal.WithLabelValues(competition, from, to).Inc()
}

// RecordStoreOperation records a shared-state store call and its latency.
func (m *Metrics) RecordStoreOperation(operation, status string, duration time.Duration) {
	m.StoreOperationsTotal.WithLabelValues(operation, status).Inc()
	m.StoreOperationLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// UpdateUptime updates the service uptime
func (m *Metrics) UpdateUptime(startTime time.Time) {
	m.ServiceUptime.Set(time.Since(startTime).Seconds())
}

// IncrementInFlight increments the in-flight requests counter
func (m *Metrics) IncrementInFlight() {
	m.RequestsInFlight.Inc()
}

// DecrementInFlight decrements the in-flight requests counter
func (m *Metrics) DecrementInFlight() {
	m.RequestsInFlight.Dec()
}

// IncrementChecksInFlight increments the in-flight probe counter.
func (m *Metrics) IncrementChecksInFlight() {
	m.ChecksInFlight.Inc()
}

// DecrementChecksInFlight decrements the in-flight probe counter.
func (m *Metrics) DecrementChecksInFlight() {
	m.ChecksInFlight.Dec()
}

// Helper functions

func getEnvironment() string {
	return string(runtime.Env())
}

// Enabled returns whether Prometheus metrics should be exposed.
//
// Defaults:
// - production: disabled unless explicitly enabled via METRICS_ENABLED
// - non-production: enabled unless explicitly disabled via METRICS_ENABLED
func Enabled() bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv("METRICS_ENABLED")))
	if raw == "" {
		return !runtime.IsProduction()
	}
	switch raw {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// Global metrics instance
var (
	globalMetrics *Metrics
	globalMu      sync.Mutex
)

// Init initializes the global metrics instance
func Init(serviceName string) *Metrics {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalMetrics == nil {
		globalMetrics = New(serviceName)
	}
	return globalMetrics
}

// Global returns the global metrics instance
func Global() *Metrics {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalMetrics == nil {
		globalMetrics = New("unknown")
	}
	return globalMetrics
}
