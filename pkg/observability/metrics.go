package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Cycle metrics
	CyclesTotal   *prometheus.CounterVec
	CycleDuration prometheus.Histogram

	// User reconciliation metrics
	UsersRepairedTotal     prometheus.Counter
	UserLookupErrorsTotal  *prometheus.CounterVec
	RateLimitWaitsTotal    prometheus.Counter
	ReauthenticationsTotal prometheus.Counter

	// Provisioning metrics
	DatasourcesCreatedTotal prometheus.Counter
	DatasourceErrorsTotal   prometheus.Counter
	AdminEnrollmentsTotal   *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		CyclesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "grafana_sync_cycles_total",
				Help: "Total number of reconciliation cycles",
			},
			[]string{"result"},
		),
		CycleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "grafana_sync_cycle_duration_seconds",
				Help:    "Reconciliation cycle duration in seconds",
				Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		),
		UsersRepairedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "grafana_sync_users_repaired_total",
				Help: "Total number of Grafana users repaired from Auth0",
			},
		),
		UserLookupErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "grafana_sync_user_lookup_errors_total",
				Help: "Total number of failed Auth0 user lookups",
			},
			[]string{"kind"},
		),
		RateLimitWaitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "grafana_sync_rate_limit_waits_total",
				Help: "Total number of pauses after an Auth0 rate limit response",
			},
		),
		ReauthenticationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "grafana_sync_reauthentications_total",
				Help: "Total number of Auth0 re-authentications",
			},
		),
		DatasourcesCreatedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "grafana_sync_datasources_created_total",
				Help: "Total number of datasources created",
			},
		),
		DatasourceErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "grafana_sync_datasource_errors_total",
				Help: "Total number of failed datasource creations",
			},
		),
		AdminEnrollmentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "grafana_sync_admin_enrollments_total",
				Help: "Total number of admin enrollment attempts",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(
		m.CyclesTotal,
		m.CycleDuration,
		m.UsersRepairedTotal,
		m.UserLookupErrorsTotal,
		m.RateLimitWaitsTotal,
		m.ReauthenticationsTotal,
		m.DatasourcesCreatedTotal,
		m.DatasourceErrorsTotal,
		m.AdminEnrollmentsTotal,
	)

	return m
}

// CycleCompleted records the outcome and duration of a cycle
func (m *Metrics) CycleCompleted(result string, duration time.Duration) {
	m.CyclesTotal.WithLabelValues(result).Inc()
	m.CycleDuration.Observe(duration.Seconds())
}

// UserRepaired counts a repaired user
func (m *Metrics) UserRepaired() {
	m.UsersRepairedTotal.Inc()
}

// UserLookupFailed counts a failed lookup by error kind
func (m *Metrics) UserLookupFailed(kind string) {
	m.UserLookupErrorsTotal.WithLabelValues(kind).Inc()
}

// RateLimitWait counts a rate limit pause
func (m *Metrics) RateLimitWait() {
	m.RateLimitWaitsTotal.Inc()
}

// Reauthenticated counts a credential refresh
func (m *Metrics) Reauthenticated() {
	m.ReauthenticationsTotal.Inc()
}

// DatasourceCreated counts a created datasource
func (m *Metrics) DatasourceCreated() {
	m.DatasourcesCreatedTotal.Inc()
}

// DatasourceFailed counts a failed datasource creation
func (m *Metrics) DatasourceFailed() {
	m.DatasourceErrorsTotal.Inc()
}

// AdminEnrollment counts an enrollment attempt by result
func (m *Metrics) AdminEnrollment(result string) {
	m.AdminEnrollmentsTotal.WithLabelValues(result).Inc()
}

// Handler returns the Prometheus metrics HTTP handler for registry
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}
