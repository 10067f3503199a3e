// Package metrics exposes Prometheus counters for login and lockout activity.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lockgate"

// Login outcomes used as the "outcome" label
const (
	OutcomeSuccess            = "success"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeLocked             = "locked"
	OutcomeRateLimited        = "rate_limited"
	OutcomeBlocked            = "blocked"
)

// Metrics holds all application metrics
type Metrics struct {
	registry *prometheus.Registry

	LoginAttempts     *prometheus.CounterVec
	Lockouts          prometheus.Counter
	Unlocks           prometheus.Counter
	AuditEmitFailures *prometheus.CounterVec
	StoreLatency      *prometheus.HistogramVec
	LockedAccounts    prometheus.Gauge
}

// New creates all metrics on a private registry, together with the Go runtime
// and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		LoginAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Login attempts by outcome",
		}, []string{"outcome"}),
		Lockouts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "account_lockouts_total",
			Help:      "Accounts locked after reaching the failure threshold",
		}),
		Unlocks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "account_unlocks_total",
			Help:      "Manual account unlocks",
		}),
		AuditEmitFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_emit_failures_total",
			Help:      "Lockout events an audit sink failed to record",
		}, []string{"sink"}),
		StoreLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "security_state_update_duration_seconds",
			Help:      "Duration of atomic security state updates",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"operation"}),
		LockedAccounts: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "locked_accounts",
			Help:      "Accounts with an active lock at the last sweep",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveLogin counts a login attempt. Safe on a nil receiver.
func (m *Metrics) ObserveLogin(outcome string) {
	if m == nil {
		return
	}
	m.LoginAttempts.WithLabelValues(outcome).Inc()
}

// ObserveLockout counts a newly triggered lock
func (m *Metrics) ObserveLockout() {
	if m == nil {
		return
	}
	m.Lockouts.Inc()
}

// ObserveUnlock counts a manual unlock
func (m *Metrics) ObserveUnlock() {
	if m == nil {
		return
	}
	m.Unlocks.Inc()
}

// ObserveAuditFailure counts an audit sink failure
func (m *Metrics) ObserveAuditFailure(sink string) {
	if m == nil {
		return
	}
	m.AuditEmitFailures.WithLabelValues(sink).Inc()
}

// ObserveStoreUpdate records how long a state update took
func (m *Metrics) ObserveStoreUpdate(operation string, started time.Time) {
	if m == nil {
		return
	}
	m.StoreLatency.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// SetLockedAccounts records the number of currently locked accounts
func (m *Metrics) SetLockedAccounts(n int64) {
	if m == nil {
		return
	}
	m.LockedAccounts.Set(float64(n))
}
