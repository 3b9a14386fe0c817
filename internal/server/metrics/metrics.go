// Package metrics owns the Prometheus collectors of the server. Each
// Metrics value has its own registry so tests do not collide.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Credential lifecycle events counted by Event.
const (
	EventRegistered      = "registered"
	EventVerified        = "verified"
	EventLoginSucceeded  = "login_succeeded"
	EventLoginFailed     = "login_failed"
	EventResetRequested  = "reset_requested"
	EventPasswordReset   = "password_reset"
	EventPasswordChanged = "password_changed"
	EventNotifyFailed    = "notify_failed"
)

type Metrics struct {
	registry *prometheus.Registry
	rpcs     *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	events   *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rpcs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hrkeeper",
			Name:      "rpc_requests_total",
			Help:      "gRPC requests by method and status code.",
		}, []string{"method", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hrkeeper",
			Name:      "rpc_duration_seconds",
			Help:      "gRPC request latency by method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hrkeeper",
			Name:      "credential_events_total",
			Help:      "Credential lifecycle events.",
		}, []string{"event"}),
	}

	m.registry.MustRegister(
		m.rpcs, m.latency, m.events,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRPC records one finished call. Safe on a nil receiver.
func (m *Metrics) ObserveRPC(method, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.rpcs.WithLabelValues(method, code).Inc()
	m.latency.WithLabelValues(method).Observe(d.Seconds())
}

// Event counts a credential lifecycle event. Safe on a nil receiver.
func (m *Metrics) Event(name string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(name).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
