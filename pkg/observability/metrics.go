package observability

import (
	"context"
	"net/http"
	"strconv"

	"github.com/aretw0/pairgate/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pairgate"

// Metrics holds the pairing collectors.
type Metrics struct {
	registry *prometheus.Registry

	requests    *prometheus.CounterVec
	attempts    prometheus.Counter
	connections *prometheus.CounterVec
	relays      *prometheus.CounterVec
	finished    *prometheus.CounterVec
	active      prometheus.Gauge
}

// NewMetrics registers the collectors on a fresh registry, together with the
// Go runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pair_requests_total",
				Help:      "Pairing requests answered, by outcome.",
			},
			[]string{"outcome"},
		),
		attempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_total",
			Help:      "Connection attempts started.",
		}),
		connections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "connection_updates_total",
				Help:      "Connection updates observed, by status and close code.",
			},
			[]string{"status", "code"},
		),
		relays: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "relays_total",
				Help:      "Credential relays, by result.",
			},
			[]string{"result"},
		),
		finished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_finished_total",
				Help:      "Pairing runs finished, by result.",
			},
			[]string{"result"},
		),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Pairing runs currently holding a session.",
		}),
	}

	m.registry.MustRegister(
		m.requests,
		m.attempts,
		m.connections,
		m.relays,
		m.finished,
		m.active,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Hooks returns lifecycle hooks that feed the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnAttempt: func(_ context.Context, e *domain.AttemptEvent) {
			if e.Attempt == 0 {
				m.active.Inc()
			}
			m.attempts.Inc()
		},
		OnConnectionUpdate: func(_ context.Context, e *domain.ConnectionEvent) {
			code := "none"
			if e.Update.Status == domain.StatusClose {
				code = strconv.Itoa(e.Update.StatusCode)
			}
			m.connections.WithLabelValues(string(e.Update.Status), code).Inc()
		},
		OnOutcome: func(_ context.Context, e *domain.OutcomeEvent) {
			m.requests.WithLabelValues(e.Outcome.Kind.String()).Inc()
		},
		OnRelay: func(_ context.Context, e *domain.RelayEvent) {
			result := "ok"
			if e.Err != nil {
				result = "error"
			}
			m.relays.WithLabelValues(result).Inc()
		},
		OnFinish: func(_ context.Context, e *domain.FinishEvent) {
			m.active.Dec()
			m.finished.WithLabelValues(string(e.Result)).Inc()
		},
	}
}

// AttemptsCounter exposes the attempts counter for inspection.
func (m *Metrics) AttemptsCounter() prometheus.Counter {
	return m.attempts
}

// ActiveGauge exposes the active sessions gauge for inspection.
func (m *Metrics) ActiveGauge() prometheus.Gauge {
	return m.active
}
