// Package prometheus registers and serves the engine's operational metrics.
package prometheus

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "prazo"

// Metrics holds every collector the engine emits.  All metrics live on a
// private registry so tests can instantiate them without global collisions.
type Metrics struct {
	registry *prometheus.Registry

	// Calculator
	ComputationsTotal   *prometheus.CounterVec // labels: outcome, best_effort
	ComputationDuration prometheus.Histogram
	FallbacksTotal      *prometheus.CounterVec // labels: kind

	// Recompute worker
	RecomputeOutcomes *prometheus.CounterVec // labels: result

	// Notification scheduler
	AlertsFiredTotal   prometheus.Counter
	AlertFailuresTotal prometheus.Counter
	SchedulerRunsTotal prometheus.Counter
	SchedulerDegraded  prometheus.Gauge

	// HTTP layer
	HTTPRequestsTotal   *prometheus.CounterVec // labels: method, path, status
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics builds and registers all collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	m := &Metrics{
		registry: registry,
		ComputationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "computations_total",
			Help:      "Deadline computations by outcome.",
		}, []string{"outcome", "best_effort"}),
		ComputationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "computation_duration_seconds",
			Help:      "Wall time of one deadline computation.",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		}),
		FallbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Degraded computations by fallback kind (process_type, scope).",
		}, []string{"kind"}),
		RecomputeOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recompute_outcomes_total",
			Help:      "Batch recompute results (changed, unchanged, failed).",
		}, []string{"result"}),
		AlertsFiredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_fired_total",
			Help:      "Lead-time alerts published.",
		}),
		AlertFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_failures_total",
			Help:      "Alert publish attempts that failed.",
		}),
		SchedulerRunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_runs_total",
			Help:      "Completed scheduler evaluation passes.",
		}),
		SchedulerDegraded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduler_degraded",
			Help:      "1 when the scheduler is running on a stale lead time.",
		}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"method", "path"}),
	}

	registry.MustRegister(
		m.ComputationsTotal,
		m.ComputationDuration,
		m.FallbacksTotal,
		m.RecomputeOutcomes,
		m.AlertsFiredTotal,
		m.AlertFailuresTotal,
		m.SchedulerRunsTotal,
		m.SchedulerDegraded,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)
	return m
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveComputation records one computation.
func (m *Metrics) ObserveComputation(start time.Time, err error, bestEffort bool) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	effort := "false"
	if bestEffort {
		effort = "true"
	}
	m.ComputationsTotal.WithLabelValues(outcome, effort).Inc()
	m.ComputationDuration.Observe(time.Since(start).Seconds())
}
