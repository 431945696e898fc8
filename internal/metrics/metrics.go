// Package metrics exposes prometheus collectors for validation, evaluation
// and event publishing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "featuregrid"

// Metrics owns a private registry so several instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	// validations counts validation outcomes.
	// Labels: result (valid, invalid, unknown, error)
	validations *prometheus.CounterVec

	// validationLatency measures a single validation including constraint
	// system construction on cache misses.
	// Labels: result
	validationLatency *prometheus.HistogramVec

	evaluations prometheus.Counter
	unresolved  prometheus.Counter
	regions     prometheus.Gauge

	// published counts events handed to the publisher.
	// Labels: status (sent, dropped)
	published *prometheus.CounterVec

	// reloads counts watch-mode reloads.
	// Labels: result (ok, error)
	reloads *prometheus.CounterVec
}

// New creates the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		validations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "validator",
			Name:      "validations_total",
			Help:      "Configuration validations by result",
		}, []string{"result"}),
		validationLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "validator",
			Name:      "latency_seconds",
			Help:      "Configuration validation latency in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"result"}),
		evaluations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pim",
			Name:      "evaluations_total",
			Help:      "PIM evaluations over the loaded region set",
		}),
		unresolved: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pim",
			Name:      "unresolved_values_total",
			Help:      "NFP values that could not be calculated",
		}),
		regions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pim",
			Name:      "regions",
			Help:      "Number of loaded regions",
		}),
		published: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "publish",
			Name:      "events_total",
			Help:      "Model events handed to the publisher by status",
		}, []string{"status"}),
		reloads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "reloads_total",
			Help:      "Configuration reloads by result",
		}, []string{"result"}),
	}
}

// ObserveValidation implements validator.Recorder.
func (m *Metrics) ObserveValidation(result string, elapsed time.Duration) {
	m.validations.WithLabelValues(result).Inc()
	m.validationLatency.WithLabelValues(result).Observe(elapsed.Seconds())
}

// ObserveEvaluation records one PIM evaluation pass.
func (m *Metrics) ObserveEvaluation(regions, unresolved int) {
	m.evaluations.Inc()
	m.regions.Set(float64(regions))
	m.unresolved.Add(float64(unresolved))
}

// ObservePublish records whether an event was queued or dropped.
func (m *Metrics) ObservePublish(sent bool) {
	status := "sent"
	if !sent {
		status = "dropped"
	}
	m.published.WithLabelValues(status).Inc()
}

// ObserveReload records a watch-mode reload.
func (m *Metrics) ObserveReload(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.reloads.WithLabelValues(result).Inc()
}

// Registry returns the registry backing the collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
