package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/fsmconv/pkg/domain"
)

// Metrics holds the conversion collectors.
type Metrics struct {
	registry *prometheus.Registry

	Conversions *prometheus.CounterVec
	Failures    *prometheus.CounterVec
	Duration    *prometheus.HistogramVec
	StageTime   *prometheus.HistogramVec
	States      *prometheus.HistogramVec
	RateLimited prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg. A nil reg gets
// a fresh registry with the Go and process collectors.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			prometheus.NewGoCollector(),
			prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		)
	}

	m := &Metrics{
		registry: reg,
		Conversions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fsmconv_conversions_total",
				Help: "Total number of successful conversions",
			},
			[]string{"direction"},
		),
		Failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fsmconv_failures_total",
				Help: "Total number of failed conversions by error kind and stage",
			},
			[]string{"direction", "kind", "stage"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fsmconv_conversion_duration_seconds",
				Help:    "Duration of conversion runs",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
			[]string{"direction"},
		),
		StageTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fsmconv_stage_elapsed_seconds",
				Help:    "Time from the start of a run to the end of each stage",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
			[]string{"direction", "stage"},
		),
		States: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fsmconv_converted_states",
				Help:    "Number of states in converted machines",
				Buckets: prometheus.ExponentialBuckets(1, 4, 7),
			},
			[]string{"direction"},
		),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fsmconv_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		}),
	}
	reg.MustRegister(m.Conversions, m.Failures, m.Duration, m.StageTime, m.States, m.RateLimited)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Hooks returns lifecycle hooks that record every run.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStage: func(_ context.Context, e *domain.StageEvent) {
			m.StageTime.WithLabelValues(string(e.Direction), string(e.Stage)).Observe(e.Elapsed.Seconds())
		},
		OnComplete: func(_ context.Context, e *domain.RunEvent) {
			dir := string(e.Direction)
			m.Conversions.WithLabelValues(dir).Inc()
			m.Duration.WithLabelValues(dir).Observe(e.Duration.Seconds())
			m.States.WithLabelValues(dir).Observe(float64(e.States))
		},
		OnFailure: func(_ context.Context, e *domain.RunEvent) {
			kind, stage := "internal", "unknown"
			if de, ok := domain.AsError(e.Err); ok {
				kind, stage = string(de.Kind), string(de.Stage)
			}
			m.Failures.WithLabelValues(string(e.Direction), kind, stage).Inc()
		},
	}
}
