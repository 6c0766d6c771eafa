package observability

import (
	"context"

	"github.com/aretw0/vista/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "vista"

// Outcome labels of the transitions counter.
const (
	OutcomeCompleted = "completed"
	OutcomeDegraded  = "degraded"
	OutcomeFailed    = "failed"
)

// Metrics holds the Prometheus collectors fed by lifecycle hooks.
type Metrics struct {
	Transitions *prometheus.CounterVec
	Mutations   *prometheus.CounterVec
	FlushSize   prometheus.Histogram
	Duration    prometheus.Histogram
	InFlight    prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
// A nil registerer skips registration.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transitions_total",
				Help:      "Finished transitions by outcome.",
			},
			[]string{"outcome"},
		),
		Mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mutations_total",
				Help:      "Mutations that passed the gate, by operation and mode.",
			},
			[]string{"op", "mode"},
		),
		FlushSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "flush_size",
			Help:      "Deferred mutations applied per flush.",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transition_duration_seconds",
			Help:      "Time between capture start and finish.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "transitions_in_flight",
			Help:      "Transitions between capture start and finish.",
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.Transitions, m.Mutations, m.FlushSize, m.Duration, m.InFlight} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that update the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnCaptureStart: func(context.Context, *domain.TransitionEvent) {
			m.InFlight.Inc()
		},
		OnMutation: func(_ context.Context, e *domain.MutationEvent) {
			mode := "immediate"
			if e.Deferred {
				mode = "deferred"
			}
			m.Mutations.WithLabelValues(string(e.Op), mode).Inc()
		},
		OnFlush: func(_ context.Context, e *domain.TransitionEvent) {
			m.FlushSize.Observe(float64(e.Pending))
		},
		OnFinish: func(context.Context, *domain.TransitionEvent) {
			m.InFlight.Dec()
		},
		OnRecord: func(_ context.Context, r *domain.Record) {
			switch {
			case r.Error != "":
				m.Transitions.WithLabelValues(OutcomeFailed).Inc()
			case r.Degraded:
				m.Transitions.WithLabelValues(OutcomeDegraded).Inc()
			default:
				m.Transitions.WithLabelValues(OutcomeCompleted).Inc()
			}
			if !r.Degraded {
				m.Duration.Observe(r.Duration().Seconds())
			}
		},
	}
}
