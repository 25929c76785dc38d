package activator

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "activator"

type metrics struct {
	activations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	activations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "activations_total",
			Help:      "Total number of activations by target type and outcome",
		},
		[]string{"type", "result"},
	)

	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "activation_duration_seconds",
			Help:      "Activation duration in seconds, including nested activations",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"type"},
	)

	var err error
	if activations, err = registerOrReuse(reg, activations); err != nil {
		return nil, err
	}
	if duration, err = registerOrReuse(reg, duration); err != nil {
		return nil, err
	}

	return &metrics{activations: activations, duration: duration}, nil
}

// registerOrReuse lets several activators share one registerer.
func registerOrReuse[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *metrics) observe(typeName string, start time.Time, err error) {
	if m == nil {
		return
	}

	result := "success"
	if err != nil {
		result = "error"
	}

	m.activations.WithLabelValues(typeName, result).Inc()
	m.duration.WithLabelValues(typeName).Observe(time.Since(start).Seconds())
}
