package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type PrometheusRecorder struct {
	counters  *prometheus.CounterVec
	histogram *prometheus.HistogramVec
}

// NewPrometheusRecorder registers the gateway collectors with the default
// registry. Recorders created this way share one set of collectors.
func NewPrometheusRecorder() Recorder {
	return NewPrometheusRecorderWith(prometheus.DefaultRegisterer)
}

// NewPrometheusRecorderWith registers the gateway collectors with reg. It
// panics only if reg holds a different collector under the same names.
func NewPrometheusRecorderWith(reg prometheus.Registerer) *PrometheusRecorder {
	counters := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meter",
			Name:      "events_total",
			Help:      "metered action event counters",
		},
		[]string{"type", LabelNetwork, LabelAction},
	)

	histogram := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "meter",
			Name:      "latency_seconds",
			Help:      "metered action operation latency",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 180},
		},
		[]string{"operation", LabelNetwork, LabelAction},
	)

	return &PrometheusRecorder{
		counters:  register(reg, counters),
		histogram: register(reg, histogram),
	}
}

// register adds c to reg. When an identical collector is already registered,
// as happens for every gateway after the first in a process, the existing
// one is returned and shared.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	err := reg.Register(c)
	if err == nil {
		return c
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing
		}
	}
	panic(err)
}

func (p *PrometheusRecorder) IncCounter(name string, labels map[string]string) {
	p.counters.With(prometheus.Labels{
		"type":       name,
		LabelNetwork: labels[LabelNetwork],
		LabelAction:  labels[LabelAction],
	}).Inc()
}

func (p *PrometheusRecorder) ObserveLatency(name string, d time.Duration, labels map[string]string) {
	p.histogram.With(prometheus.Labels{
		"operation":  name,
		LabelNetwork: labels[LabelNetwork],
		LabelAction:  labels[LabelAction],
	}).Observe(d.Seconds())
}
