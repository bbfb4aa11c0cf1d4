package monitor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// TrainingMetrics holds the Prometheus metrics of a build run. Each instance
// owns its registry so several builds (and tests) never collide.
type TrainingMetrics struct {
	registry *prometheus.Registry

	ModelsTrained    *prometheus.CounterVec
	TrainingDuration *prometheus.HistogramVec
	ErrorBound       *prometheus.GaugeVec
	BucketsTrained   prometheus.Counter
}

func NewTrainingMetrics() *TrainingMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &TrainingMetrics{
		registry: reg,
		ModelsTrained: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rmi_models_trained_total",
				Help: "Total number of models trained by family",
			},
			[]string{"kind"},
		),
		TrainingDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rmi_training_duration_seconds",
				Help:    "Model training duration in seconds by family",
				Buckets: []float64{.0001, .001, .01, .1, .5, 1, 5, 30, 120},
			},
			[]string{"kind"},
		),
		ErrorBound: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rmi_model_error_bound",
				Help: "Max absolute position error of the last trained model by family",
			},
			[]string{"kind"},
		),
		BucketsTrained: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "rmi_buckets_trained_total",
				Help: "Total number of non-empty buckets trained",
			},
		),
	}
}

// RecordModel records one trained model. bound is ignored when ok is false.
func (m *TrainingMetrics) RecordModel(kind string, d time.Duration, bound uint64, ok bool) {
	m.ModelsTrained.WithLabelValues(kind).Inc()
	m.TrainingDuration.WithLabelValues(kind).Observe(d.Seconds())
	if ok {
		m.ErrorBound.WithLabelValues(kind).Set(float64(bound))
	}
}

func (m *TrainingMetrics) RecordBuckets(n int) {
	m.BucketsTrained.Add(float64(n))
}

func (m *TrainingMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes all metrics to path in the node_exporter textfile
// format.
func (m *TrainingMetrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
