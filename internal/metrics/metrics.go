// Package metrics exposes Prometheus collectors for the diagnosis pipeline.
package metrics

import (
	"net/http"

	"fever-diagnosis/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fever_diagnosis"

// Metrics groups the collectors registered on one registry
type Metrics struct {
	registry *prometheus.Registry

	TrainingAccuracy prometheus.Gauge
	TrainingRows     prometheus.Gauge
	SupportVectors   prometheus.Gauge
	Diagnoses        *prometheus.CounterVec
	Rejected         *prometheus.CounterVec
	PredictDuration  prometheus.Histogram
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		TrainingAccuracy: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "training_accuracy",
			Help:      "Re-substitution accuracy of the classifier fitted at startup.",
		}),
		TrainingRows: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "training_rows",
			Help:      "Number of labeled observations the classifier was fitted on.",
		}),
		SupportVectors: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "support_vectors",
			Help:      "Number of support vectors in the fitted classifier.",
		}),
		Diagnoses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diagnoses_total",
			Help:      "Visits stored, by predicted diagnosis.",
		}, []string{"diagnosis"}),
		Rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_submissions_total",
			Help:      "Form submissions rejected by validation, by field.",
		}, []string{"field"}),
		PredictDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "predict_duration_seconds",
			Help:      "Time spent in a single classifier prediction.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
	}
}

// ObserveDiagnosis counts a stored visit
func (m *Metrics) ObserveDiagnosis(d models.Diagnosis) {
	m.Diagnoses.WithLabelValues(d.String()).Inc()
}

// ObserveRejected counts a submission that failed validation on field
func (m *Metrics) ObserveRejected(field string) {
	m.Rejected.WithLabelValues(field).Inc()
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
