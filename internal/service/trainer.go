package service

import (
	"context"
	"fmt"
	"time"

	"fever-diagnosis/internal/metrics"
	"fever-diagnosis/internal/ml"
	"fever-diagnosis/internal/models"

	"go.uber.org/zap"
)

// ObservationSource provides the labeled training rows
type ObservationSource interface {
	LoadObservations(ctx context.Context) ([]models.TrainingObservation, error)
}

// TrainingReport summarizes a fit. Accuracy is measured on the training rows
// themselves and is informational only.
type TrainingReport struct {
	Rows     int           `json:"rows"`
	Healthy  int           `json:"healthy"`
	Sick     int           `json:"sick"`
	Accuracy float64       `json:"accuracy"`
	Model    ml.Info       `json:"model"`
	Duration time.Duration `json:"duration"`
}

// Trainer loads the training table and fits the classifier
type Trainer struct {
	source  ObservationSource
	params  ml.Params
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewTrainer creates a new trainer
func NewTrainer(source ObservationSource, params ml.Params, m *metrics.Metrics, logger *zap.Logger) *Trainer {
	return &Trainer{
		source:  source,
		params:  params,
		metrics: m,
		logger:  logger,
	}
}

// TrainingMatrix lays observations out as an N x 13 matrix in t0..t12 order and a label vector.
func TrainingMatrix(observations []models.TrainingObservation) ([][]float64, []int) {
	x := make([][]float64, len(observations))
	y := make([]int, len(observations))
	for i, obs := range observations {
		x[i] = obs.Temperatures.Vector()
		y[i] = int(obs.Label)
	}
	return x, y
}

// Train loads every observation, fits the model once and reports re-substitution accuracy.
func (t *Trainer) Train(ctx context.Context) (*ml.SVC, *TrainingReport, error) {
	started := time.Now()

	observations, err := t.source.LoadObservations(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load training data: %w", err)
	}

	x, y := TrainingMatrix(observations)
	model, err := ml.FitSVC(x, y, t.params)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fit classifier: %w", err)
	}

	accuracy, err := model.Accuracy(x, y)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to score classifier: %w", err)
	}

	report := &TrainingReport{
		Rows:     len(observations),
		Accuracy: accuracy,
		Model:    model.Info(),
		Duration: time.Since(started),
	}
	for _, label := range y {
		if label == int(models.Sick) {
			report.Sick++
		} else {
			report.Healthy++
		}
	}

	if t.metrics != nil {
		t.metrics.TrainingAccuracy.Set(accuracy)
		t.metrics.TrainingRows.Set(float64(report.Rows))
		t.metrics.SupportVectors.Set(float64(report.Model.SupportVectors))
	}

	t.logger.Info("Classifier fitted",
		zap.Int("rows", report.Rows),
		zap.Int("healthy", report.Healthy),
		zap.Int("sick", report.Sick),
		zap.Float64("training_accuracy", accuracy),
		zap.Int("support_vectors", report.Model.SupportVectors),
		zap.Float64("gamma", report.Model.Gamma),
		zap.Duration("duration", report.Duration))

	return model, report, nil
}
