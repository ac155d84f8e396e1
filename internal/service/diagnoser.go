package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fever-diagnosis/internal/metrics"
	"fever-diagnosis/internal/ml"
	"fever-diagnosis/internal/models"

	"go.uber.org/zap"
)

// VisitStore persists visits
type VisitStore interface {
	Create(ctx context.Context, visit *models.Visit) error
	List(ctx context.Context) ([]*models.Visit, error)
}

// Diagnoser scores submissions with the fitted model and records them.
// The model is only read, so one Diagnoser serves all requests concurrently.
type Diagnoser struct {
	model   ml.Model
	store   VisitStore
	metrics *metrics.Metrics
	now     func() time.Time
	logger  *zap.Logger
}

// NewDiagnoser refuses a model that has not been fitted, so nothing can be
// served before training has finished.
func NewDiagnoser(model ml.Model, store VisitStore, m *metrics.Metrics, logger *zap.Logger) (*Diagnoser, error) {
	if model == nil || !model.Fitted() {
		return nil, ml.ErrNotFitted
	}
	if store == nil {
		return nil, errors.New("visit store is required")
	}
	return &Diagnoser{
		model:   model,
		store:   store,
		metrics: m,
		now:     time.Now,
		logger:  logger,
	}, nil
}

// Diagnose predicts a diagnosis for a validated submission and stores the visit.
// The returned visit has its ID set; an error means nothing was stored.
func (d *Diagnoser) Diagnose(ctx context.Context, sub *models.VisitSubmission) (*models.Visit, error) {
	started := time.Now()
	label, err := d.model.Predict(sub.Temperatures.Vector())
	if err != nil {
		return nil, fmt.Errorf("prediction failed: %w", err)
	}
	if d.metrics != nil {
		d.metrics.PredictDuration.Observe(time.Since(started).Seconds())
	}

	diagnosis, err := models.ParseDiagnosis(label)
	if err != nil {
		return nil, fmt.Errorf("prediction failed: %w", err)
	}

	visit := &models.Visit{
		FIO:           sub.FIO,
		BirthDate:     sub.BirthDate,
		DiagnosisDate: d.now(),
		Diagnosis:     diagnosis,
		Temperatures:  sub.Temperatures,
	}
	if err := d.store.Create(ctx, visit); err != nil {
		return nil, fmt.Errorf("failed to save visit: %w", err)
	}

	if d.metrics != nil {
		d.metrics.ObserveDiagnosis(diagnosis)
	}
	d.logger.Info("Visit diagnosed",
		zap.Int64("id", visit.ID),
		zap.String("diagnosis", diagnosis.String()))

	return visit, nil
}

// ListVisits returns all visits, most recent first
func (d *Diagnoser) ListVisits(ctx context.Context) ([]*models.Visit, error) {
	return d.store.List(ctx)
}

// ModelInfo describes the model behind this diagnoser
func (d *Diagnoser) ModelInfo() ml.Info {
	if svc, ok := d.model.(*ml.SVC); ok {
		return svc.Info()
	}
	return ml.Info{}
}
