// Package ml implements the binary support-vector classifier used for diagnosis.
package ml

import "errors"

var (
	// ErrNotFitted is returned when Predict is called on a model that was never fitted.
	ErrNotFitted = errors.New("model not fitted")
	// ErrDimension is returned when a feature vector does not match the training width.
	ErrDimension = errors.New("feature vector dimension mismatch")
)

// Predictor is the read-only view of a fitted model
type Predictor interface {
	Predict(features []float64) (int, error)
}

// Model is a Predictor that can report whether fitting has completed
type Model interface {
	Predictor
	Fitted() bool
}

// GammaScale selects gamma = 1 / (n_features * Var(X))
const GammaScale = 0.0

// Params configures FitSVC. Zero values are replaced by defaults.
type Params struct {
	C         float64 // box constraint
	Gamma     float64 // RBF coefficient, GammaScale derives it from the data
	Tolerance float64 // KKT stopping tolerance
	MaxIter   int
	CacheRows int // kernel rows kept in memory during fitting
}

// DefaultParams matches a C-SVC with an RBF kernel and gamma="scale".
func DefaultParams() Params {
	return Params{
		C:         1.0,
		Gamma:     GammaScale,
		Tolerance: 1e-3,
		MaxIter:   10_000_000,
		CacheRows: 256,
	}
}

func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.C <= 0 {
		p.C = d.C
	}
	if p.Gamma < 0 {
		p.Gamma = GammaScale
	}
	if p.Tolerance <= 0 {
		p.Tolerance = d.Tolerance
	}
	if p.MaxIter <= 0 {
		p.MaxIter = d.MaxIter
	}
	if p.CacheRows <= 0 {
		p.CacheRows = d.CacheRows
	}
	return p
}
