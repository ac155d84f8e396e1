package ml

import (
	"errors"
	"fmt"
)

// SVC is a fitted binary support-vector classifier with an RBF kernel.
// A fitted SVC is never modified, so Predict may be called from many goroutines.
// The zero value is an unfitted model whose Predict returns ErrNotFitted.
type SVC struct {
	fitted     bool
	width      int
	gamma      float64
	rho        float64
	vectors    [][]float64
	coef       []float64 // alpha_i * y_i
	constant   int       // label returned when training data had a single class
	iterations int
}

// Info describes a fitted model for logs and health output
type Info struct {
	Features       int     `json:"features"`
	SupportVectors int     `json:"support_vectors"`
	Gamma          float64 `json:"gamma"`
	Rho            float64 `json:"rho"`
	Iterations     int     `json:"iterations"`
	SingleClass    bool    `json:"single_class"`
}

// FitSVC trains a classifier on x (N rows of equal width) and labels y in {0, 1}.
func FitSVC(x [][]float64, y []int, params Params) (*SVC, error) {
	if len(x) == 0 || len(y) == 0 {
		return nil, errors.New("features or labels empty")
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("features and labels size mismatch: %d != %d", len(x), len(y))
	}
	width := len(x[0])
	if width == 0 {
		return nil, errors.New("feature vectors are empty")
	}
	counts := [2]int{}
	for i := range x {
		if len(x[i]) != width {
			return nil, fmt.Errorf("row %d: %w: got %d, want %d", i, ErrDimension, len(x[i]), width)
		}
		if y[i] != 0 && y[i] != 1 {
			return nil, fmt.Errorf("row %d: label must be 0 or 1, got %d", i, y[i])
		}
		counts[y[i]]++
	}

	params = params.withDefaults()
	gamma := params.Gamma
	if gamma == GammaScale {
		gamma = scaleGamma(x)
	}

	if counts[0] == 0 || counts[1] == 0 {
		label := 0
		if counts[1] > 0 {
			label = 1
		}
		return &SVC{fitted: true, width: width, gamma: gamma, constant: label}, nil
	}

	rows := make([][]float64, len(x))
	for i := range x {
		rows[i] = append([]float64(nil), x[i]...)
	}
	signs := make([]float64, len(y))
	for i, label := range y {
		signs[i] = -1
		if label == 1 {
			signs[i] = 1
		}
	}

	kernel, err := newKernelMatrix(rows, gamma, params.CacheRows)
	if err != nil {
		return nil, fmt.Errorf("failed to create kernel cache: %w", err)
	}
	solver := newSMOSolver(kernel, signs, params.C, params.Tolerance)
	rho, iterations := solver.solve(params.MaxIter)

	model := &SVC{
		fitted:     true,
		width:      width,
		gamma:      gamma,
		rho:        rho,
		iterations: iterations,
	}
	for i, a := range solver.alpha {
		if a > 0 {
			model.vectors = append(model.vectors, rows[i])
			model.coef = append(model.coef, a*signs[i])
		}
	}
	return model, nil
}

// Fitted reports whether the model can serve predictions.
func (m *SVC) Fitted() bool {
	return m != nil && m.fitted
}

// Decision returns the signed distance used for the label; positive means class 1.
func (m *SVC) Decision(features []float64) (float64, error) {
	if !m.Fitted() {
		return 0, ErrNotFitted
	}
	if len(features) != m.width {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrDimension, len(features), m.width)
	}
	if len(m.vectors) == 0 {
		if m.constant == 1 {
			return 1, nil
		}
		return -1, nil
	}
	sum := 0.0
	for i, sv := range m.vectors {
		sum += m.coef[i] * rbf(m.gamma, sv, features)
	}
	return sum - m.rho, nil
}

// Predict returns 1 when the decision value is positive and 0 otherwise.
func (m *SVC) Predict(features []float64) (int, error) {
	d, err := m.Decision(features)
	if err != nil {
		return 0, err
	}
	if d > 0 {
		return 1, nil
	}
	return 0, nil
}

// Accuracy is the fraction of rows whose prediction equals the label.
func (m *SVC) Accuracy(x [][]float64, y []int) (float64, error) {
	if len(x) == 0 || len(x) != len(y) {
		return 0, errors.New("features and labels must be non-empty and of equal size")
	}
	correct := 0
	for i := range x {
		label, err := m.Predict(x[i])
		if err != nil {
			return 0, fmt.Errorf("row %d: %w", i, err)
		}
		if label == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(x)), nil
}

// Info returns a summary of the fitted model.
func (m *SVC) Info() Info {
	if !m.Fitted() {
		return Info{}
	}
	return Info{
		Features:       m.width,
		SupportVectors: len(m.vectors),
		Gamma:          m.gamma,
		Rho:            m.rho,
		Iterations:     m.iterations,
		SingleClass:    len(m.vectors) == 0,
	}
}
