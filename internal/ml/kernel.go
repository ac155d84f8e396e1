package ml

import (
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// scaleGamma returns 1 / (n_features * Var(X)) over every element of X, or 1 when X is constant.
func scaleGamma(x [][]float64) float64 {
	width := len(x[0])
	flat := make([]float64, 0, len(x)*width)
	for _, row := range x {
		flat = append(flat, row...)
	}
	variance := stat.PopVariance(flat, nil)
	if variance == 0 {
		return 1.0
	}
	return 1.0 / (float64(width) * variance)
}

func rbf(gamma float64, a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return math.Exp(-gamma * d * d)
}

// kernelMatrix serves rows of K(x_i, x_j) for the solver, computing them on demand.
type kernelMatrix struct {
	x     [][]float64
	gamma float64
	diag  []float64
	rows  *lru.Cache[int, []float64]
}

func newKernelMatrix(x [][]float64, gamma float64, cacheRows int) (*kernelMatrix, error) {
	rows, err := lru.New[int, []float64](cacheRows)
	if err != nil {
		return nil, err
	}
	diag := make([]float64, len(x))
	for i := range x {
		diag[i] = rbf(gamma, x[i], x[i])
	}
	return &kernelMatrix{x: x, gamma: gamma, diag: diag, rows: rows}, nil
}

func (k *kernelMatrix) row(i int) []float64 {
	if r, ok := k.rows.Get(i); ok {
		return r
	}
	r := make([]float64, len(k.x))
	for j := range k.x {
		r[j] = rbf(k.gamma, k.x[i], k.x[j])
	}
	k.rows.Add(i, r)
	return r
}
