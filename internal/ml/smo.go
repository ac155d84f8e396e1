package ml

import "math"

const tau = 1e-12

// smoSolver solves the C-SVC dual
//
//	min 0.5 a'Qa - e'a   s.t. 0 <= a_i <= C, y'a = 0,   Q_ij = y_i y_j K_ij
//
// with second-order working set selection.
type smoSolver struct {
	k     *kernelMatrix
	y     []float64 // +1 / -1
	c     float64
	eps   float64
	alpha []float64
	grad  []float64
}

func newSMOSolver(k *kernelMatrix, y []float64, c, eps float64) *smoSolver {
	n := len(y)
	grad := make([]float64, n)
	for i := range grad {
		grad[i] = -1
	}
	return &smoSolver{
		k:     k,
		y:     y,
		c:     c,
		eps:   eps,
		alpha: make([]float64, n),
		grad:  grad,
	}
}

func (s *smoSolver) isUpper(i int) bool { return s.alpha[i] >= s.c }
func (s *smoSolver) isLower(i int) bool { return s.alpha[i] <= 0 }

// solve runs until the KKT gap is below eps or maxIter is reached, and returns rho.
func (s *smoSolver) solve(maxIter int) (rho float64, iterations int) {
	for iterations < maxIter {
		i, j, ok := s.selectWorkingSet()
		if !ok {
			break
		}
		s.update(i, j)
		iterations++
	}
	return s.calculateRho(), iterations
}

func (s *smoSolver) selectWorkingSet() (int, int, bool) {
	gmax := math.Inf(-1)
	gmax2 := math.Inf(-1)
	i := -1
	for t := range s.y {
		if s.y[t] > 0 {
			if !s.isUpper(t) && -s.grad[t] >= gmax {
				gmax = -s.grad[t]
				i = t
			}
		} else if !s.isLower(t) && s.grad[t] >= gmax {
			gmax = s.grad[t]
			i = t
		}
	}
	if i == -1 {
		return -1, -1, false
	}

	ki := s.k.row(i)
	j := -1
	objMin := math.Inf(1)
	for t := range s.y {
		var diff float64
		if s.y[t] > 0 {
			if s.isLower(t) {
				continue
			}
			diff = gmax + s.grad[t]
			if s.grad[t] >= gmax2 {
				gmax2 = s.grad[t]
			}
		} else {
			if s.isUpper(t) {
				continue
			}
			diff = gmax - s.grad[t]
			if -s.grad[t] >= gmax2 {
				gmax2 = -s.grad[t]
			}
		}
		if diff <= 0 {
			continue
		}
		quad := s.k.diag[i] + s.k.diag[t] - 2*ki[t]
		if quad <= 0 {
			quad = tau
		}
		if obj := -(diff * diff) / quad; obj <= objMin {
			objMin = obj
			j = t
		}
	}

	if gmax+gmax2 < s.eps || j == -1 {
		return -1, -1, false
	}
	return i, j, true
}

func (s *smoSolver) update(i, j int) {
	ki := s.k.row(i)
	kj := s.k.row(j)
	c := s.c
	oldI, oldJ := s.alpha[i], s.alpha[j]
	ai, aj := oldI, oldJ

	if s.y[i] != s.y[j] {
		quad := s.k.diag[i] + s.k.diag[j] + 2*(s.y[i]*s.y[j]*ki[j])
		if quad <= 0 {
			quad = tau
		}
		delta := (-s.grad[i] - s.grad[j]) / quad
		diff := ai - aj
		ai += delta
		aj += delta
		if diff > 0 {
			if aj < 0 {
				aj = 0
				ai = diff
			}
		} else if ai < 0 {
			ai = 0
			aj = -diff
		}
		if diff > 0 {
			if ai > c {
				ai = c
				aj = c - diff
			}
		} else if aj > c {
			aj = c
			ai = c + diff
		}
	} else {
		quad := s.k.diag[i] + s.k.diag[j] - 2*(s.y[i]*s.y[j]*ki[j])
		if quad <= 0 {
			quad = tau
		}
		delta := (s.grad[i] - s.grad[j]) / quad
		sum := ai + aj
		ai -= delta
		aj += delta
		if sum > c {
			if ai > c {
				ai = c
				aj = sum - c
			}
		} else if aj < 0 {
			aj = 0
			ai = sum
		}
		if sum > c {
			if aj > c {
				aj = c
				ai = sum - c
			}
		} else if ai < 0 {
			ai = 0
			aj = sum
		}
	}

	s.alpha[i], s.alpha[j] = ai, aj
	di, dj := ai-oldI, aj-oldJ
	for t := range s.grad {
		s.grad[t] += s.y[t]*s.y[i]*ki[t]*di + s.y[t]*s.y[j]*kj[t]*dj
	}
}

func (s *smoSolver) calculateRho() float64 {
	ub := math.Inf(1)
	lb := math.Inf(-1)
	free := 0
	sumFree := 0.0
	for t := range s.y {
		yg := s.y[t] * s.grad[t]
		switch {
		case s.isUpper(t):
			if s.y[t] < 0 {
				ub = math.Min(ub, yg)
			} else {
				lb = math.Max(lb, yg)
			}
		case s.isLower(t):
			if s.y[t] > 0 {
				ub = math.Min(ub, yg)
			} else {
				lb = math.Max(lb, yg)
			}
		default:
			free++
			sumFree += yg
		}
	}
	if free > 0 {
		return sumFree / float64(free)
	}
	return (ub + lb) / 2
}
