// Copyright 2025 bitjungle - Rune Mathisen. All rights reserved.
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.
// The author respectfully requests that it not be used for
// military, warfare, or surveillance applications.

package core

import (
	"math"

	"github.com/lsstgo/diffimkernel/internal/kernelerrors"
	"github.com/lsstgo/diffimkernel/internal/solverconfig"
	"gonum.org/v1/gonum/mat"
)

// Solve solves M*a = b for a symmetric positive (semi-)definite M.
// It first attempts gonum's mat.LU, which pivots rows only (no full
// pivoting); if that solve fails because M is singular or too
// ill-conditioned, it falls back to a truncated-eigendecomposition
// Moore-Penrose pseudo-inverse.
// eigenTolerance is the relative-to-largest-eigenvalue
// threshold below which an eigenvalue is treated as zero (default 0).
func Solve(m *mat.Dense, b *mat.VecDense, eigenTolerance float64) (*mat.VecDense, SolvedBy, error) {
	n, c := m.Dims()
	if n != c {
		return nil, None, kernelerrors.NewInvalidInputError("M must be square", nil)
	}
	if b.Len() != n {
		return nil, None, kernelerrors.NewDimensionError("b length must match M's dimension", n, b.Len())
	}

	var lu mat.LU
	lu.Factorize(m)
	a := mat.NewVecDense(n, nil)
	if err := lu.SolveVecTo(a, false, b); err == nil {
		if hasNaN(a) {
			return nil, None, kernelerrors.NewNumericalError("LU solve produced NaN coefficients", math.NaN())
		}
		return a, LU, nil
	}

	var eig mat.EigenSym
	ok := eig.Factorize(symmetrize(m), true)
	if !ok {
		return nil, None, kernelerrors.NewNumericalError("eigendecomposition failed", math.NaN())
	}

	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	eMax := 0.0
	for _, v := range values {
		if av := math.Abs(v); av > eMax {
			eMax = av
		}
	}

	inv := make([]float64, len(values))
	for i, v := range values {
		if v == 0 {
			inv[i] = 0
			continue
		}
		if eigenTolerance > 0 && eMax > 0 && math.Abs(v)/eMax < eigenTolerance {
			inv[i] = 0
			continue
		}
		inv[i] = 1 / v
	}

	// a = R * diag(inv) * R^T * b
	var rtb mat.VecDense
	rtb.MulVec(vectors.T(), b)
	for i := 0; i < rtb.Len(); i++ {
		rtb.SetVec(i, rtb.AtVec(i)*inv[i])
	}
	a := mat.NewVecDense(n, nil)
	a.MulVec(&vectors, &rtb)

	if hasNaN(a) {
		return nil, None, kernelerrors.NewNumericalError("eigendecomposition solve produced NaN coefficients", conditionNumberFromEigen(values))
	}

	return a, Eigenvector, nil
}

// symmetrize returns a SymDense built from m's upper triangle; the
// solver only ever needs to read the upper triangle once M has been
// assembled.
func symmetrize(m *mat.Dense) *mat.SymDense {
	n, _ := m.Dims()
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, m.At(i, j))
		}
	}
	return sym
}

// ConditionNumber computes the condition number of M by the given
// selector: EIGENVALUE is max/min absolute eigenvalue; SVD is max/min
// singular value.
func ConditionNumber(m *mat.Dense, kind solverconfig.ConditionNumberType) (float64, error) {
	switch kind {
	case solverconfig.Eigenvalue:
		var eig mat.EigenSym
		if !eig.Factorize(symmetrize(m), false) {
			return 0, kernelerrors.NewNumericalError("eigendecomposition failed while computing condition number", math.NaN())
		}
		return conditionNumberFromEigen(eig.Values(nil)), nil
	case solverconfig.SVD:
		var svd mat.SVD
		if !svd.Factorize(m, mat.SVDNone) {
			return 0, kernelerrors.NewNumericalError("SVD failed while computing condition number", math.NaN())
		}
		values := svd.Values(nil)
		return ratioMinMax(values), nil
	default:
		return 0, kernelerrors.NewInvalidInputError("unknown condition number selector", nil)
	}
}

func conditionNumberFromEigen(values []float64) float64 {
	abs := make([]float64, len(values))
	for i, v := range values {
		abs[i] = math.Abs(v)
	}
	return ratioMinMax(abs)
}

func ratioMinMax(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	minV, maxV := values[0], values[0]
	for _, v := range values[1:] {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	if minV == 0 {
		return math.Inf(1)
	}
	return maxV / minV
}
