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

// BuildRegularized is Build extended with a regularization matrix H and a
// lambda selection policy. H must be nKernel+nBg
// square (background row/col typically zero) and is owned read-only by
// the caller.
func BuildRegularized(stamp Stamp, basis KernelBasis, fitForBackground bool, h *mat.Dense, opts solverconfig.RegularizationOptions) (*StaticSolution, error) {
	sol, err := Build(stamp, basis, fitForBackground)
	if err != nil {
		return nil, err
	}
	return attachRegularization(sol, h, opts)
}

// BuildRegularizedWithMask is BuildWithMask extended with regularization.
func BuildRegularizedWithMask(stamp Stamp, basis KernelBasis, fitForBackground bool, h *mat.Dense, opts solverconfig.RegularizationOptions) (*StaticSolution, error) {
	sol, err := BuildWithMask(stamp, basis, fitForBackground)
	if err != nil {
		return nil, err
	}
	return attachRegularization(sol, h, opts)
}

func attachRegularization(sol *StaticSolution, h *mat.Dense, opts solverconfig.RegularizationOptions) (*StaticSolution, error) {
	n, c := h.Dims()
	mr, _ := sol.M.Dims()
	if n != c || n != mr {
		return nil, kernelerrors.NewDimensionError("regularization matrix H must match M's dimension", mr, n)
	}
	sol.H = h

	lambda, err := chooseLambda(sol.C, sol.M, sol.B, h, opts)
	if err != nil {
		return nil, err
	}
	sol.Lambda = lambda
	return sol, nil
}

// chooseLambda selects lambda per opts.LambdaType.
func chooseLambda(c, m *mat.Dense, b *mat.VecDense, h *mat.Dense, opts solverconfig.RegularizationOptions) (float64, error) {
	switch opts.LambdaType {
	case solverconfig.Absolute:
		return opts.LambdaValue, nil
	case solverconfig.Relative:
		traceH := traceOf(h)
		if traceH == 0 {
			return 0, kernelerrors.NewInvalidInputError("relative lambda requires a nonzero-trace H", nil)
		}
		return (traceOf(m) / traceH) * opts.LambdaScaling, nil
	case solverconfig.MinimizeBiasedRisk:
		return minimizeRisk(c, m, b, h, opts, false)
	case solverconfig.MinimizeUnbiasedRisk:
		return minimizeRisk(c, m, b, h, opts, true)
	default:
		return 0, kernelerrors.NewInvalidInputError("unknown lambdaType", nil)
	}
}

// lambdaGrid returns the candidate lambda values per opts.LambdaStepType.
func lambdaGrid(opts solverconfig.RegularizationOptions) ([]float64, error) {
	var grid []float64
	switch opts.LambdaStepType {
	case solverconfig.Linear:
		for v := opts.LambdaLinMin; v <= opts.LambdaLinMax+1e-12; v += opts.LambdaLinStep {
			grid = append(grid, v)
		}
	case solverconfig.Log:
		for v := opts.LambdaLogMin; v <= opts.LambdaLogMax+1e-12; v += opts.LambdaLogStep {
			grid = append(grid, math.Pow(10, v))
		}
	default:
		return nil, kernelerrors.NewInvalidInputError("unknown lambdaStepType", nil)
	}
	if len(grid) == 0 {
		return nil, kernelerrors.NewInvalidInputError("lambda grid is empty", nil)
	}
	return grid, nil
}

// minimizeRisk evaluates the biased/unbiased risk estimator over a
// lambda grid and returns the argmin:
//
//	risk(lambda) = a^T V V^T a + 2*(tr(V V^T (M+lambda H)^-1) - a^T M+ b)
//
// where a = M+ b, V is the (truncated) right singular vectors of C, and
// M+ is the truncated pseudo-inverse of M with eigenvalues whose ratio
// to eMax exceeds maxCond zeroed out (maxCond=+Inf for the unbiased
// variant). V is truncated by the same maxCond threshold so the biased
// and unbiased variants stay consistent between the M+ and C truncations.
func minimizeRisk(c, m *mat.Dense, b *mat.VecDense, h *mat.Dense, opts solverconfig.RegularizationOptions, unbiased bool) (float64, error) {
	grid, err := lambdaGrid(opts)
	if err != nil {
		return 0, err
	}

	maxCond := opts.MaxCond
	if unbiased {
		maxCond = math.Inf(1)
	}

	mPinv, err := truncatedPseudoInverse(m, maxCond)
	if err != nil {
		return 0, err
	}

	var a mat.VecDense
	a.MulVec(mPinv, b)
	var aMPinvB float64
	for i := 0; i < a.Len(); i++ {
		aMPinvB += a.AtVec(i) * a.AtVec(i)
	}

	v, err := truncatedRightSingularVectors(c, maxCond)
	if err != nil {
		return 0, err
	}

	var vtA mat.VecDense
	vtA.MulVec(v.T(), &a)
	var aVVtA float64
	for i := 0; i < vtA.Len(); i++ {
		aVVtA += vtA.AtVec(i) * vtA.AtVec(i)
	}

	best := grid[0]
	bestRisk := math.Inf(1)
	for _, lambda := range grid {
		risk, err := riskAtLambda(v, aVVtA, aMPinvB, m, h, lambda)
		if err != nil || math.IsNaN(risk) {
			continue
		}
		if risk < bestRisk {
			bestRisk = risk
			best = lambda
		}
	}
	return best, nil
}

// riskAtLambda evaluates risk(lambda) = aVVtA + 2*(tr(V V^T (M+lambda H)^-1) - aMPinvB)
// for a single lambda, given the lambda-independent quantities aVVtA, aMPinvB and V
// precomputed by the caller.
func riskAtLambda(v *mat.Dense, aVVtA, aMPinvB float64, m, h *mat.Dense, lambda float64) (float64, error) {
	var mh mat.Dense
	mh.Scale(lambda, h)
	mh.Add(m, &mh)

	var mhInv mat.Dense
	if err := mhInv.Inverse(&mh); err != nil {
		return 0, err
	}

	var vtMhInv mat.Dense
	vtMhInv.Mul(v.T(), &mhInv)
	var vtMhInvV mat.Dense
	vtMhInvV.Mul(&vtMhInv, v)
	trace := traceOf(&vtMhInvV)

	return aVVtA + 2*(trace-aMPinvB), nil
}

// truncatedRightSingularVectors computes the right singular vectors of
// the design matrix c (nPix x nParams), dropping columns whose singular
// value ratio to the largest exceeds maxCond, the same truncation rule
// truncatedPseudoInverse applies to M's eigenvalues.
func truncatedRightSingularVectors(c *mat.Dense, maxCond float64) (*mat.Dense, error) {
	var svd mat.SVD
	if !svd.Factorize(c, mat.SVDThin) {
		return nil, kernelerrors.NewNumericalError("SVD failed while computing right singular vectors of C", math.NaN())
	}
	values := svd.Values(nil)
	var vAll mat.Dense
	svd.VTo(&vAll)

	sMax := 0.0
	for _, s := range values {
		if s > sMax {
			sMax = s
		}
	}

	n, _ := vAll.Dims()
	var keep []int
	for i, s := range values {
		if s == 0 {
			continue
		}
		if !math.IsInf(maxCond, 1) && sMax > 0 && sMax/s > maxCond {
			continue
		}
		keep = append(keep, i)
	}
	if len(keep) == 0 {
		return nil, kernelerrors.NewNumericalError("no singular vectors of C survive truncation", sMax)
	}

	v := mat.NewDense(n, len(keep), nil)
	for j, col := range keep {
		for i := 0; i < n; i++ {
			v.Set(i, j, vAll.At(i, col))
		}
	}
	return v, nil
}

// truncatedPseudoInverse computes the Moore-Penrose pseudo-inverse of the
// symmetric m, zeroing eigenvalues whose ratio to the largest exceeds
// maxCond: an eigenvalue e is dropped when eMax/e > maxCond, which is not
// quite the same as e being below eMax/maxCond once maxCond itself is
// near the edge of float64 precision, so the ratio test is implemented
// literally rather than algebraically rearranged.
func truncatedPseudoInverse(m *mat.Dense, maxCond float64) (*mat.Dense, error) {
	var eig mat.EigenSym
	if !eig.Factorize(symmetrize(m), true) {
		return nil, kernelerrors.NewNumericalError("eigendecomposition failed while building truncated pseudo-inverse", math.NaN())
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

	n := len(values)
	invDiag := mat.NewDiagDense(n, make([]float64, n))
	for i, v := range values {
		if v == 0 {
			continue
		}
		if !math.IsInf(maxCond, 1) && eMax > 0 && eMax/math.Abs(v) > maxCond {
			continue
		}
		invDiag.SetDiag(i, 1/v)
	}

	var tmp mat.Dense
	tmp.Mul(&vectors, invDiag)
	var out mat.Dense
	out.Mul(&tmp, vectors.T())
	return &out, nil
}
