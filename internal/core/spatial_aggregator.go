// Copyright 2025 bitjungle - Rune Mathisen. All rights reserved.
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.
// The author respectfully requests that it not be used for
// military, warfare, or surveillance applications.

package core

import (
	"fmt"

	"github.com/lsstgo/diffimkernel/internal/imaging"
	"github.com/lsstgo/diffimkernel/internal/kernelerrors"
	"github.com/lsstgo/diffimkernel/internal/solverconfig"
	"github.com/lsstgo/diffimkernel/internal/spatial"
	"gonum.org/v1/gonum/mat"
)

// SpatialAggregator accumulates per-stamp (Q,w) normal-equation
// contributions into a single block-structured system over spatial x
// kernel indices, then solves for the spatially varying kernel and
// background coefficients.
//
// Row/column 0 is special-cased when ConstantFirstTerm is set, matching
// the Alard-Lupton convention that the first basis kernel does not vary
// spatially.
type SpatialAggregator struct {
	Basis             KernelBasis
	KernelFn          spatial.Function
	BackgroundFn      spatial.Function
	FitForBackground  bool
	ConstantFirstTerm bool

	nBases int
	nKt    int
	nBt    int
	nt     int

	msp *mat.Dense
	bsp *mat.VecDense
}

// NewSpatialAggregator constructs an empty aggregator sized for the given
// basis and spatial functions. kernelFn evaluates the shared kernel
// spatial basis (its value enters every non-constant kernel block);
// backgroundFn is ignored when fitForBackground is false.
func NewSpatialAggregator(basis KernelBasis, kernelFn, backgroundFn spatial.Function, fitForBackground, constantFirstTerm bool) (*SpatialAggregator, error) {
	if err := basis.Validate(); err != nil {
		return nil, err
	}
	nBases := len(basis)
	if constantFirstTerm && nBases < 1 {
		return nil, kernelerrors.NewInvalidInputError("constantFirstTerm requires at least one basis kernel", nil)
	}
	nKt := kernelFn.NParams()
	if nKt < 1 {
		return nil, kernelerrors.NewInvalidInputError("kernel spatial function must report at least one parameter", nil)
	}

	nBt := 0
	if fitForBackground {
		if backgroundFn == nil {
			return nil, kernelerrors.NewInvalidInputError("fitForBackground requires a background spatial function", nil)
		}
		nBt = backgroundFn.NParams()
		if nBt < 1 {
			return nil, kernelerrors.NewInvalidInputError("background spatial function must report at least one parameter", nil)
		}
	}

	var nt int
	if constantFirstTerm {
		nt = (nBases-1)*nKt + 1 + nBt
	} else {
		nt = nBases*nKt + nBt
	}

	return &SpatialAggregator{
		Basis:             basis,
		KernelFn:          kernelFn,
		BackgroundFn:      backgroundFn,
		FitForBackground:  fitForBackground,
		ConstantFirstTerm: constantFirstTerm,
		nBases:            nBases,
		nKt:               nKt,
		nBt:               nBt,
		nt:                nt,
		msp:               newSquareMatrix(nt),
		bsp:               newVector(nt),
	}, nil
}

// NParams returns the total number of spatial unknowns (nt).
func (a *SpatialAggregator) NParams() int { return a.nt }

// blockOffset returns the column/row offset of kernel basis m's block
// within M_sp/b_sp, and that block's width (1 for the constant first
// term, nKt otherwise).
func (a *SpatialAggregator) blockOffset(m int) (offset, width int) {
	if a.ConstantFirstTerm {
		if m == 0 {
			return 0, 1
		}
		return 1 + (m-1)*a.nKt, a.nKt
	}
	return m * a.nKt, a.nKt
}

// bgOffset returns the offset of the background block, valid only when
// FitForBackground is true.
func (a *SpatialAggregator) bgOffset() int { return a.nt - a.nBt }

// AddConstraint folds one stamp's local (Q,w) contribution, evaluated at
// stamp center (x,y), into the running global system. Q
// must be square of size nBases+hasBg; w must match.
func (a *SpatialAggregator) AddConstraint(x, y float64, q *mat.Dense, w *mat.VecDense) error {
	hasBg := 0
	if a.FitForBackground {
		hasBg = 1
	}
	size := a.nBases + hasBg

	qr, qc := q.Dims()
	if qr != size || qc != size {
		return kernelerrors.NewDimensionError("Q must be (nBases+hasBg) square", size, qr)
	}
	if w.Len() != size {
		return kernelerrors.NewDimensionError("w must have length nBases+hasBg", size, w.Len())
	}

	pK := a.KernelFn.Basis(x, y)
	if len(pK) != a.nKt {
		return kernelerrors.NewDimensionError("kernel spatial function returned the wrong number of values", a.nKt, len(pK))
	}
	var pB []float64
	if a.FitForBackground {
		pB = a.BackgroundFn.Basis(x, y)
		if len(pB) != a.nBt {
			return kernelerrors.NewDimensionError("background spatial function returned the wrong number of values", a.nBt, len(pB))
		}
	}

	if a.ConstantFirstTerm {
		a.msp.Set(0, 0, a.msp.At(0, 0)+q.At(0, 0))
		a.bsp.SetVec(0, a.bsp.AtVec(0)+w.AtVec(0))

		for m := 1; m < a.nBases; m++ {
			off, width := a.blockOffset(m)
			qv := q.At(0, m)
			for j := 0; j < width; j++ {
				a.msp.Set(0, off+j, a.msp.At(0, off+j)+qv*pK[j])
			}
		}
		if a.FitForBackground {
			bgOff := a.bgOffset()
			qv := q.At(0, a.nBases)
			for j := 0; j < a.nBt; j++ {
				a.msp.Set(0, bgOff+j, a.msp.At(0, bgOff+j)+qv*pB[j])
			}
		}
	}

	m0 := 0
	if a.ConstantFirstTerm {
		m0 = 1
	}
	for m1 := m0; m1 < a.nBases; m1++ {
		off1, w1 := a.blockOffset(m1)

		q11 := q.At(m1, m1)
		for i := 0; i < w1; i++ {
			for j := i; j < w1; j++ {
				a.msp.Set(off1+i, off1+j, a.msp.At(off1+i, off1+j)+q11*pK[i]*pK[j])
			}
		}

		for m2 := m1 + 1; m2 < a.nBases; m2++ {
			off2, w2 := a.blockOffset(m2)
			q12 := q.At(m1, m2)
			for i := 0; i < w1; i++ {
				for j := 0; j < w2; j++ {
					a.msp.Set(off1+i, off2+j, a.msp.At(off1+i, off2+j)+q12*pK[i]*pK[j])
				}
			}
		}

		if a.FitForBackground {
			bgOff := a.bgOffset()
			qkb := q.At(m1, a.nBases)
			for i := 0; i < w1; i++ {
				for j := 0; j < a.nBt; j++ {
					a.msp.Set(off1+i, bgOff+j, a.msp.At(off1+i, bgOff+j)+qkb*pK[i]*pB[j])
				}
			}
		}

		wv := w.AtVec(m1)
		for i := 0; i < w1; i++ {
			a.bsp.SetVec(off1+i, a.bsp.AtVec(off1+i)+wv*pK[i])
		}
	}

	if a.FitForBackground {
		bgOff := a.bgOffset()
		qbb := q.At(a.nBases, a.nBases)
		for i := 0; i < a.nBt; i++ {
			for j := i; j < a.nBt; j++ {
				a.msp.Set(bgOff+i, bgOff+j, a.msp.At(bgOff+i, bgOff+j)+qbb*pB[i]*pB[j])
			}
		}
		wv := w.AtVec(a.nBases)
		for i := 0; i < a.nBt; i++ {
			a.bsp.SetVec(bgOff+i, a.bsp.AtVec(bgOff+i)+wv*pB[i])
		}
	}

	return nil
}

// SpatialSolution is the finalized result of a SpatialAggregator: the
// spatial kernel and background coefficients, plus enough state to
// evaluate a kernel image or background value at any (x,y).
type SpatialSolution struct {
	agg             *SpatialAggregator
	solvedBy        SolvedBy
	conditionNumber float64
	kCoeffs         [][]float64 // per basis, variable width (1 for the constant-first-term slot)
	bgCoeffs        []float64
}

// SolvedBy reports how the spatial solve was produced.
func (s *SpatialSolution) SolvedBy() SolvedBy { return s.solvedBy }

// ConditionNumber returns the condition number computed during solve.
func (s *SpatialSolution) ConditionNumber() float64 { return s.conditionNumber }

// Solve symmetrizes M_sp (copy upper to lower), solves the accumulated
// system via the linear solver, and unpacks the result into spatial
// kernel and background coefficients. Any NaN coefficient
// is fatal; the error message includes the reported condition number.
func (a *SpatialAggregator) Solve(eigenTolerance float64, condType solverconfig.ConditionNumberType) (*SpatialSolution, error) {
	copyUpperToLower(a.msp)

	condNum, err := ConditionNumber(a.msp, condType)
	if err != nil {
		return nil, err
	}

	coeffs, solvedBy, err := Solve(a.msp, a.bsp, eigenTolerance)
	if err != nil {
		return nil, kernelerrors.NewNumericalError(
			fmt.Sprintf("%s (condition number %.6g)", err.Error(), condNum), condNum)
	}

	sol := &SpatialSolution{
		agg:             a,
		solvedBy:        solvedBy,
		conditionNumber: condNum,
		kCoeffs:         make([][]float64, a.nBases),
	}
	for m := 0; m < a.nBases; m++ {
		off, width := a.blockOffset(m)
		row := make([]float64, width)
		for j := 0; j < width; j++ {
			row[j] = coeffs.AtVec(off + j)
		}
		sol.kCoeffs[m] = row
	}
	if a.FitForBackground {
		bgOff := a.bgOffset()
		sol.bgCoeffs = make([]float64, a.nBt)
		for j := 0; j < a.nBt; j++ {
			sol.bgCoeffs[j] = coeffs.AtVec(bgOff + j)
		}
	}
	return sol, nil
}

// kernelCoeffsAt evaluates each basis's spatial polynomial at (x,y) and
// returns the nBases resulting kernel coefficients.
func (s *SpatialSolution) kernelCoeffsAt(x, y float64) []float64 {
	out := make([]float64, s.agg.nBases)
	phi := s.agg.KernelFn.Basis(x, y)
	for m, row := range s.kCoeffs {
		if s.agg.ConstantFirstTerm && m == 0 {
			out[m] = row[0]
			continue
		}
		var v float64
		for j, c := range row {
			v += c * phi[j]
		}
		out[m] = v
	}
	return out
}

// BackgroundAt evaluates the fitted background at (x,y). It returns 0 if
// this solution was built without a background column.
func (s *SpatialSolution) BackgroundAt(x, y float64) float64 {
	if !s.agg.FitForBackground {
		return 0
	}
	phi := s.agg.BackgroundFn.Basis(x, y)
	var v float64
	for j, c := range s.bgCoeffs {
		v += c * phi[j]
	}
	return v
}

// MakeKernelImage renders the kernel (Sigma_i kernelCoeffsAt(x,y)[i] *
// basis_i) at the given position as a dense image sized to the basis
// footprint.
func (s *SpatialSolution) MakeKernelImage(x, y float64) (*imaging.DenseImage, error) {
	coeffs := s.kernelCoeffsAt(x, y)
	basis := s.agg.Basis
	hw, hh := basis[0].HalfWidth, basis[0].HalfHeight
	box := imaging.BBox{MinX: -hw, MinY: -hh, Width: 2*hw + 1, Height: 2*hh + 1}
	img := imaging.NewDenseImage(box)
	for dy := -hh; dy <= hh; dy++ {
		for dx := -hw; dx <= hw; dx++ {
			var v float64
			for i, c := range coeffs {
				v += c * basis[i].At(dx, dy)
			}
			img.Set(dx, dy, v)
		}
	}
	return img, nil
}

// GetKsum returns the sum of the kernel image's pixels at the given
// nominal position: Sigma_i kernelCoeffsAt(x,y)[i] * sum(basis_i).
func (s *SpatialSolution) GetKsum(x, y float64) float64 {
	coeffs := s.kernelCoeffsAt(x, y)
	var sum float64
	for i, c := range coeffs {
		sum += c * s.agg.Basis[i].Sum()
	}
	return sum
}
