// Copyright 2025 bitjungle - Rune Mathisen. All rights reserved.
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.
// The author respectfully requests that it not be used for
// military, warfare, or surveillance applications.

package core

import (
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/lsstgo/diffimkernel/internal/solverconfig"
	"github.com/lsstgo/diffimkernel/internal/spatial"
	"github.com/lsstgo/diffimkernel/pkg/testutil"
)

type zeroParamFunction struct{}

func (zeroParamFunction) NParams() int                  { return 0 }
func (zeroParamFunction) Basis(x, y float64) []float64 { return nil }

func TestNewSpatialAggregatorRejectsZeroParamKernelFn(t *testing.T) {
	basis := KernelBasis{DeltaFunctionKernel(1), DeltaFunctionKernel(1)}
	if _, err := NewSpatialAggregator(basis, zeroParamFunction{}, nil, false, false); err == nil {
		t.Error("expected an error when the kernel spatial function reports zero parameters")
	}
}

func TestNewSpatialAggregatorRequiresBackgroundFnWhenFitting(t *testing.T) {
	basis := KernelBasis{DeltaFunctionKernel(1)}
	if _, err := NewSpatialAggregator(basis, spatial.ConstantBasis{}, nil, true, false); err == nil {
		t.Error("expected an error when fitForBackground is set without a background function")
	}
}

func TestSpatialAggregatorNParamsConstantFirstTerm(t *testing.T) {
	basis := KernelBasis{DeltaFunctionKernel(1), DeltaFunctionKernel(1), DeltaFunctionKernel(1)}
	poly, err := spatial.NewPolynomialBasis(1, -1, 1, -1, 1) // 3 params: 1, x, y
	testutil.AssertNoError(t, err, "building a degree-1 polynomial basis")

	agg, err := NewSpatialAggregator(basis, poly, nil, false, true)
	testutil.AssertNoError(t, err, "constructing a spatial aggregator with a constant first term")

	// (nBases-1)*nKt + 1 = (3-1)*3 + 1 = 7
	if got := agg.NParams(); got != 7 {
		t.Errorf("expected 7 spatial parameters, got %d", got)
	}
}

func TestSpatialAggregatorAddConstraintRejectsWrongDims(t *testing.T) {
	basis := KernelBasis{DeltaFunctionKernel(1)}
	agg, err := NewSpatialAggregator(basis, spatial.ConstantBasis{}, nil, false, false)
	testutil.AssertNoError(t, err, "constructing a minimal spatial aggregator")

	badQ := mat.NewDense(2, 2, nil)
	w := mat.NewVecDense(1, nil)
	if err := agg.AddConstraint(0, 0, badQ, w); err == nil {
		t.Error("expected an error for a Q sized for the wrong number of terms")
	}

	goodQ := mat.NewDense(1, 1, []float64{1})
	badW := mat.NewVecDense(2, nil)
	if err := agg.AddConstraint(0, 0, goodQ, badW); err == nil {
		t.Error("expected an error for a w of the wrong length")
	}
}

func TestSpatialAggregatorConstantFirstTermSingleConstraintReproducesQ(t *testing.T) {
	basis := KernelBasis{DeltaFunctionKernel(1), DeltaFunctionKernel(1)}
	agg, err := NewSpatialAggregator(basis, spatial.ConstantBasis{}, nil, false, true)
	testutil.AssertNoError(t, err, "constructing the aggregator")

	q := mat.NewDense(2, 2, []float64{2, 1, 1, 3})
	w := mat.NewVecDense(2, []float64{5, 7})
	testutil.AssertNoError(t, agg.AddConstraint(0, 0, q, w), "adding a single constraint")

	sol, err := agg.Solve(0, solverconfig.Eigenvalue)
	testutil.AssertNoError(t, err, "solving the spatial system")
	if sol.SolvedBy() != LU {
		t.Errorf("expected LU, got %s", sol.SolvedBy())
	}

	// Hand-solving [[2,1],[1,3]] a = [5,7]: det=5, a=[1.6, 1.8].
	coeffs := sol.kernelCoeffsAt(0, 0)
	testutil.AssertSliceAlmostEqual(t, []float64{1.6, 1.8}, coeffs, testutil.LooseTolerance, "constant-first-term spatial coefficients")
}

func TestSpatialAggregatorBackgroundAtWithoutBackgroundIsZero(t *testing.T) {
	basis := KernelBasis{DeltaFunctionKernel(1)}
	agg, err := NewSpatialAggregator(basis, spatial.ConstantBasis{}, nil, false, false)
	testutil.AssertNoError(t, err, "constructing an aggregator without a background term")

	q := mat.NewDense(1, 1, []float64{2})
	w := mat.NewVecDense(1, []float64{4})
	testutil.AssertNoError(t, agg.AddConstraint(0, 0, q, w), "adding a constraint")

	sol, err := agg.Solve(0, solverconfig.Eigenvalue)
	testutil.AssertNoError(t, err, "solving")
	if bg := sol.BackgroundAt(0, 0); bg != 0 {
		t.Errorf("expected zero background when none was fit, got %v", bg)
	}
}

func TestSpatialAggregatorMakeKernelImageAndGetKsum(t *testing.T) {
	basis := KernelBasis{DeltaFunctionKernel(1)}
	agg, err := NewSpatialAggregator(basis, spatial.ConstantBasis{}, nil, false, false)
	testutil.AssertNoError(t, err, "constructing the aggregator")

	q := mat.NewDense(1, 1, []float64{2})
	w := mat.NewVecDense(1, []float64{6})
	testutil.AssertNoError(t, agg.AddConstraint(0, 0, q, w), "adding a constraint")

	sol, err := agg.Solve(0, solverconfig.Eigenvalue)
	testutil.AssertNoError(t, err, "solving")

	img, err := sol.MakeKernelImage(0, 0)
	testutil.AssertNoError(t, err, "rendering the kernel image")
	testutil.AssertAlmostEqual(t, 3.0, img.At(0, 0), testutil.LooseTolerance, "single delta coefficient a=6/2=3 at the center pixel")
	testutil.AssertAlmostEqual(t, 3.0, sol.GetKsum(0, 0), testutil.LooseTolerance, "kernel sum equals its single coefficient for a unit delta basis")
}
