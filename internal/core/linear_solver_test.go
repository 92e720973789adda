// Copyright 2025 bitjungle - Rune Mathisen. All rights reserved.
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.
// The author respectfully requests that it not be used for
// military, warfare, or surveillance applications.

package core

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/lsstgo/diffimkernel/internal/solverconfig"
	"github.com/lsstgo/diffimkernel/pkg/testutil"
)

func TestSolveDiagonalSystem(t *testing.T) {
	m := mat.NewDense(3, 3, []float64{
		2, 0, 0,
		0, 4, 0,
		0, 0, 8,
	})
	b := mat.NewVecDense(3, []float64{2, 8, 24})

	a, solvedBy, err := Solve(m, b, 0)
	testutil.AssertNoError(t, err, "solving a well-conditioned diagonal system")
	if solvedBy != LU {
		t.Errorf("expected LU, got %s", solvedBy)
	}
	want := []float64{1, 2, 3}
	testutil.AssertVecAlmostEqual(t, mat.NewVecDense(3, want), a, testutil.LooseTolerance, "diagonal solve")
}

func TestSolveSingularFallsBackToEigenvector(t *testing.T) {
	// A rank-deficient symmetric matrix: row/col 2 is a duplicate of row/col 0.
	m := mat.NewDense(3, 3, []float64{
		1, 0, 1,
		0, 2, 0,
		1, 0, 1,
	})
	b := mat.NewVecDense(3, []float64{1, 2, 1})

	a, solvedBy, err := Solve(m, b, 1e-10)
	testutil.AssertNoError(t, err, "solving a singular system via eigendecomposition")
	if solvedBy != Eigenvector {
		t.Errorf("expected EIGENVECTOR, got %s", solvedBy)
	}
	if a.Len() != 3 {
		t.Fatalf("expected 3 coefficients, got %d", a.Len())
	}
}

func TestSolveRejectsNonSquare(t *testing.T) {
	m := mat.NewDense(2, 3, make([]float64, 6))
	b := mat.NewVecDense(2, nil)
	if _, _, err := Solve(m, b, 0); err == nil {
		t.Error("expected an error for a non-square M")
	}
}

func TestSolveRejectsMismatchedB(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	b := mat.NewVecDense(3, nil)
	if _, _, err := Solve(m, b, 0); err == nil {
		t.Error("expected an error when b's length does not match M's dimension")
	}
}

func TestConditionNumberIdentity(t *testing.T) {
	m := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		m.Set(i, i, 1)
	}
	for _, kind := range []solverconfig.ConditionNumberType{solverconfig.Eigenvalue, solverconfig.SVD} {
		cn, err := ConditionNumber(m, kind)
		testutil.AssertNoError(t, err, "condition number of identity")
		testutil.AssertAlmostEqual(t, 1.0, cn, testutil.LooseTolerance, "identity condition number via "+string(kind))
	}
}

func TestConditionNumberSingularIsInfinite(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{1, 0, 0, 0})
	cn, err := ConditionNumber(m, solverconfig.Eigenvalue)
	testutil.AssertNoError(t, err, "condition number of a singular matrix")
	if !math.IsInf(cn, 1) {
		t.Errorf("expected +Inf condition number, got %v", cn)
	}
}

func TestConditionNumberUnknownSelector(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	if _, err := ConditionNumber(m, solverconfig.ConditionNumberType("bogus")); err == nil {
		t.Error("expected an error for an unknown condition number selector")
	}
}
