// Copyright 2025 bitjungle - Rune Mathisen. All rights reserved.
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.
// The author respectfully requests that it not be used for
// military, warfare, or surveillance applications.

package core

import (
	"gonum.org/v1/gonum/mat"
)

// newSquareMatrix creates a new zero-filled square matrix of the given
// size, used to allocate M (and M_sp).
func newSquareMatrix(size int) *mat.Dense {
	return mat.NewDense(size, size, nil)
}

// newVector creates a new zero-filled vector of the given size, used to
// allocate b (and b_sp).
func newVector(size int) *mat.VecDense {
	return mat.NewVecDense(size, nil)
}

// copyMatrixData creates a flat, row-major copy of a matrix's data.
func copyMatrixData(source mat.Matrix) []float64 {
	r, c := source.Dims()
	data := make([]float64, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			data[i*c+j] = source.At(i, j)
		}
	}
	return data
}

// copyUpperToLower symmetrizes m in place by copying the strict upper
// triangle onto the strict lower triangle. The spatial aggregator only
// populates the upper triangle while accumulating M_sp, since only the
// upper triangle is required once assembly is complete.
func copyUpperToLower(m *mat.Dense) {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := i + 1; j < c; j++ {
			m.Set(j, i, m.At(i, j))
		}
	}
}

// traceOf returns the trace of a square matrix.
func traceOf(m mat.Matrix) float64 {
	r, _ := m.Dims()
	var sum float64
	for i := 0; i < r; i++ {
		sum += m.At(i, i)
	}
	return sum
}

// hasNaN reports whether any element of v is NaN.
func hasNaN(v *mat.VecDense) bool {
	n := v.Len()
	for i := 0; i < n; i++ {
		if x := v.AtVec(i); x != x {
			return true
		}
	}
	return false
}
