// Copyright 2025 bitjungle - Rune Mathisen. All rights reserved.
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.
// The author respectfully requests that it not be used for
// military, warfare, or surveillance applications.

// Package testutil collects the floating-point comparison and synthetic
// image-generation helpers shared by the solver's package-level tests.
package testutil

import (
	"math"
	"testing"

	"github.com/lsstgo/diffimkernel/internal/imaging"
	"gonum.org/v1/gonum/mat"
)

const (
	// DefaultTolerance is the default numerical tolerance for floating point comparisons
	DefaultTolerance = 1e-10
	// LooseTolerance is used for less strict comparisons
	LooseTolerance = 1e-6
	// StrictTolerance is used for very strict comparisons
	StrictTolerance = 1e-14
)

// AlmostEqual checks if two float64 values are approximately equal within tolerance
func AlmostEqual(a, b, tolerance float64) bool {
	if math.IsNaN(a) && math.IsNaN(b) {
		return true
	}
	if math.IsNaN(a) || math.IsNaN(b) {
		return false
	}
	if math.IsInf(a, 1) && math.IsInf(b, 1) {
		return true
	}
	if math.IsInf(a, -1) && math.IsInf(b, -1) {
		return true
	}
	return math.Abs(a-b) <= tolerance
}

// AssertAlmostEqual checks if two values are almost equal and fails the test if not
func AssertAlmostEqual(t *testing.T, expected, actual, tolerance float64, message string) {
	t.Helper()
	if !AlmostEqual(expected, actual, tolerance) {
		t.Errorf("%s: expected %v, got %v (tolerance %v)", message, expected, actual, tolerance)
	}
}

// AssertSliceAlmostEqual checks if two slices are almost equal element-wise
func AssertSliceAlmostEqual(t *testing.T, expected, actual []float64, tolerance float64, message string) {
	t.Helper()

	if len(expected) != len(actual) {
		t.Errorf("%s: length mismatch - expected %d, got %d", message, len(expected), len(actual))
		return
	}

	for i := range expected {
		if !AlmostEqual(expected[i], actual[i], tolerance) {
			t.Errorf("%s: element [%d] mismatch - expected %v, got %v",
				message, i, expected[i], actual[i])
			return
		}
	}
}

// AssertVecAlmostEqual checks if two gonum vectors are almost equal element-wise.
func AssertVecAlmostEqual(t *testing.T, expected, actual mat.Vector, tolerance float64, message string) {
	t.Helper()
	if expected.Len() != actual.Len() {
		t.Errorf("%s: length mismatch - expected %d, got %d", message, expected.Len(), actual.Len())
		return
	}
	for i := 0; i < expected.Len(); i++ {
		if !AlmostEqual(expected.AtVec(i), actual.AtVec(i), tolerance) {
			t.Errorf("%s: element [%d] mismatch - expected %v, got %v",
				message, i, expected.AtVec(i), actual.AtVec(i))
			return
		}
	}
}

// AssertMatrixAlmostEqual checks if two gonum matrices are almost equal element-wise.
func AssertMatrixAlmostEqual(t *testing.T, expected, actual mat.Matrix, tolerance float64, message string) {
	t.Helper()
	er, ec := expected.Dims()
	ar, ac := actual.Dims()
	if er != ar || ec != ac {
		t.Errorf("%s: dimension mismatch - expected %dx%d, got %dx%d", message, er, ec, ar, ac)
		return
	}
	for i := 0; i < er; i++ {
		for j := 0; j < ec; j++ {
			if !AlmostEqual(expected.At(i, j), actual.At(i, j), tolerance) {
				t.Errorf("%s: element [%d,%d] mismatch - expected %v, got %v",
					message, i, j, expected.At(i, j), actual.At(i, j))
				return
			}
		}
	}
}

// AssertNoError checks that an error is nil and fails the test if not
func AssertNoError(t *testing.T, err error, message string) {
	t.Helper()
	if err != nil {
		t.Errorf("%s: unexpected error: %v", message, err)
	}
}

// AssertError checks that an error is not nil and fails the test if it is
func AssertError(t *testing.T, err error, message string) {
	t.Helper()
	if err == nil {
		t.Errorf("%s: expected error but got nil", message)
	}
}

// ConstantImage builds a width x height DenseImage with origin (0,0)
// filled with v.
func ConstantImage(width, height int, v float64) *imaging.DenseImage {
	return imaging.NewConstantImage(imaging.BBox{Width: width, Height: height}, v)
}

// GradientImage builds a width x height DenseImage whose pixel value is
// vx*x + vy*y + base, useful for exercising spatially-varying fits.
func GradientImage(width, height int, vx, vy, base float64) *imaging.DenseImage {
	box := imaging.BBox{Width: width, Height: height}
	img := imaging.NewDenseImage(box)
	for y := box.MinY; y < box.MaxY(); y++ {
		for x := box.MinX; x < box.MaxX(); x++ {
			img.Set(x, y, vx*float64(x)+vy*float64(y)+base)
		}
	}
	return img
}

// ConvolveToImage convolves src by k over its good region and returns the
// result as a standalone DenseImage, panicking on error since tests
// construct their own well-formed inputs.
func ConvolveToImage(src imaging.Image, k imaging.Kernel2D) *imaging.DenseImage {
	hw := k.HalfWidth
	if k.HalfHeight > hw {
		hw = k.HalfHeight
	}
	dst := imaging.NewDenseImage(src.Bounds().Shrink(hw))
	if err := imaging.Convolve(dst, src, k, false); err != nil {
		panic(err)
	}
	return dst
}
