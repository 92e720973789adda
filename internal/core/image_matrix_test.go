// Copyright 2025 bitjungle - Rune Mathisen. All rights reserved.
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.
// The author respectfully requests that it not be used for
// military, warfare, or surveillance applications.

package core

import (
	"testing"

	"github.com/lsstgo/diffimkernel/internal/imaging"
	"github.com/lsstgo/diffimkernel/pkg/testutil"
)

func TestImageMatrixOrientation(t *testing.T) {
	box := imaging.BBox{Width: 3, Height: 2}
	img := imaging.NewDenseImage(box)
	img.Set(0, 0, 10)
	img.Set(2, 1, 20)

	m, err := ImageMatrix(img, box)
	testutil.AssertNoError(t, err, "building an image matrix")
	r, c := m.Dims()
	if r != 2 || c != 3 {
		t.Fatalf("expected a 2x3 matrix, got %dx%d", r, c)
	}
	testutil.AssertAlmostEqual(t, 10, m.At(0, 0), testutil.StrictTolerance, "pixel (0,0)")
	testutil.AssertAlmostEqual(t, 20, m.At(1, 2), testutil.StrictTolerance, "pixel (2,1)")
}

func TestImageMatrixRejectsOutOfBounds(t *testing.T) {
	img := imaging.NewDenseImage(imaging.BBox{Width: 2, Height: 2})
	_, err := ImageMatrix(img, imaging.BBox{Width: 3, Height: 3})
	if err == nil {
		t.Error("expected an error for a rectangle outside the image bounds")
	}
}

func TestInverseVarianceMatrixReciprocal(t *testing.T) {
	box := imaging.BBox{Width: 2, Height: 2}
	variance := testutil.ConstantImage(2, 2, 4)
	inv, err := InverseVarianceMatrix(variance, box)
	testutil.AssertNoError(t, err, "inverting a constant variance image")
	testutil.AssertAlmostEqual(t, 0.25, inv.At(0, 0), testutil.StrictTolerance, "reciprocal variance")
}

func TestInverseVarianceMatrixRejectsZeroVariance(t *testing.T) {
	box := imaging.BBox{Width: 2, Height: 2}
	variance := testutil.ConstantImage(2, 2, 0)
	if _, err := InverseVarianceMatrix(variance, box); err == nil {
		t.Error("expected an error for zero variance")
	}
}

func TestInverseVarianceMatrixRejectsNegativeVariance(t *testing.T) {
	box := imaging.BBox{Width: 2, Height: 2}
	variance := testutil.ConstantImage(2, 2, -1)
	if _, err := InverseVarianceMatrix(variance, box); err == nil {
		t.Error("expected an error for negative variance")
	}
}
