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

func TestConvolveBasisDeltaIsIdentity(t *testing.T) {
	template := testutil.GradientImage(10, 10, 1, 2, 5)
	basis := KernelBasis{DeltaFunctionKernel(1)}

	results, err := ConvolveBasis(template, basis)
	testutil.AssertNoError(t, err, "convolving by a delta basis")
	if len(results) != 1 {
		t.Fatalf("expected one convolved basis, got %d", len(results))
	}

	good := basis.GoodRegion(template.Bounds())
	if results[0].GoodRegion != good {
		t.Errorf("expected good region %+v, got %+v", good, results[0].GoodRegion)
	}

	want := flattenColumnMajor(template, good)
	testutil.AssertSliceAlmostEqual(t, want, results[0].Column, testutil.LooseTolerance, "delta convolution should reproduce the template")
}

func TestConvolveBasisRejectsTooSmallImage(t *testing.T) {
	template := testutil.ConstantImage(3, 3, 1)
	basis := KernelBasis{DeltaFunctionKernel(5)}
	if _, err := ConvolveBasis(template, basis); err == nil {
		t.Error("expected an error when the kernel leaves no good region")
	}
}

func TestFlattenColumnMajorOrdering(t *testing.T) {
	box := imaging.BBox{Width: 2, Height: 2}
	img := imaging.NewDenseImage(box)
	img.Set(0, 0, 1)
	img.Set(0, 1, 2)
	img.Set(1, 0, 3)
	img.Set(1, 1, 4)

	got := flattenColumnMajor(img, box)
	want := []float64{1, 2, 3, 4}
	testutil.AssertSliceAlmostEqual(t, want, got, testutil.StrictTolerance, "column-major flatten order")
}
