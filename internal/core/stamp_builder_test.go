// Copyright 2025 bitjungle - Rune Mathisen. All rights reserved.
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.
// The author respectfully requests that it not be used for
// military, warfare, or surveillance applications.

package core

import (
	"testing"

	"github.com/lsstgo/diffimkernel/internal/imaging"
	"github.com/lsstgo/diffimkernel/internal/solverconfig"
	"github.com/lsstgo/diffimkernel/pkg/testutil"
)

func identityStamp() Stamp {
	template := testutil.GradientImage(21, 21, 0.3, -0.2, 100)
	return Stamp{
		Template: template,
		Science:  template,
		Variance: testutil.ConstantImage(21, 21, 4),
		CenterX:  10,
		CenterY:  10,
	}
}

func TestBuildAndSolveIdentity(t *testing.T) {
	stamp := identityStamp()
	basis := KernelBasis{DeltaFunctionKernel(2)}

	sol, err := Build(stamp, basis, true)
	testutil.AssertNoError(t, err, "building an identity stamp")

	if err := sol.Solve(0, solverconfig.Eigenvalue); err != nil {
		t.Fatalf("solving an identity stamp: %v", err)
	}
	if sol.SolvedBy() != LU {
		t.Errorf("expected LU, got %s", sol.SolvedBy())
	}

	kernel, err := sol.GetKernel()
	testutil.AssertNoError(t, err, "reading kernel coefficients")
	testutil.AssertAlmostEqual(t, 1.0, kernel[0], testutil.LooseTolerance, "template == science should fit a unit delta kernel")

	bg, err := sol.GetBackground()
	testutil.AssertNoError(t, err, "reading background")
	testutil.AssertAlmostEqual(t, 0.0, bg, testutil.LooseTolerance, "template == science should fit a zero background")
}

func TestBuildAndSolveConstantOffset(t *testing.T) {
	box := imaging.BBox{Width: 21, Height: 21}
	template := testutil.ConstantImage(21, 21, 500)
	science := imaging.NewDenseImage(box)
	for y := box.MinY; y < box.MaxY(); y++ {
		for x := box.MinX; x < box.MaxX(); x++ {
			science.Set(x, y, template.At(x, y)+25)
		}
	}
	stamp := Stamp{
		Template: template,
		Science:  science,
		Variance: testutil.ConstantImage(21, 21, 1),
		CenterX:  10,
		CenterY:  10,
	}
	basis := KernelBasis{DeltaFunctionKernel(1)}

	sol, err := Build(stamp, basis, true)
	testutil.AssertNoError(t, err, "building a constant-offset stamp")
	testutil.AssertNoError(t, sol.Solve(0, solverconfig.Eigenvalue), "solving a constant-offset stamp")

	bg, err := sol.GetBackground()
	testutil.AssertNoError(t, err, "reading background")
	testutil.AssertAlmostEqual(t, 25, bg, testutil.LooseTolerance, "constant offset should be absorbed by the background term")
}

func TestBuildRejectsShapeMismatch(t *testing.T) {
	stamp := identityStamp()
	stamp.Science = testutil.ConstantImage(5, 5, 1)
	if _, err := Build(stamp, KernelBasis{DeltaFunctionKernel(1)}, true); err == nil {
		t.Error("expected an error for mismatched stamp shapes")
	}
}

func TestBuildWithMaskExcludesBadPixels(t *testing.T) {
	stamp := identityStamp()
	mask := imaging.NewDenseMask(stamp.Template.Bounds())
	mask.SetBox(imaging.BBox{MinX: 9, MinY: 9, Width: 3, Height: 3}, imaging.BAD)
	stamp.Mask = mask

	basis := KernelBasis{DeltaFunctionKernel(2)}
	sol, err := BuildWithMask(stamp, basis, true)
	testutil.AssertNoError(t, err, "building with a mask excluding a core patch")

	unmasked, err := Build(identityStamp(), basis, true)
	testutil.AssertNoError(t, err, "building the unmasked reference")

	maskedRows, _ := sol.C.Dims()
	unmaskedRows, _ := unmasked.C.Dims()
	if maskedRows >= unmaskedRows {
		t.Errorf("expected the masked build to use fewer pixels: masked=%d unmasked=%d", maskedRows, unmaskedRows)
	}
}

func TestBuildWithMaskRequiresMask(t *testing.T) {
	stamp := identityStamp()
	if _, err := BuildWithMask(stamp, KernelBasis{DeltaFunctionKernel(1)}, true); err == nil {
		t.Error("expected an error when BuildWithMask is called without a mask")
	}
}

func TestBuildSingleExcludesBox(t *testing.T) {
	stamp := identityStamp()
	basis := KernelBasis{DeltaFunctionKernel(2)}
	good := basis.GoodRegion(stamp.Template.Bounds())
	excluded := imaging.BBox{MinX: good.MinX + 2, MinY: good.MinY + 2, Width: 3, Height: 3}

	sol, err := BuildSingle(stamp, basis, excluded, true)
	testutil.AssertNoError(t, err, "building with a single excluded rectangle")

	rows, _ := sol.C.Dims()
	wantRows := good.Width*good.Height - excluded.Width*excluded.Height
	if rows != wantRows {
		t.Errorf("expected %d pixels after excluding the box, got %d", wantRows, rows)
	}
}

func TestSolvedByString(t *testing.T) {
	cases := map[SolvedBy]string{
		NotAttempted: "NOT_ATTEMPTED",
		LU:           "LU",
		Eigenvector:  "EIGENVECTOR",
		None:         "NONE",
	}
	for sb, want := range cases {
		if got := sb.String(); got != want {
			t.Errorf("SolvedBy(%d).String() = %q, want %q", sb, got, want)
		}
	}
}

func TestGetKernelBeforeSolveFails(t *testing.T) {
	stamp := identityStamp()
	sol, err := Build(stamp, KernelBasis{DeltaFunctionKernel(1)}, true)
	testutil.AssertNoError(t, err, "building a stamp")
	if _, err := sol.GetKernel(); err == nil {
		t.Error("expected an error reading kernel coefficients before solving")
	}
}

func TestGetBackgroundWithoutBackgroundTermFails(t *testing.T) {
	stamp := identityStamp()
	sol, err := Build(stamp, KernelBasis{DeltaFunctionKernel(1)}, false)
	testutil.AssertNoError(t, err, "building a stamp without a background term")
	testutil.AssertNoError(t, sol.Solve(0, solverconfig.Eigenvalue), "solving")
	if _, err := sol.GetBackground(); err == nil {
		t.Error("expected an error reading background from a solution with no background term")
	}
}
