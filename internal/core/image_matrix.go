// Copyright 2025 bitjungle - Rune Mathisen. All rights reserved.
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.
// The author respectfully requests that it not be used for
// military, warfare, or surveillance applications.

package core

import (
	"github.com/lsstgo/diffimkernel/internal/imaging"
	"github.com/lsstgo/diffimkernel/internal/kernelerrors"
	"gonum.org/v1/gonum/mat"
)

// ImageMatrix is a read-only dense-matrix view of an image rectangle.
// Element (row, col) corresponds to pixel (x=box.MinX+col, y=box.MinY+row)
// so that the matrix orientation matches the image's (x,y) addressing.
func ImageMatrix(img imaging.Image, box imaging.BBox) (*mat.Dense, error) {
	if !img.Bounds().Contains(box) {
		return nil, kernelerrors.NewInvalidInputError("requested rectangle is not contained in the image", nil)
	}
	m := mat.NewDense(box.Height, box.Width, nil)
	for row := 0; row < box.Height; row++ {
		y := box.MinY + row
		for col := 0; col < box.Width; col++ {
			x := box.MinX + col
			m.Set(row, col, img.At(x, y))
		}
	}
	return m, nil
}

// InverseVarianceMatrix is the element-wise reciprocal of a variance
// image's ImageMatrix view. It fails if the rectangle is not contained in
// the image, or if any pixel in the selected region has variance <= 0.
func InverseVarianceMatrix(variance imaging.Image, box imaging.BBox) (*mat.Dense, error) {
	vm, err := ImageMatrix(variance, box)
	if err != nil {
		return nil, err
	}
	if err := validatePositiveVariance(variance, box); err != nil {
		return nil, err
	}
	r, c := vm.Dims()
	inv := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			inv.Set(i, j, 1.0/vm.At(i, j))
		}
	}
	return inv, nil
}
