// Copyright 2025 bitjungle - Rune Mathisen. All rights reserved.
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.
// The author respectfully requests that it not be used for
// military, warfare, or surveillance applications.

package core

import (
	"github.com/lsstgo/diffimkernel/internal/imaging"
	"github.com/lsstgo/diffimkernel/internal/kernelerrors"
)

// ConvolvedBasis is the result of convolving a template by one basis
// kernel: the good region it was computed over, and the flattened,
// column-major pixel vector of length P = goodRegion.Width*Height.
type ConvolvedBasis struct {
	GoodRegion imaging.BBox
	Column     []float64
}

// ConvolveBasis convolves template with every kernel in basis, restricted
// to the basis's good region. The result's Column
// fields are flattened column-major (x varies slowest) to match the
// stamp builder's pixel ordering convention.
func ConvolveBasis(template imaging.Image, basis KernelBasis) ([]ConvolvedBasis, error) {
	images, goodRegion, err := convolveBasisImages(template, basis)
	if err != nil {
		return nil, err
	}
	out := make([]ConvolvedBasis, len(images))
	for i, img := range images {
		out[i] = ConvolvedBasis{GoodRegion: goodRegion, Column: flattenColumnMajor(img, goodRegion)}
	}
	return out, nil
}

// convolveBasisImages convolves template by every basis kernel, returning
// the dense good-region image for each (rather than a flattened vector).
// Used by buildWithMask/buildSingle, which need to sample an arbitrary
// pixel subset rather than the whole good region.
func convolveBasisImages(template imaging.Image, basis KernelBasis) ([]*imaging.DenseImage, imaging.BBox, error) {
	if err := basis.Validate(); err != nil {
		return nil, imaging.BBox{}, err
	}
	goodRegion := basis.GoodRegion(template.Bounds())
	if goodRegion.Empty() {
		return nil, imaging.BBox{}, kernelerrors.NewInvalidInputError("basis kernel half-width leaves no good region in this image", nil)
	}

	images := make([]*imaging.DenseImage, len(basis))
	for i, k := range basis {
		dst := imaging.NewDenseImage(goodRegion)
		if err := imaging.Convolve(dst, template, k.Kernel2D, false); err != nil {
			return nil, imaging.BBox{}, err
		}
		images[i] = dst
	}
	return images, goodRegion, nil
}

// flattenColumnMajor reads img over box in column-major order: for each
// x (column) in turn, all y (rows) top to bottom.
func flattenColumnMajor(img imaging.Image, box imaging.BBox) []float64 {
	out := make([]float64, 0, box.Width*box.Height)
	for x := box.MinX; x < box.MaxX(); x++ {
		for y := box.MinY; y < box.MaxY(); y++ {
			out = append(out, img.At(x, y))
		}
	}
	return out
}
