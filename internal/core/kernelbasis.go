// Copyright 2025 bitjungle - Rune Mathisen. All rights reserved.
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.
// The author respectfully requests that it not be used for
// military, warfare, or surveillance applications.

// Package core implements the numerical core of the image-difference
// kernel solver: the stamp builder, linear solver, regularized solver,
// spatial aggregator, and candidate orchestration, together with their
// matrix-view and convolution support types.
package core

import (
	"math"

	"github.com/lsstgo/diffimkernel/internal/imaging"
	"github.com/lsstgo/diffimkernel/internal/kernelerrors"
)

// BasisKernel is a single, odd-dimensioned basis kernel image. It wraps
// imaging.Kernel2D with the "good region" operation the stamp builder
// and convolver rely on.
type BasisKernel struct {
	imaging.Kernel2D
}

// GoodRegion shrinks box by this kernel's half-width on all sides: the
// sub-rectangle where convolution by this kernel produces valid,
// non-edge-affected output.
func (b BasisKernel) GoodRegion(box imaging.BBox) imaging.BBox {
	hw := b.HalfWidth
	if b.HalfHeight > hw {
		hw = b.HalfHeight
	}
	return box.Shrink(hw)
}

// KernelBasis is an ordered sequence of BasisKernel. Order is meaningful:
// depending on configuration, the first element may be designated
// spatially constant in the spatial model.
type KernelBasis []BasisKernel

// Validate checks that every basis kernel shares the same half-width:
// all basis kernels in a list must share the same center offsets.
func (kb KernelBasis) Validate() error {
	if len(kb) == 0 {
		return kernelerrors.NewInvalidInputError("kernel basis must have at least one element", nil)
	}
	hw, hh := kb[0].HalfWidth, kb[0].HalfHeight
	for i, k := range kb {
		if k.HalfWidth != hw || k.HalfHeight != hh {
			return kernelerrors.NewInvalidInputError("all basis kernels must share the same half-width", nil)
		}
		_ = i
	}
	return nil
}

// GoodRegion returns the good region for the whole basis: the first
// kernel determines it, and Validate guarantees every
// other kernel agrees.
func (kb KernelBasis) GoodRegion(box imaging.BBox) imaging.BBox {
	return kb[0].GoodRegion(box)
}

// DeltaFunctionKernel builds a single-pixel delta basis kernel of the
// given half-width: all weights zero except the center.
func DeltaFunctionKernel(halfWidth int) BasisKernel {
	width := 2*halfWidth + 1
	values := make([]float64, width*width)
	values[halfWidth*width+halfWidth] = 1
	return BasisKernel{imaging.Kernel2D{HalfWidth: halfWidth, HalfHeight: halfWidth, Values: values}}
}

// GaussianKernel builds a Gaussian basis kernel of the given half-width
// and standard deviation sigma, normalized to sum to 1.
func GaussianKernel(halfWidth int, sigma float64) BasisKernel {
	width := 2*halfWidth + 1
	values := make([]float64, width*width)
	var sum float64
	idx := 0
	for dy := -halfWidth; dy <= halfWidth; dy++ {
		for dx := -halfWidth; dx <= halfWidth; dx++ {
			r2 := float64(dx*dx + dy*dy)
			v := gaussianWeight(r2, sigma)
			values[idx] = v
			sum += v
			idx++
		}
	}
	if sum != 0 {
		for i := range values {
			values[i] /= sum
		}
	}
	return BasisKernel{imaging.Kernel2D{HalfWidth: halfWidth, HalfHeight: halfWidth, Values: values}}
}

func gaussianWeight(r2, sigma float64) float64 {
	return math.Exp(-r2 / (2 * sigma * sigma))
}
