// Copyright 2025 bitjungle - Rune Mathisen. All rights reserved.
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.
// The author respectfully requests that it not be used for
// military, warfare, or surveillance applications.

package imaging

import "fmt"

// Kernel2D is a small, odd-dimensioned 2-D kernel image addressed
// relative to its own center.
type Kernel2D struct {
	// HalfWidth and HalfHeight are the kernel's half-widths; the kernel
	// spans [-HalfWidth, HalfWidth] x [-HalfHeight, HalfHeight].
	HalfWidth, HalfHeight int
	// Values is row-major, (2*HalfHeight+1) rows by (2*HalfWidth+1) cols,
	// with Values[0] at dy=-HalfHeight, dx=-HalfWidth.
	Values []float64
}

// At returns the kernel weight at offset (dx,dy) from center.
func (k Kernel2D) At(dx, dy int) float64 {
	row := dy + k.HalfHeight
	col := dx + k.HalfWidth
	width := 2*k.HalfWidth + 1
	return k.Values[row*width+col]
}

// Sum returns the sum of all kernel weights.
func (k Kernel2D) Sum() float64 {
	var s float64
	for _, v := range k.Values {
		s += v
	}
	return s
}

// Convolve computes dst = src (*) k over dst.Bounds(), which must be
// src.Bounds() shrunk by the kernel's half-width on all sides (the "good
// region"). If normalize is true, the kernel is rescaled so its weights
// sum to 1 before being applied; src is left untouched either way.
//
// This is a direct spatial-domain convolution, not an FFT-based one: the
// kernels used by an image-difference basis are a handful of pixels wide,
// where the direct form is both simpler and the idiomatic choice.
func Convolve(dst MutableImage, src Image, k Kernel2D, normalize bool) error {
	srcBox := src.Bounds()
	want := srcBox.Shrink(max(k.HalfWidth, k.HalfHeight))
	dstBox := dst.Bounds()
	if dstBox != want {
		return fmt.Errorf("imaging: convolve destination bounds %+v, want %+v", dstBox, want)
	}

	scale := 1.0
	if normalize {
		sum := k.Sum()
		if sum == 0 {
			return fmt.Errorf("imaging: cannot normalize a kernel that sums to zero")
		}
		scale = 1.0 / sum
	}

	for y := dstBox.MinY; y < dstBox.MaxY(); y++ {
		for x := dstBox.MinX; x < dstBox.MaxX(); x++ {
			var acc float64
			for dy := -k.HalfHeight; dy <= k.HalfHeight; dy++ {
				for dx := -k.HalfWidth; dx <= k.HalfWidth; dx++ {
					acc += k.At(dx, dy) * src.At(x+dx, y+dy)
				}
			}
			dst.Set(x, y, acc*scale)
		}
	}
	return nil
}
