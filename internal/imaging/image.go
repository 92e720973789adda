// Copyright 2025 bitjungle - Rune Mathisen. All rights reserved.
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.
// The author respectfully requests that it not be used for
// military, warfare, or surveillance applications.

// Package imaging provides the reference implementations of the external
// collaborator interfaces the solver core consumes: images, mask planes,
// footprints, direct convolution, and simple statistics. None of this
// package is part of the kernel-solving core itself; it exists so the
// core's numerical contracts can be exercised and tested inside a
// standalone module that has no host application supplying real image I/O.
package imaging

import "fmt"

// BBox is an axis-aligned, half-open pixel rectangle: it contains x in
// [MinX, MinX+Width) and y in [MinY, MinY+Height).
type BBox struct {
	MinX, MinY, Width, Height int
}

// MaxX returns the exclusive upper x bound.
func (b BBox) MaxX() int { return b.MinX + b.Width }

// MaxY returns the exclusive upper y bound.
func (b BBox) MaxY() int { return b.MinY + b.Height }

// Contains reports whether other is entirely within b.
func (b BBox) Contains(other BBox) bool {
	return other.MinX >= b.MinX && other.MinY >= b.MinY &&
		other.MaxX() <= b.MaxX() && other.MaxY() <= b.MaxY()
}

// Grow returns b expanded by n pixels on every side.
func (b BBox) Grow(n int) BBox {
	return BBox{MinX: b.MinX - n, MinY: b.MinY - n, Width: b.Width + 2*n, Height: b.Height + 2*n}
}

// Shrink returns b contracted by n pixels on every side (the "good
// region" after convolution by a kernel of half-width n).
func (b BBox) Shrink(n int) BBox {
	return BBox{MinX: b.MinX + n, MinY: b.MinY + n, Width: b.Width - 2*n, Height: b.Height - 2*n}
}

// Clip returns the intersection of b and other. The result may have zero
// or negative Width/Height if the rectangles do not overlap.
func (b BBox) Clip(other BBox) BBox {
	minX, minY := max(b.MinX, other.MinX), max(b.MinY, other.MinY)
	maxX, maxY := min(b.MaxX(), other.MaxX()), min(b.MaxY(), other.MaxY())
	return BBox{MinX: minX, MinY: minY, Width: maxX - minX, Height: maxY - minY}
}

// Empty reports whether b has no pixels.
func (b BBox) Empty() bool { return b.Width <= 0 || b.Height <= 0 }

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Image is a rectangular plane of float64 pixel values, addressed (x, y)
// with the origin at the image's bounding box's (MinX, MinY).
type Image interface {
	Bounds() BBox
	At(x, y int) float64
	// SubImage returns a read-only view restricted to box, which must be
	// contained in Bounds().
	SubImage(box BBox) (Image, error)
}

// MutableImage is an Image that additionally allows writing pixels, used
// by the convolution operator's destination and by test fixtures.
type MutableImage interface {
	Image
	Set(x, y int, v float64)
}

// DenseImage is a slice-backed Image/MutableImage reference
// implementation.
type DenseImage struct {
	box  BBox
	data []float64 // row-major over box, length Width*Height
}

// NewDenseImage allocates a zero-filled DenseImage over box.
func NewDenseImage(box BBox) *DenseImage {
	return &DenseImage{box: box, data: make([]float64, box.Width*box.Height)}
}

// NewDenseImageFrom builds a DenseImage over box from row-major data
// (data[row*box.Width+col], row 0 at y=box.MinY). len(data) must equal
// box.Width*box.Height.
func NewDenseImageFrom(box BBox, data []float64) (*DenseImage, error) {
	if len(data) != box.Width*box.Height {
		return nil, fmt.Errorf("imaging: data length %d does not match box %dx%d", len(data), box.Width, box.Height)
	}
	cp := make([]float64, len(data))
	copy(cp, data)
	return &DenseImage{box: box, data: cp}, nil
}

// NewConstantImage builds a DenseImage over box filled with v.
func NewConstantImage(box BBox, v float64) *DenseImage {
	img := NewDenseImage(box)
	for i := range img.data {
		img.data[i] = v
	}
	return img
}

// Bounds implements Image.
func (d *DenseImage) Bounds() BBox { return d.box }

func (d *DenseImage) index(x, y int) int {
	return (y-d.box.MinY)*d.box.Width + (x - d.box.MinX)
}

// At implements Image. It panics if (x,y) is outside Bounds(), matching
// gonum's mat.Dense.At bounds-checked access style.
func (d *DenseImage) At(x, y int) float64 {
	if x < d.box.MinX || x >= d.box.MaxX() || y < d.box.MinY || y >= d.box.MaxY() {
		panic(fmt.Sprintf("imaging: pixel (%d,%d) outside bounds %+v", x, y, d.box))
	}
	return d.data[d.index(x, y)]
}

// Set implements MutableImage.
func (d *DenseImage) Set(x, y int, v float64) {
	if x < d.box.MinX || x >= d.box.MaxX() || y < d.box.MinY || y >= d.box.MaxY() {
		panic(fmt.Sprintf("imaging: pixel (%d,%d) outside bounds %+v", x, y, d.box))
	}
	d.data[d.index(x, y)] = v
}

// SubImage implements Image.
func (d *DenseImage) SubImage(box BBox) (Image, error) {
	if !d.box.Contains(box) {
		return nil, fmt.Errorf("imaging: sub-image %+v not contained in %+v", box, d.box)
	}
	out := NewDenseImage(box)
	for y := box.MinY; y < box.MaxY(); y++ {
		for x := box.MinX; x < box.MaxX(); x++ {
			out.Set(x, y, d.At(x, y))
		}
	}
	return out, nil
}
