// Copyright 2025 bitjungle - Rune Mathisen. All rights reserved.
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.
// The author respectfully requests that it not be used for
// military, warfare, or surveillance applications.

package imaging

import "fmt"

// MaskPlane is a named bit of a mask image.
type MaskPlane uint32

const (
	// BAD marks a pixel known to be unusable.
	BAD MaskPlane = 1 << iota
	// SAT marks a saturated pixel.
	SAT
	// NODATA marks a pixel with no data (outside a mosaic, etc.).
	NODATA
	// EDGE marks a pixel near an image edge affected by convolution.
	EDGE
)

// MaskImage is a same-shape companion to an Image whose pixels are bit
// planes rather than scalars.
type MaskImage interface {
	Bounds() BBox
	At(x, y int) MaskPlane
	SubImage(box BBox) (MaskImage, error)
}

// DenseMask is a slice-backed MaskImage reference implementation.
type DenseMask struct {
	box  BBox
	data []MaskPlane
}

// NewDenseMask allocates a zero-filled DenseMask over box.
func NewDenseMask(box BBox) *DenseMask {
	return &DenseMask{box: box, data: make([]MaskPlane, box.Width*box.Height)}
}

func (m *DenseMask) index(x, y int) int {
	return (y-m.box.MinY)*m.box.Width + (x - m.box.MinX)
}

// Bounds implements MaskImage.
func (m *DenseMask) Bounds() BBox { return m.box }

// At implements MaskImage.
func (m *DenseMask) At(x, y int) MaskPlane {
	if x < m.box.MinX || x >= m.box.MaxX() || y < m.box.MinY || y >= m.box.MaxY() {
		panic(fmt.Sprintf("imaging: mask pixel (%d,%d) outside bounds %+v", x, y, m.box))
	}
	return m.data[m.index(x, y)]
}

// Set ORs bits into the pixel at (x,y).
func (m *DenseMask) Set(x, y int, bits MaskPlane) {
	if x < m.box.MinX || x >= m.box.MaxX() || y < m.box.MinY || y >= m.box.MaxY() {
		panic(fmt.Sprintf("imaging: mask pixel (%d,%d) outside bounds %+v", x, y, m.box))
	}
	m.data[m.index(x, y)] |= bits
}

// SetBox ORs bits into every pixel within box (clipped to Bounds()).
func (m *DenseMask) SetBox(box BBox, bits MaskPlane) {
	box = m.box.Clip(box)
	for y := box.MinY; y < box.MaxY(); y++ {
		for x := box.MinX; x < box.MaxX(); x++ {
			m.Set(x, y, bits)
		}
	}
}

// SubImage implements MaskImage.
func (m *DenseMask) SubImage(box BBox) (MaskImage, error) {
	if !m.box.Contains(box) {
		return nil, fmt.Errorf("imaging: mask sub-image %+v not contained in %+v", box, m.box)
	}
	out := NewDenseMask(box)
	for y := box.MinY; y < box.MaxY(); y++ {
		for x := box.MinX; x < box.MaxX(); x++ {
			out.Set(x, y, m.At(x, y))
		}
	}
	return out, nil
}

// Footprint is an ordered set of pixel coordinates, typically produced by
// thresholding a mask against a bit set.
type Footprint struct {
	box    BBox
	Pixels []Point
}

// Point is an integer pixel coordinate.
type Point struct{ X, Y int }

// NewFootprintFromMask builds a Footprint of every pixel in box whose mask
// value ANDs non-zero with bits, in row-major (y then x) order.
func NewFootprintFromMask(mask MaskImage, box BBox, bits MaskPlane) Footprint {
	fp := Footprint{box: box}
	for y := box.MinY; y < box.MaxY(); y++ {
		for x := box.MinX; x < box.MaxX(); x++ {
			if mask.At(x, y)&bits != 0 {
				fp.Pixels = append(fp.Pixels, Point{X: x, Y: y})
			}
		}
	}
	return fp
}

// Grow returns a new Footprint containing every pixel within n of a pixel
// in fp, clipped to box.
func (fp Footprint) Grow(n int, box BBox) Footprint {
	seen := make(map[Point]bool)
	var pts []Point
	for _, p := range fp.Pixels {
		lo := BBox{MinX: p.X - n, MinY: p.Y - n, Width: 2*n + 1, Height: 2*n + 1}
		lo = box.Clip(lo)
		for y := lo.MinY; y < lo.MaxY(); y++ {
			for x := lo.MinX; x < lo.MaxX(); x++ {
				q := Point{X: x, Y: y}
				if !seen[q] {
					seen[q] = true
					pts = append(pts, q)
				}
			}
		}
	}
	return Footprint{box: box, Pixels: pts}
}

// Contains reports whether (x,y) is a member of the footprint.
func (fp Footprint) Contains(x, y int) bool {
	for _, p := range fp.Pixels {
		if p.X == x && p.Y == y {
			return true
		}
	}
	return false
}

// Flatten returns the image values at each footprint pixel, in footprint
// order.
func (fp Footprint) Flatten(img Image) []float64 {
	out := make([]float64, len(fp.Pixels))
	for i, p := range fp.Pixels {
		out[i] = img.At(p.X, p.Y)
	}
	return out
}
