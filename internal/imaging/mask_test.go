// Copyright 2025 bitjungle - Rune Mathisen. All rights reserved.
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.
// The author respectfully requests that it not be used for
// military, warfare, or surveillance applications.

package imaging

import "testing"

func TestDenseMaskSetAndAt(t *testing.T) {
	m := NewDenseMask(BBox{Width: 4, Height: 4})
	m.Set(1, 1, BAD)
	m.Set(1, 1, SAT)
	if got := m.At(1, 1); got != BAD|SAT {
		t.Errorf("expected BAD|SAT at (1,1), got %v", got)
	}
	if m.At(2, 2) != 0 {
		t.Errorf("expected an untouched pixel to be zero, got %v", m.At(2, 2))
	}
}

func TestDenseMaskSetBoxClipsToBounds(t *testing.T) {
	m := NewDenseMask(BBox{Width: 4, Height: 4})
	m.SetBox(BBox{MinX: 2, MinY: 2, Width: 4, Height: 4}, NODATA)
	if m.At(2, 2)&NODATA == 0 {
		t.Error("expected (2,2) to carry NODATA")
	}
	if m.At(0, 0)&NODATA != 0 {
		t.Error("expected (0,0) to be untouched by a box outside its range")
	}
}

func TestDenseMaskSubImage(t *testing.T) {
	m := NewDenseMask(BBox{Width: 4, Height: 4})
	m.Set(2, 2, EDGE)
	sub, err := m.SubImage(BBox{MinX: 1, MinY: 1, Width: 2, Height: 2})
	if err != nil {
		t.Fatalf("SubImage: %v", err)
	}
	if sub.At(2, 2) != EDGE {
		t.Errorf("expected the sub-mask to preserve absolute coordinates, got %v", sub.At(2, 2))
	}
}

func TestDenseMaskSubImageRejectsOutOfBounds(t *testing.T) {
	m := NewDenseMask(BBox{Width: 4, Height: 4})
	if _, err := m.SubImage(BBox{MinX: 3, MinY: 3, Width: 4, Height: 4}); err == nil {
		t.Error("expected an error for a sub-mask extending past bounds")
	}
}

func TestNewFootprintFromMaskSelectsMatchingBits(t *testing.T) {
	box := BBox{Width: 3, Height: 3}
	m := NewDenseMask(box)
	m.Set(0, 0, BAD)
	m.Set(1, 1, SAT)
	m.Set(2, 2, BAD)

	fp := NewFootprintFromMask(m, box, BAD)
	if len(fp.Pixels) != 2 {
		t.Fatalf("expected 2 BAD pixels, got %d: %+v", len(fp.Pixels), fp.Pixels)
	}
	if !fp.Contains(0, 0) || !fp.Contains(2, 2) {
		t.Errorf("expected the footprint to contain (0,0) and (2,2), got %+v", fp.Pixels)
	}
	if fp.Contains(1, 1) {
		t.Error("expected the footprint to exclude the SAT-only pixel")
	}
}

func TestFootprintGrowExpandsAndClips(t *testing.T) {
	box := BBox{Width: 5, Height: 5}
	fp := Footprint{Pixels: []Point{{X: 0, Y: 0}}}
	grown := fp.Grow(1, box)
	if !grown.Contains(0, 0) || !grown.Contains(1, 0) || !grown.Contains(0, 1) || !grown.Contains(1, 1) {
		t.Errorf("expected Grow(1) to include the seed pixel's neighbors, got %+v", grown.Pixels)
	}
	if grown.Contains(-1, -1) {
		t.Error("expected Grow to clip pixels outside box")
	}
}

func TestFootprintFlatten(t *testing.T) {
	box := BBox{Width: 2, Height: 2}
	img, err := NewDenseImageFrom(box, []float64{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("NewDenseImageFrom: %v", err)
	}
	fp := Footprint{Pixels: []Point{{X: 1, Y: 0}, {X: 0, Y: 1}}}
	got := fp.Flatten(img)
	want := []float64{2, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Flatten()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
