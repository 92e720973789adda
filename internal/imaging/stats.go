// Copyright 2025 bitjungle - Rune Mathisen. All rights reserved.
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.
// The author respectfully requests that it not be used for
// military, warfare, or surveillance applications.

package imaging

import (
	"fmt"
	"sort"
)

// Flatten returns every pixel of img within box in row-major order.
func Flatten(img Image, box BBox) []float64 {
	out := make([]float64, 0, box.Width*box.Height)
	for y := box.MinY; y < box.MaxY(); y++ {
		for x := box.MinX; x < box.MaxX(); x++ {
			out = append(out, img.At(x, y))
		}
	}
	return out
}

// Median returns the median of img over box. Grounded on the usual
// preference for a plain, dependency-light statistic (internal/core
// computes variance/median by direct scan rather than pulling in
// gonum/stat for a single-pass reduction); gonum is used only for the
// linear-algebra-heavy paths (gonum/mat's SVD, EigenSym) where it is the
// natural fit.
func Median(img Image, box BBox) (float64, error) {
	vals := Flatten(img, box)
	if len(vals) == 0 {
		return 0, fmt.Errorf("imaging: median of empty region")
	}
	sort.Float64s(vals)
	n := len(vals)
	if n%2 == 1 {
		return vals[n/2], nil
	}
	return (vals[n/2-1] + vals[n/2]) / 2, nil
}

// Min returns the minimum value of img over box.
func Min(img Image, box BBox) (float64, error) {
	vals := Flatten(img, box)
	if len(vals) == 0 {
		return 0, fmt.Errorf("imaging: min of empty region")
	}
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m, nil
}
