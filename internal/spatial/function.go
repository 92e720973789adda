// Copyright 2025 bitjungle - Rune Mathisen. All rights reserved.
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.
// The author respectfully requests that it not be used for
// military, warfare, or surveillance applications.

// Package spatial provides the "spatial function" external interface
// plus a concrete polynomial basis, so the spatial
// aggregator has something real to evaluate at a stamp center.
package spatial

import "fmt"

// Function is a set of spatially varying basis functions: NParams reports
// how many unit parameters it has, and Basis evaluates each of them at
// (x,y), returning one value per parameter (i.e. phi_0(x,y)..phi_{n-1}(x,y)).
type Function interface {
	NParams() int
	Basis(x, y float64) []float64
}

// PolynomialBasis is a 2-D power-series basis of the given degree:
// 1, x, y, x^2, xy, y^2, ... up to Degree, ordered by total degree then by
// increasing power of y (matching the common Alard-Lupton spatial
// convention). Coordinates are recentered and rescaled by Center/Scale so
// that coefficients stay well-conditioned over the image footprint.
type PolynomialBasis struct {
	Degree       int
	CenterX      float64
	CenterY      float64
	ScaleX       float64
	ScaleY       float64
	terms        [][2]int // (powX, powY) per parameter, in evaluation order
}

// NewPolynomialBasis builds a PolynomialBasis of the given degree,
// recentering/rescaling coordinates over [minX,maxX]x[minY,maxY] so the
// normalized domain is roughly [-1,1]^2.
func NewPolynomialBasis(degree int, minX, maxX, minY, maxY float64) (*PolynomialBasis, error) {
	if degree < 0 {
		return nil, fmt.Errorf("spatial: degree must be non-negative, got %d", degree)
	}
	p := &PolynomialBasis{Degree: degree}
	p.CenterX = (minX + maxX) / 2
	p.CenterY = (minY + maxY) / 2
	p.ScaleX = (maxX - minX) / 2
	if p.ScaleX == 0 {
		p.ScaleX = 1
	}
	p.ScaleY = (maxY - minY) / 2
	if p.ScaleY == 0 {
		p.ScaleY = 1
	}
	for total := 0; total <= degree; total++ {
		for py := 0; py <= total; py++ {
			px := total - py
			p.terms = append(p.terms, [2]int{px, py})
		}
	}
	return p, nil
}

// NParams implements Function.
func (p *PolynomialBasis) NParams() int { return len(p.terms) }

// Basis implements Function.
func (p *PolynomialBasis) Basis(x, y float64) []float64 {
	nx := (x - p.CenterX) / p.ScaleX
	ny := (y - p.CenterY) / p.ScaleY
	out := make([]float64, len(p.terms))
	for i, t := range p.terms {
		out[i] = ipow(nx, t[0]) * ipow(ny, t[1])
	}
	return out
}

func ipow(base float64, exp int) float64 {
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}

// ConstantBasis is a degenerate Function with a single, always-1
// parameter: a spatially constant model. The spatial aggregator's
// constant-first-term slot is handled by the aggregator itself and does not
// use it.
type ConstantBasis struct{}

// NParams implements Function.
func (ConstantBasis) NParams() int { return 1 }

// Basis implements Function.
func (ConstantBasis) Basis(_, _ float64) []float64 { return []float64{1} }
