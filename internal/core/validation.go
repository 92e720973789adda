// Copyright 2025 bitjungle - Rune Mathisen. All rights reserved.
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.
// The author respectfully requests that it not be used for
// military, warfare, or surveillance applications.

package core

import (
	"math"
	"strconv"

	"github.com/lsstgo/diffimkernel/internal/imaging"
	"github.com/lsstgo/diffimkernel/internal/kernelerrors"
)

// validateSameShape checks that template, science, and variance share the
// same bounding box, a Stamp invariant.
func validateSameShape(template, science, variance imaging.Image) error {
	t, s, v := template.Bounds(), science.Bounds(), variance.Bounds()
	if t != s || t != v {
		return kernelerrors.NewInvalidInputError(
			"template, science, and variance images must share shape and origin", nil)
	}
	return nil
}

// validatePositiveVariance checks that every pixel of variance within box
// is strictly positive, distinguishing two failure conditions:
// a negative variance is an outright invalid input, while a
// variance of exactly zero means the pixel cannot be weighted.
func validatePositiveVariance(variance imaging.Image, box imaging.BBox) error {
	minVal, err := imaging.Min(variance, box)
	if err != nil {
		return kernelerrors.NewInvalidInputError("variance region is empty", err)
	}
	if minVal < 0 {
		return kernelerrors.NewInvalidInputError("variance must be non-negative", nil)
	}
	if minVal == 0 {
		return kernelerrors.NewInvalidInputError("variance must be strictly positive everywhere (cannot weight a zero-variance pixel)", nil)
	}
	return nil
}

// validateNoNaN checks that v contains no NaN components.
func validateNoNaN(label string, v []float64) error {
	for i, x := range v {
		if math.IsNaN(x) {
			return kernelerrors.NewNumericalError(label+": NaN at index "+strconv.Itoa(i), math.NaN())
		}
	}
	return nil
}
