// Copyright 2025 bitjungle - Rune Mathisen. All rights reserved.
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.
// The author respectfully requests that it not be used for
// military, warfare, or surveillance applications.

package core

import (
	"gonum.org/v1/gonum/mat"

	"github.com/lsstgo/diffimkernel/internal/imaging"
	"github.com/lsstgo/diffimkernel/internal/kernelerrors"
	"github.com/lsstgo/diffimkernel/internal/solverconfig"
)

// Status is a candidate's outcome after Build: GOOD if it solved (and
// passed any condition-number gate), BAD if the gate rejected it before a
// solve was attempted.
type Status int

const (
	// Unbuilt means Build has not been called yet.
	Unbuilt Status = iota
	// Good means the candidate solved and passed its condition-number gate.
	Good
	// Bad means the candidate was rejected by the condition-number gate
	// (or, in the caller's own judgment, flagged some other way).
	Bad
)

func (s Status) String() string {
	switch s {
	case Good:
		return "GOOD"
	case Bad:
		return "BAD"
	default:
		return "UNBUILT"
	}
}

// Slot selects which of a candidate's two solution slots to read:
// ORIGINAL, PCA, or the most RECENT one computed. The enum is an access
// pattern over the two slots, not a subclass distinction.
type Slot int

const (
	Original Slot = iota
	PCA
	Recent
)

// Candidate owns one stamp's lifecycle: variance composition, the
// original and (optionally) PCA-basis solutions, iterative single-kernel
// reweighting, and a pass/fail status.
type Candidate struct {
	Template         imaging.Image
	Science          imaging.Image
	TemplateVariance imaging.Image
	ScienceVariance  imaging.Image
	Mask             imaging.MaskImage // may be nil
	CenterX, CenterY float64

	Basis             KernelBasis
	UseRegularization bool
	H                 *mat.Dense // required if UseRegularization
	Opts              solverconfig.Options

	isInitialized bool
	status        Status
	variance      imaging.Image
	chiSquare     float64

	original *StaticSolution
	pca      *StaticSolution
}

// ChiSquare returns the most recently solved slot's
// (Y-Ca)^T V (Y-Ca) goodness-of-fit statistic.
func (c *Candidate) ChiSquare() float64 { return c.chiSquare }

// IsInitialized reports whether Build has completed at least one solve
// attempt (successful or gated BAD).
func (c *Candidate) IsInitialized() bool { return c.isInitialized }

// StatusOf returns the candidate's current status.
func (c *Candidate) StatusOf() Status { return c.status }

// Build runs the candidate's algorithm: compose variance,
// build into the first empty solution slot (original, then pca on a
// second call), gate on condition number, solve, and optionally
// iterate once with diffim-derived variance.
func (c *Candidate) Build() error {
	if c.original != nil && c.pca != nil {
		return kernelerrors.NewLogicError("candidate already holds both original and pca solutions")
	}

	variance, err := c.composeVariance()
	if err != nil {
		return err
	}
	c.variance = variance

	sol, err := c.buildOnce(variance)
	if err != nil {
		return err
	}

	if c.original == nil {
		c.original = sol
	} else {
		c.pca = sol
	}
	c.isInitialized = true

	if c.status == Bad {
		return nil
	}

	if c.Opts.IterateSingleKernel && !c.Opts.ConstantVarianceWeighting {
		diffVar, err := c.diffimVariance(sol)
		if err != nil {
			return err
		}
		c.variance = diffVar

		sol2, err := c.buildOnce(diffVar)
		if err != nil {
			return err
		}
		if c.original == sol {
			c.original = sol2
		} else {
			c.pca = sol2
		}
	}

	return nil
}

// composeVariance sums science and template variance pixel-wise,
// replacing the result with its median (or 1.0 if the median is
// non-positive) when ConstantVarianceWeighting is set.
func (c *Candidate) composeVariance() (imaging.Image, error) {
	if err := validateSameShape(c.Template, c.Science, c.TemplateVariance); err != nil {
		return nil, err
	}
	if err := validateSameShape(c.Template, c.Science, c.ScienceVariance); err != nil {
		return nil, err
	}

	box := c.Template.Bounds()
	sum := imaging.NewDenseImage(box)
	for y := box.MinY; y < box.MaxY(); y++ {
		for x := box.MinX; x < box.MaxX(); x++ {
			sum.Set(x, y, c.TemplateVariance.At(x, y)+c.ScienceVariance.At(x, y))
		}
	}

	if !c.Opts.ConstantVarianceWeighting {
		return sum, nil
	}

	med, err := imaging.Median(sum, box)
	if err != nil {
		return nil, kernelerrors.NewInvalidInputError("could not compute median variance", err)
	}
	if med <= 0 {
		med = 1.0
	}
	return imaging.NewConstantImage(box, med), nil
}

// buildOnce builds a static solution (regularized or not, masked or not,
// per c.Opts and c.Mask), applies the condition-number gate, and solves
// if the gate passes.
func (c *Candidate) buildOnce(variance imaging.Image) (*StaticSolution, error) {
	stamp := Stamp{
		Template: c.Template,
		Science:  c.Science,
		Variance: variance,
		Mask:     c.Mask,
		CenterX:  c.CenterX,
		CenterY:  c.CenterY,
	}

	var sol *StaticSolution
	var err error
	switch {
	case c.UseRegularization && c.Mask != nil:
		sol, err = BuildRegularizedWithMask(stamp, c.Basis, c.Opts.FitForBackground, c.H, c.Opts.Regularization)
	case c.UseRegularization:
		sol, err = BuildRegularized(stamp, c.Basis, c.Opts.FitForBackground, c.H, c.Opts.Regularization)
	case c.Mask != nil:
		sol, err = BuildWithMask(stamp, c.Basis, c.Opts.FitForBackground)
	default:
		sol, err = Build(stamp, c.Basis, c.Opts.FitForBackground)
	}
	if err != nil {
		return nil, err
	}

	if c.Opts.CheckConditionNumber {
		cn, cerr := ConditionNumber(sol.GetM(true), c.Opts.ConditionNumberType)
		if cerr != nil {
			return nil, cerr
		}
		sol.conditionNumber = cn
		if cn > c.Opts.MaxConditionNumber {
			c.status = Bad
			return sol, nil
		}
	}

	if err := sol.Solve(c.Opts.EigenvalueTolerance, c.Opts.ConditionNumberType); err != nil {
		return nil, err
	}
	c.status = Good
	c.chiSquare = chiSquareOf(sol)
	return sol, nil
}

// chiSquareOf computes (Y-Ca)^T V (Y-Ca) for a solved solution.
func chiSquareOf(sol *StaticSolution) float64 {
	var fitted mat.VecDense
	fitted.MulVec(sol.C, sol.a)

	p, _ := sol.C.Dims()
	var chi2 float64
	for i := 0; i < p; i++ {
		r := sol.Y.AtVec(i) - fitted.AtVec(i)
		chi2 += r * r * sol.V.At(i, i)
	}
	return chi2
}

// diffimVariance computes the difference image from sol's current
// solution and returns it as the candidate's next variance estimate,
// using its squared value as the variance proxy for a second,
// reweighted solve (its squared deviation is not separately modeled at
// this layer).
func (c *Candidate) diffimVariance(sol *StaticSolution) (imaging.Image, error) {
	diff, err := differenceImage(c.Template, c.Science, sol)
	if err != nil {
		return nil, err
	}
	box := diff.Bounds()
	out := imaging.NewDenseImage(box)
	for y := box.MinY; y < box.MaxY(); y++ {
		for x := box.MinX; x < box.MaxX(); x++ {
			v := diff.At(x, y)
			out.Set(x, y, v*v)
		}
	}
	return out, nil
}

// effectiveKernel renders sol's solved coefficients against its basis as
// a single Kernel2D, ready to convolve.
func effectiveKernel(sol *StaticSolution) (imaging.Kernel2D, error) {
	coeffs, err := sol.GetKernel()
	if err != nil {
		return imaging.Kernel2D{}, err
	}
	hw, hh := sol.Basis[0].HalfWidth, sol.Basis[0].HalfHeight
	width, height := 2*hw+1, 2*hh+1
	values := make([]float64, width*height)
	i := 0
	for dy := -hh; dy <= hh; dy++ {
		for dx := -hw; dx <= hw; dx++ {
			var v float64
			for b, c := range coeffs {
				v += c * sol.Basis[b].At(dx, dy)
			}
			values[i] = v
			i++
		}
	}
	return imaging.Kernel2D{HalfWidth: hw, HalfHeight: hh, Values: values}, nil
}

// differenceImage computes diff = science - (template convolved with
// sol's kernel) - background, over sol's good region.
func differenceImage(template, science imaging.Image, sol *StaticSolution) (imaging.Image, error) {
	k, err := effectiveKernel(sol)
	if err != nil {
		return nil, err
	}

	background := 0.0
	if sol.FitForBackground {
		background, err = sol.GetBackground()
		if err != nil {
			return nil, err
		}
	}

	box := sol.GoodRegion
	convolved := imaging.NewDenseImage(box)
	if err := imaging.Convolve(convolved, template, k, false); err != nil {
		return nil, err
	}

	out := imaging.NewDenseImage(box)
	for y := box.MinY; y < box.MaxY(); y++ {
		for x := box.MinX; x < box.MaxX(); x++ {
			out.Set(x, y, science.At(x, y)-convolved.At(x, y)-background)
		}
	}
	return out, nil
}

// GetX returns the StaticSolution held in the requested slot; its kernel
// coefficients, background and kSum are read through that solution's
// accessors. RECENT prefers PCA over
// ORIGINAL; a missing slot is a Runtime error.
func (c *Candidate) GetX(slot Slot) (*StaticSolution, error) {
	switch slot {
	case Original:
		if c.original == nil {
			return nil, kernelerrors.NewRuntimeError("original solution slot is empty")
		}
		return c.original, nil
	case PCA:
		if c.pca == nil {
			return nil, kernelerrors.NewRuntimeError("pca solution slot is empty")
		}
		return c.pca, nil
	case Recent:
		if c.pca != nil {
			return c.pca, nil
		}
		if c.original != nil {
			return c.original, nil
		}
		return nil, kernelerrors.NewRuntimeError("no solution has been built yet")
	default:
		return nil, kernelerrors.NewLogicError("unknown candidate slot selector")
	}
}
