// Copyright 2025 bitjungle - Rune Mathisen. All rights reserved.
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.
// The author respectfully requests that it not be used for
// military, warfare, or surveillance applications.

// Package solverconfig holds the validated configuration record consumed
// by the stamp builder, linear solver, regularized solver, and candidate
// orchestration. It replaces a dynamic property-bag with an enumerated,
// strongly typed record checked by Options.Validate.
package solverconfig

import (
	"github.com/lsstgo/diffimkernel/internal/kernelerrors"
)

// ConditionNumberType selects how a matrix's condition number is computed.
type ConditionNumberType string

const (
	// Eigenvalue is the ratio of max/min absolute eigenvalue of M.
	Eigenvalue ConditionNumberType = "eigenvalue"
	// SVD is the ratio of max/min singular value of M.
	SVD ConditionNumberType = "svd"
)

// LambdaType selects how the regularization strength lambda is chosen.
type LambdaType string

const (
	// Absolute uses a fixed, configured lambda.
	Absolute LambdaType = "absolute"
	// Relative scales lambda by (trace M / trace H).
	Relative LambdaType = "relative"
	// MinimizeBiasedRisk selects lambda by grid search minimizing the
	// biased-risk estimator (truncated pseudo-inverse).
	MinimizeBiasedRisk LambdaType = "minimize_biased_risk"
	// MinimizeUnbiasedRisk is MinimizeBiasedRisk with maxCond = +Inf.
	MinimizeUnbiasedRisk LambdaType = "minimize_unbiased_risk"
)

// LambdaStepType selects the lambda grid spacing for risk minimization.
type LambdaStepType string

const (
	// Linear steps lambda linearly from LambdaLinMin to LambdaLinMax.
	Linear LambdaStepType = "linear"
	// Log steps lambda as powers of ten from LambdaLogMin to LambdaLogMax.
	Log LambdaStepType = "log"
)

// KernelBasisSet names the basis family used to build a KernelBasis.
type KernelBasisSet string

const (
	// AlardLupton is a basis of Gaussian-modulated polynomials; its first
	// element is conventionally spatially constant.
	AlardLupton KernelBasisSet = "alard-lupton"
	// DeltaFunction is a basis of single-pixel delta kernels.
	DeltaFunction KernelBasisSet = "delta-function"
)

// RegularizationOptions configures the regularized solver.
type RegularizationOptions struct {
	LambdaType    LambdaType
	LambdaValue   float64 // used when LambdaType == Absolute
	LambdaScaling float64 // used when LambdaType == Relative

	LambdaStepType LambdaStepType
	LambdaLinMin   float64
	LambdaLinMax   float64
	LambdaLinStep  float64
	LambdaLogMin   float64
	LambdaLogMax   float64
	LambdaLogStep  float64

	// MaxCond is the biased-risk estimator's truncation threshold: an
	// eigenvalue of M whose ratio eMax/|eigenvalue| exceeds MaxCond is
	// zeroed in the truncated pseudo-inverse M+. The
	// unbiased-risk variant fixes MaxCond to +Inf (no truncation); the
	// biased variant uses this configured value.
	MaxCond float64
}

// Options is the full, validated configuration for a single candidate's
// build/solve sequence.
type Options struct {
	FitForBackground          bool
	ConstantVarianceWeighting bool
	IterateSingleKernel       bool

	CheckConditionNumber bool
	MaxConditionNumber   float64
	ConditionNumberType  ConditionNumberType

	// EigenvalueTolerance is the threshold, relative to the largest
	// eigenvalue, below which LinearSolver's eigendecomposition fallback
	// treats an eigenvalue as zero when building its pseudo-inverse. The
	// reference behavior is an exact-zero test (tolerance 0).
	EigenvalueTolerance float64

	CandidateCoreRadius int

	UseRegularization bool
	Regularization    RegularizationOptions

	SingleKernelClipping     bool
	CandidateResidualMeanMax float64
	CandidateResidualStdMax  float64

	UseCoreStats           bool
	UsePcaForSpatialKernel bool
	KernelBasisSet         KernelBasisSet
}

// DefaultOptions returns the default configuration: background fitting on,
// no regularization, the condition-number gate on with a 1e7 limit,
// LU-first solving with an exact-zero eigenvalue tolerance, and the
// Alard-Lupton basis convention.
func DefaultOptions() Options {
	return Options{
		FitForBackground:          true,
		ConstantVarianceWeighting: false,
		IterateSingleKernel:       false,
		CheckConditionNumber:      true,
		MaxConditionNumber:        1e7,
		ConditionNumberType:       Eigenvalue,
		CandidateCoreRadius:       5,
		UseRegularization:         false,
		Regularization: RegularizationOptions{
			LambdaType:          Relative,
			LambdaScaling:       1.0,
			LambdaStepType:      Log,
			LambdaLogMin:        -6,
			LambdaLogMax:        2,
			LambdaLogStep:       0.25,
			MaxCond:             1e7,
		},
		UseCoreStats:           true,
		UsePcaForSpatialKernel: false,
		KernelBasisSet:         AlardLupton,
	}
}

// Validate rejects unknown enum values and out-of-range parameters. It is
// always called at construction time; no solver component re-validates.
func (o Options) Validate() error {
	switch o.ConditionNumberType {
	case Eigenvalue, SVD:
	default:
		return kernelerrors.NewInvalidInputError("unknown conditionNumberType: "+string(o.ConditionNumberType), nil)
	}

	if o.CheckConditionNumber && o.MaxConditionNumber <= 0 {
		return kernelerrors.NewInvalidInputError("maxConditionNumber must be positive when checkConditionNumber is set", nil)
	}

	if o.CandidateCoreRadius < 0 {
		return kernelerrors.NewInvalidInputError("candidateCoreRadius must be non-negative", nil)
	}

	if o.UseRegularization {
		if err := o.Regularization.validate(); err != nil {
			return err
		}
	}

	switch o.KernelBasisSet {
	case AlardLupton, DeltaFunction:
	default:
		return kernelerrors.NewInvalidInputError("unknown kernelBasisSet: "+string(o.KernelBasisSet), nil)
	}

	return nil
}

func (r RegularizationOptions) validate() error {
	switch r.LambdaType {
	case Absolute, Relative, MinimizeBiasedRisk, MinimizeUnbiasedRisk:
	default:
		return kernelerrors.NewInvalidInputError("unknown lambdaType: "+string(r.LambdaType), nil)
	}

	needsGrid := r.LambdaType == MinimizeBiasedRisk || r.LambdaType == MinimizeUnbiasedRisk
	if needsGrid {
		switch r.LambdaStepType {
		case Linear:
			if r.LambdaLinStep <= 0 || r.LambdaLinMax < r.LambdaLinMin {
				return kernelerrors.NewInvalidInputError("invalid linear lambda grid bounds", nil)
			}
		case Log:
			if r.LambdaLogStep <= 0 || r.LambdaLogMax < r.LambdaLogMin {
				return kernelerrors.NewInvalidInputError("invalid log lambda grid bounds", nil)
			}
		default:
			return kernelerrors.NewInvalidInputError("unknown lambdaStepType: "+string(r.LambdaStepType), nil)
		}
	}

	if r.MaxCond < 0 {
		return kernelerrors.NewInvalidInputError("maxCond must be non-negative", nil)
	}

	return nil
}
