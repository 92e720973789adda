// Copyright 2025 bitjungle - Rune Mathisen. All rights reserved.
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.
// The author respectfully requests that it not be used for
// military, warfare, or surveillance applications.

package core

import (
	"sync/atomic"

	"github.com/lsstgo/diffimkernel/internal/imaging"
	"github.com/lsstgo/diffimkernel/internal/kernelerrors"
	"github.com/lsstgo/diffimkernel/internal/solverconfig"
	"gonum.org/v1/gonum/mat"
)

// solutionIDCounter is the process-wide monotonic counter backing each
// StaticSolution's id, kept atomic so concurrent construction from
// multiple goroutines still yields distinct, ordered ids.
var solutionIDCounter uint64

func nextSolutionID() uint64 {
	return atomic.AddUint64(&solutionIDCounter, 1)
}

// Stamp is an immutable (template, science, variance, optional mask)
// tuple at a single (x,y) center. All three images must
// share shape and coordinate origin.
type Stamp struct {
	Template imaging.Image
	Science  imaging.Image
	Variance imaging.Image
	Mask     imaging.MaskImage // may be nil
	CenterX  float64
	CenterY  float64
}

// SolvedBy reports which path the linear solver took to produce a.
type SolvedBy int

const (
	// NotAttempted means solve has not been called yet.
	NotAttempted SolvedBy = iota
	// LU means M was invertible and a = M^-1 b via LU decomposition.
	LU
	// Eigenvector means M was singular and a was built from a truncated
	// eigendecomposition pseudo-inverse.
	Eigenvector
	// None means the solve failed outright.
	None
)

func (s SolvedBy) String() string {
	switch s {
	case LU:
		return "LU"
	case Eigenvector:
		return "EIGENVECTOR"
	case None:
		return "NONE"
	default:
		return "NOT_ATTEMPTED"
	}
}

// StaticSolution owns the design system (C, V, Y, M, b) and, once solved,
// the coefficient vector a for a single stamp. It is the
// variant shared by the plain and regularized builders, expressed as a
// single tagged struct rather than an inheritance chain.
type StaticSolution struct {
	id uint64

	Basis            KernelBasis
	GoodRegion       imaging.BBox
	FitForBackground bool

	C *mat.Dense    // rows = used pixels, cols = nKernel (+1 if background)
	V *mat.DiagDense // inverse-variance diagonal
	Y *mat.VecDense  // science pixel vector

	M *mat.Dense    // C^T V C
	B *mat.VecDense // C^T V Y

	// Regularization, set only by BuildRegularized.
	H      *mat.Dense
	Lambda float64

	a               *mat.VecDense
	solvedBy        SolvedBy
	conditionNumber float64
}

// ID returns this solution's process-wide unique identifier.
func (s *StaticSolution) ID() uint64 { return s.id }

// NKernel returns the number of kernel basis coefficients (excluding any
// background column).
func (s *StaticSolution) NKernel() int { return len(s.Basis) }

// SolvedBy reports how (or whether) the solve succeeded.
func (s *StaticSolution) SolvedBy() SolvedBy { return s.solvedBy }

// ConditionNumber returns the condition number computed during Solve, or by
// a Candidate's condition-number gate when that gate rejected the stamp.
func (s *StaticSolution) ConditionNumber() float64 { return s.conditionNumber }

// GetKernel returns the kernel coefficients.
// It fails with ErrNotSolved if Solve has not succeeded.
func (s *StaticSolution) GetKernel() ([]float64, error) {
	if s.solvedBy == NotAttempted || s.solvedBy == None {
		return nil, kernelerrors.NewNotSolvedError("kernel coefficients requested before a successful solve")
	}
	n := s.NKernel()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = s.a.AtVec(i)
	}
	return out, nil
}

// GetBackground returns the fitted background coefficient. It fails with
// ErrNotSolved if not solved, and with ErrInvalidInput if this solution
// was built without a background column.
func (s *StaticSolution) GetBackground() (float64, error) {
	if s.solvedBy == NotAttempted || s.solvedBy == None {
		return 0, kernelerrors.NewNotSolvedError("background requested before a successful solve")
	}
	if !s.FitForBackground {
		return 0, kernelerrors.NewInvalidInputError("this solution was not built with a background column", nil)
	}
	return s.a.AtVec(s.NKernel()), nil
}

// GetKsum returns the sum of the kernel image's pixels: Sigma_i a_i *
// sum(basis_i).
func (s *StaticSolution) GetKsum() (float64, error) {
	kernel, err := s.GetKernel()
	if err != nil {
		return 0, err
	}
	var sum float64
	for i, coeff := range kernel {
		sum += coeff * s.Basis[i].Sum()
	}
	return sum, nil
}

// MakeKernelImage renders the solved kernel (Sigma_i a_i * basis_i) as a
// dense image sized to the basis's kernel footprint.
func (s *StaticSolution) MakeKernelImage() (*imaging.DenseImage, error) {
	kernel, err := s.GetKernel()
	if err != nil {
		return nil, err
	}
	hw, hh := s.Basis[0].HalfWidth, s.Basis[0].HalfHeight
	box := imaging.BBox{MinX: -hw, MinY: -hh, Width: 2*hw + 1, Height: 2*hh + 1}
	img := imaging.NewDenseImage(box)
	for dy := -hh; dy <= hh; dy++ {
		for dx := -hw; dx <= hw; dx++ {
			var v float64
			for i, coeff := range kernel {
				v += coeff * s.Basis[i].At(dx, dy)
			}
			img.Set(dx, dy, v)
		}
	}
	return img, nil
}

// GetM returns M, or M+lambda*H if includeH is true and this solution was
// built with regularization.
func (s *StaticSolution) GetM(includeH bool) *mat.Dense {
	if !includeH || s.H == nil {
		return s.M
	}
	r, c := s.M.Dims()
	out := mat.NewDense(r, c, nil)
	out.Copy(s.M)
	var scaled mat.Dense
	scaled.Scale(s.Lambda, s.H)
	out.Add(out, &scaled)
	return out
}

// GetB returns b.
func (s *StaticSolution) GetB() *mat.VecDense { return s.B }

// Solve runs the linear solver against this solution's M (or M+lambda*H
// when regularized) and b, recording solvedBy, a, and the condition number.
// eigenTolerance is forwarded to the eigendecomposition
// fallback; condType selects how the condition number is reported.
func (s *StaticSolution) Solve(eigenTolerance float64, condType solverconfig.ConditionNumberType) error {
	m := s.GetM(true)

	condNum, err := ConditionNumber(m, condType)
	if err != nil {
		s.solvedBy = None
		return err
	}
	s.conditionNumber = condNum

	a, solvedBy, err := Solve(m, s.B, eigenTolerance)
	if err != nil {
		s.solvedBy = None
		return err
	}
	s.a = a
	s.solvedBy = solvedBy
	return nil
}

// buildSystem assembles C, V, Y, M, b from a pixel-ordered set of
// convolved basis columns, a matching science vector, and a matching
// inverse-variance vector. This is the shared inner step of build,
// buildWithMask, and buildSingle.
func buildSystem(columns [][]float64, science, invVar []float64, fitForBackground bool) (*mat.Dense, *mat.DiagDense, *mat.VecDense, *mat.Dense, *mat.VecDense, error) {
	p := len(science)
	if p == 0 {
		return nil, nil, nil, nil, nil, kernelerrors.NewInvalidInputError("no pixels available to build the design system", nil)
	}
	nKernel := len(columns)
	nCols := nKernel
	if fitForBackground {
		nCols++
	}

	cData := make([]float64, p*nCols)
	for j, col := range columns {
		for i := 0; i < p; i++ {
			cData[i*nCols+j] = col[i]
		}
	}
	if fitForBackground {
		for i := 0; i < p; i++ {
			cData[i*nCols+nKernel] = 1
		}
	}
	C := mat.NewDense(p, nCols, cData)

	V := mat.NewDiagDense(p, invVar)
	Y := mat.NewVecDense(p, append([]float64(nil), science...))

	var CtV mat.Dense
	CtV.Mul(C.T(), V)

	M := mat.NewDense(nCols, nCols, nil)
	M.Mul(&CtV, C)

	b := mat.NewVecDense(nCols, nil)
	b.MulVec(&CtV, Y)

	return C, V, Y, M, b, nil
}

// Build forms the standard design system over the basis's good region.
func Build(stamp Stamp, basis KernelBasis, fitForBackground bool) (*StaticSolution, error) {
	if err := validateSameShape(stamp.Template, stamp.Science, stamp.Variance); err != nil {
		return nil, err
	}
	images, goodRegion, err := convolveBasisImages(stamp.Template, basis)
	if err != nil {
		return nil, err
	}
	if err := validatePositiveVariance(stamp.Variance, goodRegion); err != nil {
		return nil, err
	}

	columns := make([][]float64, len(images))
	for i, img := range images {
		columns[i] = flattenColumnMajor(img, goodRegion)
	}
	science := flattenColumnMajor(stamp.Science, goodRegion)
	variance := flattenColumnMajor(stamp.Variance, goodRegion)
	invVar := reciprocal(variance)

	C, V, Y, M, b, err := buildSystem(columns, science, invVar, fitForBackground)
	if err != nil {
		return nil, err
	}

	return &StaticSolution{
		id:               nextSolutionID(),
		Basis:            basis,
		GoodRegion:       goodRegion,
		FitForBackground: fitForBackground,
		C:                C,
		V:                V,
		Y:                Y,
		M:                M,
		B:                b,
	}, nil
}

// excludedMaskBits is the bit set that buildWithMask treats as unusable:
// BAD, SAT, NO_DATA, EDGE.
const excludedMaskBits = imaging.BAD | imaging.SAT | imaging.NODATA | imaging.EDGE

// BuildWithMask excludes any pixel whose mask is nonzero under
// {BAD,SAT,NO_DATA,EDGE}, after growing the masked footprint by the
// basis's half-width, and forms the design system over the remaining
// compact pixel vector. This is the flatten/footprint path,
// chosen in preference to a dense-grid-with-zeroed-rows approach to mask
// handling; see DESIGN.md.
func BuildWithMask(stamp Stamp, basis KernelBasis, fitForBackground bool) (*StaticSolution, error) {
	if err := validateSameShape(stamp.Template, stamp.Science, stamp.Variance); err != nil {
		return nil, err
	}
	if stamp.Mask == nil {
		return nil, kernelerrors.NewInvalidInputError("buildWithMask requires a non-nil mask", nil)
	}
	images, goodRegion, err := convolveBasisImages(stamp.Template, basis)
	if err != nil {
		return nil, err
	}
	if err := validatePositiveVariance(stamp.Variance, goodRegion); err != nil {
		return nil, err
	}

	hw := basis[0].HalfWidth
	if basis[0].HalfHeight > hw {
		hw = basis[0].HalfHeight
	}
	bad := imaging.NewFootprintFromMask(stamp.Mask, stamp.Template.Bounds(), excludedMaskBits)
	grown := bad.Grow(hw, stamp.Template.Bounds())

	points := selectColumnMajor(goodRegion, func(x, y int) bool { return grown.Contains(x, y) })
	if len(points) == 0 {
		return nil, kernelerrors.NewInvalidInputError("mask excludes every pixel in the good region", nil)
	}

	columns := make([][]float64, len(images))
	for i, img := range images {
		columns[i] = sampleAt(img, points)
	}
	science := sampleAt(stamp.Science, points)
	variance := sampleAt(stamp.Variance, points)
	invVar := reciprocal(variance)

	C, V, Y, M, b, err := buildSystem(columns, science, invVar, fitForBackground)
	if err != nil {
		return nil, err
	}

	return &StaticSolution{
		id:               nextSolutionID(),
		Basis:            basis,
		GoodRegion:       goodRegion,
		FitForBackground: fitForBackground,
		C:                C,
		V:                V,
		Y:                Y,
		M:                M,
		B:                b,
	}, nil
}

// BuildSingle excludes a single axis-aligned rectangle (maskBox) instead
// of a bitmask, retaining the four surrounding rectangles (top, bottom,
// left, right of maskBox, clipped to the good region) concatenated in
// that fixed order for reproducibility.
func BuildSingle(stamp Stamp, basis KernelBasis, maskBox imaging.BBox, fitForBackground bool) (*StaticSolution, error) {
	if err := validateSameShape(stamp.Template, stamp.Science, stamp.Variance); err != nil {
		return nil, err
	}
	images, goodRegion, err := convolveBasisImages(stamp.Template, basis)
	if err != nil {
		return nil, err
	}
	if err := validatePositiveVariance(stamp.Variance, goodRegion); err != nil {
		return nil, err
	}

	regions := surroundingRects(goodRegion, goodRegion.Clip(maskBox))
	var points []imaging.Point
	for _, r := range regions {
		if r.Empty() {
			continue
		}
		points = append(points, selectColumnMajor(r, func(x, y int) bool { return false })...)
	}
	if len(points) == 0 {
		return nil, kernelerrors.NewInvalidInputError("mask box excludes every pixel in the good region", nil)
	}

	columns := make([][]float64, len(images))
	for i, img := range images {
		columns[i] = sampleAt(img, points)
	}
	science := sampleAt(stamp.Science, points)
	variance := sampleAt(stamp.Variance, points)
	invVar := reciprocal(variance)

	C, V, Y, M, b, err := buildSystem(columns, science, invVar, fitForBackground)
	if err != nil {
		return nil, err
	}

	return &StaticSolution{
		id:               nextSolutionID(),
		Basis:            basis,
		GoodRegion:       goodRegion,
		FitForBackground: fitForBackground,
		C:                C,
		V:                V,
		Y:                Y,
		M:                M,
		B:                b,
	}, nil
}

// surroundingRects splits good minus box into the four non-overlapping
// rectangles (top, bottom, left, right) that tile it, in that order.
func surroundingRects(good, box imaging.BBox) [4]imaging.BBox {
	top := imaging.BBox{MinX: good.MinX, MinY: good.MinY, Width: good.Width, Height: box.MinY - good.MinY}
	bottom := imaging.BBox{MinX: good.MinX, MinY: box.MaxY(), Width: good.Width, Height: good.MaxY() - box.MaxY()}
	left := imaging.BBox{MinX: good.MinX, MinY: box.MinY, Width: box.MinX - good.MinX, Height: box.Height}
	right := imaging.BBox{MinX: box.MaxX(), MinY: box.MinY, Width: good.MaxX() - box.MaxX(), Height: box.Height}
	return [4]imaging.BBox{top, bottom, left, right}
}

// selectColumnMajor returns every point in box not excluded by skip, in
// column-major order (x slowest), matching flattenColumnMajor.
func selectColumnMajor(box imaging.BBox, skip func(x, y int) bool) []imaging.Point {
	var points []imaging.Point
	for x := box.MinX; x < box.MaxX(); x++ {
		for y := box.MinY; y < box.MaxY(); y++ {
			if !skip(x, y) {
				points = append(points, imaging.Point{X: x, Y: y})
			}
		}
	}
	return points
}

// sampleAt reads img at each point, in order.
func sampleAt(img imaging.Image, points []imaging.Point) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = img.At(p.X, p.Y)
	}
	return out
}

func reciprocal(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = 1.0 / x
	}
	return out
}
