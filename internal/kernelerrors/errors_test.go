// Copyright 2025 bitjungle - Rune Mathisen. All rights reserved.
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.
// The author respectfully requests that it not be used for
// military, warfare, or surveillance applications.

package kernelerrors

import (
	"errors"
	"strings"
	"testing"
)

func TestErrorMessageIncludesCause(t *testing.T) {
	cause := errors.New("boom")
	err := NewInvalidInputError("bad input", cause)
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("expected the cause to appear in the error message, got %q", err.Error())
	}
	if !strings.Contains(err.Error(), string(ErrInvalidInput)) {
		t.Errorf("expected the error type to appear in the message, got %q", err.Error())
	}
}

func TestErrorMessageWithoutCause(t *testing.T) {
	err := NewNotSolvedError("not solved yet")
	if strings.Contains(err.Error(), "caused by") {
		t.Errorf("expected no 'caused by' clause without a cause, got %q", err.Error())
	}
}

func TestUnwrapReturnsCause(t *testing.T) {
	cause := errors.New("root cause")
	err := NewInvalidInputError("wrapped", cause)
	if errors.Unwrap(err) != cause {
		t.Error("expected Unwrap to return the original cause")
	}
}

func TestIsMatchesByType(t *testing.T) {
	err := NewNumericalError("diverged", 1e9)
	if !errors.Is(err, &SolverError{Type: ErrNumerical}) {
		t.Error("expected errors.Is to match on error type")
	}
	if errors.Is(err, &SolverError{Type: ErrLogic}) {
		t.Error("expected errors.Is to reject a different error type")
	}
}

func TestNewNumericalErrorCarriesConditionNumber(t *testing.T) {
	err := NewNumericalError("ill-conditioned", 42.5)
	if err.Context["conditionNumber"] != 42.5 {
		t.Errorf("expected conditionNumber context to be 42.5, got %v", err.Context["conditionNumber"])
	}
}

func TestNewDimensionErrorCarriesExpectedAndActual(t *testing.T) {
	err := NewDimensionError("size mismatch", 3, 5)
	if err.Type != ErrInvalidInput {
		t.Errorf("expected a dimension error to be ErrInvalidInput, got %s", err.Type)
	}
	if err.Context["expected"] != 3 || err.Context["actual"] != 5 {
		t.Errorf("expected context {expected:3, actual:5}, got %v", err.Context)
	}
}

func TestConstructorsSetExpectedTypes(t *testing.T) {
	cases := []struct {
		err  *SolverError
		want ErrorType
	}{
		{NewInvalidInputError("x", nil), ErrInvalidInput},
		{NewNotSolvedError("x"), ErrNotSolved},
		{NewNumericalError("x", 0), ErrNumerical},
		{NewRuntimeError("x"), ErrRuntime},
		{NewLogicError("x"), ErrLogic},
	}
	for _, c := range cases {
		if c.err.Type != c.want {
			t.Errorf("expected type %s, got %s", c.want, c.err.Type)
		}
	}
}
