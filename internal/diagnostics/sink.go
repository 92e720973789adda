// Copyright 2025 bitjungle - Rune Mathisen. All rights reserved.
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.
// The author respectfully requests that it not be used for
// military, warfare, or surveillance applications.

// Package diagnostics provides the debug sink the solver core writes
// intermediate matrices to. Earlier image-difference implementations
// wrote FITS files mid-solve for debugging; this module moves that
// entirely behind an interface so the numerical core's happy path never
// touches a file handle, and dumps go to CSV instead of FITS (a format
// this module has no reason to depend on).
package diagnostics

import (
	"fmt"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/mat"

	csvwriter "github.com/lsstgo/diffimkernel/pkg/csv"
)

// Sink receives named intermediate matrices and vectors for offline
// inspection. Nothing in internal/core writes to a Sink; a caller hands it
// matrices directly (cmd/diffimsolve dumps M and b when --dump-dir is set).
type Sink interface {
	DumpMatrix(name string, m mat.Matrix) error
	DumpVector(name string, v mat.Vector) error
}

// NoopSink discards everything. It is the default when no sink is
// configured.
type NoopSink struct{}

// DumpMatrix implements Sink.
func (NoopSink) DumpMatrix(string, mat.Matrix) error { return nil }

// DumpVector implements Sink.
func (NoopSink) DumpVector(string, mat.Vector) error { return nil }

// CSVSink writes each dump to its own CSV file under Dir, named
// "<name>.csv".
type CSVSink struct {
	Dir    string
	Opts   csvwriter.Options
	nDumps int
}

// NewCSVSink constructs a sink rooted at dir, validating that dir is a
// safe, non-empty relative or absolute path (no "..", no null bytes).
func NewCSVSink(dir string) (*CSVSink, error) {
	if err := validateSinkDir(dir); err != nil {
		return nil, err
	}
	return &CSVSink{Dir: dir, Opts: csvwriter.DefaultOptions()}, nil
}

// DumpMatrix implements Sink by writing m's rows to "<name>.csv".
func (s *CSVSink) DumpMatrix(name string, m mat.Matrix) error {
	r, c := m.Dims()
	rows := make([][]float64, r)
	for i := 0; i < r; i++ {
		row := make([]float64, c)
		for j := 0; j < c; j++ {
			row[j] = m.At(i, j)
		}
		rows[i] = row
	}
	return s.writeRows(name, rows)
}

// DumpVector implements Sink by writing v as a single-column CSV.
func (s *CSVSink) DumpVector(name string, v mat.Vector) error {
	n := v.Len()
	rows := make([][]float64, n)
	for i := 0; i < n; i++ {
		rows[i] = []float64{v.AtVec(i)}
	}
	return s.writeRows(name, rows)
}

func (s *CSVSink) writeRows(name string, rows [][]float64) error {
	s.nDumps++
	path, err := s.resolve(name)
	if err != nil {
		return err
	}
	opts := s.opts()
	opts.HasHeaders = false
	opts.HasRowNames = false
	w := csvwriter.NewWriter(opts)
	return w.WriteMatrixFile(path, rows, nil, nil)
}

func (s *CSVSink) opts() csvwriter.Options {
	if s.Opts == (csvwriter.Options{}) {
		return csvwriter.DefaultOptions()
	}
	return s.Opts
}

func (s *CSVSink) resolve(name string) (string, error) {
	if strings.ContainsAny(name, "/\\") || name == "" {
		return "", fmt.Errorf("diagnostics: invalid dump name %q", name)
	}
	return filepath.Join(s.Dir, name+".csv"), nil
}

// validateSinkDir rejects empty paths, null bytes, and relative paths
// that traverse above their starting point, matching the spirit of the
// reference implementation's output-path guard without its full
// cross-platform system-directory checks (a debug sink's target
// directory is operator-supplied and local, not untrusted user input).
func validateSinkDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("diagnostics: empty sink directory")
	}
	if strings.Contains(dir, "\x00") {
		return fmt.Errorf("diagnostics: null byte in sink directory path")
	}
	if !filepath.IsAbs(dir) {
		for _, part := range strings.Split(filepath.ToSlash(filepath.Clean(dir)), "/") {
			if part == ".." {
				return fmt.Errorf("diagnostics: sink directory %q escapes its base via '..'", dir)
			}
		}
	}
	return nil
}
