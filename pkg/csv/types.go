// Copyright 2025 bitjungle - Rune Mathisen. All rights reserved.
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.
// The author respectfully requests that it not be used for
// military, warfare, or surveillance applications.

// Package csv provides a small numeric-matrix CSV writer. It is narrowed
// from a general-purpose CSV read/write/validate toolkit down to the one
// thing the solver's debug diagnostics sink needs: dumping a matrix or
// vector to a plain CSV file for offline inspection.
package csv

// Options configures CSV output formatting.
type Options struct {
	Delimiter   rune // Field delimiter: ',', ';', '\t'
	HasHeaders  bool // Write a header row
	HasRowNames bool // Write a leading row-name column
	FloatFormat byte // Format for float output: 'g', 'f', 'e'
	Precision   int  // Decimal precision for float output (-1 for auto)
}

// DefaultOptions returns sensible default options for CSV output.
func DefaultOptions() Options {
	return Options{
		Delimiter:   ',',
		HasHeaders:  true,
		HasRowNames: true,
		FloatFormat: 'g',
		Precision:   -1,
	}
}

// Data is a matrix ready to be written as CSV.
type Data struct {
	Matrix   [][]float64
	Headers  []string
	RowNames []string
	Rows     int
	Columns  int
}

// Writer writes Data to CSV.
type Writer struct {
	opts Options
}

// NewWriter creates a new CSV writer with the given options.
func NewWriter(opts Options) *Writer {
	return &Writer{opts: opts}
}
