// Copyright 2025 bitjungle - Rune Mathisen. All rights reserved.
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.
// The author respectfully requests that it not be used for
// military, warfare, or surveillance applications.

package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
)

// WriteFile writes CSV data to a file.
func (w *Writer) WriteFile(filename string, data *Data) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return w.Write(file, data)
}

// Write writes CSV data to an io.Writer.
func (w *Writer) Write(output io.Writer, data *Data) error {
	writer := csv.NewWriter(output)
	writer.Comma = w.opts.Delimiter
	defer writer.Flush()

	if w.opts.HasHeaders && len(data.Headers) > 0 {
		headers := data.Headers
		if w.opts.HasRowNames && len(data.RowNames) > 0 {
			headers = append([]string{""}, headers...)
		}
		if err := writer.Write(headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}

	for i, row := range data.Matrix {
		record := make([]string, 0, len(row)+1)

		if w.opts.HasRowNames && i < len(data.RowNames) {
			record = append(record, data.RowNames[i])
		}

		for _, val := range row {
			record = append(record, w.formatFloat(val))
		}

		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	return nil
}

func (w *Writer) formatFloat(val float64) string {
	switch {
	case math.IsNaN(val):
		return "NaN"
	case math.IsInf(val, 1):
		return "Inf"
	case math.IsInf(val, -1):
		return "-Inf"
	case w.opts.Precision >= 0:
		return strconv.FormatFloat(val, w.opts.FloatFormat, w.opts.Precision, 64)
	default:
		return strconv.FormatFloat(val, w.opts.FloatFormat, -1, 64)
	}
}

// WriteMatrix writes a numeric matrix to CSV.
func (w *Writer) WriteMatrix(output io.Writer, matrix [][]float64, headers []string, rowNames []string) error {
	data := &Data{
		Matrix:   matrix,
		Headers:  headers,
		RowNames: rowNames,
		Rows:     len(matrix),
	}
	if len(matrix) > 0 {
		data.Columns = len(matrix[0])
	}

	return w.Write(output, data)
}

// WriteMatrixFile writes a numeric matrix to a CSV file.
func (w *Writer) WriteMatrixFile(filename string, matrix [][]float64, headers []string, rowNames []string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return w.WriteMatrix(file, matrix, headers, rowNames)
}

// SaveMatrix is a convenience function for writing a matrix to CSV.
func SaveMatrix(filename string, matrix [][]float64, headers []string, rowNames []string, opts Options) error {
	writer := NewWriter(opts)
	return writer.WriteMatrixFile(filename, matrix, headers, rowNames)
}
