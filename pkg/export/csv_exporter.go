// Package export renders report datasets into the downloadable formats the
// API offers, currently CSV and PDF.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Dataset is one flattened report sheet: an ordered header row plus one map
// per data row. Cells missing from a row render empty, which keeps sparse
// columns like barangay or remarks simple to produce.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// cells flattens a row into header order.
func (d Dataset) cells(row map[string]string) []string {
	record := make([]string, len(d.Headers))
	for i, header := range d.Headers {
		record[i] = row[header]
	}
	return record
}

// CSVExporter renders report sheets as CSV.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render encodes the sheet, header row first.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, row := range data.Rows {
		if err := writer.Write(data.cells(row)); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
