package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

// Dataset is tabular export content. Each row holds one value per header, in
// header order.
type Dataset struct {
	Headers []string
	Rows    [][]string
}

// Validate checks that every row matches the header width.
func (d Dataset) Validate() error {
	if len(d.Headers) == 0 {
		return fmt.Errorf("dataset requires at least one header")
	}
	for i, row := range d.Rows {
		if len(row) != len(d.Headers) {
			return fmt.Errorf("row %d has %d fields, expected %d", i, len(row), len(d.Headers))
		}
	}
	return nil
}

// CSVOption configures a CSVExporter.
type CSVOption func(*CSVExporter)

// WithFormulaGuard prefixes cells that a spreadsheet would evaluate as a
// formula with a single quote. Plain numbers, including negative ones, and the
// "-" placeholder are left alone.
func WithFormulaGuard() CSVOption {
	return func(e *CSVExporter) { e.guardFormulas = true }
}

// WithByteOrderMark starts the output with a UTF-8 BOM so spreadsheet tools
// detect the encoding of non-ASCII names.
func WithByteOrderMark() CSVOption {
	return func(e *CSVExporter) { e.bom = true }
}

// CSVExporter renders datasets as RFC 4180 CSV. Fields containing commas,
// quotes or line breaks are quoted.
type CSVExporter struct {
	guardFormulas bool
	bom           bool
}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter(opts ...CSVOption) *CSVExporter {
	e := &CSVExporter{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Render encodes data.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if err := data.Validate(); err != nil {
		return nil, fmt.Errorf("csv: %w", err)
	}
	buf := &bytes.Buffer{}
	if e.bom {
		buf.WriteString("\ufeff")
	}
	writer := csv.NewWriter(buf)
	if err := writer.Write(e.cells(data.Headers)); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for i, row := range data.Rows {
		if err := writer.Write(e.cells(row)); err != nil {
			return nil, fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *CSVExporter) cells(row []string) []string {
	if !e.guardFormulas {
		return row
	}
	out := make([]string, len(row))
	for i, cell := range row {
		if looksLikeFormula(cell) {
			cell = "'" + cell
		}
		out[i] = cell
	}
	return out
}

// looksLikeFormula reports whether a spreadsheet would evaluate the cell. A
// leading sign only counts when one of "(!|=" follows it.
func looksLikeFormula(cell string) bool {
	if cell == "" {
		return false
	}
	switch cell[0] {
	case '=', '@', '\t', '\r':
		return true
	case '+', '-':
		return strings.ContainsAny(cell[1:], "(!|=")
	}
	return false
}
