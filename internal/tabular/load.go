// =============================================================================
// Fish Reports - Tabular File I/O
// =============================================================================
//
// Reading and writing of the grid formats the workflow touches:
//   - .xlsx / .xlsm via excelize (first sheet, header row first)
//   - .csv via encoding/csv
//
// The first non-empty row is treated as the header row. Short rows are
// padded with empty cells so every Row carries every header.
//
// =============================================================================

package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat is returned for file extensions the pipeline does
// not read.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// LoadFile reads a tabular file into a Table, dispatching on the file
// extension. Supported formats are .xlsx, .xlsm and .csv.
func LoadFile(path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return loadXLSX(path)
	case ".csv":
		return loadCSV(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// loadXLSX reads the first sheet of a workbook.
func loadXLSX(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from %s: %w", path, err)
	}
	return fromGrid(rows)
}

// loadCSV reads a comma-separated file.
func loadCSV(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // ragged rows are padded below
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return fromGrid(records)
}

// fromGrid converts a raw grid into a Table. The first non-empty row
// becomes the header row; fully empty data rows are dropped.
func fromGrid(grid [][]string) (*Table, error) {
	start := -1
	for i, row := range grid {
		if !isRowEmpty(row) {
			start = i
			break
		}
	}
	if start == -1 {
		return nil, fmt.Errorf("file contains no header row")
	}

	headers := cleanHeaders(grid[start])
	table := &Table{Headers: headers}

	for _, raw := range grid[start+1:] {
		if isRowEmpty(raw) {
			continue
		}
		row := make(Row, len(headers))
		for i, h := range headers {
			if i < len(raw) {
				row[h] = strings.TrimSpace(raw[i])
			} else {
				row[h] = ""
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// cleanHeaders trims header cells and disambiguates duplicates the way
// spreadsheet tools do, by suffixing an index.
func cleanHeaders(raw []string) []string {
	headers := make([]string, 0, len(raw))
	seen := make(map[string]int)
	for i, h := range raw {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		if n := seen[h]; n > 0 {
			headers = append(headers, fmt.Sprintf("%s_%d", h, n+1))
		} else {
			headers = append(headers, h)
		}
		seen[h]++
	}
	return headers
}

// isRowEmpty checks if a row contains only empty cells.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// SaveXLSX writes the table to an XLSX file, header row first. The parent
// directory must already exist.
func SaveXLSX(t *Table, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	for col, h := range t.Headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to address header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("failed to write header %s: %w", h, err)
		}
	}

	for r, row := range t.Rows {
		for col, h := range t.Headers {
			cell, err := excelize.CoordinatesToCellName(col+1, r+2)
			if err != nil {
				return fmt.Errorf("failed to address cell: %w", err)
			}
			value := row[h]
			// Numeric cells are stored as numbers so downstream readers
			// see real values, not digit strings.
			if v, ok := ParseNumber(value); ok {
				err = f.SetCellValue(sheet, cell, v)
			} else {
				err = f.SetCellValue(sheet, cell, value)
			}
			if err != nil {
				return fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}
