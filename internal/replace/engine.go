// =============================================================================
// Fish Reports - Field Replacement Engine
// =============================================================================
//
// The engine writes one aggregate record into one template workbook and
// saves the result to the output path, leaving the original untouched.
//
// Strategy per sheet:
//   1. Header discovery: first row (of at least three cells) whose
//      concatenated text contains any configured heading.
//   2. Column resolution: heading -> column index within that row, under
//      quotation-mark normalization.
//   3. Data-row probe: header+1 first; an empty target cell sends
//      non-forced fields probing further down (templates sometimes carry a
//      blank spacer row) up to the configured depth.
//   4. Typed write: numbers are written as numbers with the cell style
//      reset to a plain numeric format, text verbatim, and the date field
//      always receives the run date.
//   5. When no header row exists, an all-cells search places values next
//      to wherever a heading text appears.
//   6. Numeric fields whose headings appear nowhere are appended as a new
//      (label, value) row when their value is positive.
//
// Failures on individual fields are logged and do not stop the remaining
// fields; the workbook is saved regardless.
//
// =============================================================================

package replace

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"fishreports/internal/tabular"
)

// DefaultProbeDepth is how many rows below the header are probed for a
// non-empty data cell. The templates in circulation never separate header
// and data by more than two blank rows.
const DefaultProbeDepth = 3

// Engine performs field replacement on template workbooks.
type Engine struct {
	probeDepth int
	now        func() time.Time
	log        *zap.Logger
}

// NewEngine returns an engine probing probeDepth rows below the header
// (DefaultProbeDepth when <= 0).
func NewEngine(probeDepth int, log *zap.Logger) *Engine {
	if probeDepth <= 0 {
		probeDepth = DefaultProbeDepth
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{probeDepth: probeDepth, now: time.Now, log: log}
}

// Replace opens the template at templatePath, writes the record values
// into every sheet, and saves the modified copy to outputPath. Returns the
// number of fields replaced across all sheets.
func (e *Engine) Replace(templatePath, outputPath string, v Values) (int, error) {
	f, err := excelize.OpenFile(templatePath)
	if err != nil {
		return 0, fmt.Errorf("failed to open template %s: %w", templatePath, err)
	}
	defer f.Close()

	// Plain numeric format; applied to numeric targets to erase any
	// text formatting inherited from the template cell.
	numStyle, err := f.NewStyle(&excelize.Style{NumFmt: 0})
	if err != nil {
		return 0, fmt.Errorf("failed to create numeric style: %w", err)
	}

	reps := buildReplacements(v, e.now())
	total := 0

	for _, sheet := range f.GetSheetList() {
		grid, err := f.GetRows(sheet)
		if err != nil {
			e.log.Warn("cannot read sheet", zap.String("sheet", sheet), zap.Error(err))
			continue
		}

		if hm, ok := findHeader(grid, reps); ok {
			e.log.Info("found header row",
				zap.String("sheet", sheet), zap.Int("row", hm.row),
				zap.Int("columns", len(hm.columns)))
			total += e.replaceByHeader(f, sheet, grid, hm, reps, numStyle)
		} else {
			e.log.Warn("no header row found, searching all cells",
				zap.String("sheet", sheet))
			total += e.replaceAllCells(f, sheet, grid, reps, numStyle)
		}

		total += e.insertMissingFields(f, sheet, grid, reps, numStyle)
	}

	if err := f.SaveAs(outputPath); err != nil {
		return total, fmt.Errorf("failed to save %s: %w", outputPath, err)
	}
	e.log.Info("saved report",
		zap.String("output", outputPath), zap.Int("replacements", total))
	return total, nil
}

// =============================================================================
// HEADER DISCOVERY
// =============================================================================

// headerMatch is the result of header discovery: the 1-indexed header row
// and, per field name, the 1-indexed column of its heading.
type headerMatch struct {
	row     int
	columns map[string]int
}

// findHeader scans rows top to bottom for the first row that names at
// least one configured heading, then resolves every heading it can within
// that row. Pure function over the grid.
func findHeader(grid [][]string, reps []replacement) (headerMatch, bool) {
	for i, row := range grid {
		if len(row) < 3 {
			continue
		}
		joined := strings.Join(row, " ")
		any := false
		for _, rep := range reps {
			if labelMatches(joined, rep.spec) {
				any = true
				break
			}
		}
		if !any {
			continue
		}

		hm := headerMatch{row: i + 1, columns: make(map[string]int)}
		for _, rep := range reps {
			for c, cell := range row {
				if cell != "" && labelMatches(cell, rep.spec) {
					hm.columns[rep.spec.Name] = c + 1
					break
				}
			}
		}
		return hm, true
	}
	return headerMatch{}, false
}

// replaceByHeader writes each resolvable field into its column beneath the
// header row.
func (e *Engine) replaceByHeader(f *excelize.File, sheet string, grid [][]string, hm headerMatch, reps []replacement, numStyle int) int {
	written := 0
	for _, rep := range reps {
		col, ok := hm.columns[rep.spec.Name]
		if !ok {
			continue
		}
		if rep.value == "" && !rep.spec.Force {
			continue
		}

		row := e.locateDataRow(grid, hm.row, col, rep.spec)
		if row == 0 {
			e.log.Warn("no data row for field",
				zap.String("field", rep.spec.Name), zap.Int("column", col))
			continue
		}
		if e.writeCell(f, sheet, row, col, rep, numStyle) {
			written++
		}
	}
	return written
}

// locateDataRow picks the row whose cell in the target column receives the
// value: the first non-empty cell within probe depth below the header.
// Force-replace fields fall back to header+1 even when empty; other fields
// give up (0).
func (e *Engine) locateDataRow(grid [][]string, headerRow, col int, spec FieldSpec) int {
	for offset := 1; offset <= e.probeDepth; offset++ {
		row := headerRow + offset
		if row > len(grid) {
			break
		}
		if cellAt(grid, row, col) != "" {
			return row
		}
	}
	if spec.Force {
		return headerRow + 1
	}
	return 0
}

// cellAt reads the grid at 1-indexed coordinates, "" when out of range.
func cellAt(grid [][]string, row, col int) string {
	if row < 1 || row > len(grid) {
		return ""
	}
	r := grid[row-1]
	if col < 1 || col > len(r) {
		return ""
	}
	return strings.TrimSpace(r[col-1])
}

// =============================================================================
// TYPED WRITES
// =============================================================================

// writeCell performs the typed write at the 1-indexed coordinates.
func (e *Engine) writeCell(f *excelize.File, sheet string, row, col int, rep replacement, numStyle int) bool {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		e.log.Warn("bad cell coordinates",
			zap.String("field", rep.spec.Name), zap.Error(err))
		return false
	}
	old, _ := f.GetCellValue(sheet, cell)

	if rep.spec.Kind == Numeric {
		value, ok := tabular.ParseNumber(rep.value)
		if !ok {
			// Unparseable numeric value degrades to a text write.
			e.log.Warn("numeric value not parseable, writing as text",
				zap.String("field", rep.spec.Name), zap.String("value", rep.value))
			if err := f.SetCellValue(sheet, cell, rep.value); err != nil {
				e.log.Warn("cell write failed", zap.String("cell", cell), zap.Error(err))
				return false
			}
			return true
		}
		if strings.Contains(old, MissingWeightsSentinel) {
			e.log.Info("overwriting missing-weights placeholder",
				zap.String("cell", cell), zap.String("field", rep.spec.Name))
		}
		if err := f.SetCellStyle(sheet, cell, cell, numStyle); err != nil {
			e.log.Warn("style reset failed", zap.String("cell", cell), zap.Error(err))
		}
		if err := f.SetCellValue(sheet, cell, value); err != nil {
			e.log.Warn("cell write failed", zap.String("cell", cell), zap.Error(err))
			return false
		}
		e.log.Info("replaced numeric field",
			zap.String("field", rep.spec.Name), zap.String("cell", cell),
			zap.String("old", old), zap.Float64("new", value))
		return true
	}

	if err := f.SetCellValue(sheet, cell, rep.value); err != nil {
		e.log.Warn("cell write failed", zap.String("cell", cell), zap.Error(err))
		return false
	}
	e.log.Info("replaced text field",
		zap.String("field", rep.spec.Name), zap.String("cell", cell),
		zap.String("old", old), zap.String("new", rep.value))
	return true
}

// =============================================================================
// ALL-CELLS FALLBACK
// =============================================================================

// replaceAllCells is the last-resort strategy for templates without a
// recognizable header row: find each heading anywhere in the sheet and
// write the value into the most plausible cell of that row. Only fields
// with a non-empty value participate. Expected to be less reliable than
// the header path.
func (e *Engine) replaceAllCells(f *excelize.File, sheet string, grid [][]string, reps []replacement, numStyle int) int {
	written := 0
	for _, rep := range reps {
		if strings.TrimSpace(rep.value) == "" {
			continue
		}
	rows:
		for r, row := range grid {
			for c, cell := range row {
				if strings.TrimSpace(cell) == "" || !labelMatches(cell, rep.spec) {
					continue
				}
				e.log.Info("found field label in cell",
					zap.String("field", rep.spec.Name),
					zap.Int("row", r+1), zap.Int("column", c+1))
				if e.writeNearLabel(f, sheet, row, r+1, c+1, rep, numStyle) {
					written++
				}
				break rows
			}
		}
	}
	return written
}

// writeNearLabel places a value relative to a heading found at the
// 1-indexed (labelRow, labelCol). Tried in order:
//
//	(a) the adjacent cell in the same row, if it currently holds a value
//	(b) the first empty cell elsewhere in the row
//	(c) the row's last cell, overwritten
func (e *Engine) writeNearLabel(f *excelize.File, sheet string, row []string, labelRow, labelCol int, rep replacement, numStyle int) bool {
	// (a) adjacent occupied cell
	if labelCol < len(row) && strings.TrimSpace(row[labelCol]) != "" {
		return e.writeCell(f, sheet, labelRow, labelCol+1, rep, numStyle)
	}

	// (b) first empty cell elsewhere in the row
	for c := range row {
		if c+1 == labelCol {
			continue
		}
		if strings.TrimSpace(row[c]) == "" {
			return e.writeCell(f, sheet, labelRow, c+1, rep, numStyle)
		}
	}

	// (c) the last cell; when the label itself sits last, spill into the
	// next column instead of destroying the label.
	last := len(row)
	if last == labelCol {
		last = labelCol + 1
	}
	return e.writeCell(f, sheet, labelRow, last, rep, numStyle)
}

// =============================================================================
// MISSING-FIELD INSERTION
// =============================================================================

// insertMissingFields appends a (label, value) row for numeric fields with
// a positive value whose headings appear nowhere in the sheet.
func (e *Engine) insertMissingFields(f *excelize.File, sheet string, grid [][]string, reps []replacement, numStyle int) int {
	inserted := 0
	nextRow := len(grid) + 1

	for _, rep := range reps {
		if rep.spec.Kind != Numeric {
			continue
		}
		value, ok := tabular.ParseNumber(rep.value)
		if !ok || value <= 0 {
			continue
		}
		if labelAppears(grid, rep.spec) {
			continue
		}

		labelCell, err := excelize.CoordinatesToCellName(1, nextRow)
		if err != nil {
			continue
		}
		valueCell, err := excelize.CoordinatesToCellName(2, nextRow)
		if err != nil {
			continue
		}
		if err := f.SetCellValue(sheet, labelCell, rep.spec.Labels[0]); err != nil {
			e.log.Warn("label insert failed", zap.String("cell", labelCell), zap.Error(err))
			continue
		}
		if err := f.SetCellStyle(sheet, valueCell, valueCell, numStyle); err != nil {
			e.log.Warn("style reset failed", zap.String("cell", valueCell), zap.Error(err))
		}
		if err := f.SetCellValue(sheet, valueCell, value); err != nil {
			e.log.Warn("value insert failed", zap.String("cell", valueCell), zap.Error(err))
			continue
		}
		e.log.Info("inserted missing field",
			zap.String("field", rep.spec.Name), zap.Int("row", nextRow),
			zap.Float64("value", value))
		nextRow++
		inserted++
	}
	return inserted
}

// labelAppears reports whether any cell of the grid names the spec's
// heading.
func labelAppears(grid [][]string, spec FieldSpec) bool {
	for _, row := range grid {
		for _, cell := range row {
			if cell != "" && labelMatches(cell, spec) {
				return true
			}
		}
	}
	return false
}
