package replace

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

var fixedRunTime = time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)

// testEngine returns an engine pinned to a fixed run date.
func testEngine(t *testing.T, probeDepth int) *Engine {
	t.Helper()
	e := NewEngine(probeDepth, zap.NewNop())
	e.now = func() time.Time { return fixedRunTime }
	return e
}

// writeTemplate lays the rows out on the first sheet of a new workbook.
func writeTemplate(t *testing.T, dir, name string, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	path := filepath.Join(dir, name)
	require.NoError(t, f.SaveAs(path))
	return path
}

func cellValue(t *testing.T, path, cell string) string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue(f.GetSheetName(0), cell)
	require.NoError(t, err)
	return v
}

func TestReplaceHeaderTemplate(t *testing.T) {
	dir := t.TempDir()
	template := writeTemplate(t, dir, "report_511223344.xlsx", [][]interface{}{
		{"דוח משלוחים שנתי"},
		{"מספר תעודת משלוח", "סה\"כ קרטונים", "מוצרים מוכנים לאכילה", "תאריך", "שם כרטיס"},
		{"OLD-DOC", "5", "חסרים משקלים", "01.01.20", "ישן בע\"מ"},
	})
	output := filepath.Join(dir, "out.xlsx")

	e := testEngine(t, 0)
	n, err := e.Replace(template, output, Values{
		Document: "223725",
		WeightKG: 2,
		Packages: 330,
		CardName: "דגי הצפון בע\"מ",
	})
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	assert.Equal(t, "223725", cellValue(t, output, "A3"))
	assert.Equal(t, "330", cellValue(t, output, "B3"))
	// the missing-weights placeholder is overwritten with the real number
	assert.Equal(t, "2", cellValue(t, output, "C3"))
	assert.Equal(t, "15.03.25", cellValue(t, output, "D3"))
	assert.Equal(t, "דגי הצפון בע\"מ", cellValue(t, output, "E3"))

	// the template itself stays untouched
	assert.Equal(t, "OLD-DOC", cellValue(t, template, "A3"))
	assert.Equal(t, "חסרים משקלים", cellValue(t, template, "C3"))
}

func TestReplaceQuoteVariantHeadings(t *testing.T) {
	dir := t.TempDir()
	// gershayim instead of a straight quote in the packages heading
	template := writeTemplate(t, dir, "template.xlsx", [][]interface{}{
		{"מספר תעודת משלוח", "סה״כ קרטונים", "תאריך"},
		{"x", "1", "y"},
	})
	output := filepath.Join(dir, "out.xlsx")

	_, err := testEngine(t, 0).Replace(template, output, Values{
		Document: "4711",
		Packages: 12,
	})
	require.NoError(t, err)
	assert.Equal(t, "12", cellValue(t, output, "B2"))
}

func TestReplaceProbesPastBlankRows(t *testing.T) {
	dir := t.TempDir()
	rows := [][]interface{}{
		{"שם כרטיס", "שם לועזי", "כתובת"},
		{},
		{"ישן", "old", "עיר ישנה"},
	}

	t.Run("default depth reaches the data row", func(t *testing.T) {
		template := writeTemplate(t, dir, "deep.xlsx", rows)
		output := filepath.Join(dir, "deep_out.xlsx")

		_, err := testEngine(t, 0).Replace(template, output, Values{
			CardName:    "דגי הצפון",
			ForeignName: "North Fish",
			Address:     "אשדוד, העצמאות 87",
		})
		require.NoError(t, err)
		assert.Equal(t, "דגי הצפון", cellValue(t, output, "A3"))
		assert.Equal(t, "North Fish", cellValue(t, output, "B3"))
		assert.Empty(t, cellValue(t, output, "A2"))
	})

	t.Run("depth 1 gives up on non-forced fields", func(t *testing.T) {
		template := writeTemplate(t, dir, "shallow.xlsx", rows)
		output := filepath.Join(dir, "shallow_out.xlsx")

		_, err := testEngine(t, 1).Replace(template, output, Values{
			CardName: "דגי הצפון",
		})
		require.NoError(t, err)
		assert.Equal(t, "ישן", cellValue(t, output, "A3"))
		assert.Empty(t, cellValue(t, output, "A2"))
	})
}

func TestReplaceForcedFieldWritesBelowHeader(t *testing.T) {
	dir := t.TempDir()
	// header only, no data rows at all
	template := writeTemplate(t, dir, "empty.xlsx", [][]interface{}{
		{"מספר תעודת משלוח", "מוצרים מוכנים לאכילה", "תאריך"},
	})
	output := filepath.Join(dir, "out.xlsx")

	_, err := testEngine(t, 0).Replace(template, output, Values{
		Document: "223725",
		WeightKG: 1.5,
	})
	require.NoError(t, err)
	assert.Equal(t, "223725", cellValue(t, output, "A2"))
	assert.Equal(t, "1.5", cellValue(t, output, "B2"))
	assert.Equal(t, "15.03.25", cellValue(t, output, "C2"))
}

func TestReplaceAllCellsFallback(t *testing.T) {
	dir := t.TempDir()
	// label/value pairs, never three labeled cells in one row
	template := writeTemplate(t, dir, "pairs.xlsx", [][]interface{}{
		{"שם כרטיס", "ישן בע\"מ"},
		{"מוצרים מוכנים לאכילה"},
		{"תאריך"},
	})
	output := filepath.Join(dir, "out.xlsx")

	n, err := testEngine(t, 0).Replace(template, output, Values{
		WeightKG: 2,
		Packages: 330,
		CardName: "דגי הצפון",
	})
	require.NoError(t, err)

	// adjacent occupied cell is overwritten
	assert.Equal(t, "דגי הצפון", cellValue(t, output, "B1"))
	// label in the last cell spills into the next column
	assert.Equal(t, "2", cellValue(t, output, "B2"))
	assert.Equal(t, "15.03.25", cellValue(t, output, "B3"))
	// packages heading appears nowhere, so it is appended as a new row
	assert.Equal(t, "סה\"כ קרטונים", cellValue(t, output, "A4"))
	assert.Equal(t, "330", cellValue(t, output, "B4"))
	assert.Equal(t, 4, n)
}

func TestInsertMissingFieldsSkipsNonPositive(t *testing.T) {
	dir := t.TempDir()
	template := writeTemplate(t, dir, "bare.xlsx", [][]interface{}{
		{"שם כרטיס", "ישן"},
	})
	output := filepath.Join(dir, "out.xlsx")

	_, err := testEngine(t, 0).Replace(template, output, Values{
		CardName: "דגי הצפון",
		WeightKG: 0,
		Packages: -3,
	})
	require.NoError(t, err)
	assert.Empty(t, cellValue(t, output, "A2"))
	assert.Empty(t, cellValue(t, output, "B2"))
}

func TestReplaceOpenFailure(t *testing.T) {
	dir := t.TempDir()
	_, err := testEngine(t, 0).Replace(
		filepath.Join(dir, "absent.xlsx"),
		filepath.Join(dir, "out.xlsx"),
		Values{},
	)
	assert.Error(t, err)
}

func TestFindHeader(t *testing.T) {
	reps := buildReplacements(Values{Document: "1"}, fixedRunTime)

	t.Run("short rows are skipped", func(t *testing.T) {
		grid := [][]string{
			{"מספר תעודת משלוח", "x"},
			{"מספר תעודת משלוח", "סה'כ משקל", "תאריך"},
		}
		hm, ok := findHeader(grid, reps)
		require.True(t, ok)
		assert.Equal(t, 2, hm.row)
		assert.Equal(t, 1, hm.columns["document"])
		assert.Equal(t, 2, hm.columns["weight"])
		assert.Equal(t, 3, hm.columns["date"])
	})

	t.Run("no heading anywhere", func(t *testing.T) {
		grid := [][]string{{"a", "b", "c"}, {"1", "2", "3"}}
		_, ok := findHeader(grid, reps)
		assert.False(t, ok)
	})
}

func TestNormalizeLabel(t *testing.T) {
	assert.Equal(t, "סה'כ קרטונים", NormalizeLabel("סה\"כ קרטונים"))
	assert.Equal(t, "סה'כ קרטונים", NormalizeLabel(" סה״כ קרטונים "))
	assert.Equal(t, NormalizeLabel("סה\"כ משקל"), NormalizeLabel("סה'כ משקל"))
}

func TestBuildReplacements(t *testing.T) {
	reps := buildReplacements(Values{
		Document: "223725",
		WeightKG: 2.5,
		Packages: 330,
	}, fixedRunTime)

	byName := make(map[string]replacement)
	for _, r := range reps {
		byName[r.spec.Name] = r
	}
	assert.Equal(t, "223725", byName["document"].value)
	assert.Equal(t, "2.5", byName["weight"].value)
	assert.Equal(t, "330", byName["packages"].value)
	assert.Equal(t, "15.03.25", byName["date"].value)
	assert.Empty(t, byName["address"].value)
}
