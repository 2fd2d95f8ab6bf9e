package cities

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fishreports/internal/tabular"
)

// writeCityFile builds a reference spreadsheet fixture on disk.
func writeCityFile(t *testing.T, rows []tabular.Row) string {
	t.Helper()
	table := &tabular.Table{
		Headers: []string{colCityName, colCityCode},
		Rows:    rows,
	}
	path := filepath.Join(t.TempDir(), "city_codes.xlsx")
	require.NoError(t, tabular.SaveXLSX(table, path))
	return path
}

func testDirectory(t *testing.T) *Directory {
	t.Helper()
	path := writeCityFile(t, []tabular.Row{
		{colCityName: "אשדוד", colCityCode: "70"},
		{colCityName: "חיפה", colCityCode: "4000"},
		{colCityName: "Tel Aviv", colCityCode: "5000"},
	})
	return LoadDirectory(path, zap.NewNop())
}

func TestLoadDirectory(t *testing.T) {
	t.Run("loads name and code mappings", func(t *testing.T) {
		d := testDirectory(t)
		assert.Equal(t, 3, d.Len())
		assert.Equal(t, "70", d.CodeForName("אשדוד"))
		assert.Equal(t, "אשדוד", d.NameForCode("70"))
		assert.True(t, d.IsValidCode("4000"))
		assert.False(t, d.IsValidCode("9999"))
	})

	t.Run("missing file yields empty directory", func(t *testing.T) {
		d := LoadDirectory(filepath.Join(t.TempDir(), "absent.xlsx"), zap.NewNop())
		assert.Equal(t, 0, d.Len())
		assert.Empty(t, d.CodeForName("אשדוד"))
	})

	t.Run("wrong columns yield empty directory", func(t *testing.T) {
		table := &tabular.Table{
			Headers: []string{"name", "code"},
			Rows:    []tabular.Row{{"name": "אשדוד", "code": "70"}},
		}
		path := filepath.Join(t.TempDir(), "bad.xlsx")
		require.NoError(t, tabular.SaveXLSX(table, path))

		d := LoadDirectory(path, zap.NewNop())
		assert.Equal(t, 0, d.Len())
	})
}

func TestCodeForName(t *testing.T) {
	d := testDirectory(t)

	t.Run("case-insensitive match", func(t *testing.T) {
		assert.Equal(t, "5000", d.CodeForName("tel aviv"))
	})

	t.Run("prefix match tolerates spelling variants", func(t *testing.T) {
		assert.Equal(t, "4000", d.CodeForName("חיפא"))
	})

	t.Run("unknown name", func(t *testing.T) {
		assert.Empty(t, d.CodeForName("ירושלים"))
	})

	t.Run("empty name", func(t *testing.T) {
		assert.Empty(t, d.CodeForName("  "))
	})
}

func TestCityPart(t *testing.T) {
	assert.Equal(t, "אשדוד", CityPart("אשדוד, העצמאות 87"))
	assert.Equal(t, "אשדוד", CityPart("א. אשדוד, העצמאות 87"))
	assert.Equal(t, "חיפה", CityPart("ע. חיפה, הנמל 3"))
	assert.Equal(t, "חיפה", CityPart("חיפה"))
	assert.Equal(t, "", CityPart(""))
}

func TestStreetOnly(t *testing.T) {
	assert.Equal(t, "העצמאות 87", StreetOnly("אשדוד, העצמאות 87"))
	assert.Equal(t, "העצמאות 87", StreetOnly("העצמאות 87"))
	assert.Equal(t, "הנמל 3, קומה 2", StreetOnly("חיפה, הנמל 3, קומה 2"))
}

func TestCityCodeFor(t *testing.T) {
	d := testDirectory(t)
	assert.Equal(t, "70", d.CityCodeFor("אשדוד, העצמאות 87"))
	assert.Equal(t, "70", d.CityCodeFor("א. אשדוד, העצמאות 87"))
	assert.Empty(t, d.CityCodeFor("באר שבע, רגר 1"))
	assert.Empty(t, d.CityCodeFor(", העצמאות 87"))
}

func TestNewDirectoryNilLogger(t *testing.T) {
	d := NewDirectory(nil)
	assert.NotNil(t, d)
	assert.Empty(t, d.CodeForName("אשדוד"))
}
