package tabular

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable() *Table {
	return &Table{
		Headers: []string{"doc", "addr", "qty", "note"},
		Rows: []Row{
			{"doc": "100", "addr": "a", "qty": "2", "note": "x"},
			{"doc": "100", "addr": "a", "qty": "3", "note": "y"},
			{"doc": "100", "addr": "b", "qty": "5", "note": "z"},
			{"doc": "200", "addr": "a", "qty": "7", "note": "w"},
		},
	}
}

func TestSelect(t *testing.T) {
	table := sampleTable()

	t.Run("projects named columns", func(t *testing.T) {
		out, err := table.Select([]string{"doc", "qty"})
		require.NoError(t, err)
		assert.Equal(t, []string{"doc", "qty"}, out.Headers)
		assert.Len(t, out.Rows, 4)
		assert.Equal(t, "2", out.Rows[0]["qty"])
		assert.Empty(t, out.Rows[0]["note"])
	})

	t.Run("missing column", func(t *testing.T) {
		_, err := table.Select([]string{"doc", "nope"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMissingColumns)
		assert.Contains(t, err.Error(), "nope")
	})
}

func TestFilter(t *testing.T) {
	table := sampleTable()
	out, removed := table.Filter(func(r Row) bool { return r["addr"] == "a" })
	assert.Equal(t, 1, removed)
	assert.Len(t, out.Rows, 3)
	// input untouched
	assert.Len(t, table.Rows, 4)
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	table := sampleTable()
	out := table.Apply(func(r Row) Row {
		r["qty"] = "0"
		return r
	})
	assert.Equal(t, "0", out.Rows[0]["qty"])
	assert.Equal(t, "2", table.Rows[0]["qty"])
}

func TestGroupBy(t *testing.T) {
	table := sampleTable()

	t.Run("sums and first values", func(t *testing.T) {
		out, err := table.GroupBy([]string{"doc", "addr"}, []string{"qty"})
		require.NoError(t, err)
		require.Len(t, out.Rows, 3)

		assert.Equal(t, "5", out.Rows[0]["qty"]) // 2 + 3
		assert.Equal(t, "x", out.Rows[0]["note"])
		assert.Equal(t, "5", out.Rows[1]["qty"])
		assert.Equal(t, "7", out.Rows[2]["qty"])
	})

	t.Run("first-appearance order is stable", func(t *testing.T) {
		out, err := table.GroupBy([]string{"doc", "addr"}, []string{"qty"})
		require.NoError(t, err)
		assert.Equal(t, "a", out.Rows[0]["addr"])
		assert.Equal(t, "b", out.Rows[1]["addr"])
		assert.Equal(t, "200", out.Rows[2]["doc"])
	})

	t.Run("missing key column", func(t *testing.T) {
		_, err := table.GroupBy([]string{"nope"}, []string{"qty"})
		assert.ErrorIs(t, err, ErrMissingColumns)
	})
}

func TestParseNumber(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"42", 42, true},
		{" 3.5 ", 3.5, true},
		{"-10", -10, true},
		{"1,000", 1000, true},
		{"", 0, false},
		{"abc", 0, false},
		{"12kg", 0, false},
	}
	for _, c := range cases {
		got, ok := ParseNumber(c.in)
		assert.Equal(t, c.ok, ok, "input %q", c.in)
		if c.ok {
			assert.Equal(t, c.want, got, "input %q", c.in)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "330", FormatNumber(330))
	assert.Equal(t, "2", FormatNumber(2.0))
	assert.Equal(t, "0.2", FormatNumber(0.2))
	assert.Equal(t, "1.5", FormatNumber(1.5))
}

func TestLoadFile(t *testing.T) {
	t.Run("unsupported extension", func(t *testing.T) {
		_, err := LoadFile("data.txt")
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "nope.csv"))
		assert.Error(t, err)
	})

	t.Run("csv with ragged and empty rows", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "in.csv")
		csv := "doc,addr,qty\n100,a,2\n\n200,b\n"
		require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

		table, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"doc", "addr", "qty"}, table.Headers)
		require.Len(t, table.Rows, 2)
		assert.Equal(t, "", table.Rows[1]["qty"]) // padded short row
	})
}

func TestSaveXLSXRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	table := sampleTable()
	require.NoError(t, SaveXLSX(table, path))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, table.Headers, loaded.Headers)
	require.Len(t, loaded.Rows, len(table.Rows))
	assert.Equal(t, "100", loaded.Rows[0]["doc"])
	assert.Equal(t, "2", loaded.Rows[0]["qty"])
	assert.Equal(t, "x", loaded.Rows[0]["note"])
}

func TestCleanHeaders(t *testing.T) {
	headers := cleanHeaders([]string{"a", "", "a", " b "})
	assert.Equal(t, []string{"a", "column_2", "a_2", "b"}, headers)
}
