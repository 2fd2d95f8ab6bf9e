// =============================================================================
// Fish Reports - City Directory
// =============================================================================
//
// The city directory maps municipality names to their short numeric codes,
// loaded once at startup from the official reference spreadsheet. Report
// templates embed the code rather than the name, so the directory is what
// lets the locator tell two templates for the same license apart.
//
// A missing or malformed reference file is not fatal: the directory loads
// empty and every lookup misses, which downstream degrades to "no
// filtering" during template disambiguation.
//
// =============================================================================

package cities

import (
	"strings"

	"go.uber.org/zap"

	"fishreports/internal/tabular"
)

// Reference spreadsheet columns.
const (
	colCityName = "שם רשות"
	colCityCode = "קוד רשות"
)

// Directory holds the name→code and code→name mappings for one run. It is
// populated once by LoadDirectory and read-only afterwards.
type Directory struct {
	codeByName map[string]string
	nameByCode map[string]string
	log        *zap.Logger
}

// NewDirectory returns an empty directory. Lookups against it always miss.
func NewDirectory(log *zap.Logger) *Directory {
	if log == nil {
		log = zap.NewNop()
	}
	return &Directory{
		codeByName: make(map[string]string),
		nameByCode: make(map[string]string),
		log:        log,
	}
}

// LoadDirectory reads the city reference spreadsheet. Load failures and
// missing columns are logged and yield an empty directory rather than an
// error.
func LoadDirectory(path string, log *zap.Logger) *Directory {
	d := NewDirectory(log)

	table, err := tabular.LoadFile(path)
	if err != nil {
		d.log.Warn("city reference file not loaded, disambiguation disabled",
			zap.String("path", path), zap.Error(err))
		return d
	}

	if missing := table.MissingColumns([]string{colCityName, colCityCode}); len(missing) > 0 {
		d.log.Error("city reference file missing required columns",
			zap.String("path", path), zap.Strings("missing", missing))
		return d
	}

	for _, row := range table.Rows {
		name := strings.TrimSpace(row[colCityName])
		code := strings.TrimSpace(row[colCityCode])
		if name == "" || code == "" {
			continue
		}
		d.codeByName[name] = code
		d.nameByCode[code] = name
	}

	d.log.Info("loaded city directory",
		zap.String("path", path), zap.Int("cities", len(d.codeByName)))
	return d
}

// Len returns the number of cities loaded.
func (d *Directory) Len() int {
	return len(d.codeByName)
}

// CodeForName resolves a city name to its code. Resolution order: exact
// match, case-insensitive match, then a prefix match on the first three
// characters of the query against known names. The prefix pass is a
// deliberate fuzziness trade-off tolerating minor spelling variants in
// source addresses; hits there are logged as partial matches. Returns ""
// when nothing matches.
func (d *Directory) CodeForName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	if code, ok := d.codeByName[name]; ok {
		return code
	}

	lower := strings.ToLower(name)
	for known, code := range d.codeByName {
		if strings.ToLower(known) == lower {
			return code
		}
	}

	prefix := lower
	if runes := []rune(lower); len(runes) > 3 {
		prefix = string(runes[:3])
	}
	for known, code := range d.codeByName {
		if strings.HasPrefix(strings.ToLower(known), prefix) {
			d.log.Info("partial city match",
				zap.String("query", name), zap.String("matched", known), zap.String("code", code))
			return code
		}
	}

	d.log.Warn("city code not found", zap.String("city", name))
	return ""
}

// NameForCode resolves a code back to the official city name, or "".
func (d *Directory) NameForCode(code string) string {
	return d.nameByCode[code]
}

// IsValidCode reports whether the code belongs to a known city.
func (d *Directory) IsValidCode(code string) bool {
	_, ok := d.nameByCode[code]
	return ok
}
