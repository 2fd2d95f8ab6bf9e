// =============================================================================
// Fish Reports - Template Locator
// =============================================================================
//
// The locator finds the pre-existing report template file(s) for each
// business license. Search strategy, per license:
//
//   1. Filename search: any workbook under the reports tree whose name
//      contains the license id substring.
//   2. Content search fallback: for licenses still unmatched, open each
//      workbook and scan every cell for the literal license substring;
//      first file wins per license.
//   3. Disambiguation: when one license matches several files and the
//      record's address resolves to a city code, keep only the candidates
//      embedding that code. An empty result falls back to the full
//      candidate set - the filter narrows, it never blocks.
//
// A license with no file after both passes is reported unprocessed and
// skipped; that is not an error for the batch.
//
// =============================================================================

package locator

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"fishreports/internal/cities"
)

// ErrNoMatch marks a license with no candidate template. Callers skip the
// license and continue the batch.
var ErrNoMatch = errors.New("no matching template found")

// Locator searches a reports directory tree for per-license templates.
type Locator struct {
	reportsDir    string
	cities        *cities.Directory
	contentSearch bool
	log           *zap.Logger
}

// New returns a locator over reportsDir, using dir to resolve city codes
// during disambiguation. contentSearch enables the cell-scan fallback for
// licenses the filename pass misses.
func New(reportsDir string, dir *cities.Directory, contentSearch bool, log *zap.Logger) *Locator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Locator{reportsDir: reportsDir, cities: dir, contentSearch: contentSearch, log: log}
}

// =============================================================================
// SEARCH
// =============================================================================

// Candidates resolves every requested license to its candidate template
// files. Licenses found by neither search pass are absent from the result.
func (l *Locator) Candidates(licenses []string) (map[string][]string, error) {
	files, err := l.listTemplates()
	if err != nil {
		return nil, err
	}
	l.log.Info("scanning report templates",
		zap.String("dir", l.reportsDir), zap.Int("files", len(files)))

	found := l.searchByFilename(licenses, files)

	var unmatched []string
	for _, lic := range licenses {
		if len(found[lic]) == 0 {
			unmatched = append(unmatched, lic)
		}
	}
	if len(unmatched) > 0 && l.contentSearch {
		l.log.Info("falling back to content search",
			zap.Strings("licenses", unmatched))
		for lic, file := range l.searchByContent(unmatched, files) {
			found[lic] = []string{file}
		}
	}

	for _, lic := range licenses {
		if len(found[lic]) == 0 {
			l.log.Warn("no template found for license", zap.String("license", lic))
		}
	}
	return found, nil
}

// listTemplates walks the reports tree collecting workbook paths. Excel
// lock files (~$ prefix) are skipped.
func (l *Locator) listTemplates() ([]string, error) {
	var files []string
	err := filepath.WalkDir(l.reportsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if strings.HasPrefix(name, "~$") {
			return nil
		}
		switch strings.ToLower(filepath.Ext(name)) {
		case ".xlsx", ".xlsm":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// searchByFilename matches licenses against template base names. All
// matching files are kept per license; one license legitimately maps to
// several templates when it serves several addresses.
func (l *Locator) searchByFilename(licenses []string, files []string) map[string][]string {
	found := make(map[string][]string)
	for _, lic := range licenses {
		for _, path := range files {
			if strings.Contains(filepath.Base(path), lic) {
				found[lic] = append(found[lic], path)
			}
		}
		if n := len(found[lic]); n > 0 {
			l.log.Info("filename match",
				zap.String("license", lic), zap.Int("files", n))
		}
	}
	return found
}

// searchByContent opens each workbook and scans every cell for the license
// substrings. The first file containing a license wins for that license;
// scanning stops once every requested license is resolved.
func (l *Locator) searchByContent(licenses []string, files []string) map[string]string {
	found := make(map[string]string)

	for _, path := range files {
		if len(found) == len(licenses) {
			break
		}
		matches, err := scanWorkbook(path, remaining(licenses, found))
		if err != nil {
			l.log.Warn("skipping unreadable workbook",
				zap.String("path", path), zap.Error(err))
			continue
		}
		for _, lic := range matches {
			found[lic] = path
			l.log.Info("content match",
				zap.String("license", lic), zap.String("file", filepath.Base(path)))
		}
	}
	return found
}

// remaining returns the licenses not yet found.
func remaining(licenses []string, found map[string]string) []string {
	var out []string
	for _, lic := range licenses {
		if _, ok := found[lic]; !ok {
			out = append(out, lic)
		}
	}
	return out
}

// scanWorkbook reports which of the wanted substrings appear in any cell
// of any sheet of the workbook at path.
func scanWorkbook(path string, wanted []string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pending := make(map[string]bool, len(wanted))
	for _, w := range wanted {
		pending[w] = true
	}

	var matched []string
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		for _, row := range rows {
			for _, cell := range row {
				for w := range pending {
					if strings.Contains(cell, w) {
						matched = append(matched, w)
						delete(pending, w)
					}
				}
				if len(pending) == 0 {
					return matched, nil
				}
			}
		}
	}
	return matched, nil
}

// =============================================================================
// DISAMBIGUATION
// =============================================================================

// Disambiguate narrows a multi-file candidate set using the record's
// address. When the address resolves to a known city code, only candidates
// embedding that code survive. Resolution failure, or a filter that would
// empty the set, returns the candidates unchanged.
func (l *Locator) Disambiguate(candidates []string, address string) []string {
	if len(candidates) <= 1 {
		return candidates
	}

	expected := l.cities.CityCodeFor(address)
	if expected == "" {
		l.log.Info("address city unresolved, keeping all candidates",
			zap.String("address", address), zap.Int("candidates", len(candidates)))
		return candidates
	}

	var kept []string
	for _, path := range candidates {
		for _, code := range l.embeddedCityCodes(path) {
			if code == expected {
				kept = append(kept, path)
				break
			}
		}
	}

	if len(kept) == 0 {
		l.log.Warn("city filter removed every candidate, keeping all",
			zap.String("address", address), zap.String("city_code", expected))
		return candidates
	}
	l.log.Info("disambiguated candidates by city code",
		zap.String("city_code", expected),
		zap.Int("before", len(candidates)), zap.Int("after", len(kept)))
	return kept
}

var digitRun = regexp.MustCompile(`\d+`)

// embeddedCityCodes extracts plausible city codes from a template: 2-3
// digit runs in any cell that validate against the city directory.
func (l *Locator) embeddedCityCodes(path string) []string {
	f, err := excelize.OpenFile(path)
	if err != nil {
		l.log.Warn("cannot read candidate for city codes",
			zap.String("path", path), zap.Error(err))
		return nil
	}
	defer f.Close()

	var codes []string
	seen := make(map[string]bool)
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		for _, row := range rows {
			for _, cell := range row {
				for _, tok := range digitRun.FindAllString(cell, -1) {
					if len(tok) < 2 || len(tok) > 3 || seen[tok] {
						continue
					}
					if l.cities.IsValidCode(tok) {
						seen[tok] = true
						codes = append(codes, tok)
					}
				}
			}
		}
	}
	return codes
}

// licensePattern matches the longest numeric run that looks like a
// business registration number, longest form first.
var licensePattern = regexp.MustCompile(`\d{7,9}`)

// LicenseFromFilename extracts a license number embedded in a template
// filename, or "" when none is present.
func LicenseFromFilename(name string) string {
	return licensePattern.FindString(name)
}

// Exists reports whether the reports directory itself is usable.
func (l *Locator) Exists() bool {
	info, err := os.Stat(l.reportsDir)
	return err == nil && info.IsDir()
}
