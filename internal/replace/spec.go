// =============================================================================
// Fish Reports - Field Replacement Specs
// =============================================================================
//
// The replacement spec table is the contract between aggregate records and
// template layouts: which template heading receives which record field,
// how the value is typed, and whether an empty target cell is still
// written. Template authors spell the Hebrew headings inconsistently
// (straight vs. gershayim quotation marks, dropped apostrophes), so each
// field carries the list of spellings seen in the wild and comparisons run
// on a normalized form.
//
// =============================================================================

package replace

import (
	"strings"
	"time"

	"fishreports/internal/tabular"
)

// Kind is the write type of a replacement target.
type Kind int

const (
	// Text values are written verbatim.
	Text Kind = iota
	// Numeric values are parsed and written as numbers with a plain
	// numeric display format.
	Numeric
	// Date targets always receive the run date, never record data.
	Date
)

// MissingWeightsSentinel is placeholder text found in templates whose
// weights were unknown at authoring time. A numeric write always
// overwrites it, force flag or not.
const MissingWeightsSentinel = "חסרים משקלים"

// dateLayout is the locale date format templates use (dd.mm.yy).
const dateLayout = "02.01.06"

// FieldSpec describes one replacement target.
type FieldSpec struct {
	// Name identifies the field in logs.
	Name string

	// Labels are the accepted heading spellings, preferred form first.
	Labels []string

	// Kind selects the write type.
	Kind Kind

	// Force writes the value even when the located target cell is
	// currently empty.
	Force bool
}

// Values carries the per-record data fed into one template.
type Values struct {
	Document    string
	WeightKG    float64
	Packages    float64
	CardName    string
	ForeignName string
	Address     string
}

// replacement pairs a spec with the concrete value for this record.
type replacement struct {
	spec  FieldSpec
	value string
}

// fieldSpecs is the static target table. Order is write order.
var fieldSpecs = []FieldSpec{
	{
		Name:   "document",
		Labels: []string{"מספר תעודת משלוח", "אסמכתת בסיס"},
		Kind:   Text,
		Force:  true,
	},
	{
		Name:   "weight",
		Labels: []string{"מוצרים מוכנים לאכילה", "סה'כ משקל", "סה\"כ משקל", "סהכ משקל"},
		Kind:   Numeric,
		Force:  true,
	},
	{
		Name:   "packages",
		Labels: []string{"סה\"כ קרטונים", "סה'כ אריזות", "סהכ אריזות"},
		Kind:   Numeric,
		Force:  true,
	},
	{
		Name:   "card_name",
		Labels: []string{"שם כרטיס"},
		Kind:   Text,
	},
	{
		Name:   "foreign_name",
		Labels: []string{"שם לועזי"},
		Kind:   Text,
	},
	{
		Name:   "address",
		Labels: []string{"כתובת"},
		Kind:   Text,
	},
	{
		Name:   "date",
		Labels: []string{"תאריך"},
		Kind:   Date,
		Force:  true,
	},
}

// buildReplacements binds record values to the spec table. The date field
// takes the run timestamp and ignores record data entirely.
func buildReplacements(v Values, now time.Time) []replacement {
	out := make([]replacement, 0, len(fieldSpecs))
	for _, spec := range fieldSpecs {
		var value string
		switch spec.Name {
		case "document":
			value = v.Document
		case "weight":
			value = tabular.FormatNumber(v.WeightKG)
		case "packages":
			value = tabular.FormatNumber(v.Packages)
		case "card_name":
			value = v.CardName
		case "foreign_name":
			value = v.ForeignName
		case "address":
			value = v.Address
		case "date":
			value = now.Format(dateLayout)
		}
		out = append(out, replacement{spec: spec, value: value})
	}
	return out
}

// quoteNormalizer folds the Hebrew double and triple quotation variants
// down to a single apostrophe so heading comparisons survive inconsistent
// template authoring.
var quoteNormalizer = strings.NewReplacer("\"", "'", "״", "'", "׳", "'")

// NormalizeLabel returns the comparison form of a heading.
func NormalizeLabel(s string) string {
	return quoteNormalizer.Replace(strings.TrimSpace(s))
}

// labelMatches reports whether the cell text names the spec's heading,
// under quotation-mark normalization.
func labelMatches(cell string, spec FieldSpec) bool {
	normCell := NormalizeLabel(cell)
	for _, label := range spec.Labels {
		if strings.Contains(cell, label) || strings.Contains(normCell, NormalizeLabel(label)) {
			return true
		}
	}
	return false
}
