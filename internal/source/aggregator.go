// =============================================================================
// Fish Reports - Source Aggregator
// =============================================================================
//
// The aggregator turns the raw shipment export into one report line per
// (document-reference, address) group:
//
//   load -> filter invalid rows -> grams->kg -> group and sum
//
// Grouping by the (document, address) pair rather than the document alone
// matters: the same shipment can appear as several line items on one
// invoice to one address and must merge into a single reported total, but
// one document delivered to two addresses must stay two report lines.
//
// All operations take and return tabular.Table values; nothing here mutates
// its input.
//
// =============================================================================

package source

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"fishreports/internal/tabular"
)

// Column headers of the shipment export, as produced by the upstream
// accounting system.
const (
	ColLicense     = "מספר עוסק מורשה"
	ColDocument    = "אסמכתת בסיס"
	ColCardName    = "שם כרטיס"
	ColForeignName = "שם לועזי"
	ColAddress     = "כתובת"
	ColPackages    = "סה'כ אריזות"
	ColWeight      = "סה'כ משקל"
)

// RequiredColumns lists the headers a source file must carry. Extra
// columns pass through the pipeline unmodified.
func RequiredColumns() []string {
	return []string{
		ColLicense, ColDocument, ColCardName, ColForeignName,
		ColAddress, ColPackages, ColWeight,
	}
}

// Aggregator loads and reduces shipment rows.
type Aggregator struct {
	log *zap.Logger
}

// NewAggregator returns an aggregator logging through log. A nil log
// disables logging.
func NewAggregator(log *zap.Logger) *Aggregator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Aggregator{log: log}
}

// Load reads the source spreadsheet or CSV and verifies the required
// columns are present. Unsupported extensions surface
// tabular.ErrUnsupportedFormat; absent columns surface
// tabular.ErrMissingColumns.
func (a *Aggregator) Load(path string) (*tabular.Table, error) {
	table, err := tabular.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if missing := table.MissingColumns(RequiredColumns()); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", tabular.ErrMissingColumns, strings.Join(missing, ", "))
	}
	a.log.Info("loaded source file",
		zap.String("path", path),
		zap.Int("rows", len(table.Rows)),
		zap.Int("columns", len(table.Headers)))
	return table, nil
}

// FilterValid coerces the package-count and weight columns to numbers and
// retains only rows where both are present and non-negative. Non-numeric
// values count as invalid. Returns the filtered table and the number of
// rows removed.
func (a *Aggregator) FilterValid(t *tabular.Table) (*tabular.Table, int) {
	filtered, removed := t.Filter(func(row tabular.Row) bool {
		packages, okP := tabular.ParseNumber(row[ColPackages])
		weight, okW := tabular.ParseNumber(row[ColWeight])
		return okP && okW && packages >= 0 && weight >= 0
	})
	if removed > 0 {
		a.log.Info("removed invalid rows", zap.Int("removed", removed))
	}
	return filtered, removed
}

// ConvertWeightUnits divides every weight by 1000, converting grams to
// kilograms. Pure transform: row count and all other columns unchanged.
// Must be applied exactly once per run.
func (a *Aggregator) ConvertWeightUnits(t *tabular.Table) *tabular.Table {
	converted := t.Apply(func(row tabular.Row) tabular.Row {
		if v, ok := tabular.ParseNumber(row[ColWeight]); ok {
			row[ColWeight] = tabular.FormatNumber(v / 1000.0)
		}
		return row
	})
	a.log.Info("converted weights from grams to kilograms")
	return converted
}

// GroupByDocumentAndAddress merges rows sharing a (document-reference,
// address) pair: package counts and weights are summed, every other column
// keeps the first value seen in the group.
func (a *Aggregator) GroupByDocumentAndAddress(t *tabular.Table) (*tabular.Table, error) {
	grouped, err := t.GroupBy(
		[]string{ColDocument, ColAddress},
		[]string{ColPackages, ColWeight},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to group source rows: %w", err)
	}
	a.log.Info("grouped rows by document and address",
		zap.Int("input_rows", len(t.Rows)),
		zap.Int("groups", len(grouped.Rows)))
	return grouped, nil
}

// BusinessLicenses returns the distinct license ids of the table in
// first-seen order, normalized for the trailing ".0" float artifact that
// numeric license cells pick up in spreadsheets.
func (a *Aggregator) BusinessLicenses(t *tabular.Table) []string {
	var licenses []string
	seen := make(map[string]bool)
	for _, row := range t.Rows {
		license := NormalizeLicense(row[ColLicense])
		if license == "" || seen[license] {
			continue
		}
		seen[license] = true
		licenses = append(licenses, license)
	}
	return licenses
}

// NormalizeLicense trims a license cell and strips the ".0" suffix left by
// numeric-to-string conversion.
func NormalizeLicense(s string) string {
	s = strings.TrimSpace(s)
	return strings.TrimSuffix(s, ".0")
}

// Stats summarizes an aggregate table for the run report.
type Stats struct {
	Rows          int
	TotalPackages float64
	TotalWeightKG float64
	Licenses      int
}

// SummaryStats computes run statistics over an aggregated table.
func (a *Aggregator) SummaryStats(t *tabular.Table) Stats {
	s := Stats{Rows: len(t.Rows), Licenses: len(a.BusinessLicenses(t))}
	for _, row := range t.Rows {
		if v, ok := tabular.ParseNumber(row[ColPackages]); ok {
			s.TotalPackages += v
		}
		if v, ok := tabular.ParseNumber(row[ColWeight]); ok {
			s.TotalWeightKG += v
		}
	}
	return s
}
