// =============================================================================
// Fish Reports - Aggregate Records
// =============================================================================

package source

import (
	"fishreports/internal/cities"
	"fishreports/internal/tabular"
)

// AggregateRecord is one summed shipment total for a (document-reference,
// address) pair, the unit of work for template matching and field
// replacement.
type AggregateRecord struct {
	License     string
	Document    string
	CardName    string
	ForeignName string
	Address     string
	Packages    float64
	WeightKG    float64

	// Row is the underlying table row, including passthrough columns.
	Row tabular.Row
}

// Records projects an aggregated table into typed records, preserving row
// order.
func Records(t *tabular.Table) []AggregateRecord {
	records := make([]AggregateRecord, 0, len(t.Rows))
	for _, row := range t.Rows {
		r := AggregateRecord{
			License:     NormalizeLicense(row[ColLicense]),
			Document:    row[ColDocument],
			CardName:    row[ColCardName],
			ForeignName: row[ColForeignName],
			Address:     row[ColAddress],
			Row:         row,
		}
		r.Packages, _ = tabular.ParseNumber(row[ColPackages])
		r.WeightKG, _ = tabular.ParseNumber(row[ColWeight])
		records = append(records, r)
	}
	return records
}

// GroupKey identifies the record within a run: the license id plus the
// street-only address (city stripped). Unique per run by construction of
// the grouping step.
func (r AggregateRecord) GroupKey() string {
	return r.License + "|" + cities.StreetOnly(r.Address)
}
