// Package check validates declared disclosure totals against the sum
// of their itemized amounts. It is purely diagnostic: flagged records
// are reported for manual review, never corrected.
package check

import (
	"math"

	"github.com/transparencydata/payments-cli/internal/model"
)

// totalTolerance is the absolute deviation, in units of currency,
// allowed between a declared total and its computed sum.
const totalTolerance = 1.0

// Flag describes one record whose declared total disagrees with the
// sum of its itemized amounts.
type Flag struct {
	RecordID int64   `json:"record_id" csv:"record_id"`
	Company  string  `json:"company" csv:"company"`
	Name     string  `json:"name" csv:"name"`
	Address  string  `json:"address" csv:"address"`
	Declared float64 `json:"declared_total" csv:"declared_total"`
	Dirty    string  `json:"total_dirty" csv:"total_dirty"`
	Computed float64 `json:"computed_total" csv:"computed_total"`
}

// ComputedTotals returns a flag for every record whose declared total
// is present, non-zero, and further than the tolerance from the sum
// of its itemized amount fields.
func ComputedTotals(records []*model.Record) []Flag {
	var flags []Flag
	for _, r := range records {
		if r.Total == nil || *r.Total == 0 {
			continue
		}
		computed := r.ComputedTotal()
		if math.Abs(computed-*r.Total) <= totalTolerance {
			continue
		}
		flags = append(flags, Flag{
			RecordID: r.ID,
			Company:  r.Company,
			Name:     deref(r.Name),
			Address:  deref(r.Address),
			Declared: *r.Total,
			Dirty:    r.TotalDirty,
			Computed: computed,
		})
	}
	return flags
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
