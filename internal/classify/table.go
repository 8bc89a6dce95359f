package classify

import (
	"fmt"
	"slices"

	"github.com/hazardwatch/alert-engine/internal/domain"
)

// Row binds an inclusive lower boundary to the severity tier and hazard type
// selected when a measurement reaches it. Rows for one measurement key form a
// sorted lookup table: the tier for a value is the last row whose boundary is
// <= the value, so boundary comparisons are always >= (a measurement exactly
// on a boundary earns that tier, not the one below).
type Row struct {
	Boundary   float64           `yaml:"boundary"`
	Severity   domain.Severity   `yaml:"severity"`
	HazardType domain.HazardType `yaml:"hazard"`
}

// Table maps a measurement key to its ordered boundary rows.
type Table map[string][]Row

// Tables holds one threshold table per source category. Static configuration,
// built once at startup and passed in explicitly so tests can substitute
// alternate tables.
type Tables map[domain.Category]Table

// Lookup returns the row selected by value, or false when the value sits
// below the lowest boundary.
func Lookup(rows []Row, value float64) (Row, bool) {
	var selected Row
	found := false
	for _, row := range rows {
		if value >= row.Boundary {
			selected = row
			found = true
			continue
		}
		break
	}
	return selected, found
}

// Validate checks the structural invariants: known categories, severities and
// hazard types, and strictly increasing boundaries within each key.
func (t Tables) Validate() error {
	for category, table := range t {
		if _, err := domain.ParseCategory(string(category)); err != nil {
			return fmt.Errorf("threshold tables: %w", err)
		}
		for key, rows := range table {
			if len(rows) == 0 {
				return fmt.Errorf("threshold tables: %s/%s has no rows", category, key)
			}
			prev := rows[0]
			if err := validateRow(category, key, prev); err != nil {
				return err
			}
			for _, row := range rows[1:] {
				if err := validateRow(category, key, row); err != nil {
					return err
				}
				if row.Boundary <= prev.Boundary {
					return fmt.Errorf("threshold tables: %s/%s boundaries not strictly increasing (%.2f after %.2f)",
						category, key, row.Boundary, prev.Boundary)
				}
				if row.Severity.Rank() < prev.Severity.Rank() {
					return fmt.Errorf("threshold tables: %s/%s severity decreases at boundary %.2f",
						category, key, row.Boundary)
				}
				prev = row
			}
		}
	}
	return nil
}

func validateRow(category domain.Category, key string, row Row) error {
	if row.Severity.Rank() == 0 {
		return fmt.Errorf("threshold tables: %s/%s has unknown severity %q", category, key, row.Severity)
	}
	if !slices.Contains(domain.HazardTypes, row.HazardType) {
		return fmt.Errorf("threshold tables: %s/%s has unknown hazard type %q", category, key, row.HazardType)
	}
	return nil
}
