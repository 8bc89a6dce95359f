// Package classify maps normalized readings to candidate alerts using
// per-category threshold tables.
package classify

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/hazardwatch/alert-engine/internal/domain"
)

// Classifier evaluates readings against an immutable set of threshold
// tables. Classification is pure and deterministic: identical measurements
// always yield the same candidate or none.
type Classifier struct {
	tables Tables
	logger *slog.Logger
}

// New creates a Classifier. The tables are validated so a misconfigured
// deployment fails at startup rather than at the first reading.
func New(tables Tables, logger *slog.Logger) (*Classifier, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}
	return &Classifier{tables: tables, logger: logger}, nil
}

// Classify returns the candidate alert for a reading, or false when every
// relevant measurement sits below its lowest boundary. Each measured key is
// looked up in the category's table; the highest severity across keys wins,
// ties resolved by lexical key order so the result is stable. Keys absent
// from the reading are not applicable, never treated as zero.
func (c *Classifier) Classify(reading domain.Reading) (domain.CandidateAlert, bool) {
	table, ok := c.tables[reading.Category]
	if !ok {
		return domain.CandidateAlert{}, false
	}

	keys := make([]string, 0, len(table))
	for key := range table {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var best Row
	found := false
	for _, key := range keys {
		value, measured := reading.Measurement(key)
		if !measured {
			continue
		}
		row, reached := Lookup(table[key], value)
		if !reached {
			continue
		}
		if !found || row.Severity.Rank() > best.Severity.Rank() {
			best = row
			found = true
		}
	}
	if !found {
		return domain.CandidateAlert{}, false
	}

	measurements := make(map[string]float64, len(reading.Measurements))
	for k, v := range reading.Measurements {
		measurements[k] = v
	}

	c.logger.Debug("reading classified",
		"category", reading.Category,
		"hazard_type", best.HazardType,
		"severity", best.Severity,
		"location", reading.Location.Name,
	)

	return domain.CandidateAlert{
		HazardType:   best.HazardType,
		Severity:     best.Severity,
		Location:     reading.Location,
		Measurements: measurements,
		Source:       reading.SourceID,
		CapturedAt:   reading.CapturedAt,
	}, true
}

// Tables exposes the classifier's configuration for collaborators that
// derive local estimates from the same boundaries (the oracle fallback).
func (c *Classifier) Tables() Tables {
	return c.tables
}
