package oracle

import (
	"context"

	"github.com/hazardwatch/alert-engine/internal/classify"
	"github.com/hazardwatch/alert-engine/internal/domain"
)

const ruleModelID = "rule-estimate-v1"

// severityBase anchors the probability estimate to the tier a measurement
// lands in; the distance toward the next boundary interpolates between
// anchors.
var severityBase = map[domain.Severity]float64{
	domain.SeverityLow:      0.35,
	domain.SeverityMedium:   0.55,
	domain.SeverityHigh:     0.75,
	domain.SeverityCritical: 0.90,
}

const (
	probabilityFloor = 0.15 // no measurement crossed a boundary
	probabilityCap   = 0.97
	ruleConfidence   = 0.5 // heuristic, deliberately lower than model output
)

// RuleScorer estimates probability from the same threshold tables the
// classifier uses: the further a measurement sits above its boundary, the
// higher the estimate. It is the local stand-in when the prediction service
// is unreachable, and the whole oracle when none is configured.
type RuleScorer struct {
	tables classify.Tables
}

// NewRuleScorer creates a RuleScorer over the given threshold tables.
func NewRuleScorer(tables classify.Tables) *RuleScorer {
	return &RuleScorer{tables: tables}
}

// Score derives a probability for the hazard from the features. It never
// fails: with no matching feature it returns the floor estimate.
func (r *RuleScorer) Score(_ context.Context, hazardType domain.HazardType, _ domain.Location, features map[string]float64) (domain.OracleScore, error) {
	best := domain.OracleScore{
		Probability: probabilityFloor,
		Confidence:  ruleConfidence,
		ModelID:     ruleModelID,
	}

	for _, table := range r.tables {
		for key, rows := range table {
			value, ok := features[key]
			if !ok {
				continue
			}
			row, ok := classify.Lookup(rows, value)
			if !ok || row.HazardType != hazardType {
				continue
			}
			p := interpolate(rows, row, value)
			if p > best.Probability {
				best.Probability = p
				best.Severity = row.Severity
			}
		}
	}
	return best, nil
}

// interpolate places value between its row's anchor and the next row's,
// proportional to how far it has climbed toward the next boundary. Values in
// the top tier approach the cap on a fixed ramp equal to the tier's span.
func interpolate(rows []classify.Row, matched classify.Row, value float64) float64 {
	base := severityBase[matched.Severity]

	var next *classify.Row
	for i := range rows {
		if rows[i].Boundary > matched.Boundary {
			next = &rows[i]
			break
		}
	}

	if next == nil {
		span := matched.Boundary - rows[0].Boundary
		if span <= 0 {
			return base
		}
		frac := (value - matched.Boundary) / span
		if frac > 1 {
			frac = 1
		}
		return base + frac*(probabilityCap-base)
	}

	frac := (value - matched.Boundary) / (next.Boundary - matched.Boundary)
	if frac > 1 {
		frac = 1
	}
	nextBase, ok := severityBase[next.Severity]
	if !ok || nextBase < base {
		nextBase = base
	}
	return base + frac*(nextBase-base)
}
