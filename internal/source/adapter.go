// Package source provides one collection adapter per hazard category. Each
// adapter fetches normalized readings from its upstream feed and absorbs
// upstream failure by switching to a deterministic synthetic generator, so
// the pipeline downstream never sees an empty or error state from an
// unreachable source.
package source

import (
	"context"

	"github.com/hazardwatch/alert-engine/internal/domain"
)

// Adapter collects a batch of normalized readings on demand.
//
// Collect never returns an error for an unreachable or timed-out upstream;
// that failure mode is logged and absorbed via the synthetic fallback. Errors
// that do escape indicate a programming fault and are caught by the
// scheduler without cancelling the category's timer.
type Adapter interface {
	Category() domain.Category
	Collect(ctx context.Context) ([]domain.Reading, error)
}
