package domain

import (
	"context"
	"time"
)

// AlertStore is the persistence collaborator for accepted alerts. The engine
// needs only these three operations; retention and archival belong to the
// store's owner. Implementations must provide read-your-writes consistency:
// an alert returned by Create is visible to an immediately following
// FindActive.
type AlertStore interface {
	// Create persists a new alert and returns the stored value.
	Create(ctx context.Context, alert Alert) (Alert, error)

	// FindActive returns alerts of the given hazard type with status active,
	// located inside box and created at or after since.
	FindActive(ctx context.Context, hazardType HazardType, box Box, since time.Time) ([]Alert, error)

	// UpdateStatus moves an alert to a new lifecycle status. Returns
	// ErrNotFound for unknown ids and ErrInvalidTransition when the move
	// would violate the monotonic lifecycle.
	UpdateStatus(ctx context.Context, id string, status Status) (Alert, error)
}
