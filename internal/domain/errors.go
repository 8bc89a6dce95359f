package domain

import "errors"

// Error taxonomy for the ingestion pipeline. Adapter- and oracle-level
// failures are absorbed with documented fallbacks; store failures surface to
// the triggering caller but never cross category boundaries.
var (
	// ErrSourceUnavailable means an upstream source could not be reached.
	// Adapters absorb it by emitting synthetic readings; it is logged, not
	// propagated.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrSourceTimeout is treated identically to ErrSourceUnavailable.
	ErrSourceTimeout = errors.New("source timeout")

	// ErrStoreUnavailable means the alert store rejected an operation. The
	// affected category abandons its tick; other categories are unaffected.
	ErrStoreUnavailable = errors.New("alert store unavailable")

	// ErrNotFound means a status update referenced an unknown alert.
	ErrNotFound = errors.New("alert not found")

	// ErrInvalidReading marks a malformed reading; the reading is dropped
	// and logged without aborting its batch.
	ErrInvalidReading = errors.New("invalid reading")

	// ErrInvalidTransition marks a status update that would violate the
	// monotonic alert lifecycle.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrOracleUnavailable means the prediction service could not be
	// reached; callers fall back to the local rule-based estimate.
	ErrOracleUnavailable = errors.New("prediction oracle unavailable")
)
