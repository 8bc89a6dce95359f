// Package dedup decides whether a candidate alert describes a new physical
// event or one that is already being alerted on.
package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hazardwatch/alert-engine/internal/domain"
	"github.com/jonboulle/clockwork"
)

// Config holds the suppression windows and alert lifetimes per hazard type.
// Immutable after construction; tests substitute shorter windows.
type Config struct {
	// SpatialTolerance is the half-width in degrees of the bounding box used
	// for the overlap check. A box, not great-circle distance: at ±0.5° the
	// difference is irrelevant for suppression and the box is indexable.
	// Kept fixed regardless of event magnitude (known simplification).
	SpatialTolerance float64

	// Lookback is how far back an existing active alert suppresses new
	// candidates for the same event.
	Lookback map[domain.HazardType]time.Duration

	// TTL determines ExpiresAt for accepted alerts.
	TTL map[domain.HazardType]time.Duration
}

// DefaultConfig returns the production suppression windows.
func DefaultConfig() Config {
	return Config{
		SpatialTolerance: 0.5,
		Lookback: map[domain.HazardType]time.Duration{
			domain.HazardEarthquake: 60 * time.Minute,
			domain.HazardStorm:      120 * time.Minute,
			domain.HazardFlood:      180 * time.Minute,
			domain.HazardCyclone:    240 * time.Minute,
			domain.HazardHeatwave:   360 * time.Minute,
		},
		TTL: map[domain.HazardType]time.Duration{
			domain.HazardEarthquake: 3 * time.Hour,
			domain.HazardStorm:      6 * time.Hour,
			domain.HazardFlood:      12 * time.Hour,
			domain.HazardCyclone:    12 * time.Hour,
			domain.HazardHeatwave:   24 * time.Hour,
		},
	}
}

// Gate performs the check-then-act admission sequence. The lookup and insert
// run inside a mutex keyed by (hazard type, 1° geo cell) so two concurrent
// scheduler triggers cannot both create an alert for the same event.
type Gate struct {
	store  domain.AlertStore
	scorer domain.Scorer // optional enrichment, may be nil
	cfg    Config
	clock  clockwork.Clock
	logger *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a Gate. scorer may be nil to skip oracle enrichment.
func New(store domain.AlertStore, scorer domain.Scorer, cfg Config, clock clockwork.Clock, logger *slog.Logger) *Gate {
	return &Gate{
		store:  store,
		scorer: scorer,
		cfg:    cfg,
		clock:  clock,
		logger: logger,
		locks:  map[string]*sync.Mutex{},
	}
}

// Admit checks a candidate against existing active alerts. It returns the
// persisted alert and true on acceptance, or the suppressing alert and false
// when an equivalent active alert already covers the event. Store failures
// are wrapped with domain.ErrStoreUnavailable and abandon only this
// candidate's tick.
func (g *Gate) Admit(ctx context.Context, candidate domain.CandidateAlert) (domain.Alert, bool, error) {
	lock := g.lockFor(candidate.HazardType, candidate.Location)
	lock.Lock()
	defer lock.Unlock()

	now := g.clock.Now()
	box := domain.BoundingBox(candidate.Location, g.cfg.SpatialTolerance)
	since := now.Add(-g.lookback(candidate.HazardType))

	existing, err := g.store.FindActive(ctx, candidate.HazardType, box, since)
	if err != nil {
		return domain.Alert{}, false, fmt.Errorf("%w: find active: %w", domain.ErrStoreUnavailable, err)
	}
	if len(existing) > 0 {
		g.logger.Debug("candidate suppressed by active alert",
			"hazard_type", candidate.HazardType,
			"location", candidate.Location.Name,
			"existing_id", existing[0].ID,
		)
		return existing[0], false, nil
	}

	alert := domain.Alert{
		ID:              uuid.NewString(),
		HazardType:      candidate.HazardType,
		Severity:        candidate.Severity,
		Status:          domain.StatusActive,
		Location:        candidate.Location,
		Measurements:    candidate.Measurements,
		Source:          candidate.Source,
		Recommendations: RecommendationsFor(candidate.HazardType, candidate.Severity),
		CreatedAt:       now,
		ExpiresAt:       now.Add(g.ttl(candidate.HazardType)),
	}

	if g.scorer != nil {
		score, err := g.scorer.Score(ctx, candidate.HazardType, candidate.Location, candidate.Measurements)
		if err != nil {
			// Scorers fall back internally; an error here is unexpected but
			// must not block the alert.
			g.logger.Warn("oracle enrichment failed", "error", err, "hazard_type", candidate.HazardType)
		} else {
			alert.Probability = score.Probability
			alert.Confidence = score.Confidence
			alert.ModelID = score.ModelID
		}
	}

	stored, err := g.store.Create(ctx, alert)
	if err != nil {
		return domain.Alert{}, false, fmt.Errorf("%w: create: %w", domain.ErrStoreUnavailable, err)
	}

	g.logger.Info("alert accepted",
		"id", stored.ID,
		"hazard_type", stored.HazardType,
		"severity", stored.Severity,
		"location", stored.Location.Name,
		"expires_at", stored.ExpiresAt,
	)
	return stored, true, nil
}

func (g *Gate) lookback(h domain.HazardType) time.Duration {
	if d, ok := g.cfg.Lookback[h]; ok {
		return d
	}
	return 60 * time.Minute
}

func (g *Gate) ttl(h domain.HazardType) time.Duration {
	if d, ok := g.cfg.TTL[h]; ok {
		return d
	}
	return 6 * time.Hour
}

// lockFor returns the mutex for a (hazard type, geo cell) pair, creating it
// on first use. Locks are never removed; the key space is bounded by hazard
// types times visited cells.
func (g *Gate) lockFor(h domain.HazardType, loc domain.Location) *sync.Mutex {
	key := string(h) + "/" + domain.CellOf(loc).String()
	g.mu.Lock()
	defer g.mu.Unlock()
	lock, ok := g.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		g.locks[key] = lock
	}
	return lock
}
