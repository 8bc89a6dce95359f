// Package scheduler owns the recurring ingestion timers, one per hazard
// category, and drives the collect, classify, admit, publish pipeline on
// every tick and on manual triggers.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hazardwatch/alert-engine/internal/domain"
	"github.com/hazardwatch/alert-engine/internal/observability"
	"github.com/hazardwatch/alert-engine/internal/source"
	"github.com/jonboulle/clockwork"
)

// Classifier maps a reading to at most one candidate alert.
type Classifier interface {
	Classify(reading domain.Reading) (domain.CandidateAlert, bool)
}

// Admitter decides whether a candidate becomes a persisted alert.
type Admitter interface {
	Admit(ctx context.Context, candidate domain.CandidateAlert) (domain.Alert, bool, error)
}

// Publisher receives accepted alerts after persistence and returns the number
// of deliveries made.
type Publisher interface {
	Publish(alert domain.Alert) int
}

// Publishers fans one accepted alert out to several publishers (the live
// broker plus the optional Kafka mirror).
type Publishers []Publisher

// Publish delivers to every publisher and sums the delivery counts.
func (p Publishers) Publish(alert domain.Alert) int {
	total := 0
	for _, pub := range p {
		total += pub.Publish(alert)
	}
	return total
}

// Expirer is the optional housekeeping hook on the alert store that moves
// overdue alerts to expired.
type Expirer interface {
	ExpireOverdue(ctx context.Context, now time.Time) (int, error)
}

// Config holds the scheduler's cadences and bounds.
type Config struct {
	// Intervals is the tick period per category.
	Intervals map[domain.Category]time.Duration

	// CollectTimeout bounds a single adapter call; a timeout inside the
	// adapter is absorbed like any unavailable source.
	CollectTimeout time.Duration

	// RecentWindow is how long readings stay in the re-classification ring.
	RecentWindow time.Duration
}

// DefaultConfig returns the production cadences.
func DefaultConfig() Config {
	return Config{
		Intervals: map[domain.Category]time.Duration{
			domain.CategorySeismic:      5 * time.Minute,
			domain.CategoryWeather:      15 * time.Minute,
			domain.CategoryHydrological: 30 * time.Minute,
		},
		CollectTimeout: 15 * time.Second,
		RecentWindow:   time.Hour,
	}
}

// CollectionResult summarizes one collection cycle for one category. Manual
// triggers return these to the caller instead of an all-or-nothing error.
type CollectionResult struct {
	Category   domain.Category `json:"category"`
	Readings   int             `json:"readings"`
	Dropped    int             `json:"dropped"`
	Candidates int             `json:"candidates"`
	Accepted   int             `json:"accepted"`
	Suppressed int             `json:"suppressed"`
	Err        string          `json:"error,omitempty"`
}

type timedReading struct {
	reading domain.Reading
	seen    time.Time
}

// Scheduler runs the category timers. Timers are independent: categories
// tick concurrently, a failure in one never cancels another, and manual
// triggers share the same pipeline without pausing the timers.
type Scheduler struct {
	adapters   map[domain.Category]source.Adapter
	classifier Classifier
	gate       Admitter
	publisher  Publisher
	expirer    Expirer // may be nil
	cfg        Config
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics
	ready      atomic.Bool

	mu     sync.Mutex
	recent map[domain.Category][]timedReading
}

// New creates a Scheduler over the given adapters. expirer may be nil when
// the store has no housekeeping hook.
func New(
	adapters []source.Adapter,
	classifier Classifier,
	gate Admitter,
	publisher Publisher,
	expirer Expirer,
	cfg Config,
	clock clockwork.Clock,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Scheduler {
	byCategory := make(map[domain.Category]source.Adapter, len(adapters))
	for _, a := range adapters {
		byCategory[a.Category()] = a
	}
	return &Scheduler{
		adapters:   byCategory,
		classifier: classifier,
		gate:       gate,
		publisher:  publisher,
		expirer:    expirer,
		cfg:        cfg,
		clock:      clock,
		logger:     logger,
		metrics:    metrics,
		recent:     map[domain.Category][]timedReading{},
	}
}

// CheckReadiness returns nil once at least one collection cycle has
// completed without a surfaced error.
func (s *Scheduler) CheckReadiness(_ context.Context) error {
	if !s.ready.Load() {
		return errors.New("no collection cycle has completed yet")
	}
	return nil
}

// Run starts one ticker per category and blocks until the context is
// cancelled. Each category's first collection happens on its first tick, not
// at startup, so a burst of upstream calls does not accompany every deploy.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started", "categories", len(s.adapters))
	s.metrics.EngineRunning.Set(1)
	defer s.metrics.EngineRunning.Set(0)

	var wg sync.WaitGroup
	for category, adapter := range s.adapters {
		wg.Add(1)
		go func(category domain.Category, adapter source.Adapter) {
			defer wg.Done()
			s.runCategory(ctx, category, adapter)
		}(category, adapter)
	}
	wg.Wait()
	s.logger.Info("scheduler stopped", "reason", ctx.Err())
	return nil
}

func (s *Scheduler) runCategory(ctx context.Context, category domain.Category, adapter source.Adapter) {
	interval, ok := s.cfg.Intervals[category]
	if !ok {
		interval = 15 * time.Minute
	}
	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.collectSafely(ctx, category, adapter, "timer")
		}
	}
}

// collectSafely isolates one category's cycle: a panic or error is logged
// and recorded without touching the ticker or the other categories.
func (s *Scheduler) collectSafely(ctx context.Context, category domain.Category, adapter source.Adapter, trigger string) (result CollectionResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("collection panicked", "category", category, "panic", r)
			s.metrics.CollectionErrors.WithLabelValues(string(category)).Inc()
			result = CollectionResult{Category: category, Err: fmt.Sprintf("panic: %v", r)}
		}
	}()
	result = s.collectOne(ctx, category, adapter, trigger)
	return result
}

func (s *Scheduler) collectOne(ctx context.Context, category domain.Category, adapter source.Adapter, trigger string) CollectionResult {
	start := time.Now()
	result := CollectionResult{Category: category}
	s.metrics.SchedulerTicks.WithLabelValues(string(category), trigger).Inc()

	if s.expirer != nil {
		if n, err := s.expirer.ExpireOverdue(ctx, s.clock.Now()); err != nil {
			s.logger.Warn("expiring overdue alerts failed", "error", err)
		} else if n > 0 {
			s.logger.Info("alerts expired", "count", n)
		}
	}

	cctx, cancel := context.WithTimeout(ctx, s.cfg.CollectTimeout)
	readings, err := adapter.Collect(cctx)
	cancel()
	if err != nil {
		// Adapters absorb unavailable sources; anything surfacing here is a
		// fault, logged and isolated to this category's tick.
		s.logger.Error("collection failed", "category", category, "error", err)
		s.metrics.CollectionErrors.WithLabelValues(string(category)).Inc()
		result.Err = err.Error()
		return result
	}
	result.Readings = len(readings)
	s.countCollected(category, readings)

	valid := make([]domain.Reading, 0, len(readings))
	for _, reading := range readings {
		if err := reading.Validate(); err != nil {
			result.Dropped++
			s.logger.Warn("dropping invalid reading", "category", category, "error", err)
			s.metrics.ReadingsDropped.WithLabelValues(string(category), "invalid").Inc()
			continue
		}
		valid = append(valid, reading)
	}

	// New batch first, in collection order, then the recent window: a
	// reading may complete a pattern only against prior readings, and the
	// gate's idempotence makes re-admission safe.
	window := s.recentReadings(category)
	if err := s.process(ctx, valid, &result); err != nil {
		result.Err = err.Error()
		s.metrics.CollectionErrors.WithLabelValues(string(category)).Inc()
		s.logger.Error("tick abandoned", "category", category, "error", err)
		return result
	}
	rerun := CollectionResult{Category: category}
	if err := s.process(ctx, window, &rerun); err != nil {
		result.Err = err.Error()
		s.metrics.CollectionErrors.WithLabelValues(string(category)).Inc()
		s.logger.Error("recent-window re-run abandoned", "category", category, "error", err)
		return result
	}
	result.Accepted += rerun.Accepted

	s.remember(category, valid)
	s.metrics.CollectionSeconds.WithLabelValues(string(category)).Observe(time.Since(start).Seconds())
	s.ready.Store(true)

	s.logger.Info("collection cycle complete",
		"category", category,
		"trigger", trigger,
		"readings", result.Readings,
		"dropped", result.Dropped,
		"candidates", result.Candidates,
		"accepted", result.Accepted,
		"suppressed", result.Suppressed,
	)
	return result
}

// process classifies, admits, and publishes readings in order. A store
// failure aborts the remainder; the caller abandons the tick for this
// category only.
func (s *Scheduler) process(ctx context.Context, readings []domain.Reading, result *CollectionResult) error {
	for _, reading := range readings {
		candidate, ok := s.classifier.Classify(reading)
		if !ok {
			continue
		}
		result.Candidates++
		s.metrics.Candidates.WithLabelValues(string(candidate.HazardType), string(candidate.Severity)).Inc()

		alert, accepted, err := s.gate.Admit(ctx, candidate)
		if err != nil {
			return err
		}
		if !accepted {
			result.Suppressed++
			s.metrics.AlertsSuppressed.WithLabelValues(string(candidate.HazardType)).Inc()
			continue
		}
		result.Accepted++
		s.metrics.AlertsAccepted.WithLabelValues(string(alert.HazardType), string(alert.Severity)).Inc()

		delivered := s.publisher.Publish(alert)
		s.metrics.EventsDelivered.Add(float64(delivered))
	}
	return nil
}

// CollectNow triggers collection synchronously for one category or "all",
// reusing the timer pipeline. It may run concurrently with scheduled ticks;
// the dedup gate's keyed locking keeps that safe. The returned results carry
// per-category errors rather than failing the whole call.
func (s *Scheduler) CollectNow(ctx context.Context, category string) ([]CollectionResult, error) {
	var categories []domain.Category
	if strings.EqualFold(category, "all") {
		categories = domain.Categories
	} else {
		parsed, err := domain.ParseCategory(category)
		if err != nil {
			return nil, err
		}
		categories = []domain.Category{parsed}
	}

	results := make([]CollectionResult, 0, len(categories))
	for _, c := range categories {
		adapter, ok := s.adapters[c]
		if !ok {
			results = append(results, CollectionResult{Category: c, Err: "no adapter registered"})
			continue
		}
		results = append(results, s.collectSafely(ctx, c, adapter, "manual"))
	}
	return results, nil
}

func (s *Scheduler) countCollected(category domain.Category, readings []domain.Reading) {
	synthetic := 0
	for _, r := range readings {
		if strings.HasSuffix(r.SourceID, "-synthetic") {
			synthetic++
		}
	}
	live := len(readings) - synthetic
	if live > 0 {
		s.metrics.ReadingsCollected.WithLabelValues(string(category), "live").Add(float64(live))
	}
	if synthetic > 0 {
		s.metrics.ReadingsCollected.WithLabelValues(string(category), "synthetic").Add(float64(synthetic))
		s.metrics.SourceFallbacks.WithLabelValues(string(category)).Inc()
	}
}

// recentReadings snapshots the category's window, pruning expired entries.
func (s *Scheduler) recentReadings(category domain.Category) []domain.Reading {
	cutoff := s.clock.Now().Add(-s.cfg.RecentWindow)
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.recent[category][:0]
	for _, tr := range s.recent[category] {
		if tr.seen.After(cutoff) {
			kept = append(kept, tr)
		}
	}
	s.recent[category] = kept

	out := make([]domain.Reading, len(kept))
	for i, tr := range kept {
		out[i] = tr.reading
	}
	return out
}

func (s *Scheduler) remember(category domain.Category, readings []domain.Reading) {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range readings {
		s.recent[category] = append(s.recent[category], timedReading{reading: r, seen: now})
	}
}
