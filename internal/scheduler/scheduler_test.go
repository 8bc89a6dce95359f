package scheduler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hazardwatch/alert-engine/internal/domain"
	"github.com/hazardwatch/alert-engine/internal/observability"
	"github.com/hazardwatch/alert-engine/internal/source"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type scriptedAdapter struct {
	category  domain.Category
	mu        sync.Mutex
	batches   [][]domain.Reading
	err       error
	collected chan struct{}
}

func newScriptedAdapter(category domain.Category) *scriptedAdapter {
	return &scriptedAdapter{category: category, collected: make(chan struct{}, 16)}
}

func (a *scriptedAdapter) Category() domain.Category { return a.category }

func (a *scriptedAdapter) Collect(_ context.Context) ([]domain.Reading, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	select {
	case a.collected <- struct{}{}:
	default:
	}
	if a.err != nil {
		return nil, a.err
	}
	if len(a.batches) == 0 {
		return nil, nil
	}
	batch := a.batches[0]
	if len(a.batches) > 1 {
		a.batches = a.batches[1:]
	}
	return batch, nil
}

func (a *scriptedAdapter) setBatches(batches ...[]domain.Reading) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.batches = batches
}

// stubClassifier emits a cyclone candidate for any reading carrying
// windSpeed >= 118, and nothing otherwise.
type stubClassifier struct {
	panicOn string
}

func (c *stubClassifier) Classify(r domain.Reading) (domain.CandidateAlert, bool) {
	if c.panicOn != "" && r.SourceID == c.panicOn {
		panic("classifier blew up")
	}
	wind, ok := r.Measurement(domain.KeyWindSpeed)
	if !ok || wind < 118 {
		return domain.CandidateAlert{}, false
	}
	return domain.CandidateAlert{
		HazardType:   domain.HazardCyclone,
		Severity:     domain.SeverityHigh,
		Location:     r.Location,
		Measurements: r.Measurements,
		Source:       r.SourceID,
		CapturedAt:   r.CapturedAt,
	}, true
}

type stubGate struct {
	mu       sync.Mutex
	admitted []domain.CandidateAlert
	seen     map[string]domain.Alert // suppression key: source|lat|lon
	err      error
}

func newStubGate() *stubGate {
	return &stubGate{seen: map[string]domain.Alert{}}
}

func (g *stubGate) Admit(_ context.Context, c domain.CandidateAlert) (domain.Alert, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return domain.Alert{}, false, g.err
	}
	g.admitted = append(g.admitted, c)
	key := fmt.Sprintf("%s|%f|%f", c.Source, c.Location.Lat, c.Location.Lon)
	if existing, ok := g.seen[key]; ok {
		return existing, false, nil
	}
	alert := domain.Alert{
		ID:         uuid.NewString(),
		HazardType: c.HazardType,
		Severity:   c.Severity,
		Status:     domain.StatusActive,
		Location:   c.Location,
	}
	g.seen[key] = alert
	return alert, true, nil
}

func (g *stubGate) admitCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.admitted)
}

type countingPublisher struct {
	mu     sync.Mutex
	alerts []domain.Alert
	per    int
}

func (p *countingPublisher) Publish(alert domain.Alert) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, alert)
	return p.per
}

type countingExpirer struct {
	mu    sync.Mutex
	calls int
}

func (e *countingExpirer) ExpireOverdue(_ context.Context, _ time.Time) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	return 0, nil
}

func windReading(clock clockwork.Clock, sourceID string, lat, lon, speed float64) domain.Reading {
	return domain.Reading{
		Category:   domain.CategoryWeather,
		SourceID:   sourceID,
		Location:   domain.Location{Lat: lat, Lon: lon, Name: "test"},
		Measurements: map[string]float64{
			domain.KeyWindSpeed: speed,
		},
		Quality:    domain.QualityGood,
		CapturedAt: clock.Now(),
	}
}

type fixture struct {
	scheduler *Scheduler
	adapter   *scriptedAdapter
	gate      *stubGate
	publisher *countingPublisher
	clock     *clockwork.FakeClock
}

func newFixture(t *testing.T, category domain.Category, cfg Config) *fixture {
	t.Helper()
	clock := clockwork.NewFakeClock()
	adapter := newScriptedAdapter(category)
	gate := newStubGate()
	publisher := &countingPublisher{per: 1}
	s := New(
		[]source.Adapter{adapter},
		&stubClassifier{},
		gate,
		publisher,
		nil,
		cfg,
		clock,
		discardLogger(),
		observability.NewMetricsForTesting(),
	)
	return &fixture{scheduler: s, adapter: adapter, gate: gate, publisher: publisher, clock: clock}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.CollectTimeout = time.Second
	return cfg
}

func TestCollectNowRunsPipeline(t *testing.T) {
	f := newFixture(t, domain.CategoryWeather, testConfig())
	f.adapter.setBatches([]domain.Reading{
		windReading(f.clock, "station-1", 15.0, 87.0, 140),
		windReading(f.clock, "station-2", 19.5, 64.0, 40), // below any threshold
	})

	results, err := f.scheduler.CollectNow(context.Background(), "weather")
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, domain.CategoryWeather, r.Category)
	assert.Equal(t, 2, r.Readings)
	assert.Equal(t, 0, r.Dropped)
	assert.Equal(t, 1, r.Candidates)
	assert.Equal(t, 1, r.Accepted)
	assert.Equal(t, 0, r.Suppressed)
	assert.Empty(t, r.Err)

	require.Len(t, f.publisher.alerts, 1)
	assert.Equal(t, domain.HazardCyclone, f.publisher.alerts[0].HazardType)
}

func TestCollectNowAllCoversEveryCategory(t *testing.T) {
	f := newFixture(t, domain.CategoryWeather, testConfig())

	results, err := f.scheduler.CollectNow(context.Background(), "all")
	require.NoError(t, err)
	require.Len(t, results, len(domain.Categories))

	byCategory := map[domain.Category]CollectionResult{}
	for _, r := range results {
		byCategory[r.Category] = r
	}
	assert.Empty(t, byCategory[domain.CategoryWeather].Err)
	assert.Equal(t, "no adapter registered", byCategory[domain.CategorySeismic].Err)
	assert.Equal(t, "no adapter registered", byCategory[domain.CategoryHydrological].Err)
}

func TestCollectNowRejectsUnknownCategory(t *testing.T) {
	f := newFixture(t, domain.CategoryWeather, testConfig())

	_, err := f.scheduler.CollectNow(context.Background(), "volcanic")
	assert.ErrorIs(t, err, domain.ErrInvalidReading)
}

func TestInvalidReadingsDroppedNotFatal(t *testing.T) {
	f := newFixture(t, domain.CategoryWeather, testConfig())
	bad := windReading(f.clock, "station-1", 15.0, 87.0, 140)
	bad.Location.Lat = 95 // out of range
	f.adapter.setBatches([]domain.Reading{
		bad,
		windReading(f.clock, "station-2", 16.0, 88.0, 130),
	})

	results, err := f.scheduler.CollectNow(context.Background(), "weather")
	require.NoError(t, err)

	r := results[0]
	assert.Equal(t, 2, r.Readings)
	assert.Equal(t, 1, r.Dropped)
	assert.Equal(t, 1, r.Accepted)
	assert.Empty(t, r.Err)
}

func TestStoreErrorAbandonsTick(t *testing.T) {
	f := newFixture(t, domain.CategoryWeather, testConfig())
	f.gate.err = fmt.Errorf("%w: connection refused", domain.ErrStoreUnavailable)
	f.adapter.setBatches([]domain.Reading{
		windReading(f.clock, "station-1", 15.0, 87.0, 140),
		windReading(f.clock, "station-2", 16.0, 88.0, 130),
	})

	results, err := f.scheduler.CollectNow(context.Background(), "weather")
	require.NoError(t, err)

	r := results[0]
	assert.Contains(t, r.Err, "store unavailable")
	assert.Equal(t, 0, r.Accepted)
	// The scheduler must still be willing to run the next cycle.
	f.gate.err = nil
	results, err = f.scheduler.CollectNow(context.Background(), "weather")
	require.NoError(t, err)
	assert.Empty(t, results[0].Err)
	assert.Equal(t, 2, results[0].Accepted)
}

func TestRecentWindowReplaysAndPrunes(t *testing.T) {
	cfg := testConfig()
	cfg.RecentWindow = time.Hour
	f := newFixture(t, domain.CategoryWeather, cfg)

	first := windReading(f.clock, "station-1", 15.0, 87.0, 140)
	f.adapter.setBatches([]domain.Reading{first})
	_, err := f.scheduler.CollectNow(context.Background(), "weather")
	require.NoError(t, err)
	require.Equal(t, 1, f.gate.admitCount())

	// Second cycle: the new batch plus the remembered reading are both
	// classified; the replay is suppressed by the gate.
	f.clock.Advance(10 * time.Minute)
	second := windReading(f.clock, "station-2", 16.0, 88.0, 130)
	f.adapter.setBatches([]domain.Reading{second})
	results, err := f.scheduler.CollectNow(context.Background(), "weather")
	require.NoError(t, err)
	assert.Equal(t, 3, f.gate.admitCount())
	assert.Equal(t, 1, results[0].Accepted)

	// After the window elapses the old readings fall out of the replay.
	f.clock.Advance(2 * time.Hour)
	f.adapter.setBatches(nil)
	_, err = f.scheduler.CollectNow(context.Background(), "weather")
	require.NoError(t, err)
	assert.Equal(t, 3, f.gate.admitCount())
}

func TestPanicInPipelineIsContained(t *testing.T) {
	f := newFixture(t, domain.CategoryWeather, testConfig())
	f.scheduler.classifier = &stubClassifier{panicOn: "station-1"}
	f.adapter.setBatches([]domain.Reading{
		windReading(f.clock, "station-1", 15.0, 87.0, 140),
	})

	results, err := f.scheduler.CollectNow(context.Background(), "weather")
	require.NoError(t, err)
	assert.Contains(t, results[0].Err, "panic")
}

func TestReadinessFlipsAfterFirstCycle(t *testing.T) {
	f := newFixture(t, domain.CategoryWeather, testConfig())
	ctx := context.Background()

	require.Error(t, f.scheduler.CheckReadiness(ctx))

	_, err := f.scheduler.CollectNow(ctx, "weather")
	require.NoError(t, err)
	assert.NoError(t, f.scheduler.CheckReadiness(ctx))
}

func TestExpirerRunsEachCycle(t *testing.T) {
	f := newFixture(t, domain.CategoryWeather, testConfig())
	expirer := &countingExpirer{}
	f.scheduler.expirer = expirer

	_, err := f.scheduler.CollectNow(context.Background(), "weather")
	require.NoError(t, err)
	assert.Equal(t, 1, expirer.calls)
}

func TestTimersTickIndependently(t *testing.T) {
	clock := clockwork.NewFakeClock()
	weather := newScriptedAdapter(domain.CategoryWeather)
	seismic := newScriptedAdapter(domain.CategorySeismic)

	cfg := testConfig()
	cfg.Intervals = map[domain.Category]time.Duration{
		domain.CategorySeismic: 5 * time.Minute,
		domain.CategoryWeather: 15 * time.Minute,
	}

	s := New(
		[]source.Adapter{weather, seismic},
		&stubClassifier{},
		newStubGate(),
		&countingPublisher{},
		nil,
		cfg,
		clock,
		discardLogger(),
		observability.NewMetricsForTesting(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Run(ctx)
	}()

	// Both category goroutines must be blocked on their tickers before the
	// clock moves, or the advance can race past a tick.
	require.NoError(t, clock.BlockUntilContext(ctx, 2))

	clock.Advance(5 * time.Minute)
	waitCollected(t, seismic, "seismic tick at 5m")
	assertNotCollected(t, weather, "weather must not tick at 5m")

	require.NoError(t, clock.BlockUntilContext(ctx, 2))
	clock.Advance(5 * time.Minute)
	waitCollected(t, seismic, "seismic tick at 10m")

	require.NoError(t, clock.BlockUntilContext(ctx, 2))
	clock.Advance(5 * time.Minute)
	waitCollected(t, seismic, "seismic tick at 15m")
	waitCollected(t, weather, "weather tick at 15m")

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
}

func TestPublishersFanOutSums(t *testing.T) {
	a := &countingPublisher{per: 2}
	b := &countingPublisher{per: 3}
	fan := Publishers{a, b}

	n := fan.Publish(domain.Alert{ID: "a1"})
	assert.Equal(t, 5, n)
	assert.Len(t, a.alerts, 1)
	assert.Len(t, b.alerts, 1)
}

func waitCollected(t *testing.T, a *scriptedAdapter, msg string) {
	t.Helper()
	select {
	case <-a.collected:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for collection: %s", msg)
	}
}

func assertNotCollected(t *testing.T, a *scriptedAdapter, msg string) {
	t.Helper()
	select {
	case <-a.collected:
		t.Fatalf("unexpected collection: %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}
