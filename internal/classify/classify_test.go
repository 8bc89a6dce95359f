package classify_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hazardwatch/alert-engine/internal/classify"
	"github.com/hazardwatch/alert-engine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClassifier(t *testing.T) *classify.Classifier {
	t.Helper()
	c, err := classify.New(classify.DefaultTables(), slog.Default())
	require.NoError(t, err)
	return c
}

func makeReading(category domain.Category, measurements map[string]float64) domain.Reading {
	return domain.Reading{
		Category:     category,
		Location:     domain.Location{Name: "Nepal-India Border", Lat: 27.7, Lon: 85.3},
		Measurements: measurements,
		CapturedAt:   time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC),
		Quality:      domain.QualityGood,
		SourceID:     "test",
	}
}

func TestClassify_SeismicHighTier(t *testing.T) {
	c := newClassifier(t)

	// Magnitude 6.2 sits at or above the 6.0 high boundary, below 7.0 critical.
	candidate, ok := c.Classify(makeReading(domain.CategorySeismic, map[string]float64{
		domain.KeyMagnitude: 6.2,
		domain.KeyDepth:     15,
	}))
	require.True(t, ok)
	assert.Equal(t, domain.HazardEarthquake, candidate.HazardType)
	assert.Equal(t, domain.SeverityHigh, candidate.Severity)
	assert.Equal(t, "Nepal-India Border", candidate.Location.Name)
}

func TestClassify_InclusiveBoundaries(t *testing.T) {
	c := newClassifier(t)

	cases := []struct {
		magnitude float64
		severity  domain.Severity
	}{
		{4.0, domain.SeverityLow},
		{4.99, domain.SeverityLow},
		{5.0, domain.SeverityMedium},
		{6.0, domain.SeverityHigh},
		{7.0, domain.SeverityCritical},
		{9.5, domain.SeverityCritical},
	}
	for _, tc := range cases {
		candidate, ok := c.Classify(makeReading(domain.CategorySeismic, map[string]float64{
			domain.KeyMagnitude: tc.magnitude,
		}))
		require.True(t, ok, "magnitude %.2f", tc.magnitude)
		assert.Equal(t, tc.severity, candidate.Severity, "magnitude %.2f", tc.magnitude)
	}
}

func TestClassify_BelowLowestBoundary(t *testing.T) {
	c := newClassifier(t)

	_, ok := c.Classify(makeReading(domain.CategorySeismic, map[string]float64{
		domain.KeyMagnitude: 3.9,
	}))
	assert.False(t, ok)
}

func TestClassify_MissingKeyIsNotZero(t *testing.T) {
	c := newClassifier(t)

	// Depth alone has no table entry; no candidate, not a zero-magnitude one.
	_, ok := c.Classify(makeReading(domain.CategorySeismic, map[string]float64{
		domain.KeyDepth: 15,
	}))
	assert.False(t, ok)
}

func TestClassify_WindSelectsCycloneAboveBoundary(t *testing.T) {
	c := newClassifier(t)

	// 140 km/h crosses the 118 cyclone boundary but not the 150 critical one.
	candidate, ok := c.Classify(makeReading(domain.CategoryWeather, map[string]float64{
		domain.KeyWindSpeed: 140,
	}))
	require.True(t, ok)
	assert.Equal(t, domain.HazardCyclone, candidate.HazardType)
	assert.Equal(t, domain.SeverityHigh, candidate.Severity)

	candidate, ok = c.Classify(makeReading(domain.CategoryWeather, map[string]float64{
		domain.KeyWindSpeed: 150,
	}))
	require.True(t, ok)
	assert.Equal(t, domain.HazardCyclone, candidate.HazardType)
	assert.Equal(t, domain.SeverityCritical, candidate.Severity)

	candidate, ok = c.Classify(makeReading(domain.CategoryWeather, map[string]float64{
		domain.KeyWindSpeed: 95,
	}))
	require.True(t, ok)
	assert.Equal(t, domain.HazardStorm, candidate.HazardType)
	assert.Equal(t, domain.SeverityMedium, candidate.Severity)
}

func TestClassify_HighestTierAcrossKeysWins(t *testing.T) {
	c := newClassifier(t)

	// Medium wind plus critical rainfall takes the rainfall tier.
	candidate, ok := c.Classify(makeReading(domain.CategoryWeather, map[string]float64{
		domain.KeyWindSpeed: 95,
		domain.KeyRainfall:  210,
	}))
	require.True(t, ok)
	assert.Equal(t, domain.HazardStorm, candidate.HazardType)
	assert.Equal(t, domain.SeverityCritical, candidate.Severity)
}

func TestClassify_Deterministic(t *testing.T) {
	c := newClassifier(t)

	reading := makeReading(domain.CategoryWeather, map[string]float64{
		domain.KeyWindSpeed:   130,
		domain.KeyRainfall:    155,
		domain.KeyTemperature: 41,
	})
	first, ok := c.Classify(reading)
	require.True(t, ok)
	for i := 0; i < 50; i++ {
		next, ok := c.Classify(reading)
		require.True(t, ok)
		assert.Equal(t, first.HazardType, next.HazardType)
		assert.Equal(t, first.Severity, next.Severity)
	}
}

func TestClassify_HydrologicalFlood(t *testing.T) {
	c := newClassifier(t)

	candidate, ok := c.Classify(makeReading(domain.CategoryHydrological, map[string]float64{
		domain.KeyWaterLevel: 8.4,
		domain.KeyRainfall:   40,
	}))
	require.True(t, ok)
	assert.Equal(t, domain.HazardFlood, candidate.HazardType)
	assert.Equal(t, domain.SeverityHigh, candidate.Severity)
}

func TestClassify_SnapshotDoesNotAliasReading(t *testing.T) {
	c := newClassifier(t)

	reading := makeReading(domain.CategorySeismic, map[string]float64{domain.KeyMagnitude: 6.2})
	candidate, ok := c.Classify(reading)
	require.True(t, ok)

	reading.Measurements[domain.KeyMagnitude] = 1.0
	assert.InEpsilon(t, 6.2, candidate.Measurements[domain.KeyMagnitude], 0.0001)
}

func TestTables_Validate(t *testing.T) {
	bad := classify.Tables{
		domain.CategorySeismic: {
			domain.KeyMagnitude: {
				{Boundary: 5.0, Severity: domain.SeverityLow, HazardType: domain.HazardEarthquake},
				{Boundary: 4.0, Severity: domain.SeverityMedium, HazardType: domain.HazardEarthquake},
			},
		},
	}
	assert.ErrorContains(t, bad.Validate(), "strictly increasing")

	unknown := classify.Tables{
		domain.CategorySeismic: {
			domain.KeyMagnitude: {
				{Boundary: 4.0, Severity: "gigantic", HazardType: domain.HazardEarthquake},
			},
		},
	}
	assert.ErrorContains(t, unknown.Validate(), "unknown severity")

	require.NoError(t, classify.DefaultTables().Validate())
}

func TestLoadTables_YAMLOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thresholds.yaml")
	override := `
seismic:
  magnitude:
    - boundary: 3.0
      severity: low
      hazard: earthquake
    - boundary: 5.5
      severity: high
      hazard: earthquake
`
	require.NoError(t, os.WriteFile(path, []byte(override), 0o644))

	tables, err := classify.LoadTables(path)
	require.NoError(t, err)

	rows := tables[domain.CategorySeismic][domain.KeyMagnitude]
	require.Len(t, rows, 2)
	assert.InEpsilon(t, 3.0, rows[0].Boundary, 0.0001)

	// Untouched categories keep their defaults.
	assert.Len(t, tables[domain.CategoryWeather][domain.KeyWindSpeed], 4)
}

func TestLoadTables_RejectsInvalidOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thresholds.yaml")
	override := `
weather:
  windSpeed:
    - boundary: 100
      severity: critical
      hazard: cyclone
    - boundary: 90
      severity: low
      hazard: storm
`
	require.NoError(t, os.WriteFile(path, []byte(override), 0o644))

	_, err := classify.LoadTables(path)
	assert.Error(t, err)
}
