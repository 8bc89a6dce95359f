package domain_test

import (
	"testing"
	"time"

	"github.com/hazardwatch/alert-engine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReading_Validate(t *testing.T) {
	valid := domain.Reading{
		Category:     domain.CategorySeismic,
		Location:     domain.Location{Name: "Nepal-India Border", Lat: 27.7, Lon: 85.3},
		Measurements: map[string]float64{domain.KeyMagnitude: 6.2},
		CapturedAt:   time.Now(),
		Quality:      domain.QualityGood,
		SourceID:     "usgs",
	}
	require.NoError(t, valid.Validate())

	noCategory := valid
	noCategory.Category = ""
	assert.ErrorIs(t, noCategory.Validate(), domain.ErrInvalidReading)

	noLocation := valid
	noLocation.Location.Name = ""
	assert.ErrorIs(t, noLocation.Validate(), domain.ErrInvalidReading)

	badCoords := valid
	badCoords.Location.Lat = 123.4
	assert.ErrorIs(t, badCoords.Validate(), domain.ErrInvalidReading)

	empty := valid
	empty.Measurements = nil
	assert.ErrorIs(t, empty.Validate(), domain.ErrInvalidReading)
}

func TestStatus_Transitions(t *testing.T) {
	assert.True(t, domain.StatusActive.CanTransitionTo(domain.StatusMonitoring))
	assert.True(t, domain.StatusActive.CanTransitionTo(domain.StatusResolved))
	assert.True(t, domain.StatusActive.CanTransitionTo(domain.StatusExpired))
	assert.True(t, domain.StatusMonitoring.CanTransitionTo(domain.StatusResolved))
	assert.True(t, domain.StatusMonitoring.CanTransitionTo(domain.StatusExpired))

	// No reactivation, no sideways moves between terminal states.
	assert.False(t, domain.StatusMonitoring.CanTransitionTo(domain.StatusActive))
	assert.False(t, domain.StatusResolved.CanTransitionTo(domain.StatusActive))
	assert.False(t, domain.StatusResolved.CanTransitionTo(domain.StatusExpired))
	assert.False(t, domain.StatusExpired.CanTransitionTo(domain.StatusMonitoring))
	assert.False(t, domain.StatusActive.CanTransitionTo(domain.StatusActive))
}

func TestSeverity_Rank(t *testing.T) {
	assert.Greater(t, domain.SeverityCritical.Rank(), domain.SeverityHigh.Rank())
	assert.Greater(t, domain.SeverityHigh.Rank(), domain.SeverityMedium.Rank())
	assert.Greater(t, domain.SeverityMedium.Rank(), domain.SeverityLow.Rank())
	assert.Equal(t, 0, domain.Severity("bogus").Rank())
}

func TestGeoCell_RoundTrip(t *testing.T) {
	loc := domain.Location{Name: "Kathmandu", Lat: 27.7, Lon: 85.3}
	cell := domain.CellOf(loc)
	assert.Equal(t, "27,85", cell.String())
	assert.True(t, cell.Contains(loc))

	parsed, err := domain.ParseGeoCell("27,85")
	require.NoError(t, err)
	assert.Equal(t, cell, parsed)

	// Negative coordinates floor toward the south-west corner.
	south := domain.CellOf(domain.Location{Lat: -0.2, Lon: -75.9})
	assert.Equal(t, domain.GeoCell{LatIdx: -1, LonIdx: -76}, south)

	_, err = domain.ParseGeoCell("not-a-cell")
	assert.Error(t, err)
	_, err = domain.ParseGeoCell("91,12")
	assert.Error(t, err)
}

func TestBoundingBox_ContainsEdges(t *testing.T) {
	center := domain.Location{Lat: 20.0, Lon: 90.0}
	box := domain.BoundingBox(center, 0.5)

	assert.True(t, box.Contains(domain.Location{Lat: 20.5, Lon: 90.5}))
	assert.True(t, box.Contains(domain.Location{Lat: 19.5, Lon: 89.5}))
	assert.False(t, box.Contains(domain.Location{Lat: 20.51, Lon: 90.0}))
	assert.False(t, box.Contains(domain.Location{Lat: 20.0, Lon: 89.49}))
}
