package domain

import (
	"fmt"
	"time"
)

// Category identifies the monitoring-source family a reading came from.
type Category string

const (
	CategorySeismic      Category = "seismic"
	CategoryWeather      Category = "weather"
	CategoryHydrological Category = "hydrological"
)

// Categories lists every source category in scheduling order.
var Categories = []Category{CategorySeismic, CategoryWeather, CategoryHydrological}

// ParseCategory validates a category string. The "all" wildcard used by the
// manual-trigger endpoint is resolved by the caller, not here.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategorySeismic, CategoryWeather, CategoryHydrological:
		return Category(s), nil
	}
	return "", fmt.Errorf("%w: unknown category %q", ErrInvalidReading, s)
}

// Quality grades how trustworthy a reading's source considered it.
type Quality string

const (
	QualityGood     Quality = "good"
	QualityModerate Quality = "moderate"
	QualityPoor     Quality = "poor"
	QualityUnknown  Quality = "unknown"
)

// Measurement keys. Each adapter populates only the keys relevant to its
// category; a missing key means "not measured", never zero.
const (
	KeyMagnitude     = "magnitude"
	KeyDepth         = "depth"
	KeyTemperature   = "temperature"
	KeyHumidity      = "humidity"
	KeyPressure      = "pressure"
	KeyWindSpeed     = "windSpeed"
	KeyWindDirection = "windDirection"
	KeyRainfall      = "rainfall"
	KeyVisibility    = "visibility"
	KeyWaterLevel    = "waterLevel"
)

// Location is a named WGS-84 coordinate.
type Location struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Reading is a single normalized observation from one source category at one
// point in time. Immutable once produced by an adapter.
type Reading struct {
	Category     Category           `json:"category"`
	Location     Location           `json:"location"`
	Measurements map[string]float64 `json:"measurements"`
	CapturedAt   time.Time          `json:"captured_at"`
	Quality      Quality            `json:"quality"`
	SourceID     string             `json:"source_id"`
}

// Validate rejects readings the pipeline cannot classify. A failing reading
// is dropped and logged; it never aborts the batch it arrived in.
func (r Reading) Validate() error {
	if _, err := ParseCategory(string(r.Category)); err != nil {
		return err
	}
	if r.Location.Name == "" {
		return fmt.Errorf("%w: missing location name", ErrInvalidReading)
	}
	if r.Location.Lat < -90 || r.Location.Lat > 90 || r.Location.Lon < -180 || r.Location.Lon > 180 {
		return fmt.Errorf("%w: coordinates out of range (%.4f, %.4f)", ErrInvalidReading, r.Location.Lat, r.Location.Lon)
	}
	if len(r.Measurements) == 0 {
		return fmt.Errorf("%w: no measurements", ErrInvalidReading)
	}
	return nil
}

// Measurement returns the value for key and whether it was measured at all.
func (r Reading) Measurement(key string) (float64, bool) {
	v, ok := r.Measurements[key]
	return v, ok
}
