package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hazardwatch/alert-engine/internal/domain"
	"github.com/jonboulle/clockwork"
)

const openMeteoBaseURL = "https://api.open-meteo.com/v1/forecast"

// Weather collects current conditions from Open-Meteo for each monitored
// location. Wind speed is requested in km/h so no local unit conversion is
// needed; visibility arrives in metres and is normalized to kilometres.
type Weather struct {
	httpClient *http.Client
	baseURL    string
	locations  []domain.Location
	clock      clockwork.Clock
	logger     *slog.Logger
	fallback   *synthetic
}

// NewWeather creates the weather adapter with a bounded per-call timeout.
func NewWeather(timeout time.Duration, clock clockwork.Clock, logger *slog.Logger) *Weather {
	return &Weather{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    openMeteoBaseURL,
		locations:  weatherLocations,
		clock:      clock,
		logger:     logger,
		fallback:   newSynthetic(domain.CategoryWeather, weatherLocations, clock, 0x7ea7),
	}
}

func (w *Weather) Category() domain.Category {
	return domain.CategoryWeather
}

// Collect polls every monitored location, keeping partial results. Only when
// no location could be reached does it fall back to synthetic readings.
func (w *Weather) Collect(ctx context.Context) ([]domain.Reading, error) {
	readings := make([]domain.Reading, 0, len(w.locations))
	var lastErr error
	for _, loc := range w.locations {
		reading, err := w.fetchLocation(ctx, loc)
		if err != nil {
			lastErr = err
			w.logger.Warn("weather fetch failed for location", "location", loc.Name, "error", err)
			continue
		}
		readings = append(readings, reading)
	}
	if len(readings) == 0 {
		w.logger.Warn("weather source unavailable, using synthetic readings", "error", lastErr)
		return w.fallback.readings(), nil
	}
	return readings, nil
}

func (w *Weather) fetchLocation(ctx context.Context, loc domain.Location) (domain.Reading, error) {
	params := url.Values{
		"latitude":        {formatCoord(loc.Lat)},
		"longitude":       {formatCoord(loc.Lon)},
		"current":         {"temperature_2m,relative_humidity_2m,surface_pressure,wind_speed_10m,wind_direction_10m,precipitation,visibility"},
		"wind_speed_unit": {"kmh"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return domain.Reading{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return domain.Reading{}, fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Reading{}, fmt.Errorf("%w: open-meteo status %d", domain.ErrSourceUnavailable, resp.StatusCode)
	}

	var payload openMeteoResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.Reading{}, fmt.Errorf("%w: decode response: %w", domain.ErrSourceUnavailable, err)
	}

	c := payload.Current
	return domain.Reading{
		Category: domain.CategoryWeather,
		Location: loc,
		Measurements: map[string]float64{
			domain.KeyTemperature:   c.Temperature,
			domain.KeyHumidity:      c.Humidity,
			domain.KeyPressure:      c.Pressure,
			domain.KeyWindSpeed:     c.WindSpeed,
			domain.KeyWindDirection: c.WindDirection,
			domain.KeyRainfall:      c.Precipitation,
			domain.KeyVisibility:    c.Visibility / 1000.0, // metres to km
		},
		CapturedAt: w.clock.Now().UTC(),
		Quality:    domain.QualityGood,
		SourceID:   "open-meteo",
	}, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// Open-Meteo response types (current-conditions subset).

type openMeteoResponse struct {
	Current openMeteoCurrent `json:"current"`
}

type openMeteoCurrent struct {
	Temperature   float64 `json:"temperature_2m"`
	Humidity      float64 `json:"relative_humidity_2m"`
	Pressure      float64 `json:"surface_pressure"`
	WindSpeed     float64 `json:"wind_speed_10m"`
	WindDirection float64 `json:"wind_direction_10m"`
	Precipitation float64 `json:"precipitation"`
	Visibility    float64 `json:"visibility"` // metres
}
