package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hazardwatch/alert-engine/internal/domain"
	"github.com/jonboulle/clockwork"
)

const usgsFeedURL = "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/all_hour.geojson"

// Seismic collects earthquake readings from the USGS all-hour GeoJSON feed.
type Seismic struct {
	httpClient *http.Client
	baseURL    string
	clock      clockwork.Clock
	logger     *slog.Logger
	fallback   *synthetic
}

// NewSeismic creates the seismic adapter with a bounded per-call timeout.
func NewSeismic(timeout time.Duration, clock clockwork.Clock, logger *slog.Logger) *Seismic {
	return &Seismic{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    usgsFeedURL,
		clock:      clock,
		logger:     logger,
		fallback:   newSynthetic(domain.CategorySeismic, seismicLocations, clock, 0x5e15),
	}
}

func (s *Seismic) Category() domain.Category {
	return domain.CategorySeismic
}

// Collect fetches the feed, falling back to synthetic readings when the
// upstream is unreachable or times out. The failure is logged, not
// propagated.
func (s *Seismic) Collect(ctx context.Context) ([]domain.Reading, error) {
	readings, err := s.fetch(ctx)
	if err != nil {
		s.logger.Warn("seismic source unavailable, using synthetic readings", "error", err)
		return s.fallback.readings(), nil
	}
	return readings, nil
}

func (s *Seismic) fetch(ctx context.Context) ([]domain.Reading, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: usgs feed status %d", domain.ErrSourceUnavailable, resp.StatusCode)
	}

	var feed usgsFeed
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("%w: decode feed: %w", domain.ErrSourceUnavailable, err)
	}

	now := s.clock.Now().UTC()
	readings := make([]domain.Reading, 0, len(feed.Features))
	for _, f := range feed.Features {
		if len(f.Geometry.Coordinates) < 3 || f.Properties.Mag == nil {
			continue
		}
		capturedAt := time.UnixMilli(f.Properties.Time).UTC()
		if capturedAt.IsZero() || f.Properties.Time == 0 {
			capturedAt = now
		}
		readings = append(readings, domain.Reading{
			Category: domain.CategorySeismic,
			Location: domain.Location{
				Name: f.Properties.Place,
				Lat:  f.Geometry.Coordinates[1],
				Lon:  f.Geometry.Coordinates[0],
			},
			Measurements: map[string]float64{
				domain.KeyMagnitude: *f.Properties.Mag,
				domain.KeyDepth:     f.Geometry.Coordinates[2],
			},
			CapturedAt: capturedAt,
			Quality:    qualityFromUSGSStatus(f.Properties.Status),
			SourceID:   "usgs",
		})
	}
	return readings, nil
}

func qualityFromUSGSStatus(status string) domain.Quality {
	switch status {
	case "reviewed":
		return domain.QualityGood
	case "automatic":
		return domain.QualityModerate
	}
	return domain.QualityUnknown
}

// USGS GeoJSON feed types.

type usgsFeed struct {
	Features []usgsFeature `json:"features"`
}

type usgsFeature struct {
	Properties usgsProperties `json:"properties"`
	Geometry   usgsGeometry   `json:"geometry"`
}

type usgsProperties struct {
	Mag    *float64 `json:"mag"` // null for some events
	Place  string   `json:"place"`
	Time   int64    `json:"time"` // epoch millis
	Status string   `json:"status"`
}

type usgsGeometry struct {
	Coordinates []float64 `json:"coordinates"` // [lon, lat, depth_km]
}
