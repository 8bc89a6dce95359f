package source

import (
	"math/rand"
	"time"

	"github.com/hazardwatch/alert-engine/internal/domain"
	"github.com/jonboulle/clockwork"
)

// synthetic generates plausible readings for a category's monitored
// locations when the real upstream is unreachable. Output is deterministic
// for a given (seed, minute): the PRNG is reseeded from the wall-clock
// minute, so retries within the same minute reproduce identical readings and
// tests with a frozen clock get stable fixtures.
type synthetic struct {
	category  domain.Category
	locations []domain.Location
	clock     clockwork.Clock
	seed      int64
}

func newSynthetic(category domain.Category, locations []domain.Location, clock clockwork.Clock, seed int64) *synthetic {
	return &synthetic{category: category, locations: locations, clock: clock, seed: seed}
}

func (s *synthetic) readings() []domain.Reading {
	now := s.clock.Now().UTC()
	rng := rand.New(rand.NewSource(s.seed ^ now.Truncate(time.Minute).Unix()))

	out := make([]domain.Reading, 0, len(s.locations))
	for _, loc := range s.locations {
		out = append(out, domain.Reading{
			Category:     s.category,
			Location:     loc,
			Measurements: s.measurements(rng),
			CapturedAt:   now,
			Quality:      domain.QualityModerate,
			SourceID:     string(s.category) + "-synthetic",
		})
	}
	return out
}

// measurements draws values from ranges wide enough to occasionally cross
// alert thresholds; a fallback source that never alerts would hide real
// outages behind permanent quiet.
func (s *synthetic) measurements(rng *rand.Rand) map[string]float64 {
	switch s.category {
	case domain.CategorySeismic:
		return map[string]float64{
			domain.KeyMagnitude: round1(2.5 + rng.Float64()*4.5),
			domain.KeyDepth:     round1(5 + rng.Float64()*60),
		}
	case domain.CategoryWeather:
		return map[string]float64{
			domain.KeyTemperature:   round1(18 + rng.Float64()*28),
			domain.KeyHumidity:      round1(40 + rng.Float64()*60),
			domain.KeyPressure:      round1(960 + rng.Float64()*70),
			domain.KeyWindSpeed:     round1(rng.Float64() * 170),
			domain.KeyWindDirection: round1(rng.Float64() * 360),
			domain.KeyRainfall:      round1(rng.Float64() * 220),
			domain.KeyVisibility:    round1(2 + rng.Float64()*18),
		}
	case domain.CategoryHydrological:
		return map[string]float64{
			domain.KeyWaterLevel: round1(3 + rng.Float64()*9),
			domain.KeyRainfall:   round1(rng.Float64() * 250),
		}
	}
	return nil
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
