package domain

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// SimScenario selects the value ranges used by GenerateReadings.
type SimScenario string

const (
	SimNormal     SimScenario = "normal"
	SimFloodWatch SimScenario = "flood_watch"
	SimStormSurge SimScenario = "storm_surge"
)

// ParseSimScenario validates a simulator scenario tag. An empty tag means normal.
func ParseSimScenario(s string) (SimScenario, error) {
	switch SimScenario(s) {
	case "":
		return SimNormal, nil
	case SimNormal, SimFloodWatch, SimStormSurge:
		return SimScenario(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownScenario, s)
	}
}

// coordVariance is the full width, in degrees, of the box readings are
// scattered in around the origin (about 11 km).
const coordVariance = 0.1

// band is a half-open value range [min, min+span).
type band struct{ min, span float64 }

func (b band) draw(rng *rand.Rand) float64 { return b.min + rng.Float64()*b.span }

type profile struct {
	tide, wind, temp, rain band
}

var profiles = map[SimScenario]profile{
	SimNormal: {
		tide: band{1.2, 1.0},
		wind: band{15, 25},
		temp: band{26, 6},
		rain: band{0, 20},
	},
	// Tide 2.5-3.3 m and rain 50-90 mm always satisfy the default flood watch rule.
	SimFloodWatch: {
		tide: band{2.5, 0.8},
		wind: band{20, 30},
		temp: band{27, 4},
		rain: band{50, 40},
	},
	// Tide 3.2-4.0 m and wind 60-100 km/h always satisfy the default storm surge rule.
	SimStormSurge: {
		tide: band{3.2, 0.8},
		wind: band{60, 40},
		temp: band{24, 5},
		rain: band{30, 60},
	},
}

// GenerateReadings produces count synthetic readings scattered around origin,
// spaced interval apart and ending at the current clock time. Readings are
// returned oldest first.
func GenerateReadings(s SimScenario, count int, interval time.Duration, origin Geo, rng *rand.Rand) []Reading {
	if count <= 0 {
		return nil
	}
	p, ok := profiles[s]
	if !ok {
		p = profiles[SimNormal]
	}

	base := clock.Now().UTC()
	readings := make([]Reading, count)
	for i := range count {
		// Fill from the back so index 0 is the oldest.
		readings[count-1-i] = Reading{
			Timestamp: base.Add(-time.Duration(i) * interval),
			Lat:       origin.Lat + (rng.Float64()-0.5)*coordVariance,
			Lng:       origin.Lng + (rng.Float64()-0.5)*coordVariance,
			TideM:     p.tide.draw(rng),
			WindKmh:   p.wind.draw(rng),
			TempC:     p.temp.draw(rng),
			RainMm:    p.rain.draw(rng),
		}
	}
	return readings
}
