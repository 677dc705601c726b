package domain

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrUnknownScenario is returned for a scenario tag other than flood_watch or
// storm_surge.
var ErrUnknownScenario = errors.New("unknown scenario")

// Scenario tags a canned demonstration alert.
type Scenario string

const (
	ScenarioFloodWatch Scenario = "flood_watch"
	ScenarioStormSurge Scenario = "storm_surge"
)

// DetectAlerts evaluates the flood watch and storm surge rules independently
// and returns one active alert per rule that fires. The result is empty when
// the reading classifies as advisory or normal.
func DetectAlerts(r Reading, t Thresholds) []Alert {
	var alerts []Alert
	now := clock.Now().UTC()

	if floodWatch(r, t) {
		alerts = append(alerts, Alert{
			CreatedAt: now,
			Level:     LevelWatch,
			Type:      TypeFloodWatch,
			MessageEN: fmt.Sprintf("FLOOD WATCH: Elevated tide (%sm) and rainfall (%smm) detected. Prepare for potential flooding within 6-12 hours.",
				formatValue(r.TideM), formatValue(r.RainMm)),
			MessageHI: fmt.Sprintf("बाढ़ चेतावनी: उच्च ज्वार (%sm) और वर्षा (%smm) देखी गई। 6-12 घंटों में संभावित बाढ़ के लिए तैयार रहें।",
				formatValue(r.TideM), formatValue(r.RainMm)),
			Location:  r.Location(),
			Status:    StatusActive,
			ReadingID: r.ID,
		})
	}

	if stormSurge(r, t) {
		alerts = append(alerts, Alert{
			CreatedAt: now,
			Level:     LevelWarning,
			Type:      TypeStormSurge,
			MessageEN: fmt.Sprintf("STORM SURGE WARNING: Critical tide levels (%sm) with high winds (%skm/h). Immediate action required!",
				formatValue(r.TideM), formatValue(r.WindKmh)),
			MessageHI: fmt.Sprintf("तूफानी लहर चेतावनी: गंभीर ज्वार स्तर (%sm) और तेज हवाओं (%skm/h) के साथ। तत्काल कार्रवाई आवश्यक!",
				formatValue(r.TideM), formatValue(r.WindKmh)),
			Location:  r.Location(),
			Status:    StatusActive,
			ReadingID: r.ID,
		})
	}

	return alerts
}

// SynthesizeScenario returns a canned active alert for the scenario, placed at
// origin. No thresholds are evaluated.
func SynthesizeScenario(s Scenario, origin Geo) (Alert, error) {
	alert := Alert{
		CreatedAt: clock.Now().UTC(),
		Location:  origin,
		Status:    StatusActive,
	}

	switch s {
	case ScenarioFloodWatch:
		alert.Level = LevelWatch
		alert.Type = TypeFloodWatch
		alert.MessageEN = "FLOOD WATCH: Simulated elevated tide and rainfall. Prepare for potential coastal flooding."
		alert.MessageHI = "बाढ़ चेतावनी: सिमुलेटेड उच्च ज्वार और वर्षा। तटीय बाढ़ की तैयारी करें।"
	case ScenarioStormSurge:
		alert.Level = LevelWarning
		alert.Type = TypeStormSurge
		alert.MessageEN = "STORM SURGE WARNING: Simulated critical conditions with high winds and storm surge!"
		alert.MessageHI = "तूफानी लहर चेतावनी: सिमुलेटेड गंभीर स्थिति तेज हवाओं के साथ!"
	default:
		return Alert{}, fmt.Errorf("%w: %q", ErrUnknownScenario, s)
	}

	return alert, nil
}

// formatValue renders a measurement with the shortest exact representation,
// e.g. 2.6 -> "2.6" and 60 -> "60".
func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
