package domain

// Level is a discrete, ordered risk classification.
type Level string

const (
	RiskNormal   Level = "normal"
	RiskAdvisory Level = "advisory"
	RiskWatch    Level = "watch"
	RiskWarning  Level = "warning"
)

// RiskLevel is a classified level with its display colour and priority.
// Priority increases with severity, from 0 (normal) to 3 (warning).
type RiskLevel struct {
	Level    Level  `json:"level"`
	Color    string `json:"color"`
	Priority int    `json:"priority"`
}

var riskLevels = map[Level]RiskLevel{
	RiskNormal:   {Level: RiskNormal, Color: "#10B981", Priority: 0},
	RiskAdvisory: {Level: RiskAdvisory, Color: "#F59E0B", Priority: 1},
	RiskWatch:    {Level: RiskWatch, Color: "#EF4444", Priority: 2},
	RiskWarning:  {Level: RiskWarning, Color: "#DC2626", Priority: 3},
}

// RiskLevelOf returns the display attributes for a level. Unknown levels
// resolve to normal.
func RiskLevelOf(l Level) RiskLevel {
	if rl, ok := riskLevels[l]; ok {
		return rl
	}
	return riskLevels[RiskNormal]
}

// RiskLevels returns every level ordered by ascending priority.
func RiskLevels() []RiskLevel {
	return []RiskLevel{
		riskLevels[RiskNormal],
		riskLevels[RiskAdvisory],
		riskLevels[RiskWatch],
		riskLevels[RiskWarning],
	}
}

// Classify returns the most severe risk level that applies to the reading.
// Rules are checked from most to least severe and the first match wins, so a
// reading meeting both the warning and watch conditions is a warning.
func Classify(r Reading, t Thresholds) RiskLevel {
	switch {
	case stormSurge(r, t):
		return riskLevels[RiskWarning]
	case floodWatch(r, t):
		return riskLevels[RiskWatch]
	case r.TideM >= t.TideWatch ||
		r.WindKmh >= t.WindWarning*advisoryFactor ||
		r.RainMm >= t.RainWatch*advisoryFactor:
		return riskLevels[RiskAdvisory]
	default:
		return riskLevels[RiskNormal]
	}
}

func stormSurge(r Reading, t Thresholds) bool {
	return r.TideM >= t.TideWarning && r.WindKmh >= t.WindWarning
}

func floodWatch(r Reading, t Thresholds) bool {
	return r.TideM >= t.TideWatch && r.RainMm >= t.RainWatch
}
