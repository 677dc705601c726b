package domain

import (
	"context"
	"time"
)

// Geo is a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Reading is one timestamped environmental measurement at a location.
type Reading struct {
	ID        string    `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	TideM     float64   `json:"tide_m"`
	WindKmh   float64   `json:"wind_kmh"`
	TempC     float64   `json:"temp_c"`
	RainMm    float64   `json:"rain_mm"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// Location returns the reading's coordinate.
func (r Reading) Location() Geo {
	return Geo{Lat: r.Lat, Lng: r.Lng}
}

// Thresholds holds the numeric cutoffs used to classify readings.
type Thresholds struct {
	TideWatch   float64 `json:"tide_watch"`
	TideWarning float64 `json:"tide_warning"`
	WindWarning float64 `json:"wind_warning"`
	RainWatch   float64 `json:"rain_watch"`
}

// DefaultThresholds returns the cutoffs used when the environment sets none.
func DefaultThresholds() Thresholds {
	return Thresholds{
		TideWatch:   2.5,
		TideWarning: 3.2,
		WindWarning: 60,
		RainWatch:   50,
	}
}

// advisoryFactor scales the hard wind and rain thresholds down to the soft
// limits that raise an advisory.
const advisoryFactor = 0.7

// AlertLevel is the severity carried by an alert.
type AlertLevel string

const (
	LevelAdvisory AlertLevel = "advisory"
	LevelWatch    AlertLevel = "watch"
	LevelWarning  AlertLevel = "warning"
)

// AlertType names the rule that produced an alert.
type AlertType string

const (
	TypeFloodWatch AlertType = "flood_watch"
	TypeStormSurge AlertType = "storm_surge"
	TypeNormal     AlertType = "normal"
)

// AlertStatus is the lifecycle state of an alert. Alerts only move from
// active to cleared.
type AlertStatus string

const (
	StatusActive  AlertStatus = "active"
	StatusCleared AlertStatus = "cleared"
)

// ParseAlertStatus validates a status string.
func ParseAlertStatus(s string) (AlertStatus, bool) {
	switch AlertStatus(s) {
	case StatusActive, StatusCleared:
		return AlertStatus(s), true
	default:
		return "", false
	}
}

// Alert is a user-facing notification record tied to a rule breach.
type Alert struct {
	ID        string      `json:"id,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at,omitzero"`
	Level     AlertLevel  `json:"level"`
	Type      AlertType   `json:"type"`
	MessageEN string      `json:"message_en"`
	MessageHI string      `json:"message_hi"`
	Location  Geo         `json:"location"`
	Status    AlertStatus `json:"status"`
	ReadingID string      `json:"reading_id,omitempty"`
}

// RawEvent represents an unprocessed message from the readings topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}
