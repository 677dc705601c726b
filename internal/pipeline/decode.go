package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/couchcryptid/coastal-alert-service/internal/domain"
)

// ValidationError reports a reading that cannot be accepted. Field is the JSON
// name of the offending field, empty when the body itself is malformed.
type ValidationError struct {
	Index  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("reading %d: %s %s", e.Index, e.Field, e.Reason)
}

// readingPayload mirrors domain.Reading with pointer fields so that an absent
// field is distinguishable from a zero measurement.
type readingPayload struct {
	Timestamp *string  `json:"timestamp" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	Lat       *float64 `json:"lat" validate:"required,latitude"`
	Lng       *float64 `json:"lng" validate:"required,longitude"`
	TideM     *float64 `json:"tide_m" validate:"required"`
	WindKmh   *float64 `json:"wind_kmh" validate:"required"`
	TempC     *float64 `json:"temp_c" validate:"required"`
	RainMm    *float64 `json:"rain_mm" validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	return v
}

// DecodeReadings parses a request or message body holding either one reading
// object or an array of them. Every measurement field must be present.
func DecodeReadings(body []byte) ([]domain.Reading, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, &ValidationError{Reason: "empty body"}
	}

	var payloads []readingPayload
	if body[0] == '[' {
		if err := json.Unmarshal(body, &payloads); err != nil {
			return nil, &ValidationError{Reason: "invalid JSON: " + err.Error()}
		}
		if len(payloads) == 0 {
			return nil, &ValidationError{Reason: "no readings in body"}
		}
	} else {
		var p readingPayload
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, &ValidationError{Reason: "invalid JSON: " + err.Error()}
		}
		payloads = []readingPayload{p}
	}

	readings := make([]domain.Reading, 0, len(payloads))
	for i := range payloads {
		r, err := payloads[i].toReading(i)
		if err != nil {
			return nil, err
		}
		readings = append(readings, r)
	}
	return readings, nil
}

func (p *readingPayload) toReading(index int) (domain.Reading, error) {
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return domain.Reading{}, &ValidationError{
				Index:  index,
				Field:  verrs[0].Field(),
				Reason: reasonFor(verrs[0].Tag()),
			}
		}
		return domain.Reading{}, &ValidationError{Index: index, Reason: err.Error()}
	}

	ts, err := time.Parse(time.RFC3339, *p.Timestamp)
	if err != nil {
		return domain.Reading{}, &ValidationError{Index: index, Field: "timestamp", Reason: reasonFor("datetime")}
	}

	return domain.Reading{
		Timestamp: ts.UTC(),
		Lat:       *p.Lat,
		Lng:       *p.Lng,
		TideM:     *p.TideM,
		WindKmh:   *p.WindKmh,
		TempC:     *p.TempC,
		RainMm:    *p.RainMm,
	}, nil
}

func reasonFor(tag string) string {
	switch tag {
	case "required":
		return "is required"
	case "datetime":
		return "must be an RFC 3339 timestamp"
	case "latitude":
		return "must be within [-90, 90]"
	case "longitude":
		return "must be within [-180, 180]"
	default:
		return "is invalid"
	}
}
