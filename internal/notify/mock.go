package notify

import (
	"context"
	"log/slog"
	"strings"

	"github.com/couchcryptid/coastal-alert-service/internal/domain"
)

// MockSMS logs the SMS that would have gone to each recipient.
type MockSMS struct {
	logger     *slog.Logger
	recipients []string
}

func NewMockSMS(logger *slog.Logger, recipients []string) *MockSMS {
	return &MockSMS{logger: logger, recipients: recipients}
}

func (m *MockSMS) Name() string { return "sms" }

func (m *MockSMS) Send(_ context.Context, a domain.Alert) error {
	m.logger.Info("mock sms alert",
		"recipients", m.recipients,
		"message_en", a.MessageEN,
		"message_hi", a.MessageHI,
		"level", strings.ToUpper(string(a.Level)),
		"type", a.Type,
		"created_at", a.CreatedAt,
	)
	return nil
}

// MockPush logs the push notification that would have gone to the topic.
type MockPush struct {
	logger *slog.Logger
	topic  string
	region string
}

func NewMockPush(logger *slog.Logger, topic, region string) *MockPush {
	return &MockPush{logger: logger, topic: topic, region: region}
}

func (m *MockPush) Name() string { return "push" }

func (m *MockPush) Send(_ context.Context, a domain.Alert) error {
	m.logger.Info("mock push notification",
		"title", pushTitle(m.region, a),
		"body_en", a.MessageEN,
		"body_hi", a.MessageHI,
		"level", a.Level,
		"type", a.Type,
		"lat", a.Location.Lat,
		"lng", a.Location.Lng,
		"created_at", a.CreatedAt,
		"topic", m.topic,
	)
	return nil
}

func pushTitle(region string, a domain.Alert) string {
	return region + " Alert: " + strings.ToUpper(string(a.Level))
}
