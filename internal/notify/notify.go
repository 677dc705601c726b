// Package notify delivers alerts over SMS and push. Each channel runs either
// against a real provider (Twilio, Firebase Cloud Messaging) or in mock mode,
// where it only logs what would have been sent.
package notify

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/coastal-alert-service/internal/config"
	"github.com/couchcryptid/coastal-alert-service/internal/domain"
	"github.com/couchcryptid/coastal-alert-service/internal/observability"
)

// Channel sends one alert through one delivery medium.
type Channel interface {
	Name() string
	Send(ctx context.Context, a domain.Alert) error
}

// Delivery outcomes reported per channel.
const (
	OutcomeSuccess = "SUCCESS"
	OutcomeFailed  = "FAILED"
)

// DeliveryReport is the per-channel outcome of one dispatch.
type DeliveryReport struct {
	SMS  string `json:"sms"`
	Push string `json:"push"`
}

// ServiceStatus describes which providers are live.
type ServiceStatus struct {
	SMS  string `json:"sms"`
	Push string `json:"push"`
	Mode string `json:"mode"`
}

// Dispatcher fans an alert out to the SMS and push channels.
type Dispatcher struct {
	sms     Channel
	push    Channel
	status  ServiceStatus
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewDispatcher wires the channels selected by cfg. Channels whose provider is
// disabled fall back to mock mode.
func NewDispatcher(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Dispatcher {
	var sms, push Channel
	if cfg.UseTwilio {
		sms = NewTwilioSMS(newBreakerClient("twilio", cfg.NotifyTimeout), cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, cfg.AlertToNumbers)
	} else {
		sms = NewMockSMS(logger, cfg.AlertToNumbers)
	}
	if cfg.UseFirebase {
		push = NewFCMPush(newBreakerClient("fcm", cfg.NotifyTimeout), cfg.FCMServerKey, cfg.FCMTopic, cfg.RegionName)
	} else {
		push = NewMockPush(logger, cfg.FCMTopic, cfg.RegionName)
	}

	return newDispatcher(sms, push, statusFor(cfg.UseTwilio, cfg.UseFirebase), logger, metrics)
}

func newDispatcher(sms, push Channel, status ServiceStatus, logger *slog.Logger, metrics *observability.Metrics) *Dispatcher {
	return &Dispatcher{sms: sms, push: push, status: status, logger: logger, metrics: metrics}
}

func statusFor(twilio, firebase bool) ServiceStatus {
	s := ServiceStatus{SMS: "MOCK_MODE", Push: "MOCK_MODE", Mode: "DEVELOPMENT"}
	if twilio {
		s.SMS = "TWILIO_ENABLED"
	}
	if firebase {
		s.Push = "FIREBASE_ENABLED"
	}
	if twilio || firebase {
		s.Mode = "PRODUCTION"
	}
	return s
}

// Dispatch sends a on both channels concurrently and reports each outcome.
// A failing channel never prevents the other from sending.
func (d *Dispatcher) Dispatch(ctx context.Context, a domain.Alert) DeliveryReport {
	d.logger.Info("dispatching alert",
		"alert_id", a.ID,
		"level", a.Level,
		"type", a.Type,
	)

	var report DeliveryReport
	var g errgroup.Group
	g.Go(func() error {
		report.SMS = d.send(ctx, d.sms, a)
		return nil
	})
	g.Go(func() error {
		report.Push = d.send(ctx, d.push, a)
		return nil
	})
	_ = g.Wait()

	d.logger.Info("alert delivery report",
		"alert_id", a.ID,
		"sms", report.SMS,
		"push", report.Push,
	)
	return report
}

func (d *Dispatcher) send(ctx context.Context, ch Channel, a domain.Alert) string {
	if err := ch.Send(ctx, a); err != nil {
		d.logger.Error("notification failed", "channel", ch.Name(), "alert_id", a.ID, "error", err)
		d.metrics.Deliveries.WithLabelValues(ch.Name(), "failure").Inc()
		return OutcomeFailed
	}
	d.metrics.Deliveries.WithLabelValues(ch.Name(), "success").Inc()
	return OutcomeSuccess
}

// Status reports the provider mode of each channel.
func (d *Dispatcher) Status() ServiceStatus {
	return d.status
}
