package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/coastal-alert-service/internal/domain"
	"github.com/couchcryptid/coastal-alert-service/internal/notify"
	"github.com/couchcryptid/coastal-alert-service/internal/observability"
	"github.com/couchcryptid/coastal-alert-service/internal/store"
)

// BatchExtractor reads up to batchSize raw events from the readings topic.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// AlertPublisher writes alerts to the alert feed.
type AlertPublisher interface {
	Publish(ctx context.Context, a domain.Alert) error
}

// AlertDispatcher delivers an alert to the notification channels.
type AlertDispatcher interface {
	Dispatch(ctx context.Context, a domain.Alert) notify.DeliveryReport
}

// Options carries the settings the pipeline needs from configuration.
type Options struct {
	Thresholds domain.Thresholds
	Origin     domain.Geo
	BatchSize  int
}

// Result is the outcome of one ingest call.
type Result struct {
	Readings []domain.Reading
	Alerts   []domain.Alert
}

// Pipeline takes readings through persistence, classification and alert
// delivery.
type Pipeline struct {
	store      store.Store
	publisher  AlertPublisher
	dispatcher AlertDispatcher
	opts       Options
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// New creates a Pipeline over the given collaborators.
func New(s store.Store, pub AlertPublisher, d AlertDispatcher, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		store:      s,
		publisher:  pub,
		dispatcher: d,
		opts:       opts,
		logger:     logger,
		metrics:    metrics,
	}
}

// Thresholds returns the classification cutoffs in effect.
func (p *Pipeline) Thresholds() domain.Thresholds {
	return p.opts.Thresholds
}

// CheckReadiness reports whether the store is reachable.
func (p *Pipeline) CheckReadiness(ctx context.Context) error {
	if err := p.store.Ping(ctx); err != nil {
		return fmt.Errorf("store unavailable: %w", err)
	}
	return nil
}

// Decode parses a body of readings, counting rejections.
func (p *Pipeline) Decode(body []byte) ([]domain.Reading, error) {
	readings, err := DecodeReadings(body)
	if err != nil {
		p.metrics.ReadingsRejected.Inc()
		return nil, err
	}
	return readings, nil
}

// Ingest processes readings one at a time. For each reading it stores the
// reading, evaluates the alert rules, then stores, publishes and dispatches
// every alert before moving on. A reading that cannot be stored stops the
// batch; alert storage and publishing failures are logged and skipped.
func (p *Pipeline) Ingest(ctx context.Context, readings []domain.Reading) (Result, error) {
	start := time.Now()
	res := Result{
		Readings: make([]domain.Reading, 0, len(readings)),
		Alerts:   make([]domain.Alert, 0),
	}

	for i := range readings {
		r := readings[i]
		if err := p.store.SaveReading(ctx, &r); err != nil {
			return res, fmt.Errorf("save reading %d: %w", i, err)
		}
		p.metrics.ReadingsIngested.Inc()
		res.Readings = append(res.Readings, r)

		for _, a := range domain.DetectAlerts(r, p.opts.Thresholds) {
			res.Alerts = append(res.Alerts, p.raise(ctx, a, "reading"))
		}
	}

	p.metrics.BatchSize.Observe(float64(len(readings)))
	p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	p.logger.Info("readings ingested", "readings", len(res.Readings), "alerts", len(res.Alerts))
	return res, nil
}

// TriggerScenario raises a synthetic alert for a named scenario at the
// configured default coordinate.
func (p *Pipeline) TriggerScenario(ctx context.Context, scenario domain.Scenario) (domain.Alert, error) {
	a, err := domain.SynthesizeScenario(scenario, p.opts.Origin)
	if err != nil {
		return domain.Alert{}, err
	}
	return p.raise(ctx, a, "scenario"), nil
}

// raise persists, publishes and dispatches one alert.
func (p *Pipeline) raise(ctx context.Context, a domain.Alert, source string) domain.Alert {
	p.metrics.AlertsGenerated.WithLabelValues(string(a.Type), source).Inc()

	if err := p.store.SaveAlert(ctx, &a); err != nil {
		p.metrics.AlertPersistErrors.Inc()
		p.logger.Error("save alert failed", "type", a.Type, "level", a.Level, "error", err)
	}

	if err := p.publisher.Publish(ctx, a); err != nil {
		p.metrics.AlertPublishErrors.Inc()
		p.logger.Warn("publish alert failed", "alert_id", a.ID, "error", err)
	}

	p.dispatcher.Dispatch(ctx, a)
	return a
}

// ClearAlert marks one alert as cleared.
func (p *Pipeline) ClearAlert(ctx context.Context, id string) error {
	if err := p.store.ClearAlert(ctx, id); err != nil {
		return err
	}
	p.metrics.AlertsCleared.Inc()
	p.logger.Info("alert cleared", "alert_id", id)
	return nil
}

// ClearActive marks every active alert as cleared and returns how many were.
func (p *Pipeline) ClearActive(ctx context.Context) (int, error) {
	n, err := p.store.ClearActiveAlerts(ctx)
	if err != nil {
		return 0, err
	}
	p.metrics.AlertsCleared.Add(float64(n))
	p.logger.Info("active alerts cleared", "count", n)
	return n, nil
}

// Run consumes readings from source until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context, source BatchExtractor) error {
	p.logger.Info("kafka ingest started", "batch_size", p.opts.BatchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	backoff := minBackoff

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("kafka ingest stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx, source, &backoff) {
			return nil
		}
	}
}

const (
	minBackoff = 200 * time.Millisecond
	maxBackoff = 5 * time.Second
)

// processBatch runs one extract-decode-ingest cycle. Returns false if the loop
// should stop.
func (p *Pipeline) processBatch(ctx context.Context, source BatchExtractor, backoff *time.Duration) bool {
	rawBatch, err := source.ExtractBatch(ctx, p.opts.BatchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff)
	}

	if len(rawBatch) == 0 {
		return ctx.Err() == nil
	}
	*backoff = minBackoff

	readings := make([]domain.Reading, 0, len(rawBatch))
	decoded := make([]domain.RawEvent, 0, len(rawBatch))
	for _, raw := range rawBatch {
		rs, err := p.Decode(raw.Value)
		if err != nil {
			p.logger.Warn("decode failed, skipping message",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.commitOffset(ctx, raw)
			continue
		}
		readings = append(readings, rs...)
		decoded = append(decoded, raw)
	}

	if len(readings) == 0 {
		return true
	}

	if _, err := p.Ingest(ctx, readings); err != nil {
		p.logger.Error("ingest batch failed", "error", err, "batch_size", len(readings))
		return p.backoffOrStop(ctx, backoff)
	}

	for _, raw := range decoded {
		p.commitOffset(ctx, raw)
	}
	return true
}

// backoffOrStop sleeps with the current backoff and advances it. Returns false
// if the context ended first.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff)
	return true
}

func (p *Pipeline) commitOffset(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

func nextBackoff(current time.Duration) time.Duration {
	return min(current*2, maxBackoff)
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// IsValidation reports whether err came from rejecting malformed input.
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
