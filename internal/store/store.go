// Package store persists readings and alerts. Three backends share one
// contract: an in-memory store for development and tests, PostgreSQL through
// pgx, and SQLite through the pure-Go modernc driver.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/coastal-alert-service/internal/domain"
)

// ErrNotFound is returned when an alert ID does not exist.
var ErrNotFound = errors.New("not found")

// Store is the persistence contract used by the pipeline and the HTTP API.
// List methods return newest first.
type Store interface {
	SaveReading(ctx context.Context, r *domain.Reading) error
	ListReadings(ctx context.Context, limit int) ([]domain.Reading, error)
	// LatestReading returns nil without error when no reading exists.
	LatestReading(ctx context.Context) (*domain.Reading, error)

	SaveAlert(ctx context.Context, a *domain.Alert) error
	ListAlerts(ctx context.Context, status domain.AlertStatus, limit int) ([]domain.Alert, error)
	// ClearAlert flips one alert to cleared. Clearing an already cleared
	// alert succeeds.
	ClearAlert(ctx context.Context, id string) error
	// ClearActiveAlerts flips every active alert to cleared and reports how
	// many changed.
	ClearActiveAlerts(ctx context.Context) (int, error)

	Ping(ctx context.Context) error
	Close() error
}

// stampReading assigns an ID and creation time to a reading about to be stored.
func stampReading(r *domain.Reading, now time.Time) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
}

// stampAlert assigns an ID and update time to an alert about to be stored.
func stampAlert(a *domain.Alert, now time.Time) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
}
