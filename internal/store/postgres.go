package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/couchcryptid/coastal-alert-service/internal/domain"
)

// DBTX is the subset of *pgxpool.Pool and pgx.Tx the repository needs, so the
// same queries run inside or outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS sensor_readings (
	id         TEXT PRIMARY KEY,
	timestamp  TIMESTAMPTZ NOT NULL,
	lat        DOUBLE PRECISION NOT NULL,
	lng        DOUBLE PRECISION NOT NULL,
	tide_m     DOUBLE PRECISION NOT NULL,
	wind_kmh   DOUBLE PRECISION NOT NULL,
	temp_c     DOUBLE PRECISION NOT NULL,
	rain_mm    DOUBLE PRECISION NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS sensor_readings_created_at_idx ON sensor_readings (created_at DESC);

CREATE TABLE IF NOT EXISTS alerts (
	id         TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	level      TEXT NOT NULL,
	type       TEXT NOT NULL,
	message_en TEXT NOT NULL,
	message_hi TEXT NOT NULL,
	lat        DOUBLE PRECISION NOT NULL,
	lng        DOUBLE PRECISION NOT NULL,
	status     TEXT NOT NULL DEFAULT 'active',
	reading_id TEXT
);
CREATE INDEX IF NOT EXISTS alerts_status_created_at_idx ON alerts (status, created_at DESC);
`

const (
	insertReadingSQL = `INSERT INTO sensor_readings
		(id, timestamp, lat, lng, tide_m, wind_kmh, temp_c, rain_mm, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	selectReadingsSQL = `SELECT id, timestamp, lat, lng, tide_m, wind_kmh, temp_c, rain_mm, created_at
		FROM sensor_readings ORDER BY created_at DESC LIMIT $1`

	insertAlertSQL = `INSERT INTO alerts
		(id, created_at, updated_at, level, type, message_en, message_hi, lat, lng, status, reading_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	selectAlertsSQL = `SELECT id, created_at, updated_at, level, type, message_en, message_hi, lat, lng, status, COALESCE(reading_id, '')
		FROM alerts WHERE status = $1 ORDER BY created_at DESC LIMIT $2`

	clearAlertSQL = `UPDATE alerts SET status = 'cleared', updated_at = $2 WHERE id = $1`

	clearActiveSQL = `UPDATE alerts SET status = 'cleared', updated_at = $1 WHERE status = 'active'`
)

// Repository implements the store queries against any DBTX.
type Repository struct {
	db DBTX
}

// NewRepository wraps a pool or transaction.
func NewRepository(db DBTX) *Repository {
	return &Repository{db: db}
}

func (r *Repository) SaveReading(ctx context.Context, rd *domain.Reading) error {
	stampReading(rd, domain.Now())
	_, err := r.db.Exec(ctx, insertReadingSQL,
		rd.ID, rd.Timestamp, rd.Lat, rd.Lng, rd.TideM, rd.WindKmh, rd.TempC, rd.RainMm, rd.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	return nil
}

func (r *Repository) ListReadings(ctx context.Context, limit int) ([]domain.Reading, error) {
	rows, err := r.db.Query(ctx, selectReadingsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Reading, 0)
	for rows.Next() {
		var rd domain.Reading
		if err := rows.Scan(&rd.ID, &rd.Timestamp, &rd.Lat, &rd.Lng,
			&rd.TideM, &rd.WindKmh, &rd.TempC, &rd.RainMm, &rd.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		rd.Timestamp = rd.Timestamp.UTC()
		rd.CreatedAt = rd.CreatedAt.UTC()
		out = append(out, rd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate readings: %w", err)
	}
	return out, nil
}

func (r *Repository) LatestReading(ctx context.Context) (*domain.Reading, error) {
	readings, err := r.ListReadings(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(readings) == 0 {
		return nil, nil
	}
	return &readings[0], nil
}

func (r *Repository) SaveAlert(ctx context.Context, a *domain.Alert) error {
	stampAlert(a, domain.Now())
	_, err := r.db.Exec(ctx, insertAlertSQL,
		a.ID, a.CreatedAt, a.UpdatedAt, string(a.Level), string(a.Type),
		a.MessageEN, a.MessageHI, a.Location.Lat, a.Location.Lng, string(a.Status), nullable(a.ReadingID))
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (r *Repository) ListAlerts(ctx context.Context, status domain.AlertStatus, limit int) ([]domain.Alert, error) {
	rows, err := r.db.Query(ctx, selectAlertsSQL, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Alert, 0)
	for rows.Next() {
		var (
			a                    domain.Alert
			level, typ, alertSts string
		)
		if err := rows.Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt, &level, &typ,
			&a.MessageEN, &a.MessageHI, &a.Location.Lat, &a.Location.Lng, &alertSts, &a.ReadingID); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a.Level = domain.AlertLevel(level)
		a.Type = domain.AlertType(typ)
		a.Status = domain.AlertStatus(alertSts)
		a.CreatedAt = a.CreatedAt.UTC()
		a.UpdatedAt = a.UpdatedAt.UTC()
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}
	return out, nil
}

func (r *Repository) ClearAlert(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, clearAlertSQL, id, domain.Now())
	if err != nil {
		return fmt.Errorf("clear alert: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("alert %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *Repository) ClearActiveAlerts(ctx context.Context) (int, error) {
	tag, err := r.db.Exec(ctx, clearActiveSQL, domain.Now())
	if err != nil {
		return 0, fmt.Errorf("clear active alerts: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// Postgres is the pgxpool-backed Store.
type Postgres struct {
	*Repository
	pool *pgxpool.Pool
}

// OpenPostgres connects to databaseURL, verifies the connection and applies
// the schema.
func OpenPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Postgres{Repository: NewRepository(pool), pool: pool}, nil
}

// ClearActiveAlerts runs the bulk clear in its own transaction.
func (p *Postgres) ClearActiveAlerts(ctx context.Context) (int, error) {
	var cleared int
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		n, err := NewRepository(tx).ClearActiveAlerts(ctx)
		cleared = n
		return err
	})
	if err != nil {
		return 0, err
	}
	return cleared, nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
