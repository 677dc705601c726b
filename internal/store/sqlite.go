package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/couchcryptid/coastal-alert-service/internal/domain"
)

// sqliteTime is fixed-width so that text ordering matches time ordering.
const sqliteTime = "2006-01-02T15:04:05.000000000Z"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sensor_readings (
	id         TEXT PRIMARY KEY,
	timestamp  TEXT NOT NULL,
	lat        REAL NOT NULL,
	lng        REAL NOT NULL,
	tide_m     REAL NOT NULL,
	wind_kmh   REAL NOT NULL,
	temp_c     REAL NOT NULL,
	rain_mm    REAL NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS sensor_readings_created_at_idx ON sensor_readings (created_at);

CREATE TABLE IF NOT EXISTS alerts (
	id         TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	level      TEXT NOT NULL,
	type       TEXT NOT NULL,
	message_en TEXT NOT NULL,
	message_hi TEXT NOT NULL,
	lat        REAL NOT NULL,
	lng        REAL NOT NULL,
	status     TEXT NOT NULL,
	reading_id TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS alerts_status_created_at_idx ON alerts (status, created_at);
`

// SQLite is a single-file Store using the pure-Go modernc driver.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path, enables WAL and applies
// the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time; WAL lets readers proceed alongside it.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) SaveReading(ctx context.Context, r *domain.Reading) error {
	stampReading(r, domain.Now())
	_, err := s.db.ExecContext(ctx, `INSERT INTO sensor_readings
		(id, timestamp, lat, lng, tide_m, wind_kmh, temp_c, rain_mm, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, formatTime(r.Timestamp), r.Lat, r.Lng, r.TideM, r.WindKmh, r.TempC, r.RainMm, formatTime(r.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	return nil
}

func (s *SQLite) ListReadings(ctx context.Context, limit int) ([]domain.Reading, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, timestamp, lat, lng, tide_m, wind_kmh, temp_c, rain_mm, created_at
		FROM sensor_readings ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Reading, 0)
	for rows.Next() {
		var (
			r         domain.Reading
			ts, ctime string
		)
		if err := rows.Scan(&r.ID, &ts, &r.Lat, &r.Lng, &r.TideM, &r.WindKmh, &r.TempC, &r.RainMm, &ctime); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		if r.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		if r.CreatedAt, err = parseTime(ctime); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate readings: %w", err)
	}
	return out, nil
}

func (s *SQLite) LatestReading(ctx context.Context) (*domain.Reading, error) {
	readings, err := s.ListReadings(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(readings) == 0 {
		return nil, nil
	}
	return &readings[0], nil
}

func (s *SQLite) SaveAlert(ctx context.Context, a *domain.Alert) error {
	stampAlert(a, domain.Now())
	_, err := s.db.ExecContext(ctx, `INSERT INTO alerts
		(id, created_at, updated_at, level, type, message_en, message_hi, lat, lng, status, reading_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, formatTime(a.CreatedAt), formatTime(a.UpdatedAt), string(a.Level), string(a.Type),
		a.MessageEN, a.MessageHI, a.Location.Lat, a.Location.Lng, string(a.Status), a.ReadingID)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (s *SQLite) ListAlerts(ctx context.Context, status domain.AlertStatus, limit int) ([]domain.Alert, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, created_at, updated_at, level, type, message_en, message_hi, lat, lng, status, reading_id
		FROM alerts WHERE status = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Alert, 0)
	for rows.Next() {
		var (
			a                     domain.Alert
			created, updated      string
			level, typ, alertStat string
		)
		if err := rows.Scan(&a.ID, &created, &updated, &level, &typ,
			&a.MessageEN, &a.MessageHI, &a.Location.Lat, &a.Location.Lng, &alertStat, &a.ReadingID); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		if a.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		if a.UpdatedAt, err = parseTime(updated); err != nil {
			return nil, err
		}
		a.Level = domain.AlertLevel(level)
		a.Type = domain.AlertType(typ)
		a.Status = domain.AlertStatus(alertStat)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}
	return out, nil
}

func (s *SQLite) ClearAlert(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE alerts SET status = 'cleared', updated_at = ? WHERE id = ?`,
		formatTime(domain.Now()), id)
	if err != nil {
		return fmt.Errorf("clear alert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("clear alert: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("alert %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLite) ClearActiveAlerts(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE alerts SET status = 'cleared', updated_at = ? WHERE status = 'active'`,
		formatTime(domain.Now()))
	if err != nil {
		return 0, fmt.Errorf("clear active alerts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear active alerts: %w", err)
	}
	return int(n), nil
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTime)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(sqliteTime, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t, nil
}
