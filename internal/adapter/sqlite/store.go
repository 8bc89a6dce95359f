// Package sqlite persists alerts in an embedded SQLite database using the
// pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazardwatch/alert-engine/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS alerts (
	id              TEXT PRIMARY KEY,
	hazard_type     TEXT NOT NULL,
	severity        TEXT NOT NULL,
	status          TEXT NOT NULL,
	location_name   TEXT NOT NULL,
	lat             REAL NOT NULL,
	lon             REAL NOT NULL,
	measurements    TEXT NOT NULL,
	source          TEXT NOT NULL,
	recommendations TEXT NOT NULL,
	probability     REAL NOT NULL DEFAULT 0,
	confidence      REAL NOT NULL DEFAULT 0,
	model_id        TEXT NOT NULL DEFAULT '',
	created_at      TEXT NOT NULL,
	expires_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_alerts_lookup ON alerts(hazard_type, status, created_at);
`

// Store implements domain.AlertStore on SQLite. Timestamps are stored as
// RFC3339 UTC text so string comparison in SQL matches chronological order.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the database at path and applies the schema.
// Use ":memory:" for throwaway test databases.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", domain.ErrStoreUnavailable, path, err)
	}
	// One connection: SQLite is single-writer anyway, and a pool of one keeps
	// ":memory:" databases from splitting across connections.
	db.SetMaxOpenConns(1)

	// WAL lets the scheduler's writes proceed alongside API reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		logger.Warn("could not enable WAL mode", "error", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000;"); err != nil {
		logger.Warn("could not set busy timeout", "error", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: apply schema: %w", domain.ErrStoreUnavailable, err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create persists the alert and returns it unchanged.
func (s *Store) Create(ctx context.Context, alert domain.Alert) (domain.Alert, error) {
	measurements, err := json.Marshal(alert.Measurements)
	if err != nil {
		return domain.Alert{}, fmt.Errorf("encode measurements: %w", err)
	}
	recommendations, err := json.Marshal(alert.Recommendations)
	if err != nil {
		return domain.Alert{}, fmt.Errorf("encode recommendations: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO alerts (
			id, hazard_type, severity, status, location_name, lat, lon,
			measurements, source, recommendations,
			probability, confidence, model_id, created_at, expires_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		alert.ID, string(alert.HazardType), string(alert.Severity), string(alert.Status),
		alert.Location.Name, alert.Location.Lat, alert.Location.Lon,
		string(measurements), alert.Source, string(recommendations),
		alert.Probability, alert.Confidence, alert.ModelID,
		formatTime(alert.CreatedAt), formatTime(alert.ExpiresAt),
	)
	if err != nil {
		return domain.Alert{}, fmt.Errorf("%w: insert alert: %w", domain.ErrStoreUnavailable, err)
	}
	return alert, nil
}

// FindActive returns active alerts of the hazard type inside box created at
// or after since, newest first.
func (s *Store) FindActive(ctx context.Context, hazardType domain.HazardType, box domain.Box, since time.Time) ([]domain.Alert, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`
		FROM alerts
		WHERE hazard_type = ?
		  AND status = ?
		  AND lat BETWEEN ? AND ?
		  AND lon BETWEEN ? AND ?
		  AND created_at >= ?
		ORDER BY created_at DESC`,
		string(hazardType), string(domain.StatusActive),
		box.MinLat, box.MaxLat, box.MinLon, box.MaxLon,
		formatTime(since),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: query active alerts: %w", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var alerts []domain.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate alerts: %w", domain.ErrStoreUnavailable, err)
	}
	return alerts, nil
}

// UpdateStatus moves an alert through its lifecycle and returns the updated
// row. The read and write share a transaction so concurrent transitions
// cannot interleave.
func (s *Store) UpdateStatus(ctx context.Context, id string, status domain.Status) (domain.Alert, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Alert{}, fmt.Errorf("%w: begin transaction: %w", domain.ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, selectColumns+` FROM alerts WHERE id = ?`, id)
	alert, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Alert{}, fmt.Errorf("%w: alert %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return domain.Alert{}, err
	}

	if !alert.Status.CanTransitionTo(status) {
		return domain.Alert{}, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, alert.Status, status)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE alerts SET status = ? WHERE id = ?`, string(status), id); err != nil {
		return domain.Alert{}, fmt.Errorf("%w: update status: %w", domain.ErrStoreUnavailable, err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Alert{}, fmt.Errorf("%w: commit status update: %w", domain.ErrStoreUnavailable, err)
	}

	alert.Status = status
	return alert, nil
}

// ExpireOverdue transitions active and monitoring alerts whose expiry has
// passed to expired, returning how many rows changed.
func (s *Store) ExpireOverdue(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE alerts SET status = ?
		WHERE status IN (?, ?) AND expires_at <= ?`,
		string(domain.StatusExpired),
		string(domain.StatusActive), string(domain.StatusMonitoring),
		formatTime(now),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: expire alerts: %w", domain.ErrStoreUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: count expired: %w", domain.ErrStoreUnavailable, err)
	}
	return int(n), nil
}

const selectColumns = `
	SELECT id, hazard_type, severity, status, location_name, lat, lon,
	       measurements, source, recommendations,
	       probability, confidence, model_id, created_at, expires_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (domain.Alert, error) {
	var (
		alert                         domain.Alert
		measurements, recommendations string
		createdAt, expiresAt          string
	)
	err := row.Scan(
		&alert.ID, &alert.HazardType, &alert.Severity, &alert.Status,
		&alert.Location.Name, &alert.Location.Lat, &alert.Location.Lon,
		&measurements, &alert.Source, &recommendations,
		&alert.Probability, &alert.Confidence, &alert.ModelID,
		&createdAt, &expiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Alert{}, err
	}
	if err != nil {
		return domain.Alert{}, fmt.Errorf("%w: scan alert: %w", domain.ErrStoreUnavailable, err)
	}

	if err := json.Unmarshal([]byte(measurements), &alert.Measurements); err != nil {
		return domain.Alert{}, fmt.Errorf("decode measurements for %s: %w", alert.ID, err)
	}
	if err := json.Unmarshal([]byte(recommendations), &alert.Recommendations); err != nil {
		return domain.Alert{}, fmt.Errorf("decode recommendations for %s: %w", alert.ID, err)
	}
	if alert.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.Alert{}, fmt.Errorf("parse created_at for %s: %w", alert.ID, err)
	}
	if alert.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return domain.Alert{}, fmt.Errorf("parse expires_at for %s: %w", alert.ID, err)
	}
	return alert, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
