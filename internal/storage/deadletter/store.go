// Package deadletter persists events whose fold failed, so an operator can
// inspect and replay them after the underlying fault clears. A failed fold
// never halts the stream; the dead-letter row is the only durable trace.
package deadletter

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/louisbranch/payrollwatch/internal/payroll/event"
	sqlitemigrate "github.com/louisbranch/payrollwatch/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/payrollwatch/internal/storage/deadletter/migrations"
)

// Record is one dead-lettered event with the failure that produced it.
type Record struct {
	ID        int64
	EventType event.Type
	TxHash    string
	Payload   []byte
	Cause     string
	CreatedAt time.Time
}

// Store persists dead-lettered events in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite dead-letter store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.Apply(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Append records one failed event with its cause.
func (s *Store) Append(ctx context.Context, ev event.Event, cause error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if !ev.Type.IsValid() {
		return fmt.Errorf("event type is required")
	}
	causeText := ""
	if cause != nil {
		causeText = cause.Error()
	}
	payload := ev.PayloadJSON
	if payload == nil {
		payload = []byte("{}")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO dead_letters (event_type, tx_hash, payload, cause, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		string(ev.Type),
		ev.TxHash,
		payload,
		causeText,
		toMillis(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("append dead letter: %w", err)
	}
	return nil
}

// List returns the most recent dead-lettered events, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, event_type, tx_hash, payload, cause, created_at
		   FROM dead_letters
		  ORDER BY id DESC
		  LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list dead letters: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0, limit)
	for rows.Next() {
		var rec Record
		var eventType string
		var createdAt int64
		if err := rows.Scan(&rec.ID, &eventType, &rec.TxHash, &rec.Payload, &rec.Cause, &createdAt); err != nil {
			return nil, fmt.Errorf("list dead letters: %w", err)
		}
		rec.EventType = event.Type(eventType)
		rec.CreatedAt = fromMillis(createdAt)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list dead letters: %w", err)
	}
	return records, nil
}
