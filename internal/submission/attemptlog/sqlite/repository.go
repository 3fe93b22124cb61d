// Package sqlite stores attempt log entries in SQLite through the pure-Go
// modernc driver, so the widget builds without CGO.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jcmexdev/pharmacy-orders/internal/submission/attemptlog"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS submission_attempts (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id        TEXT    NOT NULL,
    status          TEXT    NOT NULL,
    sink            TEXT    NOT NULL DEFAULT '',
    payload         TEXT,
    error_messages  TEXT    NOT NULL DEFAULT '[]',
    trace_id        TEXT    NOT NULL DEFAULT '',
    span_id         TEXT    NOT NULL DEFAULT '',
    updated_at      TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_submission_attempts_order ON submission_attempts(order_id, updated_at);
CREATE INDEX IF NOT EXISTS idx_submission_attempts_trace ON submission_attempts(trace_id);
`

// Fixed width keeps the TEXT column sortable.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ErrNotFound is attemptlog.ErrNotFound, kept here for callers that only
// import this package.
var ErrNotFound = attemptlog.ErrNotFound

// Repository is the SQLite attempt log. It implements both
// attemptlog.Repository and attemptlog.Reader.
type Repository struct {
	db *sql.DB
}

var (
	_ attemptlog.Repository = (*Repository)(nil)
	_ attemptlog.Reader     = (*Repository)(nil)
)

// Open opens or creates the database at path with WAL journaling.
func Open(path string) (*Repository, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// Save appends e.
func (r *Repository) Save(ctx context.Context, e *attemptlog.Entry) error {
	const q = `
		INSERT INTO submission_attempts
			(order_id, status, sink, payload, error_messages, trace_id, span_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, q,
		e.OrderID,
		string(e.Status),
		e.Sink,
		nullableString(e.Payload),
		e.ErrorMessages,
		e.TraceID,
		e.SpanID,
		e.UpdatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save attempt for %q: %w", e.OrderID, err)
	}
	return nil
}

// History returns every entry for orderID, oldest first.
func (r *Repository) History(ctx context.Context, orderID string) ([]attemptlog.Entry, error) {
	const q = `
		SELECT order_id, status, sink, COALESCE(payload, ''), error_messages, trace_id, span_id, updated_at
		FROM   submission_attempts
		WHERE  order_id = ?
		ORDER  BY id`

	rows, err := r.db.QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: history for %q: %w", orderID, err)
	}
	defer rows.Close()

	var out []attemptlog.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: history for %q: %w", orderID, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, orderID)
	}
	return out, nil
}

// Latest returns the current state of an attempt.
func (r *Repository) Latest(ctx context.Context, orderID string) (*attemptlog.Entry, error) {
	all, err := r.History(ctx, orderID)
	if err != nil {
		return nil, err
	}
	last := all[len(all)-1]
	return &last, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (attemptlog.Entry, error) {
	var e attemptlog.Entry
	var status, updatedAt string
	if err := s.Scan(&e.OrderID, &status, &e.Sink, &e.Payload, &e.ErrorMessages, &e.TraceID, &e.SpanID, &updatedAt); err != nil {
		return e, fmt.Errorf("sqlite: scan attempt: %w", err)
	}
	e.Status = attemptlog.Status(status)

	t, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return e, fmt.Errorf("sqlite: parse time %q: %w", updatedAt, err)
	}
	e.UpdatedAt = t
	return e, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
