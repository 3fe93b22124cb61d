// Package sqlite keeps the order sheet in a SQLite file: a single header row
// and append-only data rows stored as JSON cell arrays.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jcmexdev/pharmacy-orders/internal/intake"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sheet_header (
    id     INTEGER PRIMARY KEY CHECK (id = 1),
    cells  TEXT    NOT NULL
);

CREATE TABLE IF NOT EXISTS sheet_rows (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    row_key     TEXT    NOT NULL,
    cells       TEXT    NOT NULL,
    created_at  TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sheet_rows_key ON sheet_rows(row_key);
`

// Sheet is an intake.Sheet kept in a SQLite file: one header row and an
// append-only list of data rows.
type Sheet struct {
	db  *sql.DB
	now func() time.Time
}

var _ intake.Sheet = (*Sheet)(nil)

// Open opens or creates the sheet database at path.
func Open(path string) (*Sheet, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}
	// SQLite allows a single writer; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return &Sheet{db: db, now: time.Now}, nil
}

func (s *Sheet) Close() error {
	return s.db.Close()
}

func (s *Sheet) HeaderRow(ctx context.Context) ([]string, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT cells FROM sheet_header WHERE id = 1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: read header: %w", err)
	}
	return decodeCells(raw)
}

func (s *Sheet) SetHeaderRow(ctx context.Context, cells []string) error {
	raw, err := json.Marshal(cells)
	if err != nil {
		return fmt.Errorf("sqlite: encode header: %w", err)
	}
	const q = `
		INSERT INTO sheet_header (id, cells) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET cells = excluded.cells`
	if _, err := s.db.ExecContext(ctx, q, string(raw)); err != nil {
		return fmt.Errorf("sqlite: set header: %w", err)
	}
	return nil
}

// AddRow appends cells as the next data row.
func (s *Sheet) AddRow(ctx context.Context, cells []string) error {
	raw, err := json.Marshal(cells)
	if err != nil {
		return fmt.Errorf("sqlite: encode row: %w", err)
	}
	key := ""
	if len(cells) > 0 {
		key = cells[0]
	}
	const q = `INSERT INTO sheet_rows (row_key, cells, created_at) VALUES (?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q, key, string(raw), s.now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("sqlite: add row %q: %w", key, err)
	}
	return nil
}

// RowCount counts data rows, not the header.
func (s *Sheet) RowCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sheet_rows`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count rows: %w", err)
	}
	return n, nil
}

// FindRow returns the most recent row whose first cell equals key.
func (s *Sheet) FindRow(ctx context.Context, key string) ([]string, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT cells FROM sheet_rows WHERE row_key = ? ORDER BY id DESC LIMIT 1`, key,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", intake.ErrRowNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: find row %q: %w", key, err)
	}
	return decodeCells(raw)
}

func decodeCells(raw string) ([]string, error) {
	var cells []string
	if err := json.Unmarshal([]byte(raw), &cells); err != nil {
		return nil, fmt.Errorf("sqlite: decode cells: %w", err)
	}
	return cells, nil
}
