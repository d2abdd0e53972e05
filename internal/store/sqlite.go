package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	// one writer keeps sqlite from returning SQLITE_BUSY under the mirror
	db.SetMaxOpenConns(1)

	repo := &SQLite{db: db, now: time.Now}
	if err := repo.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return repo, nil
}

func (r *SQLite) init() error {
	query := `
	CREATE TABLE IF NOT EXISTS timers (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		value_ms INTEGER NOT NULL DEFAULT 0,
		running INTEGER NOT NULL DEFAULT 0,
		laps TEXT NOT NULL DEFAULT '[]',
		hidden INTEGER NOT NULL DEFAULT 0,
		started_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)
	`
	_, err := r.db.Exec(query)
	return err
}

const sqliteColumns = "id, kind, duration_ms, value_ms, running, laps, hidden, started_at, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteRecord(row rowScanner) (Record, error) {
	var rec Record
	var running, hidden int
	var laps string
	var startedAt sql.NullString
	var createdAt, updatedAt string

	if err := row.Scan(&rec.ID, &rec.Kind, &rec.DurationMS, &rec.ValueMS, &running, &laps, &hidden,
		&startedAt, &createdAt, &updatedAt); err != nil {
		return Record{}, err
	}

	rec.Running = running == 1
	rec.Hidden = hidden == 1
	if err := json.Unmarshal([]byte(laps), &rec.LapsMS); err != nil {
		return Record{}, fmt.Errorf("decode laps: %w", err)
	}
	if startedAt.Valid {
		if t, err := time.Parse(time.RFC3339Nano, startedAt.String); err == nil {
			rec.StartedAt = &t
		}
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return rec, nil
}

func (r *SQLite) List(ctx context.Context) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+sqliteColumns+" FROM timers ORDER BY created_at, rowid")
	if err != nil {
		return nil, wrapErr("list", "", err)
	}
	defer rows.Close()

	recs := []Record{}
	for rows.Next() {
		rec, err := scanSQLiteRecord(rows)
		if err != nil {
			return nil, wrapErr("list", "", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list", "", err)
	}
	return recs, nil
}

func (r *SQLite) Get(ctx context.Context, id string) (*Record, error) {
	rec, err := scanSQLiteRecord(r.db.QueryRowContext(ctx, "SELECT "+sqliteColumns+" FROM timers WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wrapErr("get", id, ErrNotFound)
	}
	if err != nil {
		return nil, wrapErr("get", id, err)
	}
	return &rec, nil
}

func (r *SQLite) Create(ctx context.Context, rec Record) error {
	normalize(&rec, r.now())
	laps, err := json.Marshal(rec.LapsMS)
	if err != nil {
		return wrapErr("create", rec.ID, err)
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO timers (`+sqliteColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		rec.ID, rec.Kind, rec.DurationMS, rec.ValueMS, boolInt(rec.Running), string(laps), boolInt(rec.Hidden),
		formatTimePtr(rec.StartedAt), rec.CreatedAt.Format(time.RFC3339Nano), rec.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return wrapErr("create", rec.ID, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return wrapErr("create", rec.ID, ErrAlreadyExists)
	}
	return nil
}

func (r *SQLite) Update(ctx context.Context, rec Record) error {
	normalize(&rec, r.now())
	laps, err := json.Marshal(rec.LapsMS)
	if err != nil {
		return wrapErr("update", rec.ID, err)
	}

	result, err := r.db.ExecContext(ctx,
		"UPDATE timers SET value_ms = ?, running = ?, laps = ?, hidden = ?, started_at = ?, updated_at = ? WHERE id = ?",
		rec.ValueMS, boolInt(rec.Running), string(laps), boolInt(rec.Hidden),
		formatTimePtr(rec.StartedAt), rec.UpdatedAt.Format(time.RFC3339Nano), rec.ID,
	)
	if err != nil {
		return wrapErr("update", rec.ID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return wrapErr("update", rec.ID, err)
	}
	if n == 0 {
		return wrapErr("update", rec.ID, ErrNotFound)
	}
	return nil
}

func (r *SQLite) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM timers WHERE id = ?", id)
	return wrapErr("delete", id, err)
}

func (r *SQLite) Close() error {
	return r.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339Nano)
}
