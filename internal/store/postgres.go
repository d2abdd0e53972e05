package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Postgres struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}

	repo := &Postgres{pool: pool, now: time.Now}
	if err := repo.init(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return repo, nil
}

func (p *Postgres) init(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS timers (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		duration_ms BIGINT NOT NULL DEFAULT 0,
		value_ms BIGINT NOT NULL DEFAULT 0,
		running BOOLEAN NOT NULL DEFAULT FALSE,
		laps_ms BIGINT[] NOT NULL DEFAULT '{}',
		hidden BOOLEAN NOT NULL DEFAULT FALSE,
		started_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`)
	return err
}

const pgColumns = "id, kind, duration_ms, value_ms, running, laps_ms, hidden, started_at, created_at, updated_at"

func scanPgRecord(row pgx.Row) (Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.Kind, &rec.DurationMS, &rec.ValueMS, &rec.Running, &rec.LapsMS,
		&rec.Hidden, &rec.StartedAt, &rec.CreatedAt, &rec.UpdatedAt)
	return rec, err
}

func (p *Postgres) List(ctx context.Context) ([]Record, error) {
	rows, err := p.pool.Query(ctx, "SELECT "+pgColumns+" FROM timers ORDER BY created_at, id")
	if err != nil {
		return nil, wrapErr("list", "", err)
	}
	defer rows.Close()

	recs := []Record{}
	for rows.Next() {
		rec, err := scanPgRecord(rows)
		if err != nil {
			return nil, wrapErr("list", "", err)
		}
		recs = append(recs, rec)
	}
	return recs, wrapErr("list", "", rows.Err())
}

func (p *Postgres) Get(ctx context.Context, id string) (*Record, error) {
	rec, err := scanPgRecord(p.pool.QueryRow(ctx, "SELECT "+pgColumns+" FROM timers WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, wrapErr("get", id, ErrNotFound)
	}
	if err != nil {
		return nil, wrapErr("get", id, err)
	}
	return &rec, nil
}

func (p *Postgres) Create(ctx context.Context, rec Record) error {
	normalize(&rec, p.now())
	tag, err := p.pool.Exec(ctx,
		`INSERT INTO timers (`+pgColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING`,
		rec.ID, rec.Kind, rec.DurationMS, rec.ValueMS, rec.Running, rec.LapsMS, rec.Hidden,
		rec.StartedAt, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return wrapErr("create", rec.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return wrapErr("create", rec.ID, ErrAlreadyExists)
	}
	return nil
}

func (p *Postgres) Update(ctx context.Context, rec Record) error {
	normalize(&rec, p.now())
	tag, err := p.pool.Exec(ctx,
		`UPDATE timers SET value_ms = $1, running = $2, laps_ms = $3, hidden = $4, started_at = $5, updated_at = $6
		WHERE id = $7`,
		rec.ValueMS, rec.Running, rec.LapsMS, rec.Hidden, rec.StartedAt, rec.UpdatedAt, rec.ID,
	)
	if err != nil {
		return wrapErr("update", rec.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return wrapErr("update", rec.ID, ErrNotFound)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, id string) error {
	_, err := p.pool.Exec(ctx, "DELETE FROM timers WHERE id = $1", id)
	return wrapErr("delete", id, err)
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
