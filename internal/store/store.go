package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"

	"multitimer/internal/timer"
)

var (
	ErrNotFound      = errors.New("timer record not found")
	ErrAlreadyExists = errors.New("timer record already exists")
)

// Record is the persisted form of a timer. Times are in milliseconds.
type Record struct {
	ID         string     `json:"id"`
	Kind       string     `json:"type"`
	DurationMS int64      `json:"duration_ms"`
	ValueMS    int64      `json:"value_ms"`
	Running    bool       `json:"running"`
	LapsMS     []int64    `json:"laps_ms"`
	Hidden     bool       `json:"hidden"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Repository mirrors timers into a backing store. Delete of an unknown id
// succeeds; Get and Update report ErrNotFound.
//
//go:generate mockgen -source=store.go -destination=mockstore/repository.go -package=mockstore
type Repository interface {
	List(ctx context.Context) ([]Record, error)
	Get(ctx context.Context, id string) (*Record, error)
	Create(ctx context.Context, rec Record) error
	Update(ctx context.Context, rec Record) error
	Delete(ctx context.Context, id string) error
	Close() error
}

// PersistenceError wraps any failure of a backing store.
type PersistenceError struct {
	Op  string
	ID  string
	Err error
}

func (e *PersistenceError) Error() string {
	if e == nil {
		return ""
	}
	if e.ID != "" {
		return fmt.Sprintf("persistence: %s timer %s: %v", e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("persistence: %s timers: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func wrapErr(op, id string, err error) error {
	if err == nil {
		return nil
	}
	var perr *PersistenceError
	if errors.As(err, &perr) {
		return err
	}
	return &PersistenceError{Op: op, ID: id, Err: err}
}

// FromTimer converts an engine timer into its record form.
func FromTimer(t timer.Timer) Record {
	return Record{
		ID:         t.ID,
		Kind:       t.Kind.String(),
		DurationMS: t.CountdownStart.Milliseconds(),
		ValueMS:    t.Value.Milliseconds(),
		Running:    t.Running,
		LapsMS:     lo.Map(t.Laps, func(d time.Duration, _ int) int64 { return d.Milliseconds() }),
		Hidden:     t.Hidden,
		CreatedAt:  t.CreatedAt,
	}
}

// Timer converts a record back into an engine timer.
func (r Record) Timer() (timer.Timer, error) {
	kind, err := timer.ParseKind(r.Kind)
	if err != nil {
		return timer.Timer{}, err
	}
	t := timer.Timer{
		ID:        r.ID,
		Kind:      kind,
		Value:     time.Duration(r.ValueMS) * time.Millisecond,
		Running:   r.Running,
		Laps:      lo.Map(r.LapsMS, func(ms int64, _ int) time.Duration { return time.Duration(ms) * time.Millisecond }),
		Hidden:    r.Hidden,
		CreatedAt: r.CreatedAt,
	}
	if kind == timer.Countdown {
		t.CountdownStart = time.Duration(r.DurationMS) * time.Millisecond
	}
	return t, nil
}

// LiveValueMS extrapolates the value of a running record to now. While a
// record runs, StartedAt marks when ValueMS was taken. Countdowns stop at 0.
func (r Record) LiveValueMS(now time.Time) int64 {
	if !r.Running || r.StartedAt == nil {
		return r.ValueMS
	}
	elapsed := max(now.Sub(*r.StartedAt).Milliseconds(), 0)
	if r.Kind == timer.Countdown.String() {
		return max(r.ValueMS-elapsed, 0)
	}
	return r.ValueMS + elapsed
}

// Timers converts every record it can, bringing running records up to now.
// Records that fail to convert are reported in the joined error.
func Timers(recs []Record, now time.Time) ([]timer.Timer, error) {
	var errs []error
	out := make([]timer.Timer, 0, len(recs))
	for _, r := range recs {
		r.ValueMS = r.LiveValueMS(now)
		t, err := r.Timer()
		if err != nil {
			errs = append(errs, fmt.Errorf("record %s: %w", r.ID, err))
			continue
		}
		out = append(out, t)
	}
	return out, errors.Join(errs...)
}

func normalize(rec *Record, now time.Time) {
	if rec.LapsMS == nil {
		rec.LapsMS = []int64{}
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = now.UTC()
	if rec.StartedAt != nil {
		s := rec.StartedAt.UTC()
		rec.StartedAt = &s
	}
}
