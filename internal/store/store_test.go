package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multitimer/internal/timer"
)

func TestRecordRoundTrip(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	in := timer.Timer{
		ID:             "cd",
		Kind:           timer.Countdown,
		Value:          12340 * time.Millisecond,
		Running:        true,
		Laps:           []time.Duration{20 * time.Second, 15 * time.Second},
		CountdownStart: 30 * time.Second,
		Hidden:         true,
		CreatedAt:      created,
	}

	rec := FromTimer(in)
	assert.Equal(t, "countdown", rec.Kind)
	assert.Equal(t, int64(30000), rec.DurationMS)
	assert.Equal(t, int64(12340), rec.ValueMS)
	assert.Equal(t, []int64{20000, 15000}, rec.LapsMS)

	out, err := rec.Timer()
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestRecordStopwatchIgnoresDuration(t *testing.T) {
	out, err := Record{ID: "sw", Kind: "stopwatch", DurationMS: 999, ValueMS: 10}.Timer()
	require.NoError(t, err)
	assert.Zero(t, out.CountdownStart)
	assert.Equal(t, 10*time.Millisecond, out.Elapsed())
}

func TestTimersSkipsBadRecords(t *testing.T) {
	out, err := Timers([]Record{
		{ID: "a", Kind: "stopwatch"},
		{ID: "b", Kind: "hourglass"},
		{ID: "c", Kind: "countdown", DurationMS: 1000, ValueMS: 1000},
	}, time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, timer.ErrInvalidInput)
	require.Len(t, out, 2)
	assert.Equal(t, "c", out[1].ID)
}

func TestTimersExtrapolatesRunningRecords(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	started := now.Add(-5 * time.Second)

	out, err := Timers([]Record{
		{ID: "sw", Kind: "stopwatch", ValueMS: 1000, Running: true, StartedAt: &started},
		{ID: "cd", Kind: "countdown", DurationMS: 10000, ValueMS: 8000, Running: true, StartedAt: &started},
		{ID: "late", Kind: "countdown", DurationMS: 10000, ValueMS: 3000, Running: true, StartedAt: &started},
		{ID: "paused", Kind: "stopwatch", ValueMS: 700, StartedAt: &started},
		{ID: "nostamp", Kind: "stopwatch", ValueMS: 900, Running: true},
	}, now)
	require.NoError(t, err)
	require.Len(t, out, 5)

	assert.Equal(t, 6*time.Second, out[0].Value)
	assert.Equal(t, 3*time.Second, out[1].Value)
	assert.Zero(t, out[2].Value)
	assert.Equal(t, 700*time.Millisecond, out[3].Value)
	assert.Equal(t, 900*time.Millisecond, out[4].Value)
}

func TestPersistenceErrorWrapping(t *testing.T) {
	base := errors.New("connection refused")
	err := wrapErr("update", "t1", base)

	assert.EqualError(t, err, "persistence: update timer t1: connection refused")
	assert.ErrorIs(t, err, base)
	assert.Same(t, err, wrapErr("retry", "t1", err))
	assert.Nil(t, wrapErr("noop", "", nil))
	assert.EqualError(t, wrapErr("list", "", base), "persistence: list timers: connection refused")
}

func TestNewFromDriver(t *testing.T) {
	ctx := context.Background()

	repo, err := NewFromDriver(ctx, "none", FactoryOptions{})
	require.NoError(t, err)
	assert.Nil(t, repo)

	repo, err = NewFromDriver(ctx, "SQLite", FactoryOptions{SQLitePath: t.TempDir() + "/t.db"})
	require.NoError(t, err)
	require.NotNil(t, repo)
	assert.NoError(t, repo.Close())

	_, err = NewFromDriver(ctx, "mongo", FactoryOptions{})
	assert.ErrorIs(t, err, ErrUnknownDriver)

	_, err = NewFromDriver(ctx, "http", FactoryOptions{HTTP: HTTPOptions{BaseURL: "not a url"}})
	assert.Error(t, err)
}
