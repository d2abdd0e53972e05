package timer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("t%d", n)
	}
}

func newTestEngine(opts ...Option) *Engine {
	base := []Option{
		WithIDGenerator(seqIDs()),
		WithClock(func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }),
	}
	return NewEngine(append(base, opts...)...)
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) record(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) count(typ EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func tickN(e *Engine, n int) {
	for i := 0; i < n; i++ {
		e.Tick()
	}
}

func TestCreateStopwatch(t *testing.T) {
	e := newTestEngine()

	sw, err := e.Create(Stopwatch, 0)
	require.NoError(t, err)

	assert.Equal(t, "t1", sw.ID)
	assert.Equal(t, Stopwatch, sw.Kind)
	assert.Zero(t, sw.Value)
	assert.False(t, sw.Running)
	assert.Empty(t, sw.Laps)
	assert.Zero(t, sw.CountdownStart)
}

func TestCreateCountdown(t *testing.T) {
	e := newTestEngine()

	cd, err := e.Create(Countdown, time.Minute)
	require.NoError(t, err)

	assert.Equal(t, time.Minute, cd.Value)
	assert.Equal(t, time.Minute, cd.CountdownStart)
	assert.Equal(t, time.Minute, cd.Remaining())
	assert.False(t, cd.Running)
}

func TestCreateCountdownInvalidDuration(t *testing.T) {
	e := newTestEngine()

	for _, d := range []time.Duration{0, -time.Second} {
		_, err := e.Create(Countdown, d)
		assert.ErrorIs(t, err, ErrInvalidInput, "duration %v", d)
	}
	_, err := e.Create(Kind(42), time.Second)
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.Zero(t, e.Len())
}

func TestCreatePreservesInsertionOrder(t *testing.T) {
	e := newTestEngine()

	_, _ = e.Create(Stopwatch, 0)
	_, _ = e.Create(Countdown, time.Second)
	_, _ = e.Create(Stopwatch, 0)

	var ids []string
	for _, tm := range e.Snapshot() {
		ids = append(ids, tm.ID)
	}
	assert.Equal(t, []string{"t1", "t2", "t3"}, ids)
}

func TestTickAdvancesRunningTimers(t *testing.T) {
	e := newTestEngine()

	sw, _ := e.Create(Stopwatch, 0)
	cd, _ := e.Create(Countdown, 2*time.Second)
	idle, _ := e.Create(Stopwatch, 0)

	_, _ = e.Toggle(sw.ID)
	_, _ = e.Toggle(cd.ID)

	tickN(e, 50)

	got, _ := e.Get(sw.ID)
	assert.Equal(t, 500*time.Millisecond, got.Elapsed())

	got, _ = e.Get(cd.ID)
	assert.Equal(t, 1500*time.Millisecond, got.Remaining())

	got, _ = e.Get(idle.ID)
	assert.Zero(t, got.Value)
}

func TestTickCountdownClampsAndStops(t *testing.T) {
	e := newTestEngine(WithInterval(30 * time.Millisecond))
	rec := &recorder{}
	e.Subscribe(rec.record)

	cd, _ := e.Create(Countdown, 100*time.Millisecond)
	_, _ = e.Toggle(cd.ID)

	tickN(e, 3)
	got, _ := e.Get(cd.ID)
	assert.Equal(t, 10*time.Millisecond, got.Value)
	assert.True(t, got.Running)

	expired := e.Tick()
	require.Len(t, expired, 1)
	assert.Equal(t, cd.ID, expired[0].ID)

	got, _ = e.Get(cd.ID)
	assert.Zero(t, got.Value)
	assert.False(t, got.Running)

	tickN(e, 10)
	got, _ = e.Get(cd.ID)
	assert.Zero(t, got.Value)
	assert.Equal(t, 1, rec.count(EventExpired))
}

func TestTickProperty(t *testing.T) {
	const interval = 10 * time.Millisecond
	tests := []struct {
		name  string
		start time.Duration
		ticks int
	}{
		{"short run", 200 * time.Millisecond, 5},
		{"exact", 200 * time.Millisecond, 20},
		{"overrun", 200 * time.Millisecond, 57},
		{"odd start", 95 * time.Millisecond, 9},
		{"odd start overrun", 95 * time.Millisecond, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(WithInterval(interval))
			sw, _ := e.Create(Stopwatch, 0)
			cd, _ := e.Create(Countdown, tt.start)
			_, _ = e.Toggle(sw.ID)
			_, _ = e.Toggle(cd.ID)

			tickN(e, tt.ticks)

			got, _ := e.Get(sw.ID)
			assert.Equal(t, time.Duration(tt.ticks)*interval, got.Value)

			want := max(tt.start-time.Duration(tt.ticks)*interval, 0)
			got, _ = e.Get(cd.ID)
			assert.Equal(t, want, got.Value)
			assert.Equal(t, want > 0, got.Running)
		})
	}
}

func TestToggle(t *testing.T) {
	e := newTestEngine()
	sw, _ := e.Create(Stopwatch, 0)

	got, err := e.Toggle(sw.ID)
	require.NoError(t, err)
	assert.True(t, got.Running)

	got, err = e.Toggle(sw.ID)
	require.NoError(t, err)
	assert.False(t, got.Running)

	_, err = e.Toggle("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTogglePausedCountdownResumes(t *testing.T) {
	e := newTestEngine()
	cd, _ := e.Create(Countdown, time.Second)

	_, _ = e.Toggle(cd.ID)
	tickN(e, 30)
	_, _ = e.Toggle(cd.ID)

	got, _ := e.Toggle(cd.ID)
	assert.True(t, got.Running)
	assert.Equal(t, 700*time.Millisecond, got.Value)
}

func TestToggleExpiredCountdownRestarts(t *testing.T) {
	e := newTestEngine()
	cd, _ := e.Create(Countdown, 50*time.Millisecond)

	_, _ = e.Toggle(cd.ID)
	tickN(e, 5)

	got, _ := e.Get(cd.ID)
	require.True(t, got.Expired())
	require.False(t, got.Running)

	got, err := e.Toggle(cd.ID)
	require.NoError(t, err)
	assert.True(t, got.Running)
	assert.Equal(t, 50*time.Millisecond, got.Value)

	// Run it out again and toggle twice: every toggle from the expired state
	// relaunches instead of getting stuck at zero.
	tickN(e, 5)
	got, _ = e.Toggle(cd.ID)
	assert.True(t, got.Running)
	assert.Equal(t, 50*time.Millisecond, got.Value)
}

func TestToggleExpiredTwiceIsRunningBothTimes(t *testing.T) {
	e := newTestEngine()
	cd, _ := e.Create(Countdown, 10*time.Millisecond)
	_, _ = e.Toggle(cd.ID)
	e.Tick()

	first, _ := e.Toggle(cd.ID)
	assert.True(t, first.Running)
	e.Tick()

	second, _ := e.Toggle(cd.ID)
	assert.True(t, second.Running)
	assert.Equal(t, 10*time.Millisecond, second.Value)
}

func TestReset(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		initial time.Duration
		running bool
		want    time.Duration
	}{
		{"running stopwatch", Stopwatch, 0, true, 0},
		{"paused stopwatch", Stopwatch, 0, false, 0},
		{"running countdown", Countdown, time.Second, true, time.Second},
		{"paused countdown", Countdown, time.Second, false, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine()
			tm, _ := e.Create(tt.kind, tt.initial)
			_, _ = e.Toggle(tm.ID)
			tickN(e, 20)
			_, _ = e.AddLap(tm.ID)
			if !tt.running {
				_, _ = e.Toggle(tm.ID)
			}

			got, err := e.Reset(tm.ID)
			require.NoError(t, err)
			assert.False(t, got.Running)
			assert.Equal(t, tt.want, got.Value)
			assert.Empty(t, got.Laps)
		})
	}
}

func TestResetUnknown(t *testing.T) {
	e := newTestEngine()
	_, err := e.Reset("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLapsAreOrdered(t *testing.T) {
	e := newTestEngine()
	sw, _ := e.Create(Stopwatch, 0)
	_, _ = e.Toggle(sw.ID)

	tickN(e, 100)
	got, err := e.AddLap(sw.ID)
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{time.Second}, got.Laps)

	tickN(e, 400)
	got, _ = e.AddLap(sw.ID)
	assert.Equal(t, []time.Duration{time.Second, 5 * time.Second}, got.Laps)

	tickN(e, 250)
	got, _ = e.AddLap(sw.ID)
	assert.Equal(t, []time.Duration{time.Second, 5 * time.Second, 7500 * time.Millisecond}, got.Laps)
	assert.Equal(t, []time.Duration{4 * time.Second, 2500 * time.Millisecond}, LapDeltas(got.Laps))
}

func TestAddLapOnCountdownRecordsRemaining(t *testing.T) {
	e := newTestEngine()
	cd, _ := e.Create(Countdown, time.Second)
	_, _ = e.Toggle(cd.ID)
	tickN(e, 25)

	got, err := e.AddLap(cd.ID)
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{750 * time.Millisecond}, got.Laps)
}

func TestSnapshotIsACopy(t *testing.T) {
	e := newTestEngine()
	sw, _ := e.Create(Stopwatch, 0)
	_, _ = e.AddLap(sw.ID)

	snap := e.Snapshot()
	snap[0].Laps[0] = time.Hour
	snap[0].Running = true

	got, _ := e.Get(sw.ID)
	assert.Equal(t, []time.Duration{0}, got.Laps)
	assert.False(t, got.Running)
}

func TestDelete(t *testing.T) {
	e := newTestEngine()
	a, _ := e.Create(Stopwatch, 0)
	b, _ := e.Create(Stopwatch, 0)

	assert.True(t, e.Delete(a.ID))
	assert.False(t, e.Delete(a.ID))
	assert.False(t, e.Delete("never-existed"))

	snap := e.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, b.ID, snap[0].ID)

	_, err := e.Toggle(a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = e.Reset(a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = e.AddLap(a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = e.ToggleHidden(a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = e.Get(a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestToggleHiddenHasNoTimingEffect(t *testing.T) {
	e := newTestEngine()
	sw, _ := e.Create(Stopwatch, 0)
	_, _ = e.Toggle(sw.ID)
	tickN(e, 3)

	got, err := e.ToggleHidden(sw.ID)
	require.NoError(t, err)
	assert.True(t, got.Hidden)
	assert.True(t, got.Running)
	assert.Equal(t, 30*time.Millisecond, got.Value)

	got, _ = e.ToggleHidden(sw.ID)
	assert.False(t, got.Hidden)
}

func TestLapFirstRunning(t *testing.T) {
	e := newTestEngine()
	a, _ := e.Create(Stopwatch, 0)
	b, _ := e.Create(Stopwatch, 0)
	c, _ := e.Create(Stopwatch, 0)

	_, ok := e.LapFirstRunning()
	assert.False(t, ok)

	_, _ = e.Toggle(b.ID)
	_, _ = e.Toggle(c.ID)
	tickN(e, 10)

	got, ok := e.LapFirstRunning()
	require.True(t, ok)
	assert.Equal(t, b.ID, got.ID)
	assert.Equal(t, []time.Duration{100 * time.Millisecond}, got.Laps)

	first, ok := e.FirstRunning()
	require.True(t, ok)
	assert.Equal(t, b.ID, first.ID)

	other, _ := e.Get(c.ID)
	assert.Empty(t, other.Laps)
	other, _ = e.Get(a.ID)
	assert.Empty(t, other.Laps)
}

func TestCountdownScenarioSixtySeconds(t *testing.T) {
	e := newTestEngine()
	rec := &recorder{}
	e.Subscribe(rec.record)

	cd, err := e.Create(Countdown, 60000*time.Millisecond)
	require.NoError(t, err)
	_, _ = e.Toggle(cd.ID)

	tickN(e, 6000)

	got, _ := e.Get(cd.ID)
	assert.Zero(t, got.Value)
	assert.False(t, got.Running)
	assert.Equal(t, 1, rec.count(EventExpired))
}

func TestStopwatchLapScenario(t *testing.T) {
	e := newTestEngine()
	sw, _ := e.Create(Stopwatch, 0)
	_, _ = e.Toggle(sw.ID)

	tickN(e, 100)
	_, _ = e.AddLap(sw.ID)
	tickN(e, 400)
	got, _ := e.AddLap(sw.ID)

	assert.Equal(t, []time.Duration{1000 * time.Millisecond, 5000 * time.Millisecond}, got.Laps)
}

func TestEventsInMutationOrder(t *testing.T) {
	e := newTestEngine()
	rec := &recorder{}
	unsubscribe := e.Subscribe(rec.record)

	sw, _ := e.Create(Stopwatch, 0)
	_, _ = e.Toggle(sw.ID)
	_, _ = e.AddLap(sw.ID)
	_, _ = e.Toggle(sw.ID)
	_, _ = e.ToggleHidden(sw.ID)
	_, _ = e.Reset(sw.ID)
	e.Delete(sw.ID)
	unsubscribe()
	_, _ = e.Create(Stopwatch, 0)

	var types []EventType
	for _, ev := range rec.events {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []EventType{
		EventCreated, EventStarted, EventLapped, EventPaused,
		EventHiddenToggled, EventReset, EventDeleted,
	}, types)
	assert.True(t, rec.events[1].IsClick())
	assert.False(t, rec.events[5].IsClick())
}

func TestSubscriberMayCallBack(t *testing.T) {
	e := newTestEngine()
	rec := &recorder{}
	e.Subscribe(rec.record)

	// Restart a countdown from inside the expiry notification.
	e.Subscribe(func(ev Event) {
		if ev.Type == EventExpired {
			_, err := e.Toggle(ev.Timer.ID)
			assert.NoError(t, err)
		}
	})

	cd, _ := e.Create(Countdown, 10*time.Millisecond)
	_, _ = e.Toggle(cd.ID)
	e.Tick()

	got, _ := e.Get(cd.ID)
	assert.True(t, got.Running)
	assert.Equal(t, 10*time.Millisecond, got.Value)
	assert.Equal(t, 1, rec.count(EventExpired))
	assert.Equal(t, 2, rec.count(EventStarted))
}

func TestRestore(t *testing.T) {
	e := newTestEngine()
	_, _ = e.Create(Stopwatch, 0)

	err := e.Restore([]Timer{
		{ID: "a", Kind: Stopwatch, Value: time.Second, Running: true, Laps: []time.Duration{time.Second}},
		{ID: "b", Kind: Countdown, Value: 0, CountdownStart: time.Minute},
		{ID: "bad-kind", Kind: Kind(9)},
		{ID: "bad-countdown", Kind: Countdown, Value: time.Second},
		{ID: "a", Kind: Stopwatch},
		{ID: "negative", Kind: Stopwatch, Value: -time.Second},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	snap := e.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "a", snap[1].ID)
	assert.False(t, snap[1].Running)
	assert.Equal(t, time.Second, snap[1].Value)

	got, _ := e.Toggle("b")
	assert.True(t, got.Running)
	assert.Equal(t, time.Minute, got.Value)
}

func TestConcurrentActionsAndTicks(t *testing.T) {
	e := NewEngine()
	sw, _ := e.Create(Stopwatch, 0)
	_, _ = e.Toggle(sw.ID)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			e.Tick()
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_, _ = e.AddLap(sw.ID)
			_ = e.Snapshot()
		}
	}()
	wg.Wait()

	got, _ := e.Get(sw.ID)
	assert.Equal(t, 1000*DefaultInterval, got.Value)
	require.Len(t, got.Laps, 200)
	for k := 1; k < len(got.Laps); k++ {
		assert.GreaterOrEqual(t, got.Laps[k], got.Laps[k-1])
	}
}

func TestRunStopsWithContext(t *testing.T) {
	e := NewEngine(WithInterval(time.Millisecond))
	sw, _ := e.Create(Stopwatch, 0)
	_, _ = e.Toggle(sw.ID)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	require.Eventually(t, func() bool {
		got, _ := e.Get(sw.ID)
		return got.Value >= 5*time.Millisecond
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
