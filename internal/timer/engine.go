package timer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultInterval is the nominal tick length.
const DefaultInterval = 10 * time.Millisecond

// Engine owns an ordered collection of timers. Every mutation, including a
// whole tick, happens under one lock so no caller sees a half-applied change.
// Events are queued under that lock and delivered afterwards, in order.
type Engine struct {
	mu       sync.Mutex
	interval time.Duration
	newID    func() string
	now      func() time.Time

	order  []string
	timers map[string]*Timer

	pending []Event
	subs    map[int]func(Event)
	nextSub int

	// held by whichever goroutine is currently delivering events
	emitMu sync.Mutex
}

type Option func(*Engine)

func WithInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.interval = d
		}
	}
}

func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.newID = fn
		}
	}
}

func WithClock(fn func() time.Time) Option {
	return func(e *Engine) {
		if fn != nil {
			e.now = fn
		}
	}
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		interval: DefaultInterval,
		newID:    newUUID,
		now:      time.Now,
		timers:   make(map[string]*Timer),
		subs:     make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func newUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func (e *Engine) Interval() time.Duration {
	return e.interval
}

// Create appends a new paused timer. Countdowns need a positive duration.
func (e *Engine) Create(kind Kind, initial time.Duration) (Timer, error) {
	if !kind.valid() {
		return Timer{}, fmt.Errorf("%w: unknown timer kind %d", ErrInvalidInput, kind)
	}
	if kind == Countdown && initial <= 0 {
		return Timer{}, fmt.Errorf("%w: countdown duration must be positive", ErrInvalidInput)
	}

	t := &Timer{
		ID:        e.newID(),
		Kind:      kind,
		CreatedAt: e.now(),
	}
	if kind == Countdown {
		t.Value = initial
		t.CountdownStart = initial
	}

	e.mu.Lock()
	if _, exists := e.timers[t.ID]; exists {
		e.mu.Unlock()
		return Timer{}, fmt.Errorf("%w: duplicate timer id %q", ErrInvalidInput, t.ID)
	}
	e.timers[t.ID] = t
	e.order = append(e.order, t.ID)
	snap := e.queue(EventCreated, t)
	e.mu.Unlock()

	e.flush()
	return snap, nil
}

// Toggle flips the running flag. A paused countdown that already ran out is
// relaunched from its original duration instead of resuming at zero.
func (e *Engine) Toggle(id string) (Timer, error) {
	return e.mutate(id, func(t *Timer) EventType {
		if !t.Running && t.Expired() {
			t.Value = t.CountdownStart
			t.Running = true
			return EventStarted
		}
		t.Running = !t.Running
		if t.Running {
			return EventStarted
		}
		return EventPaused
	})
}

// Reset pauses the timer, restores its zero state and clears its laps.
func (e *Engine) Reset(id string) (Timer, error) {
	return e.mutate(id, func(t *Timer) EventType {
		t.Running = false
		t.Value = t.zeroValue()
		t.Laps = nil
		return EventReset
	})
}

// AddLap records the current time value. Countdowns are accepted too and
// record their remaining time.
func (e *Engine) AddLap(id string) (Timer, error) {
	return e.mutate(id, func(t *Timer) EventType {
		t.Laps = append(t.Laps, t.Value)
		return EventLapped
	})
}

func (e *Engine) ToggleHidden(id string) (Timer, error) {
	return e.mutate(id, func(t *Timer) EventType {
		t.Hidden = !t.Hidden
		return EventHiddenToggled
	})
}

// Delete removes the timer. Deleting an unknown id is not an error; the
// result reports whether anything was removed.
func (e *Engine) Delete(id string) bool {
	e.mu.Lock()
	t, ok := e.timers[id]
	if !ok {
		e.mu.Unlock()
		return false
	}
	delete(e.timers, id)
	for i, oid := range e.order {
		if oid == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	e.queue(EventDeleted, t)
	e.mu.Unlock()

	e.flush()
	return true
}

// Tick advances every running timer by one interval and returns the
// countdowns that ran out on this tick.
func (e *Engine) Tick() []Timer {
	var expired []Timer

	e.mu.Lock()
	for _, id := range e.order {
		t := e.timers[id]
		if t.advance(e.interval) {
			expired = append(expired, e.queue(EventExpired, t))
		}
	}
	e.mu.Unlock()

	if len(expired) > 0 {
		e.flush()
	}
	return expired
}

// Run drives Tick at the engine interval until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.Tick()
		}
	}
}

func (e *Engine) Get(id string) (Timer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok := e.timers[id]
	if !ok {
		return Timer{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t.clone(), nil
}

// Snapshot returns copies of all timers in display order.
func (e *Engine) Snapshot() []Timer {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Timer, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.timers[id].clone())
	}
	return out
}

func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.order)
}

// FirstRunning returns the first running timer in display order.
func (e *Engine) FirstRunning() (Timer, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, id := range e.order {
		if t := e.timers[id]; t.Running {
			return t.clone(), true
		}
	}
	return Timer{}, false
}

// LapFirstRunning laps the first running timer, if there is one. The lookup
// and the lap happen under the same lock.
func (e *Engine) LapFirstRunning() (Timer, bool) {
	e.mu.Lock()
	var target *Timer
	for _, id := range e.order {
		if t := e.timers[id]; t.Running {
			target = t
			break
		}
	}
	if target == nil {
		e.mu.Unlock()
		return Timer{}, false
	}
	target.Laps = append(target.Laps, target.Value)
	snap := e.queue(EventLapped, target)
	e.mu.Unlock()

	e.flush()
	return snap, true
}

// Restore loads previously persisted timers behind the existing ones. They
// come back paused. Inconsistent entries are skipped and reported in the
// returned error.
func (e *Engine) Restore(timers []Timer) error {
	var errs []error

	e.mu.Lock()
	for i := range timers {
		t := timers[i].clone()
		if err := validateRestored(&t); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, exists := e.timers[t.ID]; exists {
			errs = append(errs, fmt.Errorf("%w: duplicate timer id %q", ErrInvalidInput, t.ID))
			continue
		}
		t.Running = false
		if t.CreatedAt.IsZero() {
			t.CreatedAt = e.now()
		}
		e.timers[t.ID] = &t
		e.order = append(e.order, t.ID)
		e.queue(EventRestored, &t)
	}
	e.mu.Unlock()

	e.flush()
	return errors.Join(errs...)
}

func validateRestored(t *Timer) error {
	switch {
	case t.ID == "":
		return fmt.Errorf("%w: empty timer id", ErrInvalidInput)
	case !t.Kind.valid():
		return fmt.Errorf("%w: timer %s has unknown kind", ErrInvalidInput, t.ID)
	case t.Value < 0:
		return fmt.Errorf("%w: timer %s has negative value", ErrInvalidInput, t.ID)
	case t.Kind == Countdown && t.CountdownStart <= 0:
		return fmt.Errorf("%w: countdown %s has no start duration", ErrInvalidInput, t.ID)
	case t.Kind == Countdown && t.Value > t.CountdownStart:
		return fmt.Errorf("%w: countdown %s exceeds its start duration", ErrInvalidInput, t.ID)
	}
	if t.Kind == Stopwatch {
		t.CountdownStart = 0
	}
	return nil
}

// Subscribe registers fn for every event. fn runs outside the engine lock and
// may call back into the engine.
func (e *Engine) Subscribe(fn func(Event)) (unsubscribe func()) {
	e.mu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.subs, id)
			e.mu.Unlock()
		})
	}
}

func (e *Engine) mutate(id string, fn func(t *Timer) EventType) (Timer, error) {
	e.mu.Lock()
	t, ok := e.timers[id]
	if !ok {
		e.mu.Unlock()
		return Timer{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	snap := e.queue(fn(t), t)
	e.mu.Unlock()

	e.flush()
	return snap, nil
}

// queue must be called with e.mu held.
func (e *Engine) queue(typ EventType, t *Timer) Timer {
	snap := t.clone()
	if len(e.subs) > 0 {
		e.pending = append(e.pending, Event{Type: typ, Timer: snap})
	}
	return snap
}

// flush delivers queued events. Only one goroutine delivers at a time; a
// caller that finds delivery in progress leaves its events to that goroutine.
func (e *Engine) flush() {
	for {
		if !e.emitMu.TryLock() {
			return
		}

		e.mu.Lock()
		events := e.pending
		e.pending = nil
		subs := make([]func(Event), 0, len(e.subs))
		for i := 0; i < e.nextSub; i++ {
			if fn, ok := e.subs[i]; ok {
				subs = append(subs, fn)
			}
		}
		e.mu.Unlock()

		for _, ev := range events {
			for _, fn := range subs {
				fn(ev)
			}
		}
		e.emitMu.Unlock()

		e.mu.Lock()
		more := len(e.pending) > 0
		e.mu.Unlock()
		if !more {
			return
		}
	}
}
