// Package mirror copies engine state into a store.Repository in the
// background. Writes are best effort: a failure is logged and reported but the
// engine keeps its state.
package mirror

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/atomic"

	"multitimer/internal/store"
	"multitimer/internal/timer"
)

const (
	DefaultQueueSize  = 256
	DefaultMaxRetries = 3
	DefaultRetryBase  = 100 * time.Millisecond
	DefaultOpTimeout  = 2 * time.Second
)

type Options struct {
	QueueSize  int
	MaxRetries uint64
	RetryBase  time.Duration
	OpTimeout  time.Duration

	Logger *slog.Logger
	// OnError receives every write that still failed after its retries.
	OnError func(error)
	Now     func() time.Time
}

func (o *Options) setDefaults() {
	if o.QueueSize <= 0 {
		o.QueueSize = DefaultQueueSize
	}
	if o.RetryBase <= 0 {
		o.RetryBase = DefaultRetryBase
	}
	if o.OpTimeout <= 0 {
		o.OpTimeout = DefaultOpTimeout
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

type opKind int

const (
	opCreate opKind = iota
	opUpdate
	opDelete
)

func (k opKind) String() string {
	switch k {
	case opCreate:
		return "create"
	case opUpdate:
		return "update"
	default:
		return "delete"
	}
}

type op struct {
	kind opKind
	rec  store.Record
}

// Stats counts finished writes.
type Stats struct {
	Completed uint64
	Failed    uint64
	Dropped   uint64
}

type Mirror struct {
	engine *timer.Engine
	repo   store.Repository
	opts Options

	mu     sync.RWMutex // guards queue against Close
	queue  chan op
	closed *atomic.Bool

	unsubscribe func()
	ctx         context.Context
	cancel      context.CancelFunc
	done        chan struct{}

	completed *atomic.Uint64
	failed    *atomic.Uint64
	dropped   *atomic.Uint64
}

// New subscribes a mirror to engine and starts its worker.
func New(engine *timer.Engine, repo store.Repository, opts Options) *Mirror {
	opts.setDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	m := &Mirror{
		engine:    engine,
		repo:      repo,
		opts:      opts,
		queue:     make(chan op, opts.QueueSize),
		closed:    atomic.NewBool(false),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		completed: atomic.NewUint64(0),
		failed:    atomic.NewUint64(0),
		dropped:   atomic.NewUint64(0),
	}

	go m.work()
	m.unsubscribe = engine.Subscribe(m.handle)
	return m
}

func (m *Mirror) Stats() Stats {
	return Stats{
		Completed: m.completed.Load(),
		Failed:    m.failed.Load(),
		Dropped:   m.dropped.Load(),
	}
}

// Close stops listening, saves the current value of every running timer, lets
// the worker finish what is queued and waits for it. When ctx ends first the
// pending writes are abandoned.
func (m *Mirror) Close(ctx context.Context) error {
	m.unsubscribe()
	if !m.closed.Load() {
		m.saveRunning()
	}

	m.mu.Lock()
	if m.closed.Load() {
		m.mu.Unlock()
		<-m.done
		return nil
	}
	m.closed.Store(true)
	close(m.queue)
	m.mu.Unlock()

	select {
	case <-m.done:
		m.cancel()
		return nil
	case <-ctx.Done():
		m.cancel()
		<-m.done
		return ctx.Err()
	}
}

func (m *Mirror) handle(ev timer.Event) {
	var o op
	switch ev.Type {
	case timer.EventRestored:
		// already in the store
		return
	case timer.EventCreated:
		o = op{kind: opCreate, rec: m.record(ev.Timer)}
	case timer.EventDeleted:
		o = op{kind: opDelete, rec: store.Record{ID: ev.Timer.ID}}
	default:
		o = op{kind: opUpdate, rec: m.record(ev.Timer)}
	}
	m.enqueue(o)
}

// saveRunning queues an update for each running timer. Ticks emit no events,
// so without it the store would keep the value of the last user action.
func (m *Mirror) saveRunning() {
	for _, t := range m.engine.Snapshot() {
		if t.Running {
			m.enqueue(op{kind: opUpdate, rec: m.record(t)})
		}
	}
}

// record stamps running timers with the time the stored value was taken, so
// readers of the store can extrapolate the live value.
func (m *Mirror) record(t timer.Timer) store.Record {
	rec := store.FromTimer(t)
	if t.Running {
		now := m.opts.Now().UTC()
		rec.StartedAt = &now
	}
	return rec
}

func (m *Mirror) enqueue(o op) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed.Load() {
		return
	}
	select {
	case m.queue <- o:
	default:
		m.dropped.Inc()
		m.opts.Logger.Warn("mirror queue full, dropping write", "op", o.kind.String(), "timer_id", o.rec.ID)
	}
}

func (m *Mirror) work() {
	defer close(m.done)
	for o := range m.queue {
		if m.ctx.Err() != nil {
			m.dropped.Inc()
			continue
		}
		m.apply(o)
	}
}

func (m *Mirror) apply(o op) {
	b := retry.NewExponential(m.opts.RetryBase)
	b = retry.WithMaxRetries(m.opts.MaxRetries, b)

	err := retry.Do(m.ctx, b, func(ctx context.Context) error {
		opCtx, cancel := context.WithTimeout(ctx, m.opts.OpTimeout)
		defer cancel()

		if err := m.exec(opCtx, o); err != nil {
			if errors.Is(err, context.Canceled) && m.ctx.Err() != nil {
				return err
			}
			return retry.RetryableError(err)
		}
		return nil
	})
	if err == nil {
		m.completed.Inc()
		return
	}

	m.failed.Inc()
	var perr *store.PersistenceError
	if !errors.As(err, &perr) {
		perr = &store.PersistenceError{Op: o.kind.String(), ID: o.rec.ID, Err: err}
	}
	m.opts.Logger.Error("mirror write failed", "op", o.kind.String(), "timer_id", o.rec.ID, "error", err)
	if m.opts.OnError != nil {
		m.opts.OnError(perr)
	}
}

// exec runs one write. Creates and updates fall back to each other so a
// dropped or duplicated write does not leave the record stuck.
func (m *Mirror) exec(ctx context.Context, o op) error {
	switch o.kind {
	case opCreate:
		err := m.repo.Create(ctx, o.rec)
		if errors.Is(err, store.ErrAlreadyExists) {
			return m.repo.Update(ctx, o.rec)
		}
		return err
	case opUpdate:
		err := m.repo.Update(ctx, o.rec)
		if errors.Is(err, store.ErrNotFound) {
			return m.repo.Create(ctx, o.rec)
		}
		return err
	default:
		return m.repo.Delete(ctx, o.rec.ID)
	}
}
