// Package notify turns engine events into side effects: the terminal bell and
// published messages.
package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/atomic"

	"multitimer/internal/timer"
)

// Notifier reacts to a single engine event.
type Notifier interface {
	Notify(ctx context.Context, ev timer.Event) error
}

const bel = "\a"

// Bell rings on expired countdowns and, if Clicks is set, on start, pause
// and lap as well.
type Bell struct {
	mu     sync.Mutex
	w      io.Writer
	clicks bool
}

func NewBell(w io.Writer, clicks bool) *Bell {
	return &Bell{w: w, clicks: clicks}
}

func (b *Bell) Notify(_ context.Context, ev timer.Event) error {
	if ev.Type != timer.EventExpired && !(b.clicks && ev.IsClick()) {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := io.WriteString(b.w, bel)
	return err
}

// DefaultFanoutQueue bounds the events waiting for the notifiers.
const DefaultFanoutQueue = 64

// Fanout hands every engine event to a list of notifiers on its own worker,
// so a slow notifier never holds up the engine. Events that arrive while the
// queue is full are dropped. Failures are logged and never reach the engine.
type Fanout struct {
	notifiers []Notifier
	logger    *slog.Logger
	timeout   time.Duration

	mu      sync.RWMutex // guards queue against Close
	queue   chan timer.Event
	closed  bool
	done    chan struct{}
	dropped *atomic.Uint64
}

func NewFanout(logger *slog.Logger, timeout time.Duration, notifiers ...Notifier) *Fanout {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = time.Second
	}
	f := &Fanout{
		notifiers: notifiers,
		logger:    logger,
		timeout:   timeout,
		queue:     make(chan timer.Event, DefaultFanoutQueue),
		done:      make(chan struct{}),
		dropped:   atomic.NewUint64(0),
	}
	go f.work()
	return f
}

// Attach subscribes the fanout to engine.
func (f *Fanout) Attach(engine *timer.Engine) (detach func()) {
	return engine.Subscribe(f.enqueue)
}

// Dropped counts events lost to a full queue.
func (f *Fanout) Dropped() uint64 {
	return f.dropped.Load()
}

// Close delivers what is queued and stops the worker. Events sent after Close
// are ignored.
func (f *Fanout) Close(ctx context.Context) error {
	f.mu.Lock()
	if !f.closed {
		f.closed = true
		close(f.queue)
	}
	f.mu.Unlock()

	select {
	case <-f.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *Fanout) enqueue(ev timer.Event) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return
	}
	select {
	case f.queue <- ev:
	default:
		f.dropped.Inc()
		f.logger.Warn("notify queue full, dropping event", "event", ev.Type.String(), "timer_id", ev.Timer.ID)
	}
}

func (f *Fanout) work() {
	defer close(f.done)
	for ev := range f.queue {
		f.dispatch(ev)
	}
}

func (f *Fanout) dispatch(ev timer.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()

	var errs []error
	for _, n := range f.notifiers {
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		f.logger.Warn("notify failed", "event", ev.Type.String(), "timer_id", ev.Timer.ID, "error", err)
	}
}
