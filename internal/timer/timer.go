package timer

import (
	"fmt"
	"strings"
	"time"
)

// Kind selects how a timer counts.
type Kind int

const (
	Stopwatch Kind = iota + 1
	Countdown
)

func (k Kind) String() string {
	switch k {
	case Stopwatch:
		return "stopwatch"
	case Countdown:
		return "countdown"
	default:
		return "unknown"
	}
}

// ParseKind accepts the text form produced by Kind.String.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "stopwatch":
		return Stopwatch, nil
	case "countdown":
		return Countdown, nil
	default:
		return 0, fmt.Errorf("%w: unknown timer kind %q", ErrInvalidInput, s)
	}
}

func (k Kind) valid() bool {
	return k == Stopwatch || k == Countdown
}

// Timer is a single stopwatch or countdown. Value holds the elapsed time of
// a stopwatch and the remaining time of a countdown.
type Timer struct {
	ID             string
	Kind           Kind
	Value          time.Duration
	Running        bool
	Laps           []time.Duration
	CountdownStart time.Duration
	Hidden         bool
	CreatedAt      time.Time
}

func (t *Timer) Elapsed() time.Duration {
	if t.Kind != Stopwatch {
		return 0
	}
	return t.Value
}

func (t *Timer) Remaining() time.Duration {
	if t.Kind != Countdown {
		return 0
	}
	return t.Value
}

// Expired reports whether a countdown has run down to zero.
func (t *Timer) Expired() bool {
	return t.Kind == Countdown && t.Value <= 0
}

// zeroValue is the time value a reset restores.
func (t *Timer) zeroValue() time.Duration {
	if t.Kind == Countdown {
		return t.CountdownStart
	}
	return 0
}

func (t *Timer) clone() Timer {
	c := *t
	if t.Laps != nil {
		c.Laps = make([]time.Duration, len(t.Laps))
		copy(c.Laps, t.Laps)
	}
	return c
}

// advance moves a running timer forward by one tick and reports whether a
// countdown reached zero on this step.
func (t *Timer) advance(interval time.Duration) bool {
	if !t.Running {
		return false
	}

	if t.Kind == Stopwatch {
		t.Value += interval
		return false
	}

	t.Value -= interval
	if t.Value <= 0 {
		t.Value = 0
		t.Running = false
		return true
	}
	return false
}
