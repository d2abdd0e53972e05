package internal

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"multitimer/internal/timer"
)

// MsgTick asks the model to repaint from the engine.
type MsgTick struct{}

// MsgExpired reports a countdown that ran out.
type MsgExpired struct {
	Timer timer.Timer
}

// MsgPersistError reports a store write that failed for good.
type MsgPersistError struct {
	Err error
}

// Inbox carries engine notices and store failures to the UI without ever
// blocking the sender. Notices beyond the buffer are dropped.
type Inbox struct {
	expired chan timer.Timer
	errs    chan error
}

func NewInbox(size int) *Inbox {
	if size <= 0 {
		size = 16
	}
	return &Inbox{
		expired: make(chan timer.Timer, size),
		errs:    make(chan error, size),
	}
}

// Notify implements notify.Notifier.
func (in *Inbox) Notify(_ context.Context, ev timer.Event) error {
	if ev.Type != timer.EventExpired {
		return nil
	}
	select {
	case in.expired <- ev.Timer:
	default:
	}
	return nil
}

// ReportError suits mirror.Options.OnError.
func (in *Inbox) ReportError(err error) {
	select {
	case in.errs <- err:
	default:
	}
}

func (in *Inbox) waitExpired() tea.Msg {
	return MsgExpired{Timer: <-in.expired}
}

func (in *Inbox) waitError() tea.Msg {
	return MsgPersistError{Err: <-in.errs}
}

type Options struct {
	Inbox *Inbox
	Dark  bool
}

type Model struct {
	engine *timer.Engine
	inbox  *Inbox

	Timers        []timer.Timer
	SelectedIndex int
	HideAll       bool
	Dark          bool
	Prompting     bool
	Status        string
	StatusIsError bool

	keys     keyMap
	help     help.Model
	input    textinput.Model
	progress progress.Model
	theme    theme
}

func NewModel(engine *timer.Engine, opts Options) *Model {
	ti := textinput.New()
	ti.Placeholder = "minutes, e.g. 1.5"
	ti.CharLimit = 12
	ti.Width = 20

	prog := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	prog.Width = 30

	m := &Model{
		engine:   engine,
		inbox:    opts.Inbox,
		Dark:     opts.Dark,
		keys:     defaultKeyMap(),
		help:     help.New(),
		input:    ti,
		progress: prog,
	}
	m.theme = themeFor(m.Dark)
	m.refresh()
	return m
}

func (m *Model) Init() tea.Cmd {
	if m.inbox == nil {
		return nil
	}
	return tea.Batch(m.inbox.waitExpired, m.inbox.waitError)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case MsgTick:
		m.refresh()
		return m, nil
	case MsgExpired:
		m.refresh()
		m.setStatus(fmt.Sprintf("countdown %s finished", m.label(msg.Timer.ID)), false)
		if m.inbox == nil {
			return m, nil
		}
		return m, m.inbox.waitExpired
	case MsgPersistError:
		m.setStatus(msg.Err.Error(), true)
		if m.inbox == nil {
			return m, nil
		}
		return m, m.inbox.waitError
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil
	case tea.KeyMsg:
		if m.Prompting {
			return m.handlePrompt(msg)
		}
		return m.handleKeyMsg(msg)
	}
	return m, nil
}

func (m *Model) View() string {
	if m.Prompting {
		return m.promptView()
	}
	if len(m.Timers) == 0 {
		return m.emptyStateView()
	}
	return m.mainView()
}

func (m *Model) SelectedTimer() (timer.Timer, bool) {
	if m.SelectedIndex >= 0 && m.SelectedIndex < len(m.Timers) {
		return m.Timers[m.SelectedIndex], true
	}
	return timer.Timer{}, false
}

func (m *Model) refresh() {
	m.Timers = m.engine.Snapshot()
	if m.SelectedIndex >= len(m.Timers) {
		m.SelectedIndex = len(m.Timers) - 1
	}
	if m.SelectedIndex < 0 {
		m.SelectedIndex = 0
	}
}

func (m *Model) setStatus(s string, isErr bool) {
	m.Status = s
	m.StatusIsError = isErr
}

// apply runs an engine operation on the selected timer.
func (m *Model) apply(op func(id string) (timer.Timer, error)) {
	t, ok := m.SelectedTimer()
	if !ok {
		return
	}
	if _, err := op(t.ID); err != nil {
		m.setStatus(err.Error(), true)
	} else {
		m.setStatus("", false)
	}
	m.refresh()
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		if m.SelectedIndex > 0 {
			m.SelectedIndex--
		}
	case key.Matches(msg, m.keys.Down):
		if m.SelectedIndex < len(m.Timers)-1 {
			m.SelectedIndex++
		}
	case key.Matches(msg, m.keys.Stopwatch):
		m.create(timer.Stopwatch, 0)
	case key.Matches(msg, m.keys.Countdown):
		m.Prompting = true
		m.input.Reset()
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.Toggle):
		m.apply(m.engine.Toggle)
	case key.Matches(msg, m.keys.Lap):
		m.apply(m.engine.AddLap)
	case key.Matches(msg, m.keys.LapRunning):
		if _, ok := m.engine.LapFirstRunning(); !ok {
			m.setStatus("no running timer to lap", false)
		}
		m.refresh()
	case key.Matches(msg, m.keys.Reset):
		m.apply(m.engine.Reset)
	case key.Matches(msg, m.keys.Delete):
		if t, ok := m.SelectedTimer(); ok {
			m.engine.Delete(t.ID)
			m.refresh()
		}
	case key.Matches(msg, m.keys.Hide):
		m.apply(m.engine.ToggleHidden)
	case key.Matches(msg, m.keys.HideAll):
		m.HideAll = !m.HideAll
	case key.Matches(msg, m.keys.Theme):
		m.Dark = !m.Dark
		m.theme = themeFor(m.Dark)
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m *Model) handlePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.Prompting = false
		m.input.Blur()
		return m, nil
	case "enter":
		m.Prompting = false
		m.input.Blur()
		d, err := ParseMinutes(m.input.Value())
		if err != nil {
			m.setStatus(err.Error(), true)
			return m, nil
		}
		m.create(timer.Countdown, d)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) create(kind timer.Kind, initial time.Duration) {
	t, err := m.engine.Create(kind, initial)
	if err != nil {
		m.setStatus(err.Error(), true)
		return
	}
	m.setStatus("", false)
	m.refresh()
	for i := range m.Timers {
		if m.Timers[i].ID == t.ID {
			m.SelectedIndex = i
		}
	}
}

var maxMinutes = float64(math.MaxInt64/int64(time.Minute)) - 1

// ParseMinutes reads a countdown length typed in minutes. Fractions are
// allowed; the result is rounded to the millisecond and must be at least 1ms.
func ParseMinutes(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: enter the countdown length in minutes", timer.ErrInvalidInput)
	}
	minutes, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(minutes) || math.IsInf(minutes, 0) {
		return 0, fmt.Errorf("%w: %q is not a number of minutes", timer.ErrInvalidInput, s)
	}
	if minutes > maxMinutes {
		return 0, fmt.Errorf("%w: %s minutes is too long", timer.ErrInvalidInput, s)
	}
	d := time.Duration(minutes * float64(time.Minute)).Round(time.Millisecond)
	if d < time.Millisecond {
		return 0, fmt.Errorf("%w: countdown length must be at least 1ms", timer.ErrInvalidInput)
	}
	return d, nil
}

// label names a timer by its position in the list.
func (m *Model) label(id string) string {
	for i := range m.Timers {
		if m.Timers[i].ID == id {
			return fmt.Sprintf("#%d", i+1)
		}
	}
	return id
}
