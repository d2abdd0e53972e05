package internal

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multitimer/internal/timer"
)

func newTestModel(t *testing.T) (*Model, *timer.Engine) {
	t.Helper()
	n := 0
	engine := timer.NewEngine(timer.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("t%d", n)
	}))
	return NewModel(engine, Options{Inbox: NewInbox(4), Dark: true}), engine
}

func press(m *Model, keys ...string) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case " ":
			msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		_, cmd = m.Update(msg)
	}
	return cmd
}

func typeText(m *Model, s string) {
	for _, r := range s {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func TestCreateStopwatch(t *testing.T) {
	m, engine := newTestModel(t)

	press(m, "s")

	require.Len(t, m.Timers, 1)
	assert.Equal(t, timer.Stopwatch, m.Timers[0].Kind)
	assert.False(t, m.Timers[0].Running)
	assert.Equal(t, 1, engine.Len())
}

func TestCreateCountdownFromPrompt(t *testing.T) {
	m, _ := newTestModel(t)

	press(m, "c")
	require.True(t, m.Prompting)
	assert.Contains(t, m.View(), "New Countdown")

	typeText(m, "1.5")
	press(m, "enter")

	assert.False(t, m.Prompting)
	require.Len(t, m.Timers, 1)
	assert.Equal(t, timer.Countdown, m.Timers[0].Kind)
	assert.Equal(t, 90*time.Second, m.Timers[0].Value)
	assert.Equal(t, 90*time.Second, m.Timers[0].CountdownStart)
	assert.False(t, m.StatusIsError)
}

func TestCountdownPromptRejectsBadInput(t *testing.T) {
	for _, input := range []string{"", "abc", "0", "-2"} {
		t.Run(fmt.Sprintf("%q", input), func(t *testing.T) {
			m, engine := newTestModel(t)

			press(m, "c")
			typeText(m, input)
			press(m, "enter")

			assert.False(t, m.Prompting)
			assert.True(t, m.StatusIsError)
			assert.NotEmpty(t, m.Status)
			assert.Zero(t, engine.Len())
		})
	}
}

func TestCountdownPromptCancel(t *testing.T) {
	m, engine := newTestModel(t)

	press(m, "c")
	typeText(m, "5")
	press(m, "esc")

	assert.False(t, m.Prompting)
	assert.Zero(t, engine.Len())
	assert.Contains(t, m.View(), "No timers yet")
}

func TestToggleAndLap(t *testing.T) {
	m, engine := newTestModel(t)
	press(m, "s")

	press(m, "enter")
	require.True(t, m.Timers[0].Running)

	engine.Tick()
	engine.Tick()
	press(m, "l")
	require.Len(t, m.Timers[0].Laps, 1)
	assert.Equal(t, 2*engine.Interval(), m.Timers[0].Laps[0])

	press(m, "enter")
	assert.False(t, m.Timers[0].Running)
}

func TestLapFirstRunning(t *testing.T) {
	m, _ := newTestModel(t)
	press(m, "s", "s")

	press(m, " ")
	assert.Equal(t, "no running timer to lap", m.Status)
	assert.Empty(t, m.Timers[0].Laps)
	assert.Empty(t, m.Timers[1].Laps)

	// second timer is selected after creation; start it
	press(m, "enter")
	press(m, " ")
	assert.Empty(t, m.Timers[0].Laps)
	assert.Len(t, m.Timers[1].Laps, 1)
}

func TestResetAndDelete(t *testing.T) {
	m, engine := newTestModel(t)
	press(m, "s", "s")
	require.Equal(t, 1, m.SelectedIndex)

	press(m, "enter")
	engine.Tick()
	press(m, "l", "r")
	assert.False(t, m.Timers[1].Running)
	assert.Zero(t, m.Timers[1].Value)
	assert.Empty(t, m.Timers[1].Laps)

	press(m, "d")
	require.Len(t, m.Timers, 1)
	assert.Equal(t, 0, m.SelectedIndex)
	assert.Equal(t, "t1", m.Timers[0].ID)

	press(m, "d")
	assert.Empty(t, m.Timers)
	assert.Equal(t, 0, m.SelectedIndex)
}

func TestNavigation(t *testing.T) {
	m, _ := newTestModel(t)
	press(m, "s", "s", "s")
	require.Equal(t, 2, m.SelectedIndex)

	press(m, "k", "k", "k")
	assert.Equal(t, 0, m.SelectedIndex)
	press(m, "j")
	assert.Equal(t, 1, m.SelectedIndex)
}

func TestHideTimers(t *testing.T) {
	m, _ := newTestModel(t)
	press(m, "s")
	assert.NotContains(t, m.View(), timer.Mask)

	press(m, "h")
	assert.True(t, m.Timers[0].Hidden)
	assert.Contains(t, m.View(), timer.Mask)

	press(m, "h")
	assert.NotContains(t, m.View(), timer.Mask)

	press(m, "H")
	assert.True(t, m.HideAll)
	assert.False(t, m.Timers[0].Hidden)
	assert.Contains(t, m.View(), timer.Mask)
}

func TestThemeAndQuit(t *testing.T) {
	m, _ := newTestModel(t)

	press(m, "t")
	assert.False(t, m.Dark)
	press(m, "t")
	assert.True(t, m.Dark)

	cmd := press(m, "q")
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestExpiredAndPersistMessages(t *testing.T) {
	m, _ := newTestModel(t)
	press(m, "s")

	_, cmd := m.Update(MsgExpired{Timer: m.Timers[0]})
	assert.Equal(t, "countdown #1 finished", m.Status)
	assert.False(t, m.StatusIsError)
	assert.NotNil(t, cmd)

	_, cmd = m.Update(MsgPersistError{Err: errors.New("store down")})
	assert.Equal(t, "store down", m.Status)
	assert.True(t, m.StatusIsError)
	assert.NotNil(t, cmd)
}

func TestTickRefreshesFromEngine(t *testing.T) {
	m, engine := newTestModel(t)
	press(m, "s", "enter")

	engine.Tick()
	assert.Zero(t, m.Timers[0].Value)

	m.Update(MsgTick{})
	assert.Equal(t, engine.Interval(), m.Timers[0].Value)
}

func TestInboxNeverBlocks(t *testing.T) {
	in := NewInbox(1)
	ctx := context.Background()
	expired := timer.Event{Type: timer.EventExpired, Timer: timer.Timer{ID: "a"}}

	require.NoError(t, in.Notify(ctx, expired))
	require.NoError(t, in.Notify(ctx, expired))
	require.NoError(t, in.Notify(ctx, timer.Event{Type: timer.EventStarted}))
	in.ReportError(errors.New("one"))
	in.ReportError(errors.New("two"))

	assert.Equal(t, MsgExpired{Timer: timer.Timer{ID: "a"}}, in.waitExpired())
	assert.Equal(t, MsgPersistError{Err: errors.New("one")}, in.waitError())
	assert.Empty(t, in.expired)
	assert.Empty(t, in.errs)
}

func TestParseMinutes(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "1", want: time.Minute},
		{in: " 1.5 ", want: 90 * time.Second},
		{in: "0.0001", want: 6 * time.Millisecond},
		{in: "0.00001", want: time.Millisecond},
		{in: "0.000001", wantErr: true},
		{in: "", wantErr: true},
		{in: "ten", wantErr: true},
		{in: "0", wantErr: true},
		{in: "-1", wantErr: true},
		{in: "NaN", wantErr: true},
		{in: "Inf", wantErr: true},
		{in: "1e300", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMinutes(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, timer.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
