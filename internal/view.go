package internal

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"multitimer/internal/timer"
)

type theme struct {
	title        lipgloss.Style
	item         lipgloss.Style
	itemSelected lipgloss.Style
	timerDisplay lipgloss.Style
	timerRunning lipgloss.Style
	inactive     lipgloss.Style
	running      lipgloss.Style
	expired      lipgloss.Style
	box          lipgloss.Style
	input        lipgloss.Style
	lapHeader    lipgloss.Style
	lapDelta     lipgloss.Style
	status       lipgloss.Style
	statusError  lipgloss.Style
}

func themeFor(dark bool) theme {
	accent, selectedBg, muted, border := "170", "235", "240", "240"
	if !dark {
		accent, selectedBg, muted, border = "90", "254", "245", "250"
	}

	return theme{
		title: lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true).
			Align(lipgloss.Center),
		item: lipgloss.NewStyle().
			Padding(0, 1),
		itemSelected: lipgloss.NewStyle().
			Foreground(lipgloss.Color(accent)).
			Background(lipgloss.Color(selectedBg)).
			Padding(0, 1),
		timerDisplay: lipgloss.NewStyle().
			Foreground(lipgloss.Color("69")).
			Bold(true),
		timerRunning: lipgloss.NewStyle().
			Foreground(lipgloss.Color("82")).
			Bold(true),
		inactive: lipgloss.NewStyle().
			Foreground(lipgloss.Color(muted)),
		running: lipgloss.NewStyle().
			Foreground(lipgloss.Color("82")).
			Bold(true),
		expired: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true),
		box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(border)),
		input: lipgloss.NewStyle().
			Foreground(lipgloss.Color(accent)),
		lapHeader: lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true),
		lapDelta: lipgloss.NewStyle().
			Foreground(lipgloss.Color(accent)),
		status: lipgloss.NewStyle().
			Foreground(lipgloss.Color(muted)),
		statusError: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")),
	}
}

const maxLapsShown = 8

func (m *Model) hidden(t timer.Timer) bool {
	return m.HideAll || t.Hidden
}

func kindLabel(k timer.Kind) string {
	if k == timer.Countdown {
		return "CD"
	}
	return "SW"
}

func (m *Model) stateLabel(t timer.Timer) string {
	switch {
	case t.Running:
		return m.theme.running.Render("● running")
	case t.Expired():
		return m.theme.expired.Render("✕ done")
	default:
		return m.theme.inactive.Render("paused")
	}
}

func (m *Model) emptyStateView() string {
	return lipgloss.Place(
		80, 24,
		lipgloss.Center, lipgloss.Center,
		m.theme.title.Render("Multi Timer")+"\n\n"+
			m.theme.inactive.Render("No timers yet. Press 's' for a stopwatch or 'c' for a countdown.")+"\n\n"+
			m.statusView(),
	)
}

func (m *Model) mainView() string {
	var sb strings.Builder

	sb.WriteString(m.theme.title.Width(80).Render("Multi Timer"))
	sb.WriteString("\n\n")

	boxes := lipgloss.JoinHorizontal(lipgloss.Top,
		m.timerListView(),
		"  ",
		m.timerDetailView(),
	)
	sb.WriteString(boxes)
	sb.WriteString("\n")
	sb.WriteString(m.statusView())
	sb.WriteString("\n")
	sb.WriteString(m.help.View(m.keys))

	return sb.String()
}

func (m *Model) statusView() string {
	if m.Status == "" {
		return ""
	}
	if m.StatusIsError {
		return m.theme.statusError.Render(m.Status)
	}
	return m.theme.status.Render(m.Status)
}

func (m *Model) timerListView() string {
	var sb strings.Builder

	sb.WriteString("Timers\n\n")

	for i, t := range m.Timers {
		marker := " "
		if t.Running {
			marker = "●"
		}
		line := fmt.Sprintf("%d. %s %s %s", i+1, kindLabel(t.Kind), timer.FormatTime(t.Value, m.hidden(t)), marker)

		if i == m.SelectedIndex {
			sb.WriteString(m.theme.itemSelected.Render(line))
		} else {
			sb.WriteString(m.theme.item.Render(m.theme.inactive.Render(line)))
		}
		sb.WriteString("\n")
	}

	return m.theme.box.Width(28).Height(16).Render(sb.String())
}

func (m *Model) timerDetailView() string {
	t, ok := m.SelectedTimer()
	if !ok {
		return m.theme.box.Width(45).Height(16).Render("Select a timer")
	}
	hidden := m.hidden(t)

	value := timer.FormatTime(t.Value, hidden)
	if t.Running {
		value = m.theme.timerRunning.Render(value)
	} else {
		value = m.theme.timerDisplay.Render(value)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s #%d\n\n", t.Kind, m.SelectedIndex+1)
	sb.WriteString(value)
	fmt.Fprintf(&sb, "\n\n%s\n", m.stateLabel(t))

	if t.Kind == timer.Countdown {
		fmt.Fprintf(&sb, "Start: %s\n", timer.FormatTime(t.CountdownStart, hidden))
		if !hidden && t.CountdownStart > 0 {
			done := 1 - float64(t.Value)/float64(t.CountdownStart)
			sb.WriteString(m.progress.ViewAs(done))
			sb.WriteString("\n")
		}
	}

	sb.WriteString(m.lapsView(t, hidden))

	return m.theme.box.Width(45).Height(16).Render(sb.String())
}

// lapsView lists the newest laps first. Each lap shows its split from the
// previous lap and its absolute value.
func (m *Model) lapsView(t timer.Timer, hidden bool) string {
	if len(t.Laps) == 0 {
		return ""
	}
	deltas := timer.LapDeltas(t.Laps)

	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(m.theme.lapHeader.Render(fmt.Sprintf("Laps (%d)", len(t.Laps))))
	sb.WriteString("\n")

	shown := 0
	for i := len(t.Laps) - 1; i >= 0 && shown < maxLapsShown; i-- {
		delta := strings.Repeat(" ", len(timer.FormatTime(0, false))+1)
		if i > 0 {
			sign := "+"
			d := deltas[i-1]
			if d < 0 {
				sign, d = "-", -d
			}
			delta = m.theme.lapDelta.Render(sign + timer.FormatTime(d, hidden))
		}
		fmt.Fprintf(&sb, "  %2d  %s  %s\n", i+1, delta, timer.FormatTime(t.Laps[i], hidden))
		shown++
	}
	return sb.String()
}

func (m *Model) promptView() string {
	form := fmt.Sprintf("%s\n\n%s%s\n\n%s",
		m.theme.title.Render("New Countdown"),
		m.theme.input.Render("→ Duration: "),
		m.input.View(),
		m.theme.inactive.Render("Enter: Create | Esc: Cancel"),
	)

	return lipgloss.Place(
		80, 24,
		lipgloss.Center, lipgloss.Center,
		m.theme.box.Width(50).Padding(1, 2).Render(form),
	)
}
