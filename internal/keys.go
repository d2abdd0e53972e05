package internal

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up         key.Binding
	Down       key.Binding
	Stopwatch  key.Binding
	Countdown  key.Binding
	Toggle     key.Binding
	Lap        key.Binding
	LapRunning key.Binding
	Reset      key.Binding
	Delete     key.Binding
	Hide       key.Binding
	HideAll    key.Binding
	Theme      key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Stopwatch:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "new stopwatch")),
		Countdown:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "new countdown")),
		Toggle:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "start/pause")),
		Lap:        key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "lap")),
		LapRunning: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "lap running")),
		Reset:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset")),
		Delete:     key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Hide:       key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "hide")),
		HideAll:    key.NewBinding(key.WithKeys("H"), key.WithHelp("H", "hide all")),
		Theme:      key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "theme")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Stopwatch, k.Countdown, k.Toggle, k.Lap, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Toggle, k.Lap, k.LapRunning},
		{k.Stopwatch, k.Countdown, k.Reset, k.Delete},
		{k.Hide, k.HideAll, k.Theme, k.Help, k.Quit},
	}
}
