package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Prev       key.Binding
	Next       key.Binding
	Today      key.Binding
	Week       key.Binding
	ScrollUp   key.Binding
	ScrollDown key.Binding
	NextEvent  key.Binding
	PrevEvent  key.Binding
	Earlier    key.Binding
	Later      key.Binding
	Calendars  key.Binding
	New        key.Binding
	Copy       key.Binding
	Reload     key.Binding
	Cancel     key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Prev:       key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "prev day")),
		Next:       key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next day")),
		Today:      key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "today")),
		Week:       key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "day/week")),
		ScrollUp:   key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "scroll up")),
		ScrollDown: key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "scroll down")),
		NextEvent:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next event")),
		PrevEvent:  key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev event")),
		Earlier:    key.NewBinding(key.WithKeys("K"), key.WithHelp("K", "move earlier")),
		Later:      key.NewBinding(key.WithKeys("J"), key.WithHelp("J", "move later")),
		Calendars:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "solo calendar")),
		New:        key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new event")),
		Copy:       key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy id")),
		Reload:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Cancel:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Prev, k.Next, k.Week, k.New, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Prev, k.Next, k.Today, k.Week},
		{k.ScrollUp, k.ScrollDown, k.NextEvent, k.PrevEvent},
		{k.Earlier, k.Later, k.Calendars, k.New},
		{k.Copy, k.Reload, k.Cancel, k.Help, k.Quit},
	}
}
