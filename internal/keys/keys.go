// Package keys contains keybinding definitions.
package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings for the application.
type KeyMap struct {
	NextView key.Binding
	PrevView key.Binding
	JumpView key.Binding
	Back     key.Binding
	Refresh  key.Binding

	HistoryBack    key.Binding
	HistoryForward key.Binding

	SetDefault key.Binding
	ClearCache key.Binding

	ScrollUp   key.Binding
	ScrollDown key.Binding

	Help       key.Binding
	ToggleLogs key.Binding
	Quit       key.Binding
}

// App holds the active keybindings.
var App = DefaultKeyMap()

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		NextView: key.NewBinding(
			key.WithKeys("tab", "l", "right"),
			key.WithHelp("tab/l", "next view"),
		),
		PrevView: key.NewBinding(
			key.WithKeys("shift+tab", "h", "left"),
			key.WithHelp("shift+tab/h", "previous view"),
		),
		JumpView: key.NewBinding(
			key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"),
			key.WithHelp("1-9", "open day"),
		),
		Back: key.NewBinding(
			key.WithKeys("backspace", "b"),
			key.WithHelp("b", "back"),
		),
		HistoryBack: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "history back"),
		),
		HistoryForward: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "history forward"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload view"),
		),
		SetDefault: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "make default"),
		),
		ClearCache: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "clear cache"),
		),
		ScrollUp: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "scroll up"),
		),
		ScrollDown: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "scroll down"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		ToggleLogs: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("ctrl+x", "logs"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextView, k.Back, k.Refresh, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NextView, k.PrevView, k.JumpView, k.Back, k.HistoryBack, k.HistoryForward},
		{k.Refresh, k.ClearCache, k.SetDefault},
		{k.ScrollUp, k.ScrollDown, k.Help, k.ToggleLogs, k.Quit},
	}
}

// Digit returns the digit of a JumpView key, or 0.
func Digit(s string) int {
	if len(s) == 1 && s[0] >= '1' && s[0] <= '9' {
		return int(s[0] - '0')
	}
	return 0
}
