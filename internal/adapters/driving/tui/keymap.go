package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings.
type KeyMap struct {
	// Quit exits the application.
	Quit key.Binding

	// Search submits the query, or starts a new one from the results.
	Search key.Binding

	// Mode cycles between text, url and image queries.
	Mode key.Binding

	Up   key.Binding
	Down key.Binding

	// Edit returns focus to the query input.
	Edit key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "esc"),
			key.WithHelp("esc", "quit"),
		),
		Search: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "search"),
		),
		Mode: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "mode"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Edit: key.NewBinding(
			key.WithKeys("/", "n"),
			key.WithHelp("/", "new search"),
		),
	}
}
