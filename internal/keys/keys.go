package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings for every mode. Bindings are matched in
// the context of the active mode, so the same key may appear more than once.
type KeyMap struct {
	// Global
	ForceQuit key.Binding

	// Message table
	Down    key.Binding
	Up      key.Binding
	Open    key.Binding
	Compose key.Binding
	Refresh key.Binding
	Quit    key.Binding

	// Message view
	Back        key.Binding
	ScrollUp    key.Binding
	ScrollDown  key.Binding
	PageUp      key.Binding
	PageDown    key.Binding
	ScrollLeft  key.Binding
	ScrollRight key.Binding

	// Compose, navigating
	Cancel    key.Binding
	Edit      key.Binding
	NextField key.Binding
	Send      key.Binding

	// Compose, editing
	StopEditing key.Binding
	Commit      key.Binding
	Newline     key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		Compose: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "compose"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc", "q"),
			key.WithHelp("esc/q", "back"),
		),
		ScrollUp: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "scroll up"),
		),
		ScrollDown: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "scroll down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "page down"),
		),
		ScrollLeft: key.NewBinding(
			key.WithKeys("h", "left"),
			key.WithHelp("h/←", "left"),
		),
		ScrollRight: key.NewBinding(
			key.WithKeys("l", "right"),
			key.WithHelp("l/→", "right"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc", "q"),
			key.WithHelp("esc/q", "discard"),
		),
		Edit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "edit"),
		),
		NextField: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next field"),
		),
		Send: key.NewBinding(
			key.WithKeys("S"),
			key.WithHelp("S", "send"),
		),
		StopEditing: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "stop editing"),
		),
		Commit: key.NewBinding(
			key.WithKeys("enter", "tab"),
			key.WithHelp("enter/tab", "next field"),
		),
		Newline: key.NewBinding(
			key.WithKeys("ctrl+j"),
			key.WithHelp("ctrl+j", "newline"),
		),
	}
}

// TableHelp returns the hints shown under the message table.
func (k *KeyMap) TableHelp() []key.Binding {
	return []key.Binding{k.Down, k.Up, k.Open, k.Compose, k.Refresh, k.Quit}
}

// MessageHelp returns the hints shown while reading a message.
func (k *KeyMap) MessageHelp() []key.Binding {
	return []key.Binding{k.Back, k.ScrollDown, k.ScrollUp, k.PageDown, k.ScrollLeft, k.ScrollRight}
}

// ComposeHelp returns the hints for the compose form. Send is only offered
// while the body field is focused.
func (k *KeyMap) ComposeHelp(editing, onBody bool) []key.Binding {
	if editing {
		if onBody {
			return []key.Binding{k.StopEditing, k.Commit, k.Newline}
		}
		return []key.Binding{k.StopEditing, k.Commit}
	}
	if onBody {
		return []key.Binding{k.Edit, k.NextField, k.Send, k.Cancel}
	}
	return []key.Binding{k.Edit, k.NextField, k.Cancel}
}
