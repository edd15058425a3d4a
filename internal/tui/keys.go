package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all key bindings
type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	Bottom    key.Binding
	Tab       key.Binding
	ShiftTab  key.Binding
	Enter     key.Binding
	Add       key.Binding
	Edit      key.Binding
	Delete    key.Binding
	Search    key.Binding
	Refresh   key.Binding
	Dashboard key.Binding
	Blog      key.Binding
	Users     key.Binding
	Save      key.Binding
	Confirm   key.Binding
	Help      key.Binding
	Quit      key.Binding
	ForceQuit key.Binding
	Escape    key.Binding
	Logout    key.Binding
}

var keys = keyMap{
	Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Bottom:    key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "bottom")),
	Tab:       key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
	ShiftTab:  key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous field")),
	Enter:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
	Add:       key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add post")),
	Edit:      key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit post")),
	Delete:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
	Search:    key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
	Refresh:   key.NewBinding(key.WithKeys("r", "R"), key.WithHelp("r", "refresh")),
	Dashboard: key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "dashboard")),
	Blog:      key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "blog posts")),
	Users:     key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "users")),
	Save:      key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
	Confirm:   key.NewBinding(key.WithKeys("y", "Y"), key.WithHelp("y", "confirm")),
	Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:      key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
	ForceQuit: key.NewBinding(key.WithKeys("ctrl+c")),
	Escape:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	Logout:    key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "logout")),
}
