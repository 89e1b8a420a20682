package tui

import "github.com/charmbracelet/bubbles/key"

// MainKeyMap defines key bindings for the two-pane main screen.
type MainKeyMap struct {
	Quit       key.Binding
	Help       key.Binding
	Config     key.Binding
	Up         key.Binding
	Down       key.Binding
	Left       key.Binding
	Right      key.Binding
	Select     key.Binding
	Search     key.Binding
	Sort       key.Binding
	MyIssues   key.Binding
	Grouping   key.Binding
	Collapse   key.Binding
	Refresh    key.Binding
	NewIssue   key.Binding
	EditIssue  key.Binding
	BulkMode   key.Binding
	BulkToggle key.Binding
	BulkAll    key.Binding
	BulkClear  key.Binding
	BulkEdit   key.Binding
	Back       key.Binding
}

var MainKeys = MainKeyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Config: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "config"),
	),
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	Left: key.NewBinding(
		key.WithKeys("h", "left"),
		key.WithHelp("h/←", "projects pane"),
	),
	Right: key.NewBinding(
		key.WithKeys("l", "right", "tab"),
		key.WithHelp("l/→", "issues pane"),
	),
	Select: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "open"),
	),
	Search: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "search"),
	),
	Sort: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "cycle sort"),
	),
	MyIssues: key.NewBinding(
		key.WithKeys("m"),
		key.WithHelp("m", "my issues"),
	),
	Grouping: key.NewBinding(
		key.WithKeys("g"),
		key.WithHelp("g", "group by status"),
	),
	Collapse: key.NewBinding(
		key.WithKeys("z"),
		key.WithHelp("z", "fold"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	NewIssue: key.NewBinding(
		key.WithKeys("n"),
		key.WithHelp("n", "new issue"),
	),
	EditIssue: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "edit/comment"),
	),
	BulkMode: key.NewBinding(
		key.WithKeys("b"),
		key.WithHelp("b", "bulk select"),
	),
	BulkToggle: key.NewBinding(
		key.WithKeys(" "),
		key.WithHelp("space", "toggle select"),
	),
	BulkAll: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "select all"),
	),
	BulkClear: key.NewBinding(
		key.WithKeys("x"),
		key.WithHelp("x", "clear selection"),
	),
	BulkEdit: key.NewBinding(
		key.WithKeys("B"),
		key.WithHelp("B", "bulk edit"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "back"),
	),
}

// FormKeyMap defines key bindings while a form is open.
type FormKeyMap struct {
	Next   key.Binding
	Prev   key.Binding
	Up     key.Binding
	Down   key.Binding
	Search key.Binding
	Pick   key.Binding
	Submit key.Binding
	Cancel key.Binding
}

var FormKeys = FormKeyMap{
	Next: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next field"),
	),
	Prev: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "prev field"),
	),
	Up: key.NewBinding(
		key.WithKeys("up"),
		key.WithHelp("↑", "prev option"),
	),
	Down: key.NewBinding(
		key.WithKeys("down"),
		key.WithHelp("↓", "next option"),
	),
	Search: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "search options"),
	),
	Pick: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "pick"),
	),
	Submit: key.NewBinding(
		key.WithKeys("ctrl+s"),
		key.WithHelp("ctrl+s", "submit"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "cancel"),
	),
}

// DetailKeyMap defines key bindings for the issue detail viewport.
type DetailKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Comment key.Binding
	Close   key.Binding
}

var DetailKeys = DetailKeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "scroll up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "scroll down"),
	),
	Comment: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "edit/comment"),
	),
	Close: key.NewBinding(
		key.WithKeys("esc", "q"),
		key.WithHelp("esc", "close"),
	),
}

// ConfigKeyMap defines key bindings for the settings screen.
type ConfigKeyMap struct {
	Next   key.Binding
	Prev   key.Binding
	Toggle key.Binding
	Save   key.Binding
	Cancel key.Binding
}

var ConfigKeys = ConfigKeyMap{
	Next: key.NewBinding(
		key.WithKeys("tab", "down"),
		key.WithHelp("tab", "next field"),
	),
	Prev: key.NewBinding(
		key.WithKeys("shift+tab", "up"),
		key.WithHelp("shift+tab", "prev field"),
	),
	Toggle: key.NewBinding(
		key.WithKeys(" ", "enter"),
		key.WithHelp("space", "toggle"),
	),
	Save: key.NewBinding(
		key.WithKeys("ctrl+s"),
		key.WithHelp("ctrl+s", "save"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "cancel"),
	),
}
