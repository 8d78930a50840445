package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit     key.Binding
	NextPane key.Binding
	PrevPane key.Binding
	Chat     key.Binding
	Personas key.Binding
	Docs     key.Binding

	Send    key.Binding
	Newline key.Binding
	Clear   key.Binding
	Theme   key.Binding
	Title   key.Binding
	Export  key.Binding
	Scroll  key.Binding

	Up      key.Binding
	Down    key.Binding
	Select  key.Binding
	New     key.Binding
	Edit    key.Binding
	Delete  key.Binding
	Refresh key.Binding
	Upload  key.Binding
	Filter  key.Binding
	Sort    key.Binding
	Chunk   key.Binding

	Yes    key.Binding
	No     key.Binding
	Submit key.Binding
	Cancel key.Binding
}

var keys = keyMap{
	Quit:     key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	NextPane: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next pane")),
	PrevPane: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev pane")),
	Chat:     key.NewBinding(key.WithKeys("f1"), key.WithHelp("f1", "chat")),
	Personas: key.NewBinding(key.WithKeys("f2"), key.WithHelp("f2", "personas")),
	Docs:     key.NewBinding(key.WithKeys("f3"), key.WithHelp("f3", "documents")),

	Send:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
	Newline: key.NewBinding(key.WithKeys("alt+enter"), key.WithHelp("alt+enter", "newline")),
	Clear:   key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "clear")),
	Theme:   key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "theme")),
	Title:   key.NewBinding(key.WithKeys("ctrl+e"), key.WithHelp("ctrl+e", "title")),
	Export:  key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "export")),
	Scroll:  key.NewBinding(key.WithKeys("pgup", "pgdown"), key.WithHelp("pgup/pgdn", "scroll")),

	Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Select:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
	New:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new")),
	Edit:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
	Delete:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
	Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Upload:  key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "upload")),
	Filter:  key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "filter")),
	Sort:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort")),
	Chunk:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "chunk size")),

	Yes:    key.NewBinding(key.WithKeys("y", "Y"), key.WithHelp("y", "yes")),
	No:     key.NewBinding(key.WithKeys("n", "N", "esc"), key.WithHelp("n", "no")),
	Submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
	Cancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
}

func (k keyMap) chatHelp() []key.Binding {
	return []key.Binding{k.Send, k.Newline, k.Clear, k.Theme, k.Title, k.Export, k.NextPane, k.Quit}
}

func (k keyMap) personasHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Select, k.New, k.Edit, k.Delete, k.Refresh, k.NextPane, k.Quit}
}

func (k keyMap) docsHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Upload, k.Delete, k.Filter, k.Sort, k.Chunk, k.Refresh, k.NextPane, k.Quit}
}
