package tui

import "github.com/charmbracelet/bubbles/key"

// DashboardKeyMap is the key set of the queue dashboard.
type DashboardKeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Add      key.Binding
	Start    key.Binding
	Retry    key.Binding
	Discard  key.Binding
	Remove   key.Binding
	Clear    key.Binding
	Toggle   key.Binding
	Details  key.Binding
	Settings key.Binding
	Quit     key.Binding
}

// InputKeyMap is the key set of the add-to-queue popup.
type InputKeyMap struct {
	Submit key.Binding
	Cancel key.Binding
}

// SettingsKeyMap is the key set of the server settings page.
type SettingsKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Edit   key.Binding
	Reload key.Binding
	Close  key.Binding
}

var DashboardKeys = DashboardKeyMap{
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Add:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
	Start:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start queue")),
	Retry:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry")),
	Discard:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "discard")),
	Remove:   key.NewBinding(key.WithKeys("x", "delete"), key.WithHelp("x", "remove")),
	Clear:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear done")),
	Toggle:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "expand/collapse")),
	Details:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
	Settings: key.NewBinding(key.WithKeys(","), key.WithHelp(",", "settings")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

var InputKeys = InputKeyMap{
	Submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "add to queue")),
	Cancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
}

var SettingsKeys = SettingsKeyMap{
	Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Edit:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "edit/save")),
	Reload: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
	Close:  key.NewBinding(key.WithKeys("esc", ","), key.WithHelp("esc", "close")),
}

func (k DashboardKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Add, k.Start, k.Retry, k.Remove, k.Clear, k.Toggle, k.Settings, k.Quit}
}

func (k DashboardKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Details, k.Toggle},
		{k.Add, k.Start, k.Clear},
		{k.Retry, k.Discard, k.Remove},
		{k.Settings, k.Quit},
	}
}

func (k InputKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Cancel}
}

func (k InputKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

func (k SettingsKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Edit, k.Reload, k.Close}
}

func (k SettingsKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
