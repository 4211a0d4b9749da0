package tui

import (
	"charm.land/bubbles/v2/key"

	"github.com/thenoetrevino/kanban/internal/config"
)

// keyMap is the board viewer's bindings, built from the configured mappings
type keyMap struct {
	PrevList      key.Binding
	NextList      key.Binding
	PrevTask      key.Binding
	NextTask      key.Binding
	MoveTaskLeft  key.Binding
	MoveTaskRight key.Binding
	MoveTaskUp    key.Binding
	MoveTaskDown  key.Binding
	MoveListLeft  key.Binding
	MoveListRight key.Binding
	ViewTask      key.Binding
	Refresh       key.Binding
	Help          key.Binding
	Back          key.Binding
	Quit          key.Binding
}

func newKeyMap(km config.KeyMappings) keyMap {
	return keyMap{
		PrevList:      key.NewBinding(key.WithKeys(km.PrevList, "left"), key.WithHelp(km.PrevList, "prev list")),
		NextList:      key.NewBinding(key.WithKeys(km.NextList, "right"), key.WithHelp(km.NextList, "next list")),
		PrevTask:      key.NewBinding(key.WithKeys(km.PrevTask, "up"), key.WithHelp(km.PrevTask, "prev task")),
		NextTask:      key.NewBinding(key.WithKeys(km.NextTask, "down"), key.WithHelp(km.NextTask, "next task")),
		MoveTaskLeft:  key.NewBinding(key.WithKeys(km.MoveTaskLeft), key.WithHelp(km.MoveTaskLeft, "move task left")),
		MoveTaskRight: key.NewBinding(key.WithKeys(km.MoveTaskRight), key.WithHelp(km.MoveTaskRight, "move task right")),
		MoveTaskUp:    key.NewBinding(key.WithKeys(km.MoveTaskUp), key.WithHelp(km.MoveTaskUp, "move task up")),
		MoveTaskDown:  key.NewBinding(key.WithKeys(km.MoveTaskDown), key.WithHelp(km.MoveTaskDown, "move task down")),
		MoveListLeft:  key.NewBinding(key.WithKeys(km.MoveListLeft), key.WithHelp(km.MoveListLeft, "move list left")),
		MoveListRight: key.NewBinding(key.WithKeys(km.MoveListRight), key.WithHelp(km.MoveListRight, "move list right")),
		ViewTask:      key.NewBinding(key.WithKeys(km.ViewTask, "space", "enter"), key.WithHelp("space", "view task")),
		Refresh:       key.NewBinding(key.WithKeys(km.Refresh), key.WithHelp(km.Refresh, "refresh")),
		Help:          key.NewBinding(key.WithKeys(km.ShowHelp), key.WithHelp(km.ShowHelp, "help")),
		Back:          key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Quit:          key.NewBinding(key.WithKeys(km.Quit, "ctrl+c"), key.WithHelp(km.Quit, "quit")),
	}
}

// ShortHelp implements help.KeyMap
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.ViewTask, k.MoveTaskLeft, k.MoveTaskRight, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.PrevList, k.NextList, k.PrevTask, k.NextTask},
		{k.MoveTaskLeft, k.MoveTaskRight, k.MoveTaskUp, k.MoveTaskDown},
		{k.MoveListLeft, k.MoveListRight, k.ViewTask, k.Refresh},
		{k.Help, k.Back, k.Quit},
	}
}
