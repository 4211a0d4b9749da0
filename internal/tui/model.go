// Package tui is the terminal board viewer. It renders a boardstate
// reconciler and turns key presses into optimistic moves.
package tui

import (
	"context"
	"errors"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"

	"github.com/thenoetrevino/kanban/internal/boardstate"
	"github.com/thenoetrevino/kanban/internal/config"
)

type mode int

const (
	boardMode mode = iota
	detailMode
	helpMode
)

// StateMsg delivers a new copy of the board, sent by the reconciler
type StateMsg struct{ State *boardstate.State }

// GoneMsg tells the viewer the board was deleted or access was lost
type GoneMsg struct{}

// ConnMsg reports whether live updates are flowing
type ConnMsg struct{ Live bool }

// moveDoneMsg is the server's answer to a move
type moveDoneMsg struct {
	taskID int
	err    error
}

// Model is the bubbletea model of the board viewer
type Model struct {
	ctx    context.Context
	rec    *boardstate.Reconciler
	keys   keyMap
	help   help.Model
	styles styles

	state   *boardstate.State
	mode    mode
	width   int
	height  int
	selList int
	selTask int
	pending map[int]bool // task ids with a move in flight
	live    bool
	gone    bool
	notice  string
	err     error
}

// New creates the viewer for a loaded reconciler
func New(ctx context.Context, rec *boardstate.Reconciler, cfg *config.Config) Model {
	return Model{
		ctx:     ctx,
		rec:     rec,
		keys:    newKeyMap(cfg.KeyMappings),
		help:    help.New(),
		styles:  newStyles(cfg.ColorScheme),
		state:   rec.State(),
		pending: map[int]bool{},
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case StateMsg:
		m.state = msg.State
		m.clampSelection()
		return m, nil

	case GoneMsg:
		m.gone = true
		m.err = boardstate.ErrBoardGone
		return m, nil

	case ConnMsg:
		m.live = msg.Live
		return m, nil

	case moveDoneMsg:
		delete(m.pending, msg.taskID)
		m.err = msg.err
		if msg.err != nil {
			m.notice = ""
		}
		m.state = m.rec.State()
		m.followTask(msg.taskID)
		return m, nil

	case refreshDoneMsg:
		m.err = msg.err
		if msg.err == nil {
			m.notice = "refreshed"
		}
		m.state = m.rec.State()
		m.clampSelection()
		return m, nil

	case tea.KeyPressMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

type refreshDoneMsg struct{ err error }

func (m Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}

	switch m.mode {
	case detailMode, helpMode:
		if key.Matches(msg, m.keys.Back, m.keys.ViewTask, m.keys.Help) {
			m.mode = boardMode
		}
		return m, nil
	}

	m.notice = ""
	switch {
	case key.Matches(msg, m.keys.Help):
		m.mode = helpMode
	case key.Matches(msg, m.keys.ViewTask):
		if m.selectedTaskID() != 0 {
			m.mode = detailMode
		}
	case key.Matches(msg, m.keys.PrevList):
		m.selectList(m.selList - 1)
	case key.Matches(msg, m.keys.NextList):
		m.selectList(m.selList + 1)
	case key.Matches(msg, m.keys.PrevTask):
		if m.selTask > 0 {
			m.selTask--
		}
	case key.Matches(msg, m.keys.NextTask):
		if m.selTask < len(m.currentTaskIDs())-1 {
			m.selTask++
		}
	case key.Matches(msg, m.keys.MoveTaskLeft):
		return m.moveTask(-1, 0)
	case key.Matches(msg, m.keys.MoveTaskRight):
		return m.moveTask(1, 0)
	case key.Matches(msg, m.keys.MoveTaskUp):
		return m.moveTask(0, -1)
	case key.Matches(msg, m.keys.MoveTaskDown):
		return m.moveTask(0, 1)
	case key.Matches(msg, m.keys.MoveListLeft):
		return m.moveList(-1)
	case key.Matches(msg, m.keys.MoveListRight):
		return m.moveList(1)
	case key.Matches(msg, m.keys.Refresh):
		rec, ctx := m.rec, m.ctx
		return m, func() tea.Msg {
			return refreshDoneMsg{err: rec.Load(ctx)}
		}
	}
	return m, nil
}

// moveTask shifts the selected task by dList lists and dTask rows. The
// reconciler applies it locally before the command returns.
func (m Model) moveTask(dList, dTask int) (tea.Model, tea.Cmd) {
	if m.gone || m.state == nil {
		return m, nil
	}
	taskID := m.selectedTaskID()
	if taskID == 0 {
		return m, nil
	}
	destList := m.selList + dList
	if destList < 0 || destList >= len(m.state.Lists) {
		return m, nil
	}
	index := m.selTask + dTask
	if index < 0 {
		return m, nil
	}
	if dList == 0 && index >= len(m.currentTaskIDs()) {
		return m, nil
	}

	destListID := m.state.Lists[destList].ID
	if err := m.applyLocal(func(s *boardstate.State) error {
		_, _, err := s.MoveTask(taskID, destListID, index)
		return err
	}); err != nil {
		m.err = err
		return m, nil
	}
	m.pending[taskID] = true
	m.followTask(taskID)

	rec, ctx := m.rec, m.ctx
	return m, func() tea.Msg {
		return moveDoneMsg{taskID: taskID, err: rec.MoveTask(ctx, taskID, destListID, index)}
	}
}

func (m Model) moveList(delta int) (tea.Model, tea.Cmd) {
	if m.gone || m.state == nil || len(m.state.Lists) == 0 {
		return m, nil
	}
	index := m.selList + delta
	if index < 0 || index >= len(m.state.Lists) {
		return m, nil
	}
	listID := m.state.Lists[m.selList].ID
	if err := m.applyLocal(func(s *boardstate.State) error {
		_, err := s.MoveList(listID, index)
		return err
	}); err != nil {
		m.err = err
		return m, nil
	}
	m.selList = index

	rec, ctx := m.rec, m.ctx
	return m, func() tea.Msg {
		return moveDoneMsg{err: rec.MoveList(ctx, listID, index)}
	}
}

// applyLocal shows a move on the viewer's own copy right away; the
// reconciler does the same to its copy when the command runs
func (m *Model) applyLocal(fn func(*boardstate.State) error) error {
	next := m.state.Clone()
	if err := fn(next); err != nil {
		return err
	}
	m.state = next
	return nil
}

func (m Model) currentTaskIDs() []int {
	if m.state == nil || m.selList >= len(m.state.Lists) {
		return nil
	}
	return m.state.TaskIDs(m.state.Lists[m.selList].ID)
}

func (m Model) selectedTaskID() int {
	ids := m.currentTaskIDs()
	if m.selTask < 0 || m.selTask >= len(ids) {
		return 0
	}
	return ids[m.selTask]
}

func (m *Model) selectList(i int) {
	if m.state == nil || i < 0 || i >= len(m.state.Lists) {
		return
	}
	m.selList = i
	m.clampSelection()
}

// followTask moves the cursor to wherever taskID now is
func (m *Model) followTask(taskID int) {
	if m.state != nil && taskID != 0 {
		if t, ok := m.state.Task(taskID); ok {
			for i, l := range m.state.Lists {
				if l.ID == t.ListID {
					m.selList = i
					m.selTask = t.Position
					return
				}
			}
		}
	}
	m.clampSelection()
}

func (m *Model) clampSelection() {
	if m.state == nil {
		return
	}
	if m.selList >= len(m.state.Lists) {
		m.selList = max(len(m.state.Lists)-1, 0)
	}
	if n := len(m.currentTaskIDs()); m.selTask >= n {
		m.selTask = max(n-1, 0)
	}
}

// Err returns the last error shown in the status bar
func (m Model) Err() error {
	if m.err == nil || errors.Is(m.err, context.Canceled) {
		return nil
	}
	return m.err
}
