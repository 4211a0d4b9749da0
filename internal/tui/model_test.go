package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thenoetrevino/kanban/internal/apiclient"
	"github.com/thenoetrevino/kanban/internal/boardstate"
	"github.com/thenoetrevino/kanban/internal/config"
	"github.com/thenoetrevino/kanban/internal/events"
	"github.com/thenoetrevino/kanban/internal/models"
)

type fakeAPI struct {
	moveErr error
	moves   []apiclient.MoveTask
}

func (f *fakeAPI) GetBoard(_ context.Context, id int) (*models.BoardSnapshot, error) {
	return &models.BoardSnapshot{
		Board: &models.Board{ID: id, Title: "Roadmap", OwnerID: "alice", Members: []string{"alice"}},
		Lists: []*models.List{
			{ID: 10, BoardID: id, Title: "Todo", Position: 0},
			{ID: 20, BoardID: id, Title: "Done", Position: 1},
		},
		Tasks: []*models.Task{
			{ID: 1, ListID: 10, BoardID: id, Title: "Write docs", Position: 0, Description: "**soon**"},
			{ID: 2, ListID: 10, BoardID: id, Title: "Ship it", Position: 1},
		},
		Seq: 3,
	}, nil
}

func (f *fakeAPI) MoveTask(_ context.Context, m apiclient.MoveTask) (*events.TaskMovedPayload, error) {
	f.moves = append(f.moves, m)
	if f.moveErr != nil {
		return nil, f.moveErr
	}
	p := &events.TaskMovedPayload{
		Task:              &models.Task{ID: m.TaskID, ListID: m.DestinationListID, BoardID: 1, Title: "Write docs"},
		SourceListID:      m.SourceListID,
		DestinationListID: m.DestinationListID,
		NewIndex:          0,
		SourceOrder:       []int{2},
		DestinationOrder:  []int{1},
	}
	return p, nil
}

func (f *fakeAPI) MoveList(_ context.Context, listID, newIndex int) ([]*models.List, error) {
	if f.moveErr != nil {
		return nil, f.moveErr
	}
	return []*models.List{{ID: 20, Position: 0}, {ID: 10, Position: 1}}, nil
}

func newModel(t *testing.T, api *fakeAPI) Model {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	rec := boardstate.New(api, 1, boardstate.WithLogger(log))
	require.NoError(t, rec.Load(context.Background()))
	return New(context.Background(), rec, config.Default())
}

func press(t *testing.T, m Model, s string) (Model, tea.Cmd) {
	t.Helper()
	r := []rune(s)[0]
	next, cmd := m.Update(tea.KeyPressMsg{Code: r, Text: s})
	return next.(Model), cmd
}

// run executes cmd and feeds its message back, as the program would
func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	require.NotNil(t, cmd)
	next, _ := m.Update(cmd())
	return next.(Model)
}

func TestNavigation(t *testing.T) {
	m := newModel(t, &fakeAPI{})

	m, _ = press(t, m, "j")
	assert.Equal(t, 2, m.selectedTaskID())

	m, _ = press(t, m, "j")
	assert.Equal(t, 2, m.selectedTaskID(), "the cursor stops at the last task")

	m, _ = press(t, m, "l")
	assert.Equal(t, 1, m.selList)
	assert.Equal(t, 0, m.selectedTaskID(), "the second list is empty")

	m, _ = press(t, m, "h")
	assert.Equal(t, 0, m.selList)
}

func TestMoveTaskRightIsOptimistic(t *testing.T) {
	api := &fakeAPI{}
	m := newModel(t, api)

	m, cmd := press(t, m, "L")
	assert.Equal(t, []int{1}, m.state.TaskIDs(20), "the card moves before the server answers")
	assert.True(t, m.pending[1])
	assert.Equal(t, 1, m.selList, "the cursor follows the card")
	assert.Contains(t, m.render(), "Write docs")

	m = run(t, m, cmd)
	require.Len(t, api.moves, 1)
	assert.Equal(t, apiclient.MoveTask{TaskID: 1, SourceListID: 10, DestinationListID: 20, NewPosition: 0}, api.moves[0])
	assert.False(t, m.pending[1])
	assert.NoError(t, m.Err())
	assert.Equal(t, []int{2}, m.state.TaskIDs(10))
	assert.Equal(t, []int{1}, m.state.TaskIDs(20))
}

func TestMoveTaskRejected(t *testing.T) {
	api := &fakeAPI{moveErr: &apiclient.Error{Status: 403, Message: "not a member"}}
	m := newModel(t, api)

	m, cmd := press(t, m, "L")
	m = run(t, m, cmd)

	assert.ErrorIs(t, m.Err(), models.ErrForbidden)
	assert.Equal(t, []int{1, 2}, m.state.TaskIDs(10), "the server's state is restored")
	assert.Empty(t, m.state.TaskIDs(20))
	assert.Contains(t, m.render(), "not a member")
}

func TestMoveTaskWithinList(t *testing.T) {
	m := newModel(t, &fakeAPI{})

	_, cmd := press(t, m, "K")
	assert.Nil(t, cmd, "the first task cannot move up")

	m, cmd = press(t, m, "J")
	require.NotNil(t, cmd)
	assert.Equal(t, []int{2, 1}, m.state.TaskIDs(10))
	assert.Equal(t, 1, m.selTask)
}

func TestMoveList(t *testing.T) {
	m := newModel(t, &fakeAPI{})

	m, cmd := press(t, m, ">")
	assert.Equal(t, []int{20, 10}, m.state.ListIDs())
	assert.Equal(t, 1, m.selList)

	m = run(t, m, cmd)
	assert.NoError(t, m.Err())
	assert.Equal(t, []int{20, 10}, m.state.ListIDs())
}

func TestModes(t *testing.T) {
	m := newModel(t, &fakeAPI{})

	m, _ = press(t, m, "?")
	assert.Equal(t, helpMode, m.mode)
	assert.Contains(t, m.render(), "move task right")

	next, _ := m.Update(tea.KeyPressMsg{Code: tea.KeyEscape})
	m = next.(Model)
	assert.Equal(t, boardMode, m.mode)

	next, _ = m.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	m = next.(Model)
	assert.Equal(t, detailMode, m.mode)
	assert.Contains(t, m.render(), "soon")

	_, cmd := press(t, m, "q")
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestStateAndConnectionMessages(t *testing.T) {
	m := newModel(t, &fakeAPI{})
	m.selTask = 1

	st := m.state.Clone()
	st.Tasks[10] = st.Tasks[10][:1]
	next, _ := m.Update(StateMsg{State: st})
	m = next.(Model)
	assert.Equal(t, 0, m.selTask, "the cursor is clamped to the new state")

	next, _ = m.Update(ConnMsg{Live: true})
	m = next.(Model)
	assert.True(t, strings.Contains(m.render(), "live"))

	next, _ = m.Update(GoneMsg{})
	m = next.(Model)
	assert.ErrorIs(t, m.Err(), boardstate.ErrBoardGone)

	_, cmd := press(t, m, "L")
	assert.Nil(t, cmd, "nothing moves on a board that is gone")
}

func TestRefresh(t *testing.T) {
	m := newModel(t, &fakeAPI{})

	m, cmd := press(t, m, "r")
	m = run(t, m, cmd)
	assert.Equal(t, "refreshed", m.notice)
	assert.NoError(t, m.Err())
	assert.False(t, errors.Is(m.Err(), context.Canceled))
}
