package boardstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thenoetrevino/kanban/internal/events"
	"github.com/thenoetrevino/kanban/internal/models"
)

// snapshot builds a board with lists 10 and 20; list 10 holds tasks 1,2,3
// and list 20 holds task 4
func snapshot(seq int64) *models.BoardSnapshot {
	return &models.BoardSnapshot{
		Board: &models.Board{ID: 1, Title: "Board", OwnerID: "alice", Members: []string{"alice", "bob"}},
		Lists: []*models.List{
			{ID: 20, BoardID: 1, Title: "Done", Position: 1},
			{ID: 10, BoardID: 1, Title: "Todo", Position: 0},
		},
		Tasks: []*models.Task{
			{ID: 3, ListID: 10, BoardID: 1, Title: "c", Position: 2},
			{ID: 1, ListID: 10, BoardID: 1, Title: "a", Position: 0, Assignees: []string{"bob"}},
			{ID: 4, ListID: 20, BoardID: 1, Title: "d", Position: 0},
			{ID: 2, ListID: 10, BoardID: 1, Title: "b", Position: 1},
		},
		Seq: seq,
	}
}

func event(t *testing.T, typ events.EventType, seq int64, payload any) events.Event {
	t.Helper()
	ev, err := events.New(1, typ, "bob", payload)
	require.NoError(t, err)
	ev.Seq = seq
	return ev
}

func assertDense(t *testing.T, s *State) {
	t.Helper()
	for i, l := range s.Lists {
		assert.Equal(t, i, l.Position, "list %d", l.ID)
	}
	for listID, tasks := range s.Tasks {
		for i, task := range tasks {
			assert.Equal(t, i, task.Position, "task %d", task.ID)
			assert.Equal(t, listID, task.ListID, "task %d", task.ID)
		}
	}
}

func TestFromSnapshotSorts(t *testing.T) {
	s := FromSnapshot(snapshot(5))

	assert.Equal(t, []int{10, 20}, s.ListIDs())
	assert.Equal(t, []int{1, 2, 3}, s.TaskIDs(10))
	assert.Equal(t, []int{4}, s.TaskIDs(20))
	assert.Equal(t, int64(5), s.Seq)
	assertDense(t, s)
}

func TestCloneIsDeep(t *testing.T) {
	s := FromSnapshot(snapshot(0))
	c := s.Clone()

	c.Tasks[10][0].Title = "changed"
	c.Tasks[10][0].Assignees[0] = "carol"
	c.Board.Members[0] = "mallory"

	assert.Equal(t, "a", s.Tasks[10][0].Title)
	assert.Equal(t, "bob", s.Tasks[10][0].Assignees[0])
	assert.Equal(t, "alice", s.Board.Members[0])
}

func TestMoveTaskWithinList(t *testing.T) {
	s := FromSnapshot(snapshot(0))

	src, final, err := s.MoveTask(1, 10, 2)
	require.NoError(t, err)

	assert.Equal(t, 10, src)
	assert.Equal(t, 2, final)
	assert.Equal(t, []int{2, 3, 1}, s.TaskIDs(10))
	assertDense(t, s)
}

func TestMoveTaskAcrossListsClamps(t *testing.T) {
	s := FromSnapshot(snapshot(0))

	src, final, err := s.MoveTask(2, 20, 99)
	require.NoError(t, err)

	assert.Equal(t, 10, src)
	assert.Equal(t, 1, final)
	assert.Equal(t, []int{1, 3}, s.TaskIDs(10))
	assert.Equal(t, []int{4, 2}, s.TaskIDs(20))
	assertDense(t, s)
}

func TestMoveTaskErrors(t *testing.T) {
	s := FromSnapshot(snapshot(0))

	_, _, err := s.MoveTask(99, 10, 0)
	assert.ErrorIs(t, err, ErrUnknownTask)

	_, _, err = s.MoveTask(1, 99, 0)
	assert.ErrorIs(t, err, ErrUnknownList)

	_, _, err = s.MoveTask(1, 20, -1)
	assert.ErrorIs(t, err, models.ErrValidation)

	assert.Equal(t, []int{1, 2, 3}, s.TaskIDs(10), "failed moves leave the state alone")
}

func TestStateMoveList(t *testing.T) {
	s := FromSnapshot(snapshot(0))

	final, err := s.MoveList(10, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, final)
	assert.Equal(t, []int{20, 10}, s.ListIDs())
	assertDense(t, s)

	_, err = s.MoveList(99, 0)
	assert.ErrorIs(t, err, ErrUnknownList)
}

func movedPayload() events.TaskMovedPayload {
	return events.TaskMovedPayload{
		Task:              &models.Task{ID: 2, ListID: 20, BoardID: 1, Title: "b (moved)", Position: 0},
		SourceListID:      10,
		DestinationListID: 20,
		NewIndex:          0,
		SourceOrder:       []int{1, 3},
		DestinationOrder:  []int{2, 4},
	}
}

func TestApplyTaskMovedIsIdempotent(t *testing.T) {
	s := FromSnapshot(snapshot(0))
	p := movedPayload()

	require.True(t, s.ApplyTaskMoved(p))
	once := s.Clone()

	require.True(t, s.ApplyTaskMoved(p))
	assert.Equal(t, once, s, "applying the same move twice must not change the result")

	assert.Equal(t, []int{1, 3}, s.TaskIDs(10))
	assert.Equal(t, []int{2, 4}, s.TaskIDs(20))
	task, _ := s.Task(2)
	assert.Equal(t, "b (moved)", task.Title)
	assertDense(t, s)
}

func TestApplyTaskMovedAfterOptimisticMove(t *testing.T) {
	s := FromSnapshot(snapshot(0))

	_, _, err := s.MoveTask(2, 20, 0)
	require.NoError(t, err)
	require.True(t, s.ApplyTaskMoved(movedPayload()))

	assert.Equal(t, []int{1, 3}, s.TaskIDs(10))
	assert.Equal(t, []int{2, 4}, s.TaskIDs(20))
	assertDense(t, s)
}

func TestApplyTaskMovedRejectsMismatch(t *testing.T) {
	s := FromSnapshot(snapshot(0))
	p := movedPayload()
	p.DestinationOrder = []int{2, 4, 77}

	assert.False(t, s.ApplyTaskMoved(p))
	assert.Equal(t, []int{1, 2, 3}, s.TaskIDs(10), "a rejected patch changes nothing")
	assert.Equal(t, []int{4}, s.TaskIDs(20))
}

func TestApplyEvents(t *testing.T) {
	tests := []struct {
		name    string
		ev      func(t *testing.T) events.Event
		refetch bool
		check   func(t *testing.T, s *State)
	}{
		{
			name: "task created",
			ev: func(t *testing.T) events.Event {
				return event(t, events.TaskCreated, 1, &models.Task{ID: 5, ListID: 20, BoardID: 1, Title: "e", Position: 1})
			},
			check: func(t *testing.T, s *State) {
				assert.Equal(t, []int{4, 5}, s.TaskIDs(20))
			},
		},
		{
			name: "task created twice",
			ev: func(t *testing.T) events.Event {
				return event(t, events.TaskCreated, 1, &models.Task{ID: 1, ListID: 10, BoardID: 1, Title: "a2", Position: 0})
			},
			check: func(t *testing.T, s *State) {
				assert.Equal(t, []int{1, 2, 3}, s.TaskIDs(10))
				task, _ := s.Task(1)
				assert.Equal(t, "a2", task.Title)
			},
		},
		{
			name: "task created in unknown list",
			ev: func(t *testing.T) events.Event {
				return event(t, events.TaskCreated, 1, &models.Task{ID: 5, ListID: 99, BoardID: 1})
			},
			refetch: true,
		},
		{
			name: "task updated",
			ev: func(t *testing.T) events.Event {
				return event(t, events.TaskUpdated, 1, &models.Task{ID: 3, ListID: 10, BoardID: 1, Title: "c2", Position: 2})
			},
			check: func(t *testing.T, s *State) {
				task, _ := s.Task(3)
				assert.Equal(t, "c2", task.Title)
				assert.Equal(t, 2, task.Position)
			},
		},
		{
			name: "task deleted",
			ev: func(t *testing.T) events.Event {
				return event(t, events.TaskDeleted, 1, events.TaskDeletedPayload{TaskID: 2, ListID: 10, BoardID: 1, Order: []int{1, 3}})
			},
			check: func(t *testing.T, s *State) {
				assert.Equal(t, []int{1, 3}, s.TaskIDs(10))
				_, ok := s.Task(2)
				assert.False(t, ok)
			},
		},
		{
			name: "task deleted with stale order",
			ev: func(t *testing.T) events.Event {
				return event(t, events.TaskDeleted, 1, events.TaskDeletedPayload{TaskID: 2, ListID: 10, BoardID: 1, Order: []int{1}})
			},
			refetch: true,
		},
		{
			name: "list created",
			ev: func(t *testing.T) events.Event {
				return event(t, events.ListCreated, 1, &models.List{ID: 30, BoardID: 1, Title: "Doing", Position: 1})
			},
			check: func(t *testing.T, s *State) {
				assert.Equal(t, []int{10, 30, 20}, s.ListIDs())
				assert.Empty(t, s.TaskIDs(30))
			},
		},
		{
			name: "list updated",
			ev: func(t *testing.T) events.Event {
				return event(t, events.ListUpdated, 1, &models.List{ID: 20, BoardID: 1, Title: "Shipped", Position: 1})
			},
			check: func(t *testing.T, s *State) {
				l, _ := s.List(20)
				assert.Equal(t, "Shipped", l.Title)
			},
		},
		{
			name: "list deleted",
			ev: func(t *testing.T) events.Event {
				return event(t, events.ListDeleted, 1, events.ListDeletedPayload{ListID: 10, BoardID: 1, Order: []int{20}})
			},
			check: func(t *testing.T, s *State) {
				assert.Equal(t, []int{20}, s.ListIDs())
				_, ok := s.Task(1)
				assert.False(t, ok, "tasks go with their list")
			},
		},
		{
			name: "lists reordered",
			ev: func(t *testing.T) events.Event {
				return event(t, events.ListsReordered, 1, events.ListsReorderedPayload{BoardID: 1, Order: []int{20, 10}})
			},
			check: func(t *testing.T, s *State) {
				assert.Equal(t, []int{20, 10}, s.ListIDs())
			},
		},
		{
			name: "lists reordered with unknown list",
			ev: func(t *testing.T) events.Event {
				return event(t, events.ListsReordered, 1, events.ListsReorderedPayload{BoardID: 1, Order: []int{20, 10, 30}})
			},
			refetch: true,
		},
		{
			name: "board updated",
			ev: func(t *testing.T) events.Event {
				return event(t, events.BoardUpdated, 1, &models.Board{ID: 1, Title: "Renamed", OwnerID: "alice", Members: []string{"alice", "bob"}})
			},
			check: func(t *testing.T, s *State) {
				assert.Equal(t, "Renamed", s.Board.Title)
			},
		},
		{
			name: "member removed",
			ev: func(t *testing.T) events.Event {
				return event(t, events.MemberRemoved, 1, events.MemberPayload{BoardID: 1, UserID: "bob", Members: []string{"alice"}})
			},
			check: func(t *testing.T, s *State) {
				assert.Equal(t, []string{"alice"}, s.Board.Members)
				task, _ := s.Task(1)
				assert.Empty(t, task.Assignees)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := FromSnapshot(snapshot(0))
			refetch, err := s.Apply(tt.ev(t))
			require.NoError(t, err)
			assert.Equal(t, tt.refetch, refetch)
			if tt.check != nil {
				tt.check(t, s)
				assertDense(t, s)
			}
		})
	}
}

func TestApplyBadPayload(t *testing.T) {
	s := FromSnapshot(snapshot(0))
	ev := events.Event{Type: events.TaskMoved, BoardID: 1, Payload: []byte(`{"task":`)}

	refetch, err := s.Apply(ev)
	assert.Error(t, err)
	assert.True(t, refetch)
}
