package boardstate

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thenoetrevino/kanban/internal/apiclient"
	"github.com/thenoetrevino/kanban/internal/events"
	"github.com/thenoetrevino/kanban/internal/models"
)

// fakeAPI serves a fixed snapshot and scripted move results
type fakeAPI struct {
	mu       sync.Mutex
	snap     *models.BoardSnapshot
	getErr   error
	moveErr  error
	moved    *events.TaskMovedPayload
	lists    []*models.List
	moves    []apiclient.MoveTask
	getCalls int
	// onMove runs after a move is accepted and before it is answered
	onMove func()
}

func (f *fakeAPI) GetBoard(_ context.Context, id int) (*models.BoardSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	// hand out a fresh copy, as a real client would
	return copySnapshot(f.snap), nil
}

func (f *fakeAPI) MoveTask(_ context.Context, m apiclient.MoveTask) (*events.TaskMovedPayload, error) {
	f.mu.Lock()
	f.moves = append(f.moves, m)
	moveErr, moved, onMove := f.moveErr, f.moved, f.onMove
	f.mu.Unlock()
	if moveErr != nil {
		return nil, moveErr
	}
	if onMove != nil {
		onMove()
	}
	return moved, nil
}

func (f *fakeAPI) MoveList(_ context.Context, listID, newIndex int) ([]*models.List, error) {
	if f.moveErr != nil {
		return nil, f.moveErr
	}
	return f.lists, nil
}

// copySnapshot deep-copies a snapshot through State
func copySnapshot(snap *models.BoardSnapshot) *models.BoardSnapshot {
	s := FromSnapshot(snap).Clone()
	out := &models.BoardSnapshot{Board: s.Board, Lists: s.Lists, Seq: s.Seq}
	for _, l := range s.Lists {
		out.Tasks = append(out.Tasks, s.Tasks[l.ID]...)
	}
	return out
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func newReconciler(t *testing.T, api *fakeAPI, opts ...Option) *Reconciler {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger()), WithUserID("alice")}, opts...)
	r := New(api, 1, opts...)
	require.NoError(t, r.Load(context.Background()))
	return r
}

func TestLoad(t *testing.T) {
	api := &fakeAPI{snap: snapshot(7)}
	r := newReconciler(t, api)

	st := r.State()
	assert.Equal(t, int64(7), r.Seq())
	assert.Equal(t, []int{1, 2, 3}, st.TaskIDs(10))
	assert.Equal(t, 1, r.Refetches())
}

func TestLoadNotFoundMarksGone(t *testing.T) {
	api := &fakeAPI{getErr: &apiclient.Error{Status: 404, Code: "not_found"}}
	r := New(api, 1, WithLogger(quietLogger()))

	err := r.Load(context.Background())
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.True(t, r.Gone())
}

func TestMoveTaskOptimisticThenConfirmed(t *testing.T) {
	p := movedPayload()
	api := &fakeAPI{snap: snapshot(0), moved: &p}

	var seen []*State
	r := newReconciler(t, api, WithOnChange(func(s *State) { seen = append(seen, s) }))
	seen = nil

	require.NoError(t, r.MoveTask(context.Background(), 2, 20, 0))

	require.Len(t, api.moves, 1)
	assert.Equal(t, apiclient.MoveTask{TaskID: 2, SourceListID: 10, DestinationListID: 20, NewPosition: 0}, api.moves[0])

	require.Len(t, seen, 1, "only the optimistic move changes the state")
	assert.Equal(t, []int{2, 4}, seen[0].TaskIDs(20), "the move shows before the server answers")

	st := r.State()
	assert.Equal(t, []int{1, 3}, st.TaskIDs(10))
	assert.Equal(t, []int{2, 4}, st.TaskIDs(20))
	assert.Equal(t, 1, r.Refetches(), "an accepted move needs no re-fetch")

	// the broadcast of the same move arrives afterwards
	require.NoError(t, r.HandleEvent(context.Background(), event(t, events.TaskMoved, 1, p)))
	assert.Equal(t, st.TaskIDs(20), r.State().TaskIDs(20))
	task, _ := r.State().Task(2)
	assert.Equal(t, "b (moved)", task.Title)
	assert.Equal(t, int64(1), r.Seq())
	assert.Equal(t, 1, r.Refetches())
}

func TestMoveTaskAnsweredAfterLaterBroadcasts(t *testing.T) {
	ownMove := events.TaskMovedPayload{
		Task:              &models.Task{ID: 1, ListID: 10, BoardID: 1, Title: "a", Position: 2},
		SourceListID:      10,
		DestinationListID: 10,
		NewIndex:          2,
		SourceOrder:       []int{2, 3, 1},
		DestinationOrder:  []int{2, 3, 1},
	}
	otherMove := events.TaskMovedPayload{
		Task:              &models.Task{ID: 3, ListID: 10, BoardID: 1, Title: "c", Position: 0},
		SourceListID:      10,
		DestinationListID: 10,
		NewIndex:          0,
		SourceOrder:       []int{3, 2, 1},
		DestinationOrder:  []int{3, 2, 1},
	}

	api := &fakeAPI{snap: snapshot(0), moved: &ownMove}
	r := newReconciler(t, api)

	// both broadcasts are merged before the response to alice's move arrives
	api.onMove = func() {
		require.NoError(t, r.HandleEvent(context.Background(), event(t, events.TaskMoved, 1, ownMove)))
		require.NoError(t, r.HandleEvent(context.Background(), event(t, events.TaskMoved, 2, otherMove)))
	}

	require.NoError(t, r.MoveTask(context.Background(), 1, 10, 2))

	assert.Equal(t, []int{3, 2, 1}, r.State().TaskIDs(10), "the later move must not be rewound")
	assert.Equal(t, int64(2), r.Seq())
	assert.Equal(t, 1, r.Refetches())
	assertDense(t, r.State())
}

func TestMoveTaskRejectedRestoresServerState(t *testing.T) {
	api := &fakeAPI{snap: snapshot(0), moveErr: &apiclient.Error{Status: 403, Code: "forbidden"}}
	r := newReconciler(t, api)

	err := r.MoveTask(context.Background(), 2, 20, 0)
	assert.ErrorIs(t, err, models.ErrForbidden)

	st := r.State()
	assert.Equal(t, []int{1, 2, 3}, st.TaskIDs(10), "the optimistic move is rolled back")
	assert.Equal(t, []int{4}, st.TaskIDs(20))
	assert.Equal(t, 2, r.Refetches())
}

func TestMoveTaskRefetchOnMove(t *testing.T) {
	p := movedPayload()
	api := &fakeAPI{snap: snapshot(0), moved: &p}
	r := newReconciler(t, api, WithRefetchOnMove(true))

	require.NoError(t, r.MoveTask(context.Background(), 2, 20, 0))
	assert.Equal(t, 2, r.Refetches())

	// every task:moved broadcast re-fetches too
	require.NoError(t, r.HandleEvent(context.Background(), event(t, events.TaskMoved, 1, p)))
	assert.Equal(t, 3, r.Refetches())
	assert.Equal(t, []int{1, 2, 3}, r.State().TaskIDs(10), "the server snapshot wins")
}

func TestMoveTaskUnknown(t *testing.T) {
	api := &fakeAPI{snap: snapshot(0)}
	r := newReconciler(t, api)

	err := r.MoveTask(context.Background(), 99, 20, 0)
	assert.ErrorIs(t, err, ErrUnknownTask)
	assert.Empty(t, api.moves, "nothing is sent for a task the client does not hold")
}

func TestMoveList(t *testing.T) {
	// the answer is stale: it still names the order before the move
	api := &fakeAPI{snap: snapshot(0), lists: []*models.List{{ID: 10, Position: 0}, {ID: 20, Position: 1}}}
	r := newReconciler(t, api)

	require.NoError(t, r.MoveList(context.Background(), 10, 1))
	assert.Equal(t, []int{20, 10}, r.State().ListIDs(), "the optimistic order stands")
	assert.Equal(t, 1, r.Refetches())

	require.NoError(t, r.HandleEvent(context.Background(), event(t, events.ListsReordered, 1, events.ListsReorderedPayload{BoardID: 1, Order: []int{20, 10}})))
	assert.Equal(t, []int{20, 10}, r.State().ListIDs())
	assert.Equal(t, 1, r.Refetches())

	api.moveErr = errors.New("boom")
	assert.Error(t, r.MoveList(context.Background(), 10, 0))
	assert.Equal(t, []int{10, 20}, r.State().ListIDs(), "the server's order wins after a failure")
}

func TestHandleEventSequencing(t *testing.T) {
	api := &fakeAPI{snap: snapshot(5)}
	r := newReconciler(t, api)
	ctx := context.Background()

	created := func(id int, seq int64) events.Event {
		return event(t, events.TaskCreated, seq, &models.Task{ID: id, ListID: 20, BoardID: 1, Position: 99})
	}

	// already reflected by the snapshot
	require.NoError(t, r.HandleEvent(ctx, created(50, 5)))
	assert.Equal(t, []int{4}, r.State().TaskIDs(20))

	require.NoError(t, r.HandleEvent(ctx, created(51, 6)))
	assert.Equal(t, []int{4, 51}, r.State().TaskIDs(20))
	assert.Equal(t, int64(6), r.Seq())

	// duplicate delivery
	require.NoError(t, r.HandleEvent(ctx, created(52, 6)))
	assert.Equal(t, []int{4, 51}, r.State().TaskIDs(20))
	assert.Equal(t, 1, r.Refetches())

	// a gap re-fetches and adopts the snapshot's sequence
	api.snap = snapshot(9)
	require.NoError(t, r.HandleEvent(ctx, created(53, 8)))
	assert.Equal(t, 2, r.Refetches())
	assert.Equal(t, int64(9), r.Seq())
	assert.Equal(t, []int{4}, r.State().TaskIDs(20))
}

func TestHandleEventUnsequenced(t *testing.T) {
	api := &fakeAPI{snap: snapshot(5)}
	r := newReconciler(t, api)

	ev := event(t, events.TaskCreated, 0, &models.Task{ID: 60, ListID: 20, BoardID: 1, Position: 1})
	require.NoError(t, r.HandleEvent(context.Background(), ev))
	assert.Equal(t, []int{4, 60}, r.State().TaskIDs(20))
	assert.Equal(t, int64(5), r.Seq())
}

func TestHandleEventMismatchRefetches(t *testing.T) {
	api := &fakeAPI{snap: snapshot(0)}
	r := newReconciler(t, api)

	p := movedPayload()
	p.SourceOrder = []int{1, 3, 42}
	require.NoError(t, r.HandleEvent(context.Background(), event(t, events.TaskMoved, 1, p)))
	assert.Equal(t, 2, r.Refetches())
}

func TestHandleEventResyncAndOtherBoards(t *testing.T) {
	api := &fakeAPI{snap: snapshot(0)}
	r := newReconciler(t, api)
	ctx := context.Background()

	require.NoError(t, r.HandleEvent(ctx, events.Event{Type: events.EventResync}))
	assert.Equal(t, 2, r.Refetches())

	other := event(t, events.TaskCreated, 1, &models.Task{ID: 70, ListID: 20})
	other.BoardID = 2
	require.NoError(t, r.HandleEvent(ctx, other))
	assert.Equal(t, []int{4}, r.State().TaskIDs(20))
}

func TestHandleEventBoardGone(t *testing.T) {
	ctx := context.Background()

	r := newReconciler(t, &fakeAPI{snap: snapshot(0)})
	err := r.HandleEvent(ctx, event(t, events.BoardDeleted, 1, events.BoardDeletedPayload{BoardID: 1}))
	assert.ErrorIs(t, err, ErrBoardGone)
	assert.True(t, r.Gone())
	assert.ErrorIs(t, r.MoveTask(ctx, 1, 20, 0), ErrBoardGone)

	r = newReconciler(t, &fakeAPI{snap: snapshot(0)})
	err = r.HandleEvent(ctx, event(t, events.MemberRemoved, 1, events.MemberPayload{BoardID: 1, UserID: "alice", Members: []string{"bob"}}))
	assert.ErrorIs(t, err, ErrBoardGone)

	r = newReconciler(t, &fakeAPI{snap: snapshot(0)})
	err = r.HandleEvent(ctx, event(t, events.MemberRemoved, 1, events.MemberPayload{BoardID: 1, UserID: "bob", Members: []string{"alice"}}))
	assert.NoError(t, err, "someone else leaving keeps the board open")
	assert.False(t, r.Gone())
}

func TestRunStopsWhenBoardGone(t *testing.T) {
	r := newReconciler(t, &fakeAPI{snap: snapshot(0)})

	in := make(chan events.Event, 2)
	in <- event(t, events.TaskCreated, 1, &models.Task{ID: 80, ListID: 10, BoardID: 1, Position: 3})
	in <- event(t, events.BoardDeleted, 2, events.BoardDeletedPayload{BoardID: 1})

	err := r.Run(context.Background(), in)
	assert.ErrorIs(t, err, ErrBoardGone)
	assert.Equal(t, []int{1, 2, 3, 80}, r.State().TaskIDs(10))
}
