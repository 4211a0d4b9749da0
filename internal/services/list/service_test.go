package list

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thenoetrevino/kanban/internal/database"
	"github.com/thenoetrevino/kanban/internal/events"
	"github.com/thenoetrevino/kanban/internal/models"
	"github.com/thenoetrevino/kanban/internal/position"
	"github.com/thenoetrevino/kanban/internal/scopelock"
	"github.com/thenoetrevino/kanban/internal/testutil"
)

func setup(t *testing.T) (*database.Repository, Service, *events.Recorder, *models.Board) {
	t.Helper()
	repo := testutil.NewStore(t)
	rec := events.NewRecorder(256)
	b := testutil.Board(t, repo, "alice", "bob")
	return repo, NewService(repo, rec, scopelock.New()), rec, b
}

func titles(lists []*models.List) []string {
	out := make([]string, len(lists))
	for i, l := range lists {
		out[i] = l.Title
	}
	return out
}

func positions(t *testing.T, repo database.DataStore, boardID int) []position.Item {
	t.Helper()
	items, err := repo.GetListPositions(context.Background(), boardID)
	require.NoError(t, err)
	return items
}

func TestCreateList_AppendsAndBroadcasts(t *testing.T) {
	t.Parallel()
	repo, svc, rec, b := setup(t)
	ctx := context.Background()

	first, err := svc.CreateList(ctx, "alice", b.ID, "To Do")
	require.NoError(t, err)
	second, err := svc.CreateList(ctx, "bob", b.ID, " Done ")
	require.NoError(t, err)

	assert.Equal(t, 0, first.Position)
	assert.Equal(t, 1, second.Position)
	assert.Equal(t, "Done", second.Title)
	assert.True(t, position.Dense(positions(t, repo, b.ID)))

	evs := rec.Events()
	require.Len(t, evs, 2)
	assert.Equal(t, events.ListCreated, evs[1].Type)
	assert.Equal(t, "bob", evs[1].ActorID)
}

func TestCreateList_Errors(t *testing.T) {
	t.Parallel()
	_, svc, _, b := setup(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		actor   string
		boardID int
		title   string
		wantErr error
	}{
		{"empty title", "alice", b.ID, "  ", ErrEmptyTitle},
		{"missing board", "alice", 9999, "x", models.ErrNotFound},
		{"invalid board", "alice", 0, "x", ErrInvalidBoardID},
		{"non member", "mallory", b.ID, "x", models.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateList(ctx, tt.actor, tt.boardID, tt.title)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestMoveList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		from int
		to   int
		want []string
	}{
		{"first to last", 0, 2, []string{"B", "C", "A"}},
		{"last to first", 2, 0, []string{"C", "A", "B"}},
		{"past end appends", 0, 10, []string{"B", "C", "A"}},
		{"no-op", 1, 1, []string{"A", "B", "C"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			repo, svc, rec, b := setup(t)
			ls := []*models.List{
				testutil.List(t, repo, b.ID, "A"),
				testutil.List(t, repo, b.ID, "B"),
				testutil.List(t, repo, b.ID, "C"),
			}

			got, err := svc.MoveList(context.Background(), "alice", ls[tt.from].ID, tt.to)
			require.NoError(t, err)
			assert.Equal(t, tt.want, titles(got))
			assert.True(t, position.Dense(positions(t, repo, b.ID)))

			evs := rec.Events()
			require.Len(t, evs, 1)
			var p events.ListsReorderedPayload
			require.NoError(t, evs[0].Decode(&p))
			assert.Len(t, p.Order, 3)
			assert.Equal(t, got[0].ID, p.Order[0])
		})
	}
}

func TestMoveList_RandomSequenceStaysDense(t *testing.T) {
	t.Parallel()
	repo, svc, _, b := setup(t)
	var ids []int
	for _, title := range []string{"A", "B", "C", "D", "E", "F"} {
		ids = append(ids, testutil.List(t, repo, b.ID, title).ID)
	}

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 60; i++ {
		_, err := svc.MoveList(context.Background(), "bob", ids[rng.Intn(len(ids))], rng.Intn(len(ids)+2))
		require.NoError(t, err)
		items := positions(t, repo, b.ID)
		require.True(t, position.Dense(items), "after move %d: %v", i, items)
		require.Len(t, items, len(ids))
	}
}

func TestMoveList_Errors(t *testing.T) {
	t.Parallel()
	repo, svc, rec, b := setup(t)
	l := testutil.List(t, repo, b.ID, "A")

	_, err := svc.MoveList(context.Background(), "alice", 9999, 0)
	assert.ErrorIs(t, err, ErrListNotFound)
	_, err = svc.MoveList(context.Background(), "alice", l.ID, -1)
	assert.ErrorIs(t, err, ErrInvalidPosition)
	_, err = svc.MoveList(context.Background(), "mallory", l.ID, 0)
	assert.ErrorIs(t, err, models.ErrForbidden)
	assert.Empty(t, rec.Events())
}

func TestReorderLists_NormalizesPositions(t *testing.T) {
	t.Parallel()
	repo, svc, _, b := setup(t)
	a := testutil.List(t, repo, b.ID, "A")
	bb := testutil.List(t, repo, b.ID, "B")
	c := testutil.List(t, repo, b.ID, "C")
	d := testutil.List(t, repo, b.ID, "D")

	// sparse client positions, D omitted
	got, err := svc.ReorderLists(context.Background(), "alice", b.ID, []models.ListPosition{
		{ListID: c.ID, Position: 10},
		{ListID: a.ID, Position: 30},
		{ListID: bb.ID, Position: 20},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"C", "B", "A", "D"}, titles(got))
	for i, l := range got {
		assert.Equal(t, i, l.Position)
	}
	assert.Equal(t, d.ID, got[3].ID)
}

func TestReorderLists_Errors(t *testing.T) {
	t.Parallel()
	repo, svc, rec, b := setup(t)
	a := testutil.List(t, repo, b.ID, "A")
	testutil.List(t, repo, b.ID, "B")
	other := testutil.Board(t, repo, "alice")
	foreign := testutil.List(t, repo, other.ID, "X")
	rec.Events()

	tests := []struct {
		name    string
		order   []models.ListPosition
		wantErr error
	}{
		{"empty", nil, ErrEmptyOrder},
		{"duplicate", []models.ListPosition{{ListID: a.ID, Position: 0}, {ListID: a.ID, Position: 1}}, ErrDuplicateList},
		{"negative", []models.ListPosition{{ListID: a.ID, Position: -2}}, ErrInvalidPosition},
		{"foreign list", []models.ListPosition{{ListID: foreign.ID, Position: 0}}, ErrForeignList},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ReorderLists(context.Background(), "alice", b.ID, tt.order)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
	assert.Equal(t, []string{"A", "B"}, titles(mustLists(t, svc, b.ID)))
	assert.Empty(t, rec.Events())
}

func TestDeleteList_CascadesAndRecompacts(t *testing.T) {
	t.Parallel()
	repo, svc, rec, b := setup(t)
	a := testutil.List(t, repo, b.ID, "A")
	doomed := testutil.List(t, repo, b.ID, "B")
	c := testutil.List(t, repo, b.ID, "C")
	testutil.Tasks(t, repo, doomed, "t1", "t2")
	testutil.Tasks(t, repo, a, "keep")

	require.NoError(t, svc.DeleteList(context.Background(), "bob", doomed.ID))

	tasks, err := repo.GetTasksByBoard(context.Background(), b.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "keep", tasks[0].Title)

	items := positions(t, repo, b.ID)
	assert.True(t, position.Dense(items))
	assert.Equal(t, []int{a.ID, c.ID}, position.IDs(items))

	evs := rec.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, events.ListDeleted, evs[0].Type)
	var p events.ListDeletedPayload
	require.NoError(t, evs[0].Decode(&p))
	assert.Equal(t, doomed.ID, p.ListID)
	assert.Equal(t, []int{a.ID, c.ID}, p.Order)

	assert.ErrorIs(t, svc.DeleteList(context.Background(), "bob", doomed.ID), ErrListNotFound)
}

func TestUpdateList_RenamesWithoutMoving(t *testing.T) {
	t.Parallel()
	repo, svc, _, b := setup(t)
	testutil.List(t, repo, b.ID, "A")
	l := testutil.List(t, repo, b.ID, "B")

	updated, err := svc.UpdateList(context.Background(), "alice", l.ID, "Doing")
	require.NoError(t, err)
	assert.Equal(t, "Doing", updated.Title)
	assert.Equal(t, 1, updated.Position)

	entries, err := repo.ListActivity(context.Background(), b.ID, 10)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, models.ActionUpdatedList, entries[0].Action)
}

func mustLists(t *testing.T, svc Service, boardID int) []*models.List {
	t.Helper()
	lists, err := svc.GetLists(context.Background(), "alice", boardID)
	require.NoError(t, err)
	return lists
}
