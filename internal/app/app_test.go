package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thenoetrevino/kanban/internal/events"
	"github.com/thenoetrevino/kanban/internal/models"
	boardservice "github.com/thenoetrevino/kanban/internal/services/board"
	taskservice "github.com/thenoetrevino/kanban/internal/services/task"
	"github.com/thenoetrevino/kanban/internal/testutil"
)

type fixedSeq int64

func (s fixedSeq) Current(context.Context, int) (int64, error) { return int64(s), nil }

func TestNew(t *testing.T) {
	repo := testutil.NewStore(t)

	app := New(repo)

	if app == nil {
		t.Fatal("Expected app to be created, got nil")
	}
	if app.Boards == nil || app.Lists == nil || app.Tasks == nil || app.Activity == nil {
		t.Fatalf("Expected every service to be initialized, got %+v", app)
	}
	if app.Repo() != repo {
		t.Error("Expected Repo to return the underlying store")
	}
}

func TestServicesSharePublisherAndSequences(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewStore(t)
	rec := events.NewRecorder(16)

	app := New(repo, WithPublisher(rec), WithSequences(fixedSeq(9)))

	b, err := app.Boards.CreateBoard(ctx, "alice", boardservice.CreateBoardRequest{Title: "Roadmap"})
	require.NoError(t, err)
	l, err := app.Lists.CreateList(ctx, "alice", b.ID, "Todo")
	require.NoError(t, err)
	_, err = app.Tasks.CreateTask(ctx, "alice", taskservice.CreateTaskRequest{ListID: l.ID, Title: "Ship"})
	require.NoError(t, err)

	var types []events.EventType
	for _, ev := range rec.Events() {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []events.EventType{events.ListCreated, events.TaskCreated}, types)

	snap, err := app.Boards.GetSnapshot(ctx, "alice", b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(9), snap.Seq)

	ok, err := app.IsMember(ctx, b.ID, "alice")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRememberUser(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewStore(t)
	app := New(repo)

	require.NoError(t, app.RememberUser(ctx, models.User{ID: "alice", Name: "Alice"}))
	require.NoError(t, app.RememberUser(ctx, models.User{ID: "alice", Name: "Alice L."}))

	u, err := repo.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice L.", u.Name)
}
