package task

import (
	"context"
	"fmt"
	"testing"

	"github.com/thenoetrevino/kanban/internal/events"
	"github.com/thenoetrevino/kanban/internal/scopelock"
	"github.com/thenoetrevino/kanban/internal/testutil"
)

// BenchmarkMoveTask_WithinList measures a reorder inside a 50 task list
func BenchmarkMoveTask_WithinList(b *testing.B) {
	repo := testutil.NewStore(b)
	board := testutil.Board(b, repo, "alice")
	l := testutil.List(b, repo, board.ID, "Backlog")
	titles := make([]string, 50)
	for i := range titles {
		titles[i] = fmt.Sprintf("task %d", i)
	}
	tasks := testutil.Tasks(b, repo, l, titles...)
	svc := NewService(repo, events.Discard, scopelock.New())
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := svc.MoveTask(ctx, "alice", MoveTaskRequest{
			TaskID:            tasks[i%len(tasks)].ID,
			SourceListID:      l.ID,
			DestinationListID: l.ID,
			NewIndex:          (i * 7) % len(tasks),
		})
		if err != nil {
			b.Fatalf("move failed: %v", err)
		}
	}
}

// BenchmarkMoveTask_AcrossLists ping-pongs one task between two lists
func BenchmarkMoveTask_AcrossLists(b *testing.B) {
	repo := testutil.NewStore(b)
	board := testutil.Board(b, repo, "alice")
	left := testutil.List(b, repo, board.ID, "Left")
	right := testutil.List(b, repo, board.ID, "Right")
	testutil.Tasks(b, repo, left, "a", "b", "c")
	testutil.Tasks(b, repo, right, "x", "y", "z")
	moving := testutil.Tasks(b, repo, left, "moving")[0]
	svc := NewService(repo, events.Discard, scopelock.New())
	ctx := context.Background()

	src, dst := left.ID, right.ID
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := svc.MoveTask(ctx, "alice", MoveTaskRequest{
			TaskID:            moving.ID,
			SourceListID:      src,
			DestinationListID: dst,
			NewIndex:          i % 4,
		})
		if err != nil {
			b.Fatalf("move failed: %v", err)
		}
		src, dst = dst, src
	}
}
