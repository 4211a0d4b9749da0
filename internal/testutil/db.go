// Package testutil provides fixtures shared by package tests
package testutil

import (
	"context"
	"testing"

	"github.com/thenoetrevino/kanban/internal/database"
	"github.com/thenoetrevino/kanban/internal/models"
)

// NewStore opens an in-memory database with the full schema.
// Cleanup is automatic via t.Cleanup().
func NewStore(t testing.TB) *database.Repository {
	t.Helper()
	db, err := database.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return database.NewRepository(db)
}

// Board creates a board owned by owner with the extra members added
func Board(t testing.TB, repo database.DataStore, owner string, members ...string) *models.Board {
	t.Helper()
	ctx := context.Background()
	b, err := repo.CreateBoard(ctx, "Test Board", "", "", owner)
	if err != nil {
		t.Fatalf("Failed to create board: %v", err)
	}
	for _, m := range members {
		if err := repo.AddMember(ctx, b.ID, m); err != nil {
			t.Fatalf("Failed to add member %s: %v", m, err)
		}
	}
	b, err = repo.GetBoard(ctx, b.ID)
	if err != nil {
		t.Fatalf("Failed to reload board: %v", err)
	}
	return b
}

// List appends a list to the board
func List(t testing.TB, repo database.DataStore, boardID int, title string) *models.List {
	t.Helper()
	l, err := repo.CreateList(context.Background(), boardID, title)
	if err != nil {
		t.Fatalf("Failed to create list: %v", err)
	}
	return l
}

// Tasks appends one task per title to the list, in order
func Tasks(t testing.TB, repo database.DataStore, l *models.List, titles ...string) []*models.Task {
	t.Helper()
	out := make([]*models.Task, 0, len(titles))
	for _, title := range titles {
		task, err := repo.CreateTask(context.Background(), database.CreateTaskParams{
			ListID:  l.ID,
			BoardID: l.BoardID,
			Title:   title,
		})
		if err != nil {
			t.Fatalf("Failed to create task %q: %v", title, err)
		}
		out = append(out, task)
	}
	return out
}

// TaskTitles returns the titles of a list's tasks in position order
func TaskTitles(t testing.TB, repo database.DataStore, listID int) []string {
	t.Helper()
	tasks, err := repo.GetTasksByList(context.Background(), listID)
	if err != nil {
		t.Fatalf("Failed to load tasks: %v", err)
	}
	titles := make([]string, len(tasks))
	for i, task := range tasks {
		titles[i] = task.Title
	}
	return titles
}

// TaskPositions returns the positions of a list's tasks in position order
func TaskPositions(t testing.TB, repo database.DataStore, listID int) []int {
	t.Helper()
	tasks, err := repo.GetTasksByList(context.Background(), listID)
	if err != nil {
		t.Fatalf("Failed to load tasks: %v", err)
	}
	positions := make([]int, len(tasks))
	for i, task := range tasks {
		positions[i] = task.Position
	}
	return positions
}
