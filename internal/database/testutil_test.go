package database

import (
	"context"
	"database/sql"
	"testing"

	"github.com/thenoetrevino/kanban/internal/models"
)

// setupTestDB creates an in-memory database with the full schema
func setupTestDB(t *testing.T) (*sql.DB, *Repository) {
	t.Helper()
	db, err := Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, NewRepository(db)
}

func createTestBoard(t *testing.T, repo *Repository, owner string) *models.Board {
	t.Helper()
	b, err := repo.CreateBoard(context.Background(), "Board", "", "", owner)
	if err != nil {
		t.Fatalf("Failed to create board: %v", err)
	}
	return b
}

func createTestList(t *testing.T, repo *Repository, boardID int, title string) *models.List {
	t.Helper()
	l, err := repo.CreateList(context.Background(), boardID, title)
	if err != nil {
		t.Fatalf("Failed to create list: %v", err)
	}
	return l
}

func createTestTask(t *testing.T, repo *Repository, l *models.List, title string) *models.Task {
	t.Helper()
	task, err := repo.CreateTask(context.Background(), CreateTaskParams{
		ListID:  l.ID,
		BoardID: l.BoardID,
		Title:   title,
	})
	if err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}
	return task
}
