package database

import (
	"context"

	"github.com/thenoetrevino/kanban/internal/models"
	"github.com/thenoetrevino/kanban/internal/position"
)

// BoardRepository covers boards and membership
type BoardRepository interface {
	CreateBoard(ctx context.Context, title, description, background, ownerID string) (*models.Board, error)
	GetBoard(ctx context.Context, id int) (*models.Board, error)
	ListBoardsForUser(ctx context.Context, userID string) ([]*models.Board, error)
	UpdateBoard(ctx context.Context, id int, title, description, background string) error
	DeleteBoard(ctx context.Context, id int) error
	GetMembers(ctx context.Context, boardID int) ([]string, error)
	IsMember(ctx context.Context, boardID int, userID string) (bool, error)
	AddMember(ctx context.Context, boardID int, userID string) error
	RemoveMember(ctx context.Context, boardID int, userID string) error
}

// ListRepository covers lists and the board-level position scope
type ListRepository interface {
	CreateList(ctx context.Context, boardID int, title string) (*models.List, error)
	GetList(ctx context.Context, id int) (*models.List, error)
	GetListsByBoard(ctx context.Context, boardID int) ([]*models.List, error)
	GetListPositions(ctx context.Context, boardID int) ([]position.Item, error)
	SetListPositions(ctx context.Context, items []position.Item) error
	UpdateListTitle(ctx context.Context, id int, title string) error
	DeleteList(ctx context.Context, id int) error
}

// TaskRepository covers tasks, assignees and the list-level position scope
type TaskRepository interface {
	CreateTask(ctx context.Context, p CreateTaskParams) (*models.Task, error)
	GetTask(ctx context.Context, id int) (*models.Task, error)
	GetTasksByBoard(ctx context.Context, boardID int) ([]*models.Task, error)
	GetTasksByList(ctx context.Context, listID int) ([]*models.Task, error)
	SearchTasks(ctx context.Context, boardID int, query string) ([]*models.Task, error)
	GetTaskPositions(ctx context.Context, listID int) ([]position.Item, error)
	SetTaskPositions(ctx context.Context, listID int, items []position.Item) error
	UpdateTask(ctx context.Context, id int, p UpdateTaskParams) error
	DeleteTask(ctx context.Context, id int) error
	AddAssignee(ctx context.Context, taskID int, userID string) error
	RemoveAssignee(ctx context.Context, taskID int, userID string) error
	UnassignFromBoard(ctx context.Context, boardID int, userID string) (int, error)
	TouchTask(ctx context.Context, id int) error
}

// ActivityRepository covers the audit log
type ActivityRepository interface {
	AppendActivity(ctx context.Context, a *models.Activity) error
	ListActivity(ctx context.Context, boardID, limit int) ([]*models.Activity, error)
}

// UserRepository covers known callers
type UserRepository interface {
	UpsertUser(ctx context.Context, u models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// DataStore defines the unified interface for all data operations needed by the services.
// WithTx hands fn a DataStore whose calls all run in one transaction.
type DataStore interface {
	BoardRepository
	ListRepository
	TaskRepository
	ActivityRepository
	UserRepository

	WithTx(ctx context.Context, fn func(DataStore) error) error
}
