package app

import (
	"context"

	"github.com/thenoetrevino/kanban/internal/database"
	"github.com/thenoetrevino/kanban/internal/models"
	activityservice "github.com/thenoetrevino/kanban/internal/services/activity"
	boardservice "github.com/thenoetrevino/kanban/internal/services/board"
	listservice "github.com/thenoetrevino/kanban/internal/services/list"
	taskservice "github.com/thenoetrevino/kanban/internal/services/task"
)

// App holds all application services and provides dependency injection.
// Every service shares one publisher and one scope locker, so reorders of
// the same list or board are serialized no matter which service runs them.
type App struct {
	// Repository layer (direct database access)
	repo database.DataStore

	// Service layer (business logic)
	Boards   boardservice.Service
	Lists    listservice.Service
	Tasks    taskservice.Service
	Activity activityservice.Service
}

// New creates a new App with all services initialized.
// This is the single entry point for creating the application container.
func New(repo database.DataStore, opts ...Option) *App {
	cfg := newAppConfig(opts)
	return &App{
		repo:     repo,
		Boards:   boardservice.NewService(repo, cfg.publisher, cfg.locks, cfg.seqs),
		Lists:    listservice.NewService(repo, cfg.publisher, cfg.locks),
		Tasks:    taskservice.NewService(repo, cfg.publisher, cfg.locks),
		Activity: activityservice.NewService(repo),
	}
}

// Repo returns the underlying repository for direct database access
func (a *App) Repo() database.DataStore {
	return a.repo
}

// RememberUser records the display name of an authenticated caller
func (a *App) RememberUser(ctx context.Context, u models.User) error {
	return a.repo.UpsertUser(ctx, u)
}

// IsMember reports whether userID belongs to the board
func (a *App) IsMember(ctx context.Context, boardID int, userID string) (bool, error) {
	return a.Boards.IsMember(ctx, boardID, userID)
}
