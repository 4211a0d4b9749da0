// Package activity appends to and reads the per-board audit log
package activity

import (
	"context"
	"fmt"

	"github.com/thenoetrevino/kanban/internal/database"
	"github.com/thenoetrevino/kanban/internal/models"
	"github.com/thenoetrevino/kanban/internal/services/access"
)

const (
	// DefaultLimit is used when a caller asks for a non-positive limit
	DefaultLimit = 50
	// MaxLimit caps a single read of the log
	MaxLimit = 200
)

// Entry is an activity about to be recorded
type Entry struct {
	ActorID     string
	BoardID     int
	Action      models.ActivityAction
	EntityType  models.EntityType
	EntityTitle string
	Details     string
}

// Record appends e using repo, which is usually the transaction of the
// mutation being audited
func Record(ctx context.Context, repo database.ActivityRepository, e Entry) error {
	a := &models.Activity{
		ActorID:     e.ActorID,
		BoardID:     e.BoardID,
		Action:      e.Action,
		EntityType:  e.EntityType,
		EntityTitle: e.EntityTitle,
		Details:     e.Details,
	}
	if err := repo.AppendActivity(ctx, a); err != nil {
		return fmt.Errorf("failed to record %s activity: %w", e.Action, err)
	}
	return nil
}

// Service reads the activity log
type Service interface {
	List(ctx context.Context, actorID string, boardID, limit int) ([]*models.Activity, error)
}

type service struct {
	repo database.DataStore
}

// NewService creates a new activity service
func NewService(repo database.DataStore) Service {
	return &service{repo: repo}
}

// List returns the newest entries of a board the caller is a member of
func (s *service) List(ctx context.Context, actorID string, boardID, limit int) ([]*models.Activity, error) {
	if _, err := s.repo.GetBoard(ctx, boardID); err != nil {
		return nil, err
	}
	if err := access.RequireMember(ctx, s.repo, boardID, actorID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return s.repo.ListActivity(ctx, boardID, limit)
}
