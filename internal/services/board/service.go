package board

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/thenoetrevino/kanban/internal/database"
	"github.com/thenoetrevino/kanban/internal/events"
	"github.com/thenoetrevino/kanban/internal/models"
	"github.com/thenoetrevino/kanban/internal/scopelock"
	"github.com/thenoetrevino/kanban/internal/services/access"
	"github.com/thenoetrevino/kanban/internal/services/activity"
)

// Service defines all board-related business operations
type Service interface {
	// Read operations
	ListBoards(ctx context.Context, actorID string, filter ListFilter) ([]*models.Board, error)
	GetBoard(ctx context.Context, actorID string, id int) (*models.Board, error)
	GetSnapshot(ctx context.Context, actorID string, id int) (*models.BoardSnapshot, error)
	IsMember(ctx context.Context, boardID int, userID string) (bool, error)

	// Write operations
	CreateBoard(ctx context.Context, actorID string, req CreateBoardRequest) (*models.Board, error)
	UpdateBoard(ctx context.Context, actorID string, req UpdateBoardRequest) (*models.Board, error)
	DeleteBoard(ctx context.Context, actorID string, id int) error

	// Membership
	AddMember(ctx context.Context, actorID string, boardID int, userID string) (*models.Board, error)
	RemoveMember(ctx context.Context, actorID string, boardID int, userID string) (*models.Board, error)
}

// CreateBoardRequest encapsulates data for creating a board
type CreateBoardRequest struct {
	Title       string
	Description string
	Background  string
}

// UpdateBoardRequest encapsulates data for updating a board
// Fields with pointers are optional - nil means don't update
type UpdateBoardRequest struct {
	ID          int
	Title       *string
	Description *string
	Background  *string
}

// ListFilter narrows and pages the boards of a user
type ListFilter struct {
	Search string
	Page   int // 1-based; 0 means the first page
	Limit  int // 0 means no limit
}

// SeqReader reports the last event sequence number emitted for a board
type SeqReader interface {
	Current(ctx context.Context, boardID int) (int64, error)
}

// service implements Service interface
type service struct {
	repo      database.DataStore
	publisher events.Publisher
	locks     *scopelock.Locker
	seqs      SeqReader
}

// NewService creates a new board service. seqs may be nil, in which case
// snapshots carry sequence 0.
func NewService(repo database.DataStore, publisher events.Publisher, locks *scopelock.Locker, seqs SeqReader) Service {
	if publisher == nil {
		publisher = events.Discard
	}
	if locks == nil {
		locks = scopelock.New()
	}
	return &service{
		repo:      repo,
		publisher: publisher,
		locks:     locks,
		seqs:      seqs,
	}
}

// ListBoards returns the boards the caller is a member of, most recently
// updated first
func (s *service) ListBoards(ctx context.Context, actorID string, filter ListFilter) ([]*models.Board, error) {
	boards, err := s.repo.ListBoardsForUser(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list boards: %w", err)
	}

	if q := strings.ToLower(strings.TrimSpace(filter.Search)); q != "" {
		matched := boards[:0]
		for _, b := range boards {
			if strings.Contains(strings.ToLower(b.Title), q) {
				matched = append(matched, b)
			}
		}
		boards = matched
	}

	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		start := (page - 1) * filter.Limit
		if start >= len(boards) {
			return []*models.Board{}, nil
		}
		end := start + filter.Limit
		if end > len(boards) {
			end = len(boards)
		}
		boards = boards[start:end]
	}
	return boards, nil
}

// GetBoard returns a board the caller is a member of
func (s *service) GetBoard(ctx context.Context, actorID string, id int) (*models.Board, error) {
	b, err := s.loadBoard(ctx, id)
	if err != nil {
		return nil, err
	}
	if !b.HasMember(actorID) {
		return nil, access.ErrNotMember
	}
	return b, nil
}

// GetSnapshot loads a board with all of its lists and tasks. The sequence
// number is read first, so every event after it is newer than the snapshot.
func (s *service) GetSnapshot(ctx context.Context, actorID string, id int) (*models.BoardSnapshot, error) {
	var seq int64
	if s.seqs != nil {
		var err error
		if seq, err = s.seqs.Current(ctx, id); err != nil {
			return nil, fmt.Errorf("failed to read board sequence: %w", err)
		}
	}

	b, err := s.GetBoard(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	lists, err := s.repo.GetListsByBoard(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load lists: %w", err)
	}
	tasks, err := s.repo.GetTasksByBoard(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}
	return &models.BoardSnapshot{Board: b, Lists: lists, Tasks: tasks, Seq: seq}, nil
}

// IsMember reports whether userID belongs to the board. A missing board has
// no members.
func (s *service) IsMember(ctx context.Context, boardID int, userID string) (bool, error) {
	return s.repo.IsMember(ctx, boardID, userID)
}

// CreateBoard creates a board owned by the caller
func (s *service) CreateBoard(ctx context.Context, actorID string, req CreateBoardRequest) (*models.Board, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := validate(req.Title, req.Description); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Background) == "" {
		req.Background = models.DefaultColor
	}

	var created *models.Board
	err := s.repo.WithTx(ctx, func(tx database.DataStore) error {
		var err error
		created, err = tx.CreateBoard(ctx, req.Title, req.Description, req.Background, actorID)
		if err != nil {
			return err
		}
		return activity.Record(ctx, tx, activity.Entry{
			ActorID:     actorID,
			BoardID:     created.ID,
			Action:      models.ActionCreatedBoard,
			EntityType:  models.EntityBoard,
			EntityTitle: created.Title,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create board: %w", err)
	}
	return created, nil
}

// UpdateBoard changes a board's title, description or background. Owner only.
func (s *service) UpdateBoard(ctx context.Context, actorID string, req UpdateBoardRequest) (*models.Board, error) {
	if req.ID <= 0 {
		return nil, ErrInvalidBoardID
	}
	b, err := access.RequireOwner(ctx, s.repo, req.ID, actorID)
	if err != nil {
		return nil, s.mapNotFound(err)
	}

	title, description, background := b.Title, b.Description, b.Background
	if req.Title != nil {
		title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		description = *req.Description
	}
	if req.Background != nil && strings.TrimSpace(*req.Background) != "" {
		background = *req.Background
	}
	if err := validate(title, description); err != nil {
		return nil, err
	}

	var updated *models.Board
	err = s.repo.WithTx(ctx, func(tx database.DataStore) error {
		if err := tx.UpdateBoard(ctx, b.ID, title, description, background); err != nil {
			return err
		}
		var err error
		if updated, err = tx.GetBoard(ctx, b.ID); err != nil {
			return err
		}
		return activity.Record(ctx, tx, activity.Entry{
			ActorID:     actorID,
			BoardID:     b.ID,
			Action:      models.ActionUpdatedBoard,
			EntityType:  models.EntityBoard,
			EntityTitle: updated.Title,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update board: %w", err)
	}

	events.Emit(ctx, s.publisher, b.ID, events.BoardUpdated, actorID, updated)
	return updated, nil
}

// DeleteBoard removes a board with its lists, tasks and activity. Owner only.
func (s *service) DeleteBoard(ctx context.Context, actorID string, id int) error {
	if id <= 0 {
		return ErrInvalidBoardID
	}
	if _, err := access.RequireOwner(ctx, s.repo, id, actorID); err != nil {
		return s.mapNotFound(err)
	}

	unlock := s.locks.Lock(scopelock.BoardKey(id))
	defer unlock()

	if err := s.repo.DeleteBoard(ctx, id); err != nil {
		return fmt.Errorf("failed to delete board: %w", s.mapNotFound(err))
	}

	events.Emit(ctx, s.publisher, id, events.BoardDeleted, actorID, events.BoardDeletedPayload{BoardID: id})
	return nil
}

// AddMember adds userID to the board. Any member may invite.
func (s *service) AddMember(ctx context.Context, actorID string, boardID int, userID string) (*models.Board, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	b, err := s.GetBoard(ctx, actorID, boardID)
	if err != nil {
		return nil, err
	}
	if b.HasMember(userID) {
		return nil, ErrAlreadyMember
	}

	var updated *models.Board
	err = s.repo.WithTx(ctx, func(tx database.DataStore) error {
		if err := tx.AddMember(ctx, boardID, userID); err != nil {
			return err
		}
		var err error
		if updated, err = tx.GetBoard(ctx, boardID); err != nil {
			return err
		}
		name := s.displayName(ctx, tx, userID)
		return activity.Record(ctx, tx, activity.Entry{
			ActorID:     actorID,
			BoardID:     boardID,
			Action:      models.ActionAddedMember,
			EntityType:  models.EntityUser,
			EntityTitle: name,
			Details:     fmt.Sprintf("%s added %s to the board", s.displayName(ctx, tx, actorID), name),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	events.Emit(ctx, s.publisher, boardID, events.MemberAdded, actorID, events.MemberPayload{
		BoardID: boardID,
		UserID:  userID,
		Members: updated.Members,
	})
	return updated, nil
}

// RemoveMember removes userID from the board and from every task on it.
// Owner only; the owner cannot be removed.
func (s *service) RemoveMember(ctx context.Context, actorID string, boardID int, userID string) (*models.Board, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	b, err := access.RequireOwner(ctx, s.repo, boardID, actorID)
	if err != nil {
		return nil, s.mapNotFound(err)
	}
	if userID == b.OwnerID {
		return nil, ErrCannotRemoveOwner
	}
	if !b.HasMember(userID) {
		return nil, ErrNotAMember
	}

	var updated *models.Board
	err = s.repo.WithTx(ctx, func(tx database.DataStore) error {
		if err := tx.RemoveMember(ctx, boardID, userID); err != nil {
			return err
		}
		if _, err := tx.UnassignFromBoard(ctx, boardID, userID); err != nil {
			return err
		}
		var err error
		if updated, err = tx.GetBoard(ctx, boardID); err != nil {
			return err
		}
		name := s.displayName(ctx, tx, userID)
		return activity.Record(ctx, tx, activity.Entry{
			ActorID:     actorID,
			BoardID:     boardID,
			Action:      models.ActionRemovedMember,
			EntityType:  models.EntityUser,
			EntityTitle: name,
			Details:     fmt.Sprintf("%s removed %s from the board", s.displayName(ctx, tx, actorID), name),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to remove member: %w", err)
	}

	events.Emit(ctx, s.publisher, boardID, events.MemberRemoved, actorID, events.MemberPayload{
		BoardID: boardID,
		UserID:  userID,
		Members: updated.Members,
	})
	return updated, nil
}

func (s *service) loadBoard(ctx context.Context, id int) (*models.Board, error) {
	if id <= 0 {
		return nil, ErrInvalidBoardID
	}
	b, err := s.repo.GetBoard(ctx, id)
	if err != nil {
		return nil, s.mapNotFound(err)
	}
	return b, nil
}

func (s *service) mapNotFound(err error) error {
	if errors.Is(err, models.ErrNotFound) {
		return ErrBoardNotFound
	}
	return err
}

// displayName prefers the stored user name and falls back to the id
func (s *service) displayName(ctx context.Context, repo database.UserRepository, userID string) string {
	u, err := repo.GetUser(ctx, userID)
	if err != nil || u.Name == "" {
		return userID
	}
	return u.Name
}

func validate(title, description string) error {
	if title == "" {
		return ErrEmptyTitle
	}
	if len([]rune(title)) > models.MaxBoardTitleLength {
		return ErrTitleTooLong
	}
	if len([]rune(description)) > models.MaxBoardDescriptionLength {
		return ErrDescriptionTooLong
	}
	return nil
}
