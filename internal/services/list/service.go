package list

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/thenoetrevino/kanban/internal/database"
	"github.com/thenoetrevino/kanban/internal/events"
	"github.com/thenoetrevino/kanban/internal/models"
	"github.com/thenoetrevino/kanban/internal/position"
	"github.com/thenoetrevino/kanban/internal/scopelock"
	"github.com/thenoetrevino/kanban/internal/services/access"
	"github.com/thenoetrevino/kanban/internal/services/activity"
)

var tracer = otel.Tracer("github.com/thenoetrevino/kanban/internal/services/list")

// Service defines all list-related business operations
type Service interface {
	// Read operations
	GetLists(ctx context.Context, actorID string, boardID int) ([]*models.List, error)

	// Write operations
	CreateList(ctx context.Context, actorID string, boardID int, title string) (*models.List, error)
	UpdateList(ctx context.Context, actorID string, listID int, title string) (*models.List, error)
	DeleteList(ctx context.Context, actorID string, listID int) error

	// Ordering
	MoveList(ctx context.Context, actorID string, listID, newIndex int) ([]*models.List, error)
	ReorderLists(ctx context.Context, actorID string, boardID int, order []models.ListPosition) ([]*models.List, error)
}

// service implements Service interface
type service struct {
	repo      database.DataStore
	publisher events.Publisher
	locks     *scopelock.Locker
}

// NewService creates a new list service
func NewService(repo database.DataStore, publisher events.Publisher, locks *scopelock.Locker) Service {
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
	}
}

// GetLists returns a board's lists in display order
func (s *service) GetLists(ctx context.Context, actorID string, boardID int) ([]*models.List, error) {
	if err := s.requireBoardMember(ctx, boardID, actorID); err != nil {
		return nil, err
	}
	return s.repo.GetListsByBoard(ctx, boardID)
}

// CreateList appends a list to the end of a board
func (s *service) CreateList(ctx context.Context, actorID string, boardID int, title string) (*models.List, error) {
	title = strings.TrimSpace(title)
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	if err := s.requireBoardMember(ctx, boardID, actorID); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(scopelock.BoardKey(boardID))
	defer unlock()

	var created *models.List
	err := s.repo.WithTx(ctx, func(tx database.DataStore) error {
		var err error
		if created, err = tx.CreateList(ctx, boardID, title); err != nil {
			return err
		}
		return activity.Record(ctx, tx, activity.Entry{
			ActorID:     actorID,
			BoardID:     boardID,
			Action:      models.ActionCreatedList,
			EntityType:  models.EntityList,
			EntityTitle: created.Title,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create list: %w", err)
	}

	events.Emit(ctx, s.publisher, boardID, events.ListCreated, actorID, created)
	return created, nil
}

// UpdateList renames a list
func (s *service) UpdateList(ctx context.Context, actorID string, listID int, title string) (*models.List, error) {
	if listID <= 0 {
		return nil, ErrInvalidListID
	}
	title = strings.TrimSpace(title)
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	l, err := s.loadList(ctx, s.repo, listID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireMember(ctx, s.repo, l.BoardID, actorID); err != nil {
		return nil, err
	}

	var updated *models.List
	err = s.repo.WithTx(ctx, func(tx database.DataStore) error {
		if err := tx.UpdateListTitle(ctx, listID, title); err != nil {
			return err
		}
		var err error
		if updated, err = tx.GetList(ctx, listID); err != nil {
			return err
		}
		return activity.Record(ctx, tx, activity.Entry{
			ActorID:     actorID,
			BoardID:     l.BoardID,
			Action:      models.ActionUpdatedList,
			EntityType:  models.EntityList,
			EntityTitle: title,
			Details:     fmt.Sprintf("Renamed from %s", l.Title),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update list: %w", err)
	}

	events.Emit(ctx, s.publisher, l.BoardID, events.ListUpdated, actorID, updated)
	return updated, nil
}

// DeleteList removes a list with all of its tasks and closes the gap in the
// board's list order
func (s *service) DeleteList(ctx context.Context, actorID string, listID int) error {
	if listID <= 0 {
		return ErrInvalidListID
	}
	l, err := s.loadList(ctx, s.repo, listID)
	if err != nil {
		return err
	}
	if err := access.RequireMember(ctx, s.repo, l.BoardID, actorID); err != nil {
		return err
	}

	unlock := s.locks.Lock(scopelock.BoardKey(l.BoardID), scopelock.ListKey(listID))
	defer unlock()

	var remaining []position.Item
	err = s.repo.WithTx(ctx, func(tx database.DataStore) error {
		if err := tx.DeleteList(ctx, listID); err != nil {
			return err
		}
		items, err := tx.GetListPositions(ctx, l.BoardID)
		if err != nil {
			return err
		}
		if err := tx.SetListPositions(ctx, position.Renumber(items)); err != nil {
			return err
		}
		remaining = items
		return activity.Record(ctx, tx, activity.Entry{
			ActorID:     actorID,
			BoardID:     l.BoardID,
			Action:      models.ActionDeletedList,
			EntityType:  models.EntityList,
			EntityTitle: l.Title,
		})
	})
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return ErrListNotFound
		}
		return fmt.Errorf("failed to delete list: %w", err)
	}

	events.Emit(ctx, s.publisher, l.BoardID, events.ListDeleted, actorID, events.ListDeletedPayload{
		ListID:  listID,
		BoardID: l.BoardID,
		Order:   position.IDs(remaining),
	})
	return nil
}

// MoveList relocates one list within its board. newIndex past the end
// appends.
func (s *service) MoveList(ctx context.Context, actorID string, listID, newIndex int) ([]*models.List, error) {
	ctx, span := tracer.Start(context.WithoutCancel(ctx), "list.MoveList", trace.WithAttributes(
		attribute.Int("list.id", listID),
		attribute.Int("index.requested", newIndex),
	))
	defer span.End()

	if listID <= 0 {
		return nil, s.fail(span, ErrInvalidListID)
	}
	if newIndex < 0 {
		return nil, s.fail(span, ErrInvalidPosition)
	}
	l, err := s.loadList(ctx, s.repo, listID)
	if err != nil {
		return nil, s.fail(span, err)
	}
	if err := access.RequireMember(ctx, s.repo, l.BoardID, actorID); err != nil {
		return nil, s.fail(span, err)
	}

	lists, err := s.applyOrder(ctx, actorID, l.BoardID, func(current []position.Item) ([]position.Item, []position.Item, error) {
		order, _, changed, err := position.Move(current, listID, newIndex)
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil, ErrListNotFound
		}
		return order, changed, err
	})
	if err != nil {
		return nil, s.fail(span, err)
	}
	return lists, nil
}

// ReorderLists applies a client-computed order in bulk. Listed lists are
// ordered by their requested position; lists the request leaves out keep
// their relative order after them. Positions are always stored dense.
func (s *service) ReorderLists(ctx context.Context, actorID string, boardID int, order []models.ListPosition) ([]*models.List, error) {
	ctx, span := tracer.Start(context.WithoutCancel(ctx), "list.ReorderLists", trace.WithAttributes(
		attribute.Int("board.id", boardID),
		attribute.Int("lists.requested", len(order)),
	))
	defer span.End()

	if boardID <= 0 {
		return nil, s.fail(span, ErrInvalidBoardID)
	}
	if len(order) == 0 {
		return nil, s.fail(span, ErrEmptyOrder)
	}
	seen := make(map[int]bool, len(order))
	for _, lp := range order {
		if lp.ListID <= 0 {
			return nil, s.fail(span, ErrInvalidListID)
		}
		if lp.Position < 0 {
			return nil, s.fail(span, ErrInvalidPosition)
		}
		if seen[lp.ListID] {
			return nil, s.fail(span, ErrDuplicateList)
		}
		seen[lp.ListID] = true
	}
	if err := s.requireBoardMember(ctx, boardID, actorID); err != nil {
		return nil, s.fail(span, err)
	}

	lists, err := s.applyOrder(ctx, actorID, boardID, func(current []position.Item) ([]position.Item, []position.Item, error) {
		return normalize(current, order)
	})
	if err != nil {
		return nil, s.fail(span, err)
	}
	return lists, nil
}

// applyOrder runs reorder against the board's current list order under the
// board lock, persists what changed and broadcasts the resulting order
func (s *service) applyOrder(
	ctx context.Context,
	actorID string,
	boardID int,
	reorder func(current []position.Item) (order, changed []position.Item, err error),
) ([]*models.List, error) {
	unlock := s.locks.Lock(scopelock.BoardKey(boardID))
	defer unlock()

	var lists []*models.List
	err := s.repo.WithTx(ctx, func(tx database.DataStore) error {
		current, err := tx.GetListPositions(ctx, boardID)
		if err != nil {
			return err
		}
		_, changed, err := reorder(current)
		if err != nil {
			return err
		}
		if err := tx.SetListPositions(ctx, changed); err != nil {
			return err
		}
		lists, err = tx.GetListsByBoard(ctx, boardID)
		return err
	})
	if err != nil {
		if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrValidation) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to reorder lists: %w", err)
	}

	ids := make([]int, len(lists))
	for i, l := range lists {
		ids[i] = l.ID
	}
	events.Emit(ctx, s.publisher, boardID, events.ListsReordered, actorID, events.ListsReorderedPayload{
		BoardID: boardID,
		Order:   ids,
	})
	return lists, nil
}

// normalize turns requested positions into a dense order over every list of
// the board. Equal requested positions keep request order.
func normalize(current []position.Item, requested []models.ListPosition) ([]position.Item, []position.Item, error) {
	stored := make(map[int]int, len(current))
	for _, it := range current {
		stored[it.ID] = it.Position
	}

	wanted := make([]models.ListPosition, len(requested))
	copy(wanted, requested)
	sort.SliceStable(wanted, func(i, j int) bool { return wanted[i].Position < wanted[j].Position })

	order := make([]position.Item, 0, len(current))
	listed := make(map[int]bool, len(wanted))
	for _, lp := range wanted {
		pos, ok := stored[lp.ListID]
		if !ok {
			return nil, nil, ErrForeignList
		}
		listed[lp.ListID] = true
		order = append(order, position.Item{ID: lp.ListID, Position: pos})
	}
	for _, it := range current {
		if !listed[it.ID] {
			order = append(order, it)
		}
	}
	return order, position.Renumber(order), nil
}

func (s *service) requireBoardMember(ctx context.Context, boardID int, actorID string) error {
	if boardID <= 0 {
		return ErrInvalidBoardID
	}
	if _, err := s.repo.GetBoard(ctx, boardID); err != nil {
		return err
	}
	return access.RequireMember(ctx, s.repo, boardID, actorID)
}

func (s *service) loadList(ctx context.Context, repo database.ListRepository, id int) (*models.List, error) {
	l, err := repo.GetList(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrListNotFound
	}
	return l, err
}

func (s *service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func validateTitle(title string) error {
	if title == "" {
		return ErrEmptyTitle
	}
	if len([]rune(title)) > models.MaxListTitleLength {
		return ErrTitleTooLong
	}
	return nil
}
