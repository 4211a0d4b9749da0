package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

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

var tracer = otel.Tracer("github.com/thenoetrevino/kanban/internal/services/task")

// Service defines all task-related business operations
type Service interface {
	// Read operations
	GetTask(ctx context.Context, actorID string, taskID int) (*models.Task, error)
	SearchTasks(ctx context.Context, actorID string, boardID int, query string) ([]*models.Task, error)

	// Write operations
	CreateTask(ctx context.Context, actorID string, req CreateTaskRequest) (*models.Task, error)
	UpdateTask(ctx context.Context, actorID string, req UpdateTaskRequest) (*models.Task, error)
	DeleteTask(ctx context.Context, actorID string, taskID int) error

	// Ordering
	MoveTask(ctx context.Context, actorID string, req MoveTaskRequest) (*MoveResult, error)

	// Assignment
	AssignTask(ctx context.Context, actorID string, req AssignRequest) (*models.Task, error)
}

// CreateTaskRequest encapsulates all data needed to create a task
type CreateTaskRequest struct {
	ListID      int
	Title       string
	Description string
	Priority    models.Priority // Optional: empty means medium
	DueDate     *time.Time
	Labels      []models.Label
	Assignees   []string
}

// UpdateTaskRequest encapsulates all data needed to update a task
// Fields with pointers are optional - nil means don't update
type UpdateTaskRequest struct {
	TaskID       int
	Title        *string
	Description  *string
	Priority     *models.Priority
	DueDate      *time.Time
	ClearDueDate bool
	Labels       *[]models.Label
}

// MoveTaskRequest relocates a task. NewIndex is a zero-based index in the
// destination list's resulting order; it is clamped to the end of the list.
type MoveTaskRequest struct {
	TaskID            int
	SourceListID      int
	DestinationListID int
	NewIndex          int
}

// MoveResult is the outcome of a move, as broadcast to the board
type MoveResult struct {
	Task              *models.Task
	SourceListID      int
	DestinationListID int
	NewIndex          int
	SourceOrder       []int
	DestinationOrder  []int
}

// AssignAction selects between adding and removing an assignee
type AssignAction string

const (
	ActionAssign   AssignAction = "assign"
	ActionUnassign AssignAction = "unassign"
)

// AssignRequest adds or removes one assignee
type AssignRequest struct {
	TaskID int
	UserID string
	Action AssignAction
}

// service implements Service interface
type service struct {
	repo      database.DataStore
	publisher events.Publisher
	locks     *scopelock.Locker
}

// NewService creates a new task service. locks must be shared with every other
// service that writes list or task positions.
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

// GetTask returns a task on a board the caller belongs to
func (s *service) GetTask(ctx context.Context, actorID string, taskID int) (*models.Task, error) {
	if taskID <= 0 {
		return nil, ErrInvalidTaskID
	}
	t, err := s.loadTask(ctx, s.repo, taskID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireMember(ctx, s.repo, t.BoardID, actorID); err != nil {
		return nil, err
	}
	return t, nil
}

// SearchTasks returns a board's tasks whose title or description contains query
func (s *service) SearchTasks(ctx context.Context, actorID string, boardID int, query string) ([]*models.Task, error) {
	if _, err := s.repo.GetBoard(ctx, boardID); err != nil {
		return nil, err
	}
	if err := access.RequireMember(ctx, s.repo, boardID, actorID); err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return []*models.Task{}, nil
	}
	return s.repo.SearchTasks(ctx, boardID, query)
}

// CreateTask appends a task to a list
func (s *service) CreateTask(ctx context.Context, actorID string, req CreateTaskRequest) (*models.Task, error) {
	if err := validateCreateTask(&req); err != nil {
		return nil, err
	}

	l, err := s.loadList(ctx, s.repo, req.ListID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireMember(ctx, s.repo, l.BoardID, actorID); err != nil {
		return nil, err
	}
	for _, userID := range req.Assignees {
		if err := s.requireAssignable(ctx, l.BoardID, userID); err != nil {
			return nil, err
		}
	}

	unlock := s.locks.Lock(scopelock.ListKey(l.ID))
	defer unlock()

	var created *models.Task
	err = s.repo.WithTx(ctx, func(tx database.DataStore) error {
		var err error
		created, err = tx.CreateTask(ctx, database.CreateTaskParams{
			ListID:      l.ID,
			BoardID:     l.BoardID,
			Title:       req.Title,
			Description: req.Description,
			Priority:    req.Priority,
			DueDate:     req.DueDate,
			Labels:      req.Labels,
			Assignees:   req.Assignees,
		})
		if err != nil {
			return err
		}
		return activity.Record(ctx, tx, activity.Entry{
			ActorID:     actorID,
			BoardID:     l.BoardID,
			Action:      models.ActionCreatedTask,
			EntityType:  models.EntityTask,
			EntityTitle: created.Title,
			Details:     fmt.Sprintf("Created task in %s", l.Title),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	events.Emit(ctx, s.publisher, created.BoardID, events.TaskCreated, actorID, created)
	return created, nil
}

// UpdateTask changes the editable fields of a task. Position and list never
// change here.
func (s *service) UpdateTask(ctx context.Context, actorID string, req UpdateTaskRequest) (*models.Task, error) {
	if req.TaskID <= 0 {
		return nil, ErrInvalidTaskID
	}

	current, err := s.loadTask(ctx, s.repo, req.TaskID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireMember(ctx, s.repo, current.BoardID, actorID); err != nil {
		return nil, err
	}

	params := database.UpdateTaskParams{
		Title:       current.Title,
		Description: current.Description,
		Priority:    current.Priority,
		DueDate:     current.DueDate,
		Labels:      current.Labels,
	}
	if req.Title != nil {
		params.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		params.Description = *req.Description
	}
	if req.Priority != nil {
		params.Priority = *req.Priority
	}
	if req.DueDate != nil {
		params.DueDate = req.DueDate
	}
	if req.ClearDueDate {
		params.DueDate = nil
	}
	if req.Labels != nil {
		params.Labels = *req.Labels
	}
	if err := validateFields(params.Title, params.Description, params.Priority, params.Labels); err != nil {
		return nil, err
	}

	var updated *models.Task
	err = s.repo.WithTx(ctx, func(tx database.DataStore) error {
		if err := tx.UpdateTask(ctx, req.TaskID, params); err != nil {
			return err
		}
		var err error
		if updated, err = tx.GetTask(ctx, req.TaskID); err != nil {
			return err
		}
		return activity.Record(ctx, tx, activity.Entry{
			ActorID:     actorID,
			BoardID:     updated.BoardID,
			Action:      models.ActionUpdatedTask,
			EntityType:  models.EntityTask,
			EntityTitle: updated.Title,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	events.Emit(ctx, s.publisher, updated.BoardID, events.TaskUpdated, actorID, updated)
	return updated, nil
}

// DeleteTask removes a task and closes the gap it leaves in its list
func (s *service) DeleteTask(ctx context.Context, actorID string, taskID int) error {
	if taskID <= 0 {
		return ErrInvalidTaskID
	}

	t, err := s.loadTask(ctx, s.repo, taskID)
	if err != nil {
		return err
	}
	if err := access.RequireMember(ctx, s.repo, t.BoardID, actorID); err != nil {
		return err
	}

	unlock := s.locks.Lock(scopelock.ListKey(t.ListID))
	defer unlock()

	var remaining []position.Item
	err = s.repo.WithTx(ctx, func(tx database.DataStore) error {
		// re-read under the lock; a concurrent move may have changed the list
		current, err := s.loadTask(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if current.ListID != t.ListID {
			return fmt.Errorf("%w: task moved while deleting, retry", models.ErrValidation)
		}
		if err := tx.DeleteTask(ctx, taskID); err != nil {
			return err
		}
		if remaining, err = compact(ctx, tx, t.ListID); err != nil {
			return err
		}
		return activity.Record(ctx, tx, activity.Entry{
			ActorID:     actorID,
			BoardID:     t.BoardID,
			Action:      models.ActionDeletedTask,
			EntityType:  models.EntityTask,
			EntityTitle: t.Title,
		})
	})
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	events.Emit(ctx, s.publisher, t.BoardID, events.TaskDeleted, actorID, events.TaskDeletedPayload{
		TaskID:  t.ID,
		ListID:  t.ListID,
		BoardID: t.BoardID,
		Order:   position.IDs(remaining),
	})
	return nil
}

// MoveTask relocates a task within its list or into another list of the same
// board. Both affected scopes end up dense; a cross-list move is audited.
// A move that has started is not abandoned when the caller goes away.
func (s *service) MoveTask(ctx context.Context, actorID string, req MoveTaskRequest) (*MoveResult, error) {
	ctx, span := tracer.Start(context.WithoutCancel(ctx), "task.MoveTask", trace.WithAttributes(
		attribute.Int("task.id", req.TaskID),
		attribute.Int("list.source", req.SourceListID),
		attribute.Int("list.destination", req.DestinationListID),
		attribute.Int("index.requested", req.NewIndex),
	))
	defer span.End()

	result, err := s.moveTask(ctx, actorID, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("index.final", result.NewIndex),
		attribute.Bool("move.cross_list", result.SourceListID != result.DestinationListID),
	)
	return result, nil
}

func (s *service) moveTask(ctx context.Context, actorID string, req MoveTaskRequest) (*MoveResult, error) {
	if req.TaskID <= 0 {
		return nil, ErrInvalidTaskID
	}
	if req.DestinationListID <= 0 {
		return nil, ErrInvalidListID
	}
	if req.NewIndex < 0 {
		return nil, ErrInvalidPosition
	}

	t, err := s.loadTask(ctx, s.repo, req.TaskID)
	if err != nil {
		return nil, err
	}
	if req.SourceListID == 0 {
		req.SourceListID = t.ListID
	}
	if err := access.RequireMember(ctx, s.repo, t.BoardID, actorID); err != nil {
		return nil, err
	}
	dest, err := s.loadList(ctx, s.repo, req.DestinationListID)
	if err != nil {
		return nil, err
	}
	if dest.BoardID != t.BoardID {
		return nil, ErrCrossBoardMove
	}

	unlock := s.locks.Lock(scopelock.ListKey(req.SourceListID), scopelock.ListKey(dest.ID))
	defer unlock()

	result := &MoveResult{SourceListID: req.SourceListID, DestinationListID: dest.ID}
	err = s.repo.WithTx(ctx, func(tx database.DataStore) error {
		current, err := s.loadTask(ctx, tx, req.TaskID)
		if err != nil {
			return err
		}
		if current.ListID != req.SourceListID {
			return ErrNotInSourceList
		}

		src, err := tx.GetTaskPositions(ctx, req.SourceListID)
		if err != nil {
			return err
		}

		if req.SourceListID == dest.ID {
			order, final, changed, err := position.Move(src, req.TaskID, req.NewIndex)
			if err != nil {
				return err
			}
			if err := tx.SetTaskPositions(ctx, dest.ID, changed); err != nil {
				return err
			}
			result.NewIndex = final
			result.SourceOrder = position.IDs(order)
			result.DestinationOrder = result.SourceOrder
		} else {
			dst, err := tx.GetTaskPositions(ctx, dest.ID)
			if err != nil {
				return err
			}
			newSrc, newDst, final, srcChanged, dstChanged, err := position.Transfer(src, dst, req.TaskID, req.NewIndex)
			if err != nil {
				return err
			}
			if err := tx.SetTaskPositions(ctx, req.SourceListID, srcChanged); err != nil {
				return err
			}
			if err := tx.SetTaskPositions(ctx, dest.ID, dstChanged); err != nil {
				return err
			}
			result.NewIndex = final
			result.SourceOrder = position.IDs(newSrc)
			result.DestinationOrder = position.IDs(newDst)

			srcList, err := s.loadList(ctx, tx, req.SourceListID)
			if err != nil {
				return err
			}
			if err := activity.Record(ctx, tx, activity.Entry{
				ActorID:     actorID,
				BoardID:     current.BoardID,
				Action:      models.ActionMovedTask,
				EntityType:  models.EntityTask,
				EntityTitle: current.Title,
				Details:     fmt.Sprintf("Moved task from %s to %s", srcList.Title, dest.Title),
			}); err != nil {
				return err
			}
		}

		result.Task, err = tx.GetTask(ctx, req.TaskID)
		return err
	})
	if err != nil {
		if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrValidation) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to move task: %w", err)
	}

	// Published before the list locks are released so that events for the
	// same list reach the hub in commit order
	events.Emit(ctx, s.publisher, result.Task.BoardID, events.TaskMoved, actorID, events.TaskMovedPayload{
		Task:              result.Task,
		SourceListID:      result.SourceListID,
		DestinationListID: result.DestinationListID,
		NewIndex:          result.NewIndex,
		SourceOrder:       result.SourceOrder,
		DestinationOrder:  result.DestinationOrder,
	})
	return result, nil
}

// AssignTask adds or removes an assignee. Assignees must be board members.
func (s *service) AssignTask(ctx context.Context, actorID string, req AssignRequest) (*models.Task, error) {
	if req.TaskID <= 0 {
		return nil, ErrInvalidTaskID
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		return nil, ErrEmptyUserID
	}
	if req.Action != ActionAssign && req.Action != ActionUnassign {
		return nil, ErrInvalidAction
	}

	t, err := s.loadTask(ctx, s.repo, req.TaskID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireMember(ctx, s.repo, t.BoardID, actorID); err != nil {
		return nil, err
	}
	if req.Action == ActionAssign {
		if err := s.requireAssignable(ctx, t.BoardID, req.UserID); err != nil {
			return nil, err
		}
	}

	var updated *models.Task
	err = s.repo.WithTx(ctx, func(tx database.DataStore) error {
		action := models.ActionAssignedUser
		details := fmt.Sprintf("Assigned %s", req.UserID)
		if req.Action == ActionAssign {
			if err := tx.AddAssignee(ctx, t.ID, req.UserID); err != nil {
				return err
			}
		} else {
			if err := tx.RemoveAssignee(ctx, t.ID, req.UserID); err != nil {
				return err
			}
			action = models.ActionUnassignedUser
			details = fmt.Sprintf("Unassigned %s", req.UserID)
		}
		if err := tx.TouchTask(ctx, t.ID); err != nil {
			return err
		}
		var err error
		if updated, err = tx.GetTask(ctx, t.ID); err != nil {
			return err
		}
		return activity.Record(ctx, tx, activity.Entry{
			ActorID:     actorID,
			BoardID:     t.BoardID,
			Action:      action,
			EntityType:  models.EntityTask,
			EntityTitle: t.Title,
			Details:     details,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to %s task: %w", req.Action, err)
	}

	events.Emit(ctx, s.publisher, updated.BoardID, events.TaskUpdated, actorID, updated)
	return updated, nil
}

func (s *service) requireAssignable(ctx context.Context, boardID int, userID string) error {
	ok, err := s.repo.IsMember(ctx, boardID, userID)
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}
	if !ok {
		return ErrAssigneeNotMember
	}
	return nil
}

func (s *service) loadTask(ctx context.Context, repo database.TaskRepository, id int) (*models.Task, error) {
	t, err := repo.GetTask(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrTaskNotFound
	}
	return t, err
}

func (s *service) loadList(ctx context.Context, repo database.ListRepository, id int) (*models.List, error) {
	l, err := repo.GetList(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrListNotFound
	}
	return l, err
}

// compact renumbers a list's tasks to 0..n-1 and returns the resulting order
func compact(ctx context.Context, tx database.DataStore, listID int) ([]position.Item, error) {
	items, err := tx.GetTaskPositions(ctx, listID)
	if err != nil {
		return nil, err
	}
	if err := tx.SetTaskPositions(ctx, listID, position.Renumber(items)); err != nil {
		return nil, err
	}
	return items, nil
}

func validateCreateTask(req *CreateTaskRequest) error {
	if req.ListID <= 0 {
		return ErrInvalidListID
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Priority == "" {
		req.Priority = models.PriorityMedium
	}
	for i := range req.Labels {
		if req.Labels[i].Color == "" {
			req.Labels[i].Color = models.DefaultColor
		}
	}
	return validateFields(req.Title, req.Description, req.Priority, req.Labels)
}

func validateFields(title, description string, priority models.Priority, labels []models.Label) error {
	if title == "" {
		return ErrEmptyTitle
	}
	if len([]rune(title)) > models.MaxTaskTitleLength {
		return ErrTitleTooLong
	}
	if len([]rune(description)) > models.MaxTaskDescriptionLength {
		return ErrDescriptionTooLong
	}
	if !priority.Valid() {
		return ErrInvalidPriority
	}
	for _, l := range labels {
		if strings.TrimSpace(l.Text) == "" {
			return ErrEmptyLabel
		}
		if len([]rune(l.Text)) > models.MaxLabelTextLength {
			return ErrLabelTooLong
		}
	}
	return nil
}
