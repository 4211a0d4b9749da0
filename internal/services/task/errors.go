package task

import (
	"fmt"

	"github.com/thenoetrevino/kanban/internal/models"
)

// Task-related errors
var (
	// Validation errors
	ErrEmptyTitle         = fmt.Errorf("%w: task title cannot be empty", models.ErrValidation)
	ErrTitleTooLong       = fmt.Errorf("%w: task title cannot exceed %d characters", models.ErrValidation, models.MaxTaskTitleLength)
	ErrDescriptionTooLong = fmt.Errorf("%w: task description cannot exceed %d characters", models.ErrValidation, models.MaxTaskDescriptionLength)
	ErrInvalidTaskID      = fmt.Errorf("%w: invalid task ID", models.ErrValidation)
	ErrInvalidListID      = fmt.Errorf("%w: invalid list ID", models.ErrValidation)
	ErrInvalidPriority    = fmt.Errorf("%w: priority must be one of low, medium, high, urgent", models.ErrValidation)
	ErrInvalidPosition    = fmt.Errorf("%w: invalid position: must be >= 0", models.ErrValidation)
	ErrLabelTooLong       = fmt.Errorf("%w: label text cannot exceed %d characters", models.ErrValidation, models.MaxLabelTextLength)
	ErrEmptyLabel         = fmt.Errorf("%w: label text cannot be empty", models.ErrValidation)
	ErrInvalidAction      = fmt.Errorf("%w: action must be assign or unassign", models.ErrValidation)
	ErrEmptyUserID        = fmt.Errorf("%w: user ID cannot be empty", models.ErrValidation)

	// Business logic errors
	ErrTaskNotFound      = fmt.Errorf("%w: task not found", models.ErrNotFound)
	ErrListNotFound      = fmt.Errorf("%w: list not found", models.ErrNotFound)
	ErrNotInSourceList   = fmt.Errorf("%w: task is not in the source list", models.ErrValidation)
	ErrCrossBoardMove    = fmt.Errorf("%w: destination list belongs to another board", models.ErrValidation)
	ErrAssigneeNotMember = fmt.Errorf("%w: assignee is not a member of this board", models.ErrValidation)
)
