package list

import (
	"fmt"

	"github.com/thenoetrevino/kanban/internal/models"
)

// List-related errors
var (
	// Validation errors
	ErrEmptyTitle      = fmt.Errorf("%w: list title cannot be empty", models.ErrValidation)
	ErrTitleTooLong    = fmt.Errorf("%w: list title cannot exceed %d characters", models.ErrValidation, models.MaxListTitleLength)
	ErrInvalidListID   = fmt.Errorf("%w: invalid list ID", models.ErrValidation)
	ErrInvalidBoardID  = fmt.Errorf("%w: invalid board ID", models.ErrValidation)
	ErrInvalidPosition = fmt.Errorf("%w: invalid position: must be >= 0", models.ErrValidation)
	ErrEmptyOrder      = fmt.Errorf("%w: reorder needs at least one list", models.ErrValidation)
	ErrDuplicateList   = fmt.Errorf("%w: list appears more than once in reorder", models.ErrValidation)
	ErrForeignList     = fmt.Errorf("%w: list does not belong to this board", models.ErrValidation)

	// Business logic errors
	ErrListNotFound = fmt.Errorf("%w: list not found", models.ErrNotFound)
)
