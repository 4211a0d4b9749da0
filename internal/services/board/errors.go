package board

import (
	"fmt"

	"github.com/thenoetrevino/kanban/internal/models"
)

// Domain errors for board service
var (
	// Validation errors
	ErrEmptyTitle         = fmt.Errorf("%w: board title cannot be empty", models.ErrValidation)
	ErrTitleTooLong       = fmt.Errorf("%w: board title cannot exceed %d characters", models.ErrValidation, models.MaxBoardTitleLength)
	ErrDescriptionTooLong = fmt.Errorf("%w: board description cannot exceed %d characters", models.ErrValidation, models.MaxBoardDescriptionLength)
	ErrInvalidBoardID     = fmt.Errorf("%w: invalid board ID", models.ErrValidation)
	ErrEmptyUserID        = fmt.Errorf("%w: user ID cannot be empty", models.ErrValidation)

	// Business logic errors
	ErrBoardNotFound     = fmt.Errorf("%w: board not found", models.ErrNotFound)
	ErrAlreadyMember     = fmt.Errorf("%w: user is already a member", models.ErrValidation)
	ErrNotAMember        = fmt.Errorf("%w: user is not a member", models.ErrValidation)
	ErrCannotRemoveOwner = fmt.Errorf("%w: cannot remove the board owner", models.ErrValidation)
)
