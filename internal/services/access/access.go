// Package access holds the membership and ownership checks shared by the services
package access

import (
	"context"
	"fmt"

	"github.com/thenoetrevino/kanban/internal/models"
)

// MembershipChecker is the slice of the data store the checks need
type MembershipChecker interface {
	GetBoard(ctx context.Context, id int) (*models.Board, error)
	IsMember(ctx context.Context, boardID int, userID string) (bool, error)
}

var (
	// ErrNotMember is returned when the caller is not a member of the board
	ErrNotMember = fmt.Errorf("%w: not a member of this board", models.ErrForbidden)

	// ErrNotOwner is returned when an owner-only action is attempted by someone else
	ErrNotOwner = fmt.Errorf("%w: only the board owner can do this", models.ErrForbidden)
)

// RequireMember returns ErrNotMember unless userID belongs to boardID
func RequireMember(ctx context.Context, store MembershipChecker, boardID int, userID string) error {
	ok, err := store.IsMember(ctx, boardID, userID)
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}
	if !ok {
		return ErrNotMember
	}
	return nil
}

// RequireOwner loads the board and returns ErrNotOwner unless userID owns it
func RequireOwner(ctx context.Context, store MembershipChecker, boardID int, userID string) (*models.Board, error) {
	b, err := store.GetBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if b.OwnerID != userID {
		if !b.HasMember(userID) {
			return nil, ErrNotMember
		}
		return nil, ErrNotOwner
	}
	return b, nil
}
