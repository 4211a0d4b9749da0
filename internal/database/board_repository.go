package database

import (
	"context"
	"fmt"

	"github.com/thenoetrevino/kanban/internal/models"
)

// BoardRepo handles boards and their membership.
type BoardRepo struct {
	q querier
}

// CreateBoard inserts a board and makes the owner its first member
func (r *BoardRepo) CreateBoard(ctx context.Context, title, description, background, ownerID string) (*models.Board, error) {
	if background == "" {
		background = models.DefaultColor
	}

	res, err := r.q.ExecContext(ctx,
		`INSERT INTO boards (title, description, background, owner_id) VALUES (?, ?, ?, ?)`,
		title, description, background, ownerID)
	if err != nil {
		return nil, fmt.Errorf("inserting board: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	if _, err := r.q.ExecContext(ctx,
		`INSERT INTO board_members (board_id, user_id) VALUES (?, ?)`, id, ownerID); err != nil {
		return nil, fmt.Errorf("adding owner as member: %w", err)
	}

	return r.GetBoard(ctx, int(id))
}

// GetBoard loads a board with its member ids
func (r *BoardRepo) GetBoard(ctx context.Context, id int) (*models.Board, error) {
	b := &models.Board{}
	err := r.q.QueryRowContext(ctx,
		`SELECT id, title, description, background, owner_id, created_at, updated_at
		 FROM boards WHERE id = ?`, id).
		Scan(&b.ID, &b.Title, &b.Description, &b.Background, &b.OwnerID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "board", id)
	}

	members, err := r.GetMembers(ctx, id)
	if err != nil {
		return nil, err
	}
	b.Members = members
	return b, nil
}

// ListBoardsForUser returns every board userID is a member of, newest first
func (r *BoardRepo) ListBoardsForUser(ctx context.Context, userID string) ([]*models.Board, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT b.id, b.title, b.description, b.background, b.owner_id, b.created_at, b.updated_at
		 FROM boards b
		 JOIN board_members m ON m.board_id = b.id
		 WHERE m.user_id = ?
		 ORDER BY b.updated_at DESC, b.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying boards: %w", err)
	}
	defer rows.Close()

	var boards []*models.Board
	for rows.Next() {
		b := &models.Board{}
		if err := rows.Scan(&b.ID, &b.Title, &b.Description, &b.Background, &b.OwnerID, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning board row: %w", err)
		}
		boards = append(boards, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating board rows: %w", err)
	}
	rows.Close()

	for _, b := range boards {
		if b.Members, err = r.GetMembers(ctx, b.ID); err != nil {
			return nil, err
		}
	}
	return boards, nil
}

// UpdateBoard replaces the editable fields of a board
func (r *BoardRepo) UpdateBoard(ctx context.Context, id int, title, description, background string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE boards SET title = ?, description = ?, background = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		title, description, background, id)
	if err != nil {
		return fmt.Errorf("updating board: %w", err)
	}
	return expectOne(res, "board", id)
}

// DeleteBoard removes a board; lists, tasks, members and activity cascade
func (r *BoardRepo) DeleteBoard(ctx context.Context, id int) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM boards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting board: %w", err)
	}
	return expectOne(res, "board", id)
}

// GetMembers returns the member ids of a board in the order they joined
func (r *BoardRepo) GetMembers(ctx context.Context, boardID int) ([]string, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT user_id FROM board_members WHERE board_id = ? ORDER BY added_at, user_id`, boardID)
	if err != nil {
		return nil, fmt.Errorf("querying members: %w", err)
	}
	defer rows.Close()

	members := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning member: %w", err)
		}
		members = append(members, id)
	}
	return members, rows.Err()
}

// IsMember reports whether userID belongs to boardID
func (r *BoardRepo) IsMember(ctx context.Context, boardID int, userID string) (bool, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM board_members WHERE board_id = ? AND user_id = ?`, boardID, userID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking membership: %w", err)
	}
	return n > 0, nil
}

// AddMember adds userID to the board. Adding an existing member is a no-op.
func (r *BoardRepo) AddMember(ctx context.Context, boardID int, userID string) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT OR IGNORE INTO board_members (board_id, user_id) VALUES (?, ?)`, boardID, userID)
	if err != nil {
		return fmt.Errorf("adding member: %w", err)
	}
	return nil
}

// RemoveMember removes userID from the board
func (r *BoardRepo) RemoveMember(ctx context.Context, boardID int, userID string) error {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM board_members WHERE board_id = ? AND user_id = ?`, boardID, userID)
	if err != nil {
		return fmt.Errorf("removing member: %w", err)
	}
	return expectOne(res, "member", userID)
}
