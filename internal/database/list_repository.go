package database

import (
	"context"
	"fmt"

	"github.com/thenoetrevino/kanban/internal/models"
	"github.com/thenoetrevino/kanban/internal/position"
)

// ListRepo handles all list-related database operations.
type ListRepo struct {
	q querier
}

const listColumns = `id, board_id, title, position, created_at, updated_at`

// CreateList appends a list to the board: position is max+1, or 0 for an empty board
func (r *ListRepo) CreateList(ctx context.Context, boardID int, title string) (*models.List, error) {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO lists (board_id, title, position)
		 SELECT ?, ?, COALESCE(MAX(position) + 1, 0) FROM lists WHERE board_id = ?`,
		boardID, title, boardID)
	if err != nil {
		return nil, fmt.Errorf("inserting list: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetList(ctx, int(id))
}

// GetList loads a single list
func (r *ListRepo) GetList(ctx context.Context, id int) (*models.List, error) {
	l := &models.List{}
	err := r.q.QueryRowContext(ctx, `SELECT `+listColumns+` FROM lists WHERE id = ?`, id).
		Scan(&l.ID, &l.BoardID, &l.Title, &l.Position, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "list", id)
	}
	return l, nil
}

// GetListsByBoard returns a board's lists in display order
func (r *ListRepo) GetListsByBoard(ctx context.Context, boardID int) ([]*models.List, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+listColumns+` FROM lists WHERE board_id = ? ORDER BY position, id`, boardID)
	if err != nil {
		return nil, fmt.Errorf("querying lists for board: %w", err)
	}
	defer rows.Close()

	lists := []*models.List{}
	for rows.Next() {
		l := &models.List{}
		if err := rows.Scan(&l.ID, &l.BoardID, &l.Title, &l.Position, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning list row: %w", err)
		}
		lists = append(lists, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating list rows: %w", err)
	}
	return lists, nil
}

// GetListPositions returns the board's list scope sorted by position then id
func (r *ListRepo) GetListPositions(ctx context.Context, boardID int) ([]position.Item, error) {
	return scanPositions(ctx, r.q, `SELECT id, position FROM lists WHERE board_id = ? ORDER BY position, id`, boardID)
}

// SetListPositions writes the given positions
func (r *ListRepo) SetListPositions(ctx context.Context, items []position.Item) error {
	for _, it := range items {
		res, err := r.q.ExecContext(ctx,
			`UPDATE lists SET position = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, it.Position, it.ID)
		if err != nil {
			return fmt.Errorf("updating position of list %d: %w", it.ID, err)
		}
		if err := expectOne(res, "list", it.ID); err != nil {
			return err
		}
	}
	return nil
}

// UpdateListTitle renames a list
func (r *ListRepo) UpdateListTitle(ctx context.Context, id int, title string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE lists SET title = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, title, id)
	if err != nil {
		return fmt.Errorf("updating list: %w", err)
	}
	return expectOne(res, "list", id)
}

// DeleteList removes a list; its tasks cascade
func (r *ListRepo) DeleteList(ctx context.Context, id int) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM lists WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting list: %w", err)
	}
	return expectOne(res, "list", id)
}

func scanPositions(ctx context.Context, q querier, query string, args ...any) ([]position.Item, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying positions: %w", err)
	}
	defer rows.Close()

	items := []position.Item{}
	for rows.Next() {
		var it position.Item
		if err := rows.Scan(&it.ID, &it.Position); err != nil {
			return nil, fmt.Errorf("scanning position: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
