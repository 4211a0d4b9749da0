package database

import (
	"context"
	"fmt"

	"github.com/thenoetrevino/kanban/internal/models"
)

// ActivityRepo appends and reads the per-board audit log.
type ActivityRepo struct {
	q querier
}

// AppendActivity records a; ID and CreatedAt are filled in on success
func (r *ActivityRepo) AppendActivity(ctx context.Context, a *models.Activity) error {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO activities (board_id, actor_id, action, entity_type, entity_title, details)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.BoardID, a.ActorID, string(a.Action), string(a.EntityType), a.EntityTitle, a.Details)
	if err != nil {
		return fmt.Errorf("inserting activity: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = int(id)
	return r.q.QueryRowContext(ctx, `SELECT created_at FROM activities WHERE id = ?`, id).Scan(&a.CreatedAt)
}

// ListActivity returns the newest limit records of a board, newest first
func (r *ActivityRepo) ListActivity(ctx context.Context, boardID, limit int) ([]*models.Activity, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, board_id, actor_id, action, entity_type, entity_title, details, created_at
		 FROM activities WHERE board_id = ? ORDER BY id DESC LIMIT ?`, boardID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying activity: %w", err)
	}
	defer rows.Close()

	out := []*models.Activity{}
	for rows.Next() {
		a := &models.Activity{}
		var action, entity string
		if err := rows.Scan(&a.ID, &a.BoardID, &a.ActorID, &action, &entity, &a.EntityTitle, &a.Details, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning activity row: %w", err)
		}
		a.Action = models.ActivityAction(action)
		a.EntityType = models.EntityType(entity)
		out = append(out, a)
	}
	return out, rows.Err()
}
