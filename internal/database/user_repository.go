package database

import (
	"context"
	"fmt"

	"github.com/thenoetrevino/kanban/internal/models"
)

// UserRepo stores the callers seen by the server.
type UserRepo struct {
	q querier
}

// UpsertUser inserts u or refreshes its name and email. Empty fields do not
// overwrite stored values.
func (r *UserRepo) UpsertUser(ctx context.Context, u models.User) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO users (id, name, email) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = CASE WHEN excluded.name <> '' THEN excluded.name ELSE users.name END,
		   email = CASE WHEN excluded.email <> '' THEN excluded.email ELSE users.email END`,
		u.ID, u.Name, u.Email)
	if err != nil {
		return fmt.Errorf("upserting user: %w", err)
	}
	return nil
}

// GetUser loads a user by id
func (r *UserRepo) GetUser(ctx context.Context, id string) (*models.User, error) {
	u := &models.User{}
	err := r.q.QueryRowContext(ctx, `SELECT id, name, email FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Name, &u.Email)
	if err != nil {
		return nil, notFound(err, "user", id)
	}
	return u, nil
}
