package database

import (
	"context"
	"database/sql"
)

// Repository provides a unified interface to all data operations.
// It composes domain-specific repositories using struct embedding.
type Repository struct {
	db   *sql.DB
	inTx bool

	*BoardRepo
	*ListRepo
	*TaskRepo
	*ActivityRepo
	*UserRepo
}

var _ DataStore = (*Repository)(nil)

// NewRepository creates a new Repository instance wrapping the given database connection.
func NewRepository(db *sql.DB) *Repository {
	return newRepository(db, db, false)
}

func newRepository(db *sql.DB, q querier, inTx bool) *Repository {
	return &Repository{
		db:           db,
		inTx:         inTx,
		BoardRepo:    &BoardRepo{q: q},
		ListRepo:     &ListRepo{q: q},
		TaskRepo:     &TaskRepo{q: q},
		ActivityRepo: &ActivityRepo{q: q},
		UserRepo:     &UserRepo{q: q},
	}
}

// WithTx runs fn against a repository bound to one transaction. Calls made
// on a repository that is already inside a transaction join it.
func (r *Repository) WithTx(ctx context.Context, fn func(DataStore) error) error {
	if r.inTx {
		return fn(r)
	}
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		return fn(newRepository(r.db, tx, true))
	})
}
