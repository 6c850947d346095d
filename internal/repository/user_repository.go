package repository

import (
	"context"
	"database/sql"
)

// UserRepo reads the 'users' table.  Accounts are created and managed by
// the identity service; this repository only answers existence checks.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Exists reports whether an active user with the given id exists.
func (r *UserRepo) Exists(ctx context.Context, id uint64) (bool, error) {
	var ok bool
	err := r.DB.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM users WHERE id=? AND is_active=1)",
		id).Scan(&ok)
	if err != nil {
		return false, Classify(err)
	}
	return ok, nil
}
