package repository

import (
	"context"
	"database/sql"

	"github.com/franpass87/fp-experiences/internal/model"
)

// UserRepo provides data access to the administrative users table.
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo returns a new UserRepo bound to the given database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// GetByEmail returns the user with the given email.  sql.ErrNoRows is
// returned unchanged when no account exists; the login handler maps it to
// a generic credentials failure.
// Upsert creates the account or, when the email already exists, replaces
// its password hash, role and active flag.  Used by the provisioning CLI.
func (r *UserRepo) Upsert(ctx context.Context, u *model.User) error {
	const q = `INSERT INTO users (email, password_hash, role, is_active)
	           VALUES (?, ?, ?, ?)
	           ON DUPLICATE KEY UPDATE
	               password_hash = VALUES(password_hash),
	               role = VALUES(role),
	               is_active = VALUES(is_active)`
	_, err := r.db.ExecContext(ctx, q, u.Email, u.PasswordHash, u.Role, u.IsActive)
	return err
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	const q = `SELECT id, email, password_hash, role, is_active, created_at, updated_at
	           FROM users WHERE email = ?`
	var u model.User
	err := r.db.QueryRowContext(ctx, q, email).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
