package model

import "time"

// User represents an administrative account able to manage slots and
// review booking requests.  Storefront visitors are anonymous; only staff
// authenticate.  This struct corresponds to a row in the `users` table.
//
// Fields:
//
//	ID           – primary key identifier.
//	Email        – unique email address.
//	PasswordHash – bcrypt hashed password.
//	Role         – role name (ADMIN).
//	IsActive     – whether the account may log in.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}
