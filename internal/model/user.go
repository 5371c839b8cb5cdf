package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserStore defines persistence operations for users.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (User, error)
	GetByUsernameOrEmail(ctx context.Context, username, email string) (User, error)
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	Create(ctx context.Context, user User) (User, error)
	List(ctx context.Context, offset, limit int) ([]User, error)
}

// User represents a stored user with authentication material.
type User struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

// Identity carries the claims embedded into issued tokens. It is the only
// part of the user record the session layer reads.
type Identity struct {
	ID       uuid.UUID
	Username string
}

// Identity projects the token-visible part of a user.
func (u User) Identity() Identity {
	return Identity{ID: u.ID, Username: u.Username}
}
