package users

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no user exists for the given id.
	ErrNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when registering with an email already in
	// use.
	ErrEmailTaken = errors.New("email already registered")
	// ErrPhoneTaken is returned when registering with a phone already in
	// use.
	ErrPhoneTaken = errors.New("phone already registered")
	// ErrInvalidCredentials is returned on login failure. It covers both
	// unknown identifiers and bad passwords so the response does not reveal
	// which.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// User is a platform account. A user may belong to any number of
// organizations through memberships.
type User struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone,omitempty"`
	PasswordHash  string    `json:"-"`
	PlatformAdmin bool      `json:"platform_admin,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// RegisterParams carries caller input for account creation.
type RegisterParams struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Phone    string `json:"phone" validate:"omitempty,e164"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// CreateUserRecord is the repository-level payload: the password arrives
// already hashed.
type CreateUserRecord struct {
	Name         string
	Email        string
	Phone        string
	PasswordHash string
}

// Repository persists users.
type Repository interface {
	// CreateUser inserts a user. Returns ErrEmailTaken or ErrPhoneTaken on
	// uniqueness violation.
	CreateUser(ctx context.Context, record CreateUserRecord) (*User, error)

	// GetUser returns the user or ErrNotFound.
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)

	// GetByIdentifier looks a user up by email or phone; ErrNotFound when
	// neither matches.
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)

	// UserExists reports whether the user id exists.
	UserExists(ctx context.Context, id uuid.UUID) (bool, error)
}
