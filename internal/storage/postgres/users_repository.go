package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/teranga-events/server/internal/domain/users"
)

var _ users.Repository = (*UserRepository)(nil)

type UserRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}

const userColumns = `id, name, email, COALESCE(phone, ''), password_hash, platform_admin, created_at, updated_at`

func scanUser(row pgx.Row) (*users.User, error) {
	var u users.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash, &u.PlatformAdmin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) CreateUser(ctx context.Context, record users.CreateUserRecord) (*users.User, error) {
	var phone *string
	if record.Phone != "" {
		phone = &record.Phone
	}
	row := r.queryer().QueryRow(ctx, `
		INSERT INTO users (name, email, phone, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING `+userColumns,
		record.Name, record.Email, phone, record.PasswordHash,
	)
	user, err := scanUser(row)
	if err != nil {
		switch {
		case isUniqueViolation(err, "users_email_key"):
			return nil, users.ErrEmailTaken
		case isUniqueViolation(err, "users_phone_key"):
			return nil, users.ErrPhoneTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (r *UserRepository) GetUser(ctx context.Context, id uuid.UUID) (*users.User, error) {
	row := r.queryer().QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		if noRows(err) {
			return nil, users.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (r *UserRepository) GetByIdentifier(ctx context.Context, identifier string) (*users.User, error) {
	row := r.queryer().QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE email = $1 OR phone = $1`,
		identifier,
	)
	user, err := scanUser(row)
	if err != nil {
		if noRows(err) {
			return nil, users.ErrNotFound
		}
		return nil, fmt.Errorf("get user by identifier: %w", err)
	}
	return user, nil
}

func (r *UserRepository) UserExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.queryer().QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("user exists: %w", err)
	}
	return exists, nil
}
