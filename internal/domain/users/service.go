// Package users handles account registration and credential login.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/teranga-events/server/internal/audit"
	"github.com/teranga-events/server/internal/auth"
)

// TokenIssuer mints access tokens for authenticated users.
type TokenIssuer interface {
	Generate(userID uuid.UUID, platformAdmin bool) (string, error)
}

type Service struct {
	repo      Repository
	tokens    TokenIssuer
	recorder  *audit.Recorder
	validator *validator.Validate
	logger    zerolog.Logger
}

func NewService(repo Repository, tokens TokenIssuer, recorder *audit.Recorder, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		tokens:    tokens,
		recorder:  recorder,
		validator: validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger.With().Str("component", "users").Logger(),
	}
}

// Register creates a new account. The email is normalized to lowercase.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*User, error) {
	// Normalize before validating so padded or mixed-case emails pass
	// the email tag and land in storage in canonical form.
	params.Email = strings.ToLower(strings.TrimSpace(params.Email))
	params.Phone = strings.TrimSpace(params.Phone)

	if err := s.validator.Struct(params); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(params.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.CreateUser(ctx, CreateUserRecord{
		Name:         params.Name,
		Email:        params.Email,
		Phone:        params.Phone,
		PasswordHash: hash,
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Login authenticates by email or phone and returns an access token.
// Failures record an audit entry carrying only a hash of the attempted
// identifier and always map to ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, identifier, password string) (string, *User, error) {
	identifier = strings.TrimSpace(identifier)

	user, err := s.repo.GetByIdentifier(ctx, strings.ToLower(identifier))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.recordLoginFailure(ctx, identifier)
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("look up user: %w", err)
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		s.recordLoginFailure(ctx, identifier)
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user.ID, user.PlatformAdmin)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}

	s.recorder.Record(ctx, audit.Entry{
		UserID:     &user.ID,
		Action:     audit.ActionUserLogin,
		EntityType: "user",
		EntityID:   user.ID.String(),
	})
	return token, user, nil
}

// GetUser returns the account by id.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetUser(ctx, id)
}

func (s *Service) recordLoginFailure(ctx context.Context, identifier string) {
	s.recorder.Record(ctx, audit.Entry{
		Action:     audit.ActionUserLoginFailed,
		EntityType: "user",
		Metadata:   map[string]any{"identifier_hash": audit.HashIdentifier(identifier)},
	})
}
