package users

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranga-events/server/internal/audit"
)

type fakeRepo struct {
	byID map[uuid.UUID]*User
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byID: map[uuid.UUID]*User{}}
}

func (r *fakeRepo) CreateUser(_ context.Context, record CreateUserRecord) (*User, error) {
	for _, u := range r.byID {
		if u.Email == record.Email {
			return nil, ErrEmailTaken
		}
		if record.Phone != "" && u.Phone == record.Phone {
			return nil, ErrPhoneTaken
		}
	}
	user := &User{
		ID:           uuid.New(),
		Name:         record.Name,
		Email:        record.Email,
		Phone:        record.Phone,
		PasswordHash: record.PasswordHash,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	r.byID[user.ID] = user
	return user, nil
}

func (r *fakeRepo) GetUser(_ context.Context, id uuid.UUID) (*User, error) {
	user, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return user, nil
}

func (r *fakeRepo) GetByIdentifier(_ context.Context, identifier string) (*User, error) {
	for _, u := range r.byID {
		if u.Email == identifier || (u.Phone != "" && u.Phone == identifier) {
			return u, nil
		}
	}
	return nil, ErrNotFound
}

func (r *fakeRepo) UserExists(_ context.Context, id uuid.UUID) (bool, error) {
	_, ok := r.byID[id]
	return ok, nil
}

type staticIssuer struct{}

func (staticIssuer) Generate(userID uuid.UUID, _ bool) (string, error) {
	return "token-" + userID.String(), nil
}

type captureStore struct {
	entries []audit.Entry
}

func (s *captureStore) Append(_ context.Context, entry audit.Entry) error {
	s.entries = append(s.entries, entry)
	return nil
}

func newTestService() (*Service, *fakeRepo, *captureStore) {
	repo := newFakeRepo()
	store := &captureStore{}
	svc := NewService(repo, staticIssuer{}, audit.NewRecorder(store, zerolog.Nop()), zerolog.Nop())
	return svc, repo, store
}

func validRegistration() RegisterParams {
	return RegisterParams{
		Name:     "Awa Diop",
		Email:    "awa@example.com",
		Phone:    "+221771234567",
		Password: "correct horse",
	}
}

func TestRegister_NormalizesEmailAndHashes(t *testing.T) {
	svc, _, _ := newTestService()

	params := validRegistration()
	params.Email = "  AWA@Example.com "
	user, err := svc.Register(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, "awa@example.com", user.Email)
	assert.NotEmpty(t, user.PasswordHash)
	assert.NotContains(t, user.PasswordHash, "correct horse")
	assert.True(t, strings.HasPrefix(user.PasswordHash, "$2"))
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)

	dup := validRegistration()
	dup.Phone = "+221770000000"
	_, err = svc.Register(ctx, dup)
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegister_Validation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	short := validRegistration()
	short.Password = "abc"
	_, err := svc.Register(ctx, short)
	assert.Error(t, err)

	badEmail := validRegistration()
	badEmail.Email = "not-an-email"
	_, err = svc.Register(ctx, badEmail)
	assert.Error(t, err)
}

func TestLogin_ByEmailAndPhone(t *testing.T) {
	svc, _, store := newTestService()
	ctx := context.Background()
	registered, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)

	token, user, err := svc.Login(ctx, "awa@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.Equal(t, "token-"+registered.ID.String(), token)

	_, _, err = svc.Login(ctx, "+221771234567", "correct horse")
	require.NoError(t, err)

	var logins int
	for _, e := range store.entries {
		if e.Action == audit.ActionUserLogin {
			logins++
			require.NotNil(t, e.UserID)
			assert.Equal(t, registered.ID, *e.UserID)
		}
	}
	assert.Equal(t, 2, logins)
}

func TestLogin_FailureHashesIdentifier(t *testing.T) {
	svc, _, store := newTestService()
	ctx := context.Background()
	_, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "awa@example.com", "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "nobody@example.com", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	var failures []audit.Entry
	for _, e := range store.entries {
		if e.Action == audit.ActionUserLoginFailed {
			failures = append(failures, e)
		}
	}
	require.Len(t, failures, 2)
	for _, e := range failures {
		assert.Nil(t, e.UserID)
		hash, ok := e.Metadata["identifier_hash"].(string)
		require.True(t, ok)
		assert.Len(t, hash, 64)
		assert.NotContains(t, hash, "@")
	}
	assert.Equal(t, audit.HashIdentifier("awa@example.com"), failures[0].Metadata["identifier_hash"])
}
