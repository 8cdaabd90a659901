package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranga-events/server/internal/domain/events"
	"github.com/teranga-events/server/internal/domain/orgs"
)

func seedOrg(t *testing.T, ctx context.Context, pool *pgxpool.Pool, slug string) uuid.UUID {
	t.Helper()
	ownerID := insertTestUser(t, ctx, pool, slug+"@example.com")
	org, err := NewOrgRepository(pool).CreateOrg(ctx, orgs.CreateOrgRecord{
		Name:        slug,
		Slug:        slug,
		CountryCode: "SN",
		OwnerUserID: ownerID,
	})
	require.NoError(t, err)
	return org.ID
}

func draftRecord(orgID uuid.UUID, slug string) events.CreateEventRecord {
	return events.CreateEventRecord{
		OrgID:    orgID,
		Title:    "Concert",
		Slug:     slug,
		Category: events.CategoryMusic,
		City:     "Dakar",
		StartAt:  time.Now().Add(48 * time.Hour),
		EndAt:    time.Now().Add(52 * time.Hour),
		Timezone: "Africa/Dakar",
		Settings: map[string]any{"show_remaining": true},
	}
}

func TestEventRepository_SlugCollision(t *testing.T) {
	ctx, pool := setupTestDB(t)
	repo := NewEventRepository(pool)
	orgID := seedOrg(t, ctx, pool, "collision-org")

	created, err := repo.CreateEvent(ctx, draftRecord(orgID, "concert-ab12"))
	require.NoError(t, err)
	assert.Equal(t, events.StatusDraft, created.Status)
	assert.Equal(t, "Africa/Dakar", created.Timezone)
	assert.Equal(t, map[string]any{"show_remaining": true}, created.Settings)

	_, err = repo.CreateEvent(ctx, draftRecord(orgID, "concert-ab12"))
	assert.ErrorIs(t, err, events.ErrSlugTaken)

	// A fresh suffix goes through, which is what the service retries with.
	_, err = repo.CreateEvent(ctx, draftRecord(orgID, "concert-cd34"))
	assert.NoError(t, err)
}

func TestEventRepository_StatusTransitionGuards(t *testing.T) {
	ctx, pool := setupTestDB(t)
	repo := NewEventRepository(pool)
	orgID := seedOrg(t, ctx, pool, "guard-org")

	event, err := repo.CreateEvent(ctx, draftRecord(orgID, "guarded-ef56"))
	require.NoError(t, err)

	published, err := repo.MarkPublished(ctx, event.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, events.StatusPublished, published.Status)

	// A second publish loses the guard: the row is no longer a draft.
	_, err = repo.MarkPublished(ctx, event.ID, time.Now())
	assert.ErrorIs(t, err, events.ErrInvalidState)

	canceled, err := repo.MarkCanceled(ctx, event.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, events.StatusCanceled, canceled.Status)

	_, err = repo.MarkCanceled(ctx, event.ID, time.Now())
	assert.ErrorIs(t, err, events.ErrInvalidState)

	_, err = repo.MarkPublished(ctx, uuid.New(), time.Now())
	assert.ErrorIs(t, err, events.ErrNotFound)
}
