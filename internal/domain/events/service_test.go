package events

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranga-events/server/internal/audit"
	"github.com/teranga-events/server/internal/domain/policy"
	"github.com/teranga-events/server/internal/domain/roles"
)

type fakeRepo struct {
	events map[uuid.UUID]*Event
	slugs  map[string]uuid.UUID

	// rejectSlugs forces ErrSlugTaken for the first N creates.
	rejectSlugs int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{events: map[uuid.UUID]*Event{}, slugs: map[string]uuid.UUID{}}
}

func (r *fakeRepo) CreateEvent(_ context.Context, record CreateEventRecord) (*Event, error) {
	if r.rejectSlugs > 0 {
		r.rejectSlugs--
		return nil, ErrSlugTaken
	}
	if _, taken := r.slugs[record.Slug]; taken {
		return nil, ErrSlugTaken
	}
	event := &Event{
		ID:           uuid.New(),
		OrgID:        record.OrgID,
		Title:        record.Title,
		Slug:         record.Slug,
		Description:  record.Description,
		Category:     record.Category,
		VenueName:    record.VenueName,
		VenueAddress: record.VenueAddress,
		City:         record.City,
		CountryCode:  record.CountryCode,
		Latitude:     record.Latitude,
		Longitude:    record.Longitude,
		IsOnline:     record.IsOnline,
		StartAt:      record.StartAt,
		EndAt:        record.EndAt,
		Timezone:     record.Timezone,
		Settings:     record.Settings,
		Status:       StatusDraft,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	r.events[event.ID] = event
	r.slugs[event.Slug] = event.ID
	c := *event
	return &c, nil
}

func (r *fakeRepo) GetEvent(_ context.Context, id uuid.UUID) (*Event, error) {
	event, ok := r.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	// Return a copy, like a real scan would. Callers must not see later
	// mutations through a shared pointer.
	c := *event
	return &c, nil
}

func (r *fakeRepo) GetEventBySlug(_ context.Context, slug string) (*Event, error) {
	id, ok := r.slugs[slug]
	if !ok {
		return nil, ErrNotFound
	}
	c := *r.events[id]
	return &c, nil
}

func (r *fakeRepo) UpdateEvent(_ context.Context, id uuid.UUID, params UpdateEventParams) (*Event, error) {
	event, ok := r.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	if params.Title != nil {
		event.Title = *params.Title
	}
	if params.Description != nil {
		event.Description = *params.Description
	}
	if params.Category != nil {
		event.Category = Category(*params.Category)
	}
	if params.City != nil {
		event.City = *params.City
	}
	if params.Latitude != nil {
		event.Latitude = params.Latitude
	}
	if params.Longitude != nil {
		event.Longitude = params.Longitude
	}
	if params.IsOnline != nil {
		event.IsOnline = *params.IsOnline
	}
	if params.StartAt != nil {
		event.StartAt = *params.StartAt
	}
	if params.EndAt != nil {
		event.EndAt = *params.EndAt
	}
	if params.Timezone != nil {
		event.Timezone = *params.Timezone
	}
	if params.Settings != nil {
		event.Settings = params.Settings
	}
	c := *event
	return &c, nil
}

func (r *fakeRepo) DeleteEvent(_ context.Context, id uuid.UUID) error {
	event, ok := r.events[id]
	if !ok {
		return ErrNotFound
	}
	delete(r.slugs, event.Slug)
	delete(r.events, id)
	return nil
}

func (r *fakeRepo) MarkPublished(_ context.Context, id uuid.UUID, at time.Time) (*Event, error) {
	event, ok := r.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	if event.Status != StatusDraft {
		return nil, ErrInvalidState
	}
	event.Status = StatusPublished
	event.PublishedAt = &at
	c := *event
	return &c, nil
}

func (r *fakeRepo) MarkCanceled(_ context.Context, id uuid.UUID, at time.Time) (*Event, error) {
	event, ok := r.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	if event.Status != StatusPublished {
		return nil, ErrInvalidState
	}
	event.Status = StatusCanceled
	event.CanceledAt = &at
	c := *event
	return &c, nil
}

func (r *fakeRepo) ListForOrg(_ context.Context, orgID uuid.UUID) ([]Event, error) {
	var result []Event
	for _, e := range r.events {
		if e.OrgID == orgID {
			result = append(result, *e)
		}
	}
	return result, nil
}

func (r *fakeRepo) ListPublic(_ context.Context, filter ListFilter) ([]Event, error) {
	var result []Event
	for _, e := range r.events {
		if e.Status != StatusPublished {
			continue
		}
		if filter.Category != "" && e.Category != filter.Category {
			continue
		}
		if filter.City != "" && e.City != filter.City {
			continue
		}
		result = append(result, *e)
	}
	return result, nil
}

type fakeCounter struct {
	counts map[uuid.UUID]int
}

func (c *fakeCounter) CountForEvent(_ context.Context, eventID uuid.UUID) (int, error) {
	return c.counts[eventID], nil
}

type fakeMembers map[uuid.UUID]map[uuid.UUID]roles.Role

func (m fakeMembers) MemberRole(_ context.Context, orgID, userID uuid.UUID) (roles.Role, bool, error) {
	role, ok := m[orgID][userID]
	return role, ok, nil
}

type captureStore struct {
	entries []audit.Entry
}

func (s *captureStore) Append(_ context.Context, entry audit.Entry) error {
	s.entries = append(s.entries, entry)
	return nil
}

type fixture struct {
	svc     *Service
	repo    *fakeRepo
	counter *fakeCounter
	store   *captureStore
	orgID   uuid.UUID
	owner   policy.Actor
	staff   policy.Actor
	admin   policy.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	orgID := uuid.New()
	owner := policy.Actor{ID: uuid.New(), Authenticated: true}
	admin := policy.Actor{ID: uuid.New(), Authenticated: true}
	staff := policy.Actor{ID: uuid.New(), Authenticated: true}
	members := fakeMembers{orgID: {
		owner.ID: roles.RoleOwner,
		admin.ID: roles.RoleAdmin,
		staff.ID: roles.RoleStaff,
	}}
	repo := newFakeRepo()
	counter := &fakeCounter{counts: map[uuid.UUID]int{}}
	store := &captureStore{}
	svc := NewService(repo, counter, policy.NewEvaluator(members), audit.NewRecorder(store, zerolog.Nop()), zerolog.Nop())
	return &fixture{svc: svc, repo: repo, counter: counter, store: store, orgID: orgID, owner: owner, staff: staff, admin: admin}
}

func validParams() CreateEventParams {
	return CreateEventParams{
		Title:    "Festival des Arts",
		Category: "music",
		City:     "Abidjan",
		StartAt:  time.Now().Add(48 * time.Hour),
		EndAt:    time.Now().Add(52 * time.Hour),
	}
}

func (f *fixture) mustCreate(t *testing.T, params CreateEventParams) *Event {
	t.Helper()
	event, err := f.svc.CreateEvent(context.Background(), f.owner, f.orgID, params)
	require.NoError(t, err)
	return event
}

func (f *fixture) mustPublish(t *testing.T, event *Event) *Event {
	t.Helper()
	f.counter.counts[event.ID] = 1
	published, err := f.svc.PublishEvent(context.Background(), f.owner, event.ID)
	require.NoError(t, err)
	return published
}

var slugPattern = regexp.MustCompile(`^festival-des-arts-[a-z0-9]{4}$`)

func TestCreateEvent_SlugFromTitleWithSuffix(t *testing.T) {
	f := newFixture(t)

	event := f.mustCreate(t, validParams())
	assert.Regexp(t, slugPattern, event.Slug)
	assert.Equal(t, StatusDraft, event.Status)

	require.Len(t, f.store.entries, 1)
	assert.Equal(t, audit.ActionEventCreated, f.store.entries[0].Action)
	assert.Equal(t, event.ID.String(), f.store.entries[0].EntityID)
}

func TestCreateEvent_SlugCollisionRetries(t *testing.T) {
	f := newFixture(t)
	f.repo.rejectSlugs = 3

	event := f.mustCreate(t, validParams())
	assert.Regexp(t, slugPattern, event.Slug)
}

func TestCreateEvent_LocationAndSettings(t *testing.T) {
	f := newFixture(t)

	lat, lng := 5.3364, -4.0267
	params := validParams()
	params.Latitude = &lat
	params.Longitude = &lng
	params.Timezone = "Africa/Abidjan"
	params.Settings = map[string]any{"show_remaining": true}

	event := f.mustCreate(t, params)
	require.NotNil(t, event.Latitude)
	assert.Equal(t, lat, *event.Latitude)
	require.NotNil(t, event.Longitude)
	assert.Equal(t, lng, *event.Longitude)
	assert.False(t, event.IsOnline)
	assert.Equal(t, "Africa/Abidjan", event.Timezone)
	assert.Equal(t, map[string]any{"show_remaining": true}, event.Settings)
}

func TestCreateEvent_OnlineEvent(t *testing.T) {
	f := newFixture(t)

	params := validParams()
	params.IsOnline = true
	event := f.mustCreate(t, params)
	assert.True(t, event.IsOnline)

	bad := validParams()
	bad.Latitude = new(float64)
	*bad.Latitude = 91 // out of range
	_, err := f.svc.CreateEvent(context.Background(), f.owner, f.orgID, bad)
	assert.Error(t, err)

	badTZ := validParams()
	badTZ.Timezone = "Mars/Olympus"
	_, err = f.svc.CreateEvent(context.Background(), f.owner, f.orgID, badTZ)
	assert.Error(t, err)
}

func TestUpdateEvent_TimezoneAndSettingsAudited(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event := f.mustCreate(t, validParams())
	recorded := len(f.store.entries)

	tz := "Africa/Dakar"
	online := true
	updated, err := f.svc.UpdateEvent(ctx, f.owner, event.ID, UpdateEventParams{
		Timezone: &tz,
		IsOnline: &online,
		Settings: map[string]any{"waitlist": true},
	})
	require.NoError(t, err)
	assert.Equal(t, tz, updated.Timezone)
	assert.True(t, updated.IsOnline)

	require.Len(t, f.store.entries, recorded+1)
	entry := f.store.entries[len(f.store.entries)-1]
	assert.Equal(t, map[string]any{"from": "", "to": tz}, entry.Changes["timezone"])
	assert.Equal(t, map[string]any{"from": false, "to": true}, entry.Changes["is_online"])
	assert.Contains(t, entry.Changes, "settings")
}

func TestCreateEvent_ScheduleValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	past := validParams()
	past.StartAt = time.Now().Add(-time.Hour)
	_, err := f.svc.CreateEvent(ctx, f.owner, f.orgID, past)
	assert.ErrorIs(t, err, ErrInvalidSchedule)

	inverted := validParams()
	inverted.EndAt = inverted.StartAt.Add(-time.Hour)
	_, err = f.svc.CreateEvent(ctx, f.owner, f.orgID, inverted)
	assert.ErrorIs(t, err, ErrInvalidSchedule)
}

func TestCreateEvent_StaffAllowedOutsiderDenied(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateEvent(ctx, f.staff, f.orgID, validParams())
	assert.NoError(t, err)

	outsider := policy.Actor{ID: uuid.New(), Authenticated: true}
	_, err = f.svc.CreateEvent(ctx, outsider, f.orgID, validParams())
	assert.ErrorIs(t, err, policy.ErrForbidden)
}

func TestGetEvent_Visibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	draft := f.mustCreate(t, validParams())

	// Draft: members only.
	_, err := f.svc.GetEvent(ctx, f.staff, draft.ID)
	assert.NoError(t, err)
	_, err = f.svc.GetEvent(ctx, policy.Anonymous, draft.ID)
	assert.ErrorIs(t, err, policy.ErrForbidden)
	outsider := policy.Actor{ID: uuid.New(), Authenticated: true}
	_, err = f.svc.GetEvent(ctx, outsider, draft.ID)
	assert.ErrorIs(t, err, policy.ErrForbidden)

	// Published: anyone, including anonymous.
	published := f.mustPublish(t, draft)
	_, err = f.svc.GetEvent(ctx, policy.Anonymous, published.ID)
	assert.NoError(t, err)

	_, err = f.svc.GetEvent(ctx, f.owner, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetEventBySlug(t *testing.T) {
	f := newFixture(t)
	event := f.mustPublish(t, f.mustCreate(t, validParams()))

	got, err := f.svc.GetEventBySlug(context.Background(), policy.Anonymous, event.Slug)
	require.NoError(t, err)
	assert.Equal(t, event.ID, got.ID)
}

func TestUpdateEvent_FrozenAfterCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event := f.mustPublish(t, f.mustCreate(t, validParams()))
	_, err := f.svc.CancelEvent(ctx, f.owner, event.ID)
	require.NoError(t, err)

	title := "New Title"
	_, err = f.svc.UpdateEvent(ctx, f.owner, event.ID, UpdateEventParams{Title: &title})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestUpdateEvent_AuditsDiff(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event := f.mustCreate(t, validParams())
	recorded := len(f.store.entries)

	title := "Festival des Arts 2026"
	updated, err := f.svc.UpdateEvent(ctx, f.admin, event.ID, UpdateEventParams{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)

	require.Len(t, f.store.entries, recorded+1)
	entry := f.store.entries[len(f.store.entries)-1]
	assert.Equal(t, audit.ActionEventUpdated, entry.Action)
	assert.Equal(t, map[string]any{"from": "Festival des Arts", "to": title}, entry.Changes["title"])

	// Same title again: no new entry.
	_, err = f.svc.UpdateEvent(ctx, f.admin, event.ID, UpdateEventParams{Title: &title})
	require.NoError(t, err)
	assert.Len(t, f.store.entries, recorded+1)
}

func TestUpdateEvent_MergedScheduleChecked(t *testing.T) {
	f := newFixture(t)
	event := f.mustCreate(t, validParams())

	// Moving the end before the existing start must fail even though only
	// one bound changes.
	badEnd := event.StartAt.Add(-time.Hour)
	_, err := f.svc.UpdateEvent(context.Background(), f.owner, event.ID, UpdateEventParams{EndAt: &badEnd})
	assert.ErrorIs(t, err, ErrInvalidSchedule)
}

func TestDeleteEvent_DraftOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	draft := f.mustCreate(t, validParams())
	err := f.svc.DeleteEvent(ctx, f.owner, draft.ID)
	require.NoError(t, err)
	_, err = f.repo.GetEvent(ctx, draft.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	entry := f.store.entries[len(f.store.entries)-1]
	assert.Equal(t, audit.ActionEventDeleted, entry.Action)

	published := f.mustPublish(t, f.mustCreate(t, validParams()))
	err = f.svc.DeleteEvent(ctx, f.owner, published.ID)
	assert.ErrorIs(t, err, policy.ErrForbidden)
}

func TestDeleteEvent_OwnerOnly(t *testing.T) {
	f := newFixture(t)
	draft := f.mustCreate(t, validParams())

	err := f.svc.DeleteEvent(context.Background(), f.admin, draft.ID)
	assert.ErrorIs(t, err, policy.ErrForbidden)
}

func TestPublishEvent_RequiresTicketTypes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	draft := f.mustCreate(t, validParams())

	_, err := f.svc.PublishEvent(ctx, f.owner, draft.ID)
	assert.ErrorIs(t, err, ErrNoTicketTypes)

	f.counter.counts[draft.ID] = 2
	published, err := f.svc.PublishEvent(ctx, f.owner, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPublished, published.Status)
	require.NotNil(t, published.PublishedAt)

	entry := f.store.entries[len(f.store.entries)-1]
	assert.Equal(t, audit.ActionEventPublished, entry.Action)
	assert.Equal(t, map[string]any{"from": "draft", "to": "published"}, entry.Changes["status"])

	// Publishing again is denied: only drafts publish.
	_, err = f.svc.PublishEvent(ctx, f.owner, draft.ID)
	assert.ErrorIs(t, err, policy.ErrForbidden)
}

func TestCancelEvent_Transitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	draft := f.mustCreate(t, validParams())
	_, err := f.svc.CancelEvent(ctx, f.owner, draft.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	published := f.mustPublish(t, draft)
	canceled, err := f.svc.CancelEvent(ctx, f.admin, published.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, canceled.Status)
	require.NotNil(t, canceled.CanceledAt)

	entry := f.store.entries[len(f.store.entries)-1]
	assert.Equal(t, audit.ActionEventCanceled, entry.Action)
	assert.Equal(t, map[string]any{"from": "published", "to": "canceled"}, entry.Changes["status"])

	_, err = f.svc.CancelEvent(ctx, f.owner, published.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCancelEvent_StaffDenied(t *testing.T) {
	f := newFixture(t)
	published := f.mustPublish(t, f.mustCreate(t, validParams()))

	_, err := f.svc.CancelEvent(context.Background(), f.staff, published.ID)
	assert.ErrorIs(t, err, policy.ErrForbidden)
}

func TestListPublic_PublishedOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.mustCreate(t, validParams())
	published := f.mustPublish(t, f.mustCreate(t, validParams()))

	listed, err := f.svc.ListPublic(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, published.ID, listed[0].ID)

	none, err := f.svc.ListPublic(ctx, ListFilter{Category: CategoryTech})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListForOrg_MembersOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mustCreate(t, validParams())
	f.mustPublish(t, f.mustCreate(t, validParams()))

	all, err := f.svc.ListForOrg(ctx, f.staff, f.orgID)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	outsider := policy.Actor{ID: uuid.New(), Authenticated: true}
	_, err = f.svc.ListForOrg(ctx, outsider, f.orgID)
	assert.ErrorIs(t, err, policy.ErrForbidden)
}

func TestCreateEvent_ValidationFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	missingTitle := validParams()
	missingTitle.Title = ""
	_, err := f.svc.CreateEvent(ctx, f.owner, f.orgID, missingTitle)
	assert.Error(t, err)

	badCategory := validParams()
	badCategory.Category = "circus"
	_, err = f.svc.CreateEvent(ctx, f.owner, f.orgID, badCategory)
	assert.Error(t, err)

	longTitle := validParams()
	longTitle.Title = strings.Repeat("x", 201)
	_, err = f.svc.CreateEvent(ctx, f.owner, f.orgID, longTitle)
	assert.Error(t, err)
}
