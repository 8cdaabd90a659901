// Package events implements the event lifecycle: draft creation, field
// updates, publish/cancel transitions, deletion, and public discovery.
package events

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/teranga-events/server/internal/audit"
	"github.com/teranga-events/server/internal/domain/policy"
	"github.com/teranga-events/server/internal/domain/slug"
)

const (
	slugSuffixLen   = 4
	maxSlugAttempts = 25
)

type Service struct {
	repo      Repository
	tickets   TicketTypeCounter
	policy    *policy.Evaluator
	recorder  *audit.Recorder
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(repo Repository, tickets TicketTypeCounter, evaluator *policy.Evaluator, recorder *audit.Recorder, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		tickets:   tickets,
		policy:    evaluator,
		recorder:  recorder,
		validator: validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger.With().Str("component", "events").Logger(),
		now:       time.Now,
	}
}

// CreateEvent creates a draft event for the organization. The slug derives
// from the title and always carries a random suffix; collisions retry with
// a fresh one.
func (s *Service) CreateEvent(ctx context.Context, actor policy.Actor, orgID uuid.UUID, params CreateEventParams) (*Event, error) {
	if err := s.validator.Struct(params); err != nil {
		return nil, err
	}
	if !params.StartAt.Before(params.EndAt) || !params.StartAt.After(s.now()) {
		return nil, ErrInvalidSchedule
	}
	if err := s.policy.Evaluate(ctx, actor, policy.ActionEventCreate, policy.Resource{OrgID: orgID}); err != nil {
		return nil, err
	}

	base := slug.Make(params.Title)
	if base == "" {
		base = "event"
	}

	var event *Event
	for attempt := 0; ; attempt++ {
		candidate := base + "-" + slug.Suffix(slugSuffixLen)
		created, err := s.repo.CreateEvent(ctx, CreateEventRecord{
			OrgID:         orgID,
			Title:         params.Title,
			Slug:          candidate,
			Description:   params.Description,
			Category:      Category(params.Category),
			VenueName:     params.VenueName,
			VenueAddress:  params.VenueAddress,
			City:          params.City,
			CountryCode:   params.CountryCode,
			CoverImageURL: params.CoverImageURL,
			Latitude:      params.Latitude,
			Longitude:     params.Longitude,
			IsOnline:      params.IsOnline,
			StartAt:       params.StartAt,
			EndAt:         params.EndAt,
			Timezone:      params.Timezone,
			Settings:      params.Settings,
		})
		if err == nil {
			event = created
			break
		}
		if !errors.Is(err, ErrSlugTaken) {
			return nil, fmt.Errorf("create event: %w", err)
		}
		if attempt >= maxSlugAttempts {
			return nil, fmt.Errorf("create event: no free slug for %q after %d attempts", base, attempt)
		}
	}

	s.recorder.Record(ctx, audit.Entry{
		UserID:     &actor.ID,
		OrgID:      &orgID,
		Action:     audit.ActionEventCreated,
		EntityType: "event",
		EntityID:   event.ID.String(),
		Metadata:   map[string]any{"title": event.Title, "slug": event.Slug},
	})
	return event, nil
}

// GetEvent returns the event subject to visibility rules: published events
// are public, non-published events are visible to organization members only.
func (s *Service) GetEvent(ctx context.Context, actor policy.Actor, id uuid.UUID) (*Event, error) {
	event, err := s.repo.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.viewPolicy(ctx, actor, event); err != nil {
		return nil, err
	}
	return event, nil
}

// GetEventBySlug is GetEvent addressed by slug.
func (s *Service) GetEventBySlug(ctx context.Context, actor policy.Actor, eventSlug string) (*Event, error) {
	event, err := s.repo.GetEventBySlug(ctx, eventSlug)
	if err != nil {
		return nil, err
	}
	if err := s.viewPolicy(ctx, actor, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *Service) viewPolicy(ctx context.Context, actor policy.Actor, event *Event) error {
	return s.policy.Evaluate(ctx, actor, policy.ActionEventView, policy.Resource{
		OrgID:       event.OrgID,
		EventStatus: string(event.Status),
	})
}

// ListPublic returns published events matching the filter. No actor: the
// listing is public.
func (s *Service) ListPublic(ctx context.Context, filter ListFilter) ([]Event, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	return s.repo.ListPublic(ctx, filter)
}

// ListForOrg returns all of the organization's events regardless of status.
// Any member may list.
func (s *Service) ListForOrg(ctx context.Context, actor policy.Actor, orgID uuid.UUID) ([]Event, error) {
	if err := s.policy.Evaluate(ctx, actor, policy.ActionOrgView, policy.Resource{OrgID: orgID}); err != nil {
		return nil, err
	}
	return s.repo.ListForOrg(ctx, orgID)
}

// UpdateEvent applies field updates. Canceled and ended events reject
// updates with ErrInvalidState. Emits one audit entry when anything changed.
func (s *Service) UpdateEvent(ctx context.Context, actor policy.Actor, id uuid.UUID, params UpdateEventParams) (*Event, error) {
	if err := s.validator.Struct(params); err != nil {
		return nil, err
	}
	event, err := s.repo.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Evaluate(ctx, actor, policy.ActionEventUpdate, policy.Resource{OrgID: event.OrgID, EventStatus: string(event.Status)}); err != nil {
		return nil, err
	}
	if !event.Status.CanBeUpdated() {
		return nil, ErrInvalidState
	}

	start, end := event.StartAt, event.EndAt
	if params.StartAt != nil {
		start = *params.StartAt
	}
	if params.EndAt != nil {
		end = *params.EndAt
	}
	if !start.Before(end) {
		return nil, ErrInvalidSchedule
	}

	changes := eventChanges(event, params)
	updated, err := s.repo.UpdateEvent(ctx, id, params)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}

	if len(changes) > 0 {
		s.recorder.Record(ctx, audit.Entry{
			UserID:     &actor.ID,
			OrgID:      &event.OrgID,
			Action:     audit.ActionEventUpdated,
			EntityType: "event",
			EntityID:   event.ID.String(),
			Changes:    changes,
		})
	}
	return updated, nil
}

// DeleteEvent hard-deletes a draft. The policy denies deletion of any
// non-draft event, so nothing that was ever published can be removed.
func (s *Service) DeleteEvent(ctx context.Context, actor policy.Actor, id uuid.UUID) error {
	event, err := s.repo.GetEvent(ctx, id)
	if err != nil {
		return err
	}
	if err := s.policy.Evaluate(ctx, actor, policy.ActionEventDelete, policy.Resource{OrgID: event.OrgID, EventStatus: string(event.Status)}); err != nil {
		return err
	}

	if err := s.repo.DeleteEvent(ctx, id); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}

	s.recorder.Record(ctx, audit.Entry{
		UserID:     &actor.ID,
		OrgID:      &event.OrgID,
		Action:     audit.ActionEventDeleted,
		EntityType: "event",
		EntityID:   event.ID.String(),
		Metadata:   map[string]any{"title": event.Title, "slug": event.Slug},
	})
	return nil
}

// PublishEvent transitions a draft to published. Publishing requires at
// least one ticket type; archived ones count.
func (s *Service) PublishEvent(ctx context.Context, actor policy.Actor, id uuid.UUID) (*Event, error) {
	event, err := s.repo.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Evaluate(ctx, actor, policy.ActionEventPublish, policy.Resource{OrgID: event.OrgID, EventStatus: string(event.Status)}); err != nil {
		return nil, err
	}

	count, err := s.tickets.CountForEvent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("count ticket types: %w", err)
	}
	if count == 0 {
		return nil, ErrNoTicketTypes
	}

	// Record the pre-transition status before the repository mutates
	// anything it may share with us.
	prevStatus := event.Status

	published, err := s.repo.MarkPublished(ctx, id, s.now())
	if err != nil {
		return nil, fmt.Errorf("publish event: %w", err)
	}

	s.recorder.Record(ctx, audit.Entry{
		UserID:     &actor.ID,
		OrgID:      &event.OrgID,
		Action:     audit.ActionEventPublished,
		EntityType: "event",
		EntityID:   event.ID.String(),
		Changes:    map[string]any{"status": audit.Change(string(prevStatus), string(StatusPublished))},
	})
	return published, nil
}

// CancelEvent transitions a published event to canceled. Drafts are deleted,
// not canceled; ended and already-canceled events reject with
// ErrInvalidState.
func (s *Service) CancelEvent(ctx context.Context, actor policy.Actor, id uuid.UUID) (*Event, error) {
	event, err := s.repo.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Evaluate(ctx, actor, policy.ActionEventCancel, policy.Resource{OrgID: event.OrgID, EventStatus: string(event.Status)}); err != nil {
		return nil, err
	}
	if !event.Status.CanBeCanceled() {
		return nil, ErrInvalidState
	}

	prevStatus := event.Status

	canceled, err := s.repo.MarkCanceled(ctx, id, s.now())
	if err != nil {
		return nil, fmt.Errorf("cancel event: %w", err)
	}

	s.recorder.Record(ctx, audit.Entry{
		UserID:     &actor.ID,
		OrgID:      &event.OrgID,
		Action:     audit.ActionEventCanceled,
		EntityType: "event",
		EntityID:   event.ID.String(),
		Changes:    map[string]any{"status": audit.Change(string(prevStatus), string(StatusCanceled))},
	})
	return canceled, nil
}

func eventChanges(event *Event, params UpdateEventParams) map[string]any {
	changes := map[string]any{}
	if params.Title != nil && *params.Title != event.Title {
		changes["title"] = audit.Change(event.Title, *params.Title)
	}
	if params.Description != nil && *params.Description != event.Description {
		changes["description"] = audit.Change(event.Description, *params.Description)
	}
	if params.Category != nil && Category(*params.Category) != event.Category {
		changes["category"] = audit.Change(string(event.Category), *params.Category)
	}
	if params.VenueName != nil && *params.VenueName != event.VenueName {
		changes["venue_name"] = audit.Change(event.VenueName, *params.VenueName)
	}
	if params.VenueAddress != nil && *params.VenueAddress != event.VenueAddress {
		changes["venue_address"] = audit.Change(event.VenueAddress, *params.VenueAddress)
	}
	if params.City != nil && *params.City != event.City {
		changes["city"] = audit.Change(event.City, *params.City)
	}
	if params.CountryCode != nil && *params.CountryCode != event.CountryCode {
		changes["country_code"] = audit.Change(event.CountryCode, *params.CountryCode)
	}
	if params.CoverImageURL != nil && *params.CoverImageURL != event.CoverImageURL {
		changes["cover_image_url"] = audit.Change(event.CoverImageURL, *params.CoverImageURL)
	}
	if params.Latitude != nil && !floatPtrEqual(params.Latitude, event.Latitude) {
		changes["latitude"] = audit.Change(event.Latitude, *params.Latitude)
	}
	if params.Longitude != nil && !floatPtrEqual(params.Longitude, event.Longitude) {
		changes["longitude"] = audit.Change(event.Longitude, *params.Longitude)
	}
	if params.IsOnline != nil && *params.IsOnline != event.IsOnline {
		changes["is_online"] = audit.Change(event.IsOnline, *params.IsOnline)
	}
	if params.StartAt != nil && !params.StartAt.Equal(event.StartAt) {
		changes["start_at"] = audit.Change(event.StartAt.Format(time.RFC3339), params.StartAt.Format(time.RFC3339))
	}
	if params.EndAt != nil && !params.EndAt.Equal(event.EndAt) {
		changes["end_at"] = audit.Change(event.EndAt.Format(time.RFC3339), params.EndAt.Format(time.RFC3339))
	}
	if params.Timezone != nil && *params.Timezone != event.Timezone {
		changes["timezone"] = audit.Change(event.Timezone, *params.Timezone)
	}
	if params.Settings != nil && !reflect.DeepEqual(params.Settings, event.Settings) {
		changes["settings"] = audit.Change(event.Settings, params.Settings)
	}
	return changes
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
