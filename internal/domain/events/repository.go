package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CreateEventRecord is the repository-level payload for inserting a draft.
type CreateEventRecord struct {
	OrgID         uuid.UUID
	Title         string
	Slug          string
	Description   string
	Category      Category
	VenueName     string
	VenueAddress  string
	City          string
	CountryCode   string
	CoverImageURL string
	Latitude      *float64
	Longitude     *float64
	IsOnline      bool
	StartAt       time.Time
	EndAt         time.Time
	Timezone      string
	Settings      map[string]any
}

// Repository persists events.
type Repository interface {
	// CreateEvent inserts a draft event. Returns ErrSlugTaken on slug
	// uniqueness violation.
	CreateEvent(ctx context.Context, record CreateEventRecord) (*Event, error)

	// GetEvent returns the event or ErrNotFound.
	GetEvent(ctx context.Context, id uuid.UUID) (*Event, error)

	// GetEventBySlug returns the event or ErrNotFound.
	GetEventBySlug(ctx context.Context, slug string) (*Event, error)

	// UpdateEvent applies non-nil fields and returns the updated event.
	UpdateEvent(ctx context.Context, id uuid.UUID, params UpdateEventParams) (*Event, error)

	// DeleteEvent removes the event; ticket types cascade.
	DeleteEvent(ctx context.Context, id uuid.UUID) error

	// MarkPublished transitions a draft to published and stamps
	// published_at. Any other stored status returns ErrInvalidState.
	MarkPublished(ctx context.Context, id uuid.UUID, at time.Time) (*Event, error)

	// MarkCanceled transitions a published event to canceled and stamps
	// canceled_at. Any other stored status returns ErrInvalidState.
	MarkCanceled(ctx context.Context, id uuid.UUID, at time.Time) (*Event, error)

	// ListForOrg returns every event of the organization, newest first.
	ListForOrg(ctx context.Context, orgID uuid.UUID) ([]Event, error)

	// ListPublic returns published events matching the filter.
	ListPublic(ctx context.Context, filter ListFilter) ([]Event, error)
}

// TicketTypeCounter reports how many ticket types an event has, archived
// included.
type TicketTypeCounter interface {
	CountForEvent(ctx context.Context, eventID uuid.UUID) (int, error)
}
