package events

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no event exists for the given id.
	ErrNotFound = errors.New("event not found")
	// ErrInvalidState is returned when a lifecycle transition is attempted
	// from a status that does not allow it.
	ErrInvalidState = errors.New("event status does not allow this operation")
	// ErrNoTicketTypes is returned when publishing an event that has no
	// ticket types.
	ErrNoTicketTypes = errors.New("event has no ticket types")
	// ErrInvalidSchedule is returned when start/end times are out of order
	// or the start is in the past.
	ErrInvalidSchedule = errors.New("event start must be in the future and precede its end")
	// ErrSlugTaken signals a slug uniqueness violation; the service retries
	// with a fresh suffix.
	ErrSlugTaken = errors.New("event slug already in use")
)

// Status is the event lifecycle status.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusCanceled  Status = "canceled"
	StatusEnded     Status = "ended"
)

// CanBeUpdated reports whether the event accepts field updates.
// Canceled and ended events are frozen.
func (s Status) CanBeUpdated() bool {
	return s == StatusDraft || s == StatusPublished
}

// CanBeCanceled reports whether the event can transition to canceled.
func (s Status) CanBeCanceled() bool {
	return s == StatusPublished
}

// CanBeDeleted reports whether the event can be hard-deleted.
func (s Status) CanBeDeleted() bool {
	return s == StatusDraft
}

// Category classifies an event for discovery filters.
type Category string

const (
	CategoryMusic  Category = "music"
	CategoryArts   Category = "arts"
	CategorySports Category = "sports"
	CategoryTech   Category = "tech"
	CategoryOther  Category = "other"
)

// Event is an organization's event through its lifecycle.
type Event struct {
	ID            uuid.UUID `json:"id"`
	OrgID         uuid.UUID `json:"org_id"`
	Title         string    `json:"title"`
	Slug          string    `json:"slug"`
	Description   string    `json:"description,omitempty"`
	Category      Category  `json:"category"`
	VenueName     string    `json:"venue_name,omitempty"`
	VenueAddress  string    `json:"venue_address,omitempty"`
	City          string    `json:"city,omitempty"`
	CountryCode   string    `json:"country_code,omitempty"`
	CoverImageURL string    `json:"cover_image_url,omitempty"`
	Latitude      *float64  `json:"latitude,omitempty"`
	Longitude     *float64  `json:"longitude,omitempty"`
	IsOnline      bool      `json:"is_online"`
	StartAt       time.Time `json:"start_at"`
	EndAt         time.Time `json:"end_at"`
	Timezone      string    `json:"timezone,omitempty"`
	// Settings is an open string-keyed extension map for per-event
	// options that need no schema change.
	Settings    map[string]any `json:"settings,omitempty"`
	Status      Status         `json:"status"`
	PublishedAt *time.Time     `json:"published_at,omitempty"`
	CanceledAt  *time.Time     `json:"canceled_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// CreateEventParams carries caller input for creating a draft event.
type CreateEventParams struct {
	Title         string         `json:"title" validate:"required,max=200"`
	Description   string         `json:"description" validate:"max=10000"`
	Category      string         `json:"category" validate:"required,oneof=music arts sports tech other"`
	VenueName     string         `json:"venue_name" validate:"max=255"`
	VenueAddress  string         `json:"venue_address" validate:"max=500"`
	City          string         `json:"city" validate:"max=100"`
	CountryCode   string         `json:"country_code" validate:"omitempty,len=2"`
	CoverImageURL string         `json:"cover_image_url" validate:"omitempty,url,max=2048"`
	Latitude      *float64       `json:"latitude" validate:"omitempty,latitude"`
	Longitude     *float64       `json:"longitude" validate:"omitempty,longitude"`
	IsOnline      bool           `json:"is_online"`
	StartAt       time.Time      `json:"start_at" validate:"required"`
	EndAt         time.Time      `json:"end_at" validate:"required"`
	Timezone      string         `json:"timezone" validate:"omitempty,timezone"`
	Settings      map[string]any `json:"settings"`
}

// UpdateEventParams carries partial updates; nil means leave unchanged.
// A non-nil Settings replaces the stored map wholesale.
type UpdateEventParams struct {
	Title         *string        `json:"title,omitempty" validate:"omitempty,max=200"`
	Description   *string        `json:"description,omitempty" validate:"omitempty,max=10000"`
	Category      *string        `json:"category,omitempty" validate:"omitempty,oneof=music arts sports tech other"`
	VenueName     *string        `json:"venue_name,omitempty" validate:"omitempty,max=255"`
	VenueAddress  *string        `json:"venue_address,omitempty" validate:"omitempty,max=500"`
	City          *string        `json:"city,omitempty" validate:"omitempty,max=100"`
	CountryCode   *string        `json:"country_code,omitempty" validate:"omitempty,len=2"`
	CoverImageURL *string        `json:"cover_image_url,omitempty" validate:"omitempty,url,max=2048"`
	Latitude      *float64       `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude     *float64       `json:"longitude,omitempty" validate:"omitempty,longitude"`
	IsOnline      *bool          `json:"is_online,omitempty"`
	StartAt       *time.Time     `json:"start_at,omitempty"`
	EndAt         *time.Time     `json:"end_at,omitempty"`
	Timezone      *string        `json:"timezone,omitempty" validate:"omitempty,timezone"`
	Settings      map[string]any `json:"settings,omitempty"`
}

// ListFilter narrows the public discovery listing. Zero values are ignored.
type ListFilter struct {
	Category Category
	City     string
	From     time.Time
	To       time.Time
	Query    string
	Limit    int
	Offset   int
}
