package tickettypes

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CreateRecord is the repository-level payload for inserting a ticket type.
type CreateRecord struct {
	EventID       uuid.UUID
	Name          string
	Description   string
	Kind          Kind
	Price         int64
	Currency      string
	QuantityTotal int
	MaxPerOrder   int
	Refundable    bool
	SalesStartAt  *time.Time
	SalesEndAt    *time.Time
}

// Repository persists ticket types. It also serves the publish
// precondition through CountForEvent.
type Repository interface {
	Create(ctx context.Context, record CreateRecord) (*TicketType, error)

	// Get returns the ticket type or ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (*TicketType, error)

	// Update applies non-nil fields and returns the updated ticket type.
	Update(ctx context.Context, id uuid.UUID, params UpdateParams) (*TicketType, error)

	// Archive stamps archived_at. Archiving an archived ticket type is a
	// no-op returning the entity unchanged.
	Archive(ctx context.Context, id uuid.UUID, at time.Time) (*TicketType, error)

	// Unarchive clears archived_at.
	Unarchive(ctx context.Context, id uuid.UUID) (*TicketType, error)

	// ListForEvent returns the event's ticket types, archived included.
	ListForEvent(ctx context.Context, eventID uuid.UUID) ([]TicketType, error)

	// CountForEvent counts all ticket types of the event, archived
	// included.
	CountForEvent(ctx context.Context, eventID uuid.UUID) (int, error)
}
