package tickettypes

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no ticket type exists for the given id.
	ErrNotFound = errors.New("ticket type not found")
	// ErrNotFoundForEvent is returned when the ticket type exists but
	// belongs to a different event than the one addressed.
	ErrNotFoundForEvent = errors.New("ticket type does not belong to this event")
	// ErrArchived is returned when updating an archived ticket type.
	ErrArchived = errors.New("ticket type is archived")
	// ErrPriceRequired is returned when a paid ticket type has no positive
	// price.
	ErrPriceRequired = errors.New("paid ticket type requires a price")
	// ErrInvalidSalesWindow is returned when sales_start_at is not before
	// sales_end_at.
	ErrInvalidSalesWindow = errors.New("sales window must start before it ends")
)

// Kind is the pricing model of a ticket type.
type Kind string

const (
	KindFree     Kind = "free"
	KindPaid     Kind = "paid"
	KindDonation Kind = "donation"
)

// TicketType is one purchasable tier of an event. Price is in minor
// currency units and is zero unless Kind is paid.
type TicketType struct {
	ID            uuid.UUID  `json:"id"`
	EventID       uuid.UUID  `json:"event_id"`
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	Kind          Kind       `json:"kind"`
	Price         int64      `json:"price"`
	Currency      string     `json:"currency"`
	QuantityTotal int        `json:"quantity_total"`
	MaxPerOrder   int        `json:"max_per_order"`
	Refundable    bool       `json:"refundable"`
	SalesStartAt  *time.Time `json:"sales_start_at,omitempty"`
	SalesEndAt    *time.Time `json:"sales_end_at,omitempty"`
	ArchivedAt    *time.Time `json:"archived_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Archived reports whether the ticket type is retired from sale.
func (t *TicketType) Archived() bool {
	return t.ArchivedAt != nil
}

// CreateParams carries caller input for a new ticket type.
type CreateParams struct {
	Name          string     `json:"name" validate:"required,max=120"`
	Description   string     `json:"description" validate:"max=2000"`
	Kind          string     `json:"kind" validate:"required,oneof=free paid donation"`
	Price         int64      `json:"price" validate:"min=0"`
	Currency      string     `json:"currency" validate:"omitempty,len=3"`
	QuantityTotal int        `json:"quantity_total" validate:"min=0"`
	MaxPerOrder   int        `json:"max_per_order" validate:"min=0"`
	Refundable    bool       `json:"refundable"`
	SalesStartAt  *time.Time `json:"sales_start_at"`
	SalesEndAt    *time.Time `json:"sales_end_at"`
}

// UpdateParams carries partial updates; nil leaves the field unchanged.
// Kind is immutable after creation.
type UpdateParams struct {
	Name          *string    `json:"name,omitempty" validate:"omitempty,max=120"`
	Description   *string    `json:"description,omitempty" validate:"omitempty,max=2000"`
	Price         *int64     `json:"price,omitempty" validate:"omitempty,min=0"`
	QuantityTotal *int       `json:"quantity_total,omitempty" validate:"omitempty,min=0"`
	MaxPerOrder   *int       `json:"max_per_order,omitempty" validate:"omitempty,min=0"`
	Refundable    *bool      `json:"refundable,omitempty"`
	SalesStartAt  *time.Time `json:"sales_start_at,omitempty"`
	SalesEndAt    *time.Time `json:"sales_end_at,omitempty"`
}

// validSalesWindow rejects a window whose start is not strictly before its
// end. Open-ended windows (either bound nil) are always valid.
func validSalesWindow(start, end *time.Time) bool {
	if start == nil || end == nil {
		return true
	}
	return start.Before(*end)
}
