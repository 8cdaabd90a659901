// Package tickettypes manages an event's ticket tiers. Ticket types are
// archived, never deleted, once an event has been published.
package tickettypes

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/teranga-events/server/internal/audit"
	"github.com/teranga-events/server/internal/domain/events"
	"github.com/teranga-events/server/internal/domain/policy"
)

const defaultCurrency = "XOF"

// EventReader loads the parent event for policy and state checks.
type EventReader interface {
	GetEvent(ctx context.Context, id uuid.UUID) (*events.Event, error)
}

type Service struct {
	repo      Repository
	events    EventReader
	policy    *policy.Evaluator
	recorder  *audit.Recorder
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(repo Repository, eventReader EventReader, evaluator *policy.Evaluator, recorder *audit.Recorder, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		events:    eventReader,
		policy:    evaluator,
		recorder:  recorder,
		validator: validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger.With().Str("component", "tickettypes").Logger(),
		now:       time.Now,
	}
}

// Create adds a ticket type to the event. Paid kinds require a positive
// price; free and donation kinds have their price forced to zero.
func (s *Service) Create(ctx context.Context, actor policy.Actor, eventID uuid.UUID, params CreateParams) (*TicketType, error) {
	if err := s.validator.Struct(params); err != nil {
		return nil, err
	}

	event, err := s.mutableEvent(ctx, actor, eventID)
	if err != nil {
		return nil, err
	}

	if !validSalesWindow(params.SalesStartAt, params.SalesEndAt) {
		return nil, ErrInvalidSalesWindow
	}

	kind := Kind(params.Kind)
	price, err := normalizePrice(kind, params.Price)
	if err != nil {
		return nil, err
	}
	currency := params.Currency
	if currency == "" {
		currency = defaultCurrency
	}

	ticketType, err := s.repo.Create(ctx, CreateRecord{
		EventID:       eventID,
		Name:          params.Name,
		Description:   params.Description,
		Kind:          kind,
		Price:         price,
		Currency:      currency,
		QuantityTotal: params.QuantityTotal,
		MaxPerOrder:   params.MaxPerOrder,
		Refundable:    params.Refundable,
		SalesStartAt:  params.SalesStartAt,
		SalesEndAt:    params.SalesEndAt,
	})
	if err != nil {
		return nil, fmt.Errorf("create ticket type: %w", err)
	}

	s.recorder.Record(ctx, audit.Entry{
		UserID:     &actor.ID,
		OrgID:      &event.OrgID,
		Action:     audit.ActionTicketTypeCreated,
		EntityType: "ticket_type",
		EntityID:   ticketType.ID.String(),
		Metadata:   map[string]any{"event_id": eventID.String(), "name": ticketType.Name, "kind": string(kind)},
	})
	return ticketType, nil
}

// Get returns the ticket type, checking it belongs to the addressed event
// and that the actor may view that event.
func (s *Service) Get(ctx context.Context, actor policy.Actor, eventID, id uuid.UUID) (*TicketType, error) {
	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Evaluate(ctx, actor, policy.ActionEventView, policy.Resource{OrgID: event.OrgID, EventStatus: string(event.Status)}); err != nil {
		return nil, err
	}
	return s.forEvent(ctx, eventID, id)
}

// ListForEvent returns the event's ticket types, archived included.
func (s *Service) ListForEvent(ctx context.Context, actor policy.Actor, eventID uuid.UUID) ([]TicketType, error) {
	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Evaluate(ctx, actor, policy.ActionEventView, policy.Resource{OrgID: event.OrgID, EventStatus: string(event.Status)}); err != nil {
		return nil, err
	}
	return s.repo.ListForEvent(ctx, eventID)
}

// Update applies field changes. Archived ticket types reject updates with
// ErrArchived; paid price rules apply to price changes.
func (s *Service) Update(ctx context.Context, actor policy.Actor, eventID, id uuid.UUID, params UpdateParams) (*TicketType, error) {
	if err := s.validator.Struct(params); err != nil {
		return nil, err
	}

	event, err := s.mutableEvent(ctx, actor, eventID)
	if err != nil {
		return nil, err
	}
	current, err := s.forEvent(ctx, eventID, id)
	if err != nil {
		return nil, err
	}
	if current.Archived() {
		return nil, ErrArchived
	}

	// Check the window that would result from the merge, so moving one
	// bound past the other's stored value is caught too.
	start, end := current.SalesStartAt, current.SalesEndAt
	if params.SalesStartAt != nil {
		start = params.SalesStartAt
	}
	if params.SalesEndAt != nil {
		end = params.SalesEndAt
	}
	if !validSalesWindow(start, end) {
		return nil, ErrInvalidSalesWindow
	}

	if params.Price != nil {
		normalized, err := normalizePrice(current.Kind, *params.Price)
		if err != nil {
			return nil, err
		}
		params.Price = &normalized
	}

	changes := ticketTypeChanges(current, params)
	updated, err := s.repo.Update(ctx, id, params)
	if err != nil {
		return nil, fmt.Errorf("update ticket type: %w", err)
	}

	if len(changes) > 0 {
		s.recorder.Record(ctx, audit.Entry{
			UserID:     &actor.ID,
			OrgID:      &event.OrgID,
			Action:     audit.ActionTicketTypeUpdated,
			EntityType: "ticket_type",
			EntityID:   id.String(),
			Changes:    changes,
			Metadata:   map[string]any{"event_id": eventID.String()},
		})
	}
	return updated, nil
}

// Archive retires the ticket type from sale. Archiving an already archived
// ticket type returns it unchanged without a new audit entry.
func (s *Service) Archive(ctx context.Context, actor policy.Actor, eventID, id uuid.UUID) (*TicketType, error) {
	event, err := s.mutableEvent(ctx, actor, eventID)
	if err != nil {
		return nil, err
	}
	current, err := s.forEvent(ctx, eventID, id)
	if err != nil {
		return nil, err
	}
	if current.Archived() {
		return current, nil
	}

	archived, err := s.repo.Archive(ctx, id, s.now())
	if err != nil {
		return nil, fmt.Errorf("archive ticket type: %w", err)
	}

	s.recorder.Record(ctx, audit.Entry{
		UserID:     &actor.ID,
		OrgID:      &event.OrgID,
		Action:     audit.ActionTicketTypeArchived,
		EntityType: "ticket_type",
		EntityID:   id.String(),
		Metadata:   map[string]any{"event_id": eventID.String(), "name": current.Name},
	})
	return archived, nil
}

// mutableEvent loads the event and checks the actor may modify it and that
// its lifecycle still accepts changes.
func (s *Service) mutableEvent(ctx context.Context, actor policy.Actor, eventID uuid.UUID) (*events.Event, error) {
	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Evaluate(ctx, actor, policy.ActionEventUpdate, policy.Resource{OrgID: event.OrgID, EventStatus: string(event.Status)}); err != nil {
		return nil, err
	}
	if !event.Status.CanBeUpdated() {
		return nil, events.ErrInvalidState
	}
	return event, nil
}

func (s *Service) forEvent(ctx context.Context, eventID, id uuid.UUID) (*TicketType, error) {
	ticketType, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ticketType.EventID != eventID {
		return nil, ErrNotFoundForEvent
	}
	return ticketType, nil
}

func normalizePrice(kind Kind, price int64) (int64, error) {
	switch kind {
	case KindPaid:
		if price <= 0 {
			return 0, ErrPriceRequired
		}
		return price, nil
	default:
		return 0, nil
	}
}

func ticketTypeChanges(current *TicketType, params UpdateParams) map[string]any {
	changes := map[string]any{}
	if params.Name != nil && *params.Name != current.Name {
		changes["name"] = audit.Change(current.Name, *params.Name)
	}
	if params.Description != nil && *params.Description != current.Description {
		changes["description"] = audit.Change(current.Description, *params.Description)
	}
	if params.Price != nil && *params.Price != current.Price {
		changes["price"] = audit.Change(current.Price, *params.Price)
	}
	if params.QuantityTotal != nil && *params.QuantityTotal != current.QuantityTotal {
		changes["quantity_total"] = audit.Change(current.QuantityTotal, *params.QuantityTotal)
	}
	if params.MaxPerOrder != nil && *params.MaxPerOrder != current.MaxPerOrder {
		changes["max_per_order"] = audit.Change(current.MaxPerOrder, *params.MaxPerOrder)
	}
	if params.Refundable != nil && *params.Refundable != current.Refundable {
		changes["refundable"] = audit.Change(current.Refundable, *params.Refundable)
	}
	return changes
}
