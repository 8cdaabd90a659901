package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/teranga-events/server/internal/domain/tickettypes"
)

var _ tickettypes.Repository = (*TicketTypeRepository)(nil)

type TicketTypeRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func NewTicketTypeRepository(pool *pgxpool.Pool) *TicketTypeRepository {
	return &TicketTypeRepository{pool: pool}
}

func (r *TicketTypeRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}

const ticketTypeColumns = `id, event_id, name, COALESCE(description, ''), kind, price, currency,
	quantity_total, max_per_order, refundable, sales_start_at, sales_end_at, archived_at, created_at, updated_at`

func scanTicketType(row pgx.Row) (*tickettypes.TicketType, error) {
	var t tickettypes.TicketType
	err := row.Scan(
		&t.ID, &t.EventID, &t.Name, &t.Description, &t.Kind, &t.Price, &t.Currency,
		&t.QuantityTotal, &t.MaxPerOrder, &t.Refundable, &t.SalesStartAt, &t.SalesEndAt, &t.ArchivedAt,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TicketTypeRepository) Create(ctx context.Context, record tickettypes.CreateRecord) (*tickettypes.TicketType, error) {
	row := r.queryer().QueryRow(ctx, `
		INSERT INTO ticket_types (event_id, name, description, kind, price, currency,
			quantity_total, max_per_order, refundable, sales_start_at, sales_end_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+ticketTypeColumns,
		record.EventID, record.Name, record.Description, string(record.Kind), record.Price,
		record.Currency, record.QuantityTotal, record.MaxPerOrder, record.Refundable,
		record.SalesStartAt, record.SalesEndAt,
	)
	ticketType, err := scanTicketType(row)
	if err != nil {
		return nil, fmt.Errorf("insert ticket type: %w", err)
	}
	return ticketType, nil
}

func (r *TicketTypeRepository) Get(ctx context.Context, id uuid.UUID) (*tickettypes.TicketType, error) {
	row := r.queryer().QueryRow(ctx, `SELECT `+ticketTypeColumns+` FROM ticket_types WHERE id = $1`, id)
	ticketType, err := scanTicketType(row)
	if err != nil {
		if noRows(err) {
			return nil, tickettypes.ErrNotFound
		}
		return nil, fmt.Errorf("get ticket type: %w", err)
	}
	return ticketType, nil
}

func (r *TicketTypeRepository) Update(ctx context.Context, id uuid.UUID, params tickettypes.UpdateParams) (*tickettypes.TicketType, error) {
	row := r.queryer().QueryRow(ctx, `
		UPDATE ticket_types
		SET name           = COALESCE($2, name),
		    description    = COALESCE($3, description),
		    price          = COALESCE($4, price),
		    quantity_total = COALESCE($5, quantity_total),
		    max_per_order  = COALESCE($6, max_per_order),
		    refundable     = COALESCE($7, refundable),
		    sales_start_at = COALESCE($8, sales_start_at),
		    sales_end_at   = COALESCE($9, sales_end_at),
		    updated_at     = now()
		WHERE id = $1
		RETURNING `+ticketTypeColumns,
		id, params.Name, params.Description, params.Price, params.QuantityTotal,
		params.MaxPerOrder, params.Refundable, params.SalesStartAt, params.SalesEndAt,
	)
	ticketType, err := scanTicketType(row)
	if err != nil {
		if noRows(err) {
			return nil, tickettypes.ErrNotFound
		}
		return nil, fmt.Errorf("update ticket type: %w", err)
	}
	return ticketType, nil
}

func (r *TicketTypeRepository) Archive(ctx context.Context, id uuid.UUID, at time.Time) (*tickettypes.TicketType, error) {
	row := r.queryer().QueryRow(ctx, `
		UPDATE ticket_types
		SET archived_at = COALESCE(archived_at, $2), updated_at = now()
		WHERE id = $1
		RETURNING `+ticketTypeColumns,
		id, at,
	)
	ticketType, err := scanTicketType(row)
	if err != nil {
		if noRows(err) {
			return nil, tickettypes.ErrNotFound
		}
		return nil, fmt.Errorf("archive ticket type: %w", err)
	}
	return ticketType, nil
}

func (r *TicketTypeRepository) Unarchive(ctx context.Context, id uuid.UUID) (*tickettypes.TicketType, error) {
	row := r.queryer().QueryRow(ctx, `
		UPDATE ticket_types
		SET archived_at = NULL, updated_at = now()
		WHERE id = $1
		RETURNING `+ticketTypeColumns,
		id,
	)
	ticketType, err := scanTicketType(row)
	if err != nil {
		if noRows(err) {
			return nil, tickettypes.ErrNotFound
		}
		return nil, fmt.Errorf("unarchive ticket type: %w", err)
	}
	return ticketType, nil
}

func (r *TicketTypeRepository) ListForEvent(ctx context.Context, eventID uuid.UUID) ([]tickettypes.TicketType, error) {
	rows, err := r.queryer().Query(ctx, `
		SELECT `+ticketTypeColumns+`
		FROM ticket_types
		WHERE event_id = $1
		ORDER BY created_at`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list ticket types: %w", err)
	}
	defer rows.Close()

	var result []tickettypes.TicketType
	for rows.Next() {
		ticketType, err := scanTicketType(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ticket type: %w", err)
		}
		result = append(result, *ticketType)
	}
	return result, rows.Err()
}

func (r *TicketTypeRepository) CountForEvent(ctx context.Context, eventID uuid.UUID) (int, error) {
	var count int
	err := r.queryer().QueryRow(ctx, `SELECT count(*) FROM ticket_types WHERE event_id = $1`, eventID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count ticket types: %w", err)
	}
	return count, nil
}
