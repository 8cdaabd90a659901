package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/teranga-events/server/internal/domain/events"
)

var _ events.Repository = (*EventRepository)(nil)

type EventRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

func (r *EventRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}

const eventColumns = `id, org_id, title, slug, COALESCE(description, ''), category,
	COALESCE(venue_name, ''), COALESCE(venue_address, ''), COALESCE(city, ''),
	COALESCE(country_code, ''), COALESCE(cover_image_url, ''),
	latitude, longitude, is_online, start_at, end_at, COALESCE(timezone, ''),
	COALESCE(settings, '{}'::jsonb),
	status, published_at, canceled_at, created_at, updated_at`

func scanEvent(row pgx.Row) (*events.Event, error) {
	var e events.Event
	err := row.Scan(
		&e.ID, &e.OrgID, &e.Title, &e.Slug, &e.Description, &e.Category,
		&e.VenueName, &e.VenueAddress, &e.City, &e.CountryCode, &e.CoverImageURL,
		&e.Latitude, &e.Longitude, &e.IsOnline, &e.StartAt, &e.EndAt, &e.Timezone,
		&e.Settings,
		&e.Status, &e.PublishedAt, &e.CanceledAt,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// settingsParam maps a nil settings map to SQL NULL so inserts store NULL
// and COALESCE-style updates keep the stored value.
func settingsParam(m map[string]any) any {
	if m == nil {
		return nil
	}
	return m
}

func (r *EventRepository) CreateEvent(ctx context.Context, record events.CreateEventRecord) (*events.Event, error) {
	row := r.queryer().QueryRow(ctx, `
		INSERT INTO events (org_id, title, slug, description, category, venue_name,
			venue_address, city, country_code, cover_image_url, latitude, longitude,
			is_online, start_at, end_at, timezone, settings)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING `+eventColumns,
		record.OrgID, record.Title, record.Slug, record.Description, string(record.Category),
		record.VenueName, record.VenueAddress, record.City, record.CountryCode,
		record.CoverImageURL, record.Latitude, record.Longitude, record.IsOnline,
		record.StartAt, record.EndAt, record.Timezone, settingsParam(record.Settings),
	)
	event, err := scanEvent(row)
	if err != nil {
		if isUniqueViolation(err, "events_slug_key") {
			return nil, events.ErrSlugTaken
		}
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return event, nil
}

func (r *EventRepository) GetEvent(ctx context.Context, id uuid.UUID) (*events.Event, error) {
	row := r.queryer().QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	event, err := scanEvent(row)
	if err != nil {
		if noRows(err) {
			return nil, events.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

func (r *EventRepository) GetEventBySlug(ctx context.Context, slug string) (*events.Event, error) {
	row := r.queryer().QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE slug = $1`, slug)
	event, err := scanEvent(row)
	if err != nil {
		if noRows(err) {
			return nil, events.ErrNotFound
		}
		return nil, fmt.Errorf("get event by slug: %w", err)
	}
	return event, nil
}

func (r *EventRepository) UpdateEvent(ctx context.Context, id uuid.UUID, params events.UpdateEventParams) (*events.Event, error) {
	row := r.queryer().QueryRow(ctx, `
		UPDATE events
		SET title           = COALESCE($2, title),
		    description     = COALESCE($3, description),
		    category        = COALESCE($4, category),
		    venue_name      = COALESCE($5, venue_name),
		    venue_address   = COALESCE($6, venue_address),
		    city            = COALESCE($7, city),
		    country_code    = COALESCE($8, country_code),
		    cover_image_url = COALESCE($9, cover_image_url),
		    latitude        = COALESCE($10, latitude),
		    longitude       = COALESCE($11, longitude),
		    is_online       = COALESCE($12, is_online),
		    start_at        = COALESCE($13, start_at),
		    end_at          = COALESCE($14, end_at),
		    timezone        = COALESCE($15, timezone),
		    settings        = COALESCE($16, settings),
		    updated_at      = now()
		WHERE id = $1
		RETURNING `+eventColumns,
		id, params.Title, params.Description, params.Category, params.VenueName,
		params.VenueAddress, params.City, params.CountryCode, params.CoverImageURL,
		params.Latitude, params.Longitude, params.IsOnline,
		params.StartAt, params.EndAt, params.Timezone, settingsParam(params.Settings),
	)
	event, err := scanEvent(row)
	if err != nil {
		if noRows(err) {
			return nil, events.ErrNotFound
		}
		return nil, fmt.Errorf("update event: %w", err)
	}
	return event, nil
}

func (r *EventRepository) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	tag, err := r.queryer().Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return events.ErrNotFound
	}
	return nil
}

// MarkPublished guards on the stored status so two racing transitions
// cannot both succeed. Zero rows means either a lost race or a missing
// event; a re-read tells them apart.
func (r *EventRepository) MarkPublished(ctx context.Context, id uuid.UUID, at time.Time) (*events.Event, error) {
	return r.setStatus(ctx, id, `
		UPDATE events
		SET status = 'published', published_at = $2, updated_at = now()
		WHERE id = $1 AND status = 'draft'
		RETURNING `+eventColumns, at)
}

func (r *EventRepository) MarkCanceled(ctx context.Context, id uuid.UUID, at time.Time) (*events.Event, error) {
	return r.setStatus(ctx, id, `
		UPDATE events
		SET status = 'canceled', canceled_at = $2, updated_at = now()
		WHERE id = $1 AND status = 'published'
		RETURNING `+eventColumns, at)
}

func (r *EventRepository) setStatus(ctx context.Context, id uuid.UUID, sql string, at time.Time) (*events.Event, error) {
	row := r.queryer().QueryRow(ctx, sql, id, at)
	event, err := scanEvent(row)
	if err != nil {
		if noRows(err) {
			if _, getErr := r.GetEvent(ctx, id); getErr != nil {
				return nil, getErr
			}
			return nil, events.ErrInvalidState
		}
		return nil, fmt.Errorf("update event status: %w", err)
	}
	return event, nil
}

func (r *EventRepository) ListForOrg(ctx context.Context, orgID uuid.UUID) ([]events.Event, error) {
	rows, err := r.queryer().Query(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE org_id = $1
		ORDER BY created_at DESC`,
		orgID,
	)
	if err != nil {
		return nil, fmt.Errorf("list events for org: %w", err)
	}
	return collectEvents(rows)
}

func (r *EventRepository) ListPublic(ctx context.Context, filter events.ListFilter) ([]events.Event, error) {
	var category, city, query *string
	if filter.Category != "" {
		value := string(filter.Category)
		category = &value
	}
	if filter.City != "" {
		city = &filter.City
	}
	if filter.Query != "" {
		query = &filter.Query
	}
	var from, to *time.Time
	if !filter.From.IsZero() {
		from = &filter.From
	}
	if !filter.To.IsZero() {
		to = &filter.To
	}

	rows, err := r.queryer().Query(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE status = 'published'
		  AND ($1::text IS NULL OR category = $1)
		  AND ($2::text IS NULL OR city ILIKE $2)
		  AND ($3::text IS NULL OR title ILIKE '%' || $3 || '%')
		  AND ($4::timestamptz IS NULL OR start_at >= $4)
		  AND ($5::timestamptz IS NULL OR start_at <= $5)
		ORDER BY start_at
		LIMIT $6 OFFSET $7`,
		category, city, query, from, to, filter.Limit, filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list public events: %w", err)
	}
	return collectEvents(rows)
}

// RolloverEnded flips published events whose end has passed to ended and
// returns them. Used by the background rollover job.
func (r *EventRepository) RolloverEnded(ctx context.Context, now time.Time) ([]events.Event, error) {
	rows, err := r.queryer().Query(ctx, `
		UPDATE events
		SET status = 'ended', updated_at = now()
		WHERE status = 'published' AND end_at < $1
		RETURNING `+eventColumns,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("rollover ended events: %w", err)
	}
	return collectEvents(rows)
}

func collectEvents(rows pgx.Rows) ([]events.Event, error) {
	defer rows.Close()
	var result []events.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		result = append(result, *event)
	}
	return result, rows.Err()
}
