package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/teranga-events/server/internal/audit"
)

var _ audit.Store = (*AuditRepository)(nil)

// AuditRepository is the append-only audit_logs store.
type AuditRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

func (r *AuditRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}

func (r *AuditRepository) Append(ctx context.Context, entry audit.Entry) error {
	_, err := r.queryer().Exec(ctx, `
		INSERT INTO audit_logs (id, user_id, org_id, action, entity_type, entity_id,
			changes, metadata, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		entry.ID, entry.UserID, entry.OrgID, entry.Action, entry.EntityType, entry.EntityID,
		entry.Changes, entry.Metadata, entry.IPAddress, entry.UserAgent, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// PruneOlderThan removes entries created before the cutoff and reports how
// many were deleted. Retention pruning is the one sanctioned delete on this
// table.
func (r *AuditRepository) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.queryer().Exec(ctx, `DELETE FROM audit_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune audit entries: %w", err)
	}
	return tag.RowsAffected(), nil
}
