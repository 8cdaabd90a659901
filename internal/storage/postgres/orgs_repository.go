package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/teranga-events/server/internal/domain/orgs"
	"github.com/teranga-events/server/internal/domain/roles"
)

var _ orgs.Repository = (*OrgRepository)(nil)

type OrgRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func NewOrgRepository(pool *pgxpool.Pool) *OrgRepository {
	return &OrgRepository{pool: pool}
}

func (r *OrgRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}

const orgColumns = `id, name, slug, country_code, COALESCE(kyb_data, '{}'::jsonb), COALESCE(payout_channel, ''), COALESCE(payout_identifier, ''), verified, created_at, updated_at`

func scanOrg(row pgx.Row) (*orgs.Org, error) {
	var o orgs.Org
	err := row.Scan(&o.ID, &o.Name, &o.Slug, &o.CountryCode, &o.KYBData, &o.PayoutChannel, &o.PayoutIdentifier, &o.Verified, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

const memberColumns = `id, org_id, user_id, role, created_at, updated_at`

func scanMembership(row pgx.Row) (*orgs.Membership, error) {
	var m orgs.Membership
	err := row.Scan(&m.ID, &m.OrgID, &m.UserID, &m.Role, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// CreateOrg inserts the organization and its owner membership in one
// transaction so an org never exists without an owner.
func (r *OrgRepository) CreateOrg(ctx context.Context, record orgs.CreateOrgRecord) (*orgs.Org, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var payoutChannel *string
	if record.PayoutChannel != "" {
		value := string(record.PayoutChannel)
		payoutChannel = &value
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO orgs (name, slug, country_code, payout_channel, payout_identifier)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+orgColumns,
		record.Name, record.Slug, record.CountryCode, payoutChannel, record.PayoutIdentifier,
	)
	org, err := scanOrg(row)
	if err != nil {
		if isUniqueViolation(err, "orgs_slug_key") {
			return nil, orgs.ErrSlugTaken
		}
		return nil, fmt.Errorf("insert org: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO org_members (org_id, user_id, role)
		VALUES ($1, $2, $3)`,
		org.ID, record.OwnerUserID, string(roles.RoleOwner),
	)
	if err != nil {
		return nil, fmt.Errorf("insert owner membership: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return org, nil
}

func (r *OrgRepository) GetOrg(ctx context.Context, id uuid.UUID) (*orgs.Org, error) {
	row := r.queryer().QueryRow(ctx, `SELECT `+orgColumns+` FROM orgs WHERE id = $1`, id)
	org, err := scanOrg(row)
	if err != nil {
		if noRows(err) {
			return nil, orgs.ErrNotFound
		}
		return nil, fmt.Errorf("get org: %w", err)
	}
	return org, nil
}

func (r *OrgRepository) UpdateOrg(ctx context.Context, id uuid.UUID, params orgs.UpdateOrgParams) (*orgs.Org, error) {
	row := r.queryer().QueryRow(ctx, `
		UPDATE orgs
		SET name              = COALESCE($2, name),
		    country_code      = COALESCE($3, country_code),
		    payout_channel    = COALESCE($4, payout_channel),
		    payout_identifier = COALESCE($5, payout_identifier),
		    updated_at        = now()
		WHERE id = $1
		RETURNING `+orgColumns,
		id, params.Name, params.CountryCode, params.PayoutChannel, params.PayoutIdentifier,
	)
	org, err := scanOrg(row)
	if err != nil {
		if noRows(err) {
			return nil, orgs.ErrNotFound
		}
		return nil, fmt.Errorf("update org: %w", err)
	}
	return org, nil
}

func (r *OrgRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]orgs.Org, error) {
	rows, err := r.queryer().Query(ctx, `
		SELECT o.id, o.name, o.slug, o.country_code, COALESCE(o.kyb_data, '{}'::jsonb),
		       COALESCE(o.payout_channel, ''), COALESCE(o.payout_identifier, ''),
		       o.verified, o.created_at, o.updated_at
		FROM orgs o
		JOIN org_members m ON m.org_id = o.id
		WHERE m.user_id = $1
		ORDER BY o.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list orgs for user: %w", err)
	}
	defer rows.Close()

	var result []orgs.Org
	for rows.Next() {
		org, err := scanOrg(rows)
		if err != nil {
			return nil, fmt.Errorf("scan org: %w", err)
		}
		result = append(result, *org)
	}
	return result, rows.Err()
}

func (r *OrgRepository) AddMember(ctx context.Context, orgID, userID uuid.UUID, role roles.Role) (*orgs.Membership, error) {
	row := r.queryer().QueryRow(ctx, `
		INSERT INTO org_members (org_id, user_id, role)
		VALUES ($1, $2, $3)
		RETURNING `+memberColumns,
		orgID, userID, string(role),
	)
	member, err := scanMembership(row)
	if err != nil {
		switch {
		case isUniqueViolation(err, "org_members_org_id_user_id_key"):
			return nil, orgs.ErrAlreadyMember
		case isForeignKeyViolation(err):
			return nil, orgs.ErrUserNotFound
		}
		return nil, fmt.Errorf("insert membership: %w", err)
	}
	return member, nil
}

// RemoveMember deletes the membership. The owner-count check and the delete
// run in one transaction with the org's membership rows locked, so two
// concurrent removals cannot both pass the check.
func (r *OrgRepository) RemoveMember(ctx context.Context, orgID, userID uuid.UUID) (*orgs.Membership, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	member, err := lockMembership(ctx, tx, orgID, userID)
	if err != nil {
		return nil, err
	}

	if member.Role == roles.RoleOwner {
		sole, err := isSoleOwner(ctx, tx, orgID)
		if err != nil {
			return nil, err
		}
		if sole {
			return nil, orgs.ErrLastOwner
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM org_members WHERE id = $1`, member.ID); err != nil {
		return nil, fmt.Errorf("delete membership: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return member, nil
}

// UpdateMemberRole changes the role under the same locking discipline as
// RemoveMember: demoting the sole owner fails with ErrLastOwner.
func (r *OrgRepository) UpdateMemberRole(ctx context.Context, orgID, userID uuid.UUID, role roles.Role) (*orgs.Membership, *orgs.Membership, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	before, err := lockMembership(ctx, tx, orgID, userID)
	if err != nil {
		return nil, nil, err
	}

	if before.Role == roles.RoleOwner && role != roles.RoleOwner {
		sole, err := isSoleOwner(ctx, tx, orgID)
		if err != nil {
			return nil, nil, err
		}
		if sole {
			return nil, nil, orgs.ErrLastOwner
		}
	}

	row := tx.QueryRow(ctx, `
		UPDATE org_members
		SET role = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+memberColumns,
		before.ID, string(role),
	)
	after, err := scanMembership(row)
	if err != nil {
		return nil, nil, fmt.Errorf("update membership role: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit tx: %w", err)
	}
	return before, after, nil
}

func (r *OrgRepository) ListMembers(ctx context.Context, orgID uuid.UUID) ([]orgs.Membership, error) {
	rows, err := r.queryer().Query(ctx, `
		SELECT `+memberColumns+`
		FROM org_members
		WHERE org_id = $1
		ORDER BY created_at`,
		orgID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var result []orgs.Membership
	for rows.Next() {
		member, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		result = append(result, *member)
	}
	return result, rows.Err()
}

func (r *OrgRepository) MemberRole(ctx context.Context, orgID, userID uuid.UUID) (roles.Role, bool, error) {
	var role string
	err := r.queryer().QueryRow(ctx, `
		SELECT role FROM org_members WHERE org_id = $1 AND user_id = $2`,
		orgID, userID,
	).Scan(&role)
	if err != nil {
		if noRows(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("member role: %w", err)
	}
	return roles.Role(role), true, nil
}

func lockMembership(ctx context.Context, tx pgx.Tx, orgID, userID uuid.UUID) (*orgs.Membership, error) {
	// Lock all of the org's membership rows, not just the target: the
	// owner count must stay stable until commit.
	rows, err := tx.Query(ctx, `
		SELECT `+memberColumns+`
		FROM org_members
		WHERE org_id = $1
		FOR UPDATE`,
		orgID,
	)
	if err != nil {
		return nil, fmt.Errorf("lock memberships: %w", err)
	}
	defer rows.Close()

	var target *orgs.Membership
	for rows.Next() {
		member, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		if member.UserID == userID {
			target = member
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if target == nil {
		return nil, orgs.ErrMemberNotFound
	}
	return target, nil
}

func isSoleOwner(ctx context.Context, tx pgx.Tx, orgID uuid.UUID) (bool, error) {
	var owners int
	err := tx.QueryRow(ctx, `
		SELECT count(*) FROM org_members WHERE org_id = $1 AND role = 'owner'`,
		orgID,
	).Scan(&owners)
	if err != nil {
		return false, fmt.Errorf("count owners: %w", err)
	}
	return owners <= 1, nil
}
