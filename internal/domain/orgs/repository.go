package orgs

import (
	"context"

	"github.com/google/uuid"

	"github.com/teranga-events/server/internal/domain/roles"
)

// CreateOrgRecord is the resolved insert payload: slug already generated,
// creator known. The repository creates the org and its owner membership in
// one transaction so an org never exists without an owner.
type CreateOrgRecord struct {
	Name             string
	Slug             string
	CountryCode      string
	PayoutChannel    PayoutChannel
	PayoutIdentifier string
	OwnerUserID      uuid.UUID
}

// Repository is the membership store and org persistence contract.
//
// RemoveMember and UpdateMemberRole enforce the last-owner invariant
// atomically: the owner count check and the mutation are evaluated against
// the same snapshot (row lock on the org), so concurrent removals can never
// leave an org with zero owners.
type Repository interface {
	CreateOrg(ctx context.Context, record CreateOrgRecord) (*Org, error)
	GetOrg(ctx context.Context, id uuid.UUID) (*Org, error)
	UpdateOrg(ctx context.Context, id uuid.UUID, params UpdateOrgParams) (*Org, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]Org, error)

	// AddMember fails with ErrAlreadyMember when a membership already
	// exists for the (org, user) pair.
	AddMember(ctx context.Context, orgID, userID uuid.UUID, role roles.Role) (*Membership, error)
	// RemoveMember returns the removed membership, or ErrLastOwner when
	// the target is the organization's only owner.
	RemoveMember(ctx context.Context, orgID, userID uuid.UUID) (*Membership, error)
	// UpdateMemberRole returns the membership before and after the
	// change. Demoting the sole owner fails with ErrLastOwner.
	UpdateMemberRole(ctx context.Context, orgID, userID uuid.UUID, role roles.Role) (before *Membership, after *Membership, err error)
	ListMembers(ctx context.Context, orgID uuid.UUID) ([]Membership, error)
	MemberRole(ctx context.Context, orgID, userID uuid.UUID) (roles.Role, bool, error)
}

// UserDirectory resolves whether a user id exists; the users table lives
// outside this package.
type UserDirectory interface {
	UserExists(ctx context.Context, id uuid.UUID) (bool, error)
}
