package orgs

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/teranga-events/server/internal/domain/roles"
)

var (
	ErrNotFound       = errors.New("organization not found")
	ErrUserNotFound   = errors.New("user not found")
	ErrMemberNotFound = errors.New("member not found")
	ErrAlreadyMember  = errors.New("user is already a member of this organization")
	ErrLastOwner      = errors.New("cannot remove the last owner from the organization")
	ErrInvalidRole    = errors.New("invalid role")
	ErrSlugTaken      = errors.New("slug is already taken")
)

// PayoutChannel is the mobile-money or bank rail an organization receives
// settlements through.
type PayoutChannel string

const (
	PayoutOrangeMoney PayoutChannel = "orange_mo"
	PayoutMTNMoMo     PayoutChannel = "mtn_momo"
	PayoutWave        PayoutChannel = "wave"
	PayoutBank        PayoutChannel = "bank"
)

// Org is a tenant: it owns events and memberships.
type Org struct {
	ID               uuid.UUID      `json:"id"`
	Name             string         `json:"name"`
	Slug             string         `json:"slug"`
	CountryCode      string         `json:"country_code"`
	KYBData          map[string]any `json:"kyb_data,omitempty"`
	PayoutChannel    PayoutChannel  `json:"payout_channel,omitempty"`
	PayoutIdentifier string         `json:"payout_identifier,omitempty"`
	Verified         bool           `json:"verified"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// Membership ties one user to one organization with exactly one role.
// A (user, organization) pair has at most one membership.
type Membership struct {
	ID        uuid.UUID  `json:"id"`
	OrgID     uuid.UUID  `json:"org_id"`
	UserID    uuid.UUID  `json:"user_id"`
	Role      roles.Role `json:"role"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type CreateOrgParams struct {
	Name             string `json:"name" validate:"required,max=255"`
	CountryCode      string `json:"country_code" validate:"omitempty,len=2,alpha"`
	PayoutChannel    string `json:"payout_channel" validate:"omitempty,oneof=orange_mo mtn_momo wave bank"`
	PayoutIdentifier string `json:"payout_identifier" validate:"omitempty,max=255"`
}

// UpdateOrgParams carries partial updates; nil fields are untouched.
type UpdateOrgParams struct {
	Name             *string `json:"name,omitempty" validate:"omitempty,max=255"`
	CountryCode      *string `json:"country_code,omitempty" validate:"omitempty,len=2,alpha"`
	PayoutChannel    *string `json:"payout_channel,omitempty" validate:"omitempty,oneof=orange_mo mtn_momo wave bank"`
	PayoutIdentifier *string `json:"payout_identifier,omitempty" validate:"omitempty,max=255"`
}
