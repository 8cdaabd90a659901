// Package policy decides whether an actor may perform an action on a
// resource. It is the single authorization choke point: every mutating
// operation consults it before touching lifecycle state, and a denial never
// reaches the lifecycle or audit layers.
package policy

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/teranga-events/server/internal/domain/roles"
)

// ErrForbidden is the only denial the evaluator produces. Callers map it to
// an external status (403 vs 404) depending on resource visibility.
var ErrForbidden = errors.New("forbidden")

type Action string

const (
	ActionEventView    Action = "event.view"
	ActionEventCreate  Action = "event.create"
	ActionEventUpdate  Action = "event.update"
	ActionEventDelete  Action = "event.delete"
	ActionEventPublish Action = "event.publish"
	ActionEventCancel  Action = "event.cancel"

	ActionOrgCreate           Action = "org.create"
	ActionOrgView             Action = "org.view"
	ActionOrgUpdate           Action = "org.update"
	ActionOrgAddMember        Action = "org.add_member"
	ActionOrgRemoveMember     Action = "org.remove_member"
	ActionOrgUpdateMemberRole Action = "org.update_member_role"
	ActionOrgViewFinancials   Action = "org.view_financials"
	ActionOrgInitiatePayout   Action = "org.initiate_payout"
)

// Event statuses as the evaluator sees them. The events package owns the
// state machine; the evaluator only inspects a snapshot.
const (
	EventDraft     = "draft"
	EventPublished = "published"
	EventCanceled  = "canceled"
	EventEnded     = "ended"
)

// Actor identifies who is attempting an action. The zero value is an
// unauthenticated caller.
type Actor struct {
	ID            uuid.UUID
	PlatformAdmin bool
	Authenticated bool
}

// Anonymous is the unauthenticated actor.
var Anonymous = Actor{}

// Resource is a consistent snapshot of the target entity at evaluation time.
// OrgID names the owning organization; EventStatus is set when the resource
// is an event.
type Resource struct {
	OrgID       uuid.UUID
	EventStatus string
}

// MembershipReader loads an actor's role in an organization. The bool
// return is false when no membership exists.
type MembershipReader interface {
	MemberRole(ctx context.Context, orgID, userID uuid.UUID) (roles.Role, bool, error)
}

type rule struct {
	// public grants the action to anyone, including unauthenticated
	// callers, when the resource snapshot satisfies it.
	public func(Resource) bool
	// precondition must hold for anyone; a role match cannot override it.
	precondition func(Resource) bool
	// authenticatedOnly grants the action to any authenticated actor
	// without consulting memberships (org creation).
	authenticatedOnly bool
	// anyMember grants the action to any member of the owning org.
	anyMember bool
	// platformAdmin lets a platform admin pass without membership.
	platformAdmin bool
	// allowed is the exact set of roles granted the action.
	allowed []roles.Role
}

func isDraft(r Resource) bool { return r.EventStatus == EventDraft }

// rules is the permission matrix. One row per action; the allowed set is
// enumerated exactly, owner does not imply admin.
var rules = map[Action]rule{
	ActionEventView: {
		public:    func(r Resource) bool { return r.EventStatus == EventPublished },
		anyMember: true,
	},
	ActionEventCreate:  {allowed: []roles.Role{roles.RoleOwner, roles.RoleAdmin, roles.RoleStaff}},
	ActionEventUpdate:  {allowed: []roles.Role{roles.RoleOwner, roles.RoleAdmin, roles.RoleStaff}},
	ActionEventDelete:  {precondition: isDraft, allowed: []roles.Role{roles.RoleOwner}},
	ActionEventPublish: {precondition: isDraft, allowed: []roles.Role{roles.RoleOwner, roles.RoleAdmin, roles.RoleStaff}},
	ActionEventCancel:  {allowed: []roles.Role{roles.RoleOwner, roles.RoleAdmin}},

	ActionOrgCreate:           {authenticatedOnly: true},
	ActionOrgView:             {anyMember: true, platformAdmin: true},
	ActionOrgUpdate:           {allowed: []roles.Role{roles.RoleOwner, roles.RoleAdmin}},
	ActionOrgAddMember:        {allowed: []roles.Role{roles.RoleOwner, roles.RoleAdmin}},
	ActionOrgRemoveMember:     {allowed: []roles.Role{roles.RoleOwner}},
	ActionOrgUpdateMemberRole: {allowed: []roles.Role{roles.RoleOwner}},
	ActionOrgViewFinancials:   {allowed: []roles.Role{roles.RoleOwner, roles.RoleAdmin, roles.RoleFinance}},
	ActionOrgInitiatePayout:   {allowed: []roles.Role{roles.RoleOwner, roles.RoleFinance}},
}

// Evaluator is a stateless function of (actor, action, resource). Membership
// lookups go through the reader so the check and any subsequent mutation can
// share one transaction.
type Evaluator struct {
	members MembershipReader
}

func NewEvaluator(members MembershipReader) *Evaluator {
	return &Evaluator{members: members}
}

// Evaluate returns nil when the actor may perform the action, ErrForbidden
// when denied. Any other error is an infrastructure failure.
func (e *Evaluator) Evaluate(ctx context.Context, actor Actor, action Action, res Resource) error {
	rl, ok := rules[action]
	if !ok {
		return ErrForbidden
	}

	if rl.public != nil && rl.public(res) {
		return nil
	}
	if rl.precondition != nil && !rl.precondition(res) {
		return ErrForbidden
	}
	if !actor.Authenticated {
		return ErrForbidden
	}
	if rl.authenticatedOnly {
		return nil
	}
	if rl.platformAdmin && actor.PlatformAdmin {
		return nil
	}

	role, isMember, err := e.members.MemberRole(ctx, res.OrgID, actor.ID)
	if err != nil {
		return err
	}
	if !isMember {
		return ErrForbidden
	}
	if rl.anyMember {
		return nil
	}
	if role.In(rl.allowed...) {
		return nil
	}
	return ErrForbidden
}

// Can is Evaluate collapsed to a boolean; infrastructure errors read as deny.
func (e *Evaluator) Can(ctx context.Context, actor Actor, action Action, res Resource) bool {
	return e.Evaluate(ctx, actor, action, res) == nil
}
