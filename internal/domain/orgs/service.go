package orgs

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/teranga-events/server/internal/audit"
	"github.com/teranga-events/server/internal/domain/policy"
	"github.com/teranga-events/server/internal/domain/roles"
	"github.com/teranga-events/server/internal/domain/slug"
)

// maxSlugAttempts bounds the numeric-suffix retry loop on org creation.
const maxSlugAttempts = 100

// Service handles organization and membership operations. Every mutation is
// policy-checked first and audit-logged on success; denials never reach the
// repository.
type Service struct {
	repo      Repository
	users     UserDirectory
	policy    *policy.Evaluator
	recorder  *audit.Recorder
	validator *validator.Validate
	logger    zerolog.Logger
}

func NewService(repo Repository, users UserDirectory, evaluator *policy.Evaluator, recorder *audit.Recorder, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		users:     users,
		policy:    evaluator,
		recorder:  recorder,
		validator: validator.New(),
		logger:    logger.With().Str("component", "orgs").Logger(),
	}
}

// CreateOrg creates an organization with the actor as its sole initial
// owner. The slug derives from the name; collisions resolve with a numeric
// suffix.
func (s *Service) CreateOrg(ctx context.Context, actor policy.Actor, params CreateOrgParams) (*Org, error) {
	if err := s.validator.Struct(params); err != nil {
		return nil, err
	}
	if err := s.policy.Evaluate(ctx, actor, policy.ActionOrgCreate, policy.Resource{}); err != nil {
		return nil, err
	}

	record := CreateOrgRecord{
		Name:             params.Name,
		CountryCode:      params.CountryCode,
		PayoutChannel:    PayoutChannel(params.PayoutChannel),
		PayoutIdentifier: params.PayoutIdentifier,
		OwnerUserID:      actor.ID,
	}
	if record.CountryCode == "" {
		record.CountryCode = "CI"
	}

	base := slug.Make(params.Name)
	if base == "" {
		base = "org"
	}

	var org *Org
	candidate := base
	for attempt := 1; ; attempt++ {
		record.Slug = candidate
		created, err := s.repo.CreateOrg(ctx, record)
		if errors.Is(err, ErrSlugTaken) {
			if attempt >= maxSlugAttempts {
				return nil, fmt.Errorf("create org: %w", ErrSlugTaken)
			}
			candidate = base + "-" + strconv.Itoa(attempt)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create org: %w", err)
		}
		org = created
		break
	}

	s.recorder.Record(ctx, audit.Entry{
		UserID:     &actor.ID,
		OrgID:      &org.ID,
		Action:     audit.ActionOrgCreated,
		EntityType: "org",
		EntityID:   org.ID.String(),
		Metadata:   map[string]any{"name": org.Name, "country_code": org.CountryCode},
	})

	s.logger.Info().
		Str("org_id", org.ID.String()).
		Str("slug", org.Slug).
		Msg("organization created")
	return org, nil
}

// GetOrg loads an organization the actor may view: members of any role, or
// platform admins.
func (s *Service) GetOrg(ctx context.Context, actor policy.Actor, orgID uuid.UUID) (*Org, error) {
	org, err := s.repo.GetOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Evaluate(ctx, actor, policy.ActionOrgView, policy.Resource{OrgID: org.ID}); err != nil {
		return nil, err
	}
	return org, nil
}

// ListForUser returns the organizations the actor belongs to.
func (s *Service) ListForUser(ctx context.Context, actor policy.Actor) ([]Org, error) {
	if !actor.Authenticated {
		return nil, policy.ErrForbidden
	}
	return s.repo.ListForUser(ctx, actor.ID)
}

// UpdateOrg applies partial updates; only owners and admins may update.
// The audit entry carries a per-field before/after diff, and is skipped
// when nothing changed.
func (s *Service) UpdateOrg(ctx context.Context, actor policy.Actor, orgID uuid.UUID, params UpdateOrgParams) (*Org, error) {
	if err := s.validator.Struct(params); err != nil {
		return nil, err
	}
	org, err := s.repo.GetOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Evaluate(ctx, actor, policy.ActionOrgUpdate, policy.Resource{OrgID: org.ID}); err != nil {
		return nil, err
	}

	changes := orgChanges(org, params)
	updated, err := s.repo.UpdateOrg(ctx, orgID, params)
	if err != nil {
		return nil, fmt.Errorf("update org: %w", err)
	}

	if len(changes) > 0 {
		s.recorder.Record(ctx, audit.Entry{
			UserID:     &actor.ID,
			OrgID:      &org.ID,
			Action:     audit.ActionOrgUpdated,
			EntityType: "org",
			EntityID:   org.ID.String(),
			Changes:    changes,
		})
	}
	return updated, nil
}

// AddMember adds a user to the organization with the given role. Owners and
// admins may add; duplicates fail with ErrAlreadyMember.
func (s *Service) AddMember(ctx context.Context, actor policy.Actor, orgID, userID uuid.UUID, rawRole string) (*Membership, error) {
	role, ok := roles.Parse(rawRole)
	if !ok {
		return nil, ErrInvalidRole
	}

	org, err := s.repo.GetOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Evaluate(ctx, actor, policy.ActionOrgAddMember, policy.Resource{OrgID: org.ID}); err != nil {
		return nil, err
	}

	exists, err := s.users.UserExists(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("look up user: %w", err)
	}
	if !exists {
		return nil, ErrUserNotFound
	}

	member, err := s.repo.AddMember(ctx, orgID, userID, role)
	if err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, audit.Entry{
		UserID:     &actor.ID,
		OrgID:      &org.ID,
		Action:     audit.ActionOrgMemberAdded,
		EntityType: "org_member",
		EntityID:   member.ID.String(),
		Metadata:   map[string]any{"added_user_id": userID.String(), "role": string(role)},
	})
	return member, nil
}

// RemoveMember removes a user from the organization. Only owners may
// remove, and removing the organization's last owner is forbidden; the
// check and the delete share one transaction in the repository.
func (s *Service) RemoveMember(ctx context.Context, actor policy.Actor, orgID, userID uuid.UUID) error {
	org, err := s.repo.GetOrg(ctx, orgID)
	if err != nil {
		return err
	}
	if err := s.policy.Evaluate(ctx, actor, policy.ActionOrgRemoveMember, policy.Resource{OrgID: org.ID}); err != nil {
		return err
	}

	removed, err := s.repo.RemoveMember(ctx, orgID, userID)
	if err != nil {
		return err
	}

	s.recorder.Record(ctx, audit.Entry{
		UserID:     &actor.ID,
		OrgID:      &org.ID,
		Action:     audit.ActionOrgMemberRemoved,
		EntityType: "org_member",
		EntityID:   removed.ID.String(),
		Metadata:   map[string]any{"removed_user_id": userID.String(), "previous_role": string(removed.Role)},
	})
	return nil
}

// UpdateMemberRole changes a member's role. Only owners may change roles.
// Demoting the sole owner fails with ErrLastOwner, the same guard removal
// applies.
func (s *Service) UpdateMemberRole(ctx context.Context, actor policy.Actor, orgID, userID uuid.UUID, rawRole string) (*Membership, error) {
	role, ok := roles.Parse(rawRole)
	if !ok {
		return nil, ErrInvalidRole
	}

	org, err := s.repo.GetOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Evaluate(ctx, actor, policy.ActionOrgUpdateMemberRole, policy.Resource{OrgID: org.ID}); err != nil {
		return nil, err
	}

	before, after, err := s.repo.UpdateMemberRole(ctx, orgID, userID, role)
	if err != nil {
		return nil, err
	}

	if before.Role != after.Role {
		s.recorder.Record(ctx, audit.Entry{
			UserID:     &actor.ID,
			OrgID:      &org.ID,
			Action:     audit.ActionOrgMemberRoleUpdated,
			EntityType: "org_member",
			EntityID:   after.ID.String(),
			Changes:    map[string]any{"role": audit.Change(string(before.Role), string(after.Role))},
			Metadata:   map[string]any{"target_user_id": userID.String()},
		})
	}
	return after, nil
}

// ListMembers returns the organization's memberships; any member or a
// platform admin may view.
func (s *Service) ListMembers(ctx context.Context, actor policy.Actor, orgID uuid.UUID) ([]Membership, error) {
	org, err := s.repo.GetOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Evaluate(ctx, actor, policy.ActionOrgView, policy.Resource{OrgID: org.ID}); err != nil {
		return nil, err
	}
	return s.repo.ListMembers(ctx, orgID)
}

func orgChanges(org *Org, params UpdateOrgParams) map[string]any {
	changes := map[string]any{}
	if params.Name != nil && *params.Name != org.Name {
		changes["name"] = audit.Change(org.Name, *params.Name)
	}
	if params.CountryCode != nil && *params.CountryCode != org.CountryCode {
		changes["country_code"] = audit.Change(org.CountryCode, *params.CountryCode)
	}
	if params.PayoutChannel != nil && PayoutChannel(*params.PayoutChannel) != org.PayoutChannel {
		changes["payout_channel"] = audit.Change(string(org.PayoutChannel), *params.PayoutChannel)
	}
	if params.PayoutIdentifier != nil && *params.PayoutIdentifier != org.PayoutIdentifier {
		changes["payout_identifier"] = audit.Change(org.PayoutIdentifier, *params.PayoutIdentifier)
	}
	return changes
}
