// Package audit records every authorized mutation as an immutable,
// append-only trail. Recording is best-effort: a failed insert is logged and
// never fails the operation that triggered it.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/teranga-events/server/internal/domain/ids"
)

// Action tags are dot-namespaced. The *_failed variants mark
// security-relevant denials; their sensitive inputs are hashed before
// storage.
const (
	ActionOrgCreated           = "org.created"
	ActionOrgUpdated           = "org.updated"
	ActionOrgMemberAdded       = "org.member_added"
	ActionOrgMemberRemoved     = "org.member_removed"
	ActionOrgMemberRoleUpdated = "org.member_role_updated"

	ActionEventCreated   = "event.created"
	ActionEventUpdated   = "event.updated"
	ActionEventPublished = "event.published"
	ActionEventCanceled  = "event.canceled"
	ActionEventDeleted   = "event.deleted"
	ActionEventEnded     = "event.ended"

	ActionTicketTypeCreated  = "ticket_type.created"
	ActionTicketTypeUpdated  = "ticket_type.updated"
	ActionTicketTypeArchived = "ticket_type.archived"

	ActionUserLogin       = "user.login"
	ActionUserLoginFailed = "user.login_failed"
)

// Entry is one audit record. UserID is nil for system or anonymous actions;
// OrgID is nil for actions outside any tenant.
type Entry struct {
	ID         string
	UserID     *uuid.UUID
	OrgID      *uuid.UUID
	Action     string
	EntityType string
	EntityID   string
	Changes    map[string]any
	Metadata   map[string]any
	IPAddress  string
	UserAgent  string
	CreatedAt  time.Time
}

// Store persists entries. Implementations must treat the table as
// append-only: no updates, no deletes outside retention pruning.
type Store interface {
	Append(ctx context.Context, entry Entry) error
}

type Recorder struct {
	store  Store
	logger zerolog.Logger
}

func NewRecorder(store Store, logger zerolog.Logger) *Recorder {
	return &Recorder{
		store:  store,
		logger: logger.With().Str("component", "audit").Logger(),
	}
}

// Record appends an entry, filling in id, timestamp, and request origin from
// the context when not set. Errors are swallowed after logging so audit
// failures never mask the primary operation's success.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	if r == nil || r.store == nil {
		return
	}

	if entry.ID == "" {
		id, err := ids.NewULID()
		if err != nil {
			r.logger.Error().Err(err).Str("action", entry.Action).Msg("audit id generation failed")
			return
		}
		entry.ID = id
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if meta, ok := MetaFromContext(ctx); ok {
		if entry.IPAddress == "" {
			entry.IPAddress = meta.IP
		}
		if entry.UserAgent == "" {
			entry.UserAgent = meta.UserAgent
		}
	}

	if err := r.store.Append(ctx, entry); err != nil {
		r.logger.Error().
			Err(err).
			Str("action", entry.Action).
			Str("entity_type", entry.EntityType).
			Str("entity_id", entry.EntityID).
			Msg("audit append failed")
	}
}

// HashIdentifier one-way hashes sensitive inputs (login identifiers) so
// failed-attempt entries never store them in clear.
func HashIdentifier(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// Change is the before/after diff format stored under a field name.
func Change(from, to any) map[string]any {
	return map[string]any{"from": from, "to": to}
}
