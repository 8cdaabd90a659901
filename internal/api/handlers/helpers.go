package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/teranga-events/server/internal/api/problem"
	"github.com/teranga-events/server/internal/domain/events"
	"github.com/teranga-events/server/internal/domain/ids"
	"github.com/teranga-events/server/internal/domain/orgs"
	"github.com/teranga-events/server/internal/domain/policy"
	"github.com/teranga-events/server/internal/domain/tickettypes"
	"github.com/teranga-events/server/internal/domain/users"
	"github.com/teranga-events/server/internal/metrics"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeJSON(r *http.Request, into any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(into); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func parseUUIDField(raw, name string) (uuid.UUID, error) {
	id, err := ids.ParseUUID(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %q", name, raw)
	}
	return id, nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	return parseUUIDField(r.PathValue(name), name)
}

// writeDomainError maps domain errors onto problem responses: 401 for bad
// credentials, 403 for policy denials, 404 for missing resources, 409 for
// conflicts, 422 for validation and lifecycle violations.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error, env string) {
	var validationErrs validator.ValidationErrors

	switch {
	case errors.Is(err, users.ErrInvalidCredentials):
		metrics.LoginFailures.Inc()
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Invalid credentials", err, env)

	case errors.Is(err, policy.ErrForbidden):
		metrics.AuthzDenials.WithLabelValues(r.URL.Path).Inc()
		problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden, "Forbidden", err, env)

	case errors.Is(err, orgs.ErrNotFound),
		errors.Is(err, orgs.ErrMemberNotFound),
		errors.Is(err, orgs.ErrUserNotFound),
		errors.Is(err, events.ErrNotFound),
		errors.Is(err, tickettypes.ErrNotFound),
		errors.Is(err, tickettypes.ErrNotFoundForEvent),
		errors.Is(err, users.ErrNotFound):
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not found", err, env)

	case errors.Is(err, orgs.ErrAlreadyMember),
		errors.Is(err, orgs.ErrLastOwner),
		errors.Is(err, users.ErrEmailTaken),
		errors.Is(err, users.ErrPhoneTaken):
		problem.Write(w, r, http.StatusConflict, problem.TypeConflict, "Conflict", err, env)

	case errors.Is(err, events.ErrInvalidState),
		errors.Is(err, events.ErrNoTicketTypes),
		errors.Is(err, tickettypes.ErrArchived):
		problem.Write(w, r, http.StatusUnprocessableEntity, problem.TypeInvalidState, "Invalid state", err, env)

	case errors.Is(err, events.ErrInvalidSchedule),
		errors.Is(err, tickettypes.ErrPriceRequired),
		errors.Is(err, tickettypes.ErrInvalidSalesWindow),
		errors.Is(err, orgs.ErrInvalidRole):
		problem.Write(w, r, http.StatusUnprocessableEntity, problem.TypeValidation, "Validation failed", err, env)

	case errors.As(err, &validationErrs):
		fields := make(map[string]interface{}, len(validationErrs))
		for _, fieldErr := range validationErrs {
			fields[fieldErr.Field()] = fieldErr.Tag()
		}
		problem.Write(w, r, http.StatusUnprocessableEntity, problem.TypeValidation, "Validation failed", err, env,
			problem.WithErrors(fields))

	default:
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, env)
	}
}
