package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranga-events/server/internal/api/problem"
	"github.com/teranga-events/server/internal/domain/events"
	"github.com/teranga-events/server/internal/domain/orgs"
	"github.com/teranga-events/server/internal/domain/policy"
	"github.com/teranga-events/server/internal/domain/tickettypes"
	"github.com/teranga-events/server/internal/domain/users"
)

func TestWriteDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"invalid credentials", users.ErrInvalidCredentials, http.StatusUnauthorized, problem.TypeUnauthorized},
		{"forbidden", policy.ErrForbidden, http.StatusForbidden, problem.TypeForbidden},
		{"org not found", orgs.ErrNotFound, http.StatusNotFound, problem.TypeNotFound},
		{"event not found", events.ErrNotFound, http.StatusNotFound, problem.TypeNotFound},
		{"ticket type not found", tickettypes.ErrNotFound, http.StatusNotFound, problem.TypeNotFound},
		{"already member", orgs.ErrAlreadyMember, http.StatusConflict, problem.TypeConflict},
		{"last owner", orgs.ErrLastOwner, http.StatusConflict, problem.TypeConflict},
		{"email taken", users.ErrEmailTaken, http.StatusConflict, problem.TypeConflict},
		{"invalid state", events.ErrInvalidState, http.StatusUnprocessableEntity, problem.TypeInvalidState},
		{"no ticket types", events.ErrNoTicketTypes, http.StatusUnprocessableEntity, problem.TypeInvalidState},
		{"archived", tickettypes.ErrArchived, http.StatusUnprocessableEntity, problem.TypeInvalidState},
		{"invalid schedule", events.ErrInvalidSchedule, http.StatusUnprocessableEntity, problem.TypeValidation},
		{"price required", tickettypes.ErrPriceRequired, http.StatusUnprocessableEntity, problem.TypeValidation},
		{"inverted sales window", tickettypes.ErrInvalidSalesWindow, http.StatusUnprocessableEntity, problem.TypeValidation},
		{"unknown error", errors.New("kaboom"), http.StatusInternalServerError, problem.TypeServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)

			writeDomainError(rec, req, tt.err, "test")

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Body.String(), tt.wantType)
		})
	}
}

func TestWriteDomainError_DetailSanitizedInProduction(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orgs", nil)

	writeDomainError(rec, req, orgs.ErrNotFound, "production")

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotContains(t, rec.Body.String(), orgs.ErrNotFound.Error())
	assert.Contains(t, rec.Body.String(), http.StatusText(http.StatusNotFound))
}

func TestDecodeJSON_RejectsUnknownFields(t *testing.T) {
	var into struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ok","bogus":true}`))

	err := decodeJSON(req, &into)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus")
}

func TestPathUUID_Invalid(t *testing.T) {
	mux := http.NewServeMux()
	var gotErr error
	mux.HandleFunc("/things/{id}", func(w http.ResponseWriter, r *http.Request) {
		_, gotErr = pathUUID(r, "id")
	})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/things/not-a-uuid", nil))

	require.Error(t, gotErr)
	assert.Contains(t, gotErr.Error(), "not-a-uuid")
}
