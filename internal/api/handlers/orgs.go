package handlers

import (
	"net/http"

	"github.com/teranga-events/server/internal/api/middleware"
	"github.com/teranga-events/server/internal/api/problem"
	"github.com/teranga-events/server/internal/domain/orgs"
)

type OrgsHandler struct {
	Service *orgs.Service
	Env     string
}

func NewOrgsHandler(service *orgs.Service, env string) *OrgsHandler {
	return &OrgsHandler{Service: service, Env: env}
}

func (h *OrgsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var params orgs.CreateOrgParams
	if err := decodeJSON(r, &params); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	org, err := h.Service.CreateOrg(r.Context(), middleware.ActorFromContext(r.Context()), params)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusCreated, org)
}

func (h *OrgsHandler) Get(w http.ResponseWriter, r *http.Request) {
	orgID, err := pathUUID(r, "id")
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	org, err := h.Service.GetOrg(r.Context(), middleware.ActorFromContext(r.Context()), orgID)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, org)
}

func (h *OrgsHandler) List(w http.ResponseWriter, r *http.Request) {
	result, err := h.Service.ListForUser(r.Context(), middleware.ActorFromContext(r.Context()))
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": result})
}

func (h *OrgsHandler) Update(w http.ResponseWriter, r *http.Request) {
	orgID, err := pathUUID(r, "id")
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}
	var params orgs.UpdateOrgParams
	if err := decodeJSON(r, &params); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	org, err := h.Service.UpdateOrg(r.Context(), middleware.ActorFromContext(r.Context()), orgID, params)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, org)
}

type addMemberRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

func (h *OrgsHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	orgID, err := pathUUID(r, "id")
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}
	var req addMemberRequest
	if err := decodeJSON(r, &req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}
	userID, err := parseUUIDField(req.UserID, "user_id")
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	member, err := h.Service.AddMember(r.Context(), middleware.ActorFromContext(r.Context()), orgID, userID, req.Role)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusCreated, member)
}

func (h *OrgsHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	orgID, err := pathUUID(r, "id")
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}
	userID, err := pathUUID(r, "userID")
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	if err := h.Service.RemoveMember(r.Context(), middleware.ActorFromContext(r.Context()), orgID, userID); err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

func (h *OrgsHandler) UpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	orgID, err := pathUUID(r, "id")
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}
	userID, err := pathUUID(r, "userID")
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}
	var req updateRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	member, err := h.Service.UpdateMemberRole(r.Context(), middleware.ActorFromContext(r.Context()), orgID, userID, req.Role)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

func (h *OrgsHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	orgID, err := pathUUID(r, "id")
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	members, err := h.Service.ListMembers(r.Context(), middleware.ActorFromContext(r.Context()), orgID)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": members})
}
