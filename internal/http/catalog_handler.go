package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/workforce/internal/application"
)

type catalogService interface {
	CreateRole(ctx context.Context, principal application.Principal, name string) (application.Role, error)
	ListRoles(ctx context.Context) ([]application.Role, error)
	CreateRequestType(ctx context.Context, principal application.Principal, name string) (application.RequestType, error)
	ListRequestTypes(ctx context.Context) ([]application.RequestType, error)
}

// CatalogHandler exposes the role and request type lookup tables.
type CatalogHandler struct {
	service   catalogService
	responder responder
}

func NewCatalogHandler(service catalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{service: service, responder: newResponder(logger)}
}

func (h *CatalogHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	out := make([]namedDTO, 0, len(roles))
	for _, role := range roles {
		out = append(out, namedDTO{ID: role.ID, Name: role.Name})
	}
	h.responder.writeSuccess(r.Context(), w, http.StatusOK, out, nil)
}

func (h *CatalogHandler) CreateRole(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req nameRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, "BAD_REQUEST", errBadRequestBody)
		return
	}
	role, err := h.service.CreateRole(r.Context(), principal, req.Name)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeSuccess(r.Context(), w, http.StatusCreated, namedDTO{ID: role.ID, Name: role.Name}, nil)
}

func (h *CatalogHandler) ListRequestTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.service.ListRequestTypes(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	out := make([]namedDTO, 0, len(types))
	for _, rt := range types {
		out = append(out, namedDTO{ID: rt.ID, Name: rt.Name})
	}
	h.responder.writeSuccess(r.Context(), w, http.StatusOK, out, nil)
}

func (h *CatalogHandler) CreateRequestType(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req nameRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, "BAD_REQUEST", errBadRequestBody)
		return
	}
	rt, err := h.service.CreateRequestType(r.Context(), principal, req.Name)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeSuccess(r.Context(), w, http.StatusCreated, namedDTO{ID: rt.ID, Name: rt.Name}, nil)
}

type nameRequest struct {
	Name string `json:"name"`
}

type namedDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
