package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/workforce/internal/application"
)

type deviceService interface {
	CurrentCode(ctx context.Context, deviceCode string) (string, error)
	Register(ctx context.Context, principal application.Principal, name, deviceCode string) (application.CheckinDevice, error)
	List(ctx context.Context, principal application.Principal) ([]application.CheckinDevice, error)
	Delete(ctx context.Context, principal application.Principal, id string) error
}

// DeviceHandler serves check-in displays. Code lookups authenticate with the
// device's static code and never with a user session.
type DeviceHandler struct {
	service   deviceService
	responder responder
	logger    *slog.Logger
}

func NewDeviceHandler(service deviceService, logger *slog.Logger) *DeviceHandler {
	base := defaultLogger(logger)
	return &DeviceHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *DeviceHandler) CurrentCode(w http.ResponseWriter, r *http.Request) {
	deviceCode := strings.TrimSpace(r.Header.Get(deviceCodeHeader))
	if deviceCode == "" {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, "UNAUTHENTICATED", errMissingDeviceCode)
		return
	}

	code, err := h.service.CurrentCode(r.Context(), deviceCode)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	h.responder.writeSuccess(r.Context(), w, http.StatusOK, codeResponse{Code: code}, nil)
}

func (h *DeviceHandler) Register(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req deviceRequest
	if err := decodeJSON(r, &req); err != nil {
		handlerLogger(r.Context(), h.logger, "DeviceHandler", "Register", "principal_id", principal.UserID).
			WarnContext(r.Context(), "failed to decode device request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, "BAD_REQUEST", errBadRequestBody)
		return
	}

	device, err := h.service.Register(r.Context(), principal, req.Name, req.DeviceCode)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeSuccess(r.Context(), w, http.StatusCreated, toDeviceDTO(device), nil)
}

func (h *DeviceHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	devices, err := h.service.List(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]deviceDTO, 0, len(devices))
	for _, d := range devices {
		out = append(out, toDeviceDTO(d))
	}
	h.responder.writeSuccess(r.Context(), w, http.StatusOK, out, nil)
}

func (h *DeviceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.Delete(r.Context(), principal, chi.URLParam(r, "id")); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type codeResponse struct {
	Code string `json:"code"`
}

type deviceRequest struct {
	Name       string `json:"name"`
	DeviceCode string `json:"device_code"`
}

type deviceDTO struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	DeviceCode string `json:"device_code"`
	CreatedAt  string `json:"created_at"`
}

func toDeviceDTO(d application.CheckinDevice) deviceDTO {
	return deviceDTO{
		ID:         d.ID,
		Name:       d.Name,
		DeviceCode: d.DeviceCode,
		CreatedAt:  d.CreatedAt.UTC().Format(time.RFC3339),
	}
}
