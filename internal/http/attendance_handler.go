package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/workforce/internal/application"
)

type attendanceService interface {
	CheckIn(ctx context.Context, principal application.Principal, code string) (application.AttendanceState, application.WorkedTime, error)
	ListWorkedTimes(ctx context.Context, principal application.Principal, userID string, page, amount int) ([]application.WorkedTime, error)
	UpdateNote(ctx context.Context, principal application.Principal, id, note string) (application.WorkedTime, error)
}

type AttendanceHandler struct {
	service   attendanceService
	responder responder
	logger    *slog.Logger
}

func NewAttendanceHandler(service attendanceService, logger *slog.Logger) *AttendanceHandler {
	base := defaultLogger(logger)
	return &AttendanceHandler{service: service, responder: newResponder(base), logger: base}
}

// CheckIn toggles the caller between checked in and checked out.
func (h *AttendanceHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req checkInRequest
	if err := decodeJSON(r, &req); err != nil {
		handlerLogger(r.Context(), h.logger, "AttendanceHandler", "CheckIn", "principal_id", principal.UserID).
			WarnContext(r.Context(), "failed to decode check-in request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, "BAD_REQUEST", errBadRequestBody)
		return
	}

	state, shift, err := h.service.CheckIn(r.Context(), principal, req.Code)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeSuccess(r.Context(), w, http.StatusOK, checkInResponse{
		State:      string(state),
		WorkedTime: toWorkedTimeDTO(shift),
	}, nil)
}

func (h *AttendanceHandler) ListWorkedTimes(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	page, amount := pageParams(r)

	shifts, err := h.service.ListWorkedTimes(r.Context(), principal, r.URL.Query().Get("user_id"), page, amount)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]workedTimeDTO, 0, len(shifts))
	for _, s := range shifts {
		out = append(out, toWorkedTimeDTO(s))
	}
	h.responder.writeSuccess(r.Context(), w, http.StatusOK, out, pageMeta(page, amount))
}

func (h *AttendanceHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req noteRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, "BAD_REQUEST", errBadRequestBody)
		return
	}

	shift, err := h.service.UpdateNote(r.Context(), principal, chi.URLParam(r, "id"), req.Note)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeSuccess(r.Context(), w, http.StatusOK, toWorkedTimeDTO(shift), nil)
}

type checkInRequest struct {
	Code string `json:"code"`
}

type checkInResponse struct {
	State      string        `json:"state"`
	WorkedTime workedTimeDTO `json:"worked_time"`
}

type noteRequest struct {
	Note string `json:"note"`
}

type workedTimeDTO struct {
	ID              string `json:"id"`
	UserID          string `json:"user_id"`
	Date            string `json:"date"`
	WeekDay         int    `json:"week_day"`
	StartTime       string `json:"start_time"`
	DurationSeconds int64  `json:"duration_seconds"`
	Active          bool   `json:"active"`
	Note            string `json:"note"`
}

func toWorkedTimeDTO(wt application.WorkedTime) workedTimeDTO {
	return workedTimeDTO{
		ID:              wt.ID,
		UserID:          wt.UserID,
		Date:            wt.Date.UTC().Format(time.DateOnly),
		WeekDay:         wt.Weekday,
		StartTime:       wt.Start.UTC().Format(time.RFC3339),
		DurationSeconds: int64(wt.Duration / time.Second),
		Active:          wt.Active,
		Note:            wt.Note,
	}
}
