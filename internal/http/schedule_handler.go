package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/workforce/internal/application"
)

type scheduleService interface {
	Create(ctx context.Context, params application.CreateScheduledTimeParams) (application.ScheduledTime, error)
	ListForUser(ctx context.Context, principal application.Principal, userID string, includeInactive bool) ([]application.ScheduledTime, error)
	SetInactive(ctx context.Context, principal application.Principal, id string, inactive bool) (application.ScheduledTime, error)
	Delete(ctx context.Context, principal application.Principal, id string) error
	Plan(ctx context.Context, principal application.Principal, userID string, from, to time.Time) ([]application.PlannedShift, error)
}

const defaultPlanDays = 7

type ScheduleHandler struct {
	service   scheduleService
	responder responder
	logger    *slog.Logger
}

func NewScheduleHandler(service scheduleService, logger *slog.Logger) *ScheduleHandler {
	base := defaultLogger(logger)
	return &ScheduleHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ScheduleHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "ScheduleHandler", operation, attrs...)
}

// List returns planned shifts for ?user_id= (default: the caller).
// ?include_inactive=true also returns shifts switched off.
func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	includeInactive, _ := strconv.ParseBool(r.URL.Query().Get("include_inactive"))

	shifts, err := h.service.ListForUser(r.Context(), principal, r.URL.Query().Get("user_id"), includeInactive)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]scheduledTimeDTO, 0, len(shifts))
	for _, st := range shifts {
		out = append(out, toScheduledTimeDTO(st))
	}
	h.responder.writeSuccess(r.Context(), w, http.StatusOK, out, nil)
}

func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req scheduledTimeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.UserID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode scheduled time", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, "BAD_REQUEST", errBadRequestBody)
		return
	}

	st, err := h.service.Create(r.Context(), application.CreateScheduledTimeParams{
		Principal: principal,
		UserID:    req.UserID,
		Weekday:   req.WeekDay,
		StartTime: req.StartTime,
		Duration:  time.Duration(req.DurationSeconds) * time.Second,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeSuccess(r.Context(), w, http.StatusCreated, toScheduledTimeDTO(st), nil)
}

func (h *ScheduleHandler) SetInactive(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req inactiveRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, "BAD_REQUEST", errBadRequestBody)
		return
	}

	st, err := h.service.SetInactive(r.Context(), principal, chi.URLParam(r, "id"), req.Inactive)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeSuccess(r.Context(), w, http.StatusOK, toScheduledTimeDTO(st), nil)
}

func (h *ScheduleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.Delete(r.Context(), principal, chi.URLParam(r, "id")); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Plan expands weekly shifts into dated occurrences for ?user_id= starting at
// ?from=YYYY-MM-DD (UTC midnight) and spanning ?days= days, 7 by default.
func (h *ScheduleHandler) Plan(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()

	from, err := time.Parse(time.DateOnly, query.Get("from"))
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, "BAD_REQUEST", errInvalidPlanQuery)
		return
	}
	days := defaultPlanDays
	if raw := query.Get("days"); raw != "" {
		days, err = strconv.Atoi(raw)
		if err != nil || days <= 0 {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, "BAD_REQUEST", errInvalidPlanQuery)
			return
		}
	}

	planned, err := h.service.Plan(r.Context(), principal, query.Get("user_id"), from, from.AddDate(0, 0, days))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]plannedShiftDTO, 0, len(planned))
	for _, p := range planned {
		out = append(out, toPlannedShiftDTO(p))
	}
	h.responder.writeSuccess(r.Context(), w, http.StatusOK, out, nil)
}

type scheduledTimeRequest struct {
	UserID          string    `json:"user_id"`
	WeekDay         int       `json:"week_day"`
	StartTime       time.Time `json:"start_time"`
	DurationSeconds int64     `json:"duration_seconds"`
}

type inactiveRequest struct {
	Inactive bool `json:"inactive"`
}

type scheduledTimeDTO struct {
	ID              string `json:"id"`
	UserID          string `json:"user_id"`
	WeekDay         int    `json:"week_day"`
	StartTime       string `json:"start_time"`
	DurationSeconds int64  `json:"duration_seconds"`
	Inactive        bool   `json:"inactive"`
}

func toScheduledTimeDTO(st application.ScheduledTime) scheduledTimeDTO {
	return scheduledTimeDTO{
		ID:              st.ID,
		UserID:          st.UserID,
		WeekDay:         st.Weekday,
		StartTime:       st.StartTime.UTC().Format(time.RFC3339),
		DurationSeconds: int64(st.Duration / time.Second),
		Inactive:        st.Inactive,
	}
}

type plannedShiftDTO struct {
	ScheduledTimeID string   `json:"scheduled_time_id"`
	UserID          string   `json:"user_id"`
	Start           string   `json:"start"`
	End             string   `json:"end"`
	Overlaps        []string `json:"overlaps"`
}

func toPlannedShiftDTO(p application.PlannedShift) plannedShiftDTO {
	overlaps := p.Overlaps
	if overlaps == nil {
		overlaps = []string{}
	}
	return plannedShiftDTO{
		ScheduledTimeID: p.ScheduledTimeID,
		UserID:          p.UserID,
		Start:           p.Start.UTC().Format(time.RFC3339),
		End:             p.End.UTC().Format(time.RFC3339),
		Overlaps:        overlaps,
	}
}
