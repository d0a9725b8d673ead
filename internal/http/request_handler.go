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

type requestService interface {
	Create(ctx context.Context, params application.CreateRequestParams) (application.Request, error)
	Process(ctx context.Context, params application.ProcessRequestParams) (application.Request, error)
	Delete(ctx context.Context, principal application.Principal, requestID string) error
	Get(ctx context.Context, principal application.Principal, requestID string) (application.Request, error)
	List(ctx context.Context, params application.ListRequestsParams) ([]application.Request, error)
}

// RequestHandler serves the leave and overtime request workflow.
type RequestHandler struct {
	service   requestService
	responder responder
	logger    *slog.Logger
}

func NewRequestHandler(service requestService, logger *slog.Logger) *RequestHandler {
	base := defaultLogger(logger)
	return &RequestHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *RequestHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "RequestHandler", operation, attrs...)
}

// List returns visible requests; ?open=true limits the result to open ones.
func (h *RequestHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	page, amount := pageParams(r)
	openOnly, _ := strconv.ParseBool(r.URL.Query().Get("open"))

	requests, err := h.service.List(r.Context(), application.ListRequestsParams{
		Principal: principal,
		OpenOnly:  openOnly,
		Page:      page,
		Amount:    amount,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]requestDTO, 0, len(requests))
	for _, req := range requests {
		out = append(out, toRequestDTO(req))
	}
	h.responder.writeSuccess(r.Context(), w, http.StatusOK, out, pageMeta(page, amount))
}

func (h *RequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var body createRequestBody
	if err := decodeJSON(r, &body); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.UserID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, "BAD_REQUEST", errBadRequestBody)
		return
	}

	req, err := h.service.Create(r.Context(), application.CreateRequestParams{
		Principal: principal,
		UserID:    body.UserID,
		TypeID:    body.TypeID,
		Reason:    body.Reason,
		Span: application.RequestSpan{
			Weekday:   body.WeekDay,
			StartTime: body.StartTime,
			Duration:  time.Duration(body.DurationSeconds) * time.Second,
		},
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeSuccess(r.Context(), w, http.StatusCreated, toRequestDTO(req), nil)
}

func (h *RequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	req, err := h.service.Get(r.Context(), principal, chi.URLParam(r, "id"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeSuccess(r.Context(), w, http.StatusOK, toRequestDTO(req), nil)
}

func (h *RequestHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.Delete(r.Context(), principal, chi.URLParam(r, "id")); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Process records the manager's decision. Accepted must be present in the body.
func (h *RequestHandler) Process(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var body processRequestBody
	if err := decodeJSON(r, &body); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, "BAD_REQUEST", errBadRequestBody)
		return
	}
	if body.Accepted == nil {
		h.responder.handleServiceError(r.Context(), w, &application.ValidationError{
			FieldErrors: map[string]string{"accepted": "accepted is required"},
		})
		return
	}

	req, err := h.service.Process(r.Context(), application.ProcessRequestParams{
		Principal: principal,
		RequestID: chi.URLParam(r, "id"),
		Accepted:  *body.Accepted,
		Reason:    body.Reason,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeSuccess(r.Context(), w, http.StatusOK, toRequestDTO(req), nil)
}

type createRequestBody struct {
	UserID          string    `json:"user_id"`
	TypeID          string    `json:"type_id"`
	Reason          string    `json:"reason"`
	WeekDay         int       `json:"week_day"`
	StartTime       time.Time `json:"start_time"`
	DurationSeconds int64     `json:"duration_seconds"`
}

type processRequestBody struct {
	Accepted *bool  `json:"accepted"`
	Reason   string `json:"reason"`
}

type requestDTO struct {
	ID              string       `json:"id"`
	UserID          string       `json:"user_id"`
	RequestedBy     string       `json:"requested_by"`
	TypeID          string       `json:"type_id"`
	Reason          string       `json:"reason"`
	WeekDay         int          `json:"week_day"`
	StartTime       string       `json:"start_time"`
	DurationSeconds int64        `json:"duration_seconds"`
	State           string       `json:"state"`
	CreatedAt       string       `json:"created_at"`
	Decision        *decisionDTO `json:"decision,omitempty"`
}

type decisionDTO struct {
	Accepted    bool   `json:"accepted"`
	Reason      string `json:"reason"`
	ProcessedAt string `json:"processed_at"`
	ProcessedBy string `json:"processed_by"`
}

func toRequestDTO(req application.Request) requestDTO {
	dto := requestDTO{
		ID:              req.ID,
		UserID:          req.UserID,
		RequestedBy:     req.RequestedBy,
		TypeID:          req.TypeID,
		Reason:          req.Reason,
		WeekDay:         req.Span.Weekday,
		StartTime:       req.Span.StartTime.UTC().Format(time.RFC3339),
		DurationSeconds: int64(req.Span.Duration / time.Second),
		State:           string(req.State()),
		CreatedAt:       req.CreatedAt.UTC().Format(time.RFC3339),
	}
	if d := req.Decision; d != nil {
		dto.Decision = &decisionDTO{
			Accepted:    d.Accepted,
			Reason:      d.Reason,
			ProcessedAt: d.ProcessedAt.UTC().Format(time.RFC3339),
			ProcessedBy: d.ProcessedBy,
		}
	}
	return dto
}
