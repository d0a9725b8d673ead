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

type userService interface {
	CreateUser(ctx context.Context, params application.CreateUserParams) (application.User, error)
	UpdateUser(ctx context.Context, params application.UpdateUserParams) (application.User, error)
	DeleteUser(ctx context.Context, principal application.Principal, userID string) error
	GetUser(ctx context.Context, viewer *application.Principal, userID string) (application.User, error)
	ListUsers(ctx context.Context, viewer *application.Principal, params application.ListUsersParams) ([]application.User, error)
}

type auditReader interface {
	Recent(ctx context.Context, principal *application.Principal, userID string, limit int) ([]application.LogEntry, error)
}

type UserHandler struct {
	service   userService
	audit     auditReader
	responder responder
	logger    *slog.Logger
}

func NewUserHandler(service userService, audit auditReader, logger *slog.Logger) *UserHandler {
	base := defaultLogger(logger)
	return &UserHandler{service: service, audit: audit, responder: newResponder(base), logger: base}
}

func (h *UserHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "UserHandler", operation, attrs...)
}

// List returns one page of users. Anonymous callers are served with names hidden.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	page, amount := pageParams(r)
	users, err := h.service.ListUsers(r.Context(), viewerFromContext(r.Context()), application.ListUsersParams{Page: page, Amount: amount})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]userDTO, 0, len(users))
	for _, u := range users {
		out = append(out, toUserDTO(u))
	}
	h.responder.writeSuccess(r.Context(), w, http.StatusOK, out, pageMeta(page, amount))
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUser(r.Context(), viewerFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeSuccess(r.Context(), w, http.StatusOK, toUserDTO(user), nil)
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req userRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.UserID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode user request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, "BAD_REQUEST", errBadRequestBody)
		return
	}

	user, err := h.service.CreateUser(r.Context(), application.CreateUserParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeSuccess(r.Context(), w, http.StatusCreated, toUserDTO(user), nil)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	userID := chi.URLParam(r, "id")

	var req userRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Update", "principal_id", principal.UserID, "user_id", userID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode user update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, "BAD_REQUEST", errBadRequestBody)
		return
	}

	user, err := h.service.UpdateUser(r.Context(), application.UpdateUserParams{
		Principal: principal,
		UserID:    userID,
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeSuccess(r.Context(), w, http.StatusOK, toUserDTO(user), nil)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.DeleteUser(r.Context(), principal, chi.URLParam(r, "id")); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Logs returns the latest audit entries attributed to a user.
func (h *UserHandler) Logs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.audit.Recent(r.Context(), viewerFromContext(r.Context()), chi.URLParam(r, "id"), limit)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]logEntryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, logEntryDTO{ID: e.ID, Event: e.Event, Time: e.Time.UTC().Format(time.RFC3339), UserID: e.UserID})
	}
	h.responder.writeSuccess(r.Context(), w, http.StatusOK, out, nil)
}

type userRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Password string `json:"password"`
	RoleID   string `json:"role_id"`
}

func (r userRequest) toInput() application.UserInput {
	return application.UserInput{
		Name:     r.Name,
		Username: r.Username,
		Password: r.Password,
		RoleID:   r.RoleID,
	}
}

// userDTO always carries the name key; it is null when hidden from the viewer.
type userDTO struct {
	ID        string  `json:"id"`
	Name      *string `json:"name"`
	Username  string  `json:"username"`
	RoleID    string  `json:"role_id"`
	Role      string  `json:"role"`
	CreatedAt string  `json:"created_at"`
}

func toUserDTO(user application.User) userDTO {
	return userDTO{
		ID:        user.ID,
		Name:      user.Name,
		Username:  user.Username,
		RoleID:    user.RoleID,
		Role:      user.RoleName,
		CreatedAt: user.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type logEntryDTO struct {
	ID     string `json:"id"`
	Event  string `json:"event"`
	Time   string `json:"time"`
	UserID string `json:"user_id,omitempty"`
}
