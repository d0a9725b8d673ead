package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/workforce/internal/application"
	"github.com/example/workforce/internal/logging"
)

var (
	errBadRequestBody      = errors.New("request body is not valid JSON")
	errMissingSessionToken = errors.New("a session token is required")
	errMissingDeviceCode   = errors.New("the X-Device-Code header is required")
	errInvalidPlanQuery    = errors.New("from must be a YYYY-MM-DD date and days a positive integer")
)

// APIResponse is the envelope for every JSON response.
type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
	Meta    *Meta     `json:"meta,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Meta describes the page returned by list endpoints.
type Meta struct {
	Page   int `json:"page"`
	Amount int `json:"amount"`
}

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	return responder{logger: defaultLogger(logger)}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeSuccess(ctx context.Context, w http.ResponseWriter, status int, data any, meta *Meta) {
	r.writeJSON(ctx, w, status, APIResponse{Success: true, Data: data, Meta: meta})
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, code string, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
	}
	r.writeJSON(ctx, w, status, APIResponse{Error: &APIError{Code: code, Message: message}})
}

// handleServiceError maps an application error to its status and code.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	status, body := classify(err)
	if status == http.StatusInternalServerError {
		r.loggerFor(ctx).ErrorContext(ctx, "unhandled service error", "error", err)
	}
	r.writeJSON(ctx, w, status, APIResponse{Error: body})
}

func classify(err error) (int, *APIError) {
	var vErr *application.ValidationError
	switch {
	case err == nil:
		return http.StatusInternalServerError, &APIError{Code: "INTERNAL_ERROR", Message: "Unexpected server error"}
	case errors.Is(err, application.ErrCheckinNotRecorded):
		return http.StatusServiceUnavailable, &APIError{Code: "CHECKIN_NOT_RECORDED", Message: "Check-in was not recorded, read a new code and try again"}
	case errors.As(err, &vErr):
		return http.StatusUnprocessableEntity, &APIError{Code: "VALIDATION_FAILED", Message: "Input is invalid", Details: vErr.FieldErrors}
	case errors.Is(err, application.ErrInvalidCredentials):
		return http.StatusUnauthorized, &APIError{Code: "INVALID_CREDENTIALS", Message: "Username or password is incorrect"}
	case errors.Is(err, application.ErrSessionExpired):
		return http.StatusUnauthorized, &APIError{Code: "SESSION_EXPIRED", Message: "Session expired, log in again"}
	case errors.Is(err, application.ErrUnauthenticated):
		return http.StatusUnauthorized, &APIError{Code: "UNAUTHENTICATED", Message: "Authentication required"}
	case errors.Is(err, application.ErrForbidden):
		return http.StatusForbidden, &APIError{Code: "FORBIDDEN", Message: "Access denied"}
	case errors.Is(err, application.ErrNotFound):
		return http.StatusNotFound, &APIError{Code: "NOT_FOUND", Message: "Resource not found"}
	case errors.Is(err, application.ErrAlreadyExists):
		return http.StatusConflict, &APIError{Code: "ALREADY_EXISTS", Message: "Resource already exists"}
	case errors.Is(err, application.ErrInvalidCheckinCode):
		return http.StatusConflict, &APIError{Code: "INVALID_CHECKIN_CODE", Message: "Check-in code is not valid"}
	case errors.Is(err, application.ErrAlreadyProcessed):
		return http.StatusConflict, &APIError{Code: "ALREADY_PROCESSED", Message: "Request has already been processed"}
	case errors.Is(err, application.ErrRequestProcessed):
		return http.StatusConflict, &APIError{Code: "REQUEST_PROCESSED", Message: "Processed requests cannot be deleted"}
	case errors.Is(err, application.ErrConflict):
		return http.StatusConflict, &APIError{Code: "CONFLICT", Message: "Operation conflicts with the current state"}
	default:
		return http.StatusInternalServerError, &APIError{Code: "INTERNAL_ERROR", Message: "Unexpected server error"}
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := logging.FromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// pageParams reads the page and amount query parameters. Invalid values fall
// back to zero so the services apply their defaults.
func pageParams(r *http.Request) (page, amount int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	amount, _ = strconv.Atoi(r.URL.Query().Get("amount"))
	return page, amount
}

func pageMeta(page, amount int) *Meta {
	if page < 1 {
		page = 1
	}
	if amount < 1 {
		amount = 10
	}
	if amount > 100 {
		amount = 100
	}
	return &Meta{Page: page, Amount: amount}
}
