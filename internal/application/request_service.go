package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// RequestRepository stores requests and their decisions.
type RequestRepository interface {
	CreateRequest(ctx context.Context, req Request) (Request, error)
	// GetRequest returns the request together with its decision, if any.
	GetRequest(ctx context.Context, id string) (Request, error)
	ListRequests(ctx context.Context, filter RequestFilter) ([]Request, error)
	// DeleteOpenRequest removes the request only while no decision exists.
	// It returns ErrConflict when a decision was recorded first.
	DeleteOpenRequest(ctx context.Context, id string) error
	// CreateDecision records the single decision for a request. A second
	// decision for the same request yields ErrConflict.
	CreateDecision(ctx context.Context, decision Decision) (Decision, error)
}

// RequestTypeLookup resolves request types.
type RequestTypeLookup interface {
	GetRequestType(ctx context.Context, id string) (RequestType, error)
}

// RequestService runs the request approval workflow: requests start open and
// become processed exactly once.
type RequestService struct {
	requests    RequestRepository
	users       UserDirectory
	types       RequestTypeLookup
	policy      OnBehalfPolicy
	idGenerator func() string
	now         func() time.Time
	audit       *AuditTrail
	logger      *slog.Logger
}

// RequestServiceConfig groups the optional collaborators of RequestService.
type RequestServiceConfig struct {
	OnBehalf    OnBehalfPolicy
	IDGenerator func() string
	Now         func() time.Time
	Audit       *AuditTrail
	Logger      *slog.Logger
}

// NewRequestService wires the request workflow.
func NewRequestService(requests RequestRepository, users UserDirectory, types RequestTypeLookup, cfg RequestServiceConfig) *RequestService {
	if cfg.OnBehalf == "" {
		cfg.OnBehalf = OnBehalfAny
	}
	if cfg.IDGenerator == nil {
		cfg.IDGenerator = func() string { return "" }
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &RequestService{
		requests:    requests,
		users:       users,
		types:       types,
		policy:      cfg.OnBehalf,
		idGenerator: cfg.IDGenerator,
		now:         cfg.Now,
		audit:       cfg.Audit,
		logger:      defaultLogger(cfg.Logger),
	}
}

func (s *RequestService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RequestService", operation, attrs...)
}

// Create files a request for params.UserID, defaulting to the principal.
func (s *RequestService) Create(ctx context.Context, params CreateRequestParams) (req Request, err error) {
	if s == nil || s.requests == nil {
		return Request{}, fmt.Errorf("RequestService is not configured")
	}

	subject := strings.TrimSpace(params.UserID)
	if subject == "" {
		subject = params.Principal.UserID
	}

	logger := s.loggerWith(ctx, "Create", "principal_id", params.Principal.UserID, "user_id", subject)
	defer func() { logOutcome(ctx, logger, err, "request creation", "request_id", req.ID) }()

	if params.Principal.UserID == "" {
		err = ErrUnauthenticated
		return
	}
	if !CanFileRequest(&params.Principal, subject, s.policy) {
		err = ErrForbidden
		return
	}

	vErr := &ValidationError{}
	reason := strings.TrimSpace(params.Reason)
	if reason == "" {
		vErr.add("reason", "reason is required")
	}
	if strings.TrimSpace(params.TypeID) == "" {
		vErr.add("type_id", "type_id is required")
	}
	if params.Span.Weekday < 0 || params.Span.Weekday > 6 {
		vErr.add("week_day", "week_day must be between 0 and 6")
	}
	if params.Span.Duration <= 0 {
		vErr.add("duration", "duration must be positive")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if s.users != nil {
		if _, err = s.users.GetUser(ctx, subject); err != nil {
			return
		}
	}
	if s.types != nil {
		if _, err = s.types.GetRequestType(ctx, params.TypeID); err != nil {
			return
		}
	}

	req, err = s.requests.CreateRequest(ctx, Request{
		ID:          s.idGenerator(),
		UserID:      subject,
		RequestedBy: params.Principal.UserID,
		TypeID:      params.TypeID,
		Reason:      reason,
		Span: RequestSpan{
			Weekday:   params.Span.Weekday,
			StartTime: params.Span.StartTime.UTC(),
			Duration:  params.Span.Duration,
		},
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return
	}

	s.audit.Record(ctx, params.Principal.UserID, "Request with id %q, was created", req.ID)
	return
}

// Process records a manager's decision. A request is processed at most once.
func (s *RequestService) Process(ctx context.Context, params ProcessRequestParams) (req Request, err error) {
	if s == nil || s.requests == nil {
		return Request{}, fmt.Errorf("RequestService is not configured")
	}

	logger := s.loggerWith(ctx, "Process", "principal_id", params.Principal.UserID, "request_id", params.RequestID)
	defer func() { logOutcome(ctx, logger, err, "request processing", "accepted", params.Accepted) }()

	if !Allow(&params.Principal, ActionProcess, "") {
		err = ErrForbidden
		return
	}

	req, err = s.requests.GetRequest(ctx, params.RequestID)
	if err != nil {
		return
	}
	if req.Processed() {
		err = ErrAlreadyProcessed
		return
	}

	var decision Decision
	decision, err = s.requests.CreateDecision(ctx, Decision{
		ID:          s.idGenerator(),
		RequestID:   req.ID,
		Accepted:    params.Accepted,
		Reason:      strings.TrimSpace(params.Reason),
		ProcessedAt: s.now().UTC(),
		ProcessedBy: params.Principal.UserID,
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			err = ErrAlreadyProcessed
		}
		return
	}

	req.Decision = &decision
	verdict := "rejected"
	if decision.Accepted {
		verdict = "accepted"
	}
	s.audit.Record(ctx, params.Principal.UserID, "Request with id %q, was %s", req.ID, verdict)
	return
}

// Delete removes an open request. Processed requests cannot be deleted by anyone.
func (s *RequestService) Delete(ctx context.Context, principal Principal, requestID string) (err error) {
	if s == nil || s.requests == nil {
		return fmt.Errorf("RequestService is not configured")
	}

	logger := s.loggerWith(ctx, "Delete", "principal_id", principal.UserID, "request_id", requestID)
	defer func() { logOutcome(ctx, logger, err, "request deletion") }()

	req, err := s.requests.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if req.Processed() {
		return ErrRequestProcessed
	}
	if !CanDeleteRequest(&principal, req) {
		return ErrForbidden
	}

	if err = s.requests.DeleteOpenRequest(ctx, requestID); err != nil {
		if errors.Is(err, ErrConflict) {
			return ErrRequestProcessed
		}
		return err
	}

	s.audit.Record(ctx, principal.UserID, "Request with id %q, was deleted", requestID)
	return nil
}

// Get returns a request visible to the principal.
func (s *RequestService) Get(ctx context.Context, principal Principal, requestID string) (Request, error) {
	if s == nil || s.requests == nil {
		return Request{}, fmt.Errorf("RequestService is not configured")
	}
	req, err := s.requests.GetRequest(ctx, requestID)
	if err != nil {
		return Request{}, err
	}
	if !CanViewRequest(&principal, req) {
		return Request{}, ErrForbidden
	}
	return req, nil
}

// List returns requests visible to the principal. Managers see every request;
// other users only those they are the subject or requester of.
func (s *RequestService) List(ctx context.Context, params ListRequestsParams) ([]Request, error) {
	if s == nil || s.requests == nil {
		return nil, fmt.Errorf("RequestService is not configured")
	}
	if params.Principal.UserID == "" {
		return nil, ErrUnauthenticated
	}
	offset, limit := pageBounds(params.Page, params.Amount)
	filter := RequestFilter{OpenOnly: params.OpenOnly, Offset: offset, Limit: limit}
	if !params.Principal.IsManager() {
		filter.VisibleTo = params.Principal.UserID
	}
	return s.requests.ListRequests(ctx, filter)
}
