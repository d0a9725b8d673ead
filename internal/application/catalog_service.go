package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Default catalogue entries seeded at start-up.
var (
	DefaultRoles        = []string{RoleManager, RoleEmployee}
	DefaultRequestTypes = []string{"ferie", "sygdom", "overarbejde"}
)

// CatalogRepository stores roles and request types.
type CatalogRepository interface {
	RoleLookup
	CreateRole(ctx context.Context, role Role) (Role, error)
	ListRoles(ctx context.Context) ([]Role, error)
	CreateRequestType(ctx context.Context, rt RequestType) (RequestType, error)
	GetRequestType(ctx context.Context, id string) (RequestType, error)
	GetRequestTypeByName(ctx context.Context, name string) (RequestType, error)
	ListRequestTypes(ctx context.Context) ([]RequestType, error)
}

// CatalogService manages the role and request type lookup tables.
type CatalogService struct {
	repo        CatalogRepository
	idGenerator func() string
	audit       *AuditTrail
	logger      *slog.Logger
}

// NewCatalogService wires the role and request type catalog.
func NewCatalogService(repo CatalogRepository, idGenerator func() string, audit *AuditTrail, logger *slog.Logger) *CatalogService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	return &CatalogService{repo: repo, idGenerator: idGenerator, audit: audit, logger: defaultLogger(logger)}
}

// CreateRole adds a role. Managers only; names are unique.
func (s *CatalogService) CreateRole(ctx context.Context, principal Principal, name string) (role Role, err error) {
	logger := serviceLogger(ctx, s.logger, "CatalogService", "CreateRole", "principal_id", principal.UserID)
	defer func() { logOutcome(ctx, logger, err, "role creation", "role_id", role.ID) }()

	if !Allow(&principal, ActionAdminister, "") {
		err = ErrForbidden
		return
	}
	name = strings.TrimSpace(name)
	if name == "" {
		err = &ValidationError{FieldErrors: map[string]string{"name": "name is required"}}
		return
	}
	role, err = s.repo.CreateRole(ctx, Role{ID: s.idGenerator(), Name: name})
	if errors.Is(err, ErrConflict) {
		err = ErrAlreadyExists
		return
	}
	if err == nil {
		s.audit.Record(ctx, principal.UserID, "Role with id %q, was created", role.ID)
	}
	return
}

// ListRoles returns every role.
func (s *CatalogService) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// CreateRequestType adds a request type. Managers only; names are unique.
func (s *CatalogService) CreateRequestType(ctx context.Context, principal Principal, name string) (rt RequestType, err error) {
	logger := serviceLogger(ctx, s.logger, "CatalogService", "CreateRequestType", "principal_id", principal.UserID)
	defer func() { logOutcome(ctx, logger, err, "request type creation", "type_id", rt.ID) }()

	if !Allow(&principal, ActionAdminister, "") {
		err = ErrForbidden
		return
	}
	name = strings.TrimSpace(name)
	if name == "" {
		err = &ValidationError{FieldErrors: map[string]string{"name": "name is required"}}
		return
	}
	rt, err = s.repo.CreateRequestType(ctx, RequestType{ID: s.idGenerator(), Name: name})
	if errors.Is(err, ErrConflict) {
		err = ErrAlreadyExists
		return
	}
	if err == nil {
		s.audit.Record(ctx, principal.UserID, "Request type with id %q, was created", rt.ID)
	}
	return
}

// ListRequestTypes returns every request type.
func (s *CatalogService) ListRequestTypes(ctx context.Context) ([]RequestType, error) {
	return s.repo.ListRequestTypes(ctx)
}

// SeedDefaults inserts the default roles and request types that are missing.
func (s *CatalogService) SeedDefaults(ctx context.Context) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("CatalogService is not configured")
	}
	for _, name := range DefaultRoles {
		if _, err := s.repo.GetRoleByName(ctx, name); err == nil {
			continue
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		if _, err := s.repo.CreateRole(ctx, Role{ID: s.idGenerator(), Name: name}); err != nil && !errors.Is(err, ErrConflict) {
			return fmt.Errorf("seed role %s: %w", name, err)
		}
	}
	for _, name := range DefaultRequestTypes {
		if _, err := s.repo.GetRequestTypeByName(ctx, name); err == nil {
			continue
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		if _, err := s.repo.CreateRequestType(ctx, RequestType{ID: s.idGenerator(), Name: name}); err != nil && !errors.Is(err, ErrConflict) {
			return fmt.Errorf("seed request type %s: %w", name, err)
		}
	}
	serviceLogger(ctx, s.logger, "CatalogService", "SeedDefaults").InfoContext(ctx, "catalogue seeded")
	return nil
}
