package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// UserRepository captures the persistence operations needed by the user service.
type UserRepository interface {
	CreateUser(ctx context.Context, user User, passwordHash string) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	// UpdateUser persists profile fields; an empty passwordHash keeps the stored hash.
	UpdateUser(ctx context.Context, user User, passwordHash string) (User, error)
	DeleteUser(ctx context.Context, id string) error
	ListUsers(ctx context.Context, offset, limit int) ([]User, error)
	CountUsers(ctx context.Context) (int, error)
}

// RoleLookup resolves roles referenced by users.
type RoleLookup interface {
	GetRole(ctx context.Context, id string) (Role, error)
	GetRoleByName(ctx context.Context, name string) (Role, error)
}

// UserService orchestrates validation, authorization, and persistence for users.
type UserService struct {
	users       UserRepository
	roles       RoleLookup
	hasher      PasswordHasher
	idGenerator func() string
	now         func() time.Time
	audit       *AuditTrail
	logger      *slog.Logger
}

// NewUserService wires dependencies for the user service.
func NewUserService(users UserRepository, roles RoleLookup, hasher PasswordHasher, idGenerator func() string, now func() time.Time, audit *AuditTrail, logger *slog.Logger) *UserService {
	if hasher == nil {
		hasher = NewArgon2Hasher()
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{
		users:       users,
		roles:       roles,
		hasher:      hasher,
		idGenerator: idGenerator,
		now:         now,
		audit:       audit,
		logger:      defaultLogger(logger),
	}
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UserService", operation, attrs...)
}

// CreateUser validates input and persists a new user. Managers only.
// A taken username yields ErrAlreadyExists and nothing is stored.
func (s *UserService) CreateUser(ctx context.Context, params CreateUserParams) (user User, err error) {
	if s == nil || s.users == nil {
		return User{}, fmt.Errorf("UserService is not configured")
	}

	logger := s.loggerWith(ctx, "CreateUser", "principal_id", params.Principal.UserID)
	defer func() { logOutcome(ctx, logger, err, "user creation", "user_id", user.ID) }()

	if !Allow(&params.Principal, ActionAdminister, "") {
		err = ErrForbidden
		return
	}

	input := normalizeUserInput(params.Input)
	vErr := &ValidationError{}
	if input.Name == "" {
		vErr.add("name", "name is required")
	}
	if input.Username == "" {
		vErr.add("username", "username is required")
	}
	if input.Password == "" {
		vErr.add("password", "password is required")
	}

	var role Role
	role, err = s.resolveRole(ctx, input.RoleID, vErr)
	if err != nil {
		return
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var hash string
	hash, err = s.hasher.Hash(input.Password)
	if err != nil {
		err = fmt.Errorf("hash password: %w", err)
		return
	}

	name := input.Name
	user, err = s.users.CreateUser(ctx, User{
		ID:        s.idGenerator(),
		Name:      &name,
		Username:  input.Username,
		RoleID:    role.ID,
		RoleName:  role.Name,
		CreatedAt: s.now().UTC(),
	}, hash)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			err = ErrAlreadyExists
		}
		return
	}

	s.audit.Record(ctx, params.Principal.UserID, "User with id %q, was created", user.ID)
	return
}

// resolveRole returns the referenced role, or the employee role when none is given.
func (s *UserService) resolveRole(ctx context.Context, roleID string, vErr *ValidationError) (Role, error) {
	if s.roles == nil {
		return Role{ID: roleID}, nil
	}
	var (
		role Role
		err  error
	)
	if roleID == "" {
		role, err = s.roles.GetRoleByName(ctx, RoleEmployee)
	} else {
		role, err = s.roles.GetRole(ctx, roleID)
	}
	if errors.Is(err, ErrNotFound) {
		vErr.add("role_id", "role does not exist")
		return Role{}, nil
	}
	return role, err
}

// UpdateUser changes profile fields. Users may edit themselves; only managers
// may edit others or change a role. Empty input fields are left unchanged.
func (s *UserService) UpdateUser(ctx context.Context, params UpdateUserParams) (user User, err error) {
	if s == nil || s.users == nil {
		return User{}, fmt.Errorf("UserService is not configured")
	}

	logger := s.loggerWith(ctx, "UpdateUser", "principal_id", params.Principal.UserID, "user_id", params.UserID)
	defer func() { logOutcome(ctx, logger, err, "user update") }()

	if !Allow(&params.Principal, ActionUpdate, params.UserID) {
		err = ErrForbidden
		return
	}

	var existing User
	existing, err = s.users.GetUser(ctx, params.UserID)
	if err != nil {
		return
	}

	input := normalizeUserInput(params.Input)
	updated := existing
	if input.Name != "" {
		name := input.Name
		updated.Name = &name
	}
	if input.Username != "" {
		updated.Username = input.Username
	}
	if input.RoleID != "" && input.RoleID != existing.RoleID {
		if !params.Principal.IsManager() {
			err = ErrForbidden
			return
		}
		vErr := &ValidationError{}
		var role Role
		role, err = s.resolveRole(ctx, input.RoleID, vErr)
		if err != nil {
			return
		}
		if vErr.HasErrors() {
			err = vErr
			return
		}
		updated.RoleID = role.ID
		updated.RoleName = role.Name
	}

	var hash string
	if input.Password != "" {
		hash, err = s.hasher.Hash(input.Password)
		if err != nil {
			err = fmt.Errorf("hash password: %w", err)
			return
		}
	}

	user, err = s.users.UpdateUser(ctx, updated, hash)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			err = ErrAlreadyExists
		}
		return
	}

	s.audit.Record(ctx, params.Principal.UserID, "User with id %q, was updated", user.ID)
	return
}

// DeleteUser removes a user. Managers only.
func (s *UserService) DeleteUser(ctx context.Context, principal Principal, userID string) (err error) {
	if s == nil || s.users == nil {
		return fmt.Errorf("UserService is not configured")
	}

	logger := s.loggerWith(ctx, "DeleteUser", "principal_id", principal.UserID, "user_id", userID)
	defer func() { logOutcome(ctx, logger, err, "user deletion") }()

	if !Allow(&principal, ActionAdminister, "") {
		return ErrForbidden
	}
	if err = s.users.DeleteUser(ctx, userID); err != nil {
		return err
	}

	s.audit.Record(ctx, principal.UserID, "User with id %q, was deleted", userID)
	return nil
}

// GetUser returns a user to any caller, anonymous included. The name is
// withheld unless the viewer is a manager or the user themself.
func (s *UserService) GetUser(ctx context.Context, viewer *Principal, userID string) (User, error) {
	if s == nil || s.users == nil {
		return User{}, fmt.Errorf("UserService is not configured")
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return User{}, err
	}
	return projectUser(viewer, user), nil
}

// ListUsers returns one page of users with names projected for the viewer.
func (s *UserService) ListUsers(ctx context.Context, viewer *Principal, params ListUsersParams) ([]User, error) {
	if s == nil || s.users == nil {
		return nil, fmt.Errorf("UserService is not configured")
	}
	offset, limit := pageBounds(params.Page, params.Amount)
	users, err := s.users.ListUsers(ctx, offset, limit)
	if err != nil {
		return nil, err
	}
	out := make([]User, len(users))
	for i, u := range users {
		out[i] = projectUser(viewer, u)
	}
	return out, nil
}

// Bootstrap creates an initial manager account when the store has no users.
func (s *UserService) Bootstrap(ctx context.Context, name, username, password string) (created bool, err error) {
	if s == nil || s.users == nil || s.roles == nil {
		return false, fmt.Errorf("UserService is not configured")
	}
	if strings.TrimSpace(username) == "" || password == "" {
		return false, nil
	}

	count, err := s.users.CountUsers(ctx)
	if err != nil || count > 0 {
		return false, err
	}

	role, err := s.roles.GetRoleByName(ctx, RoleManager)
	if err != nil {
		return false, fmt.Errorf("resolve manager role: %w", err)
	}
	if strings.TrimSpace(name) == "" {
		name = username
	}

	system := Principal{UserID: "system", Role: RoleManager}
	_, err = s.CreateUser(ctx, CreateUserParams{
		Principal: system,
		Input:     UserInput{Name: name, Username: username, Password: password, RoleID: role.ID},
	})
	if errors.Is(err, ErrAlreadyExists) {
		return false, nil
	}
	return err == nil, err
}

func projectUser(viewer *Principal, user User) User {
	if !CanSeeName(viewer, user.ID) {
		user.Name = nil
	}
	return user
}

func pageBounds(page, amount int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if amount < 1 {
		amount = defaultPageSize
	}
	if amount > maxPageSize {
		amount = maxPageSize
	}
	return (page - 1) * amount, amount
}

func normalizeUserInput(input UserInput) UserInput {
	return UserInput{
		Name:     strings.TrimSpace(input.Name),
		Username: strings.TrimSpace(input.Username),
		Password: input.Password,
		RoleID:   strings.TrimSpace(input.RoleID),
	}
}
