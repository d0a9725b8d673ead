package persistence

import (
	"context"
	"time"
)

// UserRepository exposes CRUD operations for users.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	// UpdateUser writes profile fields; an empty PasswordHash keeps the stored hash.
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	ListUsers(ctx context.Context, offset, limit int) ([]User, error)
	CountUsers(ctx context.Context) (int, error)
	DeleteUser(ctx context.Context, id string) error
}

// CatalogRepository stores roles and request types.
type CatalogRepository interface {
	CreateRole(ctx context.Context, role Role) error
	GetRole(ctx context.Context, id string) (Role, error)
	GetRoleByName(ctx context.Context, name string) (Role, error)
	ListRoles(ctx context.Context) ([]Role, error)
	CreateRequestType(ctx context.Context, rt RequestType) error
	GetRequestType(ctx context.Context, id string) (RequestType, error)
	GetRequestTypeByName(ctx context.Context, name string) (RequestType, error)
	ListRequestTypes(ctx context.Context) ([]RequestType, error)
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) error
	GetSession(ctx context.Context, token string) (Session, error)
	DeleteSession(ctx context.Context, token string) (bool, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) (int64, error)
}

// ScheduleRepository stores planned shifts.
type ScheduleRepository interface {
	CreateScheduledTime(ctx context.Context, st ScheduledTime) error
	GetScheduledTime(ctx context.Context, id string) (ScheduledTime, error)
	ListScheduledTimes(ctx context.Context, userID string, includeInactive bool) ([]ScheduledTime, error)
	SetScheduledTimeInactive(ctx context.Context, id string, inactive bool) error
	DeleteScheduledTime(ctx context.Context, id string) error
}

// WorkedTimeRepository stores actual shifts. At most one active row per user.
type WorkedTimeRepository interface {
	FindActiveWorkedTime(ctx context.Context, userID string) (WorkedTime, error)
	CreateWorkedTime(ctx context.Context, wt WorkedTime) error
	UpdateWorkedTime(ctx context.Context, wt WorkedTime) error
	GetWorkedTime(ctx context.Context, id string) (WorkedTime, error)
	ListWorkedTimes(ctx context.Context, userID string, offset, limit int) ([]WorkedTime, error)
}

// DeviceRepository stores check-in devices.
type DeviceRepository interface {
	CreateDevice(ctx context.Context, device CheckinDevice) error
	GetDeviceByCode(ctx context.Context, code string) (CheckinDevice, error)
	ListDevices(ctx context.Context) ([]CheckinDevice, error)
	DeleteDevice(ctx context.Context, id string) error
}

// LogRepository stores audit entries.
type LogRepository interface {
	AppendLog(ctx context.Context, entry LogEntry) error
	ListLogs(ctx context.Context, userID string, limit int) ([]LogEntry, error)
}

// RequestFilter narrows request listings.
type RequestFilter struct {
	OpenOnly  bool
	VisibleTo string
	Offset    int
	Limit     int
}

// RequestRepository stores requests and their single decision.
type RequestRepository interface {
	CreateRequest(ctx context.Context, req Request) error
	GetRequest(ctx context.Context, id string) (Request, error)
	ListRequests(ctx context.Context, filter RequestFilter) ([]Request, error)
	DeleteOpenRequest(ctx context.Context, id string) error
	CreateProcessedRequest(ctx context.Context, decision ProcessedRequest) error
}

// Store aggregates every repository plus transaction control.
type Store interface {
	UserRepository
	CatalogRepository
	SessionRepository
	ScheduleRepository
	WorkedTimeRepository
	DeviceRepository
	LogRepository
	RequestRepository
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	Ping(ctx context.Context) error
	Close() error
}
