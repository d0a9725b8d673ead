package persistence

import "time"

// User is an employee account. PasswordHash is only populated by credential lookups.
type User struct {
	ID           string
	Name         string
	Username     string
	PasswordHash string
	RoleID       string
	RoleName     string
	CreatedAt    time.Time
}

// Role is a named permission tier.
type Role struct {
	ID   string
	Name string
}

// RequestType categorises requests.
type RequestType struct {
	ID   string
	Name string
}

// Session is an issued bearer token.
type Session struct {
	Token     string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// ScheduledTime is a planned weekly shift. Durations are stored in seconds.
type ScheduledTime struct {
	ID        string
	UserID    string
	Weekday   int
	StartTime time.Time
	Duration  time.Duration
	Inactive  bool
}

// WorkedTime is an actual shift.
type WorkedTime struct {
	ID       string
	UserID   string
	Date     time.Time
	Weekday  int
	Start    time.Time
	Duration time.Duration
	Active   bool
	Note     string
}

// CheckinDevice is a registered check-in display.
type CheckinDevice struct {
	ID         string
	Name       string
	DeviceCode string
	CreatedAt  time.Time
}

// LogEntry is an audit record.
type LogEntry struct {
	ID     string
	Event  string
	Time   time.Time
	UserID string
}

// Request is a leave or overtime request. Decision is nil while open.
type Request struct {
	ID          string
	UserID      string
	RequestedBy string
	TypeID      string
	Reason      string
	Weekday     int
	StartTime   time.Time
	Duration    time.Duration
	CreatedAt   time.Time
	Decision    *ProcessedRequest
}

// ProcessedRequest records the decision on a request.
type ProcessedRequest struct {
	ID          string
	RequestID   string
	Accepted    bool
	Reason      string
	ProcessedAt time.Time
	AdminID     string
}
