package application

import "time"

// Role names recognised by the access policy.
const (
	RoleManager  = "leder"
	RoleEmployee = "medarbejder"
)

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID   string
	Username string
	Role     string
}

// IsManager reports whether the principal holds the manager role.
func (p Principal) IsManager() bool {
	return p.Role == RoleManager
}

// User is a person known to the system. Name is nil when hidden from the viewer.
type User struct {
	ID        string
	Name      *string
	Username  string
	RoleID    string
	RoleName  string
	CreatedAt time.Time
}

// UserCredentials pairs a user with its stored password hash.
type UserCredentials struct {
	User         User
	PasswordHash string
}

// Role is a named permission tier.
type Role struct {
	ID   string
	Name string
}

// RequestType is a named category of request such as leave or overtime.
type RequestType struct {
	ID   string
	Name string
}

// Session is an issued bearer token bound to one user.
type Session struct {
	Token     string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// ScheduledTime is a planned weekly shift.
type ScheduledTime struct {
	ID        string
	UserID    string
	Weekday   int
	StartTime time.Time
	Duration  time.Duration
	Inactive  bool
}

// WorkedTime is an actual shift. Active marks a shift that is still open.
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

// CheckinDevice is a registered display that shows the rotating check-in code.
type CheckinDevice struct {
	ID         string
	Name       string
	DeviceCode string
	CreatedAt  time.Time
}

// LogEntry is an append-only audit record.
type LogEntry struct {
	ID     string
	Event  string
	Time   time.Time
	UserID string
}

// RequestSpan is the time slot a request refers to.
type RequestSpan struct {
	Weekday   int
	StartTime time.Time
	Duration  time.Duration
}

// Request is a leave or overtime request filed for a subject user.
type Request struct {
	ID          string
	UserID      string
	RequestedBy string
	TypeID      string
	Reason      string
	Span        RequestSpan
	CreatedAt   time.Time
	Decision    *Decision
}

// Processed reports whether a decision has been recorded.
func (r Request) Processed() bool {
	return r.Decision != nil
}

// State returns the workflow state of the request.
func (r Request) State() RequestState {
	if r.Processed() {
		return RequestProcessed
	}
	return RequestOpen
}

// RequestState is the workflow state of a request.
type RequestState string

const (
	RequestOpen      RequestState = "open"
	RequestProcessed RequestState = "processed"
)

// Decision is the terminal outcome recorded for a request.
type Decision struct {
	ID          string
	RequestID   string
	Accepted    bool
	Reason      string
	ProcessedAt time.Time
	ProcessedBy string
}

// RequestFilter narrows request listings.
type RequestFilter struct {
	OpenOnly bool
	// VisibleTo restricts results to requests where the user is subject or requester.
	VisibleTo string
	Offset    int
	Limit     int
}

// AttendanceState is the outcome of a check-in toggle.
type AttendanceState string

const (
	CheckedIn  AttendanceState = "checked_in"
	CheckedOut AttendanceState = "checked_out"
)

// AuthenticateParams carries login input.
type AuthenticateParams struct {
	Username string
	Password string
}

// AuthenticateResult is returned on a successful login.
type AuthenticateResult struct {
	User    User
	Session Session
}

// UserInput captures caller provided user fields. Empty fields are left unchanged on update.
type UserInput struct {
	Name     string
	Username string
	Password string
	RoleID   string
}

// CreateUserParams wraps the data required to create a user.
type CreateUserParams struct {
	Principal Principal
	Input     UserInput
}

// UpdateUserParams wraps the data required to update a user.
type UpdateUserParams struct {
	Principal Principal
	UserID    string
	Input     UserInput
}

// ListUsersParams carries pagination for user listings.
type ListUsersParams struct {
	Page   int
	Amount int
}

// CreateRequestParams wraps the data required to file a request.
type CreateRequestParams struct {
	Principal Principal
	UserID    string
	TypeID    string
	Reason    string
	Span      RequestSpan
}

// ProcessRequestParams wraps a manager's decision.
type ProcessRequestParams struct {
	Principal Principal
	RequestID string
	Accepted  bool
	Reason    string
}

// ListRequestsParams wraps request listing input.
type ListRequestsParams struct {
	Principal Principal
	OpenOnly  bool
	Page      int
	Amount    int
}

// PlannedShift is one dated occurrence of a weekly shift. Overlaps holds the
// scheduled time ids of the user's other occurrences that intersect it.
type PlannedShift struct {
	ScheduledTimeID string
	UserID          string
	Start           time.Time
	End             time.Time
	Overlaps        []string
}

// CreateScheduledTimeParams wraps the data required to plan a shift.
type CreateScheduledTimeParams struct {
	Principal Principal
	UserID    string
	Weekday   int
	StartTime time.Time
	Duration  time.Duration
}
