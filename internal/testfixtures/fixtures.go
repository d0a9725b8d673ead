package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/workforce/internal/persistence"
)

var (
	userCounter    uint64
	sessionCounter uint64
	requestCounter uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// Role names seeded by the harness.
const (
	ManagerRole  = "leder"
	EmployeeRole = "medarbejder"
)

// ----------------------------- User fixtures -----------------------------

// UserFixture is a deterministic user row.
type UserFixture struct {
	ID           string
	Name         string
	Username     string
	PasswordHash string
	RoleID       string
	CreatedAt    time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a deterministic employee fixture with optional overrides.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	fixture := UserFixture{
		ID:           fmt.Sprintf("user-%03d", idx),
		Name:         fmt.Sprintf("User %03d", idx),
		Username:     fmt.Sprintf("user%03d", idx),
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		RoleID:       "role-" + EmployeeRole,
		CreatedAt:    referenceTime.Add(time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithUserID(id string) UserOption {
	return func(f *UserFixture) { f.ID = id }
}

func WithUsername(username string) UserOption {
	return func(f *UserFixture) { f.Username = username }
}

// WithPasswordHash sets a precomputed hash; see the harness for hashing plain passwords.
func WithPasswordHash(hash string) UserOption {
	return func(f *UserFixture) { f.PasswordHash = hash }
}

// AsManager assigns the manager role seeded by the harness.
func AsManager() UserOption {
	return func(f *UserFixture) { f.RoleID = "role-" + ManagerRole }
}

// Persistence returns the fixture as a persistence.User value.
func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		ID:           f.ID,
		Name:         f.Name,
		Username:     f.Username,
		PasswordHash: f.PasswordHash,
		RoleID:       f.RoleID,
		CreatedAt:    f.CreatedAt,
	}
}

// ----------------------------- Session fixtures -------------------------

// SessionFixture is a deterministic session row that expires a day after creation.
type SessionFixture struct {
	Token     string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// SessionOption configures the generated session fixture.
type SessionOption func(*SessionFixture)

func NewSessionFixture(userID string, opts ...SessionOption) SessionFixture {
	idx := atomic.AddUint64(&sessionCounter, 1)
	fixture := SessionFixture{
		Token:     fmt.Sprintf("token%027d", idx),
		UserID:    userID,
		CreatedAt: referenceTime,
		ExpiresAt: referenceTime.Add(24 * time.Hour),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithSessionToken(token string) SessionOption {
	return func(f *SessionFixture) { f.Token = token }
}

// WithSessionExpiresAt sets the expiration timestamp.
func WithSessionExpiresAt(t time.Time) SessionOption {
	return func(f *SessionFixture) { f.ExpiresAt = t }
}

func (f SessionFixture) Persistence() persistence.Session {
	return persistence.Session{Token: f.Token, UserID: f.UserID, CreatedAt: f.CreatedAt, ExpiresAt: f.ExpiresAt}
}

// ----------------------------- Request fixtures -------------------------

// RequestFixture is an open request filed by its subject.
type RequestFixture struct {
	ID          string
	UserID      string
	RequestedBy string
	TypeID      string
	Reason      string
	Weekday     int
	StartTime   time.Time
	Duration    time.Duration
	CreatedAt   time.Time
}

// RequestOption configures the generated request fixture.
type RequestOption func(*RequestFixture)

func NewRequestFixture(userID, typeID string, opts ...RequestOption) RequestFixture {
	idx := atomic.AddUint64(&requestCounter, 1)
	fixture := RequestFixture{
		ID:          fmt.Sprintf("request-%03d", idx),
		UserID:      userID,
		RequestedBy: userID,
		TypeID:      typeID,
		Reason:      fmt.Sprintf("reason %03d", idx),
		Weekday:     int(time.Friday),
		StartTime:   referenceTime,
		Duration:    8 * time.Hour,
		CreatedAt:   referenceTime.Add(time.Duration(idx) * time.Second),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// FiledBy marks the request as filed on behalf of its subject.
func FiledBy(userID string) RequestOption {
	return func(f *RequestFixture) { f.RequestedBy = userID }
}

func (f RequestFixture) Persistence() persistence.Request {
	return persistence.Request{
		ID:          f.ID,
		UserID:      f.UserID,
		RequestedBy: f.RequestedBy,
		TypeID:      f.TypeID,
		Reason:      f.Reason,
		Weekday:     f.Weekday,
		StartTime:   f.StartTime,
		Duration:    f.Duration,
		CreatedAt:   f.CreatedAt,
	}
}
