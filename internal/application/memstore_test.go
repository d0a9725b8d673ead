package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// memStore is an in-memory implementation of every repository the services
// depend on. It enforces the same uniqueness rules as the SQL schema.
type memStore struct {
	mu sync.Mutex

	users     map[string]User
	passwords map[string]string
	roles     map[string]Role
	types     map[string]RequestType
	sessions  map[string]Session
	schedules map[string]ScheduledTime
	worked    map[string]WorkedTime
	devices   map[string]CheckinDevice
	requests  map[string]Request
	decisions map[string]Decision
	logs      []LogEntry

	failLogs    bool
	deleteCalls []string
}

func newMemStore() *memStore {
	return &memStore{
		users:     map[string]User{},
		passwords: map[string]string{},
		roles:     map[string]Role{},
		types:     map[string]RequestType{},
		sessions:  map[string]Session{},
		schedules: map[string]ScheduledTime{},
		worked:    map[string]WorkedTime{},
		devices:   map[string]CheckinDevice{},
		requests:  map[string]Request{},
		decisions: map[string]Decision{},
	}
}

func (m *memStore) seedRoles() (manager, employee Role) {
	manager = Role{ID: "role-leder", Name: RoleManager}
	employee = Role{ID: "role-medarbejder", Name: RoleEmployee}
	m.roles[manager.ID] = manager
	m.roles[employee.ID] = employee
	return manager, employee
}

func (m *memStore) addUser(id, username, roleID, passwordHash string) User {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := "Name of " + username
	u := User{ID: id, Name: &name, Username: username, RoleID: roleID, RoleName: m.roles[roleID].Name}
	m.users[id] = u
	m.passwords[id] = passwordHash
	return u
}

// users

func (m *memStore) CreateUser(_ context.Context, user User, hash string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == user.Username {
			return User{}, fmt.Errorf("username taken: %w", ErrConflict)
		}
	}
	m.users[user.ID] = user
	m.passwords[user.ID] = hash
	return user, nil
}

func (m *memStore) GetUser(_ context.Context, id string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (m *memStore) UpdateUser(_ context.Context, user User, hash string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return User{}, ErrNotFound
	}
	for _, u := range m.users {
		if u.ID != user.ID && u.Username == user.Username {
			return User{}, ErrConflict
		}
	}
	m.users[user.ID] = user
	if hash != "" {
		m.passwords[user.ID] = hash
	}
	return user, nil
}

func (m *memStore) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memStore) ListUsers(_ context.Context, offset, limit int) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, offset, limit), nil
}

func (m *memStore) CountUsers(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users), nil
}

func (m *memStore) GetUserCredentialsByUsername(_ context.Context, username string) (UserCredentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.users {
		if u.Username == username {
			return UserCredentials{User: u, PasswordHash: m.passwords[id]}, nil
		}
	}
	return UserCredentials{}, ErrNotFound
}

// catalogue

func (m *memStore) GetRole(_ context.Context, id string) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.roles[id]
	if !ok {
		return Role{}, ErrNotFound
	}
	return r, nil
}

func (m *memStore) GetRoleByName(_ context.Context, name string) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.roles {
		if r.Name == name {
			return r, nil
		}
	}
	return Role{}, ErrNotFound
}

func (m *memStore) CreateRole(_ context.Context, role Role) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.roles {
		if r.Name == role.Name {
			return Role{}, ErrConflict
		}
	}
	m.roles[role.ID] = role
	return role, nil
}

func (m *memStore) ListRoles(context.Context) ([]Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Role, 0, len(m.roles))
	for _, r := range m.roles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) CreateRequestType(_ context.Context, rt RequestType) (RequestType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.types {
		if t.Name == rt.Name {
			return RequestType{}, ErrConflict
		}
	}
	m.types[rt.ID] = rt
	return rt, nil
}

func (m *memStore) GetRequestType(_ context.Context, id string) (RequestType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.types[id]
	if !ok {
		return RequestType{}, ErrNotFound
	}
	return t, nil
}

func (m *memStore) GetRequestTypeByName(_ context.Context, name string) (RequestType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.types {
		if t.Name == name {
			return t, nil
		}
	}
	return RequestType{}, ErrNotFound
}

func (m *memStore) ListRequestTypes(context.Context) ([]RequestType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RequestType, 0, len(m.types))
	for _, t := range m.types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// sessions

func (m *memStore) CreateSession(_ context.Context, s Session) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.Token]; ok {
		return Session{}, ErrConflict
	}
	m.sessions[s.Token] = s
	return s, nil
}

func (m *memStore) GetSession(_ context.Context, token string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[token]
	if !ok {
		return Session{}, ErrNotFound
	}
	return s, nil
}

func (m *memStore) DeleteSession(_ context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls = append(m.deleteCalls, token)
	_, ok := m.sessions[token]
	delete(m.sessions, token)
	return ok, nil
}

func (m *memStore) DeleteExpiredSessions(_ context.Context, reference time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for token, s := range m.sessions {
		if !s.ExpiresAt.After(reference) {
			delete(m.sessions, token)
			n++
		}
	}
	return n, nil
}

// schedules

func (m *memStore) CreateScheduledTime(_ context.Context, st ScheduledTime) (ScheduledTime, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schedules[st.ID] = st
	return st, nil
}

func (m *memStore) ListScheduledTimes(_ context.Context, userID string, includeInactive bool) ([]ScheduledTime, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ScheduledTime
	for _, st := range m.schedules {
		if st.UserID == userID && (includeInactive || !st.Inactive) {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) SetScheduledTimeInactive(_ context.Context, id string, inactive bool) (ScheduledTime, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.schedules[id]
	if !ok {
		return ScheduledTime{}, ErrNotFound
	}
	st.Inactive = inactive
	m.schedules[id] = st
	return st, nil
}

func (m *memStore) DeleteScheduledTime(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schedules[id]; !ok {
		return ErrNotFound
	}
	delete(m.schedules, id)
	return nil
}

// worked times

func (m *memStore) FindActiveWorkedTime(_ context.Context, userID string) (WorkedTime, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, wt := range m.worked {
		if wt.UserID == userID && wt.Active {
			return wt, nil
		}
	}
	return WorkedTime{}, ErrNotFound
}

func (m *memStore) CreateWorkedTime(_ context.Context, wt WorkedTime) (WorkedTime, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if wt.Active {
		for _, existing := range m.worked {
			if existing.UserID == wt.UserID && existing.Active {
				return WorkedTime{}, ErrConflict
			}
		}
	}
	m.worked[wt.ID] = wt
	return wt, nil
}

func (m *memStore) UpdateWorkedTime(_ context.Context, wt WorkedTime) (WorkedTime, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.worked[wt.ID]; !ok {
		return WorkedTime{}, ErrNotFound
	}
	m.worked[wt.ID] = wt
	return wt, nil
}

func (m *memStore) GetWorkedTime(_ context.Context, id string) (WorkedTime, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wt, ok := m.worked[id]
	if !ok {
		return WorkedTime{}, ErrNotFound
	}
	return wt, nil
}

func (m *memStore) ListWorkedTimes(_ context.Context, userID string, offset, limit int) ([]WorkedTime, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []WorkedTime
	for _, wt := range m.worked {
		if wt.UserID == userID {
			out = append(out, wt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return page(out, offset, limit), nil
}

func (m *memStore) activeCount(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, wt := range m.worked {
		if wt.UserID == userID && wt.Active {
			n++
		}
	}
	return n
}

// devices

func (m *memStore) CreateDevice(_ context.Context, d CheckinDevice) (CheckinDevice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.devices {
		if existing.DeviceCode == d.DeviceCode {
			return CheckinDevice{}, ErrConflict
		}
	}
	m.devices[d.ID] = d
	return d, nil
}

func (m *memStore) GetDeviceByCode(_ context.Context, code string) (CheckinDevice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.devices {
		if d.DeviceCode == code {
			return d, nil
		}
	}
	return CheckinDevice{}, ErrNotFound
}

func (m *memStore) ListDevices(context.Context) ([]CheckinDevice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CheckinDevice, 0, len(m.devices))
	for _, d := range m.devices {
		out = append(out, d)
	}
	return out, nil
}

func (m *memStore) DeleteDevice(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.devices[id]; !ok {
		return ErrNotFound
	}
	delete(m.devices, id)
	return nil
}

// requests

func (m *memStore) CreateRequest(_ context.Context, req Request) (Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[req.ID] = req
	return req, nil
}

func (m *memStore) GetRequest(_ context.Context, id string) (Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return Request{}, ErrNotFound
	}
	if d, ok := m.decisions[id]; ok {
		req.Decision = &d
	}
	return req, nil
}

func (m *memStore) ListRequests(_ context.Context, filter RequestFilter) ([]Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Request
	for id, req := range m.requests {
		if d, ok := m.decisions[id]; ok {
			if filter.OpenOnly {
				continue
			}
			req.Decision = &d
		}
		if filter.VisibleTo != "" && req.UserID != filter.VisibleTo && req.RequestedBy != filter.VisibleTo {
			continue
		}
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, filter.Offset, filter.Limit), nil
}

func (m *memStore) DeleteOpenRequest(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.requests[id]; !ok {
		return ErrNotFound
	}
	if _, ok := m.decisions[id]; ok {
		return ErrConflict
	}
	delete(m.requests, id)
	return nil
}

func (m *memStore) CreateDecision(_ context.Context, d Decision) (Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.decisions[d.RequestID]; ok {
		return Decision{}, ErrConflict
	}
	m.decisions[d.RequestID] = d
	return d, nil
}

// logs

func (m *memStore) AppendLog(_ context.Context, entry LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failLogs {
		return errors.New("log table unavailable")
	}
	m.logs = append(m.logs, entry)
	return nil
}

func (m *memStore) ListLogs(_ context.Context, userID string, limit int) ([]LogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []LogEntry
	for i := len(m.logs) - 1; i >= 0 && len(out) < limit; i-- {
		if m.logs[i].UserID == userID {
			out = append(out, m.logs[i])
		}
	}
	return out, nil
}

func (m *memStore) logEvents() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.logs))
	for i, l := range m.logs {
		out[i] = l.Event
	}
	return out
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// plainHasher stores passwords as "plain:<password>" to keep tests fast.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "plain:" + password, nil }

func (plainHasher) Verify(hash, password string) error {
	if hash != "plain:"+password {
		return ErrInvalidCredentials
	}
	return nil
}
