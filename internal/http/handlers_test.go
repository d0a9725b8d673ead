package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/workforce/internal/application"
)

var (
	managerPrincipal  = application.Principal{UserID: "user-manager", Username: "boss", Role: application.RoleManager}
	employeePrincipal = application.Principal{UserID: "user-employee", Username: "ansat", Role: application.RoleEmployee}
)

type pingStub struct{ err error }

func (p pingStub) Ping(context.Context) error { return p.err }

type authServiceStub struct {
	result  application.AuthenticateResult
	err     error
	revoked map[string]bool
}

func (s *authServiceStub) Authenticate(_ context.Context, params application.AuthenticateParams) (application.AuthenticateResult, error) {
	if s.err != nil {
		return application.AuthenticateResult{}, s.err
	}
	if params.Username != s.result.User.Username {
		return application.AuthenticateResult{}, application.ErrInvalidCredentials
	}
	return s.result, nil
}

func (s *authServiceStub) RevokeSession(_ context.Context, token string) (bool, error) {
	ok := s.revoked[token]
	delete(s.revoked, token)
	return ok, nil
}

type userServiceStub struct {
	users   map[string]application.User
	created []application.CreateUserParams
}

func (s *userServiceStub) CreateUser(_ context.Context, params application.CreateUserParams) (application.User, error) {
	if !params.Principal.IsManager() {
		return application.User{}, application.ErrForbidden
	}
	s.created = append(s.created, params)
	name := params.Input.Name
	return application.User{ID: "user-new", Name: &name, Username: params.Input.Username, RoleID: params.Input.RoleID}, nil
}

func (s *userServiceStub) UpdateUser(context.Context, application.UpdateUserParams) (application.User, error) {
	return application.User{}, errors.New("not implemented")
}

func (s *userServiceStub) DeleteUser(context.Context, application.Principal, string) error {
	return nil
}

func (s *userServiceStub) GetUser(_ context.Context, viewer *application.Principal, userID string) (application.User, error) {
	user, ok := s.users[userID]
	if !ok {
		return application.User{}, application.ErrNotFound
	}
	if !application.CanSeeName(viewer, userID) {
		user.Name = nil
	}
	return user, nil
}

func (s *userServiceStub) ListUsers(_ context.Context, viewer *application.Principal, _ application.ListUsersParams) ([]application.User, error) {
	out := make([]application.User, 0, len(s.users))
	for id, user := range s.users {
		if !application.CanSeeName(viewer, id) {
			user.Name = nil
		}
		out = append(out, user)
	}
	return out, nil
}

type auditReaderStub struct {
	entries []application.LogEntry
}

func (s auditReaderStub) Recent(_ context.Context, principal *application.Principal, _ string, _ int) ([]application.LogEntry, error) {
	if principal == nil || !principal.IsManager() {
		return nil, application.ErrForbidden
	}
	return s.entries, nil
}

type attendanceServiceStub struct {
	state application.AttendanceState
	shift application.WorkedTime
	err   error
}

func (s attendanceServiceStub) CheckIn(context.Context, application.Principal, string) (application.AttendanceState, application.WorkedTime, error) {
	return s.state, s.shift, s.err
}

func (s attendanceServiceStub) ListWorkedTimes(context.Context, application.Principal, string, int, int) ([]application.WorkedTime, error) {
	return []application.WorkedTime{s.shift}, nil
}

func (s attendanceServiceStub) UpdateNote(_ context.Context, _ application.Principal, _ string, note string) (application.WorkedTime, error) {
	shift := s.shift
	shift.Note = note
	return shift, nil
}

type deviceServiceStub struct {
	known map[string]bool
	code  string
}

func (s deviceServiceStub) CurrentCode(_ context.Context, deviceCode string) (string, error) {
	if !s.known[deviceCode] {
		return "", application.ErrNotFound
	}
	return s.code, nil
}

func (s deviceServiceStub) Register(context.Context, application.Principal, string, string) (application.CheckinDevice, error) {
	return application.CheckinDevice{}, application.ErrForbidden
}

func (s deviceServiceStub) List(context.Context, application.Principal) ([]application.CheckinDevice, error) {
	return nil, nil
}

func (s deviceServiceStub) Delete(context.Context, application.Principal, string) error {
	return nil
}

type requestServiceStub struct {
	processed []application.ProcessRequestParams
	deleteErr error
}

func (s *requestServiceStub) Create(_ context.Context, params application.CreateRequestParams) (application.Request, error) {
	return application.Request{ID: "req-1", UserID: params.UserID, RequestedBy: params.Principal.UserID, TypeID: params.TypeID, Span: params.Span}, nil
}

func (s *requestServiceStub) Process(_ context.Context, params application.ProcessRequestParams) (application.Request, error) {
	s.processed = append(s.processed, params)
	return application.Request{
		ID: params.RequestID,
		Decision: &application.Decision{
			ID:          "dec-1",
			RequestID:   params.RequestID,
			Accepted:    params.Accepted,
			Reason:      params.Reason,
			ProcessedBy: params.Principal.UserID,
		},
	}, nil
}

func (s *requestServiceStub) Delete(context.Context, application.Principal, string) error {
	return s.deleteErr
}

func (s *requestServiceStub) Get(context.Context, application.Principal, string) (application.Request, error) {
	return application.Request{}, application.ErrNotFound
}

func (s *requestServiceStub) List(context.Context, application.ListRequestsParams) ([]application.Request, error) {
	return nil, nil
}

type routerFixture struct {
	handler   http.Handler
	auth      *authServiceStub
	users     *userServiceStub
	requests  *requestServiceStub
	schedules *scheduleServiceStub
}

type scheduleServiceStub struct {
	planned []application.PlannedShift
	from    time.Time
	to      time.Time
	userID  string
}

func (s *scheduleServiceStub) Create(ctx context.Context, params application.CreateScheduledTimeParams) (application.ScheduledTime, error) {
	return application.ScheduledTime{}, application.ErrForbidden
}

func (s *scheduleServiceStub) ListForUser(ctx context.Context, principal application.Principal, userID string, includeInactive bool) ([]application.ScheduledTime, error) {
	return nil, nil
}

func (s *scheduleServiceStub) SetInactive(ctx context.Context, principal application.Principal, id string, inactive bool) (application.ScheduledTime, error) {
	return application.ScheduledTime{}, application.ErrNotFound
}

func (s *scheduleServiceStub) Delete(ctx context.Context, principal application.Principal, id string) error {
	return application.ErrNotFound
}

func (s *scheduleServiceStub) Plan(ctx context.Context, principal application.Principal, userID string, from, to time.Time) ([]application.PlannedShift, error) {
	s.userID, s.from, s.to = userID, from, to
	return s.planned, nil
}

func newRouterFixture(t *testing.T) routerFixture {
	t.Helper()

	name := func(s string) *string { return &s }
	auth := &authServiceStub{
		result: application.AuthenticateResult{
			User:    application.User{ID: employeePrincipal.UserID, Username: employeePrincipal.Username, RoleName: application.RoleEmployee},
			Session: application.Session{Token: "tok-employee", UserID: employeePrincipal.UserID, ExpiresAt: time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)},
		},
		revoked: map[string]bool{"tok-employee": true},
	}
	users := &userServiceStub{users: map[string]application.User{
		managerPrincipal.UserID:  {ID: managerPrincipal.UserID, Name: name("Mette Leder"), Username: "boss"},
		employeePrincipal.UserID: {ID: employeePrincipal.UserID, Name: name("Anders Ansat"), Username: "ansat"},
	}}
	requests := &requestServiceStub{}
	schedules := &scheduleServiceStub{planned: []application.PlannedShift{{
		ScheduledTimeID: "st-1",
		UserID:          employeePrincipal.UserID,
		Start:           time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC),
		End:             time.Date(2025, 1, 6, 16, 0, 0, 0, time.UTC),
	}}}

	sessions := &validatorStub{principals: map[string]application.Principal{
		"tok-manager":  managerPrincipal,
		"tok-employee": employeePrincipal,
	}}

	handler := NewRouter(RouterConfig{
		Sessions: sessions,
		Health:   pingStub{},
		Auth:     NewAuthHandler(auth, nil),
		Users:    NewUserHandler(users, auditReaderStub{entries: []application.LogEntry{{ID: "log-1", Event: "login", UserID: employeePrincipal.UserID}}}, nil),
		Attendance: NewAttendanceHandler(attendanceServiceStub{
			state: application.CheckedIn,
			shift: application.WorkedTime{ID: "wt-1", UserID: employeePrincipal.UserID, Active: true, Duration: 90 * time.Minute},
		}, nil),
		Devices:  NewDeviceHandler(deviceServiceStub{known: map[string]bool{"display-1": true}, code: "ABCDEFGH12345678"}, nil),
		Schedules: NewScheduleHandler(schedules, nil),
		Requests:  NewRequestHandler(requests, nil),
	})

	return routerFixture{handler: handler, auth: auth, users: users, requests: requests, schedules: schedules}
}

func (f routerFixture) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func dataObject(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	env := decodeEnvelope(t, rec)
	require.True(t, env.Success, rec.Body.String())
	obj, ok := env.Data.(map[string]any)
	require.True(t, ok, "data is not an object: %s", rec.Body.String())
	return obj
}

func TestHealth(t *testing.T) {
	t.Parallel()

	rec := newRouterFixture(t).do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", dataObject(t, rec)["status"])

	down := NewRouter(RouterConfig{Health: pingStub{err: errors.New("dial tcp: connection refused")}})
	rec = httptest.NewRecorder()
	down.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestAuthHandler(t *testing.T) {
	t.Parallel()

	t.Run("login issues token and cookie", func(t *testing.T) {
		f := newRouterFixture(t)
		rec := f.do(t, http.MethodPost, "/api/v1/auth/login", "", `{"username":" ansat ","password":"secret"}`)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		data := dataObject(t, rec)
		assert.Equal(t, "tok-employee", data["token"])
		assert.Equal(t, "2025-01-02T09:00:00Z", data["expires_at"])
		assert.Equal(t, application.RoleEmployee, data["role"])

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, sessionCookie, cookies[0].Name)
		assert.True(t, cookies[0].HttpOnly)
	})

	t.Run("login rejects bad credentials", func(t *testing.T) {
		rec := newRouterFixture(t).do(t, http.MethodPost, "/api/v1/auth/login", "", `{"username":"nobody","password":"x"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "INVALID_CREDENTIALS", decodeEnvelope(t, rec).Error.Code)
	})

	t.Run("login rejects unknown fields", func(t *testing.T) {
		rec := newRouterFixture(t).do(t, http.MethodPost, "/api/v1/auth/login", "", `{"user":"ansat"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("logout revokes once", func(t *testing.T) {
		f := newRouterFixture(t)
		rec := f.do(t, http.MethodPost, "/api/v1/auth/logout", "tok-employee", "")
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = f.do(t, http.MethodPost, "/api/v1/auth/logout", "tok-employee", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("logout without token", func(t *testing.T) {
		rec := newRouterFixture(t).do(t, http.MethodPost, "/api/v1/auth/logout", "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("me echoes principal", func(t *testing.T) {
		rec := newRouterFixture(t).do(t, http.MethodGet, "/api/v1/auth/me", "tok-manager", "")
		require.Equal(t, http.StatusOK, rec.Code)
		data := dataObject(t, rec)
		assert.Equal(t, managerPrincipal.UserID, data["user_id"])
		assert.Equal(t, application.RoleManager, data["role"])
	})
}

func TestUserHandler_NameVisibility(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t)

	tests := []struct {
		name     string
		token    string
		target   string
		wantName any
	}{
		{name: "anonymous sees null", target: managerPrincipal.UserID, wantName: nil},
		{name: "employee sees own name", token: "tok-employee", target: employeePrincipal.UserID, wantName: "Anders Ansat"},
		{name: "employee cannot see others", token: "tok-employee", target: managerPrincipal.UserID, wantName: nil},
		{name: "manager sees everyone", token: "tok-manager", target: employeePrincipal.UserID, wantName: "Anders Ansat"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, "/api/v1/users/"+tc.target, tc.token, "")
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			data := dataObject(t, rec)
			name, present := data["name"]
			assert.True(t, present, "name key must always be present")
			assert.Equal(t, tc.wantName, name)
		})
	}
}

func TestUserHandler(t *testing.T) {
	t.Parallel()

	t.Run("unknown user is 404", func(t *testing.T) {
		rec := newRouterFixture(t).do(t, http.MethodGet, "/api/v1/users/missing", "tok-manager", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("list carries paging meta", func(t *testing.T) {
		rec := newRouterFixture(t).do(t, http.MethodGet, "/api/v1/users?page=2&amount=500", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		env := decodeEnvelope(t, rec)
		require.NotNil(t, env.Meta)
		assert.Equal(t, 2, env.Meta.Page)
		assert.Equal(t, 100, env.Meta.Amount)
	})

	t.Run("create requires a session", func(t *testing.T) {
		rec := newRouterFixture(t).do(t, http.MethodPost, "/api/v1/users", "", `{"name":"x","username":"x","password":"x"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("employee cannot create", func(t *testing.T) {
		rec := newRouterFixture(t).do(t, http.MethodPost, "/api/v1/users", "tok-employee", `{"name":"x","username":"x","password":"x"}`)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("manager creates", func(t *testing.T) {
		f := newRouterFixture(t)
		rec := f.do(t, http.MethodPost, "/api/v1/users", "tok-manager", `{"name":"Ny","username":"ny","password":"hemmelig","role_id":"role-medarbejder"}`)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		require.Len(t, f.users.created, 1)
		assert.Equal(t, "role-medarbejder", f.users.created[0].Input.RoleID)
		assert.Equal(t, "Ny", dataObject(t, rec)["name"])
	})

	t.Run("logs are manager only", func(t *testing.T) {
		f := newRouterFixture(t)
		rec := f.do(t, http.MethodGet, "/api/v1/users/"+employeePrincipal.UserID+"/logs", "tok-employee", "")
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = f.do(t, http.MethodGet, "/api/v1/users/"+employeePrincipal.UserID+"/logs?limit=5", "tok-manager", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"event":"login"`)
	})
}

func TestAttendanceHandler_CheckIn(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t)
	rec := f.do(t, http.MethodPost, "/api/v1/attendance/checkin", "tok-employee", `{"code":"ABCDEFGH12345678"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	data := dataObject(t, rec)
	assert.Equal(t, string(application.CheckedIn), data["state"])
	shift, ok := data["worked_time"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 5400, shift["duration_seconds"])

	rec = f.do(t, http.MethodPost, "/api/v1/attendance/checkin", "", `{"code":"ABCDEFGH12345678"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDeviceHandler_CurrentCode(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t)

	t.Run("missing device header", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/devices/code", "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown device", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/devices/code", nil)
		req.Header.Set(deviceCodeHeader, "display-9")
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("registered device", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/devices/code", nil)
		req.Header.Set(deviceCodeHeader, "display-1")
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
		assert.Equal(t, "ABCDEFGH12345678", dataObject(t, rec)["code"])
	})
}

func TestRequestHandler(t *testing.T) {
	t.Parallel()

	t.Run("process requires accepted", func(t *testing.T) {
		f := newRouterFixture(t)
		rec := f.do(t, http.MethodPost, "/api/v1/requests/req-1/process", "tok-manager", `{"reason":"ok"}`)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		var env struct {
			Error struct {
				Code    string            `json:"code"`
				Details map[string]string `json:"details"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)
		assert.Contains(t, env.Error.Details, "accepted")
		assert.Empty(t, f.requests.processed)
	})

	t.Run("process passes a false decision through", func(t *testing.T) {
		f := newRouterFixture(t)
		rec := f.do(t, http.MethodPost, "/api/v1/requests/req-1/process", "tok-manager", `{"accepted":false,"reason":"travlt"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.Len(t, f.requests.processed, 1)
		assert.False(t, f.requests.processed[0].Accepted)

		data := dataObject(t, rec)
		assert.Equal(t, string(application.RequestProcessed), data["state"])
	})

	t.Run("deleting a processed request conflicts", func(t *testing.T) {
		f := newRouterFixture(t)
		f.requests.deleteErr = application.ErrRequestProcessed
		rec := f.do(t, http.MethodDelete, "/api/v1/requests/req-1", "tok-employee", "")
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("create converts seconds", func(t *testing.T) {
		f := newRouterFixture(t)
		rec := f.do(t, http.MethodPost, "/api/v1/requests", "tok-employee",
			`{"type_id":"rt-ferie","week_day":1,"start_time":"2025-01-06T08:00:00Z","duration_seconds":28800}`)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		data := dataObject(t, rec)
		assert.EqualValues(t, 28800, data["duration_seconds"])
		assert.Equal(t, "2025-01-06T08:00:00Z", data["start_time"])
		assert.Equal(t, string(application.RequestOpen), data["state"])
	})

	t.Run("unauthenticated", func(t *testing.T) {
		rec := newRouterFixture(t).do(t, http.MethodGet, "/api/v1/requests", "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestScheduleHandler_Plan(t *testing.T) {
	t.Parallel()

	t.Run("defaults to a seven day window", func(t *testing.T) {
		f := newRouterFixture(t)
		rec := f.do(t, http.MethodGet, "/api/v1/schedules/plan?from=2025-01-06", "tok-employee", "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		assert.Equal(t, time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), f.schedules.from)
		assert.Equal(t, time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC), f.schedules.to)
		assert.Empty(t, f.schedules.userID)

		env := decodeEnvelope(t, rec)
		items, ok := env.Data.([]any)
		require.True(t, ok)
		require.Len(t, items, 1)
		item := items[0].(map[string]any)
		assert.Equal(t, "2025-01-06T08:00:00Z", item["start"])
		assert.Equal(t, []any{}, item["overlaps"])
	})

	t.Run("honours days and user_id", func(t *testing.T) {
		f := newRouterFixture(t)
		rec := f.do(t, http.MethodGet, "/api/v1/schedules/plan?from=2025-01-06&days=14&user_id=user-employee", "tok-manager", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "user-employee", f.schedules.userID)
		assert.Equal(t, time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC), f.schedules.to)
	})

	t.Run("rejects malformed query", func(t *testing.T) {
		f := newRouterFixture(t)
		for _, query := range []string{"", "?from=06-01-2025", "?from=2025-01-06&days=0"} {
			rec := f.do(t, http.MethodGet, "/api/v1/schedules/plan"+query, "tok-employee", "")
			assert.Equal(t, http.StatusBadRequest, rec.Code, query)
		}
	})
}
