package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/workforce/internal/application"
	"github.com/example/workforce/internal/config"
	"github.com/example/workforce/internal/persistence"
	"github.com/example/workforce/internal/testfixtures"
)

const (
	managerUsername = "admin"
	managerPassword = "admin-password"
)

type testServer struct {
	t       *testing.T
	app     *app
	store   persistence.Store
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	harness := testfixtures.NewSQLiteHarness(t)
	cfg := config.Config{
		RequestTimeout:        5 * time.Second,
		SessionTTL:            24 * time.Hour,
		SessionSweepInterval:  time.Minute,
		CheckinRotateInterval: time.Minute,
		CheckinGrace:          time.Minute,
		OnBehalfPolicy:        "any",
		CORSOrigins:           []string{"*"},
		RateLimitRPM:          1000,
		AuthRateLimitRPM:      1000,
		Bootstrap: config.Bootstrap{
			Username: managerUsername,
			Password: managerPassword,
			Name:     "Mette Leder",
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	wired, err := newApp(context.Background(), cfg, harness.Store, logger)
	require.NoError(t, err)

	return &testServer{t: t, app: wired, store: harness.Store, handler: wired.handler}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func (s *testServer) call(method, path, token string, body any, headers ...string) (int, envelope) {
	s.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec.Code, env
}

func (s *testServer) login(username, password string) (token, userID string) {
	s.t.Helper()

	status, env := s.call(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": username, "password": password})
	require.Equal(s.t, http.StatusCreated, status)

	var out struct {
		Token  string `json:"token"`
		UserID string `json:"user_id"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &out))
	require.Len(s.t, out.Token, 32)
	return out.Token, out.UserID
}

func (s *testServer) createEmployee(managerToken, name, username, password string) string {
	s.t.Helper()

	status, env := s.call(http.MethodPost, "/api/v1/users", managerToken, map[string]string{
		"name":     name,
		"username": username,
		"password": password,
		"role_id":  "role-" + testfixtures.EmployeeRole,
	})
	require.Equal(s.t, http.StatusCreated, status)

	var out struct {
		ID string `json:"id"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &out))
	return out.ID
}

func decodeName(t *testing.T, env envelope) (*string, bool) {
	t.Helper()
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(env.Data, &raw))
	field, ok := raw["name"]
	if !ok {
		return nil, false
	}
	var name *string
	require.NoError(t, json.Unmarshal(field, &name))
	return name, true
}

func TestEndToEnd_NameVisibility(t *testing.T) {
	srv := newTestServer(t)

	managerToken, managerID := srv.login(managerUsername, managerPassword)
	employeeID := srv.createEmployee(managerToken, "Anna Ansat", "anna", "anna-password")
	otherID := srv.createEmployee(managerToken, "Bo Ansat", "bo", "bo-password")

	employeeToken, loggedInID := srv.login("anna", "anna-password")
	require.Equal(t, employeeID, loggedInID)

	t.Run("own record carries the name", func(t *testing.T) {
		status, env := srv.call(http.MethodGet, "/api/v1/users/"+employeeID, employeeToken, nil)
		require.Equal(t, http.StatusOK, status)
		name, present := decodeName(t, env)
		require.True(t, present)
		require.NotNil(t, name)
		assert.Equal(t, "Anna Ansat", *name)
	})

	t.Run("other users are shown with a null name", func(t *testing.T) {
		for _, id := range []string{otherID, managerID} {
			status, env := srv.call(http.MethodGet, "/api/v1/users/"+id, employeeToken, nil)
			require.Equal(t, http.StatusOK, status)
			name, present := decodeName(t, env)
			assert.True(t, present)
			assert.Nil(t, name)
		}
	})

	t.Run("managers see every name", func(t *testing.T) {
		status, env := srv.call(http.MethodGet, "/api/v1/users/"+otherID, managerToken, nil)
		require.Equal(t, http.StatusOK, status)
		name, _ := decodeName(t, env)
		require.NotNil(t, name)
		assert.Equal(t, "Bo Ansat", *name)
	})

	t.Run("anonymous listing hides names", func(t *testing.T) {
		status, env := srv.call(http.MethodGet, "/api/v1/users", "", nil)
		require.Equal(t, http.StatusOK, status)
		var users []map[string]any
		require.NoError(t, json.Unmarshal(env.Data, &users))
		require.Len(t, users, 3)
		for _, u := range users {
			assert.Nil(t, u["name"])
		}
	})
}

func TestEndToEnd_DuplicateUsernameIsRejected(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	managerToken, _ := srv.login(managerUsername, managerPassword)
	srv.createEmployee(managerToken, "Anna Ansat", "anna", "anna-password")

	before, err := srv.store.CountUsers(ctx)
	require.NoError(t, err)

	status, env := srv.call(http.MethodPost, "/api/v1/users", managerToken, map[string]string{
		"name":     "Another Anna",
		"username": "anna",
		"password": "different",
	})
	assert.Equal(t, http.StatusConflict, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "ALREADY_EXISTS", env.Error.Code)

	after, err := srv.store.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	stored, err := srv.store.GetUserByUsername(ctx, "anna")
	require.NoError(t, err)
	assert.Equal(t, "Anna Ansat", stored.Name)
}

func TestEndToEnd_CheckInToggle(t *testing.T) {
	srv := newTestServer(t)

	managerToken, _ := srv.login(managerUsername, managerPassword)
	employeeID := srv.createEmployee(managerToken, "Anna Ansat", "anna", "anna-password")
	employeeToken, _ := srv.login("anna", "anna-password")

	status, _ := srv.call(http.MethodPost, "/api/v1/devices", managerToken, map[string]string{"name": "Lobby", "device_code": "lobby-display"})
	require.Equal(t, http.StatusCreated, status)

	currentCode := func() string {
		status, env := srv.call(http.MethodGet, "/api/v1/devices/code", "", nil, "X-Device-Code", "lobby-display")
		require.Equal(t, http.StatusOK, status)
		var out struct {
			Code string `json:"code"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &out))
		require.Len(t, out.Code, 16)
		return out.Code
	}
	checkIn := func(code string) (int, string) {
		status, env := srv.call(http.MethodPost, "/api/v1/attendance/checkin", employeeToken, map[string]string{"code": code})
		if status != http.StatusOK {
			return status, env.Error.Code
		}
		var out struct {
			State string `json:"state"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &out))
		return status, out.State
	}

	code := currentCode()
	status, state := checkIn(code)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, string(application.CheckedIn), state)

	status, kind := checkIn(code)
	assert.Equal(t, http.StatusConflict, status, "a consumed code must not be accepted twice")
	assert.Equal(t, "INVALID_CHECKIN_CODE", kind)

	status, state = checkIn(currentCode())
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, string(application.CheckedOut), state)

	status, env := srv.call(http.MethodGet, "/api/v1/attendance/worked-times?user_id="+employeeID, managerToken, nil)
	require.Equal(t, http.StatusOK, status)
	var shifts []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &shifts))
	require.Len(t, shifts, 1)
	assert.Equal(t, false, shifts[0]["active"])

	status, env = srv.call(http.MethodGet, "/api/v1/devices/code", "", nil, "X-Device-Code", "unknown-display")
	assert.Equal(t, http.StatusNotFound, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestEndToEnd_RequestWorkflow(t *testing.T) {
	srv := newTestServer(t)

	managerToken, _ := srv.login(managerUsername, managerPassword)
	srv.createEmployee(managerToken, "Anna Ansat", "anna", "anna-password")
	employeeToken, _ := srv.login("anna", "anna-password")

	status, env := srv.call(http.MethodGet, "/api/v1/request-types", employeeToken, nil)
	require.Equal(t, http.StatusOK, status)
	var types []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &types))
	var ferie string
	for _, rt := range types {
		if rt.Name == "ferie" {
			ferie = rt.ID
		}
	}
	require.NotEmpty(t, ferie, "default request types are seeded")

	file := func() string {
		status, env := srv.call(http.MethodPost, "/api/v1/requests", employeeToken, map[string]any{
			"type_id":          ferie,
			"reason":           "Sommerferie",
			"week_day":         1,
			"start_time":       "2025-07-07T08:00:00Z",
			"duration_seconds": 8 * 3600,
		})
		require.Equal(t, http.StatusCreated, status)
		var out struct {
			ID    string `json:"id"`
			State string `json:"state"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &out))
		assert.Equal(t, "open", out.State)
		return out.ID
	}

	openID := file()
	status, _ = srv.call(http.MethodDelete, "/api/v1/requests/"+openID, employeeToken, nil)
	assert.Equal(t, http.StatusNoContent, status)

	processedID := file()
	status, _ = srv.call(http.MethodPost, "/api/v1/requests/"+processedID+"/process", employeeToken, map[string]any{"accepted": true})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = srv.call(http.MethodPost, "/api/v1/requests/"+processedID+"/process", managerToken, map[string]any{"accepted": true, "reason": "God ferie"})
	require.Equal(t, http.StatusOK, status)

	status, env = srv.call(http.MethodPost, "/api/v1/requests/"+processedID+"/process", managerToken, map[string]any{"accepted": false})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "ALREADY_PROCESSED", env.Error.Code)

	status, env = srv.call(http.MethodDelete, "/api/v1/requests/"+processedID, employeeToken, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "REQUEST_PROCESSED", env.Error.Code)
}

func TestEndToEnd_LogoutInvalidatesSession(t *testing.T) {
	srv := newTestServer(t)

	token, _ := srv.login(managerUsername, managerPassword)
	status, _ := srv.call(http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = srv.call(http.MethodPost, "/api/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusNoContent, status)

	status, _ = srv.call(http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = srv.call(http.MethodPost, "/api/v1/auth/logout", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestEndToEnd_WeeklyPlan(t *testing.T) {
	srv := newTestServer(t)

	managerToken, _ := srv.login(managerUsername, managerPassword)
	employeeID := srv.createEmployee(managerToken, "Anders Ansat", "anders", "anders-password")
	employeeToken, _ := srv.login("anders", "anders-password")

	plan := func(weekDay int, start string, hours int) string {
		t.Helper()
		status, env := srv.call(http.MethodPost, "/api/v1/schedules", managerToken, map[string]any{
			"user_id":          employeeID,
			"week_day":         weekDay,
			"start_time":       start,
			"duration_seconds": hours * 3600,
		})
		require.Equal(t, http.StatusCreated, status)
		var out struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &out))
		return out.ID
	}
	early := plan(1, "2025-01-06T08:00:00Z", 4)
	late := plan(1, "2025-01-06T11:00:00Z", 4)
	plan(5, "2025-01-10T07:00:00Z", 2)

	type plannedShift struct {
		ScheduledTimeID string   `json:"scheduled_time_id"`
		Start           string   `json:"start"`
		Overlaps        []string `json:"overlaps"`
	}
	fetch := func() []plannedShift {
		t.Helper()
		status, env := srv.call(http.MethodGet, "/api/v1/schedules/plan?from=2025-01-06", employeeToken, nil)
		require.Equal(t, http.StatusOK, status)
		var out []plannedShift
		require.NoError(t, json.Unmarshal(env.Data, &out))
		return out
	}

	got := fetch()
	require.Len(t, got, 3)
	assert.Equal(t, early, got[0].ScheduledTimeID)
	assert.Equal(t, []string{late}, got[0].Overlaps)
	assert.Equal(t, []string{early}, got[1].Overlaps)
	assert.Equal(t, "2025-01-10T07:00:00Z", got[2].Start)
	assert.Empty(t, got[2].Overlaps)

	status, _ := srv.call(http.MethodPut, "/api/v1/schedules/"+late+"/inactive", managerToken, map[string]bool{"inactive": true})
	require.Equal(t, http.StatusOK, status)

	got = fetch()
	require.Len(t, got, 2)
	assert.Empty(t, got[0].Overlaps)

	status, _ = srv.call(http.MethodGet, "/api/v1/schedules/plan?from=2025-01-06&user_id="+employeeID, "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestEndToEnd_MaintenanceRunsOnce(t *testing.T) {
	srv := newTestServer(t)

	before := srv.app.rotator.Current()
	require.NoError(t, srv.app.maintenance.RunOnce(context.Background()))
	assert.NotEqual(t, before, srv.app.rotator.Current())
}

func TestBootstrapIsSkippedWhenUsersExist(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	harness.AddUser(testfixtures.NewUserFixture(testfixtures.WithUsername("existing")))

	cfg := config.Config{Bootstrap: config.Bootstrap{Username: managerUsername, Password: managerPassword}}
	_, err := newApp(context.Background(), cfg, harness.Store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	_, err = harness.Store.GetUserByUsername(context.Background(), managerUsername)
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestTranslateError(t *testing.T) {
	tests := []struct {
		in   error
		want error
	}{
		{nil, nil},
		{fmt.Errorf("get user: %w", persistence.ErrNotFound), application.ErrNotFound},
		{fmt.Errorf("insert: %w", persistence.ErrConflict), application.ErrConflict},
	}
	for _, tc := range tests {
		got := translateError(tc.in)
		if tc.want == nil {
			assert.NoError(t, got)
			continue
		}
		assert.ErrorIs(t, got, tc.want)
	}

	opaque := errors.New("disk full")
	assert.Same(t, opaque, translateError(opaque))
}
