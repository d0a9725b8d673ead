package main

import (
	"context"
	"errors"
	"time"

	"github.com/example/workforce/internal/application"
	"github.com/example/workforce/internal/persistence"
)

// translateError maps storage sentinels onto the application's error kinds.
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return application.ErrNotFound
	case errors.Is(err, persistence.ErrConflict):
		return application.ErrConflict
	default:
		return err
	}
}

type userRepositoryAdapter struct {
	repo persistence.UserRepository
}

func newUserRepositoryAdapter(repo persistence.UserRepository) *userRepositoryAdapter {
	return &userRepositoryAdapter{repo: repo}
}

func (a *userRepositoryAdapter) CreateUser(ctx context.Context, user application.User, passwordHash string) (application.User, error) {
	if err := a.repo.CreateUser(ctx, toPersistenceUser(user, passwordHash)); err != nil {
		return application.User{}, translateError(err)
	}
	return a.GetUser(ctx, user.ID)
}

func (a *userRepositoryAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, translateError(err)
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) UpdateUser(ctx context.Context, user application.User, passwordHash string) (application.User, error) {
	if err := a.repo.UpdateUser(ctx, toPersistenceUser(user, passwordHash)); err != nil {
		return application.User{}, translateError(err)
	}
	return a.GetUser(ctx, user.ID)
}

func (a *userRepositoryAdapter) DeleteUser(ctx context.Context, id string) error {
	return translateError(a.repo.DeleteUser(ctx, id))
}

func (a *userRepositoryAdapter) ListUsers(ctx context.Context, offset, limit int) ([]application.User, error) {
	models, err := a.repo.ListUsers(ctx, offset, limit)
	if err != nil {
		return nil, translateError(err)
	}
	users := make([]application.User, 0, len(models))
	for _, model := range models {
		users = append(users, toApplicationUser(model))
	}
	return users, nil
}

func (a *userRepositoryAdapter) CountUsers(ctx context.Context) (int, error) {
	count, err := a.repo.CountUsers(ctx)
	return count, translateError(err)
}

type credentialStoreAdapter struct {
	*userRepositoryAdapter
}

func newCredentialStoreAdapter(repo persistence.UserRepository) *credentialStoreAdapter {
	return &credentialStoreAdapter{userRepositoryAdapter: newUserRepositoryAdapter(repo)}
}

func (a *credentialStoreAdapter) GetUserCredentialsByUsername(ctx context.Context, username string) (application.UserCredentials, error) {
	stored, err := a.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return application.UserCredentials{}, translateError(err)
	}
	return application.UserCredentials{
		User:         toApplicationUser(stored),
		PasswordHash: stored.PasswordHash,
	}, nil
}

type catalogAdapter struct {
	repo persistence.CatalogRepository
}

func newCatalogAdapter(repo persistence.CatalogRepository) *catalogAdapter {
	return &catalogAdapter{repo: repo}
}

func (a *catalogAdapter) CreateRole(ctx context.Context, role application.Role) (application.Role, error) {
	if err := a.repo.CreateRole(ctx, persistence.Role{ID: role.ID, Name: role.Name}); err != nil {
		return application.Role{}, translateError(err)
	}
	return role, nil
}

func (a *catalogAdapter) GetRole(ctx context.Context, id string) (application.Role, error) {
	stored, err := a.repo.GetRole(ctx, id)
	if err != nil {
		return application.Role{}, translateError(err)
	}
	return application.Role{ID: stored.ID, Name: stored.Name}, nil
}

func (a *catalogAdapter) GetRoleByName(ctx context.Context, name string) (application.Role, error) {
	stored, err := a.repo.GetRoleByName(ctx, name)
	if err != nil {
		return application.Role{}, translateError(err)
	}
	return application.Role{ID: stored.ID, Name: stored.Name}, nil
}

func (a *catalogAdapter) ListRoles(ctx context.Context) ([]application.Role, error) {
	models, err := a.repo.ListRoles(ctx)
	if err != nil {
		return nil, translateError(err)
	}
	roles := make([]application.Role, 0, len(models))
	for _, model := range models {
		roles = append(roles, application.Role{ID: model.ID, Name: model.Name})
	}
	return roles, nil
}

func (a *catalogAdapter) CreateRequestType(ctx context.Context, rt application.RequestType) (application.RequestType, error) {
	if err := a.repo.CreateRequestType(ctx, persistence.RequestType{ID: rt.ID, Name: rt.Name}); err != nil {
		return application.RequestType{}, translateError(err)
	}
	return rt, nil
}

func (a *catalogAdapter) GetRequestType(ctx context.Context, id string) (application.RequestType, error) {
	stored, err := a.repo.GetRequestType(ctx, id)
	if err != nil {
		return application.RequestType{}, translateError(err)
	}
	return application.RequestType{ID: stored.ID, Name: stored.Name}, nil
}

func (a *catalogAdapter) GetRequestTypeByName(ctx context.Context, name string) (application.RequestType, error) {
	stored, err := a.repo.GetRequestTypeByName(ctx, name)
	if err != nil {
		return application.RequestType{}, translateError(err)
	}
	return application.RequestType{ID: stored.ID, Name: stored.Name}, nil
}

func (a *catalogAdapter) ListRequestTypes(ctx context.Context) ([]application.RequestType, error) {
	models, err := a.repo.ListRequestTypes(ctx)
	if err != nil {
		return nil, translateError(err)
	}
	types := make([]application.RequestType, 0, len(models))
	for _, model := range models {
		types = append(types, application.RequestType{ID: model.ID, Name: model.Name})
	}
	return types, nil
}

type sessionRepositoryAdapter struct {
	repo persistence.SessionRepository
}

func newSessionRepositoryAdapter(repo persistence.SessionRepository) *sessionRepositoryAdapter {
	return &sessionRepositoryAdapter{repo: repo}
}

func (a *sessionRepositoryAdapter) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	if err := a.repo.CreateSession(ctx, persistence.Session(session)); err != nil {
		return application.Session{}, translateError(err)
	}
	return session, nil
}

func (a *sessionRepositoryAdapter) GetSession(ctx context.Context, token string) (application.Session, error) {
	stored, err := a.repo.GetSession(ctx, token)
	if err != nil {
		return application.Session{}, translateError(err)
	}
	return application.Session(stored), nil
}

func (a *sessionRepositoryAdapter) DeleteSession(ctx context.Context, token string) (bool, error) {
	deleted, err := a.repo.DeleteSession(ctx, token)
	return deleted, translateError(err)
}

func (a *sessionRepositoryAdapter) DeleteExpiredSessions(ctx context.Context, reference time.Time) (int64, error) {
	removed, err := a.repo.DeleteExpiredSessions(ctx, reference)
	return removed, translateError(err)
}

type scheduleRepositoryAdapter struct {
	repo persistence.ScheduleRepository
}

func newScheduleRepositoryAdapter(repo persistence.ScheduleRepository) *scheduleRepositoryAdapter {
	return &scheduleRepositoryAdapter{repo: repo}
}

func (a *scheduleRepositoryAdapter) CreateScheduledTime(ctx context.Context, st application.ScheduledTime) (application.ScheduledTime, error) {
	if err := a.repo.CreateScheduledTime(ctx, persistence.ScheduledTime(st)); err != nil {
		return application.ScheduledTime{}, translateError(err)
	}
	return a.get(ctx, st.ID)
}

func (a *scheduleRepositoryAdapter) ListScheduledTimes(ctx context.Context, userID string, includeInactive bool) ([]application.ScheduledTime, error) {
	models, err := a.repo.ListScheduledTimes(ctx, userID, includeInactive)
	if err != nil {
		return nil, translateError(err)
	}
	out := make([]application.ScheduledTime, 0, len(models))
	for _, model := range models {
		out = append(out, application.ScheduledTime(model))
	}
	return out, nil
}

func (a *scheduleRepositoryAdapter) SetScheduledTimeInactive(ctx context.Context, id string, inactive bool) (application.ScheduledTime, error) {
	if err := a.repo.SetScheduledTimeInactive(ctx, id, inactive); err != nil {
		return application.ScheduledTime{}, translateError(err)
	}
	return a.get(ctx, id)
}

func (a *scheduleRepositoryAdapter) DeleteScheduledTime(ctx context.Context, id string) error {
	return translateError(a.repo.DeleteScheduledTime(ctx, id))
}

func (a *scheduleRepositoryAdapter) get(ctx context.Context, id string) (application.ScheduledTime, error) {
	stored, err := a.repo.GetScheduledTime(ctx, id)
	if err != nil {
		return application.ScheduledTime{}, translateError(err)
	}
	return application.ScheduledTime(stored), nil
}

type workedTimeRepositoryAdapter struct {
	repo persistence.WorkedTimeRepository
}

func newWorkedTimeRepositoryAdapter(repo persistence.WorkedTimeRepository) *workedTimeRepositoryAdapter {
	return &workedTimeRepositoryAdapter{repo: repo}
}

func (a *workedTimeRepositoryAdapter) FindActiveWorkedTime(ctx context.Context, userID string) (application.WorkedTime, error) {
	stored, err := a.repo.FindActiveWorkedTime(ctx, userID)
	if err != nil {
		return application.WorkedTime{}, translateError(err)
	}
	return application.WorkedTime(stored), nil
}

func (a *workedTimeRepositoryAdapter) CreateWorkedTime(ctx context.Context, wt application.WorkedTime) (application.WorkedTime, error) {
	if err := a.repo.CreateWorkedTime(ctx, persistence.WorkedTime(wt)); err != nil {
		return application.WorkedTime{}, translateError(err)
	}
	return a.GetWorkedTime(ctx, wt.ID)
}

func (a *workedTimeRepositoryAdapter) UpdateWorkedTime(ctx context.Context, wt application.WorkedTime) (application.WorkedTime, error) {
	if err := a.repo.UpdateWorkedTime(ctx, persistence.WorkedTime(wt)); err != nil {
		return application.WorkedTime{}, translateError(err)
	}
	return a.GetWorkedTime(ctx, wt.ID)
}

func (a *workedTimeRepositoryAdapter) GetWorkedTime(ctx context.Context, id string) (application.WorkedTime, error) {
	stored, err := a.repo.GetWorkedTime(ctx, id)
	if err != nil {
		return application.WorkedTime{}, translateError(err)
	}
	return application.WorkedTime(stored), nil
}

func (a *workedTimeRepositoryAdapter) ListWorkedTimes(ctx context.Context, userID string, offset, limit int) ([]application.WorkedTime, error) {
	models, err := a.repo.ListWorkedTimes(ctx, userID, offset, limit)
	if err != nil {
		return nil, translateError(err)
	}
	out := make([]application.WorkedTime, 0, len(models))
	for _, model := range models {
		out = append(out, application.WorkedTime(model))
	}
	return out, nil
}

type deviceRepositoryAdapter struct {
	repo persistence.DeviceRepository
}

func newDeviceRepositoryAdapter(repo persistence.DeviceRepository) *deviceRepositoryAdapter {
	return &deviceRepositoryAdapter{repo: repo}
}

func (a *deviceRepositoryAdapter) CreateDevice(ctx context.Context, device application.CheckinDevice) (application.CheckinDevice, error) {
	if err := a.repo.CreateDevice(ctx, persistence.CheckinDevice(device)); err != nil {
		return application.CheckinDevice{}, translateError(err)
	}
	return device, nil
}

func (a *deviceRepositoryAdapter) GetDeviceByCode(ctx context.Context, deviceCode string) (application.CheckinDevice, error) {
	stored, err := a.repo.GetDeviceByCode(ctx, deviceCode)
	if err != nil {
		return application.CheckinDevice{}, translateError(err)
	}
	return application.CheckinDevice(stored), nil
}

func (a *deviceRepositoryAdapter) ListDevices(ctx context.Context) ([]application.CheckinDevice, error) {
	models, err := a.repo.ListDevices(ctx)
	if err != nil {
		return nil, translateError(err)
	}
	out := make([]application.CheckinDevice, 0, len(models))
	for _, model := range models {
		out = append(out, application.CheckinDevice(model))
	}
	return out, nil
}

func (a *deviceRepositoryAdapter) DeleteDevice(ctx context.Context, id string) error {
	return translateError(a.repo.DeleteDevice(ctx, id))
}

type logRepositoryAdapter struct {
	repo persistence.LogRepository
}

func newLogRepositoryAdapter(repo persistence.LogRepository) *logRepositoryAdapter {
	return &logRepositoryAdapter{repo: repo}
}

func (a *logRepositoryAdapter) AppendLog(ctx context.Context, entry application.LogEntry) error {
	return translateError(a.repo.AppendLog(ctx, persistence.LogEntry(entry)))
}

func (a *logRepositoryAdapter) ListLogs(ctx context.Context, userID string, limit int) ([]application.LogEntry, error) {
	models, err := a.repo.ListLogs(ctx, userID, limit)
	if err != nil {
		return nil, translateError(err)
	}
	out := make([]application.LogEntry, 0, len(models))
	for _, model := range models {
		out = append(out, application.LogEntry(model))
	}
	return out, nil
}

type requestRepositoryAdapter struct {
	repo persistence.RequestRepository
}

func newRequestRepositoryAdapter(repo persistence.RequestRepository) *requestRepositoryAdapter {
	return &requestRepositoryAdapter{repo: repo}
}

func (a *requestRepositoryAdapter) CreateRequest(ctx context.Context, req application.Request) (application.Request, error) {
	if err := a.repo.CreateRequest(ctx, toPersistenceRequest(req)); err != nil {
		return application.Request{}, translateError(err)
	}
	return a.GetRequest(ctx, req.ID)
}

func (a *requestRepositoryAdapter) GetRequest(ctx context.Context, id string) (application.Request, error) {
	stored, err := a.repo.GetRequest(ctx, id)
	if err != nil {
		return application.Request{}, translateError(err)
	}
	return toApplicationRequest(stored), nil
}

func (a *requestRepositoryAdapter) ListRequests(ctx context.Context, filter application.RequestFilter) ([]application.Request, error) {
	models, err := a.repo.ListRequests(ctx, persistence.RequestFilter(filter))
	if err != nil {
		return nil, translateError(err)
	}
	out := make([]application.Request, 0, len(models))
	for _, model := range models {
		out = append(out, toApplicationRequest(model))
	}
	return out, nil
}

func (a *requestRepositoryAdapter) DeleteOpenRequest(ctx context.Context, id string) error {
	return translateError(a.repo.DeleteOpenRequest(ctx, id))
}

func (a *requestRepositoryAdapter) CreateDecision(ctx context.Context, decision application.Decision) (application.Decision, error) {
	if err := a.repo.CreateProcessedRequest(ctx, toPersistenceDecision(decision)); err != nil {
		return application.Decision{}, translateError(err)
	}
	return decision, nil
}

func toApplicationUser(model persistence.User) application.User {
	name := model.Name
	return application.User{
		ID:        model.ID,
		Name:      &name,
		Username:  model.Username,
		RoleID:    model.RoleID,
		RoleName:  model.RoleName,
		CreatedAt: model.CreatedAt,
	}
}

func toPersistenceUser(user application.User, passwordHash string) persistence.User {
	var name string
	if user.Name != nil {
		name = *user.Name
	}
	return persistence.User{
		ID:           user.ID,
		Name:         name,
		Username:     user.Username,
		PasswordHash: passwordHash,
		RoleID:       user.RoleID,
		RoleName:     user.RoleName,
		CreatedAt:    user.CreatedAt,
	}
}

func toApplicationRequest(model persistence.Request) application.Request {
	req := application.Request{
		ID:          model.ID,
		UserID:      model.UserID,
		RequestedBy: model.RequestedBy,
		TypeID:      model.TypeID,
		Reason:      model.Reason,
		Span: application.RequestSpan{
			Weekday:   model.Weekday,
			StartTime: model.StartTime,
			Duration:  model.Duration,
		},
		CreatedAt: model.CreatedAt,
	}
	if d := model.Decision; d != nil {
		req.Decision = &application.Decision{
			ID:          d.ID,
			RequestID:   d.RequestID,
			Accepted:    d.Accepted,
			Reason:      d.Reason,
			ProcessedAt: d.ProcessedAt,
			ProcessedBy: d.AdminID,
		}
	}
	return req
}

func toPersistenceRequest(req application.Request) persistence.Request {
	model := persistence.Request{
		ID:          req.ID,
		UserID:      req.UserID,
		RequestedBy: req.RequestedBy,
		TypeID:      req.TypeID,
		Reason:      req.Reason,
		Weekday:     req.Span.Weekday,
		StartTime:   req.Span.StartTime,
		Duration:    req.Span.Duration,
		CreatedAt:   req.CreatedAt,
	}
	if req.Decision != nil {
		decision := toPersistenceDecision(*req.Decision)
		model.Decision = &decision
	}
	return model
}

func toPersistenceDecision(decision application.Decision) persistence.ProcessedRequest {
	return persistence.ProcessedRequest{
		ID:          decision.ID,
		RequestID:   decision.RequestID,
		Accepted:    decision.Accepted,
		Reason:      decision.Reason,
		ProcessedAt: decision.ProcessedAt,
		AdminID:     decision.ProcessedBy,
	}
}
