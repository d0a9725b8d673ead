package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/workforce/internal/recurrence"
	"github.com/example/workforce/internal/scheduler"
)

// maxPlanWindow bounds how far Plan expands weekly shifts in one call.
const maxPlanWindow = 31 * 24 * time.Hour

// ScheduleRepository stores planned weekly shifts.
type ScheduleRepository interface {
	CreateScheduledTime(ctx context.Context, st ScheduledTime) (ScheduledTime, error)
	ListScheduledTimes(ctx context.Context, userID string, includeInactive bool) ([]ScheduledTime, error)
	SetScheduledTimeInactive(ctx context.Context, id string, inactive bool) (ScheduledTime, error)
	DeleteScheduledTime(ctx context.Context, id string) error
}

// UserDirectory resolves user ids to users.
type UserDirectory interface {
	GetUser(ctx context.Context, id string) (User, error)
}

// ScheduleService plans shifts for employees.
type ScheduleService struct {
	schedules   ScheduleRepository
	users       UserDirectory
	idGenerator func() string
	engine      *recurrence.Engine
	audit       *AuditTrail
	logger      *slog.Logger
}

// NewScheduleService wires planned shift management.
func NewScheduleService(schedules ScheduleRepository, users UserDirectory, idGenerator func() string, audit *AuditTrail, logger *slog.Logger) *ScheduleService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	return &ScheduleService{
		schedules:   schedules,
		users:       users,
		idGenerator: idGenerator,
		engine:      recurrence.NewEngine(time.UTC),
		audit:       audit,
		logger:      defaultLogger(logger),
	}
}

// Create plans a shift for a user. Managers only.
func (s *ScheduleService) Create(ctx context.Context, params CreateScheduledTimeParams) (st ScheduledTime, err error) {
	if s == nil || s.schedules == nil {
		return ScheduledTime{}, fmt.Errorf("ScheduleService is not configured")
	}
	logger := serviceLogger(ctx, s.logger, "ScheduleService", "Create", "principal_id", params.Principal.UserID, "user_id", params.UserID)
	defer func() { logOutcome(ctx, logger, err, "scheduled time creation", "scheduled_time_id", st.ID) }()

	if !Allow(&params.Principal, ActionAdminister, "") {
		err = ErrForbidden
		return
	}

	vErr := &ValidationError{}
	if params.UserID == "" {
		vErr.add("user_id", "user_id is required")
	}
	if params.Weekday < 0 || params.Weekday > 6 {
		vErr.add("week_day", "week_day must be between 0 and 6")
	}
	if params.Duration <= 0 {
		vErr.add("duration", "duration must be positive")
	}
	if params.StartTime.IsZero() {
		vErr.add("start_time", "start_time is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if s.users != nil {
		if _, err = s.users.GetUser(ctx, params.UserID); err != nil {
			return
		}
	}

	st, err = s.schedules.CreateScheduledTime(ctx, ScheduledTime{
		ID:        s.idGenerator(),
		UserID:    params.UserID,
		Weekday:   params.Weekday,
		StartTime: params.StartTime.UTC(),
		Duration:  params.Duration,
	})
	if err == nil {
		s.audit.Record(ctx, params.Principal.UserID, "Scheduled time with id %q, was created", st.ID)
	}
	return
}

// ListForUser returns the planned shifts of a user to the user or a manager.
func (s *ScheduleService) ListForUser(ctx context.Context, principal Principal, userID string, includeInactive bool) ([]ScheduledTime, error) {
	if s == nil || s.schedules == nil {
		return nil, fmt.Errorf("ScheduleService is not configured")
	}
	if userID == "" {
		userID = principal.UserID
	}
	if !Allow(&principal, ActionRead, userID) {
		return nil, ErrForbidden
	}
	return s.schedules.ListScheduledTimes(ctx, userID, includeInactive)
}

// SetInactive toggles whether a planned shift is in effect. Managers only.
func (s *ScheduleService) SetInactive(ctx context.Context, principal Principal, id string, inactive bool) (st ScheduledTime, err error) {
	if !Allow(&principal, ActionAdminister, "") {
		return ScheduledTime{}, ErrForbidden
	}
	st, err = s.schedules.SetScheduledTimeInactive(ctx, id, inactive)
	if err == nil {
		s.audit.Record(ctx, principal.UserID, "Scheduled time with id %q, was updated", id)
	}
	return
}

// Delete removes a planned shift. Managers only.
func (s *ScheduleService) Delete(ctx context.Context, principal Principal, id string) error {
	if !Allow(&principal, ActionAdminister, "") {
		return ErrForbidden
	}
	if err := s.schedules.DeleteScheduledTime(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, principal.UserID, "Scheduled time with id %q, was deleted", id)
	return nil
}


// Plan expands the active weekly shifts of a user into dated occurrences
// starting within [from, to). Each occurrence lists the other occurrences of
// the same user it overlaps with.
func (s *ScheduleService) Plan(ctx context.Context, principal Principal, userID string, from, to time.Time) ([]PlannedShift, error) {
	if s == nil || s.schedules == nil {
		return nil, fmt.Errorf("ScheduleService is not configured")
	}
	if userID == "" {
		userID = principal.UserID
	}
	if !Allow(&principal, ActionRead, userID) {
		return nil, ErrForbidden
	}

	vErr := &ValidationError{}
	switch {
	case from.IsZero():
		vErr.add("from", "from is required")
	case !to.After(from):
		vErr.add("to", "to must be after from")
	case to.Sub(from) > maxPlanWindow:
		vErr.add("to", "window must not exceed 31 days")
	}
	if vErr.HasErrors() {
		return nil, vErr
	}

	planned, err := s.schedules.ListScheduledTimes(ctx, userID, false)
	if err != nil {
		return nil, err
	}

	shifts := make([]recurrence.Shift, 0, len(planned))
	for _, st := range planned {
		shifts = append(shifts, recurrence.Shift{
			ID:       st.ID,
			UserID:   st.UserID,
			Weekday:  time.Weekday(st.Weekday),
			Start:    st.StartTime,
			Duration: st.Duration,
		})
	}

	occurrences, err := s.engine.Expand(shifts, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("expand shifts for %s: %w", userID, err)
	}

	slots := make([]scheduler.Slot, len(occurrences))
	for i, occ := range occurrences {
		slots[i] = scheduler.Slot{ID: occ.ShiftID, UserID: occ.UserID, Start: occ.Start, End: occ.End}
	}

	out := make([]PlannedShift, len(occurrences))
	for i, slot := range slots {
		out[i] = PlannedShift{
			ScheduledTimeID: slot.ID,
			UserID:          slot.UserID,
			Start:           slot.Start,
			End:             slot.End,
		}
		for _, c := range scheduler.DetectConflicts(slots, slot) {
			out[i].Overlaps = append(out[i].Overlaps, c.WithSlotID)
		}
	}

	serviceLogger(ctx, s.logger, "ScheduleService", "Plan", "principal_id", principal.UserID, "user_id", userID).
		DebugContext(ctx, "shifts expanded", "occurrences", len(out))
	return out, nil
}
