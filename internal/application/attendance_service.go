package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// WorkedTimeRepository stores actual shifts.
type WorkedTimeRepository interface {
	// FindActiveWorkedTime returns the open shift of a user or ErrNotFound.
	FindActiveWorkedTime(ctx context.Context, userID string) (WorkedTime, error)
	CreateWorkedTime(ctx context.Context, wt WorkedTime) (WorkedTime, error)
	UpdateWorkedTime(ctx context.Context, wt WorkedTime) (WorkedTime, error)
	GetWorkedTime(ctx context.Context, id string) (WorkedTime, error)
	ListWorkedTimes(ctx context.Context, userID string, offset, limit int) ([]WorkedTime, error)
}

// CodeVerifier accepts a check-in code and invalidates it on success.
type CodeVerifier interface {
	Consume(code string) (bool, error)
}

// AttendanceService toggles employees between checked in and checked out.
type AttendanceService struct {
	worked      WorkedTimeRepository
	codes       CodeVerifier
	tx          Transactor
	locks       *keyedMutex
	idGenerator func() string
	now         func() time.Time
	audit       *AuditTrail
	logger      *slog.Logger
}

// NewAttendanceService wires the toggle. A nil Transactor runs the toggle
// without a transaction.
func NewAttendanceService(worked WorkedTimeRepository, codes CodeVerifier, tx Transactor, idGenerator func() string, now func() time.Time, audit *AuditTrail, logger *slog.Logger) *AttendanceService {
	if tx == nil {
		tx = noTransactor{}
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &AttendanceService{
		worked:      worked,
		codes:       codes,
		tx:          tx,
		locks:       newKeyedMutex(),
		idGenerator: idGenerator,
		now:         now,
		audit:       audit,
		logger:      defaultLogger(logger),
	}
}

// CheckIn validates the shared code, then closes the open shift of the
// principal if one exists or opens a new one otherwise. The code is consumed
// before the shift is written, so a failed write returns
// ErrCheckinNotRecorded and the code cannot be reused.
func (s *AttendanceService) CheckIn(ctx context.Context, principal Principal, code string) (state AttendanceState, shift WorkedTime, err error) {
	if s == nil || s.worked == nil || s.codes == nil {
		err = fmt.Errorf("AttendanceService is not configured")
		return
	}

	logger := serviceLogger(ctx, s.logger, "AttendanceService", "CheckIn", "principal_id", principal.UserID)
	defer func() { logOutcome(ctx, logger, err, "attendance toggle", "state", state, "worked_time_id", shift.ID) }()

	if principal.UserID == "" {
		err = ErrUnauthenticated
		return
	}

	var ok bool
	ok, err = s.codes.Consume(strings.TrimSpace(code))
	if err != nil {
		return
	}
	if !ok {
		err = ErrInvalidCheckinCode
		return
	}

	unlock := s.locks.Lock(principal.UserID)
	defer unlock()

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var terr error
		state, shift, terr = s.toggle(ctx, principal.UserID)
		return terr
	})
	if err != nil {
		state, shift = "", WorkedTime{}
		err = fmt.Errorf("%w: %w", ErrCheckinNotRecorded, err)
		return
	}

	switch state {
	case CheckedIn:
		s.audit.Record(ctx, principal.UserID, "User with id %q, checked in", principal.UserID)
	case CheckedOut:
		s.audit.Record(ctx, principal.UserID, "User with id %q, checked out", principal.UserID)
	}
	return
}

func (s *AttendanceService) toggle(ctx context.Context, userID string) (AttendanceState, WorkedTime, error) {
	now := s.now().UTC()

	open, err := s.worked.FindActiveWorkedTime(ctx, userID)
	switch {
	case err == nil:
		open.Duration = now.Sub(open.Start)
		if open.Duration < 0 {
			open.Duration = 0
		}
		open.Active = false
		closed, err := s.worked.UpdateWorkedTime(ctx, open)
		if err != nil {
			return "", WorkedTime{}, err
		}
		return CheckedOut, closed, nil
	case errors.Is(err, ErrNotFound):
		created, err := s.worked.CreateWorkedTime(ctx, WorkedTime{
			ID:      s.idGenerator(),
			UserID:  userID,
			Date:    time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
			Weekday: int(now.Weekday()),
			Start:   now,
			Active:  true,
			Note:    "",
		})
		if err != nil {
			return "", WorkedTime{}, err
		}
		return CheckedIn, created, nil
	default:
		return "", WorkedTime{}, err
	}
}

// ListWorkedTimes returns a page of a user's shifts to the user or a manager.
func (s *AttendanceService) ListWorkedTimes(ctx context.Context, principal Principal, userID string, page, amount int) ([]WorkedTime, error) {
	if userID == "" {
		userID = principal.UserID
	}
	if !Allow(&principal, ActionRead, userID) {
		return nil, ErrForbidden
	}
	offset, limit := pageBounds(page, amount)
	return s.worked.ListWorkedTimes(ctx, userID, offset, limit)
}

// UpdateNote replaces the free-text note on a shift owned by the principal.
func (s *AttendanceService) UpdateNote(ctx context.Context, principal Principal, id, note string) (wt WorkedTime, err error) {
	wt, err = s.worked.GetWorkedTime(ctx, id)
	if err != nil {
		return WorkedTime{}, err
	}
	if !Allow(&principal, ActionUpdate, wt.UserID) {
		return WorkedTime{}, ErrForbidden
	}
	wt.Note = strings.TrimSpace(note)
	wt, err = s.worked.UpdateWorkedTime(ctx, wt)
	if err == nil {
		s.audit.Record(ctx, principal.UserID, "Worked time with id %q, was updated", id)
	}
	return
}

// keyedMutex serialises work per key. Entries are reference counted and
// dropped when the last holder unlocks.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedEntry)}
}

func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	entry, ok := k.locks[key]
	if !ok {
		entry = &keyedEntry{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
