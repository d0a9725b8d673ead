package sqldb

import (
	"context"

	"github.com/example/workforce/internal/persistence"
)

const workedTimeSelect = `SELECT id, user_id, date, week_day, start_time, duration_seconds, active, note FROM worked_times`

// FindActiveWorkedTime returns the open shift of a user. The partial unique
// index on worked_times(user_id) WHERE active guarantees at most one.
func (s *Store) FindActiveWorkedTime(ctx context.Context, userID string) (persistence.WorkedTime, error) {
	return s.scanWorkedTime(s.queryRow(ctx, workedTimeSelect+` WHERE user_id = ? AND active = ?`, userID, true))
}

// CreateWorkedTime inserts a shift. A second active shift for the same user
// fails with persistence.ErrConflict.
func (s *Store) CreateWorkedTime(ctx context.Context, wt persistence.WorkedTime) error {
	_, err := s.exec(ctx,
		`INSERT INTO worked_times (id, user_id, date, week_day, start_time, duration_seconds, active, note) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		wt.ID, wt.UserID, formatTime(wt.Date), wt.Weekday, formatTime(wt.Start), durationSeconds(wt.Duration), wt.Active, wt.Note,
	)
	return err
}

func (s *Store) UpdateWorkedTime(ctx context.Context, wt persistence.WorkedTime) error {
	return s.execAffecting(ctx,
		`UPDATE worked_times SET duration_seconds = ?, active = ?, note = ? WHERE id = ?`,
		durationSeconds(wt.Duration), wt.Active, wt.Note, wt.ID,
	)
}

func (s *Store) GetWorkedTime(ctx context.Context, id string) (persistence.WorkedTime, error) {
	return s.scanWorkedTime(s.queryRow(ctx, workedTimeSelect+` WHERE id = ?`, id))
}

// ListWorkedTimes returns a user's shifts, newest first.
func (s *Store) ListWorkedTimes(ctx context.Context, userID string, offset, limit int) ([]persistence.WorkedTime, error) {
	clause, page := pageClause(offset, limit)
	args := append([]any{userID}, page...)
	rows, err := s.query(ctx, workedTimeSelect+` WHERE user_id = ? ORDER BY start_time DESC, id`+clause, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []persistence.WorkedTime
	for rows.Next() {
		wt, err := s.scanWorkedTime(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, wt)
	}
	return out, s.mapper.MapError(rows.Err())
}

func (s *Store) scanWorkedTime(row rowScanner) (persistence.WorkedTime, error) {
	var (
		wt          persistence.WorkedTime
		date, start string
		seconds     int64
	)
	if err := row.Scan(&wt.ID, &wt.UserID, &date, &wt.Weekday, &start, &seconds, &wt.Active, &wt.Note); err != nil {
		return persistence.WorkedTime{}, s.mapper.MapError(err)
	}
	var err error
	if wt.Date, err = parseTime("date", date); err != nil {
		return persistence.WorkedTime{}, err
	}
	if wt.Start, err = parseTime("start_time", start); err != nil {
		return persistence.WorkedTime{}, err
	}
	wt.Duration = secondsDuration(seconds)
	return wt, nil
}
