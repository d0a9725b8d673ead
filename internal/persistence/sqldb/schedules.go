package sqldb

import (
	"context"

	"github.com/example/workforce/internal/persistence"
)

const scheduledTimeSelect = `SELECT id, user_id, week_day, start_time, duration_seconds, inactive FROM scheduled_times`

func (s *Store) CreateScheduledTime(ctx context.Context, st persistence.ScheduledTime) error {
	_, err := s.exec(ctx,
		`INSERT INTO scheduled_times (id, user_id, week_day, start_time, duration_seconds, inactive) VALUES (?, ?, ?, ?, ?, ?)`,
		st.ID, st.UserID, st.Weekday, formatTime(st.StartTime), durationSeconds(st.Duration), st.Inactive,
	)
	return err
}

func (s *Store) GetScheduledTime(ctx context.Context, id string) (persistence.ScheduledTime, error) {
	return s.scanScheduledTime(s.queryRow(ctx, scheduledTimeSelect+` WHERE id = ?`, id))
}

// ListScheduledTimes returns a user's planned shifts ordered by weekday and start.
func (s *Store) ListScheduledTimes(ctx context.Context, userID string, includeInactive bool) ([]persistence.ScheduledTime, error) {
	query := scheduledTimeSelect + ` WHERE user_id = ?`
	args := []any{userID}
	if !includeInactive {
		query += ` AND inactive = ?`
		args = append(args, false)
	}
	rows, err := s.query(ctx, query+` ORDER BY week_day, start_time, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []persistence.ScheduledTime
	for rows.Next() {
		st, err := s.scanScheduledTime(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, s.mapper.MapError(rows.Err())
}

func (s *Store) SetScheduledTimeInactive(ctx context.Context, id string, inactive bool) error {
	return s.execAffecting(ctx, `UPDATE scheduled_times SET inactive = ? WHERE id = ?`, inactive, id)
}

func (s *Store) DeleteScheduledTime(ctx context.Context, id string) error {
	return s.execAffecting(ctx, `DELETE FROM scheduled_times WHERE id = ?`, id)
}

func (s *Store) scanScheduledTime(row rowScanner) (persistence.ScheduledTime, error) {
	var (
		st      persistence.ScheduledTime
		start   string
		seconds int64
	)
	if err := row.Scan(&st.ID, &st.UserID, &st.Weekday, &start, &seconds, &st.Inactive); err != nil {
		return persistence.ScheduledTime{}, s.mapper.MapError(err)
	}
	var err error
	if st.StartTime, err = parseTime("start_time", start); err != nil {
		return persistence.ScheduledTime{}, err
	}
	st.Duration = secondsDuration(seconds)
	return st, nil
}
