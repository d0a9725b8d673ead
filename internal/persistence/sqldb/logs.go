package sqldb

import (
	"context"
	"database/sql"

	"github.com/example/workforce/internal/persistence"
)

// AppendLog stores an audit entry. An empty user id is stored as NULL.
func (s *Store) AppendLog(ctx context.Context, entry persistence.LogEntry) error {
	userID := sql.NullString{String: entry.UserID, Valid: entry.UserID != ""}
	_, err := s.exec(ctx, `INSERT INTO logs (id, event, time, user_id) VALUES (?, ?, ?, ?)`,
		entry.ID, entry.Event, formatTime(entry.Time), userID)
	return err
}

// ListLogs returns the newest entries first. An empty userID lists all users.
func (s *Store) ListLogs(ctx context.Context, userID string, limit int) ([]persistence.LogEntry, error) {
	query := `SELECT id, event, time, user_id FROM logs`
	var args []any
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY time DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []persistence.LogEntry
	for rows.Next() {
		var (
			entry persistence.LogEntry
			at    string
			uid   sql.NullString
		)
		if err := rows.Scan(&entry.ID, &entry.Event, &at, &uid); err != nil {
			return nil, s.mapper.MapError(err)
		}
		if entry.Time, err = parseTime("time", at); err != nil {
			return nil, err
		}
		entry.UserID = uid.String
		out = append(out, entry)
	}
	return out, s.mapper.MapError(rows.Err())
}
