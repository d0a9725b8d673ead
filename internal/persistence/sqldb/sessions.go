package sqldb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/example/workforce/internal/persistence"
)

// CreateSession stores a new session token for a user.
func (s *Store) CreateSession(ctx context.Context, session persistence.Session) error {
	if strings.TrimSpace(session.Token) == "" || session.UserID == "" {
		return fmt.Errorf("sqldb: session token and user id are required")
	}
	_, err := s.exec(ctx,
		`INSERT INTO sessions (token, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		session.Token, session.UserID, formatTime(session.CreatedAt), formatTime(session.ExpiresAt),
	)
	return err
}

// GetSession retrieves a session by its token value.
func (s *Store) GetSession(ctx context.Context, token string) (persistence.Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}

	var (
		session              persistence.Session
		createdAt, expiresAt string
	)
	err := s.queryRow(ctx, `SELECT token, user_id, created_at, expires_at FROM sessions WHERE token = ?`, token).
		Scan(&session.Token, &session.UserID, &createdAt, &expiresAt)
	if err != nil {
		return persistence.Session{}, s.mapper.MapError(err)
	}
	if session.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Session{}, err
	}
	if session.ExpiresAt, err = parseTime("expires_at", expiresAt); err != nil {
		return persistence.Session{}, err
	}
	return session, nil
}

// DeleteSession removes a session and reports whether one existed.
func (s *Store) DeleteSession(ctx context.Context, token string) (bool, error) {
	res, err := s.exec(ctx, `DELETE FROM sessions WHERE token = ?`, strings.TrimSpace(token))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// canonicalExpiry matches expires_at values written by formatTime. Those
// compare correctly as text; anything else is parsed before comparing.
const canonicalExpiry = `length(expires_at) = 30 AND substr(expires_at, 30, 1) = 'Z'`

// DeleteExpiredSessions removes sessions whose expiry is at or before reference.
func (s *Store) DeleteExpiredSessions(ctx context.Context, reference time.Time) (int64, error) {
	var removed int64
	err := s.WithinTx(ctx, func(ctx context.Context) error {
		res, err := s.exec(ctx, `DELETE FROM sessions WHERE `+canonicalExpiry+` AND expires_at <= ?`, formatTime(reference))
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		removed += n

		legacy, err := s.expiredLegacySessions(ctx, reference)
		if err != nil {
			return err
		}
		for _, token := range legacy {
			res, err := s.exec(ctx, `DELETE FROM sessions WHERE token = ?`, token)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to get rows affected: %w", err)
			}
			removed += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func (s *Store) expiredLegacySessions(ctx context.Context, reference time.Time) ([]string, error) {
	rows, err := s.query(ctx, `SELECT token, expires_at FROM sessions WHERE NOT (`+canonicalExpiry+`)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token, raw string
		if err := rows.Scan(&token, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		expiresAt, err := parseTime("expires_at", raw)
		if err != nil {
			return nil, err
		}
		if !expiresAt.After(reference) {
			tokens = append(tokens, token)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}
	return tokens, nil
}
