package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/example/workforce/internal/persistence"
)

const requestSelect = `
	SELECT r.id, r.user_id, r.requested_by, r.type_id, r.reason, r.week_day, r.start_time, r.duration_seconds, r.created_at,
	       p.id, p.accepted, p.reason, p.processed_at, p.admin_id
	FROM requests r
	LEFT JOIN processed_requests p ON p.request_id = r.id`

func (s *Store) CreateRequest(ctx context.Context, req persistence.Request) error {
	_, err := s.exec(ctx,
		`INSERT INTO requests (id, user_id, requested_by, type_id, reason, week_day, start_time, duration_seconds, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ID, req.UserID, req.RequestedBy, req.TypeID, req.Reason, req.Weekday,
		formatTime(req.StartTime), durationSeconds(req.Duration), formatTime(req.CreatedAt),
	)
	return err
}

// GetRequest returns a request together with its decision, if any.
func (s *Store) GetRequest(ctx context.Context, id string) (persistence.Request, error) {
	return s.scanRequest(s.queryRow(ctx, requestSelect+` WHERE r.id = ?`, id))
}

// ListRequests returns requests oldest first. VisibleTo restricts the result
// to requests where that user is the subject or the requester.
func (s *Store) ListRequests(ctx context.Context, filter persistence.RequestFilter) ([]persistence.Request, error) {
	var (
		where []string
		args  []any
	)
	if filter.OpenOnly {
		where = append(where, `p.id IS NULL`)
	}
	if filter.VisibleTo != "" {
		where = append(where, `(r.user_id = ? OR r.requested_by = ?)`)
		args = append(args, filter.VisibleTo, filter.VisibleTo)
	}

	query := requestSelect
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	clause, page := pageClause(filter.Offset, filter.Limit)
	query += ` ORDER BY r.created_at, r.id` + clause
	args = append(args, page...)

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []persistence.Request
	for rows.Next() {
		req, err := s.scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, s.mapper.MapError(rows.Err())
}

// DeleteOpenRequest deletes a request only while no decision exists. The
// check and the delete are one statement, so a concurrent decision cannot
// slip in between. A processed request yields persistence.ErrConflict.
func (s *Store) DeleteOpenRequest(ctx context.Context, id string) error {
	err := s.execAffecting(ctx,
		`DELETE FROM requests WHERE id = ? AND NOT EXISTS (SELECT 1 FROM processed_requests p WHERE p.request_id = requests.id)`,
		id,
	)
	if !errors.Is(err, persistence.ErrNotFound) {
		return err
	}

	var exists int
	switch scanErr := s.queryRow(ctx, `SELECT 1 FROM requests WHERE id = ?`, id).Scan(&exists); {
	case scanErr == nil:
		return persistence.ErrConflict
	case errors.Is(scanErr, sql.ErrNoRows):
		return persistence.ErrNotFound
	default:
		return s.mapper.MapError(scanErr)
	}
}

// CreateProcessedRequest records the decision. The unique request_id column
// rejects a second decision with persistence.ErrConflict.
func (s *Store) CreateProcessedRequest(ctx context.Context, decision persistence.ProcessedRequest) error {
	_, err := s.exec(ctx,
		`INSERT INTO processed_requests (id, request_id, accepted, reason, processed_at, admin_id) VALUES (?, ?, ?, ?, ?, ?)`,
		decision.ID, decision.RequestID, decision.Accepted, decision.Reason, formatTime(decision.ProcessedAt), decision.AdminID,
	)
	return err
}

func (s *Store) scanRequest(row rowScanner) (persistence.Request, error) {
	var (
		req                  persistence.Request
		start, createdAt     string
		seconds              int64
		decisionID           sql.NullString
		accepted             sql.NullBool
		decisionReason       sql.NullString
		processedAt, adminID sql.NullString
	)
	err := row.Scan(
		&req.ID, &req.UserID, &req.RequestedBy, &req.TypeID, &req.Reason, &req.Weekday, &start, &seconds, &createdAt,
		&decisionID, &accepted, &decisionReason, &processedAt, &adminID,
	)
	if err != nil {
		return persistence.Request{}, s.mapper.MapError(err)
	}
	if req.StartTime, err = parseTime("start_time", start); err != nil {
		return persistence.Request{}, err
	}
	if req.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Request{}, err
	}
	req.Duration = secondsDuration(seconds)

	if decisionID.Valid {
		decision := &persistence.ProcessedRequest{
			ID:        decisionID.String,
			RequestID: req.ID,
			Accepted:  accepted.Bool,
			Reason:    decisionReason.String,
			AdminID:   adminID.String,
		}
		if decision.ProcessedAt, err = parseTime("processed_at", processedAt.String); err != nil {
			return persistence.Request{}, err
		}
		req.Decision = decision
	}
	return req, nil
}
