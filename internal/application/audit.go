package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// LogRepository appends audit entries.
type LogRepository interface {
	AppendLog(ctx context.Context, entry LogEntry) error
	ListLogs(ctx context.Context, userID string, limit int) ([]LogEntry, error)
}

// AuditTrail writes best-effort audit entries. A failed write is logged and
// never fails the operation being audited.
type AuditTrail struct {
	logs        LogRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewAuditTrail wires an audit trail. A nil repository turns Record into a no-op.
func NewAuditTrail(logs LogRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *AuditTrail {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &AuditTrail{logs: logs, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

// Record appends an event attributed to userID.
func (a *AuditTrail) Record(ctx context.Context, userID, format string, args ...any) {
	if a == nil || a.logs == nil {
		return
	}
	entry := LogEntry{
		ID:     a.idGenerator(),
		Event:  fmt.Sprintf(format, args...),
		Time:   a.now().UTC(),
		UserID: userID,
	}
	if err := a.logs.AppendLog(context.WithoutCancel(ctx), entry); err != nil {
		serviceLogger(ctx, a.logger, "AuditTrail", "Record", "user_id", userID).
			WarnContext(ctx, "audit log write failed", "error", err, "event", entry.Event)
	}
}

// Recent returns the latest entries for a user, visible to that user or a manager.
func (a *AuditTrail) Recent(ctx context.Context, principal *Principal, userID string, limit int) ([]LogEntry, error) {
	if a == nil || a.logs == nil {
		return nil, nil
	}
	if !Allow(principal, ActionRead, userID) {
		return nil, ErrForbidden
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return a.logs.ListLogs(ctx, userID, limit)
}

// Transactor runs fn inside one store transaction carried by the context.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type noTransactor struct{}

func (noTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
