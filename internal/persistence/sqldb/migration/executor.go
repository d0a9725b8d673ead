package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Executor runs migrations against a database/sql handle. Queries are
// written with '?' placeholders and passed through rebind, so the same
// executor serves drivers that expect $n placeholders.
type Executor struct {
	db     *sql.DB
	rebind func(string) string
	now    func() time.Time
}

// NewExecutor creates an Executor. A nil rebind leaves queries untouched.
func NewExecutor(db *sql.DB, rebind func(string) string) *Executor {
	if rebind == nil {
		rebind = func(q string) string { return q }
	}
	return &Executor{db: db, rebind: rebind, now: time.Now}
}

// InitializeVersionTable creates the schema_migrations table if it doesn't exist.
func (e *Executor) InitializeVersionTable(ctx context.Context) error {
	const createTableSQL = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL,
			checksum TEXT NOT NULL DEFAULT '',
			execution_time_ms BIGINT NOT NULL DEFAULT 0
		)`
	if _, err := e.db.ExecContext(ctx, createTableSQL); err != nil {
		return NewDatabaseError("", createTableSQL, "create schema_migrations table", err)
	}
	return nil
}

// ExecuteMigration runs every statement of a migration and records its
// version in one transaction.
func (e *Executor) ExecuteMigration(ctx context.Context, migration Migration) (err error) {
	statements := splitStatements(migration.SQL)
	if len(statements) == 0 {
		return NewMigrationError(migration.Version, migration.FilePath, "parse SQL",
			fmt.Errorf("%w: no SQL statements found in migration", ErrInvalidMigrationFile))
	}

	started := e.now()
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return NewDatabaseError(migration.Version, "", "begin transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for i, stmt := range statements {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return NewDatabaseError(migration.Version, stmt, fmt.Sprintf("execute statement %d", i+1), err)
		}
	}

	insertSQL := e.rebind(`INSERT INTO schema_migrations (version, applied_at, checksum, execution_time_ms) VALUES (?, ?, ?, ?)`)
	appliedAt := e.now().UTC()
	if _, err = tx.ExecContext(ctx, insertSQL, migration.Version, appliedAt.Format(time.RFC3339Nano), migration.Checksum, appliedAt.Sub(started).Milliseconds()); err != nil {
		return NewDatabaseError(migration.Version, insertSQL, "record migration", err)
	}

	if err = tx.Commit(); err != nil {
		return NewDatabaseError(migration.Version, "", "commit transaction", err)
	}
	return nil
}

// GetAppliedVersions returns all applied migrations ordered by version.
func (e *Executor) GetAppliedVersions(ctx context.Context) ([]AppliedMigration, error) {
	const querySQL = `SELECT version, applied_at, checksum, execution_time_ms FROM schema_migrations ORDER BY version ASC`

	rows, err := e.db.QueryContext(ctx, querySQL)
	if err != nil {
		return nil, NewDatabaseError("", querySQL, "get applied versions", err)
	}
	defer rows.Close()

	var applied []AppliedMigration
	for rows.Next() {
		var (
			version, appliedAt, checksum string
			executionMs                  int64
		)
		if err := rows.Scan(&version, &appliedAt, &checksum, &executionMs); err != nil {
			return nil, NewDatabaseError("", querySQL, "scan applied migration", err)
		}
		at, parseErr := time.Parse(time.RFC3339Nano, appliedAt)
		if parseErr != nil {
			return nil, NewDatabaseError(version, querySQL, "parse applied_at", parseErr)
		}
		applied = append(applied, AppliedMigration{
			Version:       version,
			AppliedAt:     at,
			ExecutionTime: time.Duration(executionMs) * time.Millisecond,
			Checksum:      checksum,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, NewDatabaseError("", querySQL, "iterate applied migrations", err)
	}
	return applied, nil
}
