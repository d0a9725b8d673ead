package testfixtures

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/example/workforce/internal/persistence"
	"github.com/example/workforce/internal/persistence/sqldb"
)

// SQLiteHarness wraps a migrated store backed by a temporary SQLite file.
// The manager and employee roles are seeded as "role-leder" and
// "role-medarbejder" so UserFixture defaults resolve.
type SQLiteHarness struct {
	Store *sqldb.Store

	tb      testing.TB
	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness opens and migrates a fresh database. Close is also
// registered with tb.Cleanup.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "workforce.db")
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)

	ctx := context.Background()
	store, err := sqldb.Open(ctx, sqldb.DialectSQLite, dsn, nil)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	for _, name := range []string{ManagerRole, EmployeeRole} {
		if err := store.CreateRole(ctx, persistence.Role{ID: "role-" + name, Name: name}); err != nil {
			_ = store.Close()
			tb.Fatalf("failed to seed role %s: %v", name, err)
		}
	}

	harness := &SQLiteHarness{
		Store:   store,
		tb:      tb,
		cleanup: func() { _ = store.Close() },
	}
	tb.Cleanup(harness.Close)
	return harness
}

// AddUser inserts the fixture and fails the test on error.
func (h *SQLiteHarness) AddUser(f UserFixture) persistence.User {
	h.tb.Helper()
	user := f.Persistence()
	if err := h.Store.CreateUser(context.Background(), user); err != nil {
		h.tb.Fatalf("failed to add user %s: %v", f.ID, err)
	}
	return user
}

// AddRequestType inserts a request type with id "type-<name>".
func (h *SQLiteHarness) AddRequestType(name string) persistence.RequestType {
	h.tb.Helper()
	rt := persistence.RequestType{ID: "type-" + name, Name: name}
	if err := h.Store.CreateRequestType(context.Background(), rt); err != nil {
		h.tb.Fatalf("failed to add request type %s: %v", name, err)
	}
	return rt
}

// AddRequest inserts an open request.
func (h *SQLiteHarness) AddRequest(f RequestFixture) persistence.Request {
	h.tb.Helper()
	req := f.Persistence()
	if err := h.Store.CreateRequest(context.Background(), req); err != nil {
		h.tb.Fatalf("failed to add request %s: %v", f.ID, err)
	}
	return req
}
