// Package migration applies versioned SQL migrations to a database/sql
// connection.
//
// Migration files live in an fs.FS directory and follow the naming
// convention {version}_{description}.sql (e.g. "001_initial_schema.sql").
// Applied versions are tracked in a schema_migrations table; each migration
// runs in its own transaction together with its version record.
//
// Example usage:
//
//	manager := migration.NewManager(migration.NewScanner(files, "migrations/sqlite"), migration.NewExecutor(db, nil), logger)
//	if _, err := manager.Run(ctx); err != nil {
//		return err
//	}
package migration
