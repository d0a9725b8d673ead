package migration

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Manager orchestrates scanning and applying migrations.
type Manager struct {
	source Source
	target Target
	logger *slog.Logger
}

// NewManager creates a Manager. A nil logger falls back to slog.Default.
func NewManager(source Source, target Target, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{source: source, target: target, logger: logger.With("component", "migration")}
}

// Run applies every pending migration in version order and returns how
// many were applied.
func (m *Manager) Run(ctx context.Context) (int, error) {
	started := time.Now()

	if err := m.target.InitializeVersionTable(ctx); err != nil {
		m.logger.ErrorContext(ctx, "failed to initialize schema_migrations table", "error", err)
		return 0, fmt.Errorf("failed to initialize version table: %w", err)
	}

	status, err := m.Status(ctx)
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to resolve migration status", "error", err)
		return 0, err
	}

	if len(status.Pending) == 0 {
		m.logger.InfoContext(ctx, "database schema up to date", "version", status.CurrentVersion)
		return 0, nil
	}

	m.logger.InfoContext(ctx, "applying migrations", "current_version", status.CurrentVersion, "pending", len(status.Pending))

	for i, migration := range status.Pending {
		migrationStarted := time.Now()
		if err := m.target.ExecuteMigration(ctx, migration); err != nil {
			m.logger.ErrorContext(ctx, "migration failed",
				"version", migration.Version,
				"file", migration.FilePath,
				"error", err,
			)
			return i, NewMigrationError(migration.Version, migration.FilePath, "execute migration", fmt.Errorf("%w: %v", ErrMigrationFailed, err))
		}
		m.logger.InfoContext(ctx, "migration applied",
			"version", migration.Version,
			"description", migration.Description,
			"duration", time.Since(migrationStarted),
		)
	}

	m.logger.InfoContext(ctx, "migrations completed", "count", len(status.Pending), "duration", time.Since(started))
	return len(status.Pending), nil
}

// Status compares the available migrations with the applied ones.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	available, err := m.source.ScanMigrations()
	if err != nil {
		return Status{}, fmt.Errorf("failed to scan migrations: %w", err)
	}

	applied, err := m.target.GetAppliedVersions(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("failed to get applied versions: %w", err)
	}

	if err := validateSequence(available, applied); err != nil {
		return Status{}, err
	}

	appliedSet := make(map[string]struct{}, len(applied))
	current := ""
	for _, a := range applied {
		appliedSet[a.Version] = struct{}{}
		if current == "" || versionNumber(a.Version) > versionNumber(current) {
			current = a.Version
		}
	}

	status := Status{CurrentVersion: current, Applied: applied}
	for _, migration := range available {
		if _, ok := appliedSet[migration.Version]; !ok {
			status.Pending = append(status.Pending, migration)
		}
	}
	return status, nil
}

// validateSequence rejects gaps, applied versions without a file, and
// applied files whose content changed.
func validateSequence(available []Migration, applied []AppliedMigration) error {
	byVersion := make(map[int]Migration, len(available))
	for _, migration := range available {
		byVersion[versionNumber(migration.Version)] = migration
	}

	if len(available) > 0 {
		first := versionNumber(available[0].Version)
		last := versionNumber(available[len(available)-1].Version)
		for v := first; v <= last; v++ {
			if _, ok := byVersion[v]; !ok {
				return fmt.Errorf("%w: missing migration version %03d in sequence", ErrVersionConflict, v)
			}
		}
	}

	for _, a := range applied {
		migration, ok := byVersion[versionNumber(a.Version)]
		if !ok {
			return fmt.Errorf("%w: applied migration %s not found in available migrations", ErrVersionConflict, a.Version)
		}
		if a.Checksum != "" && a.Checksum != migration.Checksum {
			return NewMigrationError(a.Version, migration.FilePath, "verify checksum", ErrChecksumMismatch)
		}
	}
	return nil
}
