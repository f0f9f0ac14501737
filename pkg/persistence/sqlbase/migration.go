package sqlbase

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

// MigrationManager handles database schema migrations.
type MigrationManager struct {
	executor   *Executor
	logger     *slog.Logger
	migrations map[int]string
}

// NewMigrationManager creates a new migration manager. Each migration may hold
// several statements separated by semicolons.
func NewMigrationManager(logger *slog.Logger, executor *Executor, migrations map[int]string) *MigrationManager {
	return &MigrationManager{
		executor:   executor,
		logger:     logger,
		migrations: migrations,
	}
}

// RunMigrations handles database schema creation and updates.
func (m *MigrationManager) RunMigrations(ctx context.Context) error {
	m.logger.InfoContext(ctx, "Starting database migrations")

	err := m.createMigrationsTable(ctx)
	if err != nil {
		return err
	}

	currentVersion, err := m.CurrentVersion(ctx)
	if err != nil {
		return err
	}

	m.logger.InfoContext(ctx, "Current schema version", "version", currentVersion)

	latest, err := m.applyMigrations(ctx, currentVersion)
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	m.logger.InfoContext(ctx, "Database migrations completed", "version", latest)

	return nil
}

func (m *MigrationManager) createMigrationsTable(ctx context.Context) error {
	createMigrationsSQL := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`

	_, err := m.executor.Exec(ctx, createMigrationsSQL)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	return nil
}

// CurrentVersion returns the highest applied migration version.
func (m *MigrationManager) CurrentVersion(ctx context.Context) (int, error) {
	rows, err := m.executor.Query(ctx, "SELECT COALESCE(MAX(version), 0) AS version FROM schema_migrations")
	if err != nil {
		return 0, fmt.Errorf("failed to query current schema version: %w", err)
	}

	return int(rows.First().Int64("version")), nil
}

// applyMigrations applies, in ascending order, every migration newer than fromVersion.
func (m *MigrationManager) applyMigrations(ctx context.Context, fromVersion int) (int, error) {
	versions := make([]int, 0, len(m.migrations))
	for version := range m.migrations {
		versions = append(versions, version)
	}

	slices.Sort(versions)

	latest := fromVersion

	for _, version := range versions {
		if version <= fromVersion {
			continue
		}

		m.logger.InfoContext(ctx, "Applying migration", "version", version)

		err := m.executor.InTx(ctx, func(ctx context.Context, tx *Tx) error {
			for _, statement := range splitStatements(m.migrations[version]) {
				_, err := tx.Exec(ctx, statement)
				if err != nil {
					return fmt.Errorf("failed to execute migration %d: %w", version, err)
				}
			}

			_, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", version)
			if err != nil {
				return fmt.Errorf("failed to record migration %d: %w", version, err)
			}

			return nil
		})
		if err != nil {
			return latest, err
		}

		latest = version

		m.logger.InfoContext(ctx, "Migration applied successfully", "version", version)
	}

	return latest, nil
}

func splitStatements(migration string) []string {
	var statements []string

	for _, statement := range strings.Split(migration, ";") {
		if strings.TrimSpace(stripComments(statement)) == "" {
			continue
		}

		statements = append(statements, statement)
	}

	return statements
}

func stripComments(statement string) string {
	lines := strings.Split(statement, "\n")
	kept := lines[:0]

	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}

		kept = append(kept, line)
	}

	return strings.Join(kept, "\n")
}
