// Package sqlstore implements the traceability persistence on top of the pooled SQL executor,
// for PostgreSQL (lib/pq or pgx) and SQLite.
package sqlstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/phasetrack/pkg/models"
	"github.com/dukex/phasetrack/pkg/persistence"
	"github.com/dukex/phasetrack/pkg/persistence/sqlbase"
)

// Persistence implements persistence.Persistence over SQL.
type Persistence struct {
	executor   *sqlbase.Executor
	logger     *slog.Logger
	references *ReferenceRepository
	records    *RecordRepository
	users      *UserRepository
}

var _ persistence.Persistence = (*Persistence)(nil)

// NewPersistence creates the store and brings its schema up to date.
func NewPersistence(ctx context.Context, logger *slog.Logger, config sqlbase.Config) (*Persistence, error) {
	executor, err := sqlbase.NewExecutor(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create executor: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, executor, migrations(executor.Dialect()))

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		_ = executor.Close(ctx)

		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		executor:   executor,
		logger:     logger.With("module", "sqlstore"),
		references: NewReferenceRepository(executor),
		records:    NewRecordRepository(executor),
		users:      NewUserRepository(executor),
	}, nil
}

// Executor exposes the underlying executor.
func (p *Persistence) Executor() *sqlbase.Executor {
	return p.executor
}

// Close closes the connection pool.
func (p *Persistence) Close(ctx context.Context) error {
	return p.executor.Close(ctx)
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	return p.executor.Ping(ctx)
}

func (p *Persistence) ReferenceByID(ctx context.Context, id int64) (*models.Reference, error) {
	return p.references.GetByID(ctx, id)
}

func (p *Persistence) ReferenceByCode(ctx context.Context, code string) (*models.Reference, error) {
	return p.references.GetByCode(ctx, code)
}

func (p *Persistence) RecordsForReference(ctx context.Context, referenceID int64) ([]*models.TraceabilityRecord, error) {
	return p.records.ForReference(ctx, referenceID)
}

func (p *Persistence) OpenRecords(ctx context.Context) ([]*models.TraceabilityRecord, error) {
	return p.records.AllOpen(ctx)
}

func (p *Persistence) Users(ctx context.Context) ([]*models.User, error) {
	return p.users.GetAll(ctx)
}

func (p *Persistence) UserByID(ctx context.Context, id int64) (*models.User, error) {
	return p.users.GetByID(ctx, id)
}

func (p *Persistence) CreateUser(ctx context.Context, user *models.User) error {
	return p.users.Create(ctx, user)
}

func (p *Persistence) UpdateUser(ctx context.Context, user *models.User) error {
	return p.users.Update(ctx, user)
}

func (p *Persistence) DeleteUser(ctx context.Context, id int64) error {
	return p.users.Delete(ctx, id)
}

// Atomically runs fn inside one database transaction.
func (p *Persistence) Atomically(ctx context.Context, fn func(ctx context.Context, tx persistence.Tx) error) error {
	return p.executor.InTx(ctx, func(ctx context.Context, tx *sqlbase.Tx) error {
		return fn(ctx, &transaction{
			references: NewReferenceRepository(tx),
			records:    NewRecordRepository(tx),
		})
	})
}

type transaction struct {
	references *ReferenceRepository
	records    *RecordRepository
}

func (t *transaction) ReferenceForUpdate(ctx context.Context, id int64) (*models.Reference, error) {
	return t.references.GetByIDForUpdate(ctx, id)
}

func (t *transaction) CreateReference(ctx context.Context, reference *models.Reference) error {
	return t.references.Create(ctx, reference)
}

func (t *transaction) UpdateReference(ctx context.Context, reference *models.Reference) error {
	return t.references.Update(ctx, reference)
}

func (t *transaction) OpenRecord(ctx context.Context, referenceID int64, phaseSlug string) (*models.TraceabilityRecord, error) {
	return t.records.Open(ctx, referenceID, phaseSlug)
}

func (t *transaction) CreateRecord(ctx context.Context, record *models.TraceabilityRecord) error {
	return t.records.Create(ctx, record)
}

func (t *transaction) CloseRecord(ctx context.Context, record *models.TraceabilityRecord) error {
	return t.records.Close(ctx, record)
}

func (t *transaction) AppendEvent(ctx context.Context, event *models.ActionEvent) error {
	return t.records.AppendEvent(ctx, event)
}

func (t *transaction) RecordsForReference(ctx context.Context, referenceID int64) ([]*models.TraceabilityRecord, error) {
	return t.records.ForReference(ctx, referenceID)
}
