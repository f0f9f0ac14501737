// Package persistence provides the data storage abstraction for references, traceability records and users.
package persistence

import (
	"context"

	"github.com/dukex/phasetrack/pkg/models"
)

// Persistence is the read side and the transaction boundary of the store.
type Persistence interface {
	ReferenceByID(ctx context.Context, id int64) (*models.Reference, error)
	ReferenceByCode(ctx context.Context, code string) (*models.Reference, error)
	RecordsForReference(ctx context.Context, referenceID int64) ([]*models.TraceabilityRecord, error)
	OpenRecords(ctx context.Context) ([]*models.TraceabilityRecord, error)

	Users(ctx context.Context) ([]*models.User, error)
	UserByID(ctx context.Context, id int64) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id int64) error

	// Atomically runs fn in a single transaction. Returning an error rolls every write back.
	Atomically(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// Tx is the set of reads and writes available inside a transaction.
type Tx interface {
	// ReferenceForUpdate loads a reference and locks its row until the transaction ends.
	ReferenceForUpdate(ctx context.Context, id int64) (*models.Reference, error)
	CreateReference(ctx context.Context, reference *models.Reference) error
	UpdateReference(ctx context.Context, reference *models.Reference) error

	// OpenRecord returns the record of a phase that was received and not delivered.
	OpenRecord(ctx context.Context, referenceID int64, phaseSlug string) (*models.TraceabilityRecord, error)
	CreateRecord(ctx context.Context, record *models.TraceabilityRecord) error
	CloseRecord(ctx context.Context, record *models.TraceabilityRecord) error
	AppendEvent(ctx context.Context, event *models.ActionEvent) error
	RecordsForReference(ctx context.Context, referenceID int64) ([]*models.TraceabilityRecord, error)
}
