package sqlstore

import (
	"context"
	"fmt"

	"github.com/dukex/phasetrack/pkg/models"
	"github.com/dukex/phasetrack/pkg/persistence"
	"github.com/dukex/phasetrack/pkg/persistence/sqlbase"
)

const referenceColumns = `
	id
  , code
  , collection
  , product_line
  , current_phase
  , completed_at
  , archived_at
  , created_at
  , updated_at
`

// runner is satisfied by both the executor and a transaction in progress.
type runner interface {
	Query(ctx context.Context, query string, args ...any) (*sqlbase.Rows, error)
	Exec(ctx context.Context, query string, args ...any) (*sqlbase.Rows, error)
	Dialect() sqlbase.Dialect
}

// ReferenceRepository handles reference-related database operations.
type ReferenceRepository struct {
	db runner
}

// NewReferenceRepository creates a new reference repository.
func NewReferenceRepository(db runner) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

// GetByID returns a reference by its ID.
func (r *ReferenceRepository) GetByID(ctx context.Context, id int64) (*models.Reference, error) {
	return r.getOne(ctx, "GetByID", id, "SELECT"+referenceColumns+"FROM garment_references WHERE id = $1", id)
}

// GetByIDForUpdate returns a reference by its ID and locks the row for the running transaction.
func (r *ReferenceRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Reference, error) {
	query := "SELECT" + referenceColumns + "FROM garment_references WHERE id = $1" + r.db.Dialect().ForUpdate

	return r.getOne(ctx, "GetByIDForUpdate", id, query, id)
}

// GetByCode returns a reference by its unique code.
func (r *ReferenceRepository) GetByCode(ctx context.Context, code string) (*models.Reference, error) {
	rows, err := r.db.Query(ctx, "SELECT"+referenceColumns+"FROM garment_references WHERE code = $1", code)
	if err != nil {
		return nil, fmt.Errorf("failed to query reference: %w", err)
	}

	if rows.Len() == 0 {
		return nil, persistence.NewReferenceCodeError("GetByCode", code, persistence.ErrReferenceNotFound)
	}

	return scanReference(rows.First()), nil
}

func (r *ReferenceRepository) getOne(ctx context.Context, op string, id int64, query string, args ...any) (*models.Reference, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reference: %w", err)
	}

	if rows.Len() == 0 {
		return nil, persistence.NewReferenceError(op, id, persistence.ErrReferenceNotFound)
	}

	return scanReference(rows.First()), nil
}

// Create inserts a reference and sets its generated ID.
func (r *ReferenceRepository) Create(ctx context.Context, reference *models.Reference) error {
	query := `
		INSERT INTO garment_references (
			code, collection, product_line, current_phase, completed_at, archived_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	rows, err := r.db.Query(ctx, query,
		reference.Code,
		reference.Collection,
		reference.ProductLine,
		reference.CurrentPhase,
		reference.CompletedAt,
		reference.ArchivedAt,
		reference.CreatedAt,
		reference.UpdatedAt,
	)
	if err != nil {
		if sqlbase.IsUniqueViolation(err) {
			return persistence.NewReferenceCodeError("Create", reference.Code, persistence.ErrReferenceAlreadyExists)
		}

		return fmt.Errorf("failed to insert reference: %w", err)
	}

	reference.ID = rows.First().Int64("id")

	return nil
}

// Update persists the phase pointer and lifecycle timestamps of a reference.
func (r *ReferenceRepository) Update(ctx context.Context, reference *models.Reference) error {
	query := `
		UPDATE garment_references
		SET current_phase = $1, completed_at = $2, archived_at = $3, updated_at = $4
		WHERE id = $5
	`

	result, err := r.db.Exec(ctx, query,
		reference.CurrentPhase,
		reference.CompletedAt,
		reference.ArchivedAt,
		reference.UpdatedAt,
		reference.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update reference: %w", err)
	}

	if result.RowsAffected == 0 {
		return persistence.NewReferenceError("Update", reference.ID, persistence.ErrReferenceNotFound)
	}

	return nil
}

func scanReference(row sqlbase.Row) *models.Reference {
	reference := &models.Reference{
		ID:          row.Int64("id"),
		Code:        row.String("code"),
		Collection:  row.String("collection"),
		ProductLine: row.String("product_line"),
		CompletedAt: row.NullTime("completed_at"),
		ArchivedAt:  row.NullTime("archived_at"),
		CreatedAt:   row.Time("created_at"),
		UpdatedAt:   row.Time("updated_at"),
	}

	if !row.IsNull("current_phase") {
		phase := row.String("current_phase")
		reference.CurrentPhase = &phase
	}

	return reference
}
