package sqlstore

import (
	"context"
	"fmt"

	"github.com/dukex/phasetrack/pkg/models"
	"github.com/dukex/phasetrack/pkg/persistence"
	"github.com/dukex/phasetrack/pkg/persistence/sqlbase"
)

const recordColumns = `
	r.id
  , r.reference_id
  , r.phase_slug
  , r.responsible_user
  , r.received_at
  , r.delivered_at
  , r.status
  , r.notes
  , r.actual_hours
  , r.created_at
  , r.updated_at
`

// RecordRepository handles traceability records and their action events.
type RecordRepository struct {
	db runner
}

// NewRecordRepository creates a new record repository.
func NewRecordRepository(db runner) *RecordRepository {
	return &RecordRepository{db: db}
}

// ForReference returns every record of a reference with its events, oldest first.
func (r *RecordRepository) ForReference(ctx context.Context, referenceID int64) ([]*models.TraceabilityRecord, error) {
	query := "SELECT" + recordColumns + `
		FROM traceability_records r
		WHERE r.reference_id = $1
		ORDER BY r.received_at, r.id
	`

	rows, err := r.db.Query(ctx, query, referenceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query traceability records: %w", err)
	}

	records := make([]*models.TraceabilityRecord, 0, rows.Len())
	byID := make(map[int64]*models.TraceabilityRecord, rows.Len())

	for _, row := range rows.Records {
		record := scanRecord(row)
		records = append(records, record)
		byID[record.ID] = record
	}

	if len(records) == 0 {
		return records, nil
	}

	events, err := r.db.Query(ctx, `
		SELECT e.id, e.record_id, e.type, e.at, e.acting_user, e.notes
		FROM action_events e
		JOIN traceability_records r ON r.id = e.record_id
		WHERE r.reference_id = $1
		ORDER BY e.at, e.id
	`, referenceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query action events: %w", err)
	}

	for _, row := range events.Records {
		event := scanEvent(row)
		if record, ok := byID[event.RecordID]; ok {
			record.Events = append(record.Events, event)
		}
	}

	return records, nil
}

// Open returns the open record of a phase.
func (r *RecordRepository) Open(ctx context.Context, referenceID int64, phaseSlug string) (*models.TraceabilityRecord, error) {
	query := "SELECT" + recordColumns + `
		FROM traceability_records r
		WHERE r.reference_id = $1 AND r.phase_slug = $2 AND r.delivered_at IS NULL
		ORDER BY r.received_at DESC, r.id DESC
		LIMIT 1
	`

	rows, err := r.db.Query(ctx, query, referenceID, phaseSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to query open record: %w", err)
	}

	if rows.Len() == 0 {
		return nil, &persistence.RecordError{
			Op:          "Open",
			ReferenceID: referenceID,
			PhaseSlug:   phaseSlug,
			Err:         persistence.ErrRecordNotFound,
		}
	}

	return scanRecord(rows.First()), nil
}

// AllOpen returns the open records of every reference that is not archived.
func (r *RecordRepository) AllOpen(ctx context.Context) ([]*models.TraceabilityRecord, error) {
	query := "SELECT" + recordColumns + `
		FROM traceability_records r
		JOIN garment_references g ON g.id = r.reference_id
		WHERE r.delivered_at IS NULL AND g.archived_at IS NULL
		ORDER BY r.received_at, r.id
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query open records: %w", err)
	}

	records := make([]*models.TraceabilityRecord, 0, rows.Len())
	for _, row := range rows.Records {
		records = append(records, scanRecord(row))
	}

	return records, nil
}

// Create inserts an open record and sets its generated ID.
func (r *RecordRepository) Create(ctx context.Context, record *models.TraceabilityRecord) error {
	query := `
		INSERT INTO traceability_records (
			reference_id, phase_slug, responsible_user, received_at, delivered_at,
			status, notes, actual_hours, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	rows, err := r.db.Query(ctx, query,
		record.ReferenceID,
		record.PhaseSlug,
		record.ResponsibleUser,
		record.ReceivedAt,
		record.DeliveredAt,
		string(record.Status),
		record.Notes,
		record.ActualHours,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert traceability record: %w", err)
	}

	record.ID = rows.First().Int64("id")

	return nil
}

// Close marks an open record as delivered or returned.
func (r *RecordRepository) Close(ctx context.Context, record *models.TraceabilityRecord) error {
	query := `
		UPDATE traceability_records
		SET responsible_user = $1, delivered_at = $2, status = $3, actual_hours = $4, notes = $5, updated_at = $6
		WHERE id = $7 AND delivered_at IS NULL
	`

	result, err := r.db.Exec(ctx, query,
		record.ResponsibleUser,
		record.DeliveredAt,
		string(record.Status),
		record.ActualHours,
		record.Notes,
		record.UpdatedAt,
		record.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to close traceability record: %w", err)
	}

	if result.RowsAffected == 0 {
		return &persistence.RecordError{
			Op:          "Close",
			ReferenceID: record.ReferenceID,
			PhaseSlug:   record.PhaseSlug,
			Err:         persistence.ErrRecordNotFound,
		}
	}

	return nil
}

// AppendEvent inserts an action event and sets its generated ID.
func (r *RecordRepository) AppendEvent(ctx context.Context, event *models.ActionEvent) error {
	query := `
		INSERT INTO action_events (record_id, type, at, acting_user, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	rows, err := r.db.Query(ctx, query, event.RecordID, string(event.Type), event.At, event.ActingUser, event.Notes)
	if err != nil {
		return fmt.Errorf("failed to insert action event: %w", err)
	}

	event.ID = rows.First().Int64("id")

	return nil
}

func scanRecord(row sqlbase.Row) *models.TraceabilityRecord {
	return &models.TraceabilityRecord{
		ID:              row.Int64("id"),
		ReferenceID:     row.Int64("reference_id"),
		PhaseSlug:       row.String("phase_slug"),
		ResponsibleUser: row.String("responsible_user"),
		ReceivedAt:      row.Time("received_at"),
		DeliveredAt:     row.NullTime("delivered_at"),
		Status:          models.RecordStatus(row.String("status")),
		Notes:           row.String("notes"),
		ActualHours:     row.NullFloat("actual_hours"),
		CreatedAt:       row.Time("created_at"),
		UpdatedAt:       row.Time("updated_at"),
	}
}

func scanEvent(row sqlbase.Row) models.ActionEvent {
	return models.ActionEvent{
		ID:         row.Int64("id"),
		RecordID:   row.Int64("record_id"),
		Type:       models.ActionType(row.String("type")),
		At:         row.Time("at"),
		ActingUser: row.String("acting_user"),
		Notes:      row.String("notes"),
	}
}
