package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dukex/phasetrack/pkg/models"
	"github.com/dukex/phasetrack/pkg/persistence"
	"github.com/dukex/phasetrack/pkg/workflow"
	"github.com/google/uuid"
)

// RegisterReferenceRequest describes a new reference.
type RegisterReferenceRequest struct {
	Code        string
	Collection  string
	ProductLine string // empty selects the catalog default
}

// References registers, looks up and archives references.
type References struct {
	persistence persistence.Persistence
	catalog     *workflow.Catalog
	timelines   *Timelines
	notifier    Notifier
	options
}

// NewReferences creates a new reference service.
func NewReferences(persistence persistence.Persistence, catalog *workflow.Catalog, notifier Notifier, opts ...Option) *References {
	return &References{
		persistence: persistence,
		catalog:     catalog,
		timelines:   NewTimelines(persistence, catalog, opts...),
		notifier:    notifier,
		options:     newOptions("references", opts),
	}
}

// Register stores a reference positioned at the first phase of its product line
// and opens the record of that phase.
func (r *References) Register(ctx context.Context, req RegisterReferenceRequest) (*models.Timeline, error) {
	code := strings.TrimSpace(req.Code)
	collection := strings.TrimSpace(req.Collection)

	if code == "" || collection == "" {
		return nil, NewValidationError("Register", "missing_fields", "code and collection are required", ErrInvalidRequest)
	}

	line, err := r.catalog.Line(req.ProductLine)
	if err != nil {
		return nil, NewValidationError("Register", "unknown_product_line",
			fmt.Sprintf("product line %q is not in the catalog", req.ProductLine), ErrInvalidRequest)
	}

	ordered := line.OrderedPhases()
	if len(ordered) == 0 {
		return nil, NewValidationError("Register", "empty_product_line",
			fmt.Sprintf("product line %q has no phases", line.Slug), ErrInvalidRequest)
	}

	now := r.timestamp()
	first := ordered[0].Slug
	reference := &models.Reference{
		Code:         code,
		Collection:   collection,
		ProductLine:  line.Slug,
		CurrentPhase: &first,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = r.persistence.Atomically(ctx, func(ctx context.Context, tx persistence.Tx) error {
		err := tx.CreateReference(ctx, reference)
		if err != nil {
			return err
		}

		return tx.CreateRecord(ctx, &models.TraceabilityRecord{
			ReferenceID: reference.ID,
			PhaseSlug:   first,
			ReceivedAt:  now,
			Status:      models.RecordStatusInProgress,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	})
	if err != nil {
		return nil, err
	}

	r.logger.InfoContext(ctx, "Reference registered", "reference_id", reference.ID, "code", reference.Code)

	publish(ctx, r.logger, r.notifier, models.ChangeEvent{
		ID:        uuid.NewString(),
		Kind:      models.ChangeCreated,
		Type:      models.TypeReferenceCreated,
		EntityID:  strconv.FormatInt(reference.ID, 10),
		Payload:   reference,
		Timestamp: now,
		Tag:       ordered[0].Area,
	})

	return r.timelines.Get(ctx, reference.ID)
}

// ByCode looks a reference up by its unique code.
func (r *References) ByCode(ctx context.Context, code string) (*models.Reference, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, NewValidationError("ByCode", "missing_code", "code is required", ErrInvalidRequest)
	}

	return r.persistence.ReferenceByCode(ctx, code)
}

// Archive soft-archives a reference. Archiving an archived reference returns it unchanged.
func (r *References) Archive(ctx context.Context, id int64) (*models.Reference, error) {
	if id <= 0 {
		return nil, NewValidationError("Archive", "invalid_reference_id", "reference id must be a positive number", ErrInvalidRequest)
	}

	var (
		reference *models.Reference
		changed   bool
	)

	err := r.persistence.Atomically(ctx, func(ctx context.Context, tx persistence.Tx) error {
		var err error

		reference, err = tx.ReferenceForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if reference.IsArchived() {
			return nil
		}

		now := r.timestamp()
		reference.ArchivedAt = &now
		reference.UpdatedAt = now
		changed = true

		return tx.UpdateReference(ctx, reference)
	})
	if err != nil {
		return nil, err
	}

	if changed {
		publish(ctx, r.logger, r.notifier, models.ChangeEvent{
			ID:        uuid.NewString(),
			Kind:      models.ChangeUpdated,
			Type:      models.TypeReferenceArchived,
			EntityID:  strconv.FormatInt(reference.ID, 10),
			Payload:   reference,
			Timestamp: reference.UpdatedAt,
		})
	}

	return reference, nil
}
