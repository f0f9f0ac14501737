package services

import (
	"context"
	"fmt"

	"github.com/dukex/phasetrack/pkg/models"
	"github.com/dukex/phasetrack/pkg/persistence"
	"github.com/dukex/phasetrack/pkg/workflow"
)

// Timelines builds read-only timeline snapshots.
type Timelines struct {
	persistence persistence.Persistence
	catalog     *workflow.Catalog
	options
}

// NewTimelines creates a new timeline service.
func NewTimelines(persistence persistence.Persistence, catalog *workflow.Catalog, opts ...Option) *Timelines {
	return &Timelines{
		persistence: persistence,
		catalog:     catalog,
		options:     newOptions("timelines", opts),
	}
}

// Get returns the timeline of a reference as of now.
func (t *Timelines) Get(ctx context.Context, referenceID int64) (*models.Timeline, error) {
	if referenceID <= 0 {
		return nil, NewValidationError("GetTimeline", "invalid_reference_id", "reference id must be a positive number", ErrInvalidRequest)
	}

	reference, err := t.persistence.ReferenceByID(ctx, referenceID)
	if err != nil {
		return nil, err
	}

	line, err := t.catalog.Line(reference.ProductLine)
	if err != nil {
		return nil, newNotFoundError("GetTimeline", "phase_not_found",
			fmt.Sprintf("product line %s of reference %s is not in the catalog", reference.ProductLine, reference.Code),
			fmt.Errorf("%w: %w", ErrPhaseNotFound, err))
	}

	records, err := t.persistence.RecordsForReference(ctx, reference.ID)
	if err != nil {
		return nil, err
	}

	return workflow.BuildTimeline(*reference, line, records, t.now().UTC()), nil
}

// HealthCheck checks the health of the persistence layer.
func (t *Timelines) HealthCheck(ctx context.Context) (string, bool) {
	if t.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := t.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}
