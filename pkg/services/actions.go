package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dukex/phasetrack/pkg/metrics"
	"github.com/dukex/phasetrack/pkg/models"
	"github.com/dukex/phasetrack/pkg/otelhelper"
	"github.com/dukex/phasetrack/pkg/persistence"
	"github.com/dukex/phasetrack/pkg/workflow"
	"github.com/google/uuid"
)

// ActionRequest asks to deliver or return the current phase of a reference.
type ActionRequest struct {
	ReferenceID int64
	PhaseSlug   string
	Action      models.ActionType
	ActingUser  string
	Notes       string
}

// Actions applies deliver and return actions.
type Actions struct {
	persistence persistence.Persistence
	catalog     *workflow.Catalog
	notifier    Notifier
	options
}

// NewActions creates a new action processor.
func NewActions(persistence persistence.Persistence, catalog *workflow.Catalog, notifier Notifier, opts ...Option) *Actions {
	return &Actions{
		persistence: persistence,
		catalog:     catalog,
		notifier:    notifier,
		options:     newOptions("actions", opts),
	}
}

// transition is what a committed action changed, used to build the change event.
type transition struct {
	reference *models.Reference
	phase     models.PhaseTemplate
	status    models.PhaseStatus
	eventType string
}

// Apply validates the request and applies it in a single transaction. The returned
// timeline reflects the committed state, so callers do not need to re-fetch.
func (a *Actions) Apply(ctx context.Context, req ActionRequest) (*models.Timeline, error) {
	ctx, span := otelhelper.StartSpan(ctx, a.tracer, "actions.apply",
		otelhelper.PhaseAttributes(req.ReferenceID, req.PhaseSlug, string(req.Action), req.ActingUser)...)
	defer span.End()

	timeline, change, err := a.apply(ctx, req)

	actionsTotal.WithLabelValues(string(req.Action), outcomeLabel(err)).Inc()

	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	a.logger.InfoContext(ctx, "Action applied",
		"reference_id", req.ReferenceID,
		"phase", req.PhaseSlug,
		"action", req.Action,
		"acting_user", req.ActingUser,
		"current_phase", change.reference.CurrentPhaseSlug())

	publish(ctx, a.logger, a.notifier, models.ChangeEvent{
		ID:        uuid.NewString(),
		Kind:      models.ChangeStatusChanged,
		Type:      change.eventType,
		EntityID:  strconv.FormatInt(change.reference.ID, 10),
		Timestamp: timeline.GeneratedAt,
		Tag:       change.phase.Area,
		Payload: models.PhaseChange{
			ReferenceID:   change.reference.ID,
			ReferenceCode: change.reference.Code,
			PhaseSlug:     change.phase.Slug,
			Action:        req.Action,
			Status:        change.status,
			CurrentPhase:  change.reference.CurrentPhaseSlug(),
			ActingUser:    req.ActingUser,
		},
	})

	return timeline, nil
}

func (a *Actions) apply(ctx context.Context, req ActionRequest) (*models.Timeline, *transition, error) {
	err := validateActionRequest(req)
	if err != nil {
		return nil, nil, err
	}

	var (
		timeline *models.Timeline
		change   *transition
	)

	err = a.persistence.Atomically(ctx, func(ctx context.Context, tx persistence.Tx) error {
		reference, err := tx.ReferenceForUpdate(ctx, req.ReferenceID)
		if err != nil {
			return err
		}

		line, ordered, phase, err := a.checkTransition(reference, req)
		if err != nil {
			return err
		}

		record, err := tx.OpenRecord(ctx, reference.ID, phase.Slug)
		if err != nil {
			if persistence.IsRecordNotFound(err) {
				return &ServiceError{
					Op:      "Apply",
					Code:    "no_open_phase",
					Message: fmt.Sprintf("phase %s of reference %d has no open record", phase.Slug, reference.ID),
					Err:     ErrNoOpenPhase,
				}
			}

			return err
		}

		now := a.timestamp()

		err = tx.AppendEvent(ctx, &models.ActionEvent{
			RecordID:   record.ID,
			Type:       req.Action,
			At:         now,
			ActingUser: req.ActingUser,
			Notes:      strings.TrimSpace(req.Notes),
		})
		if err != nil {
			return err
		}

		switch req.Action {
		case models.ActionDeliver:
			change, err = a.deliver(ctx, tx, reference, record, ordered, phase, req, now)
		case models.ActionReturn:
			change, err = a.rewind(ctx, tx, reference, record, ordered, phase, req, now)
		}

		if err != nil {
			return err
		}

		records, err := tx.RecordsForReference(ctx, reference.ID)
		if err != nil {
			return err
		}

		timeline = workflow.BuildTimeline(*reference, line, records, now)

		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return timeline, change, nil
}

// checkTransition resolves the phase and rejects actions on anything but the current phase.
func (a *Actions) checkTransition(reference *models.Reference, req ActionRequest) (models.ProductLine, []models.PhaseTemplate, models.PhaseTemplate, error) {
	if reference.IsArchived() {
		return models.ProductLine{}, nil, models.PhaseTemplate{}, newTransitionError("Apply",
			fmt.Sprintf("reference %s is archived", reference.Code))
	}

	line, err := a.catalog.Line(reference.ProductLine)
	if err != nil {
		return models.ProductLine{}, nil, models.PhaseTemplate{}, newNotFoundError("Apply", "phase_not_found",
			fmt.Sprintf("product line %s of reference %s is not in the catalog", reference.ProductLine, reference.Code),
			fmt.Errorf("%w: %w", ErrPhaseNotFound, err))
	}

	ordered := line.OrderedPhases()

	phase, ok := workflow.Find(ordered, req.PhaseSlug)
	if !ok {
		return models.ProductLine{}, nil, models.PhaseTemplate{}, newNotFoundError("Apply", "phase_not_found",
			fmt.Sprintf("phase %s does not exist in product line %s", req.PhaseSlug, line.Slug), ErrPhaseNotFound)
	}

	current := reference.CurrentPhaseSlug()

	switch {
	case current == "":
		return models.ProductLine{}, nil, models.PhaseTemplate{}, newTransitionError("Apply",
			fmt.Sprintf("reference %s already completed every phase", reference.Code))
	case current != phase.Slug:
		return models.ProductLine{}, nil, models.PhaseTemplate{}, newTransitionError("Apply",
			fmt.Sprintf("phase %s is not the current phase of reference %s (current: %s)", phase.Slug, reference.Code, current))
	}

	if req.Action == models.ActionReturn {
		if _, ok := workflow.Previous(ordered, phase.Slug); !ok {
			return models.ProductLine{}, nil, models.PhaseTemplate{}, newTransitionError("Apply",
				fmt.Sprintf("phase %s is the first phase and cannot be returned", phase.Slug))
		}
	}

	return line, ordered, phase, nil
}

func (a *Actions) deliver(ctx context.Context, tx persistence.Tx, reference *models.Reference, record *models.TraceabilityRecord,
	ordered []models.PhaseTemplate, phase models.PhaseTemplate, req ActionRequest, now time.Time,
) (*transition, error) {
	hours := metrics.HoursBetween(record.ReceivedAt, now)

	closeRecord(record, models.RecordStatusCompleted, req, now)
	record.ActualHours = &hours

	err := tx.CloseRecord(ctx, record)
	if err != nil {
		return nil, err
	}

	change := &transition{
		reference: reference,
		phase:     phase,
		status:    models.PhaseStatusCompleted,
		eventType: models.TypePhaseDelivered,
	}

	next, ok := workflow.Next(ordered, phase.Slug)
	if ok {
		err = a.receive(ctx, tx, reference, next, now)
		if err != nil {
			return nil, err
		}
	} else {
		reference.CurrentPhase = nil
		reference.CompletedAt = &now
		change.eventType = models.TypeReferenceCompleted
	}

	reference.UpdatedAt = now

	return change, tx.UpdateReference(ctx, reference)
}

func (a *Actions) rewind(ctx context.Context, tx persistence.Tx, reference *models.Reference, record *models.TraceabilityRecord,
	ordered []models.PhaseTemplate, phase models.PhaseTemplate, req ActionRequest, now time.Time,
) (*transition, error) {
	previous, _ := workflow.Previous(ordered, phase.Slug)
	hours := metrics.HoursBetween(record.ReceivedAt, now)

	closeRecord(record, models.RecordStatusReturned, req, now)
	record.ActualHours = &hours

	err := tx.CloseRecord(ctx, record)
	if err != nil {
		return nil, err
	}

	err = a.receive(ctx, tx, reference, previous, now)
	if err != nil {
		return nil, err
	}

	reference.UpdatedAt = now

	err = tx.UpdateReference(ctx, reference)
	if err != nil {
		return nil, err
	}

	return &transition{
		reference: reference,
		phase:     phase,
		status:    models.PhaseStatusReturned,
		eventType: models.TypePhaseReturned,
	}, nil
}

// receive makes phase the current phase of the reference and opens its record.
func (a *Actions) receive(ctx context.Context, tx persistence.Tx, reference *models.Reference, phase models.PhaseTemplate, now time.Time) error {
	slug := phase.Slug
	reference.CurrentPhase = &slug

	return tx.CreateRecord(ctx, &models.TraceabilityRecord{
		ReferenceID: reference.ID,
		PhaseSlug:   phase.Slug,
		ReceivedAt:  now,
		Status:      models.RecordStatusInProgress,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func closeRecord(record *models.TraceabilityRecord, status models.RecordStatus, req ActionRequest, now time.Time) {
	record.DeliveredAt = &now
	record.Status = status
	record.UpdatedAt = now

	if record.ResponsibleUser == "" {
		record.ResponsibleUser = req.ActingUser
	}

	if notes := strings.TrimSpace(req.Notes); notes != "" {
		record.Notes = notes
	}
}

func validateActionRequest(req ActionRequest) error {
	switch {
	case req.ReferenceID <= 0:
		return NewValidationError("Apply", "invalid_reference_id", "reference id must be a positive number", ErrInvalidRequest)
	case strings.TrimSpace(req.PhaseSlug) == "":
		return NewValidationError("Apply", "missing_phase", "phase slug is required", ErrInvalidRequest)
	case !req.Action.IsValid():
		return NewValidationError("Apply", "invalid_action",
			fmt.Sprintf("action %q is not one of deliver, return", req.Action), ErrInvalidAction)
	case strings.TrimSpace(req.ActingUser) == "":
		return NewValidationError("Apply", "missing_acting_user", "acting user is required", ErrInvalidRequest)
	case req.Action == models.ActionReturn && strings.TrimSpace(req.Notes) == "":
		return NewValidationError("Apply", "notes_required", "a return must be justified with notes", ErrNotesRequired)
	}

	return nil
}
