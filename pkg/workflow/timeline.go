package workflow

import (
	"slices"
	"time"

	"github.com/dukex/phasetrack/pkg/metrics"
	"github.com/dukex/phasetrack/pkg/models"
)

// BuildPhaseViews joins the catalog of a product line with the records of a reference.
// The latest attempt of each phase (by received time, then id) is the one displayed.
func BuildPhaseViews(line models.ProductLine, currentPhaseSlug string, records []*models.TraceabilityRecord, now time.Time) []models.PhaseView {
	ordered := line.OrderedPhases()

	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b *models.TraceabilityRecord) int {
		if c := a.ReceivedAt.Compare(b.ReceivedAt); c != 0 {
			return c
		}

		return int(a.ID - b.ID)
	})

	latest := make(map[string]*models.TraceabilityRecord, len(ordered))
	attempts := make(map[string]int, len(ordered))

	for _, record := range sorted {
		latest[record.PhaseSlug] = record
		attempts[record.PhaseSlug]++
	}

	views := make([]models.PhaseView, 0, len(ordered))

	for i, template := range ordered {
		view := models.PhaseView{
			PhaseTemplate: template,
			Index:         i,
			Attempts:      attempts[template.Slug],
		}

		if record, ok := latest[template.Slug]; ok {
			received := record.ReceivedAt
			view.RecordID = record.ID
			view.ResponsibleUser = record.ResponsibleUser
			view.ReceivedAt = &received
			view.DeliveredAt = record.DeliveredAt
			view.ActualHours = record.ActualHours
			view.LastAction = record.LastAction()
		}

		view.Status = DeriveStatus(view, currentPhaseSlug, ordered, now)
		views = append(views, view)
	}

	return views
}

// BuildTimeline assembles the full snapshot of a reference at instant now.
func BuildTimeline(reference models.Reference, line models.ProductLine, records []*models.TraceabilityRecord, now time.Time) *models.Timeline {
	phases := BuildPhaseViews(line, reference.CurrentPhaseSlug(), records, now)
	stages := GroupByStage(phases, line.Stages)

	return &models.Timeline{
		Reference:   reference,
		Phases:      phases,
		Stages:      stages,
		Summary:     metrics.Summarize(phases, stages, now),
		GeneratedAt: now,
	}
}
