package services

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/dukex/phasetrack/pkg/models"
	"github.com/dukex/phasetrack/pkg/persistence"
	"github.com/dukex/phasetrack/pkg/workflow"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// DefaultOverdueSchedule scans open phases every five minutes.
const DefaultOverdueSchedule = "@every 5m"

// OverdueMonitor announces each open phase once, the first time a scan finds it overdue.
type OverdueMonitor struct {
	persistence persistence.Persistence
	catalog     *workflow.Catalog
	notifier    Notifier
	options

	mu        sync.Mutex
	announced map[int64]bool // record id
}

// NewOverdueMonitor creates a new overdue monitor.
func NewOverdueMonitor(persistence persistence.Persistence, catalog *workflow.Catalog, notifier Notifier, opts ...Option) *OverdueMonitor {
	return &OverdueMonitor{
		persistence: persistence,
		catalog:     catalog,
		notifier:    notifier,
		options:     newOptions("overdue_monitor", opts),
		announced:   make(map[int64]bool),
	}
}

// Scan derives the status of every open record at instant now and returns how many
// phases were newly announced as overdue.
func (m *OverdueMonitor) Scan(ctx context.Context, now time.Time) (int, error) {
	records, err := m.persistence.OpenRecords(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load open records: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	references := make(map[int64]*models.Reference)
	open := make(map[int64]bool, len(records))
	announced := 0

	for _, record := range records {
		open[record.ID] = true

		if m.announced[record.ID] {
			continue
		}

		reference, ok := references[record.ReferenceID]
		if !ok {
			reference, err = m.persistence.ReferenceByID(ctx, record.ReferenceID)
			if err != nil {
				m.logger.WarnContext(ctx, "Skipping record of unreadable reference", "record_id", record.ID, "error", err)

				continue
			}

			references[record.ReferenceID] = reference
		}

		ordered, err := m.catalog.OrderedPhases(reference.ProductLine)
		if err != nil {
			continue
		}

		index := workflow.IndexOf(ordered, record.PhaseSlug)
		if index < 0 {
			continue
		}

		received := record.ReceivedAt
		view := models.PhaseView{PhaseTemplate: ordered[index], Index: index, ReceivedAt: &received}

		if workflow.DeriveStatus(view, reference.CurrentPhaseSlug(), ordered, now) != models.PhaseStatusOverdue {
			continue
		}

		m.announced[record.ID] = true
		announced++

		overdueAnnounced.Inc()

		publish(ctx, m.logger, m.notifier, models.ChangeEvent{
			ID:        uuid.NewString(),
			Kind:      models.ChangeStatusChanged,
			Type:      models.TypePhaseOverdue,
			EntityID:  strconv.FormatInt(reference.ID, 10),
			Timestamp: now,
			Tag:       ordered[index].Area,
			Payload: models.PhaseChange{
				ReferenceID:   reference.ID,
				ReferenceCode: reference.Code,
				PhaseSlug:     record.PhaseSlug,
				Status:        models.PhaseStatusOverdue,
				CurrentPhase:  reference.CurrentPhaseSlug(),
			},
		})
	}

	// Closed records can never be overdue again.
	for id := range m.announced {
		if !open[id] {
			delete(m.announced, id)
		}
	}

	return announced, nil
}

// Run scans on the cron schedule until ctx is canceled.
func (m *OverdueMonitor) Run(ctx context.Context, schedule string) error {
	if schedule == "" {
		schedule = DefaultOverdueSchedule
	}

	scheduler := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	_, err := scheduler.AddFunc(schedule, func() {
		count, err := m.Scan(ctx, m.now().UTC())
		if err != nil {
			m.logger.ErrorContext(ctx, "Overdue scan failed", "error", err)

			return
		}

		if count > 0 {
			m.logger.InfoContext(ctx, "Overdue phases announced", "count", count)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid overdue schedule %q: %w", schedule, err)
	}

	m.logger.InfoContext(ctx, "Overdue monitor started", "schedule", schedule)

	scheduler.Start()
	<-ctx.Done()
	<-scheduler.Stop().Done()

	return nil
}
