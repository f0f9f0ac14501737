package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/phasetrack/pkg/models"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

const DefaultHeartbeatInterval = 30 * time.Second

// Publisher accepts change events.
type Publisher interface {
	Publish(ctx context.Context, event models.ChangeEvent) error
}

// Heartbeat keeps idle streams alive by publishing a heartbeat event on a fixed interval.
type Heartbeat struct {
	publisher Publisher
	interval  time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewHeartbeat creates a heartbeat job. A non-positive interval selects the default.
func NewHeartbeat(publisher Publisher, interval time.Duration, logger *slog.Logger) *Heartbeat {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}

	return &Heartbeat{
		publisher: publisher,
		interval:  interval,
		logger:    logger.With("module", "heartbeat"),
		now:       time.Now,
	}
}

// Beat publishes one heartbeat.
func (h *Heartbeat) Beat(ctx context.Context) error {
	return h.publisher.Publish(ctx, models.ChangeEvent{
		ID:        uuid.NewString(),
		Kind:      models.ChangeHeartbeat,
		Type:      models.TypeHeartbeat,
		Timestamp: h.now().UTC(),
	})
}

// Run beats until ctx is canceled.
func (h *Heartbeat) Run(ctx context.Context) error {
	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))

	_, err := scheduler.AddFunc(fmt.Sprintf("@every %s", h.interval), func() {
		err := h.Beat(ctx)
		if err != nil && ctx.Err() == nil {
			h.logger.WarnContext(ctx, "Heartbeat not published", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule heartbeat: %w", err)
	}

	h.logger.InfoContext(ctx, "Heartbeat started", "interval", h.interval)

	scheduler.Start()
	<-ctx.Done()
	<-scheduler.Stop().Done()

	return nil
}
