package eventbus

import (
	"context"

	"github.com/dukex/phasetrack/pkg/log"
	"github.com/dukex/phasetrack/pkg/models"
)

// LocalPublisher is the in-process side of the relay, usually a notifier.Broadcaster.
type LocalPublisher interface {
	Publish(ctx context.Context, event models.ChangeEvent) error
}

// Notifier lets services announce changes through the bus instead of a local broadcaster.
type Notifier struct {
	bus EventPublisher
}

func NewNotifier(bus EventPublisher) *Notifier {
	return &Notifier{bus: bus}
}

func (n *Notifier) Publish(ctx context.Context, event models.ChangeEvent) error {
	return n.bus.Publish(ctx, event)
}

// Forward feeds every bus event into local and blocks until ctx is canceled.
// A local delivery failure is logged with the logger carried by ctx and the
// event is dropped, so one closed listener never stalls the bus.
func Forward(ctx context.Context, bus EventSubscriber, local LocalPublisher) error {
	logger := log.FromContext(ctx).With("module", "event_relay")

	err := bus.Subscribe(ctx, func(ctx context.Context, event models.ChangeEvent) error {
		if err := local.Publish(ctx, event); err != nil {
			logger.WarnContext(ctx, "Failed to deliver bus event locally", "event_id", event.ID, "type", event.Type, "error", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	<-ctx.Done()

	return nil
}
