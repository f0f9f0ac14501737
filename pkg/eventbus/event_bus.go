// Package eventbus relays change events between API instances so that a subscriber
// connected to any instance sees changes committed on every instance.
package eventbus

import (
	"context"

	"github.com/dukex/phasetrack/pkg/models"
)

const (
	Topic = "phasetrack.changes"

	EventIDMetadataKey   = "phasetrack_event_id"
	EventKindMetadataKey = "phasetrack_event_kind"

	// EntityMetadataKey keys Kafka partitioning, so changes of one entity stay ordered.
	EntityMetadataKey = "phasetrack_entity"
)

// Handler receives events from the bus.
type Handler func(ctx context.Context, event models.ChangeEvent) error

type EventPublisher interface {
	Publish(ctx context.Context, event models.ChangeEvent) error
}

type EventSubscriber interface {
	// Subscribe starts delivering bus events to handler in the background until ctx
	// is canceled or the bus is closed.
	Subscribe(ctx context.Context, handler Handler) error
}

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
}
