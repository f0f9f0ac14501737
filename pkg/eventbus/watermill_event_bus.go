package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/phasetrack/pkg/models"
)

// WatermillEventBus carries change events over any watermill pub/sub (gochannel, Kafka).
type WatermillEventBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	logger     *slog.Logger
}

func NewWatermillEventBus(pub message.Publisher, sub message.Subscriber, logger *slog.Logger) *WatermillEventBus {
	return &WatermillEventBus{
		publisher:  pub,
		subscriber: sub,
		logger:     logger.With("module", "watermill_event_bus"),
	}
}

func (eb *WatermillEventBus) Publish(ctx context.Context, event models.ChangeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode change event: %w", err)
	}

	msg := message.NewMessage("msg-"+watermill.NewULID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set(EventIDMetadataKey, event.ID)
	msg.Metadata.Set(EventKindMetadataKey, string(event.Kind))
	msg.Metadata.Set(EntityMetadataKey, entityKey(event))

	err = eb.publisher.Publish(Topic, msg)
	if err != nil {
		busMessages.WithLabelValues("watermill", "publish_failed").Inc()

		return fmt.Errorf("failed to publish change event: %w", err)
	}

	busMessages.WithLabelValues("watermill", "published").Inc()

	return nil
}

func (eb *WatermillEventBus) Subscribe(ctx context.Context, handler Handler) error {
	messages, err := eb.subscriber.Subscribe(ctx, Topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", Topic, err)
	}

	go func() {
		for msg := range messages {
			// Redelivery cannot fix a message that fails to decode or that the
			// handler rejects, so every message is acked.
			var event models.ChangeEvent

			err := json.Unmarshal(msg.Payload, &event)
			if err != nil {
				eb.logger.WarnContext(ctx, "Dropping undecodable bus message", "message_id", msg.UUID, "error", err)
				busMessages.WithLabelValues("watermill", "undecodable").Inc()
				msg.Ack()

				continue
			}

			err = handler(ctx, event)
			if err != nil {
				eb.logger.WarnContext(ctx, "Bus handler rejected event", "event_id", event.ID, "error", err)
				busMessages.WithLabelValues("watermill", "rejected").Inc()
			} else {
				busMessages.WithLabelValues("watermill", "received").Inc()
			}

			msg.Ack()
		}
	}()

	return nil
}

func (eb *WatermillEventBus) Close() error {
	err := eb.publisher.Close()
	if err != nil {
		return err
	}

	return eb.subscriber.Close()
}

// entityKey groups phase and reference changes by reference, and user changes by user.
func entityKey(event models.ChangeEvent) string {
	if event.EntityID == "" {
		return ""
	}

	if strings.HasPrefix(event.Type, "user_") {
		return "user:" + event.EntityID
	}

	return "reference:" + event.EntityID
}
