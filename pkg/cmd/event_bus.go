package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/phasetrack/pkg/channels/gochannel"
	"github.com/dukex/phasetrack/pkg/channels/kafka"
	"github.com/dukex/phasetrack/pkg/eventbus"
	"github.com/google/uuid"
)

const (
	EventBusMemory = "memory"
	EventBusKafka  = "kafka"
	EventBusRedis  = "redis"
)

// EventBusConfig selects and configures the cross-instance relay.
type EventBusConfig struct {
	Provider     string
	KafkaBrokers string
	RedisURL     string
}

// NewEventBus creates the event bus named by config.Provider. The memory bus only
// reaches subscribers of the same process.
func NewEventBus(ctx context.Context, config EventBusConfig, logger *slog.Logger) (eventbus.EventBus, error) {
	switch config.Provider {
	case "", EventBusMemory:
		pub, sub, err := gochannel.CreateChannel(watermill.NewSlogLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub, logger), nil
	case EventBusKafka:
		pub, sub, err := kafka.CreateChannel(watermill.NewSlogLogger(logger), kafka.Config{
			Brokers:       kafka.ParseBrokers(config.KafkaBrokers),
			ConsumerGroup: "phasetrack-" + uuid.NewString(),
			PartitionKey:  eventbus.EntityMetadataKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub, logger), nil
	case EventBusRedis:
		bus, err := eventbus.NewRedisEventBus(ctx, config.RedisURL, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis event bus: %w", err)
		}

		return bus, nil
	default:
		return nil, fmt.Errorf("unsupported event bus provider: %s", config.Provider)
	}
}
