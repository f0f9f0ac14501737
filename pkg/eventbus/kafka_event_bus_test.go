package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/phasetrack/pkg/channels/kafka"
	"github.com/dukex/phasetrack/pkg/eventbus"
	"github.com/dukex/phasetrack/pkg/models"
	"github.com/dukex/phasetrack/pkg/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	kafkaTc "github.com/testcontainers/testcontainers-go/modules/kafka"
)

func TestKafkaEventBus_PublishSubscribe(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping Kafka integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	container, err := kafkaTc.Run(ctx, "confluentinc/confluent-local:7.7.0")
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)

	pub, sub, err := kafka.CreateChannel(watermill.NopLogger{}, kafka.Config{
		Brokers:       brokers,
		ConsumerGroup: "phasetrack-test-" + uuid.NewString(),
		PartitionKey:  eventbus.EntityMetadataKey,
	})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub, testutil.Logger())
	defer bus.Close()

	// The first publish creates the topic.
	require.NoError(t, bus.Publish(ctx, changeEvent("warmup")))

	received := make(chan models.ChangeEvent, 100)
	require.NoError(t, bus.Subscribe(ctx, collect(received)))

	// The subscriber starts at the newest offset once its group joins, so keep
	// publishing until one event makes it through.
	expected := changeEvent("evt-30")

	require.Eventually(t, func() bool {
		if bus.Publish(ctx, expected) != nil {
			return false
		}

		select {
		case event := <-received:
			return event.ID == expected.ID
		case <-time.After(2 * time.Second):
			return false
		}
	}, 90*time.Second, 100*time.Millisecond)
}
