// Package kafka provides the watermill Kafka publisher and subscriber used to relay
// change events between API instances.
package kafka

import (
	"errors"
	"strings"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
)

const defaultClientID = "phasetrack"

// ErrNoBrokers is returned when no broker address is configured.
var ErrNoBrokers = errors.New("no Kafka brokers configured")

type Config struct {
	Brokers []string

	// ConsumerGroup must be unique per instance so that each one sees every change.
	ConsumerGroup string

	// PartitionKey is the message metadata used as the Kafka key. Messages sharing a
	// key land on one partition and keep their order. Empty uses round robin.
	PartitionKey string

	ClientID string
}

// ParseBrokers splits a comma separated broker list, dropping blanks.
func ParseBrokers(value string) []string {
	var brokers []string

	for _, broker := range strings.Split(value, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}

	return brokers
}

func (c Config) marshaler() kafka.MarshalerUnmarshaler {
	if c.PartitionKey == "" {
		return kafka.DefaultMarshaler{}
	}

	key := c.PartitionKey

	return kafka.NewWithPartitioningMarshaler(func(_ string, msg *message.Message) (string, error) {
		return msg.Metadata.Get(key), nil
	})
}

func (c Config) saramaConfig(base *sarama.Config) *sarama.Config {
	base.ClientID = c.ClientID
	if base.ClientID == "" {
		base.ClientID = defaultClientID
	}

	return base
}

// CreateChannel connects a publisher and a subscriber to the brokers of config.
func CreateChannel(logger watermill.LoggerAdapter, config Config) (*kafka.Publisher, *kafka.Subscriber, error) {
	if len(config.Brokers) == 0 {
		return nil, nil, ErrNoBrokers
	}

	marshaler := config.marshaler()

	consumer := config.saramaConfig(kafka.DefaultSaramaSubscriberConfig())
	// live notifications only; a restarted instance starts at the head of the topic
	consumer.Consumer.Offsets.Initial = sarama.OffsetNewest

	subscriber, err := kafka.NewSubscriber(
		kafka.SubscriberConfig{
			Brokers:               config.Brokers,
			Unmarshaler:           marshaler,
			OverwriteSaramaConfig: consumer,
			ConsumerGroup:         config.ConsumerGroup,
			OTELEnabled:           true,
		},
		logger,
	)
	if err != nil {
		return nil, nil, err
	}

	producer := config.saramaConfig(sarama.NewConfig())
	producer.Producer.Return.Successes = true
	producer.Producer.RequiredAcks = sarama.WaitForLocal

	publisher, err := kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:               config.Brokers,
			Marshaler:             marshaler,
			OverwriteSaramaConfig: producer,
			OTELEnabled:           true,
		},
		logger,
	)
	if err != nil {
		_ = subscriber.Close()

		return nil, nil, err
	}

	return publisher, subscriber, nil
}
