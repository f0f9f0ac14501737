package kafka

import (
	"testing"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, ParseBrokers(" a:9092, ,b:9092,"))
	assert.Empty(t, ParseBrokers(""))
}

func TestCreateChannel_RequiresBrokers(t *testing.T) {
	_, _, err := CreateChannel(watermill.NopLogger{}, Config{ConsumerGroup: "phasetrack-test"})
	assert.ErrorIs(t, err, ErrNoBrokers)
}

func TestConfig_PartitionKey(t *testing.T) {
	msg := message.NewMessage("m-1", []byte(`{}`))
	msg.Metadata.Set("entity", "42")

	produced, err := Config{PartitionKey: "entity"}.marshaler().Marshal("phasetrack.changes", msg)
	require.NoError(t, err)
	require.NotNil(t, produced.Key)

	key, err := produced.Key.Encode()
	require.NoError(t, err)
	assert.Equal(t, "42", string(key))

	produced, err = Config{}.marshaler().Marshal("phasetrack.changes", msg)
	require.NoError(t, err)
	assert.Nil(t, produced.Key)
}

func TestConfig_ClientID(t *testing.T) {
	assert.Equal(t, "phasetrack", Config{}.saramaConfig(sarama.NewConfig()).ClientID)
	assert.Equal(t, "edge-1", Config{ClientID: "edge-1"}.saramaConfig(sarama.NewConfig()).ClientID)
}
