package stream_test

import (
	"io"
	"strings"
	"testing"

	"github.com/dukex/phasetrack/pkg/models"
	"github.com/dukex/phasetrack/pkg/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReader_Next(t *testing.T) {
	body := ": keep-alive\n\n" +
		"data: {\"id\":\"c1\",\"kind\":\"connected\",\"type\":\"connected\",\"timestamp\":\"2025-05-12T08:00:00Z\"}\n\n" +
		"event: change\nid: 7\n" +
		"data: {\"id\":\"e1\",\"kind\":\"status_changed\",\"type\":\"phase_delivered\",\"entity_id\":\"3\",\"tag\":\"cutting\",\"timestamp\":\"2025-05-12T09:00:00Z\"}\n\n"

	reader := stream.NewReader(strings.NewReader(body))

	first, err := reader.Next()
	require.NoError(t, err)
	assert.Equal(t, models.ChangeConnected, first.Kind)
	assert.Equal(t, "c1", first.ID)

	second, err := reader.Next()
	require.NoError(t, err)
	assert.Equal(t, models.ChangeStatusChanged, second.Kind)
	assert.Equal(t, models.TypePhaseDelivered, second.Type)
	assert.Equal(t, "3", second.EntityID)
	assert.Equal(t, "cutting", second.Tag)

	_, err = reader.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_Errors(t *testing.T) {
	t.Run("truncated frame", func(t *testing.T) {
		reader := stream.NewReader(strings.NewReader("data: {\"id\":\"x\"}\n"))

		_, err := reader.Next()
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	t.Run("malformed json", func(t *testing.T) {
		reader := stream.NewReader(strings.NewReader("data: {not json\n\n"))

		_, err := reader.Next()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "malformed event frame")
	})

	t.Run("empty stream", func(t *testing.T) {
		reader := stream.NewReader(strings.NewReader(""))

		_, err := reader.Next()
		assert.ErrorIs(t, err, io.EOF)
	})
}
