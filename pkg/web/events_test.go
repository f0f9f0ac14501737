package web_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/dukex/phasetrack/pkg/models"
	"github.com/dukex/phasetrack/pkg/stream"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serve starts app on a loopback listener; streamed bodies need a real connection.
func serve(t *testing.T, app *fiber.App) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		_ = app.Listener(ln, fiber.ListenConfig{DisableStartupMessage: true})
	}()

	t.Cleanup(func() {
		_ = app.Shutdown()
	})

	return "http://" + ln.Addr().String()
}

func openStream(t *testing.T, url string) *stream.Reader {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	return stream.NewReader(resp.Body)
}

func TestStreamEvents(t *testing.T) {
	app, _, broadcaster := setupTestApp(t)
	base := serve(t, app)

	cutting := openStream(t, base+"/events?area=cutting")
	everything := openStream(t, base+"/events")

	for _, reader := range []*stream.Reader{cutting, everything} {
		first, err := reader.Next()
		require.NoError(t, err)
		assert.Equal(t, models.ChangeConnected, first.Kind)
		assert.Equal(t, models.TypeConnectionConfirmed, first.Type)
		assert.NotEmpty(t, first.ID)
		assert.False(t, first.Timestamp.IsZero())
	}

	require.Equal(t, 2, broadcaster.Len())

	ctx := context.Background()
	require.NoError(t, broadcaster.Publish(ctx, models.ChangeEvent{ID: "sew-1", Kind: models.ChangeStatusChanged, Type: models.TypePhaseDelivered, Tag: "sewing"}))
	require.NoError(t, broadcaster.Publish(ctx, models.ChangeEvent{ID: "cut-1", Kind: models.ChangeStatusChanged, Type: models.TypePhaseDelivered, Tag: "cutting"}))
	require.NoError(t, broadcaster.Publish(ctx, models.ChangeEvent{ID: "hb-1", Kind: models.ChangeHeartbeat, Type: models.TypeHeartbeat}))

	var got []string

	for range 2 {
		event, err := cutting.Next()
		require.NoError(t, err)

		got = append(got, event.ID)
	}

	assert.Equal(t, []string{"cut-1", "hb-1"}, got)

	got = nil

	for range 3 {
		event, err := everything.Next()
		require.NoError(t, err)

		got = append(got, event.ID)
	}

	assert.Equal(t, []string{"sew-1", "cut-1", "hb-1"}, got)

	broadcaster.Close()

	for _, reader := range []*stream.Reader{cutting, everything} {
		_, err := reader.Next()
		assert.ErrorIs(t, err, io.EOF)
	}
}

func TestStreamEvents_AfterShutdown(t *testing.T) {
	app, _, broadcaster := setupTestApp(t)
	base := serve(t, app)

	broadcaster.Close()

	reader := openStream(t, base+"/events")

	first, err := reader.Next()
	require.NoError(t, err)
	assert.Equal(t, models.ChangeConnected, first.Kind)

	_, err = reader.Next()
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 0, broadcaster.Len())
}

