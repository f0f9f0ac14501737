package stream_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dukex/phasetrack/pkg/models"
	"github.com/dukex/phasetrack/pkg/stream"
	"github.com/dukex/phasetrack/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	delays []time.Duration
	events []models.ChangeEvent
	states []stream.State
}

func (r *recorder) wait(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.delays = append(r.delays, d)

	return nil
}

func (r *recorder) event(event models.ChangeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)
}

func (r *recorder) state(state stream.State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.states = append(r.states, state)
}

func (r *recorder) Delays() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]time.Duration(nil), r.delays...)
}

func (r *recorder) Events() []models.ChangeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]models.ChangeEvent(nil), r.events...)
}

func writeFrame(t *testing.T, w http.ResponseWriter, event models.ChangeEvent) {
	t.Helper()

	data, err := json.Marshal(event)
	if err != nil {
		t.Errorf("marshal frame: %v", err)

		return
	}

	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

func connectedFrame() models.ChangeEvent {
	return models.ChangeEvent{ID: "sub-1", Kind: models.ChangeConnected, Type: models.TypeConnectionConfirmed, Timestamp: time.Now().UTC()}
}

func newSubscriber(t *testing.T, server *httptest.Server, rec *recorder, opts ...stream.Option) *stream.Subscriber {
	t.Helper()

	opts = append([]stream.Option{
		stream.WithWait(rec.wait),
		stream.WithEventHandler(rec.event),
		stream.OnStateChange(rec.state),
	}, opts...)

	sub := stream.NewSubscriber(stream.Config{BaseURL: server.URL, Area: "cutting"}, testutil.Logger(), opts...)
	require.NoError(t, sub.Start(context.Background()))
	t.Cleanup(sub.Stop)

	return sub
}

func TestSubscriber_ReceivesEvents(t *testing.T) {
	var area atomic.Value

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		area.Store(r.URL.Query().Get("area"))
		w.Header().Set("Content-Type", "text/event-stream")

		writeFrame(t, w, connectedFrame())
		writeFrame(t, w, models.ChangeEvent{ID: "e1", Kind: models.ChangeStatusChanged, Type: models.TypePhaseDelivered, Tag: "cutting"})

		<-r.Context().Done()
	}))
	t.Cleanup(server.Close)

	rec := &recorder{}
	sub := newSubscriber(t, server, rec)

	require.Eventually(t, func() bool { return len(rec.Events()) == 1 }, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, "e1", rec.Events()[0].ID)
	assert.Equal(t, stream.StateConnected, sub.State())
	assert.Equal(t, "cutting", area.Load())
	assert.Empty(t, rec.Delays())
	assert.ErrorIs(t, sub.Start(context.Background()), stream.ErrAlreadyStarted)

	sub.Stop()
	assert.Equal(t, stream.StateDisconnected, sub.State())
}

func TestSubscriber_BackoffThenPersistentError(t *testing.T) {
	var healthy atomic.Bool

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)

			return
		}

		writeFrame(t, w, connectedFrame())
		<-r.Context().Done()
	}))
	t.Cleanup(server.Close)

	var reconnects atomic.Int32

	rec := &recorder{}
	sub := newSubscriber(t, server, rec, stream.OnReconnect(func() { reconnects.Add(1) }))

	require.Eventually(t, func() bool {
		return sub.State() == stream.StateError && len(rec.Delays()) == 5
	}, 5*time.Second, 10*time.Millisecond)

	// no sixth attempt is scheduled
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []time.Duration{
		time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second,
	}, rec.Delays())
	assert.Equal(t, stream.StateError, sub.State())
	assert.Equal(t, 5, sub.Attempts())
	require.Error(t, sub.Err())
	assert.Contains(t, sub.Err().Error(), "503")

	healthy.Store(true)
	sub.Retry()

	require.Eventually(t, func() bool { return sub.State() == stream.StateConnected }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, sub.Attempts())
	require.NoError(t, sub.Err())
	assert.Equal(t, int32(1), reconnects.Load())
	assert.Len(t, rec.Delays(), 5)
}

func TestSubscriber_ReconnectsAfterStreamEnds(t *testing.T) {
	var connections atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := connections.Add(1)

		writeFrame(t, w, connectedFrame())
		writeFrame(t, w, models.ChangeEvent{ID: fmt.Sprintf("e%d", n), Kind: models.ChangeUpdated, Type: models.TypeUserUpdated})

		if n == 1 {
			return
		}

		<-r.Context().Done()
	}))
	t.Cleanup(server.Close)

	var reconnects atomic.Int32

	rec := &recorder{}
	sub := newSubscriber(t, server, rec, stream.OnReconnect(func() { reconnects.Add(1) }))

	require.Eventually(t, func() bool {
		return len(rec.Events()) == 2 && sub.State() == stream.StateConnected
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, int32(1), reconnects.Load())
	assert.Equal(t, []time.Duration{time.Second}, rec.Delays())
	assert.Equal(t, "e1", rec.Events()[0].ID)
	assert.Equal(t, "e2", rec.Events()[1].ID)
}

func TestSubscriber_DelayCappedAtMax(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	rec := &recorder{}
	sub := stream.NewSubscriber(stream.Config{
		BaseURL:     server.URL,
		BaseDelay:   10 * time.Second,
		MaxDelay:    30 * time.Second,
		MaxAttempts: 4,
	}, testutil.Logger(), stream.WithWait(rec.wait))
	require.NoError(t, sub.Start(context.Background()))
	t.Cleanup(sub.Stop)

	require.Eventually(t, func() bool {
		return sub.State() == stream.StateError && len(rec.Delays()) == 4
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, []time.Duration{10 * time.Second, 20 * time.Second, 30 * time.Second, 30 * time.Second}, rec.Delays())
}

func TestConfig_EventsURL(t *testing.T) {
	assert.Equal(t, "http://localhost:9091/events", stream.Config{BaseURL: "http://localhost:9091/"}.EventsURL())
	assert.Equal(t, "http://api/events?area=sample+room", stream.Config{BaseURL: "http://api", Area: "sample room"}.EventsURL())
}
