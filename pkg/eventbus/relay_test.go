package eventbus_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/phasetrack/pkg/channels/gochannel"
	"github.com/dukex/phasetrack/pkg/eventbus"
	"github.com/dukex/phasetrack/pkg/log"
	"github.com/dukex/phasetrack/pkg/models"
	"github.com/dukex/phasetrack/pkg/notifier"
	"github.com/dukex/phasetrack/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForward_FeedsLocalBroadcaster(t *testing.T) {
	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub, testutil.Logger())
	defer bus.Close()

	broadcaster := notifier.New(notifier.WithLogger(testutil.Logger()))
	subscription := broadcaster.Subscribe(notifier.Filter{Area: "sample-room"})

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- eventbus.Forward(ctx, bus, broadcaster)
	}()

	require.NoError(t, eventbus.NewNotifier(bus).Publish(ctx, changeEvent("evt-10")))

	select {
	case event := <-subscription.Events():
		assert.Equal(t, "evt-10", event.ID)
	case <-time.After(10 * time.Second):
		t.Fatal("bus event did not reach the local broadcaster")
	}

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Forward did not return after cancel")
	}
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

// flakyLocal rejects the first event and records the rest.
type flakyLocal struct {
	mu        sync.Mutex
	calls     int
	delivered chan string
}

func (f *flakyLocal) Publish(_ context.Context, event models.ChangeEvent) error {
	f.mu.Lock()
	f.calls++
	first := f.calls == 1
	f.mu.Unlock()

	if first {
		return errors.New("listener closed")
	}

	f.delivered <- event.ID

	return nil
}

func TestForward_LogsLocalFailureAndKeepsRelaying(t *testing.T) {
	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub, testutil.Logger())
	defer bus.Close()

	output := &lockedBuffer{}
	ctx, cancel := context.WithCancel(log.IntoContext(context.Background(), log.New(output, "debug", "text")))
	defer cancel()

	local := &flakyLocal{delivered: make(chan string, 1)}

	done := make(chan error, 1)
	go func() {
		done <- eventbus.Forward(ctx, bus, local)
	}()

	announcer := eventbus.NewNotifier(bus)
	require.NoError(t, announcer.Publish(ctx, changeEvent("evt-20")))
	require.NoError(t, announcer.Publish(ctx, changeEvent("evt-21")))

	select {
	case id := <-local.delivered:
		assert.Equal(t, "evt-21", id)
	case <-time.After(10 * time.Second):
		t.Fatal("relay stopped after a local failure")
	}

	assert.Eventually(t, func() bool {
		logged := output.String()

		return strings.Contains(logged, "Failed to deliver bus event locally") &&
			strings.Contains(logged, "event_id=evt-20") &&
			strings.Contains(logged, "module=event_relay")
	}, 5*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Forward did not return after cancel")
	}
}
