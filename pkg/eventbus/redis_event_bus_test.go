package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/dukex/phasetrack/pkg/eventbus"
	"github.com/dukex/phasetrack/pkg/models"
	"github.com/dukex/phasetrack/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping Redis integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		},
		Started: true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	return "redis://" + endpoint + "/0"
}

func TestRedisEventBus_FanOutAcrossInstances(t *testing.T) {
	url := setupRedis(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, err := eventbus.NewRedisEventBus(ctx, url, testutil.Logger())
	require.NoError(t, err)

	defer first.Close()

	second, err := eventbus.NewRedisEventBus(ctx, url, testutil.Logger())
	require.NoError(t, err)

	defer second.Close()

	fromFirst := make(chan models.ChangeEvent, 10)
	fromSecond := make(chan models.ChangeEvent, 10)

	require.NoError(t, first.Subscribe(ctx, collect(fromFirst)))
	require.NoError(t, second.Subscribe(ctx, collect(fromSecond)))

	expected := changeEvent("evt-20")
	require.NoError(t, first.Publish(ctx, expected))

	assertRelayed(t, expected, waitFor(t, fromFirst))
	assertRelayed(t, expected, waitFor(t, fromSecond))
}

func TestRedisEventBus_InvalidURL(t *testing.T) {
	_, err := eventbus.NewRedisEventBus(context.Background(), "not-a-url", testutil.Logger())
	assert.Error(t, err)
}

func TestRedisEventBus_CloseIsIdempotent(t *testing.T) {
	url := setupRedis(t)

	bus, err := eventbus.NewRedisEventBus(context.Background(), url, testutil.Logger())
	require.NoError(t, err)

	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())
	assert.Error(t, bus.Subscribe(context.Background(), collect(make(chan models.ChangeEvent))))
}
