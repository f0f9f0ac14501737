package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dukex/phasetrack/pkg/mocks"
	"github.com/dukex/phasetrack/pkg/models"
	"github.com/dukex/phasetrack/pkg/persistence"
	"github.com/dukex/phasetrack/pkg/persistence/sqlbase"
	"github.com/dukex/phasetrack/pkg/persistence/sqlstore"
	"github.com/dukex/phasetrack/pkg/services"
	"github.com/dukex/phasetrack/pkg/testutil"
	"github.com/dukex/phasetrack/pkg/workflow"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	t0          = time.Date(2025, 5, 12, 8, 0, 0, 0, time.UTC)
	errInjected = errors.New("injected failure")
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = now
}

type fixture struct {
	store      *sqlstore.Persistence
	catalog    *workflow.Catalog
	notifier   *mocks.MockNotifier
	clock      *fakeClock
	actions    *services.Actions
	references *services.References
	timelines  *services.Timelines
	users      *services.Users
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctx := context.Background()

	store, err := sqlstore.NewPersistence(ctx, testutil.Logger(), sqlbase.Config{
		Driver: sqlbase.DriverSQLite,
		DSN:    testutil.SQLiteDSN(t),
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = store.Close(ctx)
	})

	catalog, err := workflow.NewCatalog(testutil.Sampling())
	require.NoError(t, err)

	notifier := &mocks.MockNotifier{}
	notifier.On("Publish", mock.Anything, mock.Anything).Return(nil)

	clock := &fakeClock{now: t0}
	opts := []services.Option{services.WithClock(clock.Now), services.WithLogger(testutil.Logger())}

	return &fixture{
		store:      store,
		catalog:    catalog,
		notifier:   notifier,
		clock:      clock,
		actions:    services.NewActions(store, catalog, notifier, opts...),
		references: services.NewReferences(store, catalog, notifier, opts...),
		timelines:  services.NewTimelines(store, catalog, opts...),
		users:      services.NewUsers(store, notifier, opts...),
	}
}

// register stores a reference at the first phase at t0.
func (f *fixture) register(t *testing.T, code string) *models.Reference {
	t.Helper()

	timeline, err := f.references.Register(context.Background(), services.RegisterReferenceRequest{
		Code:       code,
		Collection: "SS26",
	})
	require.NoError(t, err)

	return &timeline.Reference
}

// deliverUntil delivers phases one hour apart until slug is the current phase.
func (f *fixture) deliverUntil(t *testing.T, reference *models.Reference, slug string) {
	t.Helper()

	ctx := context.Background()

	for {
		current, err := f.store.ReferenceByID(ctx, reference.ID)
		require.NoError(t, err)

		if current.CurrentPhaseSlug() == slug {
			return
		}

		require.NotEmpty(t, current.CurrentPhaseSlug(), "reference completed before reaching %s", slug)

		f.clock.Set(f.clock.Now().Add(time.Hour))

		_, err = f.actions.Apply(ctx, services.ActionRequest{
			ReferenceID: reference.ID,
			PhaseSlug:   current.CurrentPhaseSlug(),
			Action:      models.ActionDeliver,
			ActingUser:  "ana",
		})
		require.NoError(t, err)
	}
}

func phaseView(t *testing.T, timeline *models.Timeline, slug string) models.PhaseView {
	t.Helper()

	for _, phase := range timeline.Phases {
		if phase.Slug == slug {
			return phase
		}
	}

	t.Fatalf("phase %s not in timeline", slug)

	return models.PhaseView{}
}

// failingPersistence injects errInjected into one transactional write.
type failingPersistence struct {
	persistence.Persistence
	failOn string
}

func (f *failingPersistence) Atomically(ctx context.Context, fn func(ctx context.Context, tx persistence.Tx) error) error {
	return f.Persistence.Atomically(ctx, func(ctx context.Context, tx persistence.Tx) error {
		return fn(ctx, &failingTx{Tx: tx, failOn: f.failOn})
	})
}

type failingTx struct {
	persistence.Tx
	failOn string
}

func (t *failingTx) CloseRecord(ctx context.Context, record *models.TraceabilityRecord) error {
	if t.failOn == "CloseRecord" {
		return errInjected
	}

	return t.Tx.CloseRecord(ctx, record)
}

func (t *failingTx) CreateRecord(ctx context.Context, record *models.TraceabilityRecord) error {
	if t.failOn == "CreateRecord" {
		return errInjected
	}

	return t.Tx.CreateRecord(ctx, record)
}

func (t *failingTx) UpdateReference(ctx context.Context, reference *models.Reference) error {
	if t.failOn == "UpdateReference" {
		return errInjected
	}

	return t.Tx.UpdateReference(ctx, reference)
}
