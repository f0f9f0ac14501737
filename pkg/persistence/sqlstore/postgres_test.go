package sqlstore_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/dukex/phasetrack/pkg/persistence/sqlbase"
	"github.com/dukex/phasetrack/pkg/persistence/sqlstore"
	"github.com/dukex/phasetrack/pkg/testutil"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var postgresContainer *postgres.PostgresContainer

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	// Drop tables in reverse dependency order (children first, parents last)
	for _, table := range []string{"action_events", "traceability_records", "garment_references", "users", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	err = db.Close()
	require.NoError(t, err)
}

func setupPostgres(t *testing.T, driver string) (*sqlstore.Persistence, context.Context) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping PostgreSQL integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("phasetrack_test"),
			postgres.WithUsername("phasetrack"),
			postgres.WithPassword("phasetrack"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	store, err := sqlstore.NewPersistence(ctx, testutil.Logger(), sqlbase.Config{
		Driver:   driver,
		DSN:      databaseURL,
		MaxConns: 4,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, store.Close(ctx))
		dropDb(ctx, t, databaseURL)
		cancel()
	})

	return store, ctx
}

func TestPostgres_Scenarios(t *testing.T) {
	for _, driver := range []string{sqlbase.DriverPostgres, sqlbase.DriverPgx} {
		t.Run(driver+"/references", func(t *testing.T) {
			store, ctx := setupPostgres(t, driver)
			runReferenceScenario(ctx, t, store)
		})

		t.Run(driver+"/records", func(t *testing.T) {
			store, ctx := setupPostgres(t, driver)
			runRecordLifecycleScenario(ctx, t, store)
		})

		t.Run(driver+"/users", func(t *testing.T) {
			store, ctx := setupPostgres(t, driver)
			runUserScenario(ctx, t, store)
		})
	}
}
