package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukex/phasetrack/pkg/persistence/sqlbase"
	"github.com/dukex/phasetrack/pkg/persistence/sqlstore"
)

// PersistenceConfig locates the traceability store. DatabaseURL wins over Params.
type PersistenceConfig struct {
	Driver      string
	DatabaseURL string
	Params      sqlbase.ConnectionParams

	MinConns       int
	MaxConns       int
	AcquireTimeout time.Duration
	ConnectTimeout time.Duration
}

// StoreConfig resolves the driver and DSN the executor is opened with.
func (c PersistenceConfig) StoreConfig() (sqlbase.Config, error) {
	driver := strings.ToLower(c.Driver)
	dsn := c.DatabaseURL

	if driver == "" {
		driver = parsePersistenceProvider(dsn)
	}

	switch driver {
	case sqlbase.DriverSQLite:
		dsn = strings.TrimPrefix(dsn, "sqlite://")
		if dsn == "" {
			dsn = "phasetrack.db"
		}
	case sqlbase.DriverPostgres, sqlbase.DriverPgx:
		if dsn == "" {
			dsn = c.Params.DSN(c.ConnectTimeout)
		}
	default:
		return sqlbase.Config{}, fmt.Errorf("%w: unsupported driver %q", sqlbase.ErrInvalidConfig, c.Driver)
	}

	return sqlbase.Config{
		Driver:         driver,
		DSN:            dsn,
		MinConns:       c.MinConns,
		MaxConns:       c.MaxConns,
		AcquireTimeout: c.AcquireTimeout,
		ConnectTimeout: c.ConnectTimeout,
	}, nil
}

// NewPersistence opens the store and brings its schema up to date.
func NewPersistence(ctx context.Context, logger *slog.Logger, config PersistenceConfig) (*sqlstore.Persistence, error) {
	storeConfig, err := config.StoreConfig()
	if err != nil {
		return nil, err
	}

	return sqlstore.NewPersistence(ctx, logger, storeConfig)
}

func parsePersistenceProvider(databaseURL string) string {
	switch {
	case strings.HasPrefix(databaseURL, "sqlite://"), strings.HasPrefix(databaseURL, "file:"):
		return sqlbase.DriverSQLite
	default:
		return sqlbase.DriverPostgres
	}
}
