package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dukex/phasetrack/pkg/cmd"
	"github.com/dukex/phasetrack/pkg/eventbus"
	"github.com/dukex/phasetrack/pkg/log"
	"github.com/dukex/phasetrack/pkg/notifier"
	"github.com/dukex/phasetrack/pkg/otelhelper"
	"github.com/dukex/phasetrack/pkg/persistence/sqlbase"
	"github.com/dukex/phasetrack/pkg/services"
	cli "github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

type config struct {
	Port        int
	Persistence cmd.PersistenceConfig
	EventBus    cmd.EventBusConfig

	CatalogPath         string
	HeartbeatInterval   time.Duration
	OverdueScanSchedule string
	LogLevel            string
	LogFormat           string
	OtelEnabled         bool
}

func configFromCommand(command *cli.Command) config {
	return config{
		Port: command.Int("port"),
		Persistence: cmd.PersistenceConfig{
			Driver:      command.String("db-driver"),
			DatabaseURL: command.String("database-url"),
			Params: sqlbase.ConnectionParams{
				Host:     command.String("db-host"),
				Port:     command.Int("db-port"),
				User:     command.String("db-user"),
				Password: command.String("db-password"),
				Database: command.String("db-name"),
				Schema:   command.String("db-schema"),
			},
			MinConns:       command.Int("db-pool-min"),
			MaxConns:       command.Int("db-pool-max"),
			AcquireTimeout: command.Duration("db-pool-acquire-timeout"),
			ConnectTimeout: command.Duration("db-connect-timeout"),
		},
		EventBus: cmd.EventBusConfig{
			Provider:     command.String("event-bus"),
			KafkaBrokers: command.String("kafka-brokers"),
			RedisURL:     command.String("redis-url"),
		},
		CatalogPath:         command.String("catalog-path"),
		HeartbeatInterval:   command.Duration("heartbeat-interval"),
		OverdueScanSchedule: command.String("overdue-scan-schedule"),
		LogLevel:            command.String("log-level"),
		LogFormat:           command.String("log-format"),
		OtelEnabled:         command.Bool("otel-enabled"),
	}
}

// run serves the API until ctx is canceled. The HTTP server, heartbeat, overdue
// monitor and event relay share one errgroup; the first failure stops them all.
func run(ctx context.Context, config config) error {
	log.Setup(config.LogLevel, config.LogFormat)

	logger := log.WithModule("api")
	logger.InfoContext(ctx, "Initializing phasetrack API")

	opts := []services.Option{services.WithLogger(logger)}

	if config.OtelEnabled {
		tracer, shutdown, err := otelhelper.NewTracer(ctx, "phasetrack")
		if err != nil {
			return fmt.Errorf("failed to initialize tracer: %w", err)
		}

		defer func() {
			err := shutdown(context.Background())
			if err != nil {
				logger.Error("Failed to shutdown tracer provider", "error", err)
			}
		}()

		opts = append(opts, services.WithTracer(tracer))
	}

	catalog, err := cmd.NewCatalog(config.CatalogPath, logger)
	if err != nil {
		return err
	}

	persistence, err := cmd.NewPersistence(ctx, logger, config.Persistence)
	if err != nil {
		return fmt.Errorf("failed to open persistence: %w", err)
	}

	defer func() {
		err := persistence.Close(context.Background())
		if err != nil {
			logger.Error("Failed to close persistence", "error", err)
		}
	}()

	bus, err := cmd.NewEventBus(ctx, config.EventBus, logger)
	if err != nil {
		return fmt.Errorf("failed to create event bus: %w", err)
	}

	defer func() {
		err := bus.Close()
		if err != nil {
			logger.Error("Failed to close event bus", "error", err)
		}
	}()

	broadcaster := notifier.New(notifier.WithLogger(logger))
	changes := eventbus.NewNotifier(bus)

	api := NewAPI(logger, persistence, catalog, changes, broadcaster, opts...)
	app := api.App()

	heartbeat := notifier.NewHeartbeat(broadcaster, config.HeartbeatInterval, logger)
	monitor := services.NewOverdueMonitor(persistence, catalog, changes, opts...)

	g, ctx := errgroup.WithContext(log.IntoContext(ctx, logger))

	g.Go(func() error {
		return eventbus.Forward(ctx, bus, broadcaster)
	})

	g.Go(func() error {
		return heartbeat.Run(ctx)
	})

	g.Go(func() error {
		return monitor.Run(ctx, config.OverdueScanSchedule)
	})

	g.Go(func() error {
		logger.InfoContext(ctx, "Starting HTTP server", "port", config.Port)

		return api.listen(app, config.Port)
	})

	g.Go(func() error {
		<-ctx.Done()

		// open streams end first so shutdown does not wait on them
		broadcaster.Close()

		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("phasetrack API stopped")

	return nil
}
