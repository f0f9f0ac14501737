package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukex/phasetrack/pkg/cmd"
	"github.com/dukex/phasetrack/pkg/notifier"
	"github.com/dukex/phasetrack/pkg/services"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9091

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newCommand(run).Run(ctx, os.Args)
	if err != nil {
		panic(err)
	}
}

func newCommand(action func(ctx context.Context, config config) error) *cli.Command {
	return &cli.Command{
		Name:                  "phasetrack",
		Usage:                 "Track garment references through their production phases",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database connection URL; takes precedence over the db-* flags",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "db-driver",
				Usage:   "Database driver (postgres, pgx, sqlite)",
				Sources: cli.EnvVars("DB_DRIVER"),
			},
			&cli.StringFlag{
				Name:    "db-host",
				Value:   "localhost",
				Sources: cli.EnvVars("DB_HOST"),
			},
			&cli.IntFlag{
				Name:    "db-port",
				Value:   5432,
				Sources: cli.EnvVars("DB_PORT"),
			},
			&cli.StringFlag{
				Name:    "db-user",
				Value:   "phasetrack",
				Sources: cli.EnvVars("DB_USER"),
			},
			&cli.StringFlag{
				Name:    "db-password",
				Sources: cli.EnvVars("DB_PASSWORD"),
			},
			&cli.StringFlag{
				Name:    "db-name",
				Value:   "phasetrack",
				Sources: cli.EnvVars("DB_NAME"),
			},
			&cli.StringFlag{
				Name:    "db-schema",
				Usage:   "PostgreSQL search_path",
				Sources: cli.EnvVars("DB_SCHEMA"),
			},
			&cli.IntFlag{
				Name:    "db-pool-min",
				Value:   2,
				Sources: cli.EnvVars("DB_POOL_MIN"),
			},
			&cli.IntFlag{
				Name:    "db-pool-max",
				Value:   10,
				Sources: cli.EnvVars("DB_POOL_MAX"),
			},
			&cli.DurationFlag{
				Name:    "db-pool-acquire-timeout",
				Value:   30 * time.Second,
				Sources: cli.EnvVars("DB_POOL_ACQUIRE_TIMEOUT"),
			},
			&cli.DurationFlag{
				Name:    "db-connect-timeout",
				Value:   10 * time.Second,
				Sources: cli.EnvVars("DB_CONNECT_TIMEOUT"),
			},
			&cli.DurationFlag{
				Name:    "heartbeat-interval",
				Usage:   "Interval between heartbeat events on open streams",
				Value:   notifier.DefaultHeartbeatInterval,
				Sources: cli.EnvVars("HEARTBEAT_INTERVAL"),
			},
			&cli.StringFlag{
				Name:    "overdue-scan-schedule",
				Usage:   "Cron schedule of the overdue phase scan",
				Value:   services.DefaultOverdueSchedule,
				Sources: cli.EnvVars("OVERDUE_SCAN_SCHEDULE"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus relaying changes between instances (memory, kafka, redis)",
				Value:   cmd.EventBusMemory,
				Sources: cli.EnvVars("EVENT_BUS"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "catalog-path",
				Usage:   "YAML phase catalog; the built-in catalog is used when empty",
				Sources: cli.EnvVars("CATALOG_PATH"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (text, json)",
				Value:   "text",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
			&cli.BoolFlag{
				Name:    "otel-enabled",
				Usage:   "Export traces over OTLP HTTP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			return action(ctx, configFromCommand(command))
		},
	}
}
