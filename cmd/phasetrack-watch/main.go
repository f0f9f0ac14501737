// Command phasetrack-watch follows the change stream of a phasetrack API and prints
// live metrics of the references it touches.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dukex/phasetrack/pkg/log"
	"github.com/dukex/phasetrack/pkg/models"
	"github.com/dukex/phasetrack/pkg/stream"
	cli "github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newCommand().Run(ctx, os.Args)
	if err != nil {
		panic(err)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "phasetrack-watch",
		Usage: "Watch references move through production phases",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api-url",
				Value:   "http://localhost:9091",
				Sources: cli.EnvVars("PHASETRACK_API_URL"),
			},
			&cli.StringFlag{
				Name:  "area",
				Usage: "Only receive changes of this area",
			},
			&cli.Int64SliceFlag{
				Name:    "reference",
				Aliases: []string{"r"},
				Usage:   "Reference ids to watch; all references when omitted",
			},
			&cli.DurationFlag{
				Name:    "reconnect-base",
				Value:   stream.DefaultBaseDelay,
				Sources: cli.EnvVars("RECONNECT_BASE"),
			},
			&cli.DurationFlag{
				Name:    "reconnect-max",
				Value:   stream.DefaultMaxDelay,
				Sources: cli.EnvVars("RECONNECT_MAX"),
			},
			&cli.IntFlag{
				Name:    "reconnect-attempts",
				Value:   stream.DefaultMaxAttempts,
				Sources: cli.EnvVars("RECONNECT_ATTEMPTS"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), "text")

			logger := log.WithModule("watch")
			config := stream.Config{
				BaseURL:     command.String("api-url"),
				Area:        command.String("area"),
				BaseDelay:   command.Duration("reconnect-base"),
				MaxDelay:    command.Duration("reconnect-max"),
				MaxAttempts: command.Int("reconnect-attempts"),
				Client:      &http.Client{},
			}

			w := newWatcher(stream.NewClient(config.BaseURL, nil), os.Stdout, logger, command.Int64Slice("reference"))
			w.RefreshAll(ctx)

			subscriber := stream.NewSubscriber(config, logger,
				stream.WithEventHandler(func(event models.ChangeEvent) { w.HandleEvent(ctx, event) }),
				stream.OnReconnect(func() { w.RefreshAll(ctx) }),
				stream.OnStateChange(func(state stream.State) {
					logger.InfoContext(ctx, "Stream state changed", "state", state)
				}),
			)

			err := subscriber.Start(ctx)
			if err != nil {
				return err
			}

			defer subscriber.Stop()

			// SIGHUP leaves the persistent error state after reconnects were exhausted
			hup := make(chan os.Signal, 1)
			signal.Notify(hup, syscall.SIGHUP)
			defer signal.Stop(hup)

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-hup:
					logger.InfoContext(ctx, "Retrying stream", "state", subscriber.State(), "last_error", subscriber.Err())
					subscriber.Retry()
				}
			}
		},
	}
}
