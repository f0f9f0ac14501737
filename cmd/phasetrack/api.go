// Package main provides the phasetrack API server.
package main

import (
	"log/slog"
	"strconv"

	"github.com/dukex/phasetrack/pkg/notifier"
	"github.com/dukex/phasetrack/pkg/persistence"
	"github.com/dukex/phasetrack/pkg/services"
	"github.com/dukex/phasetrack/pkg/web"
	"github.com/dukex/phasetrack/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	catalog     *workflow.Catalog
	notifier    services.Notifier
	broadcaster *notifier.Broadcaster
	validate    *validator.Validate
	opts        []services.Option
}

// NewAPI wires the HTTP surface. Services announce changes through changes; streams
// read from broadcaster.
func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	catalog *workflow.Catalog,
	changes services.Notifier,
	broadcaster *notifier.Broadcaster,
	opts ...services.Option,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		catalog:     catalog,
		notifier:    changes,
		broadcaster: broadcaster,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		opts:        append([]services.Option{services.WithLogger(logger)}, opts...),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(
		services.NewActions(a.persistence, a.catalog, a.notifier, a.opts...),
		services.NewTimelines(a.persistence, a.catalog, a.opts...),
		services.NewReferences(a.persistence, a.catalog, a.notifier, a.opts...),
		services.NewUsers(a.persistence, a.notifier, a.opts...),
		a.catalog,
		a.broadcaster,
		a.validate,
		a.logger,
	)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("phasetrack API")
	})

	handlers.Routes(app)

	return app
}

func (a *API) listen(app *fiber.App, port int) error {
	return app.Listen(":"+strconv.Itoa(port), fiber.ListenConfig{DisableStartupMessage: true})
}
