package web

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/dukex/phasetrack/pkg/persistence/sqlbase"
	"github.com/dukex/phasetrack/pkg/services"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

// RetryAfterSeconds is advertised when the store is temporarily unavailable.
const RetryAfterSeconds = 5

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

// handleServiceError maps service and store errors to problem responses. Internal
// details are logged, never returned.
func handleServiceError(c fiber.Ctx, logger *slog.Logger, err error) error {
	switch {
	case services.IsValidationError(err):
		return badRequest(c, err.Error())

	case services.IsNotFoundError(err):
		return notFound(c, err.Error())

	case services.IsConflictError(err):
		problem := problems.NewStatusProblem(409).
			WithInstance(c.Path()).
			WithType("conflict").
			WithDetail(err.Error())

		return c.Status(fiber.StatusConflict).JSON(problem)

	case sqlbase.IsTransient(err):
		logger.WarnContext(c.Context(), "Store unavailable", "path", c.Path(), "error", err)

		problem := problems.NewStatusProblem(503).
			WithInstance(c.Path()).
			WithType("unavailable").
			WithDetail("The traceability store is temporarily unavailable, retry later")

		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(RetryAfterSeconds))

		return c.Status(fiber.StatusServiceUnavailable).JSON(problem)

	case sqlbase.IsTransactionError(err):
		var txErr *sqlbase.TransactionError
		errors.As(err, &txErr)

		logger.ErrorContext(c.Context(), "Transaction failed", "path", c.Path(), "op", txErr.Op, "step", txErr.Step,
			"error", txErr.Err, "rollback_error", txErr.RollbackErr)

		problem := problems.NewStatusProblem(500).
			WithInstance(c.Path()).
			WithType("internal_error").
			WithDetail("The request could not be completed")

		return c.Status(fiber.StatusInternalServerError).JSON(problem)

	default:
		logger.ErrorContext(c.Context(), "Request failed", "path", c.Path(), "error", err)

		problem := problems.NewStatusProblem(500).
			WithInstance(c.Path()).
			WithType("internal_error").
			WithDetail("The request could not be completed")

		return c.Status(fiber.StatusInternalServerError).JSON(problem)
	}
}
