// Package web provides HTTP handlers and REST API endpoints for phase traceability.
package web

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dukex/phasetrack/pkg/models"
	"github.com/dukex/phasetrack/pkg/notifier"
	"github.com/dukex/phasetrack/pkg/services"
	"github.com/dukex/phasetrack/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	actions     *services.Actions
	timelines   *services.Timelines
	references  *services.References
	users       *services.Users
	catalog     *workflow.Catalog
	broadcaster *notifier.Broadcaster
	validator   *validator.Validate
	logger      *slog.Logger
}

func NewAPIHandlers(
	actions *services.Actions,
	timelines *services.Timelines,
	references *services.References,
	users *services.Users,
	catalog *workflow.Catalog,
	broadcaster *notifier.Broadcaster,
	validator *validator.Validate,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		actions:     actions,
		timelines:   timelines,
		references:  references,
		users:       users,
		catalog:     catalog,
		broadcaster: broadcaster,
		validator:   validator,
		logger:      logger.With("module", "web"),
	}
}

func (h *APIHandlers) ApplyAction(c fiber.Ctx) error {
	actingUser := strings.TrimSpace(c.Get(ActingUserHeader))
	if actingUser == "" {
		return badRequest(c, ActingUserHeader+" header is required")
	}

	var req ActionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	timeline, err := h.actions.Apply(c.Context(), req.ToService(actingUser))
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.JSON(timeline)
}

func (h *APIHandlers) GetTimeline(c fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return badRequest(c, "Reference ID must be a positive number")
	}

	timeline, err := h.timelines.Get(c.Context(), id)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.JSON(timeline)
}

func (h *APIHandlers) RegisterReference(c fiber.Ctx) error {
	var req RegisterReferenceRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	timeline, err := h.references.Register(c.Context(), services.RegisterReferenceRequest{
		Code:        req.Code,
		Collection:  req.Collection,
		ProductLine: req.ProductLine,
	})
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.Status(fiber.StatusCreated).JSON(timeline)
}

func (h *APIHandlers) FindReference(c fiber.Ctx) error {
	code := c.Query("code")
	if code == "" {
		return badRequest(c, "code query parameter is required")
	}

	reference, err := h.references.ByCode(c.Context(), code)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.JSON(reference)
}

func (h *APIHandlers) ArchiveReference(c fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return badRequest(c, "Reference ID must be a positive number")
	}

	reference, err := h.references.Archive(c.Context(), id)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.JSON(reference)
}

func (h *APIHandlers) GetCatalog(c fiber.Ctx) error {
	return c.JSON(h.catalog)
}

func (h *APIHandlers) ListUsers(c fiber.Ctx) error {
	users, err := h.users.List(c.Context())
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	if users == nil {
		users = []*models.User{}
	}

	return c.JSON(users)
}

func (h *APIHandlers) CreateUser(c fiber.Ctx) error {
	var req CreateUserRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.users.Create(c.Context(), &models.User{
		Code:   req.Code,
		Name:   req.Name,
		Email:  req.Email,
		Area:   req.Area,
		Role:   req.Role,
		Status: models.UserStatus(req.Status),
	})
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) GetUser(c fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return badRequest(c, "User ID must be a positive number")
	}

	user, err := h.users.Get(c.Context(), id)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.JSON(user)
}

func (h *APIHandlers) UpdateUser(c fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return badRequest(c, "User ID must be a positive number")
	}

	var req UpdateUserRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.users.Update(c.Context(), id, req.ToService())
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.JSON(updated)
}

// DeleteUser deactivates the user; the row is kept.
func (h *APIHandlers) DeleteUser(c fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return badRequest(c, "User ID must be a positive number")
	}

	user, err := h.users.SoftDelete(c.Context(), id)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.JSON(user)
}

func (h *APIHandlers) HardDeleteUser(c fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return badRequest(c, "User ID must be a positive number")
	}

	err = h.users.HardDelete(c.Context(), id)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.timelines.HealthCheck(c.Context())

	status := "unhealthy"
	message := "phasetrack API is unhealthy"
	httpStatus := http.StatusServiceUnavailable

	if repOk {
		status = "healthy"
		message = "phasetrack API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(HealthResponse{
		Status:      status,
		Message:     message,
		Checkers:    map[string]string{"repository": repositoryCheck},
		Subscribers: h.broadcaster.Len(),
		Timestamp:   time.Now().UTC(),
	})
}

func parseID(c fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return 0, err
	}

	if id <= 0 {
		return 0, strconv.ErrRange
	}

	return id, nil
}
