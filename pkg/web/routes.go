package web

import "github.com/gofiber/fiber/v3"

// Routes mounts every API endpoint on router.
func (h *APIHandlers) Routes(router fiber.Router) {
	router.Post("/actions", h.ApplyAction)
	router.Get("/events", h.StreamEvents)
	router.Get("/catalog", h.GetCatalog)
	router.Get("/health", h.HealthCheck)

	r := router.Group("/references")
	r.Get("/", h.FindReference)
	r.Post("/", h.RegisterReference)
	r.Get("/:id/timeline", h.GetTimeline)
	r.Post("/:id/archive", h.ArchiveReference)

	u := router.Group("/users")
	u.Get("/", h.ListUsers)
	u.Post("/", h.CreateUser)
	u.Get("/:id", h.GetUser)
	u.Patch("/:id", h.UpdateUser)
	u.Delete("/:id", h.DeleteUser)
	u.Delete("/:id/hard", h.HardDeleteUser)
}
