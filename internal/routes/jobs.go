package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kl2pen/facegate/internal/jobs"
)

// RegisterJobRoutes wires the job board endpoints. They sit behind the facial
// gate: only verified sessions reach them.
func RegisterJobRoutes(r fiber.Router, h *jobs.Handler) {
	group := r.Group("/jobs")
	group.Get("", h.List)
	group.Post("", h.Post)
	group.Get("/:id", h.Get)
	group.Post("/:id/apply", h.Apply)

	r.Get("/applications", h.Applications)
}
