package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kl2pen/facegate/internal/capture"
)

// RegisterFacialRoutes wires the facial enrollment and verification endpoints.
func RegisterFacialRoutes(r fiber.Router, h *capture.Handler) {
	r.Post("/enroll", h.Enroll)
	r.Post("/verify", h.Verify)
	r.Get("/status", h.Status)
	r.Get("/health", h.Health)
}
