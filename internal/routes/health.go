package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/kl2pen/facegate/internal/capture"
)

// RegisterHealthRoutes adds liveness/readiness style endpoints covering
// postgres, redis and the face service.
func RegisterHealthRoutes(app *fiber.App, d Deps, face capture.HealthChecker) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		dbStatus := "ok"
		redisStatus := "ok"
		faceStatus := "ok"

		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if d.DB != nil {
			if err := d.DB.Ping(ctx); err != nil {
				dbStatus = err.Error()
			}
		}
		if d.Cache != nil {
			if err := d.Cache.Ping(ctx).Err(); err != nil {
				redisStatus = err.Error()
			}
		}
		if d.Cfg.VerificationRequired {
			if err := face.Health(ctx); err != nil {
				faceStatus = err.Error()
			}
		}
		status := http.StatusOK
		if dbStatus != "ok" || redisStatus != "ok" || faceStatus != "ok" {
			status = http.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{
			"status":    fiber.Map{"postgres": dbStatus, "redis": redisStatus, "face_service": faceStatus},
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}
