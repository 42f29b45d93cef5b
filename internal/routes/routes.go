package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/kl2pen/facegate/internal/auth"
	"github.com/kl2pen/facegate/internal/capture"
	"github.com/kl2pen/facegate/internal/config"
	"github.com/kl2pen/facegate/internal/enrollment"
	"github.com/kl2pen/facegate/internal/faceapi"
	"github.com/kl2pen/facegate/internal/gate"
	"github.com/kl2pen/facegate/internal/identity"
	"github.com/kl2pen/facegate/internal/jobs"
	"github.com/kl2pen/facegate/internal/middleware"
	"github.com/kl2pen/facegate/internal/notification"
	"github.com/kl2pen/facegate/internal/session"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.Env)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.Env)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	if d.Cfg.IsDev() {
		// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
		app.Use(logger.New(logger.Config{
			Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
			TimeFormat: "15:04:05",
			TimeZone:   "Local",
		}))
	}
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	// Repositories: Postgres when available, in-memory for dev.
	var identityRepo identity.Repository
	var enrollmentRepo enrollment.Repository
	var jobRepo jobs.Repository
	if d.DB != nil {
		identityRepo = identity.NewPostgresRepository(d.DB)
		enrollmentRepo = enrollment.NewPostgresRepository(d.DB)
		jobRepo = jobs.NewPostgresRepository(d.DB)
	} else {
		identityRepo = identity.NewMemoryRepository()
		enrollmentRepo = enrollment.NewMemoryRepository()
		jobRepo = jobs.NewMemoryRepository()
	}

	var sessions session.Store
	if d.Cache != nil {
		sessions = session.NewRedisStore(d.Cache, d.Cfg.SessionTTL)
	} else {
		sessions = session.NewMemoryStore()
	}

	// Services and handlers
	identitySvc := identity.NewService(identityRepo)
	authSvc := auth.NewService(d.Cfg, identityRepo, sessions)
	authHandler := auth.NewHandler(identitySvc, authSvc)
	enrollmentSvc := enrollment.NewService(enrollmentRepo, d.Logger)
	notifier := notification.NewLoggerNotifier(d.Logger)
	jobSvc := jobs.NewService(jobRepo)
	jobHandler := jobs.NewHandler(jobSvc)

	faceClient := faceapi.NewClient(d.Cfg.FaceServiceURL, d.Cfg.FaceServiceTimeout)
	captureHandler := capture.NewHandler(capture.Deps{
		Detector:    faceClient,
		Matcher:     faceClient,
		Enrollments: enrollmentSvc,
		Sessions:    sessions,
		SignOut:     authSvc.Logout,
		GraceWindow: d.Cfg.GraceWindow,
		Logger:      d.Logger,
	}, faceClient, notifier)

	// Health
	RegisterHealthRoutes(app, d, faceClient)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	jwtmw := middleware.JWTAuth(d.Cfg, identityRepo)

	// Public routes
	rateLimiter := middleware.LoginRateLimit(d.Cache, 5)
	RegisterAuthRoutes(api, authHandler, rateLimiter, jwtmw)

	// Facial capture endpoints sit behind authentication only: a user who
	// still needs enrollment must be able to reach them.
	facial := api.Group("/facial", jwtmw)
	RegisterFacialRoutes(facial, captureHandler)

	// Everything else is gated on a verified session.
	facegate := middleware.FacialGate(d.Cfg, gate.DefaultRoutes(), enrollmentSvc, sessions, d.Logger)
	protected := api.Group("", jwtmw, facegate)
	protected.Get("/me", func(c *fiber.Ctx) error {
		uid, _ := c.Locals("user_id").(string)
		if uid == "" {
			return c.SendStatus(http.StatusUnauthorized)
		}
		user, err := identityRepo.FindByID(c.UserContext(), uid)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "user not found")
		}
		enrolled, _ := enrollmentSvc.HasEnrollment(c.UserContext(), user.ID)
		return c.JSON(fiber.Map{
			"user_id":       user.ID,
			"email":         user.Email,
			"display_name":  user.DisplayName,
			"token_version": user.TokenVersion,
			"enrolled":      enrolled,
			"created_at":    user.CreatedAt,
			"last_login":    user.LastLogin,
		})
	})
	RegisterJobRoutes(protected, jobHandler)

	return nil
}
