package jobs

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes job-board endpoints.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type postRequest struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

// Post creates a job listing owned by the caller.
func (h *Handler) Post(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	var req postRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	job, err := h.svc.Post(c.UserContext(), PostInput{
		PosterID:    userID,
		Title:       req.Title,
		Company:     req.Company,
		Location:    req.Location,
		Description: req.Description,
	})
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(jobResponse(job))
}

// List returns open listings.
func (h *Handler) List(c *fiber.Ctx) error {
	listed, err := h.svc.List(c.UserContext(), c.QueryInt("limit", 50))
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	out := make([]fiber.Map, 0, len(listed))
	for _, job := range listed {
		out = append(out, jobResponse(job))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"jobs": out})
}

// Get fetches one listing.
func (h *Handler) Get(c *fiber.Ctx) error {
	job, err := h.svc.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(jobResponse(job))
}

type applyRequest struct {
	CoverNote string `json:"cover_note"`
}

// Apply records the caller's application to a job.
func (h *Handler) Apply(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	var req applyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	app, err := h.svc.Apply(c.UserContext(), c.Params("id"), userID, req.CoverNote)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		case errors.Is(err, ErrAlreadyApplied):
			return fiber.NewError(http.StatusConflict, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"application_id": app.ID,
		"job_id":         app.JobID,
		"created_at":     app.CreatedAt,
	})
}

// Applications lists the caller's applications.
func (h *Handler) Applications(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	apps, err := h.svc.Applications(c.UserContext(), userID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	out := make([]fiber.Map, 0, len(apps))
	for _, app := range apps {
		out = append(out, fiber.Map{
			"application_id": app.ID,
			"job_id":         app.JobID,
			"cover_note":     app.CoverNote,
			"created_at":     app.CreatedAt,
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"applications": out})
}

func jobResponse(job Job) fiber.Map {
	return fiber.Map{
		"id":          job.ID,
		"poster_id":   job.PosterID,
		"title":       job.Title,
		"company":     job.Company,
		"location":    job.Location,
		"description": job.Description,
		"status":      job.Status,
		"created_at":  job.CreatedAt,
	}
}
