package capture

import (
	"context"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/kl2pen/facegate/internal/faceapi"
	"github.com/kl2pen/facegate/internal/notification"
)

// NopCamera is the camera handle for server-driven flows: the stream lives in
// the client, which posts captured frames, so there is nothing to stop here.
type NopCamera struct{}

func (NopCamera) Stop() {}

// HealthChecker reports face-service reachability.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Handler exposes the facial enrollment and verification endpoints. Each
// request runs one capture flow from Ready to a terminal phase.
type Handler struct {
	deps     Deps
	health   HealthChecker
	notifier notification.Notifier
}

// NewHandler builds the facial capture handler.
func NewHandler(deps Deps, health HealthChecker, notifier notification.Notifier) *Handler {
	return &Handler{deps: deps, health: health, notifier: notifier}
}

type frameRequest struct {
	Image string `json:"image"`
}

// Enroll captures the reference embedding from the posted frame.
func (h *Handler) Enroll(c *fiber.Ctx) error {
	userID, sessionID, err := callerIdentity(c)
	if err != nil {
		return err
	}
	var req frameRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Image == "" {
		return fiber.NewError(http.StatusBadRequest, "image is required")
	}

	flow := NewFlow(ModeEnroll, userID, sessionID, h.deps)
	defer flow.Close()
	if err := h.startServerFlow(c.UserContext(), flow); err != nil {
		return err
	}

	result, err := flow.Capture(c.UserContext(), req.Image)
	if err != nil {
		return captureError(result, err)
	}

	h.notify(c.UserContext(), notification.Message{
		Kind:   notification.KindEnrollmentUpdated,
		UserID: userID,
		Body:   "reference face embedding stored",
	})

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"status": "enrolled",
		// The completed marker guards against a redirect flash while the
		// new record propagates.
		"redirect_to": "/verify-facial?completed=true",
	})
}

// Verify matches the posted frame against the enrolled embedding. A mismatch
// has already terminated the session by the time the response is written.
func (h *Handler) Verify(c *fiber.Ctx) error {
	userID, sessionID, err := callerIdentity(c)
	if err != nil {
		return err
	}
	var req frameRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Image == "" {
		return fiber.NewError(http.StatusBadRequest, "image is required")
	}

	flow := NewFlow(ModeVerify, userID, sessionID, h.deps)
	defer flow.Close()
	if err := h.startServerFlow(c.UserContext(), flow); err != nil {
		return err
	}

	result, err := flow.Capture(c.UserContext(), req.Image)
	if errors.Is(err, ErrMismatch) {
		h.notify(c.UserContext(), notification.Message{
			Kind:   notification.KindSecurityLockout,
			UserID: userID,
			Body:   "face verification mismatch, session terminated",
		})
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{
			"status":     "mismatch",
			"signed_out": true,
			"confidence": result.Match.Confidence,
		})
	}
	if err != nil {
		return captureError(result, err)
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"status":     "verified",
		"confidence": result.Match.Confidence,
	})
}

// Status reports the caller's enrollment and session verification state.
func (h *Handler) Status(c *fiber.Ctx) error {
	userID, sessionID, err := callerIdentity(c)
	if err != nil {
		return err
	}

	enrolled, err := h.deps.Enrollments.HasEnrollment(c.UserContext(), userID)
	if err != nil {
		enrolled = false // fail closed
	}
	verified := false
	if state, err := h.deps.Sessions.Get(c.UserContext(), sessionID); err == nil {
		verified = state.Verified
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"enrolled":         enrolled,
		"session_verified": verified,
	})
}

// Health surfaces face-service reachability. A failure blocks the capture UI;
// it never downgrades gating.
func (h *Handler) Health(c *fiber.Ctx) error {
	if h.health == nil {
		return fiber.NewError(http.StatusServiceUnavailable, "face service not configured")
	}
	if err := h.health.Health(c.UserContext()); err != nil {
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "ok"})
}

func (h *Handler) startServerFlow(ctx context.Context, flow *Flow) error {
	err := flow.Start(ctx, func(context.Context) (Camera, error) {
		return NopCamera{}, nil
	})
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return nil
}

func (h *Handler) notify(ctx context.Context, msg notification.Message) {
	if h.notifier == nil {
		return
	}
	_ = h.notifier.Send(ctx, msg)
}

func callerIdentity(c *fiber.Ctx) (userID, sessionID string, err error) {
	userID, _ = c.Locals("user_id").(string)
	sessionID, _ = c.Locals("session_id").(string)
	if userID == "" || sessionID == "" {
		return "", "", fiber.NewError(http.StatusUnauthorized, "not signed in")
	}
	return userID, sessionID, nil
}

func captureError(result Result, err error) error {
	switch {
	case errors.Is(err, faceapi.ErrUnavailable):
		return fiber.NewError(http.StatusServiceUnavailable, result.Reason)
	case errors.Is(err, faceapi.ErrNoFaceDetected):
		return fiber.NewError(http.StatusUnprocessableEntity, result.Reason)
	case errors.Is(err, ErrNotReady):
		return fiber.NewError(http.StatusConflict, err.Error())
	default:
		return fiber.NewError(http.StatusBadRequest, errMessage(result, err))
	}
}

func errMessage(result Result, err error) string {
	if result.Reason != "" {
		return result.Reason
	}
	return err.Error()
}
