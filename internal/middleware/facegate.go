package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/kl2pen/facegate/internal/config"
	"github.com/kl2pen/facegate/internal/enrollment"
	"github.com/kl2pen/facegate/internal/gate"
	"github.com/kl2pen/facegate/internal/lockout"
	"github.com/kl2pen/facegate/internal/session"
)

// Lockout directive headers consumed by the client-side navigation runtime.
const (
	lockoutHeader        = "X-Facegate-Lockout"
	lockoutWarningHeader = "X-Facegate-Warning"
	lockoutRelease       = "release"
)

// FacialGate enforces the facial-verification gate on every request to a
// restricted route: unauthenticated callers go to sign-in, unenrolled users
// to enrollment, enrolled-but-unverified sessions to verification. The first
// hit per (path, state) answers with a redirect, repeats with 403 so clients
// ignoring the redirect cannot loop. Enrollment lookups fail closed.
func FacialGate(cfg config.Config, routes gate.Routes, enrollments *enrollment.Service, sessions session.Store, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !cfg.VerificationRequired {
			return c.Next()
		}

		path := c.Path()
		if routes.IsUnrestricted(path) {
			return c.Next()
		}

		userID, _ := c.Locals("user_id").(string)
		sessionID, _ := c.Locals("session_id").(string)

		in := gate.Input{Route: path}

		var state session.State
		if userID != "" && sessionID != "" {
			var err error
			state, err = sessions.Get(c.UserContext(), sessionID)
			switch {
			case err == nil:
				in.Authenticated = true
				in.SessionVerified = state.Verified
			case errors.Is(err, session.ErrNotFound):
				// Expired or destroyed session: back to sign-in.
			default:
				logger.Error("session lookup failed", "error", err)
			}
		}

		if in.Authenticated {
			exists, err := enrollments.HasEnrollment(c.UserContext(), userID)
			if err != nil {
				exists = false // fail closed
			}
			if !exists {
				// The grace marker is armed server-side when an enrollment
				// actually succeeds (never from request input) and self
				// expires, so a "not enrolled" read racing the just-stored
				// record does not flash the user back to enrollment. The
				// ?completed=true query on the post-enroll redirect is a
				// client-model hint only; the middleware ignores it.
				if grace, gerr := sessions.HasGraceMarker(c.UserContext(), sessionID); gerr == nil && grace {
					exists = true
				}
			}
			in.EnrollmentExists = exists
		}

		decision := gate.Evaluate(in, routes)

		switch decision {
		case gate.Clear:
			c.Set(lockoutHeader, lockoutRelease)
			return c.Next()

		case gate.Unauthenticated:
			c.Set(lockoutHeader, lockoutRelease)
			return c.Redirect(routes.SignIn, http.StatusSeeOther)

		default:
			reason := lockout.ReasonEnrollment
			target := routes.Enroll
			if decision == gate.NeedsVerification {
				reason = lockout.ReasonVerification
				target = routes.Verify
			}
			c.Set(lockoutHeader, reason.String())
			c.Set(lockoutWarningHeader, reason.WarningMessage())

			first, err := sessions.RecordRedirect(c.UserContext(), sessionID, path, decision.String())
			if err != nil {
				logger.Warn("redirect bookkeeping failed", "error", err)
				first = true
			}
			if first {
				return c.Redirect(target, http.StatusSeeOther)
			}
			return c.Status(http.StatusForbidden).JSON(fiber.Map{
				"error":           "facial verification required",
				"required_action": decision.String(),
				"redirect_to":     target,
			})
		}
	}
}
