package gate

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/kl2pen/facegate/internal/lockout"
)

// Identity is the signed-in user as observed from the identity provider.
// Owned by the provider; read-only to the gate.
type Identity struct {
	UserID      string
	Email       string
	DisplayName string
}

// IdentityStream delivers identity changes. The callback receives nil on
// sign-out. Unsubscribing stops delivery.
type IdentityStream interface {
	Subscribe(fn func(*Identity)) (unsubscribe func())
}

// EnrollmentChecker looks up whether a user has a stored reference embedding.
type EnrollmentChecker interface {
	HasEnrollment(ctx context.Context, userID string) (bool, error)
}

// Redirector issues a navigation to the given path.
type Redirector interface {
	Redirect(path string)
}

// Options configures the controller.
type Options struct {
	// Required is the deployment-wide verification flag. When false the
	// controller still computes decisions but performs no redirects and
	// installs no lockout.
	Required bool
	Routes   Routes
	// GraceWindow bounds the post-enrollment suppression of a redirect
	// flash back to the enrollment flow.
	GraceWindow time.Duration
	// SignOut terminates the session after a verification mismatch. The
	// identity stream is expected to deliver the resulting nil identity.
	SignOut func()
	// Clock is injectable for tests; defaults to time.Now.
	Clock func() time.Time
}

// Controller reacts to identity and route changes, recomputes the gate
// decision and applies the corresponding side effects: redirects (at most
// once per route/state pair) and navigation lockout install/uninstall.
type Controller struct {
	mu     sync.Mutex
	opts   Options
	check  EnrollmentChecker
	guard  lockout.NavigationGuard
	redir  Redirector
	logger *slog.Logger

	generation  uint64
	identity    *Identity
	loading     bool
	enrolled    bool
	verified    bool
	route       string
	graceUntil  time.Time
	unsubscribe func()

	// redirect-once bookkeeping; resets only on path change.
	redirectFired bool
	redirectPath  string
	redirectState State

	installedReason lockout.Reason
}

// NewController builds a gate controller.
func NewController(opts Options, check EnrollmentChecker, guard lockout.NavigationGuard, redir Redirector, logger *slog.Logger) *Controller {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Routes.SignIn == "" {
		opts.Routes = DefaultRoutes()
	}
	return &Controller{opts: opts, check: check, guard: guard, redir: redir, logger: logger}
}

// Start subscribes to the identity stream. Each identity change supersedes
// any in-flight enrollment lookup for a previous identity.
func (c *Controller) Start(ctx context.Context, stream IdentityStream) {
	c.unsubscribe = stream.Subscribe(func(id *Identity) {
		gen := c.SetIdentity(id)
		if id != nil {
			go c.lookupEnrollment(ctx, gen, id.UserID)
		}
	})
}

// Stop unsubscribes from the identity stream and releases the lockout if one
// is installed.
func (c *Controller) Stop() {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.uninstallGuardLocked()
}

// SetIdentity records an identity change. The session verification flag is
// reset even when the same user signs back in, the generation counter is
// bumped so stale lookups are discarded, and the decision is recomputed. The
// new generation is returned for pairing with an async enrollment lookup.
func (c *Controller) SetIdentity(id *Identity) uint64 {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.identity = id
	c.verified = false
	c.enrolled = false
	c.graceUntil = time.Time{}
	c.loading = id != nil
	c.renderLocked()
	c.mu.Unlock()
	return gen
}

// SetRoute records a route change. The redirect-once flag resets on path
// change, and a `completed=true` query marker arms the grace window.
func (c *Controller) SetRoute(rawPath string) {
	path := rawPath
	var query url.Values
	if i := strings.IndexByte(rawPath, '?'); i >= 0 {
		path = rawPath[:i]
		query, _ = url.ParseQuery(rawPath[i+1:])
	}

	c.mu.Lock()
	if path != c.route {
		c.route = path
		c.redirectFired = false
	}
	if query.Get("completed") == "true" {
		c.graceUntil = c.opts.Clock().Add(c.opts.GraceWindow)
	}
	c.renderLocked()
	c.mu.Unlock()
}

// CompleteEnrollment synchronously flips the enrollment flag so the same
// evaluation cycle reflects it, and arms the grace window against a stale
// lookup flashing the gate back to NeedsEnrollment.
func (c *Controller) CompleteEnrollment() {
	c.mu.Lock()
	c.enrolled = true
	c.loading = false
	c.graceUntil = c.opts.Clock().Add(c.opts.GraceWindow)
	c.renderLocked()
	c.mu.Unlock()
}

// CompleteVerification records the session verification outcome. A mismatch
// terminates the session rather than permitting retry-until-match.
func (c *Controller) CompleteVerification(matched bool) {
	if matched {
		c.mu.Lock()
		c.verified = true
		c.loading = false
		c.renderLocked()
		c.mu.Unlock()
		return
	}

	if c.opts.SignOut != nil {
		c.opts.SignOut()
		return
	}
	c.SetIdentity(nil)
}

// Render recomputes the decision and applies side effects. Calling it
// repeatedly with unchanged inputs is safe: redirects fire at most once per
// (route, state) pair and the lockout is never installed twice.
func (c *Controller) Render() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.renderLocked()
}

// Current evaluates the decision without side effects.
func (c *Controller) Current() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Evaluate(c.inputLocked(), c.opts.Routes)
}

// OnHistoryNavigation handles an intercepted back/forward attempt while the
// gate is blocking: the redirect to the pending action is re-issued
// unconditionally. Deliberately aggressive; completing the facial step is the
// only way forward.
func (c *Controller) OnHistoryNavigation() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.opts.Required {
		return
	}
	state := Evaluate(c.inputLocked(), c.opts.Routes)
	if !state.Blocking() || c.opts.Routes.IsUnrestricted(c.route) {
		return
	}
	c.redir.Redirect(c.targetFor(state))
}

func (c *Controller) lookupEnrollment(ctx context.Context, gen uint64, userID string) {
	exists, err := c.check.HasEnrollment(ctx, userID)
	c.ApplyEnrollmentResult(gen, exists, err)
}

// ApplyEnrollmentResult applies an enrollment lookup outcome. Results from a
// superseded generation are discarded so a rapid sign-out/sign-in can never
// attribute one user's enrollment to another. Lookup errors fail closed.
func (c *Controller) ApplyEnrollmentResult(gen uint64, exists bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		if c.logger != nil {
			c.logger.Debug("discarding stale enrollment lookup", "generation", gen, "current", c.generation)
		}
		return
	}

	if err != nil {
		if c.logger != nil {
			c.logger.Error("enrollment lookup failed, failing closed", "error", err)
		}
		exists = false
	}

	// A "not enrolled" answer arriving inside the grace window is a stale
	// read racing the just-completed enrollment; keep the flag.
	if !exists && c.enrolled && c.opts.Clock().Before(c.graceUntil) {
		c.loading = false
		c.renderLocked()
		return
	}

	c.enrolled = exists
	c.loading = false
	c.renderLocked()
}

func (c *Controller) inputLocked() Input {
	return Input{
		Loading:          c.loading,
		Authenticated:    c.identity != nil,
		EnrollmentExists: c.enrolled,
		SessionVerified:  c.verified,
		Route:            c.route,
	}
}

func (c *Controller) renderLocked() State {
	state := Evaluate(c.inputLocked(), c.opts.Routes)

	if !c.opts.Required {
		c.uninstallGuardLocked()
		return state
	}

	restricted := !c.opts.Routes.IsUnrestricted(c.route)

	switch {
	case state == Unauthenticated && restricted:
		c.uninstallGuardLocked()
		c.redirectOnceLocked(state, c.opts.Routes.SignIn)
	case state.Blocking() && restricted:
		reason := lockout.ReasonEnrollment
		if state == NeedsVerification {
			reason = lockout.ReasonVerification
		}
		c.installGuardLocked(reason)
		c.redirectOnceLocked(state, c.targetFor(state))
	default:
		c.uninstallGuardLocked()
	}

	return state
}

func (c *Controller) targetFor(state State) string {
	if state == NeedsVerification {
		return c.opts.Routes.Verify
	}
	return c.opts.Routes.Enroll
}

func (c *Controller) redirectOnceLocked(state State, target string) {
	if c.redirectFired && c.redirectPath == c.route && c.redirectState == state {
		return
	}
	c.redirectFired = true
	c.redirectPath = c.route
	c.redirectState = state
	c.redir.Redirect(target)
}

func (c *Controller) installGuardLocked(reason lockout.Reason) {
	if c.installedReason == reason {
		return
	}
	if c.installedReason != 0 {
		c.guard.Uninstall()
	}
	c.guard.Install(reason)
	c.installedReason = reason
}

func (c *Controller) uninstallGuardLocked() {
	if c.installedReason == 0 {
		return
	}
	c.guard.Uninstall()
	c.installedReason = 0
}
