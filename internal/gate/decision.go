// Package gate implements the facial-verification access gate: a state
// machine deciding, for every identity change and route change, whether the
// user may reach protected content or must first complete facial enrollment
// or per-session verification.
package gate

import "strings"

// State is the gate's access decision.
type State int

const (
	// Loading is transient while identity/enrollment status is being fetched.
	Loading State = iota
	// Unauthenticated means no signed-in identity is present.
	Unauthenticated
	// NeedsEnrollment means the user has no stored reference embedding.
	NeedsEnrollment
	// NeedsVerification means the user is enrolled but has not passed a face
	// match during the current session.
	NeedsVerification
	// Clear renders protected content unmodified.
	Clear
)

// String returns the wire name of the state.
func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Unauthenticated:
		return "unauthenticated"
	case NeedsEnrollment:
		return "needs_enrollment"
	case NeedsVerification:
		return "needs_verification"
	case Clear:
		return "clear"
	default:
		return "unknown"
	}
}

// Blocking reports whether the state requires a facial action before
// navigation may proceed.
func (s State) Blocking() bool {
	return s == NeedsEnrollment || s == NeedsVerification
}

// Routes fixes the path layout the gate operates on. Unrestricted prefixes
// bypass gating entirely; the remaining fields are redirect targets.
type Routes struct {
	Unrestricted []string
	SignIn       string
	Enroll       string
	Verify       string
}

// DefaultRoutes returns the application's route layout.
func DefaultRoutes() Routes {
	return Routes{
		Unrestricted: []string{
			"/login",
			"/signup",
			"/setup-facial",
			"/verify-facial",
			"/legal",
		},
		SignIn: "/login",
		Enroll: "/setup-facial",
		Verify: "/verify-facial",
	}
}

// IsUnrestricted reports whether the path is exempt from gating, matched by
// path prefix.
func (r Routes) IsUnrestricted(path string) bool {
	for _, prefix := range r.Unrestricted {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Input carries everything the decision depends on.
type Input struct {
	Loading          bool
	Authenticated    bool
	EnrollmentExists bool
	SessionVerified  bool
	Route            string
}

// Evaluate is the pure transition function. It has no side effects and must
// be recomputed on every identity change and every route change; callers may
// never cache a decision across a route transition.
func Evaluate(in Input, routes Routes) State {
	if in.Loading {
		return Loading
	}
	if routes.IsUnrestricted(in.Route) {
		return Clear
	}
	if !in.Authenticated {
		return Unauthenticated
	}
	if !in.EnrollmentExists {
		return NeedsEnrollment
	}
	if !in.SessionVerified {
		return NeedsVerification
	}
	return Clear
}
