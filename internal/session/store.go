// Package session tracks per-browser-session facial verification state. The
// verified flag is deliberately ephemeral: it starts false on every new
// session, including a re-login of the same user, and is set only after a
// successful face match during that session.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when the session does not exist or has expired.
var ErrNotFound = errors.New("session not found")

// State is the per-session verification record.
type State struct {
	UserID string
	// Verified reports whether a face verification succeeded during this
	// session. Never persisted across sessions.
	Verified bool
	// Generation is a monotonically increasing counter assigned per
	// identity-change cycle. Async lookup results carrying a stale
	// generation must be discarded.
	Generation uint64
	CreatedAt  time.Time
}

// Store persists session verification state.
type Store interface {
	// Create registers a fresh session with Verified=false and a newly
	// assigned generation.
	Create(ctx context.Context, id, userID string) (State, error)
	Get(ctx context.Context, id string) (State, error)
	MarkVerified(ctx context.Context, id string) error
	Destroy(ctx context.Context, id string) error

	// SetGraceMarker records the short-lived "just completed" signal that
	// suppresses a redirect flash after enrollment. It self-expires.
	SetGraceMarker(ctx context.Context, id string, window time.Duration) error
	HasGraceMarker(ctx context.Context, id string) (bool, error)

	// RecordRedirect implements the redirect-once contract: it returns true
	// only the first time the given (path, state) pair is seen for this
	// session, resetting whenever the path changes.
	RecordRedirect(ctx context.Context, id, path, state string) (bool, error)
}
