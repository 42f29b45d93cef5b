// Package capture drives the enrollment/verification capture widget: camera
// acquisition, frame submission to the face service and the resulting state
// transitions. The camera stream is owned exclusively by a flow while active
// and is released on every exit path.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kl2pen/facegate/internal/enrollment"
	"github.com/kl2pen/facegate/internal/faceapi"
	"github.com/kl2pen/facegate/internal/session"
)

// Phase is the capture flow's state.
type Phase int

const (
	PhaseInitializing Phase = iota
	PhaseReady
	PhaseScanning
	PhaseProcessing
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseInitializing:
		return "initializing"
	case PhaseReady:
		return "ready"
	case PhaseScanning:
		return "scanning"
	case PhaseProcessing:
		return "processing"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// Mode selects what a successful capture means.
type Mode int

const (
	// ModeEnroll captures the reference embedding.
	ModeEnroll Mode = iota + 1
	// ModeVerify matches a live frame against the enrolled embedding.
	ModeVerify
)

// ErrNotReady is returned when a capture is triggered outside the Ready phase.
var ErrNotReady = errors.New("capture flow is not ready")

// ErrMismatch is returned when verification decides no-match. The session has
// already been terminated by the time the caller sees it: retry-until-match
// is deliberately not possible.
var ErrMismatch = errors.New("face verification mismatch")

// Camera is a live media stream handle.
type Camera interface {
	Stop()
}

// CameraOpener acquires the camera stream.
type CameraOpener func(ctx context.Context) (Camera, error)

// Deps wires the flow's collaborators.
type Deps struct {
	Detector    faceapi.Detector
	Matcher     faceapi.Matcher
	Enrollments *enrollment.Service
	Sessions    session.Store
	// SignOut terminates the given user's session after a verification mismatch.
	SignOut     func(ctx context.Context, userID, sessionID string) error
	GraceWindow time.Duration
	Logger      *slog.Logger
}

// Result is the outcome of a processed frame.
type Result struct {
	Enrolled bool
	Verified bool
	Match    faceapi.Match
	// Reason carries the user-facing message for recoverable failures.
	Reason string
}

// Flow is one enrollment or verification capture session.
type Flow struct {
	mu        sync.Mutex
	mode      Mode
	userID    string
	sessionID string
	deps      Deps
	phase     Phase
	camera    Camera
}

// NewFlow builds a capture flow in the Initializing phase.
func NewFlow(mode Mode, userID, sessionID string, deps Deps) *Flow {
	return &Flow{mode: mode, userID: userID, sessionID: sessionID, deps: deps, phase: PhaseInitializing}
}

// Start acquires the camera and moves the flow to Ready. A camera failure is
// recoverable: the flow stays in Initializing and can be started again.
func (f *Flow) Start(ctx context.Context, open CameraOpener) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.phase != PhaseInitializing {
		return fmt.Errorf("cannot start flow in phase %s", f.phase)
	}
	cam, err := open(ctx)
	if err != nil {
		return fmt.Errorf("acquire camera: %w", err)
	}
	f.camera = cam
	f.phase = PhaseReady
	return nil
}

// Phase returns the current phase.
func (f *Flow) Phase() Phase {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.phase
}

// Capture processes one frame. Recoverable failures (no face detected, face
// service unreachable) return the flow to Ready with a surfaced reason and
// never change the gate state. Success is terminal: the embedding is stored
// (enroll) or the match is decided (verify), and the camera is released.
func (f *Flow) Capture(ctx context.Context, frameBase64 string) (Result, error) {
	f.mu.Lock()
	if f.phase != PhaseReady {
		phase := f.phase
		f.mu.Unlock()
		return Result{}, fmt.Errorf("%w: phase %s", ErrNotReady, phase)
	}
	f.phase = PhaseScanning
	f.mu.Unlock()

	f.setPhase(PhaseProcessing)

	detection, err := f.deps.Detector.Detect(ctx, frameBase64)
	if err != nil {
		return f.recover("face could not be detected, please try again", err)
	}

	switch f.mode {
	case ModeEnroll:
		return f.finishEnroll(ctx, detection)
	case ModeVerify:
		return f.finishVerify(ctx, detection)
	default:
		return f.recover("unsupported capture mode", fmt.Errorf("mode %d", f.mode))
	}
}

// Close releases the camera. Safe to call on every exit path, including after
// a terminal capture already released it.
func (f *Flow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releaseCameraLocked()
}

func (f *Flow) finishEnroll(ctx context.Context, detection faceapi.Detection) (Result, error) {
	if err := f.deps.Enrollments.Store(ctx, f.userID, detection.Embedding); err != nil {
		return f.recover("could not save enrollment, please try again", err)
	}
	// Arm the grace marker so the gate does not flash back to enrollment
	// while the stored record propagates.
	if f.sessionID != "" {
		if err := f.deps.Sessions.SetGraceMarker(ctx, f.sessionID, f.deps.GraceWindow); err != nil {
			f.deps.Logger.Warn("set grace marker", "error", err)
		}
	}
	f.terminate()
	return Result{Enrolled: true}, nil
}

func (f *Flow) finishVerify(ctx context.Context, detection faceapi.Detection) (Result, error) {
	reference, err := f.deps.Enrollments.Reference(ctx, f.userID)
	if err != nil {
		return f.recover("enrollment record unavailable, please try again", err)
	}

	match, err := f.deps.Matcher.Verify(ctx, reference.Embedding, detection.Embedding)
	if err != nil {
		return f.recover("verification service unavailable, please try again", err)
	}

	if !match.IsMatch {
		// Lockout-on-mismatch: terminate the session instead of returning
		// to Ready, so a non-matching face cannot retry until it passes.
		f.deps.Logger.Warn("face verification mismatch, terminating session",
			"user_id", f.userID, "confidence", match.Confidence)
		if err := f.deps.SignOut(ctx, f.userID, f.sessionID); err != nil {
			f.deps.Logger.Error("forced sign-out failed", "error", err)
		}
		f.terminate()
		return Result{Verified: false, Match: match}, ErrMismatch
	}

	if err := f.deps.Sessions.MarkVerified(ctx, f.sessionID); err != nil {
		return f.recover("could not record verification, please try again", err)
	}
	f.terminate()
	return Result{Verified: true, Match: match}, nil
}

// recover returns the flow to Ready with a user-facing reason. The camera
// stays live so the user can try again.
func (f *Flow) recover(reason string, err error) (Result, error) {
	f.deps.Logger.Info("capture attempt failed", "reason", reason, "error", err)
	f.setPhase(PhaseReady)
	return Result{Reason: reason}, err
}

func (f *Flow) terminate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.phase = PhaseDone
	f.releaseCameraLocked()
}

func (f *Flow) setPhase(p Phase) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.phase = p
}

func (f *Flow) releaseCameraLocked() {
	if f.camera != nil {
		f.camera.Stop()
		f.camera = nil
	}
}
