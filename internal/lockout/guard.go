// Package lockout suppresses browser navigation while a mandatory facial
// security step is pending. The actual interception happens in the client;
// this package owns the decision of when the interceptors are installed and
// what they do, expressed as directives behind a NavigationGuard interface so
// the behavior is unit-testable without a browser.
package lockout

import "sync"

// Reason identifies which security step is blocking navigation.
type Reason int

const (
	ReasonEnrollment Reason = iota + 1
	ReasonVerification
)

// String returns the wire name of the reason.
func (r Reason) String() string {
	switch r {
	case ReasonEnrollment:
		return "needs_enrollment"
	case ReasonVerification:
		return "needs_verification"
	default:
		return "unknown"
	}
}

// WarningMessage is the unload-confirmation text shown for the reason.
func (r Reason) WarningMessage() string {
	switch r {
	case ReasonEnrollment:
		return "Facial enrollment is required before you can leave this page."
	case ReasonVerification:
		return "Facial verification is required before you can leave this page."
	default:
		return "A required security step is still pending."
	}
}

// NavigationGuard installs and removes browser navigation interceptors.
//
// Install pushes a synthetic history entry (so a single back press stays in
// the app), intercepts history navigation by re-pushing the current location,
// and installs an unload confirmation with a reason-specific warning.
// Uninstall removes both interceptors; leaving them behind blocks legitimate
// navigation once the gate clears.
type NavigationGuard interface {
	Install(reason Reason)
	Uninstall()
}

// Action names a directive sent to the client runtime.
type Action string

const (
	ActionPushHistory      Action = "push_history"
	ActionInterceptHistory Action = "intercept_history"
	ActionInterceptUnload  Action = "intercept_unload"
	ActionReleaseHistory   Action = "release_history"
	ActionReleaseUnload    Action = "release_unload"
)

// Directive is a single instruction for the client-side navigation runtime.
type Directive struct {
	Action  Action `json:"action"`
	Reason  string `json:"reason,omitempty"`
	Warning string `json:"warning,omitempty"`
}

// Sink receives directives, e.g. a response header writer or a push channel.
type Sink interface {
	Send(Directive)
}

// DirectiveGuard translates install/uninstall into client directives.
type DirectiveGuard struct {
	sink Sink
}

// NewDirectiveGuard builds a guard writing to the given sink.
func NewDirectiveGuard(sink Sink) *DirectiveGuard {
	return &DirectiveGuard{sink: sink}
}

func (g *DirectiveGuard) Install(reason Reason) {
	g.sink.Send(Directive{Action: ActionPushHistory})
	g.sink.Send(Directive{Action: ActionInterceptHistory, Reason: reason.String()})
	g.sink.Send(Directive{Action: ActionInterceptUnload, Reason: reason.String(), Warning: reason.WarningMessage()})
}

func (g *DirectiveGuard) Uninstall() {
	g.sink.Send(Directive{Action: ActionReleaseHistory})
	g.sink.Send(Directive{Action: ActionReleaseUnload})
}

// Recorder is a NavigationGuard fake that records calls for tests.
type Recorder struct {
	mu         sync.Mutex
	installs   []Reason
	uninstalls int
}

// NewRecorder builds an empty recording guard.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Install(reason Reason) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.installs = append(r.installs, reason)
}

func (r *Recorder) Uninstall() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.uninstalls++
}

// Installs returns the recorded install reasons in order.
func (r *Recorder) Installs() []Reason {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Reason, len(r.installs))
	copy(out, r.installs)
	return out
}

// Uninstalls returns how many times Uninstall was called.
func (r *Recorder) Uninstalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.uninstalls
}

// Active reports whether more installs than uninstalls have occurred.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.installs) > r.uninstalls
}
