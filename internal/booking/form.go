package booking

import (
	"context"
	"errors"
	"sync"

	"github.com/spec-kit/space-booking/internal/session"
)

// State is where a Form is in its submission cycle.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateCreated    State = "created"
	StateConflict   State = "conflict"
	StateFailed     State = "failed"
)

var (
	// ErrLoginRequired is returned when no session is active at submission.
	ErrLoginRequired = errors.New("login required")
	// ErrClosed is returned once the form has been closed.
	ErrClosed = errors.New("form closed")
	// ErrStale is returned when the outcome arrived after the session changed,
	// the form was closed, or a newer submission was made. The outcome is not applied.
	ErrStale = errors.New("outcome discarded")
)

// SessionSource is the read side of the token store. *session.Store satisfies it.
type SessionSource interface {
	Current(ctx context.Context) session.Session
}

// Form is the per-view reservation form.
type Form struct {
	workflow *Workflow
	sessions SessionSource

	mu     sync.Mutex
	state  State
	last   Outcome
	seq    uint64
	closed bool
}

// NewForm returns an idle form.
func NewForm(workflow *Workflow, sessions SessionSource) *Form {
	return &Form{workflow: workflow, sessions: sessions, state: StateIdle}
}

// Submit sends intent with the current session. The returned Outcome is what
// the gateway answered; it is applied to the form only when the session that
// submitted it is still current and no newer submission has been made.
func (f *Form) Submit(ctx context.Context, intent Intent) (Outcome, error) {
	if err := intent.Validate(); err != nil {
		return Outcome{}, err
	}
	sess := f.sessions.Current(ctx)
	if !sess.LoggedIn {
		return Outcome{}, ErrLoginRequired
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return Outcome{}, ErrClosed
	}
	f.seq++
	seq := f.seq
	f.state = StateSubmitting
	f.mu.Unlock()

	out := f.workflow.Submit(ctx, intent)
	still := f.sessions.Current(ctx)

	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case f.closed:
		return out, ErrStale
	case seq != f.seq:
		return out, ErrStale
	case !still.LoggedIn || still.Credential != sess.Credential:
		f.state = StateIdle
		return out, ErrStale
	}
	f.last = out
	f.state = stateFor(out.Kind)
	return out, nil
}

// State reports the current state.
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Last returns the most recently applied outcome.
func (f *Form) Last() (Outcome, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last, f.last.Kind != ""
}

// Dismiss returns a finished form to Idle, keeping the last outcome.
func (f *Form) Dismiss() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateSubmitting {
		f.state = StateIdle
	}
}

// Close tears the form down; in-flight outcomes are dropped.
func (f *Form) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func stateFor(k Kind) State {
	switch k {
	case KindCreated:
		return StateCreated
	case KindConflict:
		return StateConflict
	default:
		return StateFailed
	}
}
