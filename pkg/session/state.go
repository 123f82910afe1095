// Package session manages the client's authentication lifecycle: the
// session state machine, the startup bootstrap, and the background
// refresh scheduler. State transitions are expressed as events consumed
// by a pure Reduce function so the machine is testable without any
// network or storage dependency.
package session

import "github.com/lmrk/lmrkctl/pkg/api"

// State is the client session at a point in time. It is a value; the
// Manager replaces it wholesale on every transition.
type State struct {
	// Authenticated is true only after a successful login or a
	// successful bootstrap verification.
	Authenticated bool

	// User is the logged-in identity. Present iff Authenticated.
	User *api.User

	// Token mirrors the token store. Present iff Authenticated.
	Token string

	// Loading is true while an auth-determining call is in flight.
	// Callers must not treat a loading session as unauthenticated.
	Loading bool

	// Err is the last user-visible failure reason. Cleared on the next
	// attempt or by EventClearError.
	Err string
}

// EventType tags a session transition event.
type EventType int

const (
	// EventLoginStart marks the beginning of a login attempt.
	EventLoginStart EventType = iota

	// EventLoginSuccess carries the user and token of a successful
	// login or bootstrap verification.
	EventLoginSuccess

	// EventLoginFailure carries the user-visible failure message.
	EventLoginFailure

	// EventLogout resets the session to its initial unauthenticated
	// state with loading cleared.
	EventLogout

	// EventRefresh replaces the token and user of an authenticated
	// session without touching Loading.
	EventRefresh

	// EventClearError clears Err and nothing else.
	EventClearError

	// EventSetLoading sets Loading and nothing else.
	EventSetLoading
)

// Event is a tagged session transition. Only the fields relevant to
// its Type are read.
type Event struct {
	Type    EventType
	User    *api.User
	Token   string
	Message string
	Loading bool
}

// Reduce applies an event to a state and returns the next state. It is
// pure: no I/O, no side effects. Unknown event types leave the state
// unchanged.
func Reduce(s State, e Event) State {
	switch e.Type {
	case EventLoginStart:
		s.Loading = true
		s.Err = ""
		return s

	case EventLoginSuccess:
		return State{
			Authenticated: true,
			User:          e.User,
			Token:         e.Token,
		}

	case EventLoginFailure:
		return State{Err: e.Message}

	case EventLogout:
		return State{}

	case EventRefresh:
		// Only an authenticated session has a token to rotate.
		if !s.Authenticated {
			return s
		}
		s.Token = e.Token
		s.User = e.User
		return s

	case EventClearError:
		s.Err = ""
		return s

	case EventSetLoading:
		s.Loading = e.Loading
		return s

	default:
		return s
	}
}
