package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/lmrk/lmrkctl/pkg/api"
	"github.com/lmrk/lmrkctl/pkg/tokenstore"
)

// AuthAPI is the slice of the backend client the session layer needs.
// *api.Client satisfies it; tests substitute fakes.
type AuthAPI interface {
	Login(ctx context.Context, username, password string) (*api.Credentials, error)
	Logout(ctx context.Context) error
	Refresh(ctx context.Context) (*api.Credentials, error)
	Me(ctx context.Context, token string) (*api.User, error)
}

// LoginResult is what Login resolves to. Login never returns a Go
// error; credential and connectivity failures both land in Message.
type LoginResult struct {
	OK      bool
	Message string
}

// Manager owns the session state and drives its transitions. It is
// constructed once, passed to consumers by reference, and is safe for
// concurrent use. Logout resets it to a fresh initial value.
type Manager struct {
	backend AuthAPI
	store   tokenstore.Store
	logger  *slog.Logger

	mu       sync.Mutex
	state    State
	watchers []func(State)
}

// NewManager creates a Manager in the initial unauthenticated state.
func NewManager(backend AuthAPI, store tokenstore.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		backend: backend,
		store:   store,
		logger:  logger,
	}
}

// State returns a snapshot of the current session state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Watch registers an observer invoked after every state transition
// with the new state. Observers run synchronously on the transitioning
// goroutine and must not block.
func (m *Manager) Watch(fn func(State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watchers = append(m.watchers, fn)
}

// dispatch applies an event through Reduce and notifies watchers. The
// state mutex is released before watchers run.
func (m *Manager) dispatch(e Event) State {
	m.mu.Lock()
	m.state = Reduce(m.state, e)
	next := m.state
	watchers := make([]func(State), len(m.watchers))
	copy(watchers, m.watchers)
	m.mu.Unlock()

	for _, fn := range watchers {
		fn(next)
	}
	return next
}

// Login authenticates with the backend. On success the token is
// persisted to the store and the session becomes authenticated. On any
// failure the session carries the user-visible message and the result
// mirrors it. A login attempt issued while another is outstanding is
// harmless; the last transition to apply wins.
func (m *Manager) Login(ctx context.Context, username, password string) LoginResult {
	m.dispatch(Event{Type: EventLoginStart})

	creds, err := m.backend.Login(ctx, username, password)
	if err != nil {
		msg := failureMessage(err)
		m.logger.Info("login failed", "username", username, "reason", msg)
		m.dispatch(Event{Type: EventLoginFailure, Message: msg})
		return LoginResult{OK: false, Message: msg}
	}

	if err := m.store.Save(creds.Token); err != nil {
		m.logger.Warn("persisting token", "error", err)
	}
	m.dispatch(Event{Type: EventLoginSuccess, User: &creds.User, Token: creds.Token})
	m.logger.Info("login succeeded", "username", creds.User.Username)
	return LoginResult{OK: true}
}

// Logout ends the session. The local transition always happens; the
// remote logout call is best-effort and its failure is only logged.
func (m *Manager) Logout(ctx context.Context) {
	if err := m.backend.Logout(ctx); err != nil {
		m.logger.Warn("remote logout failed", "error", err)
	}
	if err := m.store.Clear(); err != nil {
		m.logger.Warn("clearing token store", "error", err)
	}
	m.dispatch(Event{Type: EventLogout})
}

// Refresh exchanges the refresh cookie for a new token. A failing
// refresh always converges the session to unauthenticated with the
// store cleared, so it is safe to call concurrently with itself.
func (m *Manager) Refresh(ctx context.Context) bool {
	creds, ok := m.tryRefresh(ctx)
	if !ok {
		return false
	}
	m.dispatch(Event{Type: EventRefresh, User: &creds.User, Token: creds.Token})
	return true
}

// tryRefresh performs the refresh call and token persistence without
// dispatching a session transition, so Bootstrap can reuse it with a
// different resulting event. Failure triggers a full logout.
func (m *Manager) tryRefresh(ctx context.Context) (*api.Credentials, bool) {
	creds, err := m.backend.Refresh(ctx)
	if err != nil {
		m.logger.Warn("token refresh failed", "error", err)
		m.Logout(ctx)
		return nil, false
	}
	if err := m.store.Save(creds.Token); err != nil {
		m.logger.Warn("persisting refreshed token", "error", err)
	}
	return creds, true
}

// Bootstrap resolves whether a stored token still identifies a valid
// session. It runs once at startup, before protected commands are
// admitted. A failed bootstrap is silent: the session simply starts
// unauthenticated, never with a user-visible error.
func (m *Manager) Bootstrap(ctx context.Context) {
	m.dispatch(Event{Type: EventSetLoading, Loading: true})

	token, err := m.store.Load()
	if err != nil {
		m.logger.Warn("loading stored token", "error", err)
		token = ""
	}
	if token == "" {
		m.dispatch(Event{Type: EventSetLoading, Loading: false})
		return
	}

	user, err := m.backend.Me(ctx, token)
	if err == nil {
		m.dispatch(Event{Type: EventLoginSuccess, User: user, Token: token})
		return
	}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) && apiErr.Type == api.ErrorNetwork {
		// Backend unreachable; keep quiet and start logged out without
		// burning the refresh credential.
		m.logger.Warn("auth check unreachable", "error", err)
		if clearErr := m.store.Clear(); clearErr != nil {
			m.logger.Warn("clearing token store", "error", clearErr)
		}
		m.dispatch(Event{Type: EventSetLoading, Loading: false})
		return
	}

	// Stored token rejected; one silent refresh attempt. tryRefresh
	// already converges to logged-out (store cleared, loading false)
	// when it fails.
	creds, ok := m.tryRefresh(ctx)
	if !ok {
		return
	}
	m.dispatch(Event{Type: EventLoginSuccess, User: &creds.User, Token: creds.Token})
}

// ClearError clears the session's error message. No-op when none is set.
func (m *Manager) ClearError() {
	m.dispatch(Event{Type: EventClearError})
}

// failureMessage extracts the user-visible message from a backend
// error, falling back to a generic one.
func failureMessage(err error) string {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return "Login failed"
}
