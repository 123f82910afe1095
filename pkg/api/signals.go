package api

import "sync"

// SignalKind identifies an out-of-band auth event emitted by the
// transport layer.
type SignalKind int

const (
	// SignalLogout is emitted when a refresh attempt fails and the
	// session must end. Route guards observe it to force navigation to
	// the login screen.
	SignalLogout SignalKind = iota

	// SignalForbidden is emitted on a 403 response. The call still
	// fails; the session stays authenticated.
	SignalForbidden
)

// Signal carries an auth event and, for SignalForbidden, the server
// message.
type Signal struct {
	Kind    SignalKind
	Message string
}

// SignalHub fans auth signals out to registered observers. These
// signals and the session state are the only interface between the
// transport layer and the UI.
type SignalHub struct {
	mu  sync.RWMutex
	fns []func(Signal)
}

// NewSignalHub creates an empty hub.
func NewSignalHub() *SignalHub {
	return &SignalHub{}
}

// Notify registers an observer. Observers are invoked synchronously in
// registration order on the goroutine that emitted the signal.
func (h *SignalHub) Notify(fn func(Signal)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fns = append(h.fns, fn)
}

func (h *SignalHub) emit(s Signal) {
	h.mu.RLock()
	fns := make([]func(Signal), len(h.fns))
	copy(fns, h.fns)
	h.mu.RUnlock()

	for _, fn := range fns {
		fn(s)
	}
}
