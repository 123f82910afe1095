// Package tokenstore persists the client's bearer token across runs.
// It defines the Store interface and file-backed and in-memory
// implementations. A store holds at most one token; an absent token is
// reported as an empty string, not an error.
package tokenstore

// Store defines the interface for bearer token persistence.
type Store interface {
	// Load returns the stored token, or "" if none is stored.
	Load() (string, error)

	// Save replaces the stored token. Last write wins.
	Save(token string) error

	// Clear removes the stored token. Clearing an empty store is a no-op.
	Clear() error
}
