package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lmrk/lmrkctl/pkg/tokenstore"
)

const (
	transportTestToken   = "tok-old"
	transportTestToken2  = "tok-new"
	transportTestPayload = `{"rows":[{"amount":100}]}`
)

// authBackend scripts a fake backend with a bearer-guarded data
// endpoint and a refresh endpoint.
type authBackend struct {
	mu sync.Mutex

	// validTokens are accepted by the data endpoint.
	validTokens map[string]bool

	// refreshToken is issued by the refresh endpoint; empty means the
	// refresh endpoint fails.
	refreshToken string

	dataCalls    int
	refreshCalls int
	seenBearers  []string
	seenBodies   []string
}

func (b *authBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.refreshCalls++
		token := b.refreshToken
		b.mu.Unlock()

		if token == "" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "refresh expired"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"accessToken": token, "user": map[string]any{"username": "alice"}},
		})
	})
	mux.HandleFunc("/data", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		bearer := r.Header.Get("Authorization")

		b.mu.Lock()
		b.dataCalls++
		b.seenBearers = append(b.seenBearers, bearer)
		b.seenBodies = append(b.seenBodies, string(body))
		ok := b.validTokens[strings.TrimPrefix(bearer, "Bearer ")]
		b.mu.Unlock()

		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(transportTestPayload))
	})
	mux.HandleFunc("/forbidden", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]any{"message": "branch access denied"})
	})
	return mux
}

func newTransportTest(t *testing.T, backend *authBackend) (*Client, tokenstore.Store) {
	t.Helper()
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	store := tokenstore.NewMemoryStore()
	client, err := New(Config{BaseURL: srv.URL, Store: store})
	require.NoError(t, err)
	return client, store
}

func (b *authBackend) counts() (data, refresh int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dataCalls, b.refreshCalls
}

func (b *authBackend) bearers() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.seenBearers))
	copy(out, b.seenBearers)
	return out
}

func TestTransport_AttachesBearer(t *testing.T) {
	backend := &authBackend{validTokens: map[string]bool{transportTestToken: true}}
	client, store := newTransportTest(t, backend)
	require.NoError(t, store.Save(transportTestToken))

	var out rowsResponse
	require.NoError(t, client.getJSON(context.Background(), "/data", &out))

	require.Len(t, out.Rows, 1)
	assert.Equal(t, []string{"Bearer " + transportTestToken}, backend.bearers())
}

func TestTransport_NoBearerWhenStoreEmpty(t *testing.T) {
	backend := &authBackend{validTokens: map[string]bool{"": true}}
	client, _ := newTransportTest(t, backend)

	var out rowsResponse
	require.NoError(t, client.getJSON(context.Background(), "/data", &out))

	assert.Equal(t, []string{""}, backend.bearers())
}

func TestTransport_RefreshAndRetryOn401(t *testing.T) {
	backend := &authBackend{
		validTokens:  map[string]bool{transportTestToken2: true},
		refreshToken: transportTestToken2,
	}
	client, store := newTransportTest(t, backend)
	require.NoError(t, store.Save(transportTestToken))

	var out rowsResponse
	require.NoError(t, client.getJSON(context.Background(), "/data", &out),
		"the retried request's result is returned transparently")
	require.Len(t, out.Rows, 1)

	data, refresh := backend.counts()
	assert.Equal(t, 2, data)
	assert.Equal(t, 1, refresh)
	assert.Equal(t, []string{
		"Bearer " + transportTestToken,
		"Bearer " + transportTestToken2,
	}, backend.bearers())

	tok, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, transportTestToken2, tok, "new token is stored")
}

func TestTransport_AtMostOneRetry(t *testing.T) {
	// The data endpoint rejects every token, even the refreshed one.
	backend := &authBackend{
		validTokens:  map[string]bool{},
		refreshToken: transportTestToken2,
	}
	client, store := newTransportTest(t, backend)
	require.NoError(t, store.Save(transportTestToken))

	err := client.getJSON(context.Background(), "/data", &rowsResponse{})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, ErrorUnauthorized, apiErr.Type,
		"the second 401 is propagated, not retried again")

	data, refresh := backend.counts()
	assert.Equal(t, 2, data, "original request plus exactly one retry")
	assert.Equal(t, 1, refresh)
}

func TestTransport_RefreshFailureForcesLogout(t *testing.T) {
	backend := &authBackend{validTokens: map[string]bool{}}
	client, store := newTransportTest(t, backend)
	require.NoError(t, store.Save(transportTestToken))

	var signals []Signal
	client.Signals().Notify(func(s Signal) { signals = append(signals, s) })

	err := client.getJSON(context.Background(), "/data", &rowsResponse{})
	require.Error(t, err)

	tok, loadErr := store.Load()
	require.NoError(t, loadErr)
	assert.Empty(t, tok, "token removed after failed refresh")

	require.Len(t, signals, 1)
	assert.Equal(t, SignalLogout, signals[0].Kind)
}

func TestTransport_ForbiddenSignal(t *testing.T) {
	backend := &authBackend{}
	client, store := newTransportTest(t, backend)
	require.NoError(t, store.Save(transportTestToken))

	var signals []Signal
	client.Signals().Notify(func(s Signal) { signals = append(signals, s) })

	err := client.getJSON(context.Background(), "/forbidden", &rowsResponse{})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, ErrorForbidden, apiErr.Type)
	assert.Equal(t, "branch access denied", apiErr.Message)

	require.Len(t, signals, 1)
	assert.Equal(t, SignalForbidden, signals[0].Kind)
	assert.Equal(t, "branch access denied", signals[0].Message)

	tok, loadErr := store.Load()
	require.NoError(t, loadErr)
	assert.Equal(t, transportTestToken, tok, "403 does not end the session")
}

func TestTransport_ReplaysBodyOnRetry(t *testing.T) {
	backend := &authBackend{
		validTokens:  map[string]bool{transportTestToken2: true},
		refreshToken: transportTestToken2,
	}
	client, store := newTransportTest(t, backend)
	require.NoError(t, store.Save(transportTestToken))

	body := map[string]string{"branchName": "ALL"}
	require.NoError(t, client.postJSON(context.Background(), "/data", body, &rowsResponse{}))

	backend.mu.Lock()
	defer backend.mu.Unlock()
	require.Len(t, backend.seenBodies, 2)
	assert.JSONEq(t, `{"branchName":"ALL"}`, backend.seenBodies[0])
	assert.JSONEq(t, `{"branchName":"ALL"}`, backend.seenBodies[1],
		"retry carries the same body")
}
