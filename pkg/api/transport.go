package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/lmrk/lmrkctl/pkg/tokenstore"
)

// Transport is an http.RoundTripper that injects the stored bearer
// token into outbound requests and recovers from expired tokens.
//
// On a 401 it exchanges the refresh cookie for a new access token and
// replays the original request once with the new bearer header. If the
// refresh fails, it clears the token store and emits SignalLogout. A
// retried request that is 401'd again is propagated untouched, so a
// logical request is never retried more than once. On a 403 it emits
// SignalForbidden with the server message and propagates the response.
type Transport struct {
	base       http.RoundTripper
	store      tokenstore.Store
	signals    *SignalHub
	refreshURL string

	// refreshClient carries the cookie jar so the refresh POST presents
	// the HTTP-only refresh cookie. It must not route back through this
	// transport.
	refreshClient *http.Client

	logger *slog.Logger
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	reqID := uuid.NewString()

	out, err := t.prepare(req, reqID)
	if err != nil {
		return nil, err
	}

	resp, err := t.base.RoundTrip(out)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return t.retryWithRefresh(req, resp, reqID)
	case http.StatusForbidden:
		t.signals.emit(Signal{Kind: SignalForbidden, Message: serverMessage(resp)})
		return resp, nil
	default:
		return resp, nil
	}
}

// prepare clones the request (RoundTrippers must not mutate their
// input), stamps the request ID, and attaches the bearer header when a
// token is stored.
func (t *Transport) prepare(req *http.Request, reqID string) (*http.Request, error) {
	out := req.Clone(req.Context())
	out.Header.Set("X-Request-ID", reqID)

	token, err := t.store.Load()
	if err != nil {
		return nil, fmt.Errorf("loading token: %w", err)
	}
	if token != "" {
		out.Header.Set("Authorization", "Bearer "+token)
	}
	return out, nil
}

func (t *Transport) retryWithRefresh(req *http.Request, resp *http.Response, reqID string) (*http.Response, error) {
	// A consumed body that cannot be replayed rules out a retry.
	if req.Body != nil && req.GetBody == nil {
		return resp, nil
	}

	token, err := t.refresh(req.Context())
	if err != nil {
		resp.Body.Close()
		if clearErr := t.store.Clear(); clearErr != nil {
			t.logger.Warn("clearing token after failed refresh", "error", clearErr)
		}
		t.signals.emit(Signal{Kind: SignalLogout})
		return nil, fmt.Errorf("refreshing token: %w", err)
	}
	resp.Body.Close()

	t.logger.Debug("retrying request with refreshed token",
		"method", req.Method, "url", req.URL.Path, "request_id", reqID)

	retry := req.Clone(req.Context())
	retry.Header.Set("X-Request-ID", reqID)
	retry.Header.Set("Authorization", "Bearer "+token)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("rewinding request body: %w", err)
		}
		retry.Body = body
	}
	return t.base.RoundTrip(retry)
}

// refresh exchanges the refresh cookie for a new access token and
// stores it. It posts directly over the refresh client, independent of
// the session layer, so the transport has no dependency cycle with it.
func (t *Transport) refresh(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.refreshURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := t.refreshClient.Do(req)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		msg := serverMessage(resp)
		resp.Body.Close()
		return "", Classify(resp.StatusCode, msg)
	}

	var env envelope
	if err := decodeJSON(resp, &env); err != nil {
		return "", fmt.Errorf("decoding refresh response: %w", err)
	}
	if !env.Success || env.Data.AccessToken == "" {
		return "", Classify(http.StatusUnauthorized, env.Message)
	}

	if err := t.store.Save(env.Data.AccessToken); err != nil {
		return "", fmt.Errorf("storing refreshed token: %w", err)
	}
	return env.Data.AccessToken, nil
}

// Verify interface compliance.
var _ http.RoundTripper = (*Transport)(nil)
