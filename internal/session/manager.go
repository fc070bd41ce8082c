package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"tennisweb/internal/errors"
	"tennisweb/internal/metrics"
)

// Manager owns the access/refresh token pair and attaches bearer auth to
// every outgoing backend request. It is the single owner of token mutation:
// Set, Clear, and the one-shot refresh-and-retry path inside Do. Injected
// into each gateway call site; there is no ambient global session.
type Manager struct {
	mu      sync.Mutex
	access  string
	refresh string

	refreshURL string // empty for token-only sessions (no refresh possible)
	client     *http.Client
	log        zerolog.Logger
}

// BuildFunc constructs a fresh request for one attempt. Do calls it again on
// the post-refresh retry so request bodies are replayed safely.
type BuildFunc func(ctx context.Context) (*http.Request, error)

// NewManager creates a session manager that can silently refresh its access
// token against {baseURL}/token/refresh/.
func NewManager(baseURL string, client *http.Client, log zerolog.Logger) *Manager {
	return &Manager{
		refreshURL: strings.TrimRight(baseURL, "/") + "/token/refresh/",
		client:     client,
		log:        log.With().Str("component", "session").Logger(),
	}
}

// NewBearer creates a token-only session: the token is forwarded as-is and a
// 401 is terminal (no refresh token, no retry). Used server-side when a
// request arrives carrying the browser's access token.
func NewBearer(token string, client *http.Client, log zerolog.Logger) *Manager {
	m := NewManager("", client, log)
	m.refreshURL = ""
	m.access = token
	return m
}

// Set stores a token pair. Passing empty strings clears the session.
func (m *Manager) Set(access, refresh string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access = access
	if refresh != "" || access == "" {
		// Refresh token survives an access-only rotation; it is dropped only
		// on logout/clear.
		m.refresh = refresh
	}
}

// Clear destroys the session state
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access = ""
	m.refresh = ""
}

// Authenticated reports whether an access token is held
func (m *Manager) Authenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.access != ""
}

// AccessToken returns a snapshot of the current access token
func (m *Manager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.access
}

// Do issues the request with the current access token attached. On a 401 for
// a non-token endpoint it performs exactly one silent refresh, retries the
// rebuilt request once, and on a second 401 clears the session and returns
// an UNAUTHORIZED error. No other status triggers a retry.
func (m *Manager) Do(ctx context.Context, build BuildFunc) (*http.Response, error) {
	token := m.AccessToken()
	if token == "" {
		return nil, errors.Unauthorized("Not authenticated")
	}

	resp, err := m.attempt(ctx, build, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || isTokenEndpoint(resp.Request) {
		return resp, nil
	}
	drain(resp)

	newAccess, err := m.refreshAccess(ctx)
	if err != nil {
		m.Clear()
		m.log.Warn().Err(err).Msg("token refresh failed, session cleared")
		return nil, errors.WithCode(errors.CodeUnauthorized, err)
	}

	resp, err = m.attempt(ctx, build, newAccess)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		m.Clear()
		return nil, errors.Unauthorized("backend rejected refreshed token")
	}
	return resp, nil
}

func (m *Manager) attempt(ctx context.Context, build BuildFunc, token string) (*http.Response, error) {
	req, err := build(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, errors.NetworkError(err)
	}
	return resp, nil
}

// refreshAccess exchanges the stored refresh token for a new access token.
// Exactly one attempt; any failure is terminal for the session.
func (m *Manager) refreshAccess(ctx context.Context) (string, error) {
	m.mu.Lock()
	refreshToken := m.refresh
	refreshURL := m.refreshURL
	m.mu.Unlock()

	if refreshURL == "" || refreshToken == "" {
		metrics.TokenRefreshes.WithLabelValues(metrics.OutcomeError).Inc()
		return "", errors.Unauthorized("no refresh token")
	}

	body, err := json.Marshal(map[string]string{"refresh": refreshToken})
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal refresh request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, refreshURL, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "failed to build refresh request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues(metrics.OutcomeError).Inc()
		return "", errors.NetworkError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.TokenRefreshes.WithLabelValues(metrics.OutcomeError).Inc()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", errors.Unauthorized(fmt.Sprintf("refresh endpoint returned %d: %s", resp.StatusCode, raw))
	}

	var out struct {
		Access string `json:"access"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.Access == "" {
		metrics.TokenRefreshes.WithLabelValues(metrics.OutcomeError).Inc()
		return "", errors.Unauthorized("refresh response missing access token")
	}

	m.mu.Lock()
	m.access = out.Access
	m.mu.Unlock()

	metrics.TokenRefreshes.WithLabelValues(metrics.OutcomeOK).Inc()
	m.log.Debug().Msg("access token refreshed")
	return out.Access, nil
}

// isTokenEndpoint guards the refresh path against login/refresh calls to
// prevent an infinite refresh loop.
func isTokenEndpoint(req *http.Request) bool {
	return req != nil && req.URL != nil && strings.Contains(req.URL.Path, "/token/")
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}
