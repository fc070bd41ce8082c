package ui

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tennisweb/internal/errors"
	"tennisweb/models"
	"tennisweb/ports"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubMatcher struct {
	result *models.MatchResult
	err    error

	gotExclude []int64
	gotLimit   int
	gotModel   string
	gotToken   string
}

func (s *stubMatcher) NextAI(ctx context.Context, be ports.MatchBackend, exclude *models.ExclusionSet, limit int, modelName string) (*models.MatchResult, error) {
	s.gotExclude = exclude.IDs()
	s.gotLimit = limit
	s.gotModel = modelName
	return s.result, s.err
}

type stubChat struct {
	tokens []string
	err    error
}

func (s *stubChat) Reply(ctx context.Context, turns []models.ChatTurn, sink ports.TokenSink) error {
	if s.err != nil {
		return s.err
	}
	for _, tok := range s.tokens {
		if err := sink(tok); err != nil {
			return nil
		}
	}
	return nil
}

type nopBackend struct{}

func (nopBackend) FetchProfile(ctx context.Context) (*models.UserWithProfile, error) {
	return &models.UserWithProfile{}, nil
}
func (nopBackend) Recommend(ctx context.Context, exclude []int64) (*models.Recommendation, error) {
	return nil, errors.NoCandidates()
}
func (nopBackend) Candidates(ctx context.Context, exclude []int64, limit int) ([]models.Recommendation, error) {
	return nil, nil
}

func newTestServer(match *stubMatcher, chat *stubChat) *Server {
	factory := func(token string) ports.MatchBackend {
		if match != nil {
			match.gotToken = token
		}
		return nopBackend{}
	}
	return NewServer(match, chat, factory, zerolog.Nop())
}

func postJSON(t *testing.T, handler http.Handler, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestMatchAIRequiresBearer(t *testing.T) {
	srv := newTestServer(&stubMatcher{}, &stubChat{})

	w := postJSON(t, srv.Handler(), "/api/match/ai", "", gin.H{})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, w.Body.String())
}

func TestMatchAISuccess(t *testing.T) {
	match := &stubMatcher{result: &models.MatchResult{
		User:   models.UserWithProfile{ID: 6, Username: "iga"},
		Score:  0.8,
		Reason: "closest skill match",
		Mode:   models.ModeAI,
		Model:  "gpt-4o-mini",
	}}
	srv := newTestServer(match, &stubChat{})

	w := postJSON(t, srv.Handler(), "/api/match/ai", "tok-123", gin.H{
		"exclude": []int64{2, 3},
		"limit":   5,
		"model":   "gpt-4o",
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tok-123", match.gotToken, "caller token reaches the gateway factory")
	assert.Equal(t, []int64{2, 3}, match.gotExclude)
	assert.Equal(t, 5, match.gotLimit)
	assert.Equal(t, "gpt-4o", match.gotModel)

	var result models.MatchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, int64(6), result.User.ID)
	assert.Equal(t, "ai", result.Mode)
}

func TestMatchAINoCandidates(t *testing.T) {
	srv := newTestServer(&stubMatcher{err: errors.NoCandidates()}, &stubChat{})

	w := postJSON(t, srv.Handler(), "/api/match/ai", "tok", gin.H{})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"No candidates available"}`, w.Body.String())
}

func TestMatchAIMissingKeyDistinctFromUpstream(t *testing.T) {
	srv := newTestServer(&stubMatcher{err: errors.ConfigInvalid("Missing API key for grok")}, &stubChat{})
	w := postJSON(t, srv.Handler(), "/api/match/ai", "tok", gin.H{"model": "grok"})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Missing API key for grok"}`, w.Body.String())

	srv = newTestServer(&stubMatcher{err: errors.Upstream("LLM request failed", "429 rate limited")}, &stubChat{})
	w = postJSON(t, srv.Handler(), "/api/match/ai", "tok", gin.H{})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"LLM request failed","detail":"429 rate limited"}`, w.Body.String())
}

func TestMatchAIParseFailureIncludesRaw(t *testing.T) {
	srv := newTestServer(&stubMatcher{err: errors.ParseFailed("not json")}, &stubChat{})

	w := postJSON(t, srv.Handler(), "/api/match/ai", "tok", gin.H{})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"LLM output parse failed","raw":"not json"}`, w.Body.String())
}

func TestMatchAIChoiceNotInPool(t *testing.T) {
	srv := newTestServer(&stubMatcher{err: errors.ChoiceNotInPool(99, []int64{1, 2})}, &stubChat{})

	w := postJSON(t, srv.Handler(), "/api/match/ai", "tok", gin.H{})

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Chosen user not in candidate list", body["error"])
	assert.Contains(t, body["detail"], "user_id=99")
}

func TestMatchAISessionExpired(t *testing.T) {
	srv := newTestServer(&stubMatcher{err: errors.Unauthorized("backend rejected refreshed token")}, &stubChat{})

	w := postJSON(t, srv.Handler(), "/api/match/ai", "stale-tok", gin.H{})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, w.Body.String())
}

func TestChatStreamsPlainText(t *testing.T) {
	srv := newTestServer(&stubMatcher{}, &stubChat{tokens: []string{"Keep ", "your ", "eye ", "on the ball."}})

	w := postJSON(t, srv.Handler(), "/api/chat", "", gin.H{
		"messages": []models.ChatTurn{{Role: "user", Content: "Any tips?"}},
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.Equal(t, "no-cache, no-transform", w.Header().Get("Cache-Control"))
	assert.Equal(t, "Keep your eye on the ball.", w.Body.String())
}

func TestChatConfigErrorBeforeStream(t *testing.T) {
	srv := newTestServer(&stubMatcher{}, &stubChat{err: errors.ConfigInvalid("Missing OPENAI_API_KEY (or OPENROUTER_API_KEY) on server.")})

	w := postJSON(t, srv.Handler(), "/api/chat", "", gin.H{
		"messages": []models.ChatTurn{{Role: "user", Content: "hi"}},
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Missing OPENAI_API_KEY (or OPENROUTER_API_KEY) on server."}`, w.Body.String())
}

func TestChatUpstreamErrorBeforeStream(t *testing.T) {
	srv := newTestServer(&stubMatcher{}, &stubChat{err: errors.Upstream("LLM request failed", "502 bad gateway")})

	w := postJSON(t, srv.Handler(), "/api/chat", "", gin.H{
		"messages": []models.ChatTurn{{Role: "user", Content: "hi"}},
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"LLM request failed","detail":"502 bad gateway"}`, w.Body.String())
}

func TestChatRejectsEmptyMessages(t *testing.T) {
	srv := newTestServer(&stubMatcher{}, &stubChat{})

	w := postJSON(t, srv.Handler(), "/api/chat", "", gin.H{"messages": []models.ChatTurn{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequestIDHeader(t *testing.T) {
	srv := newTestServer(&stubMatcher{}, &stubChat{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, "fixed-id", w.Header().Get("X-Request-ID"))
}
