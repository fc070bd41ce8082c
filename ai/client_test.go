package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tennisweb/internal/errors"
	"tennisweb/internal/metrics"
	"tennisweb/models"
)

func testProvider(url string) models.Provider {
	return models.Provider{
		Name:    "openai",
		URL:     url,
		APIKey:  "sk-test",
		Model:   "gpt-4o-mini",
		Headers: map[string]string{"X-Title": "TennisWeb"},
	}
}

func turns() []models.ChatTurn {
	return []models.ChatTurn{{Role: "user", Content: "hello"}}
}

func TestCompleteSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "TennisWeb", r.Header.Get("X-Title"))

		var req completionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		assert.Equal(t, 0.7, req.Temperature)
		assert.Equal(t, 500, req.MaxTokens)
		assert.False(t, req.Stream)

		_, _ = io.WriteString(w, `{"choices":[{"message":{"content":"{\"user_id\": 5, \"reason\": \"ok\"}"}}]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), zerolog.Nop())
	before := testutil.ToFloat64(metrics.LLMRequests.WithLabelValues("openai", metrics.OutcomeOK))

	content, err := c.Complete(context.Background(), testProvider(srv.URL), turns(), 0.7, 500)
	require.NoError(t, err)
	assert.Contains(t, content, `"user_id": 5`)

	after := testutil.ToFloat64(metrics.LLMRequests.WithLabelValues("openai", metrics.OutcomeOK))
	assert.Equal(t, before+1, after)
}

func TestCompleteUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"rate limited"}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), zerolog.Nop())
	before := testutil.ToFloat64(metrics.LLMRequests.WithLabelValues("openai", metrics.OutcomeError))

	_, err := c.Complete(context.Background(), testProvider(srv.URL), turns(), 0.7, 500)
	require.True(t, errors.Is(err, errors.CodeUpstreamError))
	assert.Contains(t, errors.GetDetail(err), "rate limited")

	after := testutil.ToFloat64(metrics.LLMRequests.WithLabelValues("openai", metrics.OutcomeError))
	assert.Equal(t, before+1, after)
}

func TestCompleteEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), zerolog.Nop())
	_, err := c.Complete(context.Background(), testProvider(srv.URL), turns(), 0.7, 500)
	assert.True(t, errors.Is(err, errors.CodeUpstreamError))
}

func TestStreamForwardsTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req completionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		_, _ = io.WriteString(w, `data: {"choices":[{"delta":{"content":"fore"}}]}`+"\n\n")
		_, _ = io.WriteString(w, `data: {"choices":[{"delta":{"content":"hand"}}]}`+"\n\n")
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), zerolog.Nop())

	var got string
	err := c.Stream(context.Background(), testProvider(srv.URL), turns(), 0.3, 700, func(token string) error {
		got += token
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "forehand", got)
}

func TestStreamPreStreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"bad key"}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), zerolog.Nop())

	var delivered int
	err := c.Stream(context.Background(), testProvider(srv.URL), turns(), 0.3, 700, func(string) error {
		delivered++
		return nil
	})

	require.True(t, errors.Is(err, errors.CodeUpstreamError))
	assert.Zero(t, delivered, "nothing reaches the sink before the stream opens")
}
