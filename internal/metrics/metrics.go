package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

var (
	// LLMRequests counts upstream chat-completion calls per provider
	LLMRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tennisweb_llm_requests_total",
		Help: "Upstream LLM chat-completion requests by provider and outcome.",
	}, []string{"provider", "outcome"})

	// StreamTokens counts incremental tokens forwarded to streaming clients
	StreamTokens = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tennisweb_llm_stream_tokens_total",
		Help: "Incremental tokens forwarded from LLM event streams.",
	})

	// TokenRefreshes counts silent access-token refresh attempts
	TokenRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tennisweb_token_refresh_total",
		Help: "Silent access-token refresh attempts by outcome.",
	}, []string{"outcome"})

	// BackendRequests counts calls to the remote REST backend
	BackendRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tennisweb_backend_requests_total",
		Help: "Backend REST calls by operation and outcome.",
	}, []string{"op", "outcome"})
)

// OutcomeFor maps an error presence to an outcome label
func OutcomeFor(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}
