package ports

import (
	"context"

	"tennisweb/models"
)

// TokenSink receives incremental text tokens in arrival order. Returning an
// error signals the consumer is gone; the producer stops forwarding.
type TokenSink func(token string) error

// LLMClient talks to an upstream chat-completion provider
type LLMClient interface {
	// Complete performs a single non-streamed completion and returns the
	// assistant message content.
	Complete(ctx context.Context, p models.Provider, turns []models.ChatTurn, temperature float64, maxTokens int) (string, error)

	// Stream performs a streamed completion, forwarding each incremental
	// token to sink. A pre-stream failure (request build, transport, non-2xx)
	// is returned as an error with nothing written to sink; once streaming
	// has begun the sink is always closed out, with a single synthetic error
	// token on mid-stream failure.
	Stream(ctx context.Context, p models.Provider, turns []models.ChatTurn, temperature float64, maxTokens int, sink TokenSink) error
}
