package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"tennisweb/internal/errors"
	"tennisweb/internal/metrics"
	"tennisweb/models"
	"tennisweb/ports"
)

// Client calls OpenAI-compatible chat-completion endpoints. The provider
// target (URL, key, model, extra headers) is resolved by the caller; the
// client only speaks the wire protocol.
type Client struct {
	httpClient *http.Client
	log        zerolog.Logger
}

func NewClient(httpClient *http.Client, log zerolog.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		log:        log.With().Str("component", "llm").Logger(),
	}
}

type completionRequest struct {
	Model       string            `json:"model"`
	Messages    []models.ChatTurn `json:"messages"`
	Temperature float64           `json:"temperature"`
	MaxTokens   int               `json:"max_tokens"`
	Stream      bool              `json:"stream,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete performs a single non-streamed completion and returns the
// assistant message content.
func (c *Client) Complete(ctx context.Context, p models.Provider, turns []models.ChatTurn, temperature float64, maxTokens int) (string, error) {
	content, err := c.complete(ctx, p, turns, temperature, maxTokens)
	metrics.LLMRequests.WithLabelValues(p.Name, metrics.OutcomeFor(err)).Inc()
	return content, err
}

func (c *Client) complete(ctx context.Context, p models.Provider, turns []models.ChatTurn, temperature float64, maxTokens int) (string, error) {
	resp, err := c.send(ctx, p, turns, temperature, maxTokens, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", errors.Wrap(err, "failed to decode completion response")
	}
	if len(out.Choices) == 0 {
		return "", errors.Upstream("LLM request failed", "response contained no choices")
	}
	return out.Choices[0].Message.Content, nil
}

// Stream performs a streamed completion, forwarding incremental tokens to
// sink. Failures before the stream opens are returned with nothing written;
// once the body is streaming, a mid-stream failure is delivered to sink as a
// single inline error token and the stream ends cleanly.
func (c *Client) Stream(ctx context.Context, p models.Provider, turns []models.ChatTurn, temperature float64, maxTokens int, sink ports.TokenSink) error {
	resp, err := c.send(ctx, p, turns, temperature, maxTokens, true)
	metrics.LLMRequests.WithLabelValues(p.Name, metrics.OutcomeFor(err)).Inc()
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return forwardTokens(resp.Body, sink)
}

// send issues the completion request and returns the response only when the
// status is 2xx; any other outcome becomes a typed error.
func (c *Client) send(ctx context.Context, p models.Provider, turns []models.ChatTurn, temperature float64, maxTokens int, stream bool) (*http.Response, error) {
	payload, err := json.Marshal(completionRequest{
		Model:       p.Model,
		Messages:    turns,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Stream:      stream,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal completion request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "failed to build completion request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)
	for name, value := range p.Headers {
		req.Header.Set(name, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NetworkError(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		resp.Body.Close()
		c.log.Warn().Str("provider", p.Name).Int("status", resp.StatusCode).Msg("llm request failed")
		return nil, errors.Upstream("LLM request failed", string(raw))
	}
	return resp, nil
}
