package app

import (
	"context"

	"github.com/rs/zerolog"

	"tennisweb/ai"
	"tennisweb/models"
	"tennisweb/ports"
)

const chatSystemPrompt = "You are a friendly, concise AI tennis assistant. " +
	"Answer only tennis-related questions: rules, strategy, drills, technique, fitness, equipment, history, and etiquette. " +
	"If asked for medical, legal, or unrelated topics, politely decline and redirect to tennis topics. " +
	"Keep answers clear and practical."

const (
	// chatWindow bounds how many conversation turns are replayed upstream.
	// The system prompt is always kept on top of the window.
	chatWindow      = 15
	chatTemperature = 0.3
	chatMaxTokens   = 700
)

// ChatService streams assistant replies for the tennis Q&A surface
type ChatService struct {
	llm      ports.LLMClient
	resolver *ai.Resolver
	log      zerolog.Logger
}

func NewChatService(llm ports.LLMClient, resolver *ai.Resolver, log zerolog.Logger) *ChatService {
	return &ChatService{
		llm:      llm,
		resolver: resolver,
		log:      log.With().Str("component", "chat").Logger(),
	}
}

// Reply streams the assistant's answer to sink. The incoming history is
// trimmed to the most recent turns before the pinned system prompt is
// prepended.
func (s *ChatService) Reply(ctx context.Context, turns []models.ChatTurn, sink ports.TokenSink) error {
	provider, err := s.resolver.ResolveChat()
	if err != nil {
		return err
	}

	windowed := windowTurns(turns, chatWindow)
	messages := make([]models.ChatTurn, 0, len(windowed)+1)
	messages = append(messages, models.ChatTurn{Role: "system", Content: chatSystemPrompt})
	messages = append(messages, windowed...)

	return s.llm.Stream(ctx, provider, messages, chatTemperature, chatMaxTokens, sink)
}

// windowTurns keeps the last n turns, dropping any caller-supplied system
// messages so the pinned prompt cannot be overridden.
func windowTurns(turns []models.ChatTurn, n int) []models.ChatTurn {
	filtered := make([]models.ChatTurn, 0, len(turns))
	for _, t := range turns {
		if t.Role == "system" {
			continue
		}
		filtered = append(filtered, t)
	}
	if len(filtered) > n {
		filtered = filtered[len(filtered)-n:]
	}
	return filtered
}
