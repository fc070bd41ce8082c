package ai

import (
	"fmt"
	"strings"

	"tennisweb/internal/config"
	"tennisweb/internal/errors"
	"tennisweb/models"
)

const (
	// DefaultModelName is the model requested when the caller names none
	DefaultModelName = "gpt-4o"

	openAIEndpoint     = "https://api.openai.com/v1/chat/completions"
	openRouterEndpoint = "https://openrouter.ai/api/v1/chat/completions"

	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
)

// openRouterModels maps short alternative-model names to their OpenRouter
// model ids. Unknown names pass through unchanged so new models work without
// a code change.
var openRouterModels = map[string]string{
	"grok":   "x-ai/grok-4-fast",
	"llama":  "meta-llama/llama-3.3-70b-instruct",
	"gemini": "google/gemini-2.0-flash-001",
	"qwen":   "qwen/qwen-2.5-72b-instruct",
}

// Resolver turns a requested model name into a concrete provider target.
// Key presence is checked here, per request, so a misconfigured deployment
// fails with a clear configuration error instead of an opaque upstream 401.
type Resolver struct {
	cfg config.AIConfig
}

func NewResolver(cfg config.AIConfig) *Resolver {
	return &Resolver{cfg: cfg}
}

// ResolveMatch picks the provider for a structured match completion. The
// default model routes to OpenAI; any other name routes to OpenRouter with
// attribution headers.
func (r *Resolver) ResolveMatch(requested string) (models.Provider, error) {
	if requested == "" {
		requested = DefaultModelName
	}

	if requested == DefaultModelName {
		key := r.cfg.PrimaryKey()
		if key == "" {
			return models.Provider{}, errors.ConfigInvalid(fmt.Sprintf("Missing API key for %s", requested))
		}
		return models.Provider{
			Name:   ProviderOpenAI,
			URL:    openAIEndpoint,
			APIKey: key,
			Model:  r.cfg.OpenAIModel,
		}, nil
	}

	if r.cfg.OpenRouterKey == "" {
		return models.Provider{}, errors.ConfigInvalid(fmt.Sprintf("Missing API key for %s", requested))
	}
	model := requested
	if mapped, ok := openRouterModels[requested]; ok {
		model = mapped
	}
	return models.Provider{
		Name:    ProviderOpenRouter,
		URL:     openRouterEndpoint,
		APIKey:  r.cfg.OpenRouterKey,
		Model:   model,
		Headers: r.openRouterHeaders(),
	}, nil
}

// ResolveChat picks the provider for the streaming assistant. The first key
// present wins; an OpenRouter-issued key (sk-or- prefix) routes to OpenRouter
// even when set in the OpenAI slot.
func (r *Resolver) ResolveChat() (models.Provider, error) {
	key := r.cfg.PrimaryKey()
	if key == "" {
		key = r.cfg.OpenRouterKey
	}
	if key == "" {
		return models.Provider{}, errors.ConfigInvalid("Missing OPENAI_API_KEY (or OPENROUTER_API_KEY) on server.")
	}

	if strings.HasPrefix(key, "sk-or-") {
		return models.Provider{
			Name:    ProviderOpenRouter,
			URL:     openRouterEndpoint,
			APIKey:  key,
			Model:   openRouterModelID(r.cfg.OpenAIModel),
			Headers: r.openRouterHeaders(),
		}, nil
	}
	return models.Provider{
		Name:   ProviderOpenAI,
		URL:    openAIEndpoint,
		APIKey: key,
		Model:  r.cfg.OpenAIModel,
	}, nil
}

// openRouterModelID qualifies the configured model for OpenRouter, which
// namespaces model ids by vendor.
func openRouterModelID(model string) string {
	if model == "" {
		model = "gpt-4o-mini"
	}
	if strings.Contains(model, "/") {
		return model
	}
	return "openai/" + model
}

func (r *Resolver) openRouterHeaders() map[string]string {
	return map[string]string{
		"HTTP-Referer": r.cfg.SiteURL,
		"X-Title":      "TennisWeb",
	}
}
