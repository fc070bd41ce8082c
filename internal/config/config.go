package config

import (
	"strings"
	"time"

	"github.com/joeshaw/envdecode"

	"tennisweb/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig
	Ops       OpsConfig
	Backend   BackendConfig
	AI        AIConfig
	RateLimit RateLimitConfig
	LogLevel  string `env:"LOG_LEVEL,default=info"`
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Addr    string `env:"LISTEN_ADDR,default=:3000"`
	GinMode string `env:"GIN_MODE,default=release"`
}

// OpsConfig holds the ops listener settings (health + metrics)
type OpsConfig struct {
	Addr string `env:"OPS_ADDR,default=:9090"`
}

// BackendConfig holds the remote REST backend settings
type BackendConfig struct {
	BaseURL string        `env:"API_URL,default=http://localhost:8000/api"`
	Timeout time.Duration `env:"BACKEND_TIMEOUT,default=15s"`
}

// AIConfig holds upstream LLM provider settings.
// AppOpenAIKey is the app-specific key; it wins over a globally-set
// OPENAI_API_KEY to avoid collisions.
type AIConfig struct {
	AppOpenAIKey  string        `env:"TENNISWEB_OPENAI_API_KEY"`
	OpenAIKey     string        `env:"OPENAI_API_KEY"`
	OpenRouterKey string        `env:"OPENROUTER_API_KEY"`
	OpenAIModel   string        `env:"OPENAI_MODEL,default=gpt-4o-mini"`
	SiteURL       string        `env:"SITE_URL,default=https://tennisweb.app"`
	Timeout       time.Duration `env:"LLM_TIMEOUT,default=90s"`
	Temperature   float64       `env:"LLM_TEMPERATURE,default=0.7"`
	MaxTokens     int           `env:"LLM_MAX_TOKENS,default=500"`
}

// RateLimitConfig bounds requests per client IP on the public surface
type RateLimitConfig struct {
	Requests int           `env:"RATE_LIMIT_REQUESTS,default=60"`
	Window   time.Duration `env:"RATE_LIMIT_WINDOW,default=1m"`
}

// PrimaryKey returns the key used for the primary (OpenAI) provider
func (a AIConfig) PrimaryKey() string {
	if a.AppOpenAIKey != "" {
		return a.AppOpenAIKey
	}
	return a.OpenAIKey
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := &Config{}
	if err := envdecode.Decode(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode environment")
	}
	if err := validate(cfg); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if !strings.HasPrefix(cfg.Backend.BaseURL, "http://") && !strings.HasPrefix(cfg.Backend.BaseURL, "https://") {
		return errors.ConfigInvalid("API_URL must be an http(s) URL")
	}
	if cfg.RateLimit.Requests < 1 {
		return errors.ConfigInvalid("RATE_LIMIT_REQUESTS must be positive")
	}
	// Provider keys stay optional at boot: a missing key is surfaced as a
	// per-request configuration error by the provider resolver, not a crash.
	return nil
}
