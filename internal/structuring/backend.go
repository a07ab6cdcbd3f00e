package structuring

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Supported providers
const (
	ProviderOllama = "ollama"
	ProviderGoogle = "google"
	ProviderOpenAI = "openai"
)

// Backend sends a prompt to a language model and returns its raw text answer
type Backend interface {
	Name() string
	Generate(ctx context.Context, prompt, model string) (string, error)
}

// BackendConfig selects and configures a backend
type BackendConfig struct {
	Provider    string
	BaseURL     string
	APIKey      string
	Temperature float64
	HTTPClient  *http.Client
}

// NewBackend builds the backend named by cfg.Provider
func NewBackend(ctx context.Context, cfg BackendConfig, logger *slog.Logger) (Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		// per-call deadlines come from the engine context
		httpClient = &http.Client{Timeout: 10 * time.Minute}
	}

	switch cfg.Provider {
	case ProviderOllama:
		return NewOllamaBackend(cfg.BaseURL, cfg.Temperature, httpClient, logger), nil
	case ProviderOpenAI:
		return NewOpenAIBackend(cfg.BaseURL, cfg.APIKey, cfg.Temperature, httpClient, logger), nil
	case ProviderGoogle:
		return NewGoogleBackend(ctx, cfg.APIKey, cfg.BaseURL, cfg.Temperature, httpClient)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %q", cfg.Provider)
	}
}
