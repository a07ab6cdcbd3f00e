package structuring

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// OllamaBackend calls a local Ollama server through /api/generate
type OllamaBackend struct {
	baseURL     string
	temperature float64
	client      *http.Client
	logger      *slog.Logger
}

type ollamaRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Format  string         `json:"format"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error"`
}

// NewOllamaBackend creates an Ollama backend
func NewOllamaBackend(baseURL string, temperature float64, client *http.Client, logger *slog.Logger) *OllamaBackend {
	return &OllamaBackend{
		baseURL:     strings.TrimRight(baseURL, "/"),
		temperature: temperature,
		client:      client,
		logger:      logger,
	}
}

// Name returns the provider name
func (b *OllamaBackend) Name() string { return ProviderOllama }

// Generate asks Ollama for a JSON formatted completion
func (b *OllamaBackend) Generate(ctx context.Context, prompt, model string) (string, error) {
	req := ollamaRequest{
		Model:   model,
		Prompt:  prompt,
		Format:  "json",
		Stream:  false,
		Options: map[string]any{"temperature": b.temperature},
	}

	var resp ollamaResponse
	if err := postJSON(ctx, b.client, b.baseURL+"/api/generate", req, nil, &resp, b.logger); err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	if resp.Error != "" {
		return "", fmt.Errorf("ollama generate: %s", resp.Error)
	}

	return resp.Response, nil
}
