package structuring

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// OpenAIBackend calls an OpenAI compatible chat completions endpoint
type OpenAIBackend struct {
	baseURL     string
	apiKey      string
	temperature float64
	client      *http.Client
	logger      *slog.Logger
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// NewOpenAIBackend creates an OpenAI backend
func NewOpenAIBackend(baseURL, apiKey string, temperature float64, client *http.Client, logger *slog.Logger) *OpenAIBackend {
	return &OpenAIBackend{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		temperature: temperature,
		client:      client,
		logger:      logger,
	}
}

// Name returns the provider name
func (b *OpenAIBackend) Name() string { return ProviderOpenAI }

// Generate requests a JSON object completion
func (b *OpenAIBackend) Generate(ctx context.Context, prompt, model string) (string, error) {
	req := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: "You convert resumes into JSON. Respond with a single JSON object only."},
			{Role: "user", Content: prompt},
		},
		Temperature:    b.temperature,
		ResponseFormat: map[string]string{"type": "json_object"},
	}
	headers := map[string]string{"Authorization": "Bearer " + b.apiKey}

	var resp chatResponse
	if err := postJSON(ctx, b.client, b.baseURL+"/chat/completions", req, headers, &resp, b.logger); err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai chat completion: no choices in response")
	}

	return resp.Choices[0].Message.Content, nil
}
