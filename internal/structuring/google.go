package structuring

import (
	"context"
	"fmt"
	"net/http"

	"google.golang.org/genai"
)

// GoogleBackend calls Gemini through the genai SDK
type GoogleBackend struct {
	client      *genai.Client
	temperature float32
}

// NewGoogleBackend creates a Gemini backend. baseURL overrides the API endpoint when set.
func NewGoogleBackend(ctx context.Context, apiKey, baseURL string, temperature float64, httpClient *http.Client) (*GoogleBackend, error) {
	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GoogleBackend{client: client, temperature: float32(temperature)}, nil
}

// Name returns the provider name
func (b *GoogleBackend) Name() string { return ProviderGoogle }

// Generate asks Gemini for a JSON response
func (b *GoogleBackend) Generate(ctx context.Context, prompt, model string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{genai.NewPartFromText(prompt)}, genai.RoleUser),
	}
	temperature := b.temperature
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      &temperature,
	}

	resp, err := b.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini generate content: no candidates in response")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("gemini generate content: no parts in candidate content")
	}

	var text string
	for _, part := range candidate.Content.Parts {
		text += part.Text
	}
	return text, nil
}
