package ai

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"

	"telegram-link-notifier/internal/domain/ports/adapter"
)

var _ adapter.Responder = (*GeminiResponder)(nil)

type GeminiResponder struct {
	client *genai.Client
	model  string
	maxOut int
}

// NewGeminiResponder creates a Gemini responder using the official SDK.
// An empty baseURL keeps the SDK default.
func NewGeminiResponder(ctx context.Context, apiKey, baseURL, model string, maxOut int) (*GeminiResponder, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiResponder{client: c, model: model, maxOut: maxOut}, nil
}

func (g *GeminiResponder) Respond(ctx context.Context, p adapter.Prompt) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction(p), genai.RoleUser),
		MaxOutputTokens:   int32(g.maxOut),
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(userText(p)), cfg)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part != nil {
				b.WriteString(part.Text)
			}
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", errors.New("gemini: empty response")
	}
	return b.String(), nil
}
