package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"cv-analyzer/internal/llm"
	"cv-analyzer/internal/shared/telemetry"
)

const defaultModel = "gemini-2.5-flash"

// Client implements llm.Client on the Gemini API.
type Client struct {
	client *genai.Client
	model  string
}

// NewClient creates a Gemini client for the given key and model.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{client: client, model: model}, nil
}

// Complete asks for a JSON response to the prompt.
func (c *Client) Complete(ctx context.Context, prompt llm.Prompt) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt.User), generateConfig(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("gemini returned no response")
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini response has no text")
	}
	if resp.UsageMetadata != nil {
		telemetry.Debug("llm.usage", map[string]any{
			"provider":          "gemini",
			"model":             c.model,
			"prompt_tokens":     resp.UsageMetadata.PromptTokenCount,
			"completion_tokens": resp.UsageMetadata.CandidatesTokenCount,
			"total_tokens":      resp.UsageMetadata.TotalTokenCount,
		})
	}
	return text, nil
}

func generateConfig(prompt llm.Prompt) *genai.GenerateContentConfig {
	temperature := float32(0.2)
	cfg := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		MaxOutputTokens:  4096,
		ResponseMIMEType: "application/json",
	}
	if strings.TrimSpace(prompt.System) != "" {
		cfg.SystemInstruction = genai.NewContentFromText(prompt.System, genai.RoleUser)
	}
	return cfg
}

var _ llm.Client = (*Client)(nil)
