package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cv-builder/pkg/ai/formatters"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiClient generates summaries with Google Gemini.
type GeminiClient struct {
	client *genai.Client
	model  string
}

func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: API key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &GeminiClient{client: client, model: model}, nil
}

// Summarize implements Summarizer.
func (c *GeminiClient) Summarize(ctx context.Context, prompt string) (string, error) {
	return formatters.NewSummaryFormatter(c).Format(ctx, prompt)
}

// Chat implements formatters.Chatter.
func (c *GeminiClient) Chat(ctx context.Context, input string) (string, error) {
	m := c.client.GenerativeModel(c.model)
	m.SetTemperature(0.4)
	m.ResponseMIMEType = "application/json"

	resp, err := m.GenerateContent(ctx, genai.Text(input))
	if err != nil {
		return "", fmt.Errorf("gemini: generate content: %w", err)
	}
	return responseText(resp)
}

func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("gemini: no candidates in response")
	}
	cand := resp.Candidates[0]
	if cand.Content == nil {
		return "", errors.New("gemini: no content in response")
	}
	var parts []string
	for _, p := range cand.Content.Parts {
		if t, ok := p.(genai.Text); ok {
			parts = append(parts, string(t))
		}
	}
	if len(parts) == 0 {
		return "", errors.New("gemini: no text parts in response")
	}
	return strings.Join(parts, ""), nil
}
