package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiProvider implements DescriptionProvider using Google's Gemini models.
type GeminiProvider struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGeminiProvider initializes a new Gemini client.
// apiKey should be provided from environment variables.
func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	// Gemini 2.0 Flash keeps latency and cost low for short copy.
	model := client.GenerativeModel("gemini-2.0-flash")
	model.SetTemperature(0.7)

	return &GeminiProvider{
		client: client,
		model:  model,
	}, nil
}

// Close cleans up the Gemini client resources.
func (p *GeminiProvider) Close() {
	p.client.Close()
}

// GenerateDescription produces one or two sentences of menu copy in
// Brazilian Portuguese. Callers are expected to fall back to a static
// description when this errors.
func (p *GeminiProvider) GenerateDescription(ctx context.Context, productName string, ingredients []string) (string, error) {
	prompt := buildDescriptionPrompt(productName, ingredients)

	resp, err := p.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generation error: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no response candidates from Gemini")
	}

	var out strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			out.WriteString(string(txt))
		}
	}

	text := strings.TrimSpace(out.String())
	if text == "" {
		return "", fmt.Errorf("empty description from Gemini")
	}
	return text, nil
}

func buildDescriptionPrompt(productName string, ingredients []string) string {
	var b strings.Builder
	b.WriteString("You write menu copy for a Brazilian food delivery app.\n")
	b.WriteString("Write one short, appetizing description in Brazilian Portuguese for the dish below.\n")
	b.WriteString("At most two sentences. No emojis, no price, no markdown.\n\n")
	fmt.Fprintf(&b, "Dish: %s\n", productName)
	if len(ingredients) > 0 {
		fmt.Fprintf(&b, "Ingredients: %s\n", strings.Join(ingredients, ", "))
	}
	return b.String()
}
