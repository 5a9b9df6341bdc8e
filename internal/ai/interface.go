package ai

import (
	"context"
)

// DescriptionProvider defines the contract for menu copywriting models.
// This interface allows for swapping different AI providers (Gemini, OpenAI, etc.) in the future.
type DescriptionProvider interface {
	// GenerateDescription writes a short, appetizing menu description for a
	// product given its name and an optional list of ingredients.
	GenerateDescription(ctx context.Context, productName string, ingredients []string) (string, error)
}
