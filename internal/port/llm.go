package port

import "context"

// LLM represents a language model for text generation.
type LLM interface {
	// Generate generates text from a system instruction and a user turn.
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// GenerateStructured asks for output matching schema and decodes it into out.
	GenerateStructured(ctx context.Context, systemPrompt, userPrompt string, schema OutputSchema, out any) error

	// ModelName returns the name of the model.
	ModelName() string
}

// OutputSchema describes the JSON document the model must return.
type OutputSchema struct {
	Name        string
	Description string
	Schema      map[string]any
}
