package usecase

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/jsonschema-go/jsonschema"

	"docqa/internal/domain"
	"docqa/internal/port"
)

// modelAnswer is the part of domain.StructuredAnswer the model fills in.
type modelAnswer struct {
	Answer       string            `json:"answer" jsonschema:"the complete, conversational answer strictly based on the context; use the full refusal phrase for failure cases"`
	SourcesCited []domain.Citation `json:"sources_cited" jsonschema:"every source used for the answer; must be empty when the answer is a refusal"`
}

var answerSchema = mustOutputSchema[modelAnswer](
	"structured_answer",
	"The final answer to the user's question with the sources that support it.",
)

// outputSchema infers a JSON schema for T and tightens it for strict
// structured output: every object lists all of its properties as required
// and forbids extra ones.
func outputSchema[T any](name, description string) (port.OutputSchema, error) {
	inferred, err := jsonschema.For[T](nil)
	if err != nil {
		return port.OutputSchema{}, fmt.Errorf("infer schema %s: %w", name, err)
	}
	data, err := json.Marshal(inferred)
	if err != nil {
		return port.OutputSchema{}, err
	}
	var schema map[string]any
	if err := json.Unmarshal(data, &schema); err != nil {
		return port.OutputSchema{}, err
	}
	strictify(schema)

	return port.OutputSchema{Name: name, Description: description, Schema: schema}, nil
}

func mustOutputSchema[T any](name, description string) port.OutputSchema {
	s, err := outputSchema[T](name, description)
	if err != nil {
		panic(err)
	}
	return s
}

func strictify(node map[string]any) {
	if props, ok := node["properties"].(map[string]any); ok {
		required := make([]any, 0, len(props))
		for key, child := range props {
			required = append(required, key)
			if m, ok := child.(map[string]any); ok {
				strictify(m)
			}
		}
		sort.Slice(required, func(i, j int) bool { return required[i].(string) < required[j].(string) })
		node["required"] = required
		node["additionalProperties"] = false
	}
	if items, ok := node["items"].(map[string]any); ok {
		strictify(items)
	}
}
