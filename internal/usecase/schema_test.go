package usecase

import (
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

func jsonFieldNames(t reflect.Type) []string {
	var names []string
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name != "" && name != "-" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func propertyNames(t *testing.T, node map[string]any) []string {
	t.Helper()
	props, ok := node["properties"].(map[string]any)
	require.True(t, ok, "expected properties in %v", node)
	names := make([]string, 0, len(props))
	for k := range props {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func TestAnswerSchema_MatchesStructuredAnswer(t *testing.T) {
	schema := answerSchema.Schema
	assert.Equal(t, "structured_answer", answerSchema.Name)

	// Everything the model fills in; contract_violation is set locally.
	var want []string
	for _, name := range jsonFieldNames(reflect.TypeOf(domain.StructuredAnswer{})) {
		if name != "contract_violation" {
			want = append(want, name)
		}
	}
	assert.Equal(t, want, propertyNames(t, schema))

	sources := schema["properties"].(map[string]any)["sources_cited"].(map[string]any)
	items, ok := sources["items"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, jsonFieldNames(reflect.TypeOf(domain.Citation{})), propertyNames(t, items))
}

func TestAnswerSchema_IsStrict(t *testing.T) {
	schema := answerSchema.Schema
	assert.Equal(t, false, schema["additionalProperties"])
	assert.ElementsMatch(t, []any{"answer", "sources_cited"}, schema["required"])

	items := schema["properties"].(map[string]any)["sources_cited"].(map[string]any)["items"].(map[string]any)
	assert.Equal(t, false, items["additionalProperties"])
	assert.ElementsMatch(t, []any{"chunk_content", "file_name"}, items["required"])

	answer := schema["properties"].(map[string]any)["answer"].(map[string]any)
	assert.Contains(t, answer["description"], "refusal phrase")
}
