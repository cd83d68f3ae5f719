package usecase

import (
	"fmt"
	"strings"

	"docqa/internal/domain"
)

const (
	// RefusalUnrelated is the answer for questions unrelated to the documents.
	RefusalUnrelated = "The question is unrelated to the provided documents."

	// RefusalInsufficient is the answer when the documents do not contain
	// enough to answer a related question.
	RefusalInsufficient = "I cannot answer this question based solely on the provided documents."

	// NoInformationAnswer is returned without calling the model when
	// retrieval finds nothing.
	NoInformationAnswer = "I couldn't find any relevant information in the uploaded documents to answer your question."

	unknownSource  = "Unknown Source"
	blockSeparator = "\n\n---\n\n"
)

const systemPromptTemplate = `You are a strictly factual question-answering assistant. Your only task is to produce a JSON object that answers the user's question using ONLY the provided CONTEXT.

RULES:
1. Answer the question ONLY from the CONTEXT. Outside knowledge may only be used to phrase the answer, for example when giving a recommendation.
2. If the question is clearly UNRELATED to the context, set "answer" to exactly: "` + RefusalUnrelated + `" and set "sources_cited" to an empty list.
3. If the question is RELATED but the CONTEXT does not contain the answer, set "answer" to exactly: "` + RefusalInsufficient + `" and set "sources_cited" to an empty list.
4. For every claim in the answer, add the supporting file name and the exact excerpt to "sources_cited". Use the file name shown in the context label.

CONTEXT:
---
%s
---
`

// SystemPrompt renders the fixed instruction around a formatted context block.
func SystemPrompt(context string) string {
	return fmt.Sprintf(systemPromptTemplate, context)
}

// UserPrompt renders the user turn.
func UserPrompt(question string) string {
	return "USER QUESTION: " + question
}

// FormatContext labels each fragment with its 1-based rank and source file and
// joins the blocks with a visible separator.
func FormatContext(fragments []domain.Fragment) string {
	blocks := make([]string, len(fragments))
	for i, f := range fragments {
		source := f.SourceID
		if source == "" {
			source = unknownSource
		}
		blocks[i] = fmt.Sprintf("[%d] (File: %s):\n%s", i+1, source, f.Content)
	}
	return strings.Join(blocks, blockSeparator)
}

// IsRefusal reports whether answer is one of the canonical refusal phrases,
// ignoring case and surrounding whitespace.
func IsRefusal(answer string) bool {
	a := strings.ToLower(strings.Join(strings.Fields(answer), " "))
	for _, phrase := range []string{RefusalUnrelated, RefusalInsufficient} {
		p := strings.ToLower(phrase)
		if a == p || strings.HasPrefix(a, strings.TrimSuffix(p, ".")) {
			return true
		}
	}
	return false
}
