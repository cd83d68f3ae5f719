package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"docqa/internal/domain"
	"docqa/internal/logger"
	"docqa/internal/port"
)

// AnswerUseCase answers a question from the indexed fragments.
type AnswerUseCase struct {
	llm     port.LLM
	topK    int
	timeout time.Duration
}

func NewAnswerUseCase(llm port.LLM, topK int, timeout time.Duration) *AnswerUseCase {
	if topK <= 0 {
		topK = 5
	}
	return &AnswerUseCase{llm: llm, topK: topK, timeout: timeout}
}

// Answer retrieves context for question from index and asks the model for a
// structured, cited answer.
func (u *AnswerUseCase) Answer(ctx context.Context, question string, index port.Retriever) (*domain.StructuredAnswer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.ErrEmptyQuestion
	}
	logger.Info("Processing question: %s", truncate(question, 100))

	results, err := index.Search(ctx, question, u.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	if len(results) == 0 {
		logger.Warn("No fragments retrieved for question")
		return &domain.StructuredAnswer{Answer: NoInformationAnswer, SourcesCited: []domain.Citation{}}, nil
	}

	fragments := make([]domain.Fragment, len(results))
	for i, r := range results {
		fragments[i] = r.Fragment
	}
	contextBlock := FormatContext(fragments)
	logger.Info("Retrieved %d relevant fragment(s)", len(fragments))
	logger.Debug("Context block length: %d characters", len(contextBlock))

	if u.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.timeout)
		defer cancel()
	}

	var answer domain.StructuredAnswer
	if err := u.llm.GenerateStructured(ctx, SystemPrompt(contextBlock), UserPrompt(question), answerSchema, &answer); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrModelInvocation, u.llm.ModelName(), err)
	}

	NormalizeAnswer(&answer)
	logger.Info("Model answered with %d source(s) cited", len(answer.SourcesCited))
	logger.Debug("Answer preview: %s", truncate(answer.Answer, 100))
	return &answer, nil
}

// NormalizeAnswer enforces the refusal contract after generation: a refusal
// carries no citations. Offending citations are dropped and the answer is
// flagged rather than rejected. Citations without a file name are dropped too.
func NormalizeAnswer(a *domain.StructuredAnswer) {
	kept := make([]domain.Citation, 0, len(a.SourcesCited))
	for _, c := range a.SourcesCited {
		if strings.TrimSpace(c.FileName) == "" {
			continue
		}
		kept = append(kept, c)
	}
	a.SourcesCited = kept

	if IsRefusal(a.Answer) && len(a.SourcesCited) > 0 {
		logger.Warn("Model cited %d source(s) alongside a refusal; discarding them", len(a.SourcesCited))
		a.SourcesCited = []domain.Citation{}
		a.ContractViolation = true
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
