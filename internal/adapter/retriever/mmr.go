package retriever

import (
	"context"

	"docqa/internal/adapter/analyzer"
	"docqa/internal/domain"
	"docqa/internal/port"
)

// overFetch is how many extra candidates the diversifier asks for per slot.
const overFetch = 3

// MMRReranker implements Maximal Marginal Relevance over fragment text.
// Near-duplicates, such as the same paragraph uploaded twice or heavily
// overlapping chunks, are dropped instead of filling the context block.
type MMRReranker struct {
	lambda       float64
	dedupJaccard float64
	tokenizer    port.Tokenizer
}

func NewMMRReranker(lambda, dedupJaccard float64, tokenizer port.Tokenizer) *MMRReranker {
	if tokenizer == nil {
		tokenizer = analyzer.NewTokenizer()
	}
	return &MMRReranker{
		lambda:       lambda,
		dedupJaccard: dedupJaccard,
		tokenizer:    tokenizer,
	}
}

// Rerank picks up to k candidates.
// MMR(c) = λ * relevance(c) - (1-λ) * max_similarity(c, selected)
func (r *MMRReranker) Rerank(candidates []domain.ScoredFragment, k int) []domain.ScoredFragment {
	if len(candidates) == 0 {
		return nil
	}
	if k > len(candidates) {
		k = len(candidates)
	}

	maxScore := candidates[0].Score
	for _, c := range candidates {
		if c.Score > maxScore {
			maxScore = c.Score
		}
	}
	if maxScore <= 0 {
		maxScore = 1
	}

	tokens := make([][]string, len(candidates))
	for i, c := range candidates {
		tokens[i] = r.tokenizer.Tokenize(c.Fragment.Content)
	}

	selected := make([]int, 0, k)
	used := make([]bool, len(candidates))

	for len(selected) < k {
		bestIdx := -1
		bestMMR := -1e9

		for i, c := range candidates {
			if used[i] {
				continue
			}
			relevance := c.Score / maxScore

			maxSim := 0.0
			for _, j := range selected {
				if sim := jaccardSimilarity(tokens[i], tokens[j]); sim > maxSim {
					maxSim = sim
				}
			}
			if maxSim > r.dedupJaccard {
				continue
			}

			if mmr := r.lambda*relevance - (1-r.lambda)*maxSim; mmr > bestMMR {
				bestMMR = mmr
				bestIdx = i
			}
		}

		if bestIdx == -1 {
			break
		}
		selected = append(selected, bestIdx)
		used[bestIdx] = true
	}

	out := make([]domain.ScoredFragment, len(selected))
	for i, idx := range selected {
		out[i] = candidates[idx]
	}
	return out
}

func jaccardSimilarity(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	setA := make(map[string]struct{}, len(a))
	for _, t := range a {
		setA[t] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, t := range b {
		setB[t] = struct{}{}
	}

	intersection := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

// Diversifier over-fetches from an inner retriever and reranks with MMR.
type Diversifier struct {
	inner    port.Retriever
	reranker *MMRReranker
}

var _ port.Retriever = (*Diversifier)(nil)

func NewDiversifier(inner port.Retriever, reranker *MMRReranker) *Diversifier {
	return &Diversifier{inner: inner, reranker: reranker}
}

func (d *Diversifier) Search(ctx context.Context, query string, k int) ([]domain.ScoredFragment, error) {
	candidates, err := d.inner.Search(ctx, query, k*overFetch)
	if err != nil {
		return nil, err
	}
	return d.reranker.Rerank(candidates, k), nil
}
