package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"docqa/internal/port"
)

var _ port.VectorStore = (*MemoryVectorStore)(nil)

// MemoryVectorStore keeps the collection in process memory. It suits a
// single chat session; nothing survives the process.
type MemoryVectorStore struct {
	mu        sync.RWMutex
	metric    string
	dimension int
	vectors   map[string]vectorEntry
}

func NewMemoryVectorStore(metric string) *MemoryVectorStore {
	if metric == "" {
		metric = "cosine"
	}
	return &MemoryVectorStore{
		metric:  metric,
		vectors: make(map[string]vectorEntry),
	}
}

func (s *MemoryVectorStore) Recreate(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	s.vectors = make(map[string]vectorEntry)
	return nil
}

// Upsert is all or nothing: a bad vector leaves the collection unchanged.
func (s *MemoryVectorStore) Upsert(ctx context.Context, items []port.VectorItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dimension == 0 {
		return fmt.Errorf("collection does not exist")
	}
	for _, item := range items {
		if len(item.Vector) != s.dimension {
			return fmt.Errorf("vector dimension mismatch: expected %d, got %d", s.dimension, len(item.Vector))
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, item := range items {
		s.vectors[item.ID] = vectorEntry{vector: item.Vector, content: item.Content, metadata: item.Metadata}
	}
	return nil
}

func (s *MemoryVectorStore) Search(_ context.Context, query []float32, k int) ([]port.VectorResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.vectors) == 0 || k <= 0 {
		return nil, nil
	}
	if len(query) != s.dimension {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", s.dimension, len(query))
	}
	return rankVectors(s.vectors, query, k, s.metric), nil
}

func (s *MemoryVectorStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors), nil
}

func (s *MemoryVectorStore) Close() error { return nil }

// rankVectors scores every entry against query and returns the best k.
// Ties are broken by ID so results are deterministic.
func rankVectors(vectors map[string]vectorEntry, query []float32, k int, metric string) []port.VectorResult {
	results := make([]port.VectorResult, 0, len(vectors))
	for id, entry := range vectors {
		results = append(results, port.VectorResult{
			ID:       id,
			Score:    similarity(metric, query, entry.vector),
			Content:  entry.content,
			Metadata: entry.metadata,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k]
}

// similarity maps both metrics onto "higher is closer".
func similarity(metric string, a, b []float32) float64 {
	if metric == "l2" {
		return 1 / (1 + euclideanDistance(a, b))
	}
	return cosineSimilarity(a, b)
}
