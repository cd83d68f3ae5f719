package port

import "context"

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates embeddings for the given texts.
	// Returns a slice of vectors, one per input text.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// VectorStore holds one named collection of embedding vectors.
type VectorStore interface {
	// Recreate drops the collection if it exists and creates it empty.
	Recreate(ctx context.Context, dimension int) error

	// Upsert adds or updates vectors in the collection.
	Upsert(ctx context.Context, items []VectorItem) error

	// Search finds the k nearest vectors to the query, best first.
	Search(ctx context.Context, query []float32, k int) ([]VectorResult, error)

	// Count returns the number of vectors in the collection.
	Count(ctx context.Context) (int, error)

	Close() error
}

// VectorItem represents a vector to be stored.
type VectorItem struct {
	ID       string            // Fragment ID
	Vector   []float32         // Embedding vector
	Content  string            // Fragment text
	Metadata map[string]string // Source and positional metadata
}

// VectorResult represents a search result.
type VectorResult struct {
	ID       string
	Score    float64 // Similarity score (higher is better)
	Content  string
	Metadata map[string]string
}
