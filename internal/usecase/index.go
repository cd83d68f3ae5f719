package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"docqa/internal/domain"
	"docqa/internal/logger"
	"docqa/internal/port"
)

// Metadata keys written next to each vector.
const (
	metaSourceID   = "source_id"
	metaOriginPath = "origin_path"
	metaPosition   = "position"
)

// IndexGateway embeds fragments and persists them into the configured
// collection, replacing whatever the collection held before.
type IndexGateway struct {
	embedder  port.Embedder
	store     port.VectorStore
	batchSize int
	timeout   time.Duration
	progress  domain.ProgressFunc
}

// IndexOption configures an IndexGateway.
type IndexOption func(*IndexGateway)

func WithBatchSize(n int) IndexOption {
	return func(g *IndexGateway) {
		if n > 0 {
			g.batchSize = n
		}
	}
}

// WithIndexTimeout bounds one Index call, embedding and writes together.
func WithIndexTimeout(d time.Duration) IndexOption {
	return func(g *IndexGateway) { g.timeout = d }
}

func WithIndexProgress(fn domain.ProgressFunc) IndexOption {
	return func(g *IndexGateway) { g.progress = fn }
}

func NewIndexGateway(embedder port.Embedder, store port.VectorStore, opts ...IndexOption) *IndexGateway {
	g := &IndexGateway{
		embedder:  embedder,
		store:     store,
		batchSize: 100,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Index embeds every fragment, drops and recreates the collection, then writes
// the vectors. Embedding happens first so a failing embedder leaves the
// previous collection intact.
func (g *IndexGateway) Index(ctx context.Context, fragments []domain.Fragment) (*IndexHandle, error) {
	if len(fragments) == 0 {
		return nil, domain.ErrEmptyIndex
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	logger.Info("Step 2/2: Embedding %d fragment(s) with %s", len(fragments), g.embedder.ModelName())

	items := make([]port.VectorItem, 0, len(fragments))
	for start := 0; start < len(fragments); start += g.batchSize {
		end := start + g.batchSize
		if end > len(fragments) {
			end = len(fragments)
		}
		batch := fragments[start:end]

		texts := make([]string, len(batch))
		for i, f := range batch {
			texts[i] = f.Content
		}
		vectors, err := g.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, classifyIndexError("embed", err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("%w: embedder returned %d vectors for %d fragments", domain.ErrIndexWrite, len(vectors), len(batch))
		}
		for i, f := range batch {
			items = append(items, toVectorItem(f, vectors[i]))
		}
		logger.Debug("Embedded %d/%d fragment(s)", end, len(fragments))
	}

	// The collection takes the width of the vectors actually produced. The
	// embedder's advertised dimension is a guess for unknown models.
	dimension := len(items[0].Vector)
	for _, item := range items {
		if len(item.Vector) == 0 || len(item.Vector) != dimension {
			return nil, fmt.Errorf("%w: embedder returned vectors of mixed dimension (%d and %d)", domain.ErrIndexWrite, dimension, len(item.Vector))
		}
	}
	if advertised := g.embedder.Dimension(); advertised > 0 && advertised != dimension {
		logger.Warn("Embedding model %s returned %d-d vectors, expected %d; using %d", g.embedder.ModelName(), dimension, advertised, dimension)
	}

	if err := g.store.Recreate(ctx, dimension); err != nil {
		return nil, classifyIndexError("recreate collection", err)
	}
	if err := g.store.Upsert(ctx, items); err != nil {
		return nil, classifyIndexError("write", err)
	}

	if g.progress != nil {
		g.progress(domain.ProgressEvent{
			Stage:     domain.StageIndex,
			Kind:      domain.EventStageComplete,
			Fragments: len(items),
		})
	}
	logger.Info("Indexed %d fragment(s)", len(items))

	return &IndexHandle{embedder: g.embedder, store: g.store, count: len(items)}, nil
}

// Open attaches to a collection written by an earlier run.
func (g *IndexGateway) Open(ctx context.Context) (*IndexHandle, error) {
	n, err := g.store.Count(ctx)
	if err != nil {
		return nil, classifyIndexError("count", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: ingest documents first", domain.ErrIndexNotFound)
	}
	return &IndexHandle{embedder: g.embedder, store: g.store, count: n}, nil
}

func toVectorItem(f domain.Fragment, vector []float32) port.VectorItem {
	meta := make(map[string]string, len(f.Metadata)+3)
	for k, v := range f.Metadata {
		meta[k] = v
	}
	meta[metaSourceID] = f.SourceID
	meta[metaOriginPath] = f.OriginPath
	meta[metaPosition] = strconv.Itoa(f.Position)

	id := f.ID
	if id == "" {
		id = domain.FragmentID(f.SourceID, f.Position)
	}
	return port.VectorItem{ID: id, Vector: vector, Content: f.Content, Metadata: meta}
}

// classifyIndexError keeps connectivity failures distinct from everything
// else. A deadline counts as connectivity.
func classifyIndexError(op string, err error) error {
	if errors.Is(err, domain.ErrIndexConnection) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %w", domain.ErrIndexConnection, op, err)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrIndexWrite, op, err)
}

// IndexHandle queries a populated collection.
type IndexHandle struct {
	embedder port.Embedder
	store    port.VectorStore
	count    int
}

var _ port.Retriever = (*IndexHandle)(nil)

// Count is the number of fragments in the collection.
func (h *IndexHandle) Count() int {
	return h.count
}

// Search embeds the query and returns at most k fragments, best first.
func (h *IndexHandle) Search(ctx context.Context, query string, k int) ([]domain.ScoredFragment, error) {
	vectors, err := h.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, errors.New("embed query: no vector returned")
	}

	results, err := h.store.Search(ctx, vectors[0], k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	if len(results) > k {
		results = results[:k]
	}

	scored := make([]domain.ScoredFragment, 0, len(results))
	for _, r := range results {
		scored = append(scored, domain.ScoredFragment{
			Fragment: fromVectorResult(r),
			Score:    r.Score,
		})
	}
	return scored, nil
}

func fromVectorResult(r port.VectorResult) domain.Fragment {
	f := domain.Fragment{
		ID:       r.ID,
		Content:  r.Content,
		Metadata: make(map[string]string, len(r.Metadata)),
	}
	for k, v := range r.Metadata {
		switch k {
		case metaSourceID:
			f.SourceID = v
		case metaOriginPath:
			f.OriginPath = v
		case metaPosition:
			f.Position, _ = strconv.Atoi(v)
		default:
			f.Metadata[k] = v
		}
	}
	return f
}
