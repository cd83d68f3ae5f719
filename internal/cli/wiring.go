package cli

import (
	"fmt"
	"os"

	"docqa/config"
	"docqa/internal/adapter/analyzer"
	"docqa/internal/adapter/chunker"
	"docqa/internal/adapter/embedding"
	"docqa/internal/adapter/extractor"
	"docqa/internal/adapter/fs"
	"docqa/internal/adapter/llm"
	"docqa/internal/adapter/retriever"
	"docqa/internal/adapter/store"
	"docqa/internal/port"
	"docqa/internal/usecase"
)

// newEmbedder builds the embedder named by embedding.provider.
func newEmbedder(cfg *config.Config) (port.Embedder, error) {
	ec := embedding.Config{
		Model:             cfg.Embedding.Model,
		BaseURL:           cfg.Embedding.BaseURL,
		Dimension:         cfg.Embedding.Dimension,
		BatchSize:         cfg.Embedding.BatchSize,
		RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
		Timeout:           cfg.Embedding.Timeout,
	}

	switch cfg.Embedding.Provider {
	case "openai":
		return embedding.NewFromEnv(cfg.Embedding.APIKeyEnv, ec)
	case "ollama":
		return embedding.NewOllamaEmbedder(ec)
	case "hash":
		return embedding.NewHashEmbedder(cfg.Embedding.Dimension), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Embedding.Provider)
	}
}

// newVectorStore opens the collection named by vector_store.
func newVectorStore(cfg *config.Config, dir string) (port.VectorStore, error) {
	vc := cfg.VectorStore
	switch vc.Type {
	case "bolt":
		if err := cfg.EnsureDataDir(dir); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		return store.OpenBolt(cfg.IndexDBPath(dir), vc.Collection, vc.Metric, 0)
	case "qdrant":
		return store.NewQdrantStore(store.QdrantConfig{
			URL:        vc.URI,
			APIKey:     os.Getenv("QDRANT_API_KEY"),
			Collection: vc.Collection,
			Metric:     vc.Metric,
			IndexType:  vc.IndexType,
			Timeout:    vc.Timeout,
		}), nil
	case "memory":
		return store.NewMemoryVectorStore(vc.Metric), nil
	default:
		return nil, fmt.Errorf("unsupported vector store: %s", vc.Type)
	}
}

func newLLM(cfg *config.Config) (port.LLM, error) {
	lc := cfg.LLM
	switch lc.Provider {
	case "openai", "ollama":
		return llm.NewFromEnv(lc.APIKeyEnv, llm.Config{
			BaseURL:     lc.BaseURL,
			Model:       lc.Model,
			Temperature: lc.Temperature,
			Timeout:     lc.Timeout,
		})
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", lc.Provider)
	}
}

func newExtractor(cfg *config.Config) *extractor.Extractor {
	tokenizer := analyzer.NewTokenizer()
	chk := chunker.NewTokenChunker(cfg.Extraction.MaxTokens, cfg.Extraction.OverlapTokens, tokenizer)
	return extractor.Default(chk, cfg.Extraction.Timeout)
}

// newResolver accepts only files ext can parse. Without configured formats
// the globs come from the registered parsers.
func newResolver(cfg *config.Config, ext *extractor.Extractor) *fs.Resolver {
	formats := cfg.Extraction.Formats
	if len(formats) == 0 {
		formats = ext.Patterns()
	}
	return fs.NewResolver(formats, cfg.Extraction.MaxDocuments, fs.WithSupported(ext.Supports))
}

// withDiversity wraps r in MMR reranking when retrieval.mmr_lambda is set.
func withDiversity(cfg *config.Config, r port.Retriever) port.Retriever {
	if cfg.Retrieval.MMRLambda <= 0 {
		return r
	}
	reranker := retriever.NewMMRReranker(cfg.Retrieval.MMRLambda, cfg.Retrieval.DedupThreshold, analyzer.NewTokenizer())
	return retriever.NewDiversifier(r, reranker)
}

// pipeline holds the long-lived collaborators shared by one command run.
type pipeline struct {
	embedder port.Embedder
	store    port.VectorStore
	gateway  *usecase.IndexGateway
}

func openPipeline(cfg *config.Config, dir string, opts ...usecase.IndexOption) (*pipeline, error) {
	emb, err := newEmbedder(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	st, err := newVectorStore(cfg, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}

	opts = append([]usecase.IndexOption{
		usecase.WithBatchSize(cfg.Embedding.BatchSize),
		usecase.WithIndexTimeout(cfg.VectorStore.Timeout),
	}, opts...)

	return &pipeline{
		embedder: emb,
		store:    st,
		gateway:  usecase.NewIndexGateway(emb, st, opts...),
	}, nil
}

func (p *pipeline) Close() error {
	return p.store.Close()
}
