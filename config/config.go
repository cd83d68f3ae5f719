package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the document QA tool.
type Config struct {
	Extraction  ExtractionConfig  `yaml:"extraction"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	LLM         LLMConfig         `yaml:"llm"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ExtractionConfig holds document parsing and chunking configuration.
// MaxTokens leaves headroom under the embedding model's input limit. Workers
// is the number of documents parsed at once, 1 being sequential. Formats are
// the upload globs the resolver accepts; empty means every format a parser is
// registered for.
type ExtractionConfig struct {
	MaxTokens     int           `yaml:"max_tokens"`
	OverlapTokens int           `yaml:"overlap_tokens"`
	Workers       int           `yaml:"workers"`
	MaxDocuments  int           `yaml:"max_documents"`
	Formats       []string      `yaml:"formats"`
	Timeout       time.Duration `yaml:"timeout"`
}

// EmbeddingConfig holds embedding configuration. A zero Dimension is looked
// up from the model name; the index always takes the width of the vectors
// the model actually returns.
type EmbeddingConfig struct {
	Provider          string        `yaml:"provider"` // "openai", "ollama", "hash"
	Model             string        `yaml:"model"`
	BaseURL           string        `yaml:"base_url"`
	APIKeyEnv         string        `yaml:"api_key_env"` // Environment variable for API key
	Dimension         int           `yaml:"dimension"`
	BatchSize         int           `yaml:"batch_size"`
	RequestsPerSecond float64       `yaml:"requests_per_second"` // 0 = unlimited
	Timeout           time.Duration `yaml:"timeout"`
}

// VectorStoreConfig holds the vector index configuration.
type VectorStoreConfig struct {
	Type       string        `yaml:"type"` // "bolt", "qdrant", "memory"
	URI        string        `yaml:"uri"`
	Path       string        `yaml:"path"` // bolt file, relative to the working dir
	Collection string        `yaml:"collection"`
	Metric     string        `yaml:"metric"`     // "cosine", "l2"
	IndexType  string        `yaml:"index_type"` // "flat", "hnsw"
	Timeout    time.Duration `yaml:"timeout"`
}

// LLMConfig holds language model configuration.
type LLMConfig struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"base_url"`
	APIKeyEnv   string        `yaml:"api_key_env"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// RetrievalConfig holds retrieval configuration.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`

	// MMRLambda enables diversity reranking when positive. 1 ranks purely by
	// similarity while still dropping near-duplicates.
	MMRLambda      float64 `yaml:"mmr_lambda"`
	DedupThreshold float64 `yaml:"dedup_threshold"` // Jaccard similarity above which a fragment is a duplicate
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Extraction: ExtractionConfig{
			MaxTokens:     450,
			OverlapTokens: 0,
			Workers:       1,
			MaxDocuments:  3,
			Timeout:       2 * time.Minute,
		},
		Embedding: EmbeddingConfig{
			Provider:  "openai",
			Model:     "text-embedding-3-small",
			APIKeyEnv: "OPENAI_API_KEY",
			BatchSize: 100,
			Timeout:   time.Minute,
		},
		VectorStore: VectorStoreConfig{
			Type:       "bolt",
			URI:        "http://localhost:6333",
			Path:       filepath.Join(".docqa", "index.db"),
			Collection: "docling_rag_index",
			Metric:     "cosine",
			IndexType:  "flat",
			Timeout:    5 * time.Minute,
		},
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			APIKeyEnv:   "OPENAI_API_KEY",
			Temperature: 0,
			Timeout:     2 * time.Minute,
		},
		Retrieval: RetrievalConfig{
			TopK:           5,
			DedupThreshold: 0.9,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for docqa.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "docqa.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".docqa", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// LoadDotEnv loads a .env file from dir into the process environment.
// Variables already set are left untouched. A missing file is not an error.
func LoadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return godotenv.Load(path)
}

// ApplyEnv overlays environment variables on top of the loaded values.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("EMBED_MODEL_ID"); v != "" {
		c.Embedding.Model = v
	}
	if v := os.Getenv("EMBED_PROVIDER"); v != "" {
		c.Embedding.Provider = v
	}
	if v := os.Getenv("EMBED_BASE_URL"); v != "" {
		c.Embedding.BaseURL = v
	}
	if v := os.Getenv("LLM_MODEL_NAME"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	// MILVUS_URI is accepted for compatibility with older deployments.
	for _, key := range []string{"MILVUS_URI", "VECTOR_STORE_URI"} {
		if v := os.Getenv(key); v != "" {
			c.VectorStore.URI = v
		}
	}
	if v := os.Getenv("VECTOR_STORE_TYPE"); v != "" {
		c.VectorStore.Type = v
	}
	if v := os.Getenv("VECTOR_COLLECTION"); v != "" {
		c.VectorStore.Collection = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"RETRIEVAL_TOP_K", &c.Retrieval.TopK},
		{"CHUNK_MAX_TOKENS", &c.Extraction.MaxTokens},
		{"EXTRACTION_WORKERS", &c.Extraction.Workers},
		{"EMBED_DIMENSION", &c.Embedding.Dimension},
	}
	for _, e := range ints {
		v := os.Getenv(e.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", e.key, err)
		}
		*e.dst = n
	}
	return nil
}

// Validate reports configuration values that cannot work.
func (c *Config) Validate() error {
	if c.Extraction.MaxTokens <= 0 {
		return fmt.Errorf("extraction.max_tokens must be positive, got %d", c.Extraction.MaxTokens)
	}
	if c.Extraction.OverlapTokens < 0 || c.Extraction.OverlapTokens >= c.Extraction.MaxTokens {
		return fmt.Errorf("extraction.overlap_tokens must be in [0, max_tokens), got %d", c.Extraction.OverlapTokens)
	}
	if c.Extraction.MaxDocuments <= 0 {
		return fmt.Errorf("extraction.max_documents must be positive, got %d", c.Extraction.MaxDocuments)
	}
	if c.Embedding.Dimension < 0 {
		return fmt.Errorf("embedding.dimension must not be negative, got %d", c.Embedding.Dimension)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be positive, got %d", c.Retrieval.TopK)
	}
	if c.Retrieval.MMRLambda < 0 || c.Retrieval.MMRLambda > 1 {
		return fmt.Errorf("retrieval.mmr_lambda must be in [0, 1], got %g", c.Retrieval.MMRLambda)
	}
	if c.VectorStore.Collection == "" {
		return fmt.Errorf("vector_store.collection is required")
	}
	switch c.VectorStore.Metric {
	case "cosine", "l2":
	default:
		return fmt.Errorf("vector_store.metric: unsupported %q", c.VectorStore.Metric)
	}
	switch c.VectorStore.Type {
	case "bolt", "qdrant", "memory":
	default:
		return fmt.Errorf("vector_store.type: unsupported %q", c.VectorStore.Type)
	}
	return nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// IndexDBPath returns the path to the local index database.
func (c *Config) IndexDBPath(dir string) string {
	if filepath.IsAbs(c.VectorStore.Path) {
		return c.VectorStore.Path
	}
	return filepath.Join(dir, c.VectorStore.Path)
}

// EnsureDataDir ensures the directory holding the local index exists.
func (c *Config) EnsureDataDir(dir string) error {
	return os.MkdirAll(filepath.Dir(c.IndexDBPath(dir)), 0755)
}
