package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Extraction.MaxTokens != 450 {
		t.Errorf("expected MaxTokens=450, got %d", cfg.Extraction.MaxTokens)
	}
	if cfg.Extraction.MaxDocuments != 3 {
		t.Errorf("expected MaxDocuments=3, got %d", cfg.Extraction.MaxDocuments)
	}
	if cfg.Embedding.Dimension != 0 {
		t.Errorf("expected Dimension=0 so the model decides, got %d", cfg.Embedding.Dimension)
	}
	if len(cfg.Extraction.Formats) != 0 {
		t.Errorf("expected no format override, got %v", cfg.Extraction.Formats)
	}
	if cfg.Retrieval.TopK != 5 {
		t.Errorf("expected TopK=5, got %d", cfg.Retrieval.TopK)
	}
	if cfg.VectorStore.Collection != "docling_rag_index" {
		t.Errorf("expected collection docling_rag_index, got %s", cfg.VectorStore.Collection)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Errorf("expected no error for non-existent file, got %v", err)
	}
	if cfg == nil {
		t.Error("expected default config, got nil")
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "docqa.yaml")

	content := `
extraction:
  max_tokens: 256
  timeout: 30s
retrieval:
  top_k: 10
vector_store:
  type: qdrant
  metric: l2
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Extraction.MaxTokens != 256 {
		t.Errorf("expected MaxTokens=256, got %d", cfg.Extraction.MaxTokens)
	}
	if cfg.Extraction.Timeout != 30*time.Second {
		t.Errorf("expected Timeout=30s, got %v", cfg.Extraction.Timeout)
	}
	if cfg.Retrieval.TopK != 10 {
		t.Errorf("expected TopK=10, got %d", cfg.Retrieval.TopK)
	}
	if cfg.VectorStore.Type != "qdrant" || cfg.VectorStore.Metric != "l2" {
		t.Errorf("expected qdrant/l2, got %s/%s", cfg.VectorStore.Type, cfg.VectorStore.Metric)
	}
	// Untouched sections keep their defaults.
	if cfg.VectorStore.Collection != "docling_rag_index" {
		t.Errorf("expected default collection, got %s", cfg.VectorStore.Collection)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "docqa.yaml")
	if err := os.WriteFile(configPath, []byte("retrieval: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(configPath); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadFromDir(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmpDir, ".docqa"), 0755); err != nil {
		t.Fatal(err)
	}
	configPath := filepath.Join(tmpDir, ".docqa", "config.yaml")

	content := `
retrieval:
  top_k: 8
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Retrieval.TopK != 8 {
		t.Errorf("expected TopK=8, got %d", cfg.Retrieval.TopK)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("EMBED_MODEL_ID", "nomic-embed-text")
	t.Setenv("LLM_MODEL_NAME", "llama3.1")
	t.Setenv("MILVUS_URI", "http://legacy:19530")
	t.Setenv("VECTOR_STORE_URI", "http://qdrant:6333")
	t.Setenv("RETRIEVAL_TOP_K", "7")
	t.Setenv("CHUNK_MAX_TOKENS", "300")

	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Embedding.Model != "nomic-embed-text" {
		t.Errorf("expected embed model override, got %s", cfg.Embedding.Model)
	}
	if cfg.LLM.Model != "llama3.1" {
		t.Errorf("expected llm model override, got %s", cfg.LLM.Model)
	}
	if cfg.VectorStore.URI != "http://qdrant:6333" {
		t.Errorf("expected VECTOR_STORE_URI to win, got %s", cfg.VectorStore.URI)
	}
	if cfg.Retrieval.TopK != 7 {
		t.Errorf("expected TopK=7, got %d", cfg.Retrieval.TopK)
	}
	if cfg.Extraction.MaxTokens != 300 {
		t.Errorf("expected MaxTokens=300, got %d", cfg.Extraction.MaxTokens)
	}
}

func TestApplyEnv_BadInt(t *testing.T) {
	t.Setenv("RETRIEVAL_TOP_K", "five")
	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(); err == nil {
		t.Error("expected error for non-numeric RETRIEVAL_TOP_K")
	}
}

func TestLoadDotEnv(t *testing.T) {
	tmpDir := t.TempDir()
	if err := LoadDotEnv(tmpDir); err != nil {
		t.Fatalf("missing .env should be ignored, got %v", err)
	}

	content := "DOCQA_TEST_DOTENV=loaded\n"
	if err := os.WriteFile(filepath.Join(tmpDir, ".env"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DOCQA_TEST_DOTENV", "")
	os.Unsetenv("DOCQA_TEST_DOTENV")

	if err := LoadDotEnv(tmpDir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := os.Getenv("DOCQA_TEST_DOTENV"); got != "loaded" {
		t.Errorf("expected loaded, got %q", got)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero max tokens", func(c *Config) { c.Extraction.MaxTokens = 0 }},
		{"overlap too large", func(c *Config) { c.Extraction.OverlapTokens = c.Extraction.MaxTokens }},
		{"zero top k", func(c *Config) { c.Retrieval.TopK = 0 }},
		{"negative dimension", func(c *Config) { c.Embedding.Dimension = -1 }},
		{"mmr lambda above one", func(c *Config) { c.Retrieval.MMRLambda = 1.5 }},
		{"unknown metric", func(c *Config) { c.VectorStore.Metric = "dot" }},
		{"unknown store", func(c *Config) { c.VectorStore.Type = "milvus" }},
		{"no collection", func(c *Config) { c.VectorStore.Collection = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestIndexDBPath(t *testing.T) {
	cfg := DefaultConfig()
	path := cfg.IndexDBPath("/home/user/project")
	expected := filepath.Join("/home/user/project", ".docqa", "index.db")
	if path != expected {
		t.Errorf("expected %s, got %s", expected, path)
	}

	cfg.VectorStore.Path = "/var/lib/docqa/index.db"
	if got := cfg.IndexDBPath("/home/user/project"); got != "/var/lib/docqa/index.db" {
		t.Errorf("absolute path should be kept, got %s", got)
	}
}
