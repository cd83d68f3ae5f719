package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"docqa/internal/adapter/netcheck"
	"docqa/internal/domain"
	"docqa/internal/port"
)

var _ port.VectorStore = (*QdrantStore)(nil)

// pointNamespace seeds the UUIDv5 point IDs derived from fragment IDs,
// since Qdrant only accepts unsigned integers or UUIDs.
var pointNamespace = uuid.MustParse("6f1c0a8e-2b4d-4c55-9a57-3d0e1f6b8a21")

const upsertBatch = 256

type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	Metric     string // "cosine" or "l2"
	IndexType  string // "flat" disables HNSW graph building
	Timeout    time.Duration
}

// QdrantStore is a small REST client for one Qdrant collection.
type QdrantStore struct {
	url        string
	apiKey     string
	collection string
	distance   string
	indexType  string
	client     *http.Client
}

type statusError struct {
	method string
	path   string
	code   int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("qdrant %s %s failed: %d %s", e.method, e.path, e.code, e.body)
}

func NewQdrantStore(cfg QdrantConfig) *QdrantStore {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	distance := "Cosine"
	if cfg.Metric == "l2" {
		distance = "Euclid"
	}
	return &QdrantStore{
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		distance:   distance,
		indexType:  cfg.IndexType,
		client:     &http.Client{Timeout: timeout},
	}
}

func (s *QdrantStore) collectionPath() string {
	return "/collections/" + url.PathEscape(s.collection)
}

// Recreate drops the collection and creates it with the given dimension.
func (s *QdrantStore) Recreate(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}

	err := s.do(ctx, http.MethodDelete, s.collectionPath(), nil, nil)
	var se *statusError
	if err != nil && !(errors.As(err, &se) && se.code == http.StatusNotFound) {
		return fmt.Errorf("drop collection: %w", err)
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": s.distance,
		},
	}
	if s.indexType == "flat" {
		body["hnsw_config"] = map[string]any{"m": 0}
	}
	if err := s.do(ctx, http.MethodPut, s.collectionPath(), body, nil); err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	return nil
}

func (s *QdrantStore) Upsert(ctx context.Context, items []port.VectorItem) error {
	for start := 0; start < len(items); start += upsertBatch {
		end := start + upsertBatch
		if end > len(items) {
			end = len(items)
		}

		points := make([]map[string]any, 0, end-start)
		for _, item := range items[start:end] {
			points = append(points, map[string]any{
				"id":     uuid.NewSHA1(pointNamespace, []byte(item.ID)).String(),
				"vector": item.Vector,
				"payload": map[string]any{
					"fragment_id": item.ID,
					"content":     item.Content,
					"metadata":    item.Metadata,
				},
			})
		}
		body := map[string]any{"points": points}
		if err := s.do(ctx, http.MethodPut, s.collectionPath()+"/points?wait=true", body, nil); err != nil {
			return fmt.Errorf("upsert points: %w", err)
		}
	}
	return nil
}

func (s *QdrantStore) Search(ctx context.Context, query []float32, k int) ([]port.VectorResult, error) {
	if k <= 0 {
		return nil, nil
	}
	req := map[string]any{
		"vector":       query,
		"limit":        k,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64 `json:"score"`
			Payload struct {
				FragmentID string            `json:"fragment_id"`
				Content    string            `json:"content"`
				Metadata   map[string]string `json:"metadata"`
			} `json:"payload"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, s.collectionPath()+"/points/search", req, &resp); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	results := make([]port.VectorResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		results = append(results, port.VectorResult{
			ID:       r.Payload.FragmentID,
			Score:    r.Score,
			Content:  r.Payload.Content,
			Metadata: r.Payload.Metadata,
		})
	}
	return results, nil
}

// Count returns 0 when the collection does not exist.
func (s *QdrantStore) Count(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	err := s.do(ctx, http.MethodPost, s.collectionPath()+"/points/count", map[string]any{"exact": true}, &resp)
	var se *statusError
	if errors.As(err, &se) && se.code == http.StatusNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return resp.Result.Count, nil
}

func (s *QdrantStore) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *QdrantStore) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.url+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if netcheck.Unreachable(err) {
			return fmt.Errorf("%w: %w", domain.ErrIndexConnection, err)
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		se := &statusError{method: method, path: path, code: resp.StatusCode, body: strings.TrimSpace(string(msg))}
		switch resp.StatusCode {
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return fmt.Errorf("%w: %w", domain.ErrIndexConnection, se)
		}
		return se
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
