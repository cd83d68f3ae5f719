package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"docqa/internal/domain"
	"docqa/internal/port"
)

// Ensure BoltVectorStore implements the interface.
var _ port.VectorStore = (*BoltVectorStore)(nil)

var (
	bucketVectors = []byte("vectors")
	keyDimension  = []byte("dimension")
)

// BoltVectorStore keeps one named collection in a bbolt file: a top-level
// bucket holding the dimension and a nested bucket of vectors. Search is brute
// force over an in-memory copy, which is plenty for a handful of documents.
type BoltVectorStore struct {
	db         *bbolt.DB
	collection []byte
	metric     string
	dimension  int
	mu         sync.RWMutex
	vectors    map[string]vectorEntry
}

type vectorEntry struct {
	vector   []float32
	content  string
	metadata map[string]string
}

type storedVector struct {
	Vector   []float32         `json:"v"`
	Content  string            `json:"c"`
	Metadata map[string]string `json:"m,omitempty"`
}

// OpenBolt opens (or creates) the bbolt file at path. Another process holding
// the file lock for longer than lockTimeout is reported as an unreachable index.
func OpenBolt(path, collection, metric string, lockTimeout time.Duration) (*BoltVectorStore, error) {
	if lockTimeout <= 0 {
		lockTimeout = 5 * time.Second
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: lockTimeout})
	if err != nil {
		if errors.Is(err, bbolt.ErrTimeout) {
			return nil, fmt.Errorf("%w: %s is locked by another process", domain.ErrIndexConnection, path)
		}
		return nil, fmt.Errorf("%w: failed to open bolt db: %w", domain.ErrIndexConnection, err)
	}

	s, err := NewBoltVectorStore(db, collection, metric)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewBoltVectorStore wraps an open database and loads the collection, if any.
func NewBoltVectorStore(db *bbolt.DB, collection, metric string) (*BoltVectorStore, error) {
	if metric == "" {
		metric = "cosine"
	}
	s := &BoltVectorStore{
		db:         db,
		collection: []byte(collection),
		metric:     metric,
		vectors:    make(map[string]vectorEntry),
	}
	if err := s.loadVectors(); err != nil {
		return nil, fmt.Errorf("failed to load collection %s: %w", collection, err)
	}
	return s, nil
}

func (s *BoltVectorStore) loadVectors() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(s.collection)
		if c == nil {
			return nil
		}
		if raw := c.Get(keyDimension); len(raw) == 8 {
			s.dimension = int(binary.BigEndian.Uint64(raw))
		}
		b := c.Bucket(bucketVectors)
		if b == nil {
			return nil
		}

		return b.ForEach(func(k, v []byte) error {
			var stored storedVector
			if err := json.Unmarshal(v, &stored); err != nil {
				return nil // Skip corrupted entries
			}
			s.vectors[string(k)] = vectorEntry{
				vector:   stored.Vector,
				content:  stored.Content,
				metadata: stored.Metadata,
			}
			return nil
		})
	})
}

// Recreate drops the collection bucket and creates it empty.
func (s *BoltVectorStore) Recreate(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(s.collection); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return fmt.Errorf("drop collection: %w", err)
		}
		c, err := tx.CreateBucket(s.collection)
		if err != nil {
			return fmt.Errorf("create collection: %w", err)
		}
		if _, err := c.CreateBucket(bucketVectors); err != nil {
			return err
		}
		var raw [8]byte
		binary.BigEndian.PutUint64(raw[:], uint64(dimension))
		return c.Put(keyDimension, raw[:])
	})
	if err != nil {
		return err
	}

	s.dimension = dimension
	s.vectors = make(map[string]vectorEntry)
	return nil
}

// Upsert adds or updates vectors in the collection.
func (s *BoltVectorStore) Upsert(ctx context.Context, items []port.VectorItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := make(map[string]vectorEntry, len(items))
	err := s.db.Update(func(tx *bbolt.Tx) error {
		c := tx.Bucket(s.collection)
		if c == nil || c.Bucket(bucketVectors) == nil {
			return fmt.Errorf("collection %s does not exist", s.collection)
		}
		b := c.Bucket(bucketVectors)

		for _, item := range items {
			if err := ctx.Err(); err != nil {
				return err
			}
			if len(item.Vector) != s.dimension {
				return fmt.Errorf("vector dimension mismatch: expected %d, got %d", s.dimension, len(item.Vector))
			}

			data, err := json.Marshal(storedVector{
				Vector:   item.Vector,
				Content:  item.Content,
				Metadata: item.Metadata,
			})
			if err != nil {
				return err
			}
			if err := b.Put([]byte(item.ID), data); err != nil {
				return err
			}
			pending[item.ID] = vectorEntry{vector: item.Vector, content: item.Content, metadata: item.Metadata}
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Only visible once the transaction has committed.
	for id, e := range pending {
		s.vectors[id] = e
	}
	return nil
}

// Search finds the k nearest vectors to the query.
func (s *BoltVectorStore) Search(_ context.Context, query []float32, k int) ([]port.VectorResult, error) {
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

// Count returns the number of vectors in the collection.
func (s *BoltVectorStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors), nil
}

func (s *BoltVectorStore) Close() error {
	return s.db.Close()
}

// cosineSimilarity calculates the cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

func euclideanDistance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
