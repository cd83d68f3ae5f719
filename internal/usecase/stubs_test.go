package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"docqa/internal/domain"
	"docqa/internal/port"
)

// stubExtractor returns canned fragments or errors keyed by document name.
type stubExtractor struct {
	fragments map[string][]domain.Fragment
	errs      map[string]error
	delays    map[string]time.Duration
	inFlight  int32
	maxSeen   int32
}

func (s *stubExtractor) Extract(ctx context.Context, doc domain.UploadedDocument) ([]domain.Fragment, error) {
	n := atomic.AddInt32(&s.inFlight, 1)
	defer atomic.AddInt32(&s.inFlight, -1)
	for {
		m := atomic.LoadInt32(&s.maxSeen)
		if n <= m || atomic.CompareAndSwapInt32(&s.maxSeen, m, n) {
			break
		}
	}

	if d := s.delays[doc.Name]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := s.errs[doc.Name]; err != nil {
		return nil, err
	}
	src := s.fragments[doc.Name]
	out := make([]domain.Fragment, len(src))
	copy(out, src)
	return out, nil
}

func texts(contents ...string) []domain.Fragment {
	out := make([]domain.Fragment, len(contents))
	for i, c := range contents {
		out[i] = domain.Fragment{Content: c, Position: i}
	}
	return out
}

// recordingEmbedder wraps another embedder and counts calls.
type recordingEmbedder struct {
	inner port.Embedder
	err   error
	calls int32
}

func (e *recordingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	atomic.AddInt32(&e.calls, 1)
	if e.err != nil {
		return nil, e.err
	}
	return e.inner.Embed(ctx, texts)
}

func (e *recordingEmbedder) Dimension() int    { return e.inner.Dimension() }
func (e *recordingEmbedder) ModelName() string { return "recording" }

// memoryStore is an in-memory VectorStore with injectable failures.
type memoryStore struct {
	mu         sync.Mutex
	items      []port.VectorItem
	dimension  int
	recreates  int
	calls      int
	recreateFn func() error
	upsertErr  error
}

func (s *memoryStore) Recreate(_ context.Context, dimension int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.recreateFn != nil {
		if err := s.recreateFn(); err != nil {
			return err
		}
	}
	s.recreates++
	s.dimension = dimension
	s.items = nil
	return nil
}

func (s *memoryStore) Upsert(_ context.Context, items []port.VectorItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.items = append(s.items, items...)
	return nil
}

// Search returns items in insertion order, which keeps tests deterministic.
func (s *memoryStore) Search(_ context.Context, _ []float32, k int) ([]port.VectorResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	var out []port.VectorResult
	for i, it := range s.items {
		if i >= k {
			break
		}
		out = append(out, port.VectorResult{ID: it.ID, Score: 1 / float64(i+1), Content: it.Content, Metadata: it.Metadata})
	}
	return out, nil
}

func (s *memoryStore) Count(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items), nil
}

func (s *memoryStore) Close() error { return nil }

// stubRetriever returns fixed results and counts calls.
type stubRetriever struct {
	results []domain.ScoredFragment
	err     error
	calls   int
	lastK   int
}

func (r *stubRetriever) Search(_ context.Context, _ string, k int) ([]domain.ScoredFragment, error) {
	r.calls++
	r.lastK = k
	if r.err != nil {
		return nil, r.err
	}
	if len(r.results) > k {
		return r.results[:k], nil
	}
	return r.results, nil
}

// stubLLM records prompts and replies with a fixed JSON document or a
// function of the system prompt.
type stubLLM struct {
	reply   string
	replyFn func(system string) string
	err     error
	calls   int
	system  string
	user    string
	schema  port.OutputSchema
}

func (l *stubLLM) Generate(_ context.Context, system, user string) (string, error) {
	l.calls++
	l.system, l.user = system, user
	return l.reply, l.err
}

func (l *stubLLM) GenerateStructured(_ context.Context, system, user string, schema port.OutputSchema, out any) error {
	l.calls++
	l.system, l.user, l.schema = system, user, schema
	if l.err != nil {
		return l.err
	}
	reply := l.reply
	if l.replyFn != nil {
		reply = l.replyFn(system)
	}
	if reply == "" {
		return errors.New("stub: no reply configured")
	}
	return json.Unmarshal([]byte(reply), out)
}

func (l *stubLLM) ModelName() string { return "stub-model" }
