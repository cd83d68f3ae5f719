package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

type countingRetriever struct {
	calls int
	err   error
}

func (r *countingRetriever) Search(_ context.Context, query string, k int) ([]domain.ScoredFragment, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return []domain.ScoredFragment{{Fragment: domain.Fragment{ID: query, Content: query}, Score: 1}}, nil
}

func TestQueryCache_GetPut(t *testing.T) {
	c := NewQueryCache(10, time.Minute)

	_, hit := c.Get("vacation days", 5)
	assert.False(t, hit)

	c.Put("vacation days", 5, []domain.ScoredFragment{{Score: 0.9}})

	got, hit := c.Get("  Vacation Days ", 5)
	require.True(t, hit)
	assert.Len(t, got, 1)

	_, hit = c.Get("vacation days", 3)
	assert.False(t, hit, "top-k is part of the key")
}

func TestQueryCache_EvictsOldest(t *testing.T) {
	c := NewQueryCache(2, time.Minute)
	c.Put("a", 1, nil)
	c.Put("b", 1, nil)

	// Touch "a" so "b" becomes the oldest.
	_, _ = c.Get("a", 1)
	c.Put("c", 1, nil)

	assert.Equal(t, 2, c.Size())
	_, hit := c.Get("b", 1)
	assert.False(t, hit)
	_, hit = c.Get("a", 1)
	assert.True(t, hit)
}

func TestQueryCache_Expires(t *testing.T) {
	c := NewQueryCache(10, time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Put("q", 5, nil)
	now = now.Add(2 * time.Minute)

	_, hit := c.Get("q", 5)
	assert.False(t, hit)
	assert.Equal(t, 0, c.Size())
}

func TestQueryCache_Invalidate(t *testing.T) {
	c := NewQueryCache(10, time.Minute)
	c.Put("q", 5, nil)
	c.Invalidate()

	_, hit := c.Get("q", 5)
	assert.False(t, hit)
}

func TestCachedRetriever(t *testing.T) {
	inner := &countingRetriever{}
	r := NewCachedRetriever(inner, NewQueryCache(10, time.Minute))
	ctx := context.Background()

	first, err := r.Search(ctx, "policy", 5)
	require.NoError(t, err)
	second, err := r.Search(ctx, "policy", 5)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, first, second)
}

func TestCachedRetriever_DoesNotCacheErrors(t *testing.T) {
	inner := &countingRetriever{err: errors.New("boom")}
	r := NewCachedRetriever(inner, NewQueryCache(10, time.Minute))

	_, err := r.Search(context.Background(), "policy", 5)
	require.Error(t, err)
	_, err = r.Search(context.Background(), "policy", 5)
	require.Error(t, err)

	assert.Equal(t, 2, inner.calls)
}
