package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/port"
)

func TestMemoryVectorStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryVectorStore("cosine")

	require.Error(t, s.Upsert(ctx, []port.VectorItem{{ID: "a", Vector: []float32{1, 0}}}), "no collection yet")

	require.NoError(t, s.Recreate(ctx, 2))
	require.NoError(t, s.Upsert(ctx, []port.VectorItem{
		{ID: "a", Vector: []float32{1, 0}, Content: "east"},
		{ID: "b", Vector: []float32{0, 1}, Content: "north"},
		{ID: "c", Vector: []float32{1, 1}, Content: "north-east"},
	}))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	results, err := s.Search(ctx, []float32{1, 0.1}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "c", results[1].ID)
	assert.Equal(t, "east", results[0].Content)

	_, err = s.Search(ctx, []float32{1, 0, 0}, 2)
	assert.Error(t, err)
}

func TestMemoryVectorStore_UpsertIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryVectorStore("")
	require.NoError(t, s.Recreate(ctx, 2))

	err := s.Upsert(ctx, []port.VectorItem{
		{ID: "ok", Vector: []float32{1, 0}},
		{ID: "bad", Vector: []float32{1, 0, 0}},
	})
	require.Error(t, err)

	n, _ := s.Count(ctx)
	assert.Zero(t, n)
}

func TestMemoryVectorStore_RecreateClears(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryVectorStore("l2")
	require.NoError(t, s.Recreate(ctx, 2))
	require.NoError(t, s.Upsert(ctx, []port.VectorItem{{ID: "a", Vector: []float32{1, 0}}}))

	require.NoError(t, s.Recreate(ctx, 3))
	n, _ := s.Count(ctx)
	assert.Zero(t, n)

	results, err := s.Search(ctx, []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRankVectors_TieBreakByID(t *testing.T) {
	vectors := map[string]vectorEntry{
		"b": {vector: []float32{1, 0}},
		"a": {vector: []float32{1, 0}},
	}
	results := rankVectors(vectors, []float32{1, 0}, 5, "cosine")
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "b", results[1].ID)
}
