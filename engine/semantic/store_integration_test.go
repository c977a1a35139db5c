//go:build integration

package semantic

import (
	"context"
	"os"
	"testing"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestVectorIndex_InsertSearchDelete(t *testing.T) {
	ctx := context.Background()
	idx, err := New(envOr("QDRANT_ADDR", "localhost:6334"), "semantic_test")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { idx.Close() })

	if err := idx.EnsureCollection(ctx, 4); err != nil {
		t.Fatalf("ensure collection: %v", err)
	}
	t.Cleanup(func() { idx.DeleteCollection(ctx) })

	records := []VectorRecord{
		{ID: 1, Embedding: []float32{1, 0, 0, 0}},
		{ID: 2, Embedding: []float32{0, 1, 0, 0}},
	}
	if err := idx.Insert(ctx, records); err != nil {
		t.Fatalf("insert: %v", err)
	}

	hits, err := idx.Search(ctx, []float32{1, 0, 0, 0}, 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) == 0 || hits[0].ID != 1 {
		t.Fatalf("expected closest hit to be id 1, got %+v", hits)
	}

	if err := idx.Delete(ctx, []int64{1, 2}); err != nil {
		t.Fatalf("delete: %v", err)
	}
}
