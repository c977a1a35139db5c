package vectordb

import (
	"testing"

	"github.com/AstrBotDevs/atri/engine/semantic"
)

func TestL2ToSimilarity_Empty(t *testing.T) {
	if got := l2ToSimilarity(nil); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestL2ToSimilarity_ClosestScoresHighest(t *testing.T) {
	hits := []semantic.SearchHit{
		{ID: 1, Distance: 0.1},
		{ID: 2, Distance: 0.5},
		{ID: 3, Distance: 0.9},
	}
	sims := l2ToSimilarity(hits)
	if len(sims) != 3 {
		t.Fatalf("expected 3 similarities, got %d", len(sims))
	}
	if sims[0] <= sims[1] || sims[1] <= sims[2] {
		t.Fatalf("expected descending similarity for ascending distance, got %v", sims)
	}
	if sims[0] < 0.99 {
		t.Fatalf("expected closest distance to normalize near 1.0, got %f", sims[0])
	}
	if sims[2] > 0.01 {
		t.Fatalf("expected farthest distance to normalize near 0.0, got %f", sims[2])
	}
}

func TestL2ToSimilarity_AllEqualDistances(t *testing.T) {
	hits := []semantic.SearchHit{
		{ID: 1, Distance: 0.5},
		{ID: 2, Distance: 0.5},
	}
	sims := l2ToSimilarity(hits)
	if sims[0] != sims[1] {
		t.Fatalf("expected equal similarities for equal distances, got %v", sims)
	}
	if sims[0] != 0 {
		t.Fatalf("expected similarity 0 when max == min, got %v", sims)
	}
}
