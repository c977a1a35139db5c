package coordinator

import (
	"context"
	"fmt"
	"strings"

	"github.com/AstrBotDevs/atri/engine/domain"
	"github.com/AstrBotDevs/atri/engine/graph"
	"github.com/AstrBotDevs/atri/engine/vectordb"
	"github.com/AstrBotDevs/atri/pkg/fn"
)

// Search validates req, runs the facts+summaries vector searches, seeds a
// personalization vector from their hits, re-ranks the user's subgraph with
// personalized PageRank, and returns the top-N passage nodes as memories.
func (c *Coordinator) Search(ctx context.Context, req domain.SearchRequest) ([]domain.RetrievedMemory, error) {
	if err := domain.ValidateSearchRequest(req); err != nil {
		return nil, err
	}
	if q := strings.TrimSpace(req.Query); q == domain.SentinelNone || q == domain.SentinelHold {
		// Sentinel queries carry no retrievable text — the caller is asking
		// to skip or continue a prior turn's context, not to search anew.
		return nil, nil
	}

	topN := req.TopN
	if topN <= 0 {
		topN = defaultTopN
	}

	// Facts and summaries live in separate partitions with independent
	// embeddings, so the two searches run concurrently.
	hits := fn.FanOutResult(
		func() fn.Result[[]vectordb.Result] {
			return fn.FromPair(c.facts.Retrieve(ctx, req.Query, factSearchK, map[string]string{"user_id": req.UserID}))
		},
		func() fn.Result[[]vectordb.Result] {
			return fn.FromPair(c.summaries.Retrieve(ctx, req.Query, summarySearchK, map[string]string{"user_id": req.UserID}))
		},
	)
	pairs, err := hits.Unwrap()
	if err != nil {
		return nil, fmt.Errorf("coordinator: search: %w", err)
	}
	factHits, summaryHits := pairs[0], pairs[1]

	// Each fact hit contributes its full similarity to both endpoints it
	// connects; a node touched by several hits is seeded with the mean of
	// its contributions, not their sum.
	factSeeds := make(map[string][]float64)
	for _, hit := range factHits {
		source, target, err := c.graphStore.GetPhaseNodesByFactID(ctx, hit.Doc.DocID)
		if err != nil {
			continue // fact predates the graph write or was since deleted; skip its seed
		}
		factSeeds[source.ID] = append(factSeeds[source.ID], hit.Similarity)
		factSeeds[target.ID] = append(factSeeds[target.ID], hit.Similarity)
	}

	personalization := make(map[string]float64, len(factSeeds))
	for id, sims := range factSeeds {
		personalization[id] = mean(sims)
	}
	for _, hit := range summaryHits {
		personalization[hit.Doc.DocID] += hit.Similarity * passageSeedBias
	}

	c.mSearches.Inc()
	if len(personalization) == 0 {
		return nil, nil
	}

	ranked, err := c.graphStore.RunPPR(ctx, personalization, req.UserID, graph.DefaultPPROptions())
	if err != nil {
		return nil, fmt.Errorf("coordinator: run ppr: %w", err)
	}
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}

	memories := make([]domain.RetrievedMemory, 0, len(ranked))
	for _, r := range ranked {
		row, err := c.summaries.Get(ctx, r.NodeID)
		if err != nil {
			continue
		}
		memories = append(memories, domain.RetrievedMemory{SummaryID: r.NodeID, Text: row.Text, Score: r.Score})
	}
	return memories, nil
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
