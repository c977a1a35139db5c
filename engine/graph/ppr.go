package graph

import (
	"context"
	"fmt"
	"sort"
)

// PPROptions configures a PersonalizedPageRank run. Defaults match the
// reference implementation this package is grounded on: alpha=0.5 (the
// probability mass that continues the random walk along an edge, the
// remainder teleports back to the personalization vector), max_iter=100,
// tol=1e-6.
type PPROptions struct {
	Alpha   float64
	MaxIter int
	Tol     float64
}

// DefaultPPROptions returns the reference PPR parameters.
func DefaultPPROptions() PPROptions {
	return PPROptions{Alpha: 0.5, MaxIter: 100, Tol: 1e-6}
}

// subgraph is the minimal graph shape PersonalizedPageRank needs: every
// node id that participates, and out-adjacency between them.
type subgraph struct {
	nodes       []string
	out         map[string][]string
	passageOnly map[string]bool
}

// PersonalizedPageRank runs power-iteration PageRank with teleportation
// biased toward personalization, following networkx.pagerank's algorithm
// (the reference implementation's own PPR is a thin wrapper around it):
// each iteration redistributes alpha of every node's mass along its
// out-edges (split evenly; dangling nodes redistribute per
// personalization) and adds back (1-alpha) of the node's personalization
// weight, until the total change across all nodes drops below
// N*tol or max_iter is reached.
func PersonalizedPageRank(nodes []string, out map[string][]string, personalization map[string]float64, opts PPROptions) map[string]float64 {
	n := len(nodes)
	if n == 0 {
		return map[string]float64{}
	}

	var personalizationSum float64
	for _, id := range nodes {
		personalizationSum += personalization[id]
	}
	p := make(map[string]float64, n)
	if personalizationSum > 0 {
		for _, id := range nodes {
			p[id] = personalization[id] / personalizationSum
		}
	} else {
		for _, id := range nodes {
			p[id] = 1.0 / float64(n)
		}
	}

	outDegree := make(map[string]int, n)
	for _, id := range nodes {
		outDegree[id] = len(out[id])
	}

	x := make(map[string]float64, n)
	for _, id := range nodes {
		x[id] = 1.0 / float64(n)
	}

	alpha := opts.Alpha
	for iter := 0; iter < opts.MaxIter; iter++ {
		xLast := x
		x = make(map[string]float64, n)

		var danglingSum float64
		for _, id := range nodes {
			if outDegree[id] == 0 {
				danglingSum += xLast[id]
			}
		}
		danglingSum *= alpha

		for _, id := range nodes {
			deg := outDegree[id]
			if deg == 0 {
				continue
			}
			share := alpha * xLast[id] / float64(deg)
			for _, nbr := range out[id] {
				x[nbr] += share
			}
		}
		for _, id := range nodes {
			x[id] += danglingSum*p[id] + (1-alpha)*p[id]
		}

		var delta float64
		for _, id := range nodes {
			d := x[id] - xLast[id]
			if d < 0 {
				d = -d
			}
			delta += d
		}
		if delta < float64(n)*opts.Tol {
			break
		}
	}
	return x
}

// RunPPR loads the subgraph reachable through edges tagged with userID and
// ranks it with PersonalizedPageRank seeded by personalization, then
// returns only passage nodes (the retrieval pipeline only ever surfaces
// summaries to callers), sorted by descending score.
func (g *GraphStore) RunPPR(ctx context.Context, personalization map[string]float64, userID string, opts PPROptions) ([]RankedNode, error) {
	sg, err := g.loadUserSubgraph(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("graph: run ppr: %w", err)
	}
	if len(sg.nodes) == 0 {
		return nil, nil
	}

	scores := PersonalizedPageRank(sg.nodes, sg.out, personalization, opts)

	ranked := make([]RankedNode, 0, len(sg.passageOnly))
	for id := range sg.passageOnly {
		ranked = append(ranked, RankedNode{NodeID: id, Score: scores[id]})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].NodeID < ranked[j].NodeID
	})
	return ranked, nil
}

// loadUserSubgraph fetches every node and directed edge scoped to userID.
func (g *GraphStore) loadUserSubgraph(ctx context.Context, userID string) (subgraph, error) {
	sess := g.session(ctx)
	defer sess.Close(ctx)

	sg := subgraph{out: make(map[string][]string), passageOnly: make(map[string]bool)}
	seen := make(map[string]bool)

	edgeRes, err := sess.Run(ctx,
		`MATCH (a)-[r:PHASE_EDGE|PASSAGE_EDGE {user_id: $user_id}]->(b)
		 RETURN a.id AS source, b.id AS target, labels(b)[0] AS target_label, labels(a)[0] AS source_label`,
		map[string]any{"user_id": userID})
	if err != nil {
		return sg, err
	}
	for edgeRes.Next(ctx) {
		rec := edgeRes.Record()
		source, _ := rec.Get("source")
		target, _ := rec.Get("target")
		targetLabel, _ := rec.Get("target_label")
		sourceLabel, _ := rec.Get("source_label")

		s := fmt.Sprint(source)
		t := fmt.Sprint(target)
		if !seen[s] {
			seen[s] = true
			sg.nodes = append(sg.nodes, s)
		}
		if !seen[t] {
			seen[t] = true
			sg.nodes = append(sg.nodes, t)
		}
		sg.out[s] = append(sg.out[s], t)
		// phase edges are symmetric fact relations: a fact about A and B
		// is evidence for both directions during the random walk.
		if fmt.Sprint(sourceLabel) == "Phase" && fmt.Sprint(targetLabel) == "Phase" {
			sg.out[t] = append(sg.out[t], s)
		}
		if fmt.Sprint(targetLabel) == "Passage" {
			sg.passageOnly[t] = true
		}
	}
	return sg, nil
}
