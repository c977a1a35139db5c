// Package graph provides the Neo4j-backed fact/passage graph store and the
// personalized PageRank procedure that ranks it.
package graph

import "github.com/AstrBotDevs/atri/engine/domain"

// PassageNode, PhaseNode, PhaseEdge, and PassageEdge are re-exported from
// domain so callers of this package don't need to import both.
type (
	PassageNode = domain.PassageNode
	PhaseNode   = domain.PhaseNode
	PhaseEdge   = domain.PhaseEdge
	PassageEdge = domain.PassageEdge
)

// RankedNode is one entry of a PersonalizedPageRank result: a node id and
// its stationary-distribution score.
type RankedNode struct {
	NodeID string
	Score  float64
}
