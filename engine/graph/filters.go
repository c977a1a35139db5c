package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// PassageNodeFilter narrows GetPassageNodes. A zero-valued filter matches
// every passage node.
type PassageNodeFilter struct {
	UserID string
}

// GetPassageNodes returns passage nodes matching filter.
func (g *GraphStore) GetPassageNodes(ctx context.Context, filter PassageNodeFilter) ([]PassageNode, error) {
	sess := g.session(ctx)
	defer sess.Close(ctx)

	query := "MATCH (p:Passage)"
	params := map[string]any{}
	if filter.UserID != "" {
		query += " WHERE p.user_id = $user_id"
		params["user_id"] = filter.UserID
	}
	query += " RETURN p"

	result, err := sess.Run(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("graph: get passage nodes: %w", err)
	}
	var out []PassageNode
	for result.Next(ctx) {
		node, _, err := neo4j.GetRecordValue[dbtype.Node](result.Record(), "p")
		if err != nil {
			return nil, fmt.Errorf("graph: get passage nodes: %w", err)
		}
		ts, _ := time.Parse(time.RFC3339Nano, strProp(node.Props, "ts"))
		out = append(out, PassageNode{ID: strProp(node.Props, "id"), Timestamp: ts, UserID: strProp(node.Props, "user_id")})
	}
	return out, result.Err()
}

// PhaseNodeFilter narrows GetPhaseNodes. A zero-valued filter matches every
// phase node; phase nodes carry no user_id of their own since the same
// entity can be referenced across a user's whole history.
type PhaseNodeFilter struct {
	Type string
}

// GetPhaseNodes returns phase nodes matching filter.
func (g *GraphStore) GetPhaseNodes(ctx context.Context, filter PhaseNodeFilter) ([]PhaseNode, error) {
	sess := g.session(ctx)
	defer sess.Close(ctx)

	query := "MATCH (p:Phase)"
	params := map[string]any{}
	if filter.Type != "" {
		query += " WHERE p.type = $type"
		params["type"] = filter.Type
	}
	query += " RETURN p"

	result, err := sess.Run(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("graph: get phase nodes: %w", err)
	}
	var out []PhaseNode
	for result.Next(ctx) {
		node, _, err := neo4j.GetRecordValue[dbtype.Node](result.Record(), "p")
		if err != nil {
			return nil, fmt.Errorf("graph: get phase nodes: %w", err)
		}
		out = append(out, phaseNodeFromProps(node.Props))
	}
	return out, result.Err()
}

// PassageEdgeFilter narrows GetPassageEdges. A zero-valued filter matches
// every passage edge.
type PassageEdgeFilter struct {
	UserID    string
	SummaryID string
}

// GetPassageEdges returns passage edges matching filter.
func (g *GraphStore) GetPassageEdges(ctx context.Context, filter PassageEdgeFilter) ([]PassageEdge, error) {
	sess := g.session(ctx)
	defer sess.Close(ctx)

	query := "MATCH (a:Phase)-[r:PASSAGE_EDGE]->(b:Passage)"
	clauses, params := []string{}, map[string]any{}
	if filter.UserID != "" {
		clauses = append(clauses, "r.user_id = $user_id")
		params["user_id"] = filter.UserID
	}
	if filter.SummaryID != "" {
		clauses = append(clauses, "r.summary_id = $summary_id")
		params["summary_id"] = filter.SummaryID
	}
	query += whereClause(clauses)
	query += " RETURN a.id AS source, b.id AS target, r.summary_id AS summary_id, r.relation_type AS relation_type, r.user_id AS user_id, r.ts AS ts"

	result, err := sess.Run(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("graph: get passage edges: %w", err)
	}
	var out []PassageEdge
	for result.Next(ctx) {
		rec := result.Record()
		ts, _ := time.Parse(time.RFC3339Nano, recStr(rec, "ts"))
		out = append(out, PassageEdge{
			Source:       recStr(rec, "source"),
			Target:       recStr(rec, "target"),
			Timestamp:    ts,
			RelationType: recStr(rec, "relation_type"),
			UserID:       recStr(rec, "user_id"),
			SummaryID:    recStr(rec, "summary_id"),
		})
	}
	return out, result.Err()
}

// PhaseEdgeFilter narrows GetPhaseEdges. A zero-valued filter matches every
// phase edge.
type PhaseEdgeFilter struct {
	UserID string
	FactID string
}

// GetPhaseEdges returns phase edges matching filter.
func (g *GraphStore) GetPhaseEdges(ctx context.Context, filter PhaseEdgeFilter) ([]PhaseEdge, error) {
	sess := g.session(ctx)
	defer sess.Close(ctx)

	query := "MATCH (a:Phase)-[r:PHASE_EDGE]->(b:Phase)"
	clauses, params := []string{}, map[string]any{}
	if filter.UserID != "" {
		clauses = append(clauses, "r.user_id = $user_id")
		params["user_id"] = filter.UserID
	}
	if filter.FactID != "" {
		clauses = append(clauses, "r.fact_id = $fact_id")
		params["fact_id"] = filter.FactID
	}
	query += whereClause(clauses)
	query += " RETURN a.id AS source, b.id AS target, r.fact_id AS fact_id, r.relation_type AS relation_type, r.user_id AS user_id, r.ts AS ts"

	result, err := sess.Run(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("graph: get phase edges: %w", err)
	}
	var out []PhaseEdge
	for result.Next(ctx) {
		rec := result.Record()
		ts, _ := time.Parse(time.RFC3339Nano, recStr(rec, "ts"))
		out = append(out, PhaseEdge{
			Source:       recStr(rec, "source"),
			Target:       recStr(rec, "target"),
			Timestamp:    ts,
			RelationType: recStr(rec, "relation_type"),
			UserID:       recStr(rec, "user_id"),
			FactID:       recStr(rec, "fact_id"),
		})
	}
	return out, result.Err()
}

// CntPhaseNodeEdges counts PHASE_EDGE relationships touching nodeID in
// either direction, used to gauge how connected an entity has become.
func (g *GraphStore) CntPhaseNodeEdges(ctx context.Context, nodeID string) (int64, error) {
	sess := g.session(ctx)
	defer sess.Close(ctx)

	result, err := sess.Run(ctx,
		`MATCH (p:Phase {id: $id})-[r:PHASE_EDGE]-() RETURN count(r) AS cnt`,
		map[string]any{"id": nodeID})
	if err != nil {
		return 0, fmt.Errorf("graph: count phase node edges: %w", err)
	}
	if !result.Next(ctx) {
		return 0, nil
	}
	cnt, _, err := neo4j.GetRecordValue[int64](result.Record(), "cnt")
	if err != nil {
		return 0, fmt.Errorf("graph: count phase node edges: %w", err)
	}
	return cnt, nil
}

func whereClause(clauses []string) string {
	if len(clauses) == 0 {
		return ""
	}
	out := " WHERE " + clauses[0]
	for _, c := range clauses[1:] {
		out += " AND " + c
	}
	return out
}

func recStr(rec *neo4j.Record, key string) string {
	v, _ := rec.Get(key)
	s, _ := v.(string)
	return s
}
