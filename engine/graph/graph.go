package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/AstrBotDevs/atri/pkg/repo"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// GraphStore persists the fact/passage graph in Neo4j: two node labels
// (Passage, Phase) and two relationship types (PHASE_EDGE, PASSAGE_EDGE).
// MERGE on primary key makes every write idempotent.
type GraphStore struct {
	driver   neo4j.DriverWithContext
	passages *repo.Neo4jRepo[PassageNode, string]
}

// New creates a GraphStore over an open Neo4j driver.
func New(driver neo4j.DriverWithContext) *GraphStore {
	return &GraphStore{driver: driver, passages: newPassageNodeRepo(driver)}
}

func (g *GraphStore) session(ctx context.Context) neo4j.SessionWithContext {
	return g.driver.NewSession(ctx, neo4j.SessionConfig{})
}

// AddPassageNode merges a passage node by id.
func (g *GraphStore) AddPassageNode(ctx context.Context, n PassageNode) error {
	sess := g.session(ctx)
	defer sess.Close(ctx)

	_, err := sess.Run(ctx,
		`MERGE (p:Passage {id: $id})
		 SET p.ts = $ts, p.user_id = $user_id`,
		map[string]any{"id": n.ID, "ts": n.Timestamp.UTC().Format(time.RFC3339Nano), "user_id": n.UserID})
	if err != nil {
		return fmt.Errorf("graph: add passage node: %w", err)
	}
	return nil
}

// AddPhaseNode merges a phase (entity) node by id. Phase nodes are also
// unique by name within the store — callers resolve existing phase nodes
// via FindPhaseNodeByName before deciding to mint a new id.
func (g *GraphStore) AddPhaseNode(ctx context.Context, n PhaseNode) error {
	sess := g.session(ctx)
	defer sess.Close(ctx)

	_, err := sess.Run(ctx,
		`MERGE (p:Phase {id: $id})
		 SET p.name = $name, p.type = $type`,
		map[string]any{"id": n.ID, "name": n.Name, "type": n.Type})
	if err != nil {
		return fmt.Errorf("graph: add phase node: %w", err)
	}
	return nil
}

// FindPhaseNodeByName looks up a phase node by its (unique) name.
func (g *GraphStore) FindPhaseNodeByName(ctx context.Context, name string) (PhaseNode, bool, error) {
	sess := g.session(ctx)
	defer sess.Close(ctx)

	result, err := sess.Run(ctx, `MATCH (p:Phase {name: $name}) RETURN p LIMIT 1`,
		map[string]any{"name": name})
	if err != nil {
		return PhaseNode{}, false, fmt.Errorf("graph: find phase node: %w", err)
	}
	if !result.Next(ctx) {
		return PhaseNode{}, false, nil
	}
	node, _, err := neo4j.GetRecordValue[dbtype.Node](result.Record(), "p")
	if err != nil {
		return PhaseNode{}, false, fmt.Errorf("graph: find phase node: %w", err)
	}
	return phaseNodeFromProps(node.Props), true, nil
}

// AddPhaseEdge merges a phase edge between two entity nodes, keyed by
// fact_id so a reconciled fact can be located and removed later.
func (g *GraphStore) AddPhaseEdge(ctx context.Context, e PhaseEdge) error {
	sess := g.session(ctx)
	defer sess.Close(ctx)

	_, err := sess.Run(ctx,
		`MATCH (a:Phase {id: $source}), (b:Phase {id: $target})
		 MERGE (a)-[r:PHASE_EDGE {fact_id: $fact_id}]->(b)
		 SET r.ts = $ts, r.relation_type = $relation_type, r.user_id = $user_id`,
		map[string]any{
			"source":        e.Source,
			"target":        e.Target,
			"fact_id":       e.FactID,
			"ts":            e.Timestamp.UTC().Format(time.RFC3339Nano),
			"relation_type": e.RelationType,
			"user_id":       e.UserID,
		})
	if err != nil {
		return fmt.Errorf("graph: add phase edge: %w", err)
	}
	return nil
}

// AddPassageEdge merges a passage edge linking a phase node to the passage
// (summary) node it was mentioned in.
func (g *GraphStore) AddPassageEdge(ctx context.Context, e PassageEdge) error {
	sess := g.session(ctx)
	defer sess.Close(ctx)

	_, err := sess.Run(ctx,
		`MATCH (a:Phase {id: $source}), (b:Passage {id: $target})
		 MERGE (a)-[r:PASSAGE_EDGE {summary_id: $summary_id}]->(b)
		 SET r.ts = $ts, r.relation_type = $relation_type, r.user_id = $user_id`,
		map[string]any{
			"source":        e.Source,
			"target":        e.Target,
			"summary_id":    e.SummaryID,
			"ts":            e.Timestamp.UTC().Format(time.RFC3339Nano),
			"relation_type": e.RelationType,
			"user_id":       e.UserID,
		})
	if err != nil {
		return fmt.Errorf("graph: add passage edge: %w", err)
	}
	return nil
}

// GetPhaseNodesByFactID returns the two phase nodes joined by the phase
// edge carrying fact_id.
func (g *GraphStore) GetPhaseNodesByFactID(ctx context.Context, factID string) (source, target PhaseNode, err error) {
	sess := g.session(ctx)
	defer sess.Close(ctx)

	result, err := sess.Run(ctx,
		`MATCH (a:Phase)-[r:PHASE_EDGE {fact_id: $fact_id}]->(b:Phase) RETURN a, b LIMIT 1`,
		map[string]any{"fact_id": factID})
	if err != nil {
		return PhaseNode{}, PhaseNode{}, fmt.Errorf("graph: get phase nodes by fact id: %w", err)
	}
	if !result.Next(ctx) {
		return PhaseNode{}, PhaseNode{}, fmt.Errorf("graph: no phase edge for fact %q", factID)
	}
	a, _, err := neo4j.GetRecordValue[dbtype.Node](result.Record(), "a")
	if err != nil {
		return PhaseNode{}, PhaseNode{}, fmt.Errorf("graph: get phase nodes by fact id: %w", err)
	}
	b, _, err := neo4j.GetRecordValue[dbtype.Node](result.Record(), "b")
	if err != nil {
		return PhaseNode{}, PhaseNode{}, fmt.Errorf("graph: get phase nodes by fact id: %w", err)
	}
	return phaseNodeFromProps(a.Props), phaseNodeFromProps(b.Props), nil
}

// DeletePhaseEdgeByFactID removes the phase edge carrying fact_id, used
// when a conflicting fact supersedes it.
func (g *GraphStore) DeletePhaseEdgeByFactID(ctx context.Context, factID string) error {
	sess := g.session(ctx)
	defer sess.Close(ctx)

	_, err := sess.Run(ctx,
		`MATCH ()-[r:PHASE_EDGE {fact_id: $fact_id}]->() DELETE r`,
		map[string]any{"fact_id": factID})
	if err != nil {
		return fmt.Errorf("graph: delete phase edge: %w", err)
	}
	return nil
}

// GraphResult is the node/edge set returned by GetGraph, mirroring the
// shape the Query API's get_graph call exposes to callers.
type GraphResult struct {
	Nodes []GraphResultNode `json:"nodes"`
	Edges []GraphResultEdge `json:"edges"`
}

// GraphResultNode is one node in a GraphResult, tagged with its kind.
type GraphResultNode struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Type string `json:"type,omitempty"`
}

// GraphResultEdge is one edge in a GraphResult, tagged with its kind.
type GraphResultEdge struct {
	Kind         string `json:"kind"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	RelationType string `json:"relation_type"`
}

// GetGraph returns every node and edge scoped to userID, for the Query
// API's get_graph operation and for ad-hoc inspection.
func (g *GraphStore) GetGraph(ctx context.Context, userID string) (GraphResult, error) {
	sess := g.session(ctx)
	defer sess.Close(ctx)

	var out GraphResult

	phaseRes, err := sess.Run(ctx,
		`MATCH (p:Phase)-[:PHASE_EDGE|PASSAGE_EDGE {user_id: $user_id}]-() RETURN DISTINCT p`,
		map[string]any{"user_id": userID})
	if err != nil {
		return out, fmt.Errorf("graph: get graph phase nodes: %w", err)
	}
	for phaseRes.Next(ctx) {
		node, _, err := neo4j.GetRecordValue[dbtype.Node](phaseRes.Record(), "p")
		if err != nil {
			return out, fmt.Errorf("graph: get graph phase nodes: %w", err)
		}
		ph := phaseNodeFromProps(node.Props)
		out.Nodes = append(out.Nodes, GraphResultNode{Kind: PhaseKind, ID: ph.ID, Name: ph.Name, Type: ph.Type})
	}

	passRes, err := sess.Run(ctx,
		`MATCH (s:Passage {user_id: $user_id}) RETURN s`,
		map[string]any{"user_id": userID})
	if err != nil {
		return out, fmt.Errorf("graph: get graph passage nodes: %w", err)
	}
	for passRes.Next(ctx) {
		node, _, err := neo4j.GetRecordValue[dbtype.Node](passRes.Record(), "s")
		if err != nil {
			return out, fmt.Errorf("graph: get graph passage nodes: %w", err)
		}
		out.Nodes = append(out.Nodes, GraphResultNode{Kind: PassageKind, ID: strProp(node.Props, "id")})
	}

	edgeRes, err := sess.Run(ctx,
		`MATCH (a)-[r:PHASE_EDGE|PASSAGE_EDGE {user_id: $user_id}]->(b) RETURN type(r) AS kind, a.id AS source, b.id AS target, r.relation_type AS relation_type`,
		map[string]any{"user_id": userID})
	if err != nil {
		return out, fmt.Errorf("graph: get graph edges: %w", err)
	}
	for edgeRes.Next(ctx) {
		rec := edgeRes.Record()
		kind, _ := rec.Get("kind")
		source, _ := rec.Get("source")
		target, _ := rec.Get("target")
		relationType, _ := rec.Get("relation_type")
		out.Edges = append(out.Edges, GraphResultEdge{
			Kind:         fmt.Sprint(kind),
			Source:       fmt.Sprint(source),
			Target:       fmt.Sprint(target),
			RelationType: fmt.Sprint(relationType),
		})
	}
	return out, nil
}

const (
	PhaseKind   = "phase"
	PassageKind = "passage"
)

func phaseNodeFromProps(props map[string]any) PhaseNode {
	return PhaseNode{
		ID:   strProp(props, "id"),
		Name: strProp(props, "name"),
		Type: strProp(props, "type"),
	}
}

func strProp(props map[string]any, key string) string {
	if v, ok := props[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
