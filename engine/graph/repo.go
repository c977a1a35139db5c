package graph

import (
	"context"
	"time"

	"github.com/AstrBotDevs/atri/pkg/repo"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// newPassageNodeRepo builds a generic read/delete repository over Passage
// nodes. Writes still go through GraphStore's bespoke MERGE cypher (§4.4's
// idempotent-write requirement doesn't map onto the generic repo's plain
// CREATE), but read-by-id and delete are pure lookups this package reuses
// rather than reimplements.
func newPassageNodeRepo(driver neo4j.DriverWithContext) *repo.Neo4jRepo[PassageNode, string] {
	return repo.NewNeo4jRepo[PassageNode, string](
		driver,
		"Passage",
		passageNodeToMap,
		passageNodeFromRecord,
	)
}

func passageNodeToMap(n PassageNode) map[string]any {
	return map[string]any{
		"id":      n.ID,
		"ts":      n.Timestamp.UTC().Format(time.RFC3339Nano),
		"user_id": n.UserID,
	}
}

func passageNodeFromRecord(rec *neo4j.Record) (PassageNode, error) {
	node, _, err := neo4j.GetRecordValue[dbtype.Node](rec, "n")
	if err != nil {
		return PassageNode{}, err
	}
	props := node.Props
	ts, _ := time.Parse(time.RFC3339Nano, strProp(props, "ts"))
	return PassageNode{
		ID:        strProp(props, "id"),
		Timestamp: ts,
		UserID:    strProp(props, "user_id"),
	}, nil
}

// GetPassageNode fetches a single passage node by id via the generic
// repository.
func (g *GraphStore) GetPassageNode(ctx context.Context, id string) (PassageNode, error) {
	return g.passages.Get(ctx, id)
}

// DeletePassageNode deletes a passage node by id via the generic
// repository.
func (g *GraphStore) DeletePassageNode(ctx context.Context, id string) error {
	return g.passages.Delete(ctx, id)
}
