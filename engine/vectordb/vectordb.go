// Package vectordb composes the Document Store (C1) and Vector Index (C2)
// into the Vector DB (C3): similarity search over text, with metadata
// filtering and a single, consistent L2-distance-to-similarity rule.
package vectordb

import (
	"context"
	"fmt"

	"github.com/AstrBotDevs/atri/engine/document"
	"github.com/AstrBotDevs/atri/engine/semantic"
	"github.com/AstrBotDevs/atri/pkg/embedding"
)

// defaultFetchK widens the index search when a metadata filter is in play,
// since the filter is applied after the index returns its nearest
// neighbours (the index itself carries no payload to filter on). Fixed
// regardless of k: a wider net catches enough post-filter survivors without
// scaling unboundedly for large k.
const defaultFetchK = 20

// Result is one ranked hit: a similarity score in [0, 1] and the document
// it was computed against.
type Result struct {
	Similarity float64
	Doc        document.Row
}

// DB composes a document.Store and a semantic.VectorIndex into one
// partition's worth of searchable text.
type DB struct {
	partition document.Partition
	docs      *document.Store
	index     *semantic.VectorIndex
	embedder  embedding.Provider
}

// New creates a Vector DB over one document-store partition and its
// matching vector index.
func New(partition document.Partition, docs *document.Store, index *semantic.VectorIndex, embedder embedding.Provider) *DB {
	return &DB{partition: partition, docs: docs, index: index, embedder: embedder}
}

// Insert embeds content, writes it to the Document Store to obtain an
// internal id, then writes that id and its vector to the Vector Index. A
// vector whose length differs from the embedder's Dimension is rejected
// before anything is written.
func (db *DB) Insert(ctx context.Context, docID, content string, meta document.Metadata) error {
	vec, err := db.embedder.Embed(ctx, content)
	if err != nil {
		return fmt.Errorf("vectordb: embed: %w", err)
	}
	if want := db.embedder.Dimension(); len(vec) != want {
		return fmt.Errorf("vectordb: embed: got %d dimensions, want %d", len(vec), want)
	}

	internalID, err := db.docs.Insert(ctx, db.partition, docID, content, meta)
	if err != nil {
		return fmt.Errorf("vectordb: insert document: %w", err)
	}

	if err := db.index.Insert(ctx, []semantic.VectorRecord{{ID: internalID, Embedding: vec}}); err != nil {
		return fmt.Errorf("vectordb: insert vector: %w", err)
	}
	return nil
}

// Retrieve embeds query, searches the index, joins hits back to their
// documents (optionally filtered by metadata), and returns the top k
// ranked by similarity. Returns an empty slice, never an error, when
// nothing matches — including when k is 0 or the index is empty.
func (db *DB) Retrieve(ctx context.Context, query string, k int, metadataFilters map[string]string) ([]Result, error) {
	if k <= 0 {
		return nil, nil
	}

	vec, err := db.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vectordb: embed query: %w", err)
	}

	searchK := k
	if len(metadataFilters) > 0 {
		searchK = defaultFetchK
	}

	hits, err := db.index.Search(ctx, vec, searchK)
	if err != nil {
		return nil, fmt.Errorf("vectordb: search: %w", err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}

	rows, err := db.docs.GetDocuments(ctx, db.partition, metadataFilters, ids)
	if err != nil {
		return nil, fmt.Errorf("vectordb: get documents: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	rowByID := make(map[int64]document.Row, len(rows))
	for _, r := range rows {
		rowByID[r.InternalID] = r
	}

	similarities := l2ToSimilarity(hits)

	results := make([]Result, 0, len(hits))
	for i, h := range hits {
		row, ok := rowByID[h.ID]
		if !ok {
			continue
		}
		results = append(results, Result{Similarity: similarities[i], Doc: row})
	}
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Delete removes a document and its matching vector.
func (db *DB) Delete(ctx context.Context, docID string) error {
	row, err := db.docs.GetByDocID(ctx, db.partition, docID)
	if err != nil {
		return fmt.Errorf("vectordb: get document: %w", err)
	}
	if err := db.index.Delete(ctx, []int64{row.InternalID}); err != nil {
		return fmt.Errorf("vectordb: delete vector: %w", err)
	}
	if err := db.docs.DeleteByInternalID(ctx, db.partition, row.InternalID); err != nil {
		return fmt.Errorf("vectordb: delete document: %w", err)
	}
	return nil
}

// Get fetches a document by its caller-facing doc_id without touching the
// index, for callers that already have a doc_id from elsewhere (e.g. a
// fact's metadata pointing back at the summary it was extracted from).
func (db *DB) Get(ctx context.Context, docID string) (document.Row, error) {
	return db.docs.GetByDocID(ctx, db.partition, docID)
}

// UpdateText rewrites a document's text and re-embeds it, overwriting the
// matching vector in place — used when a superseded summary is rewritten to
// reflect a conflicting fact.
func (db *DB) UpdateText(ctx context.Context, docID, text string) error {
	row, err := db.docs.GetByDocID(ctx, db.partition, docID)
	if err != nil {
		return fmt.Errorf("vectordb: get document: %w", err)
	}
	if err := db.docs.UpdateTextByDocID(ctx, db.partition, docID, text); err != nil {
		return fmt.Errorf("vectordb: update text: %w", err)
	}
	vec, err := db.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("vectordb: embed: %w", err)
	}
	if err := db.index.Insert(ctx, []semantic.VectorRecord{{ID: row.InternalID, Embedding: vec}}); err != nil {
		return fmt.Errorf("vectordb: update vector: %w", err)
	}
	return nil
}

// ListUserIDs returns every distinct user_id with at least one document in
// this partition.
func (db *DB) ListUserIDs(ctx context.Context) ([]string, error) {
	ids, err := db.docs.GetUserIDs(ctx, db.partition)
	if err != nil {
		return nil, fmt.Errorf("vectordb: list user ids: %w", err)
	}
	return ids, nil
}

// l2ToSimilarity converts a batch of raw L2 distances into similarities in
// [0, 1] via within-batch min-max normalization, then 1-norm. This is the
// single normalization rule used everywhere in this package — unlike the
// reference implementation, which applied it two different (and
// inconsistent) ways depending on call site.
func l2ToSimilarity(hits []semantic.SearchHit) []float64 {
	if len(hits) == 0 {
		return nil
	}
	min, max := hits[0].Distance, hits[0].Distance
	for _, h := range hits {
		if h.Distance < min {
			min = h.Distance
		}
		if h.Distance > max {
			max = h.Distance
		}
	}

	out := make([]float64, len(hits))
	if max == min {
		return out // every hit equidistant: no signal to rank by, similarity is 0 for all
	}
	span := float64(max - min)
	for i, h := range hits {
		norm := float64(h.Distance-min) / span
		out[i] = 1.0 - norm
	}
	return out
}
