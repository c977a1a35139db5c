// Package semantic implements the Vector Index (C2): a pure ID-mapped
// dense-vector index backed by Qdrant. It never stores text or metadata —
// that is the Document Store's job — only {id, vector} pairs and the raw
// L2 distances a search returns.
package semantic

// VectorRecord is a single vector to upsert into the index, keyed by the
// same internal id the Document Store uses for the corresponding row.
type VectorRecord struct {
	ID        int64
	Embedding []float32
}

// SearchHit is a single raw hit from the index: an internal id and its L2
// distance from the query vector. Distance-to-similarity conversion is the
// Vector DB's responsibility, not the index's.
type SearchHit struct {
	ID       int64
	Distance float32
}
