package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AstrBotDevs/atri/engine/domain"
)

// Store is the PostgreSQL-backed Document Store. All operations are safe
// for concurrent use via the underlying pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to PostgreSQL at dsn and runs Migrate, following the
// ParseConfig -> NewWithConfig -> Ping -> Migrate construction order this
// package is grounded on.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("document store: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("document store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("document store: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("document store: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close releases all connections held by the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Insert writes a new document and returns its internal id, which the
// caller then uses as the matching Vector Index point id.
func (s *Store) Insert(ctx context.Context, partition Partition, docID, text string, meta Metadata) (int64, error) {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return 0, fmt.Errorf("document insert: marshal metadata: %w", err)
	}

	var internalID int64
	err = s.pool.QueryRow(ctx,
		`INSERT INTO documents (partition, doc_id, text, metadata) VALUES ($1, $2, $3, $4) RETURNING id`,
		string(partition), docID, text, metaJSON,
	).Scan(&internalID)
	if err != nil {
		return 0, fmt.Errorf("document insert: %w", err)
	}
	return internalID, nil
}

// GetByInternalID fetches a document by its internal id.
func (s *Store) GetByInternalID(ctx context.Context, partition Partition, internalID int64) (Row, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, doc_id, text, metadata, created_at, updated_at FROM documents WHERE partition = $1 AND id = $2`,
		string(partition), internalID)
	return scanRow(row)
}

// GetByDocID fetches a document by its caller-facing doc_id.
func (s *Store) GetByDocID(ctx context.Context, partition Partition, docID string) (Row, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, doc_id, text, metadata, created_at, updated_at FROM documents WHERE partition = $1 AND doc_id = $2`,
		string(partition), docID)
	return scanRow(row)
}

// allowedMetadataFilterKeys whitelists the metadata keys GetDocuments will
// translate into a metadata->>'key' = $n clause. Metadata's json tags are
// the source of truth for what keys actually exist in a document's
// metadata; an unrecognized key is rejected rather than interpolated.
var allowedMetadataFilterKeys = map[string]bool{
	"user_id":    true,
	"group_id":   true,
	"username":   true,
	"summary_id": true,
}

// GetDocuments fetches documents matching metadataFilters, optionally
// restricted to a set of internal ids (used to join Vector Index search
// hits back to their text). Equality filters translate to
// metadata->>'key' = $n clauses; keys are checked against
// allowedMetadataFilterKeys before being interpolated into the query, since
// only the value side of a filter can be parameterized.
func (s *Store) GetDocuments(ctx context.Context, partition Partition, metadataFilters map[string]string, ids []int64) ([]Row, error) {
	clauses := []string{"partition = $1"}
	args := []any{string(partition)}
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	for k, v := range metadataFilters {
		if !allowedMetadataFilterKeys[k] {
			return nil, fmt.Errorf("document get documents: %w: unsupported metadata filter key %q", domain.ErrStorage, k)
		}
		clauses = append(clauses, fmt.Sprintf("metadata->>'%s' = %s", k, next(v)))
	}
	if len(ids) > 0 {
		clauses = append(clauses, fmt.Sprintf("id = ANY(%s)", next(ids)))
	}

	query := fmt.Sprintf(
		`SELECT id, doc_id, text, metadata, created_at, updated_at FROM documents WHERE %s`,
		strings.Join(clauses, " AND "))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("document get documents: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpdateTextByDocID overwrites the text of an existing document, used when
// a conflicting fact forces a summary rewrite.
func (s *Store) UpdateTextByDocID(ctx context.Context, partition Partition, docID, text string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE documents SET text = $1, updated_at = now() WHERE partition = $2 AND doc_id = $3`,
		text, string(partition), docID)
	if err != nil {
		return fmt.Errorf("document update text: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document update text: %w: doc_id=%s", domain.ErrNotFound, docID)
	}
	return nil
}

// DeleteByInternalID removes a document by internal id.
func (s *Store) DeleteByInternalID(ctx context.Context, partition Partition, internalID int64) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM documents WHERE partition = $1 AND id = $2`,
		string(partition), internalID)
	if err != nil {
		return fmt.Errorf("document delete: %w", err)
	}
	return nil
}

// GetUserIDs returns every distinct user_id that has at least one document
// in the given partition.
func (s *Store) GetUserIDs(ctx context.Context, partition Partition) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT metadata->>'user_id' FROM documents WHERE partition = $1 AND metadata->>'user_id' IS NOT NULL`,
		string(partition))
	if err != nil {
		return nil, fmt.Errorf("document get user ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(row scanner) (Row, error) {
	var r Row
	var metaJSON []byte
	err := row.Scan(&r.InternalID, &r.DocID, &r.Text, &metaJSON, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Row{}, fmt.Errorf("document: %w", domain.ErrNotFound)
		}
		return Row{}, fmt.Errorf("document scan: %w", err)
	}
	if err := json.Unmarshal(metaJSON, &r.Metadata); err != nil {
		return Row{}, fmt.Errorf("document scan: unmarshal metadata: %w", err)
	}
	return r, nil
}
