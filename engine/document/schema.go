package document

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ddlDocuments is the Document Store's sole table. One table serves both
// partitions (facts, summaries) distinguished by the partition column,
// since Postgres is a shared server rather than the reference
// implementation's one-sqlite-file-per-partition layout.
const ddlDocuments = `
CREATE TABLE IF NOT EXISTS documents (
    id          BIGSERIAL PRIMARY KEY,
    partition   TEXT        NOT NULL,
    doc_id      TEXT        NOT NULL,
    text        TEXT        NOT NULL,
    metadata    JSONB       NOT NULL DEFAULT '{}',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (partition, doc_id)
);

CREATE INDEX IF NOT EXISTS idx_documents_partition ON documents (partition);
CREATE INDEX IF NOT EXISTS idx_documents_metadata_user_id
    ON documents ((metadata->>'user_id'));
`

// Migrate creates the documents table if it doesn't exist. Idempotent and
// safe to call on every application start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddlDocuments); err != nil {
		return fmt.Errorf("document migrate: %w", err)
	}
	return nil
}
