// Package pgvector implements driven.VectorIndex on PostgreSQL with the
// pgvector extension.
package pgvector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/neuroquery/internal/adapters/driven/vector"
	"github.com/custodia-labs/neuroquery/internal/core/domain"
	"github.com/custodia-labs/neuroquery/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

var collectionName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]{0,50}$`)

// Index stores one collection in its own table, {collection}_chunks.
type Index struct {
	pool       *pgxpool.Pool
	collection string
	table      string
	dimension  int
	ownsPool   bool
}

// Open connects to dsn and bootstraps the extension and collection table.
func Open(ctx context.Context, dsn, collection string, dimension int) (*Index, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%w: pgvector requires vector_store.dsn", domain.ErrValidation)
	}

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: pgvector: parsing dsn: %w", domain.ErrValidation, err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("%w: pgvector: connecting: %w", domain.ErrIndex, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: pgvector: ping: %w", domain.ErrIndex, err)
	}

	idx, err := New(ctx, pool, collection, dimension)
	if err != nil {
		pool.Close()
		return nil, err
	}
	idx.ownsPool = true
	return idx, nil
}

// New bootstraps the collection on an existing pool. Close leaves the pool open.
func New(ctx context.Context, pool *pgxpool.Pool, collection string, dimension int) (*Index, error) {
	if !collectionName.MatchString(collection) {
		return nil, fmt.Errorf("%w: invalid collection name %q", domain.ErrValidation, collection)
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive", domain.ErrValidation)
	}

	idx := &Index{
		pool:       pool,
		collection: collection,
		table:      strings.ToLower(collection) + "_chunks",
		dimension:  dimension,
	}
	if err := idx.bootstrap(ctx); err != nil {
		return nil, err
	}
	return idx, nil
}

func (i *Index) bootstrap(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS neuroquery_collections (
			name       TEXT PRIMARY KEY,
			dimension  INTEGER NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id           TEXT PRIMARY KEY,
			file_id      TEXT NOT NULL,
			source       TEXT NOT NULL DEFAULT '',
			chunk_index  INTEGER NOT NULL,
			total_chunks INTEGER NOT NULL,
			content      TEXT NOT NULL,
			metadata     JSONB NOT NULL DEFAULT '{}',
			embedding    vector(%d) NOT NULL
		)`, i.table, i.dimension),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_file_idx ON %s (file_id)`, i.table, i.table),
	}
	for _, stmt := range stmts {
		if _, err := i.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%w: pgvector: bootstrap: %w", domain.ErrIndex, err)
		}
	}

	var existing int
	err := i.pool.QueryRow(ctx,
		`SELECT dimension FROM neuroquery_collections WHERE name = $1`, i.collection,
	).Scan(&existing)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		if _, err := i.pool.Exec(ctx,
			`INSERT INTO neuroquery_collections (name, dimension) VALUES ($1, $2)
			 ON CONFLICT (name) DO NOTHING`, i.collection, i.dimension); err != nil {
			return fmt.Errorf("%w: pgvector: registering collection: %w", domain.ErrIndex, err)
		}
	case err != nil:
		return fmt.Errorf("%w: pgvector: reading collection: %w", domain.ErrIndex, err)
	case existing != i.dimension:
		return fmt.Errorf("%w: collection %q was created with %d dimensions, embedder produces %d",
			domain.ErrDimensionMismatch, i.collection, existing, i.dimension)
	}
	return nil
}

// Add upserts chunks in one batch and purges rows past each file's new chunk count.
func (i *Index) Add(ctx context.Context, chunks []domain.Chunk, embeddings [][]float32) error {
	records, err := vector.Prepare(chunks, embeddings, i.dimension)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	tx, err := i.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: pgvector: beginning transaction: %w", domain.ErrIndex, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	upsert := fmt.Sprintf(`
		INSERT INTO %s (id, file_id, source, chunk_index, total_chunks, content, metadata, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			file_id = EXCLUDED.file_id,
			source = EXCLUDED.source,
			chunk_index = EXCLUDED.chunk_index,
			total_chunks = EXCLUDED.total_chunks,
			content = EXCLUDED.content,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding`, i.table)

	batch := &pgx.Batch{}
	for _, r := range records {
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("%w: pgvector: encoding metadata: %w", domain.ErrIndex, err)
		}
		emb := pgvector.NewVector(r.Embedding)
		batch.Queue(upsert, r.ID, r.FileID, r.Source, r.ChunkIndex, r.TotalChunks,
			r.Content, string(meta), &emb)
	}
	purge := fmt.Sprintf(`DELETE FROM %s WHERE file_id = $1 AND chunk_index >= $2`, i.table)
	for fileID, total := range vector.StaleTails(records) {
		batch.Queue(purge, fileID, total)
	}

	br := tx.SendBatch(ctx, batch)
	for n := 0; n < batch.Len(); n++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("%w: pgvector: writing chunks: %w", domain.ErrIndex, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("%w: pgvector: writing chunks: %w", domain.ErrIndex, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: pgvector: committing: %w", domain.ErrIndex, err)
	}
	return nil
}

// Search orders by cosine distance and reports 1 - distance as the score.
func (i *Index) Search(
	ctx context.Context, query []float32, topK int, filter domain.SearchFilter,
) ([]domain.RetrievedChunk, error) {
	if err := vector.ValidateQuery(query, topK, i.dimension); err != nil {
		return nil, err
	}

	qv := pgvector.NewVector(query)
	args := []any{&qv, topK}
	where := ""
	if len(filter) > 0 {
		f, err := json.Marshal(filter)
		if err != nil {
			return nil, fmt.Errorf("%w: pgvector: encoding filter: %w", domain.ErrValidation, err)
		}
		where = "WHERE metadata @> $3::jsonb"
		args = append(args, string(f))
	}

	rows, err := i.pool.Query(ctx, fmt.Sprintf(`
		SELECT id, content, metadata, 1 - (embedding <=> $1) AS score
		FROM %s %s
		ORDER BY embedding <=> $1, file_id, chunk_index
		LIMIT $2`, i.table, where), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: pgvector: searching: %w", domain.ErrIndex, err)
	}
	defer rows.Close()

	results := []domain.RetrievedChunk{}
	for rows.Next() {
		var (
			r    domain.RetrievedChunk
			meta []byte
		)
		if err := rows.Scan(&r.ID, &r.Content, &meta, &r.Score); err != nil {
			return nil, fmt.Errorf("%w: pgvector: scanning: %w", domain.ErrIndex, err)
		}
		if err := json.Unmarshal(meta, &r.Metadata); err != nil {
			return nil, fmt.Errorf("%w: pgvector: decoding metadata of %s: %w", domain.ErrIndex, r.ID, err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: pgvector: iterating: %w", domain.ErrIndex, err)
	}
	return results, nil
}

// DeleteByFileID removes every chunk of a document.
func (i *Index) DeleteByFileID(ctx context.Context, fileID string) (int, error) {
	tag, err := i.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE file_id = $1`, i.table), fileID)
	if err != nil {
		return 0, fmt.Errorf("%w: pgvector: deleting chunks: %w", domain.ErrIndex, err)
	}
	return int(tag.RowsAffected()), nil
}

// Stats counts distinct documents and chunks.
func (i *Index) Stats(ctx context.Context) (domain.IndexStats, error) {
	var stats domain.IndexStats
	err := i.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT COUNT(DISTINCT file_id), COUNT(*) FROM %s`, i.table),
	).Scan(&stats.DocumentCount, &stats.ChunkCount)
	if err != nil {
		return domain.IndexStats{}, fmt.Errorf("%w: pgvector: counting chunks: %w", domain.ErrIndex, err)
	}
	return stats, nil
}

// Drop removes the collection table and its registration.
func (i *Index) Drop(ctx context.Context) error {
	if _, err := i.pool.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, i.table)); err != nil {
		return fmt.Errorf("%w: pgvector: dropping collection: %w", domain.ErrIndex, err)
	}
	if _, err := i.pool.Exec(ctx,
		`DELETE FROM neuroquery_collections WHERE name = $1`, i.collection); err != nil {
		return fmt.Errorf("%w: pgvector: dropping collection: %w", domain.ErrIndex, err)
	}
	return nil
}

// Close closes the pool if Open created it.
func (i *Index) Close() error {
	if i.ownsPool {
		i.pool.Close()
	}
	return nil
}
