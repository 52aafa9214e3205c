// Package sqlite implements driven.VectorIndex on a single SQLite file.
//
// Embeddings are stored as little-endian float32 blobs next to their chunk
// text and metadata. Search is an exact brute-force cosine scan over the
// collection, which is adequate for the document counts a single-user
// knowledge base reaches.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/neuroquery/internal/adapters/driven/vector"
	"github.com/custodia-labs/neuroquery/internal/core/domain"
	"github.com/custodia-labs/neuroquery/internal/core/ports/driven"
)

// DatabaseFile is the index file name inside the vector store directory.
const DatabaseFile = "vectors.db"

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS collections (
    name       TEXT PRIMARY KEY,
    dimension  INTEGER NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS chunks (
    collection   TEXT NOT NULL REFERENCES collections(name) ON DELETE CASCADE,
    id           TEXT NOT NULL,
    file_id      TEXT NOT NULL,
    source       TEXT NOT NULL DEFAULT '',
    chunk_index  INTEGER NOT NULL,
    total_chunks INTEGER NOT NULL,
    content      TEXT NOT NULL,
    metadata     TEXT NOT NULL DEFAULT '{}',
    embedding    BLOB NOT NULL,
    norm         REAL NOT NULL,
    PRIMARY KEY (collection, id)
);

CREATE INDEX IF NOT EXISTS idx_chunks_file ON chunks(collection, file_id);
CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(collection, source);
`

// Index is a persistent cosine-similarity index over one collection.
type Index struct {
	// mu serialises writers and lets searches share the read side.
	mu         sync.RWMutex
	db         *sql.DB
	path       string
	collection string
	dimension  int
}

// Open opens or creates the collection inside dir/vectors.db.
// Reopening an existing collection with a different dimension fails with
// domain.ErrDimensionMismatch.
func Open(dir, collection string, dimension int) (*Index, error) {
	if collection == "" {
		return nil, fmt.Errorf("%w: collection name is required", domain.ErrValidation)
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive", domain.ErrValidation)
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("%w: sqlite: creating %s: %w", domain.ErrIndex, dir, err)
	}

	path := filepath.Join(dir, DatabaseFile)
	db, err := sql.Open("sqlite",
		path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("%w: sqlite: opening %s: %w", domain.ErrIndex, path, err)
	}

	idx := &Index{db: db, path: path, collection: collection, dimension: dimension}
	if err := idx.bootstrap(); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

func (i *Index) bootstrap() error {
	if _, err := i.db.Exec(schema); err != nil {
		return fmt.Errorf("%w: sqlite: creating schema: %w", domain.ErrIndex, err)
	}

	var existing int
	err := i.db.QueryRow(`SELECT dimension FROM collections WHERE name = ?`, i.collection).Scan(&existing)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := i.db.Exec(`INSERT INTO collections (name, dimension) VALUES (?, ?)`,
			i.collection, i.dimension); err != nil {
			return fmt.Errorf("%w: sqlite: creating collection: %w", domain.ErrIndex, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("%w: sqlite: reading collection: %w", domain.ErrIndex, err)
	case existing != i.dimension:
		return fmt.Errorf("%w: collection %q was created with %d dimensions, embedder produces %d",
			domain.ErrDimensionMismatch, i.collection, existing, i.dimension)
	}
	return nil
}

// Path returns the database file path.
func (i *Index) Path() string {
	return i.path
}

// Collection returns the collection name.
func (i *Index) Collection() string {
	return i.collection
}

// Add upserts chunks and purges rows past each file's new chunk count.
func (i *Index) Add(ctx context.Context, chunks []domain.Chunk, embeddings [][]float32) error {
	records, err := vector.Prepare(chunks, embeddings, i.dimension)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: sqlite: beginning transaction: %w", domain.ErrIndex, err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (collection, id, file_id, source, chunk_index, total_chunks,
			content, metadata, embedding, norm)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			file_id = excluded.file_id,
			source = excluded.source,
			chunk_index = excluded.chunk_index,
			total_chunks = excluded.total_chunks,
			content = excluded.content,
			metadata = excluded.metadata,
			embedding = excluded.embedding,
			norm = excluded.norm
	`)
	if err != nil {
		return fmt.Errorf("%w: sqlite: preparing insert: %w", domain.ErrIndex, err)
	}
	defer stmt.Close()

	for _, r := range records {
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("%w: sqlite: encoding metadata: %w", domain.ErrIndex, err)
		}
		if _, err := stmt.ExecContext(ctx, i.collection, r.ID, r.FileID, r.Source,
			r.ChunkIndex, r.TotalChunks, r.Content, string(meta),
			vector.EncodeEmbedding(r.Embedding), vector.Norm(r.Embedding)); err != nil {
			return fmt.Errorf("%w: sqlite: writing chunk %s: %w", domain.ErrIndex, r.ID, err)
		}
	}

	for fileID, total := range vector.StaleTails(records) {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM chunks WHERE collection = ? AND file_id = ? AND chunk_index >= ?`,
			i.collection, fileID, total); err != nil {
			return fmt.Errorf("%w: sqlite: purging stale chunks: %w", domain.ErrIndex, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: sqlite: committing: %w", domain.ErrIndex, err)
	}
	return nil
}

// Search scans the collection and returns the topK most similar chunks.
// file_id and source filters are pushed into SQL; other keys are matched
// against the stored metadata.
func (i *Index) Search(
	ctx context.Context, query []float32, topK int, filter domain.SearchFilter,
) ([]domain.RetrievedChunk, error) {
	if err := vector.ValidateQuery(query, topK, i.dimension); err != nil {
		return nil, err
	}

	where := []string{"collection = ?"}
	args := []any{i.collection}
	rest := domain.SearchFilter{}
	for k, v := range filter {
		switch k {
		case domain.MetaFileID:
			where = append(where, "file_id = ?")
			args = append(args, v)
		case domain.MetaSource:
			where = append(where, "source = ?")
			args = append(args, v)
		default:
			rest[k] = v
		}
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	rows, err := i.db.QueryContext(ctx,
		`SELECT id, content, metadata, embedding, norm FROM chunks WHERE `+
			strings.Join(where, " AND ")+` ORDER BY file_id, chunk_index`, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: sqlite: querying chunks: %w", domain.ErrIndex, err)
	}
	defer rows.Close()

	queryNorm := vector.Norm(query)
	var ranker vector.Ranker
	for rows.Next() {
		var (
			id, content, metaJSON string
			blob                  []byte
			norm                  float64
		)
		if err := rows.Scan(&id, &content, &metaJSON, &blob, &norm); err != nil {
			return nil, fmt.Errorf("%w: sqlite: scanning chunk: %w", domain.ErrIndex, err)
		}

		meta := map[string]string{}
		if err := json.Unmarshal([]byte(metaJSON), &meta); err != nil {
			return nil, fmt.Errorf("%w: sqlite: decoding metadata of %s: %w", domain.ErrIndex, id, err)
		}
		if !vector.Matches(meta, rest) {
			continue
		}

		emb, err := vector.DecodeEmbedding(blob)
		if err != nil {
			return nil, fmt.Errorf("%w: sqlite: chunk %s: %w", domain.ErrIndex, id, err)
		}

		ranker.Push(domain.RetrievedChunk{
			ID:       id,
			Content:  content,
			Metadata: meta,
			Score:    vector.Cosine(query, emb, queryNorm, norm),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: sqlite: iterating chunks: %w", domain.ErrIndex, err)
	}

	return ranker.Top(topK), nil
}

// DeleteByFileID removes every chunk of a document.
func (i *Index) DeleteByFileID(ctx context.Context, fileID string) (int, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	res, err := i.db.ExecContext(ctx,
		`DELETE FROM chunks WHERE collection = ? AND file_id = ?`, i.collection, fileID)
	if err != nil {
		return 0, fmt.Errorf("%w: sqlite: deleting chunks: %w", domain.ErrIndex, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: sqlite: deleting chunks: %w", domain.ErrIndex, err)
	}
	return int(n), nil
}

// Stats counts distinct documents and chunks in the collection.
func (i *Index) Stats(ctx context.Context) (domain.IndexStats, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	var stats domain.IndexStats
	err := i.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT file_id), COUNT(*) FROM chunks WHERE collection = ?`, i.collection,
	).Scan(&stats.DocumentCount, &stats.ChunkCount)
	if err != nil {
		return domain.IndexStats{}, fmt.Errorf("%w: sqlite: counting chunks: %w", domain.ErrIndex, err)
	}
	return stats, nil
}

// Close closes the database.
func (i *Index) Close() error {
	return i.db.Close()
}
