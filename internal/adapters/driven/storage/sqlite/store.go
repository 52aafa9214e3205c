package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/neuroquery/internal/core/domain"
	"github.com/custodia-labs/neuroquery/internal/core/ports/driven"
)

// DatabaseFile is the registry file name inside the data directory.
const DatabaseFile = "metadata.db"

// dsnPragmas turn on WAL and wait up to 5s for a competing writer.
const dsnPragmas = "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

// Store owns the registry database.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// NewStore opens {dataDir}/metadata.db and brings its schema up to date.
// An empty dataDir means ~/.neuroquery.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("locating home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".neuroquery")
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	path := filepath.Join(dataDir, DatabaseFile)
	db, err := sql.Open("sqlite", path+dsnPragmas)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	if _, err := migrate(context.Background(), db, migrationFiles); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating %s: %w", path, err)
	}

	return &Store{
		db:   db,
		path: path,
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Path returns the database file.
func (s *Store) Path() string { return s.path }

// DocumentStore returns the registry view of the database.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

const documentColumns = `file_id, filename, path, byte_size, page_count, chunk_count,
	status, error, created_at, updated_at`

// Save stores or replaces a document.
func (s *documentStore) Save(ctx context.Context, doc *domain.Document) error {
	if doc == nil || doc.FileID == "" {
		return fmt.Errorf("%w: document requires a file id", domain.ErrValidation)
	}
	if !doc.Status.IsValid() {
		return fmt.Errorf("%w: document status %q", domain.ErrValidation, doc.Status)
	}

	now := s.store.now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = doc.CreatedAt
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_id) DO UPDATE SET
			filename = excluded.filename,
			path = excluded.path,
			byte_size = excluded.byte_size,
			page_count = excluded.page_count,
			chunk_count = excluded.chunk_count,
			status = excluded.status,
			error = excluded.error,
			updated_at = excluded.updated_at
	`, doc.FileID, doc.Filename, doc.Path, doc.ByteSize, doc.PageCount, doc.ChunkCount,
		string(doc.Status), doc.Error, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("sqlite: saving document: %w", err)
	}
	return nil
}

// Get retrieves a document by file id.
func (s *documentStore) Get(ctx context.Context, fileID string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE file_id = ?`, fileID)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", fileID, domain.ErrNotFound)
	}
	return doc, err
}

// List returns all documents, newest first.
func (s *documentStore) List(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents ORDER BY created_at DESC, file_id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying documents: %w", err)
	}
	defer rows.Close()

	docs := []domain.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating documents: %w", err)
	}
	return docs, nil
}

// UpdateStatus records a status transition.
func (s *documentStore) UpdateStatus(ctx context.Context, fileID string, update driven.StatusUpdate) error {
	if !update.Status.IsValid() {
		return fmt.Errorf("%w: document status %q", domain.ErrValidation, update.Status)
	}

	res, err := s.store.db.ExecContext(ctx, `
		UPDATE documents
		SET status = ?, page_count = ?, chunk_count = ?, error = ?, updated_at = ?
		WHERE file_id = ?
	`, string(update.Status), update.PageCount, update.ChunkCount, update.Error,
		s.store.now(), fileID)
	if err != nil {
		return fmt.Errorf("sqlite: updating document status: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: updating document status: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("document %s: %w", fileID, domain.ErrNotFound)
	}
	return nil
}

// Delete removes a document.
func (s *documentStore) Delete(ctx context.Context, fileID string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM documents WHERE file_id = ?", fileID)
	if err != nil {
		return fmt.Errorf("sqlite: deleting document: %w", err)
	}
	return nil
}

// CountByStatus returns the number of documents in each status.
func (s *documentStore) CountByStatus(ctx context.Context) (map[domain.DocumentStatus]int, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT status, COUNT(*) FROM documents GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("sqlite: counting documents: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.DocumentStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("sqlite: scanning count: %w", err)
		}
		counts[domain.DocumentStatus(status)] = n
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating counts: %w", err)
	}
	return counts, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDocument scans a single document row.
func scanDocument(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var status string

	if err := row.Scan(&doc.FileID, &doc.Filename, &doc.Path, &doc.ByteSize,
		&doc.PageCount, &doc.ChunkCount, &status, &doc.Error,
		&doc.CreatedAt, &doc.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("sqlite: scanning document: %w", err)
	}

	doc.Status = domain.DocumentStatus(status)
	return &doc, nil
}
