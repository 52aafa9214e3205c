// Package uploads retains raw uploaded files on the local filesystem.
package uploads

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/neuroquery/internal/core/domain"
	"github.com/custodia-labs/neuroquery/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.UploadStore = (*Store)(nil)

const partSuffix = ".part"

// Store writes uploads as {file_id}_{filename} inside a single directory.
type Store struct {
	dir string
}

// NewStore creates the upload directory if needed.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: upload directory is required", domain.ErrValidation)
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("uploads: creating %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory uploads are written to.
func (s *Store) Dir() string {
	return s.dir
}

// Save streams r to disk, refusing to write more than maxSize bytes.
// Bytes land in a temp file that is renamed over {file_id}_{filename} only
// when complete. On failure the temp file is removed and any earlier copy
// stays as it was.
func (s *Store) Save(fileID, filename string, r io.Reader, maxSize int64) (string, int64, error) {
	name := SafeName(filename)
	if fileID == "" || name == "" {
		return "", 0, fmt.Errorf("%w: file id and filename are required", domain.ErrValidation)
	}

	path := filepath.Join(s.dir, fileID+"_"+name)
	f, err := os.CreateTemp(s.dir, "."+fileID+"_*"+partSuffix)
	if err != nil {
		return "", 0, fmt.Errorf("uploads: creating %s: %w", path, err)
	}
	tmp := f.Name()

	src := r
	if maxSize > 0 {
		// One extra byte distinguishes "exactly maxSize" from "too large".
		src = io.LimitReader(r, maxSize+1)
	}

	n, copyErr := io.Copy(f, src)
	closeErr := f.Close()

	switch {
	case copyErr != nil:
		err = fmt.Errorf("uploads: writing %s: %w", path, copyErr)
	case closeErr != nil:
		err = fmt.Errorf("uploads: closing %s: %w", path, closeErr)
	case maxSize > 0 && n > maxSize:
		err = fmt.Errorf("%w: file exceeds maximum size of %d bytes", domain.ErrValidation, maxSize)
	case n == 0:
		err = fmt.Errorf("%w: file is empty", domain.ErrValidation)
	}
	if err == nil {
		if renameErr := os.Rename(tmp, path); renameErr != nil {
			err = fmt.Errorf("uploads: replacing %s: %w", path, renameErr)
		}
	}
	if err != nil {
		_ = os.Remove(tmp)
		return "", 0, err
	}

	return path, n, nil
}

// Remove deletes a retained file. Missing files are ignored.
func (s *Store) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("uploads: removing %s: %w", path, err)
	}
	return nil
}

// SafeName reduces a client-supplied filename to its base name.
func SafeName(filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}
