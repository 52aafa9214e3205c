package driven

import "io"

// UploadStore retains raw uploaded files.
type UploadStore interface {
	// Save writes r to a file named {fileID}_{filename} and returns its path and size.
	// Writing more than maxSize bytes fails with domain.ErrValidation.
	Save(fileID, filename string, r io.Reader, maxSize int64) (path string, size int64, err error)

	// Remove deletes a retained file. Removing a missing file is not an error.
	Remove(path string) error

	// Dir returns the directory uploads are written to.
	Dir() string
}
