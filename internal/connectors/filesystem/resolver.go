package filesystem

import (
	"net/url"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ResolvePath converts a file:// URI or bare path to a cleaned local path.
// Percent-encoded characters in URIs are decoded.
func ResolvePath(uri string) string {
	if strings.HasPrefix(uri, "file://") {
		if u, err := url.Parse(uri); err == nil && u.Path != "" {
			return filepath.Clean(u.Path)
		}
		return filepath.Clean(strings.TrimPrefix(uri, "file://"))
	}
	return filepath.Clean(uri)
}

// FileID returns a stable document id for a local path, so that re-ingesting
// the same file replaces its chunks instead of adding a second copy.
func FileID(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+filepath.ToSlash(path))).String()
}
