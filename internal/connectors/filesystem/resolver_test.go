package filesystem

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePath(t *testing.T) {
	tests := []struct {
		name string
		uri  string
		want string
	}{
		{
			name: "file:// URI is converted to local path",
			uri:  "file:///Users/test/documents/file.pdf",
			want: "/Users/test/documents/file.pdf",
		},
		{
			name: "file:// URI with encoded spaces",
			uri:  "file:///Users/test/my%20documents/file.pdf",
			want: "/Users/test/my documents/file.pdf",
		},
		{
			name: "bare path passes through cleaned",
			uri:  "/Users/test/./documents/../file.pdf",
			want: "/Users/test/file.pdf",
		},
		{
			name: "relative path",
			uri:  "docs/file.pdf",
			want: filepath.Join("docs", "file.pdf"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolvePath(tt.uri))
		})
	}
}

func TestFileID(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.pdf")

	id := FileID(a)

	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, id, FileID(a), "stable for the same path")
	assert.Equal(t, id, FileID(filepath.Join(dir, ".", "a.pdf")), "stable across equivalent paths")
	assert.NotEqual(t, id, FileID(filepath.Join(dir, "b.pdf")))
}
