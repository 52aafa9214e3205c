package pdf

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/neuroquery/internal/core/domain"
)

func TestExtractor_Name(t *testing.T) {
	assert.Equal(t, "pdf", New().Name())
}

func TestExtract_MissingFile(t *testing.T) {
	_, err := New().Extract(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))

	assert.ErrorIs(t, err, domain.ErrExtraction)
}

func TestExtract_NotAPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.pdf")
	if err := os.WriteFile(path, []byte("this is plain text, not a pdf"), 0600); err != nil {
		t.Fatal(err)
	}

	text, err := New().Extract(context.Background(), path)

	assert.ErrorIs(t, err, domain.ErrExtraction)
	assert.Nil(t, text)
}

func TestExtract_TruncatedPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "truncated.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog"), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := New().Extract(context.Background(), path)

	assert.ErrorIs(t, err, domain.ErrExtraction)
}
