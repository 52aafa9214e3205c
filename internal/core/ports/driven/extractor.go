package driven

import (
	"context"

	"github.com/custodia-labs/neuroquery/internal/core/domain"
)

// Extractor turns a PDF on disk into page-segmented text.
// Failures, including documents with no extractable text, wrap domain.ErrExtraction.
type Extractor interface {
	// Name returns the engine name used in configuration.
	Name() string

	// Extract reads the file at path.
	Extract(ctx context.Context, path string) (*domain.ExtractedText, error)
}
