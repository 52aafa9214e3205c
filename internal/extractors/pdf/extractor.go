// Package pdf extracts page text with the pure Go ledongthuc/pdf reader.
package pdf

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/neuroquery/internal/core/domain"
	"github.com/custodia-labs/neuroquery/internal/core/ports/driven"
	"github.com/custodia-labs/neuroquery/internal/logger"
)

// Name is the engine name.
const Name = "pdf"

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor reads text content streams page by page.
type Extractor struct{}

// New creates a pdf extractor.
func New() *Extractor {
	return &Extractor{}
}

// Name returns the engine name.
func (e *Extractor) Name() string {
	return Name
}

// Extract returns the text of every page. Null pages are counted but empty.
func (e *Extractor) Extract(ctx context.Context, path string) (text *domain.ExtractedText, err error) {
	// The reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text = nil
			err = fmt.Errorf("%w: pdf: malformed document %s: %v", domain.ErrExtraction, path, r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: pdf: opening %s: %w", domain.ErrExtraction, path, err)
	}
	defer f.Close()

	total := reader.NumPage()
	result := &domain.ExtractedText{Pages: make([]string, total), PageCount: total}

	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			logger.Debug("pdf: page %d of %s is null", i, path)
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: pdf: page %d of %s: %w", domain.ErrExtraction, i, path, err)
		}
		result.Pages[i-1] = strings.TrimSpace(content)
	}

	if result.IsEmpty() {
		return nil, fmt.Errorf("%w: no extractable text in %s", domain.ErrExtraction, path)
	}
	logger.Debug("pdf: extracted %d pages from %s", total, path)
	return result, nil
}
