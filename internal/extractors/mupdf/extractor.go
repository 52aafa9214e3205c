// Package mupdf extracts page text with MuPDF through gen2brain/go-fitz.
//
// MuPDF copes with more producers and damaged files than the pure Go reader
// and is selected with extraction.engine = "mupdf".
package mupdf

import (
	"context"
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/custodia-labs/neuroquery/internal/core/domain"
	"github.com/custodia-labs/neuroquery/internal/core/ports/driven"
	"github.com/custodia-labs/neuroquery/internal/logger"
)

// Name is the engine name.
const Name = "mupdf"

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor renders page text through MuPDF.
type Extractor struct{}

// New creates a MuPDF extractor.
func New() *Extractor {
	return &Extractor{}
}

// Name returns the engine name.
func (e *Extractor) Name() string {
	return Name
}

// Extract returns the text of every page. Pages MuPDF cannot read are
// counted but left empty.
func (e *Extractor) Extract(ctx context.Context, path string) (*domain.ExtractedText, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("%w: mupdf: opening %s: %w", domain.ErrExtraction, path, err)
	}
	defer doc.Close()

	total := doc.NumPage()
	result := &domain.ExtractedText{Pages: make([]string, total), PageCount: total}

	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		content, err := doc.Text(i)
		if err != nil {
			logger.Warn("mupdf: page %d of %s: %v", i+1, path, err)
			continue
		}
		result.Pages[i] = strings.TrimSpace(content)
	}

	if result.IsEmpty() {
		return nil, fmt.Errorf("%w: no extractable text in %s", domain.ErrExtraction, path)
	}
	logger.Debug("mupdf: extracted %d pages from %s", total, path)
	return result, nil
}
