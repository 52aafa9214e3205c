// Package chunker splits extracted document text into overlapping chunks.
//
// Two strategies are provided. The words strategy accumulates
// whitespace-delimited tokens up to the chunk size and carries trailing
// tokens into the next chunk. The recursive strategy splits on paragraph,
// line, word and character boundaries in turn and merges the pieces back up
// to the chunk size.
package chunker

import (
	"regexp"
	"strconv"
	"unicode/utf8"

	"github.com/custodia-labs/neuroquery/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = domain.DefaultChunkSize

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = domain.DefaultChunkOverlap

// config holds the size parameters shared by all strategies.
type config struct {
	chunkSize int
	overlap   int
}

// Option configures a chunker.
type Option func(*config)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(c *config) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *config) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

func newConfig(opts []Option) config {
	c := config{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(&c)
	}

	// Overlap must leave room for new content in every chunk
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}
	return c
}

var pageMarker = regexp.MustCompile(`--- Page (\d+)`)

// assemble turns chunk texts into domain chunks, backfilling TotalChunks once
// the count is known and tagging each chunk with the page it starts on.
func assemble(texts []string, filename, fileID string) []domain.Chunk {
	if len(texts) == 0 {
		return nil
	}

	chunks := make([]domain.Chunk, len(texts))
	page := 0
	for i, text := range texts {
		start, last := pageSpan(text)
		if start > 0 {
			page = start
		}

		chunks[i] = domain.Chunk{
			ID:             domain.ChunkID(fileID, i),
			Text:           text,
			SourceFileID:   fileID,
			SourceFilename: filename,
			ChunkIndex:     i,
			TotalChunks:    len(texts),
			Metadata:       map[string]string{},
		}
		if page > 0 {
			chunks[i].Metadata[domain.MetaPage] = strconv.Itoa(page)
		}
		chunks[i].Metadata = chunks[i].BuildMetadata()

		if last > 0 {
			page = last
		}
	}
	return chunks
}

// pageSpan returns the page number of a marker opening the text (0 if the text
// starts mid-page) and the number of the last marker in the text (0 if none).
func pageSpan(text string) (start, last int) {
	matches := pageMarker.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return 0, 0
	}
	first := matches[0]
	if first[0] == 0 {
		start, _ = strconv.Atoi(text[first[2]:first[3]])
	}
	final := matches[len(matches)-1]
	last, _ = strconv.Atoi(text[final[2]:final[3]])
	return start, last
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
