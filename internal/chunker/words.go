package chunker

import (
	"strings"

	"github.com/custodia-labs/neuroquery/internal/core/domain"
	"github.com/custodia-labs/neuroquery/internal/core/ports/driven"
)

// Ensure Words implements the interface.
var _ driven.Chunker = (*Words)(nil)

// Words accumulates whitespace-delimited tokens until the running length,
// separators included, reaches the chunk size. The trailing tokens of each
// emitted chunk that fit within the overlap start the next one.
type Words struct {
	cfg config
}

// NewWords creates a token-accumulating chunker.
func NewWords(opts ...Option) *Words {
	return &Words{cfg: newConfig(opts)}
}

// Name returns the strategy name.
func (w *Words) Name() string {
	return StrategyWords
}

// ChunkSize returns the configured chunk size.
func (w *Words) ChunkSize() int { return w.cfg.chunkSize }

// Overlap returns the configured overlap.
func (w *Words) Overlap() int { return w.cfg.overlap }

// Chunk splits text into chunks.
func (w *Words) Chunk(text, filename, fileID string) []domain.Chunk {
	return assemble(w.split(text), filename, fileID)
}

func (w *Words) split(text string) []string {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return nil
	}

	var (
		out     []string
		current []string
		length  int
		fresh   int // tokens added since the last emit
	)

	for _, tok := range tokens {
		if len(current) > 0 {
			length++
		}
		current = append(current, tok)
		length += runeLen(tok)
		fresh++

		if length < w.cfg.chunkSize {
			continue
		}

		out = append(out, strings.Join(current, " "))
		current, length = w.carry(current)
		fresh = 0
	}

	if fresh > 0 {
		out = append(out, strings.Join(current, " "))
	}
	return out
}

// carry returns the longest suffix of tokens whose joined length fits in the overlap.
func (w *Words) carry(tokens []string) ([]string, int) {
	length := 0
	i := len(tokens)
	for i > 0 {
		next := runeLen(tokens[i-1])
		if length > 0 {
			next++
		}
		if length+next > w.cfg.overlap {
			break
		}
		length += next
		i--
	}

	kept := make([]string, len(tokens)-i)
	copy(kept, tokens[i:])
	return kept, length
}
