package chunker

import (
	"strings"

	"github.com/custodia-labs/neuroquery/internal/core/domain"
	"github.com/custodia-labs/neuroquery/internal/core/ports/driven"
)

// Ensure Recursive implements the interface.
var _ driven.Chunker = (*Recursive)(nil)

// defaultSeparators are tried in order, coarsest first. The empty separator
// splits into single characters and always applies.
var defaultSeparators = []string{"\n\n", "\n", " ", ""}

// Recursive splits on the coarsest separator present in the text, recursing
// into finer separators for pieces that are still larger than the chunk size,
// then merges adjacent pieces back up to the chunk size with overlap.
type Recursive struct {
	cfg        config
	separators []string
}

// NewRecursive creates a recursive separator chunker.
func NewRecursive(opts ...Option) *Recursive {
	return &Recursive{
		cfg:        newConfig(opts),
		separators: defaultSeparators,
	}
}

// Name returns the strategy name.
func (r *Recursive) Name() string {
	return StrategyRecursive
}

// ChunkSize returns the configured chunk size.
func (r *Recursive) ChunkSize() int { return r.cfg.chunkSize }

// Overlap returns the configured overlap.
func (r *Recursive) Overlap() int { return r.cfg.overlap }

// Chunk splits text into chunks.
func (r *Recursive) Chunk(text, filename, fileID string) []domain.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return assemble(r.split(text, r.separators), filename, fileID)
}

func (r *Recursive) split(text string, separators []string) []string {
	sep := separators[len(separators)-1]
	var finer []string
	for i, s := range separators {
		if s == "" || strings.Contains(text, s) {
			sep = s
			finer = separators[i+1:]
			break
		}
	}

	var (
		out  []string
		good []string
	)
	for _, piece := range strings.Split(text, sep) {
		if strings.TrimSpace(piece) == "" {
			continue
		}
		if runeLen(piece) < r.cfg.chunkSize {
			good = append(good, piece)
			continue
		}

		if len(good) > 0 {
			out = append(out, r.merge(good, sep)...)
			good = nil
		}
		if len(finer) == 0 {
			out = append(out, piece)
		} else {
			out = append(out, r.split(piece, finer)...)
		}
	}
	if len(good) > 0 {
		out = append(out, r.merge(good, sep)...)
	}
	return out
}

// merge joins pieces with sep into chunks no longer than the chunk size,
// starting each chunk with trailing pieces of the previous one up to the overlap.
func (r *Recursive) merge(pieces []string, sep string) []string {
	sepLen := runeLen(sep)
	var (
		out     []string
		current []string
		total   int
	)

	joinedLen := func(extra int) int {
		if len(current) > 0 {
			return total + extra + sepLen
		}
		return total + extra
	}

	for _, piece := range pieces {
		n := runeLen(piece)
		if joinedLen(n) > r.cfg.chunkSize && len(current) > 0 {
			if doc := strings.TrimSpace(strings.Join(current, sep)); doc != "" {
				out = append(out, doc)
			}
			for total > r.cfg.overlap || (total > 0 && joinedLen(n) > r.cfg.chunkSize) {
				total -= runeLen(current[0])
				if len(current) > 1 {
					total -= sepLen
				}
				current = current[1:]
			}
		}
		if len(current) > 0 {
			total += sepLen
		}
		current = append(current, piece)
		total += n
	}

	if doc := strings.TrimSpace(strings.Join(current, sep)); doc != "" {
		out = append(out, doc)
	}
	return out
}
