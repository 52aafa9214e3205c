package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/custodia-labs/neuroquery/internal/core/domain"
	"github.com/custodia-labs/neuroquery/internal/core/ports/driven"
	"github.com/custodia-labs/neuroquery/internal/logger"
)

// contextExcerptLength bounds each source excerpt placed in the answer context.
const contextExcerptLength = 500

// QueryService answers free-text queries from the vector index.
// It holds no mutable state and is safe for concurrent use.
type QueryService struct {
	embedder     driven.Embedder
	index        driven.VectorIndex
	generator    driven.AnswerGenerator
	fragmentSize int
	streamDelay  time.Duration
}

// QueryOption configures a QueryService.
type QueryOption func(*QueryService)

// WithFragmentSize sets the number of characters per streamed answer fragment.
func WithFragmentSize(n int) QueryOption {
	return func(s *QueryService) {
		if n > 0 {
			s.fragmentSize = n
		}
	}
}

// WithStreamDelay sets the pause between streamed fragments. Zero disables pacing.
func WithStreamDelay(d time.Duration) QueryOption {
	return func(s *QueryService) {
		if d >= 0 {
			s.streamDelay = d
		}
	}
}

// NewQueryService creates a query service. A nil generator selects the template.
func NewQueryService(
	embedder driven.Embedder,
	index driven.VectorIndex,
	generator driven.AnswerGenerator,
	opts ...QueryOption,
) *QueryService {
	if generator == nil {
		generator = NewTemplateGenerator()
	}
	s := &QueryService{
		embedder:     embedder,
		index:        index,
		generator:    generator,
		fragmentSize: domain.DefaultFragmentSize,
		streamDelay:  domain.DefaultStreamDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Query answers req in one piece. A query that retrieves nothing returns the
// fixed no-results answer with empty sources.
func (s *QueryService) Query(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
	start := time.Now()

	req, sources, err := s.retrieve(ctx, req)
	if err != nil {
		return nil, err
	}

	result := &domain.QueryResult{
		Query:   req.Text,
		Sources: sources,
	}
	if len(sources) == 0 {
		result.Answer = domain.NoResultsAnswer
		result.ProcessingTime = time.Since(start).Seconds()
		return result, nil
	}

	answer, err := s.generator.Generate(ctx, req.Text, BuildContext(sources), sources)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	result.Answer = answer
	result.ProcessingTime = time.Since(start).Seconds()

	logger.Debug("Query answered in %.3fs with %d sources", result.ProcessingTime, len(sources))
	return result, nil
}

// Stream answers req as a sequence of frames on the returned channel:
// answer fragments followed by one sources frame, or a single error frame.
// The channel is closed after the terminal frame or when ctx is done.
func (s *QueryService) Stream(ctx context.Context, req domain.QueryRequest) <-chan domain.StreamFrame {
	out := make(chan domain.StreamFrame)

	go func() {
		defer close(out)
		start := time.Now()

		send := func(f domain.StreamFrame) bool {
			select {
			case out <- f:
				return true
			case <-ctx.Done():
				return false
			}
		}

		req, sources, err := s.retrieve(ctx, req)
		if err != nil {
			logger.Warn("query failed: %v", err)
			send(domain.ErrorFrame(err.Error()))
			return
		}
		if len(sources) == 0 {
			send(domain.ErrorFrame(domain.NoResultsMessage))
			return
		}

		answer, err := s.generator.Generate(ctx, req.Text, BuildContext(sources), sources)
		if err != nil {
			if ctx.Err() == nil {
				send(domain.ErrorFrame(err.Error()))
			}
			return
		}

		for i, fragment := range Fragments(answer, s.fragmentSize) {
			if i > 0 && s.streamDelay > 0 {
				timer := time.NewTimer(s.streamDelay)
				select {
				case <-timer.C:
				case <-ctx.Done():
					timer.Stop()
					return
				}
			}
			if !send(domain.AnswerChunk(fragment)) {
				return
			}
		}

		if send(domain.SourcesFrame(sources)) {
			logger.Debug("Query streamed in %.3fs with %d sources", time.Since(start).Seconds(), len(sources))
		}
	}()

	return out
}

// retrieve validates req, embeds it and searches the index.
func (s *QueryService) retrieve(
	ctx context.Context, req domain.QueryRequest,
) (domain.QueryRequest, []domain.RetrievedChunk, error) {
	logger.Section("Query Execution")

	req, err := req.Normalise()
	if err != nil {
		return req, nil, err
	}
	logger.Debug("Query: %q top_k=%d", req.Text, req.TopK)

	vec, err := s.embedder.EmbedQuery(ctx, req.Text)
	if err != nil {
		return req, nil, fmt.Errorf("embed query: %w", err)
	}

	sources, err := s.index.Search(ctx, vec, req.TopK, nil)
	if err != nil {
		return req, nil, fmt.Errorf("search: %w", err)
	}
	logger.Debug("Retrieved %d chunks", len(sources))
	return req, sources, nil
}

// BuildContext renders ranked sources into the excerpt block handed to the
// answer generator. Each excerpt is cut to 500 characters.
func BuildContext(sources []domain.RetrievedChunk) string {
	parts := make([]string, 0, len(sources))
	for i, src := range sources {
		parts = append(parts, fmt.Sprintf("[Source %d from %s]: %s...",
			i+1, src.Filename(), truncateRunes(src.Content, contextExcerptLength)))
	}
	return strings.Join(parts, "\n\n")
}

// Fragments splits text into pieces of at most size characters.
// Multi-byte characters are never split.
func Fragments(text string, size int) []string {
	if text == "" {
		return nil
	}
	if size <= 0 {
		size = domain.DefaultFragmentSize
	}

	fragments := make([]string, 0, utf8.RuneCountInString(text)/size+1)
	start, count := 0, 0
	for i := range text {
		if count == size {
			fragments = append(fragments, text[start:i])
			start, count = i, 0
		}
		count++
	}
	return append(fragments, text[start:])
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
