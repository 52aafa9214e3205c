package driven

import (
	"context"

	"github.com/custodia-labs/neuroquery/internal/core/domain"
)

// AnswerGenerator produces textual output from a query and its ranked context.
type AnswerGenerator interface {
	// Name identifies the generator in logs.
	Name() string

	// Generate synthesises an answer. contextText is the rendered excerpt block
	// built from sources, which are ordered by descending similarity.
	Generate(ctx context.Context, query, contextText string, sources []domain.RetrievedChunk) (string, error)
}
