package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/neuroquery/internal/core/domain"
	"github.com/custodia-labs/neuroquery/internal/core/ports/driven"
	"github.com/custodia-labs/neuroquery/internal/logger"
)

// Ensure generators implement the interface.
var (
	_ driven.AnswerGenerator = (*TemplateGenerator)(nil)
	_ driven.AnswerGenerator = (*LLMGenerator)(nil)
)

const templateFooter = "This answer is generated based on semantic search results from your uploaded documents."

// TemplateGenerator renders a deterministic answer from the retrieved context.
type TemplateGenerator struct{}

// NewTemplateGenerator creates the default answer generator.
func NewTemplateGenerator() *TemplateGenerator {
	return &TemplateGenerator{}
}

// Name returns "template".
func (g *TemplateGenerator) Name() string {
	return string(domain.AnswerModeTemplate)
}

// Generate never fails; the same inputs always produce the same answer.
func (g *TemplateGenerator) Generate(
	_ context.Context, query, contextText string, _ []domain.RetrievedChunk,
) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Based on the documents you've uploaded, here's what I found about '%s':\n\n", query)
	if contextText != "" {
		b.WriteString(contextText)
		b.WriteString("\n\n")
	}
	b.WriteString(templateFooter)
	return b.String(), nil
}

// LLMGenerator prompts a language model with the retrieved context.
// Any LLM failure falls back to the template answer.
type LLMGenerator struct {
	llm      driven.LLMService
	prompts  driven.PromptStore
	fallback *TemplateGenerator
	opts     driven.CompletionOptions
}

// NewLLMGenerator creates an LLM-backed generator.
func NewLLMGenerator(llm driven.LLMService, prompts driven.PromptStore) *LLMGenerator {
	return &LLMGenerator{
		llm:      llm,
		prompts:  prompts,
		fallback: NewTemplateGenerator(),
		opts: driven.CompletionOptions{
			MaxTokens:   1024,
			Temperature: 0.2,
		},
	}
}

// Name returns "llm".
func (g *LLMGenerator) Name() string {
	return string(domain.AnswerModeLLM)
}

// Generate asks the LLM for a grounded answer.
func (g *LLMGenerator) Generate(
	ctx context.Context, query, contextText string, sources []domain.RetrievedChunk,
) (string, error) {
	if g.llm == nil {
		return g.fallback.Generate(ctx, query, contextText, sources)
	}

	messages, err := g.messages(query, contextText)
	if err != nil {
		logger.Warn("answer prompt unavailable, using template: %v", err)
		return g.fallback.Generate(ctx, query, contextText, sources)
	}

	answer, err := g.llm.Complete(ctx, messages, g.opts)
	if err == nil {
		answer = strings.TrimSpace(answer)
	}
	if err != nil || answer == "" {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if err == nil {
			err = fmt.Errorf("%s returned an empty answer", g.llm.ModelName())
		}
		logger.Warn("llm answer failed, using template: %v", err)
		return g.fallback.Generate(ctx, query, contextText, sources)
	}
	return answer, nil
}

func (g *LLMGenerator) messages(query, contextText string) ([]driven.ChatMessage, error) {
	system, err := g.prompts.Load(driven.PromptAnswerSystem)
	if err != nil {
		return nil, err
	}
	user, err := g.prompts.Load(driven.PromptAnswerUser)
	if err != nil {
		return nil, err
	}
	if strings.Count(user, "%s") != 2 {
		return nil, fmt.Errorf("prompt %q must contain two %%s placeholders", driven.PromptAnswerUser)
	}

	return []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: system},
		{Role: driven.RoleUser, Content: fmt.Sprintf(user, contextText, query)},
	}, nil
}
