package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/neuroquery/internal/core/domain"
)

func sampleSources() []domain.RetrievedChunk {
	return []domain.RetrievedChunk{
		{
			ID:      "f1:0",
			Content: "alpha text",
			Score:   0.875,
			Metadata: map[string]string{
				domain.MetaFileID: "f1",
				domain.MetaSource: "report.pdf",
				domain.MetaPage:   "4",
			},
		},
		{
			ID:       "f2:3",
			Content:  "beta text",
			Score:    0.5,
			Metadata: map[string]string{domain.MetaSource: "notes.pdf"},
		},
	}
}

func TestQueryCmd_JSONWhenNotTerminal(t *testing.T) {
	pipeline := newMockPipeline()
	pipeline.result = &domain.QueryResult{
		Answer:  "Alpha is first.",
		Sources: sampleSources(),
		Query:   "what is alpha",
	}
	setupTestServices(t, pipeline)

	out, err := execute(t, "query", "what", "is", "alpha", "--top-k", "2")

	require.NoError(t, err)
	assert.Equal(t, domain.QueryRequest{Text: "what is alpha", TopK: 2}, pipeline.lastQuery)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "Alpha is first.", got["answer"])
	sources, ok := got["sources"].([]any)
	require.True(t, ok)
	assert.Len(t, sources, 2)
}

func TestQueryCmd_Error(t *testing.T) {
	pipeline := newMockPipeline()
	pipeline.queryErr = domain.ErrValidation
	setupTestServices(t, pipeline)

	_, err := execute(t, "query", "x", "--json")

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestQueryCmd_DefaultTopK(t *testing.T) {
	pipeline := newMockPipeline()
	pipeline.result = &domain.QueryResult{Answer: domain.NoResultsAnswer, Sources: []domain.RetrievedChunk{}}
	setupTestServices(t, pipeline)

	_, err := execute(t, "query", "alpha")

	require.NoError(t, err)
	assert.Equal(t, domain.DefaultTopK, pipeline.lastQuery.TopK)
}

func streamCommand() (*cobra.Command, *bytes.Buffer) {
	cmd := &cobra.Command{}
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	return cmd, buf
}

func TestQueryStreaming(t *testing.T) {
	pipeline := newMockPipeline()
	pipeline.frames = []domain.StreamFrame{
		domain.AnswerChunk("Alpha "),
		domain.AnswerChunk("is first."),
		domain.SourcesFrame(sampleSources()),
	}
	cmd, buf := streamCommand()

	err := queryStreaming(cmd, &Services{Pipeline: pipeline}, domain.QueryRequest{Text: "alpha"})

	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Alpha is first.\n")
	assert.Contains(t, out, "Sources:")
	assert.Contains(t, out, "[1] report.pdf, page 4 (0.88)")
	assert.Contains(t, out, "[2] notes.pdf (0.50)")
}

func TestQueryStreaming_ErrorFrame(t *testing.T) {
	pipeline := newMockPipeline()
	pipeline.frames = []domain.StreamFrame{domain.ErrorFrame(domain.NoResultsMessage)}
	cmd, _ := streamCommand()

	err := queryStreaming(cmd, &Services{Pipeline: pipeline}, domain.QueryRequest{Text: "alpha"})

	require.Error(t, err)
	assert.Equal(t, domain.NoResultsMessage, err.Error())
}

func TestQueryStreaming_EmptySources(t *testing.T) {
	pipeline := newMockPipeline()
	pipeline.frames = []domain.StreamFrame{domain.AnswerChunk("ok"), domain.SourcesFrame(nil)}
	cmd, buf := streamCommand()

	err := queryStreaming(cmd, &Services{Pipeline: pipeline}, domain.QueryRequest{Text: "alpha"})

	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "Sources:")
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, isTerminal(new(bytes.Buffer)))

	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, isTerminal(f))
}
