package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeSSE(t *testing.T) {
	tests := []struct {
		name  string
		frame StreamFrame
		want  string
	}{
		{
			name:  "answer chunk",
			frame: AnswerChunk("Based on"),
			want:  "data: {\"type\":\"answer_chunk\",\"content\":\"Based on\"}\n\n",
		},
		{
			name:  "empty sources",
			frame: SourcesFrame(nil),
			want:  "data: {\"type\":\"sources\",\"sources\":[]}\n\n",
		},
		{
			name:  "error",
			frame: ErrorFrame(NoResultsMessage),
			want:  "data: {\"type\":\"error\",\"message\":\"No relevant documents found\"}\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeSSE(tt.frame)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestStreamFrame_IsTerminal(t *testing.T) {
	assert.False(t, AnswerChunk("x").IsTerminal())
	assert.True(t, SourcesFrame(nil).IsTerminal())
	assert.True(t, ErrorFrame("x").IsTerminal())
}
