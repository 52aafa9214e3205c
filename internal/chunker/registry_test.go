package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/neuroquery/internal/core/domain"
)

func TestDefaultRegistry_Build(t *testing.T) {
	r := DefaultRegistry()

	tests := []struct {
		strategy string
		want     string
	}{
		{"", StrategyWords},
		{StrategyWords, StrategyWords},
		{StrategyRecursive, StrategyRecursive},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			c, err := r.Build(domain.ChunkingSettings{Strategy: tt.strategy, Size: 300, Overlap: 50})
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Name())
		})
	}
}

func TestDefaultRegistry_PassesSizes(t *testing.T) {
	c, err := DefaultRegistry().Build(domain.ChunkingSettings{Strategy: StrategyRecursive, Size: 300, Overlap: 50})
	require.NoError(t, err)

	r, ok := c.(*Recursive)
	require.True(t, ok)
	assert.Equal(t, 300, r.ChunkSize())
	assert.Equal(t, 50, r.Overlap())
}

func TestRegistry_Unknown(t *testing.T) {
	_, err := DefaultRegistry().Build(domain.ChunkingSettings{Strategy: "semantic"})

	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestRegistry_Names(t *testing.T) {
	r := DefaultRegistry()

	assert.Equal(t, []string{StrategyRecursive, StrategyWords}, r.Names())
	assert.True(t, r.Has(StrategyWords))
	assert.False(t, r.Has("semantic"))
}
