package styles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTheme(t *testing.T) {
	theme := DefaultTheme()

	require.NotNil(t, theme)
	for name, c := range map[string]string{
		"primary":    string(theme.Primary),
		"secondary":  string(theme.Secondary),
		"foreground": string(theme.Foreground),
		"muted":      string(theme.Muted),
		"success":    string(theme.Success),
		"warning":    string(theme.Warning),
		"error":      string(theme.Error),
		"border":     string(theme.Border),
		"bar":        string(theme.Bar),
	} {
		assert.NotEmpty(t, c, name)
	}
}

func TestDefaultTheme_AccentsAreDistinct(t *testing.T) {
	theme := DefaultTheme()

	seen := make(map[string]bool)
	for _, c := range []string{
		string(theme.Primary), string(theme.Secondary), string(theme.Success),
		string(theme.Warning), string(theme.Error),
	} {
		assert.False(t, seen[c], "duplicate accent: %s", c)
		seen[c] = true
	}
}

func TestNewStyles(t *testing.T) {
	t.Run("uses the given theme", func(t *testing.T) {
		theme := DefaultTheme()
		assert.Same(t, theme, NewStyles(theme).Theme())
	})

	t.Run("nil theme selects the default", func(t *testing.T) {
		s := NewStyles(nil)
		require.NotNil(t, s.Theme())
		assert.Equal(t, *DefaultTheme(), *s.Theme())
	})
}

func TestStyles_Render(t *testing.T) {
	s := DefaultStyles()

	assert.Contains(t, s.Question.Render("what is alpha?"), "what is alpha?")
	assert.Contains(t, s.Answer.Render("alpha"), "alpha")
	assert.Contains(t, s.Source.Render("[1] a.pdf"), "a.pdf")
}
