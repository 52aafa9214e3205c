package services

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/neuroquery/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/neuroquery/internal/core/domain"
)

// mockAIValidator records which settings it was asked to validate.
type mockAIValidator struct {
	embedding *domain.EmbeddingSettings
	llm       *domain.LLMSettings
	err       error
}

func (m *mockAIValidator) ValidateEmbedding(config *domain.EmbeddingSettings) error {
	m.embedding = config
	return m.err
}

func (m *mockAIValidator) ValidateLLM(config *domain.LLMSettings) error {
	m.llm = config
	return m.err
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	service := NewSettingsService(memory.NewConfigStore(), nil, dir)

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSettings(dir), *settings)
	assert.NoError(t, settings.Validate())
}

func TestSettingsService_EmptyDataDirUsesHome(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil, "")

	assert.Equal(t, DefaultDataDir(), service.DataDir())
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("embedding.provider", "openai")
	_ = store.Set("embedding.api_key", "sk-test")
	_ = store.Set("vector_store.backend", "pgvector")
	_ = store.Set("vector_store.dsn", "postgres://localhost/rag")
	_ = store.Set("chunking.strategy", "recursive")
	_ = store.Set("chunking.size", int64(500))
	_ = store.Set("chunking.overlap", "50")
	_ = store.Set("answer.mode", "llm")
	_ = store.Set("answer.llm.provider", "anthropic")
	_ = store.Set("answer.llm.api_key", "sk-ant")
	_ = store.Set("server.cors_origins", "http://a.test, http://b.test")

	service := NewSettingsService(store, nil, t.TempDir())

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOpenAI, settings.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-small", settings.Embedding.Model)
	assert.Equal(t, 1536, settings.Embedding.Dimensions)
	assert.Equal(t, domain.VectorBackendPGVector, settings.VectorStore.Backend)
	assert.Equal(t, "postgres://localhost/rag", settings.VectorStore.DSN)
	assert.Equal(t, "recursive", settings.Chunking.Strategy)
	assert.Equal(t, 500, settings.Chunking.Size)
	assert.Equal(t, 50, settings.Chunking.Overlap)
	assert.Equal(t, domain.AnswerModeLLM, settings.Answer.Mode)
	assert.Equal(t, "claude-3-5-sonnet-latest", settings.Answer.LLM.Model)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, settings.Server.CORSOrigins)
	assert.NoError(t, settings.Validate())
}

func TestSettingsService_Get_ExplicitDimensionsWin(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("embedding.model", "nomic-embed-text")
	service := NewSettingsService(store, nil, t.TempDir())

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, 768, settings.Embedding.Dimensions)

	_ = store.Set("embedding.dimensions", 256)
	settings, err = service.Get()
	require.NoError(t, err)
	assert.Equal(t, 256, settings.Embedding.Dimensions)
}

func TestSettingsService_Get_InvalidValuesReturnDefaults(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("embedding.provider", "invalid_provider")
	_ = store.Set("vector_store.backend", "faiss")
	_ = store.Set("answer.mode", "magic")
	_ = store.Set("chunking.size", -5)
	_ = store.Set("query.stream_delay", "soon")

	dir := t.TempDir()
	service := NewSettingsService(store, nil, dir)

	settings, err := service.Get()

	require.NoError(t, err)
	defaults := domain.DefaultSettings(dir)
	assert.Equal(t, defaults.Embedding.Provider, settings.Embedding.Provider)
	assert.Equal(t, defaults.VectorStore.Backend, settings.VectorStore.Backend)
	assert.Equal(t, defaults.Answer.Mode, settings.Answer.Mode)
	assert.Equal(t, defaults.Chunking.Size, settings.Chunking.Size)
	assert.Equal(t, defaults.Query.StreamDelay, settings.Query.StreamDelay)
}

func TestSettingsService_Get_StreamDelay(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  time.Duration
	}{
		{"duration string", "25ms", 25 * time.Millisecond},
		{"zero disables pacing", "0", 0},
		{"zero seconds", "0s", 0},
		{"bare integer is milliseconds", int64(40), 40 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewConfigStore()
			_ = store.Set("query.stream_delay", tt.value)
			service := NewSettingsService(store, nil, t.TempDir())

			settings, err := service.Get()

			require.NoError(t, err)
			assert.Equal(t, tt.want, settings.Query.StreamDelay)
		})
	}
}

func TestSettingsService_SaveRoundTrip(t *testing.T) {
	store := memory.NewConfigStore()
	dir := t.TempDir()
	service := NewSettingsService(store, nil, dir)

	settings := domain.DefaultSettings(dir)
	settings.Embedding.Provider = domain.AIProviderOpenAI
	settings.Embedding.Model = "text-embedding-3-large"
	settings.Embedding.Dimensions = 3072
	settings.Embedding.APIKey = "sk-test"
	settings.Chunking.Size = 800
	settings.Query.StreamDelay = 0
	settings.Uploads.Dir = filepath.Join(dir, "in")

	require.NoError(t, service.Save(&settings))

	loaded, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, settings, *loaded)
}

func TestSettingsService_Save_SkipsEmptyAPIKeys(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil, t.TempDir())

	defaults := service.GetDefaults()
	require.NoError(t, service.Save(&defaults))

	_, hasEmbedKey := store.Get("embedding.api_key")
	_, hasLLMKey := store.Get("answer.llm.api_key")
	assert.False(t, hasEmbedKey)
	assert.False(t, hasLLMKey)
}

func TestSettingsService_Set(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil, t.TempDir())

	require.NoError(t, service.Set("chunking.size", 1200))
	assert.Equal(t, 1200, store.GetInt("chunking.size"))

	err := service.Set("", 1)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestSettingsService_Validate(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil, t.TempDir())
	require.NoError(t, service.Validate())

	_ = store.Set("answer.mode", "llm")
	err := service.Validate()
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestSettingsService_ValidateEmbeddingConfig(t *testing.T) {
	t.Run("nil validator", func(t *testing.T) {
		service := NewSettingsService(memory.NewConfigStore(), nil, t.TempDir())
		assert.NoError(t, service.ValidateEmbeddingConfig())
	})

	t.Run("delegates current settings", func(t *testing.T) {
		store := memory.NewConfigStore()
		_ = store.Set("embedding.model", "nomic-embed-text")
		validator := &mockAIValidator{}
		service := NewSettingsService(store, validator, t.TempDir())

		require.NoError(t, service.ValidateEmbeddingConfig())
		require.NotNil(t, validator.embedding)
		assert.Equal(t, "nomic-embed-text", validator.embedding.Model)
	})

	t.Run("propagates failure", func(t *testing.T) {
		validator := &mockAIValidator{err: domain.ErrEmbedding}
		service := NewSettingsService(memory.NewConfigStore(), validator, t.TempDir())

		assert.ErrorIs(t, service.ValidateEmbeddingConfig(), domain.ErrEmbedding)
	})
}

func TestSettingsService_ValidateLLMConfig(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("answer.llm.provider", "ollama")
	validator := &mockAIValidator{}
	service := NewSettingsService(store, validator, t.TempDir())

	require.NoError(t, service.ValidateLLMConfig())
	require.NotNil(t, validator.llm)
	assert.Equal(t, domain.AIProviderOllama, validator.llm.Provider)
	assert.Equal(t, "llama3.2", validator.llm.Model)
}
