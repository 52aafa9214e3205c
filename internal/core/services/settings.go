package services

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/custodia-labs/neuroquery/internal/core/domain"
	"github.com/custodia-labs/neuroquery/internal/core/ports/driven"
	"github.com/custodia-labs/neuroquery/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider   = "embedding.provider"
	keyEmbedModel      = "embedding.model"
	keyEmbedBaseURL    = "embedding.base_url"
	keyEmbedAPIKey     = "embedding.api_key"
	keyEmbedDims       = "embedding.dimensions"
	keyEmbedBatch      = "embedding.batch_size"
	keyEmbedRate       = "embedding.requests_per_second"
	keyAnswerMode      = "answer.mode"
	keyLLMProvider     = "answer.llm.provider"
	keyLLMModel        = "answer.llm.model"
	keyLLMBaseURL      = "answer.llm.base_url"
	keyLLMAPIKey       = "answer.llm.api_key"
	keyVectorBackend   = "vector_store.backend"
	keyVectorPath      = "vector_store.path"
	keyVectorColl      = "vector_store.collection"
	keyVectorDSN       = "vector_store.dsn"
	keyChunkStrategy   = "chunking.strategy"
	keyChunkSize       = "chunking.size"
	keyChunkOverlap    = "chunking.overlap"
	keyExtractEngine   = "extraction.engine"
	keyUploadDir       = "uploads.dir"
	keyUploadMaxSize   = "uploads.max_size"
	keyUploadAllowed   = "uploads.allowed_extensions"
	keyFragmentSize    = "query.fragment_size"
	keyStreamDelay     = "query.stream_delay"
	keyServerHost      = "server.host"
	keyServerPort      = "server.port"
	keyServerCORS      = "server.cors_origins"
	defaultDataDirName = ".neuroquery"
)

// DefaultDataDir returns ~/.neuroquery, or .neuroquery in the working
// directory when the home directory cannot be resolved.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return defaultDataDirName
	}
	return filepath.Join(home, defaultDataDirName)
}

// SettingsService layers stored configuration over domain defaults.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	dataDir     string
}

// NewSettingsService creates a new settings service rooted at dataDir.
// An empty dataDir selects DefaultDataDir. aiValidator may be nil.
func NewSettingsService(
	configStore driven.ConfigStore,
	aiValidator driven.AIConfigValidator,
	dataDir string,
) *SettingsService {
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		dataDir:     dataDir,
	}
}

// DataDir returns the root directory for persisted state.
func (s *SettingsService) DataDir() string {
	return s.dataDir
}

// Get retrieves current settings. Unset or invalid values fall back to defaults.
func (s *SettingsService) Get() (*domain.Settings, error) {
	defaults := domain.DefaultSettings(s.dataDir)

	embedding := domain.EmbeddingSettings{
		Provider:          s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
		Model:             s.configStore.GetString(keyEmbedModel),
		BaseURL:           s.configStore.GetString(keyEmbedBaseURL),
		APIKey:            s.configStore.GetString(keyEmbedAPIKey),
		Dimensions:        s.configStore.GetInt(keyEmbedDims),
		BatchSize:         s.getInt(keyEmbedBatch, defaults.Embedding.BatchSize),
		RequestsPerSecond: s.getFloat(keyEmbedRate, defaults.Embedding.RequestsPerSecond),
	}
	if embedding.Model == "" {
		embedding.Model = domain.DefaultEmbeddingModels()[embedding.Provider]
	}
	if embedding.Dimensions <= 0 {
		embedding.Dimensions = defaults.Embedding.Dimensions
		if d, ok := domain.EmbeddingDimensions()[embedding.Model]; ok {
			embedding.Dimensions = d
		}
	}

	llm := domain.LLMSettings{
		Provider: domain.AIProvider(s.configStore.GetString(keyLLMProvider)),
		Model:    s.configStore.GetString(keyLLMModel),
		BaseURL:  s.configStore.GetString(keyLLMBaseURL),
		APIKey:   s.configStore.GetString(keyLLMAPIKey),
	}
	if llm.Model == "" && llm.Provider.IsValid() {
		llm.Model = domain.DefaultLLMModels()[llm.Provider]
	}

	settings := &domain.Settings{
		DataDir:   s.dataDir,
		Embedding: embedding,
		Answer: domain.AnswerSettings{
			Mode: s.getAnswerMode(defaults.Answer.Mode),
			LLM:  llm,
		},
		VectorStore: domain.VectorStoreSettings{
			Backend:    s.getBackend(defaults.VectorStore.Backend),
			Path:       s.getString(keyVectorPath, defaults.VectorStore.Path),
			Collection: s.getString(keyVectorColl, defaults.VectorStore.Collection),
			DSN:        s.configStore.GetString(keyVectorDSN),
		},
		Chunking: domain.ChunkingSettings{
			Strategy: s.getString(keyChunkStrategy, defaults.Chunking.Strategy),
			Size:     s.getInt(keyChunkSize, defaults.Chunking.Size),
			Overlap:  s.getInt(keyChunkOverlap, defaults.Chunking.Overlap),
		},
		Extraction: domain.ExtractionSettings{
			Engine: s.getString(keyExtractEngine, defaults.Extraction.Engine),
		},
		Uploads: domain.UploadSettings{
			Dir:               s.getString(keyUploadDir, defaults.Uploads.Dir),
			MaxSize:           int64(s.getInt(keyUploadMaxSize, int(defaults.Uploads.MaxSize))),
			AllowedExtensions: s.getStringSlice(keyUploadAllowed, defaults.Uploads.AllowedExtensions),
		},
		Query: domain.QuerySettings{
			FragmentSize: s.getInt(keyFragmentSize, defaults.Query.FragmentSize),
			StreamDelay:  s.getDuration(keyStreamDelay, defaults.Query.StreamDelay),
		},
		Server: domain.ServerSettings{
			Host:        s.getString(keyServerHost, defaults.Server.Host),
			Port:        s.getInt(keyServerPort, defaults.Server.Port),
			CORSOrigins: s.getStringSlice(keyServerCORS, defaults.Server.CORSOrigins),
		},
	}

	return settings, nil
}

// Save persists settings. Empty API keys are not written so keys supplied
// through the environment never end up in the config file.
func (s *SettingsService) Save(settings *domain.Settings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedDims, settings.Embedding.Dimensions},
		{keyEmbedBatch, settings.Embedding.BatchSize},
		{keyEmbedRate, settings.Embedding.RequestsPerSecond},
		{keyAnswerMode, string(settings.Answer.Mode)},
		{keyLLMProvider, settings.Answer.LLM.Provider.String()},
		{keyLLMModel, settings.Answer.LLM.Model},
		{keyLLMBaseURL, settings.Answer.LLM.BaseURL},
		{keyVectorBackend, string(settings.VectorStore.Backend)},
		{keyVectorPath, settings.VectorStore.Path},
		{keyVectorColl, settings.VectorStore.Collection},
		{keyVectorDSN, settings.VectorStore.DSN},
		{keyChunkStrategy, settings.Chunking.Strategy},
		{keyChunkSize, settings.Chunking.Size},
		{keyChunkOverlap, settings.Chunking.Overlap},
		{keyExtractEngine, settings.Extraction.Engine},
		{keyUploadDir, settings.Uploads.Dir},
		{keyUploadMaxSize, settings.Uploads.MaxSize},
		{keyUploadAllowed, settings.Uploads.AllowedExtensions},
		{keyFragmentSize, settings.Query.FragmentSize},
		{keyStreamDelay, settings.Query.StreamDelay.String()},
		{keyServerHost, settings.Server.Host},
		{keyServerPort, settings.Server.Port},
		{keyServerCORS, settings.Server.CORSOrigins},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	if settings.Embedding.APIKey != "" {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save %s: %w", keyEmbedAPIKey, err)
		}
	}
	if settings.Answer.LLM.APIKey != "" {
		if err := s.configStore.Set(keyLLMAPIKey, settings.Answer.LLM.APIKey); err != nil {
			return fmt.Errorf("save %s: %w", keyLLMAPIKey, err)
		}
	}

	return nil
}

// Set stores a single dotted key.
func (s *SettingsService) Set(key string, value any) error {
	if key == "" {
		return fmt.Errorf("%w: empty settings key", domain.ErrValidation)
	}
	return s.configStore.Set(key, value)
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.Settings {
	return domain.DefaultSettings(s.dataDir)
}

// Validate loads the current settings and checks them.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return settings.Validate()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the answer LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.Answer.LLM)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	val := s.configStore.GetFloat(key)
	if val < 0 {
		return defaultVal
	}
	return val
}

// getDuration keeps an explicit zero, which disables stream pacing.
func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	raw, exists := s.configStore.Get(key)
	if !exists {
		return defaultVal
	}
	val := s.configStore.GetDuration(key)
	if val < 0 || (val == 0 && !isZeroValue(raw)) {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getStringSlice(key string, defaultVal []string) []string {
	val := s.configStore.GetStringSlice(key)
	if len(val) == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	provider := domain.AIProvider(s.configStore.GetString(key))
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getAnswerMode(defaultVal domain.AnswerMode) domain.AnswerMode {
	mode := domain.AnswerMode(s.configStore.GetString(keyAnswerMode))
	switch mode {
	case domain.AnswerModeTemplate, domain.AnswerModeLLM:
		return mode
	default:
		return defaultVal
	}
}

func (s *SettingsService) getBackend(defaultVal domain.VectorBackend) domain.VectorBackend {
	backend := domain.VectorBackend(s.configStore.GetString(keyVectorBackend))
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}

// isZeroValue reports whether a raw config value spells zero ("0", "0s", 0).
func isZeroValue(raw any) bool {
	switch v := raw.(type) {
	case string:
		return v == "0" || v == "0s" || v == "0ms"
	case int:
		return v == 0
	case int64:
		return v == 0
	case float64:
		return v == 0
	case time.Duration:
		return v == 0
	default:
		return false
	}
}
