package domain

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// SupportsEmbeddings returns true if the provider can serve as an embedder.
func (p AIProvider) SupportsEmbeddings() bool {
	return p == AIProviderOllama || p == AIProviderOpenAI
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// VectorBackend identifies a vector index implementation.
type VectorBackend string

// Available vector index backends.
const (
	VectorBackendSQLite   VectorBackend = "sqlite"
	VectorBackendPGVector VectorBackend = "pgvector"
	VectorBackendMemory   VectorBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	switch b {
	case VectorBackendSQLite, VectorBackendPGVector, VectorBackendMemory:
		return true
	default:
		return false
	}
}

// AnswerMode selects how answers are synthesised from retrieved context.
type AnswerMode string

// Available answer modes.
const (
	// AnswerModeTemplate renders a deterministic template from the sources.
	AnswerModeTemplate AnswerMode = "template"

	// AnswerModeLLM prompts the configured LLM with the retrieved context.
	AnswerModeLLM AnswerMode = "llm"
)

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint. Empty selects the provider default.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions is the vector size every embedding must have.
	Dimensions int

	// BatchSize is the number of chunks sent per embedding request.
	BatchSize int

	// RequestsPerSecond paces remote provider calls. Zero disables pacing.
	RequestsPerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.SupportsEmbeddings() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// AnswerSettings configures answer synthesis.
type AnswerSettings struct {
	// Mode selects the answer generator.
	Mode AnswerMode

	// LLM is used when Mode is AnswerModeLLM.
	LLM LLMSettings
}

// VectorStoreSettings configures the vector index.
type VectorStoreSettings struct {
	// Backend selects the implementation.
	Backend VectorBackend

	// Path is the directory holding the sqlite index.
	Path string

	// Collection is the named collection chunks are stored in.
	Collection string

	// DSN is the Postgres connection string for the pgvector backend.
	DSN string
}

// ChunkingSettings configures the chunker.
type ChunkingSettings struct {
	// Strategy is the registered chunker name ("words" or "recursive").
	Strategy string

	// Size is the target chunk length in characters.
	Size int

	// Overlap is how much trailing content carries into the next chunk.
	Overlap int
}

// ExtractionSettings configures PDF text extraction.
type ExtractionSettings struct {
	// Engine is the registered extractor name ("pdf" or "mupdf").
	Engine string
}

// UploadSettings configures intake of raw files.
type UploadSettings struct {
	// Dir is where raw uploads are retained as {file_id}_{filename}.
	Dir string

	// MaxSize is the largest accepted upload in bytes.
	MaxSize int64

	// AllowedExtensions lists accepted file extensions, lower case with the dot.
	AllowedExtensions []string
}

// QuerySettings configures the query pipeline.
type QuerySettings struct {
	// FragmentSize is the number of characters per streamed answer fragment.
	FragmentSize int

	// StreamDelay paces streamed fragments. Zero streams as fast as the reader consumes.
	StreamDelay time.Duration
}

// ServerSettings configures the HTTP API.
type ServerSettings struct {
	Host        string
	Port        int
	CORSOrigins []string
}

// Addr returns the listen address.
func (s ServerSettings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Settings holds all application settings.
type Settings struct {
	// DataDir is the root directory for persisted state.
	DataDir string

	Embedding   EmbeddingSettings
	Answer      AnswerSettings
	VectorStore VectorStoreSettings
	Chunking    ChunkingSettings
	Extraction  ExtractionSettings
	Uploads     UploadSettings
	Query       QuerySettings
	Server      ServerSettings
}

// Default values.
const (
	DefaultCollection        = "neuroquery_documents"
	DefaultEmbeddingModel    = "all-minilm"
	DefaultDimensions        = 384
	DefaultEmbeddingBatch    = 32
	DefaultChunkStrategy     = "words"
	DefaultChunkSize         = 1000
	DefaultChunkOverlap      = 200
	DefaultExtractionEngine  = "pdf"
	DefaultMaxUploadSize     = 10 * 1024 * 1024
	DefaultFragmentSize      = 50
	DefaultStreamDelay       = 10 * time.Millisecond
	DefaultServerPort        = 8000
	DefaultRequestsPerSecond = 0
)

// DefaultSettings returns settings rooted at dataDir.
// The defaults run entirely locally: Ollama embeddings, a sqlite index and template answers.
func DefaultSettings(dataDir string) Settings {
	return Settings{
		DataDir: dataDir,
		Embedding: EmbeddingSettings{
			Provider:          AIProviderOllama,
			Model:             DefaultEmbeddingModel,
			Dimensions:        DefaultDimensions,
			BatchSize:         DefaultEmbeddingBatch,
			RequestsPerSecond: DefaultRequestsPerSecond,
		},
		Answer: AnswerSettings{
			Mode: AnswerModeTemplate,
		},
		VectorStore: VectorStoreSettings{
			Backend:    VectorBackendSQLite,
			Path:       filepath.Join(dataDir, "vectors"),
			Collection: DefaultCollection,
		},
		Chunking: ChunkingSettings{
			Strategy: DefaultChunkStrategy,
			Size:     DefaultChunkSize,
			Overlap:  DefaultChunkOverlap,
		},
		Extraction: ExtractionSettings{
			Engine: DefaultExtractionEngine,
		},
		Uploads: UploadSettings{
			Dir:               filepath.Join(dataDir, "uploads"),
			MaxSize:           DefaultMaxUploadSize,
			AllowedExtensions: []string{".pdf"},
		},
		Query: QuerySettings{
			FragmentSize: DefaultFragmentSize,
			StreamDelay:  DefaultStreamDelay,
		},
		Server: ServerSettings{
			Host:        "0.0.0.0",
			Port:        DefaultServerPort,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
	}
}

// Validate checks settings for configuration errors.
func (s *Settings) Validate() error {
	if !s.Embedding.Provider.SupportsEmbeddings() {
		return fmt.Errorf("%w: embedding provider %q", ErrUnsupportedType, s.Embedding.Provider)
	}
	if s.Embedding.Provider.RequiresAPIKey() && s.Embedding.APIKey == "" {
		return fmt.Errorf("%w: API key required for %s embeddings", ErrValidation, s.Embedding.Provider)
	}
	if s.Embedding.Dimensions <= 0 {
		return fmt.Errorf("%w: embedding dimensions must be positive", ErrValidation)
	}
	if !s.VectorStore.Backend.IsValid() {
		return fmt.Errorf("%w: vector backend %q", ErrUnsupportedType, s.VectorStore.Backend)
	}
	if s.VectorStore.Backend == VectorBackendPGVector && s.VectorStore.DSN == "" {
		return fmt.Errorf("%w: pgvector backend requires a dsn", ErrValidation)
	}
	if s.VectorStore.Collection == "" {
		return fmt.Errorf("%w: collection name is required", ErrValidation)
	}
	switch s.Answer.Mode {
	case AnswerModeTemplate:
	case AnswerModeLLM:
		if !s.Answer.LLM.IsConfigured() {
			return fmt.Errorf("%w: answer mode llm requires a configured llm provider", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: answer mode %q", ErrUnsupportedType, s.Answer.Mode)
	}
	if s.Uploads.MaxSize <= 0 {
		return fmt.Errorf("%w: upload max size must be positive", ErrValidation)
	}
	if s.Query.FragmentSize <= 0 {
		return fmt.Errorf("%w: fragment size must be positive", ErrValidation)
	}
	if s.Query.StreamDelay < 0 {
		return fmt.Errorf("%w: stream delay cannot be negative", ErrValidation)
	}
	return nil
}

// AllowsExtension reports whether filename has an accepted extension.
func (u UploadSettings) AllowsExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range u.AllowedExtensions {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: DefaultEmbeddingModel,
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the native vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"all-minilm":        384,
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
