// Package app wires settings into a running pipeline: it opens the configured
// stores, builds the extractor, chunker, embedder and answer generator, and
// owns their lifetime.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/custodia-labs/neuroquery/internal/adapters/driven/ai"
	"github.com/custodia-labs/neuroquery/internal/adapters/driven/config/env"
	"github.com/custodia-labs/neuroquery/internal/adapters/driven/config/file"
	"github.com/custodia-labs/neuroquery/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/neuroquery/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/neuroquery/internal/adapters/driven/storage/uploads"
	vectormem "github.com/custodia-labs/neuroquery/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/neuroquery/internal/adapters/driven/vector/pgvector"
	vectorsqlite "github.com/custodia-labs/neuroquery/internal/adapters/driven/vector/sqlite"
	"github.com/custodia-labs/neuroquery/internal/chunker"
	"github.com/custodia-labs/neuroquery/internal/core/domain"
	"github.com/custodia-labs/neuroquery/internal/core/ports/driven"
	"github.com/custodia-labs/neuroquery/internal/core/services"
	"github.com/custodia-labs/neuroquery/internal/extractors"
	"github.com/custodia-labs/neuroquery/internal/logger"
)

// Options selects where configuration and state live.
type Options struct {
	// ConfigPath is an explicit config file. Empty uses DataDir/config.toml.
	ConfigPath string

	// DataDir is the root for persisted state. Empty uses ~/.neuroquery.
	DataDir string

	// Ephemeral keeps documents, vectors and uploads in memory and a temp
	// directory that is removed on Close. Settings are read from ConfigPath
	// when given, otherwise from the environment only.
	Ephemeral bool

	// EnvFiles are .env files loaded before settings are read.
	EnvFiles []string
}

// App is the wired application.
type App struct {
	settings        *domain.Settings
	settingsService *services.SettingsService
	pipeline        *services.Pipeline

	// The pipeline owns index and embedder once built; closers are ours.
	index     driven.VectorIndex
	embedder  driven.Embedder
	closers   []io.Closer
	tempDir   string
	closeOnce sync.Once
}

// OpenSettings loads .env files and opens the settings service without
// validating or building anything else.
func OpenSettings(opts Options) (*services.SettingsService, error) {
	if err := env.LoadDotEnv(opts.EnvFiles...); err != nil {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	dataDir := opts.DataDir
	if dataDir == "" {
		dataDir = services.DefaultDataDir()
	}

	configStore, err := openConfigStore(opts, dataDir)
	if err != nil {
		return nil, err
	}
	return services.NewSettingsService(env.New(configStore), ai.NewConfigValidator(), dataDir), nil
}

// New builds every backend named by the settings. Nothing runs until Start.
func New(ctx context.Context, opts Options) (*App, error) {
	settingsService, err := OpenSettings(opts)
	if err != nil {
		return nil, err
	}
	a := &App{settingsService: settingsService}

	settings, err := a.settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	if opts.Ephemeral {
		tmp, err := os.MkdirTemp("", "neuroquery-*")
		if err != nil {
			return nil, fmt.Errorf("creating temp dir: %w", err)
		}
		a.tempDir = tmp
		settings.VectorStore.Backend = domain.VectorBackendMemory
		settings.Uploads.Dir = filepath.Join(tmp, "uploads")
	}
	if err := settings.Validate(); err != nil {
		a.Close()
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	a.settings = settings

	deps, err := a.buildDeps(ctx, settings, opts.Ephemeral)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.pipeline = services.NewPipeline(deps, services.PipelineConfigFromSettings(settings))
	logger.Debug("app: backend=%s embedder=%s/%s extractor=%s chunker=%s answer=%s",
		settings.VectorStore.Backend, settings.Embedding.Provider, deps.Embedder.ModelName(),
		deps.Extractor.Name(), deps.Chunker.Name(), deps.Generator.Name())

	return a, nil
}

func openConfigStore(opts Options, dataDir string) (driven.ConfigStore, error) {
	switch {
	case opts.ConfigPath != "":
		store, err := file.NewConfigStoreAt(opts.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("opening config %s: %w", opts.ConfigPath, err)
		}
		return store, nil
	case opts.Ephemeral:
		return memory.NewConfigStore(), nil
	default:
		store, err := file.NewConfigStore(dataDir)
		if err != nil {
			return nil, fmt.Errorf("opening config in %s: %w", dataDir, err)
		}
		return store, nil
	}
}

// buildDeps opens the stores and constructs the pipeline collaborators.
// Anything opened before a failure is registered with the app and released by Close.
func (a *App) buildDeps(ctx context.Context, s *domain.Settings, ephemeral bool) (services.PipelineDeps, error) {
	var deps services.PipelineDeps

	docs, err := a.openDocumentStore(s, ephemeral)
	if err != nil {
		return deps, err
	}
	deps.Documents = docs

	uploadStore, err := uploads.NewStore(s.Uploads.Dir)
	if err != nil {
		return deps, err
	}
	deps.Uploads = uploadStore

	extractor, err := extractors.DefaultRegistry().Get(s.Extraction.Engine)
	if err != nil {
		return deps, err
	}
	deps.Extractor = extractor

	chunk, err := chunker.DefaultRegistry().Build(s.Chunking)
	if err != nil {
		return deps, err
	}
	deps.Chunker = chunk

	embedder, err := ai.CreateEmbedder(&s.Embedding)
	if err != nil {
		return deps, fmt.Errorf("creating embedder: %w", err)
	}
	a.embedder = embedder
	deps.Embedder = embedder

	index, err := OpenIndex(ctx, &s.VectorStore, s.Embedding.Dimensions)
	if err != nil {
		return deps, err
	}
	a.index = index
	deps.Index = index

	deps.Generator = a.buildGenerator(s)
	return deps, nil
}

func (a *App) openDocumentStore(s *domain.Settings, ephemeral bool) (driven.DocumentStore, error) {
	if ephemeral || s.VectorStore.Backend == domain.VectorBackendMemory {
		return memory.NewDocumentStore(), nil
	}
	store, err := sqlite.NewStore(s.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening document registry: %w", err)
	}
	a.closers = append(a.closers, store)
	return store.DocumentStore(), nil
}

// OpenIndex opens the vector index selected by cfg.Backend.
func OpenIndex(ctx context.Context, cfg *domain.VectorStoreSettings, dimension int) (driven.VectorIndex, error) {
	switch cfg.Backend {
	case domain.VectorBackendSQLite, "":
		return vectorsqlite.Open(cfg.Path, cfg.Collection, dimension)
	case domain.VectorBackendPGVector:
		return pgvector.Open(ctx, cfg.DSN, cfg.Collection, dimension)
	case domain.VectorBackendMemory:
		return vectormem.New(dimension), nil
	default:
		return nil, fmt.Errorf("%w: vector backend %q", domain.ErrUnsupportedType, cfg.Backend)
	}
}

// buildGenerator returns the LLM generator when configured, falling back to the template.
func (a *App) buildGenerator(s *domain.Settings) driven.AnswerGenerator {
	if s.Answer.Mode != domain.AnswerModeLLM {
		return services.NewTemplateGenerator()
	}

	llm, err := ai.CreateLLMService(&s.Answer.LLM)
	if err != nil || llm == nil {
		logger.Warn("answer: llm unavailable, using template answers: %v", errors.Join(domain.ErrLLMUnavailable, err))
		return services.NewTemplateGenerator()
	}
	a.closers = append(a.closers, llm)

	prompts, err := file.NewPromptStore(filepath.Join(s.DataDir, "prompts"))
	if err != nil {
		logger.Warn("answer: prompt store unavailable, using template answers: %v", err)
		return services.NewTemplateGenerator()
	}
	if err := prompts.Seed(); err != nil {
		logger.Warn("answer: built-in prompts in use: %v", err)
	}
	return services.NewLLMGenerator(llm, prompts)
}

// Settings returns the effective settings.
func (a *App) Settings() *domain.Settings {
	return a.settings
}

// SettingsService returns the settings service backing the app.
func (a *App) SettingsService() *services.SettingsService {
	return a.settingsService
}

// Pipeline returns the ingestion and retrieval facade.
func (a *App) Pipeline() *services.Pipeline {
	return a.pipeline
}

// Start recovers interrupted documents and launches the ingestion worker.
func (a *App) Start(ctx context.Context) error {
	return a.pipeline.Start(ctx)
}

// Close stops the worker and releases every backend. Only the first call has effect.
func (a *App) Close() error {
	var errs []error
	a.closeOnce.Do(func() {
		if a.pipeline != nil {
			errs = append(errs, a.pipeline.Close())
		} else {
			if a.index != nil {
				errs = append(errs, a.index.Close())
			}
			if a.embedder != nil {
				errs = append(errs, a.embedder.Close())
			}
		}
		for _, c := range a.closers {
			errs = append(errs, c.Close())
		}
		if a.tempDir != "" {
			errs = append(errs, os.RemoveAll(a.tempDir))
		}
	})
	return errors.Join(errs...)
}
