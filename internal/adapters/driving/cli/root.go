// Package cli implements the neuroquery command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/neuroquery/internal/core/domain"
	"github.com/custodia-labs/neuroquery/internal/core/ports/driving"
	"github.com/custodia-labs/neuroquery/internal/logger"
)

// version is set at build time via SetVersion.
var version = "dev"

// Global flags.
var (
	configPath string
	dataDir    string
	verbose    bool
	ephemeral  bool
)

// ErrNotConfigured is returned when a command runs without services.
var ErrNotConfigured = errors.New("services not configured")

// Options are the global flags handed to the bootstrap function.
type Options struct {
	ConfigPath string
	DataDir    string
	Ephemeral  bool
}

// Services are the core services the commands drive.
type Services struct {
	Pipeline driving.PipelineService
	Settings driving.SettingsService

	// Config is the validated settings the services were built from.
	Config *domain.Settings

	// Start launches the ingestion worker. Nil when there is no worker.
	Start func(ctx context.Context) error

	// Close releases every resource. May be nil.
	Close func() error
}

// Bootstrap builds the services from the global flags.
type Bootstrap func(ctx context.Context, opts Options) (*Services, error)

// SettingsBootstrap opens only the settings service, without validating
// the settings, so that the settings commands work on a broken config.
type SettingsBootstrap func(opts Options) (driving.SettingsService, error)

var (
	bootstrap         Bootstrap
	settingsBootstrap SettingsBootstrap
	services          *Services
)

var rootCmd = &cobra.Command{
	Use:   "neuroquery",
	Short: "Ask questions about your PDF documents",
	Long: `neuroquery ingests PDF documents into a local vector index and answers
questions about them with cited sources.

Documents are extracted, chunked and embedded in the background. Answers
are streamed over HTTP, printed on the command line, or shown in an
interactive chat.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "path to a config.toml file")
	flags.StringVar(&dataDir, "data-dir", "", "data directory (default ~/.neuroquery)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	flags.BoolVar(&ephemeral, "ephemeral", false, "keep everything in memory and discard it on exit")
}

// SetVersion sets the version reported by the version command and the API.
func SetVersion(v string) {
	version = v
}

// SetBootstrap sets the function that builds services on first use.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// SetSettingsBootstrap sets the function that opens the settings service.
func SetSettingsBootstrap(b SettingsBootstrap) {
	settingsBootstrap = b
}

// SetServices installs already-built services, bypassing the bootstrap.
func SetServices(s *Services) {
	services = s
}

// Execute runs the root command and releases services afterwards.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if closeErr := closeServices(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

func closeServices() error {
	if services == nil || services.Close == nil {
		return nil
	}
	err := services.Close()
	services = nil
	return err
}

// requireServices returns the services, building them on first use.
func requireServices(cmd *cobra.Command) (*Services, error) {
	if services != nil {
		return services, nil
	}
	if bootstrap == nil {
		return nil, ErrNotConfigured
	}

	s, err := bootstrap(commandContext(cmd), globalOptions())
	if err != nil {
		return nil, fmt.Errorf("initialising: %w", err)
	}
	if s == nil || s.Pipeline == nil {
		return nil, ErrNotConfigured
	}
	services = s
	return services, nil
}

// requireSettings returns the settings service. It does not build the pipeline.
func requireSettings(cmd *cobra.Command) (driving.SettingsService, error) {
	if services != nil && services.Settings != nil {
		return services.Settings, nil
	}
	if settingsBootstrap == nil {
		return nil, ErrNotConfigured
	}
	svc, err := settingsBootstrap(globalOptions())
	if err != nil {
		return nil, fmt.Errorf("opening settings: %w", err)
	}
	return svc, nil
}

func globalOptions() Options {
	return Options{
		ConfigPath: configPath,
		DataDir:    dataDir,
		Ephemeral:  ephemeral,
	}
}

// startWorker launches the ingestion worker for commands that ingest.
func startWorker(cmd *cobra.Command, s *Services) error {
	if s.Start == nil {
		return nil
	}
	if err := s.Start(commandContext(cmd)); err != nil {
		return fmt.Errorf("starting worker: %w", err)
	}
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// outf writes command output to stdout. cobra's Printf writes to stderr
// unless an output writer is set.
func outf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}

func outln(cmd *cobra.Command, args ...any) {
	fmt.Fprintln(cmd.OutOrStdout(), args...)
}
