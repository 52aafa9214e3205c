// Command neuroquery ingests PDF documents and answers questions about them.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/custodia-labs/neuroquery/internal/adapters/driving/cli"
	"github.com/custodia-labs/neuroquery/internal/app"
	"github.com/custodia-labs/neuroquery/internal/core/ports/driving"
	"github.com/custodia-labs/neuroquery/internal/core/services"
)

// version is set with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetVersion(version)
	cli.SetBootstrap(bootstrap)
	cli.SetSettingsBootstrap(func(opts cli.Options) (driving.SettingsService, error) {
		return app.OpenSettings(appOptions(opts))
	})

	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func bootstrap(ctx context.Context, opts cli.Options) (*cli.Services, error) {
	a, err := app.New(ctx, appOptions(opts))
	if err != nil {
		return nil, err
	}
	return &cli.Services{
		Pipeline: a.Pipeline(),
		Settings: a.SettingsService(),
		Config:   a.Settings(),
		Start:    a.Start,
		Close:    a.Close,
	}, nil
}

// appOptions maps the global flags onto app options. A .env file in the
// working directory takes precedence over one in the data directory.
func appOptions(opts cli.Options) app.Options {
	dataDir := opts.DataDir
	if dataDir == "" {
		dataDir = services.DefaultDataDir()
	}
	return app.Options{
		ConfigPath: opts.ConfigPath,
		DataDir:    opts.DataDir,
		Ephemeral:  opts.Ephemeral,
		EnvFiles:   []string{".env", filepath.Join(dataDir, ".env")},
	}
}
