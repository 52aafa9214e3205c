package cli

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/neuroquery/internal/adapters/driving/api"
	"github.com/custodia-labs/neuroquery/internal/core/domain"
	"github.com/custodia-labs/neuroquery/internal/logger"
)

var (
	serveHost string
	servePort int
)

// listen serves the HTTP API. Tests replace it to avoid binding a port.
var listen = api.ListenAndServe

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the ingestion worker",
	Long: `Serve the REST API under /api and process uploads in the background.

Endpoints:
  GET    /api/health
  POST   /api/upload               multipart field "file"
  POST   /api/query                server-sent answer stream
  POST   /api/search               blocking answer
  GET    /api/documents
  GET    /api/documents/{file_id}
  DELETE /api/documents/{file_id}
  GET    /api/stats`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "listen host (overrides server.host)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	s, err := requireServices(cmd)
	if err != nil {
		return err
	}
	if err := startWorker(cmd, s); err != nil {
		return err
	}

	logger.SetTimestamps(true)

	settings := s.Config
	if settings == nil {
		defaults := domain.DefaultSettings("")
		settings = &defaults
	}
	addr := serveAddr(settings.Server, serveHost, servePort)

	handler := api.NewServer(s.Pipeline, api.ConfigFromSettings(settings, version))
	if err := listen(commandContext(cmd), addr, handler); err != nil {
		return fmt.Errorf("serving %s: %w", addr, err)
	}
	return nil
}

// serveAddr applies the flag overrides to the configured address.
func serveAddr(cfg domain.ServerSettings, host string, port int) string {
	if host != "" {
		cfg.Host = host
	}
	if port > 0 {
		cfg.Port = port
	}
	return net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
}
