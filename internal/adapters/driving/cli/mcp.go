package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/neuroquery/internal/adapters/driving/mcp"
)

var mcpPort int

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

By default, the server communicates over stdio using JSON-RPC and can be
used with desktop assistants and other MCP clients. The ingestion worker
runs alongside it so ingest_file calls are processed.

Use --port to serve streamable HTTP instead, for MCP Inspector or remote
clients.

Examples:
  # Stdio mode (default)
  neuroquery mcp

  # HTTP mode
  neuroquery mcp --port 8080

Client configuration:
  {
    "mcpServers": {
      "neuroquery": {
        "command": "/path/to/neuroquery",
        "args": ["mcp"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().IntVarP(&mcpPort, "port", "p", 0, "HTTP port (0 = use stdio)")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	s, err := requireServices(cmd)
	if err != nil {
		return err
	}

	server, err := mcp.NewServer(&mcp.Ports{Pipeline: s.Pipeline}, mcp.WithVersion(version))
	if err != nil {
		return err
	}
	if err := startWorker(cmd, s); err != nil {
		return err
	}

	ctx := commandContext(cmd)
	if mcpPort > 0 {
		addr := fmt.Sprintf(":%d", mcpPort)
		outf(cmd, "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(ctx, addr)
	}
	return server.Run(ctx)
}
