// Package driving holds the interfaces the HTTP API, CLI, MCP server and
// chat TUI call into. internal/core/services implements them.
package driving
