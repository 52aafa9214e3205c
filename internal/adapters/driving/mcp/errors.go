// Package mcp provides an MCP (Model Context Protocol) server adapter for neuroquery.
// It lets AI assistants query, inspect and feed the local document index.
package mcp

import "errors"

// ErrMissingPipeline is returned when the pipeline service is not provided.
var ErrMissingPipeline = errors.New("mcp: pipeline service is required")
