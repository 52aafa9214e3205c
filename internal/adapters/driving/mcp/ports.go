package mcp

import (
	"github.com/custodia-labs/neuroquery/internal/core/ports/driving"
)

// Ports aggregates the driving ports required by the MCP server.
type Ports struct {
	// Pipeline serves ingestion and retrieval.
	Pipeline driving.PipelineService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Pipeline == nil {
		return ErrMissingPipeline
	}
	return nil
}
