// Package tui provides an interactive chat interface over the document index.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/neuroquery/internal/core/ports/driving"
)

// Ports aggregates the driving ports required by the TUI.
type Ports struct {
	// Pipeline answers questions and reports index stats.
	Pipeline driving.PipelineService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Pipeline == nil {
		return ErrMissingPipeline
	}
	return nil
}
