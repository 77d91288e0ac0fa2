package mcp

import (
	"github.com/custodia-labs/clipsearch/internal/core/ports/driving"
)

// Ports aggregates the driving ports the MCP server calls.
type Ports struct {
	// Search resolves queries into image results.
	Search driving.SearchService

	// Engine exposes corpus statistics, catalog lookups and reloads.
	// Optional: without it only the search tool is useful.
	Engine driving.SimilarityEngine
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	return nil
}
