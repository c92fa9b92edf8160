package mcp

import (
	"github.com/rememex/rememex-cli/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Search provides hybrid retrieval.
	Search driving.SearchService

	// Indexer builds and maintains container indexes.
	Indexer driving.IndexerService

	// Container manages index containers.
	Container driving.ContainerService

	// Annotation manages notes attached to paths.
	Annotation driving.AnnotationService

	// Workspace provides confined reads over indexed folders.
	Workspace driving.WorkspaceService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	if p.Indexer == nil {
		return ErrMissingIndexerService
	}
	// Container, Annotation and Workspace tools degrade when absent
	return nil
}
