// Package mcp provides an MCP (Model Context Protocol) server adapter for
// Rememex. It lets AI assistants search, read and maintain local indexes.
package mcp

import "errors"

// Required-port errors returned by Ports.Validate.
var (
	// ErrMissingSearchService is returned when the search service is not provided.
	ErrMissingSearchService = errors.New("mcp: search service is required")

	// ErrMissingIndexerService is returned when the indexer service is not provided.
	ErrMissingIndexerService = errors.New("mcp: indexer service is required")
)
