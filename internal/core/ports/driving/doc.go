// Package driving defines the interfaces through which the CLI and
// the MCP server drive the core: searching, indexing, container and
// annotation management, and confined workspace reads.
//
// Implementations live in internal/core/services.
package driving
