// Package domain defines the core business entities for Rememex.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Container: An isolated index with its own provider identity
//   - Fragment: A searchable unit of an indexed file
//   - Annotation: A user or agent note attached to a path
//   - SearchResult: A scored, deduplicated retrieval hit
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
