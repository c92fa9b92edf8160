// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import (
	"context"

	"github.com/rememex/rememex-cli/internal/core/domain"
)

// EmbeddingProvider generates vector embeddings from text.
//
// Passages and queries may be encoded differently by the model (asymmetric
// retrieval), so the two directions have separate methods.
//
// Implementations may include:
//   - Local inference servers (bge-m3, nomic-embed-text)
//   - Remote OpenAI-compatible endpoints (text-embedding-3-small)
type EmbeddingProvider interface {
	// EmbedPassages generates embeddings for document fragments.
	// The result has one vector per input, in order.
	EmbedPassages(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a search query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 1024, 1536).
	// This must match the container's provider identity.
	Dimensions() int

	// Identity returns the provider identity used to stamp containers.
	Identity() domain.ProviderIdentity

	// Ping validates the provider is reachable with a lightweight request.
	// This is used at startup to verify connectivity before indexing.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
