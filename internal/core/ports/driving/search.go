package driving

import (
	"context"

	"github.com/rememex/rememex-cli/internal/core/domain"
)

// SearchService provides hybrid retrieval over indexed containers.
type SearchService interface {
	// Search runs the full retrieval pipeline: query expansion, dense and
	// keyword search, rank fusion, annotation overlay, optional reranking,
	// score normalisation and per-file deduplication.
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error)

	// Related ranks indexed files by similarity to the given file,
	// excluding the file itself. topK is capped at 30.
	Related(ctx context.Context, path string, topK int) ([]domain.RelatedResult, error)
}
