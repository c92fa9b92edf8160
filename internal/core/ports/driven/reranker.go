package driven

import "context"

// Reranker scores query-passage pairs with a cross-encoder.
// This is an optional service - when nil, results keep the fused order.
type Reranker interface {
	// Rerank returns one relevance logit per passage, in input order.
	// Higher is more relevant. Scores are raw model outputs; callers
	// normalise them for display.
	Rerank(ctx context.Context, query string, passages []string) ([]float64, error)
}
