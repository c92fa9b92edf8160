package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/rememex/rememex-cli/internal/chunker"
	"github.com/rememex/rememex-cli/internal/core/domain"
	"github.com/rememex/rememex-cli/internal/core/ports/driven"
	"github.com/rememex/rememex-cli/internal/core/ports/driving"
	"github.com/rememex/rememex-cli/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// Retrieval constants.
const (
	// rrfK dampens rank contributions in reciprocal rank fusion.
	rrfK = 60

	// rerankWindow is the maximum number of candidates sent to the reranker.
	rerankWindow = 50

	// rerankMinScore drops reranked results below this normalised score.
	rerankMinScore = 1.0

	// maxRelated caps the Related result count.
	maxRelated = 30

	// maxTopK and maxContextBytes bound caller-supplied options.
	maxTopK         = 50
	maxContextBytes = 10000

	defaultTopK = 10
)

// candidate holds an intermediate retrieval hit before scoring.
type candidate struct {
	path    string
	ordinal int
	text    string
	score   float64
	source  string // "rrf", "vector", or "annotation"
}

// SearchService provides hybrid retrieval over indexed containers.
type SearchService struct {
	store    driven.FragmentStore
	embedder driven.EmbeddingProvider
	registry driven.ContainerRegistry
	reranker driven.Reranker
}

// NewSearchService creates a new search service.
// The reranker is optional (can be nil).
func NewSearchService(
	store driven.FragmentStore,
	embedder driven.EmbeddingProvider,
	registry driven.ContainerRegistry,
	reranker driven.Reranker,
) *SearchService {
	return &SearchService{
		store:    store,
		embedder: embedder,
		registry: registry,
		reranker: reranker,
	}
}

// Search runs the full retrieval pipeline.
func (s *SearchService) Search(
	ctx context.Context, query string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	logger.Section("Search Execution")
	logger.Debug("Query: %q", query)

	query = strings.TrimSpace(query)
	if query == "" {
		logger.Debug("Empty query, returning no results")
		return []domain.SearchResult{}, nil
	}
	if err := validateOptions(opts); err != nil {
		return nil, err
	}

	container := opts.Container
	if container == "" {
		container = s.registry.Active()
	}
	logger.Debug("Container: %s", container)

	c, err := s.registry.Get(container)
	if err != nil {
		return nil, fmt.Errorf("container %s: %w", container, err)
	}
	if !c.Provider.Matches(s.embedder.Identity()) {
		return nil, fmt.Errorf("container %s built with %s/%s (%dd): %w",
			c.Name, c.Provider.Provider, c.Provider.Model, c.Provider.Dimensions,
			domain.ErrProviderMismatch)
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	// Retrieve a wide candidate pool so fusion and filtering have room.
	kDense := topK * 4
	if kDense < 50 {
		kDense = 50
	}

	variants := chunker.ExpandQuery(query)
	logger.Debug("Query variants: %d", len(variants))

	candidates, hybrid, queryVec, err := s.retrieve(ctx, container, query, variants, kDense)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	logger.Debug("Raw candidates: %d", len(candidates))

	// Overlay annotations under their pseudo-paths, reusing the query
	// vector from the dense stage.
	candidates, err = s.overlayAnnotations(ctx, container, queryVec, candidates, topK)
	if err != nil {
		logger.Warn("Annotation overlay failed: %v", err)
	}

	// Filter before reranking so the rerank window is not wasted on
	// results the caller will never see.
	candidates = filterCandidates(candidates, opts)
	logger.Debug("After filters: %d candidates", len(candidates))

	reranked := false
	if s.reranker != nil && !opts.DisableRerank && len(candidates) > 0 {
		candidates, reranked = s.rerank(ctx, query, candidates)
	}
	if !reranked {
		normaliseScores(candidates, hybrid)
	}

	results := dedupePerFile(candidates)

	if reranked || opts.MinScore > 0 {
		minScore := opts.MinScore
		if reranked && minScore < rerankMinScore {
			minScore = rerankMinScore
		}
		results = filterMinScore(results, minScore)
	}

	sortResults(results)
	if len(results) > topK {
		results = results[:topK]
	}

	if opts.ContextBytes > 0 {
		for i := range results {
			results[i].Snippet = truncateSnippet(results[i].Snippet, opts.ContextBytes)
		}
	}

	logger.Info("Final results: %d", len(results))
	return results, nil
}

// validateOptions rejects option values outside the documented bounds.
func validateOptions(opts domain.SearchOptions) error {
	if opts.TopK > maxTopK {
		return fmt.Errorf("top_k %d exceeds %d: %w", opts.TopK, maxTopK, domain.ErrInvalidInput)
	}
	if opts.ContextBytes > maxContextBytes {
		return fmt.Errorf("context_bytes %d exceeds %d: %w", opts.ContextBytes, maxContextBytes, domain.ErrInvalidInput)
	}
	if opts.MinScore < 0 || opts.MinScore > 100 {
		return fmt.Errorf("min_score %g outside [0, 100]: %w", opts.MinScore, domain.ErrInvalidInput)
	}
	return nil
}

// retrieve runs dense and keyword search for every query variant and fuses
// the ranked lists. Reports whether keyword results contributed (hybrid) and
// returns the raw query's embedding for reuse by the annotation overlay.
func (s *SearchService) retrieve(
	ctx context.Context, container, query string, variants []string, kDense int,
) ([]candidate, bool, []float32, error) {
	type rankedList struct {
		hits []candidate
	}

	var mu sync.Mutex
	var lists []rankedList
	var queryVec []float32
	var denseErr, keywordErr error
	keywordHits := false

	var wg sync.WaitGroup
	for _, variant := range variants {
		wg.Add(2)

		go func(q string) {
			defer wg.Done()
			hits, vec, err := s.denseSearch(ctx, container, q, kDense)
			mu.Lock()
			defer mu.Unlock()
			if q == query && vec != nil {
				queryVec = vec
			}
			if err != nil {
				denseErr = err
				return
			}
			lists = append(lists, rankedList{hits: hits})
		}(variant)

		go func(q string) {
			defer wg.Done()
			hits, err := s.keywordSearch(ctx, container, q, kDense)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				keywordErr = err
				return
			}
			if len(hits) > 0 {
				keywordHits = true
			}
			lists = append(lists, rankedList{hits: hits})
		}(variant)
	}
	wg.Wait()

	if denseErr != nil && keywordErr != nil {
		return nil, false, nil, fmt.Errorf("dense=%v, keyword=%w", denseErr, keywordErr)
	}
	if denseErr != nil {
		logger.Warn("Dense search failed, keyword results only: %v", denseErr)
	}
	if keywordErr != nil {
		logger.Warn("Keyword search failed, dense results only: %v", keywordErr)
	}

	// Hybrid means at least two lists contributed, otherwise the single
	// dense list keeps its similarity scores.
	if len(lists) == 1 || (denseErr == nil && !keywordHits) {
		var only []candidate
		for _, l := range lists {
			for _, h := range l.hits {
				if h.source == "vector" {
					only = append(only, h)
				}
			}
		}
		if len(only) > 0 {
			sort.SliceStable(only, func(i, j int) bool { return only[i].score > only[j].score })
			return dedupeFragments(only), false, queryVec, nil
		}
	}

	// Reciprocal rank fusion across all ranked lists
	scores := make(map[string]float64)
	byKey := make(map[string]candidate)
	for _, l := range lists {
		for rank, c := range l.hits {
			key := fmt.Sprintf("%s#%d", c.path, c.ordinal)
			scores[key] += 1.0 / float64(rrfK+rank+1)
			if _, ok := byKey[key]; !ok {
				byKey[key] = c
			}
		}
	}

	fused := make([]candidate, 0, len(byKey))
	for key, c := range byKey {
		c.score = scores[key]
		c.source = "rrf"
		fused = append(fused, c)
	}
	sort.SliceStable(fused, func(i, j int) bool { return fused[i].score > fused[j].score })

	return fused, true, queryVec, nil
}

// denseSearch embeds one query variant and scans the container's vectors.
// The embedding is returned alongside the hits so callers can reuse it.
func (s *SearchService) denseSearch(ctx context.Context, container, query string, k int) ([]candidate, []float32, error) {
	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.store.DenseSearch(ctx, container, vector, k)
	if err != nil {
		return nil, vector, fmt.Errorf("dense search: %w", err)
	}

	results := make([]candidate, len(hits))
	for i, hit := range hits {
		results[i] = candidate{
			path:    hit.Fragment.Path,
			ordinal: hit.Fragment.Ordinal,
			text:    hit.Fragment.Text,
			score:   1 - hit.Distance, // Cosine similarity
			source:  "vector",
		}
	}
	return results, vector, nil
}

// keywordSearch runs full-text retrieval for one query variant.
func (s *SearchService) keywordSearch(ctx context.Context, container, query string, k int) ([]candidate, error) {
	hits, err := s.store.KeywordSearch(ctx, container, query, k)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}

	results := make([]candidate, len(hits))
	for i, hit := range hits {
		results[i] = candidate{
			path:    hit.Fragment.Path,
			ordinal: hit.Fragment.Ordinal,
			text:    hit.Fragment.Text,
			score:   -hit.Rank, // bm25 ranks are negative-better
			source:  "keyword",
		}
	}
	return results, nil
}

// overlayAnnotations merges annotation hits into the candidate pool under
// their pseudo-paths and re-sorts so annotations compete by score.
func (s *SearchService) overlayAnnotations(
	ctx context.Context, container string, queryVec []float32, candidates []candidate, k int,
) ([]candidate, error) {
	if len(queryVec) == 0 {
		return candidates, nil
	}

	hits, err := s.store.DenseSearchAnnotations(ctx, container, queryVec, k)
	if err != nil {
		return candidates, err
	}
	if len(hits) == 0 {
		return candidates, nil
	}
	logger.Debug("Annotation hits: %d", len(hits))

	// Annotations enter the pool with their similarity scaled to the
	// candidate score range so fusion output stays comparable.
	var maxScore float64
	for _, c := range candidates {
		if c.score > maxScore {
			maxScore = c.score
		}
	}
	if maxScore == 0 {
		maxScore = 1
	}

	for _, hit := range hits {
		a := hit.Annotation
		similarity := 1 - hit.Distance
		if similarity <= 0 {
			continue
		}
		candidates = append(candidates, candidate{
			path:   a.PseudoPath(),
			text:   a.Note,
			score:  similarity * maxScore,
			source: "annotation",
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	return candidates, nil
}

// rerank scores the top candidates with the cross-encoder and maps logits
// to 0-100 through a sigmoid. Degrades silently on failure.
func (s *SearchService) rerank(ctx context.Context, query string, candidates []candidate) ([]candidate, bool) {
	window := len(candidates)
	if window > rerankWindow {
		window = rerankWindow
	}

	passages := make([]string, window)
	for i := 0; i < window; i++ {
		passages[i] = candidates[i].text
	}

	logits, err := s.reranker.Rerank(ctx, query, passages)
	if err != nil {
		logger.Warn("Rerank failed, keeping fused order: %v", err)
		return candidates, false
	}

	reranked := make([]candidate, window)
	for i := 0; i < window; i++ {
		c := candidates[i]
		c.score = sigmoid(logits[i]) * 100
		reranked[i] = c
	}
	logger.Debug("Reranked %d candidates", window)
	return reranked, true
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// normaliseScores maps raw retrieval scores to 0-100. Fused scores are
// min-max scaled against the best hit; dense-only scores are similarities
// scaled directly.
func normaliseScores(candidates []candidate, hybrid bool) {
	if len(candidates) == 0 {
		return
	}

	if !hybrid {
		for i := range candidates {
			score := candidates[i].score * 100
			if score < 0 {
				score = 0
			}
			candidates[i].score = score
		}
		return
	}

	var maxScore float64
	for _, c := range candidates {
		if c.score > maxScore {
			maxScore = c.score
		}
	}
	if maxScore == 0 {
		return
	}
	for i := range candidates {
		candidates[i].score = candidates[i].score / maxScore * 100
	}
}

// filterCandidates applies extension and path prefix filters.
// Annotations always pass.
func filterCandidates(candidates []candidate, opts domain.SearchOptions) []candidate {
	if len(opts.Extensions) == 0 && opts.PathPrefix == "" {
		return candidates
	}

	exts := make(map[string]bool, len(opts.Extensions))
	for _, e := range opts.Extensions {
		exts[strings.ToLower(strings.TrimPrefix(e, "."))] = true
	}

	filtered := candidates[:0]
	for _, c := range candidates {
		if domain.IsAnnotationPath(c.path) {
			filtered = append(filtered, c)
			continue
		}
		if opts.PathPrefix != "" && !strings.HasPrefix(c.path, opts.PathPrefix) {
			continue
		}
		if len(exts) > 0 {
			ext := ""
			if i := strings.LastIndexByte(c.path, '.'); i >= 0 {
				ext = strings.ToLower(c.path[i+1:])
			}
			if !exts[ext] {
				continue
			}
		}
		filtered = append(filtered, c)
	}
	return filtered
}

// dedupeFragments keeps the best-scoring instance of each fragment.
func dedupeFragments(candidates []candidate) []candidate {
	seen := make(map[string]bool, len(candidates))
	out := candidates[:0]
	for _, c := range candidates {
		key := fmt.Sprintf("%s#%d", c.path, c.ordinal)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

// dedupePerFile keeps only the best fragment per file. Candidates must be
// in descending score order per path group, which holds after sorting by
// source lists; the scan keeps the max explicitly to be safe.
func dedupePerFile(candidates []candidate) []domain.SearchResult {
	best := make(map[string]candidate)
	for _, c := range candidates {
		if cur, ok := best[c.path]; !ok || c.score > cur.score {
			best[c.path] = c
		}
	}

	results := make([]domain.SearchResult, 0, len(best))
	for _, c := range best {
		results = append(results, domain.SearchResult{
			Path:    c.path,
			Snippet: c.text,
			Score:   c.score,
			Ordinal: c.ordinal,
		})
	}
	return results
}

// filterMinScore drops results below the threshold.
func filterMinScore(results []domain.SearchResult, minScore float64) []domain.SearchResult {
	filtered := results[:0]
	for _, r := range results {
		if r.Score >= minScore {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// sortResults orders by score descending, breaking ties by ordinal then path
// for deterministic output.
func sortResults(results []domain.SearchResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Ordinal != results[j].Ordinal {
			return results[i].Ordinal < results[j].Ordinal
		}
		return results[i].Path < results[j].Path
	})
}

// truncateSnippet cuts a snippet to at most maxBytes on a rune boundary.
func truncateSnippet(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// Related ranks indexed files by similarity to the given file.
func (s *SearchService) Related(ctx context.Context, path string, topK int) ([]domain.RelatedResult, error) {
	logger.Section("Related Files")
	logger.Debug("Reference: %s", path)

	if topK <= 0 || topK > maxRelated {
		topK = maxRelated
	}

	container := s.registry.Active()

	fragments, err := s.store.FileFragments(ctx, container, path)
	if err != nil {
		return nil, fmt.Errorf("related: %w", err)
	}
	if len(fragments) == 0 {
		return nil, fmt.Errorf("related %s: %w", path, domain.ErrNotFound)
	}

	centroid := meanVector(fragments)
	if centroid == nil {
		return nil, fmt.Errorf("related %s: no vectors", path)
	}

	// Fetch extra hits since the reference file's own fragments rank first
	hits, err := s.store.DenseSearch(ctx, container, centroid, topK*4+len(fragments))
	if err != nil {
		return nil, fmt.Errorf("related: %w", err)
	}

	best := make(map[string]float64)
	var order []string
	for _, hit := range hits {
		p := hit.Fragment.Path
		if p == path {
			continue
		}
		score := (1 - hit.Distance) * 100
		if cur, ok := best[p]; !ok {
			best[p] = score
			order = append(order, p)
		} else if score > cur {
			best[p] = score
		}
	}

	results := make([]domain.RelatedResult, 0, len(order))
	for _, p := range order {
		results = append(results, domain.RelatedResult{Path: p, Score: best[p]})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Path < results[j].Path
	})
	if len(results) > topK {
		results = results[:topK]
	}

	logger.Debug("Related files: %d", len(results))
	return results, nil
}

// meanVector averages a file's fragment vectors into a single centroid.
func meanVector(fragments []domain.Fragment) []float32 {
	var dim int
	for _, f := range fragments {
		if len(f.Vector) > 0 {
			dim = len(f.Vector)
			break
		}
	}
	if dim == 0 {
		return nil
	}

	sum := make([]float64, dim)
	count := 0
	for _, f := range fragments {
		if len(f.Vector) != dim {
			continue
		}
		for i, v := range f.Vector {
			sum[i] += float64(v)
		}
		count++
	}
	if count == 0 {
		return nil
	}

	mean := make([]float32, dim)
	for i, v := range sum {
		mean[i] = float32(v / float64(count))
	}
	return mean
}
