package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rememex/rememex-cli/internal/adapters/driven/storage/memory"
	"github.com/rememex/rememex-cli/internal/core/domain"
)

// setupSearch builds a search service over the in-memory store with a
// Default container.
func setupSearch(t *testing.T, embedder *fakeEmbedder) (*SearchService, *memory.FragmentStore, *memRegistry) {
	t.Helper()

	store := memory.NewFragmentStore()
	registry := newMemRegistry()
	require.NoError(t, registry.Save(domain.Container{
		Name:     domain.DefaultContainer,
		Provider: embedder.Identity(),
	}))
	require.NoError(t, store.EnsureContainer(context.Background(), domain.DefaultContainer))

	return NewSearchService(store, embedder, registry, nil), store, registry
}

func addFragments(t *testing.T, store *memory.FragmentStore, path string, frags ...domain.Fragment) {
	t.Helper()
	for i := range frags {
		frags[i].Path = path
		if frags[i].ID == "" {
			frags[i].ID = path + "-" + frags[i].Text
		}
		frags[i].MTime = time.Unix(1700000000, 0)
	}
	require.NoError(t, store.ReplaceFile(context.Background(), domain.DefaultContainer, path, frags))
}

// TestSearchService_EmptyQuery tests that blank queries return no results
func TestSearchService_EmptyQuery(t *testing.T) {
	svc, _, _ := setupSearch(t, newFakeEmbedder(3))

	results, err := svc.Search(context.Background(), "   ", domain.SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

// TestSearchService_DenseOnly tests similarity scoring without keyword hits
func TestSearchService_DenseOnly(t *testing.T) {
	embedder := newFakeEmbedder(3)
	embedder.vectors["zebra"] = []float32{1, 0, 0}
	svc, store, _ := setupSearch(t, embedder)

	addFragments(t, store, "/near.md", domain.Fragment{Ordinal: 0, Text: "first", Vector: []float32{1, 0, 0}})
	addFragments(t, store, "/far.md", domain.Fragment{Ordinal: 0, Text: "second", Vector: []float32{0, 1, 0}})

	results, err := svc.Search(context.Background(), "zebra", domain.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "/near.md", results[0].Path)
	assert.InDelta(t, 100.0, results[0].Score, 1e-6, "exact match scores 100")
	assert.Greater(t, results[0].Score, results[1].Score)
}

// TestSearchService_Hybrid tests rank fusion when keywords match
func TestSearchService_Hybrid(t *testing.T) {
	embedder := newFakeEmbedder(3)
	embedder.vectors["kubernetes deployment"] = []float32{1, 0, 0}
	svc, store, _ := setupSearch(t, embedder)

	addFragments(t, store, "/both.md", domain.Fragment{
		Ordinal: 0, Text: "kubernetes deployment guide", Vector: []float32{1, 0, 0},
	})
	addFragments(t, store, "/dense.md", domain.Fragment{
		Ordinal: 0, Text: "container orchestration notes", Vector: []float32{0.9, 0.1, 0},
	})

	results, err := svc.Search(context.Background(), "kubernetes deployment", domain.SearchOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	// The file hit by both retrievers wins and anchors the scale at 100
	assert.Equal(t, "/both.md", results[0].Path)
	assert.InDelta(t, 100.0, results[0].Score, 1e-6)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Score, 0.0)
		assert.LessOrEqual(t, r.Score, 100.0)
	}
}

// TestSearchService_PerFileDedup tests that one file yields one result
func TestSearchService_PerFileDedup(t *testing.T) {
	embedder := newFakeEmbedder(3)
	embedder.vectors["zebra"] = []float32{1, 0, 0}
	svc, store, _ := setupSearch(t, embedder)

	addFragments(t, store, "/doc.md",
		domain.Fragment{Ordinal: 0, Text: "part one", Vector: []float32{1, 0, 0}},
		domain.Fragment{Ordinal: 1, Text: "part two", Vector: []float32{0.99, 0.1, 0}},
		domain.Fragment{Ordinal: 2, Text: "part three", Vector: []float32{0.5, 0.5, 0}},
	)

	results, err := svc.Search(context.Background(), "zebra", domain.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "/doc.md", results[0].Path)
	assert.Equal(t, "part one", results[0].Snippet, "best fragment wins")
	assert.Equal(t, 0, results[0].Ordinal)
}

// TestSearchService_Determinism tests stable ordering across runs
func TestSearchService_Determinism(t *testing.T) {
	embedder := newFakeEmbedder(3)
	embedder.vectors["zebra"] = []float32{1, 0, 0}
	svc, store, _ := setupSearch(t, embedder)

	// Identical scores force the ordinal/path tie-break
	for _, path := range []string{"/c.md", "/a.md", "/b.md"} {
		addFragments(t, store, path, domain.Fragment{Ordinal: 0, Text: "same", Vector: []float32{1, 0, 0}})
	}

	first, err := svc.Search(context.Background(), "zebra", domain.SearchOptions{})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := svc.Search(context.Background(), "zebra", domain.SearchOptions{})
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, "/a.md", first[0].Path, "path tie-break is alphabetical")
}

// TestSearchService_Filters tests extension, prefix and score filters
func TestSearchService_Filters(t *testing.T) {
	embedder := newFakeEmbedder(3)
	embedder.vectors["zebra"] = []float32{1, 0, 0}
	svc, store, _ := setupSearch(t, embedder)

	addFragments(t, store, "/notes/a.md", domain.Fragment{Ordinal: 0, Text: "md file", Vector: []float32{1, 0, 0}})
	addFragments(t, store, "/notes/b.go", domain.Fragment{Ordinal: 0, Text: "go file", Vector: []float32{1, 0, 0}})
	addFragments(t, store, "/other/c.md", domain.Fragment{Ordinal: 0, Text: "elsewhere", Vector: []float32{1, 0, 0}})

	results, err := svc.Search(context.Background(), "zebra", domain.SearchOptions{Extensions: []string{".md"}})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Contains(t, r.Path, ".md")
	}

	results, err = svc.Search(context.Background(), "zebra", domain.SearchOptions{PathPrefix: "/notes/"})
	require.NoError(t, err)
	require.Len(t, results, 2)

	results, err = svc.Search(context.Background(), "zebra", domain.SearchOptions{MinScore: 99.0})
	require.NoError(t, err)
	require.Len(t, results, 3, "all exact matches clear the threshold")
}

// TestSearchService_TopK tests result capping
func TestSearchService_TopK(t *testing.T) {
	embedder := newFakeEmbedder(3)
	embedder.vectors["zebra"] = []float32{1, 0, 0}
	svc, store, _ := setupSearch(t, embedder)

	for _, p := range []string{"/a.md", "/b.md", "/c.md", "/d.md"} {
		addFragments(t, store, p, domain.Fragment{Ordinal: 0, Text: "x", Vector: []float32{1, 0, 0}})
	}

	results, err := svc.Search(context.Background(), "zebra", domain.SearchOptions{TopK: 2})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

// TestSearchService_AnnotationOverlay tests pseudo-path annotation results
func TestSearchService_AnnotationOverlay(t *testing.T) {
	embedder := newFakeEmbedder(3)
	embedder.vectors["zebra"] = []float32{1, 0, 0}
	svc, store, _ := setupSearch(t, embedder)

	addFragments(t, store, "/doc.md", domain.Fragment{Ordinal: 0, Text: "file text", Vector: []float32{1, 0, 0}})
	require.NoError(t, store.SaveAnnotation(context.Background(), domain.DefaultContainer, domain.Annotation{
		ID: "ann1", Path: "/doc.md", Note: "important note", Source: "user",
		Vector: []float32{1, 0, 0}, CreatedAt: time.Now(),
	}))

	results, err := svc.Search(context.Background(), "zebra", domain.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 2, "annotation does not displace the file result")

	var foundAnnotation bool
	for _, r := range results {
		if domain.IsAnnotationPath(r.Path) {
			foundAnnotation = true
			assert.Equal(t, "annotation:ann1", r.Path)
			assert.Equal(t, "important note", r.Snippet)
		}
	}
	assert.True(t, foundAnnotation)
}

// TestSearchService_Rerank tests cross-encoder scoring and the retain floor
func TestSearchService_Rerank(t *testing.T) {
	embedder := newFakeEmbedder(3)
	embedder.vectors["zebra"] = []float32{1, 0, 0}

	store := memory.NewFragmentStore()
	registry := newMemRegistry()
	require.NoError(t, registry.Save(domain.Container{Name: domain.DefaultContainer, Provider: embedder.Identity()}))
	require.NoError(t, store.EnsureContainer(context.Background(), domain.DefaultContainer))

	reranker := &fakeReranker{logits: []float64{2.0, -6.0}}
	svc := NewSearchService(store, embedder, registry, reranker)

	addFragments(t, store, "/keep.md", domain.Fragment{Ordinal: 0, Text: "relevant", Vector: []float32{1, 0, 0}})
	addFragments(t, store, "/drop.md", domain.Fragment{Ordinal: 0, Text: "irrelevant", Vector: []float32{0.9, 0.1, 0}})

	results, err := svc.Search(context.Background(), "zebra", domain.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1, "sub-threshold reranked result dropped")
	assert.Equal(t, "/keep.md", results[0].Path)
	assert.InDelta(t, 88.08, results[0].Score, 0.1, "sigmoid(2)*100")
	assert.Equal(t, 1, reranker.calls)

	// DisableRerank keeps the fused order and skips the cross-encoder
	results, err = svc.Search(context.Background(), "zebra", domain.SearchOptions{DisableRerank: true})
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, 1, reranker.calls)
}

// TestSearchService_RerankDegrades tests silent fallback on reranker failure
func TestSearchService_RerankDegrades(t *testing.T) {
	embedder := newFakeEmbedder(3)
	embedder.vectors["zebra"] = []float32{1, 0, 0}

	store := memory.NewFragmentStore()
	registry := newMemRegistry()
	require.NoError(t, registry.Save(domain.Container{Name: domain.DefaultContainer, Provider: embedder.Identity()}))
	require.NoError(t, store.EnsureContainer(context.Background(), domain.DefaultContainer))

	svc := NewSearchService(store, embedder, registry, &fakeReranker{err: context.DeadlineExceeded})

	addFragments(t, store, "/doc.md", domain.Fragment{Ordinal: 0, Text: "text", Vector: []float32{1, 0, 0}})

	results, err := svc.Search(context.Background(), "zebra", domain.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 100.0, results[0].Score, 1e-6)
}

// TestSearchService_ContextBytes tests rune-safe snippet truncation
func TestSearchService_ContextBytes(t *testing.T) {
	embedder := newFakeEmbedder(3)
	embedder.vectors["zebra"] = []float32{1, 0, 0}
	svc, store, _ := setupSearch(t, embedder)

	addFragments(t, store, "/tr.md", domain.Fragment{
		Ordinal: 0, Text: "ççççç", Vector: []float32{1, 0, 0},
	})

	results, err := svc.Search(context.Background(), "zebra", domain.SearchOptions{ContextBytes: 5})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "çç", results[0].Snippet, "cut lands on a rune boundary")
}

// TestTruncateSnippet tests the truncation helper directly
func TestTruncateSnippet(t *testing.T) {
	assert.Equal(t, "abc", truncateSnippet("abc", 10))
	assert.Equal(t, "ab", truncateSnippet("abcd", 2))
	assert.Equal(t, "ç", truncateSnippet("çç", 3))
	assert.Equal(t, "", truncateSnippet("ç", 1))
}

// TestSearchService_Related tests similarity ranking around a file
func TestSearchService_Related(t *testing.T) {
	embedder := newFakeEmbedder(3)
	svc, store, _ := setupSearch(t, embedder)

	addFragments(t, store, "/ref.md", domain.Fragment{Ordinal: 0, Text: "a", Vector: []float32{1, 0, 0}})
	addFragments(t, store, "/close.md", domain.Fragment{Ordinal: 0, Text: "b", Vector: []float32{0.95, 0.05, 0}})
	addFragments(t, store, "/distant.md", domain.Fragment{Ordinal: 0, Text: "c", Vector: []float32{0, 0, 1}})

	results, err := svc.Related(context.Background(), "/ref.md", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "/close.md", results[0].Path)
	for _, r := range results {
		assert.NotEqual(t, "/ref.md", r.Path, "reference file excluded")
	}
}

// TestSearchService_Related_NotFound tests unknown reference files
func TestSearchService_Related_NotFound(t *testing.T) {
	svc, _, _ := setupSearch(t, newFakeEmbedder(3))

	_, err := svc.Related(context.Background(), "/missing.md", 10)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// TestSearchService_ProviderMismatch tests that searching a container built
// with a different embedder identity is refused
func TestSearchService_ProviderMismatch(t *testing.T) {
	embedder := newFakeEmbedder(3)
	svc, store, registry := setupSearch(t, embedder)

	addFragments(t, store, "/doc.md", domain.Fragment{Ordinal: 0, Text: "text", Vector: []float32{1, 0, 0}})
	require.NoError(t, registry.Save(domain.Container{
		Name:     domain.DefaultContainer,
		Provider: domain.ProviderIdentity{Provider: "local", Model: "other-model", Dimensions: 768},
	}))

	_, err := svc.Search(context.Background(), "zebra", domain.SearchOptions{})
	assert.ErrorIs(t, err, domain.ErrProviderMismatch)
}

// TestSearchService_OptionBounds tests rejection of out-of-range options
func TestSearchService_OptionBounds(t *testing.T) {
	svc, _, _ := setupSearch(t, newFakeEmbedder(3))

	for name, opts := range map[string]domain.SearchOptions{
		"top_k too large":         {TopK: 51},
		"context_bytes too large": {ContextBytes: 10001},
		"min_score negative":      {MinScore: -1},
		"min_score above 100":     {MinScore: 101},
	} {
		_, err := svc.Search(context.Background(), "zebra", opts)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, name)
	}

	_, err := svc.Search(context.Background(), "zebra", domain.SearchOptions{
		TopK: 50, ContextBytes: 10000, MinScore: 100,
	})
	assert.NoError(t, err, "boundary values accepted")
}

// TestSearchService_NegativeSimilarityClamped tests the dense score floor
func TestSearchService_NegativeSimilarityClamped(t *testing.T) {
	embedder := newFakeEmbedder(3)
	embedder.vectors["zebra"] = []float32{1, 0, 0}
	svc, store, _ := setupSearch(t, embedder)

	// Opposite vector yields a negative cosine similarity
	addFragments(t, store, "/opposite.md", domain.Fragment{Ordinal: 0, Text: "text", Vector: []float32{-1, 0, 0}})

	results, err := svc.Search(context.Background(), "zebra", domain.SearchOptions{})
	require.NoError(t, err)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Score, 0.0)
	}
}

// TestSearchService_SingleQueryEmbedding tests that the annotation overlay
// reuses the query vector from the dense stage
func TestSearchService_SingleQueryEmbedding(t *testing.T) {
	embedder := newFakeEmbedder(3)
	embedder.vectors["zebra"] = []float32{1, 0, 0}
	svc, store, _ := setupSearch(t, embedder)

	addFragments(t, store, "/doc.md", domain.Fragment{Ordinal: 0, Text: "text", Vector: []float32{1, 0, 0}})
	require.NoError(t, store.SaveAnnotation(context.Background(), domain.DefaultContainer, domain.Annotation{
		ID: "ann1", Path: "/doc.md", Note: "note", Source: "user",
		Vector: []float32{1, 0, 0}, CreatedAt: time.Now(),
	}))

	_, err := svc.Search(context.Background(), "zebra", domain.SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, embedder.queryCalls, "one embedding per query variant")
}

// TestSearchService_AnnotationRerankWindow tests that overlaid annotations
// sort into the pool instead of trailing a large candidate list
func TestSearchService_AnnotationRerankWindow(t *testing.T) {
	embedder := newFakeEmbedder(3)
	svc, store, _ := setupSearch(t, embedder)

	require.NoError(t, store.SaveAnnotation(context.Background(), domain.DefaultContainer, domain.Annotation{
		ID: "ann1", Path: "/doc.md", Note: "note", Source: "user",
		Vector: []float32{1, 0, 0}, CreatedAt: time.Now(),
	}))

	pool := make([]candidate, 60)
	for i := range pool {
		pool[i] = candidate{
			path:   "/f.md",
			text:   "x",
			score:  1.0 - float64(i)/100,
			source: "rrf",
		}
	}

	merged, err := svc.overlayAnnotations(context.Background(), domain.DefaultContainer, []float32{1, 0, 0}, pool, 10)
	require.NoError(t, err)
	require.Len(t, merged, 61)

	annotationAt := -1
	for i, c := range merged {
		if c.source == "annotation" {
			annotationAt = i
		}
	}
	require.NotEqual(t, -1, annotationAt)
	assert.Less(t, annotationAt, rerankWindow, "annotation competes inside the rerank window")
}
