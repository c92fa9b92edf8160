package sqlite

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rememex/rememex-cli/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	tempDir := t.TempDir()
	store, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NotNil(t, store)

	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})

	return store
}

// fragment builds a test fragment with a deterministic vector.
func fragment(id, path string, ordinal int, text string, vector []float32) domain.Fragment {
	return domain.Fragment{
		ID:          id,
		Path:        path,
		Ordinal:     ordinal,
		StartOffset: 0,
		EndOffset:   len(text),
		Text:        text,
		Vector:      vector,
		Kind:        domain.ChunkKindDoc,
		MTime:       time.Unix(1700000000, 0),
	}
}

// ==================== Store Creation and Migration Tests ====================

// TestNewStore tests database creation and migration
func TestNewStore(t *testing.T) {
	tempDir := t.TempDir()

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	defer store.Close()

	// Database file should exist
	_, err = os.Stat(store.Path())
	assert.NoError(t, err)

	// Migrations should be idempotent across reopen
	require.NoError(t, store.Close())
	store2, err := NewStore(tempDir)
	require.NoError(t, err)
	assert.NoError(t, store2.Close())
}

// TestStore_EnsureContainer tests container creation and idempotence
func TestStore_EnsureContainer(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.EnsureContainer(ctx, "Default"))
	require.NoError(t, store.EnsureContainer(ctx, "Default"), "ensure is idempotent")

	files, fragments, annotations, err := store.Stats(ctx, "Default")
	require.NoError(t, err)
	assert.Zero(t, files)
	assert.Zero(t, fragments)
	assert.Zero(t, annotations)
}

// TestStore_EnsureContainer_EmptyName tests input validation
func TestStore_EnsureContainer_EmptyName(t *testing.T) {
	store := setupTestStore(t)

	err := store.EnsureContainer(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// TestStore_UnknownContainer tests ErrNotFound for unregistered containers
func TestStore_UnknownContainer(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, _, _, err := store.Stats(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.ListFiles(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// TestStore_DropContainer tests that dropping removes data and registration
func TestStore_DropContainer(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.EnsureContainer(ctx, "work"))
	require.NoError(t, store.ReplaceFile(ctx, "work", "/notes/a.md", []domain.Fragment{
		fragment("f1", "/notes/a.md", 0, "alpha", []float32{1, 0}),
	}))

	require.NoError(t, store.DropContainer(ctx, "work"))

	_, _, _, err := store.Stats(ctx, "work")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Re-ensuring after drop starts empty
	require.NoError(t, store.EnsureContainer(ctx, "work"))
	_, fragments, _, err := store.Stats(ctx, "work")
	require.NoError(t, err)
	assert.Zero(t, fragments)
}

// TestStore_Reset tests that reset clears data but keeps the container
func TestStore_Reset(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.EnsureContainer(ctx, "Default"))
	require.NoError(t, store.ReplaceFile(ctx, "Default", "/a.md", []domain.Fragment{
		fragment("f1", "/a.md", 0, "alpha", []float32{1, 0}),
	}))
	require.NoError(t, store.SaveAnnotation(ctx, "Default", domain.Annotation{
		ID: "ann1", Path: "/a.md", Note: "note", Source: "cli", CreatedAt: time.Now(),
	}))

	require.NoError(t, store.Reset(ctx, "Default"))

	files, fragments, annotations, err := store.Stats(ctx, "Default")
	require.NoError(t, err)
	assert.Zero(t, files)
	assert.Zero(t, fragments)
	assert.Zero(t, annotations)
}

// ==================== Fragment Tests ====================

// TestStore_ReplaceFile tests atomic replacement of a file's fragments
func TestStore_ReplaceFile(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.EnsureContainer(ctx, "Default"))

	require.NoError(t, store.ReplaceFile(ctx, "Default", "/a.md", []domain.Fragment{
		fragment("f1", "/a.md", 0, "first version part one", []float32{1, 0}),
		fragment("f2", "/a.md", 1, "first version part two", []float32{0, 1}),
	}))

	// Replacing drops the old rows entirely
	require.NoError(t, store.ReplaceFile(ctx, "Default", "/a.md", []domain.Fragment{
		fragment("f3", "/a.md", 0, "second version", []float32{1, 1}),
	}))

	got, err := store.FileFragments(ctx, "Default", "/a.md")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "f3", got[0].ID)
	assert.Equal(t, "second version", got[0].Text)
	assert.Equal(t, []float32{1, 1}, got[0].Vector)

	// Stale fragments must be gone from the full-text index too
	hits, err := store.KeywordSearch(ctx, "Default", "first version", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

// TestStore_DeleteFile tests file removal
func TestStore_DeleteFile(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.EnsureContainer(ctx, "Default"))

	require.NoError(t, store.ReplaceFile(ctx, "Default", "/a.md", []domain.Fragment{
		fragment("f1", "/a.md", 0, "alpha beta", []float32{1, 0}),
	}))
	require.NoError(t, store.ReplaceFile(ctx, "Default", "/b.md", []domain.Fragment{
		fragment("f2", "/b.md", 0, "gamma delta", []float32{0, 1}),
	}))

	require.NoError(t, store.DeleteFile(ctx, "Default", "/a.md"))

	files, err := store.ListFiles(ctx, "Default")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "/b.md", files[0].Path)

	hits, err := store.KeywordSearch(ctx, "Default", "alpha", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	// Deleting a missing file is a no-op
	assert.NoError(t, store.DeleteFile(ctx, "Default", "/a.md"))
}

// TestStore_FileMTime tests recorded modification times
func TestStore_FileMTime(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.EnsureContainer(ctx, "Default"))

	f := fragment("f1", "/a.md", 0, "alpha", []float32{1, 0})
	f.MTime = time.Unix(1711111111, 0)
	require.NoError(t, store.ReplaceFile(ctx, "Default", "/a.md", []domain.Fragment{f}))

	mtime, err := store.FileMTime(ctx, "Default", "/a.md")
	require.NoError(t, err)
	assert.Equal(t, int64(1711111111), mtime.Unix())

	_, err = store.FileMTime(ctx, "Default", "/missing.md")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// TestStore_ListFiles tests file summaries
func TestStore_ListFiles(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.EnsureContainer(ctx, "Default"))

	a := fragment("f1", "/a.md", 0, "alpha", []float32{1, 0})
	a.MTime = time.Unix(1600000000, 0)
	b := fragment("f2", "/b.md", 0, "beta text", []float32{0, 1})
	b.MTime = time.Unix(1700000000, 0)

	require.NoError(t, store.ReplaceFile(ctx, "Default", "/a.md", []domain.Fragment{a}))
	require.NoError(t, store.ReplaceFile(ctx, "Default", "/b.md", []domain.Fragment{b}))

	files, err := store.ListFiles(ctx, "Default")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "/a.md", files[0].Path)
	assert.Equal(t, int64(1600000000), files[0].MTime.Unix())
	assert.Equal(t, int64(len("beta text")), files[1].Size)
}

// ==================== Search Tests ====================

// TestStore_DenseSearch tests cosine distance ordering
func TestStore_DenseSearch(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.EnsureContainer(ctx, "Default"))

	require.NoError(t, store.ReplaceFile(ctx, "Default", "/a.md", []domain.Fragment{
		fragment("near", "/a.md", 0, "near", []float32{1, 0, 0}),
		fragment("mid", "/a.md", 1, "mid", []float32{1, 1, 0}),
		fragment("far", "/a.md", 2, "far", []float32{0, 0, 1}),
	}))

	hits, err := store.DenseSearch(ctx, "Default", []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "near", hits[0].Fragment.ID)
	assert.Equal(t, "mid", hits[1].Fragment.ID)
	assert.Less(t, hits[0].Distance, hits[1].Distance)
	assert.InDelta(t, 0.0, hits[0].Distance, 1e-6)
}

// TestStore_DenseSearch_DimensionMismatch tests that foreign dimensions are skipped
func TestStore_DenseSearch_DimensionMismatch(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.EnsureContainer(ctx, "Default"))

	require.NoError(t, store.ReplaceFile(ctx, "Default", "/a.md", []domain.Fragment{
		fragment("f1", "/a.md", 0, "three dims", []float32{1, 0, 0}),
		fragment("f2", "/a.md", 1, "two dims", []float32{1, 0}),
	}))

	hits, err := store.DenseSearch(ctx, "Default", []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "f1", hits[0].Fragment.ID)
}

// TestStore_KeywordSearch tests full-text matching
func TestStore_KeywordSearch(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.EnsureContainer(ctx, "Default"))

	require.NoError(t, store.ReplaceFile(ctx, "Default", "/a.md", []domain.Fragment{
		fragment("f1", "/a.md", 0, "the quick brown fox", []float32{1, 0}),
		fragment("f2", "/a.md", 1, "lazy dog sleeping", []float32{0, 1}),
	}))

	hits, err := store.KeywordSearch(ctx, "Default", "brown fox", 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "f1", hits[0].Fragment.ID)
}

// TestStore_KeywordSearch_Punctuation tests that query punctuation cannot
// break the match expression
func TestStore_KeywordSearch_Punctuation(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.EnsureContainer(ctx, "Default"))

	require.NoError(t, store.ReplaceFile(ctx, "Default", "/a.go", []domain.Fragment{
		fragment("f1", "/a.go", 0, "func main() handles errors", []float32{1, 0}),
	}))

	hits, err := store.KeywordSearch(ctx, "Default", `func main() "errors" AND-`, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, hits)

	// Pure punctuation yields no match expression and no error
	hits, err = store.KeywordSearch(ctx, "Default", "()*-", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

// TestFtsMatchExpr tests the match expression builder
func TestFtsMatchExpr(t *testing.T) {
	assert.Equal(t, `"hello" OR "world"`, ftsMatchExpr("hello, world!"))
	assert.Equal(t, `"çay"`, ftsMatchExpr("çay"))
	assert.Equal(t, "", ftsMatchExpr("()"))
}

// ==================== Annotation Tests ====================

// TestStore_Annotations tests annotation save, list, and delete
func TestStore_Annotations(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.EnsureContainer(ctx, "Default"))

	a1 := domain.Annotation{
		ID: "ann1", Path: "/a.md", Note: "first note", Source: "cli",
		Vector: []float32{1, 0}, CreatedAt: time.Unix(1700000000, 0),
	}
	a2 := domain.Annotation{
		ID: "ann2", Path: "/b.md", Note: "second note", Source: "mcp",
		Vector: []float32{0, 1}, CreatedAt: time.Unix(1700000100, 0),
	}
	require.NoError(t, store.SaveAnnotation(ctx, "Default", a1))
	require.NoError(t, store.SaveAnnotation(ctx, "Default", a2))

	// All annotations, newest first
	all, err := store.ListAnnotations(ctx, "Default", "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "ann2", all[0].ID)

	// Filtered by path
	forA, err := store.ListAnnotations(ctx, "Default", "/a.md")
	require.NoError(t, err)
	require.Len(t, forA, 1)
	assert.Equal(t, "first note", forA[0].Note)
	assert.Equal(t, []float32{1, 0}, forA[0].Vector)

	require.NoError(t, store.DeleteAnnotation(ctx, "Default", "ann1"))
	err = store.DeleteAnnotation(ctx, "Default", "ann1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// TestStore_SaveAnnotation_Upsert tests that saving twice updates in place
func TestStore_SaveAnnotation_Upsert(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.EnsureContainer(ctx, "Default"))

	a := domain.Annotation{ID: "ann1", Path: "/a.md", Note: "v1", Source: "cli", CreatedAt: time.Now()}
	require.NoError(t, store.SaveAnnotation(ctx, "Default", a))
	a.Note = "v2"
	require.NoError(t, store.SaveAnnotation(ctx, "Default", a))

	all, err := store.ListAnnotations(ctx, "Default", "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "v2", all[0].Note)
}

// TestStore_SaveAnnotation_Invalid tests input validation
func TestStore_SaveAnnotation_Invalid(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.EnsureContainer(ctx, "Default"))

	err := store.SaveAnnotation(ctx, "Default", domain.Annotation{ID: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// TestStore_DenseSearchAnnotations tests annotation vector search
func TestStore_DenseSearchAnnotations(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.EnsureContainer(ctx, "Default"))

	require.NoError(t, store.SaveAnnotation(ctx, "Default", domain.Annotation{
		ID: "near", Path: "/a.md", Note: "close", Source: "cli",
		Vector: []float32{1, 0}, CreatedAt: time.Now(),
	}))
	require.NoError(t, store.SaveAnnotation(ctx, "Default", domain.Annotation{
		ID: "far", Path: "/b.md", Note: "distant", Source: "cli",
		Vector: []float32{0, 1}, CreatedAt: time.Now(),
	}))

	hits, err := store.DenseSearchAnnotations(ctx, "Default", []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "near", hits[0].Annotation.ID)
}

// ==================== Container Isolation Tests ====================

// TestStore_ContainerIsolation tests that containers do not see each other's data
func TestStore_ContainerIsolation(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.EnsureContainer(ctx, "work"))
	require.NoError(t, store.EnsureContainer(ctx, "personal"))

	require.NoError(t, store.ReplaceFile(ctx, "work", "/w.md", []domain.Fragment{
		fragment("f1", "/w.md", 0, "quarterly report", []float32{1, 0}),
	}))

	hits, err := store.KeywordSearch(ctx, "personal", "quarterly", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	_, fragments, _, err := store.Stats(ctx, "personal")
	require.NoError(t, err)
	assert.Zero(t, fragments)
}

// ==================== Helper Tests ====================

// TestVectorRoundTrip tests the float32 blob encoding
func TestVectorRoundTrip(t *testing.T) {
	in := []float32{0.1, -2.5, 3.14159, 0}
	out := bytesToFloat32Slice(float32SliceToBytes(in))
	assert.Equal(t, in, out)

	assert.Nil(t, float32SliceToBytes(nil))
	assert.Nil(t, bytesToFloat32Slice(nil))
}

// TestCosineDistance tests the distance function
func TestCosineDistance(t *testing.T) {
	assert.InDelta(t, 0.0, cosineDistance([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 1.0, cosineDistance([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, 2.0, cosineDistance([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 1.0, cosineDistance([]float32{0, 0}, []float32{1, 0}))
}

// TestTableSuffix tests container name sanitisation
func TestTableSuffix(t *testing.T) {
	assert.Equal(t, "default", tableSuffix("Default"))
	assert.Equal(t, "my_notes_2024", tableSuffix("My Notes 2024"))
	assert.Equal(t, "a_b", tableSuffix("a/b"))
}
