package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rememex/rememex-cli/internal/adapters/driven/storage/memory"
	"github.com/rememex/rememex-cli/internal/core/domain"
)

func setupAnnotations(t *testing.T) (*AnnotationService, *memory.FragmentStore, *fakeEmbedder) {
	t.Helper()
	store := memory.NewFragmentStore()
	registry := newMemRegistry()
	embedder := newFakeEmbedder(3)
	require.NoError(t, registry.Save(domain.Container{
		Name:     domain.DefaultContainer,
		Provider: embedder.Identity(),
	}))
	return NewAnnotationService(store, embedder, registry), store, embedder
}

// TestAnnotationService_Add tests note creation with immediate embedding
func TestAnnotationService_Add(t *testing.T) {
	svc, store, embedder := setupAnnotations(t)
	embedder.vectors["architecture decision record"] = []float32{0, 1, 0}

	a, err := svc.Add(context.Background(), "/docs/adr.md", "  architecture decision record  ", AnnotationSourceUser)
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "/docs/adr.md", a.Path)
	assert.Equal(t, "architecture decision record", a.Note, "whitespace trimmed")
	assert.Equal(t, AnnotationSourceUser, a.Source)
	assert.Equal(t, []float32{0, 1, 0}, a.Vector)
	assert.False(t, a.CreatedAt.IsZero())

	saved, err := store.ListAnnotations(context.Background(), domain.DefaultContainer, "")
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, a.ID, saved[0].ID)
}

// TestAnnotationService_Add_Invalid tests note and source validation
func TestAnnotationService_Add_Invalid(t *testing.T) {
	svc, _, _ := setupAnnotations(t)

	_, err := svc.Add(context.Background(), "/a.md", "   ", AnnotationSourceUser)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Add(context.Background(), "/a.md", "note", "robot")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Add(context.Background(), "/a.md", "note", AnnotationSourceAgent)
	assert.NoError(t, err)
}

// TestAnnotationService_Get tests retrieval with and without a path filter
func TestAnnotationService_Get(t *testing.T) {
	svc, _, _ := setupAnnotations(t)

	_, err := svc.Add(context.Background(), "/a.md", "first", AnnotationSourceUser)
	require.NoError(t, err)
	_, err = svc.Add(context.Background(), "/b.md", "second", AnnotationSourceAgent)
	require.NoError(t, err)

	all, err := svc.Get(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	forA, err := svc.Get(context.Background(), "/a.md")
	require.NoError(t, err)
	require.Len(t, forA, 1)
	assert.Equal(t, "first", forA[0].Note)
}

// TestAnnotationService_Delete tests removal by ID
func TestAnnotationService_Delete(t *testing.T) {
	svc, _, _ := setupAnnotations(t)

	a, err := svc.Add(context.Background(), "/a.md", "note", AnnotationSourceUser)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), a.ID))
	assert.ErrorIs(t, svc.Delete(context.Background(), a.ID), domain.ErrNotFound)

	remaining, err := svc.Get(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, remaining)
}
