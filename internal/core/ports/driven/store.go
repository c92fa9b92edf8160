package driven

import (
	"context"
	"time"

	"github.com/rememex/rememex-cli/internal/core/domain"
)

// FragmentHit is a dense search result with its cosine distance.
type FragmentHit struct {
	Fragment domain.Fragment

	// Distance is the cosine distance to the query vector (0 = identical).
	Distance float64
}

// KeywordHit is a full-text search result with its BM25 rank.
type KeywordHit struct {
	Fragment domain.Fragment

	// Rank is the BM25 relevance as reported by the index.
	// More negative means more relevant under SQLite FTS5.
	Rank float64
}

// AnnotationHit is a dense search result over annotations.
type AnnotationHit struct {
	Annotation domain.Annotation

	// Distance is the cosine distance to the query vector.
	Distance float64
}

// FragmentStore persists fragments, annotations and the full-text index.
// Each container is isolated: dropping a container removes every fragment,
// full-text row and annotation belonging to it.
type FragmentStore interface {
	// EnsureContainer creates the container's tables if they do not exist.
	EnsureContainer(ctx context.Context, container string) error

	// DropContainer removes the container's tables and all data in them.
	DropContainer(ctx context.Context, container string) error

	// Reset removes all fragments and annotations but keeps the container.
	Reset(ctx context.Context, container string) error

	// ReplaceFile atomically replaces all fragments for a path.
	// Existing fragments are deleted and the new set inserted in one
	// transaction, keeping the dense and full-text indexes consistent.
	ReplaceFile(ctx context.Context, container, path string, fragments []domain.Fragment) error

	// DeleteFile removes all fragments for a path. Deleting an unindexed
	// path is a no-op.
	DeleteFile(ctx context.Context, container, path string) error

	// FileMTime returns the modification time recorded for a path.
	// Returns domain.ErrNotFound when the path is not indexed.
	FileMTime(ctx context.Context, container, path string) (time.Time, error)

	// FileFragments returns all fragments for a path in ordinal order.
	FileFragments(ctx context.Context, container, path string) ([]domain.Fragment, error)

	// ListFiles returns a summary of every indexed file.
	ListFiles(ctx context.Context, container string) ([]domain.FileInfo, error)

	// DenseSearch returns the k fragments nearest to the query vector
	// by cosine distance, nearest first.
	DenseSearch(ctx context.Context, container string, vector []float32, k int) ([]FragmentHit, error)

	// KeywordSearch returns the k best full-text matches for the query,
	// most relevant first. A query with no matches returns an empty slice.
	KeywordSearch(ctx context.Context, container, query string, k int) ([]KeywordHit, error)

	// Stats returns index counters for the container.
	Stats(ctx context.Context, container string) (files, fragments, annotations int, err error)

	// SaveAnnotation stores an annotation with its vector.
	SaveAnnotation(ctx context.Context, container string, a domain.Annotation) error

	// ListAnnotations returns annotations, newest first. An empty path
	// returns all annotations in the container.
	ListAnnotations(ctx context.Context, container, path string) ([]domain.Annotation, error)

	// DeleteAnnotation removes an annotation by ID.
	// Returns domain.ErrNotFound when no such annotation exists.
	DeleteAnnotation(ctx context.Context, container, id string) error

	// DenseSearchAnnotations returns the k annotations nearest to the
	// query vector by cosine distance, nearest first.
	DenseSearchAnnotations(ctx context.Context, container string, vector []float32, k int) ([]AnnotationHit, error)

	// Close releases the underlying database.
	Close() error
}
