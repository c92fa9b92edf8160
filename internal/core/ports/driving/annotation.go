package driving

import (
	"context"

	"github.com/rememex/rememex-cli/internal/core/domain"
)

// AnnotationService manages notes attached to indexed paths.
// Annotations are embedded at write time and surface in search results
// under their pseudo-path.
type AnnotationService interface {
	// Add stores a note for a path. Source is "user" or "agent".
	Add(ctx context.Context, path, note, source string) (*domain.Annotation, error)

	// Get returns annotations for a path, newest first.
	// An empty path returns all annotations in the active container.
	Get(ctx context.Context, path string) ([]domain.Annotation, error)

	// Delete removes an annotation by ID.
	Delete(ctx context.Context, id string) error
}
