package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rememex/rememex-cli/internal/core/domain"
	"github.com/rememex/rememex-cli/internal/core/ports/driven"
	"github.com/rememex/rememex-cli/internal/core/ports/driving"
	"github.com/rememex/rememex-cli/internal/logger"
)

// Ensure AnnotationService implements the interface.
var _ driving.AnnotationService = (*AnnotationService)(nil)

// Annotation sources.
const (
	AnnotationSourceUser  = "user"
	AnnotationSourceAgent = "agent"
)

// AnnotationService manages notes attached to indexed paths.
type AnnotationService struct {
	store    driven.FragmentStore
	embedder driven.EmbeddingProvider
	registry driven.ContainerRegistry
}

// NewAnnotationService creates a new annotation service.
func NewAnnotationService(
	store driven.FragmentStore,
	embedder driven.EmbeddingProvider,
	registry driven.ContainerRegistry,
) *AnnotationService {
	return &AnnotationService{
		store:    store,
		embedder: embedder,
		registry: registry,
	}
}

// Add stores a note for a path, embedding it immediately so it is
// searchable without a reindex.
func (s *AnnotationService) Add(ctx context.Context, path, note, source string) (*domain.Annotation, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, fmt.Errorf("empty note: %w", domain.ErrInvalidInput)
	}
	if source != AnnotationSourceUser && source != AnnotationSourceAgent {
		return nil, fmt.Errorf("annotation source %q: %w", source, domain.ErrInvalidInput)
	}

	container := s.registry.Active()
	if err := s.store.EnsureContainer(ctx, container); err != nil {
		return nil, fmt.Errorf("ensuring container: %w", err)
	}

	vector, err := s.embedder.EmbedQuery(ctx, note)
	if err != nil {
		return nil, fmt.Errorf("embedding annotation: %w", err)
	}

	a := domain.Annotation{
		ID:        uuid.NewString(),
		Path:      path,
		Note:      note,
		Source:    source,
		Vector:    vector,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.SaveAnnotation(ctx, container, a); err != nil {
		return nil, fmt.Errorf("saving annotation: %w", err)
	}

	logger.Debug("Added annotation %s for %s", a.ID, path)
	return &a, nil
}

// Get returns annotations for a path, newest first. An empty path returns
// all annotations in the active container.
func (s *AnnotationService) Get(ctx context.Context, path string) ([]domain.Annotation, error) {
	container := s.registry.Active()
	annotations, err := s.store.ListAnnotations(ctx, container, path)
	if err != nil {
		return nil, fmt.Errorf("listing annotations: %w", err)
	}
	return annotations, nil
}

// Delete removes an annotation by ID.
func (s *AnnotationService) Delete(ctx context.Context, id string) error {
	container := s.registry.Active()
	if err := s.store.DeleteAnnotation(ctx, container, id); err != nil {
		return fmt.Errorf("deleting annotation %s: %w", id, err)
	}
	return nil
}
