package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rememex/rememex-cli/internal/core/domain"
	"github.com/rememex/rememex-cli/internal/core/ports/driven"
	"github.com/rememex/rememex-cli/internal/core/ports/driving"
	"github.com/rememex/rememex-cli/internal/logger"
)

// Ensure ContainerService implements the interface.
var _ driving.ContainerService = (*ContainerService)(nil)

// ContainerService manages isolated index containers.
type ContainerService struct {
	store    driven.FragmentStore
	embedder driven.EmbeddingProvider
	registry driven.ContainerRegistry
}

// NewContainerService creates a new container service.
func NewContainerService(
	store driven.FragmentStore,
	embedder driven.EmbeddingProvider,
	registry driven.ContainerRegistry,
) *ContainerService {
	return &ContainerService{
		store:    store,
		embedder: embedder,
		registry: registry,
	}
}

// EnsureDefault creates the Default container if it does not exist.
// Called once at startup.
func (s *ContainerService) EnsureDefault(ctx context.Context) error {
	_, err := s.registry.Get(domain.DefaultContainer)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("checking default container: %w", err)
	}

	_, err = s.Create(ctx, domain.DefaultContainer, "")
	return err
}

// Create registers a new container stamped with the current embedding
// provider identity.
func (s *ContainerService) Create(ctx context.Context, name, description string) (*domain.Container, error) {
	if name == "" {
		return nil, fmt.Errorf("container name: %w", domain.ErrInvalidInput)
	}
	if _, err := s.registry.Get(name); err == nil {
		return nil, fmt.Errorf("container %s already exists: %w", name, domain.ErrInvalidInput)
	}

	c := domain.Container{
		Name:        name,
		Description: description,
		Provider:    s.embedder.Identity(),
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.store.EnsureContainer(ctx, name); err != nil {
		return nil, fmt.Errorf("creating container storage: %w", err)
	}
	if err := s.registry.Save(c); err != nil {
		return nil, fmt.Errorf("registering container: %w", err)
	}

	logger.Info("Created container %s (%s/%s, %d dimensions)",
		name, c.Provider.Provider, c.Provider.Model, c.Provider.Dimensions)
	return &c, nil
}

// Delete removes a container and drops all its data.
func (s *ContainerService) Delete(ctx context.Context, name string) error {
	if name == domain.DefaultContainer {
		return fmt.Errorf("container %s: %w", name, domain.ErrContainerProtected)
	}
	if _, err := s.registry.Get(name); err != nil {
		return fmt.Errorf("container %s: %w", name, err)
	}

	if err := s.store.DropContainer(ctx, name); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("dropping container storage: %w", err)
	}
	if err := s.registry.Remove(name); err != nil {
		return fmt.Errorf("removing container: %w", err)
	}

	logger.Info("Deleted container %s", name)
	return nil
}

// SetActive switches the active container.
func (s *ContainerService) SetActive(_ context.Context, name string) error {
	if err := s.registry.SetActive(name); err != nil {
		return fmt.Errorf("activating container %s: %w", name, err)
	}
	logger.Info("Active container: %s", name)
	return nil
}

// Active returns the active container.
func (s *ContainerService) Active(_ context.Context) (*domain.Container, error) {
	name := s.registry.Active()
	c, err := s.registry.Get(name)
	if err != nil {
		return nil, fmt.Errorf("active container %s: %w", name, err)
	}
	return c, nil
}

// List returns all containers, Default first, rest alphabetical.
func (s *ContainerService) List(_ context.Context) ([]domain.Container, error) {
	containers, err := s.registry.Containers()
	if err != nil {
		return nil, fmt.Errorf("listing containers: %w", err)
	}

	sort.Slice(containers, func(i, j int) bool {
		if containers[i].Name == domain.DefaultContainer {
			return true
		}
		if containers[j].Name == domain.DefaultContainer {
			return false
		}
		return containers[i].Name < containers[j].Name
	})
	return containers, nil
}
