package driving

import (
	"context"

	"github.com/rememex/rememex-cli/internal/core/domain"
)

// ContainerService manages isolated index containers.
type ContainerService interface {
	// Create registers a new container stamped with the current embedding
	// provider identity and creates its storage tables.
	Create(ctx context.Context, name, description string) (*domain.Container, error)

	// Delete removes a container and drops all its data.
	// The Default container cannot be deleted. Deleting the active
	// container re-activates Default.
	Delete(ctx context.Context, name string) error

	// SetActive switches the active container.
	SetActive(ctx context.Context, name string) error

	// Active returns the active container.
	Active(ctx context.Context) (*domain.Container, error)

	// List returns all containers, Default first.
	List(ctx context.Context) ([]domain.Container, error)
}
