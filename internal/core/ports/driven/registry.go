package driven

import "github.com/rememex/rememex-cli/internal/core/domain"

// ContainerRegistry persists container definitions and the active selection.
// The registry is small and read often, so implementations load it fully.
type ContainerRegistry interface {
	// Containers returns all registered containers.
	Containers() ([]domain.Container, error)

	// Get returns a container by name.
	// Returns domain.ErrNotFound when it does not exist.
	Get(name string) (*domain.Container, error)

	// Save stores or updates a container definition.
	Save(c domain.Container) error

	// Remove deletes a container definition.
	Remove(name string) error

	// Active returns the name of the active container.
	Active() string

	// SetActive records the active container.
	SetActive(name string) error
}
