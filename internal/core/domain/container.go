package domain

import "time"

// DefaultContainer is the name of the container that always exists.
// It cannot be deleted and becomes active when the active container is removed.
const DefaultContainer = "Default"

// ProviderIdentity pins a container to the embedding space it was built with.
// Vectors from different providers or models are not comparable, so the
// identity is snapshotted at container creation and never changes.
type ProviderIdentity struct {
	// Provider is the provider kind, e.g. "local" or "remote".
	Provider string

	// Model is the embedding model name.
	Model string

	// Dimensions is the embedding vector size.
	Dimensions int
}

// Matches reports whether two identities describe the same vector space.
func (p ProviderIdentity) Matches(other ProviderIdentity) bool {
	return p.Provider == other.Provider &&
		p.Model == other.Model &&
		p.Dimensions == other.Dimensions
}

// Container is an isolated index. Each container has its own fragment
// table, full-text index and annotations, and its own set of indexed roots.
type Container struct {
	// Name is the unique container name. Used to derive table names.
	Name string

	// Description is an optional human-readable description.
	Description string

	// Roots are the absolute folder paths indexed into this container.
	Roots []string

	// Provider is the embedding identity snapshotted at creation.
	Provider ProviderIdentity

	// CreatedAt is when the container was created.
	CreatedAt time.Time
}

// HasRoot reports whether root is already registered on the container.
func (c *Container) HasRoot(root string) bool {
	for _, r := range c.Roots {
		if r == root {
			return true
		}
	}
	return false
}
