package file

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/rememex/rememex-cli/internal/core/domain"
	"github.com/rememex/rememex-cli/internal/core/ports/driven"
)

// Ensure ContainerRegistry implements the interface.
var _ driven.ContainerRegistry = (*ContainerRegistry)(nil)

// registryFile is the on-disk TOML layout.
type registryFile struct {
	Active     string            `toml:"active"`
	Containers []containerRecord `toml:"containers"`
}

type containerRecord struct {
	Name        string    `toml:"name"`
	Description string    `toml:"description,omitempty"`
	Roots       []string  `toml:"roots,omitempty"`
	Provider    string    `toml:"provider"`
	Model       string    `toml:"model"`
	Dimensions  int       `toml:"dimensions"`
	CreatedAt   time.Time `toml:"created_at"`
}

// ContainerRegistry is a TOML-backed implementation of driven.ContainerRegistry.
// The whole registry is held in memory and rewritten on every change.
type ContainerRegistry struct {
	mu       sync.RWMutex
	filePath string
	active   string
	byName   map[string]domain.Container
	order    []string
}

// NewContainerRegistry creates a registry stored at configDir/containers.toml.
// If configDir is empty, defaults to ~/.rememex.
func NewContainerRegistry(configDir string) (*ContainerRegistry, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".rememex")
	}
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	r := &ContainerRegistry{
		filePath: filepath.Join(configDir, "containers.toml"),
		byName:   make(map[string]domain.Container),
	}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *ContainerRegistry) load() error {
	data, err := os.ReadFile(r.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var f registryFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return err
	}

	r.active = f.Active
	for _, rec := range f.Containers {
		r.byName[rec.Name] = domain.Container{
			Name:        rec.Name,
			Description: rec.Description,
			Roots:       rec.Roots,
			Provider: domain.ProviderIdentity{
				Provider:   rec.Provider,
				Model:      rec.Model,
				Dimensions: rec.Dimensions,
			},
			CreatedAt: rec.CreatedAt,
		}
		r.order = append(r.order, rec.Name)
	}
	return nil
}

// save writes the registry to disk (caller must hold lock).
func (r *ContainerRegistry) save() error {
	f := registryFile{Active: r.active}
	for _, name := range r.order {
		c := r.byName[name]
		f.Containers = append(f.Containers, containerRecord{
			Name:        c.Name,
			Description: c.Description,
			Roots:       c.Roots,
			Provider:    c.Provider.Provider,
			Model:       c.Provider.Model,
			Dimensions:  c.Provider.Dimensions,
			CreatedAt:   c.CreatedAt,
		})
	}

	data, err := toml.Marshal(f)
	if err != nil {
		return err
	}
	return os.WriteFile(r.filePath, data, 0600)
}

// Containers returns all registered containers in registration order.
func (r *ContainerRegistry) Containers() ([]domain.Container, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	containers := make([]domain.Container, 0, len(r.order))
	for _, name := range r.order {
		containers = append(containers, r.byName[name])
	}
	return containers, nil
}

// Get returns a container by name.
func (r *ContainerRegistry) Get(name string) (*domain.Container, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byName[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

// Save stores or updates a container definition.
func (r *ContainerRegistry) Save(c domain.Container) error {
	if c.Name == "" {
		return domain.ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byName[c.Name]; !ok {
		r.order = append(r.order, c.Name)
	}
	r.byName[c.Name] = c
	return r.save()
}

// Remove deletes a container definition.
func (r *ContainerRegistry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byName[name]; !ok {
		return domain.ErrNotFound
	}
	delete(r.byName, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if r.active == name {
		r.active = domain.DefaultContainer
	}
	return r.save()
}

// Active returns the name of the active container.
func (r *ContainerRegistry) Active() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.active == "" {
		return domain.DefaultContainer
	}
	return r.active
}

// SetActive records the active container.
func (r *ContainerRegistry) SetActive(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byName[name]; !ok {
		return domain.ErrNotFound
	}
	r.active = name
	return r.save()
}
