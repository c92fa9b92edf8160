package services

import (
	"context"
	"sync"

	"github.com/rememex/rememex-cli/internal/core/domain"
)

// fakeEmbedder returns preset vectors by text, with a fallback for
// unknown inputs. Counts batch calls for skip assertions.
type fakeEmbedder struct {
	mu        sync.Mutex
	vectors    map[string][]float32
	fallback   []float32
	calls      int
	queryCalls int
	failures   int // fail this many calls with failErr before succeeding
	failErr    error
	lastBatch  []string
}

func newFakeEmbedder(dims int) *fakeEmbedder {
	fallback := make([]float32, dims)
	fallback[0] = 1
	return &fakeEmbedder{
		vectors:  make(map[string][]float32),
		fallback: fallback,
	}
}

func (f *fakeEmbedder) vectorFor(text string) []float32 {
	if v, ok := f.vectors[text]; ok {
		return v
	}
	return f.fallback
}

func (f *fakeEmbedder) EmbedPassages(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastBatch = texts
	if f.failures > 0 {
		f.failures--
		return nil, f.failErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vectorFor(t)
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryCalls++
	return f.vectorFor(text), nil
}

func (f *fakeEmbedder) Dimensions() int { return len(f.fallback) }

func (f *fakeEmbedder) Identity() domain.ProviderIdentity {
	return domain.ProviderIdentity{Provider: "local", Model: "fake", Dimensions: len(f.fallback)}
}

func (f *fakeEmbedder) Ping(context.Context) error { return nil }
func (f *fakeEmbedder) Close() error               { return nil }

// memRegistry is an in-memory container registry for tests.
type memRegistry struct {
	mu     sync.Mutex
	byName map[string]domain.Container
	active string
}

func newMemRegistry() *memRegistry {
	return &memRegistry{byName: make(map[string]domain.Container)}
}

func (r *memRegistry) Containers() ([]domain.Container, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Container
	for _, c := range r.byName {
		out = append(out, c)
	}
	return out, nil
}

func (r *memRegistry) Get(name string) (*domain.Container, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byName[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (r *memRegistry) Save(c domain.Container) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[c.Name] = c
	return nil
}

func (r *memRegistry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[name]; !ok {
		return domain.ErrNotFound
	}
	delete(r.byName, name)
	if r.active == name {
		r.active = domain.DefaultContainer
	}
	return nil
}

func (r *memRegistry) Active() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == "" {
		return domain.DefaultContainer
	}
	return r.active
}

func (r *memRegistry) SetActive(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[name]; !ok {
		return domain.ErrNotFound
	}
	r.active = name
	return nil
}

// fakeReranker returns preset logits, or an error.
type fakeReranker struct {
	logits []float64
	err    error
	calls  int
}

func (f *fakeReranker) Rerank(_ context.Context, _ string, passages []string) ([]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]float64, len(passages))
	copy(out, f.logits)
	return out, nil
}
