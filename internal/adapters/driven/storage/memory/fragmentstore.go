// Package memory provides in-memory implementations of the driven ports,
// used in tests and as a reference for the port contracts.
package memory

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rememex/rememex-cli/internal/core/domain"
	"github.com/rememex/rememex-cli/internal/core/ports/driven"
)

// Ensure FragmentStore implements the interface.
var _ driven.FragmentStore = (*FragmentStore)(nil)

type containerData struct {
	fragments   map[string][]domain.Fragment // path -> fragments
	annotations map[string]domain.Annotation // id -> annotation
}

// FragmentStore is an in-memory implementation of driven.FragmentStore.
type FragmentStore struct {
	mu         sync.RWMutex
	containers map[string]*containerData
}

// NewFragmentStore creates a new in-memory fragment store.
func NewFragmentStore() *FragmentStore {
	return &FragmentStore{
		containers: make(map[string]*containerData),
	}
}

func (s *FragmentStore) container(name string) (*containerData, error) {
	c, ok := s.containers[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

// EnsureContainer creates the container if it does not exist.
func (s *FragmentStore) EnsureContainer(_ context.Context, container string) error {
	if container == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.containers[container]; !ok {
		s.containers[container] = &containerData{
			fragments:   make(map[string][]domain.Fragment),
			annotations: make(map[string]domain.Annotation),
		}
	}
	return nil
}

// DropContainer removes the container and all its data.
func (s *FragmentStore) DropContainer(_ context.Context, container string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.containers[container]; !ok {
		return domain.ErrNotFound
	}
	delete(s.containers, container)
	return nil
}

// Reset clears all fragments and annotations but keeps the container.
func (s *FragmentStore) Reset(_ context.Context, container string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.container(container)
	if err != nil {
		return err
	}
	c.fragments = make(map[string][]domain.Fragment)
	c.annotations = make(map[string]domain.Annotation)
	return nil
}

// ReplaceFile atomically replaces all fragments for a path.
func (s *FragmentStore) ReplaceFile(_ context.Context, container, path string, fragments []domain.Fragment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.container(container)
	if err != nil {
		return err
	}
	c.fragments[path] = append([]domain.Fragment(nil), fragments...)
	return nil
}

// DeleteFile removes all fragments for a path.
func (s *FragmentStore) DeleteFile(_ context.Context, container, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.container(container)
	if err != nil {
		return err
	}
	delete(c.fragments, path)
	return nil
}

// FileMTime returns the modification time recorded for a path.
func (s *FragmentStore) FileMTime(_ context.Context, container, path string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.container(container)
	if err != nil {
		return time.Time{}, err
	}
	frags, ok := c.fragments[path]
	if !ok || len(frags) == 0 {
		return time.Time{}, domain.ErrNotFound
	}
	mtime := frags[0].MTime
	for _, f := range frags[1:] {
		if f.MTime.After(mtime) {
			mtime = f.MTime
		}
	}
	return mtime, nil
}

// FileFragments returns all fragments for a path in ordinal order.
func (s *FragmentStore) FileFragments(_ context.Context, container, path string) ([]domain.Fragment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.container(container)
	if err != nil {
		return nil, err
	}
	frags := append([]domain.Fragment(nil), c.fragments[path]...)
	sort.Slice(frags, func(i, j int) bool { return frags[i].Ordinal < frags[j].Ordinal })
	return frags, nil
}

// ListFiles returns a summary of every indexed file.
func (s *FragmentStore) ListFiles(_ context.Context, container string) ([]domain.FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.container(container)
	if err != nil {
		return nil, err
	}

	var files []domain.FileInfo
	for path, frags := range c.fragments {
		if len(frags) == 0 {
			continue
		}
		info := domain.FileInfo{Path: path, Fragments: len(frags)}
		for _, f := range frags {
			info.Size += int64(len(f.Text))
			if f.MTime.After(info.MTime) {
				info.MTime = f.MTime
			}
		}
		files = append(files, info)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// DenseSearch returns the k nearest fragments by cosine distance.
func (s *FragmentStore) DenseSearch(_ context.Context, container string, vector []float32, k int) ([]driven.FragmentHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.container(container)
	if err != nil {
		return nil, err
	}
	if len(vector) == 0 || k <= 0 {
		return nil, nil
	}

	var hits []driven.FragmentHit
	for _, frags := range c.fragments {
		for _, f := range frags {
			if len(f.Vector) != len(vector) {
				continue
			}
			hits = append(hits, driven.FragmentHit{
				Fragment: f,
				Distance: cosineDistance(vector, f.Vector),
			})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// KeywordSearch returns fragments containing any query token, ranked by
// the number of distinct tokens matched.
func (s *FragmentStore) KeywordSearch(_ context.Context, container, query string, k int) ([]driven.KeywordHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.container(container)
	if err != nil {
		return nil, err
	}

	tokens := strings.Fields(strings.ToLower(query))
	if len(tokens) == 0 || k <= 0 {
		return nil, nil
	}

	var hits []driven.KeywordHit
	for _, frags := range c.fragments {
		for _, f := range frags {
			text := strings.ToLower(f.Text)
			matched := 0
			for _, tok := range tokens {
				if strings.Contains(text, tok) {
					matched++
				}
			}
			if matched == 0 {
				continue
			}
			// Lower rank is better, matching the bm25 convention.
			hits = append(hits, driven.KeywordHit{Fragment: f, Rank: -float64(matched)})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Rank < hits[j].Rank })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Stats returns index counters for the container.
func (s *FragmentStore) Stats(_ context.Context, container string) (files, fragments, annotations int, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.container(container)
	if err != nil {
		return 0, 0, 0, err
	}
	for _, frags := range c.fragments {
		if len(frags) == 0 {
			continue
		}
		files++
		fragments += len(frags)
	}
	return files, fragments, len(c.annotations), nil
}

// SaveAnnotation stores an annotation.
func (s *FragmentStore) SaveAnnotation(_ context.Context, container string, a domain.Annotation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.container(container)
	if err != nil {
		return err
	}
	if a.ID == "" || a.Note == "" {
		return domain.ErrInvalidInput
	}
	c.annotations[a.ID] = a
	return nil
}

// ListAnnotations returns annotations, newest first.
func (s *FragmentStore) ListAnnotations(_ context.Context, container, path string) ([]domain.Annotation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.container(container)
	if err != nil {
		return nil, err
	}
	var annotations []domain.Annotation
	for _, a := range c.annotations {
		if path != "" && a.Path != path {
			continue
		}
		annotations = append(annotations, a)
	}
	sort.Slice(annotations, func(i, j int) bool {
		return annotations[i].CreatedAt.After(annotations[j].CreatedAt)
	})
	return annotations, nil
}

// DeleteAnnotation removes an annotation by ID.
func (s *FragmentStore) DeleteAnnotation(_ context.Context, container, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.container(container)
	if err != nil {
		return err
	}
	if _, ok := c.annotations[id]; !ok {
		return domain.ErrNotFound
	}
	delete(c.annotations, id)
	return nil
}

// DenseSearchAnnotations returns the k nearest annotations by cosine distance.
func (s *FragmentStore) DenseSearchAnnotations(_ context.Context, container string, vector []float32, k int) ([]driven.AnnotationHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.container(container)
	if err != nil {
		return nil, err
	}
	if len(vector) == 0 || k <= 0 {
		return nil, nil
	}

	var hits []driven.AnnotationHit
	for _, a := range c.annotations {
		if len(a.Vector) != len(vector) {
			continue
		}
		hits = append(hits, driven.AnnotationHit{
			Annotation: a,
			Distance:   cosineDistance(vector, a.Vector),
		})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Close is a no-op for the in-memory store.
func (s *FragmentStore) Close() error {
	return nil
}

func cosineDistance(a, b []float32) float64 {
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(magA)*math.Sqrt(magB))
}
