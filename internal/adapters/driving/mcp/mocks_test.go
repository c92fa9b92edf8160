package mcp

import (
	"context"

	"github.com/rememex/rememex-cli/internal/core/domain"
)

// mockSearch returns canned search results.
type mockSearch struct {
	results []domain.SearchResult
	related []domain.RelatedResult
	err     error
	lastOpt domain.SearchOptions
}

func (m *mockSearch) Search(_ context.Context, _ string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	m.lastOpt = opts
	return m.results, m.err
}

func (m *mockSearch) Related(context.Context, string, int) ([]domain.RelatedResult, error) {
	return m.related, m.err
}

// mockIndexer records invocations and returns a fixed status.
type mockIndexer struct {
	status  *domain.IndexStatus
	err     error
	indexed []string
	resets  int
	events  chan domain.Event
}

func (m *mockIndexer) IndexFolder(_ context.Context, root string) error {
	m.indexed = append(m.indexed, root)
	return m.err
}

func (m *mockIndexer) ReindexAll(context.Context) error { return m.err }

func (m *mockIndexer) ResetIndex(context.Context) error {
	m.resets++
	return m.err
}

func (m *mockIndexer) IndexFile(context.Context, string) error  { return m.err }
func (m *mockIndexer) RemoveFile(context.Context, string) error { return m.err }

func (m *mockIndexer) Status(context.Context) (*domain.IndexStatus, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.status, nil
}

func (m *mockIndexer) Events() <-chan domain.Event { return m.events }

// mockContainer serves a fixed container list.
type mockContainer struct {
	containers []domain.Container
	active     domain.Container
	err        error
}

func (m *mockContainer) Create(_ context.Context, name, description string) (*domain.Container, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Container{Name: name, Description: description}, nil
}

func (m *mockContainer) Delete(context.Context, string) error    { return m.err }
func (m *mockContainer) SetActive(context.Context, string) error { return m.err }

func (m *mockContainer) Active(context.Context) (*domain.Container, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &m.active, nil
}

func (m *mockContainer) List(context.Context) ([]domain.Container, error) {
	return m.containers, m.err
}

// mockAnnotation echoes stored annotations.
type mockAnnotation struct {
	annotations []domain.Annotation
	err         error
	lastSource  string
}

func (m *mockAnnotation) Add(_ context.Context, path, note, source string) (*domain.Annotation, error) {
	m.lastSource = source
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Annotation{ID: "ann-1", Path: path, Note: note, Source: source}, nil
}

func (m *mockAnnotation) Get(context.Context, string) ([]domain.Annotation, error) {
	return m.annotations, m.err
}

func (m *mockAnnotation) Delete(context.Context, string) error { return m.err }

// mockWorkspace serves fixed file content.
type mockWorkspace struct {
	content    string
	files      []domain.FileInfo
	entries    []domain.DiffEntry
	err        error
	lastPrefix string
	lastExts   []string
}

func (m *mockWorkspace) ReadFile(context.Context, string, int, int) (string, error) {
	return m.content, m.err
}

func (m *mockWorkspace) ListFiles(_ context.Context, prefix string, extensions []string) ([]domain.FileInfo, error) {
	m.lastPrefix = prefix
	m.lastExts = extensions
	return m.files, m.err
}

func (m *mockWorkspace) Diff(context.Context, string, bool) ([]domain.DiffEntry, error) {
	return m.entries, m.err
}
