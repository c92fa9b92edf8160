package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rememex/rememex-cli/internal/core/domain"
	"github.com/rememex/rememex-cli/internal/core/ports/driven"
	"github.com/rememex/rememex-cli/internal/core/ports/driving"
)

// Ensure WorkspaceService implements the interface.
var _ driving.WorkspaceService = (*WorkspaceService)(nil)

// previewLines is the number of lines carried in diff previews.
const previewLines = 50

// WorkspaceService exposes read operations over indexed folders.
type WorkspaceService struct {
	store    driven.FragmentStore
	registry driven.ContainerRegistry
}

// NewWorkspaceService creates a new workspace service.
func NewWorkspaceService(store driven.FragmentStore, registry driven.ContainerRegistry) *WorkspaceService {
	return &WorkspaceService{
		store:    store,
		registry: registry,
	}
}

// ReadFile returns the contents of an indexed file, restricted to a line
// range when startLine/endLine are positive. The path must fall under a
// root registered by any container, not only the active one.
func (s *WorkspaceService) ReadFile(_ context.Context, path string, startLine, endLine int) (string, error) {
	resolved, err := canonicalise(path)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	roots, err := s.allRoots()
	if err != nil {
		return "", err
	}
	if !insideRoots(resolved, canonicalRoots(roots)) {
		return "", fmt.Errorf("%s: %w", path, domain.ErrOutsideRoot)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%s: %w", path, domain.ErrNotFound)
		}
		return "", fmt.Errorf("reading file: %w", err)
	}
	content := string(data)

	if startLine <= 0 && endLine <= 0 {
		return content, nil
	}

	lines := strings.Split(content, "\n")
	start := startLine
	if start <= 0 {
		start = 1
	}
	end := endLine
	if end <= 0 || end > len(lines) {
		end = len(lines)
	}
	if start > len(lines) || start > end {
		return "", fmt.Errorf("line range %d-%d: %w", startLine, endLine, domain.ErrInvalidInput)
	}
	return strings.Join(lines[start-1:end], "\n"), nil
}

// ListFiles returns indexed files, deduplicated and sorted by path. A
// non-empty prefix and extension list narrow the result.
func (s *WorkspaceService) ListFiles(ctx context.Context, prefix string, extensions []string) ([]domain.FileInfo, error) {
	c, err := s.activeContainer()
	if err != nil {
		return nil, err
	}

	files, err := s.store.ListFiles(ctx, c.Name)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	files = filterFiles(files, prefix, extensions)
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// filterFiles applies path prefix and extension filters.
func filterFiles(files []domain.FileInfo, prefix string, extensions []string) []domain.FileInfo {
	if prefix == "" && len(extensions) == 0 {
		return files
	}

	exts := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		exts[strings.ToLower(strings.TrimPrefix(e, "."))] = true
	}

	filtered := files[:0]
	for _, f := range files {
		if prefix != "" && !strings.HasPrefix(f.Path, prefix) {
			continue
		}
		if len(exts) > 0 {
			ext := ""
			if i := strings.LastIndexByte(f.Path, '.'); i >= 0 {
				ext = strings.ToLower(f.Path[i+1:])
			}
			if !exts[ext] {
				continue
			}
		}
		filtered = append(filtered, f)
	}
	return filtered
}

// Diff returns files changed within the given window.
func (s *WorkspaceService) Diff(ctx context.Context, window string, previews bool) ([]domain.DiffEntry, error) {
	c, err := s.activeContainer()
	if err != nil {
		return nil, err
	}

	d, err := ParseWindow(window)
	if err != nil {
		return nil, err
	}
	since := time.Now().Add(-d)

	all, err := s.store.ListFiles(ctx, c.Name)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}

	var entries []domain.DiffEntry
	for _, f := range all {
		info, statErr := os.Stat(f.Path)

		var entry domain.DiffEntry
		switch {
		case statErr != nil:
			// Indexed but gone from disk
			entry = domain.DiffEntry{Path: f.Path, Status: domain.DiffRemoved, MTime: f.MTime}
		case info.ModTime().Before(since):
			continue
		case info.ModTime().Unix() > f.MTime.Unix():
			// Changed on disk since last indexing
			entry = domain.DiffEntry{Path: f.Path, Status: domain.DiffModified, MTime: info.ModTime()}
		case f.MTime.After(since):
			// First indexed within the window
			entry = domain.DiffEntry{Path: f.Path, Status: domain.DiffAdded, MTime: f.MTime}
		default:
			continue
		}

		if previews && entry.Status != domain.DiffRemoved {
			entry.Preview = readPreview(f.Path)
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].MTime.After(entries[j].MTime) })
	return entries, nil
}

// readPreview returns the first lines of a file.
func readPreview(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	lines := strings.Split(string(data), "\n")
	if len(lines) > previewLines {
		lines = lines[:previewLines]
	}
	return strings.Join(lines, "\n")
}

// ParseWindow parses a duration string with an s, m, h, d or w suffix,
// e.g. "30m", "2h", "1d", "7d".
func ParseWindow(window string) (time.Duration, error) {
	window = strings.TrimSpace(window)
	if len(window) < 2 {
		return 0, fmt.Errorf("diff window %q: %w", window, domain.ErrInvalidInput)
	}

	unit := window[len(window)-1]
	value, err := strconv.Atoi(window[:len(window)-1])
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("diff window %q: %w", window, domain.ErrInvalidInput)
	}

	switch unit {
	case 's':
		return time.Duration(value) * time.Second, nil
	case 'm':
		return time.Duration(value) * time.Minute, nil
	case 'h':
		return time.Duration(value) * time.Hour, nil
	case 'd':
		return time.Duration(value) * 24 * time.Hour, nil
	case 'w':
		return time.Duration(value) * 7 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("diff window %q: %w", window, domain.ErrInvalidInput)
	}
}

// allRoots gathers the registered roots of every container.
func (s *WorkspaceService) allRoots() ([]string, error) {
	containers, err := s.registry.Containers()
	if err != nil {
		return nil, fmt.Errorf("listing containers: %w", err)
	}
	var roots []string
	for _, c := range containers {
		roots = append(roots, c.Roots...)
	}
	return roots, nil
}

func (s *WorkspaceService) activeContainer() (*domain.Container, error) {
	name := s.registry.Active()
	c, err := s.registry.Get(name)
	if err != nil {
		return nil, fmt.Errorf("active container %s: %w", name, err)
	}
	return c, nil
}

// canonicalise resolves a path to its absolute, symlink-free form.
func canonicalise(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}

// canonicalRoots resolves each root, keeping the raw path on failure.
func canonicalRoots(roots []string) []string {
	out := make([]string, len(roots))
	for i, r := range roots {
		if resolved, err := canonicalise(r); err == nil {
			out[i] = resolved
		} else {
			out[i] = r
		}
	}
	return out
}
