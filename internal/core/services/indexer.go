package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rememex/rememex-cli/internal/chunker"
	"github.com/rememex/rememex-cli/internal/core/domain"
	"github.com/rememex/rememex-cli/internal/core/ports/driven"
	"github.com/rememex/rememex-cli/internal/core/ports/driving"
	"github.com/rememex/rememex-cli/internal/extract"
	"github.com/rememex/rememex-cli/internal/ignore"
	"github.com/rememex/rememex-cli/internal/logger"
)

// Ensure IndexerService implements the interface.
var _ driving.IndexerService = (*IndexerService)(nil)

// embedRetryDelays is the backoff schedule for transient provider failures.
var embedRetryDelays = []time.Duration{500 * time.Millisecond, 2 * time.Second, 8 * time.Second}

// eventBuffer sizes the shared event channel. Sends never block; events
// are dropped when no consumer keeps up.
const eventBuffer = 256

// IndexerConfig tunes the indexing pipeline.
type IndexerConfig struct {
	// ChunkMaxBytes overrides the per-kind chunk size when positive.
	ChunkMaxBytes int

	// ChunkOverlapBytes overrides the chunk overlap when non-negative.
	// Use -1 for the per-kind default.
	ChunkOverlapBytes int

	// Workers sizes the extraction pool. Defaults to NumCPU.
	Workers int
}

// IndexerService builds and maintains container indexes.
type IndexerService struct {
	store     driven.FragmentStore
	embedder  driven.EmbeddingProvider
	registry  driven.ContainerRegistry
	extractor *extract.Extractor
	cfg       IndexerConfig

	events   chan domain.Event
	loadOnce sync.Once

	mu   sync.Mutex
	busy map[string]bool
}

// NewIndexerService creates a new indexer service.
func NewIndexerService(
	store driven.FragmentStore,
	embedder driven.EmbeddingProvider,
	registry driven.ContainerRegistry,
	extractor *extract.Extractor,
	cfg IndexerConfig,
) *IndexerService {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.ChunkOverlapBytes == 0 {
		cfg.ChunkOverlapBytes = -1
	}
	return &IndexerService{
		store:     store,
		embedder:  embedder,
		registry:  registry,
		extractor: extractor,
		cfg:       cfg,
		events:    make(chan domain.Event, eventBuffer),
		busy:      make(map[string]bool),
	}
}

// Events returns the shared event stream. The channel is never closed.
func (s *IndexerService) Events() <-chan domain.Event {
	return s.events
}

// emit delivers an event without blocking.
func (s *IndexerService) emit(e domain.Event) {
	select {
	case s.events <- e:
	default:
	}
}

// acquire marks a container busy. Returns domain.ErrBusy when a job is
// already running.
func (s *IndexerService) acquire(container string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy[container] {
		return fmt.Errorf("container %s: %w", container, domain.ErrBusy)
	}
	s.busy[container] = true
	return nil
}

func (s *IndexerService) release(container string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.busy, container)
}

// activeContainer resolves and validates the active container, checking
// the provider identity against the configured embedder.
func (s *IndexerService) activeContainer() (*domain.Container, error) {
	name := s.registry.Active()
	c, err := s.registry.Get(name)
	if err != nil {
		return nil, fmt.Errorf("active container %s: %w", name, err)
	}
	if !c.Provider.Matches(s.embedder.Identity()) {
		return nil, fmt.Errorf("container %s built with %s/%s (%dd): %w",
			c.Name, c.Provider.Provider, c.Provider.Model, c.Provider.Dimensions,
			domain.ErrProviderMismatch)
	}
	return c, nil
}

// IndexFolder indexes a folder into the active container.
func (s *IndexerService) IndexFolder(ctx context.Context, root string) error {
	logger.Section("Index Folder")

	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolving root: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory: %w", root, domain.ErrInvalidInput)
	}

	c, err := s.activeContainer()
	if err != nil {
		return err
	}
	if err := s.acquire(c.Name); err != nil {
		return err
	}
	defer s.release(c.Name)

	// Register the root before walking so a partial job is resumable
	if !c.HasRoot(root) {
		c.Roots = append(c.Roots, root)
		if err := s.registry.Save(*c); err != nil {
			return fmt.Errorf("registering root: %w", err)
		}
	}

	logger.Info("Indexing %s into %s", root, c.Name)
	return s.indexRoots(ctx, c.Name, []string{root})
}

// ReindexAll re-walks every registered root of the active container.
func (s *IndexerService) ReindexAll(ctx context.Context) error {
	logger.Section("Reindex All")

	c, err := s.activeContainer()
	if err != nil {
		return err
	}
	if err := s.acquire(c.Name); err != nil {
		return err
	}
	defer s.release(c.Name)

	if err := s.indexRoots(ctx, c.Name, c.Roots); err != nil {
		return err
	}
	return s.pruneMissing(ctx, c.Name)
}

// indexRoots walks the roots, indexing new and changed files on a worker pool.
func (s *IndexerService) indexRoots(ctx context.Context, container string, roots []string) error {
	if err := s.store.EnsureContainer(ctx, container); err != nil {
		return fmt.Errorf("ensuring container: %w", err)
	}

	var paths []string
	for _, root := range roots {
		matcher := ignore.NewMatcher(root)
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				logger.Warn("Walk error at %s: %v", path, err)
				return nil
			}
			if d.IsDir() {
				if matcher.SkipDir(path) {
					return filepath.SkipDir
				}
				return nil
			}
			if matcher.Excluded(path) || !s.extractor.Supports(path) {
				return nil
			}
			paths = append(paths, path)
			return nil
		})
		if err != nil {
			return fmt.Errorf("walking %s: %w", root, err)
		}
	}

	total := len(paths)
	logger.Info("Found %d candidate files", total)

	var done, skipped int
	var doneMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for _, path := range paths {
		path := path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := s.indexOne(gctx, container, path); err != nil {
				if errors.Is(err, extract.ErrUnsupported) {
					return nil
				}
				// Only provider and store failures abort the job;
				// anything else skips the file and the walk continues.
				if jobFailure(err) {
					return fmt.Errorf("indexing %s: %w", path, err)
				}
				logger.Warn("Skipping %s: %v", path, err)
				doneMu.Lock()
				skipped++
				doneMu.Unlock()
				return nil
			}
			doneMu.Lock()
			done++
			current := done
			doneMu.Unlock()
			s.emit(domain.Event{
				Kind:    domain.EventIndexingProgress,
				Current: current,
				Total:   total,
				Path:    path,
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	msg := fmt.Sprintf("indexed %d files", done)
	if skipped > 0 {
		msg = fmt.Sprintf("indexed %d files, skipped %d", done, skipped)
	}
	s.emit(domain.Event{
		Kind:    domain.EventIndexingComplete,
		Message: msg,
	})
	logger.Info("Indexing complete: %d files, %d skipped", done, skipped)
	return nil
}

// jobFailure reports whether an indexing error should fail the whole job.
// Provider failures that survived the retry schedule, store failures and
// cancellation are fatal; per-file errors are not.
func jobFailure(err error) bool {
	return errors.Is(err, domain.ErrStoreFailure) ||
		errors.Is(err, domain.ErrTransport) ||
		errors.Is(err, domain.ErrTimeout) ||
		errors.Is(err, domain.ErrModelLoad) ||
		errors.Is(err, domain.ErrProviderMismatch) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// indexOne extracts, chunks, embeds and stores a single file.
// Files whose recorded mtime is unchanged are skipped.
func (s *IndexerService) indexOne(ctx context.Context, container, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat: %w", err)
	}

	if recorded, err := s.store.FileMTime(ctx, container, path); err == nil {
		if recorded.Unix() == info.ModTime().Unix() {
			logger.Debug("Unchanged, skipping: %s", path)
			return nil
		}
	}

	res, err := s.extractor.Extract(ctx, path)
	if err != nil {
		return err
	}

	fragments := s.chunkSections(path, res, info.ModTime())
	if len(fragments) == 0 {
		return s.store.DeleteFile(ctx, container, path)
	}

	// Embedding input carries the file name so isolated fragments keep
	// minimal context.
	prefix := "File: " + filepath.Base(path) + "\n"
	texts := make([]string, len(fragments))
	for i, f := range fragments {
		texts[i] = prefix + f.Text
	}

	vectors, err := s.embedWithRetry(ctx, texts)
	if err != nil {
		s.emit(domain.Event{Kind: domain.EventModelLoadError, Reason: err.Error()})
		return fmt.Errorf("embedding: %w", err)
	}
	for i := range fragments {
		fragments[i].Vector = vectors[i]
	}

	if err := s.store.ReplaceFile(ctx, container, path, fragments); err != nil {
		return fmt.Errorf("%v: %w", err, domain.ErrStoreFailure)
	}
	return nil
}

// chunkSections splits extracted sections into fragments with continuous
// ordinals across sections.
func (s *IndexerService) chunkSections(path string, res *extract.Result, mtime time.Time) []domain.Fragment {
	var fragments []domain.Fragment
	ordinal := 0
	for _, section := range res.Sections {
		chunks := chunker.SplitWithOverrides(section.Text, res.Ext, s.cfg.ChunkMaxBytes, s.cfg.ChunkOverlapBytes)
		for _, ch := range chunks {
			fragments = append(fragments, domain.Fragment{
				ID:          uuid.NewString(),
				Path:        path,
				Ordinal:     ordinal,
				StartOffset: ch.Start,
				EndOffset:   ch.End,
				Text:        ch.Text,
				Kind:        section.Kind,
				Language:    chunker.LanguageFor(res.Ext),
				MTime:       mtime,
			})
			ordinal++
		}
	}
	return fragments
}

// embedWithRetry retries transient provider failures on a fixed backoff
// schedule. Invalid input errors are not retried.
func (s *IndexerService) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt <= len(embedRetryDelays); attempt++ {
		if attempt > 0 {
			logger.Debug("Embedding retry %d after %v: %v", attempt, embedRetryDelays[attempt-1], lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(embedRetryDelays[attempt-1]):
			}
		}

		vectors, err := s.embedder.EmbedPassages(ctx, texts)
		if err == nil {
			s.loadOnce.Do(func() {
				s.emit(domain.Event{Kind: domain.EventModelLoaded})
			})
			return vectors, nil
		}
		lastErr = err

		if !errors.Is(err, domain.ErrTransport) && !errors.Is(err, domain.ErrTimeout) &&
			!errors.Is(err, domain.ErrModelLoad) {
			return nil, err
		}
	}
	return nil, lastErr
}

// pruneMissing removes index records for files that no longer exist.
func (s *IndexerService) pruneMissing(ctx context.Context, container string) error {
	files, err := s.store.ListFiles(ctx, container)
	if err != nil {
		return fmt.Errorf("listing files: %w", err)
	}

	removed := 0
	for _, f := range files {
		if _, err := os.Stat(f.Path); err == nil {
			continue
		}
		if err := s.store.DeleteFile(ctx, container, f.Path); err != nil {
			return fmt.Errorf("pruning %s: %w", f.Path, err)
		}
		removed++
	}
	if removed > 0 {
		logger.Info("Pruned %d missing files", removed)
	}
	return nil
}

// ResetIndex clears all fragments and annotations from the active container.
func (s *IndexerService) ResetIndex(ctx context.Context) error {
	c, err := s.activeContainer()
	if err != nil {
		return err
	}
	if err := s.acquire(c.Name); err != nil {
		return err
	}
	defer s.release(c.Name)

	if err := s.store.EnsureContainer(ctx, c.Name); err != nil {
		return fmt.Errorf("ensuring container: %w", err)
	}
	logger.Info("Resetting index for %s", c.Name)
	return s.store.Reset(ctx, c.Name)
}

// IndexFile indexes or re-indexes a single file. The path must be inside
// a registered root.
func (s *IndexerService) IndexFile(ctx context.Context, path string) error {
	path, err := canonicalise(path)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}

	c, err := s.activeContainer()
	if err != nil {
		return err
	}
	if !insideRoots(path, c.Roots) {
		return fmt.Errorf("%s: %w", path, domain.ErrOutsideRoot)
	}
	if err := s.acquire(c.Name); err != nil {
		return err
	}
	defer s.release(c.Name)

	if err := s.store.EnsureContainer(ctx, c.Name); err != nil {
		return fmt.Errorf("ensuring container: %w", err)
	}
	return s.indexOne(ctx, c.Name, path)
}

// RemoveFile deletes a file's fragments from the index.
func (s *IndexerService) RemoveFile(ctx context.Context, path string) error {
	path, err := canonicalise(path)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}

	c, err := s.activeContainer()
	if err != nil {
		return err
	}
	return s.store.DeleteFile(ctx, c.Name, path)
}

// Status reports the index state of the active container.
func (s *IndexerService) Status(ctx context.Context) (*domain.IndexStatus, error) {
	name := s.registry.Active()
	c, err := s.registry.Get(name)
	if err != nil {
		return nil, fmt.Errorf("active container %s: %w", name, err)
	}

	files, fragments, annotations, err := s.store.Stats(ctx, name)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("stats: %w", err)
	}

	s.mu.Lock()
	busy := s.busy[name]
	s.mu.Unlock()

	return &domain.IndexStatus{
		Container:   name,
		Files:       files,
		Fragments:   fragments,
		Annotations: annotations,
		Busy:        busy,
		Provider:    c.Provider,
		Roots:       c.Roots,
	}, nil
}

// insideRoots reports whether path falls under any of the roots.
func insideRoots(path string, roots []string) bool {
	for _, root := range roots {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			continue
		}
		if rel == "." || (!filepath.IsAbs(rel) && !isParentRef(rel)) {
			return true
		}
	}
	return false
}

func isParentRef(rel string) bool {
	return rel == ".." || len(rel) > 2 && rel[:3] == ".."+string(filepath.Separator)
}
