package driving

import (
	"context"

	"github.com/rememex/rememex-cli/internal/core/domain"
)

// IndexerService builds and maintains container indexes.
// At most one indexing job runs per container; concurrent attempts
// return domain.ErrBusy.
type IndexerService interface {
	// IndexFolder indexes a folder into the active container and registers
	// it as a root. Files already indexed with an unchanged mtime are
	// skipped.
	IndexFolder(ctx context.Context, root string) error

	// ReindexAll re-walks every registered root of the active container,
	// indexing new and changed files and removing records for files that
	// no longer exist.
	ReindexAll(ctx context.Context) error

	// ResetIndex clears all fragments and annotations from the active
	// container but keeps its registration and roots.
	ResetIndex(ctx context.Context) error

	// IndexFile indexes or re-indexes a single file.
	IndexFile(ctx context.Context, path string) error

	// RemoveFile deletes a file's fragments from the index.
	RemoveFile(ctx context.Context, path string) error

	// Status reports the index state of the active container.
	Status(ctx context.Context) (*domain.IndexStatus, error)

	// Events returns the event stream for progress and lifecycle
	// notifications. The channel is shared across jobs and never closed.
	Events() <-chan domain.Event
}
