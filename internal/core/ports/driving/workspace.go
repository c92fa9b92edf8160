package driving

import (
	"context"

	"github.com/rememex/rememex-cli/internal/core/domain"
)

// WorkspaceService exposes read operations over indexed folders.
// All file access is confined to registered container roots.
type WorkspaceService interface {
	// ReadFile returns the contents of an indexed file. The path is
	// canonicalised and must resolve inside a root registered by any
	// container, otherwise domain.ErrOutsideRoot is returned. When
	// startLine/endLine are positive the result is restricted to that
	// 1-based line range.
	ReadFile(ctx context.Context, path string, startLine, endLine int) (string, error)

	// ListFiles returns indexed files with their sizes, deduplicated by
	// path and sorted. A non-empty prefix restricts results to paths
	// under it; extensions restrict by file extension (dot optional).
	ListFiles(ctx context.Context, prefix string, extensions []string) ([]domain.FileInfo, error)

	// Diff returns files changed within the given window. The window is
	// a duration string with an s, m, h, d or w suffix, e.g. "30m" or
	// "2d". When previews is true each entry carries the file's first
	// 50 lines.
	Diff(ctx context.Context, window string, previews bool) ([]domain.DiffEntry, error)
}
