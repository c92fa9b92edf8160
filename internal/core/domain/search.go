package domain

import "time"

// SearchOptions controls the retrieval pipeline.
type SearchOptions struct {
	// TopK is the maximum number of results to return (default 10).
	TopK int

	// MinScore drops results scoring below this value (0-100 scale).
	MinScore float64

	// Extensions restricts results to files with these extensions
	// (with or without the leading dot).
	Extensions []string

	// PathPrefix restricts results to paths under this prefix.
	PathPrefix string

	// ContextBytes truncates snippets to at most this many bytes,
	// on a rune boundary. Zero means no truncation.
	ContextBytes int

	// Container selects the container to search. Empty means active.
	Container string

	// DisableRerank skips the cross-encoder stage even when configured.
	DisableRerank bool
}

// SearchResult is one scored, per-file deduplicated retrieval hit.
type SearchResult struct {
	// Path is the file path, or an annotation pseudo-path.
	Path string

	// Snippet is the best matching fragment text, possibly truncated.
	Snippet string

	// Score is normalised to 0-100.
	Score float64

	// Ordinal is the winning fragment's position within the file.
	Ordinal int
}

// RelatedResult is a file ranked by similarity to a reference file.
type RelatedResult struct {
	Path  string
	Score float64
}

// DiffStatus classifies a change observed by the diff operation.
type DiffStatus string

// Diff statuses.
const (
	DiffAdded    DiffStatus = "added"
	DiffModified DiffStatus = "modified"
	DiffRemoved  DiffStatus = "removed"
)

// DiffEntry is one changed file within a diff window.
type DiffEntry struct {
	// Path is the file path.
	Path string

	// Status classifies the change.
	Status DiffStatus

	// MTime is the file's recorded modification time.
	MTime time.Time

	// Preview holds the first lines of the file when previews are requested.
	Preview string
}

// IndexStatus reports the state of a container's index.
type IndexStatus struct {
	// Container is the container name.
	Container string

	// Files is the number of indexed files.
	Files int

	// Fragments is the number of stored fragments.
	Fragments int

	// Annotations is the number of stored annotations.
	Annotations int

	// Busy reports whether an indexing job is running.
	Busy bool

	// Provider is the container's embedding identity.
	Provider ProviderIdentity

	// Roots are the indexed folder roots.
	Roots []string
}
