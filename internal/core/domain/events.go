package domain

// EventKind identifies an event emitted by long-running operations.
type EventKind string

// Event kinds.
const (
	// EventIndexingProgress is emitted per indexed file.
	EventIndexingProgress EventKind = "indexing-progress"

	// EventIndexingComplete is emitted when an indexing job finishes.
	EventIndexingComplete EventKind = "indexing-complete"

	// EventModelLoaded is emitted when the embedding model becomes ready.
	EventModelLoaded EventKind = "model-loaded"

	// EventModelLoadError is emitted when the embedding model fails to load.
	EventModelLoadError EventKind = "model-load-error"
)

// Event is a progress or lifecycle notification. Consumers subscribe to
// a channel of events; fields are populated per kind.
type Event struct {
	// Kind identifies the event.
	Kind EventKind

	// Current and Total carry progress counters for indexing-progress.
	Current int
	Total   int

	// Path is the file being processed for indexing-progress.
	Path string

	// Message is a human-readable summary for indexing-complete.
	Message string

	// Reason explains a model-load-error.
	Reason string
}
