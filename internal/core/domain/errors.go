package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrBusy indicates an indexing job is already running for the container.
	ErrBusy = errors.New("indexing in progress")

	// ErrProviderMismatch indicates the configured embedding provider does not
	// match the identity the container was created with. Mixing vector spaces
	// would silently corrupt search results.
	ErrProviderMismatch = errors.New("embedding provider mismatch")

	// ErrModelLoad indicates the embedding model failed to load or warm up.
	ErrModelLoad = errors.New("model load failed")

	// ErrTransport indicates a network failure reaching an inference endpoint.
	ErrTransport = errors.New("transport failure")

	// ErrTimeout indicates an inference request exceeded its deadline.
	ErrTimeout = errors.New("request timed out")

	// ErrStoreFailure indicates the fragment store rejected an operation.
	ErrStoreFailure = errors.New("store failure")

	// ErrContainerProtected indicates the container cannot be deleted.
	// The Default container always exists.
	ErrContainerProtected = errors.New("container is protected")

	// ErrOutsideRoot indicates a path escapes every indexed root.
	// Reads are confined to indexed folders.
	ErrOutsideRoot = errors.New("path outside indexed roots")
)
