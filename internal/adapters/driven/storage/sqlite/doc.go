// Package sqlite provides a SQLite-backed implementation of the
// FragmentStore port.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO, enabling easy cross-compilation. Each container gets its
// own fragment table, an FTS5 full-text index and an annotation table, so
// dropping a container removes its data atomically.
//
// # Schema
//
// The container registry table is managed through versioned migrations in
// the migrations/ directory. Per-container tables are created on demand:
//
//   - frag_<suffix>: fragment rows with embedding vectors
//   - frag_<suffix>_fts: FTS5 index over fragment text
//   - frag_<suffix>_annotations: annotations with embedding vectors
//
// Vectors are stored as little-endian float32 blobs. Dense search is an
// exact cosine scan, which is fast enough at personal-corpus scale.
//
// # Data Location
//
// By default, the database is stored at ~/.rememex/data/index.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking
// provided by SQLite in WAL mode.
package sqlite
