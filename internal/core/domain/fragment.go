package domain

import (
	"strings"
	"time"
)

// ChunkKind describes how a fragment's text was produced.
type ChunkKind string

// Chunk kinds.
const (
	// ChunkKindCode is a structurally split source code fragment.
	ChunkKindCode ChunkKind = "code"

	// ChunkKindDoc is a prose fragment (markdown, plain text).
	ChunkKindDoc ChunkKind = "doc"

	// ChunkKindConfig is a configuration file fragment.
	ChunkKindConfig ChunkKind = "config"

	// ChunkKindOCR is text recognised from an image.
	ChunkKindOCR ChunkKind = "ocr"

	// ChunkKindEXIF is expanded image metadata.
	ChunkKindEXIF ChunkKind = "exif"

	// ChunkKindGitLog is commit history context for a file.
	ChunkKindGitLog ChunkKind = "gitlog"
)

// Fragment is the unit of indexing and retrieval: a slice of an extracted
// file together with its embedding vector.
type Fragment struct {
	// ID is the unique fragment identifier.
	ID string

	// Path is the absolute path of the source file.
	Path string

	// Ordinal is the fragment's position within the file, starting at 0.
	Ordinal int

	// StartOffset and EndOffset are byte offsets into the extracted text.
	StartOffset int
	EndOffset   int

	// Text is the fragment content as embedded and indexed.
	Text string

	// Vector is the embedding, little-endian float32 in storage.
	Vector []float32

	// Kind records how the text was produced.
	Kind ChunkKind

	// Language is the detected language family for code fragments, empty otherwise.
	Language string

	// MTime is the source file's modification time at indexing.
	MTime time.Time
}

// FileInfo summarises an indexed file.
type FileInfo struct {
	// Path is the absolute file path.
	Path string

	// Size is the total indexed text size in bytes.
	Size int64

	// MTime is the modification time recorded at indexing.
	MTime time.Time

	// Fragments is the number of fragments stored for the file.
	Fragments int
}

// AnnotationPathPrefix marks annotation results in the retrieval pipeline.
// Annotations carry a pseudo-path so per-file deduplication cannot displace
// file results with a note about the same file.
const AnnotationPathPrefix = "annotation:"

// Annotation is a free-form note attached to a path. Annotations are
// embedded at write time and searched alongside file fragments. They
// survive deletion of the file they reference.
type Annotation struct {
	// ID is the unique annotation identifier.
	ID string

	// Path is the file path the note refers to.
	Path string

	// Note is the annotation text.
	Note string

	// Source records who wrote the note: "user" or "agent".
	Source string

	// Vector is the embedding of the note.
	Vector []float32

	// CreatedAt is when the note was added.
	CreatedAt time.Time
}

// PseudoPath returns the retrieval path for the annotation.
func (a *Annotation) PseudoPath() string {
	return AnnotationPathPrefix + a.ID
}

// IsAnnotationPath reports whether path is an annotation pseudo-path.
func IsAnnotationPath(path string) bool {
	return strings.HasPrefix(path, AnnotationPathPrefix)
}
