// Package extract turns files into indexable text.
//
// Text-like files are read directly after a binary sniff, PDFs go through
// text extraction, and images yield OCR text plus expanded EXIF metadata.
// Files inside a git repository additionally get a commit history section.
package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rememex/rememex-cli/internal/chunker"
	"github.com/rememex/rememex-cli/internal/core/domain"
	"github.com/rememex/rememex-cli/internal/logger"
)

// MaxFileSize is the largest file the extractor will read.
const MaxFileSize = 10 * 1024 * 1024

// ErrUnsupported indicates a file the extractor cannot or will not index:
// unknown extension, binary content or over the size limit.
var ErrUnsupported = errors.New("unsupported file")

// dotfileAllowlist names extensionless files that are indexed anyway.
var dotfileAllowlist = map[string]bool{
	"dockerfile":    true,
	"makefile":      true,
	".gitignore":    true,
	".env":          true,
	".editorconfig": true,
}

var textExts = map[string]bool{}

func init() {
	for _, e := range strings.Fields(
		"txt md markdown rs toml json jsonc json5 yaml yml js mjs cjs ts mts cts jsx tsx " +
			"py pyi pyw rb erb go java kt kts scala sc groovy gradle clj cljs cljc " +
			"c cpp cc cxx h hpp hxx hh cs fs fsi fsx vb vbs swift m mm dart php pl pm lua r jl " +
			"ex exs erl hrl hs lhs ml mli elm zig nim v d sol move wat asm s pas lisp el rkt " +
			"html htm xml svg css scss sass less styl vue svelte astro pug ejs hbs graphql gql " +
			"sql sh bash zsh fish ps1 bat cmd csv tsv log ini cfg conf env properties " +
			"dockerfile makefile cmake tf tfvars hcl nix proto lock tex bib rst adoc") {
		textExts[e] = true
	}
}

// Section is one piece of extracted text with its chunk kind.
// Most files produce a single section; images produce separate OCR and
// EXIF sections, and git history arrives as a trailing section.
type Section struct {
	Text string
	Kind domain.ChunkKind
}

// Result is the extracted content of a file.
type Result struct {
	// Ext is the lowercased extension without the dot.
	Ext string

	// Sections are the extracted text pieces, in order.
	Sections []Section
}

// Options configures an Extractor.
type Options struct {
	// ExtraExtensions are additionally treated as text.
	ExtraExtensions []string

	// ExcludedExtensions are never indexed, overriding the built-ins.
	ExcludedExtensions []string

	// GitHistory appends commit subjects for files inside a repository.
	GitHistory bool

	// OCRBinary is the tesseract executable. Empty disables OCR;
	// EXIF metadata is still extracted from images.
	OCRBinary string
}

// Extractor converts files into indexable text sections.
type Extractor struct {
	extra    map[string]bool
	excluded map[string]bool
	git      bool
	ocrBin   string
}

// New creates an extractor.
func New(opts Options) *Extractor {
	e := &Extractor{
		extra:    make(map[string]bool, len(opts.ExtraExtensions)),
		excluded: make(map[string]bool, len(opts.ExcludedExtensions)),
		git:      opts.GitHistory,
		ocrBin:   opts.OCRBinary,
	}
	for _, ext := range opts.ExtraExtensions {
		e.extra[normaliseExt(ext)] = true
	}
	for _, ext := range opts.ExcludedExtensions {
		e.excluded[normaliseExt(ext)] = true
	}
	return e
}

// Ext returns the lowercased extension of path without the dot.
func Ext(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

func normaliseExt(ext string) string {
	return strings.TrimPrefix(strings.ToLower(ext), ".")
}

// IsTextExtension reports whether ext is indexed as text by default.
func IsTextExtension(ext string) bool {
	return textExts[ext]
}

// Supports reports whether the extractor would attempt to index path,
// based on name alone.
func (e *Extractor) Supports(path string) bool {
	ext := Ext(path)
	if e.excluded[ext] {
		return false
	}
	if textExts[ext] || e.extra[ext] || ext == "pdf" || IsImageExtension(ext) {
		return true
	}
	return dotfileAllowlist[strings.ToLower(filepath.Base(path))]
}

// Extract reads path and returns its text sections.
// Returns ErrUnsupported for files that should be skipped.
func (e *Extractor) Extract(ctx context.Context, path string) (*Result, error) {
	ext := Ext(path)
	if e.excluded[ext] {
		return nil, ErrUnsupported
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > MaxFileSize {
		logger.Debug("Skipping %s: %d bytes exceeds size limit", path, info.Size())
		return nil, ErrUnsupported
	}

	res := &Result{Ext: ext}

	switch {
	case IsImageExtension(ext):
		sections, err := e.extractImage(ctx, path)
		if err != nil {
			return nil, err
		}
		res.Sections = sections

	case ext == "pdf":
		text, err := extractPDF(path)
		if err != nil {
			return nil, fmt.Errorf("extract pdf %s: %w", path, err)
		}
		res.Sections = []Section{{Text: text, Kind: domain.ChunkKindDoc}}

	case textExts[ext] || e.extra[ext] || dotfileAllowlist[strings.ToLower(filepath.Base(path))]:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if IsBinary(data) {
			logger.Debug("Skipping %s: binary content", path)
			return nil, ErrUnsupported
		}
		res.Sections = []Section{{Text: string(data), Kind: chunker.KindFor(ext)}}

	default:
		return nil, ErrUnsupported
	}

	if e.git {
		if history := commitContext(path); history != "" {
			res.Sections = append(res.Sections, Section{Text: history, Kind: domain.ChunkKindGitLog})
		}
	}

	return res, nil
}
