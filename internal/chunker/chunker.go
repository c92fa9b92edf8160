// Package chunker splits extracted text into embedding-sized fragments.
//
// Source code is split at structural boundaries (function, class and type
// declarations), markdown at headings, configuration files at sections.
// Anything without a structural pattern falls back to byte windows with
// overlap, backing off to the nearest newline, sentence or space.
package chunker

import (
	"regexp"
	"strings"

	"github.com/rememex/rememex-cli/internal/core/domain"
)

// HardCapBytes is the absolute upper bound on a chunk, regardless of
// per-extension configuration or overrides.
const HardCapBytes = 2000

// minChunkBytes is the smallest usable chunk size for overrides.
const minChunkBytes = 100

// Config holds chunking parameters for a file type.
type Config struct {
	// MaxBytes is the target maximum chunk size.
	MaxBytes int

	// OverlapBytes is carried between adjacent window-split chunks.
	OverlapBytes int
}

// Chunk is a slice of the input text with its byte offsets.
// Offsets are advisory for chunks that carry overlap from a neighbour.
type Chunk struct {
	Text  string
	Start int
	End   int
}

var codeExts = map[string]bool{}
var docExts = map[string]bool{}
var configExts = map[string]bool{}

func init() {
	for _, e := range strings.Fields(
		"rs py pyi pyw js mjs cjs ts mts cts tsx jsx go java kt kts scala sc groovy gradle " +
			"clj cljs cljc c cpp cc cxx h hpp hxx hh cs fs fsi fsx vb vbs rb erb swift m mm dart " +
			"php pl pm lua r jl ex exs erl hrl hs lhs ml mli elm zig nim v d sol move pas " +
			"lisp el rkt asm s wat vue svelte astro") {
		codeExts[e] = true
	}
	for _, e := range strings.Fields("md markdown txt rst adoc tex") {
		docExts[e] = true
	}
	for _, e := range strings.Fields(
		"toml yaml yml json jsonc json5 ini cfg conf env properties tf tfvars hcl nix proto graphql gql") {
		configExts[e] = true
	}
}

// ConfigFor returns the chunking parameters for a file extension
// (without the leading dot).
func ConfigFor(ext string) Config {
	switch {
	case codeExts[ext]:
		return Config{MaxBytes: 1200, OverlapBytes: 200}
	case docExts[ext]:
		return Config{MaxBytes: 800, OverlapBytes: 150}
	case configExts[ext]:
		return Config{MaxBytes: 600, OverlapBytes: 100}
	default:
		return Config{MaxBytes: 800, OverlapBytes: 150}
	}
}

// KindFor classifies a file extension into a chunk kind.
func KindFor(ext string) domain.ChunkKind {
	switch {
	case codeExts[ext]:
		return domain.ChunkKindCode
	case configExts[ext]:
		return domain.ChunkKindConfig
	default:
		return domain.ChunkKindDoc
	}
}

// LanguageFor returns the language label recorded on code fragments.
// Non-code extensions yield an empty string.
func LanguageFor(ext string) string {
	if codeExts[ext] {
		return ext
	}
	return ""
}

// structuralPatterns maps extensions to declaration-boundary patterns.
// A match marks the start of a new structural unit; the split lands at
// the end of the line containing the match.
var structuralPatterns = map[string]string{
	"rs":       `\n(?:pub\s+)?(?:async\s+)?(?:fn |struct |enum |impl |trait |mod )`,
	"py":       `\n(?:class |def |async def )`,
	"pyi":      `\n(?:class |def |async def )`,
	"pyw":      `\n(?:class |def |async def )`,
	"js":       `\n(?:function |class |export (?:default )?(?:function |class |const |let ))`,
	"jsx":      `\n(?:function |class |export (?:default )?(?:function |class |const |let ))`,
	"mjs":      `\n(?:function |class |export (?:default )?(?:function |class |const |let ))`,
	"cjs":      `\n(?:function |class |export (?:default )?(?:function |class |const |let ))`,
	"ts":       `\n(?:(?:export )?(?:function |class |interface |type |const |enum |async function ))`,
	"tsx":      `\n(?:(?:export )?(?:function |class |interface |type |const |enum |async function ))`,
	"mts":      `\n(?:(?:export )?(?:function |class |interface |type |const |enum |async function ))`,
	"cts":      `\n(?:(?:export )?(?:function |class |interface |type |const |enum |async function ))`,
	"go":       `\n(?:func |type )`,
	"java":     `\n\s*(?:public |private |protected )?(?:static )?(?:class |interface |void |int |string |def )`,
	"cs":       `\n\s*(?:public |private |protected )?(?:static )?(?:class |interface |void |int |string |def )`,
	"kt":       `\n(?:(?:override |suspend |private |internal |public )?(?:fun |class |object |interface |data class |sealed class |enum class ))`,
	"kts":      `\n(?:(?:override |suspend |private |internal |public )?(?:fun |class |object |interface |data class |sealed class |enum class ))`,
	"scala":    `\n\s*(?:(?:private |protected )?(?:def |class |object |trait |case class |val |var ))`,
	"sc":       `\n\s*(?:(?:private |protected )?(?:def |class |object |trait |case class |val |var ))`,
	"swift":    `\n\s*(?:(?:public |private |internal |open )?(?:func |class |struct |enum |protocol |extension ))`,
	"dart":     `\n\s*(?:(?:abstract )?class |void |Future |Stream |[A-Z][a-zA-Z]*\s+[a-z])`,
	"c":        `\n(?:[a-zA-Z_][a-zA-Z0-9_*\s]+\([^)]*\)\s*\{)`,
	"cpp":      `\n(?:[a-zA-Z_][a-zA-Z0-9_*\s]+\([^)]*\)\s*\{)`,
	"cc":       `\n(?:[a-zA-Z_][a-zA-Z0-9_*\s]+\([^)]*\)\s*\{)`,
	"cxx":      `\n(?:[a-zA-Z_][a-zA-Z0-9_*\s]+\([^)]*\)\s*\{)`,
	"h":        `\n(?:[a-zA-Z_][a-zA-Z0-9_*\s]+\([^)]*\)\s*\{)`,
	"hpp":      `\n(?:[a-zA-Z_][a-zA-Z0-9_*\s]+\([^)]*\)\s*\{)`,
	"hxx":      `\n(?:[a-zA-Z_][a-zA-Z0-9_*\s]+\([^)]*\)\s*\{)`,
	"hh":       `\n(?:[a-zA-Z_][a-zA-Z0-9_*\s]+\([^)]*\)\s*\{)`,
	"m":        `\n(?:[a-zA-Z_][a-zA-Z0-9_*\s]+\([^)]*\)\s*\{)`,
	"mm":       `\n(?:[a-zA-Z_][a-zA-Z0-9_*\s]+\([^)]*\)\s*\{)`,
	"rb":       `\n(?:class |module |def )`,
	"erb":      `\n(?:class |module |def )`,
	"php":      `\n\s*(?:(?:public |private |protected |static )?function |class |interface |trait )`,
	"lua":      `\n(?:(?:local )?function )`,
	"jl":       `\n(?:function |macro |struct |module |abstract type )`,
	"ex":       `\n\s*(?:def |defp |defmodule |defmacro )`,
	"exs":      `\n\s*(?:def |defp |defmodule |defmacro )`,
	"erl":      `\n[a-z][a-zA-Z0-9_]*\(`,
	"hrl":      `\n[a-z][a-zA-Z0-9_]*\(`,
	"hs":       `\n[a-z][a-zA-Z0-9_']*\s+::`,
	"lhs":      `\n[a-z][a-zA-Z0-9_']*\s+::`,
	"ml":       `\n(?:let |type |module |val )`,
	"mli":      `\n(?:let |type |module |val )`,
	"elm":      `\n[a-z][a-zA-Z0-9_]*\s+:`,
	"fs":       `\n(?:let |type |module |member )`,
	"fsi":      `\n(?:let |type |module |member )`,
	"fsx":      `\n(?:let |type |module |member )`,
	"zig":      `\n(?:(?:pub )?(?:fn |const |var ))`,
	"nim":      `\n(?:proc |func |method |type |template |macro )`,
	"v":        `\n(?:(?:pub )?(?:fn |struct |enum |interface ))`,
	"d":        `\n(?:[a-zA-Z_][a-zA-Z0-9_*\s]+\([^)]*\)\s*\{)`,
	"sol":      `\n\s*(?:function |contract |interface |library |event |modifier )`,
	"clj":      `\n\(`,
	"cljs":     `\n\(`,
	"cljc":     `\n\(`,
	"lisp":     `\n\(`,
	"el":       `\n\(`,
	"rkt":      `\n\(`,
	"pl":       `\n(?:sub |package )`,
	"pm":       `\n(?:sub |package )`,
	"r":        `\n[a-zA-Z_.][a-zA-Z0-9_.]*\s*<-\s*function`,
	"groovy":   `\n\s*(?:def |class |interface )`,
	"gradle":   `\n\s*(?:def |class |interface )`,
	"vue":      `\n<(?:template|script|style)`,
	"svelte":   `\n<(?:template|script|style)`,
	"astro":    `\n<(?:template|script|style)`,
	"pas":      `\n(?:procedure |function |type |var |begin )`,
	"vb":       `\n\s*(?:Sub |Function |Class |Property |Module )`,
	"vbs":      `\n\s*(?:Sub |Function |Class |Property |Module )`,
	"md":       `\n#{1,6} `,
	"markdown": `\n#{1,6} `,
	"rst":      `\n\n`,
	"adoc":     `\n\n`,
	"txt":      `\n\n`,
	"tex":      `\n\n`,
	"bib":      `\n\n`,
	"toml":     `\n\[`,
	"ini":      `\n\[`,
	"cfg":      `\n\[`,
	"yaml":     `\n[a-zA-Z_][a-zA-Z0-9_]*:`,
	"yml":      `\n[a-zA-Z_][a-zA-Z0-9_]*:`,
	"tf":       `\n(?:resource |data |variable |output |module |locals )`,
	"tfvars":   `\n(?:resource |data |variable |output |module |locals )`,
	"hcl":      `\n(?:resource |data |variable |output |module |locals )`,
	"nix":      `\n\s*[a-zA-Z_][a-zA-Z0-9_-]*\s*=`,
	"proto":    `\n(?:message |service |enum |rpc )`,
	"graphql":  `\n(?:type |query |mutation |subscription |input |interface |enum )`,
	"gql":      `\n(?:type |query |mutation |subscription |input |interface |enum )`,
}

var (
	compiled = map[string]*regexp.Regexp{}
)

func init() {
	for ext, pattern := range structuralPatterns {
		compiled[ext] = regexp.MustCompile(pattern)
	}
}

// Split chunks text using the default configuration for ext.
func Split(text, ext string) []Chunk {
	return SplitWithOverrides(text, ext, 0, -1)
}

// SplitWithOverrides chunks text with user overrides. A maxBytes of 0 uses
// the extension default; values are clamped to [100, HardCapBytes].
// An overlapBytes of -1 uses the extension default.
func SplitWithOverrides(text, ext string, maxBytes, overlapBytes int) []Chunk {
	cfg := ConfigFor(ext)
	if maxBytes > 0 {
		cfg.MaxBytes = maxBytes
	}
	if cfg.MaxBytes < minChunkBytes {
		cfg.MaxBytes = minChunkBytes
	}
	if cfg.MaxBytes > HardCapBytes {
		cfg.MaxBytes = HardCapBytes
	}
	if overlapBytes >= 0 {
		cfg.OverlapBytes = overlapBytes
	}

	pattern, ok := compiled[ext]
	if !ok {
		return splitWindow(text, 0, cfg.MaxBytes, cfg.OverlapBytes)
	}
	return splitStructural(text, cfg, pattern)
}

// splitStructural splits at declaration boundaries, packing consecutive
// structural units into chunks up to the size limit. The last line of a
// flushed chunk is carried into the next one for continuity.
func splitStructural(text string, cfg Config, pattern *regexp.Regexp) []Chunk {
	splitPoints := []int{0}
	for _, loc := range pattern.FindAllStringIndex(text, -1) {
		pos := loc[0]
		if pos <= 0 {
			continue
		}
		// Move the split to the end of the matched line.
		nl := strings.IndexByte(text[pos:], '\n')
		point := pos
		if nl >= 0 {
			point = pos + nl + 1
		}
		if point > splitPoints[len(splitPoints)-1] {
			splitPoints = append(splitPoints, point)
		}
	}
	splitPoints = append(splitPoints, len(text))

	var chunks []Chunk
	var current strings.Builder
	curStart := 0
	prevLastLine := ""

	for i := 0; i+1 < len(splitPoints); i++ {
		segStart, segEnd := splitPoints[i], splitPoints[i+1]
		if segStart == segEnd {
			continue
		}
		segment := text[segStart:segEnd]

		if current.Len() > 0 && current.Len()+len(segment) > cfg.MaxBytes {
			cur := current.String()
			if len(cur) > cfg.MaxBytes {
				sub := splitWindow(cur, curStart, cfg.MaxBytes, cfg.OverlapBytes)
				if len(sub) > 0 {
					prevLastLine = lastLine(sub[len(sub)-1].Text)
				}
				chunks = append(chunks, sub...)
			} else {
				prevLastLine = lastLine(cur)
				chunks = append(chunks, Chunk{Text: cur, Start: curStart, End: segStart})
			}
			current.Reset()
			curStart = segStart
			if prevLastLine != "" {
				current.WriteString(prevLastLine)
				current.WriteByte('\n')
			}
		}
		if current.Len() == 0 || current.String() == prevLastLine+"\n" {
			curStart = segStart
		}

		current.WriteString(segment)
	}

	if strings.TrimSpace(current.String()) != "" {
		cur := current.String()
		if len(cur) > cfg.MaxBytes {
			chunks = append(chunks, splitWindow(cur, curStart, cfg.MaxBytes, cfg.OverlapBytes)...)
		} else {
			chunks = append(chunks, Chunk{Text: cur, Start: curStart, End: len(text)})
		}
	}

	if len(chunks) == 0 {
		chunks = append(chunks, Chunk{Text: text, Start: 0, End: len(text)})
	}

	return chunks
}

// splitWindow splits text into byte windows of at most maxBytes, backing
// off to the nearest newline, sentence end or space. Adjacent windows
// overlap by up to overlapBytes. base is added to the reported offsets.
func splitWindow(text string, base, maxBytes, overlapBytes int) []Chunk {
	var chunks []Chunk
	start := 0

	for start < len(text) {
		end := start + maxBytes
		if end > len(text) {
			end = len(text)
		}

		// Never split inside a UTF-8 sequence.
		for end < len(text) && !isCharBoundary(text, end) {
			end--
		}

		if end >= len(text) {
			chunks = append(chunks, Chunk{Text: text[start:], Start: base + start, End: base + len(text)})
			break
		}

		slice := text[start:end]
		splitAt := end
		if i := strings.LastIndexByte(slice, '\n'); i >= 0 {
			splitAt = start + i + 1
		} else if i := strings.LastIndex(slice, ". "); i >= 0 {
			splitAt = start + i + 1
		} else if i := strings.LastIndexByte(slice, ' '); i >= 0 {
			splitAt = start + i + 1
		}

		chunks = append(chunks, Chunk{Text: text[start:splitAt], Start: base + start, End: base + splitAt})

		rewind := overlapBytes
		if rewind > splitAt-start {
			rewind = splitAt - start
		}
		overlapStart := splitAt - rewind
		for overlapStart > start && !isCharBoundary(text, overlapStart) {
			overlapStart++
		}
		if overlapStart <= start {
			overlapStart = splitAt
		}
		start = overlapStart
	}

	return chunks
}

// isCharBoundary reports whether i is not inside a UTF-8 sequence.
func isCharBoundary(s string, i int) bool {
	if i == 0 || i == len(s) {
		return true
	}
	return s[i]&0xC0 != 0x80
}

// lastLine returns the final line of s, without its newline.
func lastLine(s string) string {
	s = strings.TrimSuffix(s, "\n")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
