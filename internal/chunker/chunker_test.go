package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rememex/rememex-cli/internal/core/domain"
)

// TestConfigFor tests per-extension chunking parameters
func TestConfigFor(t *testing.T) {
	tests := []struct {
		ext         string
		wantMax     int
		wantOverlap int
	}{
		{"rs", 1200, 200},
		{"go", 1200, 200},
		{"md", 800, 150},
		{"toml", 600, 100},
		{"yaml", 600, 100},
		{"pdf", 800, 150},
		{"", 800, 150},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			cfg := ConfigFor(tt.ext)
			assert.Equal(t, tt.wantMax, cfg.MaxBytes)
			assert.Equal(t, tt.wantOverlap, cfg.OverlapBytes)
		})
	}
}

// TestKindFor tests chunk kind classification
func TestKindFor(t *testing.T) {
	assert.Equal(t, domain.ChunkKindCode, KindFor("go"))
	assert.Equal(t, domain.ChunkKindConfig, KindFor("yaml"))
	assert.Equal(t, domain.ChunkKindDoc, KindFor("md"))
	assert.Equal(t, domain.ChunkKindDoc, KindFor("unknown"))
}

// TestLanguageFor tests language labels for code fragments
func TestLanguageFor(t *testing.T) {
	assert.Equal(t, "go", LanguageFor("go"))
	assert.Equal(t, "", LanguageFor("md"))
}

// TestSplitWindow_Basic tests that window splits respect the size limit
func TestSplitWindow_Basic(t *testing.T) {
	text := "Hello world. This is a test. Another sentence here."
	chunks := splitWindow(text, 0, 30, 10)

	assert.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Text), 31)
	}
}

// TestSplitWindow_ShortText tests that short input yields a single chunk
func TestSplitWindow_ShortText(t *testing.T) {
	chunks := splitWindow("Short", 0, 800, 200)

	assert.Len(t, chunks, 1)
	assert.Equal(t, "Short", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, 5, chunks[0].End)
}

// TestSplitWindow_Overlap tests that adjacent windows share content
func TestSplitWindow_Overlap(t *testing.T) {
	text := strings.Repeat("ABCDEFGHIJ", 10)
	chunks := splitWindow(text, 0, 30, 10)

	assert.GreaterOrEqual(t, len(chunks), 2)
	// With no break characters the split falls at the limit and the next
	// window rewinds by the overlap.
	assert.Less(t, chunks[1].Start, chunks[0].End)
}

// TestSplitWindow_UTF8Boundary tests that multi-byte runes are never split
func TestSplitWindow_UTF8Boundary(t *testing.T) {
	text := strings.Repeat("değiştirme", 20)
	chunks := splitWindow(text, 0, 33, 5)

	for _, c := range chunks {
		assert.True(t, strings.ToValidUTF8(c.Text, "?") == c.Text,
			"chunk is not valid UTF-8: %q", c.Text)
	}
}

// TestSplit_GoCode tests structural splitting of source code
func TestSplit_GoCode(t *testing.T) {
	code := "package main\n\nfunc main() {\n\tprintln(\"hello\")\n}\n\nfunc helper() {\n\tx := 1\n\t_ = x\n}\n"
	chunks := Split(code, "go")

	assert.NotEmpty(t, chunks)
	joined := ""
	for _, c := range chunks {
		joined += c.Text
	}
	assert.Contains(t, joined, "main")
	assert.Contains(t, joined, "helper")
}

// TestSplit_Markdown tests heading-preserving markdown splits
func TestSplit_Markdown(t *testing.T) {
	md := "# Title\n\nSome intro text.\n\n## Section A\n\nContent A.\n\n## Section B\n\nContent B.\n"
	chunks := Split(md, "md")

	assert.NotEmpty(t, chunks)
}

// TestSplit_OversizedUnit tests the window fallback for huge structural units
func TestSplit_OversizedUnit(t *testing.T) {
	code := "func huge() {\n" + strings.Repeat("\tx := 1\n", 500) + "}\n"
	chunks := Split(code, "go")

	assert.GreaterOrEqual(t, len(chunks), 2)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Text), 1500)
	}
}

// TestSplit_UnknownExtension tests the plain window path
func TestSplit_UnknownExtension(t *testing.T) {
	chunks := Split("Just some plain text content here.", "xyz")

	assert.Len(t, chunks, 1)
}

// TestSplit_Deterministic tests that identical input yields identical chunks
func TestSplit_Deterministic(t *testing.T) {
	code := "package main\n\nfunc a() {}\n\nfunc b() {}\n" + strings.Repeat("// filler\n", 200)

	first := Split(code, "go")
	second := Split(code, "go")
	assert.Equal(t, first, second)
}

// TestSplitWithOverrides_ClampsSize tests the minimum chunk size clamp
func TestSplitWithOverrides_ClampsSize(t *testing.T) {
	text := strings.Repeat("a", 500)
	chunks := SplitWithOverrides(text, "xyz", 1, -1)

	assert.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Text), 100)
	}
}

// TestSplitWithOverrides_HardCap tests the absolute chunk size bound
func TestSplitWithOverrides_HardCap(t *testing.T) {
	text := strings.Repeat("a", 10000)
	chunks := SplitWithOverrides(text, "xyz", 5000, -1)

	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Text), HardCapBytes)
	}
}

// TestSplitWithOverrides_Defaults tests that zero overrides match defaults
func TestSplitWithOverrides_Defaults(t *testing.T) {
	text := "some text"
	assert.Equal(t, Split(text, "rs"), SplitWithOverrides(text, "rs", 0, -1))
}

// TestExpandQuery_Case tests the lowercase variant
func TestExpandQuery_Case(t *testing.T) {
	variants := ExpandQuery("Hello World")

	assert.Contains(t, variants, "Hello World")
	assert.Contains(t, variants, "hello world")
}

// TestExpandQuery_StopWords tests the keyword variant
func TestExpandQuery_StopWords(t *testing.T) {
	variants := ExpandQuery("how to implement search")

	assert.Contains(t, variants, "implement search")
}

// TestExpandQuery_AlreadyLowercase tests that no duplicate variant is added
func TestExpandQuery_AlreadyLowercase(t *testing.T) {
	variants := ExpandQuery("hello")

	assert.Len(t, variants, 1)
}

// TestExpandQuery_Turkish tests Turkish stop word stripping
func TestExpandQuery_Turkish(t *testing.T) {
	variants := ExpandQuery("bu dosya için arama")

	assert.Contains(t, variants, "dosya arama")
}
