package extract

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rememex/rememex-cli/internal/core/domain"
)

// TestIsBinary tests the NUL sniff
func TestIsBinary(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"empty", nil, false},
		{"plain text", []byte("hello world"), false},
		{"single NUL in large text", append(bytes.Repeat([]byte("a"), 8000), 0), false},
		{"mostly NUL", bytes.Repeat([]byte{0}, 100), true},
		{"two percent NUL", append(bytes.Repeat([]byte{0}, 2), bytes.Repeat([]byte("a"), 98)...), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsBinary(tt.data))
		})
	}
}

// TestIsBinary_SniffWindow tests that only the first 8KiB is inspected
func TestIsBinary_SniffWindow(t *testing.T) {
	data := append(bytes.Repeat([]byte("a"), sniffWindow), bytes.Repeat([]byte{0}, 1000)...)
	assert.False(t, IsBinary(data))
}

// TestExt tests extension normalisation
func TestExt(t *testing.T) {
	assert.Equal(t, "go", Ext("/tmp/main.go"))
	assert.Equal(t, "md", Ext("README.MD"))
	assert.Equal(t, "", Ext("Makefile"))
}

// TestIsTextExtension tests the built-in text extension set
func TestIsTextExtension(t *testing.T) {
	assert.True(t, IsTextExtension("py"))
	assert.True(t, IsTextExtension("tsx"))
	assert.True(t, IsTextExtension("sql"))
	assert.False(t, IsTextExtension("exe"))
	assert.False(t, IsTextExtension("png"))
}

// TestExtractor_Supports tests name-based support checks
func TestExtractor_Supports(t *testing.T) {
	e := New(Options{
		ExtraExtensions:    []string{".custom"},
		ExcludedExtensions: []string{"log"},
	})

	assert.True(t, e.Supports("/src/main.go"))
	assert.True(t, e.Supports("/docs/paper.pdf"))
	assert.True(t, e.Supports("/photos/cat.jpg"))
	assert.True(t, e.Supports("/proj/Dockerfile"))
	assert.True(t, e.Supports("/proj/.gitignore"))
	assert.True(t, e.Supports("/data/file.custom"))
	assert.False(t, e.Supports("/var/app.log"), "excluded extension")
	assert.False(t, e.Supports("/bin/app.exe"))
}

// TestExtractor_Extract_TextFile tests plain text extraction
func TestExtractor_Extract_TextFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.md")
	require.NoError(t, os.WriteFile(path, []byte("# Heading\n\nBody text.\n"), 0600))

	e := New(Options{})
	res, err := e.Extract(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, res.Sections, 1)
	assert.Equal(t, "md", res.Ext)
	assert.Equal(t, domain.ChunkKindDoc, res.Sections[0].Kind)
	assert.Contains(t, res.Sections[0].Text, "Body text.")
}

// TestExtractor_Extract_CodeKind tests kind classification for code
func TestExtractor_Extract_CodeKind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\n"), 0600))

	e := New(Options{})
	res, err := e.Extract(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, res.Sections, 1)
	assert.Equal(t, domain.ChunkKindCode, res.Sections[0].Kind)
}

// TestExtractor_Extract_Binary tests that binary content is rejected
func TestExtractor_Extract_Binary(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blob.txt")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{0}, 512), 0600))

	e := New(Options{})
	_, err := e.Extract(context.Background(), path)
	assert.ErrorIs(t, err, ErrUnsupported)
}

// TestExtractor_Extract_UnknownExtension tests rejection by extension
func TestExtractor_Extract_UnknownExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0600))

	e := New(Options{})
	_, err := e.Extract(context.Background(), path)
	assert.ErrorIs(t, err, ErrUnsupported)
}

// TestExtractor_Extract_Excluded tests user-excluded extensions
func TestExtractor_Extract_Excluded(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.md")
	require.NoError(t, os.WriteFile(path, []byte("text"), 0600))

	e := New(Options{ExcludedExtensions: []string{"md"}})
	_, err := e.Extract(context.Background(), path)
	assert.ErrorIs(t, err, ErrUnsupported)
}

// TestExtractor_Extract_Dotfile tests the dotfile allowlist
func TestExtractor_Extract_Dotfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".gitignore")
	require.NoError(t, os.WriteFile(path, []byte("*.log\n"), 0600))

	e := New(Options{})
	res, err := e.Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Contains(t, res.Sections[0].Text, "*.log")
}

// TestFormatDateHuman tests bilingual date expansion
func TestFormatDateHuman(t *testing.T) {
	// 2023-06-15 was a Thursday.
	got := formatDateHuman("2023:06:15 14:30:00")

	assert.Contains(t, got, "15 Haziran June 2023")
	assert.Contains(t, got, "Perşembe Thursday")
	assert.Contains(t, got, "14:30 afternoon, öğleden sonra")
	assert.Contains(t, got, "summer, yaz")
}

// TestFormatDateHuman_DashFormat tests the alternate timestamp layout
func TestFormatDateHuman_DashFormat(t *testing.T) {
	got := formatDateHuman("2024-01-07 22:05:00")

	assert.Contains(t, got, "07 Ocak January 2024")
	assert.Contains(t, got, "Pazar Sunday")
	assert.Contains(t, got, "night, gece")
	assert.Contains(t, got, "winter, kış")
}

// TestFormatDateHuman_Unparseable tests the passthrough fallback
func TestFormatDateHuman_Unparseable(t *testing.T) {
	assert.Equal(t, "Date: garbage", formatDateHuman("garbage"))
}

// TestCommitContext tests git history extraction from a real repository
func TestCommitContext(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	wt, err := repo.Worktree()
	require.NoError(t, err)

	path := filepath.Join(dir, "tracked.md")
	sig := &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()}

	require.NoError(t, os.WriteFile(path, []byte("v1"), 0600))
	_, err = wt.Add("tracked.md")
	require.NoError(t, err)
	_, err = wt.Commit("add tracked file", &git.CommitOptions{Author: sig})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("v2"), 0600))
	_, err = wt.Add("tracked.md")
	require.NoError(t, err)
	_, err = wt.Commit("update tracked file", &git.CommitOptions{Author: sig})
	require.NoError(t, err)

	history := commitContext(path)
	assert.Contains(t, history, "[git history]")
	assert.Contains(t, history, "add tracked file")
	assert.Contains(t, history, "update tracked file")
}

// TestCommitContext_OutsideRepo tests the empty result outside a repository
func TestCommitContext_OutsideRepo(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "loose.md")
	require.NoError(t, os.WriteFile(path, []byte("text"), 0600))

	assert.Empty(t, commitContext(path))
}

// TestExtractor_GitSection tests that history is appended as its own section
func TestExtractor_GitSection(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	path := filepath.Join(dir, "doc.md")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0600))
	_, err = wt.Add("doc.md")
	require.NoError(t, err)
	_, err = wt.Commit("initial import", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	e := New(Options{GitHistory: true})
	res, err := e.Extract(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, res.Sections, 2)
	assert.Equal(t, domain.ChunkKindGitLog, res.Sections[1].Kind)
	assert.Contains(t, res.Sections[1].Text, "initial import")
}
