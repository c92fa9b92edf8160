// Package ignore decides which paths are excluded from indexing.
// Rules come from .gitignore and .rmxignore files at the root, matched
// with doublestar glob patterns, on top of a built-in skip list.
package ignore

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Directories never worth indexing regardless of ignore files.
var defaultSkipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	"target":       true,
	"vendor":       true,
	"__pycache__":  true,
	".venv":        true,
	".idea":        true,
	".vscode":      true,
	"dist":         true,
	"build":        true,
}

// Matcher filters paths under a single root.
type Matcher struct {
	root     string
	patterns []string
}

// NewMatcher loads ignore rules for root. Missing ignore files are fine.
func NewMatcher(root string) *Matcher {
	m := &Matcher{root: root}
	for _, name := range []string{".gitignore", ".rmxignore"} {
		m.patterns = append(m.patterns, loadPatterns(filepath.Join(root, name))...)
	}
	return m
}

// loadPatterns reads glob patterns from an ignore file, skipping comments
// and negations (negations are not supported).
func loadPatterns(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		line = strings.TrimPrefix(line, "/")
		line = strings.TrimSuffix(line, "/")
		patterns = append(patterns, line)
	}
	return patterns
}

// SkipDir reports whether a directory should be pruned from the walk.
func (m *Matcher) SkipDir(path string) bool {
	name := filepath.Base(path)
	if defaultSkipDirs[name] {
		return true
	}
	if strings.HasPrefix(name, ".") && path != m.root {
		return true
	}
	return m.matches(path)
}

// Excluded reports whether a file path is excluded by the ignore rules.
func (m *Matcher) Excluded(path string) bool {
	return m.matches(path)
}

func (m *Matcher) matches(path string) bool {
	rel, err := filepath.Rel(m.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	rel = filepath.ToSlash(rel)

	for _, pattern := range m.patterns {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
		if ok, err := doublestar.Match(pattern, filepath.Base(rel)); err == nil && ok {
			return true
		}
		// Pattern naming a directory excludes everything beneath it
		if ok, err := doublestar.Match(pattern+"/**", rel); err == nil && ok {
			return true
		}
	}
	return false
}
