package extract

import (
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// maxCommitSubjects bounds how much history is attached per file.
const maxCommitSubjects = 50

// commitContext returns a "[git history]" section holding the subjects of
// the last commits that touched the file, or empty when the file is not
// in a repository or has no history.
func commitContext(path string) string {
	repo, err := git.PlainOpenWithOptions(filepath.Dir(path), &git.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return ""
	}

	wt, err := repo.Worktree()
	if err != nil {
		return ""
	}

	rel, err := filepath.Rel(wt.Filesystem.Root(), path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return ""
	}
	rel = filepath.ToSlash(rel)

	iter, err := repo.Log(&git.LogOptions{
		FileName: &rel,
		Order:    git.LogOrderCommitterTime,
	})
	if err != nil {
		return ""
	}
	defer iter.Close()

	var subjects []string
	err = iter.ForEach(func(c *object.Commit) error {
		subject := strings.TrimSpace(strings.SplitN(c.Message, "\n", 2)[0])
		if subject != "" {
			subjects = append(subjects, subject)
		}
		if len(subjects) >= maxCommitSubjects {
			return storer.ErrStop
		}
		return nil
	})
	if err != nil && err != storer.ErrStop {
		return ""
	}

	if len(subjects) == 0 {
		return ""
	}

	return "\n[git history]\n" + strings.Join(subjects, "\n")
}
