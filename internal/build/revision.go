package build

import (
	"github.com/go-git/go-git/v5"
)

// ContentRevision returns the HEAD commit of the git repository containing
// path, or "" when path is not inside a repository or HEAD is unborn.
func ContentRevision(path string) string {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return ""
	}
	head, err := repo.Head()
	if err != nil {
		return ""
	}
	return head.Hash().String()
}
