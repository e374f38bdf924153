package indexer

import (
	"os"
	"path/filepath"

	gitignore "github.com/sabhiram/go-gitignore"
)

// defaultExclusions mirrors the original indexer's hard-coded directory
// skip-list, applied regardless of .gitignore/.tacignore configuration.
var defaultExclusions = []string{".git", "__pycache__", "venv", "env", "build", "node_modules", "dist", ".tac"}

// ignoreMatcher decides whether a relative path should be excluded from
// indexing. It layers .tacignore on top of .gitignore (§ .tacignore
// support), both optional, plus the always-on defaultExclusions. The
// root .gitignore and .tacignore files themselves are never indexed.
type ignoreMatcher struct {
	gitignore *gitignore.GitIgnore
	tacignore *gitignore.GitIgnore
}

func newIgnoreMatcher(root string, respectGitignore bool) *ignoreMatcher {
	m := &ignoreMatcher{}
	if respectGitignore {
		if gi, err := gitignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
			m.gitignore = gi
		}
	}
	if _, err := os.Stat(filepath.Join(root, ".tacignore")); err == nil {
		if ti, err := gitignore.CompileIgnoreFile(filepath.Join(root, ".tacignore")); err == nil {
			m.tacignore = ti
		}
	}
	return m
}

func (m *ignoreMatcher) ignored(relpath string) bool {
	if relpath == ".gitignore" || relpath == ".tacignore" {
		return true
	}
	for _, excl := range defaultExclusions {
		if relpath == excl || hasPathPrefix(relpath, excl) {
			return true
		}
	}
	if m.gitignore != nil && m.gitignore.MatchesPath(relpath) {
		return true
	}
	if m.tacignore != nil && m.tacignore.MatchesPath(relpath) {
		return true
	}
	return false
}

func hasPathPrefix(relpath, dir string) bool {
	prefix := dir + string(filepath.Separator)
	return len(relpath) > len(prefix) && relpath[:len(prefix)] == prefix
}
