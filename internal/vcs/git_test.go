package vcs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePorcelain_CleanTree(t *testing.T) {
	st := parsePorcelain("## main...origin/main\n")
	assert.Equal(t, "main", st.Branch)
	assert.True(t, st.Clean)
}

func TestParsePorcelain_MixedChanges(t *testing.T) {
	out := "## tac/feature/x\n M modified.go\nA  staged.go\n?? untracked.go\n D deleted.go\n"
	st := parsePorcelain(out)
	assert.Equal(t, "tac/feature/x", st.Branch)
	assert.Contains(t, st.Modified, "modified.go")
	assert.Contains(t, st.Staged, "staged.go")
	assert.Contains(t, st.Untracked, "untracked.go")
	assert.Contains(t, st.Deleted, "deleted.go")
	assert.False(t, st.Clean)
}

func TestNoOp_AlwaysClean(t *testing.T) {
	var v VCS = NoOp{}
	st, err := v.Status(nil)
	assert.NoError(t, err)
	assert.True(t, st.Clean)

	committed, err := v.Commit(nil, "msg", nil)
	assert.NoError(t, err)
	assert.False(t, committed)
}
