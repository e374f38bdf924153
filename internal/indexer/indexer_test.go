package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndexer(t *testing.T) (*Indexer, string) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("package main\n\nfunc main() {}\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "vendor"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "vendor", "skip.go"), []byte("package vendor\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("vendor/\n"), 0o644))

	storeDir := t.TempDir()
	ix, err := New(Config{
		Root:             root,
		CachePath:        filepath.Join(storeDir, "hashes.db"),
		IndexPath:        filepath.Join(storeDir, "summaries.bleve"),
		RespectGitignore: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { ix.Close() })
	return ix, root
}

func TestRefreshIndex_SkipsIgnoredAndBuildsSummary(t *testing.T) {
	ix, _ := newTestIndexer(t)

	var processed []string
	err := ix.RefreshIndex(context.Background(), func(done, total int, relpath string) {
		processed = append(processed, relpath)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.go"}, processed, "vendor/ must be excluded by .gitignore")

	summary, err := ix.GetCodebaseSummary()
	require.NoError(t, err)
	assert.Contains(t, summary, "###FILE: a.go")
	assert.Contains(t, summary, "###END_FILE")
	assert.NotContains(t, summary, "vendor")
}

func TestRefreshIndex_SkipsUnchangedFiles(t *testing.T) {
	ix, _ := newTestIndexer(t)
	ctx := context.Background()

	require.NoError(t, ix.RefreshIndex(ctx, nil))
	hash, _, ok, err := ix.hashes.lookup("a.go")
	require.NoError(t, err)
	require.True(t, ok)

	// Overwrite the cached summary but keep the same hash: a re-run
	// must see the hash is unchanged and skip re-summarizing.
	marker := "MARKER: should not be recomputed"
	require.NoError(t, ix.hashes.put("a.go", hash, marker))

	require.NoError(t, ix.RefreshIndex(ctx, nil))
	_, summaryAfter, ok, err := ix.hashes.lookup("a.go")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, marker, summaryAfter, "unchanged file must be skipped, leaving the marker summary in place")
}

func TestRefreshIndex_PrunesDeletedFiles(t *testing.T) {
	ix, root := newTestIndexer(t)
	ctx := context.Background()
	require.NoError(t, ix.RefreshIndex(ctx, nil))

	require.NoError(t, os.Remove(filepath.Join(root, "a.go")))
	require.NoError(t, ix.RefreshIndex(ctx, nil))

	paths, err := ix.hashes.paths()
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestSearch_FindsIndexedSummary(t *testing.T) {
	ix, root := newTestIndexer(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.go"), []byte("package main\n\n// handles database connections\n"), 0o644))

	require.NoError(t, ix.RefreshIndex(context.Background(), nil))

	results, err := ix.Search("database", 5)
	require.NoError(t, err)
	assert.Contains(t, results, "b.go")
}

func TestToGeneratorSummary_MatchesCache(t *testing.T) {
	ix, _ := newTestIndexer(t)
	require.NoError(t, ix.RefreshIndex(context.Background(), nil))

	summary, err := ix.ToGeneratorSummary()
	require.NoError(t, err)
	_, ok := summary["a.go"]
	assert.True(t, ok)
}
