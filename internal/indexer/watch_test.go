package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch_PicksUpFileChange(t *testing.T) {
	ix, root := newTestIndexer(t)
	require.NoError(t, ix.RefreshIndex(context.Background(), nil))

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	changed := make(chan string, 1)
	go ix.Watch(ctx, func(relpath string) {
		select {
		case changed <- relpath:
		default:
		}
	})

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("package main\n\n// now does something else entirely\nfunc main() {}\n"), 0o644))

	select {
	case relpath := <-changed:
		assert.Equal(t, "a.go", relpath)
	case <-ctx.Done():
		t.Fatal("timed out waiting for watch to observe the file change")
	}
}
