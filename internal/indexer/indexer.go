// Package indexer implements the project-file indexer capability (§6.5):
// a per-file SHA-256 hash cache that skips summarizing unchanged files,
// a bleve full-text index over the generated summaries, and an optional
// fsnotify watch mode for incremental reindexing. Grounded on the
// teacher's internal/memory package — its sqlite-vec-free memory_kv
// table shape for the hash cache (internal/memory/sqlite.go) and its
// bleve index-open-or-create pattern (internal/memory/bleve_store.go) —
// generalized from "remember semantic observations" to "summarize and
// search project files".
package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/vinayprograms/tac/internal/generator"
	"github.com/vinayprograms/tac/internal/tacerr"
)

// ProgressFunc reports refresh_index progress: processed and total file
// counts, plus the relpath just handled.
type ProgressFunc func(processed, total int, relpath string)

// Config configures a new Indexer. Its field names differ from
// config.IndexerConfig's; cmd/tac maps one onto the other.
type Config struct {
	// Root is the project directory to index.
	Root string
	// IndexPath is the bleve full-text index directory (defaults to
	// "<Root>/.tac_index/summaries.bleve").
	IndexPath string
	// CachePath is the sqlite hash-cache file (defaults to
	// "<Root>/.tac_index/hashes.db").
	CachePath string
	// RespectGitignore enables .gitignore-based exclusion (§6.5).
	RespectGitignore bool
	// Summarizer produces per-file summaries; defaults to
	// firstLinesSummarizer when nil.
	Summarizer Summarizer
	// MaxFileBytes skips summarizing files larger than this (0 = 512KB default).
	MaxFileBytes int64
}

// Indexer is the project-file indexer capability.
type Indexer struct {
	root         string
	summarizer   Summarizer
	maxFileBytes int64
	ignore       *ignoreMatcher

	mu        sync.Mutex
	hashes    *hashCache
	fulltext  *fullTextIndex
	refreshMu sync.Mutex // guards against concurrent refreshes (§5 point 2)
}

// New opens (or creates) the hash cache at cfg.CachePath and the
// full-text index at cfg.IndexPath (both defaulting to files under
// "<Root>/.tac_index") and returns a ready Indexer.
func New(cfg Config) (*Indexer, error) {
	defaultDir := filepath.Join(cfg.Root, ".tac_index")
	cachePath := cfg.CachePath
	if cachePath == "" {
		cachePath = filepath.Join(defaultDir, "hashes.db")
	}
	indexPath := cfg.IndexPath
	if indexPath == "" {
		indexPath = filepath.Join(defaultDir, "summaries.bleve")
	}
	if err := os.MkdirAll(filepath.Dir(cachePath), 0o755); err != nil {
		return nil, tacerr.Wrap(tacerr.CategoryInfrastructure, "failed to create index store directory", err)
	}

	hashes, err := newHashCache(cachePath)
	if err != nil {
		return nil, tacerr.Wrap(tacerr.CategoryInfrastructure, "failed to open hash cache", err)
	}
	fulltext, err := newFullTextIndex(indexPath)
	if err != nil {
		hashes.close()
		return nil, tacerr.Wrap(tacerr.CategoryInfrastructure, "failed to open full-text index", err)
	}

	summarizer := cfg.Summarizer
	if summarizer == nil {
		summarizer = firstLinesSummarizer{}
	}
	maxBytes := cfg.MaxFileBytes
	if maxBytes <= 0 {
		maxBytes = 512 * 1024
	}

	return &Indexer{
		root:         cfg.Root,
		summarizer:   summarizer,
		maxFileBytes: maxBytes,
		ignore:       newIgnoreMatcher(cfg.Root, cfg.RespectGitignore),
		hashes:       hashes,
		fulltext:     fulltext,
	}, nil
}

// Close releases the underlying hash cache and full-text index.
func (ix *Indexer) Close() error {
	err1 := ix.hashes.close()
	err2 := ix.fulltext.close()
	if err1 != nil {
		return err1
	}
	return err2
}

// GetCodebaseSummary returns the concatenation of
// "###FILE: <relpath>\n<summary>\n###END_FILE" blocks for every
// currently-indexed file, per §6.5.
func (ix *Indexer) GetCodebaseSummary() (string, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	entries, err := ix.hashes.all()
	if err != nil {
		return "", tacerr.Wrap(tacerr.CategoryInfrastructure, "failed to read codebase summary", err)
	}

	paths := make([]string, 0, len(entries))
	for p := range entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var b strings.Builder
	for _, p := range paths {
		fmt.Fprintf(&b, "###FILE: %s\n%s\n###END_FILE\n", p, entries[p])
	}
	return b.String(), nil
}

// ToGeneratorSummary adapts the cached summaries to the shape
// generator.Generator consumes (one entry per relpath).
func (ix *Indexer) ToGeneratorSummary() (generator.CodebaseSummary, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	entries, err := ix.hashes.all()
	if err != nil {
		return nil, tacerr.Wrap(tacerr.CategoryInfrastructure, "failed to build generator codebase summary", err)
	}
	return generator.CodebaseSummary(entries), nil
}

// Search returns up to limit relpaths whose summary best matches query.
// No size threshold switches the generator over to it.
func (ix *Indexer) Search(query string, limit int) ([]string, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	paths, err := ix.fulltext.search(query, limit)
	if err != nil {
		return nil, tacerr.Wrap(tacerr.CategoryInfrastructure, "full-text search failed", err)
	}
	return paths, nil
}

// RefreshIndex walks the project root, (re)summarizing any file whose
// SHA-256 hash has changed since the last refresh and skipping the
// rest, per §6.5. progress is called once per file processed
// (including skips), and may be nil. Only one refresh may run at a
// time; a concurrent call blocks until the prior one finishes (§5
// point 2's single-slot guard, generalized to a mutex since the
// indexer itself is the sole owner of this resource).
func (ix *Indexer) RefreshIndex(ctx context.Context, progress ProgressFunc) error {
	ix.refreshMu.Lock()
	defer ix.refreshMu.Unlock()

	var relpaths []string
	err := filepath.WalkDir(ix.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		relpath, relErr := filepath.Rel(ix.root, path)
		if relErr != nil {
			return nil
		}
		if relpath == "." {
			return nil
		}
		if ix.ignore.ignored(relpath) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		relpaths = append(relpaths, relpath)
		return nil
	})
	if err != nil {
		return tacerr.Wrap(tacerr.CategoryInfrastructure, "failed to walk project root", err)
	}

	seen := make(map[string]bool, len(relpaths))
	total := len(relpaths)
	for i, relpath := range relpaths {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		seen[relpath] = true
		if err := ix.refreshFile(ctx, relpath); err != nil {
			return err
		}
		if progress != nil {
			progress(i+1, total, relpath)
		}
	}

	return ix.pruneDeleted(seen)
}

// refreshFile (re)summarizes a single relpath if its hash changed,
// reusing the cached summary otherwise.
func (ix *Indexer) refreshFile(ctx context.Context, relpath string) error {
	abs := filepath.Join(ix.root, relpath)
	info, err := os.Stat(abs)
	if err != nil {
		return ix.forgetFile(relpath)
	}
	if info.Size() > ix.maxFileBytes {
		return nil
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		return tacerr.Wrap(tacerr.CategoryInfrastructure, "failed to read "+relpath, err)
	}
	hash := sha256Hex(content)

	ix.mu.Lock()
	prevHash, _, ok, err := ix.hashes.lookup(relpath)
	ix.mu.Unlock()
	if err != nil {
		return tacerr.Wrap(tacerr.CategoryInfrastructure, "failed to look up hash cache for "+relpath, err)
	}
	if ok && prevHash == hash {
		return nil
	}

	summary, err := ix.summarizer.Summarize(ctx, relpath, string(content))
	if err != nil {
		return tacerr.Wrap(tacerr.CategoryInfrastructure, "failed to summarize "+relpath, err)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if err := ix.hashes.put(relpath, hash, summary); err != nil {
		return tacerr.Wrap(tacerr.CategoryInfrastructure, "failed to cache summary for "+relpath, err)
	}
	if err := ix.fulltext.upsert(relpath, summary); err != nil {
		return tacerr.Wrap(tacerr.CategoryInfrastructure, "failed to index summary for "+relpath, err)
	}
	return nil
}

func (ix *Indexer) forgetFile(relpath string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if err := ix.hashes.remove(relpath); err != nil {
		return tacerr.Wrap(tacerr.CategoryInfrastructure, "failed to remove stale hash cache entry for "+relpath, err)
	}
	if err := ix.fulltext.remove(relpath); err != nil {
		return tacerr.Wrap(tacerr.CategoryInfrastructure, "failed to remove stale full-text entry for "+relpath, err)
	}
	return nil
}

// pruneDeleted removes cache entries for files no longer present on disk.
func (ix *Indexer) pruneDeleted(seen map[string]bool) error {
	ix.mu.Lock()
	cached, err := ix.hashes.paths()
	ix.mu.Unlock()
	if err != nil {
		return tacerr.Wrap(tacerr.CategoryInfrastructure, "failed to list cached paths", err)
	}
	for _, p := range cached {
		if !seen[p] {
			if err := ix.forgetFile(p); err != nil {
				return err
			}
		}
	}
	return nil
}

func sha256Hex(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
