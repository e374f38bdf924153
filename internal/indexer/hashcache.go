package indexer

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// hashCache persists per-file SHA-256 hashes and generated summaries so
// refresh_index can skip files that have not changed (§6.5). Grounded on
// the teacher's memory_kv table shape in internal/memory/sqlite.go, minus
// the sqlite-vec vector column that capability has no use for here.
type hashCache struct {
	db *sql.DB
}

func newHashCache(path string) (*hashCache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open hash cache %s: %w", path, err)
	}
	schema := `
	CREATE TABLE IF NOT EXISTS file_hashes (
		path       TEXT PRIMARY KEY,
		hash       TEXT NOT NULL,
		summary    TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create hash cache schema: %w", err)
	}
	return &hashCache{db: db}, nil
}

// lookup returns the cached hash and summary for relpath, if any.
func (c *hashCache) lookup(relpath string) (hash, summary string, ok bool, err error) {
	row := c.db.QueryRow(`SELECT hash, summary FROM file_hashes WHERE path = ?`, relpath)
	err = row.Scan(&hash, &summary)
	if err == sql.ErrNoRows {
		return "", "", false, nil
	}
	if err != nil {
		return "", "", false, fmt.Errorf("failed to read hash cache entry for %s: %w", relpath, err)
	}
	return hash, summary, true, nil
}

func (c *hashCache) put(relpath, hash, summary string) error {
	_, err := c.db.Exec(`
		INSERT INTO file_hashes (path, hash, summary, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET hash = excluded.hash, summary = excluded.summary, updated_at = excluded.updated_at
	`, relpath, hash, summary, time.Now())
	if err != nil {
		return fmt.Errorf("failed to store hash cache entry for %s: %w", relpath, err)
	}
	return nil
}

// remove deletes a stale entry, used when a previously-indexed file is
// no longer present on disk.
func (c *hashCache) remove(relpath string) error {
	_, err := c.db.Exec(`DELETE FROM file_hashes WHERE path = ?`, relpath)
	if err != nil {
		return fmt.Errorf("failed to remove hash cache entry for %s: %w", relpath, err)
	}
	return nil
}

// all returns every cached relpath -> summary pair, in no particular order.
func (c *hashCache) all() (map[string]string, error) {
	rows, err := c.db.Query(`SELECT path, summary FROM file_hashes`)
	if err != nil {
		return nil, fmt.Errorf("failed to list hash cache entries: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var path, summary string
		if err := rows.Scan(&path, &summary); err != nil {
			return nil, fmt.Errorf("failed to scan hash cache row: %w", err)
		}
		out[path] = summary
	}
	return out, rows.Err()
}

// paths returns every currently-cached relpath.
func (c *hashCache) paths() ([]string, error) {
	rows, err := c.db.Query(`SELECT path FROM file_hashes`)
	if err != nil {
		return nil, fmt.Errorf("failed to list hash cache paths: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("failed to scan hash cache path: %w", err)
		}
		out = append(out, path)
	}
	return out, rows.Err()
}

func (c *hashCache) close() error {
	return c.db.Close()
}
