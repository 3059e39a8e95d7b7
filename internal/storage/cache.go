// Package storage persists finished analysis results so that repeated
// requests for an unchanged head commit skip the walk entirely.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"churnmap/internal/logging"
)

const schema = `
CREATE TABLE IF NOT EXISTS analyses (
	repo_url    TEXT NOT NULL,
	head_commit TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	result      BLOB NOT NULL,
	PRIMARY KEY (repo_url, head_commit)
);
`

// Cache is a sqlite-backed cache of analysis results keyed by
// (repository URL, head commit). Result blobs are zstd-compressed JSON.
type Cache struct {
	conn    *sql.DB
	maxAge  time.Duration
	logger  *logging.Logger
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// Open opens or creates the cache database at path
func Open(path string, maxAge time.Duration, logger *logging.Logger) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create compressor: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create decompressor: %w", err)
	}

	cache := &Cache{
		conn:    conn,
		maxAge:  maxAge,
		logger:  logger,
		encoder: encoder,
		decoder: decoder,
	}
	cache.prune()
	return cache, nil
}

// Get returns the cached result payload for a repository at a head
// commit, if present and fresh.
func (c *Cache) Get(repoURL, headCommit string) ([]byte, bool) {
	var blob []byte
	var createdAt string
	err := c.conn.QueryRow(`
		SELECT result, created_at FROM analyses
		WHERE repo_url = ? AND head_commit = ?
	`, repoURL, headCommit).Scan(&blob, &createdAt)
	if err != nil {
		if err != sql.ErrNoRows {
			c.logger.Warn("Cache lookup failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return nil, false
	}

	if c.maxAge > 0 {
		created, err := time.Parse(time.RFC3339, createdAt)
		if err != nil || time.Since(created) > c.maxAge {
			return nil, false
		}
	}

	result, err := c.decoder.DecodeAll(blob, nil)
	if err != nil {
		c.logger.Warn("Cache entry undecodable, ignoring", map[string]interface{}{
			"repoUrl": repoURL,
			"error":   err.Error(),
		})
		return nil, false
	}
	return result, true
}

// Put stores a result payload for a repository at a head commit
func (c *Cache) Put(repoURL, headCommit string, result []byte) error {
	blob := c.encoder.EncodeAll(result, nil)
	_, err := c.conn.Exec(`
		INSERT OR REPLACE INTO analyses (repo_url, head_commit, created_at, result)
		VALUES (?, ?, ?, ?)
	`, repoURL, headCommit, time.Now().UTC().Format(time.RFC3339), blob)
	if err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	return nil
}

// prune drops entries older than the configured maximum age
func (c *Cache) prune() {
	if c.maxAge <= 0 {
		return
	}
	cutoff := time.Now().UTC().Add(-c.maxAge).Format(time.RFC3339)
	if _, err := c.conn.Exec(`DELETE FROM analyses WHERE created_at < ?`, cutoff); err != nil {
		c.logger.Warn("Cache prune failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// Close releases the database connection and codec state
func (c *Cache) Close() error {
	_ = c.encoder.Close()
	c.decoder.Close()
	return c.conn.Close()
}
