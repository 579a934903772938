package cache

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// expirySuffix marks the sidecar holding an artifact's expiry time.
const expirySuffix = ".expires"

// FileCache stores rendered artifacts as plain .svg files, one
// subdirectory per layout engine:
//
//	<dir>/dot/9f86d08….svg
//	<dir>/dot/9f86d08….svg.expires
//
// Artifacts are written as the raw markup, so a cache directory can be
// browsed and its entries opened directly in a viewer. The sidecar holds
// the entry's expiry as unix nanoseconds and is absent for entries that
// never expire.
type FileCache struct {
	dir string
}

// NewFileCache creates a file cache rooted at dir, creating it if needed.
func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir}, nil
}

// Get retrieves an artifact. Expired entries are removed and reported as a
// miss.
func (c *FileCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	path := c.entryPath(key)

	if c.expired(path) {
		_ = os.Remove(path)
		_ = os.Remove(path + expirySuffix)
		return nil, false, nil
	}

	svg, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return svg, true, nil
}

// Set stores an artifact. A ttl of zero keeps the entry indefinitely.
func (c *FileCache) Set(ctx context.Context, key string, svg []byte, ttl time.Duration) error {
	path := c.entryPath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, svg, 0o644); err != nil {
		return err
	}

	if ttl <= 0 {
		// A re-Set without a ttl must not inherit an old deadline.
		_ = os.Remove(path + expirySuffix)
		return nil
	}
	deadline := strconv.FormatInt(time.Now().Add(ttl).UnixNano(), 10)
	return os.WriteFile(path+expirySuffix, []byte(deadline), 0o644)
}

// Delete removes an artifact and its expiry sidecar.
func (c *FileCache) Delete(ctx context.Context, key string) error {
	path := c.entryPath(key)
	_ = os.Remove(path + expirySuffix)
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Close does nothing for a file cache.
func (c *FileCache) Close() error {
	return nil
}

// expired reports whether the entry at path has a sidecar with a deadline
// in the past. A corrupt sidecar counts as expired.
func (c *FileCache) expired(path string) bool {
	raw, err := os.ReadFile(path + expirySuffix)
	if err != nil {
		return false
	}
	deadline, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return true
	}
	return time.Now().UnixNano() >= deadline
}

// entryPath maps a cache key to an artifact path. RenderKey-shaped keys
// ("render:<layout>:<hash>") group entries under their layout engine so a
// directory listing reads like the keyspace; anything else is hashed into
// a misc bucket.
func (c *FileCache) entryPath(key string) string {
	if rest, ok := strings.CutPrefix(key, "render:"); ok {
		if layout, hash, ok := strings.Cut(rest, ":"); ok && safeName(layout) && safeName(hash) {
			return filepath.Join(c.dir, layout, hash+".svg")
		}
	}
	return filepath.Join(c.dir, "misc", Hash([]byte(key))+".svg")
}

// safeName accepts key segments that cannot escape the cache directory.
func safeName(s string) bool {
	if s == "" {
		return false
	}
	return !strings.ContainsAny(s, `/\.`)
}

// Ensure FileCache implements Cache.
var _ Cache = (*FileCache)(nil)
