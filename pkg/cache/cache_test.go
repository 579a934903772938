package cache

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	// Get always returns miss
	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit {
		t.Error("NullCache.Get should always return miss")
	}
	if data != nil {
		t.Error("NullCache.Get should return nil data")
	}

	// Set does nothing (no error)
	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}

	// Still a miss after Set
	_, hit, _ = c.Get(ctx, "key")
	if hit {
		t.Error("NullCache should not store data")
	}

	// Delete does nothing (no error)
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer c.Close()

	svg := []byte(`<svg width="100" height="80"></svg>`)
	key := RenderKey("digraph { a -> b }", "dot")

	if err := c.Set(ctx, key, svg, time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, hit, err := c.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !hit {
		t.Fatal("expected cache hit after Set")
	}
	if !bytes.Equal(got, svg) {
		t.Errorf("Get returned %q, want %q", got, svg)
	}

	if err := c.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, hit, _ := c.Get(ctx, key); hit {
		t.Error("expected miss after Delete")
	}

	// Deleting a missing key is not an error.
	if err := c.Delete(ctx, key); err != nil {
		t.Errorf("Delete on missing key: %v", err)
	}
}

func TestFileCacheStoresRawArtifacts(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer c.Close()

	source := "digraph { a -> b }"
	svg := []byte(`<svg width="100" height="80"></svg>`)
	if err := c.Set(ctx, RenderKey(source, "dot"), svg, time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// The artifact lands under its layout engine as browsable markup.
	path := filepath.Join(c.dir, "dot", Hash([]byte(source))+".svg")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if !bytes.Equal(data, svg) {
		t.Errorf("artifact holds %q, want the raw markup", data)
	}
	if _, err := os.Stat(path + expirySuffix); err != nil {
		t.Errorf("stat expiry sidecar: %v", err)
	}

	// Re-setting without a ttl pins the entry and drops the sidecar.
	if err := c.Set(ctx, RenderKey(source, "dot"), svg, 0); err != nil {
		t.Fatalf("Set without ttl: %v", err)
	}
	if _, err := os.Stat(path + expirySuffix); !os.IsNotExist(err) {
		t.Error("expected sidecar removed for a pinned entry")
	}

	if err := c.Delete(ctx, RenderKey(source, "dot")); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected artifact removed by Delete")
	}
}

func TestFileCacheEntryPathRejectsUnsafeSegments(t *testing.T) {
	c := &FileCache{dir: "/tmp/cache"}

	// Keys that do not look like render keys, or whose segments could
	// escape the cache directory, fall into the misc bucket.
	for _, key := range []string{
		"session:abc",
		"render:../evil:deadbeef",
		"render:dot:../../etc/passwd",
		"render::deadbeef",
	} {
		path := c.entryPath(key)
		if filepath.Dir(path) != filepath.Join(c.dir, "misc") {
			t.Errorf("entryPath(%q) = %q, want misc bucket", key, path)
		}
	}

	path := c.entryPath(RenderKey("digraph {}", "neato"))
	if filepath.Dir(path) != filepath.Join(c.dir, "neato") {
		t.Errorf("entryPath for a neato render = %q, want neato bucket", path)
	}
}

func TestFileCacheExpiration(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer c.Close()

	if err := c.Set(ctx, "k", []byte("v"), time.Nanosecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("expected expired entry to miss")
	}
}

func TestHash(t *testing.T) {
	// Test determinism
	h1 := Hash([]byte("hello"))
	h2 := Hash([]byte("hello"))
	if h1 != h2 {
		t.Error("Hash should be deterministic")
	}

	// Test different inputs produce different hashes
	h3 := Hash([]byte("world"))
	if h1 == h3 {
		t.Error("Different inputs should produce different hashes")
	}

	// Test hash length (SHA-256 produces 64 hex chars)
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestRenderKey(t *testing.T) {
	k1 := RenderKey("digraph { a -> b }", "dot")
	k2 := RenderKey("digraph { a -> b }", "neato")
	if k1 == k2 {
		t.Error("different layouts should produce different keys")
	}
	if !strings.HasPrefix(k1, "render:dot:") {
		t.Errorf("key %q should carry the layout prefix", k1)
	}

	k3 := RenderKey("digraph { a -> c }", "dot")
	if k1 == k3 {
		t.Error("different sources should produce different keys")
	}
	if RenderKey("digraph { a -> b }", "dot") != k1 {
		t.Error("RenderKey should be deterministic")
	}
}
