package cache

import (
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

func TestFileCachePath(t *testing.T) {
	c := &FileCache{dir: "/cache"}

	p1 := c.path("crates:serde")
	if p1 != c.path("crates:serde") {
		t.Error("path should be deterministic")
	}
	if p1 == c.path("crates:tokio") {
		t.Error("different keys should map to different files")
	}
	if strings.Contains(p1, "serde") {
		t.Errorf("path %q leaks the key", p1)
	}

	rel, err := filepath.Rel("/cache", p1)
	if err != nil {
		t.Fatal(err)
	}
	shard, file := filepath.Split(rel)
	if len(filepath.Clean(shard)) != 2 || len(file) != 62+len(".json") {
		t.Errorf("path %q is not <2-char shard>/<62-char hash>.json", p1)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer c.Close()

	if _, hit, err := c.Get(ctx, "crates:serde"); err != nil || hit {
		t.Fatalf("Get on empty cache = hit %v, err %v; want miss", hit, err)
	}

	if err := c.Set(ctx, "crates:serde", []byte(`{"name":"serde"}`), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}

	data, hit, err := c.Get(ctx, "crates:serde")
	if err != nil || !hit {
		t.Fatalf("Get after Set = hit %v, err %v; want hit", hit, err)
	}
	if string(data) != `{"name":"serde"}` {
		t.Errorf("Get data = %s", data)
	}

	if err := c.Delete(ctx, "crates:serde"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "crates:serde"); hit {
		t.Error("entry should be gone after Delete")
	}

	if err := c.Delete(ctx, "never-set"); err != nil {
		t.Errorf("Delete of missing key should not fail: %v", err)
	}
}

func TestFileCacheExpiration(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())

	if err := c.Set(ctx, "key", []byte("value"), 10*time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	if _, hit, err := c.Get(ctx, "key"); hit || err != nil {
		t.Errorf("expired entry: hit %v, err %v; want miss", hit, err)
	}
	if _, err := os.Stat(c.path("key")); !os.IsNotExist(err) {
		t.Error("expired entry should be removed from disk")
	}
}

func TestFileCacheNoTTL(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())

	_ = c.Set(ctx, "key", []byte("value"), 0)
	if _, hit, _ := c.Get(ctx, "key"); !hit {
		t.Error("entry without TTL should not expire")
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())

	path := c.path("key")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, hit, err := c.Get(ctx, "key"); hit || err != nil {
		t.Errorf("corrupt entry: hit %v, err %v; want miss", hit, err)
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c, _ := NewFileCache(dir)

	for _, k := range []string{"a", "b", "c"} {
		if err := c.Set(ctx, k, []byte(k), time.Hour); err != nil {
			t.Fatalf("Set(%s): %v", k, err)
		}
	}

	n, err := c.Clear()
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n != 3 {
		t.Errorf("Clear removed %d entries, want 3", n)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("cache dir should be empty, has %d entries", len(entries))
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("cache dir itself should remain: %v", err)
	}
}

func TestFileCachePathSharding(t *testing.T) {
	c, _ := NewFileCache(t.TempDir())

	p1 := c.path("test")
	if p1 != c.path("test") {
		t.Error("path should be deterministic")
	}
	if p1 == c.path("other") {
		t.Error("different keys should produce different paths")
	}
	if got := filepath.Base(filepath.Dir(p1)); len(got) != 2 {
		t.Errorf("shard dir = %q, want 2 characters", got)
	}
}
