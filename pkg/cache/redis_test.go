package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	t.Helper()

	mr := miniredis.NewMiniRedis()
	if err := mr.Start(); err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := &RedisCache{client: client, prefix: "lpatch:"}
	t.Cleanup(func() { _ = c.Close() })
	return mr, c
}

func TestRedisCacheSetGet(t *testing.T) {
	ctx := context.Background()
	mr, c := setupMiniRedis(t)

	if _, hit, err := c.Get(ctx, "crates:serde"); err != nil || hit {
		t.Fatalf("Get on empty cache = hit %v, err %v; want miss", hit, err)
	}

	if err := c.Set(ctx, "crates:serde", []byte("payload"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}

	data, hit, err := c.Get(ctx, "crates:serde")
	if err != nil || !hit {
		t.Fatalf("Get = hit %v, err %v; want hit", hit, err)
	}
	if string(data) != "payload" {
		t.Errorf("Get data = %q, want %q", data, "payload")
	}

	if !mr.Exists("lpatch:crates:serde") {
		t.Error("key should be stored under the cache prefix")
	}
}

func TestRedisCacheExpiration(t *testing.T) {
	ctx := context.Background()
	mr, c := setupMiniRedis(t)

	if err := c.Set(ctx, "key", []byte("value"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	if _, hit, _ := c.Get(ctx, "key"); hit {
		t.Error("entry should expire after its TTL")
	}
}

func TestRedisCacheDeleteAndClear(t *testing.T) {
	ctx := context.Background()
	mr, c := setupMiniRedis(t)

	for _, k := range []string{"a", "b", "c"} {
		_ = c.Set(ctx, k, []byte(k), 0)
	}
	if err := mr.Set("unrelated", "x"); err != nil {
		t.Fatal(err)
	}

	if err := c.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "a"); hit {
		t.Error("deleted key should miss")
	}

	n, err := c.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n != 2 {
		t.Errorf("Clear removed %d keys, want 2", n)
	}
	if !mr.Exists("unrelated") {
		t.Error("Clear must not touch keys outside the prefix")
	}
}

func TestNewRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := NewRedisCache(context.Background(), "redis://"+mr.Addr(), "lpatch:")
	if err != nil {
		t.Fatalf("NewRedisCache: %v", err)
	}
	defer c.Close()

	if err := c.Set(context.Background(), "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
}

func TestNewRedisCacheBadURL(t *testing.T) {
	if _, err := NewRedisCache(context.Background(), "not a url", ""); err == nil {
		t.Error("expected error for invalid URL")
	}
}
