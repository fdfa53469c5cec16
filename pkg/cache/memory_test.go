package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryCacheSetGet(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(10))
	defer mc.Close()
	ctx := context.Background()

	if err := mc.Set(ctx, "k1", "v1", time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	var s string
	if err := mc.Get(ctx, "k1", &s); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if s != "v1" {
		t.Fatalf("got %q, want v1", s)
	}

	var v interface{}
	if err := mc.Get(ctx, "k1", &v); err != nil {
		t.Fatalf("Get interface dest: %v", err)
	}
	if v.(string) != "v1" {
		t.Fatalf("got %v, want v1", v)
	}
}

func TestMemoryCacheMiss(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()

	var s string
	err := mc.Get(context.Background(), "absent", &s)
	if !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("got %v, want ErrCacheMiss", err)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	if err := mc.Set(ctx, "short", "x", time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	var s string
	if err := mc.Get(ctx, "short", &s); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expired key: got %v, want ErrCacheMiss", err)
	}

	// Zero expiration means keep it around.
	if err := mc.Set(ctx, "long", "y", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := mc.Get(ctx, "long", &s); err != nil {
		t.Fatalf("zero-expiration key: %v", err)
	}
}

func TestMemoryCacheDeleteByPattern(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	for _, k := range []string{"series:a", "series:b", "other:c"} {
		if err := mc.Set(ctx, k, "v", time.Minute); err != nil {
			t.Fatalf("Set %s: %v", k, err)
		}
	}

	if err := mc.DeleteByPattern(ctx, "series:*"); err != nil {
		t.Fatalf("DeleteByPattern: %v", err)
	}

	var s string
	if err := mc.Get(ctx, "series:a", &s); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("series:a should be gone, got %v", err)
	}
	if err := mc.Get(ctx, "other:c", &s); err != nil {
		t.Fatalf("other:c should survive: %v", err)
	}
}

func TestMemoryCacheEviction(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()
	ctx := context.Background()

	if err := mc.Set(ctx, "a", "1", time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(time.Millisecond)
	if err := mc.Set(ctx, "b", "2", time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(time.Millisecond)

	// Touch "a" so "b" becomes the eviction candidate.
	var s string
	if err := mc.Get(ctx, "a", &s); err != nil {
		t.Fatalf("Get: %v", err)
	}
	time.Sleep(time.Millisecond)

	if err := mc.Set(ctx, "c", "3", time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if err := mc.Get(ctx, "b", &s); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("b should have been evicted, got %v", err)
	}
	if err := mc.Get(ctx, "a", &s); err != nil {
		t.Fatalf("a should survive: %v", err)
	}
}

func TestMemoryCacheTryLock(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	ok, err := mc.TryLock(ctx, "lock", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first TryLock: ok=%v err=%v", ok, err)
	}

	ok, err = mc.TryLock(ctx, "lock", time.Minute)
	if err != nil || ok {
		t.Fatalf("second TryLock should fail: ok=%v err=%v", ok, err)
	}

	if err := mc.Unlock(ctx, "lock"); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	ok, err = mc.TryLock(ctx, "lock", time.Minute)
	if err != nil || !ok {
		t.Fatalf("TryLock after Unlock: ok=%v err=%v", ok, err)
	}
}

func TestGenerateKeyWithParams(t *testing.T) {
	k := GenerateKeyWithParams("series", "btc", 12)
	if k != "series:btc:12" {
		t.Fatalf("got %q, want series:btc:12", k)
	}

	long := GenerateKeyWithParams("series", string(make([]byte, 300)))
	if len(long) > len("series:")+32 {
		t.Fatalf("oversized key not collapsed: len=%d", len(long))
	}
}
