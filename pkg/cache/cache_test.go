package cache

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
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

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}

	_, hit, _ = c.Get(ctx, "key")
	if hit {
		t.Error("NullCache should not store data")
	}

	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestFileCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}

	if _, hit, _ := c.Get(ctx, "probe:abc"); hit {
		t.Fatal("empty cache should miss")
	}

	if err := c.Set(ctx, "probe:abc", []byte(`{"w":1}`), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}

	data, hit, err := c.Get(ctx, "probe:abc")
	if err != nil || !hit {
		t.Fatalf("Get hit=%v err=%v, want hit", hit, err)
	}
	if string(data) != `{"w":1}` {
		t.Errorf("Get data = %q", data)
	}

	if err := c.Delete(ctx, "probe:abc"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "probe:abc"); hit {
		t.Error("deleted entry should miss")
	}
	if err := c.Delete(ctx, "probe:abc"); err != nil {
		t.Errorf("Delete of missing key should succeed: %v", err)
	}
}

func TestFileCacheStoresRawPayload(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}

	payload := make([]byte, 64<<10)
	for i := range payload {
		payload[i] = byte(i * 7)
	}
	payload[100] = '\n'
	if err := c.Set(ctx, "fit:big", payload, time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}

	info, err := os.Stat(c.path("fit:big"))
	if err != nil {
		t.Fatal(err)
	}
	if overhead := info.Size() - int64(len(payload)); overhead < 0 || overhead > 128 {
		t.Errorf("entry is %d bytes for a %d byte payload", info.Size(), len(payload))
	}

	got, hit, err := c.Get(ctx, "fit:big")
	if err != nil || !hit {
		t.Fatalf("Get hit=%v err=%v, want hit", hit, err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("payload changed in the cache")
	}
}

func TestFileCacheTruncatedEntry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	if err := c.Set(ctx, "k", []byte("0123456789"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, err := os.ReadFile(c.path("k"))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(c.path("k"), data[:len(data)-3], 0o644); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("truncated entry should miss")
	}
}

func TestFileCacheExpired(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}

	if err := c.Set(ctx, "k", []byte("v"), time.Nanosecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("expired entry should miss")
	}
	if _, err := os.Stat(c.path("k")); !os.IsNotExist(err) {
		t.Error("expired entry should be removed from disk")
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}

	path := c.path("k")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	data, hit, err := c.Get(ctx, "k")
	if err != nil || hit || data != nil {
		t.Errorf("corrupt entry: data=%v hit=%v err=%v, want clean miss", data, hit, err)
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c, err := NewFileCache(dir)
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}

	for _, k := range []string{"a", "b", "c"} {
		if err := c.Set(ctx, k, []byte(k), 0); err != nil {
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
	if _, hit, _ := c.Get(ctx, "a"); hit {
		t.Error("cleared entry should miss")
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("Clear should keep the root dir: %v", err)
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	h2 := Hash([]byte("hello"))
	if h1 != h2 {
		t.Error("Hash should be deterministic")
	}

	if h1 == Hash([]byte("world")) {
		t.Error("Different inputs should produce different hashes")
	}

	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestHashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layer.png")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	if got != Hash([]byte("hello")) {
		t.Errorf("HashFile = %s, want %s", got, Hash([]byte("hello")))
	}

	if _, err := HashFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("HashFile of missing file should fail")
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	if got := k.ProbeKey("abc"); got != "probe:abc" {
		t.Errorf("ProbeKey = %q", got)
	}

	fk1 := k.FitKey("abc", FitKeyOpts{MaxWidth: 1024, MaxHeight: 1024, Format: "png"})
	fk2 := k.FitKey("abc", FitKeyOpts{MaxWidth: 512, MaxHeight: 1024, Format: "png"})
	if fk1 == fk2 {
		t.Error("Different FitKeyOpts should produce different keys")
	}
	if fk1 != k.FitKey("abc", FitKeyOpts{MaxWidth: 1024, MaxHeight: 1024, Format: "png"}) {
		t.Error("FitKey should be deterministic")
	}
}
