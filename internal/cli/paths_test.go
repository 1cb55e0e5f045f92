package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/matzehuels/layerpress/pkg/cache"
)

func TestCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}

	home, _ := os.UserHomeDir()
	expected := filepath.Join(home, ".cache", appName)
	if dir != expected {
		t.Errorf("cacheDir() = %q, want %q", dir, expected)
	}
}

func TestCacheDirXDG(t *testing.T) {
	customCache := filepath.Join(t.TempDir(), "custom-cache")
	t.Setenv("XDG_CACHE_HOME", customCache)

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}

	expected := filepath.Join(customCache, appName)
	if dir != expected {
		t.Errorf("cacheDir() with XDG_CACHE_HOME = %q, want %q", dir, expected)
	}
}

func TestNewCache(t *testing.T) {
	c, err := newCache(true, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(*cache.NullCache); !ok {
		t.Errorf("--no-cache should give a NullCache, got %T", c)
	}

	dir := filepath.Join(t.TempDir(), "configured")
	c, err = newCache(false, dir)
	if err != nil {
		t.Fatal(err)
	}
	fc, ok := c.(*cache.FileCache)
	if !ok {
		t.Fatalf("expected a FileCache, got %T", c)
	}
	if fc.Dir() != dir {
		t.Errorf("cache dir = %q, want %q", fc.Dir(), dir)
	}
}
