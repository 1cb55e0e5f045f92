package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// FileCache stores entries as files below a directory, two levels deep by key
// hash so no single directory grows unbounded. Each file is a one-line JSON
// header followed by the raw payload, so large values such as encoded images
// are stored without inflation.
type FileCache struct {
	dir string
}

// NewFileCache creates a file-based cache in the given directory.
// The directory will be created if it doesn't exist.
func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir}, nil
}

type entryHeader struct {
	Size      int       `json:"size"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Dir returns the cache's root directory.
func (c *FileCache) Dir() string {
	return c.dir
}

// Get retrieves a value from the cache. Corrupt or expired entries are
// removed and reported as a miss.
func (c *FileCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	path := c.path(key)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	head, payload, ok := bytes.Cut(data, []byte{'\n'})
	var hdr entryHeader
	if !ok || json.Unmarshal(head, &hdr) != nil || hdr.Size != len(payload) {
		_ = os.Remove(path)
		return nil, false, nil
	}

	if !hdr.ExpiresAt.IsZero() && time.Now().After(hdr.ExpiresAt) {
		_ = os.Remove(path)
		return nil, false, nil
	}

	return payload, true, nil
}

// Set stores a value in the cache. The entry is written to a temporary file
// and renamed into place so concurrent readers never see a partial entry.
func (c *FileCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	hdr := entryHeader{Size: len(data)}
	if ttl > 0 {
		hdr.ExpiresAt = time.Now().Add(ttl)
	}

	head, err := json.Marshal(hdr)
	if err != nil {
		return err
	}

	path := c.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".entry-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(append(append(head, '\n'), data...)); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Delete removes a value from the cache.
func (c *FileCache) Delete(ctx context.Context, key string) error {
	err := os.Remove(c.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Clear removes every entry and returns how many were deleted. The root
// directory itself is kept.
func (c *FileCache) Clear() (int, error) {
	shards, err := os.ReadDir(c.dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	count := 0
	for _, shard := range shards {
		shardPath := filepath.Join(c.dir, shard.Name())
		if !shard.IsDir() {
			if os.Remove(shardPath) == nil {
				count++
			}
			continue
		}
		entries, err := os.ReadDir(shardPath)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if os.Remove(filepath.Join(shardPath, e.Name())) == nil {
				count++
			}
		}
		_ = os.Remove(shardPath)
	}
	return count, nil
}

// Close does nothing for file cache.
func (c *FileCache) Close() error {
	return nil
}

// path converts a cache key to a file path.
func (c *FileCache) path(key string) string {
	hash := Hash([]byte(key))
	return filepath.Join(c.dir, hash[:2], hash[2:]+".entry")
}

var _ Cache = (*FileCache)(nil)
