// Package cache provides content-addressed caching for the asset pipeline.
//
// Normalization probes and downscales the same layer files on every run
// because the destination tree is always rebuilt from scratch. Caching the
// probe results and the re-encoded bytes by content hash makes reruns cheap
// without weakening the "destination is rebuilt" contract: the cache is only
// ever consulted for bytes, never for which files exist.
//
// Two implementations are provided:
//   - FileCache: JSON entries under a hashed directory layout (CLI default)
//   - NullCache: never stores anything (--no-cache, tests)
package cache

import (
	"context"
	"fmt"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the cached value and whether it was a hit.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the cache.
	Close() error
}

// TTLs for the entry kinds. Entries are addressed by content hash, so they
// never go stale; the TTL only bounds disk usage for abandoned assets.
const (
	TTLProbe = 30 * 24 * time.Hour
	TTLFit   = 30 * 24 * time.Hour
)

// Keyer generates cache keys for the pipeline's entry kinds.
type Keyer interface {
	// ProbeKey is the key for the decoded dimensions of a file.
	ProbeKey(contentHash string) string

	// FitKey is the key for the fit-inside re-encoding of a file.
	FitKey(contentHash string, opts FitKeyOpts) string
}

// FitKeyOpts holds the parameters that change a fit-inside result.
type FitKeyOpts struct {
	MaxWidth  int    `json:"max_width"`
	MaxHeight int    `json:"max_height"`
	Format    string `json:"format"`
}

// DefaultKeyer is the standard Keyer.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard Keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// ProbeKey implements Keyer.
func (DefaultKeyer) ProbeKey(contentHash string) string {
	return fmt.Sprintf("probe:%s", contentHash)
}

// FitKey implements Keyer.
func (DefaultKeyer) FitKey(contentHash string, opts FitKeyOpts) string {
	return hashKey("fit", contentHash, opts)
}
