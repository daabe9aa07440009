// Package cache stores computed layout frames and rendered artifacts.
//
// Three backends implement [Cache]: [FileCache] for the CLI, [RedisCache]
// for the API server and shared deployments, and [NullCache] when caching
// is disabled. [Open] picks one from a single backend string so the CLI and
// the server configure caching the same way.
//
// Keys come from a [Keyer], which hashes every input that affects the
// cached value. A key therefore changes whenever the scene, the engine
// options or the output format change, and entries never need explicit
// invalidation.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the value for key and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Default TTLs per entry type.
const (
	FrameTTL    = 7 * 24 * time.Hour
	LayoutTTL   = 24 * time.Hour
	ArtifactTTL = 7 * 24 * time.Hour
)

// FrameKeyOpts are the inputs besides the scene that change simulated
// frames.
type FrameKeyOpts struct {
	EngineHash string `json:"engine"`
	Steps      int    `json:"steps"`
}

// LayoutKeyOpts are the inputs besides the request body that change a
// one-shot layout.
type LayoutKeyOpts struct {
	EngineHash string  `json:"engine"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
}

// ArtifactKeyOpts are the inputs that change a rendered artifact.
type ArtifactKeyOpts struct {
	Format string  `json:"format"`
	Scale  float64 `json:"scale,omitempty"`
	Theme  string  `json:"theme,omitempty"`
}

// Keyer derives cache keys.
type Keyer interface {
	FrameKey(sceneHash string, opts FrameKeyOpts) string
	LayoutKey(requestHash string, opts LayoutKeyOpts) string
	ArtifactKey(frameHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer produces "<type>:<sha256>" keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// FrameKey generates a key for simulated frame caching.
func (DefaultKeyer) FrameKey(sceneHash string, opts FrameKeyOpts) string {
	return hashKey("frames", sceneHash, opts)
}

// LayoutKey generates a key for one-shot layout caching.
func (DefaultKeyer) LayoutKey(requestHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", requestHash, opts)
}

// ArtifactKey generates a key for rendered artifact caching.
func (DefaultKeyer) ArtifactKey(frameHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", frameHash, opts)
}

// Open creates a cache from a backend string:
//
//	""  or "none"          caching disabled
//	"redis://host:6379/0"  Redis (also rediss://)
//	anything else          a FileCache directory
//
// The result reports hits, misses and writes to the registered cache hooks.
func Open(ctx context.Context, backend string) (Cache, error) {
	var (
		c   Cache
		err error
	)
	switch {
	case backend == "" || backend == "none":
		return NewNullCache(), nil
	case strings.HasPrefix(backend, "redis://"), strings.HasPrefix(backend, "rediss://"):
		c, err = NewRedisCache(ctx, backend)
	default:
		c, err = NewFileCache(backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open cache %q: %w", backend, err)
	}
	return Instrument(c), nil
}
