package fingerprint

import (
	"runtime"
	"time"

	"github.com/rs/zerolog"

	"github.com/stupid-simple/dedup/hashcache"
)

// Cache persists content digests across runs. Lookup must only report a
// hit when the stored size and mtime exactly match the arguments.
type Cache interface {
	Lookup(path string, size int64, modTime time.Time) (hashcache.Digests, bool)
	Store(path string, size int64, modTime time.Time, d hashcache.Digests)
}

type Option func(o *engineOptions)

type engineOptions struct {
	cache   Cache
	chunk   int64
	workers int
	logger  zerolog.Logger
}

func defaultOptions() engineOptions {
	return engineOptions{
		chunk:   DefaultChunkSize,
		workers: runtime.GOMAXPROCS(0),
		logger:  zerolog.Nop(),
	}
}

// WithCache enables digest caching. Without it every digest is recomputed.
func WithCache(c Cache) Option {
	return func(o *engineOptions) {
		o.cache = c
	}
}

// WithChunkSize overrides the firstbytes/lastbytes chunk size.
func WithChunkSize(n int64) Option {
	return func(o *engineOptions) {
		if n > 0 {
			o.chunk = n
		}
	}
}

// WithWorkers bounds the number of files hashed concurrently.
func WithWorkers(n int) Option {
	return func(o *engineOptions) {
		if n > 0 {
			o.workers = n
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *engineOptions) {
		o.logger = logger
	}
}
