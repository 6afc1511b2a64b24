package fingerprint

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/stupid-simple/dedup/criteria"
	"github.com/stupid-simple/dedup/dirtree"
	"github.com/stupid-simple/dedup/hashcache"
)

// Engine evaluates a criteria set over a forest, cheapest aspect first,
// discarding entries proven unique before any costlier aspect runs.
type Engine struct {
	set criteria.Set
	engineOptions
}

func New(set criteria.Set, opts ...Option) *Engine {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Engine{set: set, engineOptions: o}
}

// Result holds the raw duplicate cohorts: entries agreeing on every
// requested aspect. Members keep (root, traversal) order; result
// filtering happens downstream.
type Result struct {
	Files [][]*dirtree.File
	Dirs  [][]*dirtree.Dir
}

// Digest acquisition is an explicit state machine per file and digest: a
// digest is unneeded until its aspect is requested, then pending, then
// either served from the cache or computed.
type digestState uint8

const (
	digestUnneeded digestState = iota
	digestPending
	digestCached
	digestComputed
)

type digestKind uint8

const (
	kindFirst digestKind = iota
	kindLast
	kindFull
	numKinds
)

type fileState struct {
	file         *dirtree.File
	d            hashcache.Digests
	state        [numKinds]digestState
	cacheChecked bool
	failed       bool
}

func newFileState(f *dirtree.File, set criteria.Set) *fileState {
	fs := &fileState{file: f}
	if set.Has(criteria.FirstBytes) {
		fs.state[kindFirst] = digestPending
	}
	if set.Has(criteria.LastBytes) {
		fs.state[kindLast] = digestPending
	}
	if set.Has(criteria.Hash) {
		fs.state[kindFull] = digestPending
	}
	return fs
}

func (fs *fileState) digest(kind digestKind) string {
	switch kind {
	case kindFirst:
		return fs.d.First
	case kindLast:
		return fs.d.Last
	default:
		return fs.d.Full
	}
}

func (fs *fileState) setDigest(kind digestKind, dg string, st digestState) {
	switch kind {
	case kindFirst:
		fs.d.First = dg
	case kindLast:
		fs.d.Last = dg
	default:
		fs.d.Full = dg
	}
	fs.state[kind] = st
}

// Run fingerprints the forest and returns the raw duplicate cohorts.
// Digests computed before a cancellation are already in the cache.
func (e *Engine) Run(ctx context.Context, forest *dirtree.Forest) (*Result, error) {
	startTime := time.Now()
	e.logger.Info().
		Str("criteria", e.set.String()).
		Int("files", forest.FileCount).
		Int("dirs", forest.DirCount).
		Msg("start fingerprinting")

	states := make([]*fileState, 0, forest.FileCount)
	forest.WalkFiles(func(f *dirtree.File) bool {
		states = append(states, newFileState(f, e.set))
		return true
	})

	fileAspects := e.set.Files()
	var cohorts [][]*fileState
	switch {
	case fileAspects.IsEmpty():
		if len(states) > 0 {
			e.logger.Warn().Msg("no file criteria requested, files only pair up through directories")
		}
	case len(states) >= 2:
		cohorts = [][]*fileState{states}
		for _, a := range fileAspects.Aspects() {
			var err error
			cohorts, err = e.stage(ctx, cohorts, a)
			if err != nil {
				return nil, err
			}
			e.logger.Debug().
				Str("aspect", a.String()).
				Int("cohorts", len(cohorts)).
				Msg("cohorts split")
			if len(cohorts) == 0 {
				break
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{}
	for _, c := range cohorts {
		group := make([]*dirtree.File, len(c))
		for i, fs := range c {
			group[i] = fs.file
		}
		result.Files = append(result.Files, group)
	}

	result.Dirs = e.groupDirs(forest, newFileLabels(cohorts, fileAspects))

	e.logger.Info().
		Int("file_groups", len(result.Files)).
		Int("dir_groups", len(result.Dirs)).
		Float64("seconds", time.Since(startTime).Seconds()).
		Msg("done fingerprinting")

	return result, nil
}

func (e *Engine) stage(ctx context.Context, cohorts [][]*fileState, a criteria.Aspect) ([][]*fileState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch a {
	case criteria.Size:
		return partitionAll(cohorts, func(fs *fileState) string {
			return strconv.FormatInt(fs.file.Size(), 10)
		}), nil
	case criteria.FileName:
		return partitionAll(cohorts, func(fs *fileState) string {
			return fs.file.Name()
		}), nil
	case criteria.Date:
		// date compares whole seconds
		return partitionAll(cohorts, func(fs *fileState) string {
			return strconv.FormatInt(fs.file.ModTime().Unix(), 10)
		}), nil
	case criteria.FirstBytes:
		return e.digestStage(ctx, cohorts, kindFirst)
	case criteria.LastBytes:
		return e.digestStage(ctx, cohorts, kindLast)
	case criteria.Hash:
		return e.digestStage(ctx, cohorts, kindFull)
	}
	return cohorts, nil
}

// digestStage resolves one digest for every cohort member, from the cache
// where possible, computing the rest on the worker pool, then re-splits
// the cohorts by digest value. g.Wait is the stage barrier: no cohort is
// split before all of its members are resolved.
func (e *Engine) digestStage(ctx context.Context, cohorts [][]*fileState, kind digestKind) ([][]*fileState, error) {
	var cached, computed, failed atomic.Int64

	throttled := e.logger.Sample(&zerolog.BurstSampler{
		Burst:  1,
		Period: 1 * time.Second,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for _, c := range cohorts {
		for _, fs := range c {
			fs := fs
			if fs.digest(kind) != "" {
				continue
			}
			if e.fromCache(fs, kind) {
				cached.Add(1)
				continue
			}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				if e.computeDigest(fs, kind) {
					computed.Add(1)
				} else {
					failed.Add(1)
				}
				throttled.Info().Int64("hashed", computed.Load()).Msg("hashing files")
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	e.logger.Debug().
		Int64("cached", cached.Load()).
		Int64("computed", computed.Load()).
		Int64("failed", failed.Load()).
		Msg("digests resolved")

	alive := make([][]*fileState, 0, len(cohorts))
	for _, c := range cohorts {
		keep := make([]*fileState, 0, len(c))
		for _, fs := range c {
			if !fs.failed {
				keep = append(keep, fs)
			}
		}
		if len(keep) >= 2 {
			alive = append(alive, keep)
		}
	}

	return partitionAll(alive, func(fs *fileState) string {
		return fs.digest(kind)
	}), nil
}

// fromCache serves digests from a trusted cache record. First/Last from a
// different chunk size are unusable, Full is chunk-independent. For files
// at or under the chunk size any available full digest serves all kinds.
func (e *Engine) fromCache(fs *fileState, kind digestKind) bool {
	if e.cache == nil {
		return false
	}
	if !fs.cacheChecked {
		fs.cacheChecked = true
		f := fs.file
		if d, ok := e.cache.Lookup(f.Path(), f.Size(), f.ModTime()); ok {
			switch {
			case f.Size() <= e.chunk && d.Full != "":
				for k := kindFirst; k < numKinds; k++ {
					if fs.state[k] != digestUnneeded {
						fs.setDigest(k, d.Full, digestCached)
					}
				}
			default:
				if d.Chunk == e.chunk {
					if d.First != "" && fs.state[kindFirst] != digestUnneeded {
						fs.setDigest(kindFirst, d.First, digestCached)
					}
					if d.Last != "" && fs.state[kindLast] != digestUnneeded {
						fs.setDigest(kindLast, d.Last, digestCached)
					}
				}
				if d.Full != "" && fs.state[kindFull] != digestUnneeded {
					fs.setDigest(kindFull, d.Full, digestCached)
				}
			}
		}
	}
	return fs.digest(kind) != ""
}

// computeDigest reads the file and fills the digest for kind. A file at
// or under the chunk size gets one whole-content digest serving first,
// last and full alike.
func (e *Engine) computeDigest(fs *fileState, kind digestKind) bool {
	f := fs.file
	small := f.Size() <= e.chunk

	var dg string
	var err error
	switch {
	case small || kind == kindFull:
		dg, err = HashFull(f.Path())
	case kind == kindFirst:
		dg, err = HashFirst(f.Path(), e.chunk)
	default:
		dg, err = HashLast(f.Path(), f.Size(), e.chunk)
	}
	if err != nil {
		e.logger.Warn().Err(err).Str("path", f.Path()).Msg("could not hash file, skipping")
		fs.failed = true
		return false
	}

	if small {
		for k := kindFirst; k < numKinds; k++ {
			if fs.state[k] != digestUnneeded {
				fs.setDigest(k, dg, digestComputed)
			}
		}
		fs.d.Chunk = e.chunk
		if e.cache != nil {
			e.cache.Store(f.Path(), f.Size(), f.ModTime(), hashcache.Digests{
				Chunk: e.chunk, First: dg, Last: dg, Full: dg,
			})
		}
		return true
	}

	fs.setDigest(kind, dg, digestComputed)
	if e.cache != nil {
		store := hashcache.Digests{}
		switch kind {
		case kindFirst:
			store.Chunk, store.First = e.chunk, dg
		case kindLast:
			store.Chunk, store.Last = e.chunk, dg
		default:
			store.Full = dg
		}
		e.cache.Store(f.Path(), f.Size(), f.ModTime(), store)
	}
	return true
}

// splitCohort partitions one cohort by key, keeping first-seen bucket
// order and traversal order inside each bucket. Singletons are dropped on
// the spot: an entry alone in its bucket has no duplicate and must never
// cost a more expensive aspect.
func splitCohort(cohort []*fileState, key func(*fileState) string) [][]*fileState {
	index := map[string]int{}
	buckets := make([][]*fileState, 0, 2)
	for _, fs := range cohort {
		k := key(fs)
		i, ok := index[k]
		if !ok {
			i = len(buckets)
			index[k] = i
			buckets = append(buckets, nil)
		}
		buckets[i] = append(buckets[i], fs)
	}

	var kept [][]*fileState
	for _, b := range buckets {
		if len(b) >= 2 {
			kept = append(kept, b)
		}
	}
	return kept
}

func partitionAll(cohorts [][]*fileState, key func(*fileState) string) [][]*fileState {
	var out [][]*fileState
	for _, c := range cohorts {
		out = append(out, splitCohort(c, key)...)
	}
	return out
}
