package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/docker/go-units"
	"github.com/rs/zerolog"

	"github.com/stupid-simple/dedup/action"
	"github.com/stupid-simple/dedup/criteria"
	"github.com/stupid-simple/dedup/dirtree"
	"github.com/stupid-simple/dedup/dupes"
	"github.com/stupid-simple/dedup/fingerprint"
	"github.com/stupid-simple/dedup/hashcache"
)

func findCommand(ctx context.Context, args Command, logger zerolog.Logger) error {
	f := args.Find
	if f.DryRun {
		logger = logger.With().Bool("dryrun", true).Logger()
	}

	set, err := criteria.Resolve(f.Check, f.Ignore)
	if err != nil {
		return err
	}

	roots := f.Dirs
	if len(roots) == 0 {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("could not resolve working directory: %w", err)
		}
		roots = []string{cwd}
	}

	bounds := resolveBounds(args)
	p := findParams{
		roots:      roots,
		set:        set,
		filter:     scanFilter(args, bounds),
		dupeOpts:   dupeOptions(args, bounds),
		chunkSize:  f.Chunk.Size,
		workers:    f.Workers,
		resetCache: f.ResetCache,
		mode:       actionMode(args),
		dryRun:     f.DryRun,
		noDirs:     f.NoDirs,
		noFiles:    f.NoFiles,
		relPaths:   f.RelativePaths,
		brief:      f.Brief,
		logger:     logger,
	}

	if !f.NoCache && needsDigests(set) {
		p.cachePath = f.CacheFile
		if p.cachePath == "" {
			p.cachePath, err = defaultCachePath()
			if err != nil {
				logger.Warn().Err(err).Msg("could not resolve cache directory, continuing without cache")
			}
		}
	}

	return findDuplicates(ctx, p)
}

type findParams struct {
	roots      []string
	set        criteria.Set
	filter     dirtree.Filter
	dupeOpts   dupes.Options
	chunkSize  int64
	workers    int
	cachePath  string // empty disables caching
	resetCache bool
	mode       action.Mode
	dryRun     bool
	noDirs     bool
	noFiles    bool
	relPaths   bool
	brief      bool
	quiet      bool // suppress the stdout report, log counts instead
	logger     zerolog.Logger
}

func findDuplicates(ctx context.Context, p findParams) error {
	startTime := time.Now()
	p.logger.Info().Strs("dirs", p.roots).Str("criteria", p.set.String()).Msg("starting duplicate scan")
	defer func() {
		tookSeconds := time.Since(startTime).Seconds()
		if ctx.Err() != nil {
			p.logger.Info().Float64("seconds", tookSeconds).Msg("scan cancelled")
		} else {
			p.logger.Info().Float64("seconds", tookSeconds).Msg("scan done")
		}
	}()

	forest, err := dirtree.Build(ctx, p.roots, p.filter, p.logger)
	if err != nil {
		return err
	}

	opts := []fingerprint.Option{
		fingerprint.WithChunkSize(p.chunkSize),
		fingerprint.WithWorkers(p.workers),
		fingerprint.WithLogger(p.logger),
	}
	if p.cachePath != "" {
		var copts []hashcache.Option
		if p.resetCache {
			copts = append(copts, hashcache.WithReset())
		}
		store, err := hashcache.Open(p.cachePath, p.logger, copts...)
		if err != nil {
			p.logger.Warn().Err(err).Str("path", p.cachePath).Msg("could not open hash cache, continuing without")
		} else {
			defer func() {
				if err := store.Close(); err != nil {
					p.logger.Warn().Err(err).Msg("could not close hash cache")
				}
			}()
			opts = append(opts, fingerprint.WithCache(store))
		}
	}

	res, err := fingerprint.New(p.set, opts...).Run(ctx, forest)
	if err != nil {
		return err
	}

	groups := dupes.Build(res, p.dupeOpts)
	if p.noDirs {
		groups.Dirs = nil
	}
	if p.noFiles {
		groups.Files = nil
	}

	if groups.Empty() {
		p.logger.Info().Msg("no duplicates found")
		return nil
	}

	if p.quiet {
		p.logger.Info().
			Int("dir_groups", len(groups.Dirs)).
			Int("file_groups", len(groups.Files)).
			Msg("duplicates found")
	} else {
		report(forest, groups, p)
	}

	if p.mode == action.Report {
		return nil
	}

	summary := action.Apply(ctx, groups, action.Options{Mode: p.mode, DryRun: p.dryRun, Logger: p.logger})
	p.logger.Info().
		Int("groups", summary.Groups).
		Int("applied", summary.Applied).
		Int("failed", summary.Failed).
		Str("freed", units.BytesSize(float64(summary.BytesFreed))).
		Msg("actions applied")
	if summary.Failed > 0 {
		return fmt.Errorf("%d actions failed", summary.Failed)
	}
	return nil
}

func needsDigests(set criteria.Set) bool {
	return set.Has(criteria.FirstBytes) || set.Has(criteria.LastBytes) || set.Has(criteria.Hash)
}

func defaultCachePath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "ssdedup", "hashes.db"), nil
}

// sizeBounds holds the result size filters after applying the --min-size
// and --max-size aliases to whichever specific bound was not given.
type sizeBounds struct {
	minFile, maxFile int64
	minDir, maxDir   int64
}

func resolveBounds(args Command) sizeBounds {
	f := args.Find
	b := sizeBounds{
		minFile: f.MinFileSize.Size,
		maxFile: f.MaxFileSize.Size,
		minDir:  f.MinDirSize.Size,
		maxDir:  f.MaxDirSize.Size,
	}
	if b.minFile == 0 {
		b.minFile = f.MinSize.Size
	}
	if b.maxFile == 0 {
		b.maxFile = f.MaxSize.Size
	}
	if b.minDir == 0 {
		b.minDir = f.MinSize.Size
	}
	if b.maxDir == 0 {
		b.maxDir = f.MaxSize.Size
	}
	return b
}

func scanFilter(args Command, bounds sizeBounds) dirtree.Filter {
	f := args.Find
	filter := dirtree.Filter{
		IncludeEmptyFiles: f.IncludeEmpty || f.IncludeEmptyFiles,
		IncludeEmptyDirs:  f.IncludeEmpty || f.IncludeEmptyDirs,
		FollowSymlinks:    f.FollowLinks,
		ExcludeFiles:      append(append([]string{}, f.Exclude...), f.ExcludeFiles...),
		ExcludeDirs:       append(append([]string{}, f.Exclude...), f.ExcludeDirs...),
	}
	// File size bounds can only prune the walk when directory sizes do
	// not matter, otherwise they stay result filters.
	if f.FilesOnly {
		filter.MinFileSize = bounds.minFile
		filter.MaxFileSize = bounds.maxFile
	}
	return filter
}

func dupeOptions(args Command, bounds sizeBounds) dupes.Options {
	f := args.Find
	o := dupes.Options{
		MinFileSize:    bounds.minFile,
		MaxFileSize:    bounds.maxFile,
		MinDirSize:     bounds.minDir,
		MaxDirSize:     bounds.maxDir,
		MinFileGroup:   f.DupsFilesCount,
		MinDirGroup:    f.DupsDirsCount,
		FilesOnly:      f.FilesOnly,
		DirsOnly:       f.DirsOnly,
		NoCombineFiles: f.NoCombine || f.NoCombineFiles,
		NoCombineDirs:  f.NoCombine || f.NoCombineDirs,
	}
	if o.MinFileGroup == 0 {
		o.MinFileGroup = f.DupsCount
	}
	if o.MinDirGroup == 0 {
		o.MinDirGroup = f.DupsCount
	}
	return o
}

func actionMode(args Command) action.Mode {
	f := args.Find
	switch {
	case f.Delete:
		return action.Delete
	case f.Symlink:
		return action.Symlink
	case f.Hardlink:
		return action.Hardlink
	}
	return action.Report
}
