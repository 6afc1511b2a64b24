package dirtree

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Build walks the given roots and produces a forest of eligible entries.
// Roots build in parallel; entries within a root keep traversal order.
// Per-entry errors are logged and skipped, only unusable roots are fatal.
func Build(ctx context.Context, roots []string, filter Filter, logger zerolog.Logger) (*Forest, error) {
	if len(roots) == 0 {
		return nil, fmt.Errorf("no root directories given")
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	resolved, err := resolveRoots(roots, logger)
	if err != nil {
		return nil, err
	}

	forest := &Forest{
		Roots:     make([]*Dir, len(resolved)),
		RootPaths: resolved,
	}

	startTime := time.Now()
	logger.Info().Strs("roots", resolved).Msg("start scanning directories")

	g, gctx := errgroup.WithContext(ctx)
	for i, rootPath := range resolved {
		i, rootPath := i, rootPath
		g.Go(func() error {
			info, err := os.Stat(rootPath)
			if err != nil {
				return fmt.Errorf("could not stat root %s: %w", rootPath, err)
			}
			if !info.IsDir() {
				return fmt.Errorf("root %s is not a directory", rootPath)
			}

			w := &walker{
				filter: filter,
				root:   i,
				logger: logger.With().Str("root", rootPath).Logger(),
			}
			w.throttled = w.logger.Sample(&zerolog.BurstSampler{
				Burst:  1,
				Period: 1 * time.Second,
			})

			ancestors := map[string]struct{}{}
			if filter.FollowSymlinks {
				if real, err := filepath.EvalSymlinks(rootPath); err == nil {
					ancestors[real] = struct{}{}
				}
			}

			forest.Roots[i] = w.walkDir(gctx, rootPath, info, ancestors)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	forest.WalkDirs(func(*Dir) bool {
		forest.DirCount++
		return true
	})
	forest.WalkFiles(func(f *File) bool {
		forest.FileCount++
		return true
	})
	for _, root := range forest.Roots {
		forest.TotalSize += root.Size()
	}

	logger.Info().
		Object("forest", forest).
		Float64("seconds", time.Since(startTime).Seconds()).
		Msg("done scanning directories")

	return forest, nil
}

type walker struct {
	filter    Filter
	root      int
	order     int
	logger    zerolog.Logger
	throttled zerolog.Logger
}

func (w *walker) walkDir(ctx context.Context, path string, info fs.FileInfo, ancestors map[string]struct{}) *Dir {
	dir := &Dir{
		path:    path,
		name:    filepath.Base(path),
		modTime: info.ModTime(),
		root:    w.root,
		order:   w.order,
	}
	w.order++

	entries, err := os.ReadDir(path)
	if err != nil {
		w.logger.Warn().Err(err).Str("path", path).Msg("could not read directory")
		return dir
	}

	for _, de := range entries {
		if ctx.Err() != nil {
			return dir
		}

		childPath := filepath.Join(path, de.Name())
		cinfo, err := de.Info()
		if err != nil {
			w.logger.Warn().Err(err).Str("path", childPath).Msg("could not stat path")
			continue
		}

		if cinfo.Mode()&fs.ModeSymlink != 0 {
			if !w.filter.FollowSymlinks {
				w.logger.Debug().Str("path", childPath).Msg("skipping symlink")
				continue
			}
			cinfo, err = os.Stat(childPath)
			if err != nil {
				w.logger.Warn().Err(err).Str("path", childPath).Msg("could not resolve symlink")
				continue
			}
		}

		switch {
		case cinfo.IsDir():
			if w.filter.excludesDir(childPath) {
				w.logger.Debug().Str("path", childPath).Msg("directory excluded")
				continue
			}
			child, ok := w.enterDir(ctx, childPath, cinfo, ancestors)
			if !ok {
				continue
			}
			if len(child.children) == 0 && !w.filter.IncludeEmptyDirs {
				w.logger.Debug().Str("path", childPath).Msg("skipping empty directory")
				continue
			}
			dir.children = append(dir.children, child)
			dir.dirCount++
			dir.size += child.size

		case cinfo.Mode().IsRegular():
			if w.filter.excludesFile(childPath) {
				w.logger.Debug().Str("path", childPath).Msg("file excluded")
				continue
			}
			if !w.filter.keepSize(cinfo.Size()) {
				w.logger.Debug().Str("path", childPath).Int64("size", cinfo.Size()).Msg("file outside size bounds")
				continue
			}
			f := &File{
				path:    childPath,
				name:    de.Name(),
				size:    cinfo.Size(),
				modTime: cinfo.ModTime(),
				root:    w.root,
				order:   w.order,
			}
			w.order++
			dir.children = append(dir.children, f)
			dir.fileCount++
			dir.size += f.size
			w.throttled.Info().Int("scanned", w.order).Msg("scanning directories")

		default:
			w.logger.Debug().Str("path", childPath).Msg("skipping irregular file")
		}
	}

	return dir
}

// enterDir recurses into a subdirectory, refusing symlink cycles when
// following links.
func (w *walker) enterDir(ctx context.Context, path string, info fs.FileInfo, ancestors map[string]struct{}) (*Dir, bool) {
	if !w.filter.FollowSymlinks {
		return w.walkDir(ctx, path, info, ancestors), true
	}

	real, err := filepath.EvalSymlinks(path)
	if err != nil {
		w.logger.Warn().Err(err).Str("path", path).Msg("could not resolve path")
		return nil, false
	}
	if _, seen := ancestors[real]; seen {
		w.logger.Warn().Str("path", path).Str("target", real).Msg("symlink cycle detected, not following")
		return nil, false
	}

	ancestors[real] = struct{}{}
	dir := w.walkDir(ctx, path, info, ancestors)
	delete(ancestors, real)
	return dir, true
}

// resolveRoots absolutizes the roots and drops any root that overlaps an
// earlier one. Overlapping roots would make the same entry appear twice.
func resolveRoots(roots []string, logger zerolog.Logger) ([]string, error) {
	resolved := make([]string, 0, len(roots))
	for _, r := range roots {
		abs, err := filepath.Abs(r)
		if err != nil {
			return nil, fmt.Errorf("could not resolve root %s: %w", r, err)
		}

		overlaps := false
		for _, prev := range resolved {
			if abs == prev || isWithin(abs, prev) || isWithin(prev, abs) {
				logger.Warn().Str("root", r).Str("overlaps", prev).Msg("skipping overlapping root")
				overlaps = true
				break
			}
		}
		if !overlaps {
			resolved = append(resolved, abs)
		}
	}
	if len(resolved) == 0 {
		return nil, fmt.Errorf("no usable root directories")
	}
	return resolved, nil
}

func isWithin(path, parent string) bool {
	return strings.HasPrefix(path, parent+string(filepath.Separator))
}
