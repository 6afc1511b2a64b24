// Package action applies the chosen remedy to duplicate groups: delete
// the duplicates, or replace them with links to the group's original.
// The original of a group is never touched.
package action

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/stupid-simple/dedup/dupes"
	"github.com/stupid-simple/dedup/fileutils"
)

type Mode uint8

const (
	Report Mode = iota // leave everything in place
	Delete
	Symlink
	Hardlink
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case Delete:
		return "delete"
	case Symlink:
		return "symlink"
	case Hardlink:
		return "hardlink"
	default:
		return "report"
	}
}

type Options struct {
	Mode   Mode
	DryRun bool
	Logger zerolog.Logger
}

// Summary counts what happened across all groups.
type Summary struct {
	Groups     int
	Applied    int
	Failed     int
	BytesFreed int64
}

type executor struct {
	Options
	writable map[string]error
}

// Apply walks every group sequentially, directories first, and applies
// the mode to each duplicate. Failures are logged and counted, never
// fatal; the caller decides what a non-zero Failed means. Report mode
// is a no-op.
func Apply(ctx context.Context, res *dupes.Result, o Options) Summary {
	var s Summary
	if o.Mode == Report {
		return s
	}

	ex := &executor{Options: o, writable: map[string]error{}}
	for _, groups := range [][]dupes.Group{res.Dirs, res.Files} {
		for _, g := range groups {
			if ctx.Err() != nil {
				return s
			}
			s.Groups++

			if _, err := os.Stat(g.Original.Path()); err != nil {
				o.Logger.Warn().Err(err).
					Str("path", g.Original.Path()).
					Msg("original not reachable, skipping group")
				s.Failed += len(g.Dups)
				continue
			}

			for _, dup := range g.Dups {
				if ctx.Err() != nil {
					return s
				}
				if err := ex.apply(g, dup); err != nil {
					o.Logger.Warn().Err(err).
						Str("path", dup.Path()).
						Msg("action failed")
					s.Failed++
					continue
				}
				s.Applied++
				s.BytesFreed += dup.Size()
			}
		}
	}
	return s
}

func (ex *executor) apply(g dupes.Group, dup dupes.Entry) error {
	if ex.DryRun {
		ex.Logger.Info().
			Str("original", g.Original.Path()).
			Str("path", dup.Path()).
			Msg("would " + ex.Mode.String() + " duplicate (dry run)")
		return nil
	}

	if err := ex.parentWritable(dup.Path()); err != nil {
		return fmt.Errorf("parent not writable: %w", err)
	}

	switch ex.Mode {
	case Delete:
		return ex.remove(dup)
	case Symlink:
		return ex.relink(g, dup, os.Symlink)
	case Hardlink:
		if dup.IsDir() {
			return ex.hardlinkDir(g, dup)
		}
		return ex.relink(g, dup, os.Link)
	}
	return nil
}

// parentWritable probes the containing directory once per distinct
// parent, so read-only filesystems surface before any mutation.
func (ex *executor) parentWritable(path string) error {
	parent := filepath.Dir(path)
	err, ok := ex.writable[parent]
	if !ok {
		err = fileutils.VerifyWritable(parent)
		ex.writable[parent] = err
	}
	return err
}

func (ex *executor) remove(dup dupes.Entry) error {
	ex.Logger.Info().Str("path", dup.Path()).Msg("deleting duplicate")
	if dup.IsDir() {
		return os.RemoveAll(dup.Path())
	}
	return os.Remove(dup.Path())
}

func (ex *executor) relink(g dupes.Group, dup dupes.Entry, link func(oldname, newname string) error) error {
	ex.Logger.Info().
		Str("original", g.Original.Path()).
		Str("path", dup.Path()).
		Msg("replacing duplicate with " + ex.Mode.String())

	if dup.IsDir() {
		if err := os.RemoveAll(dup.Path()); err != nil {
			return err
		}
		return link(g.Original.Path(), dup.Path())
	}
	return replaceWithLink(link, g.Original.Path(), dup.Path())
}

// replaceWithLink creates the link under a temporary name and renames it
// over the duplicate, so a failed link never costs the duplicate.
func replaceWithLink(link func(oldname, newname string) error, original, dup string) error {
	tmp := dup + ".ssdedup-tmp"
	if err := link(original, tmp); err != nil {
		return err
	}
	if err := os.Rename(tmp, dup); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// hardlinkDir replaces every file under the duplicate with a hard link
// to its counterpart under the original, then removes the duplicate
// tree. Between the two steps every file shares the original's inode,
// so an interruption never loses content. A file without a counterpart
// keeps the whole tree in place and fails the entry.
func (ex *executor) hardlinkDir(g dupes.Group, dup dupes.Entry) error {
	ex.Logger.Info().
		Str("original", g.Original.Path()).
		Str("path", dup.Path()).
		Msg("hard-linking duplicate directory")

	var kept int
	err := filepath.WalkDir(dup.Path(), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dup.Path(), path)
		if err != nil {
			return err
		}
		target := filepath.Join(g.Original.Path(), rel)
		if _, err := os.Stat(target); err != nil {
			kept++
			ex.Logger.Warn().
				Str("path", path).
				Str("target", target).
				Msg("no counterpart under original, keeping file")
			return nil
		}
		if err := replaceWithLink(os.Link, target, path); err != nil {
			kept++
			ex.Logger.Warn().Err(err).Str("path", path).Msg("could not hard-link file")
		}
		return nil
	})
	if err != nil {
		return err
	}
	if kept > 0 {
		return fmt.Errorf("%d files kept under %s", kept, dup.Path())
	}
	return os.RemoveAll(dup.Path())
}
