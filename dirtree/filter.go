package dirtree

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Filter decides whether a path is eligible for scanning. Zero value
// accepts everything except empty files and empty directories.
type Filter struct {
	MinFileSize       int64 // 0 means no lower bound
	MaxFileSize       int64 // 0 means no upper bound
	IncludeEmptyFiles bool
	IncludeEmptyDirs  bool
	ExcludeFiles      []string // glob patterns
	ExcludeDirs       []string // glob patterns
	FollowSymlinks    bool
}

// Validate checks the exclude patterns. Bad patterns are configuration
// errors and fail the run before any scanning.
func (f Filter) Validate() error {
	for _, p := range f.ExcludeFiles {
		if _, err := filepath.Match(p, "probe"); err != nil {
			return fmt.Errorf("bad file exclude pattern %q: %w", p, err)
		}
	}
	for _, p := range f.ExcludeDirs {
		if _, err := filepath.Match(p, "probe"); err != nil {
			return fmt.Errorf("bad dir exclude pattern %q: %w", p, err)
		}
	}
	return nil
}

func (f Filter) excludesFile(path string) bool {
	return matchAny(f.ExcludeFiles, path)
}

func (f Filter) excludesDir(path string) bool {
	return matchAny(f.ExcludeDirs, path)
}

// keepSize applies the scan-time size bounds. Empty files are governed by
// IncludeEmptyFiles alone, not by the bounds.
func (f Filter) keepSize(size int64) bool {
	if size == 0 {
		return f.IncludeEmptyFiles
	}
	if f.MinFileSize > 0 && size < f.MinFileSize {
		return false
	}
	if f.MaxFileSize > 0 && size > f.MaxFileSize {
		return false
	}
	return true
}

// Patterns without a separator match the base name, patterns with one
// match the whole path.
func matchAny(patterns []string, path string) bool {
	if len(patterns) == 0 {
		return false
	}
	base := filepath.Base(path)
	for _, p := range patterns {
		target := base
		if strings.ContainsRune(p, filepath.Separator) {
			target = path
		}
		if ok, err := filepath.Match(p, target); err == nil && ok {
			return true
		}
	}
	return false
}
