package dirtree

import (
	"time"

	"github.com/rs/zerolog"
)

// Entry is a node in a scanned tree.
type Entry interface {
	zerolog.LogObjectMarshaler
	Path() string
	Name() string // base name of the entry
	Size() int64  // files: length in bytes; directories: sum of descendant file sizes
	ModTime() time.Time
	Root() int  // index of the root the entry was found under
	Order() int // traversal sequence within its root
	IsDir() bool
}

type File struct {
	path    string
	name    string
	size    int64
	modTime time.Time
	root    int
	order   int
}

// Path implements Entry.
func (f *File) Path() string { return f.path }

// Name implements Entry.
func (f *File) Name() string { return f.name }

// Size implements Entry.
func (f *File) Size() int64 { return f.size }

// ModTime implements Entry.
func (f *File) ModTime() time.Time { return f.modTime }

// Root implements Entry.
func (f *File) Root() int { return f.root }

// Order implements Entry.
func (f *File) Order() int { return f.order }

// IsDir implements Entry.
func (f *File) IsDir() bool { return false }

// MarshalZerologObject implements Entry.
func (f *File) MarshalZerologObject(e *zerolog.Event) {
	e.Str("path", f.path)
	e.Str("name", f.name)
	e.Int64("size", f.size)
}

// Dir owns its children; child order is traversal order. Parents are not
// referenced back from children, the path already encodes ancestry.
type Dir struct {
	path      string
	name      string
	size      int64
	modTime   time.Time
	root      int
	order     int
	children  []Entry
	fileCount int
	dirCount  int
}

// Path implements Entry.
func (d *Dir) Path() string { return d.path }

// Name implements Entry.
func (d *Dir) Name() string { return d.name }

// Size implements Entry.
func (d *Dir) Size() int64 { return d.size }

// ModTime implements Entry.
func (d *Dir) ModTime() time.Time { return d.modTime }

// Root implements Entry.
func (d *Dir) Root() int { return d.root }

// Order implements Entry.
func (d *Dir) Order() int { return d.order }

// IsDir implements Entry.
func (d *Dir) IsDir() bool { return true }

// Children returns the direct children in traversal order.
func (d *Dir) Children() []Entry { return d.children }

// FileCount returns the number of direct child files that survived
// filtering.
func (d *Dir) FileCount() int { return d.fileCount }

// DirCount returns the number of direct child directories that survived
// filtering.
func (d *Dir) DirCount() int { return d.dirCount }

// MarshalZerologObject implements Entry.
func (d *Dir) MarshalZerologObject(e *zerolog.Event) {
	e.Str("path", d.path)
	e.Int("files", d.fileCount)
	e.Int("dirs", d.dirCount)
	e.Int64("size", d.size)
}

// Forest is the result of walking all roots.
type Forest struct {
	Roots     []*Dir
	RootPaths []string // resolved root paths, original argument order
	FileCount int      // total files in the forest
	DirCount  int      // total directories in the forest, roots included
	TotalSize int64
}

func (f *Forest) MarshalZerologObject(e *zerolog.Event) {
	e.Strs("roots", f.RootPaths)
	e.Int("files", f.FileCount)
	e.Int("dirs", f.DirCount)
	e.Int64("total_size", f.TotalSize)
}

// WalkFiles visits every file in the forest in (root, traversal) order.
func (f *Forest) WalkFiles(fn func(*File) bool) {
	for _, root := range f.Roots {
		if !walkFiles(root, fn) {
			return
		}
	}
}

func walkFiles(d *Dir, fn func(*File) bool) bool {
	for _, c := range d.children {
		switch n := c.(type) {
		case *File:
			if !fn(n) {
				return false
			}
		case *Dir:
			if !walkFiles(n, fn) {
				return false
			}
		}
	}
	return true
}

// WalkDirs visits every directory in the forest, children before parents,
// roots included.
func (f *Forest) WalkDirs(fn func(*Dir) bool) {
	for _, root := range f.Roots {
		if !walkDirs(root, fn) {
			return
		}
	}
}

func walkDirs(d *Dir, fn func(*Dir) bool) bool {
	for _, c := range d.children {
		if n, ok := c.(*Dir); ok {
			if !walkDirs(n, fn) {
				return false
			}
		}
	}
	return fn(d)
}
