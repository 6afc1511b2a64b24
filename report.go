package main

import (
	"fmt"
	"path/filepath"

	"github.com/docker/go-units"
	"github.com/fatih/color"

	"github.com/stupid-simple/dedup/dirtree"
	"github.com/stupid-simple/dedup/dupes"
)

const reportDateFormat = "2006-01-02 15:04:05"

var (
	originalMark  = color.New(color.FgGreen).Sprint("✓")
	duplicateMark = color.New(color.FgRed).Sprint("⨯")
)

// dirCounts is satisfied by *dirtree.Dir; the reporter only needs the
// counts, not the tree.
type dirCounts interface {
	FileCount() int
	DirCount() int
}

func report(forest *dirtree.Forest, groups *dupes.Result, p findParams) {
	if p.brief {
		fmt.Printf("%d duplicate directory groups\n", len(groups.Dirs))
		fmt.Printf("%d duplicate file groups\n", len(groups.Files))
		return
	}

	if len(groups.Dirs) > 0 {
		fmt.Println("Duplicate directories:")
		for i, g := range groups.Dirs {
			printGroup(i+1, g, forest.RootPaths, p.relPaths)
		}
		fmt.Println()
	}
	if len(groups.Files) > 0 {
		fmt.Println("Duplicate files:")
		for i, g := range groups.Files {
			printGroup(i+1, g, forest.RootPaths, p.relPaths)
		}
		fmt.Println()
	}
}

func printGroup(index int, g dupes.Group, rootPaths []string, relative bool) {
	members := g.Members()

	header := fmt.Sprintf("#%d: %s, %s",
		index,
		g.Original.ModTime().Format(reportDateFormat),
		units.BytesSize(float64(g.Original.Size())),
	)
	if c, ok := g.Original.(dirCounts); ok {
		header += fmt.Sprintf(", %d files, %d dirs", c.FileCount(), c.DirCount())
	}
	header += fmt.Sprintf(", %d entries", len(members))
	fmt.Println(header)

	for _, m := range members {
		mark := duplicateMark
		if m == g.Original {
			mark = originalMark
		}
		path := memberPath(m, rootPaths, relative)
		if m.IsDir() {
			path += string(filepath.Separator)
		}
		fmt.Printf("  %s %s\n", mark, path)
	}
}

// memberPath renders a member either absolute or as the root's base name
// plus the path below it, which keeps entries from different roots apart.
func memberPath(m dupes.Entry, rootPaths []string, relative bool) string {
	if !relative || m.Root() >= len(rootPaths) {
		return m.Path()
	}
	root := rootPaths[m.Root()]
	rel, err := filepath.Rel(root, m.Path())
	if err != nil {
		return m.Path()
	}
	return filepath.Join(filepath.Base(root), rel)
}
