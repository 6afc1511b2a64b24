// Package dupes turns raw fingerprint cohorts into reportable duplicate
// groups: sorted, filtered, with an original picked per group and nested
// results folded together.
package dupes

import (
	"sort"
	"time"
)

// Entry is the slice of the tree model grouping needs. *dirtree.File and
// *dirtree.Dir satisfy it.
type Entry interface {
	Path() string
	Size() int64
	ModTime() time.Time
	Root() int
	Order() int
	IsDir() bool
}

type Kind uint8

const (
	KindFile Kind = iota
	KindDir
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	if k == KindDir {
		return "dir"
	}
	return "file"
}

// Group is one set of entries judged duplicates of each other. Original
// is the member actions must preserve, Dups are the rest.
type Group struct {
	Kind     Kind
	Original Entry
	Dups     []Entry
}

// Members returns original and duplicates together, sorted by (root,
// traversal) order.
func (g Group) Members() []Entry {
	all := make([]Entry, 0, len(g.Dups)+1)
	all = append(all, g.Original)
	all = append(all, g.Dups...)
	sortMembers(all)
	return all
}

// PickOriginal chooses the index of the member a group must preserve;
// members arrive sorted by (root, traversal) order.
type PickOriginal func(members []Entry) int

// FirstEncountered protects the earliest member under the first-listed
// root.
func FirstEncountered(members []Entry) int { return 0 }

func sortMembers(members []Entry) {
	sort.SliceStable(members, func(i, j int) bool {
		if members[i].Root() != members[j].Root() {
			return members[i].Root() < members[j].Root()
		}
		return members[i].Order() < members[j].Order()
	})
}

func sortGroups(groups []Group) {
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Original.Path() < groups[j].Original.Path()
	})
}
