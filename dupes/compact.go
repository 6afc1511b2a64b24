package dupes

import (
	"path/filepath"
)

// Compact folds results that only restate a duplicate directory: file
// members sitting directly inside any dir-group member are dropped, and
// a nested dir group disappears when every one of its members has its
// parent in a dir group. Every decision reads the member snapshot taken
// from the input, so compacting a compacted result changes nothing.
func Compact(r *Result, o Options) *Result {
	inDirGroup := make(map[string]struct{})
	for _, g := range r.Dirs {
		for _, m := range g.Members() {
			inDirGroup[m.Path()] = struct{}{}
		}
	}

	out := &Result{}

	for _, g := range r.Dirs {
		if !o.NoCombineDirs && allParentsCovered(g, inDirGroup) {
			continue
		}
		out.Dirs = append(out.Dirs, g)
	}

	for _, g := range r.Files {
		if o.NoCombineFiles {
			out.Files = append(out.Files, g)
			continue
		}
		var members []Entry
		for _, m := range g.Members() {
			if _, ok := inDirGroup[filepath.Dir(m.Path())]; !ok {
				members = append(members, m)
			}
		}
		if ng, ok := newGroup(KindFile, members, o); ok {
			out.Files = append(out.Files, ng)
		}
	}

	sortGroups(out.Dirs)
	sortGroups(out.Files)
	return out
}

func allParentsCovered(g Group, dirMembers map[string]struct{}) bool {
	for _, m := range g.Members() {
		if _, ok := dirMembers[filepath.Dir(m.Path())]; !ok {
			return false
		}
	}
	return true
}
