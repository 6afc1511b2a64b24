package dupes

import (
	"github.com/stupid-simple/dedup/fingerprint"
)

// Options filter and shape the grouped results. Sizes are bytes, zero
// means unbounded; size thresholds are checked against a group's first
// member, not summed over the group.
type Options struct {
	MinFileSize int64
	MaxFileSize int64
	MinDirSize  int64
	MaxDirSize  int64

	// Smallest group worth reporting, total members. Zero means any.
	MinFileGroup int
	MinDirGroup  int

	FilesOnly bool
	DirsOnly  bool

	// NoCombine* switch off the compaction passes, listing every group
	// even when a parent directory group already covers it.
	NoCombineFiles bool
	NoCombineDirs  bool

	// PickOriginal overrides which member a group preserves. Nil means
	// FirstEncountered.
	PickOriginal PickOriginal
}

func (o Options) pick() PickOriginal {
	if o.PickOriginal != nil {
		return o.PickOriginal
	}
	return FirstEncountered
}

func (o Options) keep(kind Kind, members []Entry) bool {
	size := members[0].Size()
	switch kind {
	case KindDir:
		if o.MinDirGroup > 0 && len(members) < o.MinDirGroup {
			return false
		}
		if o.MinDirSize > 0 && size < o.MinDirSize {
			return false
		}
		if o.MaxDirSize > 0 && size > o.MaxDirSize {
			return false
		}
	default:
		if o.MinFileGroup > 0 && len(members) < o.MinFileGroup {
			return false
		}
		if o.MinFileSize > 0 && size < o.MinFileSize {
			return false
		}
		if o.MaxFileSize > 0 && size > o.MaxFileSize {
			return false
		}
	}
	return true
}

// Result holds the grouped duplicates ready for reporting, groups sorted
// by original path.
type Result struct {
	Dirs  []Group
	Files []Group
}

// Empty reports whether nothing was found.
func (r *Result) Empty() bool {
	return len(r.Dirs) == 0 && len(r.Files) == 0
}

// Collect turns raw fingerprint cohorts into sorted, filtered groups.
func Collect(fp *fingerprint.Result, o Options) *Result {
	res := &Result{}
	if !o.FilesOnly {
		for _, cohort := range fp.Dirs {
			members := make([]Entry, len(cohort))
			for i, d := range cohort {
				members[i] = d
			}
			if g, ok := newGroup(KindDir, members, o); ok {
				res.Dirs = append(res.Dirs, g)
			}
		}
		sortGroups(res.Dirs)
	}
	if !o.DirsOnly {
		for _, cohort := range fp.Files {
			members := make([]Entry, len(cohort))
			for i, f := range cohort {
				members[i] = f
			}
			if g, ok := newGroup(KindFile, members, o); ok {
				res.Files = append(res.Files, g)
			}
		}
		sortGroups(res.Files)
	}
	return res
}

// Build collects groups from the fingerprint result and compacts them.
func Build(fp *fingerprint.Result, o Options) *Result {
	return Compact(Collect(fp, o), o)
}

func newGroup(kind Kind, members []Entry, o Options) (Group, bool) {
	if len(members) < 2 {
		return Group{}, false
	}
	sortMembers(members)
	if !o.keep(kind, members) {
		return Group{}, false
	}

	i := o.pick()(members)
	if i < 0 || i >= len(members) {
		i = 0
	}
	g := Group{Kind: kind, Original: members[i]}
	g.Dups = append(g.Dups, members[:i]...)
	g.Dups = append(g.Dups, members[i+1:]...)
	return g, true
}
