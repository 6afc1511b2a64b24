package fingerprint

import (
	"encoding/hex"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/stupid-simple/dedup/criteria"
	"github.com/stupid-simple/dedup/dirtree"
)

// fileLabels maps every file to an equivalence label for directory
// pairing: members of the same cohort share a label, everything else is
// unique. With no file aspects requested the equivalence is vacuous and
// all files share one label.
type fileLabels struct {
	byFile  map[*dirtree.File]string
	vacuous bool
}

func newFileLabels(cohorts [][]*fileState, fileAspects criteria.Set) fileLabels {
	l := fileLabels{vacuous: fileAspects.IsEmpty()}
	if l.vacuous {
		return l
	}
	l.byFile = make(map[*dirtree.File]string)
	for i, c := range cohorts {
		label := "g:" + strconv.Itoa(i)
		for _, fs := range c {
			l.byFile[fs.file] = label
		}
	}
	return l
}

func (l fileLabels) of(f *dirtree.File) string {
	if l.vacuous {
		return "="
	}
	if label, ok := l.byFile[f]; ok {
		return label
	}
	return "u:" + f.Path()
}

// groupDirs partitions every directory in the forest by structural
// signature. Two directories share a signature when their requested
// directory aspects agree and their children pair up: equal child label
// multisets, resolved bottom-up so nested structure is compared all the
// way down. A unique child anywhere makes every ancestor unique.
func (e *Engine) groupDirs(forest *dirtree.Forest, labels fileLabels) [][]*dirtree.Dir {
	dirAspects := e.set.Dirs().Aspects()

	sigs := make(map[*dirtree.Dir]string, forest.DirCount)
	index := map[string]int{}
	var buckets [][]*dirtree.Dir

	forest.WalkDirs(func(d *dirtree.Dir) bool {
		var b strings.Builder
		for _, a := range dirAspects {
			switch a {
			case criteria.DirName:
				b.WriteString(d.Name())
			case criteria.Date:
				b.WriteString(strconv.FormatInt(d.ModTime().Unix(), 10))
			case criteria.DirCount:
				b.WriteString(strconv.Itoa(d.DirCount()))
			case criteria.FileCount:
				b.WriteString(strconv.Itoa(d.FileCount()))
			}
			b.WriteByte(0)
		}

		children := d.Children()
		childLabels := make([]string, 0, len(children))
		for _, c := range children {
			switch n := c.(type) {
			case *dirtree.File:
				childLabels = append(childLabels, "f:"+labels.of(n))
			case *dirtree.Dir:
				childLabels = append(childLabels, "d:"+sigs[n])
			}
		}
		// Sorted labels make child pairing order-independent.
		sort.Strings(childLabels)
		for _, cl := range childLabels {
			b.WriteString(cl)
			b.WriteByte(0)
		}

		sum := blake2b.Sum256([]byte(b.String()))
		sig := hex.EncodeToString(sum[:])
		sigs[d] = sig

		i, ok := index[sig]
		if !ok {
			i = len(buckets)
			index[sig] = i
			buckets = append(buckets, nil)
		}
		buckets[i] = append(buckets[i], d)
		return true
	})

	var groups [][]*dirtree.Dir
	for _, b := range buckets {
		if len(b) >= 2 {
			groups = append(groups, b)
		}
	}
	return groups
}
