package dupes_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stupid-simple/dedup/criteria"
	"github.com/stupid-simple/dedup/dirtree"
	"github.com/stupid-simple/dedup/dupes"
	"github.com/stupid-simple/dedup/fingerprint"
)

type fakeEntry struct {
	path  string
	size  int64
	dir   bool
	root  int
	order int
}

func (f fakeEntry) Path() string       { return f.path }
func (f fakeEntry) Size() int64        { return f.size }
func (f fakeEntry) ModTime() time.Time { return time.Time{} }
func (f fakeEntry) Root() int          { return f.root }
func (f fakeEntry) Order() int         { return f.order }
func (f fakeEntry) IsDir() bool        { return f.dir }

func dirGroup(paths ...string) dupes.Group {
	return group(dupes.KindDir, true, paths...)
}

func fileGroup(paths ...string) dupes.Group {
	return group(dupes.KindFile, false, paths...)
}

func group(kind dupes.Kind, dir bool, paths ...string) dupes.Group {
	members := make([]dupes.Entry, len(paths))
	for i, p := range paths {
		members[i] = fakeEntry{path: p, size: 4, dir: dir, order: i}
	}
	return dupes.Group{Kind: kind, Original: members[0], Dups: members[1:]}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func fingerprintTree(t *testing.T, root string) *fingerprint.Result {
	t.Helper()
	logger := zerolog.New(zerolog.NewTestWriter(t))
	forest, err := dirtree.Build(context.Background(), []string{root}, dirtree.Filter{}, logger)
	require.NoError(t, err)
	set, err := criteria.Resolve(nil, nil)
	require.NoError(t, err)
	res, err := fingerprint.New(set, fingerprint.WithLogger(logger)).Run(context.Background(), forest)
	require.NoError(t, err)
	return res
}

func TestCompact_NestedResultsFold(t *testing.T) {
	r := &dupes.Result{
		Dirs: []dupes.Group{
			dirGroup("/t/A", "/t/B"),
			dirGroup("/t/A/sub", "/t/B/sub"),
		},
		Files: []dupes.Group{
			fileGroup("/t/A/x.txt", "/t/B/x.txt"),
			fileGroup("/t/A/sub/y.txt", "/t/B/sub/y.txt"),
		},
	}

	out := dupes.Compact(r, dupes.Options{})

	require.Len(t, out.Dirs, 1, "the nested dir group restates the top one")
	assert.Equal(t, "/t/A", out.Dirs[0].Original.Path())
	assert.Empty(t, out.Files, "every file member sits inside a reported dir")
}

func TestCompact_Idempotent(t *testing.T) {
	r := &dupes.Result{
		Dirs: []dupes.Group{
			dirGroup("/t/A", "/t/B"),
			dirGroup("/t/A/s", "/t/B/s"),
			dirGroup("/t/A/s/ss", "/t/B/s/ss"),
			dirGroup("/t/A/s2", "/t/B/s2", "/t/C/keep"),
		},
		Files: []dupes.Group{
			fileGroup("/t/A/x.txt", "/t/B/x.txt", "/t/D/x.txt", "/t/E/x.txt"),
			fileGroup("/t/A/s/y.txt", "/t/B/s/y.txt"),
		},
	}

	once := dupes.Compact(r, dupes.Options{})
	twice := dupes.Compact(once, dupes.Options{})
	assert.Equal(t, once, twice)
}

func TestCompact_PartialDirCoverageKept(t *testing.T) {
	// C/keep's parent is in no dir group, so its group survives whole.
	r := &dupes.Result{
		Dirs: []dupes.Group{
			dirGroup("/t/A", "/t/B"),
			dirGroup("/t/A/s", "/t/B/s", "/t/C/keep"),
		},
	}

	out := dupes.Compact(r, dupes.Options{})

	require.Len(t, out.Dirs, 2)
	assert.Equal(t, "/t/A/s", out.Dirs[1].Original.Path())
	assert.Len(t, out.Dirs[1].Dups, 2)
}

func TestCompact_FileSurvivorsRegroup(t *testing.T) {
	r := &dupes.Result{
		Dirs: []dupes.Group{
			dirGroup("/t/A", "/t/B"),
		},
		Files: []dupes.Group{
			fileGroup("/t/A/x.txt", "/t/C/x.txt", "/t/D/x.txt"),
		},
	}

	out := dupes.Compact(r, dupes.Options{})

	// A/x.txt is covered, the group re-forms around the survivors.
	require.Len(t, out.Files, 1)
	assert.Equal(t, "/t/C/x.txt", out.Files[0].Original.Path())
	require.Len(t, out.Files[0].Dups, 1)
	assert.Equal(t, "/t/D/x.txt", out.Files[0].Dups[0].Path())
}

func TestCompact_SingleSurvivorDropsGroup(t *testing.T) {
	r := &dupes.Result{
		Dirs: []dupes.Group{
			dirGroup("/t/A", "/t/B"),
		},
		Files: []dupes.Group{
			fileGroup("/t/A/x.txt", "/t/B/x.txt", "/t/C/x.txt"),
		},
	}

	out := dupes.Compact(r, dupes.Options{})

	assert.Empty(t, out.Files)
}

func TestCompact_ThresholdsReapplied(t *testing.T) {
	r := &dupes.Result{
		Dirs: []dupes.Group{
			dirGroup("/t/A", "/t/B"),
		},
		Files: []dupes.Group{
			fileGroup("/t/A/x.txt", "/t/C/x.txt", "/t/D/x.txt"),
		},
	}

	out := dupes.Compact(r, dupes.Options{MinFileGroup: 3})

	assert.Empty(t, out.Files, "two survivors are under the group floor")
}

func TestCompact_NoCombineKeepsEverything(t *testing.T) {
	r := &dupes.Result{
		Dirs: []dupes.Group{
			dirGroup("/t/A", "/t/B"),
			dirGroup("/t/A/sub", "/t/B/sub"),
		},
		Files: []dupes.Group{
			fileGroup("/t/A/x.txt", "/t/B/x.txt"),
		},
	}

	out := dupes.Compact(r, dupes.Options{NoCombineFiles: true, NoCombineDirs: true})

	assert.Equal(t, r.Dirs, out.Dirs)
	assert.Equal(t, r.Files, out.Files)
}

func TestBuild_NestedTree(t *testing.T) {
	base := t.TempDir()
	writeFile(t, base, "A/x.txt", "alpha")
	writeFile(t, base, "A/sub/y.txt", "beta")
	writeFile(t, base, "B/x.txt", "alpha")
	writeFile(t, base, "B/sub/y.txt", "beta")
	fp := fingerprintTree(t, base)

	res := dupes.Build(fp, dupes.Options{})

	require.Len(t, res.Dirs, 1, "one directory pair covers the whole find")
	assert.Equal(t, filepath.Join(base, "A"), res.Dirs[0].Original.Path())
	require.Len(t, res.Dirs[0].Dups, 1)
	assert.Equal(t, filepath.Join(base, "B"), res.Dirs[0].Dups[0].Path())
	assert.Empty(t, res.Files)

	loose := dupes.Build(fp, dupes.Options{NoCombineFiles: true, NoCombineDirs: true})

	assert.Len(t, loose.Dirs, 2)
	assert.Len(t, loose.Files, 2, "uncombined, both file pairs are listed")
}
