package hashcache_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/stupid-simple/dedup/hashcache"
)

// Helper to set up a store on an in-memory SQLite database
func setupTestStore(t *testing.T) *hashcache.Store {
	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
	})
	require.NoError(t, err)

	s, err := hashcache.NewStore(gormDB, zerolog.Nop())
	require.NoError(t, err)
	return s
}

func TestStore_LookupMiss(t *testing.T) {
	s := setupTestStore(t)

	_, ok := s.Lookup("/nope", 10, time.Now())
	assert.False(t, ok)
}

func TestStore_StoreAndLookup(t *testing.T) {
	s := setupTestStore(t)
	mtime := time.Now()

	s.Store("/a", 100, mtime, hashcache.Digests{Chunk: 4, First: "f1", Last: "l1", Full: "h1"})

	d, ok := s.Lookup("/a", 100, mtime)
	require.True(t, ok)
	assert.Equal(t, "f1", d.First)
	assert.Equal(t, "l1", d.Last)
	assert.Equal(t, "h1", d.Full)
	assert.Equal(t, int64(4), d.Chunk)
}

func TestStore_StrictValidation(t *testing.T) {
	s := setupTestStore(t)
	mtime := time.Now()
	s.Store("/a", 100, mtime, hashcache.Digests{Full: "h1"})

	// Both fields must match exactly; either mismatch is a miss.
	_, ok := s.Lookup("/a", 101, mtime)
	assert.False(t, ok, "size change must invalidate")

	s.Store("/a", 100, mtime, hashcache.Digests{Full: "h1"})
	_, ok = s.Lookup("/a", 100, mtime.Add(time.Nanosecond))
	assert.False(t, ok, "mtime change must invalidate")

	// The stale record is gone even for the original arguments.
	_, ok = s.Lookup("/a", 100, mtime)
	assert.False(t, ok)
}

func TestStore_MergePartial(t *testing.T) {
	s := setupTestStore(t)
	mtime := time.Now()

	s.Store("/a", 100, mtime, hashcache.Digests{Chunk: 4, First: "f1", Last: "l1"})
	s.Store("/a", 100, mtime, hashcache.Digests{Full: "h1"})

	d, ok := s.Lookup("/a", 100, mtime)
	require.True(t, ok)
	assert.Equal(t, "f1", d.First)
	assert.Equal(t, "h1", d.Full)
}

func TestStore_ChunkChangeDropsPair(t *testing.T) {
	s := setupTestStore(t)
	mtime := time.Now()

	s.Store("/a", 100, mtime, hashcache.Digests{Chunk: 4, First: "f4", Last: "l4", Full: "h1"})
	s.Store("/a", 100, mtime, hashcache.Digests{Chunk: 8, First: "f8"})

	d, ok := s.Lookup("/a", 100, mtime)
	require.True(t, ok)
	assert.Equal(t, int64(8), d.Chunk)
	assert.Equal(t, "f8", d.First)
	assert.Empty(t, d.Last, "old-chunk digest must not survive")
	assert.Equal(t, "h1", d.Full, "full hash does not depend on chunk size")
}

func TestStore_SizeChangeReplacesRecord(t *testing.T) {
	s := setupTestStore(t)
	mtime := time.Now()

	s.Store("/a", 100, mtime, hashcache.Digests{Chunk: 4, First: "f1", Full: "h1"})
	s.Store("/a", 200, mtime, hashcache.Digests{Chunk: 4, First: "f2"})

	d, ok := s.Lookup("/a", 200, mtime)
	require.True(t, ok)
	assert.Equal(t, "f2", d.First)
	assert.Empty(t, d.Full, "digests of the old content must not survive")
}

func TestStore_FlushRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	logger := zerolog.New(zerolog.NewTestWriter(t))
	mtime := time.Now()

	s, err := hashcache.Open(path, logger)
	require.NoError(t, err)
	s.Store("/a", 100, mtime, hashcache.Digests{Chunk: 4, First: "f1", Last: "l1", Full: "h1"})
	require.NoError(t, s.Close())

	s, err = hashcache.Open(path, logger)
	require.NoError(t, err)
	defer func() { require.NoError(t, s.Close()) }()

	assert.Equal(t, 1, s.Len())
	d, ok := s.Lookup("/a", 100, mtime)
	require.True(t, ok)
	assert.Equal(t, "h1", d.Full)
}

func TestStore_StaleDeletedOnFlush(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	logger := zerolog.New(zerolog.NewTestWriter(t))
	mtime := time.Now()

	s, err := hashcache.Open(path, logger)
	require.NoError(t, err)
	s.Store("/a", 100, mtime, hashcache.Digests{Full: "h1"})
	require.NoError(t, s.Close())

	s, err = hashcache.Open(path, logger)
	require.NoError(t, err)
	_, ok := s.Lookup("/a", 999, mtime)
	assert.False(t, ok)
	require.NoError(t, s.Close())

	s, err = hashcache.Open(path, logger)
	require.NoError(t, err)
	defer func() { require.NoError(t, s.Close()) }()
	assert.Equal(t, 0, s.Len(), "stale entry must be deleted from storage")
}

func TestStore_Reset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	logger := zerolog.New(zerolog.NewTestWriter(t))
	mtime := time.Now()

	s, err := hashcache.Open(path, logger)
	require.NoError(t, err)
	s.Store("/a", 100, mtime, hashcache.Digests{Full: "h1"})
	require.NoError(t, s.Close())

	s, err = hashcache.Open(path, logger, hashcache.WithReset())
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())

	// The reset run still stores fresh digests.
	s.Store("/b", 50, mtime, hashcache.Digests{Full: "h2"})
	require.NoError(t, s.Close())

	s, err = hashcache.Open(path, logger)
	require.NoError(t, err)
	defer func() { require.NoError(t, s.Close()) }()
	assert.Equal(t, 1, s.Len())
	_, ok := s.Lookup("/a", 100, mtime)
	assert.False(t, ok)
	_, ok = s.Lookup("/b", 50, mtime)
	assert.True(t, ok)
}

func TestOpen_Locked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	logger := zerolog.New(zerolog.NewTestWriter(t))

	s, err := hashcache.Open(path, logger)
	require.NoError(t, err)
	defer func() { require.NoError(t, s.Close()) }()

	_, err = hashcache.Open(path, logger)
	require.Error(t, err, "second open must be refused while locked")
}
