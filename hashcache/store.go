package hashcache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const flushBatchSize = 50

// Store holds all cache entries in memory between Open and Close and
// persists changed ones on Close. Lookups may run concurrently, writes
// are serialized.
type Store struct {
	lock    sync.RWMutex
	cli     *gorm.DB
	flock   *flock.Flock
	logger  zerolog.Logger
	entries map[string]*Entry
	dirty   map[string]struct{}
	stale   []string
}

// Open opens (creating if needed) the cache database at path and loads
// all entries. The database is guarded by a lock file against concurrent
// runs. Errors here are not fatal to a run: the caller falls back to
// running without a cache.
func Open(path string, logger zerolog.Logger, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("could not create cache directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("could not lock cache: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("cache %s is locked by another process", path)
	}

	cli, err := newSQLite(path, logger)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("could not open cache database: %w", err)
	}

	s, err := NewStore(cli, logger, opts...)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	s.flock = lock

	return s, nil
}

// NewStore wraps an already opened database handle.
func NewStore(cli *gorm.DB, logger zerolog.Logger, opts ...Option) (*Store, error) {
	o := storeOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	if err := cli.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("could not migrate cache schema: %w", err)
	}

	s := &Store{
		cli:     cli,
		logger:  logger,
		entries: map[string]*Entry{},
		dirty:   map[string]struct{}{},
	}

	if o.reset {
		err := cli.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&Entry{}).Error
		if err != nil {
			return nil, fmt.Errorf("could not reset cache: %w", err)
		}
		s.logger.Info().Msg("cache reset")
		return s, nil
	}

	var rows []Entry
	if err := cli.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("could not load cache entries: %w", err)
	}
	for i := range rows {
		s.entries[rows[i].Path] = &rows[i]
	}
	s.logger.Debug().Int("entries", len(s.entries)).Msg("loaded cache")

	return s, nil
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.entries)
}

// Lookup returns the cached digests for path. It is a hit only when the
// stored size and mtime both exactly match the arguments; a mismatch
// discards the record.
func (s *Store) Lookup(path string, size int64, modTime time.Time) (Digests, bool) {
	mt := modTime.UnixNano()

	s.lock.RLock()
	e, ok := s.entries[path]
	if ok && e.Size == size && e.ModTime == mt {
		d := Digests{Chunk: e.Chunk, First: e.First, Last: e.Last, Full: e.Full}
		s.lock.RUnlock()
		return d, true
	}
	s.lock.RUnlock()
	if !ok {
		return Digests{}, false
	}

	s.lock.Lock()
	if e, ok := s.entries[path]; ok && (e.Size != size || e.ModTime != mt) {
		s.logger.Debug().Str("path", path).Msg("discarding stale cache entry")
		delete(s.entries, path)
		s.stale = append(s.stale, path)
	}
	s.lock.Unlock()

	return Digests{}, false
}

// Store merges the given digests into the record for path. A record with
// a different size or mtime is replaced outright. First/Last computed
// with a different chunk size displace the old pair; Full carries over
// since it does not depend on the chunk size.
func (s *Store) Store(path string, size int64, modTime time.Time, d Digests) {
	s.lock.Lock()
	defer s.lock.Unlock()

	mt := modTime.UnixNano()
	e, ok := s.entries[path]
	if !ok || e.Size != size || e.ModTime != mt {
		e = &Entry{Path: path, Size: size, ModTime: mt}
		s.entries[path] = e
	}

	if d.First != "" || d.Last != "" {
		if e.Chunk != d.Chunk {
			e.First = ""
			e.Last = ""
			e.Chunk = d.Chunk
		}
		if d.First != "" {
			e.First = d.First
		}
		if d.Last != "" {
			e.Last = d.Last
		}
	}
	if d.Full != "" {
		e.Full = d.Full
	}

	s.dirty[path] = struct{}{}
}

// Close flushes pending changes and releases the lock file. Digests
// computed before a cancelled run still reach the database.
func (s *Store) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	err := s.flush()
	if s.flock != nil {
		err = errors.Join(err, s.flock.Unlock())
	}
	return err
}

func (s *Store) flush() error {
	if len(s.dirty) == 0 && len(s.stale) == 0 {
		return nil
	}

	batch := make([]Entry, 0, len(s.dirty))
	for path := range s.dirty {
		if e, ok := s.entries[path]; ok {
			batch = append(batch, *e)
		}
	}

	err := s.cli.Transaction(func(tx *gorm.DB) error {
		if len(s.stale) > 0 {
			if err := tx.Where("path IN ?", s.stale).Delete(&Entry{}).Error; err != nil {
				return fmt.Errorf("could not delete stale cache entries: %w", err)
			}
		}
		if len(batch) > 0 {
			err := tx.Clauses(clause.OnConflict{UpdateAll: true}).CreateInBatches(batch, flushBatchSize).Error
			if err != nil {
				return fmt.Errorf("could not write cache entries: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug().Int("written", len(batch)).Int("deleted", len(s.stale)).Msg("flushed cache")
	s.dirty = map[string]struct{}{}
	s.stale = nil

	return nil
}
