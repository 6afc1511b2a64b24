package hashcache

import "time"

// Entry is one persisted cache record. A record is trusted only while the
// live file's size and mtime both still match; content changes that
// preserve both go undetected, which is a documented trust boundary of
// the size+mtime check.
type Entry struct {
	Path      string `gorm:"primaryKey"`
	Size      int64
	ModTime   int64  // unix nanoseconds, exact match required
	Chunk     int64  // chunk size First/Last were computed with
	First     string // hex digest of the first chunk
	Last      string // hex digest of the last chunk
	Full      string // hex digest of the whole content
	UpdatedAt time.Time
}

// Digests carries the content digests of one file. Empty string means not
// computed. Chunk records the chunk size First and Last were computed
// with; Full does not depend on it.
type Digests struct {
	Chunk int64
	First string
	Last  string
	Full  string
}
