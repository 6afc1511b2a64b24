package fingerprint

import (
	"encoding/hex"
	"errors"
	"io"
	"os"

	"golang.org/x/crypto/blake2b"
)

// DefaultChunkSize is the number of bytes digested for the firstbytes and
// lastbytes aspects.
const DefaultChunkSize int64 = 64 * 1024

// HashFirst returns the digest of the first n bytes of the file, or of the
// whole file when it is shorter.
func HashFirst(path string, n int64) (string, error) {
	return withFile(path, func(f *os.File) (string, error) {
		return hashReader(io.LimitReader(f, n))
	})
}

// HashLast returns the digest of the last n bytes of the file, or of the
// whole file when it is shorter. size is the current file length.
func HashLast(path string, size, n int64) (string, error) {
	return withFile(path, func(f *os.File) (string, error) {
		if size > n {
			if _, err := f.Seek(size-n, io.SeekStart); err != nil {
				return "", err
			}
		}
		return hashReader(io.LimitReader(f, n))
	})
}

// HashFull returns the digest of the entire file content.
func HashFull(path string) (string, error) {
	return withFile(path, func(f *os.File) (string, error) {
		return hashReader(f)
	})
}

func hashReader(r io.Reader) (string, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func withFile(path string, fn func(*os.File) (string, error)) (digest string, err error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		err = errors.Join(err, file.Close())
	}()

	return fn(file)
}
