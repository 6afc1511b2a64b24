package fingerprint_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stupid-simple/dedup/fingerprint"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestHashFull(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a", "hello world")
	b := writeFile(t, dir, "b", "hello world")
	c := writeFile(t, dir, "c", "hello worle")

	da, err := fingerprint.HashFull(a)
	require.NoError(t, err)
	db, err := fingerprint.HashFull(b)
	require.NoError(t, err)
	dc, err := fingerprint.HashFull(c)
	require.NoError(t, err)

	assert.Len(t, da, 64)
	assert.Equal(t, da, db, "identical content must digest identically")
	assert.NotEqual(t, da, dc)
}

func TestHashFirst(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a", "headsAAAA")
	b := writeFile(t, dir, "b", "headsBBBB")

	da, err := fingerprint.HashFirst(a, 5)
	require.NoError(t, err)
	db, err := fingerprint.HashFirst(b, 5)
	require.NoError(t, err)
	assert.Equal(t, da, db, "equal heads must agree")

	wider, err := fingerprint.HashFirst(a, 6)
	require.NoError(t, err)
	assert.NotEqual(t, da, wider, "a wider prefix reads different bytes")
}

func TestHashFirst_WholeFile(t *testing.T) {
	a := writeFile(t, t.TempDir(), "a", "tiny")

	first, err := fingerprint.HashFirst(a, 64)
	require.NoError(t, err)
	full, err := fingerprint.HashFull(a)
	require.NoError(t, err)
	assert.Equal(t, full, first, "prefix longer than the file covers all of it")
}

func TestHashLast(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a", "AAAAtails")
	b := writeFile(t, dir, "b", "BBBBtails")
	c := writeFile(t, dir, "c", "AAAAtailz")

	da, err := fingerprint.HashLast(a, 9, 5)
	require.NoError(t, err)
	db, err := fingerprint.HashLast(b, 9, 5)
	require.NoError(t, err)
	dc, err := fingerprint.HashLast(c, 9, 5)
	require.NoError(t, err)

	assert.Equal(t, da, db, "equal tails must agree")
	assert.NotEqual(t, da, dc)
}

func TestHashLast_WholeFile(t *testing.T) {
	a := writeFile(t, t.TempDir(), "a", "tiny")

	last, err := fingerprint.HashLast(a, 4, 64)
	require.NoError(t, err)
	full, err := fingerprint.HashFull(a)
	require.NoError(t, err)
	assert.Equal(t, full, last, "suffix longer than the file covers all of it")
}

func TestHash_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")

	_, err := fingerprint.HashFull(missing)
	assert.Error(t, err)
	_, err = fingerprint.HashFirst(missing, 8)
	assert.Error(t, err)
	_, err = fingerprint.HashLast(missing, 8, 8)
	assert.Error(t, err)
}
