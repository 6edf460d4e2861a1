package fsutil

import (
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryFileSystemReadWrite(t *testing.T) {
	t.Parallel()
	m := NewMemoryFileSystem()

	require.NoError(t, m.WriteFile("/a/b.txt", []byte("hello"), 0o644))
	got, err := m.ReadFile("/a/b.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)

	// The returned slice is a copy.
	got[0] = 'X'
	again, err := m.ReadFile("/a/b.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), again)
}

func TestMemoryFileSystemMissingFile(t *testing.T) {
	t.Parallel()
	m := NewMemoryFileSystem()

	_, err := m.ReadFile("/nope")
	assert.True(t, errors.Is(err, fs.ErrNotExist), "got %v", err)
}

func TestMemoryFileSystemRemove(t *testing.T) {
	t.Parallel()
	m := NewMemoryFileSystem()

	require.NoError(t, m.WriteFile("/a", []byte("x"), 0o644))
	require.NoError(t, m.Remove("/a"))
	assert.False(t, m.Exists("/a"))
	assert.True(t, errors.Is(m.Remove("/a"), fs.ErrNotExist))
}

func TestMemoryFileSystemReadDir(t *testing.T) {
	t.Parallel()
	m := NewMemoryFileSystem()

	require.NoError(t, m.MkdirAll("/root/sub", 0o755))
	require.NoError(t, m.WriteFile("/root/b.png", []byte("x"), 0o644))
	require.NoError(t, m.WriteFile("/root/a.png", []byte("x"), 0o644))
	require.NoError(t, m.WriteFile("/root/sub/c.png", []byte("x"), 0o644))

	names, err := m.ReadDir("/root")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png", "b.png", "sub"}, names)

	_, err = m.ReadDir("/absent")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestMemoryFileSystemExists(t *testing.T) {
	t.Parallel()
	m := NewMemoryFileSystem()

	require.NoError(t, m.MkdirAll("/d/e", 0o755))
	assert.True(t, m.Exists("/d"))
	assert.True(t, m.Exists("/d/e"))
	assert.False(t, m.Exists("/d/e/f"))
}

func TestOSFileSystem(t *testing.T) {
	t.Parallel()
	var osfs OSFileSystem
	dir := t.TempDir()

	sub := filepath.Join(dir, "one", "two")
	require.NoError(t, osfs.MkdirAll(sub, 0o755))
	assert.True(t, osfs.Exists(sub))

	path := filepath.Join(sub, "f.txt")
	require.NoError(t, osfs.WriteFile(path, []byte("data"), 0o644))
	got, err := osfs.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), got)

	names, err := osfs.ReadDir(sub)
	require.NoError(t, err)
	assert.Equal(t, []string{"f.txt"}, names)

	require.NoError(t, osfs.Remove(path))
	assert.False(t, osfs.Exists(path))
}
