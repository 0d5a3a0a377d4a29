package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, nil, 0o644))
}

func TestFindFilesByExtension(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "b.c"))
	touch(t, filepath.Join(root, "a.cpp"))
	touch(t, filepath.Join(root, "sub", "z.h"))
	touch(t, filepath.Join(root, "sub", "m.c"))
	touch(t, filepath.Join(root, ".hidden", "x.c"))
	touch(t, filepath.Join(root, "notes.txt"))

	files, err := FindFilesByExtension(root, SourceExtensions...)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.cpp"),
		filepath.Join(root, "b.c"),
		filepath.Join(root, "sub", "m.c"),
	}, files)
}

func TestFindFilesByExtension_MissingRoot(t *testing.T) {
	files, err := FindFilesByExtension(filepath.Join(t.TempDir(), "nope"), ".c")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestCanonical_ResolvesSymlinks(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "real")
	require.NoError(t, os.Mkdir(target, 0o755))
	link := filepath.Join(root, "link")
	require.NoError(t, os.Symlink(target, link))

	a, err := Canonical(link)
	require.NoError(t, err)
	b, err := Canonical(target)
	require.NoError(t, err)
	assert.Equal(t, b, a)
	assert.True(t, IsDir(link))
}
