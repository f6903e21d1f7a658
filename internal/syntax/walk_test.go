package syntax

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("package p\n"), 0644))
}

func TestCollectFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.go"))
	writeFile(t, filepath.Join(root, "a_test.go"))
	writeFile(t, filepath.Join(root, "api.pb.go"))
	writeFile(t, filepath.Join(root, "sub", "b.go"))
	writeFile(t, filepath.Join(root, "vendor", "dep", "c.go"))
	writeFile(t, filepath.Join(root, "testdata", "d.go"))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("x"), 0644))

	files, err := CollectFiles([]string{root}, DefaultWalkOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.go"),
		filepath.Join(root, "sub", "b.go"),
	}, files)

	opts := DefaultWalkOptions()
	opts.IncludeTests = true
	files, err = CollectFiles([]string{root, filepath.Join(root, "a.go")}, opts)
	require.NoError(t, err)
	assert.Len(t, files, 3, "explicit duplicates are collapsed")
}

func TestCollectFiles_ExplicitFileKept(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	files, err := CollectFiles([]string{path}, DefaultWalkOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{path}, files)
}

func TestCollectFiles_MissingPath(t *testing.T) {
	_, err := CollectFiles([]string{filepath.Join(t.TempDir(), "nope")}, DefaultWalkOptions())
	assert.Error(t, err)
}

func TestPackageDocFile(t *testing.T) {
	dir := t.TempDir()
	write := func(name, src string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(src), 0644))
		return path
	}
	docFile := write("doc.go", "// Package p does things.\npackage p\n")
	engine := write("engine.go", "package p\n\nvar X = 1\n")
	write("doc_test.go", "// Package q is documented only in a test file.\npackage q\n")
	other := write("other.go", "package q\n")

	got, ok := PackageDocFile(engine, "p")
	require.True(t, ok)
	assert.Equal(t, docFile, got)

	_, ok = PackageDocFile(docFile, "p")
	assert.False(t, ok, "a file is not its own sibling")

	_, ok = PackageDocFile(other, "q")
	assert.False(t, ok, "test files do not document the package")

	_, ok = PackageDocFile(filepath.Join(t.TempDir(), "missing", "x.go"), "p")
	assert.False(t, ok)
}
