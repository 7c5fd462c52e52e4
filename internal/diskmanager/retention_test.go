package diskmanager

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeFiles creates n jpg files with strictly increasing mtimes and returns
// their paths oldest first.
func makeFiles(t *testing.T, dir string, n int) []string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))

	base := time.Now().Add(-time.Hour)
	paths := make([]string, n)
	for i := 0; i < n; i++ {
		path := filepath.Join(dir, "overlay_"+string(rune('a'+i))+".jpg")
		require.NoError(t, os.WriteFile(path, []byte("jpeg"), 0o644))
		mtime := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, os.Chtimes(path, mtime, mtime))
		paths[i] = path
	}
	return paths
}

func TestKeepNewest(t *testing.T) {
	dir := t.TempDir()
	paths := makeFiles(t, dir, 8)

	require.NoError(t, KeepNewest(dir, 5))

	remaining, err := GetImageFiles(dir)
	require.NoError(t, err)
	require.Len(t, remaining, 5)

	var got []string
	for _, f := range remaining {
		got = append(got, f.Path)
	}
	sort.Strings(got)
	want := append([]string{}, paths[3:]...)
	sort.Strings(want)
	assert.Equal(t, want, got)
}

func TestKeepNewestFewerThanKeep(t *testing.T) {
	dir := t.TempDir()
	makeFiles(t, dir, 3)

	require.NoError(t, KeepNewest(dir, 5))

	remaining, err := GetImageFiles(dir)
	require.NoError(t, err)
	assert.Len(t, remaining, 3)
}

func TestKeepNewestMissingFolderIsNoOp(t *testing.T) {
	assert.NoError(t, KeepNewest(filepath.Join(t.TempDir(), "does-not-exist"), 5))
}

func TestKeepNewestIgnoresNonImages(t *testing.T) {
	dir := t.TempDir()
	makeFiles(t, dir, 2)
	dbPath := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(dbPath, []byte("keep me"), 0o644))

	require.NoError(t, KeepNewest(dir, 1))

	_, err := os.Stat(dbPath)
	assert.NoError(t, err)
}

func TestGetImageFilesSortedByModTime(t *testing.T) {
	dir := t.TempDir()
	paths := makeFiles(t, dir, 4)

	files, err := GetImageFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 4)
	for i, f := range files {
		assert.Equal(t, paths[i], f.Path)
	}
}
