package repo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/grit/pkg/object"
)

func readIndexBytes(t *testing.T, r *Repo) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(r.GritDir, "index"))
	require.NoError(t, err)
	return string(data)
}

func TestStageFile(t *testing.T) {
	r := newTestRepo(t)
	writeWorkFile(t, r, "hello.txt", "hello")

	res := mustStage(t, r, "hello.txt")
	assert.Equal(t, []string{"hello.txt"}, res.Staged)
	assert.Equal(t, "blob b6fc4c620b67d95f953a5c1c1230aaab5db5a1b0 hello.txt\n", readIndexBytes(t, r))
	assert.True(t, r.Store.Has("b6fc4c620b67d95f953a5c1c1230aaab5db5a1b0"), "staging stores the blob")
}

func TestStageIdempotent(t *testing.T) {
	r := newTestRepo(t)
	writeWorkFile(t, r, "b.txt", "b")
	writeWorkFile(t, r, "a.txt", "a")

	mustStage(t, r, "b.txt", "a.txt")
	first := readIndexBytes(t, r)
	mustStage(t, r, "a.txt", "b.txt")
	assert.Equal(t, first, readIndexBytes(t, r))

	assert.Equal(t,
		"blob "+string(blobHash("a"))+" a.txt\nblob "+string(blobHash("b"))+" b.txt\n",
		first, "ledger is sorted by path")
}

func TestStageRefreshesChangedFile(t *testing.T) {
	r := newTestRepo(t)
	writeWorkFile(t, r, "f.txt", "one")
	mustStage(t, r, "f.txt")
	writeWorkFile(t, r, "f.txt", "two")
	mustStage(t, r, "f.txt")

	idx, err := r.ReadIndex()
	require.NoError(t, err)
	require.Len(t, idx.Entries, 1)
	assert.Equal(t, blobHash("two"), idx.Entries["f.txt"].Hash)
}

func TestStageDropsDeletedPaths(t *testing.T) {
	r := newTestRepo(t)
	writeWorkFile(t, r, "keep.txt", "keep")
	writeWorkFile(t, r, "gone.txt", "gone")
	mustStage(t, r, "keep.txt", "gone.txt")

	removeWorkPath(t, r, "gone.txt")
	res := mustStage(t, r, "keep.txt")
	assert.Equal(t, []string{"gone.txt"}, res.Removed)

	idx, err := r.ReadIndex()
	require.NoError(t, err)
	assert.Contains(t, idx.Entries, "keep.txt")
	assert.NotContains(t, idx.Entries, "gone.txt")
}

func TestStageDirectory(t *testing.T) {
	r := newTestRepo(t)
	writeWorkFile(t, r, "src/main.go", "package main")
	writeWorkFile(t, r, "src/util/util.go", "package util")

	mustStage(t, r, "src")

	idx, err := r.ReadIndex()
	require.NoError(t, err)
	require.Contains(t, idx.Entries, "src")
	assert.Equal(t, object.TypeTree, idx.Entries["src"].Kind)
	assert.Equal(t, object.TypeBlob, idx.Entries["src/main.go"].Kind)
	assert.Equal(t, object.TypeBlob, idx.Entries["src/util/util.go"].Kind)

	want, err := r.BuildTree("src")
	require.NoError(t, err)
	assert.Equal(t, want, idx.Entries["src"].Hash)
	assert.NotContains(t, idx.Entries, "src/util", "only the named directory gets a tree entry")
}

func TestStageRootDirectory(t *testing.T) {
	r := newTestRepo(t)
	writeWorkFile(t, r, "a.txt", "a")
	writeWorkFile(t, r, "d/b.txt", "b")

	mustStage(t, r, r.RootDir)

	idx, err := r.ReadIndex()
	require.NoError(t, err)
	assert.Len(t, idx.Entries, 2)
	assert.Contains(t, idx.Entries, "a.txt")
	assert.Contains(t, idx.Entries, "d/b.txt")
}

func TestStagePartialFailure(t *testing.T) {
	r := newTestRepo(t)
	writeWorkFile(t, r, "ok.txt", "ok")
	writeWorkFile(t, r, "skip.log", "noise")
	writeIgnoreFile(t, r.RootDir, "*.log\n")

	res, err := r.Stage([]string{"missing.txt", "ok.txt", "skip.log", ".grit/HEAD"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ok.txt"}, res.Staged)
	require.Len(t, res.Errors, 3)
	assert.Equal(t, "missing.txt", res.Errors[0].Path)
	assert.ErrorIs(t, res.Errors[0], ErrPathNotFound)
	assert.ErrorIs(t, res.Errors[1], ErrPathIgnored)
	assert.ErrorIs(t, res.Errors[2], ErrPathIgnored)
	assert.ErrorIs(t, res.Err(), ErrPathNotFound)

	idx, err := r.ReadIndex()
	require.NoError(t, err)
	assert.Len(t, idx.Entries, 1)
}

func TestStageOutsideRepo(t *testing.T) {
	r := newTestRepo(t)
	outside := filepath.Join(t.TempDir(), "elsewhere.txt")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))

	res, err := r.Stage([]string{outside})
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	assert.ErrorIs(t, res.Errors[0], ErrOutsideRepo)
}

func TestStagePathWithSpaces(t *testing.T) {
	r := newTestRepo(t)
	writeWorkFile(t, r, "my notes/to do.txt", "x")
	mustStage(t, r, "my notes/to do.txt")

	idx, err := r.ReadIndex()
	require.NoError(t, err)
	require.Contains(t, idx.Entries, "my notes/to do.txt")
	assert.Equal(t, blobHash("x"), idx.Entries["my notes/to do.txt"].Hash)
}

func TestReadIndexMalformed(t *testing.T) {
	h := string(blobHash("x"))
	tests := map[string]string{
		"two fields":   "blob " + h + "\n",
		"unknown kind": "commit " + h + " a.txt\n",
		"short hash":   "blob abc a.txt\n",
		"escaping":     "blob " + h + " ../etc/passwd\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			r := newTestRepo(t)
			require.NoError(t, os.WriteFile(filepath.Join(r.GritDir, "index"), []byte(content), 0o644))
			_, err := r.ReadIndex()
			require.ErrorIs(t, err, ErrMalformedIndex)

			_, err = r.Stage(nil)
			require.ErrorIs(t, err, ErrMalformedIndex)
		})
	}
}

func TestReadIndexMissingIsEmpty(t *testing.T) {
	r := newTestRepo(t)
	idx, err := r.ReadIndex()
	require.NoError(t, err)
	assert.Empty(t, idx.Entries)
}

func TestPruneIndex(t *testing.T) {
	r := newTestRepo(t)
	writeWorkFile(t, r, "a", "a")
	writeWorkFile(t, r, "b", "b")
	mustStage(t, r, "a", "b")

	removed, err := r.PruneIndex()
	require.NoError(t, err)
	assert.Empty(t, removed)

	removeWorkPath(t, r, "b")
	removed, err = r.PruneIndex()
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, removed)
	assert.Equal(t, "blob "+string(blobHash("a"))+" a\n", readIndexBytes(t, r))
}

func TestStageSkipsLineBreakNamesInDirectory(t *testing.T) {
	r := newTestRepo(t)
	writeWorkFile(t, r, "d/ok.txt", "ok")
	writeWorkFile(t, r, "d/bad\nname", "bad")
	writeWorkFile(t, r, "other.txt", "other")

	res := mustStage(t, r, "d")
	assert.Equal(t, []string{"d/ok.txt", "d"}, res.Staged)

	idx, err := r.ReadIndex()
	require.NoError(t, err)
	assert.Contains(t, idx.Entries, "d/ok.txt")
	assert.NotContains(t, idx.Entries, "d/bad\nname")
	assert.Len(t, idx.Entries, 2)

	// The directory's tree leaves the file out too.
	assert.NotContains(t, treeNames(t, r, idx.Entries["d"].Hash), "bad\nname")

	mustStage(t, r, "other.txt")
	idx, err = r.ReadIndex()
	require.NoError(t, err)
	assert.Len(t, idx.Entries, 3)
}

func TestStageRejectsLineBreakPath(t *testing.T) {
	r := newTestRepo(t)
	writeWorkFile(t, r, "bad\nname", "bad")
	writeWorkFile(t, r, "trailing\r", "cr")
	writeWorkFile(t, r, "ok.txt", "ok")

	res, err := r.Stage([]string{"bad\nname", "trailing\r", "ok.txt"})
	require.NoError(t, err)
	require.Len(t, res.Errors, 2)
	assert.ErrorIs(t, res.Errors[0], ErrInvalidPath)
	assert.ErrorIs(t, res.Errors[1], ErrInvalidPath)
	assert.Equal(t, []string{"ok.txt"}, res.Staged)

	idx, err := r.ReadIndex()
	require.NoError(t, err)
	assert.Len(t, idx.Entries, 1)
}

func TestStageRelativePathsAreRootRelative(t *testing.T) {
	r := newTestRepo(t)
	writeWorkFile(t, r, "sub/f.txt", "f")

	mustStage(t, r, "sub/../sub/f.txt")
	idx, err := r.ReadIndex()
	require.NoError(t, err)
	assert.Contains(t, idx.Entries, "sub/f.txt")

	res, err := r.Stage([]string{"../elsewhere.txt"})
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	assert.ErrorIs(t, res.Errors[0], ErrOutsideRepo)
}
