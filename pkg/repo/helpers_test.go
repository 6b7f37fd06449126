package repo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odvcencio/grit/pkg/object"
)

var testAuthor = object.Signature{
	Name:     "Ada Lovelace",
	Email:    "ada@example.com",
	When:     1700000000,
	Timezone: "+0000",
}

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	r, err := Init(t.TempDir())
	require.NoError(t, err)
	return r
}

func writeWorkFile(t *testing.T, r *Repo, rel, content string) {
	t.Helper()
	p := filepath.Join(r.RootDir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func removeWorkPath(t *testing.T, r *Repo, rel string) {
	t.Helper()
	require.NoError(t, os.RemoveAll(filepath.Join(r.RootDir, filepath.FromSlash(rel))))
}

func mustStage(t *testing.T, r *Repo, paths ...string) *StageResult {
	t.Helper()
	res, err := r.Stage(paths)
	require.NoError(t, err)
	require.NoError(t, res.Err())
	return res
}

func blobHash(content string) object.Hash {
	return object.HashObject(object.TypeBlob, []byte(content))
}

// treeNames returns name -> entry for tree h.
func treeNames(t *testing.T, r *Repo, h object.Hash) map[string]object.TreeEntry {
	t.Helper()
	tr, err := r.Store.ReadTree(h)
	require.NoError(t, err)
	return tr.ByName()
}

func assertDir(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err, "expected directory %q", path)
	require.True(t, info.IsDir(), "%q is not a directory", path)
}

func assertFile(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err, "expected file %q", path)
	require.False(t, info.IsDir(), "%q is a directory, expected file", path)
}
