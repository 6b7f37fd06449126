package repo

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/grit/pkg/object"
)

func TestCommitInitial(t *testing.T) {
	r := newTestRepo(t)
	writeWorkFile(t, r, "main.go", "package main\n")
	mustStage(t, r, "main.go")

	h, err := r.Commit("initial commit", testAuthor, nil)
	require.NoError(t, err)

	head, err := r.ResolveRef("HEAD")
	require.NoError(t, err)
	assert.Equal(t, h, head)

	c, err := r.Store.ReadCommit(h)
	require.NoError(t, err)
	assert.Empty(t, c.Parents)
	assert.Equal(t, testAuthor, c.Author)
	assert.Equal(t, testAuthor, c.Committer)
	assert.Equal(t, "initial commit\n", c.Message)
	assert.Equal(t, blobHash("package main\n"), treeNames(t, r, c.TreeHash)["main.go"].Hash)

	entries, err := r.ReadReflog("main", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "commit (initial): initial commit", entries[0].Reason)
}

func TestCommitChainAndLog(t *testing.T) {
	r := newTestRepo(t)
	writeWorkFile(t, r, "a", "X")
	writeWorkFile(t, r, "b", "Y")
	mustStage(t, r, "a", "b")
	first, err := r.Commit("first", testAuthor, nil)
	require.NoError(t, err)

	writeWorkFile(t, r, "a", "Z")
	mustStage(t, r, "a")
	second, err := r.Commit("second\n\nwith a body\n", testAuthor, nil)
	require.NoError(t, err)

	c2, err := r.Store.ReadCommit(second)
	require.NoError(t, err)
	assert.Equal(t, []object.Hash{first}, c2.Parents)
	names := treeNames(t, r, c2.TreeHash)
	assert.Equal(t, blobHash("Z"), names["a"].Hash)
	assert.Equal(t, blobHash("Y"), names["b"].Hash)

	commits, err := r.Log(second, 0)
	require.NoError(t, err)
	require.Len(t, commits, 2)
	assert.Equal(t, "second\n\nwith a body\n", commits[0].Message)
	assert.Equal(t, "first\n", commits[1].Message)

	limited, err := r.Log(second, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	entries, err := r.ReadReflog("HEAD", 1)
	require.NoError(t, err)
	assert.Equal(t, "commit: second", entries[0].Reason)
	assert.Equal(t, first, entries[0].OldHash)
}

func TestCommitCarriesDeletionForward(t *testing.T) {
	r := newTestRepo(t)
	writeWorkFile(t, r, "keep", "k")
	writeWorkFile(t, r, "drop", "d")
	mustStage(t, r, "keep", "drop")
	_, err := r.Commit("both", testAuthor, nil)
	require.NoError(t, err)

	removeWorkPath(t, r, "drop")
	h, err := r.Commit("one", testAuthor, nil)
	require.NoError(t, err)

	c, err := r.Store.ReadCommit(h)
	require.NoError(t, err)
	names := treeNames(t, r, c.TreeHash)
	assert.Contains(t, names, "keep")
	assert.NotContains(t, names, "drop")
}

func TestCommitWithSigner(t *testing.T) {
	r := newTestRepo(t)
	writeWorkFile(t, r, "f", "f")
	mustStage(t, r, "f")

	var signedPayload []byte
	h, err := r.Commit("signed", testAuthor, func(payload []byte) (string, error) {
		signedPayload = append([]byte(nil), payload...)
		return "sig-bytes", nil
	})
	require.NoError(t, err)

	c, err := r.Store.ReadCommit(h)
	require.NoError(t, err)
	assert.Equal(t, "sig-bytes", c.Signature)
	assert.Equal(t, signedPayload, object.CommitSigningPayload(c))
}

func TestCommitSignerFailure(t *testing.T) {
	r := newTestRepo(t)
	writeWorkFile(t, r, "f", "f")
	mustStage(t, r, "f")

	boom := errors.New("agent unavailable")
	_, err := r.Commit("signed", testAuthor, func([]byte) (string, error) { return "", boom })
	require.ErrorIs(t, err, boom)

	_, err = r.ResolveRef("HEAD")
	require.Error(t, err, "branch must not move")
}

func TestCommitEmptyMessage(t *testing.T) {
	r := newTestRepo(t)
	_, err := r.Commit("  \n", testAuthor, nil)
	require.ErrorIs(t, err, ErrEmptyMessage)
}

func TestCommitDetachedHead(t *testing.T) {
	r := newTestRepo(t)
	writeWorkFile(t, r, "f", "1")
	mustStage(t, r, "f")
	first, err := r.Commit("first", testAuthor, nil)
	require.NoError(t, err)

	require.NoError(t, r.UpdateRef("HEAD", first))
	writeWorkFile(t, r, "f", "2")
	mustStage(t, r, "f")
	second, err := r.Commit("detached", testAuthor, nil)
	require.NoError(t, err)

	head, err := r.Head()
	require.NoError(t, err)
	assert.Equal(t, string(second), strings.TrimSpace(head))

	branch, err := r.ResolveRef("main")
	require.NoError(t, err)
	assert.Equal(t, first, branch)
}

func TestLogMissingStart(t *testing.T) {
	r := newTestRepo(t)
	_, err := r.Log(testHash(5), 10)
	require.ErrorIs(t, err, object.ErrObjectNotFound)
}
