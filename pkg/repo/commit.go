package repo

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/odvcencio/grit/pkg/object"
)

var ErrEmptyMessage = errors.New("empty commit message")

var timeNow = time.Now

// CommitSigner signs canonical commit payload bytes and returns an encoded
// signature string to be persisted in CommitObj.Signature.
type CommitSigner func(payload []byte) (string, error)

// Commit records a new snapshot on the current branch.
//
//  1. Resolve HEAD to the parent commit, if any
//  2. Drop index entries for deleted paths, then merge the parent's tree
//     with the index (MergeSnapshot)
//  3. Write the commit object, signed when signer is non-nil
//  4. Advance the branch ref with a compare-and-swap against the parent
func (r *Repo) Commit(message string, author object.Signature, signer CommitSigner) (object.Hash, error) {
	if strings.TrimSpace(message) == "" {
		return "", fmt.Errorf("commit: %w", ErrEmptyMessage)
	}
	if !strings.HasSuffix(message, "\n") {
		message += "\n"
	}

	parentHash, err := r.ResolveRef("HEAD")
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("commit: %w", err)
		}
		parentHash = ""
	}

	var (
		parents  []object.Hash
		prevTree object.Hash
	)
	if parentHash != "" {
		parent, err := r.Store.ReadCommit(parentHash)
		if err != nil {
			return "", fmt.Errorf("commit: read parent %s: %w", parentHash, err)
		}
		parents = append(parents, parentHash)
		prevTree = parent.TreeHash
	}

	if _, err := r.PruneIndex(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	treeHash, err := r.MergeSnapshot(prevTree)
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}

	commitObj := &object.CommitObj{
		TreeHash:  treeHash,
		Parents:   parents,
		Author:    author,
		Committer: author,
		Message:   message,
	}
	if signer != nil {
		signature, err := signer(object.CommitSigningPayload(commitObj))
		if err != nil {
			return "", fmt.Errorf("commit: sign commit: %w", err)
		}
		commitObj.Signature = signature
	}

	commitHash, err := r.Store.WriteCommit(commitObj)
	if err != nil {
		return "", fmt.Errorf("commit: write commit: %w", err)
	}

	head, err := r.Head()
	if err != nil {
		return "", fmt.Errorf("commit: read HEAD: %w", err)
	}
	reason := commitReflogReason(message, parentHash == "")

	// head is either a ref path ("refs/heads/main") or a detached hash.
	target, expected := head, parentHash
	if !strings.HasPrefix(head, "refs/") {
		target, expected = "HEAD", object.Hash(head)
	}
	if err := r.updateRef(refUpdate{name: target, next: commitHash, expected: &expected, reason: reason}); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}

	r.log.Info("created commit", "hash", commitHash, "tree", treeHash, "signed", signer != nil)
	return commitHash, nil
}

func commitReflogReason(message string, initial bool) string {
	subject, _, _ := strings.Cut(strings.TrimSpace(message), "\n")
	if initial {
		return "commit (initial): " + subject
	}
	return "commit: " + subject
}

// Log walks the commit history starting from the given hash, following
// first-parent links, returning up to limit commits in reverse-chronological
// order (newest first). limit <= 0 means no limit.
func (r *Repo) Log(start object.Hash, limit int) ([]*object.CommitObj, error) {
	var commits []*object.CommitObj
	current := start

	for current != "" && (limit <= 0 || len(commits) < limit) {
		c, err := r.Store.ReadCommit(current)
		if err != nil {
			if errors.Is(err, object.ErrObjectNotFound) && len(commits) > 0 {
				r.log.Warn("history truncated at missing commit", "hash", current)
				break
			}
			return nil, fmt.Errorf("log: read commit %s: %w", current, err)
		}
		commits = append(commits, c)

		if len(c.Parents) == 0 {
			break
		}
		current = c.Parents[0]
	}

	return commits, nil
}
