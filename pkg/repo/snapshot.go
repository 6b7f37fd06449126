package repo

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/odvcencio/grit/pkg/object"
)

// snapNode is a directory being rebuilt by MergeSnapshot. Subtrees that are
// never touched by the index keep their stored digest and are not loaded.
type snapNode struct {
	rel     string
	entries map[string]*snapEntry
}

type snapEntry struct {
	mode  string
	hash  object.Hash
	child *snapNode // set once the subtree is opened for modification
}

// MergeSnapshot produces a new root tree from the previous snapshot prev and
// the current index.
//
// At every directory level the merge visits, entries of the previous tree
// are carried forward unchanged if their path still exists in the working
// directory. Index entries then overlay by path: blobs replace or add a file,
// tree entries make sure a directory exists there, and any directory
// containing an index path is rewritten bottom-up. An empty prev builds the
// snapshot from the working directory instead.
//
// The existence check only runs at levels the merge loads: the root, and
// directories on the way to an index path. A subtree no index path reaches
// is carried by digest, so files deleted inside it stay in the snapshot
// until that directory is staged again.
func (r *Repo) MergeSnapshot(prev object.Hash) (object.Hash, error) {
	if prev == "" {
		h, err := r.BuildTree("")
		if err != nil {
			return "", fmt.Errorf("merge snapshot: %w", err)
		}
		return h, nil
	}
	if err := r.requireTree(prev); err != nil {
		return "", fmt.Errorf("merge snapshot: %w", err)
	}

	idx, err := r.ReadIndex()
	if err != nil {
		return "", fmt.Errorf("merge snapshot: %w", err)
	}

	root, err := r.loadSnapNode("", prev)
	if err != nil {
		return "", fmt.Errorf("merge snapshot: %w", err)
	}

	for _, e := range idx.Sorted() {
		parts := strings.Split(e.Path, "/")
		node := root
		for _, dir := range parts[:len(parts)-1] {
			node, err = r.openSnapDir(node, dir)
			if err != nil {
				return "", fmt.Errorf("merge snapshot: %s: %w", e.Path, err)
			}
		}

		name := parts[len(parts)-1]
		switch e.Kind {
		case object.TypeBlob:
			node.entries[name] = &snapEntry{mode: object.TreeModeFile, hash: e.Hash}
		case object.TypeTree:
			if _, err := r.openSnapDir(node, name); err != nil {
				return "", fmt.Errorf("merge snapshot: %s: %w", e.Path, err)
			}
		}
	}

	h, err := r.writeSnapNode(root)
	if err != nil {
		return "", fmt.Errorf("merge snapshot: %w", err)
	}
	r.log.Debug("merged snapshot", "prev", prev, "tree", h, "index_entries", len(idx.Entries))
	return h, nil
}

// loadSnapNode reads tree h as the directory rel, keeping only entries that
// still exist on disk. Duplicate names resolve to the last entry.
func (r *Repo) loadSnapNode(rel string, h object.Hash) (*snapNode, error) {
	tr, err := r.Store.ReadTree(h)
	if err != nil {
		return nil, err
	}
	node := &snapNode{rel: rel, entries: make(map[string]*snapEntry, len(tr.Entries))}
	for name, te := range tr.ByName() {
		p := joinRel(rel, name)
		if _, err := os.Lstat(r.absPath(p)); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				r.log.Debug("dropping deleted entry from snapshot", "path", p)
				continue
			}
			return nil, err
		}
		node.entries[name] = &snapEntry{mode: te.Mode, hash: te.Hash}
	}
	return node, nil
}

// openSnapDir returns the child directory name of parent, loading it from
// the previous snapshot or creating it empty. A file of that name is
// replaced by a directory.
func (r *Repo) openSnapDir(parent *snapNode, name string) (*snapNode, error) {
	rel := joinRel(parent.rel, name)
	e, ok := parent.entries[name]
	if ok && e.child != nil {
		return e.child, nil
	}
	if ok && e.mode == object.TreeModeDir {
		child, err := r.loadSnapNode(rel, e.hash)
		if err != nil {
			return nil, err
		}
		e.child = child
		return child, nil
	}
	child := &snapNode{rel: rel, entries: make(map[string]*snapEntry)}
	parent.entries[name] = &snapEntry{mode: object.TreeModeDir, child: child}
	return child, nil
}

func (r *Repo) writeSnapNode(n *snapNode) (object.Hash, error) {
	names := make([]string, 0, len(n.entries))
	for name := range n.entries {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]object.TreeEntry, 0, len(names))
	for _, name := range names {
		e := n.entries[name]
		if e.child != nil {
			h, err := r.writeSnapNode(e.child)
			if err != nil {
				return "", err
			}
			e.hash = h
		}
		entries = append(entries, object.TreeEntry{Mode: e.mode, Name: name, Hash: e.hash})
	}
	h, err := r.Store.WriteTree(&object.TreeObj{Entries: entries})
	if err != nil {
		return "", fmt.Errorf("write tree %s: %w", displayRel(n.rel), err)
	}
	return h, nil
}
