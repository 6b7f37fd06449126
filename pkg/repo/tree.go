package repo

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/odvcencio/grit/pkg/object"
)

// ErrNotATree is returned when a digest expected to name a tree names some
// other kind of object.
var ErrNotATree = errors.New("not a tree object")

// TreeFileEntry is a file found by FlattenTree.
type TreeFileEntry struct {
	Path string
	Hash object.Hash
}

// BuildTree snapshots the working directory below relDir ("" for the
// repository root) into the object store and returns the root tree digest.
// Every regular file is stored as a blob; subdirectories recurse. Ignored
// paths and non-regular files are skipped.
func (r *Repo) BuildTree(relDir string) (object.Hash, error) {
	relDir = cleanRel(relDir)
	info, err := os.Stat(r.absPath(relDir))
	if err != nil {
		return "", fmt.Errorf("build tree: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("build tree: %s: not a directory", relDir)
	}
	h, err := r.writeTreeDir(relDir, r.ignoreChecker(), nil)
	if err != nil {
		return "", fmt.Errorf("build tree: %w", err)
	}
	return h, nil
}

// writeTreeDir writes the tree for relDir bottom-up. visit, when non-nil,
// is called for every blob written. Names with a line break are left out so
// trees and the index always describe the same set of paths.
func (r *Repo) writeTreeDir(relDir string, ic *IgnoreChecker, visit func(relPath string, h object.Hash)) (object.Hash, error) {
	dirEntries, err := os.ReadDir(r.absPath(relDir))
	if err != nil {
		return "", err
	}

	entries := make([]object.TreeEntry, 0, len(dirEntries))
	for _, de := range dirEntries {
		name := de.Name()
		rel := joinRel(relDir, name)

		switch {
		case !validIndexPath(name):
			r.log.Warn("skipping path with line break in name", "path", rel)
		case de.IsDir():
			if ic.IsIgnored(rel, true) {
				continue
			}
			sub, err := r.writeTreeDir(rel, ic, visit)
			if err != nil {
				return "", err
			}
			entries = append(entries, object.TreeEntry{Mode: object.TreeModeDir, Name: name, Hash: sub})
		case de.Type().IsRegular():
			if ic.IsIgnored(rel, false) {
				continue
			}
			h, err := r.Store.WriteFile(r.absPath(rel))
			if err != nil {
				return "", err
			}
			if visit != nil {
				visit(rel, h)
			}
			entries = append(entries, object.TreeEntry{Mode: object.TreeModeFile, Name: name, Hash: h})
		default:
			r.log.Warn("skipping non-regular file", "path", rel, "mode", de.Type().String())
		}
	}

	object.SortEntries(entries)
	h, err := r.Store.WriteTree(&object.TreeObj{Entries: entries})
	if err != nil {
		return "", fmt.Errorf("write tree %s: %w", displayRel(relDir), err)
	}
	r.log.Debug("wrote tree", "dir", displayRel(relDir), "hash", h, "entries", len(entries))
	return h, nil
}

// ListTree returns the entries of tree h in stored order. With recursive set
// it returns every blob below h, named by its slash-separated path.
func (r *Repo) ListTree(h object.Hash, recursive bool) ([]object.TreeEntry, error) {
	if err := r.requireTree(h); err != nil {
		return nil, fmt.Errorf("list tree: %w", err)
	}
	if !recursive {
		tr, err := r.Store.ReadTree(h)
		if err != nil {
			return nil, fmt.Errorf("list tree: %w", err)
		}
		return tr.Entries, nil
	}

	files, err := r.FlattenTree(h)
	if err != nil {
		return nil, fmt.Errorf("list tree: %w", err)
	}
	out := make([]object.TreeEntry, len(files))
	for i, f := range files {
		out[i] = object.TreeEntry{Mode: object.TreeModeFile, Name: f.Path, Hash: f.Hash}
	}
	return out, nil
}

// FlattenTree walks h depth-first and returns every blob with its full path.
func (r *Repo) FlattenTree(h object.Hash) ([]TreeFileEntry, error) {
	return r.flattenTreeRec(h, "")
}

func (r *Repo) flattenTreeRec(h object.Hash, prefix string) ([]TreeFileEntry, error) {
	treeObj, err := r.Store.ReadTree(h)
	if err != nil {
		return nil, fmt.Errorf("flatten tree: read %s: %w", h, err)
	}

	var result []TreeFileEntry
	for _, entry := range treeObj.Entries {
		fullPath := entry.Name
		if prefix != "" {
			fullPath = path.Join(prefix, entry.Name)
		}

		if entry.IsDir() {
			sub, err := r.flattenTreeRec(entry.Hash, fullPath)
			if err != nil {
				return nil, err
			}
			result = append(result, sub...)
			continue
		}
		result = append(result, TreeFileEntry{Path: fullPath, Hash: entry.Hash})
	}
	return result, nil
}

func (r *Repo) requireTree(h object.Hash) error {
	t, _, err := r.Store.Stat(h)
	if err != nil {
		return err
	}
	if t != object.TypeTree {
		return fmt.Errorf("%s: %w (found %s)", h, ErrNotATree, t)
	}
	return nil
}

func (r *Repo) ignoreChecker() *IgnoreChecker {
	return NewIgnoreChecker(r.RootDir, r.log)
}

// absPath converts a slash-separated repository-relative path to a
// filesystem path.
func (r *Repo) absPath(rel string) string {
	if rel == "" {
		return r.RootDir
	}
	return filepath.Join(r.RootDir, filepath.FromSlash(rel))
}

func cleanRel(rel string) string {
	rel = path.Clean(filepath.ToSlash(rel))
	if rel == "." || rel == "/" {
		return ""
	}
	return rel
}

func joinRel(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

func displayRel(rel string) string {
	if rel == "" {
		return "."
	}
	return rel
}
