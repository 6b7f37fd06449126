package repo

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/odvcencio/grit/pkg/object"
)

const indexFileName = "index"

var (
	ErrMalformedIndex  = errors.New("malformed index")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrOutsideRepo     = errors.New("path is outside the repository")
	ErrPathIgnored     = errors.New("path is ignored")
	ErrUnsupportedFile = errors.New("unsupported file type")
	ErrInvalidPath     = errors.New("path cannot be recorded in the index")
)

// IndexEntry is one staged path.
type IndexEntry struct {
	Kind object.ObjectType // blob or tree
	Hash object.Hash
	Path string // slash-separated, relative to the repository root
}

// Index is the staging ledger stored at .grit/index, one line per path:
//
//	<kind> <hash> <path>
//
// Paths may contain spaces; they run to the end of the line. Paths holding a
// line break are never staged (see validIndexPath).
type Index struct {
	Entries map[string]*IndexEntry
}

// Sorted returns the entries ordered by path.
func (idx *Index) Sorted() []*IndexEntry {
	out := make([]*IndexEntry, 0, len(idx.Entries))
	for _, e := range idx.Entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func (r *Repo) indexPath() string {
	return filepath.Join(r.GritDir, indexFileName)
}

// ReadIndex loads .grit/index. A missing file is an empty index.
func (r *Repo) ReadIndex() (*Index, error) {
	idx := &Index{Entries: make(map[string]*IndexEntry)}

	f, err := os.Open(r.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return idx, nil
		}
		return nil, fmt.Errorf("read index: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}
		e, err := parseIndexLine(line)
		if err != nil {
			return nil, fmt.Errorf("read index: line %d: %w", lineNo, err)
		}
		idx.Entries[e.Path] = e
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	return idx, nil
}

func parseIndexLine(line string) (*IndexEntry, error) {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 || parts[2] == "" {
		return nil, fmt.Errorf("%w: %q", ErrMalformedIndex, line)
	}
	kind := object.ObjectType(parts[0])
	if kind != object.TypeBlob && kind != object.TypeTree {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrMalformedIndex, parts[0])
	}
	h, err := object.ParseHash(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedIndex, err)
	}
	p := cleanRel(parts[2])
	if p == "" || p == ".." || strings.HasPrefix(p, "../") {
		return nil, fmt.Errorf("%w: invalid path %q", ErrMalformedIndex, parts[2])
	}
	return &IndexEntry{Kind: kind, Hash: h, Path: p}, nil
}

// WriteIndex atomically replaces .grit/index. Lines are sorted by path so
// identical staging produces identical bytes.
func (r *Repo) WriteIndex(idx *Index) error {
	var buf bytes.Buffer
	for _, e := range idx.Sorted() {
		fmt.Fprintf(&buf, "%s %s %s\n", e.Kind, e.Hash, e.Path)
	}

	tmp, err := os.CreateTemp(r.GritDir, ".index-tmp-*")
	if err != nil {
		return fmt.Errorf("write index: tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write index: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write index: close: %w", err)
	}
	if err := os.Rename(tmpName, r.indexPath()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write index: rename: %w", err)
	}
	return nil
}

// PathError reports a staging failure for one requested path.
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string { return fmt.Sprintf("%s: %v", e.Path, e.Err) }
func (e *PathError) Unwrap() error { return e.Err }

// StageResult summarizes a Stage call.
type StageResult struct {
	Staged  []string // index paths written or refreshed, in staging order
	Removed []string // index paths dropped because they vanished from disk
	Errors  []*PathError
}

// Err joins the per-path errors, or returns nil when every path staged.
func (res *StageResult) Err() error {
	if len(res.Errors) == 0 {
		return nil
	}
	errs := make([]error, len(res.Errors))
	for i, e := range res.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// Stage records paths in the index. Relative paths are taken from the
// repository root; absolute paths must lie inside it. Files are stored as
// blobs; directories are walked, each file under them staged, and the
// directory itself recorded as a tree. A path that cannot be staged is reported in the result and the
// remaining paths are still processed. After each path, entries whose files
// no longer exist are dropped. The index is rewritten once at the end.
//
// The returned error covers failures that affect the whole operation, such
// as an unreadable or unwritable index.
func (r *Repo) Stage(paths []string) (*StageResult, error) {
	idx, err := r.ReadIndex()
	if err != nil {
		return nil, fmt.Errorf("stage: %w", err)
	}
	ic := r.ignoreChecker()
	res := &StageResult{}

	for _, p := range paths {
		if err := r.stagePath(idx, ic, p, res); err != nil {
			r.log.Warn("cannot stage path", "path", p, "err", err)
			res.Errors = append(res.Errors, &PathError{Path: p, Err: err})
		}
		res.Removed = append(res.Removed, r.dropMissing(idx)...)
	}

	if err := r.WriteIndex(idx); err != nil {
		return res, fmt.Errorf("stage: %w", err)
	}
	r.log.Info("staged paths", "staged", len(res.Staged), "removed", len(res.Removed), "failed", len(res.Errors))
	return res, nil
}

func (r *Repo) stagePath(idx *Index, ic *IgnoreChecker, p string, res *StageResult) error {
	rel, err := r.repoRelPath(p)
	if err != nil {
		return err
	}
	if !validIndexPath(rel) {
		return ErrInvalidPath
	}
	info, err := os.Lstat(r.absPath(rel))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrPathNotFound
		}
		return err
	}

	switch {
	case info.IsDir():
		if ic.IsIgnored(rel, true) {
			return ErrPathIgnored
		}
		h, err := r.writeTreeDir(rel, ic, func(fileRel string, fh object.Hash) {
			idx.Entries[fileRel] = &IndexEntry{Kind: object.TypeBlob, Hash: fh, Path: fileRel}
			res.Staged = append(res.Staged, fileRel)
		})
		if err != nil {
			return err
		}
		if rel != "" {
			idx.Entries[rel] = &IndexEntry{Kind: object.TypeTree, Hash: h, Path: rel}
			res.Staged = append(res.Staged, rel)
		}
		return nil
	case info.Mode().IsRegular():
		if ic.IsIgnored(rel, false) {
			return ErrPathIgnored
		}
		h, err := r.Store.WriteFile(r.absPath(rel))
		if err != nil {
			return err
		}
		idx.Entries[rel] = &IndexEntry{Kind: object.TypeBlob, Hash: h, Path: rel}
		res.Staged = append(res.Staged, rel)
		r.log.Debug("staged file", "path", rel, "hash", h)
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFile, info.Mode().Type())
	}
}

// dropMissing removes index entries whose path no longer exists on disk, or
// now holds a different kind of entry, and returns the removed paths in
// sorted order.
func (r *Repo) dropMissing(idx *Index) []string {
	var removed []string
	for _, e := range idx.Sorted() {
		info, err := os.Lstat(r.absPath(e.Path))
		switch {
		case err != nil && !os.IsNotExist(err):
			continue
		case err == nil && info.IsDir() == (e.Kind == object.TypeTree):
			continue
		}
		delete(idx.Entries, e.Path)
		removed = append(removed, e.Path)
		r.log.Debug("dropped stale path from index", "path", e.Path)
	}
	return removed
}

// PruneIndex drops stale entries from the index without staging anything and
// returns the removed paths.
func (r *Repo) PruneIndex() ([]string, error) {
	idx, err := r.ReadIndex()
	if err != nil {
		return nil, fmt.Errorf("prune index: %w", err)
	}
	removed := r.dropMissing(idx)
	if len(removed) == 0 {
		return nil, nil
	}
	if err := r.WriteIndex(idx); err != nil {
		return nil, fmt.Errorf("prune index: %w", err)
	}
	return removed, nil
}

// repoRelPath converts p into a slash-separated path relative to the
// repository root. Relative paths are joined to the root, not to the process
// working directory. "" names the root itself.
func (r *Repo) repoRelPath(p string) (string, error) {
	abs := p
	if !filepath.IsAbs(p) {
		abs = filepath.Join(r.RootDir, p)
	}
	rel, err := filepath.Rel(r.RootDir, abs)
	if err != nil {
		return "", fmt.Errorf("cannot make %q relative to %q: %w", p, r.RootDir, err)
	}
	if escapesRoot(rel) {
		return "", ErrOutsideRepo
	}
	return cleanRel(rel), nil
}

// validIndexPath reports whether rel survives a round trip through the
// line-oriented index. The reader splits on '\n' and strips a trailing '\r'.
func validIndexPath(rel string) bool {
	return !strings.ContainsAny(rel, "\n\r")
}

func escapesRoot(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
