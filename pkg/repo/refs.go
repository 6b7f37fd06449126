package repo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/odvcencio/grit/pkg/object"
)

var (
	ErrRefCASMismatch = errors.New("ref compare-and-swap mismatch")
	// ErrReflogAppend is returned alongside the underlying cause when the ref
	// itself was moved but its reflog line could not be written.
	ErrReflogAppend = errors.New("ref updated but reflog append failed")
)

const symbolicRefPrefix = "ref: "

const (
	lockPollInterval = 5 * time.Millisecond
	lockTimeout      = 2 * time.Second
)

// Ref is a named pointer under .grit/refs.
type Ref struct {
	Name string // full name, e.g. "refs/heads/main"
	Hash object.Hash
}

// Head returns the symbolic target of HEAD ("refs/heads/main") or, when HEAD
// is detached, the commit hash it holds.
func (r *Repo) Head() (string, error) {
	data, err := os.ReadFile(filepath.Join(r.GritDir, "HEAD"))
	if err != nil {
		return "", fmt.Errorf("head: %w", err)
	}
	content := strings.TrimSpace(string(data))
	if target, ok := strings.CutPrefix(content, symbolicRefPrefix); ok {
		return target, nil
	}
	return content, nil
}

// ResolveRef turns a name into an object hash. It accepts "HEAD", a full ref
// name ("refs/heads/main"), a short branch name ("main") and finally a full
// hex digest, which resolves to itself when no ref of that name exists.
// A ref that does not exist yet yields an error wrapping os.ErrNotExist.
func (r *Repo) ResolveRef(name string) (object.Hash, error) {
	if name == "HEAD" {
		head, err := r.Head()
		if err != nil {
			return "", err
		}
		if !strings.HasPrefix(head, "refs/") {
			return object.Hash(head), nil
		}
		name = head
	}

	full := name
	if !strings.HasPrefix(full, "refs/") {
		full = "refs/heads/" + name
	}
	data, err := os.ReadFile(filepath.Join(r.GritDir, filepath.FromSlash(full)))
	switch {
	case err == nil:
		return object.Hash(strings.TrimSpace(string(data))), nil
	case errors.Is(err, fs.ErrNotExist):
		if h, perr := object.ParseHash(name); perr == nil {
			return h, nil
		}
	}
	return "", fmt.Errorf("resolve ref %q: %w", name, err)
}

// UpdateRef points name at h unconditionally.
func (r *Repo) UpdateRef(name string, h object.Hash) error {
	return r.updateRef(refUpdate{name: name, next: h, reason: "update"})
}

// UpdateRefCAS points name at h only if it currently holds expected. An
// empty expected means the ref must not exist yet.
func (r *Repo) UpdateRefCAS(name string, h, expected object.Hash) error {
	return r.updateRef(refUpdate{name: name, next: h, expected: &expected, reason: "update"})
}

type refUpdate struct {
	name     string
	next     object.Hash
	expected *object.Hash // nil skips the compare
	reason   string
}

// updateRef moves a ref under its lock file. The new value becomes visible
// through a rename, so readers see either the old or the new hash. A failed
// reflog append leaves the ref moved and reports ErrReflogAppend.
func (r *Repo) updateRef(u refUpdate) error {
	path := filepath.Join(r.GritDir, filepath.FromSlash(u.name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("update ref %q: %w", u.name, err)
	}

	lock, err := lockRef(path)
	if err != nil {
		return fmt.Errorf("update ref %q: %w", u.name, err)
	}
	defer lock.release()

	prev, err := readRefHash(path)
	if err != nil {
		return fmt.Errorf("update ref %q: %w", u.name, err)
	}
	if u.expected != nil && prev != *u.expected {
		return fmt.Errorf("update ref %q: %w: want %q, have %q", u.name, ErrRefCASMismatch, *u.expected, prev)
	}
	if err := lock.commit(u.next); err != nil {
		return fmt.Errorf("update ref %q: %w", u.name, err)
	}
	r.log.Debug("updated ref", "ref", u.name, "old", prev, "new", u.next)

	if err := r.appendReflog(u.name, prev, u.next, u.reason); err != nil {
		return fmt.Errorf("update ref %q: %w: %w", u.name, ErrReflogAppend, err)
	}
	return nil
}

// refLock is an exclusively created "<ref>.lock" file. commit renames it over
// the ref; release removes it if commit never happened.
type refLock struct {
	target string
	f      *os.File
	done   bool
}

func lockRef(target string) (*refLock, error) {
	lockPath := target + ".lock"
	deadline := time.Now().Add(lockTimeout)
	for {
		f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return &refLock{target: target, f: f}, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, err
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("lock %s: timed out", lockPath)
		}
		time.Sleep(lockPollInterval)
	}
}

func (l *refLock) commit(h object.Hash) error {
	if _, err := l.f.WriteString(string(h) + "\n"); err != nil {
		return err
	}
	if err := l.f.Sync(); err != nil {
		return err
	}
	if err := l.f.Close(); err != nil {
		return err
	}
	if err := os.Rename(l.f.Name(), l.target); err != nil {
		return err
	}
	l.done = true
	return nil
}

func (l *refLock) release() {
	if l.done {
		return
	}
	_ = l.f.Close()
	_ = os.Remove(l.f.Name())
}

// readRefHash returns "" for a ref that does not exist.
func readRefHash(path string) (object.Hash, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return object.Hash(strings.TrimSpace(string(data))), nil
}

// ListRefs returns every ref whose full name starts with prefix ("" for
// all), sorted by name. Lock files left by interrupted updates are skipped.
func (r *Repo) ListRefs(prefix string) ([]Ref, error) {
	var refs []Ref
	err := filepath.WalkDir(filepath.Join(r.GritDir, "refs"), func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || strings.HasSuffix(d.Name(), ".lock") {
			return nil
		}

		rel, err := filepath.Rel(r.GritDir, p)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if !strings.HasPrefix(name, prefix) {
			return nil
		}
		h, err := readRefHash(p)
		if err != nil {
			return err
		}
		refs = append(refs, Ref{Name: name, Hash: h})
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("list refs: %w", err)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })
	return refs, nil
}
