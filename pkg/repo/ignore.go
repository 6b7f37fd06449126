package repo

import (
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/denormal/go-gitignore"

	"github.com/odvcencio/grit/pkg/logging"
)

// IgnoreFileName is the per-repository ignore file read from the root.
const IgnoreFileName = ".gritignore"

// IgnoreChecker determines if a repository-relative path should be skipped
// when snapshotting or staging. .grit and .git are always ignored.
type IgnoreChecker struct {
	matcher gitignore.GitIgnore
}

// NewIgnoreChecker loads .gritignore from repoRoot if it exists. Pattern
// errors are logged and the offending line is skipped.
func NewIgnoreChecker(repoRoot string, log logging.Logger) *IgnoreChecker {
	if log == nil {
		log = logging.Nop()
	}
	ic := &IgnoreChecker{}

	f, err := os.Open(filepath.Join(repoRoot, IgnoreFileName))
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("cannot read ignore file", "path", IgnoreFileName, "err", err)
		}
		return ic
	}
	defer f.Close()

	ic.matcher = gitignore.New(f, repoRoot, func(e gitignore.Error) bool {
		log.Warn("invalid ignore pattern", "file", IgnoreFileName, "err", e.Error())
		return true
	})
	return ic
}

// IsIgnored reports whether relPath (slash-separated, relative to the root)
// or any of its parent directories is ignored. isDir describes relPath
// itself.
func (ic *IgnoreChecker) IsIgnored(relPath string, isDir bool) bool {
	relPath = strings.Trim(filepath.ToSlash(relPath), "/")
	if relPath == "" || relPath == "." {
		return false
	}
	parts := strings.Split(relPath, "/")
	for i, part := range parts {
		if part == MetaDir || part == ".git" {
			return true
		}
		if ic.matcher == nil {
			continue
		}
		last := i == len(parts)-1
		prefix := strings.Join(parts[:i+1], "/")
		if m := ic.matcher.Relative(filepath.FromSlash(prefix), !last || isDir); m != nil && m.Ignore() {
			return true
		}
	}
	return false
}
