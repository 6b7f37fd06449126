package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/odvcencio/grit/pkg/object"
)

var (
	ErrRepoExists = errors.New("repository already exists")
	ErrNotARepo   = errors.New("not a grit repository")
)

// DefaultBranch is the branch HEAD points at after Init.
const DefaultBranch = "main"

var layoutDirs = []string{
	"objects",
	filepath.Join("refs", "heads"),
	filepath.Join("logs", "refs", "heads"),
}

// Init lays out a fresh .grit directory under path: the object store, an
// empty branch namespace, HEAD pointing at DefaultBranch and a config.toml
// with defaults. An existing .grit is never touched.
func Init(path string, opts ...Option) (*Repo, error) {
	o := buildOptions(opts)
	root, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}
	gritDir := filepath.Join(root, MetaDir)
	if _, err := os.Lstat(gritDir); err == nil {
		return nil, fmt.Errorf("init: %w at %s", ErrRepoExists, gritDir)
	}

	for _, d := range layoutDirs {
		if err := os.MkdirAll(filepath.Join(gritDir, d), 0o755); err != nil {
			return nil, fmt.Errorf("init: %w", err)
		}
	}
	head := []byte(symbolicRefPrefix + "refs/heads/" + DefaultBranch + "\n")
	if err := os.WriteFile(filepath.Join(gritDir, "HEAD"), head, 0o644); err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}
	if err := writeConfigFile(filepath.Join(gritDir, configFileName), DefaultConfig()); err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}

	r, err := newRepo(root, gritDir, o)
	if err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}
	o.log.Info("initialized repository", "dir", gritDir)
	return r, nil
}

// Open opens the repository containing path, which may be any directory
// inside the working tree.
func Open(path string, opts ...Option) (*Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	root, ok := findRoot(abs)
	if !ok {
		return nil, fmt.Errorf("open %s: %w", abs, ErrNotARepo)
	}
	r, err := newRepo(root, filepath.Join(root, MetaDir), buildOptions(opts))
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	return r, nil
}

// findRoot walks from dir towards the filesystem root and returns the first
// directory holding a .grit directory.
func findRoot(dir string) (string, bool) {
	for {
		if info, err := os.Stat(filepath.Join(dir, MetaDir)); err == nil && info.IsDir() {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// newRepo wires the object store to the codec named in config.toml.
func newRepo(root, gritDir string, o options) (*Repo, error) {
	cfg, err := readConfigFile(filepath.Join(gritDir, configFileName))
	if err != nil {
		return nil, err
	}
	codec, err := object.CodecByName(cfg.Core.Compression)
	if err != nil {
		return nil, fmt.Errorf("config core.compression: %w", err)
	}
	return &Repo{
		RootDir: root,
		GritDir: gritDir,
		Store:   object.NewStore(gritDir, object.WithCodec(codec), object.WithLogger(o.log)),
		log:     o.log,
	}, nil
}
