package object

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
)

// VerifySummary reports the outcome of Store.Verify.
type VerifySummary struct {
	Objects int
	ByType  map[ObjectType]int
	// Corrupt maps each object that failed to re-hash to its error.
	Corrupt map[Hash]error
}

// Verify re-reads every stored object and checks that its frame hashes to
// the name it is stored under. Every object is visited; the returned error
// joins the failures recorded in Corrupt.
func (s *Store) Verify() (*VerifySummary, error) {
	hashes, err := s.listObjectHashes()
	if err != nil {
		return nil, err
	}

	report := &VerifySummary{
		ByType:  make(map[ObjectType]int),
		Corrupt: make(map[Hash]error),
	}
	var errs []error
	for _, h := range hashes {
		objType, err := s.verifyObject(h)
		if err != nil {
			err = fmt.Errorf("verify %s: %w", h, err)
			report.Corrupt[h] = err
			errs = append(errs, err)
			s.log.Warn("corrupt object", "hash", h, "err", err)
			continue
		}
		report.Objects++
		report.ByType[objType]++
	}
	return report, errors.Join(errs...)
}

func (s *Store) verifyObject(h Hash) (ObjectType, error) {
	or, err := s.Open(h)
	if err != nil {
		return "", err
	}
	defer or.Close()

	hasher := NewHasher(or.Type, or.Size)
	if _, err := io.CopyBuffer(hasher, or, make([]byte, ChunkSize)); err != nil {
		return "", err
	}
	if err := or.checkEnd(); err != nil {
		return "", err
	}
	if got := hasher.Sum(); got != h {
		return "", fmt.Errorf("%w: content hashes to %s", ErrCorruptObject, got)
	}
	return or.Type, nil
}

// listObjectHashes returns the names of all loose objects, sorted. Files
// that do not fit the xx/38hex layout (temp files, strays) are ignored.
func (s *Store) listObjectHashes() ([]Hash, error) {
	objectsDir := filepath.Join(s.root, "objects")
	var hashes []Hash
	err := filepath.WalkDir(objectsDir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if p == objectsDir && errors.Is(walkErr, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return walkErr
		}
		if d.IsDir() {
			if p != objectsDir && filepath.Dir(p) != objectsDir {
				return fs.SkipDir
			}
			return nil
		}
		h, err := ParseHash(filepath.Base(filepath.Dir(p)) + d.Name())
		if err == nil && s.objectPath(h) == p {
			hashes = append(hashes, h)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}
	sort.Slice(hashes, func(i, j int) bool { return hashes[i] < hashes[j] })
	return hashes, nil
}
