package object

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/exp/mmap"
)

// openFileSection maps a regular file read-only and returns a sequential
// reader over it together with its length.
func openFileSection(path string) (*io.SectionReader, *mmap.ReaderAt, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, nil, fmt.Errorf("%s: not a regular file", path)
	}
	ra, err := mmap.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return io.NewSectionReader(ra, 0, int64(ra.Len())), ra, nil
}

// HashFile returns the blob digest of the file at path without storing it.
func HashFile(path string) (Hash, error) {
	sec, ra, err := openFileSection(path)
	if err != nil {
		return "", fmt.Errorf("hash file: %w", err)
	}
	defer ra.Close()
	h, err := HashReader(TypeBlob, sec.Size(), sec)
	if err != nil {
		return "", fmt.Errorf("hash file %s: %w", path, err)
	}
	return h, nil
}

// WriteFile stores the file at path as a blob and returns its digest.
func (s *Store) WriteFile(path string) (Hash, error) {
	sec, ra, err := openFileSection(path)
	if err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	defer ra.Close()
	h, err := s.WriteStream(TypeBlob, sec.Size(), sec)
	if err != nil {
		return h, fmt.Errorf("write file %s: %w", path, err)
	}
	return h, nil
}
