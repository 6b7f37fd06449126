package object

import "errors"

var (
	// ErrObjectNotFound is returned when no object file exists for a digest.
	ErrObjectNotFound = errors.New("object not found")
	// ErrCorruptObject is returned when a decompressed object fails
	// structural validation (bad header, length mismatch, digest mismatch).
	ErrCorruptObject = errors.New("corrupt object")
	// ErrMalformedTree is returned when a tree payload cannot be parsed.
	ErrMalformedTree = errors.New("malformed tree")
	// ErrCompression is returned when the encoder fails.
	ErrCompression = errors.New("compression failed")
	// ErrDecompression is returned for malformed or truncated compressed input.
	ErrDecompression = errors.New("decompression failed")
	// ErrTypeMismatch is returned by typed reads when the stored kind differs.
	ErrTypeMismatch = errors.New("object type mismatch")
)
