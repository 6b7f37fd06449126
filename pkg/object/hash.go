package object

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strconv"
)

// Hasher computes an object digest incrementally. The frame header is
// absorbed on construction; payload bytes may then be written in chunks of
// any size.
type Hasher struct {
	h       hash.Hash
	written int64
}

// NewHasher returns a Hasher primed with the "type size\0" header.
func NewHasher(objType ObjectType, size int64) *Hasher {
	h := sha1.New()
	h.Write(frameHeader(objType, size))
	return &Hasher{h: h}
}

// Write feeds payload bytes. It never returns an error.
func (h *Hasher) Write(p []byte) (int, error) {
	n, _ := h.h.Write(p)
	h.written += int64(n)
	return n, nil
}

// Written returns the number of payload bytes absorbed so far.
func (h *Hasher) Written() int64 {
	return h.written
}

// Sum returns the hex digest of everything written so far.
func (h *Hasher) Sum() Hash {
	return Hash(hex.EncodeToString(h.h.Sum(nil)))
}

// HashBytes computes the raw SHA-1 of data, with no framing.
func HashBytes(data []byte) Hash {
	sum := sha1.Sum(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// HashObject computes the SHA-1 of the frame "type len\0content".
func HashObject(objType ObjectType, data []byte) Hash {
	h := NewHasher(objType, int64(len(data)))
	h.Write(data)
	return h.Sum()
}

// HashReader streams exactly size payload bytes from r through the hasher.
func HashReader(objType ObjectType, size int64, r io.Reader) (Hash, error) {
	h := NewHasher(objType, size)
	buf := make([]byte, ChunkSize)
	n, err := io.CopyBuffer(h, io.LimitReader(r, size), buf)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", objType, err)
	}
	if n != size {
		return "", fmt.Errorf("hash %s: short read (want %d bytes, got %d)", objType, size, n)
	}
	return h.Sum(), nil
}

// ParseHash validates a 40-character lowercase hex digest.
func ParseHash(s string) (Hash, error) {
	if len(s) != HashLen {
		return "", fmt.Errorf("invalid hash %q: want %d hex characters", s, HashLen)
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return "", fmt.Errorf("invalid hash %q: non-hex character at %d", s, i)
		}
	}
	return Hash(s), nil
}

func frameHeader(objType ObjectType, size int64) []byte {
	b := make([]byte, 0, len(objType)+21)
	b = append(b, objType...)
	b = append(b, ' ')
	b = strconv.AppendInt(b, size, 10)
	return append(b, 0)
}
