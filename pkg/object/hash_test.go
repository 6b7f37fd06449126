package object

import (
	"bytes"
	"strings"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashBytesDeterminism(t *testing.T) {
	data := []byte("hello world")
	h := HashBytes(data)
	assert.Equal(t, h, HashBytes(data))
	assert.Len(t, string(h), HashLen)
}

func TestHashObjectFrame(t *testing.T) {
	data := []byte("hello")
	assert.Equal(t, HashBytes([]byte("blob 5\x00hello")), HashObject(TypeBlob, data), "digest covers the full frame")
	assert.Equal(t, Hash("b6fc4c620b67d95f953a5c1c1230aaab5db5a1b0"), HashObject(TypeBlob, data))
	assert.NotEqual(t, HashObject(TypeBlob, data), HashObject(TypeTree, data), "kind is part of the digest")
}

func TestHashObjectMatchesGit(t *testing.T) {
	payloads := [][]byte{
		nil,
		[]byte("hello"),
		[]byte("line one\nline two\n"),
		bytes.Repeat([]byte{0, 1, 2, 0xff}, 5000),
	}
	for _, p := range payloads {
		want := plumbing.ComputeHash(plumbing.BlobObject, p).String()
		assert.Equal(t, want, string(HashObject(TypeBlob, p)), "%d byte payload", len(p))
	}
}

func TestHasherChunkingIndependent(t *testing.T) {
	data := bytes.Repeat([]byte("chunked hashing "), 10000)
	want := HashObject(TypeBlob, data)

	for _, chunk := range []int{1, 7, 4096, ChunkSize, len(data)} {
		h := NewHasher(TypeBlob, int64(len(data)))
		for off := 0; off < len(data); off += chunk {
			end := min(off+chunk, len(data))
			_, err := h.Write(data[off:end])
			require.NoError(t, err)
		}
		assert.Equal(t, want, h.Sum(), "chunk size %d", chunk)
		assert.Equal(t, int64(len(data)), h.Written(), "chunk size %d", chunk)
	}
}

func TestHashReader(t *testing.T) {
	data := []byte("from a reader")
	h, err := HashReader(TypeBlob, int64(len(data)), bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, HashObject(TypeBlob, data), h)

	_, err = HashReader(TypeBlob, 100, bytes.NewReader(data))
	assert.Error(t, err, "short read")
}

func TestParseHash(t *testing.T) {
	valid := strings.Repeat("0a", 20)
	h, err := ParseHash(valid)
	require.NoError(t, err)
	assert.Equal(t, Hash(valid), h)

	for _, bad := range []string{"", "abc", strings.Repeat("A", 40), strings.Repeat("g", 40), strings.Repeat("a", 41)} {
		_, err := ParseHash(bad)
		assert.Error(t, err, "ParseHash(%q)", bad)
	}
}
