package object

import (
	"bytes"
	"io"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codecs() []Codec {
	return []Codec{ZlibCodec{}, ZstdCodec{}}
}

func TestCodecRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	random := make([]byte, 2*ChunkSize+123)
	rng.Read(random)

	frames := map[string][]byte{
		"empty blob":  []byte("blob 0\x00"),
		"hello":       []byte("blob 5\x00hello"),
		"repetitive":  append([]byte("blob 300000\x00"), bytes.Repeat([]byte("abc"), 100000)...),
		"random":      random,
		"binary tree": []byte("tree 49\x00100644 x\x00" + string(HashObject(TypeBlob, nil))),
	}
	for _, c := range codecs() {
		for name, frame := range frames {
			t.Run(c.Name()+"/"+name, func(t *testing.T) {
				enc, err := EncodeBytes(c, frame)
				require.NoError(t, err)
				dec, err := DecodeBytes(enc)
				require.NoError(t, err)
				assert.True(t, bytes.Equal(frame, dec), "round-trip mismatch: got %d bytes, want %d", len(dec), len(frame))
			})
		}
	}
}

func TestCodecDeterministic(t *testing.T) {
	frame := append([]byte("blob 4096\x00"), bytes.Repeat([]byte("z"), 4096)...)
	for _, c := range codecs() {
		a, err := EncodeBytes(c, frame)
		require.NoError(t, err, c.Name())
		b, err := EncodeBytes(c, frame)
		require.NoError(t, err, c.Name())
		assert.Equal(t, a, b, "%s encoding is not deterministic", c.Name())
	}
}

// oneByteReader forces Encode to be driven across many small reads.
type oneByteReader struct{ r io.Reader }

func (o oneByteReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	return o.r.Read(p[:1])
}

func TestCodecStreamsAcrossManyCalls(t *testing.T) {
	frame := append([]byte("blob 20000\x00"), bytes.Repeat([]byte("0123456789"), 2000)...)
	var compressed bytes.Buffer
	require.NoError(t, Encode(ZlibCodec{}, &compressed, oneByteReader{bytes.NewReader(frame)}))

	var out bytes.Buffer
	require.NoError(t, Decode(&out, oneByteReader{bytes.NewReader(compressed.Bytes())}))
	assert.Equal(t, frame, out.Bytes())
}

func TestDecodeMalformed(t *testing.T) {
	cases := map[string][]byte{
		"empty":   nil,
		"garbage": []byte("this is not a compressed stream"),
	}
	for name, input := range cases {
		_, err := DecodeBytes(input)
		assert.ErrorIs(t, err, ErrDecompression, name)
	}
}

func TestDecodeTruncated(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	payload := make([]byte, 50000)
	rng.Read(payload)
	enc, err := EncodeBytes(ZlibCodec{}, payload)
	require.NoError(t, err)

	for _, cut := range []int{len(enc) / 2, len(enc) - 2} {
		_, err := DecodeBytes(enc[:cut])
		assert.ErrorIs(t, err, ErrDecompression, "cut at %d/%d", cut, len(enc))
	}
}

func TestCodecByName(t *testing.T) {
	for name, want := range map[string]string{"": CodecZlib, "zlib": CodecZlib, "zstd": CodecZstd} {
		c, err := CodecByName(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, c.Name(), name)
	}
	_, err := CodecByName("lz4")
	assert.Error(t, err)
}
