package object

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// ChunkSize is the buffer size used for every streaming copy.
const ChunkSize = 64 * 1024

// Codec compresses object frames for storage.
type Codec interface {
	Name() string
	NewWriter(w io.Writer) (io.WriteCloser, error)
	NewReader(r io.Reader) (io.ReadCloser, error)
}

// Codec names accepted by CodecByName.
const (
	CodecZlib = "zlib"
	CodecZstd = "zstd"
)

// CodecByName returns the codec registered under name. An empty name selects
// zlib.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", CodecZlib:
		return ZlibCodec{}, nil
	case CodecZstd:
		return ZstdCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}

// ZlibCodec writes zlib streams at maximum compression.
type ZlibCodec struct{}

func (ZlibCodec) Name() string { return CodecZlib }

func (ZlibCodec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	zw, err := zlib.NewWriterLevel(w, zlib.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("%w: zlib writer: %v", ErrCompression, err)
	}
	return zw, nil
}

func (ZlibCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	zr, err := zlib.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: zlib header: %v", ErrDecompression, err)
	}
	return zr, nil
}

// ZstdCodec writes single-threaded zstd streams at the strongest preset.
type ZstdCodec struct{}

func (ZstdCodec) Name() string { return CodecZstd }

func (ZstdCodec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	enc, err := zstd.NewWriter(w,
		zstd.WithEncoderLevel(zstd.SpeedBestCompression),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: zstd writer: %v", ErrCompression, err)
	}
	return enc, nil
}

func (ZstdCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("%w: zstd header: %v", ErrDecompression, err)
	}
	return &zstdReadCloser{dec: dec}, nil
}

type zstdReadCloser struct {
	dec *zstd.Decoder
}

func (z *zstdReadCloser) Read(p []byte) (int, error) {
	return z.dec.Read(p)
}

func (z *zstdReadCloser) Close() error {
	z.dec.Close()
	return nil
}

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// detectCodec peeks at the stream magic. Anything that is not zstd is handed
// to zlib, which reports malformed input itself.
func detectCodec(br *bufio.Reader) Codec {
	magic, _ := br.Peek(len(zstdMagic))
	if bytes.Equal(magic, zstdMagic) {
		return ZstdCodec{}
	}
	return ZlibCodec{}
}

// NewDecoder wraps r with whichever codec produced it.
func NewDecoder(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReaderSize(r, ChunkSize)
	return detectCodec(br).NewReader(br)
}

// Encode compresses src into dst with c, ChunkSize bytes at a time.
func Encode(c Codec, dst io.Writer, src io.Reader) error {
	w, err := c.NewWriter(dst)
	if err != nil {
		return err
	}
	buf := make([]byte, ChunkSize)
	if _, err := io.CopyBuffer(w, src, buf); err != nil {
		w.Close()
		return fmt.Errorf("%w: %v", ErrCompression, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("%w: flush: %v", ErrCompression, err)
	}
	return nil
}

// Decode decompresses src into dst, auto-detecting the codec.
func Decode(dst io.Writer, src io.Reader) error {
	r, err := NewDecoder(src)
	if err != nil {
		return err
	}
	defer r.Close()
	buf := make([]byte, ChunkSize)
	if _, err := io.CopyBuffer(dst, decodeErrReader{r}, buf); err != nil {
		return err
	}
	return nil
}

// decodeErrReader tags read failures from a decompressor as ErrDecompression
// so callers can tell them apart from write-side failures.
type decodeErrReader struct {
	r io.Reader
}

func (d decodeErrReader) Read(p []byte) (int, error) {
	n, err := d.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return n, fmt.Errorf("%w: truncated stream", ErrDecompression)
		}
		return n, fmt.Errorf("%w: %v", ErrDecompression, err)
	}
	return n, err
}

// EncodeBytes is a convenience wrapper over Encode.
func EncodeBytes(c Codec, frame []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(c, &buf, bytes.NewReader(frame)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeBytes is a convenience wrapper over Decode.
func DecodeBytes(compressed []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := Decode(&buf, bytes.NewReader(compressed)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
