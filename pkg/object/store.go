package object

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/odvcencio/grit/pkg/logging"
)

// maxHeaderLen bounds the "type size" prefix read before the NUL.
const maxHeaderLen = 32

// Store is a content-addressed object store with a 2-character fan-out
// directory layout: objects/ab/cdef0123...
type Store struct {
	root  string
	codec Codec
	log   logging.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithCodec selects the codec used for new writes. Reads always detect the
// codec from the stored stream.
func WithCodec(c Codec) StoreOption {
	return func(s *Store) {
		if c != nil {
			s.codec = c
		}
	}
}

// WithLogger attaches a logger to the store.
func WithLogger(l logging.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// NewStore creates a Store rooted at the given directory. The objects/
// subdirectory is created lazily on first write.
func NewStore(root string, opts ...StoreOption) *Store {
	s := &Store{root: root, codec: ZlibCodec{}, log: logging.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Codec returns the codec used for writes.
func (s *Store) Codec() Codec {
	return s.codec
}

// objectPath returns the filesystem path for a given hash.
func (s *Store) objectPath(h Hash) string {
	return filepath.Join(s.root, "objects", string(h[:2]), string(h[2:]))
}

// Has reports whether the store contains an object with the given hash.
func (s *Store) Has(h Hash) bool {
	if _, err := ParseHash(string(h)); err != nil {
		return false
	}
	_, err := os.Stat(s.objectPath(h))
	return err == nil
}

// Write stores an object and returns its content hash.
func (s *Store) Write(objType ObjectType, data []byte) (Hash, error) {
	// Fast path: already exists.
	if h := HashObject(objType, data); objType.Valid() && s.Has(h) {
		return h, nil
	}
	return s.WriteStream(objType, int64(len(data)), bytes.NewReader(data))
}

// WriteStream frames, hashes and compresses exactly size payload bytes from
// r. The frame is compressed into a temp file as it is hashed and renamed
// into place once the digest is known, so the payload is never held in
// memory.
//
// The digest depends only on content, so it is returned whenever the payload
// could be read in full, even if the physical write failed. In that case the
// write error is returned alongside it.
func (s *Store) WriteStream(objType ObjectType, size int64, r io.Reader) (Hash, error) {
	if !objType.Valid() {
		return "", fmt.Errorf("object write: invalid type %q", objType)
	}
	if size < 0 {
		return "", fmt.Errorf("object write: negative size %d", size)
	}

	hasher := NewHasher(objType, size)
	sink, writeErr := s.newTempSink()
	if writeErr == nil {
		if _, err := sink.enc.Write(frameHeader(objType, size)); err != nil {
			writeErr = err
		}
	}

	buf := make([]byte, ChunkSize)
	src := io.LimitReader(r, size)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			hasher.Write(buf[:n])
			if writeErr == nil {
				if _, werr := sink.enc.Write(buf[:n]); werr != nil {
					writeErr = werr
				}
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			sink.discard()
			return "", fmt.Errorf("object write: read payload: %w", err)
		}
	}
	if hasher.Written() != size {
		sink.discard()
		return "", fmt.Errorf("object write: short payload (want %d bytes, got %d)", size, hasher.Written())
	}

	h := hasher.Sum()
	if writeErr != nil {
		sink.discard()
		return h, fmt.Errorf("object write %s: %w", h, writeErr)
	}
	if err := s.commitSink(sink, h); err != nil {
		return h, fmt.Errorf("object write %s: %w", h, err)
	}
	s.log.Debug("object written", "hash", h, "type", objType, "size", size)
	return h, nil
}

type tempSink struct {
	file *os.File
	enc  io.WriteCloser
}

func (t *tempSink) discard() {
	if t == nil {
		return
	}
	t.enc.Close()
	t.file.Close()
	os.Remove(t.file.Name())
}

func (s *Store) newTempSink() (*tempSink, error) {
	dir := filepath.Join(s.root, "objects")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("tmpfile: %w", err)
	}
	enc, err := s.codec.NewWriter(tmp)
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, err
	}
	return &tempSink{file: tmp, enc: enc}, nil
}

func (s *Store) commitSink(t *tempSink, h Hash) error {
	tmpName := t.file.Name()
	if err := t.enc.Close(); err != nil {
		t.file.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: flush: %v", ErrCompression, err)
	}
	if err := t.file.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close: %w", err)
	}

	if s.Has(h) {
		os.Remove(tmpName)
		return nil
	}
	if err := os.MkdirAll(filepath.Join(s.root, "objects", string(h[:2])), 0o755); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("mkdir: %w", err)
	}
	if err := os.Rename(tmpName, s.objectPath(h)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// ObjectReader streams the payload of a stored object.
type ObjectReader struct {
	Type ObjectType
	Size int64

	file      *os.File
	dec       io.ReadCloser
	br        *bufio.Reader
	remaining int64
	hash      Hash
}

// Read implements io.Reader over the payload. A stream that ends before the
// declared size is reported as ErrCorruptObject.
func (o *ObjectReader) Read(p []byte) (int, error) {
	if o.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > o.remaining {
		p = p[:o.remaining]
	}
	n, err := o.br.Read(p)
	o.remaining -= int64(n)
	if errors.Is(err, io.EOF) && o.remaining > 0 {
		return n, fmt.Errorf("object read %s: %w: payload shorter than declared size %d", o.hash, ErrCorruptObject, o.Size)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return n, fmt.Errorf("object read %s: %w", o.hash, err)
	}
	return n, nil
}

// checkEnd verifies nothing follows the declared payload and lets the
// decompressor validate its trailer.
func (o *ObjectReader) checkEnd() error {
	var one [1]byte
	n, err := io.ReadFull(o.br, one[:])
	if n > 0 {
		return fmt.Errorf("object read %s: %w: payload longer than declared size %d", o.hash, ErrCorruptObject, o.Size)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("object read %s: %w", o.hash, err)
	}
	return nil
}

// Close releases the decompressor and the underlying file.
func (o *ObjectReader) Close() error {
	o.dec.Close()
	return o.file.Close()
}

// Open locates and decompresses an object and parses its header. The payload
// is left unread for the caller to stream.
func (s *Store) Open(h Hash) (*ObjectReader, error) {
	if _, err := ParseHash(string(h)); err != nil {
		return nil, fmt.Errorf("object read: %w", err)
	}
	f, err := os.Open(s.objectPath(h))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("object read %s: %w", h, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("object read %s: %w", h, err)
	}
	dec, err := NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("object read %s: %w", h, err)
	}
	br := bufio.NewReaderSize(decodeErrReader{dec}, ChunkSize)

	objType, size, err := readHeader(br)
	if err != nil {
		dec.Close()
		f.Close()
		return nil, fmt.Errorf("object read %s: %w", h, err)
	}
	return &ObjectReader{
		Type:      objType,
		Size:      size,
		file:      f,
		dec:       dec,
		br:        br,
		remaining: size,
		hash:      h,
	}, nil
}

// readHeader consumes "type size\0" from br.
func readHeader(br *bufio.Reader) (ObjectType, int64, error) {
	header := make([]byte, 0, maxHeaderLen)
	for {
		c, err := br.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", 0, fmt.Errorf("%w: header not terminated", ErrCorruptObject)
			}
			return "", 0, err
		}
		if c == 0 {
			break
		}
		if len(header) == maxHeaderLen {
			return "", 0, fmt.Errorf("%w: header exceeds %d bytes", ErrCorruptObject, maxHeaderLen)
		}
		header = append(header, c)
	}

	sp := bytes.IndexByte(header, ' ')
	if sp < 0 {
		return "", 0, fmt.Errorf("%w: invalid header %q", ErrCorruptObject, header)
	}
	objType := ObjectType(header[:sp])
	if !objType.Valid() {
		return "", 0, fmt.Errorf("%w: unknown type %q", ErrCorruptObject, objType)
	}
	digits := header[sp+1:]
	if len(digits) == 0 {
		return "", 0, fmt.Errorf("%w: missing length in header %q", ErrCorruptObject, header)
	}
	for _, d := range digits {
		if d < '0' || d > '9' {
			return "", 0, fmt.Errorf("%w: invalid length %q", ErrCorruptObject, digits)
		}
	}
	size, err := strconv.ParseInt(string(digits), 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("%w: invalid length %q: %v", ErrCorruptObject, digits, err)
	}
	return objType, size, nil
}

// Stat returns an object's type and declared size without reading the
// payload.
func (s *Store) Stat(h Hash) (ObjectType, int64, error) {
	or, err := s.Open(h)
	if err != nil {
		return "", 0, err
	}
	defer or.Close()
	return or.Type, or.Size, nil
}

// Read retrieves an object by hash, returning its type and raw content.
func (s *Store) Read(h Hash) (ObjectType, []byte, error) {
	or, err := s.Open(h)
	if err != nil {
		return "", nil, err
	}
	defer or.Close()

	var buf bytes.Buffer
	if or.Size <= 1<<24 {
		buf.Grow(int(or.Size))
	}
	if _, err := io.CopyBuffer(&buf, or, make([]byte, ChunkSize)); err != nil {
		return "", nil, err
	}
	if err := or.checkEnd(); err != nil {
		return "", nil, err
	}
	return or.Type, buf.Bytes(), nil
}

// ---------------------------------------------------------------------------
// Typed convenience methods
// ---------------------------------------------------------------------------

func (s *Store) readTyped(h Hash, want ObjectType) ([]byte, error) {
	objType, data, err := s.Read(h)
	if err != nil {
		return nil, err
	}
	if objType != want {
		return nil, fmt.Errorf("object %s: %w: got %q, want %q", h, ErrTypeMismatch, objType, want)
	}
	return data, nil
}

// ReadBlob reads a blob object.
func (s *Store) ReadBlob(h Hash) (*Blob, error) {
	data, err := s.readTyped(h, TypeBlob)
	if err != nil {
		return nil, err
	}
	return &Blob{Data: data}, nil
}

// WriteBlob stores a Blob.
func (s *Store) WriteBlob(b *Blob) (Hash, error) {
	return s.Write(TypeBlob, b.Data)
}

// WriteTree validates, serializes and stores a TreeObj in entry order.
func (s *Store) WriteTree(tr *TreeObj) (Hash, error) {
	for _, e := range tr.Entries {
		if err := ValidateEntry(e); err != nil {
			return "", fmt.Errorf("write tree: %w", err)
		}
	}
	return s.Write(TypeTree, MarshalTree(tr.Entries))
}

// ReadTree reads and parses a tree object.
func (s *Store) ReadTree(h Hash) (*TreeObj, error) {
	data, err := s.readTyped(h, TypeTree)
	if err != nil {
		return nil, err
	}
	tr, err := ParseTree(data)
	if err != nil {
		return nil, fmt.Errorf("object %s: %w", h, err)
	}
	return tr, nil
}

// WriteCommit serializes and stores a CommitObj.
func (s *Store) WriteCommit(c *CommitObj) (Hash, error) {
	return s.Write(TypeCommit, MarshalCommit(c))
}

// ReadCommit reads and deserializes a CommitObj.
func (s *Store) ReadCommit(h Hash) (*CommitObj, error) {
	data, err := s.readTyped(h, TypeCommit)
	if err != nil {
		return nil, err
	}
	c, err := UnmarshalCommit(data)
	if err != nil {
		return nil, fmt.Errorf("object %s: %w", h, err)
	}
	return c, nil
}
