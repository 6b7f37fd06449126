package object

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// TreeObj
// ---------------------------------------------------------------------------

// MarshalTree serializes entries in the order given. Each entry is
//
//	<mode> SP <name> NUL <40 hex characters>
//
// Callers that need a deterministic digest sort with SortEntries first.
func MarshalTree(entries []TreeEntry) []byte {
	size := 0
	for _, e := range entries {
		size += len(e.Mode) + len(e.Name) + 2 + HashLen
	}
	buf := make([]byte, 0, size)
	for _, e := range entries {
		buf = append(buf, e.Mode...)
		buf = append(buf, ' ')
		buf = append(buf, e.Name...)
		buf = append(buf, 0)
		buf = append(buf, e.Hash...)
	}
	return buf
}

// SortEntries orders entries by name in place.
func SortEntries(entries []TreeEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
}

// ValidateEntry checks that an entry can be written into a tree payload.
func ValidateEntry(e TreeEntry) error {
	switch e.Mode {
	case TreeModeFile, TreeModeDir:
	default:
		return fmt.Errorf("entry %q: unsupported mode %q", e.Name, e.Mode)
	}
	if err := ValidateName(e.Name); err != nil {
		return err
	}
	if _, err := ParseHash(string(e.Hash)); err != nil {
		return fmt.Errorf("entry %q: %w", e.Name, err)
	}
	return nil
}

// ValidateName rejects names that cannot round-trip through a tree payload.
func ValidateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("invalid entry name %q", name)
	case strings.ContainsAny(name, "/\x00"):
		return fmt.Errorf("invalid entry name %q: contains separator or NUL", name)
	}
	return nil
}

// ParseTree parses a tree payload. A leading "tree <size>" NUL header is
// accepted and its size checked against the remaining bytes.
func ParseTree(data []byte) (*TreeObj, error) {
	tr := &TreeObj{}
	pos := 0

	if bytes.HasPrefix(data, []byte("tree ")) {
		nul := bytes.IndexByte(data, 0)
		if nul < 0 {
			return nil, fmt.Errorf("%w: header not terminated", ErrMalformedTree)
		}
		size, err := strconv.Atoi(string(data[len("tree "):nul]))
		if err != nil {
			return nil, fmt.Errorf("%w: invalid header size %q", ErrMalformedTree, data[len("tree "):nul])
		}
		if size != len(data)-nul-1 {
			return nil, fmt.Errorf("%w: header size %d, payload %d bytes", ErrMalformedTree, size, len(data)-nul-1)
		}
		pos = nul + 1
	}

	for pos < len(data) {
		nul := bytes.IndexByte(data[pos:], 0)
		if nul < 0 {
			return nil, fmt.Errorf("%w: missing NUL after entry at offset %d", ErrMalformedTree, pos)
		}
		mode, name, ok := strings.Cut(string(data[pos:pos+nul]), " ")
		if !ok || mode == "" || name == "" {
			return nil, fmt.Errorf("%w: malformed entry %q at offset %d", ErrMalformedTree, data[pos:pos+nul], pos)
		}
		pos += nul + 1

		if len(data)-pos < HashLen {
			return nil, fmt.Errorf("%w: truncated hash for %q (%d bytes left)", ErrMalformedTree, name, len(data)-pos)
		}
		h, err := ParseHash(string(data[pos : pos+HashLen]))
		if err != nil {
			return nil, fmt.Errorf("%w: entry %q: %v", ErrMalformedTree, name, err)
		}
		pos += HashLen

		tr.Entries = append(tr.Entries, TreeEntry{Mode: mode, Name: name, Hash: h})
	}
	return tr, nil
}

// ---------------------------------------------------------------------------
// CommitObj
// ---------------------------------------------------------------------------

// MarshalCommit serializes a CommitObj:
//
//	tree H
//	parent H     (zero or more)
//	author Name <email> unix tz
//	committer Name <email> unix tz
//	sshsig S     (optional)
//
//	message
func MarshalCommit(c *CommitObj) []byte {
	return marshalCommit(c, true)
}

// CommitSigningPayload is the commit serialized without its sshsig header;
// signatures are computed and checked over these bytes.
func CommitSigningPayload(c *CommitObj) []byte {
	if c == nil {
		return nil
	}
	return marshalCommit(c, false)
}

func marshalCommit(c *CommitObj, withSig bool) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", c.TreeHash)
	for _, p := range c.Parents {
		fmt.Fprintf(&buf, "parent %s\n", p)
	}
	fmt.Fprintf(&buf, "author %s\ncommitter %s\n", FormatSignature(c.Author), FormatSignature(c.Committer))
	if sig := strings.TrimSpace(c.Signature); withSig && sig != "" {
		fmt.Fprintf(&buf, "sshsig %s\n", sig)
	}
	buf.WriteByte('\n')
	buf.WriteString(c.Message)
	return buf.Bytes()
}

// UnmarshalCommit parses a CommitObj from its serialized form.
func UnmarshalCommit(data []byte) (*CommitObj, error) {
	idx := bytes.Index(data, []byte("\n\n"))
	if idx < 0 {
		return nil, fmt.Errorf("unmarshal commit: missing header/message separator")
	}
	header := string(data[:idx])
	message := string(data[idx+2:])

	c := &CommitObj{Message: message}
	for _, line := range strings.Split(header, "\n") {
		key, val, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("unmarshal commit: malformed header line %q", line)
		}
		switch key {
		case "tree":
			c.TreeHash = Hash(val)
		case "parent":
			c.Parents = append(c.Parents, Hash(val))
		case "author":
			sig, err := ParseSignature(val)
			if err != nil {
				return nil, fmt.Errorf("unmarshal commit: author: %w", err)
			}
			c.Author = sig
		case "committer":
			sig, err := ParseSignature(val)
			if err != nil {
				return nil, fmt.Errorf("unmarshal commit: committer: %w", err)
			}
			c.Committer = sig
		case "sshsig":
			c.Signature = val
		default:
			return nil, fmt.Errorf("unmarshal commit: unknown header key %q", key)
		}
	}
	if c.TreeHash == "" {
		return nil, fmt.Errorf("unmarshal commit: missing tree")
	}
	return c, nil
}

// FormatSignature renders "Name <email> unix tz".
func FormatSignature(s Signature) string {
	tz := s.Timezone
	if tz == "" {
		tz = "+0000"
	}
	return fmt.Sprintf("%s <%s> %d %s", s.Name, s.Email, s.When, tz)
}

// ParseSignature parses the output of FormatSignature.
func ParseSignature(s string) (Signature, error) {
	lt := strings.LastIndexByte(s, '<')
	gt := strings.LastIndexByte(s, '>')
	if lt < 0 || gt < lt {
		return Signature{}, fmt.Errorf("malformed signature %q", s)
	}
	sig := Signature{
		Name:  strings.TrimSpace(s[:lt]),
		Email: s[lt+1 : gt],
	}
	fields := strings.Fields(s[gt+1:])
	if len(fields) != 2 {
		return Signature{}, fmt.Errorf("malformed signature %q: want timestamp and timezone", s)
	}
	when, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return Signature{}, fmt.Errorf("malformed signature %q: bad timestamp: %w", s, err)
	}
	sig.When = when
	sig.Timezone = fields[1]
	return sig, nil
}
