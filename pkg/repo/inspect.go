package repo

import (
	"fmt"
	"io"

	"github.com/odvcencio/grit/pkg/object"
)

// InspectMode selects what Inspect prints about an object.
type InspectMode int

const (
	InspectType   InspectMode = iota // kind name
	InspectSize                      // payload length in bytes
	InspectPretty                    // payload, trees formatted as a listing
)

// Inspect writes the kind, size or contents of object h to w. Blob and
// commit payloads are streamed without being held in memory; trees are
// printed with object.FormatTree.
func (r *Repo) Inspect(w io.Writer, h object.Hash, mode InspectMode) error {
	if _, err := object.ParseHash(string(h)); err != nil {
		return fmt.Errorf("inspect: %w", err)
	}

	switch mode {
	case InspectType, InspectSize:
		t, size, err := r.Store.Stat(h)
		if err != nil {
			return fmt.Errorf("inspect: %w", err)
		}
		if mode == InspectType {
			_, err = fmt.Fprintln(w, t)
		} else {
			_, err = fmt.Fprintln(w, size)
		}
		return err
	case InspectPretty:
	default:
		return fmt.Errorf("inspect: unknown mode %d", mode)
	}

	or, err := r.Store.Open(h)
	if err != nil {
		return fmt.Errorf("inspect: %w", err)
	}
	defer or.Close()

	if or.Type == object.TypeTree {
		data, err := io.ReadAll(or)
		if err != nil {
			return fmt.Errorf("inspect: %w", err)
		}
		tr, err := object.ParseTree(data)
		if err != nil {
			return fmt.Errorf("inspect: %w", err)
		}
		return object.FormatTree(w, tr.Entries, false)
	}

	if _, err := io.CopyBuffer(w, or, make([]byte, object.ChunkSize)); err != nil {
		return fmt.Errorf("inspect: %w", err)
	}
	return nil
}
