package object

import (
	"fmt"
	"io"
)

// FormatTree writes one line per entry. The long form is
//
//	<mode>  <kind>  <hash>  <name>
//
// and the name-only form prints just the name, with a trailing "/" on trees.
func FormatTree(w io.Writer, entries []TreeEntry, nameOnly bool) error {
	for _, e := range entries {
		var err error
		if nameOnly {
			suffix := ""
			if e.IsDir() {
				suffix = "/"
			}
			_, err = fmt.Fprintf(w, "%s%s\n", e.Name, suffix)
		} else {
			_, err = fmt.Fprintf(w, "%s  %s  %s  %s\n", e.Mode, e.Type(), e.Hash, e.Name)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
