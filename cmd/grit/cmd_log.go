package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/odvcencio/grit/pkg/object"
)

func newLogCmd() *cobra.Command {
	var (
		oneline bool
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "log [rev]",
		Short: "Show commit history",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd)
			if err != nil {
				return err
			}

			rev := "HEAD"
			if len(args) == 1 {
				rev = args[0]
			}
			start, err := r.ResolveRef(rev)
			if err != nil {
				if rev == "HEAD" && errors.Is(err, os.ErrNotExist) {
					fmt.Fprintln(cmd.OutOrStdout(), "no commits yet")
					return nil
				}
				return fmt.Errorf("cannot resolve %s: %w", rev, err)
			}

			commits, err := r.Log(start, limit)
			if err != nil {
				return err
			}

			// Each commit after the first is the first parent of the one
			// before it.
			hashes := make([]object.Hash, len(commits))
			for i := range commits {
				if i == 0 {
					hashes[i] = start
				} else {
					hashes[i] = commits[i-1].Parents[0]
				}
			}

			out := cmd.OutOrStdout()
			for i, c := range commits {
				if oneline {
					subject, _, _ := strings.Cut(strings.TrimSpace(c.Message), "\n")
					fmt.Fprintf(out, "%s %s\n", shortHash(hashes[i]), subject)
					continue
				}
				writeCommitLong(out, hashes[i], c)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&oneline, "oneline", false, "show each commit on one line")
	cmd.Flags().IntVarP(&limit, "max-count", "n", 0, "limit the number of commits (0 for all)")
	return cmd
}

func writeCommitLong(w io.Writer, h object.Hash, c *object.CommitObj) {
	fmt.Fprintf(w, "commit %s\n", h)
	if len(c.Parents) > 1 {
		fmt.Fprintf(w, "Merge: %s\n", joinShort(c.Parents))
	}
	fmt.Fprintf(w, "Author: %s <%s>\n", c.Author.Name, c.Author.Email)
	fmt.Fprintf(w, "Date:   %s\n", formatWhen(c.Author))
	if c.Signature != "" {
		fmt.Fprintln(w, "Signed: yes")
	}
	fmt.Fprintln(w)
	for _, line := range strings.Split(strings.TrimRight(c.Message, "\n"), "\n") {
		fmt.Fprintf(w, "    %s\n", line)
	}
	fmt.Fprintln(w)
}

func joinShort(hs []object.Hash) string {
	parts := make([]string, len(hs))
	for i, h := range hs {
		parts[i] = shortHash(h)
	}
	return strings.Join(parts, " ")
}

// formatWhen renders a signature's timestamp in its own zone offset.
func formatWhen(s object.Signature) string {
	t := time.Unix(s.When, 0).UTC()
	if zone, err := time.Parse("-0700", s.Timezone); err == nil {
		_, offset := zone.Zone()
		t = t.In(time.FixedZone(s.Timezone, offset))
	}
	return t.Format("Mon Jan 2 15:04:05 2006 -0700")
}
