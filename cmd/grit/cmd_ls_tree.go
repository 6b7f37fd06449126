package main

import (
	"github.com/spf13/cobra"

	"github.com/odvcencio/grit/pkg/object"
)

func newLsTreeCmd() *cobra.Command {
	var nameOnly, recursive bool

	cmd := &cobra.Command{
		Use:   "ls-tree [--name-only] [-r] <digest>",
		Short: "List the entries of a tree object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := object.ParseHash(args[0])
			if err != nil {
				return err
			}
			r, err := openRepo(cmd)
			if err != nil {
				return err
			}
			entries, err := r.ListTree(h, recursive)
			if err != nil {
				return err
			}
			return object.FormatTree(cmd.OutOrStdout(), entries, nameOnly)
		},
	}
	cmd.Flags().BoolVar(&nameOnly, "name-only", false, "print only entry names")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "list blobs in subtrees with full paths")
	return cmd
}
