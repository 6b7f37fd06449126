package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odvcencio/grit/pkg/object"
)

func newHashObjectCmd() *cobra.Command {
	var write bool

	cmd := &cobra.Command{
		Use:   "hash-object [-w] <file>",
		Short: "Compute a file's blob digest, optionally storing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				h   object.Hash
				err error
			)
			if write {
				r, oerr := openRepo(cmd)
				if oerr != nil {
					return oerr
				}
				h, err = r.Store.WriteFile(args[0])
			} else {
				h, err = object.HashFile(args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&write, "write", "w", false, "store the blob in the object database")
	return cmd
}
