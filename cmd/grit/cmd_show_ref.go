package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newShowRefCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show-ref [prefix]",
		Short: "List refs and the objects they point at",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd)
			if err != nil {
				return err
			}
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			refs, err := r.ListRefs(prefix)
			if err != nil {
				return err
			}
			for _, ref := range refs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", ref.Hash, ref.Name)
			}
			return nil
		},
	}
}
