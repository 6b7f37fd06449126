package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odvcencio/grit/pkg/object"
	"github.com/odvcencio/grit/pkg/repo"
)

func newCatFileCmd() *cobra.Command {
	var showType, showSize, pretty bool

	cmd := &cobra.Command{
		Use:   "cat-file (-t | -s | -p) <digest>",
		Short: "Show the kind, size or contents of an object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var mode repo.InspectMode
			switch {
			case showType:
				mode = repo.InspectType
			case showSize:
				mode = repo.InspectSize
			case pretty:
				mode = repo.InspectPretty
			default:
				return fmt.Errorf("one of -t, -s or -p is required")
			}

			h, err := object.ParseHash(args[0])
			if err != nil {
				return err
			}
			r, err := openRepo(cmd)
			if err != nil {
				return err
			}
			return r.Inspect(cmd.OutOrStdout(), h, mode)
		},
	}
	cmd.Flags().BoolVarP(&showType, "type", "t", false, "print the object kind")
	cmd.Flags().BoolVarP(&showSize, "size", "s", false, "print the payload size in bytes")
	cmd.Flags().BoolVarP(&pretty, "pretty", "p", false, "print the payload, formatting trees")
	cmd.MarkFlagsMutuallyExclusive("type", "size", "pretty")
	return cmd
}
