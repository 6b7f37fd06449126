package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newAddCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "add <paths...>",
		Short: "Stage files and directories for the next commit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd)
			if err != nil {
				return err
			}
			// Stage takes root-relative paths; arguments are relative to the cwd.
			paths := make([]string, len(args))
			given := make(map[string]string, len(args))
			for i, a := range args {
				abs, err := filepath.Abs(a)
				if err != nil {
					return err
				}
				paths[i] = abs
				given[abs] = a
			}
			res, err := r.Stage(paths)
			if err != nil {
				return err
			}
			if verbose {
				for _, p := range res.Staged {
					fmt.Fprintf(cmd.OutOrStdout(), "add '%s'\n", p)
				}
				for _, p := range res.Removed {
					fmt.Fprintf(cmd.OutOrStdout(), "remove '%s'\n", p)
				}
			}
			for _, pe := range res.Errors {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s: %v\n", given[pe.Path], pe.Err)
			}
			if len(res.Errors) > 0 {
				return fmt.Errorf("%d of %d path(s) could not be staged", len(res.Errors), len(args))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "list staged and removed paths")
	return cmd
}
