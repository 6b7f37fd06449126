package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odvcencio/grit/pkg/repo"
)

func newConfigCmd() *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "config [--list] | <key> [value]",
		Short: "Get or set repository options",
		Long:  "Keys: user.name, user.email, core.compression (zlib or zstd).",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd)
			if err != nil {
				return err
			}

			if list || len(args) == 0 {
				cfg, err := r.ReadConfig()
				if err != nil {
					return err
				}
				for _, key := range repo.ConfigKeys() {
					v, _ := cfg.Get(key)
					if v != "" {
						fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", key, v)
					}
				}
				return nil
			}

			if len(args) == 2 {
				return r.SetConfig(args[0], args[1])
			}

			cfg, err := r.ReadConfig()
			if err != nil {
				return err
			}
			v, err := cfg.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&list, "list", "l", false, "list all set options")
	return cmd
}
