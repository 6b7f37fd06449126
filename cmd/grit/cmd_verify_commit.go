package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh"
)

func newVerifyCommitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify-commit [rev]",
		Short: "Check the SSH signature on a commit",
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
			h, err := r.ResolveRef(rev)
			if err != nil {
				return err
			}
			c, err := r.Store.ReadCommit(h)
			if err != nil {
				return err
			}

			pub, err := verifyCommitSignature(c)
			if err != nil {
				return fmt.Errorf("commit %s: %w", shortHash(h), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "good signature on %s from %s key %s\n",
				shortHash(h), pub.Type(), ssh.FingerprintSHA256(pub))
			return nil
		},
	}
}
