package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/odvcencio/grit/pkg/repo"
)

func newCommitCmd() *cobra.Command {
	var (
		message    string
		sign       bool
		signingKey string
	)

	cmd := &cobra.Command{
		Use:   "commit -m <message>",
		Short: "Record the staged snapshot on the current branch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(message) == "" {
				return fmt.Errorf("commit message is required (-m)")
			}

			r, err := openRepo(cmd)
			if err != nil {
				return err
			}
			cfg, err := r.ReadConfig()
			if err != nil {
				return err
			}
			author, err := cfg.Identity(time.Now())
			if err != nil {
				return err
			}

			var signer repo.CommitSigner
			if sign || signingKey != "" {
				s, keyPath, err := newSSHCommitSigner(signingKey)
				if err != nil {
					return err
				}
				r.Logger().Debug("signing commit", "key", keyPath)
				signer = s
			}

			h, err := r.Commit(message, author, signer)
			if err != nil {
				return err
			}

			branch := "HEAD"
			head, err := r.Head()
			if err == nil && strings.HasPrefix(head, "refs/heads/") {
				branch = strings.TrimPrefix(head, "refs/heads/")
			}
			subject, _, _ := strings.Cut(strings.TrimSpace(message), "\n")
			fmt.Fprintf(cmd.OutOrStdout(), "[%s %s] %s\n", branch, shortHash(h), subject)
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	cmd.Flags().BoolVarP(&sign, "sign", "S", false, "sign the commit with an SSH key")
	cmd.Flags().StringVar(&signingKey, "signing-key", "", "SSH private key to sign with (implies -S; default ~/.ssh/id_ed25519, id_ecdsa, id_rsa)")
	return cmd
}
