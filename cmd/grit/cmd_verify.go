package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/odvcencio/grit/pkg/object"
)

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Re-hash every stored object and check that refs reach only present objects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd)
			if err != nil {
				return err
			}

			report, err := r.Store.Verify()
			if report == nil {
				return err
			}
			if len(report.Corrupt) > 0 {
				bad := make([]object.Hash, 0, len(report.Corrupt))
				for h := range report.Corrupt {
					bad = append(bad, h)
				}
				sort.Slice(bad, func(i, j int) bool { return bad[i] < bad[j] })
				for _, h := range bad {
					fmt.Fprintf(cmd.OutOrStdout(), "corrupt %s\n", h)
				}
				return fmt.Errorf("%d corrupt object(s): %w", len(bad), err)
			}

			kinds := make([]string, 0, len(report.ByType))
			for t := range report.ByType {
				kinds = append(kinds, string(t))
			}
			sort.Strings(kinds)
			parts := make([]string, len(kinds))
			for i, k := range kinds {
				parts[i] = fmt.Sprintf("%d %s", report.ByType[object.ObjectType(k)], k)
			}

			summary := fmt.Sprintf("ok: verified %d object(s)", report.Objects)
			if len(parts) > 0 {
				summary += " (" + strings.Join(parts, ", ") + ")"
			}
			fmt.Fprintln(cmd.OutOrStdout(), summary)

			conn, err := r.CheckConnectivity()
			if err != nil {
				return err
			}
			for _, h := range conn.Missing {
				fmt.Fprintf(cmd.OutOrStdout(), "missing %s\n", h)
			}
			if len(conn.Missing) > 0 {
				return fmt.Errorf("%d referenced object(s) missing", len(conn.Missing))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d object(s) reachable from refs and index\n", len(conn.Reachable))
			return nil
		},
	}
}
