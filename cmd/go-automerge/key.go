package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sourcegraph/go-automerge/vcs"
	"github.com/sourcegraph/go-automerge/vcs/automerge"
)

func (a *app) keyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "key <commit-id>",
		Short: "Print the ref that caches a merge commit's automerge tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := automerge.CacheKey(vcs.CommitID(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		},
	}
}
