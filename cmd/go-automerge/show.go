package main

import (
	"fmt"
	"io"

	"github.com/kr/text"
	"github.com/spf13/cobra"

	"github.com/sourcegraph/go-automerge/vcs"
)

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <rev>",
		Short: "Print a merge commit and the listing of its automerge tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.openEnv()
			if err != nil {
				return err
			}
			c, res, err := e.synthesize(args[0])
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "# Revspec %q resolves to commit %s:\n", args[0], c.ID)
			printCommit(w, c)
			fmt.Fprintf(w, "# Automerge tree %s", res.Tree.ID)
			if res.FromCache {
				fmt.Fprint(w, " (cached)")
			}
			fmt.Fprintf(w, ", %d conflicts:\n", len(res.Conflicts))
			conflicted := make(map[string]bool, len(res.Conflicts))
			for _, p := range res.Conflicts {
				conflicted[p] = true
			}
			for _, te := range res.Tree.Entries {
				mark := " "
				if conflicted[te.Path] {
					mark = "C"
				}
				fmt.Fprintf(w, "%s %s %s\t%s\n", mark, te.Mode, te.ID, te.Path)
			}
			return nil
		},
	}
}

func printCommit(w io.Writer, c *vcs.Commit) {
	fmt.Fprintf(w, "%s\n%s <%s> at %s\n%s\n\n", c.ID, c.Author.Name, c.Author.Email, c.Author.Date, text.Indent(c.Message, "\t"))
}
