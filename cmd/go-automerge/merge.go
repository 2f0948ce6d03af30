package main

import (
	"bytes"
	"fmt"
	"sync"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sourcegraph/go-automerge/vcs"
	"github.com/sourcegraph/go-automerge/vcs/automerge"
)

func (a *app) mergeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge <rev>...",
		Short: "Synthesize the automerge trees of merge commits",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.openEnv()
			if err != nil {
				return err
			}
			jobs := a.cfg.GetInt("jobs")
			if jobs < 1 {
				return errors.Errorf("--jobs must be at least 1, got %d", jobs)
			}

			out := make([][]byte, len(args))
			var (
				mu   sync.Mutex
				merr *multierror.Error
			)
			var g errgroup.Group
			g.SetLimit(jobs)
			for i, rev := range args {
				i, rev := i, rev
				g.Go(func() error {
					c, res, err := e.synthesize(rev)
					if err != nil {
						mu.Lock()
						merr = multierror.Append(merr, errors.Wrap(err, rev))
						mu.Unlock()
						return nil
					}
					var buf bytes.Buffer
					printResult(&buf, c, res)
					out[i] = buf.Bytes()
					return nil
				})
			}
			_ = g.Wait() // workers report through merr

			w := cmd.OutOrStdout()
			for _, b := range out {
				if _, err := w.Write(b); err != nil {
					return err
				}
			}
			return merr.ErrorOrNil()
		},
	}
	cmd.Flags().IntP("jobs", "j", 1, "number of merge commits to synthesize concurrently")
	return cmd
}

func printResult(buf *bytes.Buffer, c *vcs.Commit, res *automerge.Result) {
	fmt.Fprintf(buf, "%s %s", c.ID, res.Tree.ID)
	if res.FromCache {
		buf.WriteString(" (cached)")
	}
	buf.WriteByte('\n')
	for _, p := range res.Conflicts {
		fmt.Fprintf(buf, "\tconflict: %s\n", p)
	}
	if res.PublishErr != nil {
		fmt.Fprintf(buf, "\tnot saved: %s\n", res.PublishErr)
	}
}
