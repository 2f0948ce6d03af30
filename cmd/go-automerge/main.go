// The go-automerge program computes, caches and inspects the automerge
// trees of merge commits in a git repository.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"sourcegraph.com/sourcegraph/appdash"

	"github.com/sourcegraph/go-automerge/vcs"
	"github.com/sourcegraph/go-automerge/vcs/automerge"
	_ "github.com/sourcegraph/go-automerge/vcs/gogit"
	"github.com/sourcegraph/go-automerge/vcs/merge"
	"github.com/sourcegraph/go-automerge/vcs/util/tracer"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "go-automerge:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := newApp()
	root := &cobra.Command{
		Use:   "go-automerge",
		Short: "Compute and cache the automerge trees of merge commits",
		Long: `go-automerge merges the two parents of a merge commit the way a merge tool
would, writing conflicting files with conflict markers instead of stopping,
and caches the resulting tree under refs/cache-automerge/.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	f := root.PersistentFlags()
	f.StringP("repo", "C", ".", "repository directory")
	f.StringP("strategy", "s", merge.Resolve.Name(), fmt.Sprintf("merge strategy (one of: %s)", strings.Join(merge.Names(), ", ")))
	f.Bool("save", true, "cache synthesized trees in the repository")
	f.Bool("diff3", false, "show the merge base in conflict markers")
	f.String("log-level", "warn", "log level (debug, info, warn, error)")
	f.String("log-format", "console", "log format (console or json)")
	f.String("appdash", "", "send store traces to the appdash collector at this address")

	root.AddCommand(a.mergeCmd(), a.showCmd(), a.diffCmd(), a.keyCmd())
	return root
}

// env is what the commands that read a repository work with.
type env struct {
	store    vcs.Store
	resolver vcs.RevisionResolver
	am       *automerge.Automerger
	strategy vcs.MergeStrategy
	save     bool
}

func (a *app) openEnv() (*env, error) {
	strategy, err := merge.ByName(a.cfg.GetString("strategy"))
	if err != nil {
		return nil, err
	}
	s, err := vcs.Open("git", a.cfg.GetString("repo"))
	if err != nil {
		return nil, err
	}
	if addr := a.cfg.GetString("appdash"); addr != "" {
		rec := appdash.NewRecorder(appdash.NewRootSpanID(), appdash.NewRemoteCollector(addr))
		rec.Name("go-automerge")
		s = tracer.Wrap(s, rec)
		a.log.Debug("tracing store calls", zap.String("appdash", addr))
	}
	resolver, ok := s.(vcs.RevisionResolver)
	if !ok {
		return nil, errors.Errorf("store %T cannot resolve revisions", s)
	}

	am := automerge.New(s, a.log)
	am.Formatter = merge.Formatter{Diff3: a.cfg.GetBool("diff3")}
	return &env{
		store:    s,
		resolver: resolver,
		am:       am,
		strategy: strategy,
		save:     a.cfg.GetBool("save"),
	}, nil
}

func (e *env) commit(rev string) (*vcs.Commit, error) {
	id, err := e.resolver.ResolveRevision(rev)
	if err != nil {
		return nil, err
	}
	return e.store.GetCommit(id)
}

func (e *env) synthesize(rev string) (*vcs.Commit, *automerge.Result, error) {
	c, err := e.commit(rev)
	if err != nil {
		return nil, nil, err
	}
	res, err := e.am.Synthesize(c, e.strategy, e.save)
	if err != nil {
		return nil, nil, err
	}
	return c, res, nil
}
