// Package automerge computes and caches the "automerge" tree of a merge
// commit: the tree a mechanical merge of its two parents would produce.
//
// Conflicts never stop the merge. Conflicting text is written with
// conflict markers and every other conflict is settled by a fixed
// policy (see ResolveRun), so the resulting tree can always be diffed
// against the merge commit, for instance to show what a merge changed
// beyond merging.
//
// Trees are cached under refs/cache-automerge/ in the repository, so
// repeated requests for the same commit need a single ref read.
package automerge

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sourcegraph/go-automerge/vcs"
	"github.com/sourcegraph/go-automerge/vcs/merge"
)

var ErrNotTwoParents = errors.New("automerge requires a commit with exactly two parents")

// ErrMergeFailed is matched (with errors.Is) by every *MergeError.
var ErrMergeFailed = errors.New("automerge failed")

// MergeError reports a failure to compute the automerge tree of a
// commit. Nothing is cached when it is returned.
type MergeError struct {
	Commit vcs.CommitID
	Err    error
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("automerge %s: %s", e.Commit, e.Err)
}

func (e *MergeError) Unwrap() error { return e.Err }

func (e *MergeError) Is(target error) bool { return target == ErrMergeFailed }

// Result is the outcome of a successful Synthesize.
type Result struct {
	Tree *vcs.Tree

	// FromCache is true if the tree came from the cache and no merge
	// was performed.
	FromCache bool

	// Conflicts lists, in order, the paths the merge could not resolve
	// cleanly. It is empty for cached results.
	Conflicts []string

	// PublishErr is set if the tree was computed but could not be
	// cached. The tree is still valid.
	PublishErr error
}

// An Automerger synthesizes automerge trees. It is safe for concurrent
// use.
type Automerger struct {
	Store vcs.ObjectStore
	Cache Cache

	// Formatter renders conflicting files. If nil, merge.Formatter{} is
	// used.
	Formatter vcs.MergeFormatter

	// Log receives diagnostics. If nil, nothing is logged.
	Log *zap.Logger

	group singleflight.Group
}

// New returns an Automerger that caches trees in the refs of s.
func New(s vcs.Store, log *zap.Logger) *Automerger {
	return &Automerger{Store: s, Cache: &RefCache{Refs: s}, Log: log}
}

func (a *Automerger) logger() *zap.Logger {
	if a.Log == nil {
		return zap.NewNop()
	}
	return a.Log
}

func (a *Automerger) formatter() vcs.MergeFormatter {
	if a.Formatter == nil {
		return merge.Formatter{}
	}
	return a.Formatter
}

// Synthesize returns the automerge tree of the merge commit c, merging
// its parents with strategy on a cache miss. If persist is true a newly
// computed tree is published to the cache.
//
// Concurrent calls for the same commit, strategy and persist flag share
// one computation, each getting its own copy of the result. The cache is
// keyed by commit only. An ID that cannot be a cache key is rejected
// before anything is read or written.
func (a *Automerger) Synthesize(c *vcs.Commit, strategy vcs.MergeStrategy, persist bool) (*Result, error) {
	if len(c.Parents) != 2 {
		return nil, errors.Wrapf(ErrNotTwoParents, "commit %s has %d parents", c.ID, len(c.Parents))
	}
	if _, err := CacheKey(c.ID); err != nil {
		return nil, err
	}
	key := fmt.Sprintf("%s %s %t", c.ID, strategy.Name(), persist)
	v, err, _ := a.group.Do(key, func() (interface{}, error) {
		return a.synthesize(c, strategy, persist)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result).clone(), nil
}

// clone copies r deeply enough that callers sharing one computation
// can modify their results independently.
func (r *Result) clone() *Result {
	c := *r
	if r.Tree != nil {
		tree := *r.Tree
		tree.Entries = append([]vcs.TreeEntry(nil), r.Tree.Entries...)
		c.Tree = &tree
	}
	c.Conflicts = append([]string(nil), r.Conflicts...)
	return &c
}

func (a *Automerger) synthesize(c *vcs.Commit, strategy vcs.MergeStrategy, persist bool) (*Result, error) {
	log := a.logger().With(zap.String("commit", string(c.ID)))

	if id, ok, err := a.Cache.Lookup(c.ID); err != nil {
		log.Warn("automerge cache lookup failed", zap.Error(err))
	} else if ok {
		tree, err := a.Store.GetTree(id)
		if err == nil {
			log.Debug("automerge cache hit", zap.String("tree", string(id)))
			return &Result{Tree: tree, FromCache: true}, nil
		}
		log.Warn("cached automerge tree is unreadable, recomputing", zap.String("tree", string(id)), zap.Error(err))
	}

	ins := a.Store.NewInserter()
	defer ins.Close()
	w := writeOnly{ins}

	fail := func(msg string, err error) (*Result, error) {
		log.Error(msg, zap.String("strategy", strategy.Name()), zap.Error(err))
		return nil, &MergeError{Commit: c.ID, Err: err}
	}

	out, err := strategy.NewMerger(a.Store, w).Merge(c.Parents[0], c.Parents[1])
	if err != nil {
		return fail("error attempting automerge", err)
	}

	treeID := out.Tree
	var conflicts []string
	if !out.Clean {
		if treeID, err = a.resolveConflicts(c, w, out); err != nil {
			if errors.Is(err, ErrInvalidIndex) {
				log.Error("merger produced an invalid index", zap.String("strategy", strategy.Name()), zap.Error(err))
				return nil, err
			}
			return fail("error writing automerge conflicts", err)
		}
		conflicts = conflictedPaths(out.Index)
	}

	if err := ins.Flush(); err != nil {
		return fail("error flushing automerge objects", err)
	}
	tree, err := a.Store.GetTree(treeID)
	if err != nil {
		return fail("error reading automerge tree", err)
	}

	res := &Result{Tree: tree, Conflicts: conflicts}
	if persist {
		if err := a.Cache.Publish(c.ID, treeID); err != nil {
			log.Warn("could not cache automerge tree", zap.String("tree", string(treeID)), zap.Error(err))
			res.PublishErr = err
		}
	}
	log.Info("automerged",
		zap.String("strategy", strategy.Name()),
		zap.String("tree", string(treeID)),
		zap.Int("conflicts", len(conflicts)),
		zap.Bool("saved", persist && res.PublishErr == nil),
	)
	return res, nil
}

// resolveConflicts writes every conflicting file with conflict markers
// and then writes the tree that collapses the merge index.
func (a *Automerger) resolveConflicts(c *vcs.Commit, w vcs.ObjectWriter, out *vcs.MergeOutcome) (vcs.ObjectID, error) {
	ours, err := a.Store.GetCommit(c.Parents[0])
	if err != nil {
		return "", err
	}
	theirs, err := a.Store.GetCommit(c.Parents[1])
	if err != nil {
		return "", err
	}
	oursName, theirsName := OursLabel(ours), TheirsLabel(theirs)

	paths := make([]string, 0, len(out.Conflicts))
	for p := range out.Conflicts {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	f := a.formatter()
	resolved := make(map[string]vcs.ObjectID, len(paths))
	for _, p := range paths {
		var buf bytes.Buffer
		if err := f.FormatMerge(&buf, out.Conflicts[p], BaseLabel, oursName, theirsName); err != nil {
			return "", errors.Wrapf(err, "format %s", p)
		}
		id, err := w.WriteBlob(buf.Bytes())
		if err != nil {
			return "", errors.Wrapf(err, "write %s", p)
		}
		resolved[p] = id
	}

	entries, err := SynthesizeTree(out.Index, resolved)
	if err != nil {
		return "", err
	}
	return w.WriteTree(entries)
}

func conflictedPaths(index []vcs.IndexEntry) []string {
	var paths []string
	for _, e := range index {
		if e.Stage == vcs.StageMerged {
			continue
		}
		if n := len(paths); n == 0 || paths[n-1] != e.Path {
			paths = append(paths, e.Path)
		}
	}
	return paths
}

// writeOnly is the view of an Inserter handed to collaborators: they
// may write objects but only the owner flushes or closes.
type writeOnly struct {
	w vcs.ObjectWriter
}

func (v writeOnly) WriteBlob(data []byte) (vcs.ObjectID, error) { return v.w.WriteBlob(data) }

func (v writeOnly) WriteTree(entries []vcs.TreeEntry) (vcs.ObjectID, error) {
	return v.w.WriteTree(entries)
}
