// Package merge provides three-way merge strategies for vcs object
// stores, along with the line-level merge and conflict-marker formatting
// they rely on.
package merge

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/sourcegraph/go-automerge/vcs"
)

var (
	// Ours resolves every merge to the first parent's tree.
	Ours vcs.MergeStrategy = sideStrategy{name: "ours"}

	// Theirs resolves every merge to the second parent's tree.
	Theirs vcs.MergeStrategy = sideStrategy{name: "theirs", theirs: true}
)

var strategies = map[string]vcs.MergeStrategy{
	Resolve.Name(): Resolve,
	Ours.Name():    Ours,
	Theirs.Name():  Theirs,
}

// ByName returns the strategy with the given name.
func ByName(name string) (vcs.MergeStrategy, error) {
	s, ok := strategies[name]
	if !ok {
		return nil, errors.Errorf("unknown merge strategy %q (want one of %v)", name, Names())
	}
	return s, nil
}

// Names lists the known strategy names in sorted order.
func Names() []string {
	names := make([]string, 0, len(strategies))
	for name := range strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type sideStrategy struct {
	name   string
	theirs bool
}

func (s sideStrategy) Name() string { return s.name }

func (s sideStrategy) NewMerger(src vcs.MergeSource, _ vcs.ObjectWriter) vcs.ThreeWayMerger {
	return sideMerger{src: src, theirs: s.theirs}
}

type sideMerger struct {
	src    vcs.MergeSource
	theirs bool
}

func (m sideMerger) Merge(ours, theirs vcs.CommitID) (*vcs.MergeOutcome, error) {
	id := ours
	if m.theirs {
		id = theirs
	}
	c, err := m.src.GetCommit(id)
	if err != nil {
		return nil, err
	}
	t, err := m.src.GetTree(c.Tree)
	if err != nil {
		return nil, err
	}
	out := &vcs.MergeOutcome{Clean: true, Tree: c.Tree}
	for _, e := range t.Entries {
		out.Index = append(out.Index, vcs.IndexEntry{Path: e.Path, Mode: e.Mode, ID: e.ID})
	}
	return out, nil
}
