package merge

import (
	"bytes"
	"fmt"
	"path"
	"sort"

	"github.com/pkg/errors"

	"github.com/sourcegraph/go-automerge/vcs"
)

// Resolve merges path by path against a single merge base, falling back
// to a line-level merge when both sides changed the same text file.
var Resolve vcs.MergeStrategy = resolveStrategy{}

type resolveStrategy struct{}

func (resolveStrategy) Name() string { return "resolve" }

func (resolveStrategy) NewMerger(src vcs.MergeSource, w vcs.ObjectWriter) vcs.ThreeWayMerger {
	return &resolver{src: src, w: w}
}

type resolver struct {
	src vcs.MergeSource
	w   vcs.ObjectWriter
	out *vcs.MergeOutcome
}

func (m *resolver) Merge(ours, theirs vcs.CommitID) (*vcs.MergeOutcome, error) {
	oc, err := m.src.GetCommit(ours)
	if err != nil {
		return nil, err
	}
	tc, err := m.src.GetCommit(theirs)
	if err != nil {
		return nil, err
	}
	baseID, err := m.src.MergeBase(ours, theirs)
	if err != nil {
		return nil, err
	}

	base := map[string]vcs.TreeEntry{}
	if baseID != "" {
		bc, err := m.src.GetCommit(baseID)
		if err != nil {
			return nil, err
		}
		if base, err = m.entries(bc.Tree); err != nil {
			return nil, err
		}
	}
	o, err := m.entries(oc.Tree)
	if err != nil {
		return nil, err
	}
	t, err := m.entries(tc.Tree)
	if err != nil {
		return nil, err
	}

	m.out = &vcs.MergeOutcome{Conflicts: map[string]*vcs.FileMerge{}}
	for _, p := range unionPaths(base, o, t) {
		if err := m.mergePath(p, lookup(base, p), lookup(o, p), lookup(t, p)); err != nil {
			return nil, errors.Wrapf(err, "merge %s", p)
		}
	}

	out := m.out
	m.out = nil
	out.Index = splitFileDirs(out, o)
	if conflicted(out.Index) {
		return out, nil
	}
	entries := make([]vcs.TreeEntry, len(out.Index))
	for i, e := range out.Index {
		entries[i] = vcs.TreeEntry{Path: e.Path, Mode: e.Mode, ID: e.ID}
	}
	if out.Tree, err = m.w.WriteTree(entries); err != nil {
		return nil, err
	}
	out.Clean = true
	return out, nil
}

func (m *resolver) entries(tree vcs.ObjectID) (map[string]vcs.TreeEntry, error) {
	t, err := m.src.GetTree(tree)
	if err != nil {
		return nil, err
	}
	es := make(map[string]vcs.TreeEntry, len(t.Entries))
	for _, e := range t.Entries {
		es[e.Path] = e
	}
	return es, nil
}

func (m *resolver) mergePath(path string, b, o, t *vcs.TreeEntry) error {
	switch {
	case same(o, t):
		m.add(path, vcs.StageMerged, o)
	case same(b, o):
		m.add(path, vcs.StageMerged, t)
	case same(b, t):
		m.add(path, vcs.StageMerged, o)
	case o != nil && t != nil && o.Mode.IsFile() && t.Mode.IsFile() && (b == nil || b.Mode.IsFile()):
		return m.mergeContent(path, b, o, t)
	default:
		m.addStages(path, b, o, t)
	}
	return nil
}

func (m *resolver) mergeContent(path string, b, o, t *vcs.TreeEntry) error {
	mode, modeOK := mergeMode(b, o, t)
	if o.ID == t.ID {
		if modeOK {
			m.add(path, vcs.StageMerged, &vcs.TreeEntry{Mode: mode, ID: o.ID})
		} else {
			m.addStages(path, b, o, t)
		}
		return nil
	}

	var baseData []byte
	if b != nil {
		var err error
		if baseData, err = m.src.ReadBlob(b.ID); err != nil {
			return err
		}
	}
	oursData, err := m.src.ReadBlob(o.ID)
	if err != nil {
		return err
	}
	theirsData, err := m.src.ReadBlob(t.ID)
	if err != nil {
		return err
	}
	if isBinary(baseData) || isBinary(oursData) || isBinary(theirsData) {
		m.addStages(path, b, o, t)
		return nil
	}

	fm := MergeLines(string(baseData), string(oursData), string(theirsData))
	if !fm.HasConflicts() && modeOK {
		id, err := m.w.WriteBlob([]byte(Text(fm)))
		if err != nil {
			return err
		}
		m.add(path, vcs.StageMerged, &vcs.TreeEntry{Mode: mode, ID: id})
		return nil
	}
	m.addStages(path, b, o, t)
	m.out.Conflicts[path] = fm
	return nil
}

func (m *resolver) add(path string, stage vcs.Stage, e *vcs.TreeEntry) {
	if e == nil {
		return
	}
	m.out.Index = append(m.out.Index, vcs.IndexEntry{Path: path, Stage: stage, Mode: e.Mode, ID: e.ID})
}

func (m *resolver) addStages(path string, b, o, t *vcs.TreeEntry) {
	m.add(path, vcs.StageBase, b)
	m.add(path, vcs.StageOurs, o)
	m.add(path, vcs.StageTheirs, t)
}

// splitFileDirs settles paths that one side has as a file and the other
// as a directory. The directory keeps the path. The file moves to
// path~HEAD or path~BRANCH, after the side that has it, and stays
// unmerged so the move shows up as a conflict. ours holds the first
// parent's entries.
func splitFileDirs(out *vcs.MergeOutcome, ours map[string]vcs.TreeEntry) []vcs.IndexEntry {
	index := out.Index
	taken := make(map[string]bool, len(index))
	dirs := map[string]bool{}
	for _, e := range index {
		taken[e.Path] = true
		for d := path.Dir(e.Path); d != "."; d = path.Dir(d) {
			dirs[d] = true
		}
	}

	type move struct {
		name  string
		stage vcs.Stage
	}
	moves := map[string]move{}
	for _, e := range index {
		if _, done := moves[e.Path]; done || !dirs[e.Path] {
			continue
		}
		side, stage := "BRANCH", vcs.StageTheirs
		if _, ok := ours[e.Path]; ok {
			side, stage = "HEAD", vcs.StageOurs
		}
		name := e.Path + "~" + side
		for n := 1; taken[name] || dirs[name]; n++ {
			name = fmt.Sprintf("%s~%s_%d", e.Path, side, n)
		}
		taken[name] = true
		moves[e.Path] = move{name: name, stage: stage}
	}
	if len(moves) == 0 {
		return index
	}

	for i, e := range index {
		mv, ok := moves[e.Path]
		if !ok {
			continue
		}
		index[i].Path = mv.name
		if e.Stage == vcs.StageMerged {
			index[i].Stage = mv.stage
		}
	}
	for p, mv := range moves {
		if fm, ok := out.Conflicts[p]; ok {
			delete(out.Conflicts, p)
			out.Conflicts[mv.name] = fm
		}
	}
	sort.SliceStable(index, func(i, j int) bool { return index[i].Path < index[j].Path })
	return index
}

func conflicted(index []vcs.IndexEntry) bool {
	for _, e := range index {
		if e.Stage != vcs.StageMerged {
			return true
		}
	}
	return false
}

// mergeMode picks the mode of whichever side changed it. ok is false if
// both sides changed it differently.
func mergeMode(b, o, t *vcs.TreeEntry) (mode vcs.FileMode, ok bool) {
	switch {
	case o.Mode == t.Mode:
		return o.Mode, true
	case b != nil && b.Mode == o.Mode:
		return t.Mode, true
	case b != nil && b.Mode == t.Mode:
		return o.Mode, true
	}
	return o.Mode, false
}

func same(a, b *vcs.TreeEntry) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Mode == b.Mode && a.ID == b.ID
}

func lookup(es map[string]vcs.TreeEntry, path string) *vcs.TreeEntry {
	if e, ok := es[path]; ok {
		return &e
	}
	return nil
}

func unionPaths(trees ...map[string]vcs.TreeEntry) []string {
	seen := map[string]struct{}{}
	var paths []string
	for _, t := range trees {
		for p := range t {
			if _, ok := seen[p]; !ok {
				seen[p] = struct{}{}
				paths = append(paths, p)
			}
		}
	}
	sort.Strings(paths)
	return paths
}

// isBinary uses git's heuristic: a NUL byte in the first 8000 bytes.
func isBinary(data []byte) bool {
	if len(data) > 8000 {
		data = data[:8000]
	}
	return bytes.IndexByte(data, 0) >= 0
}
