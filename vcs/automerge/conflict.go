package automerge

import (
	"github.com/pkg/errors"

	"github.com/sourcegraph/go-automerge/vcs"
)

// ErrInvalidIndex means a merge index broke the ordering or stage rules
// a merger must follow. It indicates a bug in the merger.
var ErrInvalidIndex = errors.New("invalid merge index")

// A Run is the set of index entries for one path, in stage order.
type Run struct {
	Path    string
	Entries []vcs.IndexEntry
}

// RunScanner groups a sorted merge index into runs of entries sharing a
// path. Use it like a bufio.Scanner:
//
//	s := NewRunScanner(index)
//	for s.Scan() {
//		run := s.Run()
//		...
//	}
//	if err := s.Err(); err != nil { ... }
type RunScanner struct {
	index []vcs.IndexEntry
	pos   int
	prev  string
	run   Run
	err   error
}

func NewRunScanner(index []vcs.IndexEntry) *RunScanner {
	return &RunScanner{index: index}
}

// Scan advances to the next run. It returns false at the end of the
// index or when the index is malformed; Err tells the two apart.
func (s *RunScanner) Scan() bool {
	if s.err != nil || s.pos >= len(s.index) {
		return false
	}
	first := s.index[s.pos]
	if s.pos > 0 && first.Path <= s.prev {
		s.err = errors.Wrapf(ErrInvalidIndex, "path %q out of order after %q", first.Path, s.prev)
		return false
	}

	end := s.pos + 1
	for end < len(s.index) && s.index[end].Path == first.Path {
		end++
	}
	run := Run{Path: first.Path, Entries: s.index[s.pos:end]}
	if err := checkRun(run); err != nil {
		s.err = err
		return false
	}
	s.run = run
	s.prev = first.Path
	s.pos = end
	return true
}

func (s *RunScanner) Run() Run { return s.run }

func (s *RunScanner) Err() error { return s.err }

func checkRun(run Run) error {
	if len(run.Entries) > 3 {
		return errors.Wrapf(ErrInvalidIndex, "path %q has %d stages", run.Path, len(run.Entries))
	}
	last := vcs.StageMerged
	for i, e := range run.Entries {
		switch {
		case e.Stage == vcs.StageMerged && len(run.Entries) > 1:
			return errors.Wrapf(ErrInvalidIndex, "path %q is both merged and conflicting", run.Path)
		case e.Stage < vcs.StageMerged || e.Stage > vcs.StageTheirs:
			return errors.Wrapf(ErrInvalidIndex, "path %q has stage %d", run.Path, e.Stage)
		case i > 0 && e.Stage <= last:
			return errors.Wrapf(ErrInvalidIndex, "path %q has stages out of order", run.Path)
		}
		last = e.Stage
	}
	return nil
}

// ResolveRun collapses a run to the single tree entry the automerge
// tree records for its path. resolved maps paths to blobs holding their
// merged content (conflict markers included).
//
// The policy does not try to be right, only to be deterministic:
//   - a merged (stage 0) entry is kept as is;
//   - resolved content wins, with the mode of the lowest stage present;
//   - a lone stage is kept as is;
//   - two stages mean one side deleted the path, so the side that kept
//     it (the higher stage) wins;
//   - otherwise the base version is shown.
func ResolveRun(run Run, resolved map[string]vcs.ObjectID) vcs.TreeEntry {
	first := run.Entries[0]
	if first.Stage == vcs.StageMerged {
		return treeEntry(first)
	}
	if id, ok := resolved[run.Path]; ok {
		return vcs.TreeEntry{Path: run.Path, Mode: first.Mode, ID: id}
	}
	switch len(run.Entries) {
	case 1:
		return treeEntry(first)
	case 2:
		return treeEntry(run.Entries[1])
	default:
		return treeEntry(first)
	}
}

func treeEntry(e vcs.IndexEntry) vcs.TreeEntry {
	return vcs.TreeEntry{Path: e.Path, Mode: e.Mode, ID: e.ID}
}

// SynthesizeTree resolves every run of a merge index (see ResolveRun)
// and returns one entry per path, in index order.
func SynthesizeTree(index []vcs.IndexEntry, resolved map[string]vcs.ObjectID) ([]vcs.TreeEntry, error) {
	var entries []vcs.TreeEntry
	s := NewRunScanner(index)
	for s.Scan() {
		entries = append(entries, ResolveRun(s.Run(), resolved))
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
