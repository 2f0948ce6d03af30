package vcs

import "io"

// A Merger is a repository that can perform actions related to
// merging.
type Merger interface {
	// MergeBase returns the merge base commit for the specified
	// commits. It returns an empty CommitID and a nil error if the
	// commits share no history.
	MergeBase(CommitID, CommitID) (CommitID, error)
}

// Stage identifies which side of a merge contributed an index entry.
type Stage int

const (
	StageMerged Stage = iota // resolved, or never conflicting
	StageBase
	StageOurs
	StageTheirs
)

func (s Stage) String() string {
	switch s {
	case StageMerged:
		return "merged"
	case StageBase:
		return "base"
	case StageOurs:
		return "ours"
	case StageTheirs:
		return "theirs"
	}
	return "invalid"
}

// IndexEntry is one entry of a multi-stage merge index. Conflicting
// paths are recorded once per contributing side.
type IndexEntry struct {
	Path  string
	Stage Stage
	Mode  FileMode
	ID    ObjectID
}

// ConflictState marks where a MergeChunk sits relative to a conflict.
type ConflictState int

const (
	NoConflict ConflictState = iota

	// FirstConflictingRange is the "ours" half of a conflict.
	FirstConflictingRange

	// BaseConflictingRange is the base version of a conflicting
	// region. It sits between the first and next ranges.
	BaseConflictingRange

	// NextConflictingRange is the "theirs" half of a conflict.
	NextConflictingRange
)

// A MergeChunk is a run of lines taken from one of the merge inputs.
// Lines keep their trailing newline, if any.
type MergeChunk struct {
	Source   Stage
	Conflict ConflictState
	Lines    []string
}

// FileMerge is the structured result of merging one file's content.
type FileMerge struct {
	Chunks []MergeChunk
}

// HasConflicts reports whether any chunk is part of a conflict.
func (m *FileMerge) HasConflicts() bool {
	for _, c := range m.Chunks {
		if c.Conflict != NoConflict {
			return true
		}
	}
	return false
}

// MergeOutcome is the result of a three-way tree merge.
type MergeOutcome struct {
	// Clean is true if every path merged without conflict. Tree is
	// then the ID of the merged tree.
	Clean bool
	Tree  ObjectID

	// Index lists every path of the merge result, sorted by path and
	// stage. Conflicting paths appear once per contributing stage.
	Index []IndexEntry

	// Conflicts holds the line-level merge of every conflicting path
	// whose content differed on both sides and could be merged line by
	// line. A path whose content merged cleanly but whose mode
	// conflicts is included, with a FileMerge that has no conflicting
	// chunks.
	Conflicts map[string]*FileMerge
}

// MergeSource is what a merger reads from.
type MergeSource interface {
	ObjectReader
	Merger
}

// A ThreeWayMerger merges the trees of two commits against their merge
// base.
type ThreeWayMerger interface {
	// Merge returns a non-nil error only for hard failures (such as an
	// unreadable object). Conflicts are reported in the outcome.
	Merge(ours, theirs CommitID) (*MergeOutcome, error)
}

// A MergeStrategy creates mergers. Objects a merger creates must be
// written through w.
type MergeStrategy interface {
	Name() string
	NewMerger(src MergeSource, w ObjectWriter) ThreeWayMerger
}

// A MergeFormatter renders a file merge with conflict markers.
type MergeFormatter interface {
	FormatMerge(w io.Writer, m *FileMerge, baseName, oursName, theirsName string) error
}
