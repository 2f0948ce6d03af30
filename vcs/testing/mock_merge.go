package testing

import (
	"github.com/sourcegraph/go-automerge/vcs"
)

// MockStrategy is a vcs.MergeStrategy whose mergers call Merge_.
type MockStrategy struct {
	Name_ string

	// Merge_ is called with the source and writer passed to
	// NewMerger.
	Merge_ func(src vcs.MergeSource, w vcs.ObjectWriter, ours, theirs vcs.CommitID) (*vcs.MergeOutcome, error)
}

var _ vcs.MergeStrategy = MockStrategy{}

func (s MockStrategy) Name() string {
	if s.Name_ == "" {
		return "mock"
	}
	return s.Name_
}

func (s MockStrategy) NewMerger(src vcs.MergeSource, w vcs.ObjectWriter) vcs.ThreeWayMerger {
	return MockMerger{Merge_: func(ours, theirs vcs.CommitID) (*vcs.MergeOutcome, error) {
		return s.Merge_(src, w, ours, theirs)
	}}
}

type MockMerger struct {
	Merge_ func(ours, theirs vcs.CommitID) (*vcs.MergeOutcome, error)
}

var _ vcs.ThreeWayMerger = MockMerger{}

func (m MockMerger) Merge(ours, theirs vcs.CommitID) (*vcs.MergeOutcome, error) {
	return m.Merge_(ours, theirs)
}
